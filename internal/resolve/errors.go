package resolve

import (
	"fmt"
	"strings"

	"github.com/stratum-data/stratum/internal/graph"
)

// RefArgsError reports a ref() call with the wrong argument shape.
type RefArgsError struct {
	Node *graph.Node
	Args []string
}

func (e *RefArgsError) Error() string {
	return fmt.Sprintf("ref() takes at most two arguments (%d given) in %s", len(e.Args), e.Node.UniqueID)
}

// SourceArgsError reports a source() call with the wrong argument shape.
type SourceArgsError struct {
	Node *graph.Node
	Args []string
}

func (e *SourceArgsError) Error() string {
	return fmt.Sprintf("source() takes exactly two arguments (%d given) in %s", len(e.Args), e.Node.UniqueID)
}

// MetricArgsError reports a metric() call with the wrong argument shape.
type MetricArgsError struct {
	Node *graph.Node
	Args []string
}

func (e *MetricArgsError) Error() string {
	return fmt.Sprintf("metric() takes one or two arguments (%d given) in %s", len(e.Args), e.Node.UniqueID)
}

// TargetNotFoundError reports an unresolved or explicitly disabled target.
type TargetNotFoundError struct {
	Node          *graph.Node
	TargetName    string
	TargetKind    string // "node", "source", "metric"
	TargetPackage string
	TargetVersion string
	Disabled      bool
}

func (e *TargetNotFoundError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s %q", e.TargetKind, e.TargetName)
	if e.TargetPackage != "" {
		fmt.Fprintf(&sb, " in package %q", e.TargetPackage)
	}
	if e.TargetVersion != "" {
		fmt.Fprintf(&sb, " version %q", e.TargetVersion)
	}
	if e.Disabled {
		sb.WriteString(" is disabled")
	} else {
		sb.WriteString(" was not found")
	}
	fmt.Fprintf(&sb, ", referenced by %s", e.Node.UniqueID)
	return sb.String()
}

// AccessError reports a private or protected boundary crossing.
type AccessError struct {
	UniqueID    string
	RefUniqueID string
	Access      graph.AccessType
	Scope       string
}

func (e *AccessError) Error() string {
	return fmt.Sprintf("node %s attempted to reference node %s, which is not allowed because the referenced node is %s to the %q scope",
		e.UniqueID, e.RefUniqueID, e.Access, e.Scope)
}

// RefNotDeclaredError reports a runtime ref whose resolved target is not in
// the requester's recorded dependency set.
type RefNotDeclaredError struct {
	Node *graph.Node
	Args graph.RefArgs
}

func (e *RefNotDeclaredError) Error() string {
	ref := e.Args.Name
	if e.Args.Package != "" {
		ref = e.Args.Package + "." + ref
	}
	return fmt.Sprintf("%s attempted to ref(%q) at runtime, but that ref was not recorded as a dependency at parse time", e.Node.UniqueID, ref)
}

// EphemeralRefError reports an operation trying to ref an ephemeral model,
// which cannot be inlined outside a model body.
type EphemeralRefError struct {
	Node       *graph.Node
	TargetName string
}

func (e *EphemeralRefError) Error() string {
	return fmt.Sprintf("operations cannot ref() ephemeral node %q (from %s): ephemeral models can only be inlined inside model statements", e.TargetName, e.Node.UniqueID)
}

// MissingConfigError reports config.require of an absent key.
type MissingConfigError struct {
	UniqueID string
	Name     string
}

func (e *MissingConfigError) Error() string {
	return fmt.Sprintf("required config %q was not provided for %s", e.Name, e.UniqueID)
}

// MissingVarError reports var() of an undefined variable with no default.
type MissingVarError struct {
	UniqueID string
	Name     string
}

func (e *MissingVarError) Error() string {
	return fmt.Sprintf("required var %q is not defined for %s; define it in the project vars or pass it with --vars", e.Name, e.UniqueID)
}

// ConflictingConfigKeysError reports a config() call supplying both the
// legacy underscore and the hyphenated spelling of a hook key.
type ConflictingConfigKeysError struct {
	Node   *graph.Node
	OldKey string
	NewKey string
}

func (e *ConflictingConfigKeysError) Error() string {
	return fmt.Sprintf("invalid config in %s: cannot specify both %q and %q", e.Node.UniqueID, e.OldKey, e.NewKey)
}

// InlineConfigError reports a config() call mixing positional and keyword
// arguments, or supplying neither.
type InlineConfigError struct {
	Node *graph.Node
}

func (e *InlineConfigError) Error() string {
	return fmt.Sprintf("invalid inline config() call in %s: pass either a single mapping or keyword arguments, not both", e.Node.UniqueID)
}

// PersistDocsError reports a persist_docs config value that is not a mapping.
type PersistDocsError struct {
	Value any
}

func (e *PersistDocsError) Error() string {
	return fmt.Sprintf("persist_docs config must be a mapping, got %T", e.Value)
}

// DispatchError reports macro-dispatch exhaustion, listing every attempted
// (package, prefixed-name) combination.
type DispatchError struct {
	MacroName string
	Namespace string
	Attempts  []string
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("in dispatch: no macro named %q found within namespace %q\n    searched for: %s",
		e.MacroName, e.Namespace, strings.Join(e.Attempts, ", "))
}

// DispatchNameError reports a dispatch call whose macro name carries a
// namespace separator.
type DispatchNameError struct {
	MacroName string
}

func (e *DispatchNameError) Error() string {
	pkg, name, _ := strings.Cut(e.MacroName, ".")
	return fmt.Sprintf("in dispatch: %q is not a valid macro name component; did you mean dispatch(%q, macro_namespace=%q)?",
		e.MacroName, name, pkg)
}

// DispatchNamespaceError reports a dispatch namespace that is neither the
// current project nor a known dependency.
type DispatchNamespaceError struct {
	Namespace string
}

func (e *DispatchNamespaceError) Error() string {
	return fmt.Sprintf("in dispatch: macro namespace %q is not the current project, a configured search order, or a dependency package", e.Namespace)
}

// InternalError reports a broken invariant inside the resolution core.
type InternalError struct {
	Message string
}

func (e *InternalError) Error() string {
	return "internal error: " + e.Message
}

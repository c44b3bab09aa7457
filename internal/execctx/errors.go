package execctx

import "fmt"

// ResultAlreadyLoadedError reports a second load_result of a consumed key.
type ResultAlreadyLoadedError struct {
	Name string
}

func (e *ResultAlreadyLoadedError) Error() string {
	return fmt.Sprintf("the result %q has already been loaded; store it again before loading it twice", e.Name)
}

// SecretEnvVarError reports a direct env_var lookup of a reserved
// secret-prefixed name. Secrets flow through a separate channel and must
// never be rendered into compiled code.
type SecretEnvVarError struct {
	Name string
}

func (e *SecretEnvVarError) Error() string {
	return fmt.Sprintf("secret env vars are allowed only in profiles and package configuration; cannot reference %q here", e.Name)
}

// EnvVarMissingError reports env_var of an unset variable with no default.
type EnvVarMissingError struct {
	Name string
}

func (e *EnvVarMissingError) Error() string {
	return fmt.Sprintf("env var required but not provided: %q", e.Name)
}

// CompilerError is raised from templates via exceptions.raise_compiler_error.
type CompilerError struct {
	Message  string
	UniqueID string
}

func (e *CompilerError) Error() string {
	if e.UniqueID != "" {
		return fmt.Sprintf("compilation error in %s: %s", e.UniqueID, e.Message)
	}
	return "compilation error: " + e.Message
}

// PythonJobError reports submit_python_job called outside a materialization.
type PythonJobError struct {
	UniqueID string
}

func (e *PythonJobError) Error() string {
	return fmt.Sprintf("submit_python_job is only intended to be called from a materialization context (in %s)", e.UniqueID)
}

// ValidationError reports a config value rejected by a validator.
type ValidationError struct {
	Value    any
	Expected []any
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("expected one of %v, got %v", e.Expected, e.Value)
}

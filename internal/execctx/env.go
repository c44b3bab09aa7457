package execctx

import (
	"strings"

	"github.com/stratum-data/stratum/internal/graph"
)

// SecretEnvPrefix marks environment variables that carry credentials. They
// are resolved by the config layer only and refused in templates.
const SecretEnvPrefix = "STRATUM_ENV_SECRET_"

// envVar resolves one env_var(name, default) call. The resolved value (or a
// placeholder when the default was used) is recorded on the manifest so
// partial reparsing can detect environment changes.
func (c *Context) envVar(name string, def *string) (string, error) {
	if strings.HasPrefix(name, SecretEnvPrefix) {
		return "", &SecretEnvVarError{Name: name}
	}

	value, ok := c.env[name]
	if !ok && def != nil {
		value = *def
	}
	if !ok && def == nil {
		return "", &EnvVarMissingError{Name: name}
	}

	if !c.provider.Execute {
		recorded := value
		if !ok {
			recorded = graph.DefaultEnvPlaceholder
		}
		c.manifest.RecordEnvVar(c.node, name, recorded)
	}
	return value, nil
}

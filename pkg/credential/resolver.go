// Package credential resolves the Upload API key from the environment the
// CI host provides: either a literal value from the job configuration or
// an environment variable populated by the host's secret store.
package credential

import (
	"fmt"
	"os"

	"github.com/datatheorem/dtupload/pkg/secret"
)

// DefaultEnvVar is the environment variable conventionally populated by
// the CI host's secret store with the Upload API key.
const DefaultEnvVar = "DATA_THEOREM_UPLOAD_API_KEY"

// Resolver yields the Upload API key. The protocol client never looks up
// credentials itself; it is handed the resolved value exactly once per
// invocation.
type Resolver interface {
	Resolve() (secret.Secret, error)
}

// Static resolves to a literal key supplied as a pipeline parameter.
type Static struct {
	key secret.Secret
}

// NewStatic returns a Resolver for a literal key.
func NewStatic(key secret.Secret) Static {
	return Static{key: key}
}

// Resolve returns the literal key, or an error if it is empty.
func (s Static) Resolve() (secret.Secret, error) {
	if s.key.IsZero() {
		return secret.Secret{}, fmt.Errorf("upload API key is empty")
	}

	return s.key, nil
}

// Env resolves the key from an environment variable.
type Env struct {
	// Name is the environment variable to read. Empty means DefaultEnvVar.
	Name string
}

// FromEnv returns a Resolver reading the named environment variable.
func FromEnv(name string) Env {
	return Env{Name: name}
}

// Resolve reads the environment variable. An unset or empty variable is
// an error: a missing key must surface before any network call is made.
func (e Env) Resolve() (secret.Secret, error) {
	name := e.Name
	if name == "" {
		name = DefaultEnvVar
	}

	value := os.Getenv(name)
	if value == "" {
		return secret.Secret{}, fmt.Errorf("environment variable %s is not set", name)
	}

	return secret.New(value), nil
}

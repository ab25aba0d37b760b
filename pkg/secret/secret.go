// Package secret provides an opaque holder for sensitive string values.
// A Secret redacts itself in every printable surface (fmt verbs, JSON,
// yaml); the plaintext is only reachable through an explicit accessor.
package secret

// Redacted is the placeholder emitted wherever a Secret would otherwise
// be printed or serialized.
const Redacted = "[redacted]"

// Secret wraps a sensitive string such as an API key or proxy password.
// The zero value is an empty secret.
type Secret struct {
	value string
}

// New wraps value in a Secret.
func New(value string) Secret {
	return Secret{value: value}
}

// Plaintext returns the wrapped value. Callers must not log or persist
// the result.
func (s Secret) Plaintext() string {
	return s.value
}

// IsZero reports whether the secret is empty.
func (s Secret) IsZero() bool {
	return s.value == ""
}

// String implements fmt.Stringer, hiding the value from %s and %v.
func (s Secret) String() string {
	if s.value == "" {
		return ""
	}

	return Redacted
}

// GoString hides the value from %#v.
func (s Secret) GoString() string {
	return "secret.Secret{" + s.String() + "}"
}

// MarshalJSON serializes the redaction placeholder, never the value.
func (s Secret) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// MarshalYAML serializes the redaction placeholder, never the value.
func (s Secret) MarshalYAML() (any, error) {
	return s.String(), nil
}

package dsl

// ParseField is a clause field name together with its accepted aliases.
type ParseField struct {
	preferred string
	aliases   []string
}

// NewParseField creates a ParseField with a preferred name and optional aliases.
func NewParseField(preferred string, aliases ...string) ParseField {
	return ParseField{preferred: preferred, aliases: aliases}
}

// PreferredName returns the canonical name, used in error messages and
// when serializing back to structured form.
func (f ParseField) PreferredName() string { return f.preferred }

// Match reports whether name is the preferred name or any alias.
func (f ParseField) Match(name string) bool {
	if name == f.preferred {
		return true
	}
	for _, a := range f.aliases {
		if name == a {
			return true
		}
	}
	return false
}

// Shared fields every clause accepts.
var (
	boostField = NewParseField("boost")
	nameField  = NewParseField("_name")
)

// FieldMatcher decides how lenient parsing is about legacy field names.
// Names registered as deprecated are silently skipped instead of being
// rejected as unknown. The zero value (and nil) is fully strict.
type FieldMatcher struct {
	deprecated map[string]bool
}

// NewFieldMatcher creates a matcher that skips the given deprecated names.
func NewFieldMatcher(deprecatedNames ...string) *FieldMatcher {
	m := &FieldMatcher{deprecated: make(map[string]bool, len(deprecatedNames))}
	for _, name := range deprecatedNames {
		m.deprecated[name] = true
	}
	return m
}

// IsDeprecated reports whether a field name should be skipped.
func (m *FieldMatcher) IsDeprecated(name string) bool {
	if m == nil {
		return false
	}
	return m.deprecated[name]
}

// Package bodyparse implements the Body Parsers & Validation component
// (spec §4.D): Content-Type-dispatched parsing middleware plus a declarative
// validation schema; email, URL and enum rules are checked with
// go-playground/validator, the other rule kinds directly.
package bodyparse

// RuleKind is the closed set of validation rule shapes the schema DSL
// supports.
type RuleKind int

const (
	RequiredString RuleKind = iota
	OptionalString
	RequiredNumber
	RequiredBoolean
	RequiredEmail
	RequiredURL
	RequiredEnum
	RequiredArray
)

// Rule describes one field's validation requirements. Only the fields
// relevant to Kind are read; the rest are ignored.
type Rule struct {
	Kind RuleKind

	// RequiredString / OptionalString
	MinLength int
	MaxLength int
	Pattern   string

	// RequiredNumber
	Min     float64
	Max     float64
	HasMin  bool
	HasMax  bool
	Integer bool

	// RequiredEnum
	Values []string

	// RequiredArray
	MinItems int
	MaxItems int
	ItemRule *Rule
}

// Schema maps field name to the rule it must satisfy. Fields absent from the
// schema are ignored by Validate (extra input fields are never an error).
type Schema map[string]Rule

func (r Rule) required() bool {
	return r.Kind != OptionalString
}

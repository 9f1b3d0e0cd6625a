// Package stem reduces surface tokens to the forms dictionaries are keyed
// by: CISTEM stems for German and rule-based lemmas for Japanese.
package stem

// Mode selects case handling during reduction.
type Mode int

const (
	CaseSensitive Mode = iota
	CaseInsensitive
)

// Reduction is one reduced form of a token.
type Reduction struct {
	Text string
	// Inflections lists the rules applied to reach Text, in order.
	Inflections []string
	// Rules holds the word classes Text belongs to, when known.
	Rules []string
}

// Reducer reduces a token to zero or more candidate forms.
type Reducer interface {
	Reduce(token string, mode Mode) []Reduction
}

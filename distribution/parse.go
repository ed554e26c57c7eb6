package distribution

import (
	"fmt"
	"strconv"
	"strings"
)

// Parse a Spec from its directive syntax: a distribution name optionally
// followed by a parenthesized, comma-separated parameter list. Examples:
//
//	uniform
//	uniform(1,6)
//	normal(100, 15)
//	pareto(1,1.16)
//
// Malformed syntax returns a *SyntaxError. Well-formed input having the wrong
// parameter count or invalid parameters returns a *ConfigError.
func Parse(s string) (Spec, error) {
	var name, args = s, ""

	if open := strings.IndexByte(s, '('); open != -1 {
		if !strings.HasSuffix(s, ")") {
			return Spec{}, &SyntaxError{Input: s, Reason: "missing closing parenthesis"}
		}
		name, args = s[:open], s[open+1:len(s)-1]
	} else if strings.ContainsAny(s, ",)") {
		return Spec{}, &SyntaxError{Input: s, Reason: "parameters must be parenthesized"}
	}

	var kind, ok = KindByName(strings.TrimSpace(name))
	if !ok {
		return Spec{}, &SyntaxError{Input: s, Reason: fmt.Sprintf("unknown distribution %q", name)}
	}

	var params []float64
	if strings.TrimSpace(args) != "" {
		for _, p := range strings.Split(args, ",") {
			var f, err = strconv.ParseFloat(strings.TrimSpace(p), 64)
			if err != nil {
				return Spec{}, &SyntaxError{Input: s, Reason: fmt.Sprintf("invalid parameter %q", p)}
			}
			params = append(params, f)
		}
	}
	return New(kind, params...)
}

// SyntaxError is returned by Parse for malformed distribution syntax.
type SyntaxError struct {
	Input  string
	Reason string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("malformed distribution %q: %s", e.Input, e.Reason)
}

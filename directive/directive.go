// Package directive parses per-field generation directives from schema
// comments, and resolves them against a field descriptor into a Field
// which fully determines how values of the field are generated.
//
// Directives are whitespace-delimited key=value tokens embedded anywhere in
// the comment attached to a field:
//
//	// The customer's display name. words=2..3
//	string name = 1;
//	// count=1..10 distribution=normal(100, 15)
//	repeated int32 scores = 2;
//	// pool=user_ids
//	string user_id = 3;
//
// Recognized keys are "words", "count", "string", "pool", and
// "distribution". Other tokens, including key=value tokens having an
// unrecognized key, are prose and are ignored.
package directive

import (
	"fmt"
	"strconv"
	"strings"

	"go.gazette.dev/protofake/distribution"
)

// Kind of a Directive.
type Kind int

const (
	// Words is a word-count range of string values, or a length range
	// of bytes values.
	Words Kind = iota
	// Count is a cardinality range of repeated and map fields, or a
	// length range of singular bytes fields.
	Count
	// String is a format of generated string values.
	String
	// Pool names a value pool from which field values are picked.
	Pool
	// Distribution is a numeric distribution of field values, or of
	// enum and pool indices.
	Distribution
)

var kindKeys = [...]string{"words", "count", "string", "pool", "distribution"}

func (k Kind) String() string { return kindKeys[k] }

// Range is an inclusive range of non-negative integers.
type Range struct{ Min, Max int }

// MaxRange bounds the values of a parsed Range.
const MaxRange = 1 << 20

func (r Range) String() string {
	if r.Min == r.Max {
		return strconv.Itoa(r.Min)
	}
	return strconv.Itoa(r.Min) + ".." + strconv.Itoa(r.Max)
}

// StringFormat is a generated format of string values.
type StringFormat int

const (
	// FormatWords is a space-separated sequence of lexicon words.
	FormatWords StringFormat = iota
	FormatUUID
	FormatName
	FormatEmail
	FormatPhone
	FormatHex
	FormatSentence
)

var formatNames = [...]string{"words", "uuid", "name", "email", "phone", "hex", "sentence"}

func (f StringFormat) String() string { return formatNames[f] }

// Directive is a single parsed key=value token.
type Directive struct {
	Kind Kind
	// Token is the verbatim directive text.
	Token string

	// Range of a Words or Count Directive.
	Range Range
	// Format of a String Directive.
	Format StringFormat
	// Pool name of a Pool Directive.
	Pool string
	// Distribution of a Distribution Directive.
	Distribution distribution.Spec
}

// Parse the Directives of a comment. A recognized key having a malformed
// value, or which is repeated, fails with a *ParseError.
func Parse(comment string) ([]Directive, error) {
	var out []Directive
	var seen [len(kindKeys)]bool
	var tokens = strings.Fields(comment)

	for i := 0; i < len(tokens); i++ {
		var key, value, ok = strings.Cut(tokens[i], "=")
		if !ok {
			continue // Prose.
		}
		var kind = Kind(-1)
		for k, n := range kindKeys {
			if n == key {
				kind = Kind(k)
			}
		}
		if kind == -1 {
			continue // Unrecognized key=value prose.
		}

		// Distribution parameters may be separated by whitespace,
		// as in "normal(100, 15)". Re-join them.
		var token = tokens[i]
		if kind == Distribution && strings.Contains(value, "(") {
			for !strings.Contains(value, ")") && i+1 < len(tokens) {
				i++
				value += tokens[i]
				token += " " + tokens[i]
			}
		}

		if seen[kind] {
			return nil, &ParseError{Token: token, Reason: "duplicate " + key + " directive"}
		}
		seen[kind] = true

		var d, err = parseValue(kind, value)
		if err != nil {
			err.Token = token
			return nil, err
		}
		d.Token = token
		out = append(out, d)
	}
	return out, nil
}

func parseValue(kind Kind, value string) (Directive, *ParseError) {
	var d = Directive{Kind: kind}

	switch kind {
	case Words, Count:
		var err error
		if d.Range, err = ParseRange(value); err != nil {
			return d, &ParseError{Reason: err.Error()}
		}
	case String:
		var ok bool
		for f, n := range formatNames {
			if n == value && StringFormat(f) != FormatWords {
				d.Format, ok = StringFormat(f), true
			}
		}
		if !ok {
			return d, &ParseError{Reason: fmt.Sprintf(
				"unknown string format %q (expected one of %s)", value, strings.Join(formatNames[1:], ", "))}
		}
	case Pool:
		if value == "" {
			return d, &ParseError{Reason: "pool name is empty"}
		}
		d.Pool = value
	case Distribution:
		var err error
		if d.Distribution, err = distribution.Parse(value); err != nil {
			return d, &ParseError{Reason: "invalid distribution", Err: err}
		}
	}
	return d, nil
}

// ParseRange parses an inclusive Range of the form "N" or "N..M".
func ParseRange(s string) (Range, error) {
	var loStr, hiStr, isRange = strings.Cut(s, "..")
	if !isRange {
		hiStr = loStr
	}
	var lo, err = strconv.Atoi(loStr)
	if err != nil || lo < 0 {
		return Range{}, fmt.Errorf("invalid range bound %q (expected a non-negative integer)", loStr)
	}
	hi, err := strconv.Atoi(hiStr)
	if err != nil || hi < 0 {
		return Range{}, fmt.Errorf("invalid range bound %q (expected a non-negative integer)", hiStr)
	}
	if lo > hi {
		return Range{}, fmt.Errorf("invalid range %q (min must be <= max)", s)
	} else if hi > MaxRange {
		return Range{}, fmt.Errorf("invalid range %q (bounds must be <= %d)", s, MaxRange)
	}
	return Range{Min: lo, Max: hi}, nil
}

// ParseError is a malformed or inapplicable directive token.
type ParseError struct {
	// Field is the full name of the field bearing the directive,
	// if known.
	Field string
	Token string
	// Reason the Token is invalid.
	Reason string
	// Err which caused the ParseError, if any.
	Err error
}

func (e *ParseError) Error() string {
	var s = fmt.Sprintf("invalid directive %q: %s", e.Token, e.Reason)
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	if e.Field != "" {
		s = "field " + e.Field + ": " + s
	}
	return s
}

func (e *ParseError) Unwrap() error { return e.Err }

// ReferenceError is a pool directive naming an undeclared pool, or a pool
// whose type is incompatible with the field.
type ReferenceError struct {
	Field string
	Pool  string
	// Reason is empty if the pool is undeclared.
	Reason string
}

func (e *ReferenceError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("field %s: pool %q is not declared", e.Field, e.Pool)
	}
	return fmt.Sprintf("field %s: pool %q %s", e.Field, e.Pool, e.Reason)
}

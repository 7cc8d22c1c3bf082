// Package search builds FHIR search queries from structured predicates.
//
// Predicates are grouped into [Group] values by the operator constructors
// ([Eq], [Lt], [Between], ...) and compiled into a wire-ready query mapping
// with [Compile]:
//
//	query := search.Compile(
//		search.Eq(search.Key("gender"), "M"),
//		search.Between(search.Key("birthdate"), lo, hi),
//	)
//
// Values may be plain scalars, sequences, [time.Time], exact decimals
// ([apd.Decimal]) or system-qualified tokens ([Namespaced]).
package search

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/cockroachdb/apd/v3"
)

// Operator is the comparison prefix of a search predicate.
//
// Equality is omitted entirely in the wire encoding; the others are rendered
// literally in front of the value.
type Operator string

const (
	OpEqual          Operator = "="
	OpLessThan       Operator = "<"
	OpLessOrEqual    Operator = "<="
	OpGreaterThan    Operator = ">"
	OpGreaterOrEqual Operator = ">="
)

// ParameterKey identifies a search parameter: a (possibly nested) field path
// plus an optional modifier.
type ParameterKey struct {
	// Name is the parameter name; nested field paths are dot-joined,
	// e.g. "subject.identifier".
	Name string
	// Modifier is an optional modifier appended as ":modifier",
	// such as "exact" or "missing".
	Modifier string
}

// Key builds a ParameterKey from one or more field-path segments.
func Key(segments ...string) ParameterKey {
	return ParameterKey{Name: strings.Join(segments, ".")}
}

// WithModifier returns a copy of the key carrying the given modifier.
func (k ParameterKey) WithModifier(modifier string) ParameterKey {
	k.Modifier = modifier
	return k
}

func (k ParameterKey) String() string {
	if k.Modifier == "" {
		return k.Name
	}
	return fmt.Sprintf("%s:%s", k.Name, k.Modifier)
}

// Descriptor is one search predicate: parameter, operator and value.
type Descriptor struct {
	Key      ParameterKey
	Operator Operator
	Value    any
}

// Group is an ordered set of descriptors produced by one operator
// constructor. [Between] is the only constructor yielding more than one.
type Group []Descriptor

// Eq matches values equal to value.
func Eq(key ParameterKey, value any) Group {
	return Group{{Key: key, Operator: OpEqual, Value: value}}
}

// Lt matches values strictly less than value.
func Lt(key ParameterKey, value any) Group {
	return Group{{Key: key, Operator: OpLessThan, Value: value}}
}

// Lte matches values less than or equal to value.
func Lte(key ParameterKey, value any) Group {
	return Group{{Key: key, Operator: OpLessOrEqual, Value: value}}
}

// Gt matches values strictly greater than value.
func Gt(key ParameterKey, value any) Group {
	return Group{{Key: key, Operator: OpGreaterThan, Value: value}}
}

// Gte matches values greater than or equal to value.
func Gte(key ParameterKey, value any) Group {
	return Group{{Key: key, Operator: OpGreaterOrEqual, Value: value}}
}

// Between matches values in the exclusive range (low, high). It compiles to
// two predicates on the same parameter.
func Between(key ParameterKey, low, high any) Group {
	return Group{
		{Key: key, Operator: OpGreaterThan, Value: low},
		{Key: key, Operator: OpLessThan, Value: high},
	}
}

// Namespaced qualifies a scalar search value with a coded-system namespace.
// It renders as "namespace|value"; a zero Namespace renders as "|value".
type Namespaced struct {
	Namespace string
	Value     any
}

// Compile flattens the descriptor groups into a query mapping keyed by
// rendered parameter name. Repeated occurrences of a name accumulate in
// first-to-last encounter order.
func Compile(groups ...Group) url.Values {
	values := url.Values{}
	for _, group := range groups {
		for _, d := range group {
			values.Add(d.Key.String(), renderValue(d.Operator, d.Value))
		}
	}
	return values
}

func renderValue(op Operator, value any) string {
	if op == OpEqual {
		return FormatValue(value)
	}
	return string(op) + FormatValue(value)
}

// FormatValue renders a single search value for the wire. Sequences render
// their elements comma-joined, namespaced values as "namespace|value",
// timestamps as ISO-8601 with offset, decimals exactly; every other scalar
// goes through string conversion and [EscapeValue].
func FormatValue(value any) string {
	switch v := value.(type) {
	case Namespaced:
		return v.Namespace + "|" + FormatValue(v.Value)
	case time.Time:
		return v.Format("2006-01-02T15:04:05-07:00")
	case *apd.Decimal:
		return EscapeValue(v.String())
	case []any:
		parts := make([]string, len(v))
		for i, e := range v {
			parts[i] = FormatValue(e)
		}
		return strings.Join(parts, ",")
	case []string:
		parts := make([]string, len(v))
		for i, e := range v {
			parts[i] = FormatValue(e)
		}
		return strings.Join(parts, ",")
	default:
		return EscapeValue(fmt.Sprintf("%v", v))
	}
}

// EscapeValue backslash-escapes the characters reserved by the FHIR search
// grammar. The backslash itself is escaped first so already-escaped output
// is never escaped twice.
func EscapeValue(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `$`, `\$`)
	s = strings.ReplaceAll(s, `,`, `\,`)
	s = strings.ReplaceAll(s, `|`, `\|`)
	return s
}

package attr

import (
	"fmt"
	"strconv"
	"strings"

	coreerrors "github.com/tabula-lab/tabula/internal/core/errors"
)

// Kind enumerates the closed set of attribute types. A column's kind is fixed
// by its schema registration and never widens afterward.
type Kind int

const (
	KindInt Kind = iota
	KindFloat
	KindBool
	KindText
)

// String returns the kind name used in error messages and schema files.
func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindText:
		return "text"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Attr is a dynamically-typed scalar: exactly one of int32, float32, bool, or
// text, discriminated by Kind. Values are immutable and cheap to copy (Text
// shares the underlying string).
type Attr struct {
	kind Kind
	i    int32
	f    float32
	b    bool
	s    string
}

// Zero-value constructors double as schema type samples: only the kind of a
// sample matters at registration.
func Int(v int32) Attr     { return Attr{kind: KindInt, i: v} }
func Float(v float32) Attr { return Attr{kind: KindFloat, f: v} }
func Bool(v bool) Attr     { return Attr{kind: KindBool, b: v} }
func Text(v string) Attr   { return Attr{kind: KindText, s: v} }

// Kind returns the attribute's discriminant.
func (a Attr) Kind() Kind { return a.kind }

// IsNumeric reports whether the attribute can participate in interval
// bucketing and arithmetic folds.
func (a Attr) IsNumeric() bool { return a.kind == KindInt || a.kind == KindFloat }

// Typed accessors. Each returns the zero value when the attribute holds a
// different kind; callers switch on Kind first.
func (a Attr) IntValue() int32     { return a.i }
func (a Attr) FloatValue() float32 { return a.f }
func (a Attr) BoolValue() bool     { return a.b }
func (a Attr) TextValue() string   { return a.s }

// String renders the value for display and deterministic test output.
func (a Attr) String() string {
	switch a.kind {
	case KindInt:
		return strconv.FormatInt(int64(a.i), 10)
	case KindFloat:
		return strconv.FormatFloat(float64(a.f), 'g', -1, 32)
	case KindBool:
		return strconv.FormatBool(a.b)
	case KindText:
		return a.s
	}
	return ""
}

// ParseAs parses raw text as the given kind. This is the only place type
// inference happens: once a column's kind is fixed in the schema, every row
// either parses as that kind or fails with ErrTypeMismatch.
func ParseAs(kind Kind, raw string) (Attr, error) {
	switch kind {
	case KindInt:
		v, err := strconv.ParseInt(raw, 10, 32)
		if err != nil {
			return Attr{}, fmt.Errorf("%w: expected int, got %q", coreerrors.ErrTypeMismatch, raw)
		}
		return Int(int32(v)), nil
	case KindFloat:
		v, err := strconv.ParseFloat(raw, 32)
		if err != nil {
			return Attr{}, fmt.Errorf("%w: expected float, got %q", coreerrors.ErrTypeMismatch, raw)
		}
		return Float(float32(v)), nil
	case KindBool:
		switch strings.ToLower(raw) {
		case "true", "t":
			return Bool(true), nil
		case "false", "f":
			return Bool(false), nil
		}
		return Attr{}, fmt.Errorf("%w: expected bool, got %q", coreerrors.ErrTypeMismatch, raw)
	case KindText:
		return Text(raw), nil
	}
	return Attr{}, fmt.Errorf("%w: unsupported kind %v", coreerrors.ErrTypeMismatch, kind)
}

// Ordering is the outcome of comparing two attributes of the same kind.
type Ordering int

const (
	Less Ordering = iota - 1
	Equal
	Greater
)

func (o Ordering) String() string {
	switch o {
	case Less:
		return "<"
	case Greater:
		return ">"
	}
	return "="
}

// Compare orders two attributes of the same kind. Cross-kind comparison is
// undefined: it returns ok=false and callers must treat the pair as not
// comparable rather than coerce. Booleans order false < true; text orders
// lexicographically by bytes.
func Compare(a, b Attr) (Ordering, bool) {
	if a.kind != b.kind {
		return Equal, false
	}
	switch a.kind {
	case KindInt:
		return orderOf(a.i, b.i), true
	case KindFloat:
		return orderOf(a.f, b.f), true
	case KindBool:
		if a.b == b.b {
			return Equal, true
		}
		if !a.b {
			return Less, true
		}
		return Greater, true
	case KindText:
		return Ordering(strings.Compare(a.s, b.s)), true
	}
	return Equal, false
}

// Equal reports same-kind, same-value equality. Cross-kind pairs are never
// equal.
func (a Attr) Equal(b Attr) bool {
	ord, ok := Compare(a, b)
	return ok && ord == Equal
}

func orderOf[T int32 | float32](a, b T) Ordering {
	switch {
	case a < b:
		return Less
	case a > b:
		return Greater
	}
	return Equal
}

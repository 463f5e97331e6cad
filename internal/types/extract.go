package types

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
)

// =============================================================================
// FUNCTION ARGUMENT VALUES
// =============================================================================
//
// Model-supplied arguments arrive as arbitrary JSON. Each value is decoded into
// a tagged Value so decoding itself never fails on an unexpected type; the
// handler that reads the argument decides what it needs and reports a
// mismatch through ArgTypeError.

// Kind tags the variant held by a Value.
type Kind int

const (
	KindNull Kind = iota
	KindString
	KindNumber
	KindBool
	KindStringList
	KindOther
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	case KindStringList:
		return "list of strings"
	default:
		return "object"
	}
}

var (
	// ErrMissingArgument is returned when a required argument is absent.
	ErrMissingArgument = errors.New("missing required argument")

	// ErrArgType is returned when an argument has the wrong type.
	ErrArgType = errors.New("invalid argument type")
)

// ArgTypeError describes a type mismatch for one argument.
type ArgTypeError struct {
	Key  string
	Want Kind
	Got  Kind
}

func (e *ArgTypeError) Error() string {
	return fmt.Sprintf("argument %q: expected %s, got %s", e.Key, e.Want, e.Got)
}

func (e *ArgTypeError) Unwrap() error { return ErrArgType }

// Value is a tagged union over the JSON shapes a function argument can take.
type Value struct {
	kind Kind
	str  string
	num  float64
	b    bool
	list []string
	raw  json.RawMessage
}

// StringValue, NumberValue, BoolValue and ListValue build Values directly.
func StringValue(s string) Value       { return Value{kind: KindString, str: s} }
func NumberValue(n float64) Value      { return Value{kind: KindNumber, num: n} }
func BoolValue(b bool) Value           { return Value{kind: KindBool, b: b} }
func ListValue(items ...string) Value  { return Value{kind: KindStringList, list: slices.Clone(items)} }
func (v Value) Kind() Kind             { return v.kind }
func (v Value) Equal(other Value) bool { return v.kind == other.kind && v.String() == other.String() }
func (v Value) IsNull() bool           { return v.kind == KindNull }

// UnmarshalJSON decodes any JSON value. Lists whose items are not all
// strings, and objects, become KindOther.
func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return errors.New("empty value")
	}
	switch data[0] {
	case 'n':
		*v = Value{kind: KindNull}
		return nil
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = StringValue(s)
		return nil
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return err
		}
		*v = BoolValue(b)
		return nil
	case '[':
		var items []string
		if err := json.Unmarshal(data, &items); err == nil {
			*v = Value{kind: KindStringList, list: items}
			return nil
		}
	case '{':
	default:
		var n float64
		if err := json.Unmarshal(data, &n); err != nil {
			return err
		}
		*v = NumberValue(n)
		return nil
	}
	if !json.Valid(data) {
		return errors.New("invalid JSON value")
	}
	*v = Value{kind: KindOther, raw: append(json.RawMessage(nil), data...)}
	return nil
}

// MarshalJSON encodes the value back to JSON.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindString:
		return json.Marshal(v.str)
	case KindNumber:
		return json.Marshal(v.num)
	case KindBool:
		return json.Marshal(v.b)
	case KindStringList:
		if v.list == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(v.list)
	case KindOther:
		return v.raw, nil
	default:
		return []byte("null"), nil
	}
}

// String renders the value for display and logging.
func (v Value) String() string {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindStringList:
		return "[" + strings.Join(v.list, ", ") + "]"
	case KindOther:
		return string(v.raw)
	default:
		return "null"
	}
}

// AsString returns the string variant.
func (v Value) AsString() (string, bool) {
	return v.str, v.kind == KindString
}

// AsInt returns an integral number. Strings holding a base-10 integer are
// accepted because models frequently quote numbers.
func (v Value) AsInt() (int, bool) {
	switch v.kind {
	case KindNumber:
		if v.num != math.Trunc(v.num) || math.Abs(v.num) > math.MaxInt32 {
			return 0, false
		}
		return int(v.num), true
	case KindString:
		n, err := strconv.Atoi(strings.TrimSpace(v.str))
		return n, err == nil
	}
	return 0, false
}

// AsBool returns the bool variant; "true"/"false" strings are accepted.
func (v Value) AsBool() (bool, bool) {
	switch v.kind {
	case KindBool:
		return v.b, true
	case KindString:
		b, err := strconv.ParseBool(v.str)
		return b, err == nil
	}
	return false, false
}

// AsStringList returns the list variant.
func (v Value) AsStringList() ([]string, bool) {
	if v.kind != KindStringList {
		return nil, false
	}
	return slices.Clone(v.list), true
}

// Arguments maps argument names to values.
type Arguments map[string]Value

// Has reports whether key is present and not null.
func (a Arguments) Has(key string) bool {
	v, ok := a[key]
	return ok && !v.IsNull()
}

// String extracts a required string argument.
func (a Arguments) String(key string) (string, error) {
	v, ok := a[key]
	if !ok || v.IsNull() {
		return "", fmt.Errorf("%w: %s", ErrMissingArgument, key)
	}
	s, ok := v.AsString()
	if !ok {
		return "", &ArgTypeError{Key: key, Want: KindString, Got: v.kind}
	}
	return s, nil
}

// OptionalString extracts a string argument, returning def when absent.
func (a Arguments) OptionalString(key, def string) (string, error) {
	if !a.Has(key) {
		return def, nil
	}
	return a.String(key)
}

// Int extracts a required integer argument.
func (a Arguments) Int(key string) (int, error) {
	v, ok := a[key]
	if !ok || v.IsNull() {
		return 0, fmt.Errorf("%w: %s", ErrMissingArgument, key)
	}
	n, ok := v.AsInt()
	if !ok {
		return 0, &ArgTypeError{Key: key, Want: KindNumber, Got: v.kind}
	}
	return n, nil
}

// OptionalInt extracts an integer argument, returning def when absent.
func (a Arguments) OptionalInt(key string, def int) (int, error) {
	if !a.Has(key) {
		return def, nil
	}
	return a.Int(key)
}

// OptionalBool extracts a bool argument, returning def when absent.
func (a Arguments) OptionalBool(key string, def bool) (bool, error) {
	if !a.Has(key) {
		return def, nil
	}
	v := a[key]
	b, ok := v.AsBool()
	if !ok {
		return false, &ArgTypeError{Key: key, Want: KindBool, Got: v.kind}
	}
	return b, nil
}

// StringList extracts a list-of-strings argument. An absent key yields nil.
func (a Arguments) StringList(key string) ([]string, error) {
	if !a.Has(key) {
		return nil, nil
	}
	v := a[key]
	list, ok := v.AsStringList()
	if !ok {
		return nil, &ArgTypeError{Key: key, Want: KindStringList, Got: v.kind}
	}
	return list, nil
}

package vars

import (
	"encoding/json"
	"strconv"
)

// Kind discriminates the payload held by a Value.
type Kind int

const (
	KindString Kind = iota
	KindNumber
	KindBool
	KindStructured
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	case KindStructured:
		return "structured"
	default:
		return "unknown"
	}
}

// Value is a tagged variable value: a string, a number, a boolean, or a
// decoded JSON structure. The zero Value is the empty string.
type Value struct {
	kind       Kind
	str        string
	num        float64
	boolean    bool
	structured interface{}
}

// StringValue wraps a plain string.
func StringValue(s string) Value {
	return Value{kind: KindString, str: s}
}

// NumberValue wraps a number.
func NumberValue(f float64) Value {
	return Value{kind: KindNumber, num: f}
}

// BoolValue wraps a boolean.
func BoolValue(b bool) Value {
	return Value{kind: KindBool, boolean: b}
}

// StructuredValue wraps a decoded JSON structure (object, array or null).
func StructuredValue(v interface{}) Value {
	return Value{kind: KindStructured, structured: v}
}

// FromDecoded classifies a value produced by a JSON decoder. Scalars become
// scalar kinds; objects, arrays and null stay structured.
func FromDecoded(v interface{}) Value {
	switch typed := v.(type) {
	case string:
		return StringValue(typed)
	case float64:
		return NumberValue(typed)
	case bool:
		return BoolValue(typed)
	default:
		return StructuredValue(typed)
	}
}

// Kind returns the value's tag.
func (v Value) Kind() Kind {
	return v.kind
}

// Structured returns the decoded structure and whether the value holds one.
func (v Value) Structured() (interface{}, bool) {
	if v.kind != KindStructured {
		return nil, false
	}
	return v.structured, true
}

// String renders the value the way substitution embeds it: scalars in their
// natural string form, structured values as compact JSON text.
func (v Value) String() string {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.boolean)
	case KindStructured:
		encoded, err := json.Marshal(v.structured)
		if err != nil {
			return "null"
		}
		return string(encoded)
	default:
		return ""
	}
}

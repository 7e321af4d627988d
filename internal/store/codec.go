// Package store persists job documents in the external document store over
// its JSON REST API. Field values cross the wire in a tagged representation
// (stringValue, integerValue, ...); this file is the codec between plain Go
// values and that representation. The tagged form never leaks out of this
// package.
package store

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"github.com/itinera-app/backend/internal/domain"
)

// Kind discriminates the wire value variants. Every Value carries exactly
// one kind; encode, decode, and the JSON marshalling all switch over the
// full set so an unhandled variant is impossible rather than silently null.
type Kind int

const (
	KindNull Kind = iota
	KindString
	KindInteger
	KindBoolean
	KindList
	KindMap
)

// Value is a tagged wire value. Only the field matching Kind is meaningful.
type Value struct {
	Kind Kind
	Str  string
	Int  int64
	Bool bool
	List []Value
	Map  map[string]Value
}

// Encode maps a plain value onto the wire representation. Supported inputs:
// nil, string, bool, int, int64, integral float64, []any, and
// map[string]any (recursively). The store has no float tag, so a float64
// with a fractional part is rejected rather than truncated.
func Encode(v any) (Value, error) {
	switch v := v.(type) {
	case nil:
		return Value{Kind: KindNull}, nil
	case string:
		return Value{Kind: KindString, Str: v}, nil
	case bool:
		return Value{Kind: KindBoolean, Bool: v}, nil
	case int:
		return Value{Kind: KindInteger, Int: int64(v)}, nil
	case int64:
		return Value{Kind: KindInteger, Int: v}, nil
	case float64:
		if v != math.Trunc(v) || v < math.MinInt64 || v > math.MaxInt64 {
			return Value{}, fmt.Errorf("%w: %v is not representable as an integer", domain.ErrEncoding, v)
		}
		return Value{Kind: KindInteger, Int: int64(v)}, nil
	case []any:
		list := make([]Value, 0, len(v))
		for i, elem := range v {
			enc, err := Encode(elem)
			if err != nil {
				return Value{}, fmt.Errorf("list index %d: %w", i, err)
			}
			list = append(list, enc)
		}
		return Value{Kind: KindList, List: list}, nil
	case map[string]any:
		fields := make(map[string]Value, len(v))
		for k, elem := range v {
			enc, err := Encode(elem)
			if err != nil {
				return Value{}, fmt.Errorf("field %q: %w", k, err)
			}
			fields[k] = enc
		}
		return Value{Kind: KindMap, Map: fields}, nil
	default:
		return Value{}, fmt.Errorf("%w: unsupported type %T", domain.ErrEncoding, v)
	}
}

// Decode is the inverse of Encode. Integers come back as int64, lists as
// []any, and maps as map[string]any.
func Decode(v Value) any {
	switch v.Kind {
	case KindNull:
		return nil
	case KindString:
		return v.Str
	case KindInteger:
		return v.Int
	case KindBoolean:
		return v.Bool
	case KindList:
		out := make([]any, 0, len(v.List))
		for _, elem := range v.List {
			out = append(out, Decode(elem))
		}
		return out
	case KindMap:
		out := make(map[string]any, len(v.Map))
		for k, elem := range v.Map {
			out[k] = Decode(elem)
		}
		return out
	default:
		return nil
	}
}

// wireValue is the JSON shape of a tagged value. Exactly one field is set.
// The store transmits 64-bit integers as decimal strings.
type wireValue struct {
	NullValue    *string    `json:"nullValue,omitempty"`
	StringValue  *string    `json:"stringValue,omitempty"`
	IntegerValue *string    `json:"integerValue,omitempty"`
	BooleanValue *bool      `json:"booleanValue,omitempty"`
	ArrayValue   *wireArray `json:"arrayValue,omitempty"`
	MapValue     *wireMap   `json:"mapValue,omitempty"`
}

type wireArray struct {
	Values []Value `json:"values,omitempty"`
}

type wireMap struct {
	Fields map[string]Value `json:"fields,omitempty"`
}

// nullValueEnum is the sentinel the wire format uses for the null tag.
const nullValueEnum = "NULL_VALUE"

// MarshalJSON renders the tagged JSON form of the value.
func (v Value) MarshalJSON() ([]byte, error) {
	var w wireValue
	switch v.Kind {
	case KindNull:
		s := nullValueEnum
		w.NullValue = &s
	case KindString:
		w.StringValue = &v.Str
	case KindInteger:
		s := strconv.FormatInt(v.Int, 10)
		w.IntegerValue = &s
	case KindBoolean:
		w.BooleanValue = &v.Bool
	case KindList:
		w.ArrayValue = &wireArray{Values: v.List}
	case KindMap:
		w.MapValue = &wireMap{Fields: v.Map}
	default:
		return nil, fmt.Errorf("%w: unknown value kind %d", domain.ErrEncoding, v.Kind)
	}
	return json.Marshal(w)
}

// UnmarshalJSON selects the variant by which tag is present. A value with no
// recognized tag decodes to the explicit null variant; the store may grow
// tags this codec does not speak (timestamps, doubles, references) and a
// read must not fail on them.
func (v *Value) UnmarshalJSON(data []byte) error {
	var w wireValue
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	switch {
	case w.StringValue != nil:
		*v = Value{Kind: KindString, Str: *w.StringValue}
	case w.IntegerValue != nil:
		n, err := strconv.ParseInt(*w.IntegerValue, 10, 64)
		if err != nil {
			return fmt.Errorf("parse integerValue %q: %w", *w.IntegerValue, err)
		}
		*v = Value{Kind: KindInteger, Int: n}
	case w.BooleanValue != nil:
		*v = Value{Kind: KindBoolean, Bool: *w.BooleanValue}
	case w.ArrayValue != nil:
		*v = Value{Kind: KindList, List: w.ArrayValue.Values}
	case w.MapValue != nil:
		*v = Value{Kind: KindMap, Map: w.MapValue.Fields}
	default:
		*v = Value{Kind: KindNull}
	}
	return nil
}

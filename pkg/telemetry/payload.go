package telemetry

import (
	"fmt"
	"sort"

	"github.com/golang/protobuf/proto"
	structpb "github.com/golang/protobuf/ptypes/struct"
)

// Fields is a decoded payload. Values are nil, bool, float64, string,
// []interface{} or Fields.
type Fields map[string]interface{}

// Keys returns the field names in order.
func (f Fields) Keys() []string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Encode serializes fields as a google.protobuf.Struct.
func Encode(fields Fields) ([]byte, error) {
	s, err := toStruct(fields)
	if err != nil {
		return nil, err
	}
	return proto.Marshal(s)
}

// Decode parses a google.protobuf.Struct payload.
func Decode(payload []byte) (Fields, error) {
	var s structpb.Struct
	if err := proto.Unmarshal(payload, &s); err != nil {
		return nil, err
	}
	return fromStruct(&s), nil
}

func toStruct(fields Fields) (*structpb.Struct, error) {
	s := &structpb.Struct{Fields: make(map[string]*structpb.Value, len(fields))}
	for k, v := range fields {
		val, err := toValue(v)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", k, err)
		}
		s.Fields[k] = val
	}
	return s, nil
}

func toValue(v interface{}) (*structpb.Value, error) {
	switch v := v.(type) {
	case nil:
		return &structpb.Value{Kind: &structpb.Value_NullValue{}}, nil
	case bool:
		return &structpb.Value{Kind: &structpb.Value_BoolValue{BoolValue: v}}, nil
	case string:
		return &structpb.Value{Kind: &structpb.Value_StringValue{StringValue: v}}, nil
	case float64:
		return number(v), nil
	case float32:
		return number(float64(v)), nil
	case int:
		return number(float64(v)), nil
	case int16:
		return number(float64(v)), nil
	case int64:
		return number(float64(v)), nil
	case uint32:
		return number(float64(v)), nil
	case uint64:
		return number(float64(v)), nil
	case Fields:
		s, err := toStruct(v)
		if err != nil {
			return nil, err
		}
		return &structpb.Value{Kind: &structpb.Value_StructValue{StructValue: s}}, nil
	case map[string]interface{}:
		return toValue(Fields(v))
	case []interface{}:
		lst := &structpb.ListValue{Values: make([]*structpb.Value, 0, len(v))}
		for _, item := range v {
			val, err := toValue(item)
			if err != nil {
				return nil, err
			}
			lst.Values = append(lst.Values, val)
		}
		return &structpb.Value{Kind: &structpb.Value_ListValue{ListValue: lst}}, nil
	}
	return nil, fmt.Errorf("unsupported value type %T", v)
}

func number(v float64) *structpb.Value {
	return &structpb.Value{Kind: &structpb.Value_NumberValue{NumberValue: v}}
}

func fromStruct(s *structpb.Struct) Fields {
	fields := make(Fields, len(s.GetFields()))
	for k, v := range s.GetFields() {
		fields[k] = fromValue(v)
	}
	return fields
}

func fromValue(v *structpb.Value) interface{} {
	switch k := v.GetKind().(type) {
	case *structpb.Value_BoolValue:
		return k.BoolValue
	case *structpb.Value_StringValue:
		return k.StringValue
	case *structpb.Value_NumberValue:
		return k.NumberValue
	case *structpb.Value_StructValue:
		return fromStruct(k.StructValue)
	case *structpb.Value_ListValue:
		items := make([]interface{}, 0, len(k.ListValue.GetValues()))
		for _, item := range k.ListValue.GetValues() {
			items = append(items, fromValue(item))
		}
		return items
	}
	return nil
}

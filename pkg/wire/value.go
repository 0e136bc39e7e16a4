// Package wire holds the hand-authored Go representation of the ST2138
// wire schema: Value variants, Param/ParamInfo descriptions, the
// DeviceComponent oneof, and the request/response payloads named in the
// specification's external-interfaces section. The codec that serializes
// these to/from bytes on the two transport bindings is JSON — the schema
// itself is the stable contract, not a particular wire encoding.
package wire

// ValueKind discriminates the Value oneof.
type ValueKind int

const (
	ValueUnset ValueKind = iota
	ValueString
	ValueInt32
	ValueFloat32
	ValueBool
	ValueStringArray
	ValueInt32Array
	ValueFloat32Array
	ValueStruct
)

// Value is a tagged union over the scalar and array variants the protocol
// supports. Only the field matching Kind is meaningful.
type Value struct {
	Kind        ValueKind         `json:"kind"`
	StringValue string            `json:"string_value,omitempty"`
	Int32Value  int32             `json:"int32_value,omitempty"`
	Float32Val  float32           `json:"float32_value,omitempty"`
	BoolValue   bool              `json:"bool_value,omitempty"`
	StringArray []string          `json:"string_array,omitempty"`
	Int32Array  []int32           `json:"int32_array,omitempty"`
	Float32Arr  []float32         `json:"float32_array,omitempty"`
	StructValue map[string]*Value `json:"struct_value,omitempty"`
}

func StringVal(s string) *Value   { return &Value{Kind: ValueString, StringValue: s} }
func Int32Val(i int32) *Value     { return &Value{Kind: ValueInt32, Int32Value: i} }
func Float32Val(f float32) *Value { return &Value{Kind: ValueFloat32, Float32Val: f} }
func BoolVal(b bool) *Value       { return &Value{Kind: ValueBool, BoolValue: b} }

// IsArray reports whether the value carries one of the array variants.
func (v *Value) IsArray() bool {
	switch v.Kind {
	case ValueStringArray, ValueInt32Array, ValueFloat32Array:
		return true
	default:
		return false
	}
}

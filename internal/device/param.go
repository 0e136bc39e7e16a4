package device

import (
	"github.com/stepherg/catenago/internal/authz"
	"github.com/stepherg/catenago/internal/status"
	"github.com/stepherg/catenago/pkg/wire"
)

// CommandFunc implements a command parameter's body: given the invoking
// value, it returns the batch of responses the command produces.
type CommandFunc func(v *wire.Value) ([]*wire.CommandResponse, error)

// Param is the reference IParam implementation: a scalar, array, struct, or
// command node in the device's parameter tree.
type Param struct {
	oid        string
	typ        wire.ParamType
	descriptor *Descriptor
	value      *wire.Value
	elements   []*Param
	children   map[string]*Param
	commandFn  CommandFunc
}

// NewScalar constructs a scalar parameter.
func NewScalar(oid string, d *Descriptor, v *wire.Value) *Param {
	return &Param{oid: oid, typ: wire.ParamScalar, descriptor: d, value: v, children: map[string]*Param{}}
}

// NewArray constructs an array parameter from its elements (each itself a
// Param, typically scalar, so it can carry its own sub-parameters).
func NewArray(oid string, d *Descriptor, elements []*Param) *Param {
	return &Param{oid: oid, typ: wire.ParamArray, descriptor: d, elements: elements, children: map[string]*Param{}}
}

// NewStruct constructs a structured parameter with named children.
func NewStruct(oid string, d *Descriptor, children map[string]*Param) *Param {
	if children == nil {
		children = map[string]*Param{}
	}
	return &Param{oid: oid, typ: wire.ParamStruct, descriptor: d, children: children}
}

// NewCommand constructs a command parameter.
func NewCommand(oid string, d *Descriptor, fn CommandFunc) *Param {
	return &Param{oid: oid, typ: wire.ParamCommand, descriptor: d, commandFn: fn, children: map[string]*Param{}}
}

// WithChild attaches a named sub-parameter (for scalars/structs/array
// elements that expose further sub-parameters) and returns the receiver for
// chaining at construction time.
func (p *Param) WithChild(name string, child *Param) *Param {
	p.children[name] = child
	return p
}

func (p *Param) Oid() string                   { return p.oid }
func (p *Param) Type() wire.ParamType          { return p.typ }
func (p *Param) Scope() string                 { return p.descriptor.Scope() }
func (p *Param) IsReadOnly() bool              { return p.descriptor.IsReadOnly() }
func (p *Param) IsArrayType() bool             { return p.typ == wire.ParamArray }
func (p *Param) Size() int                     { return len(p.elements) }
func (p *Param) Descriptor() IParamDescriptor  { return p.descriptor }

// Child looks up a named sub-parameter, used by the param visitor (C5).
func (p *Param) Child(name string) (*Param, bool) {
	c, ok := p.children[name]
	return c, ok
}

// Element returns the array element at idx, used by the param visitor and
// path resolution.
func (p *Param) Element(idx int) (*Param, bool) {
	if idx < 0 || idx >= len(p.elements) {
		return nil, false
	}
	return p.elements[idx], true
}

func (p *Param) ToValue(a *authz.Authorizer) (*wire.Value, error) {
	if !a.ReadAuthz(p, "") {
		return nil, status.New("permission denied for "+p.oid, status.PERMISSION_DENIED)
	}
	if p.typ == wire.ParamArray {
		return p.arrayValue(), nil
	}
	if p.value == nil {
		return &wire.Value{}, nil
	}
	return p.value, nil
}

func (p *Param) arrayValue() *wire.Value {
	if len(p.elements) == 0 {
		return &wire.Value{Kind: wire.ValueStringArray}
	}
	switch p.elements[0].value.Kind {
	case wire.ValueInt32:
		out := make([]int32, len(p.elements))
		for i, e := range p.elements {
			if e.value != nil {
				out[i] = e.value.Int32Value
			}
		}
		return &wire.Value{Kind: wire.ValueInt32Array, Int32Array: out}
	case wire.ValueFloat32:
		out := make([]float32, len(p.elements))
		for i, e := range p.elements {
			if e.value != nil {
				out[i] = e.value.Float32Val
			}
		}
		return &wire.Value{Kind: wire.ValueFloat32Array, Float32Arr: out}
	default:
		out := make([]string, len(p.elements))
		for i, e := range p.elements {
			if e.value != nil {
				out[i] = e.value.StringValue
			}
		}
		return &wire.Value{Kind: wire.ValueStringArray, StringArray: out}
	}
}

func (p *Param) ToProto(a *authz.Authorizer) (*wire.Param, error) {
	v, err := p.ToValue(a)
	if err != nil {
		return nil, err
	}
	return &wire.Param{
		Oid:         p.oid,
		Type:        p.typ,
		Value:       v,
		ArrayLength: int32(len(p.elements)),
		Descriptor: &wire.ParamDescriptor{
			Scope:      p.descriptor.Scope(),
			ReadOnly:   p.descriptor.IsReadOnly(),
			MinimalSet: p.descriptor.MinimalSet(),
			IsCommand:  p.descriptor.IsCommand(),
			SubParams:  p.descriptor.AllSubParams(),
		},
	}, nil
}

func (p *Param) SetValue(v *wire.Value, a *authz.Authorizer) error {
	if !a.WriteAuthz(p, "") {
		return status.New("permission denied for "+p.oid, status.PERMISSION_DENIED)
	}
	if p.typ == wire.ParamArray {
		return status.New("cannot set an array parameter directly; address an element", status.INVALID_ARGUMENT)
	}
	p.value = v
	return nil
}

func (p *Param) ExecuteCommand(v *wire.Value, respond bool, a *authz.Authorizer) (CommandResponder, error) {
	if p.typ != wire.ParamCommand || p.commandFn == nil {
		return nil, status.New(p.oid+" is not a command", status.INVALID_ARGUMENT)
	}
	if !a.WriteAuthz(p, "") {
		return nil, status.New("permission denied for "+p.oid, status.PERMISSION_DENIED)
	}
	responses, err := p.commandFn(v)
	if err != nil {
		return &sliceResponder{responses: []*wire.CommandResponse{{Kind: wire.CommandResponseException, Exception: err.Error()}}}, nil
	}
	return &sliceResponder{responses: responses}, nil
}

// sliceResponder is the reference CommandResponder: a precomputed batch of
// responses drained in order.
type sliceResponder struct {
	responses []*wire.CommandResponse
	pos       int
}

func (s *sliceResponder) HasMore() bool { return s.pos < len(s.responses) }

func (s *sliceResponder) GetNext() (*wire.CommandResponse, error) {
	if !s.HasMore() {
		return nil, status.New("no more command responses", status.OUT_OF_RANGE)
	}
	r := s.responses[s.pos]
	s.pos++
	return r, nil
}

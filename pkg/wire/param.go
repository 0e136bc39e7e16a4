package wire

// ParamType discriminates the shape of a parameter.
type ParamType int

const (
	ParamScalar ParamType = iota
	ParamArray
	ParamCommand
	ParamStruct
)

// DetailLevel is the client-selected filter on what device components are
// streamed or pushed.
type DetailLevel int

const (
	DetailUnset DetailLevel = iota
	DetailNone
	DetailMinimal
	DetailSubscriptions
	DetailCommands
	DetailFull
)

// ParamDescriptor is the static, shared description of a parameter: its
// scope, read-only flag, minimal-set membership, and (for commands) whether
// it is invocable.
type ParamDescriptor struct {
	Scope       string   `json:"scope,omitempty"`
	ReadOnly    bool     `json:"read_only,omitempty"`
	MinimalSet  bool     `json:"minimal_set,omitempty"`
	IsCommand   bool     `json:"is_command,omitempty"`
	SubParams   []string `json:"sub_params,omitempty"`
	Description string   `json:"description,omitempty"`
}

// Param is the wire representation of a parameter's current value plus its
// descriptor metadata, as returned by GetParam and carried inside the
// DeviceComponents streamed by DeviceRequest/UpdateSubscriptions.
type Param struct {
	Oid         string           `json:"oid"`
	Type        ParamType        `json:"type"`
	Value       *Value           `json:"value,omitempty"`
	Descriptor  *ParamDescriptor `json:"descriptor,omitempty"`
	ArrayLength int32            `json:"array_length,omitempty"`
}

// ParamInfoResponse is one element of the ParamInfoRequest stream.
type ParamInfoResponse struct {
	Oid         string    `json:"oid"`
	Type        ParamType `json:"type"`
	ArrayLength int32     `json:"array_length,omitempty"`
}

// LanguagePack names a supported client-facing language and its word list.
type LanguagePack struct {
	LanguageId string            `json:"language_id"`
	Words      map[string]string `json:"words,omitempty"`
}

// LanguageList enumerates the languages a device currently supports.
type LanguageList struct {
	LanguageIds []string `json:"language_ids"`
}

// SlotList enumerates the currently populated device slots.
type SlotList struct {
	Slots []uint32 `json:"slots"`
}

// Empty is the payload for RPCs with no meaningful response body.
type Empty struct{}

// DeviceComponentKind discriminates the DeviceComponent oneof.
type DeviceComponentKind int

const (
	ComponentDevice DeviceComponentKind = iota
	ComponentMenu
	ComponentLanguagePack
	ComponentSharedConstraint
	ComponentParam
	ComponentCommand
)

// DeviceComponent is the oneof streamed by DeviceRequest and
// UpdateSubscriptions: {device, menu, language_pack, shared_constraint,
// param, command}. Only the field matching Kind is populated.
type DeviceComponent struct {
	Kind         DeviceComponentKind `json:"kind"`
	Param        *NamedParam         `json:"param,omitempty"`
	LanguagePack *LanguagePack       `json:"language_pack,omitempty"`
}

// NamedParam pairs an OID with its Param description, the shape
// DeviceComponent.param actually carries on the wire.
type NamedParam struct {
	Oid   string `json:"oid"`
	Param *Param `json:"param"`
}

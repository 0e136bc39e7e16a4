package wire

// SingleSetValuePayload is SetValue's request body; it is wrapped into a
// one-element MultiSetValuePayload and delegated to MultiSetValue.
type SingleSetValuePayload struct {
	Oid   string `json:"oid"`
	Value *Value `json:"value"`
}

// SetValuePayload is one element of a MultiSetValuePayload.
type SetValuePayload struct {
	Oid   string `json:"oid"`
	Value *Value `json:"value"`
}

// MultiSetValuePayload is MultiSetValue's request body: a batch of OID/value
// pairs applied atomically.
type MultiSetValuePayload struct {
	Values []SetValuePayload `json:"values"`
}

// ExecuteCommandPayload is ExecuteCommand's request body.
type ExecuteCommandPayload struct {
	Oid     string `json:"oid"`
	Value   *Value `json:"value,omitempty"`
	Respond bool   `json:"respond"`
	Proceed bool   `json:"proceed"`
}

// CommandResponseKind discriminates the CommandResponse oneof.
type CommandResponseKind int

const (
	CommandResponseValue CommandResponseKind = iota
	CommandResponseNone
	CommandResponseException
)

// CommandResponse is one element of ExecuteCommand's response stream:
// {response, no_response, exception}.
type CommandResponse struct {
	Kind      CommandResponseKind `json:"kind"`
	Response  *Value              `json:"response,omitempty"`
	Exception string              `json:"exception,omitempty"`
}

// AddLanguagePayload is AddLanguage's request body.
type AddLanguagePayload struct {
	LanguageId   string        `json:"language_id"`
	LanguagePack *LanguagePack `json:"language_pack"`
}

// UpdateSubscriptionsPayload is UpdateSubscriptions' request body.
type UpdateSubscriptionsPayload struct {
	AddedOids   []string `json:"added_oids,omitempty"`
	RemovedOids []string `json:"removed_oids,omitempty"`
}

// DeviceRequestPayload is DeviceRequest's request body.
type DeviceRequestPayload struct {
	Slot           uint32      `json:"slot"`
	DetailLevel    DetailLevel `json:"detail_level"`
	SubscribedOids []string    `json:"subscribed_oids,omitempty"`
}

// ParamInfoRequestPayload is ParamInfoRequest's request body.
type ParamInfoRequestPayload struct {
	Slot      uint32 `json:"slot"`
	OidPrefix string `json:"oid_prefix,omitempty"`
	Recursive bool   `json:"recursive"`
}

// ConnectPayload is Connect's request body.
type ConnectPayload struct {
	Language        string      `json:"language,omitempty"`
	DetailLevel     DetailLevel `json:"detail_level"`
	UserAgent       string      `json:"user_agent,omitempty"`
	ForceConnection bool        `json:"force_connection"`
}

// PushUpdateKind discriminates the PushUpdates oneof.
type PushUpdateKind int

const (
	PushSlotsAdded PushUpdateKind = iota
	PushParamValueChanged
	PushDeviceComponentChanged
)

// PushUpdates is the stream element emitted on Connect: a tagged union of
// {slot-list-added, parameter-value-changed, device-component-changed}.
type PushUpdates struct {
	Kind            PushUpdateKind   `json:"kind"`
	SlotsAdded      *SlotList        `json:"slots_added,omitempty"`
	Slot            uint32           `json:"slot,omitempty"`
	Oid             string           `json:"oid,omitempty"`
	Value           *Value           `json:"value,omitempty"`
	DeviceComponent *DeviceComponent `json:"device_component,omitempty"`
}

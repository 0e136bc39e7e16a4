// Package device declares the narrow external interfaces the RPC and
// Connect layers program against (IDevice, IParam, IParamDescriptor,
// ILanguagePack) and ships a reference in-memory device implementing them,
// used by tests and the demo CLI. The concrete device/parameter data model
// is explicitly out of scope for the core per the specification — this
// package is the seam, not the product.
package device

import (
	"sync"

	"github.com/stepherg/catenago/internal/authz"
	"github.com/stepherg/catenago/internal/events"
	"github.com/stepherg/catenago/pkg/wire"
)

// IParamDescriptor is the static, shared description of a parameter.
type IParamDescriptor interface {
	Scope() string
	IsReadOnly() bool
	MinimalSet() bool
	IsCommand() bool
	AllSubParams() []string
}

// IParam is a single parameter: a value plus its descriptor and conversion
// methods to the wire schema, gated by an Authorizer.
type IParam interface {
	Oid() string
	Type() wire.ParamType
	Scope() string
	IsReadOnly() bool
	IsArrayType() bool
	Size() int
	Descriptor() IParamDescriptor
	ToValue(a *authz.Authorizer) (*wire.Value, error)
	ToProto(a *authz.Authorizer) (*wire.Param, error)
	SetValue(v *wire.Value, a *authz.Authorizer) error

	// ExecuteCommand invokes a command-type parameter, returning a
	// responder that streams zero or more CommandResponse messages. It is
	// an error to call this on a non-command parameter.
	ExecuteCommand(v *wire.Value, respond bool, a *authz.Authorizer) (CommandResponder, error)
}

// CommandResponder is the iterator-like object a command execution returns;
// ExecuteCommand's handler drains it regardless of respond, since the
// command body may have side effects even when the client asked not to be
// sent the results.
type CommandResponder interface {
	HasMore() bool
	GetNext() (*wire.CommandResponse, error)
}

// ComponentSerializer is the iterator-like object a device produces to
// stream DeviceComponent messages for DeviceRequest.
type ComponentSerializer interface {
	HasMore() bool
	GetNext() (*wire.DeviceComponent, error)
}

// IDevice is the external device collaborator: parameter lookup, command
// lookup, value get/set (single and multi, two-phase), language pack
// management, device-wide serialization, and the three signals the Connect
// dispatcher binds to.
type IDevice interface {
	DetailLevel() wire.DetailLevel
	DefaultScope() string
	MaxSubscriptions() uint32

	GetParam(oid string) (IParam, error)
	TopLevelParams() []IParam
	GetCommand(oid string) (IParam, error)

	GetValue(oid string, a *authz.Authorizer) (*wire.Value, error)
	TryMultiSetValue(values []wire.SetValuePayload, a *authz.Authorizer) error
	CommitMultiSetValue() ([]string, error)

	Languages() *wire.LanguageList
	AddLanguage(payload *wire.AddLanguagePayload, a *authz.Authorizer) error

	GetComponentSerializer(a *authz.Authorizer, oids []string, dl wire.DetailLevel, shallow bool) (ComponentSerializer, error)

	SubscriptionsEnabled() bool

	// Mutex guards all device-state access; handlers acquire it per
	// operation and never hold it across blocking transport I/O.
	Mutex() *sync.Mutex

	ValueSetByClient() *events.Bus[events.ValueChanged]
	ValueSetByServer() *events.Bus[events.ValueChanged]
	LanguageAddedPushUpdate() *events.Bus[events.LanguageAdded]
}

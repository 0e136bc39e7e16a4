package device

import (
	"sync"

	"github.com/stepherg/catenago/internal/authz"
	"github.com/stepherg/catenago/internal/events"
	"github.com/stepherg/catenago/internal/path"
	"github.com/stepherg/catenago/internal/status"
	"github.com/stepherg/catenago/pkg/wire"
)

// pendingSet is one element of an in-flight two-phase MultiSetValue: the
// target parameter and the value tryMultiSetValue validated against it.
type pendingSet struct {
	param *Param
	value *wire.Value
}

// Device is the reference in-memory IDevice implementation used by tests
// and the demo CLI. Real deployments supply their own IDevice; this one
// exists because the concrete data model is an external collaborator the
// core never constructs itself.
type Device struct {
	mu sync.Mutex

	detailLevel      wire.DetailLevel
	defaultScope     string
	maxSubscriptions uint32
	subsEnabled      bool

	topLevel map[string]*Param
	commands map[string]*Param

	languagePacks map[string]*wire.LanguagePack
	languageOrder []string

	valueSetByClient *events.Bus[events.ValueChanged]
	valueSetByServer *events.Bus[events.ValueChanged]
	languageAdded    *events.Bus[events.LanguageAdded]

	pending []pendingSet
}

// New constructs an empty reference device. Use AddParam/AddCommand to
// populate its tree before serving it.
func New(defaultScope string, maxSubscriptions uint32, subsEnabled bool) *Device {
	return &Device{
		defaultScope:     defaultScope,
		maxSubscriptions: maxSubscriptions,
		subsEnabled:      subsEnabled,
		topLevel:         map[string]*Param{},
		commands:         map[string]*Param{},
		languagePacks:    map[string]*wire.LanguagePack{},
		valueSetByClient: events.NewBus[events.ValueChanged](),
		valueSetByServer: events.NewBus[events.ValueChanged](),
		languageAdded:    events.NewBus[events.LanguageAdded](),
	}
}

// AddParam registers a top-level parameter, keyed by its first OID segment.
func (d *Device) AddParam(name string, p *Param) { d.topLevel[name] = p }

// AddCommand registers a top-level command parameter.
func (d *Device) AddCommand(name string, p *Param) { d.commands[name] = p }

func (d *Device) DetailLevel() wire.DetailLevel   { return d.detailLevel }
func (d *Device) SetDetailLevel(dl wire.DetailLevel) { d.detailLevel = dl }
func (d *Device) DefaultScope() string            { return d.defaultScope }
func (d *Device) MaxSubscriptions() uint32        { return d.maxSubscriptions }
func (d *Device) SubscriptionsEnabled() bool      { return d.subsEnabled }
func (d *Device) Mutex() *sync.Mutex              { return &d.mu }

func (d *Device) ValueSetByClient() *events.Bus[events.ValueChanged]     { return d.valueSetByClient }
func (d *Device) ValueSetByServer() *events.Bus[events.ValueChanged]     { return d.valueSetByServer }
func (d *Device) LanguageAddedPushUpdate() *events.Bus[events.LanguageAdded] {
	return d.languageAdded
}

func (d *Device) TopLevelParams() []IParam {
	out := make([]IParam, 0, len(d.topLevel))
	for _, p := range d.topLevel {
		out = append(out, p)
	}
	return out
}

// oidNotExist is the device's own contract for a missing OID: the original
// implementation reports this as INVALID_ARGUMENT, not NOT_FOUND, and every
// caller (GetValue, GetParam, SetValue, ...) propagates it unchanged.
func oidNotExist() error {
	return status.New("Oid does not exist", status.INVALID_ARGUMENT)
}

// resolve walks the parameter tree for a parsed path, starting from the
// given top-level table.
func resolve(top map[string]*Param, p *path.Path) (*Param, error) {
	if !p.FrontIsString() {
		return nil, oidNotExist()
	}
	name := p.Pop().String()
	cur, ok := top[name]
	if !ok {
		return nil, oidNotExist()
	}
	for p.Size() > 0 {
		if p.FrontIsIndex() {
			idx := p.Pop().Index()
			if idx == path.End {
				return nil, oidNotExist()
			}
			el, ok := cur.Element(int(idx))
			if !ok {
				return nil, oidNotExist()
			}
			cur = el
		} else {
			name := p.Pop().String()
			child, ok := cur.Child(name)
			if !ok {
				return nil, oidNotExist()
			}
			cur = child
		}
	}
	return cur, nil
}

func (d *Device) GetParam(oid string) (IParam, error) {
	p, err := path.Parse(oid)
	if err != nil {
		return nil, err
	}
	param, err := resolve(d.topLevel, p)
	if err != nil {
		return nil, err
	}
	return param, nil
}

func (d *Device) GetCommand(oid string) (IParam, error) {
	p, err := path.Parse(oid)
	if err != nil {
		return nil, err
	}
	param, err := resolve(d.commands, p)
	if err != nil {
		return nil, err
	}
	if param.Type() != wire.ParamCommand {
		return nil, status.New(oid+" is not a command", status.INVALID_ARGUMENT)
	}
	return param, nil
}

func (d *Device) GetValue(oid string, a *authz.Authorizer) (*wire.Value, error) {
	param, err := d.GetParam(oid)
	if err != nil {
		return nil, err
	}
	return param.ToValue(a)
}

// TryMultiSetValue validates every (oid, value) pair under a — resolving
// the parameter, checking write authorization — without applying any of
// them. The first failure aborts the whole batch with its carried status.
func (d *Device) TryMultiSetValue(values []wire.SetValuePayload, a *authz.Authorizer) error {
	pending := make([]pendingSet, 0, len(values))
	for _, sv := range values {
		param, err := d.GetParam(sv.Oid)
		if err != nil {
			return err
		}
		p, ok := param.(*Param)
		if !ok {
			return status.New("internal parameter type mismatch", status.INTERNAL)
		}
		if !a.WriteAuthz(p, d.defaultScope) {
			return status.New("permission denied for "+sv.Oid, status.PERMISSION_DENIED)
		}
		if p.typ == wire.ParamArray {
			return status.New("cannot set an array parameter directly; address an element", status.INVALID_ARGUMENT)
		}
		pending = append(pending, pendingSet{param: p, value: sv.Value})
	}
	d.pending = pending
	return nil
}

// CommitMultiSetValue applies every pending set atomically (all-or-nothing)
// and emits valueSetByClient for each changed OID on success.
func (d *Device) CommitMultiSetValue() ([]string, error) {
	pending := d.pending
	d.pending = nil
	changed := make([]string, 0, len(pending))
	for _, ps := range pending {
		ps.param.value = ps.value
		changed = append(changed, ps.param.oid)
	}
	for _, oid := range changed {
		d.valueSetByClient.Publish(events.ValueChanged{Oid: oid})
	}
	return changed, nil
}

func (d *Device) Languages() *wire.LanguageList {
	ids := make([]string, len(d.languageOrder))
	copy(ids, d.languageOrder)
	return &wire.LanguageList{LanguageIds: ids}
}

func (d *Device) AddLanguage(payload *wire.AddLanguagePayload, a *authz.Authorizer) error {
	if !a.WriteAuthzScope(d.defaultScope) && !a.IsDisabled() {
		return status.New("permission denied for AddLanguage", status.PERMISSION_DENIED)
	}
	if _, exists := d.languagePacks[payload.LanguageId]; !exists {
		d.languageOrder = append(d.languageOrder, payload.LanguageId)
	}
	d.languagePacks[payload.LanguageId] = payload.LanguagePack
	d.languageAdded.Publish(events.LanguageAdded{LanguageId: payload.LanguageId})
	return nil
}

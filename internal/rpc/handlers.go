package rpc

import (
	"sort"

	"github.com/stepherg/catenago/internal/authz"
	"github.com/stepherg/catenago/internal/connect"
	"github.com/stepherg/catenago/internal/device"
	"github.com/stepherg/catenago/internal/paramvisitor"
	"github.com/stepherg/catenago/internal/status"
	"github.com/stepherg/catenago/pkg/wire"
)

// GetPopulatedSlots enumerates dms keys in ascending order; it needs no
// slot of its own so it only runs C7 step 1 (authorize).
func (s *Service) GetPopulatedSlots(bearerToken string) (*wire.SlotList, error) {
	s.Registry.Enter(KindGetPopulatedSlots)
	if _, err := s.authorize(bearerToken); err != nil {
		return nil, err
	}
	slots := s.Slots.PopulatedSlots()
	sort.Slice(slots, func(i, j int) bool { return slots[i] < slots[j] })
	return &wire.SlotList{Slots: slots}, nil
}

// GetValue implements `dev.getValue(oid, &value, authz)`.
func (s *Service) GetValue(bearerToken string, slot uint32, oid string) (*wire.Value, error) {
	dev, a, unlock, err := s.gate(KindGetValue, bearerToken, slot)
	if err != nil {
		return nil, err
	}
	defer unlock()

	v, err := dev.GetValue(oid, a)
	if err != nil {
		return nil, mapError(err)
	}
	return v, nil
}

// GetParam resolves oid and serializes it to the wire Param form.
func (s *Service) GetParam(bearerToken string, slot uint32, oid string) (*wire.NamedParam, error) {
	dev, a, unlock, err := s.gate(KindGetParam, bearerToken, slot)
	if err != nil {
		return nil, err
	}
	defer unlock()

	p, err := dev.GetParam(oid)
	if err != nil {
		return nil, mapError(err)
	}
	proto, err := p.ToProto(a)
	if err != nil {
		return nil, mapError(err)
	}
	return &wire.NamedParam{Oid: oid, Param: proto}, nil
}

// SetValue wraps its single oid/value pair into a one-element
// MultiSetValuePayload and delegates, per §4.8.
func (s *Service) SetValue(bearerToken string, slot uint32, payload wire.SingleSetValuePayload) error {
	return s.MultiSetValue(bearerToken, slot, wire.MultiSetValuePayload{
		Values: []wire.SetValuePayload{{Oid: payload.Oid, Value: payload.Value}},
	})
}

// MultiSetValue validates the whole batch under authz (tryMultiSetValue)
// before applying it atomically (commitMultiSetValue); a validation
// failure leaves device state untouched and no valueSetByClient fires.
func (s *Service) MultiSetValue(bearerToken string, slot uint32, payload wire.MultiSetValuePayload) error {
	dev, a, unlock, err := s.gate(KindMultiSetValue, bearerToken, slot)
	if err != nil {
		return err
	}
	defer unlock()

	if err := dev.TryMultiSetValue(payload.Values, a); err != nil {
		return mapError(err)
	}
	if _, err := dev.CommitMultiSetValue(); err != nil {
		return mapError(err)
	}
	return nil
}

// DeviceRequest streams the device's components filtered by detail level.
// When the detail level is SUBSCRIPTIONS, subscribedOids are added to the
// device's subscription manager first; a per-OID failure aborts with its
// carried status before any component is emitted.
func (s *Service) DeviceRequest(bearerToken string, req wire.DeviceRequestPayload, emit func(*wire.DeviceComponent) error) error {
	dev, a, unlock, err := s.gate(KindDeviceRequest, bearerToken, req.Slot)
	if err != nil {
		return err
	}
	defer unlock()

	if req.DetailLevel == wire.DetailSubscriptions {
		if mgr, ok := s.Subscriptions.Manager(req.Slot); ok {
			for _, oid := range req.SubscribedOids {
				if err := mgr.AddSubscription(oid, dev, a); err != nil {
					return mapError(err)
				}
			}
		}
	}

	ser, err := dev.GetComponentSerializer(a, req.SubscribedOids, req.DetailLevel, true)
	if err != nil {
		return mapError(err)
	}
	if ser == nil {
		return status.New("Illegal state", status.INTERNAL)
	}

	for ser.HasMore() {
		c, err := ser.GetNext()
		if err != nil {
			return mapError(err)
		}
		if err := emit(c); err != nil {
			return err
		}
	}
	return nil
}

// ExecuteCommand invokes a command parameter and streams its responses.
// When Respond is false, the responder is still drained in full (the
// command body may carry side effects) but nothing is written to emit.
func (s *Service) ExecuteCommand(bearerToken string, slot uint32, payload wire.ExecuteCommandPayload, emit func(*wire.CommandResponse) error) error {
	dev, a, unlock, err := s.gate(KindExecuteCommand, bearerToken, slot)
	if err != nil {
		return err
	}
	defer unlock()

	param, err := dev.GetCommand(payload.Oid)
	if err != nil {
		return mapError(err)
	}
	responder, err := param.ExecuteCommand(payload.Value, payload.Respond, a)
	if err != nil {
		return mapError(err)
	}
	for responder.HasMore() {
		r, err := responder.GetNext()
		if err != nil {
			return mapError(err)
		}
		if !payload.Respond {
			continue
		}
		if err := emit(r); err != nil {
			return err
		}
	}
	return nil
}

// AddLanguage writes a language pack; the device emits
// languageAddedPushUpdate on success.
func (s *Service) AddLanguage(bearerToken string, slot uint32, payload wire.AddLanguagePayload) error {
	dev, a, unlock, err := s.gate(KindAddLanguage, bearerToken, slot)
	if err != nil {
		return err
	}
	defer unlock()

	return mapError(dev.AddLanguage(&payload, a))
}

// ListLanguages returns the device's currently supported language ids.
func (s *Service) ListLanguages(bearerToken string, slot uint32) (*wire.LanguageList, error) {
	dev, _, unlock, err := s.gate(KindListLanguages, bearerToken, slot)
	if err != nil {
		return nil, err
	}
	defer unlock()

	return dev.Languages(), nil
}

// paramInfoVisitor adapts paramvisitor.Visitor to stream ParamInfoResponse
// messages; it stops visiting further nodes once emit first fails.
type paramInfoVisitor struct {
	emit func(*wire.ParamInfoResponse) error
	err  error
}

func (v *paramInfoVisitor) Visit(p device.IParam, oid string) {
	if v.err != nil {
		return
	}
	v.err = v.emit(&wire.ParamInfoResponse{Oid: oid, Type: p.Type(), ArrayLength: int32(p.Size())})
}

func (v *paramInfoVisitor) VisitArray(device.IParam, string, uint32) {}

// ParamInfoRequest implements the three lookup modes in §4.8: an empty
// prefix enumerates top-level parameters (and, if recursive, their full
// descendant walk via C5); a set prefix resolves that one parameter and
// optionally its descendants.
func (s *Service) ParamInfoRequest(bearerToken string, req wire.ParamInfoRequestPayload, emit func(*wire.ParamInfoResponse) error) error {
	dev, a, unlock, err := s.gate(KindParamInfoRequest, bearerToken, req.Slot)
	if err != nil {
		return err
	}
	defer unlock()

	v := &paramInfoVisitor{emit: emit}

	if req.OidPrefix != "" {
		p, err := dev.GetParam(req.OidPrefix)
		if err != nil {
			return mapError(err)
		}
		if req.Recursive {
			paramvisitor.TraverseParams(p, req.OidPrefix, dev, v, a)
		} else {
			v.Visit(p, req.OidPrefix)
		}
		return v.err
	}

	top := dev.TopLevelParams()
	if len(top) == 0 {
		return status.New("No top-level parameters found", status.NOT_FOUND)
	}
	for _, p := range top {
		if req.Recursive {
			paramvisitor.TraverseParams(p, p.Oid(), dev, v, a)
		} else {
			v.Visit(p, p.Oid())
		}
		if v.err != nil {
			return v.err
		}
	}
	return nil
}

// ListSubscriptions returns the device's materialised subscription set
// (literals ∪ expanded roots) under the caller's authorizer, the read
// counterpart the REST Subscriptions controller adds alongside the bulk
// UpdateSubscriptions form.
func (s *Service) ListSubscriptions(bearerToken string, slot uint32) ([]string, error) {
	dev, a, unlock, err := s.gate(KindUpdateSubscriptions, bearerToken, slot)
	if err != nil {
		return nil, err
	}
	defer unlock()

	mgr, ok := s.Subscriptions.Manager(slot)
	if !ok {
		return nil, status.New("Subscriptions are not enabled for this device", status.FAILED_PRECONDITION)
	}
	return mgr.GetAllSubscribedOids(dev, a), nil
}

// UpdateSubscriptions processes removals then additions against the
// device's subscription manager, aborting on the first per-OID failure,
// then streams one Param component per now-subscribed added OID (lookup
// failures there are skipped silently).
func (s *Service) UpdateSubscriptions(bearerToken string, slot uint32, payload wire.UpdateSubscriptionsPayload, emit func(*wire.DeviceComponent) error) error {
	dev, a, unlock, err := s.gate(KindUpdateSubscriptions, bearerToken, slot)
	if err != nil {
		return err
	}
	defer unlock()

	if !dev.SubscriptionsEnabled() {
		return status.New("Subscriptions are not enabled for this device", status.FAILED_PRECONDITION)
	}
	mgr, ok := s.Subscriptions.Manager(slot)
	if !ok {
		return status.New("Subscriptions are not enabled for this device", status.FAILED_PRECONDITION)
	}

	for _, oid := range payload.RemovedOids {
		if err := mgr.RemoveSubscription(oid); err != nil {
			return mapError(err)
		}
	}
	for _, oid := range payload.AddedOids {
		if err := mgr.AddSubscription(oid, dev, a); err != nil {
			return mapError(err)
		}
	}

	for _, oid := range payload.AddedOids {
		p, err := dev.GetParam(oid)
		if err != nil {
			continue
		}
		proto, err := p.ToProto(a)
		if err != nil {
			continue
		}
		if err := emit(&wire.DeviceComponent{Kind: wire.ComponentParam, Param: &wire.NamedParam{Oid: oid, Param: proto}}); err != nil {
			return err
		}
	}
	return nil
}

// Connect opens a long-lived Connect session per §4.6; force_connection
// maps to a higher registration priority.
func (s *Service) Connect(bearerToken string, payload wire.ConnectPayload) (*connect.Session, error) {
	s.Registry.Enter(KindConnect)

	a, err := s.authorize(bearerToken)
	if err != nil {
		return nil, err
	}

	priority := 0
	if payload.ForceConnection {
		priority = 1
	}
	return connect.NewSession(s.Slots.(connect.SlotSource), subscriptionLookup{slots: s.Slots, subs: s.Subscriptions}, s.Queue, a, payload.DetailLevel, priority)
}

// subscriptionLookup adapts SubscriptionsBySlot to connect.SubscriptionLookup.
// Membership is checked under the disabled authorizer: real read
// authorization for the event itself is already enforced by the Connect
// session before this filter runs, so this lookup only needs to know
// whether oid is in the device's subscribed set, not who may read it.
type subscriptionLookup struct {
	slots SlotMap
	subs  SubscriptionsBySlot
}

func (l subscriptionLookup) IsSubscribed(slot uint32, oid string) bool {
	mgr, ok := l.subs.Manager(slot)
	if !ok {
		return false
	}
	dev, ok := l.slots.DeviceAt(slot)
	if !ok {
		return false
	}
	return mgr.IsSubscribed(oid, dev, authz.Disabled)
}

// Package connect implements the Connect streaming dispatcher: one
// long-lived server-to-client session multiplexing value-change and
// language-pack events across a gateway's populated device slots, filtered
// by detail level and gated by the client's authorizer.
package connect

import (
	"context"
	"sync"

	"github.com/stepherg/catenago/internal/authz"
	"github.com/stepherg/catenago/internal/device"
	"github.com/stepherg/catenago/internal/events"
	"github.com/stepherg/catenago/internal/status"
	"github.com/stepherg/catenago/pkg/wire"
)

// SlotSource is the gateway's populated-slot registry: the dms table the
// spec refers to throughout §4.8.
type SlotSource interface {
	PopulatedSlots() []uint32
	DeviceAt(slot uint32) (device.IDevice, bool)
}

// SubscriptionLookup answers whether an OID is currently subscribed for a
// given slot, used by the SUBSCRIPTIONS detail-level filter.
type SubscriptionLookup interface {
	IsSubscribed(slot uint32, oid string) bool
}

// pendingCap bounds the session's outbound buffer; a slow client drops
// overflow rather than blocking device signal emitters, matching the
// teacher's events.Bus drop-if-full discipline.
const pendingCap = 256

// Session is one Connect stream: registered with a ConnectionQueue,
// subscribed to every populated slot's three device signals, and drained
// by a single writer loop per the one-thread-of-control model in §4.6.2.
type Session struct {
	detail wire.DetailLevel
	authz  *authz.Authorizer
	slots  SlotSource
	subs   SubscriptionLookup
	queue  *ConnectionQueue

	mu        sync.Mutex
	cancelled bool
	cancelFns []func()

	pending chan *wire.PushUpdates
	evicted chan struct{}
}

// NewSession registers a new Connect session with queue at priority,
// subscribes to every currently populated slot, and emits the initial
// slots_added update. Registration failure surfaces RESOURCE_EXHAUSTED per
// §4.6 step 2.
func NewSession(slots SlotSource, subs SubscriptionLookup, queue *ConnectionQueue, a *authz.Authorizer, detail wire.DetailLevel, priority int) (*Session, error) {
	s := &Session{
		detail:  detail,
		authz:   a,
		slots:   slots,
		subs:    subs,
		queue:   queue,
		pending: make(chan *wire.PushUpdates, pendingCap),
		evicted: make(chan struct{}),
	}

	if !queue.Register(s, priority) {
		return nil, status.New("Too many connections to service", status.RESOURCE_EXHAUSTED)
	}

	populated := slots.PopulatedSlots()
	initial := make([]uint32, len(populated))
	copy(initial, populated)
	s.enqueue(&wire.PushUpdates{Kind: wire.PushSlotsAdded, SlotsAdded: &wire.SlotList{Slots: initial}})

	for _, slot := range populated {
		s.bindSlot(slot)
	}

	return s, nil
}

func (s *Session) bindSlot(slot uint32) {
	dev, ok := s.slots.DeviceAt(slot)
	if !ok {
		return
	}

	clientCh, cancelClient := dev.ValueSetByClient().Subscribe(pendingCap)
	serverCh, cancelServer := dev.ValueSetByServer().Subscribe(pendingCap)
	langCh, cancelLang := dev.LanguageAddedPushUpdate().Subscribe(pendingCap)

	s.mu.Lock()
	s.cancelFns = append(s.cancelFns, cancelClient, cancelServer, cancelLang)
	s.mu.Unlock()

	go s.pumpValueChanges(slot, dev, clientCh)
	go s.pumpValueChanges(slot, dev, serverCh)
	go s.pumpLanguageAdded(slot, dev, langCh)
}

func (s *Session) pumpValueChanges(slot uint32, dev device.IDevice, ch <-chan events.ValueChanged) {
	for e := range ch {
		s.onValueChanged(slot, dev, e)
	}
}

func (s *Session) pumpLanguageAdded(slot uint32, dev device.IDevice, ch <-chan events.LanguageAdded) {
	for e := range ch {
		s.onLanguageAdded(slot, dev, e)
	}
}

// onValueChanged applies the §4.6.1 detail-level filter and, if the event
// survives, enqueues a PushUpdate. Filter or read-authorization failure
// drops the event silently.
func (s *Session) onValueChanged(slot uint32, dev device.IDevice, e events.ValueChanged) {
	param, err := dev.GetParam(e.Oid)
	if err != nil {
		return
	}
	if !s.authz.ReadAuthz(param, dev.DefaultScope()) {
		return
	}
	if !s.passesDetailFilter(slot, param, e.Oid) {
		return
	}
	v, err := param.ToValue(s.authz)
	if err != nil {
		return
	}
	s.enqueue(&wire.PushUpdates{Kind: wire.PushParamValueChanged, Slot: slot, Oid: e.Oid, Value: v})
}

func (s *Session) passesDetailFilter(slot uint32, p device.IParam, oid string) bool {
	switch s.detail {
	case wire.DetailFull:
		return true
	case wire.DetailMinimal:
		return p.Descriptor().MinimalSet()
	case wire.DetailSubscriptions:
		return p.Descriptor().MinimalSet() || (s.subs != nil && s.subs.IsSubscribed(slot, oid))
	case wire.DetailCommands:
		return p.Descriptor().IsCommand()
	default: // DetailNone, DetailUnset
		return false
	}
}

// onLanguageAdded emits a language-pack PushUpdate iff the authorizer can
// read the device's default scope; the disabled sentinel always passes.
func (s *Session) onLanguageAdded(slot uint32, dev device.IDevice, e events.LanguageAdded) {
	if !s.authz.ReadAuthzScope(dev.DefaultScope()) {
		return
	}
	s.enqueue(&wire.PushUpdates{
		Kind: wire.PushDeviceComponentChanged,
		Slot: slot,
		DeviceComponent: &wire.DeviceComponent{
			Kind:         wire.ComponentLanguagePack,
			LanguagePack: &wire.LanguagePack{LanguageId: e.LanguageId},
		},
	})
}

func (s *Session) enqueue(u *wire.PushUpdates) {
	select {
	case s.pending <- u:
	default:
	}
}

// evict is called by the ConnectionQueue when a higher-priority session
// takes this one's slot; it is equivalent to server-initiated cancellation.
func (s *Session) evict() {
	s.mu.Lock()
	if s.cancelled {
		s.mu.Unlock()
		return
	}
	s.cancelled = true
	s.mu.Unlock()
	close(s.evicted)
}

// Run is the session's writer loop: it drains pending updates to send
// until the context is cancelled (transport disconnect or half-close),
// the session is evicted by the queue, or send itself fails. It always
// deregisters and disconnects from every device signal before returning.
func (s *Session) Run(ctx context.Context, send func(*wire.PushUpdates) error) error {
	defer s.teardown()

	for {
		select {
		case <-ctx.Done():
			return status.New("Cancelled on the server side", status.CANCELLED)
		case <-s.evicted:
			return status.New("Cancelled on the server side", status.CANCELLED)
		case u := <-s.pending:
			if err := send(u); err != nil {
				return err
			}
		}
	}
}

func (s *Session) teardown() {
	s.mu.Lock()
	s.cancelled = true
	fns := s.cancelFns
	s.cancelFns = nil
	s.mu.Unlock()

	for _, cancel := range fns {
		cancel()
	}
	s.queue.Deregister(s)
}

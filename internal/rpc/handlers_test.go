package rpc_test

import (
	"testing"

	"github.com/stepherg/catenago/internal/connect"
	"github.com/stepherg/catenago/internal/device"
	"github.com/stepherg/catenago/internal/rpc"
	"github.com/stepherg/catenago/internal/status"
	"github.com/stepherg/catenago/internal/subscription"
	"github.com/stepherg/catenago/pkg/wire"
)

// fakeSlots implements rpc.SlotMap over a fixed map, standing in for the
// gateway's dms registry.
type fakeSlots struct {
	devices map[uint32]*device.Device
}

func (f *fakeSlots) DeviceAt(slot uint32) (device.IDevice, bool) {
	d, ok := f.devices[slot]
	return d, ok
}

func (f *fakeSlots) PopulatedSlots() []uint32 {
	out := make([]uint32, 0, len(f.devices))
	for slot := range f.devices {
		out = append(out, slot)
	}
	return out
}

// fakeSubs implements rpc.SubscriptionsBySlot with one manager per slot.
type fakeSubs struct {
	managers map[uint32]*subscription.Manager
}

func (f *fakeSubs) Manager(slot uint32) (*subscription.Manager, bool) {
	m, ok := f.managers[slot]
	return m, ok
}

func newGainDevice(subsEnabled bool) *device.Device {
	d := device.New("monitor", 10, subsEnabled)
	desc := device.NewDescriptor("monitor", false, false, false)
	d.AddParam("gain", device.NewScalar("/gain", desc, wire.StringVal("0dB")))
	return d
}

func newService(slots map[uint32]*device.Device, authzEnabled bool) *rpc.Service {
	subs := &fakeSubs{managers: map[uint32]*subscription.Manager{}}
	for slot, d := range slots {
		subs.managers[slot] = subscription.New(d.MaxSubscriptions())
	}
	return rpc.NewService(&fakeSlots{devices: slots}, subs, connect.NewConnectionQueue(4), authzEnabled)
}

// TestGetValueHappyPath covers scenario S1.
func TestGetValueHappyPath(t *testing.T) {
	d := newGainDevice(true)
	svc := newService(map[uint32]*device.Device{0: d}, false)

	v, err := svc.GetValue("", 0, "/gain")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.StringValue != "0dB" {
		t.Fatalf("expected 0dB, got %+v", v)
	}
}

// TestGetValueMissingOid covers scenario S2.
func TestGetValueMissingOid(t *testing.T) {
	d := newGainDevice(true)
	svc := newService(map[uint32]*device.Device{0: d}, false)

	_, err := svc.GetValue("", 0, "/nope")
	var ews *status.ExceptionWithStatus
	if !status.As(err, &ews) || ews.Status != status.INVALID_ARGUMENT || ews.Msg != "Oid does not exist" {
		t.Fatalf("expected INVALID_ARGUMENT 'Oid does not exist', got %v", err)
	}
}

// TestSubscriptionLifecycle covers scenario S3.
func TestSubscriptionLifecycle(t *testing.T) {
	d := device.New("monitor", 10, true)
	desc := device.NewDescriptor("monitor", false, false, false)
	d.AddParam("a", device.NewScalar("/a", desc, wire.StringVal("va")))
	d.AddParam("b", device.NewScalar("/b", desc, wire.StringVal("vb")))
	svc := newService(map[uint32]*device.Device{0: d}, false)

	var emitted []*wire.DeviceComponent
	err := svc.UpdateSubscriptions("", 0, wire.UpdateSubscriptionsPayload{AddedOids: []string{"/a", "/b"}}, func(c *wire.DeviceComponent) error {
		emitted = append(emitted, c)
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(emitted) != 2 {
		t.Fatalf("expected 2 components, got %d", len(emitted))
	}

	v, err := svc.GetValue("", 0, "/a")
	if err != nil || v.StringValue != "va" {
		t.Fatalf("unexpected GetValue result: %v, %v", v, err)
	}

	emitted = nil
	err = svc.UpdateSubscriptions("", 0, wire.UpdateSubscriptionsPayload{RemovedOids: []string{"/a"}}, func(c *wire.DeviceComponent) error {
		emitted = append(emitted, c)
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(emitted) != 0 {
		t.Fatalf("expected 0 components on pure removal, got %d", len(emitted))
	}
}

// TestAuthzRejection covers scenario S6: a malformed bearer token aborts
// before any device call is made.
func TestAuthzRejection(t *testing.T) {
	d := newGainDevice(true)
	svc := newService(map[uint32]*device.Device{0: d}, true)

	_, err := svc.GetValue("Bearer not-a-token", 0, "/gain")
	var ews *status.ExceptionWithStatus
	if !status.As(err, &ews) || ews.Status != status.UNAUTHENTICATED || ews.Msg != "Invalid JWS Token" {
		t.Fatalf("expected UNAUTHENTICATED 'Invalid JWS Token', got %v", err)
	}
}

// TestMultiSetAtomicity covers invariant #9: a failing batch commits
// nothing and the device mutex-guarded state is untouched.
func TestMultiSetAtomicity(t *testing.T) {
	d := newGainDevice(true)
	svc := newService(map[uint32]*device.Device{0: d}, false)

	err := svc.MultiSetValue("", 0, wire.MultiSetValuePayload{Values: []wire.SetValuePayload{
		{Oid: "/gain", Value: wire.StringVal("5dB")},
		{Oid: "/missing", Value: wire.StringVal("x")},
	}})
	var ews *status.ExceptionWithStatus
	if !status.As(err, &ews) || ews.Status != status.INVALID_ARGUMENT {
		t.Fatalf("expected INVALID_ARGUMENT, got %v", err)
	}

	v, err := svc.GetValue("", 0, "/gain")
	if err != nil || v.StringValue != "0dB" {
		t.Fatalf("expected /gain unchanged at 0dB, got %v, %v", v, err)
	}
}

// TestHandlerRearm covers invariant #7: after entering PROCESS for a kind,
// that kind still reports at least one listening instance.
func TestHandlerRearm(t *testing.T) {
	d := newGainDevice(true)
	svc := newService(map[uint32]*device.Device{0: d}, false)

	if _, err := svc.GetValue("", 0, "/gain"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if svc.Registry.Listening(rpc.KindGetValue) < 1 {
		t.Fatal("expected at least one armed GetValue instance after PROCESS")
	}
}

// TestUnknownSlotNotFound covers the "slot not in dms" handler-template
// error from §4.7 step 2.
func TestUnknownSlotNotFound(t *testing.T) {
	svc := newService(map[uint32]*device.Device{}, false)
	_, err := svc.GetValue("", 7, "/gain")
	var ews *status.ExceptionWithStatus
	if !status.As(err, &ews) || ews.Status != status.NOT_FOUND {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
}

// TestUpdateSubscriptionsRequiresEnabled covers the FAILED_PRECONDITION
// branch when a device does not support subscriptions.
func TestUpdateSubscriptionsRequiresEnabled(t *testing.T) {
	d := newGainDevice(false)
	svc := newService(map[uint32]*device.Device{0: d}, false)

	err := svc.UpdateSubscriptions("", 0, wire.UpdateSubscriptionsPayload{AddedOids: []string{"/gain"}}, func(*wire.DeviceComponent) error { return nil })
	var ews *status.ExceptionWithStatus
	if !status.As(err, &ews) || ews.Status != status.FAILED_PRECONDITION {
		t.Fatalf("expected FAILED_PRECONDITION, got %v", err)
	}
}

package httpsse_test

import (
	"bufio"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stepherg/catenago/internal/connect"
	"github.com/stepherg/catenago/internal/device"
	"github.com/stepherg/catenago/internal/rpc"
	"github.com/stepherg/catenago/internal/subscription"
	"github.com/stepherg/catenago/internal/transport/httpsse"
	"github.com/stepherg/catenago/pkg/wire"
)

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

type fakeSubs struct {
	managers map[uint32]*subscription.Manager
}

func (f *fakeSubs) Manager(slot uint32) (*subscription.Manager, bool) {
	m, ok := f.managers[slot]
	return m, ok
}

func newGainDevice() *device.Device {
	d := device.New("monitor", 10, true)
	desc := device.NewDescriptor("monitor", false, false, false)
	d.AddParam("gain", device.NewScalar("/gain", desc, wire.StringVal("0dB")))
	return d
}

func newTestServer() *httpsse.Server {
	d := newGainDevice()
	subsMgr := subscription.New(d.MaxSubscriptions())
	svc := rpc.NewService(
		&fakeSlots{devices: map[uint32]*device.Device{0: d}},
		&fakeSubs{managers: map[uint32]*subscription.Manager{0: subsMgr}},
		connect.NewConnectionQueue(4),
		false,
	)
	return httpsse.NewServer(svc, nil)
}

func TestGetValueRoute(t *testing.T) {
	r := httpsse.NewRouter(newTestServer())
	req := httptest.NewRequest(http.MethodGet, "/devices/0/value?oid=/gain", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var v wire.Value
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if v.StringValue != "0dB" {
		t.Fatalf("expected 0dB, got %+v", v)
	}
}

func TestGetValueRouteNotFoundSlot(t *testing.T) {
	r := httpsse.NewRouter(newTestServer())
	req := httptest.NewRequest(http.MethodGet, "/devices/7/value?oid=/gain", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestSubscriptionsRESTRoundTrip(t *testing.T) {
	r := httpsse.NewRouter(newTestServer())

	put := httptest.NewRequest(http.MethodPut, "/devices/0/subscriptions?oid=/gain", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, put)
	if rec.Code != http.StatusOK {
		t.Fatalf("PUT: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	list := httptest.NewRequest(http.MethodGet, "/devices/0/subscriptions", nil)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, list)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var got struct {
		Oids []string `json:"oids"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got.Oids) != 1 || got.Oids[0] != "/gain" {
		t.Fatalf("expected [/gain], got %v", got.Oids)
	}

	del := httptest.NewRequest(http.MethodDelete, "/devices/0/subscriptions?oid=/gain", nil)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, del)
	if rec.Code != http.StatusOK {
		t.Fatalf("DELETE: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/devices/0/subscriptions", nil))
	got.Oids = nil
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got.Oids) != 0 {
		t.Fatalf("expected no subscriptions after delete, got %v", got.Oids)
	}
}

func TestDeviceRequestSSEStream(t *testing.T) {
	r := httpsse.NewRouter(newTestServer())
	req := httptest.NewRequest(http.MethodGet, "/devices/0/request?detail_level=full", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("expected text/event-stream, got %q", ct)
	}

	scanner := bufio.NewScanner(strings.NewReader(rec.Body.String()))
	var sawComponentEvent bool
	for scanner.Scan() {
		if strings.HasPrefix(scanner.Text(), "event: component") {
			sawComponentEvent = true
		}
	}
	if !sawComponentEvent {
		t.Fatalf("expected at least one component event, got body: %s", rec.Body.String())
	}
}

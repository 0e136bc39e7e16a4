package grpcsvc_test

import (
	"context"
	"net"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	grpcstatus "google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/stepherg/catenago/internal/connect"
	"github.com/stepherg/catenago/internal/device"
	"github.com/stepherg/catenago/internal/rpc"
	"github.com/stepherg/catenago/internal/subscription"
	"github.com/stepherg/catenago/internal/transport/grpcsvc"
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

func dialServer(t *testing.T, svc *rpc.Service) (*grpc.ClientConn, func()) {
	t.Helper()
	lis := bufconn.Listen(1024 * 1024)
	gs := grpcsvc.NewGRPCServer(grpcsvc.NewServer(svc, nil))
	go func() { _ = gs.Serve(lis) }()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype("json")),
	)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	return conn, func() {
		conn.Close()
		gs.Stop()
	}
}

// TestGetValueUnary exercises a full unary round trip through the
// hand-written ServiceDesc and JSON wire codec.
func TestGetValueUnary(t *testing.T) {
	d := newGainDevice()
	svc := rpc.NewService(&fakeSlots{devices: map[uint32]*device.Device{0: d}}, &fakeSubs{managers: map[uint32]*subscription.Manager{}}, connect.NewConnectionQueue(4), false)

	conn, cleanup := dialServer(t, svc)
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var reply wire.Value
	err := conn.Invoke(ctx, "/catena.gateway.v1.CatenaGateway/GetValue", &wire.GetValueRequest{Slot: 0, Oid: "/gain"}, &reply)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reply.StringValue != "0dB" {
		t.Fatalf("expected 0dB, got %+v", reply)
	}
}

// TestGetValueUnaryNotFound asserts the NOT_FOUND status survives the gRPC
// boundary with its code intact (bit-exact with internal/status).
func TestGetValueUnaryNotFound(t *testing.T) {
	svc := rpc.NewService(&fakeSlots{devices: map[uint32]*device.Device{}}, &fakeSubs{managers: map[uint32]*subscription.Manager{}}, connect.NewConnectionQueue(4), false)

	conn, cleanup := dialServer(t, svc)
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var reply wire.Value
	err := conn.Invoke(ctx, "/catena.gateway.v1.CatenaGateway/GetValue", &wire.GetValueRequest{Slot: 7, Oid: "/gain"}, &reply)
	if err == nil {
		t.Fatal("expected an error")
	}
	st, ok := grpcstatus.FromError(err)
	if !ok || st.Code() != codes.NotFound {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

// TestDeviceRequestStream exercises the server-streaming DeviceRequest RPC.
func TestDeviceRequestStream(t *testing.T) {
	d := newGainDevice()
	subsMgr := subscription.New(d.MaxSubscriptions())
	svc := rpc.NewService(&fakeSlots{devices: map[uint32]*device.Device{0: d}}, &fakeSubs{managers: map[uint32]*subscription.Manager{0: subsMgr}}, connect.NewConnectionQueue(4), false)

	conn, cleanup := dialServer(t, svc)
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	stream, err := conn.NewStream(ctx, &grpc.StreamDesc{StreamName: "DeviceRequest", ServerStreams: true}, "/catena.gateway.v1.CatenaGateway/DeviceRequest")
	if err != nil {
		t.Fatalf("new stream: %v", err)
	}
	if err := stream.SendMsg(&wire.DeviceRequestPayload{Slot: 0, DetailLevel: wire.DetailFull}); err != nil {
		t.Fatalf("send: %v", err)
	}
	if err := stream.CloseSend(); err != nil {
		t.Fatalf("close send: %v", err)
	}

	var got []*wire.DeviceComponent
	for {
		var c wire.DeviceComponent
		if err := stream.RecvMsg(&c); err != nil {
			break
		}
		cc := c
		got = append(got, &cc)
	}
	if len(got) == 0 {
		t.Fatal("expected at least one component")
	}
}

package device

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	wrp "github.com/xmidt-org/wrp-go/v3"

	"github.com/stepherg/catenago/pkg/wire"
)

// ErrUpstreamStatus indicates a non-2xx response from the WRP endpoint.
var ErrUpstreamStatus = errors.New("upstream returned non-2xx status")

// WRPCommandForwarder is the side-effect path ExecuteCommand uses when a
// command parameter targets a real device rather than purely local state:
// it encodes the command as a msgpack WRP SimpleRequestResponse message and
// POSTs it to an upstream bridge (Scytale), decoding the device's reply back
// into a wire.Value.
type WRPCommandForwarder struct {
	Client        *http.Client
	URL           string
	Authorization string
	Source        string
}

func (f *WRPCommandForwarder) httpClient() *http.Client {
	if f.Client == nil {
		f.Client = &http.Client{Timeout: 10 * time.Second}
	}
	return f.Client
}

// commandPayload is the JSON body carried in the WRP message, naming the
// target parameter and the command argument.
type commandPayload struct {
	Oid   string      `json:"oid"`
	Value *wire.Value `json:"value,omitempty"`
}

// Forward encodes oid/value as a WRP message destined for dest, posts it,
// and decodes the device's reply payload as a wire.Value. A nil reply
// (e.g. respond=false upstream) is reported as a nil *wire.Value with a nil
// error.
func (f *WRPCommandForwarder) Forward(ctx context.Context, dest, oid string, v *wire.Value) (*wire.Value, error) {
	raw, err := json.Marshal(commandPayload{Oid: oid, Value: v})
	if err != nil {
		return nil, fmt.Errorf("encode command payload: %w", err)
	}

	msg := &wrp.Message{
		Type:        wrp.SimpleRequestResponseMessageType,
		Source:      f.Source,
		Destination: dest,
		ContentType: "application/json",
		Payload:     raw,
	}

	reply, err := f.do(ctx, msg)
	if err != nil {
		return nil, err
	}
	if len(reply.Payload) == 0 {
		return nil, nil
	}
	var out wire.Value
	if err := json.Unmarshal(reply.Payload, &out); err != nil {
		return nil, fmt.Errorf("decode command reply: %w", err)
	}
	return &out, nil
}

// NewWRPCommand builds a command Param whose body forwards its invoking
// value to dest over f and turns the device's reply into a single
// CommandResponse, the composition ExecuteCommand actually drains.
func NewWRPCommand(oid string, d *Descriptor, dest string, f *WRPCommandForwarder) *Param {
	return NewCommand(oid, d, func(v *wire.Value) ([]*wire.CommandResponse, error) {
		ctx, cancel := context.WithTimeout(context.Background(), 8*time.Second)
		defer cancel()
		reply, err := f.Forward(ctx, dest, oid, v)
		if err != nil {
			return nil, err
		}
		if reply == nil {
			return []*wire.CommandResponse{{Kind: wire.CommandResponseNone}}, nil
		}
		return []*wire.CommandResponse{{Kind: wire.CommandResponseValue, Response: reply}}, nil
	})
}

func (f *WRPCommandForwarder) do(ctx context.Context, m *wrp.Message) (*wrp.Message, error) {
	buf := &bytes.Buffer{}
	if err := wrp.NewEncoder(buf, wrp.Msgpack).Encode(m); err != nil {
		return nil, fmt.Errorf("encode wrp: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.URL, buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/msgpack")
	if f.Authorization != "" {
		auth := strings.TrimSpace(f.Authorization)
		lower := strings.ToLower(auth)
		if !(strings.HasPrefix(lower, "basic ") || strings.HasPrefix(lower, "bearer ") || strings.HasPrefix(lower, "digest ")) {
			auth = "Basic " + auth
		}
		req.Header.Set("Authorization", auth)
	}

	resp, err := f.httpClient().Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: %s", ErrUpstreamStatus, string(body))
	}

	var out wrp.Message
	if err := wrp.NewDecoder(resp.Body, wrp.Msgpack).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode wrp: %w", err)
	}
	return &out, nil
}

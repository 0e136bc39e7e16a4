// Package grpcsvc binds internal/rpc.Service onto a real google.golang.org/grpc
// server (Transport A). pkg/wire carries hand-authored Go structs rather than
// protoc-generated messages, so there is no generated service interface to
// implement; instead this package registers a JSON wire codec and hand-writes
// the grpc.ServiceDesc that the stock *grpc.Server dispatches against.
package grpcsvc

import (
	"encoding/json"

	"google.golang.org/grpc/encoding"
)

const codecName = "json"

// jsonCodec marshals RPC messages as JSON instead of protobuf, since
// pkg/wire types carry json tags, not generated Marshal/Unmarshal methods.
type jsonCodec struct{}

func (jsonCodec) Marshal(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}

func (jsonCodec) Name() string { return codecName }

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

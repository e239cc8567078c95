// Package sessionv1 defines the admin.v1.SessionService contract. Messages
// are plain structs carried by a JSON codec registered under the "json"
// content subtype, so clients must call with grpc.CallContentSubtype(Codec).
package sessionv1

import (
	"encoding/json"

	"google.golang.org/grpc/encoding"
)

// Codec is the content subtype the service is served with.
const Codec = "json"

type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error) { return json.Marshal(v) }

func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

func (jsonCodec) Name() string { return Codec }

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

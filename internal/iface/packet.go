package iface

import (
	"encoding/json"
	"fmt"

	"github.com/zclconf/go-cty/cty"
	ctyjson "github.com/zclconf/go-cty/cty/json"
)

// Flags carries per-packet control bits.
type Flags uint32

const (
	// FlagNone marks a regular payload packet.
	FlagNone Flags = 0
	// FlagClose marks the sentinel packet that tells the writer goroutine
	// to drain and exit.
	FlagClose Flags = 1 << 0
)

// Packet is one attribute snapshot on the wire. The value is detached from
// any live attribute and type-erased as a cty value; AttributeID is the
// registration slot index it targets and SequenceID the per-direction
// packet counter.
type Packet struct {
	Value       cty.Value
	AttributeID int
	SequenceID  uint64
	Flags       Flags
}

// packetJSON is the serialized form used by byte-oriented transports. The
// value is encoded together with its cty type so the receiver can decode
// it without per-slot schema knowledge.
type packetJSON struct {
	AttributeID int             `json:"attribute_id"`
	SequenceID  uint64          `json:"sequence_id"`
	Flags       Flags           `json:"flags,omitempty"`
	Value       json.RawMessage `json:"value,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (p Packet) MarshalJSON() ([]byte, error) {
	out := packetJSON{
		AttributeID: p.AttributeID,
		SequenceID:  p.SequenceID,
		Flags:       p.Flags,
	}
	if !p.Value.IsNull() {
		raw, err := ctyjson.Marshal(p.Value, cty.DynamicPseudoType)
		if err != nil {
			return nil, fmt.Errorf("encode packet value: %w", err)
		}
		out.Value = raw
	}
	return json.Marshal(out)
}

// UnmarshalJSON implements json.Unmarshaler.
func (p *Packet) UnmarshalJSON(data []byte) error {
	var in packetJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return fmt.Errorf("decode packet: %w", err)
	}
	p.AttributeID = in.AttributeID
	p.SequenceID = in.SequenceID
	p.Flags = in.Flags
	p.Value = cty.NilVal
	if len(in.Value) > 0 && string(in.Value) != "null" {
		v, err := ctyjson.Unmarshal(in.Value, cty.DynamicPseudoType)
		if err != nil {
			return fmt.Errorf("decode packet value: %w", err)
		}
		p.Value = v
	}
	return nil
}

package socketio

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// Engine.IO v4 packet types.
const (
	engineOpen    byte = '0'
	engineClose   byte = '1'
	enginePing    byte = '2'
	enginePong    byte = '3'
	engineMessage byte = '4'
	engineUpgrade byte = '5'
	engineNoop    byte = '6'
)

// Socket.IO v5 packet types, carried inside an Engine.IO message.
const (
	PacketConnect      byte = '0'
	PacketDisconnect   byte = '1'
	PacketEvent        byte = '2'
	PacketAck          byte = '3'
	PacketConnectError byte = '4'
	PacketBinaryEvent  byte = '5'
	PacketBinaryAck    byte = '6'
)

var ErrMalformedPacket = errors.New("socketio: malformed packet")

// Event is a named server event with its JSON arguments in arrival order.
type Event struct {
	Name string
	Args []json.RawMessage
}

// Packet is a decoded Socket.IO packet.
type Packet struct {
	Type      byte
	Namespace string
	AckID     int
	HasAck    bool
	Data      json.RawMessage
}

type openPayload struct {
	SID          string `json:"sid"`
	PingInterval int    `json:"pingInterval"`
	PingTimeout  int    `json:"pingTimeout"`
	MaxPayload   int    `json:"maxPayload"`
}

// splitEngine returns the Engine.IO packet type and its data.
func splitEngine(frame []byte) (byte, []byte, error) {
	if len(frame) == 0 {
		return 0, nil, ErrMalformedPacket
	}
	t := frame[0]
	if t < engineOpen || t > engineNoop {
		return 0, nil, fmt.Errorf("%w: engine type %q", ErrMalformedPacket, t)
	}
	return t, frame[1:], nil
}

// DecodePacket parses the Socket.IO part of an Engine.IO message,
// e.g. `2["new_trade",{...}]` or `/admin,12["x"]`.
func DecodePacket(data []byte) (Packet, error) {
	if len(data) == 0 {
		return Packet{}, ErrMalformedPacket
	}
	p := Packet{Type: data[0], Namespace: "/"}
	if p.Type < PacketConnect || p.Type > PacketBinaryAck {
		return Packet{}, fmt.Errorf("%w: socket type %q", ErrMalformedPacket, p.Type)
	}
	rest := data[1:]

	if p.Type == PacketBinaryEvent || p.Type == PacketBinaryAck {
		// attachment count precedes the payload
		i := bytes.IndexByte(rest, '-')
		if i < 0 {
			return Packet{}, fmt.Errorf("%w: binary attachment count", ErrMalformedPacket)
		}
		rest = rest[i+1:]
	}

	if len(rest) > 0 && rest[0] == '/' {
		i := bytes.IndexByte(rest, ',')
		if i < 0 {
			p.Namespace = string(rest)
			rest = nil
		} else {
			p.Namespace = string(rest[:i])
			rest = rest[i+1:]
		}
	}

	n := 0
	for n < len(rest) && rest[n] >= '0' && rest[n] <= '9' {
		n++
	}
	if n > 0 {
		id, err := strconv.Atoi(string(rest[:n]))
		if err != nil {
			return Packet{}, fmt.Errorf("%w: ack id: %v", ErrMalformedPacket, err)
		}
		p.AckID = id
		p.HasAck = true
		rest = rest[n:]
	}

	if len(rest) > 0 {
		if !json.Valid(rest) {
			return Packet{}, fmt.Errorf("%w: payload is not json", ErrMalformedPacket)
		}
		p.Data = json.RawMessage(rest)
	}
	return p, nil
}

// DecodeEvent turns an EVENT packet payload (`["name", arg1, ...]`) into an Event.
func DecodeEvent(p Packet) (Event, error) {
	if p.Type != PacketEvent {
		return Event{}, fmt.Errorf("%w: not an event packet", ErrMalformedPacket)
	}
	var parts []json.RawMessage
	if err := json.Unmarshal(p.Data, &parts); err != nil {
		return Event{}, fmt.Errorf("%w: event array: %v", ErrMalformedPacket, err)
	}
	if len(parts) == 0 {
		return Event{}, fmt.Errorf("%w: empty event", ErrMalformedPacket)
	}
	var name string
	if err := json.Unmarshal(parts[0], &name); err != nil {
		return Event{}, fmt.Errorf("%w: event name: %v", ErrMalformedPacket, err)
	}
	return Event{Name: name, Args: parts[1:]}, nil
}

// EncodeEvent builds the Engine.IO frame for emitting an event on the default namespace.
func EncodeEvent(name string, args ...interface{}) ([]byte, error) {
	parts := make([]interface{}, 0, len(args)+1)
	parts = append(parts, name)
	parts = append(parts, args...)
	body, err := json.Marshal(parts)
	if err != nil {
		return nil, fmt.Errorf("marshal event %s: %w", name, err)
	}
	frame := make([]byte, 0, len(body)+2)
	frame = append(frame, engineMessage, PacketEvent)
	return append(frame, body...), nil
}

func encodeControl(t byte) []byte {
	return []byte{engineMessage, t}
}

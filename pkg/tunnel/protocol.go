// Package tunnel defines the wire protocol between the litecove control
// plane and database agents: length-prefixed JSON frames carried over yamux
// streams inside a WebSocket connection.
package tunnel

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
)

// MagicBytes identifies a valid tunnel protocol frame ("LC").
var MagicBytes = [2]byte{0x4C, 0x43}

// ProtocolVersion is the current wire protocol version.
const ProtocolVersion uint8 = 1

// MaxMessageSize is the maximum allowed message size (16 MB).
const MaxMessageSize = 16 * 1024 * 1024

// headerSize is the total frame header: 2 magic + 1 version + 1 type + 4 length.
const headerSize = 8

// MessageType discriminates frame types on the wire.
type MessageType uint8

const (
	// MessageTypeQuery is sent from the control plane to the agent.
	MessageTypeQuery MessageType = 1
	// MessageTypeResult is sent from the agent back to the control plane.
	MessageTypeResult MessageType = 2
	// MessageTypePing is sent from the control plane for heartbeat.
	MessageTypePing MessageType = 3
	// MessageTypePong answers a ping.
	MessageTypePong MessageType = 4
	// MessageTypeHandshake is sent from the server after yamux is established.
	MessageTypeHandshake MessageType = 5
	// MessageTypeHandshakeAck answers a handshake.
	MessageTypeHandshakeAck MessageType = 6
)

// Query is the envelope sent from the control plane to the agent through a
// yamux stream: exactly one SQL statement, executed synchronously.
type Query struct {
	RequestID string `json:"requestId"`
	SQL       string `json:"sql"`
}

// Validate checks that the query is well-formed.
func (q *Query) Validate() error {
	if q.RequestID == "" {
		return fmt.Errorf("query validation: requestId is required")
	}
	if q.SQL == "" {
		return fmt.Errorf("query validation: sql is required")
	}
	return nil
}

// Result is the envelope sent from the agent back to the control plane.
type Result struct {
	Rows         []map[string]any `json:"rows,omitempty"`
	RowsAffected int64            `json:"rowsAffected,omitempty"`
	Error        string           `json:"error,omitempty"`
}

// Ping is the heartbeat message sent from the control plane to the agent.
type Ping struct {
	Timestamp int64 `json:"timestamp"` // Unix nanos
}

// Validate checks that the ping is well-formed.
func (p *Ping) Validate() error {
	if p.Timestamp <= 0 {
		return fmt.Errorf("ping validation: timestamp must be positive")
	}
	return nil
}

// Pong is the heartbeat response sent by the agent.
type Pong struct {
	Timestamp int64 `json:"timestamp"`          // Echo back the ping timestamp
	Draining  bool  `json:"draining,omitempty"` // True when agent is shutting down
}

// Validate checks that the pong is well-formed.
func (p *Pong) Validate() error {
	if p.Timestamp <= 0 {
		return fmt.Errorf("pong validation: timestamp must be positive")
	}
	return nil
}

// Handshake is the first exchange after yamux is established.
type Handshake struct {
	ProtocolVersion uint8  `json:"protocolVersion"`
	ServerVersion   string `json:"serverVersion"`
}

// Validate checks that the handshake is well-formed.
func (h *Handshake) Validate() error {
	if h.ProtocolVersion == 0 {
		return fmt.Errorf("handshake validation: protocolVersion must be positive")
	}
	if h.ServerVersion == "" {
		return fmt.Errorf("handshake validation: serverVersion is required")
	}
	return nil
}

// HandshakeAck answers a Handshake.
type HandshakeAck struct {
	ProtocolVersion uint8  `json:"protocolVersion"`
	AgentVersion    string `json:"agentVersion"`
	Error           string `json:"error,omitempty"`
}

// Validate checks that the handshake ack is well-formed.
func (a *HandshakeAck) Validate() error {
	if a.ProtocolVersion == 0 {
		return fmt.Errorf("handshake ack validation: protocolVersion must be positive")
	}
	if a.AgentVersion == "" {
		return fmt.Errorf("handshake ack validation: agentVersion is required")
	}
	return nil
}

// WriteQuery marshals a Query and writes it as a typed frame.
func WriteQuery(w io.Writer, q *Query) error {
	if err := q.Validate(); err != nil {
		return err
	}
	return writeMsg(w, MessageTypeQuery, q)
}

// ReadQuery reads and unmarshals a Query frame, rejecting wrong message types.
func ReadQuery(r io.Reader) (*Query, error) {
	var q Query
	if err := readMsg(r, MessageTypeQuery, &q); err != nil {
		return nil, err
	}
	if err := q.Validate(); err != nil {
		return nil, err
	}
	return &q, nil
}

// WriteResult marshals a Result and writes it as a typed frame.
func WriteResult(w io.Writer, res *Result) error {
	return writeMsg(w, MessageTypeResult, res)
}

// ReadResult reads and unmarshals a Result frame, rejecting wrong message types.
func ReadResult(r io.Reader) (*Result, error) {
	var res Result
	if err := readMsg(r, MessageTypeResult, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// WritePing marshals a Ping and writes it as a typed frame.
func WritePing(w io.Writer, p *Ping) error {
	if err := p.Validate(); err != nil {
		return err
	}
	return writeMsg(w, MessageTypePing, p)
}

// ReadPong reads and unmarshals a Pong frame, rejecting wrong message types.
func ReadPong(r io.Reader) (*Pong, error) {
	var p Pong
	if err := readMsg(r, MessageTypePong, &p); err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// WritePong marshals a Pong and writes it as a typed frame.
func WritePong(w io.Writer, p *Pong) error {
	if err := p.Validate(); err != nil {
		return err
	}
	return writeMsg(w, MessageTypePong, p)
}

// WriteHandshake marshals a Handshake and writes it as a typed frame.
func WriteHandshake(w io.Writer, h *Handshake) error {
	if err := h.Validate(); err != nil {
		return err
	}
	return writeMsg(w, MessageTypeHandshake, h)
}

// WriteHandshakeAck marshals a HandshakeAck and writes it as a typed frame.
func WriteHandshakeAck(w io.Writer, a *HandshakeAck) error {
	if err := a.Validate(); err != nil {
		return err
	}
	return writeMsg(w, MessageTypeHandshakeAck, a)
}

// ReadHandshakeAck reads and unmarshals a HandshakeAck frame.
func ReadHandshakeAck(r io.Reader) (*HandshakeAck, error) {
	var a HandshakeAck
	if err := readMsg(r, MessageTypeHandshakeAck, &a); err != nil {
		return nil, err
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}
	return &a, nil
}

// ReadRawFrame reads any frame and returns its type and raw JSON payload.
// Used by the agent's stream dispatcher, which cannot know the type upfront.
func ReadRawFrame(r io.Reader) (MessageType, json.RawMessage, error) {
	var header [headerSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return 0, nil, fmt.Errorf("read frame header: %w", err)
	}

	if header[0] != MagicBytes[0] || header[1] != MagicBytes[1] {
		return 0, nil, fmt.Errorf("invalid magic bytes %x%x", header[0], header[1])
	}
	if header[2] != ProtocolVersion {
		return 0, nil, fmt.Errorf("unsupported protocol version %d", header[2])
	}
	msgType := MessageType(header[3])

	size := binary.BigEndian.Uint32(header[4:])
	if size > MaxMessageSize {
		return 0, nil, fmt.Errorf("message size %d exceeds maximum %d", size, MaxMessageSize)
	}

	data := make([]byte, size)
	if _, err := io.ReadFull(r, data); err != nil {
		return 0, nil, fmt.Errorf("read payload: %w", err)
	}

	return msgType, json.RawMessage(data), nil
}

// writeMsg marshals v as JSON and writes it with the 8-byte header:
// [2-byte magic][1-byte version][1-byte msg type][4-byte big-endian length].
func writeMsg(w io.Writer, msgType MessageType, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	if len(data) > MaxMessageSize {
		return fmt.Errorf("message size %d exceeds maximum %d", len(data), MaxMessageSize)
	}

	var header [headerSize]byte
	header[0] = MagicBytes[0]
	header[1] = MagicBytes[1]
	header[2] = ProtocolVersion
	header[3] = byte(msgType)
	binary.BigEndian.PutUint32(header[4:], uint32(len(data)))

	if _, err := w.Write(header[:]); err != nil {
		return fmt.Errorf("write frame header: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write payload: %w", err)
	}
	return nil
}

// readMsg reads a frame and unmarshals it, rejecting unexpected types.
func readMsg(r io.Reader, expectedType MessageType, v any) error {
	msgType, payload, err := ReadRawFrame(r)
	if err != nil {
		return err
	}
	if msgType != expectedType {
		return fmt.Errorf("unexpected message type %d, want %d", msgType, expectedType)
	}
	if err := json.Unmarshal(payload, v); err != nil {
		return fmt.Errorf("unmarshal message: %w", err)
	}
	return nil
}

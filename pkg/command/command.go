// Package command defines the bitboard command set carried in packets.
package command

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// ID identifies a command. It's the first byte of a packet.
type ID byte

// Command identifiers.
const (
	None ID = iota
	Error
	Ping
	Pong
	Log
	WriteMem
	StartEmu
	StopEmu
	StepEmu
	GetInstCount
)

var idNames = [...]string{
	None:         "none",
	Error:        "error",
	Ping:         "ping",
	Pong:         "pong",
	Log:          "log",
	WriteMem:     "write-mem",
	StartEmu:     "start",
	StopEmu:      "stop",
	StepEmu:      "step",
	GetInstCount: "inst-count",
}

// Known indicates id is a defined command.
func (id ID) Known() bool {
	return int(id) < len(idNames)
}

// String implements fmt.Stringer.
func (id ID) String() string {
	if id.Known() {
		return idNames[id]
	}
	return fmt.Sprintf("unknown(%d)", byte(id))
}

var (
	// ErrEmptyPacket indicates a packet without command id.
	ErrEmptyPacket = errors.New("empty packet")
	// ErrShortBody indicates the body is too short for the command.
	ErrShortBody = errors.New("body too short")
)

// Sizes of fixed body parts.
const (
	AddressSize   = 2
	InstCountSize = 4
)

// Message is a decoded command.
type Message struct {
	ID   ID
	Body []byte
}

// Encode builds packet payload.
func Encode(id ID, body []byte) []byte {
	p := make([]byte, len(body)+1)
	p[0] = byte(id)
	copy(p[1:], body)
	return p
}

// Bytes returns encoded payload of the message.
func (m Message) Bytes() []byte {
	return Encode(m.ID, m.Body)
}

// Text returns body as text, used by Log and Error.
func (m Message) Text() string {
	return string(m.Body)
}

// Decode parses packet payload.
func Decode(pkt []byte) (Message, error) {
	if len(pkt) == 0 {
		return Message{}, ErrEmptyPacket
	}
	return Message{ID: ID(pkt[0]), Body: pkt[1:]}, nil
}

// WriteMemBody builds the body of WriteMem.
func WriteMemBody(addr uint16, data []byte) []byte {
	b := make([]byte, AddressSize+len(data))
	binary.LittleEndian.PutUint16(b, addr)
	copy(b[AddressSize:], data)
	return b
}

// ParseWriteMem parses the body of WriteMem.
func ParseWriteMem(body []byte) (addr uint16, data []byte, err error) {
	if len(body) < AddressSize {
		err = ErrShortBody
		return
	}
	return binary.LittleEndian.Uint16(body), body[AddressSize:], nil
}

// InstCountBody builds the body of GetInstCount reply.
func InstCountBody(n uint32) []byte {
	b := make([]byte, InstCountSize)
	binary.LittleEndian.PutUint32(b, n)
	return b
}

// ParseInstCount parses the body of GetInstCount reply.
func ParseInstCount(body []byte) (uint32, error) {
	if len(body) < InstCountSize {
		return 0, ErrShortBody
	}
	return binary.LittleEndian.Uint32(body), nil
}

// Package decode turns the raw device payloads into typed readings.
//
// The devices send short ASCII strings with no framing; the kind of a message
// is encoded positionally. On the feedback channel the second character can be
// a relay ("R") or motion ("P") tag, otherwise the last character is the
// scalar kind tag (T/H/L) and the prefix is the value:
//
//	"23.5T"  temperature 23.5
//	"1R2"    relay 2 switched to state 1
//	"1P"     motion detected
package decode

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/duckception/wbudowane-backend/internal/reading"
)

// Channel tells the decoder which topic family a message arrived on. Plain
// telemetry topics carry only scalar payloads and name the room directly;
// feedback topics ("RoomN_N") additionally carry relay and motion payloads
// and the room is derived from the topic's trailing character.
type Channel int

const (
	Telemetry Channel = iota
	Feedback
)

var (
	ErrEmptyPayload = errors.New("decode: empty payload")
	ErrUnknownKind  = errors.New("decode: unknown kind tag")
)

// Decode maps one broker message to a Reading. It is pure: no store access,
// no side effects, so the wire format rules are testable on their own.
// Malformed payloads return an error and the caller drops the message.
func Decode(ch Channel, topic, payload string) (reading.Reading, error) {
	if payload == "" {
		return reading.Reading{}, ErrEmptyPayload
	}

	room := topic
	if ch == Feedback {
		// Feedback topics are named "Room<id>_<id>"; the trailing
		// character is the room id.
		room = reading.RoomName(topic[len(topic)-1:])
	}

	if ch == Feedback && len(payload) >= 2 {
		switch payload[1] {
		case byte(reading.Relay):
			return decodeRelay(room, payload)
		case byte(reading.Motion):
			return decodeMotion(room, payload)
		}
	}

	return decodeScalar(room, payload)
}

// decodeRelay parses "<state>R<relayIndex>", e.g. "1R2". The relay index is
// not range-checked here: the query engine tolerates indices outside the
// wired relays and simply never reports them.
func decodeRelay(room, payload string) (reading.Reading, error) {
	head, tail, _ := strings.Cut(payload, string(byte(reading.Relay)))

	state, err := strconv.Atoi(head)
	if err != nil {
		return reading.Reading{}, fmt.Errorf("decode: relay state %q: %w", head, err)
	}
	idx, err := strconv.Atoi(tail)
	if err != nil {
		return reading.Reading{}, fmt.Errorf("decode: relay index %q: %w", tail, err)
	}

	return reading.Reading{
		Kind:       reading.Relay,
		Room:       room,
		State:      state,
		RelayIndex: idx,
	}, nil
}

// decodeMotion parses "<state>P", e.g. "1P".
func decodeMotion(room, payload string) (reading.Reading, error) {
	state, err := strconv.Atoi(payload[:1])
	if err != nil {
		return reading.Reading{}, fmt.Errorf("decode: motion state %q: %w", payload[:1], err)
	}

	return reading.Reading{
		Kind:  reading.Motion,
		Room:  room,
		State: state,
	}, nil
}

// decodeScalar parses "<float><T|H|L>", e.g. "23.5T".
func decodeScalar(room, payload string) (reading.Reading, error) {
	kind := reading.Kind(payload[len(payload)-1])
	if !kind.Scalar() {
		return reading.Reading{}, fmt.Errorf("%w: %q", ErrUnknownKind, payload)
	}

	value, err := strconv.ParseFloat(payload[:len(payload)-1], 64)
	if err != nil {
		return reading.Reading{}, fmt.Errorf("decode: value in %q: %w", payload, err)
	}

	return reading.Reading{
		Kind:  kind,
		Room:  room,
		Value: value,
	}, nil
}

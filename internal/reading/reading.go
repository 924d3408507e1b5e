package reading

import "strings"

// Kind is the measurement category of a reading. The values are the
// single-letter tags the devices put into their payloads, so a Kind can be
// used directly when matching wire data or building a dataset selector.
type Kind byte

const (
	Temperature Kind = 'T'
	Humidity    Kind = 'H'
	Luminosity  Kind = 'L'
	Relay       Kind = 'R'
	Motion      Kind = 'P'
)

// Kinds lists every supported kind, in the order series are reported.
var Kinds = []Kind{Temperature, Humidity, Luminosity, Relay, Motion}

func (k Kind) String() string {
	return string(byte(k))
}

// Valid reports whether k is one of the supported kinds.
func (k Kind) Valid() bool {
	switch k {
	case Temperature, Humidity, Luminosity, Relay, Motion:
		return true
	}
	return false
}

// Scalar reports whether the reading carries a float value (as opposed to a
// relay/motion state).
func (k Kind) Scalar() bool {
	return k == Temperature || k == Humidity || k == Luminosity
}

// RelayCount is the number of physical relays wired per room.
const RelayCount = 3

// Reading is one decoded measurement or actuator-feedback event. Exactly one
// of Value/State is meaningful, depending on Kind; RelayIndex is set only for
// Kind == Relay. The timestamp is assigned by the store at insert time, not
// by the device, so it is not part of the decoded reading.
type Reading struct {
	Kind       Kind
	Room       string // e.g. "Room2"
	Value      float64
	State      int
	RelayIndex int
}

// RoomID returns the short room identifier ("2" for "Room2"). Dashboards and
// the query API address rooms by this id.
func (r Reading) RoomID() string {
	return strings.TrimPrefix(r.Room, "Room")
}

// RoomName builds the full room key from a short id.
func RoomName(id string) string {
	return "Room" + id
}

// CommandTopic is the feedback topic actuator commands for a room are
// published to ("Room2_2" for id "2").
func CommandTopic(id string) string {
	return "Room" + id + "_" + id
}

package decode

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duckception/wbudowane-backend/internal/reading"
)

func TestDecodeTelemetryScalar(t *testing.T) {
	tests := []struct {
		payload string
		kind    reading.Kind
		value   float64
	}{
		{"23.5T", reading.Temperature, 23.5},
		{"-4.25T", reading.Temperature, -4.25},
		{"61H", reading.Humidity, 61},
		{"980.1L", reading.Luminosity, 980.1},
	}

	for _, tt := range tests {
		got, err := Decode(Telemetry, "Room2", tt.payload)
		require.NoError(t, err, tt.payload)
		assert.Equal(t, tt.kind, got.Kind, tt.payload)
		assert.Equal(t, "Room2", got.Room, tt.payload)
		assert.Equal(t, tt.value, got.Value, tt.payload)
	}
}

func TestDecodeTelemetryRoomIsTopic(t *testing.T) {
	got, err := Decode(Telemetry, "Room1", "19.0T")
	require.NoError(t, err)
	assert.Equal(t, "Room1", got.Room)
	assert.Equal(t, "1", got.RoomID())
}

func TestDecodeFeedbackRelay(t *testing.T) {
	got, err := Decode(Feedback, "Room3_3", "1R2")
	require.NoError(t, err)
	assert.Equal(t, reading.Relay, got.Kind)
	assert.Equal(t, "Room3", got.Room)
	assert.Equal(t, 1, got.State)
	assert.Equal(t, 2, got.RelayIndex)
}

func TestDecodeFeedbackRelayOutOfRangeIndexAccepted(t *testing.T) {
	// Decode does not range-check the relay index; bucketing happens later.
	got, err := Decode(Feedback, "Room1_1", "0R7")
	require.NoError(t, err)
	assert.Equal(t, 7, got.RelayIndex)
}

func TestDecodeFeedbackMotion(t *testing.T) {
	got, err := Decode(Feedback, "Room2_2", "1P")
	require.NoError(t, err)
	assert.Equal(t, reading.Motion, got.Kind)
	assert.Equal(t, "Room2", got.Room)
	assert.Equal(t, 1, got.State)
}

func TestDecodeFeedbackScalarDerivesRoomFromTopic(t *testing.T) {
	got, err := Decode(Feedback, "Room3_3", "22.1T")
	require.NoError(t, err)
	assert.Equal(t, reading.Temperature, got.Kind)
	assert.Equal(t, "Room3", got.Room)
	assert.Equal(t, 22.1, got.Value)
}

func TestDecodeRelayTagWinsOverScalar(t *testing.T) {
	// The second character decides before the suffix tag is considered.
	got, err := Decode(Feedback, "Room1_1", "0R1")
	require.NoError(t, err)
	assert.Equal(t, reading.Relay, got.Kind)
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name    string
		ch      Channel
		payload string
	}{
		{"empty", Telemetry, ""},
		{"empty feedback", Feedback, ""},
		{"unknown tag", Telemetry, "23.5X"},
		{"tag only", Telemetry, "T"},
		{"bad float", Telemetry, "2x.5T"},
		{"bad relay state", Feedback, "xR2"},
		{"bad relay index", Feedback, "1Rx"},
		{"missing relay index", Feedback, "1R"},
		{"bad motion state", Feedback, "xP"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.ch, "Room1_1", tt.payload)
			assert.Error(t, err)
		})
	}
}

func TestDecodeEmptyPayloadSentinel(t *testing.T) {
	_, err := Decode(Telemetry, "Room1", "")
	assert.ErrorIs(t, err, ErrEmptyPayload)
}

// Package ingest ties the broker side together: decode one message, persist
// it, read the refreshed latest point back and push it to the dashboards.
package ingest

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/duckception/wbudowane-backend/internal/decode"
	"github.com/duckception/wbudowane-backend/internal/metrics"
	"github.com/duckception/wbudowane-backend/internal/query"
	"github.com/duckception/wbudowane-backend/internal/reading"
)

// Store is the write half of the reading store.
type Store interface {
	Insert(ctx context.Context, rd reading.Reading) error
}

// Sink is the fan-out channel to connected dashboards. Publish is
// fire-and-forget.
type Sink interface {
	Publish(event string, data any)
}

// RelayFeedback is the relay_feedback event payload. Fields are strings to
// match what the dashboards already parse.
type RelayFeedback struct {
	ID    string `json:"id"`
	State string `json:"state"`
	Relay string `json:"relay"`
	Room  string `json:"room"`
}

// Pipeline bundles the collaborators one message handling needs, instead of
// reaching for process-wide state from free-standing callbacks.
type Pipeline struct {
	store  Store
	engine *query.Engine
	sink   Sink
	logger *slog.Logger
}

func NewPipeline(store Store, engine *query.Engine, sink Sink, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		store:  store,
		engine: engine,
		sink:   sink,
		logger: logger,
	}
}

// Handle processes one broker delivery start to finish. Every message is an
// independent unit of work: whatever fails is logged and the handler
// returns, it never takes the subscription loop down with it.
func (p *Pipeline) Handle(ctx context.Context, ch decode.Channel, topic, payload string) {
	rd, err := decode.Decode(ch, topic, payload)
	if err != nil {
		// Malformed payload: drop, no retry, no dead-lettering.
		metrics.DecodeErrors.Inc()
		p.logger.Warn("Message rejected", "topic", topic, "payload", payload, "reason", err)
		return
	}

	if rd.Kind == reading.Relay {
		// Actuator acknowledgements go out immediately, ahead of
		// persistence, so the dashboard toggle flips without the
		// storage round trip in between.
		p.sink.Publish("relay_feedback", RelayFeedback{
			ID:    rd.RoomID(),
			State: strconv.Itoa(rd.State),
			Relay: strconv.Itoa(rd.RelayIndex),
			Room:  rd.Room,
		})
	}

	if err := p.store.Insert(ctx, rd); err != nil {
		metrics.PersistErrors.Inc()
		p.logger.Error("Reading lost, store write failed", "topic", topic, "kind", rd.Kind.String(), "error", err)
		return
	}
	metrics.ReadingsIngested.WithLabelValues(rd.Kind.String()).Inc()

	// Read the just-written point back through the query engine so the
	// broadcast carries exactly what a fresh query would return.
	resp, err := p.engine.Query(ctx, rd.RoomID(), rd.Kind.String(), 1)
	if err != nil {
		// The row is committed; only this broadcast is skipped.
		metrics.RefreshErrors.Inc()
		p.logger.Error("Post-insert refresh failed, broadcast skipped", "room", rd.Room, "kind", rd.Kind.String(), "error", err)
		return
	}

	p.sink.Publish("get_data", resp)
}

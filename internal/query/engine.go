// Package query builds the per-room series the dashboards plot: for each
// requested kind, the most recent N readings in chronological order, as
// parallel value and time-label sequences.
package query

import (
	"context"
	"fmt"
	"strings"

	"github.com/duckception/wbudowane-backend/internal/reading"
	"github.com/duckception/wbudowane-backend/internal/store"
)

// DefaultLimit is the window size for the connect-time dashboard snapshot.
const DefaultLimit = 17

// Source is the slice of the reading store the engine needs: a filtered
// window of rows in descending insertion order. relay < 0 means no relay
// filter. *store.Repository implements it.
type Source interface {
	Recent(ctx context.Context, room string, kind reading.Kind, relay int, limit int) ([]store.Row, error)
}

// Series is one plotted line: values and time-of-day labels, oldest first.
// For the relay kind Data and Labels hold one sequence per physical relay
// ([][]int / [][]string); for all other kinds a flat sequence.
type Series struct {
	Name   string `json:"name"`
	Room   string `json:"id"`
	Data   any    `json:"data"`
	Labels any    `json:"labels"`
}

// Response is the payload of a get_data event and of the history endpoint.
type Response struct {
	Data []Series `json:"data"`
}

type Engine struct {
	src Source
}

func NewEngine(src Source) *Engine {
	return &Engine{src: src}
}

// Query returns series for a room. roomID is the short id ("2" for Room2).
// selector is "ALL" or any string of kind letters ("T", "TH", ...); limit is
// the number of most-recent rows per series. A kind with no stored rows
// yields empty sequences, not an error.
func (e *Engine) Query(ctx context.Context, roomID, selector string, limit int) (*Response, error) {
	kinds, err := expandSelector(selector)
	if err != nil {
		return nil, err
	}

	resp := &Response{Data: make([]Series, 0, len(kinds))}
	for _, kind := range kinds {
		series, err := e.kindSeries(ctx, roomID, kind, limit)
		if err != nil {
			return nil, err
		}
		resp.Data = append(resp.Data, series)
	}
	return resp, nil
}

func expandSelector(selector string) ([]reading.Kind, error) {
	selector = strings.ToUpper(selector)
	if selector == "" || selector == "ALL" {
		return reading.Kinds, nil
	}

	kinds := make([]reading.Kind, 0, len(selector))
	for i := 0; i < len(selector); i++ {
		kind := reading.Kind(selector[i])
		if !kind.Valid() {
			return nil, fmt.Errorf("query: unknown dataset %q", string(selector[i]))
		}
		kinds = append(kinds, kind)
	}
	return kinds, nil
}

func (e *Engine) kindSeries(ctx context.Context, roomID string, kind reading.Kind, limit int) (Series, error) {
	series := Series{Name: kind.String(), Room: roomID}
	room := reading.RoomName(roomID)

	if kind == reading.Relay {
		data, labels, err := e.relaySeries(ctx, room, limit)
		if err != nil {
			return Series{}, err
		}
		series.Data, series.Labels = data, labels
		return series, nil
	}

	// The store hands back the newest `limit` rows in descending insertion
	// order; reversing that window afterwards is what makes the result "the
	// most recent N points, oldest first" rather than an arbitrary N.
	rows, err := e.src.Recent(ctx, room, kind, -1, limit)
	if err != nil {
		return Series{}, err
	}
	reverse(rows)

	labels := make([]string, 0, len(rows))
	for _, row := range rows {
		labels = append(labels, timeLabel(row))
	}
	series.Labels = labels

	if kind == reading.Motion {
		states := make([]int, 0, len(rows))
		for _, row := range rows {
			states = append(states, row.State)
		}
		series.Data = states
		return series, nil
	}

	values := make([]float64, 0, len(rows))
	for _, row := range rows {
		values = append(values, row.Value)
	}
	series.Data = values
	return series, nil
}

// relaySeries reports one sequence per physical relay. With limit == 1 it
// takes the single newest relay row of the room, whichever relay it belongs
// to, and fills only that relay's sequence; with larger limits every relay
// gets its own bounded window. Rows with a relay index outside the wired
// range are skipped, never a panic.
func (e *Engine) relaySeries(ctx context.Context, room string, limit int) ([][]int, [][]string, error) {
	data := make([][]int, reading.RelayCount)
	labels := make([][]string, reading.RelayCount)
	for i := range data {
		data[i] = []int{}
		labels[i] = []string{}
	}

	if limit == 1 {
		rows, err := e.src.Recent(ctx, room, reading.Relay, -1, 1)
		if err != nil {
			return nil, nil, err
		}
		if len(rows) > 0 {
			idx := rows[0].Relay
			if idx >= 0 && idx < reading.RelayCount {
				data[idx] = []int{rows[0].State}
				labels[idx] = []string{timeLabel(rows[0])}
			}
		}
		return data, labels, nil
	}

	for relay := 0; relay < reading.RelayCount; relay++ {
		rows, err := e.src.Recent(ctx, room, reading.Relay, relay, limit)
		if err != nil {
			return nil, nil, err
		}
		reverse(rows)
		for _, row := range rows {
			data[relay] = append(data[relay], row.State)
			labels[relay] = append(labels[relay], timeLabel(row))
		}
	}
	return data, labels, nil
}

// timeLabel keeps only the time-of-day of the stored timestamp; the
// dashboards plot rolling windows where the date is noise.
func timeLabel(row store.Row) string {
	return row.At.Format("15:04:05")
}

func reverse(rows []store.Row) {
	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}
}

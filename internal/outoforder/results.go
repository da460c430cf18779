// Package outoforder rebuilds a text stream whose chunks may arrive in any order.
//
// Each chunk carries a sequence index. Results buffers chunks ahead of the
// next expected index and only ever grows its text by the longest contiguous
// run starting at that index.
package outoforder

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"

	"github.com/tidwall/gjson"
)

// ErrTooManyPending is returned when a chunk would exceed the buffer bound.
var ErrTooManyPending = errors.New("too many out-of-order chunks pending")

// Event is one tagged chunk as sent on the wire: {"s": 2, "d": "text"}.
type Event struct {
	Seq  int
	Data string
}

// Results accumulates events and exposes the ordered text delivered so far.
// It is safe for concurrent use.
type Results struct {
	mu         sync.Mutex
	next       int
	maxPending int
	pending    map[int]string
	text       strings.Builder
}

type Option func(*Results)

// WithStart sets the first expected sequence index. Defaults to 1.
func WithStart(seq int) Option {
	return func(r *Results) { r.next = seq }
}

// WithMaxPending bounds how many chunks may wait for a gap to fill.
// Zero or less means unbounded.
func WithMaxPending(n int) Option {
	return func(r *Results) { r.maxPending = n }
}

func New(opts ...Option) *Results {
	r := &Results{
		next:    1,
		pending: make(map[int]string),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Add accepts one event. Events for an index that was already delivered or
// is already buffered are ignored.
func (r *Results) Add(ev Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if ev.Seq < r.next {
		return nil
	}
	if _, dup := r.pending[ev.Seq]; dup {
		return nil
	}
	if ev.Seq != r.next && r.maxPending > 0 && len(r.pending) >= r.maxPending {
		return fmt.Errorf("chunk %d waiting on %d: %w", ev.Seq, r.next, ErrTooManyPending)
	}

	r.pending[ev.Seq] = ev.Data
	for {
		data, ok := r.pending[r.next]
		if !ok {
			break
		}
		r.text.WriteString(data)
		delete(r.pending, r.next)
		r.next++
	}
	return nil
}

// AddRaw decodes a wire chunk and adds it. A chunk that is not a tagged
// event is appended verbatim at the current delivery point.
func (r *Results) AddRaw(chunk string) error {
	ev, ok := Decode(chunk)
	if !ok {
		r.mu.Lock()
		r.text.WriteString(chunk)
		r.mu.Unlock()
		return nil
	}
	return r.Add(ev)
}

// Text returns the contiguous text delivered so far. It never shrinks.
func (r *Results) Text() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.text.String()
}

// Pending reports how many chunks are buffered behind a gap.
func (r *Results) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}

// Decode parses {"s": <seq>, "d": <text>}; s may be an integer or a numeric string.
func Decode(chunk string) (Event, bool) {
	if !gjson.Valid(chunk) {
		return Event{}, false
	}
	parsed := gjson.Parse(chunk)
	if !parsed.IsObject() {
		return Event{}, false
	}
	s := parsed.Get("s")
	if !s.Exists() {
		return Event{}, false
	}
	var seq int
	switch s.Type {
	case gjson.Number:
		if s.Num != math.Trunc(s.Num) || math.Abs(s.Num) > math.MaxInt32 {
			return Event{}, false
		}
		seq = int(s.Num)
	case gjson.String:
		n, err := strconv.Atoi(s.Str)
		if err != nil {
			return Event{}, false
		}
		seq = n
	default:
		return Event{}, false
	}
	return Event{Seq: seq, Data: parsed.Get("d").String()}, true
}

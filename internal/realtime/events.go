package realtime

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
)

type EventType string

const (
	EventStatus     EventType = "status"
	EventOutline    EventType = "outline"
	EventSlideStart EventType = "slide_start"
	EventSlideChunk EventType = "slide_chunk"
	EventSlideEnd   EventType = "slide_end"
	EventDone       EventType = "done"
	EventError      EventType = "error"
)

// Event is one line of a generation progress stream.
type Event struct {
	Type     EventType `json:"type"`
	LessonID string    `json:"lessonId,omitempty"`
	Seq      int       `json:"seq"`
	Index    *int      `json:"index,omitempty"`
	Message  string    `json:"message,omitempty"`
	Data     any       `json:"data,omitempty"`
	At       time.Time `json:"at"`
}

// Terminal reports whether no event may follow this one.
func (e Event) Terminal() bool {
	return e.Type == EventDone || e.Type == EventError
}

func IndexPtr(i int) *int { return &i }

// NDJSONWriter writes one JSON object per line and flushes after every event.
// It numbers events in emission order and is safe for concurrent use.
type NDJSONWriter struct {
	mu     sync.Mutex
	w      io.Writer
	seq    int
	closed bool
	now    func() time.Time
}

func NewNDJSONWriter(w io.Writer) *NDJSONWriter {
	return &NDJSONWriter{w: w, now: time.Now}
}

// Write stamps the event and returns it as written. Writes after a terminal event fail.
func (n *NDJSONWriter) Write(ev Event) (Event, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return ev, fmt.Errorf("stream already terminated")
	}
	n.seq++
	ev.Seq = n.seq
	if ev.At.IsZero() {
		ev.At = n.now().UTC()
	}
	raw, err := json.Marshal(ev)
	if err != nil {
		return ev, fmt.Errorf("encode event: %w", err)
	}
	raw = append(raw, '\n')
	if _, err := n.w.Write(raw); err != nil {
		return ev, err
	}
	if f, ok := n.w.(http.Flusher); ok {
		f.Flush()
	}
	if ev.Terminal() {
		n.closed = true
	}
	return ev, nil
}

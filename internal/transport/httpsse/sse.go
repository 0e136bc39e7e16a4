package httpsse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// eventWriter streams named Server-Sent Events to w, flushing after every
// write so the client observes updates as they are produced rather than
// buffered.
type eventWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
	seq     int64
}

func newEventWriter(w http.ResponseWriter) (*eventWriter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("response writer does not support flushing")
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()
	return &eventWriter{w: w, flusher: flusher}, nil
}

// send writes one SSE frame carrying v marshaled as JSON under the named
// event type.
func (e *eventWriter) send(event string, v interface{}) error {
	body, err := json.Marshal(v)
	if err != nil {
		return err
	}
	e.seq++
	if _, err := fmt.Fprintf(e.w, "event: %s\nid: %d\ndata: %s\n\n", event, e.seq, body); err != nil {
		return err
	}
	e.flusher.Flush()
	return nil
}

// sendError writes a terminal "error" SSE frame carrying the mapped HTTP
// status and message, for use when a stream fails mid-flight after headers
// are already committed to text/event-stream.
func (e *eventWriter) sendError(err error) error {
	return e.send("error", struct {
		Status  int    `json:"status"`
		Message string `json:"message"`
	}{Status: httpStatusFor(err), Message: err.Error()})
}

// keepalive periodically sends a comment frame to hold the connection open
// through idle intermediaries, mirroring the SSE comment-ping idiom.
func (e *eventWriter) keepalive(interval time.Duration, done <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if _, err := fmt.Fprint(e.w, ": keepalive\n\n"); err != nil {
				return
			}
			e.flusher.Flush()
		case <-done:
			return
		}
	}
}

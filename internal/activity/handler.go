package activity

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
)

// KeepAlive is the interval between SSE comment pings.
var KeepAlive = 30 * time.Second

type snapshot struct {
	Stats  Stats   `json:"stats"`
	Events []Event `json:"events"`
}

// Mount registers GET /activity and GET /activity/stream on r.
func (f *Feed) Mount(r chi.Router) {
	r.Get("/activity", f.handleSnapshot)
	r.Get("/activity/stream", f.handleStream)
}

func (f *Feed) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = 50
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(snapshot{Stats: f.Stats(), Events: f.Recent(limit)})
}

// handleStream serves Server-Sent Events until the client disconnects.
// The server write timeout is lifted for the lifetime of the stream.
func (f *Feed) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}
	log := logrus.WithField("component", "activity")
	if err := http.NewResponseController(w).SetWriteDeadline(time.Time{}); err != nil && !errors.Is(err, http.ErrNotSupported) {
		log.WithError(err).Warn("clearing stream write deadline")
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	events, cancel := f.Subscribe()
	defer cancel()
	log.Debug("stream client connected")

	fmt.Fprint(w, "event: connected\ndata: {}\n\n")
	flusher.Flush()

	ticker := time.NewTicker(KeepAlive)
	defer ticker.Stop()
	for {
		select {
		case <-r.Context().Done():
			log.Debug("stream client disconnected")
			return
		case <-ticker.C:
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		case ev, ok := <-events:
			if !ok {
				return
			}
			data, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "id: %d\nevent: %s\ndata: %s\n\n", ev.Seq, ev.Kind, data)
			flusher.Flush()
		}
	}
}

package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/aristath/harmonia/internal/events"
	"github.com/rs/zerolog"
	"nhooyr.io/websocket"
)

// writeTimeout bounds a single frame write to a slow client.
const writeTimeout = 5 * time.Second

// RunStreamHandler streams sweep lifecycle events over a websocket so UIs
// can follow a run sample by sample.
type RunStreamHandler struct {
	bus *events.Bus
	log zerolog.Logger
}

// NewRunStreamHandler creates the stream handler.
func NewRunStreamHandler(bus *events.Bus, log zerolog.Logger) *RunStreamHandler {
	return &RunStreamHandler{
		bus: bus,
		log: log.With().Str("handler", "run_stream").Logger(),
	}
}

// ServeHTTP upgrades the connection and forwards events until the client
// disconnects. Events published while the client is catching up are dropped
// by the bus rather than stalling sweeps.
func (h *RunStreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		h.log.Warn().Err(err).Msg("Websocket accept failed")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "stream closed")

	ch, unsubscribe := h.bus.Subscribe()
	defer unsubscribe()

	h.log.Debug().Str("remote", r.RemoteAddr).Msg("Run stream connected")

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "")
			return
		case event, ok := <-ch:
			if !ok {
				conn.Close(websocket.StatusNormalClosure, "")
				return
			}
			if err := h.writeEvent(ctx, conn, event); err != nil {
				h.log.Debug().Err(err).Msg("Run stream client gone")
				return
			}
		}
	}
}

func (h *RunStreamHandler) writeEvent(ctx context.Context, conn *websocket.Conn, event events.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return conn.Write(writeCtx, websocket.MessageText, data)
}

package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"nhooyr.io/websocket"

	"tokenflow/storage/eventstore"
)

const wsWriteTimeout = 10 * time.Second

var errSubscriberDropped = errors.New("rpc: event subscriber fell behind")

// handleEventsWS streams archived notifications over a websocket. Records
// with sequence greater than the cursor query parameter are replayed first,
// then new ones follow as they are archived. An optional type parameter
// narrows the stream.
func (s *Server) handleEventsWS(w http.ResponseWriter, r *http.Request) {
	if s.archive == nil {
		http.Error(w, "event archive disabled", http.StatusServiceUnavailable)
		return
	}
	if !s.limiter.Allow(s.clientSource(r)) {
		s.metrics.RecordThrottle("ws")
		http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
		return
	}
	var cursor uint64
	if raw := strings.TrimSpace(r.URL.Query().Get("cursor")); raw != "" {
		parsed, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			http.Error(w, "invalid cursor", http.StatusBadRequest)
			return
		}
		cursor = parsed
	}
	eventType := strings.TrimSpace(r.URL.Query().Get("type"))

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: []string{"*"}})
	if err != nil {
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "stream closed")

	ctx := conn.CloseRead(r.Context())
	err = s.streamEvents(ctx, conn, cursor, eventType)
	switch {
	case err == nil, websocket.CloseStatus(err) != -1, errors.Is(err, context.Canceled):
	case errors.Is(err, errSubscriberDropped):
		_ = conn.Close(websocket.StatusTryAgainLater, "subscriber fell behind, resume from last sequence")
	default:
		s.logger.Warn("event stream failed", "error", err)
		_ = conn.Close(websocket.StatusInternalError, "stream error")
	}
}

func (s *Server) streamEvents(ctx context.Context, conn *websocket.Conn, cursor uint64, eventType string) error {
	updates, cancel, backlog, err := s.archive.Subscribe(ctx, cursor)
	if err != nil {
		return err
	}
	defer cancel()

	for _, record := range backlog {
		if err := writeEventRecord(ctx, conn, record, eventType); err != nil {
			return err
		}
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case record, ok := <-updates:
			if !ok {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return errSubscriberDropped
			}
			if err := writeEventRecord(ctx, conn, record, eventType); err != nil {
				return err
			}
		}
	}
}

func writeEventRecord(ctx context.Context, conn *websocket.Conn, record eventstore.Record, eventType string) error {
	if eventType != "" && record.Type != eventType {
		return nil
	}
	result, err := eventResultFrom(record)
	if err != nil {
		return err
	}
	data, err := json.Marshal(result)
	if err != nil {
		return err
	}
	writeCtx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
	defer cancel()
	return conn.Write(writeCtx, websocket.MessageText, data)
}

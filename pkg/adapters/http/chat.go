package http

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/aretw0/compass/pkg/runner"
	"github.com/go-chi/chi/v5/middleware"
)

// sseWriter frames runner events as server-sent events.
type sseWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

func (s *sseWriter) WriteEvent(payload any) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return s.write(b)
}

func (s *sseWriter) WriteDone() error {
	return s.write([]byte(runner.Done))
}

func (s *sseWriter) write(data []byte) error {
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", data); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

// ChatStream handles POST /chat/stream.
func (s *Server) ChatStream(w http.ResponseWriter, r *http.Request) {
	var body runner.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.logger.Warn("chat: invalid request body", "err", err)
		s.writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body"})
		return
	}
	req, err := s.Runner.Prepare(body)
	if err != nil {
		s.logger.Warn("chat: input rejected", "err", err, "size", len(body.Message))
		s.writeError(w, r, err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeJSON(w, http.StatusInternalServerError, errorBody{Error: "streaming not supported"})
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	if err := s.Runner.Stream(r.Context(), req, &sseWriter{w: w, flusher: flusher}); err != nil {
		s.logger.Warn("chat: stream ended early",
			"request_id", middleware.GetReqID(r.Context()), "err", err)
	}
}

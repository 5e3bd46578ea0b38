package handler

import (
	"io"
	"net/http"

	"go.uber.org/zap"

	"portrait-pipeline/internal/events"
)

const maxEventBody = 1 << 20

type EventHandler struct {
	dispatcher events.Handler
	log        *zap.Logger
}

func NewEventHandler(dispatcher events.Handler, log *zap.Logger) *EventHandler {
	return &EventHandler{dispatcher: dispatcher, log: log}
}

// ReceiveEvents dispatches every record of an S3 event notification
// @Summary Receive object-created notifications
// @Description Dispatch each record to the stage owning its storage path. Any failure answers 500 so the sender redelivers.
// @Tags events
// @Accept json
// @Produce json
// @Success 200 {object} map[string]interface{} "All records handled"
// @Failure 400 {object} handler.ErrorResponse "Malformed notification"
// @Failure 500 {object} handler.ErrorResponse "A stage failed"
// @Router /api/v1/events [post]
func (h *EventHandler) ReceiveEvents(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxEventBody))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Failed to read body"})
		return
	}

	evs, err := events.Decode(body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	for _, ev := range evs {
		if err := h.dispatcher.Handle(r.Context(), ev); err != nil {
			h.log.Error("stage failed",
				zap.String("bucket", ev.Bucket),
				zap.String("key", ev.Key),
				zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "Failed to process event"})
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"processed": len(evs)})
}

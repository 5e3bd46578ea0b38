package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"portrait-pipeline/internal/model"
)

// Submitter is satisfied by pipeline.RequestGateway.
type Submitter interface {
	Submit(ctx context.Context, req model.SubmitRequest) (*model.SubmitResponse, error)
}

// ResultFetcher is satisfied by pipeline.ResultGateway.
type ResultFetcher interface {
	Fetch(ctx context.Context, userID string) (*model.ResultResponse, error)
}

// StatusLookup is satisfied by pipeline.StatusReader.
type StatusLookup interface {
	Status(ctx context.Context, requestID string) (*model.StatusResponse, error)
}

type GatewayHandler struct {
	requests Submitter
	results  ResultFetcher
	status   StatusLookup
	log      *zap.Logger
}

func NewGatewayHandler(requests Submitter, results ResultFetcher, status StatusLookup, log *zap.Logger) *GatewayHandler {
	return &GatewayHandler{requests: requests, results: results, status: status, log: log}
}

// SubmitRequest starts a portrait generation
// @Summary Submit a generation request
// @Description Pick a base portrait for the theme, gender and skin tone, record the request and return a five-minute upload URL for the face photo
// @Tags images
// @Accept json
// @Produce json
// @Param request body model.SubmitRequest true "Generation request"
// @Success 200 {object} model.SubmitResponse
// @Failure 400 {object} handler.ErrorResponse "Missing or invalid field"
// @Failure 404 {object} handler.ErrorResponse "No base portrait for the combination"
// @Failure 500 {object} handler.ErrorResponse "Internal server error"
// @Router /apis/images/upload [post]
func (h *GatewayHandler) SubmitRequest(w http.ResponseWriter, r *http.Request) {
	var req model.SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Invalid JSON payload"})
		return
	}

	resp, err := h.requests.Submit(r.Context(), req)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// FetchResult returns the user's latest portrait
// @Summary Fetch the latest result
// @Description Return a five-minute download URL for the user's latest portrait with its story and attributes
// @Tags images
// @Produce json
// @Param userId path string true "User ID"
// @Success 200 {object} model.ResultResponse
// @Failure 400 {object} handler.ErrorResponse "Missing user ID"
// @Failure 404 {object} handler.ErrorResponse "User not found"
// @Failure 500 {object} handler.ErrorResponse "Internal server error"
// @Router /apis/images/{userId} [get]
func (h *GatewayHandler) FetchResult(w http.ResponseWriter, r *http.Request) {
	userID := strings.Trim(strings.TrimPrefix(r.URL.Path, "/apis/images"), "/")

	resp, err := h.results.Fetch(r.Context(), userID)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetRequestStatus reports how far a request has progressed
// @Summary Get request status
// @Description Diagnostic view of a generation request: requested, swapping, restoring or completed
// @Tags requests
// @Produce json
// @Param uuid path string true "Request ID"
// @Success 200 {object} model.StatusResponse
// @Failure 404 {object} handler.ErrorResponse "Unknown request"
// @Failure 500 {object} handler.ErrorResponse "Internal server error"
// @Router /api/v1/requests/{uuid} [get]
func (h *GatewayHandler) GetRequestStatus(w http.ResponseWriter, r *http.Request) {
	requestID := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/v1/requests"), "/")

	resp, err := h.status.Status(r.Context(), requestID)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Preflight answers bare OPTIONS requests; CORS preflights carrying
// Access-Control-Request-Method are answered by the CORS middleware.
func (h *GatewayHandler) Preflight(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// Healthz reports liveness
func Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"portrait-pipeline/internal/model"
)

type fakeGateways struct {
	submitted []model.SubmitRequest
	fetched   []string
	looked    []string
	err       error
}

func (f *fakeGateways) Submit(_ context.Context, req model.SubmitRequest) (*model.SubmitResponse, error) {
	f.submitted = append(f.submitted, req)
	if f.err != nil {
		return nil, f.err
	}
	return &model.SubmitResponse{UUID: "5f0c6a1e-2b7d-4c1e-9a57-0d1c2e3f4a5b", UploadURL: "https://gallery.s3.test/face-images/x.jpeg"}, nil
}

func (f *fakeGateways) Fetch(_ context.Context, userID string) (*model.ResultResponse, error) {
	f.fetched = append(f.fetched, userID)
	if f.err != nil {
		return nil, f.err
	}
	return &model.ResultResponse{ImageURL: "https://gallery.s3.test/result-images/x.jpeg", Story: "story", Theme: "Edo", Gender: "female", Skin: "light", UUID: "req-1", UserID: userID}, nil
}

func (f *fakeGateways) Status(_ context.Context, requestID string) (*model.StatusResponse, error) {
	f.looked = append(f.looked, requestID)
	if f.err != nil {
		return nil, f.err
	}
	return &model.StatusResponse{UUID: requestID, UserID: "user1", Status: model.StatusSwapping}, nil
}

func newTestHandler(f *fakeGateways) *GatewayHandler {
	return NewGatewayHandler(f, f, f, zap.NewNop())
}

func TestSubmitRequest(t *testing.T) {
	f := &fakeGateways{}
	h := newTestHandler(f)

	req := httptest.NewRequest(http.MethodPost, "/apis/images/upload",
		strings.NewReader(`{"userId":"user1","theme":"Edo","gender":"female","skin":"light"}`))
	rec := httptest.NewRecorder()
	h.SubmitRequest(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"uuid":"5f0c6a1e-2b7d-4c1e-9a57-0d1c2e3f4a5b","uploadUrl":"https://gallery.s3.test/face-images/x.jpeg"}`, rec.Body.String())
	require.Len(t, f.submitted, 1)
	assert.Equal(t, model.SubmitRequest{UserID: "user1", Theme: "Edo", Gender: "female", Skin: "light"}, f.submitted[0])
}

func TestSubmitRequestInvalidJSON(t *testing.T) {
	f := &fakeGateways{}
	h := newTestHandler(f)

	rec := httptest.NewRecorder()
	h.SubmitRequest(rec, httptest.NewRequest(http.MethodPost, "/apis/images/upload", strings.NewReader(`{"userId":`)))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, f.submitted)
}

func TestErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		body   string
	}{
		{"validation", &model.ValidationError{Field: "theme", Reason: "is required"}, http.StatusBadRequest, `{"error":"theme is required"}`},
		{"not found", &model.NotFoundError{Resource: "display record", Key: "user1"}, http.StatusNotFound, `{"error":"display record not found: user1"}`},
		{"wrapped validation", errors.Join(errors.New("ctx"), &model.ValidationError{Field: "skin", Reason: "is required"}), http.StatusBadRequest, `{"error":"skin is required"}`},
		{"store failure", errors.New("dynamodb: throttled"), http.StatusInternalServerError, `{"error":"Internal server error"}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newTestHandler(&fakeGateways{err: tc.err})

			rec := httptest.NewRecorder()
			h.FetchResult(rec, httptest.NewRequest(http.MethodGet, "/apis/images/user1", nil))

			assert.Equal(t, tc.status, rec.Code)
			assert.JSONEq(t, tc.body, rec.Body.String())
		})
	}
}

func TestFetchResult(t *testing.T) {
	f := &fakeGateways{}
	h := newTestHandler(f)

	rec := httptest.NewRecorder()
	h.FetchResult(rec, httptest.NewRequest(http.MethodGet, "/apis/images/user1", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"imageUrl":"https://gallery.s3.test/result-images/x.jpeg","story":"story","theme":"Edo","gender":"female","skin":"light","uuid":"req-1","userId":"user1"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	h.FetchResult(rec, httptest.NewRequest(http.MethodGet, "/apis/images/", nil))
	assert.Equal(t, []string{"user1", ""}, f.fetched)
}

func TestGetRequestStatus(t *testing.T) {
	f := &fakeGateways{}
	h := newTestHandler(f)

	rec := httptest.NewRecorder()
	h.GetRequestStatus(rec, httptest.NewRequest(http.MethodGet, "/api/v1/requests/req-1", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"swapping"`)
	assert.Equal(t, []string{"req-1"}, f.looked)
}

func TestPreflightAndHealthz(t *testing.T) {
	h := newTestHandler(&fakeGateways{})

	rec := httptest.NewRecorder()
	h.Preflight(rec, httptest.NewRequest(http.MethodOptions, "/apis/images/upload", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Body.String())

	rec = httptest.NewRecorder()
	Healthz(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

type fakeDispatcher struct {
	keys []string
	fail string
}

func (f *fakeDispatcher) Handle(_ context.Context, ev model.ObjectCreated) error {
	f.keys = append(f.keys, ev.Key)
	if ev.Key == f.fail {
		return &model.CorrelationMissError{RequestID: "req-1", ObjectKey: ev.Key}
	}
	return nil
}

const twoRecords = `{"Records":[
  {"eventName":"ObjectCreated:Put","s3":{"bucket":{"name":"gallery"},"object":{"key":"face-cropped-images/a.jpeg"}}},
  {"eventName":"ObjectCreated:Put","s3":{"bucket":{"name":"gallery"},"object":{"key":"result-images/b.jpeg"}}}
]}`

func TestReceiveEvents(t *testing.T) {
	d := &fakeDispatcher{}
	h := NewEventHandler(d, zap.NewNop())

	rec := httptest.NewRecorder()
	h.ReceiveEvents(rec, httptest.NewRequest(http.MethodPost, "/api/v1/events", strings.NewReader(twoRecords)))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"processed":2}`, rec.Body.String())
	assert.Equal(t, []string{"face-cropped-images/a.jpeg", "result-images/b.jpeg"}, d.keys)
}

func TestReceiveEventsStageFailure(t *testing.T) {
	d := &fakeDispatcher{fail: "face-cropped-images/a.jpeg"}
	core, logs := observer.New(zap.ErrorLevel)
	h := NewEventHandler(d, zap.New(core))

	rec := httptest.NewRecorder()
	h.ReceiveEvents(rec, httptest.NewRequest(http.MethodPost, "/api/v1/events", strings.NewReader(twoRecords)))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Failed to process event"}`, rec.Body.String())
	assert.NotContains(t, rec.Body.String(), "face-cropped-images")
	assert.Equal(t, []string{"face-cropped-images/a.jpeg"}, d.keys)

	entries := logs.FilterMessage("stage failed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "face-cropped-images/a.jpeg", entries[0].ContextMap()["key"])
	assert.Contains(t, entries[0].ContextMap()["error"], "no process record")
}

func TestReceiveEventsMalformed(t *testing.T) {
	h := NewEventHandler(&fakeDispatcher{}, zap.NewNop())

	rec := httptest.NewRecorder()
	h.ReceiveEvents(rec, httptest.NewRequest(http.MethodPost, "/api/v1/events", strings.NewReader(`[]`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

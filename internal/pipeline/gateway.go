package pipeline

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"portrait-pipeline/internal/model"
	"portrait-pipeline/internal/objectstore"
	"portrait-pipeline/internal/store"
	"portrait-pipeline/pkg/utils"
)

// RequestGateway accepts generation requests.
type RequestGateway struct {
	catalog   store.Catalog
	processes store.ProcessStore
	presigner objectstore.Presigner
	opts      Options
	log       *zap.Logger

	now   func() time.Time
	newID func() string
	pick  func(n int) int
}

func NewRequestGateway(catalog store.Catalog, processes store.ProcessStore, presigner objectstore.Presigner, opts Options, log *zap.Logger) *RequestGateway {
	return &RequestGateway{
		catalog:   catalog,
		processes: processes,
		presigner: presigner,
		opts:      opts.withDefaults(),
		log:       log,
		now:       time.Now,
		newID:     uuid.NewString,
		pick:      rand.Intn,
	}
}

// Submit validates req, picks a base resource for its triple, records the
// pending request and returns a presigned upload URL for the raw image.
func (g *RequestGateway) Submit(ctx context.Context, req model.SubmitRequest) (*model.SubmitResponse, error) {
	fields := []struct{ name, value string }{
		{"userId", req.UserID},
		{"theme", req.Theme},
		{"gender", req.Gender},
		{"skin", req.Skin},
	}
	for _, f := range fields {
		if err := model.CheckNameField(f.name, f.value); err != nil {
			return nil, err
		}
	}

	resources, err := g.catalog.QueryBaseResources(ctx, req.Theme, req.Gender, req.Skin)
	if err != nil {
		return nil, fmt.Errorf("query catalog: %w", err)
	}
	if len(resources) == 0 {
		return nil, &model.NotFoundError{
			Resource: "base resource",
			Key:      req.Theme + "/" + req.Gender + "/" + req.Skin,
		}
	}
	base := resources[g.pick(len(resources))]

	requestID := g.newID()
	now := g.now().UTC()
	name := model.NewObjectName(now, req.UserID, req.Theme, req.Gender, req.Skin, requestID)
	key := g.opts.Layout.Key(utils.PathRaw, name.String()+utils.Extension(g.opts.UploadContentType))

	uploadURL, err := g.presigner.PresignUpload(ctx, key, g.opts.UploadContentType, g.opts.URLTTL)
	if err != nil {
		return nil, err
	}

	rec := &model.ProcessRecord{
		RequestID:    requestID,
		UserID:       req.UserID,
		Theme:        req.Theme,
		Gender:       req.Gender,
		Skin:         req.Skin,
		BaseImageKey: base.BaseImageKey,
		BaseStory:    base.Story,
		Status:       model.StatusRequested,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := g.processes.SaveProcess(ctx, rec); err != nil {
		return nil, err
	}

	g.log.Info("request accepted",
		zap.String("uuid", requestID),
		zap.String("userId", req.UserID),
		zap.String("base", base.BaseImageKey),
		zap.String("key", key))

	return &model.SubmitResponse{UUID: requestID, UploadURL: uploadURL}, nil
}

// ResultGateway serves a user's latest completed portrait.
type ResultGateway struct {
	displays  store.DisplayStore
	presigner objectstore.Presigner
	opts      Options
}

func NewResultGateway(displays store.DisplayStore, presigner objectstore.Presigner, opts Options) *ResultGateway {
	return &ResultGateway{displays: displays, presigner: presigner, opts: opts.withDefaults()}
}

// Fetch returns a presigned download URL for the user's result plus the
// display metadata.
func (g *ResultGateway) Fetch(ctx context.Context, userID string) (*model.ResultResponse, error) {
	if userID == "" {
		return nil, &model.ValidationError{Field: "userId", Reason: "is required"}
	}

	rec, err := g.displays.GetDisplay(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, &model.NotFoundError{Resource: "display record", Key: userID}
	}
	if err != nil {
		return nil, err
	}

	imageURL, err := g.presigner.PresignDownload(ctx, rec.ResultImageKey, g.opts.URLTTL)
	if err != nil {
		return nil, err
	}

	return &model.ResultResponse{
		ImageURL: imageURL,
		Story:    rec.Story,
		Theme:    rec.Theme,
		Gender:   rec.Gender,
		Skin:     rec.Skin,
		UUID:     rec.RequestID,
		UserID:   rec.UserID,
	}, nil
}

// StatusReader exposes the diagnostic status of a request.
type StatusReader struct {
	processes store.ProcessStore
}

func NewStatusReader(processes store.ProcessStore) *StatusReader {
	return &StatusReader{processes: processes}
}

func (s *StatusReader) Status(ctx context.Context, requestID string) (*model.StatusResponse, error) {
	if requestID == "" {
		return nil, &model.ValidationError{Field: "uuid", Reason: "is required"}
	}

	rec, err := s.processes.GetProcess(ctx, requestID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, &model.NotFoundError{Resource: "request", Key: requestID}
	}
	if err != nil {
		return nil, err
	}

	status := rec.Status
	if status == "" {
		status = model.StatusRequested
	}
	return &model.StatusResponse{
		UUID:      rec.RequestID,
		UserID:    rec.UserID,
		Status:    status,
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
	}, nil
}

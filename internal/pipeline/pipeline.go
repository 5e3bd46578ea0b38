// Package pipeline holds the two synchronous gateways and the
// notification-driven stages of the portrait pipeline. Stages share no
// in-process state; everything they need is recovered from the object name
// and the correlation store.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"portrait-pipeline/internal/model"
	"portrait-pipeline/internal/store"
	"portrait-pipeline/pkg/utils"
)

// Options carries the settings shared by gateways and stages.
type Options struct {
	Bucket            string
	Layout            *utils.ObjectLayout
	URLTTL            time.Duration
	UploadContentType string
	SwapEndpoint      string
	RestoreEndpoint   string
	// SwapOutput is PathResult, or PathSwapped when a restore pass follows.
	SwapOutput utils.StoragePath
}

func (o Options) withDefaults() Options {
	if o.Layout == nil {
		o.Layout = utils.NewObjectLayout("face-images", "face-cropped-images", "face-swapped-images", "result-images")
	}
	if o.URLTTL <= 0 {
		o.URLTTL = 5 * time.Minute
	}
	if o.UploadContentType == "" {
		o.UploadContentType = "image/jpeg"
	}
	if o.SwapOutput == utils.PathUnknown {
		o.SwapOutput = utils.PathResult
	}
	return o
}

// Handler reacts to one object-created notification.
type Handler interface {
	Handle(ctx context.Context, ev model.ObjectCreated) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, ev model.ObjectCreated) error

func (f HandlerFunc) Handle(ctx context.Context, ev model.ObjectCreated) error {
	return f(ctx, ev)
}

// resolve decodes the correlation fields from key and loads the process
// record they name. A missing record is a *model.CorrelationMissError.
func resolve(ctx context.Context, processes store.ProcessStore, key string) (model.ObjectName, *model.ProcessRecord, error) {
	name, err := model.ParseObjectName(key)
	if err != nil {
		return model.ObjectName{}, nil, err
	}

	rec, err := processes.GetProcess(ctx, name.RequestID)
	if errors.Is(err, store.ErrNotFound) {
		return name, nil, &model.CorrelationMissError{RequestID: name.RequestID, ObjectKey: key}
	}
	if err != nil {
		return name, nil, fmt.Errorf("load process %s: %w", name.RequestID, err)
	}
	return name, rec, nil
}

// advance moves the request to status unless it is already there or
// further along. rec may be stale by now (a synchronous inference call can
// outlive the next stage), so the store repeats the check in its write.
// Status is diagnostic only, so failures are logged and never fail the
// stage.
func advance(ctx context.Context, processes store.ProcessStore, log *zap.Logger, rec *model.ProcessRecord, status model.RequestStatus, at time.Time) {
	if !rec.Status.Precedes(status) {
		return
	}
	if err := processes.UpdateProcessStatus(ctx, rec.RequestID, status, at); err != nil {
		log.Warn("status update failed",
			zap.String("uuid", rec.RequestID),
			zap.String("status", string(status)),
			zap.Error(err))
	}
}

func bucketOf(ev model.ObjectCreated, fallback string) string {
	if ev.Bucket != "" {
		return ev.Bucket
	}
	return fallback
}

package pipeline

import (
	"context"
	"fmt"
	"path"
	"time"

	"go.uber.org/zap"

	"portrait-pipeline/internal/inference"
	"portrait-pipeline/internal/model"
	"portrait-pipeline/internal/store"
	"portrait-pipeline/pkg/utils"
)

// CroppedKey is the key the external crop stage must write for a raw
// upload: the same file name under the cropped path.
func CroppedKey(layout *utils.ObjectLayout, rawKey string) string {
	return layout.Key(utils.PathCropped, rawKey)
}

// SwapStage forwards a cropped face to the face-swap service together
// with the base portrait chosen at submit time.
type SwapStage struct {
	processes store.ProcessStore
	invoker   inference.Invoker
	opts      Options
	log       *zap.Logger
	now       func() time.Time
}

func NewSwapStage(processes store.ProcessStore, invoker inference.Invoker, opts Options, log *zap.Logger) *SwapStage {
	return &SwapStage{
		processes: processes,
		invoker:   invoker,
		opts:      opts.withDefaults(),
		log:       log.With(zap.String("stage", "swap")),
		now:       time.Now,
	}
}

func (s *SwapStage) Handle(ctx context.Context, ev model.ObjectCreated) error {
	_, rec, err := resolve(ctx, s.processes, ev.Key)
	if err != nil {
		return err
	}

	output := s.opts.Layout.Key(s.opts.SwapOutput, path.Base(ev.Key))
	err = s.invoker.Invoke(ctx, s.opts.SwapEndpoint, inference.Request{
		UUID:   rec.RequestID,
		Bucket: bucketOf(ev, s.opts.Bucket),
		Source: ev.Key,
		Target: rec.BaseImageKey,
		Output: output,
	})
	if err != nil {
		return err
	}

	advance(ctx, s.processes, s.log, rec, model.StatusSwapping, s.now().UTC())
	s.log.Info("swap requested",
		zap.String("uuid", rec.RequestID),
		zap.String("key", ev.Key),
		zap.String("output", output))
	return nil
}

// RestoreStage runs the optional restoration pass on a swapped image and
// directs its output to the result path.
type RestoreStage struct {
	processes store.ProcessStore
	invoker   inference.Invoker
	opts      Options
	log       *zap.Logger
	now       func() time.Time
}

func NewRestoreStage(processes store.ProcessStore, invoker inference.Invoker, opts Options, log *zap.Logger) *RestoreStage {
	return &RestoreStage{
		processes: processes,
		invoker:   invoker,
		opts:      opts.withDefaults(),
		log:       log.With(zap.String("stage", "restore")),
		now:       time.Now,
	}
}

func (s *RestoreStage) Handle(ctx context.Context, ev model.ObjectCreated) error {
	_, rec, err := resolve(ctx, s.processes, ev.Key)
	if err != nil {
		return err
	}

	output := s.opts.Layout.Key(utils.PathResult, path.Base(ev.Key))
	err = s.invoker.Invoke(ctx, s.opts.RestoreEndpoint, inference.Request{
		UUID:   rec.RequestID,
		Bucket: bucketOf(ev, s.opts.Bucket),
		Source: ev.Key,
		Output: output,
	})
	if err != nil {
		return err
	}

	advance(ctx, s.processes, s.log, rec, model.StatusRestoring, s.now().UTC())
	s.log.Info("restore requested",
		zap.String("uuid", rec.RequestID),
		zap.String("key", ev.Key),
		zap.String("output", output))
	return nil
}

// CompletionStage publishes a finished portrait as the user's display
// record. Concurrent completions for one user resolve last writer wins.
type CompletionStage struct {
	processes store.ProcessStore
	displays  store.DisplayStore
	log       *zap.Logger
	now       func() time.Time
}

func NewCompletionStage(processes store.ProcessStore, displays store.DisplayStore, log *zap.Logger) *CompletionStage {
	return &CompletionStage{
		processes: processes,
		displays:  displays,
		log:       log.With(zap.String("stage", "completion")),
		now:       time.Now,
	}
}

func (s *CompletionStage) Handle(ctx context.Context, ev model.ObjectCreated) error {
	name, rec, err := resolve(ctx, s.processes, ev.Key)
	if err != nil {
		return err
	}
	if name.UserID != rec.UserID {
		s.log.Warn("object name disagrees with process record",
			zap.String("uuid", rec.RequestID),
			zap.String("nameUserId", name.UserID),
			zap.String("userId", rec.UserID))
	}

	now := s.now().UTC()
	display := &model.DisplayRecord{
		UserID:         rec.UserID,
		RequestID:      rec.RequestID,
		BaseImageKey:   rec.BaseImageKey,
		ResultImageKey: ev.Key,
		Story:          rec.BaseStory,
		Theme:          rec.Theme,
		Gender:         rec.Gender,
		Skin:           rec.Skin,
		UpdatedAt:      now,
	}
	if err := s.displays.UpsertDisplay(ctx, display); err != nil {
		return fmt.Errorf("publish result for %s: %w", rec.RequestID, err)
	}

	advance(ctx, s.processes, s.log, rec, model.StatusCompleted, now)
	s.log.Info("result published",
		zap.String("uuid", rec.RequestID),
		zap.String("userId", rec.UserID),
		zap.String("key", ev.Key))
	return nil
}

package pipeline

import (
	"context"

	"go.uber.org/zap"

	"portrait-pipeline/internal/model"
	"portrait-pipeline/pkg/utils"
)

// Dispatcher routes notifications to a stage by the storage path the
// object was written under. Only the configured bucket is served: result
// keys are later presigned against it.
type Dispatcher struct {
	bucket     string
	layout     *utils.ObjectLayout
	swap       Handler
	restore    Handler
	completion Handler
	log        *zap.Logger
}

// NewDispatcher creates a Dispatcher. restore may be nil when swap writes
// straight to the result path.
func NewDispatcher(opts Options, swap, restore, completion Handler, log *zap.Logger) *Dispatcher {
	opts = opts.withDefaults()
	return &Dispatcher{
		bucket:     opts.Bucket,
		layout:     opts.Layout,
		swap:       swap,
		restore:    restore,
		completion: completion,
		log:        log,
	}
}

func (d *Dispatcher) Handle(ctx context.Context, ev model.ObjectCreated) error {
	if ev.Bucket != "" && d.bucket != "" && ev.Bucket != d.bucket {
		d.log.Warn("notification from another bucket ignored",
			zap.String("bucket", ev.Bucket),
			zap.String("key", ev.Key))
		return nil
	}

	switch d.layout.PathOf(ev.Key) {
	case utils.PathRaw:
		// Cropping runs outside this service.
		d.log.Info("raw upload received",
			zap.String("key", ev.Key),
			zap.String("expect", CroppedKey(d.layout, ev.Key)))
		return nil
	case utils.PathCropped:
		return d.swap.Handle(ctx, ev)
	case utils.PathSwapped:
		if d.restore == nil {
			d.log.Warn("swapped object with no restore stage configured", zap.String("key", ev.Key))
			return nil
		}
		return d.restore.Handle(ctx, ev)
	case utils.PathResult:
		return d.completion.Handle(ctx, ev)
	default:
		d.log.Warn("notification outside pipeline paths", zap.String("key", ev.Key))
		return nil
	}
}

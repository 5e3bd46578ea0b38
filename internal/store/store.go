package store

import (
	"context"
	"errors"
	"time"

	"portrait-pipeline/internal/model"
)

// ErrNotFound is returned when a keyed record does not exist.
var ErrNotFound = errors.New("record not found")

// ProcessStore is the process keyspace, keyed by request id.
type ProcessStore interface {
	SaveProcess(ctx context.Context, rec *model.ProcessRecord) error
	GetProcess(ctx context.Context, requestID string) (*model.ProcessRecord, error)
	// UpdateProcessStatus only moves a record forward: a record already at
	// or past status is left untouched and nil is returned. It never
	// creates a record; it returns ErrNotFound instead.
	UpdateProcessStatus(ctx context.Context, requestID string, status model.RequestStatus, at time.Time) error
}

// DisplayStore is the display keyspace, keyed by user id.
type DisplayStore interface {
	// UpsertDisplay overwrites every field of the user's record with rec,
	// keeping the original created timestamp. A new record gets
	// CreatedAt = rec.UpdatedAt. No ordering check is made.
	UpsertDisplay(ctx context.Context, rec *model.DisplayRecord) error
	GetDisplay(ctx context.Context, userID string) (*model.DisplayRecord, error)
}

// CorrelationStore stitches asynchronous stage invocations together.
type CorrelationStore interface {
	ProcessStore
	DisplayStore
}

// Catalog holds the pre-generated base resources.
type Catalog interface {
	QueryBaseResources(ctx context.Context, theme, gender, skin string) ([]model.BaseResource, error)
	PutBaseResource(ctx context.Context, res *model.BaseResource) error
}

// Store is everything a backend provides.
type Store interface {
	CorrelationStore
	Catalog
	Close() error
}

package notifier

import (
	"context"
	"errors"
	"time"

	"github.com/aleister1102/resourcewatch/internal/models"
)

// ErrNoWebhook is returned when no webhook is configured for the target's owner.
var ErrNoWebhook = errors.New("no webhook configured for owner")

// Sink hands a materialized resource to its recipient. A nil error means the
// recipient has it; any error means it must be offered again on a later cycle.
type Sink interface {
	Deliver(ctx context.Context, target models.TargetMeta, resource models.ResourceMeta, payload models.Payload) error
}

// ChangeNotice describes a detected content change.
type ChangeNotice struct {
	Diff         string
	Truncated    bool
	LinesAdded   int
	LinesDeleted int
	NewResources int
	DetectedAt   time.Time
}

// Notifier is a Sink that can also report page changes and cycle failures.
type Notifier interface {
	Sink
	NotifyChange(ctx context.Context, target models.TargetMeta, notice ChangeNotice) error
	NotifyFailure(ctx context.Context, target models.TargetMeta, cause error) error
}

package workers

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"propsignal/metrics"
	"propsignal/models"
)

// ViewStore increments the view counter of a listing
type ViewStore interface {
	IncrementViews(ctx context.Context, id uuid.UUID) error
}

// ViewRecorder counts listing detail views off the request path. Record never
// blocks; a full buffer or a failed increment is logged and dropped.
type ViewRecorder struct {
	store   ViewStore
	ch      chan uuid.UUID
	timeout time.Duration
	logFn   LogFunc
}

func NewViewRecorder(store ViewStore, bufferSize int) *ViewRecorder {
	if bufferSize <= 0 {
		bufferSize = 256
	}
	return &ViewRecorder{
		store:   store,
		ch:      make(chan uuid.UUID, bufferSize),
		timeout: 5 * time.Second,
		logFn:   NoOpLogger,
	}
}

// SetLogger sets the activity log function
func (r *ViewRecorder) SetLogger(fn LogFunc) {
	r.logFn = fn
}

// Record queues one view. It reports false when the view was dropped.
func (r *ViewRecorder) Record(listingID uuid.UUID) bool {
	select {
	case r.ch <- listingID:
		return true
	default:
		metrics.RecordView("dropped")
		log.Printf("View recorder: buffer full, dropped view of %s", listingID)
		return false
	}
}

// Run drains queued views until ctx is cancelled
func (r *ViewRecorder) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			if n := len(r.ch); n > 0 {
				log.Printf("View recorder stopping, %d queued views discarded", n)
			} else {
				log.Println("View recorder stopping")
			}
			return
		case id := <-r.ch:
			r.increment(ctx, id)
		}
	}
}

func (r *ViewRecorder) increment(ctx context.Context, id uuid.UUID) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if err := r.store.IncrementViews(ctx, id); err != nil {
		metrics.RecordView("failed")
		log.Printf("View recorder: increment %s failed: %v", id, err)
		r.logFn(models.LogLevelWarn, "views", fmt.Sprintf("view increment for %s failed: %v", id, err))
		return
	}
	metrics.RecordView("recorded")
}

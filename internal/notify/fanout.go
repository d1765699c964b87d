package notify

import (
	"context"
	"errors"

	"server/internal/domain"
)

// Fanout sends a notification through every configured dispatcher. All
// branches are attempted; errors are joined so one slow or dead transport
// does not hide the feed append.
type Fanout struct {
	dispatchers []domain.Dispatcher
}

func NewFanout(dispatchers ...domain.Dispatcher) *Fanout {
	return &Fanout{dispatchers: dispatchers}
}

func (f *Fanout) Send(ctx context.Context, n domain.Notification) error {
	var errs []error
	for _, d := range f.dispatchers {
		if err := d.Send(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

var _ domain.Dispatcher = (*Fanout)(nil)

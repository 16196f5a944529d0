package publishers

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Fanout delivers each event to every sink concurrently. A slow webhook
// does not hold up the queue sinks.
type Fanout struct {
	publishers []Publisher
}

// NewFanout ignores nil publishers.
func NewFanout(pubs []Publisher) *Fanout {
	f := &Fanout{}
	for _, p := range pubs {
		if p != nil {
			f.publishers = append(f.publishers, p)
		}
	}
	return f
}

// Publish returns how many sinks accepted evt, with the failures of the
// others joined in sink order.
func (f *Fanout) Publish(ctx context.Context, evt Event) (int, error) {
	if f == nil || len(f.publishers) == 0 {
		return 0, nil
	}

	failures := make([]error, len(f.publishers))
	var wg sync.WaitGroup
	for i, p := range f.publishers {
		wg.Add(1)
		go func(i int, p Publisher) {
			defer wg.Done()
			if err := p.Publish(ctx, evt); err != nil {
				failures[i] = fmt.Errorf("%s publisher[%s]: %w", p.Type(), p.ID(), err)
			}
		}(i, p)
	}
	wg.Wait()

	delivered := 0
	for _, err := range failures {
		if err == nil {
			delivered++
		}
	}
	return delivered, errors.Join(failures...)
}

// Size returns the number of sinks.
func (f *Fanout) Size() int {
	if f == nil {
		return 0
	}
	return len(f.publishers)
}

// Close releases sinks that hold client resources.
func (f *Fanout) Close() error {
	if f == nil {
		return nil
	}
	return closeAll(f.publishers)
}

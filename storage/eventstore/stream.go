package eventstore

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

const subscriberBuffer = 64

// Subscribe registers a live feed of records appended after the call and
// returns the archived backlog with sequence greater than after. The backlog
// and the feed neither overlap nor leave a gap. A subscriber that falls
// behind has its channel closed and is expected to resubscribe from the last
// sequence it saw.
func (s *Store) Subscribe(ctx context.Context, after uint64) (<-chan Record, func(), []Record, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	updates := make(chan Record, subscriberBuffer)

	s.mu.Lock()
	backlog, err := s.backlogLocked(ctx, after)
	if err != nil {
		s.mu.Unlock()
		return nil, nil, nil, err
	}
	if s.subs == nil {
		s.subs = make(map[uint64]chan Record)
	}
	id := s.nextID
	s.nextID++
	s.subs[id] = updates
	s.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.mu.Lock()
			if ch, ok := s.subs[id]; ok {
				delete(s.subs, id)
				close(ch)
			}
			s.mu.Unlock()
		})
	}
	go func() {
		<-ctx.Done()
		cancel()
	}()
	return updates, cancel, backlog, nil
}

func (s *Store) backlogLocked(ctx context.Context, after uint64) ([]Record, error) {
	var backlog []Record
	for {
		var page []Record
		err := s.db.WithContext(ctx).Model(&Record{}).
			Where("sequence > ?", after).
			Order("sequence ASC").
			Limit(maxLimit).
			Find(&page).Error
		if err != nil {
			return nil, fmt.Errorf("eventstore: backlog: %w", err)
		}
		backlog = append(backlog, page...)
		if len(page) < maxLimit {
			return backlog, nil
		}
		after = page[len(page)-1].Sequence
	}
}

// publishLocked must be called with s.mu held.
func (s *Store) publishLocked(record Record) {
	for id, ch := range s.subs {
		select {
		case ch <- record:
		default:
			delete(s.subs, id)
			close(ch)
			s.logger.Warn("dropping slow event subscriber", slog.Uint64("sequence", record.Sequence))
		}
	}
}

package message

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/VanshAg283/FCS-Project/internal/domain"
)

// Delete removes a message from the relay and then from the timeline.
//
// The local entry is removed only after the relay acknowledges. A second
// Delete of the same id while the first is in flight fails with
// domain.ErrDeleteInFlight. Failed local sends are discarded instead.
func (s *Service) Delete(ctx context.Context, id domain.MessageID) error {
	if IsPending(id) {
		return s.Discard(id)
	}
	_, _, tl, err := s.snapshot()
	if err != nil {
		return err
	}

	s.mu.Lock()
	if _, busy := s.deleting[id]; busy {
		s.mu.Unlock()
		return fmt.Errorf("delete %s: %w", id, domain.ErrDeleteInFlight)
	}
	s.deleting[id] = struct{}{}
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.deleting, id)
		s.mu.Unlock()
	}()

	if err := s.relay.DeleteMessage(ctx, id); err != nil {
		s.log.Warn("delete rejected", zap.String("id", id.String()), zap.Error(err))
		return err
	}
	tl.Remove(id)
	return nil
}

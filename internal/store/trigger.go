package store

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/rileyhilliard/statuspage/internal/api"
)

// triggerAll posts one trigger per server check ran on and waits for all of
// them. Goroutines report nil to errgroup so one failure never cancels or
// hides the others.
func (s *Store) triggerAll(ctx context.Context, check api.Check) error {
	servers := s.Servers(check)
	if len(servers) == 0 {
		s.log.Debug("check %s has no server history, nothing to trigger", check.Key)
		return nil
	}

	var (
		g    errgroup.Group
		mu   sync.Mutex
		errs []error
	)
	for _, server := range servers {
		req := api.TriggerRequest{Server: server, CheckKey: check.Key, CheckType: check.Type}
		g.Go(func() error {
			if err := s.trigger(ctx, req); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	return errors.Join(errs...)
}

// services/scheduler.go
package services

import (
	"context"
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// StartRetentionScheduler runs the pending-invite sweep once at start and on
// a recurring interval after that. The returned func stops the scheduler.
func (s *InviteService) StartRetentionScheduler(ctx context.Context, interval time.Duration) (func(), error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	_, err = sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			if err := s.Sweep(ctx); err != nil {
				log.Printf("[Scheduler] Invite retention sweep failed: %v", err)
			}
		}),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		_ = sched.Shutdown()
		return nil, err
	}

	sched.Start()
	log.Printf("✅ Invite retention sweep scheduled every %s", interval)
	return func() { _ = sched.Shutdown() }, nil
}

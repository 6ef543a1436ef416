package sched

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"postbot/internal/kit"
	logx "postbot/pkg/logx"
)

var errNoRecipients = errors.New("no status recipients resolved")

// runPass executes all currently-due jobs sequentially and persists the
// store once at the end, covering every removal from this pass.
func (s *Scheduler) runPass(ctx context.Context) {
	now := s.now().In(s.loc)

	s.mu.Lock()
	defer s.mu.Unlock()

	var due []Job
	for _, j := range s.pendingLocked() {
		if !j.Due.After(now) {
			due = append(due, j)
		}
	}
	if len(due) == 0 {
		return
	}

	start := time.Now()
	ok, failed := 0, 0
	for _, job := range due {
		err := s.dispatch(ctx, job)
		// Win or lose, the job is terminal: remove it and its media.
		// No retry, no dead-letter record.
		delete(s.index, job.ID)
		s.removeMedia(job)
		if err != nil {
			failed++
			s.log.Error("job delivery failed; job discarded",
				logx.Uint64("id", job.ID), logx.String("kind", string(job.Kind)),
				logx.Err(err))
			continue
		}
		ok++
		s.log.Info("job dispatched",
			logx.Uint64("id", job.ID), logx.String("kind", string(job.Kind)))
	}
	s.persistLocked(ctx)

	s.log.Info("evaluation pass done",
		logx.Int("dispatched", ok), logx.Int("failed", failed),
		logx.Int("pending", len(s.index)),
		logx.Duration("took", time.Since(start)))
}

// dispatch resolves the target and invokes the delivery interface once,
// bounded by the configured per-call timeout and the shared rate limiter.
func (s *Scheduler) dispatch(ctx context.Context, job Job) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, s.cfg.DeliveryTimeout)
	defer cancel()

	var to kit.Target
	if job.Kind.IsStatus() {
		if s.contacts == nil {
			return errors.New("no contact directory configured for status jobs")
		}
		recipients, err := s.contacts.ResolveStatusRecipients(ctx)
		if err != nil {
			return fmt.Errorf("resolve status recipients: %w", err)
		}
		if len(recipients) == 0 {
			return errNoRecipients
		}
		to = kit.Target{Recipients: recipients}
	} else {
		to = kit.Target{Chat: job.Chat}
	}

	if mk, media := job.Kind.MediaKind(); media {
		return s.delivery.SendMedia(ctx, to, job.MediaPath, job.Caption, mk)
	}
	return s.delivery.SendText(ctx, to, job.Text)
}

func (s *Scheduler) removeMedia(job Job) {
	if job.MediaPath == "" {
		return
	}
	if err := os.Remove(job.MediaPath); err != nil && !os.IsNotExist(err) {
		s.log.Warn("removing staged media failed",
			logx.Uint64("id", job.ID), logx.String("path", job.MediaPath), logx.Err(err))
	}
}

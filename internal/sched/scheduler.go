package sched

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/time/rate"

	"postbot/internal/kit"
	logx "postbot/pkg/logx"
)

// Config controls one scheduler instance.
type Config struct {
	Name            string // "messages" or "status"; used in logs
	Timezone        string // IANA TZ, e.g. "Asia/Jakarta"; empty = local
	TickInterval    time.Duration
	StartupDelay    time.Duration
	DeliveryTimeout time.Duration
	RatePerSec      int

	// Kinds restricts what this instance accepts at Schedule time.
	// Empty means all kinds. An instance without a contact directory must
	// not accept status kinds: such jobs would be doomed at dispatch.
	Kinds []Kind
}

func (c Config) accepts(k Kind) bool {
	if len(c.Kinds) == 0 {
		return true
	}
	for _, allowed := range c.Kinds {
		if k == allowed {
			return true
		}
	}
	return false
}

func (c Config) withDefaults() Config {
	if c.TickInterval <= 0 {
		c.TickInterval = 60 * time.Second
	}
	if c.StartupDelay <= 0 {
		c.StartupDelay = 5 * time.Second
	}
	if c.DeliveryTimeout <= 0 {
		c.DeliveryTimeout = 30 * time.Second
	}
	if c.RatePerSec <= 0 {
		c.RatePerSec = 10
	}
	return c
}

// Scheduler owns the pending-job index, the id allocator, and the periodic
// clock for one job family. All index access, command-surface calls and
// evaluation passes alike, serializes on mu.
type Scheduler struct {
	mu sync.Mutex

	cfg      Config
	loc      *time.Location
	log      logx.Logger
	store    Store
	delivery kit.Delivery
	contacts kit.Contacts

	index   map[uint64]Job
	ids     *idAllocator
	limiter *rate.Limiter

	// passMu guards the evaluation pass: a tick that arrives while a pass
	// is still running is skipped, and Stop drains the in-flight pass.
	passMu sync.Mutex

	c       *cron.Cron
	startup *time.Timer
	runCtx  context.Context
	running bool

	now func() time.Time // test seam
}

// New builds a scheduler and recovers its state from the store: overdue
// records are dropped (never re-enqueued), the allocator resumes above the
// highest id ever read.
func New(cfg Config, store Store, delivery kit.Delivery, contacts kit.Contacts, log logx.Logger) (*Scheduler, error) {
	cfg = cfg.withDefaults()
	if store == nil {
		return nil, errors.New("store is required")
	}
	if delivery == nil {
		return nil, errors.New("delivery is required")
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	if cfg.Name != "" {
		log = log.With(logx.String("sched", cfg.Name))
	}

	loc := time.Local
	if tz := strings.TrimSpace(cfg.Timezone); tz != "" {
		var err error
		loc, err = time.LoadLocation(tz)
		if err != nil {
			return nil, fmt.Errorf("load timezone %q: %w", tz, err)
		}
	}

	s := &Scheduler{
		cfg:      cfg,
		loc:      loc,
		log:      log,
		store:    store,
		delivery: delivery,
		contacts: contacts,
		index:    make(map[uint64]Job),
		limiter:  rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.RatePerSec),
		now:      time.Now,
	}

	if err := s.restore(context.Background()); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Scheduler) restore(ctx context.Context) error {
	loaded, maxSeen, err := s.store.Load(ctx)
	if err != nil {
		// Start empty rather than refusing to start.
		s.log.Error("job store load failed; starting with empty state", logx.Err(err))
		loaded, maxSeen = nil, 0
	}

	now := s.now().In(s.loc)
	dropped := 0
	for _, j := range loaded {
		if !j.Kind.Valid() {
			s.log.Warn("dropping job with unknown kind from store",
				logx.Uint64("id", j.ID), logx.String("kind", string(j.Kind)))
			dropped++
			continue
		}
		if !j.Due.After(now) {
			// Policy: overdue-on-restart jobs are discarded, not fired.
			s.log.Warn("dropping overdue job from store",
				logx.Uint64("id", j.ID), logx.String("kind", string(j.Kind)),
				logx.Time("due", j.Due))
			dropped++
			continue
		}
		s.index[j.ID] = j
	}
	s.ids = newIDAllocator(maxSeen)

	if dropped > 0 {
		s.persistLocked(ctx)
	}
	s.log.Info("job store loaded",
		logx.Int("pending", len(s.index)), logx.Int("dropped", dropped),
		logx.Uint64("max_id", maxSeen))
	return nil
}

// Start arms the clock: one fire StartupDelay after the call (catches jobs
// that became due while the process was down), then every TickInterval.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true

	// Passes must survive app-context cancellation: an interrupted delivery
	// would still count as dispatched and drop the job. Shutdown instead
	// drains the in-flight pass via Stop.
	s.runCtx = context.WithoutCancel(ctx)

	s.c = cron.New(cron.WithLocation(s.loc))
	_, err := s.c.AddFunc(fmt.Sprintf("@every %s", s.cfg.TickInterval), s.tick)
	if err != nil {
		// "@every <duration>" with a positive duration cannot fail to parse.
		s.log.Error("arming clock failed", logx.Err(err))
		return
	}
	s.c.Start()
	s.startup = time.AfterFunc(s.cfg.StartupDelay, s.tick)

	s.log.Info("scheduler started",
		logx.Duration("tick", s.cfg.TickInterval),
		logx.Duration("startup_delay", s.cfg.StartupDelay),
		logx.String("tz", s.loc.String()),
		logx.Int("pending", len(s.index)))
}

// Stop disarms the clock and waits for the in-flight evaluation pass, if
// any, so shutdown never races a store save.
func (s *Scheduler) Stop(ctx context.Context) {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	c := s.c
	startup := s.startup
	s.c = nil
	s.startup = nil
	s.mu.Unlock()

	if startup != nil {
		startup.Stop()
	}
	if c != nil {
		select {
		case <-c.Stop().Done():
		case <-ctx.Done():
		}
	}
	// Drain the startup-timer pass too; cron only waits for its own jobs.
	s.passMu.Lock()
	s.passMu.Unlock()

	s.log.Info("scheduler stopped")
}

// tick runs one evaluation pass. Overlapping ticks are skipped, not queued.
func (s *Scheduler) tick() {
	if !s.passMu.TryLock() {
		s.log.Debug("evaluation pass still running; skipping tick")
		return
	}
	defer s.passMu.Unlock()

	// A startup-timer callback can be invoked just as Stop runs: Timer.Stop
	// does not wait for an in-flight callback, and Stop's drain only covers
	// passes that already hold passMu. Re-check under mu so a late tick
	// never delivers against closed stores.
	s.mu.Lock()
	running := s.running
	ctx := s.runCtx
	s.mu.Unlock()
	if !running {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	s.runPass(ctx)
}

// Schedule validates the request, allocates an id, persists, and returns
// the id. The due time must be strictly in the future in the configured
// zone.
func (s *Scheduler) Schedule(ctx context.Context, req Request) (uint64, error) {
	now := s.now().In(s.loc)
	req.Due = req.Due.In(s.loc)
	if err := req.validate(now); err != nil {
		return 0, err
	}
	if !s.cfg.accepts(req.Kind) {
		return 0, fmt.Errorf("scheduler %q does not accept %s jobs", s.cfg.Name, req.Kind)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.ids.Next()
	job := req.job(id, now)
	s.index[id] = job
	s.persistLocked(ctx)

	s.log.Info("job scheduled",
		logx.Uint64("id", id), logx.String("kind", string(job.Kind)),
		logx.Time("due", job.Due))
	return id, nil
}

// Cancel removes a pending job and deletes its staged media.
// Returns ErrNotFound for unknown ids.
func (s *Scheduler) Cancel(ctx context.Context, id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.index[id]
	if !ok {
		return ErrNotFound
	}
	s.removeMedia(job)
	delete(s.index, id)
	s.persistLocked(ctx)

	s.log.Info("job cancelled", logx.Uint64("id", id), logx.String("kind", string(job.Kind)))
	return nil
}

// Get returns a copy of a pending job.
func (s *Scheduler) Get(id uint64) (Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.index[id]
	if !ok {
		return Job{}, ErrNotFound
	}
	return job, nil
}

// List returns copies of all pending jobs ordered by ascending due time.
func (s *Scheduler) List() []Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pendingLocked()
}

func (s *Scheduler) pendingLocked() []Job {
	out := make([]Job, 0, len(s.index))
	for _, j := range s.index {
		out = append(out, j)
	}
	sort.Slice(out, func(i, k int) bool {
		if out[i].Due.Equal(out[k].Due) {
			return out[i].ID < out[k].ID
		}
		return out[i].Due.Before(out[k].Due)
	})
	return out
}

// persistLocked saves the current pending set. On failure the in-memory
// state stays authoritative; the error is logged, not propagated.
func (s *Scheduler) persistLocked(ctx context.Context) {
	if err := s.store.Save(ctx, s.pendingLocked()); err != nil {
		s.log.Error("persisting jobs failed; in-memory state remains authoritative", logx.Err(err))
	}
}

// Package app wires config, logging, storage, delivery, and the two
// scheduler instances (message jobs and status jobs) into one process.
package app

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	"postbot/internal/adapters/telegram"
	"postbot/internal/config"
	"postbot/internal/kit"
	"postbot/internal/sched"
	logx "postbot/pkg/logx"
)

type App struct {
	cfgPath string

	logs *logx.Service
	log  logx.Logger

	stager   *kit.SpoolStager
	delivery kit.Delivery
	contacts *staticContacts

	msgStore sched.Store
	stStore  sched.Store
	messages *sched.Scheduler
	status   *sched.Scheduler
}

func New(cfgPath string) (*App, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}

	logSvc, log := logx.New(logCfg(cfg.Logging))
	log = log.With(logx.String("comp", "app"))

	a := &App{cfgPath: cfgPath, logs: logSvc, log: log}
	if err := a.build(cfg); err != nil {
		a.closeStores()
		_ = logSvc.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) build(cfg *config.Config) error {
	delivery, err := telegram.New(telegram.Config{Token: cfg.Telegram.Token},
		a.logs.Logger().With(logx.String("comp", "telegram")))
	if err != nil {
		return err
	}
	a.delivery = delivery

	spool := strings.TrimSpace(cfg.Media.SpoolDir)
	if spool == "" {
		spool = "./data/media-spool"
	}
	a.stager, err = kit.NewSpoolStager(spool)
	if err != nil {
		return fmt.Errorf("media spool: %w", err)
	}

	a.contacts = newStaticContacts(cfg.StatusRecipients)

	schedCfg, err := schedulerConfig(cfg)
	if err != nil {
		return err
	}
	busy, err := config.ParseDurationField("storage.busy_timeout", cfg.Storage.BusyTimeout)
	if err != nil {
		return err
	}

	schedLog := a.logs.Logger().With(logx.String("comp", "sched"))

	a.msgStore, err = sched.OpenStore(sched.StoreConfig{
		Driver:      cfg.Storage.Driver,
		Path:        storePath(cfg.Storage.Driver, cfg.Storage.MessagePath, "messages"),
		BusyTimeout: busy,
	}, schedLog)
	if err != nil {
		return fmt.Errorf("message store: %w", err)
	}
	a.stStore, err = sched.OpenStore(sched.StoreConfig{
		Driver:      cfg.Storage.Driver,
		Path:        storePath(cfg.Storage.Driver, cfg.Storage.StatusPath, "status"),
		BusyTimeout: busy,
	}, schedLog)
	if err != nil {
		return fmt.Errorf("status store: %w", err)
	}

	msgCfg := schedCfg
	msgCfg.Name = "messages"
	msgCfg.Kinds = []sched.Kind{sched.KindTextMessage}
	a.messages, err = sched.New(msgCfg, a.msgStore, a.delivery, nil, schedLog)
	if err != nil {
		return err
	}

	stCfg := schedCfg
	stCfg.Name = "status"
	stCfg.Kinds = []sched.Kind{sched.KindStatusText, sched.KindStatusImage, sched.KindStatusVideo}
	a.status, err = sched.New(stCfg, a.stStore, a.delivery, a.contacts, schedLog)
	if err != nil {
		return err
	}
	return nil
}

func (a *App) Start(ctx context.Context) error {
	a.messages.Start(ctx)
	a.status.Start(ctx)

	go func() {
		if err := config.Watch(ctx, a.cfgPath, a.log, a.apply); err != nil {
			a.log.Warn("config watch stopped", logx.Err(err))
		}
	}()

	if _, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
		a.log.Debug("sd_notify ready failed", logx.Err(err))
	}
	a.log.Info("postbot started")
	return nil
}

func (a *App) Stop(ctx context.Context) error {
	if _, err := daemon.SdNotify(false, daemon.SdNotifyStopping); err != nil {
		a.log.Debug("sd_notify stopping failed", logx.Err(err))
	}
	a.messages.Stop(ctx)
	a.status.Stop(ctx)
	a.closeStores()
	a.log.Info("postbot stopped")
	return a.logs.Close()
}

// apply handles config hot reload. Only the knobs that are safe to swap at
// runtime are applied: log level/sinks and the status recipient list.
// Interval and storage changes need a restart.
func (a *App) apply(cfg *config.Config) {
	a.logs.Apply(logCfg(cfg.Logging))
	a.contacts.set(cfg.StatusRecipients)
}

// Messages is the scheduler for direct-chat message jobs.
func (a *App) Messages() *sched.Scheduler { return a.messages }

// Status is the scheduler for status-broadcast jobs.
func (a *App) Status() *sched.Scheduler { return a.status }

// Stager stages inbound media for media jobs.
func (a *App) Stager() kit.Stager { return a.stager }

func (a *App) closeStores() {
	if a.msgStore != nil {
		_ = a.msgStore.Close()
	}
	if a.stStore != nil {
		_ = a.stStore.Close()
	}
}

func logCfg(l config.LoggingConfig) logx.Config {
	return logx.Config{
		Level:   l.Level,
		Console: l.ConsoleEnabled(),
		File: logx.FileConfig{
			Enabled:    l.File.Enabled,
			Path:       l.File.Path,
			MaxSizeMB:  l.File.MaxSizeMB,
			MaxBackups: l.File.MaxBackups,
			MaxAgeDays: l.File.MaxAgeDays,
		},
	}
}

func schedulerConfig(cfg *config.Config) (sched.Config, error) {
	tick, err := config.ParseDurationOrDefault("scheduler.tick_interval", cfg.Scheduler.TickInterval, 60*time.Second)
	if err != nil {
		return sched.Config{}, err
	}
	delay, err := config.ParseDurationOrDefault("scheduler.startup_delay", cfg.Scheduler.StartupDelay, 5*time.Second)
	if err != nil {
		return sched.Config{}, err
	}
	timeout, err := config.ParseDurationOrDefault("scheduler.delivery_timeout", cfg.Scheduler.DeliveryTimeout, 30*time.Second)
	if err != nil {
		return sched.Config{}, err
	}
	return sched.Config{
		Timezone:        cfg.Timezone,
		TickInterval:    tick,
		StartupDelay:    delay,
		DeliveryTimeout: timeout,
		RatePerSec:      cfg.Scheduler.RatePerSec,
	}, nil
}

func storePath(driver, explicit, name string) string {
	if p := strings.TrimSpace(explicit); p != "" {
		return p
	}
	ext := ".json"
	if d := strings.ToLower(strings.TrimSpace(driver)); d == "sqlite" || d == "sqlite3" {
		ext = ".db"
	}
	return filepath.Join("./data", name+ext)
}

// staticContacts resolves status recipients from the config file. The list
// is swappable at runtime via config hot reload.
type staticContacts struct {
	mu         sync.RWMutex
	recipients []string
}

func newStaticContacts(recipients []string) *staticContacts {
	c := &staticContacts{}
	c.set(recipients)
	return c
}

func (c *staticContacts) set(recipients []string) {
	cleaned := make([]string, 0, len(recipients))
	for _, r := range recipients {
		if r = strings.TrimSpace(r); r != "" {
			cleaned = append(cleaned, r)
		}
	}
	c.mu.Lock()
	c.recipients = cleaned
	c.mu.Unlock()
}

func (c *staticContacts) ResolveStatusRecipients(context.Context) ([]string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, len(c.recipients))
	copy(out, c.recipients)
	return out, nil
}

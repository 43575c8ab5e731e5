package app

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"periodic/internal/config"
	"periodic/internal/eventbus"
	"periodic/internal/observability/status"
	"periodic/internal/runtime/supervisor"
	"periodic/internal/storage"
	"periodic/internal/unitctl"
	logx "periodic/pkg/logx"
	"periodic/pkg/period"
	"periodic/pkg/planner"
)

// App wires config, logging, the fire journal and the planner into a daemon.
type App struct {
	cfgPath string

	cfgm *config.ConfigManager
	sup  *supervisor.Supervisor
	stop context.CancelFunc

	log   logx.Logger
	logs  *logx.Service
	bus   eventbus.Bus
	store storage.Store
	plan  *planner.Planner

	mu   sync.Mutex
	jobs map[string]string // name -> planner job id

	unitMu sync.Mutex
	units  *unitctl.Controller

	statusAddr string
}

func NewApp(cfgPath string) (*App, error) {
	cfgm := config.NewConfigManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}

	logSvc, log := logx.NewService(mapLoggingConfig(cfg))
	log = log.With(logx.String("comp", "app"))

	bus := eventbus.New()

	// Storage (optional)
	var store storage.Store
	if sc, enabled, err := mapStorageConfig(cfg); err != nil {
		_ = logSvc.Close()
		return nil, err
	} else if enabled {
		st, err := storage.Open(sc, logSvc.Logger())
		if err != nil {
			_ = logSvc.Close()
			return nil, err
		}
		store = st
		log.Info("storage enabled", logx.String("driver", sc.Driver))
	}

	popts, err := mapPlannerOptions(cfg)
	if err != nil {
		if store != nil {
			_ = store.Close()
		}
		_ = logSvc.Close()
		return nil, err
	}
	popts = append(popts,
		planner.WithLogger(logSvc.Logger().With(logx.String("comp", "planner"))),
		planner.WithBus(bus),
	)

	return &App{
		cfgPath: cfgPath,
		cfgm:    cfgm,
		log:     log,
		logs:    logSvc,
		bus:     bus,
		store:   store,
		plan:    planner.New(popts...),
		jobs:    map[string]string{},
	}, nil
}

// Planner exposes the running planner for diagnostics.
func (a *App) Planner() *planner.Planner { return a.plan }

// StatusAddr is the bound address of the status server, or "".
func (a *App) StatusAddr() string { return a.statusAddr }

// Done is closed when the app run context is canceled.
func (a *App) Done() <-chan struct{} {
	if a.sup == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return a.sup.Context().Done()
}

// Err returns the first error observed by the supervisor (if any).
func (a *App) Err() error {
	if a.sup == nil {
		return nil
	}
	return a.sup.Err()
}

// Start registers every configured job and starts the background loops.
func (a *App) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	a.stop = cancel
	a.sup = supervisor.New(runCtx, supervisor.WithLogger(a.log))
	a.cfgm.SetLogger(a.logs.Logger().With(logx.String("comp", "config")))
	cfg := a.cfgm.Get()

	// Subscribe before the first Add so no firing escapes the journal.
	if a.store != nil {
		events, unsub := a.bus.Subscribe(256)
		a.sup.Go0("journal", func(c context.Context) {
			defer unsub()
			a.journal(c, events)
		})
	}
	if a.log.Enabled(logx.LevelTrace) {
		events, unsub := a.bus.Subscribe(128)
		a.sup.Go0("eventbus.log", func(c context.Context) {
			defer unsub()
			for {
				select {
				case <-c.Done():
					return
				case e, ok := <-events:
					if !ok {
						return
					}
					a.log.Trace("event", logx.String("type", e.Type), logx.Time("time", e.Time))
				}
			}
		})
	}

	if hc, enabled := mapHTTPConfig(cfg); enabled {
		srv := status.New(hc, a.plan, a.sup, a.logs.Logger().With(logx.String("comp", "status")))
		if err := srv.Listen(); err != nil {
			cancel()
			return fmt.Errorf("status server: %w", err)
		}
		a.statusAddr = srv.Addr()
		a.sup.Go("status.serve", func(c context.Context) error {
			err := srv.Serve(c)
			if err != nil {
				a.log.Error("status server failed", logx.Err(err))
				cancel()
			}
			return err
		})
	}

	added, err := a.addJobs(runCtx, cfg.Jobs)
	if err != nil {
		cancel()
		return err
	}
	a.plan.Start()

	sub := a.cfgm.Subscribe(8)
	a.sup.Go0("config.reload", func(c context.Context) {
		defer a.cfgm.Unsubscribe(sub)
		a.reloadLoop(c, sub, cfg)
	})
	a.sup.Go("config.watch", func(c context.Context) error {
		return a.cfgm.Watch(c)
	})

	a.log.Info("app started", logx.Int("jobs", added), logx.String("config", a.cfgPath))
	return nil
}

// addJobs registers jobs not registered yet. Names already known are skipped.
func (a *App) addJobs(ctx context.Context, jobs []config.JobConfig) (int, error) {
	n := 0
	for _, jc := range jobs {
		name := strings.TrimSpace(jc.Name)
		a.mu.Lock()
		_, known := a.jobs[name]
		a.mu.Unlock()
		if known {
			continue
		}

		sched, err := period.Parse(jc.Schedule)
		if err != nil {
			return n, fmt.Errorf("job %q: schedule: %w", name, err)
		}
		act, err := newAction(ctx, jc, a.logs.Logger().With(logx.String("comp", "job")), a.unitController)
		if err != nil {
			return n, err
		}
		id, err := a.plan.AddNamed(name, func() {
			// Firings after Stop are dropped.
			if ctx.Err() != nil {
				return
			}
			act()
		}, sched)
		if err != nil {
			return n, fmt.Errorf("job %q: %w", name, err)
		}

		a.mu.Lock()
		a.jobs[name] = id
		a.mu.Unlock()
		n++
		a.log.Debug("job registered", logx.String("job", name), logx.String("id", id), logx.String("schedule", jc.Schedule))
	}
	return n, nil
}

// unitController dials systemd on the first unit job firing and shares the
// connection afterwards. A failed dial is retried on the next firing.
func (a *App) unitController(ctx context.Context) (unitRunner, error) {
	a.unitMu.Lock()
	defer a.unitMu.Unlock()
	if a.units != nil {
		return a.units, nil
	}
	ctl, err := unitctl.Dial(ctx)
	if err != nil {
		return nil, err
	}
	a.units = ctl
	a.log.Debug("connected to systemd")
	return ctl, nil
}

// journal appends one record per firing. Storage errors are logged and never
// reach the planner.
func (a *App) journal(ctx context.Context, events <-chan eventbus.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			if e.Type != eventbus.TypeJobFired {
				continue
			}
			f, ok := e.Data.(planner.Firing)
			if !ok {
				continue
			}
			wctx, cancel := context.WithTimeout(ctx, 2*time.Second)
			err := a.store.AppendFire(wctx, storage.FireRecord{
				At:         f.Fired,
				JobID:      f.ID,
				Job:        f.Name,
				Occurrence: f.Occurrence,
				Due:        f.Due,
				LateMS:     f.Late.Milliseconds(),
			})
			cancel()
			if err != nil {
				a.log.Warn("journal append failed", logx.String("job", f.Name), logx.Err(err))
			}
		}
	}
}

func (a *App) reloadLoop(ctx context.Context, sub chan *config.Config, lastApplied *config.Config) {
	for {
		select {
		case <-ctx.Done():
			return
		case newCfg, ok := <-sub:
			if !ok {
				return
			}
			// Coalesce bursts: keep only the latest config in the channel.
		drain:
			for {
				select {
				case newer := <-sub:
					if newer != nil {
						newCfg = newer
					}
				default:
					break drain
				}
			}
			a.apply(ctx, lastApplied, newCfg)
			lastApplied = newCfg
		}
	}
}

// apply is the live part of a config reload. Jobs can only be added: a
// registered job runs until its schedule is exhausted.
func (a *App) apply(ctx context.Context, oldCfg, newCfg *config.Config) {
	sections, attrs, jd := config.SummarizeConfigChange(oldCfg, newCfg)
	if len(sections) == 0 {
		a.log.Info("config reloaded (no changes)")
		return
	}
	fields := append([]logx.Field{logx.String("changed", strings.Join(sections, ","))}, attrs...)
	a.log.Debug("config change summary", fields...)

	for _, s := range sections {
		switch s {
		case "logging":
			a.logs.Apply(mapLoggingConfig(newCfg))
		case "storage", "planner", "http":
			a.log.Warn(s + " config changed; restart required for changes to take effect")
		}
	}

	if len(jd.Removed) > 0 || len(jd.Changed) > 0 {
		a.log.Warn("registered jobs cannot be removed or changed; restart required",
			logx.Any("removed", jd.Removed), logx.Any("changed", jd.Changed))
	}
	if len(jd.Added) > 0 {
		want := make(map[string]bool, len(jd.Added))
		for _, n := range jd.Added {
			want[n] = true
		}
		var fresh []config.JobConfig
		for _, jc := range newCfg.Jobs {
			if want[strings.TrimSpace(jc.Name)] {
				fresh = append(fresh, jc)
			}
		}
		n, err := a.addJobs(ctx, fresh)
		if err != nil {
			a.log.Warn("adding jobs from reloaded config failed", logx.Err(err), logx.Int("added", n))
		} else {
			a.log.Info("jobs added from reloaded config", logx.Any("jobs", jd.Added))
		}
	}

	a.log.Info("config reloaded", fields...)
}

// Stop cancels the run context, waits for background loops and closes the
// journal. Jobs stay queued in the planner but their firings are dropped.
func (a *App) Stop(ctx context.Context, reason StopReason) error {
	if a.sup == nil {
		return nil
	}
	a.log.Info("stopping", logx.String("reason", string(reason)))
	a.stop()

	step := func(name string, max time.Duration, fn func(context.Context) error) {
		start := time.Now()
		stepCtx, cancel := context.WithTimeout(ctx, max)
		defer cancel()
		if err := fn(stepCtx); err != nil {
			a.log.Warn("stop step error", logx.String("name", name), logx.Err(err))
		}
		a.log.Debug("stop step end", logx.String("name", name), logx.Duration("took", time.Since(start)))
	}

	step("supervisor", 2*time.Second, func(c context.Context) error { return a.sup.Wait(c) })
	step("units", time.Second, func(context.Context) error {
		a.unitMu.Lock()
		defer a.unitMu.Unlock()
		if a.units == nil {
			return nil
		}
		err := a.units.Close()
		a.units = nil
		return err
	})
	step("storage", time.Second, func(context.Context) error {
		if a.store != nil {
			return a.store.Close()
		}
		return nil
	})

	snap := a.plan.Snapshot()
	a.log.Info("stopped", logx.Uint64("fired", snap.Fired), logx.Uint64("late", snap.Late), logx.Int("queued", snap.Queued))
	if a.logs != nil {
		_ = a.logs.Close()
	}
	return nil
}

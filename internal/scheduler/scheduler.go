package scheduler

import (
	"context"
	"log/slog"
	"time"

	"hnwatch/internal/notifier"
	"hnwatch/internal/store"

	"github.com/robfig/cron/v3"
)

const (
	Timezone              = "UTC"
	TimezoneOffsetSeconds = 0
	checkTimeout          = 5 * time.Minute
)

// Scheduler runs the periodic background work: the notification check
// for new matching articles and a feed refresh to keep the cache warm.
// It makes no decisions itself; the check and refresh are bounded
// operations that stay safe to fire on any cadence.
type Scheduler struct {
	ctx      context.Context
	cron     *cron.Cron
	store    *store.Store
	notifier *notifier.Notifier
	cronSpec string
	log      *slog.Logger
}

func New(
	ctx context.Context,
	st *store.Store,
	n *notifier.Notifier,
	cronSpec string,
	log *slog.Logger,
) *Scheduler {
	c := cron.New(cron.WithLocation(time.FixedZone(Timezone, TimezoneOffsetSeconds)))

	return &Scheduler{
		ctx:      ctx,
		cron:     c,
		store:    st,
		notifier: n,
		cronSpec: cronSpec,
		log:      log,
	}
}

func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.cronSpec, s.check); err != nil {
		return err
	}

	s.cron.Start()

	return nil
}

func (s *Scheduler) Stop() {
	s.cron.Stop()
}

func (s *Scheduler) check() {
	ctx, cancel := context.WithTimeout(s.ctx, checkTimeout)
	defer cancel()

	select {
	case <-ctx.Done():
		s.log.InfoContext(ctx, "Scheduler context is done",
			"error", ctx.Err())
		return
	default:
	}

	// The notifier consumes the last-seen marker before the store
	// refresh advances anything, so the delta detection stays intact.
	s.notifier.CheckForNewArticles(ctx)

	if ctx.Err() != nil {
		s.log.InfoContext(ctx, "Scheduler context is done",
			"error", ctx.Err())
		return
	}

	s.store.Load(ctx)
}

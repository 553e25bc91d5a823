package scheduler

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// Runner repeats a job on a cron schedule (with a seconds field). A run
// that is still going when the next tick fires makes that tick skip.
type Runner struct {
	cron    *cron.Cron
	baseCtx context.Context
}

func New(baseCtx context.Context) *Runner {
	if baseCtx == nil {
		baseCtx = context.Background()
	}
	return &Runner{
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
		),
		baseCtx: baseCtx,
	}
}

func (r *Runner) Add(spec string, job func(context.Context)) error {
	if _, err := r.cron.AddFunc(spec, func() { job(r.baseCtx) }); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", spec, err)
	}
	return nil
}

// Run starts the schedule and blocks until the base context is done, then
// waits for a running job to finish.
func (r *Runner) Run() {
	r.cron.Start()
	log.Info().Int("entries", len(r.cron.Entries())).Msg("scheduler started")

	<-r.baseCtx.Done()
	<-r.cron.Stop().Done()
	log.Info().Msg("scheduler stopped")
}

// Validate reports whether spec parses as a schedule with seconds.
func Validate(spec string) error {
	p := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	_, err := p.Parse(spec)
	return err
}

// Package scheduler drives automated report runs on a cron schedule.
package scheduler

import (
	"context"
	"errors"

	"github.com/sudoom/webtlo/database"
	"github.com/sudoom/webtlo/engine"
	"github.com/sudoom/webtlo/logging"
	"github.com/sudoom/webtlo/models"

	"github.com/robfig/cron/v3"
)

// Scheduler owns the cron instance running the engine.
type Scheduler struct {
	cron *cron.Cron
}

// Start schedules report runs according to the automation settings and
// starts the cron loop. The automation flag is re-checked on every
// tick, so a disabled schedule skips silently without restarting the
// process.
func Start(cfg *models.Config, eng *engine.Engine) (*Scheduler, error) {
	c := cron.New()

	spec := cfg.Automation.CronSpec
	_, err := c.AddFunc(spec, func() {
		if !cfg.Automation.SendReports {
			logging.Notice().Msg("automatic report sending is disabled in the settings")
			return
		}
		RunOnce(context.Background(), eng)
	})
	if err != nil {
		return nil, err
	}

	c.Start()
	logging.Info().Str("spec", spec).Msg("report schedule started")
	return &Scheduler{cron: c}, nil
}

// Stop stops the cron loop, waiting for a running job to finish.
func (s *Scheduler) Stop() {
	if s.cron != nil {
		<-s.cron.Stop().Done()
		logging.Info().Msg("report schedule stopped")
	}
}

// RunOnce executes a single synchronization run and logs its outcome.
// The early aborts (too soon after the previous send, missing required
// settings) are reported at the severity they deserve and never crash
// the process.
func RunOnce(ctx context.Context, eng *engine.Engine) {
	result, err := eng.Run(ctx)
	switch {
	case errors.Is(err, database.ErrSendTooSoon):
		logging.Info().Err(err).Msg("report run skipped")
	case errors.Is(err, engine.ErrPrecondition):
		logging.Error().Err(err).Msg("report run aborted")
	case err != nil:
		logging.Error().Err(err).Msg("report run failed")
	default:
		logging.Debug().Int("api_reports", result.APIReportCount).
			Int("forum_reports", result.ForumReportCount).Msg("report run finished")
	}
}

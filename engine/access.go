package engine

import (
	"context"
	"time"

	"github.com/sudoom/webtlo/logging"
)

// DefaultRevolutionDate is the built-in forum posting cutoff: from this
// date on, keeping lists live in the reports API only and forum posting
// must stop. Overridable through reports.revolution_date.
var DefaultRevolutionDate = time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)

// revolutionWarningWindow is how long before the cutoff a warning is
// emitted while forum posting still works.
const revolutionWarningWindow = 30 * 24 * time.Hour

// Access is the effective run mode the gatekeeper computed. Every
// downstream component consumes it.
type Access struct {
	// API allows per-forum deliveries through the reports API.
	API bool
	// Forum allows per-forum post reconciliation on the forum.
	Forum bool
	// Summary allows publishing the aggregate summary post.
	Summary bool
	// ForumReachable records whether the forum answered the pre-flight
	// probe; the sweeper and summary publisher require it.
	ForumReachable bool
	// ForceCleanAll makes the sweeper invalidate every tracked post,
	// not just uncovered ones. Raised when forum posting is off, by
	// configuration or by the cutoff.
	ForceCleanAll bool
}

// revolutionDate resolves the configured cutoff override, falling back
// to the built-in date.
func (e *Engine) revolutionDate() time.Time {
	if raw := e.cfg.Reports.RevolutionDate; raw != "" {
		if parsed, err := time.Parse("2006-01-02", raw); err == nil {
			return parsed
		}
		logging.Warn().Str("value", e.cfg.Reports.RevolutionDate).Msg("invalid reports.revolution_date, using the default")
	}
	return DefaultRevolutionDate
}

// checkAccess computes the effective run mode: configuration flags,
// the forum posting cutoff, scan-data presence and one reachability
// probe per remote. Single side effect beyond the probes is the logged
// warnings.
func (e *Engine) checkAccess(ctx context.Context) Access {
	access := Access{
		API:     e.cfg.Reports.SendAPI,
		Summary: e.cfg.Reports.SendSummary,
	}

	if access.API {
		if err := e.api.CheckAccess(ctx); err != nil {
			logging.Notice().Err(err).Msg("sending reports through the API is not possible")
			access.API = false
		}
	}
	if !access.API {
		logging.Info().Msg("API report delivery is disabled or unavailable")
	}

	// Forum posting is being deprecated: a run at or past the cutoff
	// must clean the old posts up instead of refreshing them.
	access.ForceCleanAll = true
	if e.cfg.Reports.SendForum {
		access.ForceCleanAll = false
		cutoff := e.revolutionDate()
		now := e.now()
		if !now.Before(cutoff) {
			logging.Warn().Msg("sending reports to the forum is no longer possible, adjust the report settings")
			access.ForceCleanAll = true
		} else {
			access.Forum = true
			if now.After(cutoff.Add(-revolutionWarningWindow)) {
				logging.Notice().Str("date", cutoff.Format("02.01.2006")).
					Msg("forum reports will be blocked starting from the shown date, disable them in the settings to speed up runs")
			}
		}
	}

	// No scan data means there is nothing to report to the forum.
	if access.Forum {
		count, err := e.store.SelectCount("topics")
		if err != nil {
			logging.Error().Err(err).Msg("failed to check stored scan data")
			access.Forum = false
		} else if count == 0 {
			logging.Error().Msg("cannot send reports: no subsection scan data stored, run a full update first")
			access.Forum = false
		}
	}

	// One probe covers every forum interaction of the run: reports,
	// sweeps and the summary post. Forced clean-up edits posts too, so
	// it needs the probe even when both report modes are off.
	if access.Forum || access.Summary || access.ForceCleanAll {
		if err := e.forum.CheckAccess(ctx); err != nil {
			logging.Error().Err(err).Msg("forum is not available")
		} else {
			access.ForumReachable = true
		}
	}
	if !access.ForumReachable {
		access.Forum = false
		access.Summary = false
	}

	return access
}

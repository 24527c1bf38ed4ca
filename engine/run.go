package engine

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/sudoom/webtlo/logging"
	"github.com/sudoom/webtlo/models"
)

// ForumTiming records how long the stages of one forum's delivery took.
// Observability only, correctness never depends on it.
type ForumTiming struct {
	ForumID   int64         `json:"forum_id"`
	SearchDB  time.Duration `json:"search_db"`
	SendAPI   time.Duration `json:"send_api"`
	Create    time.Duration `json:"create"`
	SendForum time.Duration `json:"send_forum"`
}

// RunResult accumulates the counters of one synchronization run and is
// returned to the caller instead of being kept in package state.
type RunResult struct {
	APIReportCount   int
	ForumReportCount int
	EditedPosts      map[int64][]int64
	Timings          []ForumTiming
	Duration         time.Duration
}

// Run executes one full report synchronization: pre-flight checks, the
// per-forum API and forum deliveries, the stale post sweep and the
// summary post. Failures are isolated to the smallest unit possible;
// the only aborts happen before the first remote mutation.
func (e *Engine) Run(ctx context.Context) (*RunResult, error) {
	started := e.now()
	logging.Info().Msg("report sending started")

	if len(e.cfg.Subsections) == 0 {
		return nil, fmt.Errorf("%w: no tracked subsections configured", ErrPrecondition)
	}
	minInterval := time.Duration(e.cfg.Automation.MinRunInterval) * time.Second
	if err := e.store.CheckReportsSendAvailable(minInterval); err != nil {
		return nil, err
	}

	access := e.checkAccess(ctx)
	ledger := NewLedger()
	result := &RunResult{}

	var reported []int64
	total := len(e.cfg.Subsections)
	for _, forumID := range e.cfg.Subsections {
		timing := ForumTiming{ForumID: forumID}

		topics, err := e.loadTopics(forumID, &timing)
		if err != nil {
			logging.Warn().Err(err).Int64("forum_id", forumID).Msg("skipping forum")
			result.Timings = append(result.Timings, timing)
			continue
		}

		if access.API && !e.forumExcluded(forumID) {
			if e.sendAPIReport(ctx, forumID, topics, &timing) {
				reported = append(reported, forumID)
				result.APIReportCount++
				logging.Debug().Int("current", result.APIReportCount).Int("total", total).
					Dur("sec", timing.SendAPI).Msg("API report sent")
			}
		}

		if access.Forum {
			if e.sendForumReport(ctx, forumID, topics, ledger, &timing) {
				result.ForumReportCount++
				logging.Debug().Int("current", result.ForumReportCount).Int("total", total).
					Dur("sec", timing.SendForum).Msg("forum report sent")
			}
		}

		result.Timings = append(result.Timings, timing)
	}

	// One idempotent replace marks every successfully reported forum;
	// optionally the remote forgets forums this run did not cover.
	if access.API && len(reported) > 0 {
		if err := e.api.SetForumsStatus(ctx, reported, e.cfg.Reports.UnsetOtherForums); err != nil {
			logging.Notice().Err(err).Msg("failed to set kept forums status")
		}
	}

	if result.APIReportCount > 0 {
		logging.Info().Int("count", result.APIReportCount).Msg("reports sent through the API")
	}

	if access.ForumReachable {
		e.finishForumRun(ctx, access, ledger)
	}

	if count := ledger.TopicCount(); count > 0 {
		logging.Info().Int("count", count).Msg("reports sent to the forum")
	}

	result.EditedPosts = ledger.Edits()
	result.Duration = e.now().Sub(started)
	logging.Info().Dur("sec", result.Duration).Msg("report sending finished")
	return result, nil
}

// loadTopics reads the stored torrent rows once per forum; both the API
// sender and the forum reconciler consume the same rows.
func (e *Engine) loadTopics(forumID int64, timing *ForumTiming) ([]models.KeptTopic, error) {
	started := e.now()
	topics, err := e.store.StoredForumTopics(forumID)
	timing.SearchDB = e.now().Sub(started)
	return topics, err
}

// sendAPIReport pushes one forum's topic set to the reports API. A
// failure is a notice, never an abort.
func (e *Engine) sendAPIReport(ctx context.Context, forumID int64, topics []models.KeptTopic, timing *ForumTiming) bool {
	started := e.now()
	result, err := e.api.SendForumTopics(ctx, forumID, topics)
	timing.SendAPI = e.now().Sub(started)
	if err != nil {
		logging.Notice().Err(err).Int64("forum_id", forumID).
			Msg("failed to send the report through the API")
		return false
	}
	logging.Debug().Int64("forum_id", result.ForumID).Int("topics", result.TopicsCount).
		Msg("API acknowledged the report")
	return true
}

// sendForumReport builds and reconciles one forum's keeping-list topic.
func (e *Engine) sendForumReport(ctx context.Context, forumID int64, topics []models.KeptTopic, ledger *Ledger, timing *ForumTiming) bool {
	f, err := e.store.GetForum(forumID)
	if err != nil {
		logging.Notice().Err(err).Int64("forum_id", forumID).
			Msg("forum details are missing, run an info update")
		return false
	}

	started := e.now()
	rep, err := e.builder.ForumReport(f, topics)
	timing.Create = e.now().Sub(started)
	if err != nil {
		logging.Warn().Err(err).Int64("forum_id", forumID).Msg("report creation skipped")
		return false
	}

	started = e.now()
	err = e.reconcileForum(ctx, f, rep, ledger)
	timing.SendForum = e.now().Sub(started)
	if err != nil {
		if errors.Is(err, ErrPrecondition) {
			logging.Notice().Err(err).Int64("forum_id", forumID).Msg("forum skipped")
		} else {
			logging.Warn().Err(err).Int64("forum_id", forumID).Msg("forum synchronization failed")
		}
		return false
	}
	return true
}

// finishForumRun runs the post-delivery forum passes: the force clean
// sweep, the summary post and the foreign-topic sweep.
func (e *Engine) finishForumRun(ctx context.Context, access Access, ledger *Ledger) {
	if access.ForceCleanAll {
		e.forceCleanForums(ctx, ledger)
	}

	if access.Summary {
		started := e.now()
		if err := e.publishSummary(ctx, ledger); err != nil {
			logging.Error().Err(err).Msg("failed to publish the summary report")
		} else {
			logging.Info().Dur("sec", e.now().Sub(started)).Msg("summary report sent")
		}
	}

	// Nothing was touched on the forum at all: there are no fresh
	// topics to protect, so the foreign-topic sweep has no baseline
	// and is skipped.
	if ledger.TopicCount() == 0 {
		return
	}

	if e.cfg.Reports.AutoClearMessages {
		e.clearForeignTopics(ctx, ledger)
	}
}

// forumExcluded reports whether the forum is excluded from API
// reporting by configuration.
func (e *Engine) forumExcluded(forumID int64) bool {
	return slices.Contains(e.cfg.Reports.ExcludeForumsIDs, forumID)
}

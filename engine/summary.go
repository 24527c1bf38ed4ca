package engine

import (
	"context"
	"fmt"

	"github.com/sudoom/webtlo/database"
	"github.com/sudoom/webtlo/forum"
	"github.com/sudoom/webtlo/logging"
	"github.com/sudoom/webtlo/models"
	"github.com/sudoom/webtlo/report"
)

// publishSummary creates or refreshes the single aggregate post in the
// well-known summary topic. The post id is discovered by searching the
// topic for the account's own post rather than stored locally, and the
// topic is always marked as touched so the sweeper leaves it alone.
// A successful send persists the run's completion timestamp.
func (e *Engine) publishSummary(ctx context.Context, ledger *Ledger) error {
	// Everything stored is listed, not just the currently tracked
	// subsections: the totals below cover all stored data too.
	forumIDs, err := e.store.ForumIDs()
	if err != nil {
		return fmt.Errorf("failed to build the summary report: %w", err)
	}
	var forums []*models.Forum
	for _, forumID := range forumIDs {
		f, err := e.store.GetForum(forumID)
		if err != nil {
			logging.Debug().Err(err).Int64("forum_id", forumID).Msg("forum missing from the summary")
			continue
		}
		forums = append(forums, f)
	}

	totalCount, totalSize, err := e.store.ForumTotals()
	if err != nil {
		return fmt.Errorf("failed to build the summary report: %w", err)
	}
	body := e.builder.Summary(forums, totalCount, totalSize)

	postID, err := e.forum.SearchPostID(ctx, report.SummaryTopicID, true)
	if err != nil {
		return fmt.Errorf("failed to locate the summary post: %w", err)
	}

	// Touched unconditionally: the sweeper must never flag the summary
	// topic even when the send below fails.
	ledger.TouchTopic(report.SummaryTopicID)

	mode := forum.ModeEdit
	if postID == 0 {
		mode = forum.ModeReply
	}
	if _, err := e.forum.SendMessage(ctx, mode, body, report.SummaryTopicID, postID, ""); err != nil {
		return fmt.Errorf("failed to send the summary report: %w", err)
	}

	// The completion mark gates how soon the next run may start.
	if err := e.store.SetUpdateTime(database.UpdateMarkSendReport); err != nil {
		logging.Error().Err(err).Msg("failed to record the report send time")
	}
	return nil
}

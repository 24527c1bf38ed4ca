package engine

import (
	"context"

	"github.com/sudoom/webtlo/forum"
	"github.com/sudoom/webtlo/logging"
	"github.com/sudoom/webtlo/report"
)

// forceCleanForums marks every tracked post of every forum as outdated.
// Runs when forum reporting is switched off or past its cutoff, so the
// forum is not left showing keeping lists nobody refreshes anymore.
//
// An edit the forum accepts without acknowledging a post id is taken to
// mean the post was archived and the id is dropped from tracking. This
// is a heuristic: the forum offers no stronger signal, and a silent
// failure for any other reason looks the same.
func (e *Engine) forceCleanForums(ctx context.Context, ledger *Ledger) {
	for _, forumID := range e.cfg.Subsections {
		f, err := e.store.GetForum(forumID)
		if err != nil {
			logging.Warn().Err(err).Int64("forum_id", forumID).Msg("skipping forum during clean-up")
			continue
		}
		if f.TopicID == 0 || len(f.PostIDs) == 0 {
			continue
		}

		archived := make(map[int64]struct{})
		for _, postID := range f.PostIDs {
			res, err := e.forum.SendMessage(ctx, forum.ModeEdit, report.OutdatedMarker, f.TopicID, postID, "")
			if err != nil {
				// Transient failure: keep tracking the post, the next
				// run retries.
				logging.Warn().Err(err).Int64("forum_id", f.ID).Int64("post_id", postID).
					Msg("failed to mark a post as outdated")
				continue
			}
			if res == 0 {
				archived[postID] = struct{}{}
			}
		}
		ledger.TouchTopic(f.TopicID)

		if len(archived) == 0 {
			continue
		}
		// Drop archived posts from tracking, preserving the order of
		// the remaining ids.
		kept := f.PostIDs[:0]
		for _, postID := range f.PostIDs {
			if _, gone := archived[postID]; !gone {
				kept = append(kept, postID)
			}
		}
		if err := e.store.UpdatePostList(f.ID, kept); err != nil {
			logging.Error().Err(err).Int64("forum_id", f.ID).Msg("failed to drop archived posts from tracking")
		}
	}
}

// clearForeignTopics sweeps the account's posts out of topics this run
// did not touch: leftovers in sub-forums the keeper no longer covers.
// The topic's original post is never edited, and topics recorded in the
// ledger are skipped so fresh reports stay intact.
func (e *Engine) clearForeignTopics(ctx context.Context, ledger *Ledger) {
	topicIDs, err := e.forum.SearchTopicIDs(ctx, e.cfg.User.ID)
	if err != nil {
		logging.Warn().Err(err).Msg("failed to search for own topics, skipping message clean-up")
		return
	}

	var marked []int64
	for _, topicID := range topicIDs {
		if ledger.Touched(topicID) {
			continue
		}
		posts, err := e.forum.ScanTopic(ctx, topicID)
		if err != nil {
			logging.Debug().Err(err).Int64("topic_id", topicID).Msg("topic scan failed, skipping")
			continue
		}
		for i, post := range posts {
			// Index 0 is the topic header.
			if i == 0 || post.UserID != e.cfg.User.ID {
				continue
			}
			if _, err := e.forum.SendMessage(ctx, forum.ModeEdit, report.OutdatedMarker, topicID, post.PostID, ""); err != nil {
				logging.Warn().Err(err).Int64("topic_id", topicID).Int64("post_id", post.PostID).
					Msg("failed to mark a foreign-topic post as outdated")
				continue
			}
			marked = append(marked, post.PostID)
		}
	}

	if len(marked) > 0 {
		logging.Info().Int("count", len(marked)).Ints64("posts", marked).Msg("marked posts as outdated")
	}
}

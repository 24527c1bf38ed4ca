package engine

import (
	"context"
	"fmt"

	"github.com/sudoom/webtlo/forum"
	"github.com/sudoom/webtlo/logging"
	"github.com/sudoom/webtlo/models"
	"github.com/sudoom/webtlo/report"
)

// syncState is the per-forum reconciliation phase. Phases always run in
// declaration order; stateNoTopic is terminal.
type syncState int

const (
	stateNoTopic syncState = iota
	stateHeaderSync
	stateExtend
	stateEditBody
	stateDone
)

// slot pairs one tracked post with the body destined for it. Pairing is
// strictly positional: slot i carries message i, and surplus posts past
// the last message carry the reserve marker. Building the pairs up
// front keeps "same length, same order" a structural property instead
// of an implicit contract between two arrays.
type slot struct {
	postID int64
	body   string
}

// alignSlots pairs the forum's tracked post ids with the report pages.
// len(postIDs) >= len(messages) must hold; the extend phase guarantees
// it.
func alignSlots(postIDs []int64, messages []string) []slot {
	slots := make([]slot, len(postIDs))
	for i, id := range postIDs {
		body := report.ReserveMarker
		if i < len(messages) {
			body = messages[i]
		}
		slots[i] = slot{postID: id, body: body}
	}
	return slots
}

// reconcileForum synchronizes one forum's topic with the freshly built
// report. New posts are created as reservation placeholders and the id
// list is persisted before any body edit, so a crash or failure later
// in the run cannot orphan created posts or duplicate them on retry.
// Individual call failures are logged and skipped; the same slot heals
// on the next run.
func (e *Engine) reconcileForum(ctx context.Context, f *models.Forum, rep *models.Report, ledger *Ledger) error {
	state := stateHeaderSync
	if f.TopicID == 0 {
		state = stateNoTopic
	}

	for state != stateDone {
		switch state {
		case stateNoTopic:
			return fmt.Errorf("%w: forum %d has no keeping-list topic, run an info update", ErrPrecondition, f.ID)

		case stateHeaderSync:
			e.syncHeader(ctx, f, rep, ledger)
			state = stateExtend

		case stateExtend:
			if err := e.extendTopic(ctx, f, len(rep.Messages)); err != nil {
				return err
			}
			state = stateEditBody

		case stateEditBody:
			e.editBodies(ctx, f, rep.Messages, ledger)
			state = stateDone
		}
	}
	return nil
}

// syncHeader refreshes the topic's first post. Only the topic author
// may edit the header, so the phase is a no-op for adopted topics or
// when the builder produced no header.
func (e *Engine) syncHeader(ctx context.Context, f *models.Forum, rep *models.Report, ledger *Ledger) {
	if !f.Authored(e.cfg.User.ID) || rep.Header == "" {
		return
	}

	logging.Info().Int64("topic_id", f.TopicID).Int64("post_id", f.AuthorPostID).
		Msg("sending the topic header")

	title := report.TopicTitlePrefix + f.Name
	if _, err := e.forum.SendMessage(ctx, forum.ModeEdit, rep.Header, f.TopicID, f.AuthorPostID, title); err != nil {
		logging.Warn().Err(err).Int64("forum_id", f.ID).Int64("post_id", f.AuthorPostID).
			Msg("failed to update the topic header")
		return
	}
	ledger.RecordEdit(f.TopicID, f.AuthorPostID)
}

// extendTopic grows the tracked post list until it covers want body
// pages. Replies are posted with reservation placeholders, never the
// real content: the real bodies land in the edit phase, which cannot
// race a reader seeing stale reply content. The extended list is
// persisted immediately because creation is not idempotent.
func (e *Engine) extendTopic(ctx context.Context, f *models.Forum, want int) error {
	have := len(f.PostIDs)
	if want <= have {
		return nil
	}

	created := 0
	for i := have; i < want; i++ {
		postID, err := e.forum.SendMessage(ctx, forum.ModeReply, report.ReservationBody(i+1), f.TopicID, 0, "")
		if err != nil {
			logging.Warn().Err(err).Int64("forum_id", f.ID).Int("post_number", i+1).
				Msg("failed to create a reservation post")
			break
		}
		if postID <= 0 {
			logging.Warn().Int64("forum_id", f.ID).Int("post_number", i+1).
				Msg("forum did not acknowledge the reservation post")
			break
		}
		f.PostIDs = append(f.PostIDs, postID)
		created++
	}

	if created == 0 {
		return nil
	}
	if err := e.store.UpdatePostList(f.ID, f.PostIDs); err != nil {
		return fmt.Errorf("failed to persist %d new posts of forum %d: %w", created, f.ID, err)
	}
	logging.Debug().Int64("forum_id", f.ID).Int("created", created).Msg("topic extended")
	return nil
}

// editBodies writes every aligned slot. Attempted edits are recorded in
// the ledger whether they succeed or not.
func (e *Engine) editBodies(ctx context.Context, f *models.Forum, messages []string, ledger *Ledger) {
	for _, s := range alignSlots(f.PostIDs, messages) {
		ledger.RecordEdit(f.TopicID, s.postID)
		if _, err := e.forum.SendMessage(ctx, forum.ModeEdit, s.body, f.TopicID, s.postID, ""); err != nil {
			logging.Warn().Err(err).Int64("forum_id", f.ID).Int64("post_id", s.postID).
				Msg("failed to edit a report post")
		}
	}
}

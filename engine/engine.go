// Package engine implements the forum report synchronization run: the
// access gatekeeper, the per-forum post reconciler, the stale post
// sweeper and the summary publisher, driven by a single sequential
// orchestrator.
package engine

import (
	"context"
	"errors"
	"time"

	"github.com/sudoom/webtlo/api"
	"github.com/sudoom/webtlo/database"
	"github.com/sudoom/webtlo/forum"
	"github.com/sudoom/webtlo/models"
	"github.com/sudoom/webtlo/report"
)

// ErrPrecondition marks a missing precondition (no topic, no scan
// data). The orchestrator downgrades or skips the affected unit instead
// of treating it as a transient failure.
var ErrPrecondition = errors.New("precondition failed")

// Store is the slice of the local database the engine needs.
type Store interface {
	GetForum(id int64) (*models.Forum, error)
	ForumIDs() ([]int64, error)
	UpdatePostList(id int64, postIDs []int64) error
	StoredForumTopics(forumID int64) ([]models.KeptTopic, error)
	SelectCount(table string) (int64, error)
	ForumTotals() (count int64, size int64, err error)
	SetUpdateTime(mark database.UpdateMark) error
	CheckReportsSendAvailable(minInterval time.Duration) error
}

// ForumClient is the forum posting capability consumed by the engine.
type ForumClient interface {
	CheckAccess(ctx context.Context) error
	SendMessage(ctx context.Context, mode forum.MessageMode, body string, topicID, postID int64, title string) (int64, error)
	SearchPostID(ctx context.Context, topicID int64, selfOnly bool) (int64, error)
	SearchTopicIDs(ctx context.Context, userID int64) ([]int64, error)
	ScanTopic(ctx context.Context, topicID int64) ([]models.TopicPost, error)
}

// ReportAPI is the keeper reports API capability consumed by the
// engine.
type ReportAPI interface {
	CheckAccess(ctx context.Context) error
	SendForumTopics(ctx context.Context, forumID int64, topics []models.KeptTopic) (api.SendResult, error)
	SetForumsStatus(ctx context.Context, forumIDs []int64, unsetOthers bool) error
}

// Engine runs report synchronization for one keeper account.
type Engine struct {
	cfg     *models.Config
	store   Store
	forum   ForumClient
	api     ReportAPI
	builder *report.Builder
	now     func() time.Time
}

// New assembles an engine from its collaborators.
func New(cfg *models.Config, store Store, forumClient ForumClient, reportAPI ReportAPI) *Engine {
	return &Engine{
		cfg:     cfg,
		store:   store,
		forum:   forumClient,
		api:     reportAPI,
		builder: report.NewBuilder(cfg.User),
		now:     time.Now,
	}
}

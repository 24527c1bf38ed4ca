package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/sudoom/webtlo/models"
	"github.com/sudoom/webtlo/report"

	"github.com/stretchr/testify/assert"
)

func TestForceCleanMarksAllTrackedPosts(t *testing.T) {
	eng, store, forumClient, _, _ := testEngine(testConfig())
	store.forums[1] = &models.Forum{ID: 1, TopicID: 500, PostIDs: []int64{10, 11, 12}}

	ledger := NewLedger()
	eng.forceCleanForums(context.Background(), ledger)

	assert.Equal(t, []int64{10, 11, 12}, forumClient.edits(report.OutdatedMarker))
	assert.True(t, ledger.Touched(500))
	// Every edit was acknowledged, nothing is dropped from tracking.
	assert.Empty(t, store.persisted)
}

func TestForceCleanDropsArchivedPosts(t *testing.T) {
	eng, store, forumClient, _, _ := testEngine(testConfig())
	store.forums[1] = &models.Forum{ID: 1, TopicID: 500, PostIDs: []int64{10, 11, 12}}
	forumClient.emptyEdit[11] = true

	eng.forceCleanForums(context.Background(), NewLedger())

	// The silently failed edit means the post went to the archive: it
	// is dropped, order of the remaining ids preserved.
	assert.Equal(t, []int64{10, 12}, store.persisted[1])
}

func TestForceCleanKeepsPostsOnTransientError(t *testing.T) {
	eng, store, forumClient, _, _ := testEngine(testConfig())
	store.forums[1] = &models.Forum{ID: 1, TopicID: 500, PostIDs: []int64{10, 11}}
	forumClient.sendErr[11] = errors.New("timeout")

	eng.forceCleanForums(context.Background(), NewLedger())

	// A transport error is not the archive heuristic: tracking stays.
	assert.Empty(t, store.persisted)
}

func TestForceCleanSkipsForumsWithoutTopicOrPosts(t *testing.T) {
	cfg := testConfig()
	cfg.Subsections = []int64{1, 2, 3}
	eng, store, forumClient, _, _ := testEngine(cfg)
	store.forums[1] = &models.Forum{ID: 1, TopicID: 0, PostIDs: []int64{10}}
	store.forums[2] = &models.Forum{ID: 2, TopicID: 600}
	// Forum 3 has no stored row at all.

	eng.forceCleanForums(context.Background(), NewLedger())

	assert.Empty(t, forumClient.sent)
}

func TestClearForeignTopics(t *testing.T) {
	eng, _, forumClient, _, _ := testEngine(testConfig())
	forumClient.topicIDs = []int64{500, 600, 700}
	forumClient.scans[600] = []models.TopicPost{
		{PostID: 60, UserID: 10}, // header, skipped even though it is ours
		{PostID: 61, UserID: 10},
		{PostID: 62, UserID: 99}, // foreign post, left alone
		{PostID: 63, UserID: 10},
	}
	forumClient.scanErr[700] = errors.New("topic gone")

	ledger := NewLedger()
	ledger.TouchTopic(500) // freshly reported this run

	eng.clearForeignTopics(context.Background(), ledger)

	assert.Equal(t, []int64{61, 63}, forumClient.edits(report.OutdatedMarker))
}

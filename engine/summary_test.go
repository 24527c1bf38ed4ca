package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/sudoom/webtlo/database"
	"github.com/sudoom/webtlo/forum"
	"github.com/sudoom/webtlo/models"
	"github.com/sudoom/webtlo/report"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishSummaryCreatesWhenMissing(t *testing.T) {
	eng, store, forumClient, _, _ := testEngine(testConfig())
	store.forums[1] = &models.Forum{ID: 1, Name: "Forum", TopicID: 500, Quantity: 3, Size: 1 << 30}
	forumClient.searchedPostID = 0

	ledger := NewLedger()
	require.NoError(t, eng.publishSummary(context.Background(), ledger))

	require.Len(t, forumClient.sent, 1)
	sent := forumClient.sent[0]
	assert.Equal(t, forum.ModeReply, sent.mode)
	assert.Equal(t, int64(report.SummaryTopicID), sent.topicID)
	assert.Zero(t, sent.postID)

	assert.True(t, ledger.Touched(report.SummaryTopicID))
	assert.Equal(t, []database.UpdateMark{database.UpdateMarkSendReport}, store.updateMarks)
}

func TestPublishSummaryEditsExistingPost(t *testing.T) {
	eng, _, forumClient, _, _ := testEngine(testConfig())
	forumClient.searchedPostID = 42

	require.NoError(t, eng.publishSummary(context.Background(), NewLedger()))

	require.Len(t, forumClient.sent, 1)
	assert.Equal(t, forum.ModeEdit, forumClient.sent[0].mode)
	assert.Equal(t, int64(42), forumClient.sent[0].postID)
}

func TestPublishSummarySearchFailure(t *testing.T) {
	eng, store, forumClient, _, _ := testEngine(testConfig())
	forumClient.searchErr = errors.New("search broken")

	err := eng.publishSummary(context.Background(), NewLedger())

	require.Error(t, err)
	assert.Empty(t, forumClient.sent)
	assert.Empty(t, store.updateMarks)
}

package report

import (
	"strings"
	"testing"
	"time"

	"github.com/sudoom/webtlo/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testBuilder() *Builder {
	b := NewBuilder(models.UserConfig{ID: 10, Login: "keeper"})
	b.now = func() time.Time {
		return time.Date(2024, time.June, 1, 12, 0, 0, 0, time.UTC)
	}
	return b
}

func someTopics(n int) []models.KeptTopic {
	topics := make([]models.KeptTopic, 0, n)
	for i := 0; i < n; i++ {
		topics = append(topics, models.KeptTopic{
			ID:   int64(1000 + i),
			Name: "Topic", Size: 1 << 30,
		})
	}
	return topics
}

func TestForumReportRequiresTopics(t *testing.T) {
	b := testBuilder()
	f := &models.Forum{ID: 1}

	_, err := b.ForumReport(f, nil)
	require.Error(t, err)
}

func TestForumReportMessagesNeverEmpty(t *testing.T) {
	b := testBuilder()
	f := &models.Forum{ID: 1, Name: "Forum"}

	rep, err := b.ForumReport(f, someTopics(1))
	require.NoError(t, err)
	require.NotEmpty(t, rep.Messages)
	assert.Contains(t, rep.Messages[0], "keeper")
	assert.Contains(t, rep.Messages[0], "viewtopic.php?t=1000")
}

func TestForumReportHeaderOnlyWhenAuthored(t *testing.T) {
	b := testBuilder()

	authored := &models.Forum{ID: 1, Name: "Forum", AuthorID: 10, AuthorPostID: 77}
	rep, err := b.ForumReport(authored, someTopics(2))
	require.NoError(t, err)
	assert.NotEmpty(t, rep.Header)
	assert.Contains(t, rep.Header, "viewforum.php?f=1")

	foreign := &models.Forum{ID: 1, Name: "Forum", AuthorID: 99, AuthorPostID: 77}
	rep, err = b.ForumReport(foreign, someTopics(2))
	require.NoError(t, err)
	assert.Empty(t, rep.Header)
}

func TestForumReportIsStable(t *testing.T) {
	b := testBuilder()
	f := &models.Forum{ID: 1, Name: "Forum"}
	topics := someTopics(50)

	first, err := b.ForumReport(f, topics)
	require.NoError(t, err)
	second, err := b.ForumReport(f, topics)
	require.NoError(t, err)

	assert.Equal(t, first.Messages, second.Messages)
}

func TestPaginateRespectsBudget(t *testing.T) {
	long := strings.Repeat("x", MaxPostBody/3)
	lines := []string{long, long, long, long}

	pages := paginate("intro", lines)

	require.Greater(t, len(pages), 1)
	for _, page := range pages {
		assert.LessOrEqual(t, len(page), MaxPostBody)
	}
	// Nothing is lost across the page split.
	assert.Equal(t, len("intro")+4*len(long)+4, len(strings.Join(pages, "\n")))
	assert.True(t, strings.HasPrefix(pages[0], "intro"))
}

func TestPaginateOversizedLineGetsOwnPage(t *testing.T) {
	oversized := strings.Repeat("x", MaxPostBody+10)

	pages := paginate("intro", []string{oversized, "tail"})

	require.Len(t, pages, 3)
	assert.Equal(t, "intro", pages[0])
	assert.Equal(t, oversized, pages[1])
	assert.Equal(t, "tail", pages[2])
}

func TestReservationBodySize(t *testing.T) {
	for _, n := range []int{1, 9, 10, 999} {
		body := ReservationBody(n)
		// The spoiler tags sit outside the reserved budget; the inner
		// content fills it exactly regardless of the post number.
		inner := strings.TrimSuffix(strings.TrimPrefix(body, "[spoiler]"), "[/spoiler]")
		assert.Len(t, inner, MaxPostBody)
		assert.False(t, strings.HasPrefix(inner, "?"))
	}
}

func TestSummaryListsForums(t *testing.T) {
	b := testBuilder()
	forums := []*models.Forum{
		{ID: 1, Name: "One", Quantity: 3, Size: 3 << 30},
		{ID: 2, Name: "Two", Quantity: 1, Size: 1 << 20},
	}

	body := b.Summary(forums, 4, (3<<30)+(1<<20))

	assert.Contains(t, body, "keeper")
	assert.Contains(t, body, "viewforum.php?f=1")
	assert.Contains(t, body, "viewforum.php?f=2")
	assert.Contains(t, body, "3.0 GB")
}

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "512 B", formatBytes(512))
	assert.Equal(t, "1.0 KB", formatBytes(1024))
	assert.Equal(t, "1.5 GB", formatBytes(3<<29))
}

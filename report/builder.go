// Package report builds the message bodies published to the forum: the
// per-forum keeping lists, the reservation placeholders used to grow a
// topic, and the global summary post. It performs no network access.
package report

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sudoom/webtlo/models"
)

const (
	// MaxPostBody is the usable character budget of one forum post.
	// The platform rejects posts beyond this size, so body pages and
	// reservation placeholders are sized against it.
	MaxPostBody = 119981

	// ReserveMarker fills surplus posts that no body page covers.
	// Fixed wire constant, the forum side recognises it.
	ReserveMarker = "резерв"

	// OutdatedMarker replaces the content of posts no longer covered
	// by the current data. Fixed wire constant.
	OutdatedMarker = ":!: не актуально"

	// TopicTitlePrefix prefixes the keeping-list topic title on header
	// edits.
	TopicTitlePrefix = "[Список] "

	// SummaryTopicID is the well-known topic holding the per-keeper
	// summary posts. Its post id is discovered by search, never stored.
	SummaryTopicID = 4275633
)

// Builder renders reports for one keeper account.
type Builder struct {
	userID int64
	login  string
	now    func() time.Time
}

// NewBuilder returns a Builder for the given account.
func NewBuilder(user models.UserConfig) *Builder {
	return &Builder{userID: user.ID, login: user.Login, now: time.Now}
}

// ForumReport renders the keeping list of one forum as an optional
// topic header plus one or more body pages. Pages never exceed
// MaxPostBody and their order is stable for unchanged input: the page
// sequence is the alignment key the reconciler matches against the
// forum's tracked post ids.
func (b *Builder) ForumReport(forum *models.Forum, topics []models.KeptTopic) (*models.Report, error) {
	if len(topics) == 0 {
		return nil, fmt.Errorf("forum %d has no stored topics", forum.ID)
	}

	var totalSize int64
	lines := make([]string, 0, len(topics))
	for _, t := range topics {
		totalSize += t.Size
		lines = append(lines, topicLine(t))
	}

	report := &models.Report{
		Messages: paginate(pageIntro(b.login, len(topics), totalSize), lines),
	}
	if forum.Authored(b.userID) {
		report.Header = b.header(forum, len(topics), totalSize)
	}
	return report, nil
}

// header renders the first post of a keeping-list topic. Only emitted
// for topics this account authored.
func (b *Builder) header(forum *models.Forum, count int, size int64) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Хранимые раздачи подраздела [url=viewforum.php?f=%d]%s[/url]\n", forum.ID, forum.Name)
	fmt.Fprintf(&sb, "Всего хранится: [b]%d[/b] шт. (%s)\n", count, formatBytes(size))
	fmt.Fprintf(&sb, "Обновлено: %s\n", b.now().Format("02.01.2006 15:04"))
	return sb.String()
}

// Summary renders the single aggregate post published to the summary
// topic.
func (b *Builder) Summary(forums []*models.Forum, totalCount, totalSize int64) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Хранитель [b]%s[/b]\n", b.login)
	fmt.Fprintf(&sb, "Всего хранится: [b]%d[/b] шт. (%s)\n", totalCount, formatBytes(totalSize))
	fmt.Fprintf(&sb, "Обновлено: %s\n\n", b.now().Format("02.01.2006 15:04"))
	sb.WriteString("[list]\n")
	for _, f := range forums {
		fmt.Fprintf(&sb, "[*][url=viewforum.php?f=%d]%s[/url] — %d шт. (%s)\n",
			f.ID, f.Name, f.Quantity, formatBytes(f.Size))
	}
	sb.WriteString("[/list]")
	return sb.String()
}

// ReservationBody returns the oversized placeholder posted when a topic
// is extended with reply n (1-based). It reserves the full post budget
// so later edits with real content never force re-pagination.
func ReservationBody(n int) string {
	digits := strconv.Itoa(n)
	return "[spoiler]" + digits + strings.Repeat("?", MaxPostBody-len(digits)) + "[/spoiler]"
}

// topicLine renders one stored torrent row.
func topicLine(t models.KeptTopic) string {
	return fmt.Sprintf("[url=viewtopic.php?t=%d]%s[/url] %s", t.ID, t.Name, formatBytes(t.Size))
}

// paginate splits the rendered lines into body pages under MaxPostBody,
// prefixing the first page with the section intro. A single oversized
// line is emitted alone on its own page rather than dropped.
func paginate(intro string, lines []string) []string {
	var (
		pages []string
		page  strings.Builder
	)
	page.WriteString(intro)

	flush := func() {
		if page.Len() > 0 {
			pages = append(pages, page.String())
			page.Reset()
		}
	}

	for _, line := range lines {
		if page.Len() > 0 && page.Len()+1+len(line) > MaxPostBody {
			flush()
		}
		if page.Len() > 0 {
			page.WriteByte('\n')
		}
		page.WriteString(line)
	}
	flush()

	return pages
}

// pageIntro is the first line of a forum report's first page.
func pageIntro(login string, count int, size int64) string {
	return fmt.Sprintf("Хранитель [b]%s[/b]: [b]%d[/b] шт. (%s)", login, count, formatBytes(size))
}

var byteUnits = []string{"B", "KB", "MB", "GB", "TB", "PB"}

// formatBytes renders a size with one decimal in the largest fitting
// unit.
func formatBytes(size int64) string {
	value := float64(size)
	unit := 0
	for value >= 1024 && unit < len(byteUnits)-1 {
		value /= 1024
		unit++
	}
	if unit == 0 {
		return fmt.Sprintf("%d %s", size, byteUnits[0])
	}
	return fmt.Sprintf("%.1f %s", value, byteUnits[unit])
}

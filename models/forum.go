package models

// Forum is one tracked sub-forum and the engine's only durable state.
// PostIDs is the ordered list of body posts previously created in the
// forum's keeping-list topic; its order is the alignment key for
// reconciliation and must never contain duplicates.
type Forum struct {
	ID           int64   `db:"id"`
	Name         string  `db:"name"`
	TopicID      int64   `db:"topic_id"` // 0 until the keeping-list topic exists
	AuthorID     int64   `db:"author_id"`
	AuthorPostID int64   `db:"author_post_id"` // 0 when the topic is not ours
	PostIDs      []int64 `db:"-"`
	Quantity     int64   `db:"quantity"`
	Size         int64   `db:"size"`
}

// Authored reports whether the given account owns the keeping-list topic
// header and therefore may edit it.
func (f *Forum) Authored(userID int64) bool {
	return f.AuthorID == userID && f.AuthorPostID != 0
}

// KeptTopic is one stored torrent row for a forum, as read from the
// local statistics tables.
type KeptTopic struct {
	ID       int64  `db:"id"`
	ForumID  int64  `db:"forum_id"`
	Name     string `db:"name"`
	Size     int64  `db:"size"`
	Status   int    `db:"status"`
	Priority int    `db:"keeping_priority"`
}

// Report is the per-forum output of the content builder: an optional
// topic header plus an ordered sequence of body pages.
type Report struct {
	Header   string
	Messages []string
}

// TopicPost is one post found while scanning a topic, in page order.
type TopicPost struct {
	PostID int64
	UserID int64
}

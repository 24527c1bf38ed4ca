package database

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/sudoom/webtlo/models"

	"github.com/goccy/go-json"
)

// ErrForumNotFound is returned when a forum id has no stored row.
var ErrForumNotFound = errors.New("forum not found")

type forumRow struct {
	ID           int64  `db:"id"`
	Name         string `db:"name"`
	TopicID      int64  `db:"topic_id"`
	AuthorID     int64  `db:"author_id"`
	AuthorPostID int64  `db:"author_post_id"`
	PostIDs      string `db:"post_ids"`
	Quantity     int64  `db:"quantity"`
	Size         int64  `db:"size"`
}

// GetForum loads one forum row, decoding the tracked post id list.
func (s *Store) GetForum(id int64) (*models.Forum, error) {
	var row forumRow
	err := s.db.Get(&row, `SELECT id, name, topic_id, author_id, author_post_id, post_ids, quantity, size
        FROM forums WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("forum %d: %w", id, ErrForumNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load forum %d: %w", id, err)
	}

	forum := &models.Forum{
		ID:           row.ID,
		Name:         row.Name,
		TopicID:      row.TopicID,
		AuthorID:     row.AuthorID,
		AuthorPostID: row.AuthorPostID,
		Quantity:     row.Quantity,
		Size:         row.Size,
	}
	if row.PostIDs != "" {
		if err := json.Unmarshal([]byte(row.PostIDs), &forum.PostIDs); err != nil {
			return nil, fmt.Errorf("failed to decode post ids of forum %d: %w", id, err)
		}
	}
	return forum, nil
}

// UpdatePostList persists the ordered post id list for a forum. It is
// called right after new posts are created so a crash later in the run
// cannot orphan them.
func (s *Store) UpdatePostList(id int64, postIDs []int64) error {
	if postIDs == nil {
		postIDs = []int64{}
	}
	encoded, err := json.Marshal(postIDs)
	if err != nil {
		return fmt.Errorf("failed to encode post ids of forum %d: %w", id, err)
	}

	res, err := s.db.Exec(`UPDATE forums SET post_ids = ? WHERE id = ?`, string(encoded), id)
	if err != nil {
		return fmt.Errorf("failed to update post list of forum %d: %w", id, err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return fmt.Errorf("forum %d: %w", id, ErrForumNotFound)
	}
	return nil
}

// ForumIDs lists every stored forum id in ascending order.
func (s *Store) ForumIDs() ([]int64, error) {
	var ids []int64
	if err := s.db.Select(&ids, `SELECT id FROM forums ORDER BY id`); err != nil {
		return nil, fmt.Errorf("failed to list stored forums: %w", err)
	}
	return ids, nil
}

// StoredForumTopics returns the kept torrent rows of one forum in a
// stable order. The order feeds straight into the report builder and is
// the alignment key for post reconciliation, so it must not vary
// between runs with unchanged data.
func (s *Store) StoredForumTopics(forumID int64) ([]models.KeptTopic, error) {
	var topics []models.KeptTopic
	err := s.db.Select(&topics, `SELECT id, forum_id, name, size, status, keeping_priority
        FROM topics WHERE forum_id = ? ORDER BY id`, forumID)
	if err != nil {
		return nil, fmt.Errorf("failed to load stored topics of forum %d: %w", forumID, err)
	}
	return topics, nil
}

// ForumTotals sums kept torrent counts and sizes across all forums for
// the summary report.
func (s *Store) ForumTotals() (count int64, size int64, err error) {
	row := s.db.QueryRow(`SELECT COUNT(1), COALESCE(SUM(size), 0) FROM topics`)
	if err := row.Scan(&count, &size); err != nil {
		return 0, 0, fmt.Errorf("failed to compute forum totals: %w", err)
	}
	return count, size, nil
}

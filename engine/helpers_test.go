package engine

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/sudoom/webtlo/api"
	"github.com/sudoom/webtlo/database"
	"github.com/sudoom/webtlo/forum"
	"github.com/sudoom/webtlo/models"
)

// callLog is shared between the fakes so tests can assert cross-client
// ordering, e.g. that post ids are persisted before body edits.
type callLog struct {
	events []string
}

func (l *callLog) add(format string, args ...any) {
	l.events = append(l.events, fmt.Sprintf(format, args...))
}

type sentMessage struct {
	mode    forum.MessageMode
	body    string
	topicID int64
	postID  int64
	title   string
}

type fakeForum struct {
	log        *callLog
	nextPostID int64
	sent       []sentMessage

	accessErr error
	// sendErr fails SendMessage for the given post id (0 = replies).
	sendErr map[int64]error
	// emptyEdit makes edits of the given post id return no post id.
	emptyEdit map[int64]bool

	searchedPostID int64
	searchErr      error
	topicIDs       []int64
	scans          map[int64][]models.TopicPost
	scanErr        map[int64]error
}

func newFakeForum(log *callLog) *fakeForum {
	return &fakeForum{
		log:        log,
		nextPostID: 100,
		sendErr:    make(map[int64]error),
		emptyEdit:  make(map[int64]bool),
		scans:      make(map[int64][]models.TopicPost),
		scanErr:    make(map[int64]error),
	}
}

func (f *fakeForum) CheckAccess(context.Context) error { return f.accessErr }

func (f *fakeForum) SendMessage(_ context.Context, mode forum.MessageMode, body string, topicID, postID int64, title string) (int64, error) {
	f.sent = append(f.sent, sentMessage{mode: mode, body: body, topicID: topicID, postID: postID, title: title})
	if err := f.sendErr[postID]; err != nil {
		return 0, err
	}
	if mode == forum.ModeReply {
		f.nextPostID++
		f.log.add("reply topic=%d post=%d", topicID, f.nextPostID)
		return f.nextPostID, nil
	}
	f.log.add("edit topic=%d post=%d", topicID, postID)
	if f.emptyEdit[postID] {
		return 0, nil
	}
	return postID, nil
}

func (f *fakeForum) SearchPostID(context.Context, int64, bool) (int64, error) {
	return f.searchedPostID, f.searchErr
}

func (f *fakeForum) SearchTopicIDs(context.Context, int64) ([]int64, error) {
	return f.topicIDs, nil
}

func (f *fakeForum) ScanTopic(_ context.Context, topicID int64) ([]models.TopicPost, error) {
	if err := f.scanErr[topicID]; err != nil {
		return nil, err
	}
	return f.scans[topicID], nil
}

// edits returns the post ids edited with the given body, in call order.
func (f *fakeForum) edits(body string) []int64 {
	var ids []int64
	for _, m := range f.sent {
		if m.mode == forum.ModeEdit && m.body == body {
			ids = append(ids, m.postID)
		}
	}
	return ids
}

type fakeAPI struct {
	accessErr error
	sendErr   map[int64]error
	sent      []int64

	statusCalls  int
	statusForums []int64
	statusUnset  bool
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{sendErr: make(map[int64]error)}
}

func (a *fakeAPI) CheckAccess(context.Context) error { return a.accessErr }

func (a *fakeAPI) SendForumTopics(_ context.Context, forumID int64, topics []models.KeptTopic) (api.SendResult, error) {
	if err := a.sendErr[forumID]; err != nil {
		return api.SendResult{}, err
	}
	a.sent = append(a.sent, forumID)
	return api.SendResult{ForumID: forumID, TopicsCount: len(topics)}, nil
}

func (a *fakeAPI) SetForumsStatus(_ context.Context, forumIDs []int64, unsetOthers bool) error {
	a.statusCalls++
	a.statusForums = forumIDs
	a.statusUnset = unsetOthers
	return nil
}

type fakeStore struct {
	log    *callLog
	forums map[int64]*models.Forum
	topics map[int64][]models.KeptTopic
	counts map[string]int64

	// persisted keeps the last post list written per forum.
	persisted  map[int64][]int64
	persistErr error

	updateMarks  []database.UpdateMark
	availableErr error
}

func newFakeStore(log *callLog) *fakeStore {
	return &fakeStore{
		log:       log,
		forums:    make(map[int64]*models.Forum),
		topics:    make(map[int64][]models.KeptTopic),
		counts:    map[string]int64{"topics": 1},
		persisted: make(map[int64][]int64),
	}
}

func (s *fakeStore) GetForum(id int64) (*models.Forum, error) {
	f, ok := s.forums[id]
	if !ok {
		return nil, fmt.Errorf("forum %d: %w", id, database.ErrForumNotFound)
	}
	// Return a copy with the tracked ids so the engine never aliases
	// the fixture slice.
	clone := *f
	clone.PostIDs = append([]int64(nil), f.PostIDs...)
	if persisted, ok := s.persisted[id]; ok {
		clone.PostIDs = append([]int64(nil), persisted...)
	}
	return &clone, nil
}

func (s *fakeStore) ForumIDs() ([]int64, error) {
	var ids []int64
	for id := range s.forums {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids, nil
}

func (s *fakeStore) UpdatePostList(id int64, postIDs []int64) error {
	if s.persistErr != nil {
		return s.persistErr
	}
	s.persisted[id] = append([]int64(nil), postIDs...)
	s.log.add("persist forum=%d ids=%v", id, postIDs)
	return nil
}

func (s *fakeStore) StoredForumTopics(forumID int64) ([]models.KeptTopic, error) {
	return s.topics[forumID], nil
}

func (s *fakeStore) SelectCount(table string) (int64, error) {
	return s.counts[table], nil
}

func (s *fakeStore) ForumTotals() (int64, int64, error) {
	var count, size int64
	for _, rows := range s.topics {
		for _, t := range rows {
			count++
			size += t.Size
		}
	}
	return count, size, nil
}

func (s *fakeStore) SetUpdateTime(mark database.UpdateMark) error {
	s.updateMarks = append(s.updateMarks, mark)
	return nil
}

func (s *fakeStore) CheckReportsSendAvailable(time.Duration) error {
	return s.availableErr
}

func testConfig() *models.Config {
	return &models.Config{
		User:        models.UserConfig{ID: 10, Login: "keeper"},
		Subsections: []int64{1},
		Reports: models.ReportsConfig{
			SendAPI:          true,
			SendForum:        true,
			SendSummary:      true,
			UnsetOtherForums: true,
		},
		Automation: models.AutomationConfig{MinRunInterval: 3600},
	}
}

// testEngine wires an engine against the fakes with a clock safely
// before the posting cutoff.
func testEngine(cfg *models.Config) (*Engine, *fakeStore, *fakeForum, *fakeAPI, *callLog) {
	log := &callLog{}
	store := newFakeStore(log)
	forumClient := newFakeForum(log)
	apiClient := newFakeAPI()

	eng := New(cfg, store, forumClient, apiClient)
	eng.now = func() time.Time {
		return DefaultRevolutionDate.Add(-365 * 24 * time.Hour)
	}
	return eng, store, forumClient, apiClient, log
}

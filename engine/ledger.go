package engine

// Ledger records which topics and posts one run has touched. The
// sweeper consults it to leave freshly edited topics alone; the edit
// map feeds the final run report. "Touched" means an edit was
// attempted, not that it succeeded.
type Ledger struct {
	topics map[int64]struct{}
	edits  map[int64][]int64
}

// NewLedger returns an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{
		topics: make(map[int64]struct{}),
		edits:  make(map[int64][]int64),
	}
}

// TouchTopic marks a topic as handled by this run.
func (l *Ledger) TouchTopic(topicID int64) {
	l.topics[topicID] = struct{}{}
}

// RecordEdit marks one attempted post edit.
func (l *Ledger) RecordEdit(topicID, postID int64) {
	l.TouchTopic(topicID)
	l.edits[topicID] = append(l.edits[topicID], postID)
}

// Touched reports whether the topic was handled by this run.
func (l *Ledger) Touched(topicID int64) bool {
	_, ok := l.topics[topicID]
	return ok
}

// TopicCount returns the number of distinct touched topics.
func (l *Ledger) TopicCount() int {
	return len(l.topics)
}

// Edits returns the attempted edits per topic.
func (l *Ledger) Edits() map[int64][]int64 {
	return l.edits
}

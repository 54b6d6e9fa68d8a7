package db

import (
	"sync"

	"github.com/chatterbox/engine/models"
)

// conversationQuery is one standing subscription: a conversation id plus the
// channel its full current state is re-published on after every commit.
type conversationQuery struct {
	conversationID string
	ch             chan models.Conversation
}

// push delivers the latest full state without ever blocking the store: a value
// the consumer hasn't read yet is replaced, not queued. Each emission is a
// complete replacement of prior state, never a delta.
func (q *conversationQuery) push(conversation models.Conversation) {
	for {
		select {
		case q.ch <- conversation:
			return
		default:
			select {
			case <-q.ch:
			default:
			}
		}
	}
}

// liveQuerySet tracks the standing conversation queries registered against the
// store. All channel sends and the closing of channels happen under its mutex,
// so a subscription can be torn down while a commit is fanning out.
type liveQuerySet struct {
	mu   sync.Mutex
	next uint64
	subs map[uint64]*conversationQuery
}

func newLiveQuerySet() *liveQuerySet {
	return &liveQuerySet{subs: make(map[uint64]*conversationQuery)}
}

func (s *liveQuerySet) add(conversationID string, initial models.Conversation) (uint64, <-chan models.Conversation) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.next++
	q := &conversationQuery{
		conversationID: conversationID,
		ch:             make(chan models.Conversation, 1),
	}
	s.subs[s.next] = q
	q.push(initial)
	return s.next, q.ch
}

func (s *liveQuerySet) remove(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if q, ok := s.subs[id]; ok {
		delete(s.subs, id)
		close(q.ch)
	}
}

// notify re-runs every standing query through fetch and pushes fresh results.
// fetch returning false skips the emission for that subscription.
func (s *liveQuerySet) notify(fetch func(conversationID string) (models.Conversation, bool)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, q := range s.subs {
		if conversation, ok := fetch(q.conversationID); ok {
			q.push(conversation)
		}
	}
}

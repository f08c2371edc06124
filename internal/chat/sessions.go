package chat

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	ErrSessionNotFound = errors.New("chat session not found")
	ErrRequestInFlight = errors.New("a request is already in flight for this session")
)

// Turn is one question and its outcome.
type Turn struct {
	Question string
	Answer   string
	// Error holds the failure message when no answer was produced.
	Error    string
	AskedAt  time.Time
	Duration time.Duration
}

type session struct {
	id       string
	created  time.Time
	turns    []Turn
	inFlight bool
}

// Sessions keeps chat sessions in memory. It is safe for concurrent use;
// each session allows one outstanding request at a time.
type Sessions struct {
	mu       sync.RWMutex
	sessions map[string]*session
	asm      *Assembler
	now      func() time.Time
}

// NewSessions creates an empty session store backed by asm.
func NewSessions(asm *Assembler) *Sessions {
	return &Sessions{
		sessions: make(map[string]*session),
		asm:      asm,
		now:      time.Now,
	}
}

// Create opens a new session and returns its id.
func (s *Sessions) Create() string {
	id := uuid.New().String()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[id] = &session{id: id, created: s.now()}
	return id
}

// History returns a copy of the session's turns, oldest first.
func (s *Sessions) History(id string) ([]Turn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}

	out := make([]Turn, len(sess.turns))
	copy(out, sess.turns)
	return out, nil
}

// Delete removes a session.
func (s *Sessions) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[id]; !ok {
		return ErrSessionNotFound
	}
	delete(s.sessions, id)
	return nil
}

// Ask submits cc on behalf of a session and records the turn, whether it
// succeeded or not. It fails fast with ErrRequestInFlight if the session is
// already waiting on an answer.
func (s *Sessions) Ask(ctx context.Context, id string, cc *ChatContext) (string, error) {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	if !ok {
		s.mu.Unlock()
		return "", ErrSessionNotFound
	}
	if sess.inFlight {
		s.mu.Unlock()
		return "", ErrRequestInFlight
	}
	sess.inFlight = true
	s.mu.Unlock()

	start := s.now()
	answer, err := s.asm.Submit(ctx, cc)

	turn := Turn{
		Question: cc.Question,
		Answer:   answer,
		AskedAt:  start,
		Duration: s.now().Sub(start),
	}
	if err != nil {
		turn.Error = err.Error()
	}

	s.mu.Lock()
	sess.inFlight = false
	// The session may have been deleted meanwhile; the turn is then dropped.
	if cur, ok := s.sessions[id]; ok && cur == sess {
		sess.turns = append(sess.turns, turn)
	}
	s.mu.Unlock()

	return answer, err
}

// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package memstore

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/danielhkuo/quickly-match/models"
	"github.com/danielhkuo/quickly-match/store"
)

type voteKey struct {
	sessionID string
	voterID   string
	itemID    string
	round     int
}

type matchKey struct {
	sessionID string
	itemID    string
	round     int
}

// Store is an in-memory store.Store. A single mutex serializes every
// operation, which gives the same atomicity the SQL store gets from row locks.
type Store struct {
	mu       sync.Mutex
	sessions map[string]models.Session
	votes    []models.Vote
	voteKeys map[voteKey]struct{}
	matches  []models.Match
	matchIDs map[matchKey]struct{}
}

func New() *Store {
	return &Store{
		sessions: make(map[string]models.Session),
		voteKeys: make(map[voteKey]struct{}),
		matchIDs: make(map[matchKey]struct{}),
	}
}

func (s *Store) CreateSession(_ context.Context, sess models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sessions[sess.ID]; exists {
		return fmt.Errorf("session %s already exists", sess.ID)
	}
	s.sessions[sess.ID] = sess
	return nil
}

func (s *Store) GetSession(_ context.Context, id string) (models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return models.Session{}, models.ErrSessionNotFound
	}
	return sess, nil
}

func (s *Store) ListSessionsByStatus(_ context.Context, statuses ...models.SessionStatus) ([]models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.Session
	for _, sess := range s.sessions {
		if slices.Contains(statuses, sess.Status) {
			out = append(out, sess)
		}
	}
	slices.SortFunc(out, func(a, b models.Session) int {
		return cmp.Or(a.CreatedAt.Compare(b.CreatedAt), cmp.Compare(a.ID, b.ID))
	})
	return out, nil
}

func (s *Store) TransitionSession(_ context.Context, t store.Transition) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[t.SessionID]
	if !ok {
		return false, models.ErrSessionNotFound
	}
	if !t.Matches(sess) {
		return false, nil
	}
	s.sessions[t.SessionID] = t.Apply(sess)
	return true, nil
}

func (s *Store) CastVote(_ context.Context, v models.Vote) (models.Vote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[v.SessionID]
	if !ok {
		return models.Vote{}, models.ErrSessionNotFound
	}
	if sess.Status != models.StatusActive {
		return models.Vote{}, fmt.Errorf("%w: status is %s", models.ErrSessionNotVotable, sess.Status)
	}

	v.RoundNumber = sess.RoundNumber
	key := voteKey{v.SessionID, v.VoterID, v.ItemID, v.RoundNumber}
	if _, dup := s.voteKeys[key]; dup {
		return models.Vote{}, models.ErrDuplicateVote
	}
	s.voteKeys[key] = struct{}{}
	s.votes = append(s.votes, v)
	return v, nil
}

func (s *Store) ListVotes(_ context.Context, sessionID string, round int) ([]models.Vote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []models.Vote{}
	for _, v := range s.votes {
		if v.SessionID == sessionID && v.RoundNumber == round {
			out = append(out, v)
		}
	}
	slices.SortFunc(out, compareVotes)
	return out, nil
}

func (s *Store) CountDistinctVoters(_ context.Context, sessionID string, round int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	voters := make(map[string]struct{})
	for _, v := range s.votes {
		if v.SessionID == sessionID && v.RoundNumber == round {
			voters[v.VoterID] = struct{}{}
		}
	}
	return len(voters), nil
}

func (s *Store) CountLikes(_ context.Context, sessionID string, round int, itemID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, v := range s.votes {
		if v.SessionID == sessionID && v.RoundNumber == round && v.ItemID == itemID && v.Decision == models.DecisionLike {
			n++
		}
	}
	return n, nil
}

func (s *Store) ListItemsWithAnyLike(ctx context.Context, sessionID string, round int) ([]string, error) {
	tallies, err := s.LikeTallies(ctx, sessionID, round)
	if err != nil {
		return nil, err
	}
	items := make([]string, len(tallies))
	for i, t := range tallies {
		items[i] = t.ItemID
	}
	return items, nil
}

func (s *Store) LikeTallies(_ context.Context, sessionID string, round int) ([]models.ItemTally, error) {
	s.mu.Lock()
	likes := []models.Vote{}
	for _, v := range s.votes {
		if v.SessionID == sessionID && v.RoundNumber == round && v.Decision == models.DecisionLike {
			likes = append(likes, v)
		}
	}
	s.mu.Unlock()

	slices.SortFunc(likes, compareVotes)

	byItem := make(map[string]*models.ItemTally)
	var order []string
	for _, v := range likes {
		t, ok := byItem[v.ItemID]
		if !ok {
			t = &models.ItemTally{ItemID: v.ItemID, ItemType: v.ItemType, Snapshot: v.ItemSnapshot}
			byItem[v.ItemID] = t
			order = append(order, v.ItemID)
		}
		t.Likes++
	}
	slices.Sort(order)

	out := make([]models.ItemTally, 0, len(order))
	for _, id := range order {
		out = append(out, *byItem[id])
	}
	return out, nil
}

func (s *Store) InsertMatches(_ context.Context, matches []models.Match) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, m := range matches {
		key := matchKey{m.SessionID, m.ItemID, m.RoundNumber}
		if _, exists := s.matchIDs[key]; exists {
			continue
		}
		s.matchIDs[key] = struct{}{}
		m.Rank = 0
		s.matches = append(s.matches, m)
	}
	return nil
}

func (s *Store) ListMatches(_ context.Context, sessionID string, round int) ([]models.Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []models.Match{}
	for _, m := range s.matches {
		if m.SessionID == sessionID && m.RoundNumber == round {
			out = append(out, m)
		}
	}
	return out, nil
}

// VoteCount returns the number of stored votes for the tuple. Test helper.
func (s *Store) VoteCount(sessionID, voterID, itemID string, round int) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, v := range s.votes {
		if v.SessionID == sessionID && v.VoterID == voterID && v.ItemID == itemID && v.RoundNumber == round {
			n++
		}
	}
	return n
}

func compareVotes(a, b models.Vote) int {
	return cmp.Or(a.VotedAt.Compare(b.VotedAt), cmp.Compare(a.ID, b.ID))
}

var _ store.Store = (*Store)(nil)

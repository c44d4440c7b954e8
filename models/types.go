// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package models

import (
	"math"
	"time"
)

// SessionStatus is a state of the session lifecycle.
type SessionStatus string

// Session status constants
const (
	StatusPending   SessionStatus = "pending"
	StatusActive    SessionStatus = "active"
	StatusVoting    SessionStatus = "voting"
	StatusCompleted SessionStatus = "completed"
	StatusCancelled SessionStatus = "cancelled"
)

// Terminal reports whether no further transition can leave this status.
func (s SessionStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Valid reports whether s is a known status.
func (s SessionStatus) Valid() bool {
	switch s {
	case StatusPending, StatusActive, StatusVoting, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// EnergyLevel is a catalog filter hint. The core stores it and never reads it.
type EnergyLevel string

const (
	EnergyLow    EnergyLevel = "low"
	EnergyMedium EnergyLevel = "medium"
	EnergyHigh   EnergyLevel = "high"
)

func (e EnergyLevel) Valid() bool {
	return e == EnergyLow || e == EnergyMedium || e == EnergyHigh
}

// ItemType is the kind of catalog item being voted on.
type ItemType string

const (
	ItemRestaurant ItemType = "restaurant"
	ItemDish       ItemType = "dish"
	ItemCuisine    ItemType = "cuisine"
)

func (t ItemType) Valid() bool {
	return t == ItemRestaurant || t == ItemDish || t == ItemCuisine
}

// Decision is a participant's swipe on an item.
type Decision string

const (
	DecisionLike    Decision = "like"
	DecisionDislike Decision = "dislike"
	DecisionSkip    Decision = "skip"
)

func (d Decision) Valid() bool {
	return d == DecisionLike || d == DecisionDislike || d == DecisionSkip
}

// Reason recorded when the round limit is hit without a match.
const ReasonNoConsensus = "no consensus reached"

// Domain types

type Session struct {
	ID             string        `json:"id"`
	GroupID        string        `json:"group_id"`
	Status         SessionStatus `json:"status"`
	EnergyLevel    EnergyLevel   `json:"energy_level"`
	RoundNumber    int           `json:"round_number"`
	Config         SessionConfig `json:"config"`
	RoundStartedAt *time.Time    `json:"round_started_at,omitempty"`
	StartedAt      *time.Time    `json:"started_at,omitempty"`
	EndedAt        *time.Time    `json:"ended_at,omitempty"`
	EndReason      string        `json:"end_reason,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
}

// Vote is one participant's decision on one item in one round. Immutable.
type Vote struct {
	ID           string       `json:"id"`
	SessionID    string       `json:"session_id"`
	VoterID      string       `json:"voter_id"`
	ItemID       string       `json:"item_id"`
	ItemType     ItemType     `json:"item_type"`
	Decision     Decision     `json:"decision"`
	ItemSnapshot ItemSnapshot `json:"item_snapshot"`
	RoundNumber  int          `json:"round_number"`
	VotedAt      time.Time    `json:"voted_at"`
}

// Match is an item that reached the threshold when its round closed.
type Match struct {
	ID           string       `json:"id"`
	SessionID    string       `json:"session_id"`
	ItemID       string       `json:"item_id"`
	ItemType     ItemType     `json:"item_type"`
	ItemSnapshot ItemSnapshot `json:"item_snapshot"`
	VoteCount    int          `json:"vote_count"`
	MatchScore   float64      `json:"match_score"`
	RoundNumber  int          `json:"round_number"`
	Rank         int          `json:"rank"` // 1-indexed, assigned when ranked
	CreatedAt    time.Time    `json:"created_at"`
}

// ScoreHundredths returns the two-decimal score as an integer.
func (m Match) ScoreHundredths() int {
	return int(math.Round(m.MatchScore * 100))
}

// ItemTally aggregates the like votes one item received in a round.
// Snapshot and ItemType come from the earliest like.
type ItemTally struct {
	ItemID   string
	ItemType ItemType
	Likes    int
	Snapshot ItemSnapshot
}

// Request types

type CreateSessionRequest struct {
	GroupID     string        `json:"group_id"`
	EnergyLevel EnergyLevel   `json:"energy_level"`
	MemberCount int           `json:"member_count"`
	Config      SessionConfig `json:"config"`
}

type CastVoteRequest struct {
	VoterID      string       `json:"voter_id"`
	ItemID       string       `json:"item_id"`
	ItemType     ItemType     `json:"item_type"`
	Decision     Decision     `json:"decision"`
	ItemSnapshot ItemSnapshot `json:"item_snapshot"`
}

type CancelSessionRequest struct {
	Reason string `json:"reason"`
}

// Response types

type CreateSessionResponse struct {
	Session  Session `json:"session"`
	AdminKey string  `json:"admin_key"`
}

type SessionResponse struct {
	Session      Session `json:"session"`
	WinningMatch *Match  `json:"winning_match,omitempty"`
}

type MatchesResponse struct {
	SessionID string  `json:"session_id"`
	Round     int     `json:"round"`
	Matches   []Match `json:"matches"`
}

type VotesResponse struct {
	SessionID string `json:"session_id"`
	Round     int    `json:"round"`
	Votes     []Vote `json:"votes"`
}

type EvaluateResponse struct {
	SessionID string  `json:"session_id"`
	Round     int     `json:"round"`
	Action    string  `json:"action"`
	Winner    *Match  `json:"winner,omitempty"`
	Matches   []Match `json:"matches,omitempty"`
}

// Error response

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

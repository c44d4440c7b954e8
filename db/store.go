// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/danielhkuo/quickly-match/models"
	"github.com/danielhkuo/quickly-match/store"
)

// Store is the database/sql implementation of store.Store.
type Store struct {
	db *sql.DB
	d  Dialect
}

func New(db *sql.DB, d Dialect) *Store {
	return &Store{db: db, d: d}
}

// DB exposes the underlying handle for health checks and tests.
func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) HealthCheck(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

const sessionColumns = `id, group_id, status, energy_level, round_number, config,
	round_started_at, started_at, ended_at, end_reason, created_at`

func (s *Store) CreateSession(ctx context.Context, sess models.Session) error {
	config, err := json.Marshal(sess.Config)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO session (id, group_id, status, energy_level, round_number, config,
		                     round_started_at, started_at, ended_at, end_reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, sess.ID, sess.GroupID, string(sess.Status), string(sess.EnergyLevel), sess.RoundNumber, string(config),
		nullMillis(sess.RoundStartedAt), nullMillis(sess.StartedAt), nullMillis(sess.EndedAt),
		nullString(sess.EndReason), toMillis(sess.CreatedAt))
	if err != nil {
		return wrapErr("insert session", err)
	}
	return nil
}

func (s *Store) GetSession(ctx context.Context, id string) (models.Session, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM session WHERE id = $1`, id)
	sess, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Session{}, models.ErrSessionNotFound
	}
	if err != nil {
		return models.Session{}, wrapErr("query session", err)
	}
	return sess, nil
}

func (s *Store) ListSessionsByStatus(ctx context.Context, statuses ...models.SessionStatus) ([]models.Session, error) {
	if len(statuses) == 0 {
		return nil, nil
	}

	args := make([]any, len(statuses))
	marks := make([]string, len(statuses))
	for i, st := range statuses {
		args[i] = string(st)
		marks[i] = fmt.Sprintf("$%d", i+1)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+sessionColumns+` FROM session
		WHERE status IN (`+strings.Join(marks, ", ")+`)
		ORDER BY created_at, id
	`, args...)
	if err != nil {
		return nil, wrapErr("query sessions", err)
	}
	defer rows.Close()

	var out []models.Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, wrapErr("scan session", err)
		}
		out = append(out, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("iterate sessions", err)
	}
	return out, nil
}

// TransitionSession issues a single conditional UPDATE. Concurrent callers
// racing on the same expectation see exactly one row affected between them.
func (s *Store) TransitionSession(ctx context.Context, t store.Transition) (bool, error) {
	if len(t.From) == 0 {
		return false, errors.New("transition without expected status")
	}

	args := []any{string(t.To)}
	sets := []string{"status = $1"}
	set := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if t.NewRound != 0 {
		set("round_number", t.NewRound)
	}
	if t.RoundStartedAt != nil {
		set("round_started_at", toMillis(*t.RoundStartedAt))
	}
	if t.StartedAt != nil {
		set("started_at", toMillis(*t.StartedAt))
	}
	if t.EndedAt != nil {
		set("ended_at", toMillis(*t.EndedAt))
	}
	if t.EndReason != "" {
		set("end_reason", t.EndReason)
	}

	args = append(args, t.SessionID)
	where := []string{fmt.Sprintf("id = $%d", len(args))}
	marks := make([]string, len(t.From))
	for i, st := range t.From {
		args = append(args, string(st))
		marks[i] = fmt.Sprintf("$%d", len(args))
	}
	where = append(where, "status IN ("+strings.Join(marks, ", ")+")")
	if t.FromRound != 0 {
		args = append(args, t.FromRound)
		where = append(where, fmt.Sprintf("round_number = $%d", len(args)))
	}

	res, err := s.db.ExecContext(ctx,
		"UPDATE session SET "+strings.Join(sets, ", ")+" WHERE "+strings.Join(where, " AND "),
		args...)
	if err != nil {
		return false, wrapErr("update session", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, wrapErr("read rows affected", err)
	}
	if n == 1 {
		return true, nil
	}

	var exists int
	err = s.db.QueryRowContext(ctx, `SELECT 1 FROM session WHERE id = $1`, t.SessionID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return false, models.ErrSessionNotFound
	}
	if err != nil {
		return false, wrapErr("query session", err)
	}
	return false, nil
}

func (s *Store) CastVote(ctx context.Context, v models.Vote) (models.Vote, error) {
	snapshot, err := json.Marshal(v.ItemSnapshot)
	if err != nil {
		return models.Vote{}, fmt.Errorf("failed to encode item snapshot: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Vote{}, wrapErr("begin transaction", err)
	}
	defer tx.Rollback()

	var status string
	var round int
	err = tx.QueryRowContext(ctx,
		`SELECT status, round_number FROM session WHERE id = $1`+s.d.lockShare,
		v.SessionID).Scan(&status, &round)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Vote{}, models.ErrSessionNotFound
	}
	if err != nil {
		return models.Vote{}, wrapErr("query session", err)
	}

	if models.SessionStatus(status) != models.StatusActive {
		return models.Vote{}, fmt.Errorf("%w: status is %s", models.ErrSessionNotVotable, status)
	}

	v.RoundNumber = round
	_, err = tx.ExecContext(ctx, `
		INSERT INTO vote (id, session_id, voter_id, item_id, item_type, decision, item_snapshot, round_number, voted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, v.ID, v.SessionID, v.VoterID, v.ItemID, string(v.ItemType), string(v.Decision), string(snapshot),
		v.RoundNumber, toMillis(v.VotedAt))
	if isUniqueViolation(err) {
		return models.Vote{}, models.ErrDuplicateVote
	}
	if err != nil {
		return models.Vote{}, wrapErr("insert vote", err)
	}

	if err := tx.Commit(); err != nil {
		return models.Vote{}, wrapErr("commit vote", err)
	}

	v.VotedAt = fromMillis(toMillis(v.VotedAt))
	return v, nil
}

func (s *Store) ListVotes(ctx context.Context, sessionID string, round int) ([]models.Vote, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, voter_id, item_id, item_type, decision, item_snapshot, round_number, voted_at
		FROM vote
		WHERE session_id = $1 AND round_number = $2
		ORDER BY voted_at, id
	`, sessionID, round)
	if err != nil {
		return nil, wrapErr("query votes", err)
	}
	defer rows.Close()

	out := []models.Vote{}
	for rows.Next() {
		var v models.Vote
		var itemType, decision, snapshot string
		var votedAt int64
		if err := rows.Scan(&v.ID, &v.SessionID, &v.VoterID, &v.ItemID, &itemType, &decision,
			&snapshot, &v.RoundNumber, &votedAt); err != nil {
			return nil, wrapErr("scan vote", err)
		}
		v.ItemType = models.ItemType(itemType)
		v.Decision = models.Decision(decision)
		v.VotedAt = fromMillis(votedAt)
		if err := json.Unmarshal([]byte(snapshot), &v.ItemSnapshot); err != nil {
			return nil, fmt.Errorf("failed to decode item snapshot for vote %s: %w", v.ID, err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("iterate votes", err)
	}
	return out, nil
}

func (s *Store) CountDistinctVoters(ctx context.Context, sessionID string, round int) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(DISTINCT voter_id) FROM vote WHERE session_id = $1 AND round_number = $2
	`, sessionID, round).Scan(&n)
	if err != nil {
		return 0, wrapErr("count voters", err)
	}
	return n, nil
}

func (s *Store) CountLikes(ctx context.Context, sessionID string, round int, itemID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM vote
		WHERE session_id = $1 AND round_number = $2 AND item_id = $3 AND decision = 'like'
	`, sessionID, round, itemID).Scan(&n)
	if err != nil {
		return 0, wrapErr("count likes", err)
	}
	return n, nil
}

func (s *Store) ListItemsWithAnyLike(ctx context.Context, sessionID string, round int) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT item_id FROM vote
		WHERE session_id = $1 AND round_number = $2 AND decision = 'like'
		ORDER BY item_id
	`, sessionID, round)
	if err != nil {
		return nil, wrapErr("query liked items", err)
	}
	defer rows.Close()

	items := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, wrapErr("scan liked item", err)
		}
		items = append(items, id)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("iterate liked items", err)
	}
	return items, nil
}

// LikeTallies groups like votes per item. Rows arrive ordered by item and
// vote time, so the first row per item carries the snapshot a match keeps.
func (s *Store) LikeTallies(ctx context.Context, sessionID string, round int) ([]models.ItemTally, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT item_id, item_type, item_snapshot
		FROM vote
		WHERE session_id = $1 AND round_number = $2 AND decision = 'like'
		ORDER BY item_id, voted_at, id
	`, sessionID, round)
	if err != nil {
		return nil, wrapErr("query like tallies", err)
	}
	defer rows.Close()

	var out []models.ItemTally
	for rows.Next() {
		var itemID, itemType, snapshot string
		if err := rows.Scan(&itemID, &itemType, &snapshot); err != nil {
			return nil, wrapErr("scan like tally", err)
		}
		if n := len(out); n > 0 && out[n-1].ItemID == itemID {
			out[n-1].Likes++
			continue
		}
		t := models.ItemTally{ItemID: itemID, ItemType: models.ItemType(itemType), Likes: 1}
		if err := json.Unmarshal([]byte(snapshot), &t.Snapshot); err != nil {
			return nil, fmt.Errorf("failed to decode item snapshot for %s: %w", itemID, err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("iterate like tallies", err)
	}
	return out, nil
}

func (s *Store) InsertMatches(ctx context.Context, matches []models.Match) error {
	if len(matches) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return wrapErr("begin transaction", err)
	}
	defer tx.Rollback()

	for _, m := range matches {
		snapshot, err := json.Marshal(m.ItemSnapshot)
		if err != nil {
			return fmt.Errorf("failed to encode item snapshot: %w", err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO item_match (id, session_id, item_id, item_type, item_snapshot, vote_count, match_score, round_number, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			ON CONFLICT (session_id, item_id, round_number) DO NOTHING
		`, m.ID, m.SessionID, m.ItemID, string(m.ItemType), string(snapshot), m.VoteCount, m.MatchScore,
			m.RoundNumber, toMillis(m.CreatedAt))
		if err != nil {
			return wrapErr("insert match", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return wrapErr("commit matches", err)
	}
	return nil
}

func (s *Store) ListMatches(ctx context.Context, sessionID string, round int) ([]models.Match, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, item_id, item_type, item_snapshot, vote_count, match_score, round_number, created_at
		FROM item_match
		WHERE session_id = $1 AND round_number = $2
		ORDER BY item_id
	`, sessionID, round)
	if err != nil {
		return nil, wrapErr("query matches", err)
	}
	defer rows.Close()

	out := []models.Match{}
	for rows.Next() {
		var m models.Match
		var itemType, snapshot string
		var createdAt int64
		if err := rows.Scan(&m.ID, &m.SessionID, &m.ItemID, &itemType, &snapshot, &m.VoteCount,
			&m.MatchScore, &m.RoundNumber, &createdAt); err != nil {
			return nil, wrapErr("scan match", err)
		}
		m.ItemType = models.ItemType(itemType)
		m.CreatedAt = fromMillis(createdAt)
		if err := json.Unmarshal([]byte(snapshot), &m.ItemSnapshot); err != nil {
			return nil, fmt.Errorf("failed to decode item snapshot for match %s: %w", m.ID, err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("iterate matches", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(row scanner) (models.Session, error) {
	var sess models.Session
	var status, energy, config string
	var roundStartedAt, startedAt, endedAt sql.NullInt64
	var endReason sql.NullString
	var createdAt int64

	err := row.Scan(&sess.ID, &sess.GroupID, &status, &energy, &sess.RoundNumber, &config,
		&roundStartedAt, &startedAt, &endedAt, &endReason, &createdAt)
	if err != nil {
		return models.Session{}, err
	}

	sess.Status = models.SessionStatus(status)
	sess.EnergyLevel = models.EnergyLevel(energy)
	sess.RoundStartedAt = fromNullMillis(roundStartedAt)
	sess.StartedAt = fromNullMillis(startedAt)
	sess.EndedAt = fromNullMillis(endedAt)
	sess.EndReason = endReason.String
	sess.CreatedAt = fromMillis(createdAt)
	if err := json.Unmarshal([]byte(config), &sess.Config); err != nil {
		return models.Session{}, fmt.Errorf("corrupted config for session %s: %w", sess.ID, err)
	}
	return sess, nil
}

func toMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func nullMillis(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: toMillis(*t), Valid: true}
}

func fromNullMillis(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := fromMillis(v.Int64)
	return &t
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

var _ store.Store = (*Store)(nil)

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/trackify/internal/model"
)

// FollowStore keeps the follower graph. The (follower, followee) primary key
// means a pair is present at most once.
type FollowStore struct {
	db  *sql.DB
	now func() time.Time
}

func NewFollowStore(db *sql.DB) *FollowStore {
	return &FollowStore{db: db, now: time.Now}
}

// Follow adds the edge. added is false when it already existed.
func (s *FollowStore) Follow(ctx context.Context, followerID, followeeID string) (bool, error) {
	result, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO follows (follower_id, followee_id, created_at) VALUES (?, ?, ?)`,
		followerID, followeeID, formatTime(s.now()),
	)
	if err != nil {
		return false, wrapWrite("insert follow", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

// Unfollow removes the edge. removed is false when it did not exist.
func (s *FollowStore) Unfollow(ctx context.Context, followerID, followeeID string) (bool, error) {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM follows WHERE follower_id = ? AND followee_id = ?`,
		followerID, followeeID,
	)
	if err != nil {
		return false, fmt.Errorf("delete follow: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

func (s *FollowStore) IsFollowing(ctx context.Context, followerID, followeeID string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM follows WHERE follower_id = ? AND followee_id = ?`,
		followerID, followeeID,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check follow: %w", err)
	}
	return n > 0, nil
}

func (s *FollowStore) ListFollowers(ctx context.Context, userID string) ([]model.UserSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT u.id, u.username, u.email FROM follows f
		 JOIN users u ON u.id = f.follower_id
		 WHERE f.followee_id = ? ORDER BY f.created_at ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list followers: %w", err)
	}
	return scanSummaries(rows)
}

func (s *FollowStore) ListFollowing(ctx context.Context, userID string) ([]model.UserSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT u.id, u.username, u.email FROM follows f
		 JOIN users u ON u.id = f.followee_id
		 WHERE f.follower_id = ? ORDER BY f.created_at ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list following: %w", err)
	}
	return scanSummaries(rows)
}

// FollowerIDs returns the ids of everyone following userID.
func (s *FollowStore) FollowerIDs(ctx context.Context, userID string) ([]string, error) {
	return s.ids(ctx, `SELECT follower_id FROM follows WHERE followee_id = ?`, userID)
}

// FollowingIDs returns the ids of everyone userID follows.
func (s *FollowStore) FollowingIDs(ctx context.Context, userID string) ([]string, error) {
	return s.ids(ctx, `SELECT followee_id FROM follows WHERE follower_id = ?`, userID)
}

func (s *FollowStore) ids(ctx context.Context, query, userID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list follow ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan follow id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

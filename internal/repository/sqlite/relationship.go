package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sakif/snapgram/internal/apperror"
	"github.com/sakif/snapgram/internal/model"
	"github.com/sakif/snapgram/internal/repository"
)

// Follow creates the followerID → followingID edge.
func (db *DB) Follow(ctx context.Context, followerID, followingID string) error {
	if followerID == followingID {
		return apperror.SelfFollow()
	}

	return db.withTx(ctx, func(tx *sql.Tx) error {
		exists, err := rowExists(ctx, tx, `SELECT EXISTS (SELECT 1 FROM users WHERE id = ?)`, followingID)
		if err != nil {
			return fmt.Errorf("sqlite: checking user %s: %w", followingID, err)
		}
		if !exists {
			return apperror.NotFound("user", followingID)
		}

		result, err := tx.ExecContext(ctx,
			`INSERT INTO follows (follower_id, following_id, created_at) VALUES (?, ?, ?)
			 ON CONFLICT (follower_id, following_id) DO NOTHING`,
			followerID, followingID, now(),
		)
		if err != nil {
			return fmt.Errorf("sqlite: inserting follow %s -> %s: %w", followerID, followingID, err)
		}

		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("sqlite: checking rows affected: %w", err)
		}
		if rowsAffected == 0 {
			return apperror.AlreadyFollowing()
		}
		return nil
	})
}

// Unfollow removes the followerID → followingID edge.
func (db *DB) Unfollow(ctx context.Context, followerID, followingID string) error {
	result, err := db.conn.ExecContext(ctx,
		`DELETE FROM follows WHERE follower_id = ? AND following_id = ?`,
		followerID, followingID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: deleting follow %s -> %s: %w", followerID, followingID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFollowing()
	}

	return nil
}

func (db *DB) IsFollowing(ctx context.Context, followerID, followingID string) (bool, error) {
	exists, err := rowExists(ctx, db.conn,
		`SELECT EXISTS (SELECT 1 FROM follows WHERE follower_id = ? AND following_id = ?)`,
		followerID, followingID,
	)
	if err != nil {
		return false, fmt.Errorf("sqlite: checking follow %s -> %s: %w", followerID, followingID, err)
	}
	return exists, nil
}

// ListFollowers returns users following subjectID, most recent follow first.
// is_following on each row is whether viewerID follows that row's user.
func (db *DB) ListFollowers(ctx context.Context, subjectID, viewerID string, opts repository.ListOptions) ([]model.Member, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT u.id, u.username, u.full_name, u.profile_picture,
		        EXISTS (SELECT 1 FROM follows f2 WHERE f2.follower_id = ? AND f2.following_id = u.id)
		 FROM follows f
		 JOIN users u ON u.id = f.follower_id
		 WHERE f.following_id = ?
		 ORDER BY f.created_at DESC, u.id DESC
		 LIMIT ? OFFSET ?`,
		viewerID, subjectID, opts.Limit, opts.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing followers of %s: %w", subjectID, err)
	}

	return scanMembers(rows)
}

// ListFollowing returns users subjectID follows, most recent follow first.
func (db *DB) ListFollowing(ctx context.Context, subjectID, viewerID string, opts repository.ListOptions) ([]model.Member, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT u.id, u.username, u.full_name, u.profile_picture,
		        EXISTS (SELECT 1 FROM follows f2 WHERE f2.follower_id = ? AND f2.following_id = u.id)
		 FROM follows f
		 JOIN users u ON u.id = f.following_id
		 WHERE f.follower_id = ?
		 ORDER BY f.created_at DESC, u.id DESC
		 LIMIT ? OFFSET ?`,
		viewerID, subjectID, opts.Limit, opts.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing following of %s: %w", subjectID, err)
	}

	return scanMembers(rows)
}

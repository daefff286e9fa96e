package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/sakif/snapgram/internal/apperror"
	"github.com/sakif/snapgram/internal/model"
	"github.com/sakif/snapgram/internal/repository"
)

func (db *DB) Follow(ctx context.Context, followerID, followingID string) error {
	if followerID == followingID {
		return apperror.SelfFollow()
	}

	return db.withTx(ctx, func(tx pgx.Tx) error {
		exists, err := rowExists(ctx, tx, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, followingID)
		if err != nil {
			return fmt.Errorf("postgres: checking user %s: %w", followingID, err)
		}
		if !exists {
			return apperror.NotFound("user", followingID)
		}

		tag, err := tx.Exec(ctx,
			`INSERT INTO follows (follower_id, following_id, created_at) VALUES ($1, $2, $3)
			 ON CONFLICT (follower_id, following_id) DO NOTHING`,
			followerID, followingID, now(),
		)
		if err != nil {
			if isForeignKeyViolation(err) {
				return apperror.NotFound("user", followingID)
			}
			return fmt.Errorf("postgres: inserting follow %s -> %s: %w", followerID, followingID, err)
		}
		if tag.RowsAffected() == 0 {
			return apperror.AlreadyFollowing()
		}
		return nil
	})
}

func (db *DB) Unfollow(ctx context.Context, followerID, followingID string) error {
	tag, err := db.pool.Exec(ctx,
		`DELETE FROM follows WHERE follower_id = $1 AND following_id = $2`,
		followerID, followingID,
	)
	if err != nil {
		return fmt.Errorf("postgres: deleting follow %s -> %s: %w", followerID, followingID, err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NotFollowing()
	}
	return nil
}

func (db *DB) IsFollowing(ctx context.Context, followerID, followingID string) (bool, error) {
	exists, err := rowExists(ctx, db.pool,
		`SELECT EXISTS (SELECT 1 FROM follows WHERE follower_id = $1 AND following_id = $2)`,
		followerID, followingID,
	)
	if err != nil {
		return false, fmt.Errorf("postgres: checking follow %s -> %s: %w", followerID, followingID, err)
	}
	return exists, nil
}

// ListFollowers returns users following subjectID, most recent follow
// first, with is_following relative to viewerID.
func (db *DB) ListFollowers(ctx context.Context, subjectID, viewerID string, opts repository.ListOptions) ([]model.Member, error) {
	return db.listMembers(ctx, "followers", `
		SELECT u.id, u.username, u.full_name, u.profile_picture,
		       EXISTS (SELECT 1 FROM follows f2 WHERE f2.follower_id = $1 AND f2.following_id = u.id)
		FROM follows f
		JOIN users u ON u.id = f.follower_id
		WHERE f.following_id = $2
		ORDER BY f.created_at DESC, u.id DESC
		LIMIT $3 OFFSET $4`,
		subjectID, viewerID, opts)
}

func (db *DB) ListFollowing(ctx context.Context, subjectID, viewerID string, opts repository.ListOptions) ([]model.Member, error) {
	return db.listMembers(ctx, "following", `
		SELECT u.id, u.username, u.full_name, u.profile_picture,
		       EXISTS (SELECT 1 FROM follows f2 WHERE f2.follower_id = $1 AND f2.following_id = u.id)
		FROM follows f
		JOIN users u ON u.id = f.following_id
		WHERE f.follower_id = $2
		ORDER BY f.created_at DESC, u.id DESC
		LIMIT $3 OFFSET $4`,
		subjectID, viewerID, opts)
}

func (db *DB) listMembers(ctx context.Context, kind, sql, subjectID, viewerID string, opts repository.ListOptions) ([]model.Member, error) {
	rows, err := db.pool.Query(ctx, sql, viewerID, subjectID, opts.Limit, opts.Offset)
	if err != nil {
		return nil, fmt.Errorf("postgres: listing %s of %s: %w", kind, subjectID, err)
	}

	members, err := collect(rows, scanMember)
	if err != nil {
		return nil, fmt.Errorf("postgres: scanning %s: %w", kind, err)
	}
	return members, nil
}

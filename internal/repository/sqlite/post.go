package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rs/xid"

	"github.com/sakif/snapgram/internal/apperror"
	"github.com/sakif/snapgram/internal/model"
	"github.com/sakif/snapgram/internal/repository"
)

// postViewSelect is shared by every post listing. The first placeholder is
// the viewer ID used for is_liked; callers append their WHERE clause.
//
// The counts are correlated subqueries, evaluated once per returned row, so
// they always reflect the rows present when the statement runs.
const postViewSelect = `
	SELECT p.id, p.user_id, p.image_url, p.caption, p.created_at,
	       u.username, u.profile_picture,
	       (SELECT COUNT(*) FROM likes l WHERE l.post_id = p.id),
	       (SELECT COUNT(*) FROM comments c WHERE c.post_id = p.id),
	       EXISTS (SELECT 1 FROM likes l WHERE l.post_id = p.id AND l.user_id = ?)
	FROM posts p
	JOIN users u ON u.id = p.user_id`

// CreatePost inserts a new post, filling its ID and creation time.
func (db *DB) CreatePost(ctx context.Context, post *model.Post) error {
	post.ID = xid.New().String()
	post.CreatedAt = now()

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO posts (id, user_id, image_url, caption, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		post.ID,
		post.UserID,
		post.ImageURL,
		post.Caption,
		post.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating post: %w", err)
	}

	return nil
}

// GetPost returns the post with engagement and its full comment list. Both
// reads happen in one transaction so the comment list and comments_count
// agree.
func (db *DB) GetPost(ctx context.Context, postID, viewerID string) (*model.PostDetail, error) {
	var detail model.PostDetail

	err := db.withTx(ctx, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, postViewSelect+` WHERE p.id = ?`, viewerID, postID)
		view, err := scanPostView(row)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apperror.NotFound("post", postID)
			}
			return fmt.Errorf("sqlite: getting post %s: %w", postID, err)
		}

		comments, err := listComments(ctx, tx, postID)
		if err != nil {
			return err
		}

		detail.PostView = *view
		detail.Comments = comments
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &detail, nil
}

// ListUserPosts returns every post by authorID, newest first.
func (db *DB) ListUserPosts(ctx context.Context, authorID, viewerID string) ([]model.PostView, error) {
	rows, err := db.conn.QueryContext(ctx,
		postViewSelect+`
		 WHERE p.user_id = ?
		 ORDER BY p.created_at DESC, p.id DESC`,
		viewerID, authorID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing posts of %s: %w", authorID, err)
	}

	return scanPostViews(rows)
}

// Feed returns the viewer's own posts plus posts of everyone the viewer
// follows, newest first.
func (db *DB) Feed(ctx context.Context, viewerID string, opts repository.ListOptions) ([]model.PostView, error) {
	rows, err := db.conn.QueryContext(ctx,
		postViewSelect+`
		 WHERE p.user_id = ?
		    OR p.user_id IN (SELECT following_id FROM follows WHERE follower_id = ?)
		 ORDER BY p.created_at DESC, p.id DESC
		 LIMIT ? OFFSET ?`,
		viewerID, viewerID, viewerID, opts.Limit, opts.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: loading feed for %s: %w", viewerID, err)
	}

	return scanPostViews(rows)
}

// DeletePost removes the post when ownerID is its author. A missing post
// and someone else's post are reported identically.
func (db *DB) DeletePost(ctx context.Context, postID, ownerID string) error {
	result, err := db.conn.ExecContext(ctx,
		`DELETE FROM posts WHERE id = ? AND user_id = ?`,
		postID, ownerID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: deleting post %s: %w", postID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFoundOrUnauthorized("post")
	}

	return nil
}

func scanPostView(row rowScanner) (*model.PostView, error) {
	var v model.PostView
	err := row.Scan(
		&v.ID, &v.UserID, &v.ImageURL, &v.Caption, &v.CreatedAt,
		&v.Username, &v.ProfilePicture,
		&v.LikesCount, &v.CommentsCount, &v.IsLiked,
	)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func scanPostViews(rows *sql.Rows) ([]model.PostView, error) {
	defer rows.Close()

	posts := make([]model.PostView, 0)
	for rows.Next() {
		v, err := scanPostView(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning post row: %w", err)
		}
		posts = append(posts, *v)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating posts: %w", err)
	}

	return posts, nil
}

package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rs/xid"

	"github.com/sakif/snapgram/internal/apperror"
	"github.com/sakif/snapgram/internal/model"
)

// Like records userID's like on postID and returns the new like count.
//
// The insert uses ON CONFLICT DO NOTHING against the (user_id, post_id)
// primary key: if a concurrent request won the race, zero rows are affected
// and the caller gets AlreadyLiked instead of a constraint error.
func (db *DB) Like(ctx context.Context, postID, userID string) (int, error) {
	var count int

	err := db.withTx(ctx, func(tx *sql.Tx) error {
		if err := requirePost(ctx, tx, postID); err != nil {
			return err
		}

		result, err := tx.ExecContext(ctx,
			`INSERT INTO likes (user_id, post_id, created_at) VALUES (?, ?, ?)
			 ON CONFLICT (user_id, post_id) DO NOTHING`,
			userID, postID, now(),
		)
		if err != nil {
			return fmt.Errorf("sqlite: inserting like on %s: %w", postID, err)
		}

		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("sqlite: checking rows affected: %w", err)
		}
		if rowsAffected == 0 {
			return apperror.AlreadyLiked()
		}

		count, err = countLikes(ctx, tx, postID)
		return err
	})
	if err != nil {
		return 0, err
	}

	return count, nil
}

// Unlike removes userID's like on postID and returns the new like count.
func (db *DB) Unlike(ctx context.Context, postID, userID string) (int, error) {
	var count int

	err := db.withTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx,
			`DELETE FROM likes WHERE user_id = ? AND post_id = ?`,
			userID, postID,
		)
		if err != nil {
			return fmt.Errorf("sqlite: deleting like on %s: %w", postID, err)
		}

		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("sqlite: checking rows affected: %w", err)
		}
		if rowsAffected == 0 {
			return apperror.NotLiked()
		}

		count, err = countLikes(ctx, tx, postID)
		return err
	})
	if err != nil {
		return 0, err
	}

	return count, nil
}

// AddComment inserts the comment and returns it joined with its author.
func (db *DB) AddComment(ctx context.Context, comment *model.Comment) (*model.CommentView, error) {
	comment.ID = xid.New().String()
	comment.CreatedAt = now()

	view := &model.CommentView{
		ID:        comment.ID,
		Text:      comment.Text,
		CreatedAt: comment.CreatedAt,
	}

	err := db.withTx(ctx, func(tx *sql.Tx) error {
		if err := requirePost(ctx, tx, comment.PostID); err != nil {
			return err
		}

		_, err := tx.ExecContext(ctx,
			`INSERT INTO comments (id, user_id, post_id, comment_text, created_at)
			 VALUES (?, ?, ?, ?, ?)`,
			comment.ID,
			comment.UserID,
			comment.PostID,
			comment.Text,
			comment.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("sqlite: inserting comment on %s: %w", comment.PostID, err)
		}

		err = tx.QueryRowContext(ctx,
			`SELECT username, profile_picture FROM users WHERE id = ?`,
			comment.UserID,
		).Scan(&view.Username, &view.ProfilePicture)
		if err != nil {
			return fmt.Errorf("sqlite: loading comment author %s: %w", comment.UserID, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return view, nil
}

// ListComments returns every comment on the post, newest first. An unknown
// post simply has no comments.
func (db *DB) ListComments(ctx context.Context, postID string) ([]model.CommentView, error) {
	return listComments(ctx, db.conn, postID)
}

// DeleteComment removes the comment when ownerID wrote it.
func (db *DB) DeleteComment(ctx context.Context, commentID, ownerID string) error {
	result, err := db.conn.ExecContext(ctx,
		`DELETE FROM comments WHERE id = ? AND user_id = ?`,
		commentID, ownerID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: deleting comment %s: %w", commentID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFoundOrUnauthorized("comment")
	}

	return nil
}

func listComments(ctx context.Context, q querier, postID string) ([]model.CommentView, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT c.id, c.comment_text, c.created_at, u.username, u.profile_picture
		 FROM comments c
		 JOIN users u ON u.id = c.user_id
		 WHERE c.post_id = ?
		 ORDER BY c.created_at DESC, c.id DESC`,
		postID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing comments on %s: %w", postID, err)
	}
	defer rows.Close()

	comments := make([]model.CommentView, 0)
	for rows.Next() {
		var c model.CommentView
		if err := rows.Scan(&c.ID, &c.Text, &c.CreatedAt, &c.Username, &c.ProfilePicture); err != nil {
			return nil, fmt.Errorf("sqlite: scanning comment row: %w", err)
		}
		comments = append(comments, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating comments: %w", err)
	}

	return comments, nil
}

func requirePost(ctx context.Context, q querier, postID string) error {
	exists, err := rowExists(ctx, q, `SELECT EXISTS (SELECT 1 FROM posts WHERE id = ?)`, postID)
	if err != nil {
		return fmt.Errorf("sqlite: checking post %s: %w", postID, err)
	}
	if !exists {
		return apperror.NotFound("post", postID)
	}
	return nil
}

func countLikes(ctx context.Context, q querier, postID string) (int, error) {
	var count int
	err := q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM likes WHERE post_id = ?`, postID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("sqlite: counting likes on %s: %w", postID, err)
	}
	return count, nil
}

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

const userColumns = `id, username, email, password_hash, full_name, bio, profile_picture, github_id, created_at`

// CreateUser inserts a new user, generating its ID and creation time.
//
// The UNIQUE constraints on username and email are the source of truth for
// duplicates: two concurrent signups with the same name race on the insert
// and the loser gets a conflict, not a second row.
func (db *DB) CreateUser(ctx context.Context, user *model.User) error {
	user.ID = xid.New().String()
	user.CreatedAt = now()

	var githubID sql.NullInt64
	if user.GitHubID != nil {
		githubID = sql.NullInt64{Int64: *user.GitHubID, Valid: true}
	}

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO users (id, username, email, password_hash, full_name, bio, profile_picture, github_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.FullName,
		user.Bio,
		user.ProfilePicture,
		githubID,
		user.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.ConflictCode("user_exists", "username or email already exists")
		}
		return fmt.Errorf("sqlite: inserting user %s: %w", user.Username, err)
	}

	return nil
}

// GetUserByID retrieves a user by their internal ID.
// Returns apperror.ErrNotFound if no user exists with that ID.
func (db *DB) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	return scanUser(row, "id", id)
}

func (db *DB) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = ?`, username)
	return scanUser(row, "username", username)
}

func (db *DB) GetUserByGitHubID(ctx context.Context, githubID int64) (*model.User, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE github_id = ?`, githubID)
	return scanUser(row, "github_id", fmt.Sprint(githubID))
}

// UpdateProfilePicture sets the user's picture URL; "" clears it.
func (db *DB) UpdateProfilePicture(ctx context.Context, userID, url string) (*model.User, error) {
	var user *model.User

	err := db.withTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx,
			`UPDATE users SET profile_picture = ? WHERE id = ?`, url, userID)
		if err != nil {
			return fmt.Errorf("sqlite: updating profile picture for %s: %w", userID, err)
		}

		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("sqlite: checking rows affected: %w", err)
		}
		if rowsAffected == 0 {
			return apperror.NotFound("user", userID)
		}

		user, err = scanUser(tx.QueryRowContext(ctx,
			`SELECT `+userColumns+` FROM users WHERE id = ?`, userID), "id", userID)
		return err
	})
	if err != nil {
		return nil, err
	}

	return user, nil
}

// GetProfile loads the subject with its live counts and the viewer's follow
// state in one statement.
func (db *DB) GetProfile(ctx context.Context, subjectID, viewerID string) (*model.Profile, error) {
	var (
		p        model.Profile
		githubID sql.NullInt64
	)

	err := db.conn.QueryRowContext(ctx,
		`SELECT u.id, u.username, u.email, u.password_hash, u.full_name, u.bio,
		        u.profile_picture, u.github_id, u.created_at,
		        (SELECT COUNT(*) FROM follows WHERE following_id = u.id),
		        (SELECT COUNT(*) FROM follows WHERE follower_id = u.id),
		        (SELECT COUNT(*) FROM posts WHERE user_id = u.id),
		        EXISTS (SELECT 1 FROM follows WHERE follower_id = ? AND following_id = u.id)
		 FROM users u
		 WHERE u.id = ?`,
		viewerID, subjectID,
	).Scan(
		&p.ID, &p.Username, &p.Email, &p.PasswordHash, &p.FullName, &p.Bio,
		&p.ProfilePicture, &githubID, &p.CreatedAt,
		&p.FollowersCount, &p.FollowingCount, &p.PostsCount, &p.IsFollowing,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", subjectID)
		}
		return nil, fmt.Errorf("sqlite: getting profile %s: %w", subjectID, err)
	}

	if githubID.Valid {
		p.GitHubID = &githubID.Int64
	}
	p.IsOwnProfile = subjectID == viewerID

	return &p, nil
}

// SearchUsers matches username or full name by substring. SQLite's LIKE is
// case-insensitive for ASCII, which mirrors ILIKE closely enough here.
func (db *DB) SearchUsers(ctx context.Context, query, viewerID string, limit int) ([]model.Member, error) {
	pattern := repository.LikePattern(query)

	rows, err := db.conn.QueryContext(ctx,
		`SELECT u.id, u.username, u.full_name, u.profile_picture,
		        EXISTS (SELECT 1 FROM follows f WHERE f.follower_id = ? AND f.following_id = u.id)
		 FROM users u
		 WHERE (u.username LIKE ? ESCAPE '\' OR u.full_name LIKE ? ESCAPE '\')
		   AND u.id <> ?
		 ORDER BY u.username
		 LIMIT ?`,
		viewerID, pattern, pattern, viewerID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: searching users: %w", err)
	}

	return scanMembers(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner, key, value string) (*model.User, error) {
	var (
		u        model.User
		githubID sql.NullInt64
	)

	err := row.Scan(
		&u.ID,
		&u.Username,
		&u.Email,
		&u.PasswordHash,
		&u.FullName,
		&u.Bio,
		&u.ProfilePicture,
		&githubID,
		&u.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", value)
		}
		return nil, fmt.Errorf("sqlite: getting user by %s %s: %w", key, value, err)
	}

	if githubID.Valid {
		u.GitHubID = &githubID.Int64
	}
	return &u, nil
}

// scanMembers drains rows of (id, username, full_name, profile_picture,
// is_following) and closes them.
func scanMembers(rows *sql.Rows) ([]model.Member, error) {
	defer rows.Close()

	members := make([]model.Member, 0)
	for rows.Next() {
		var m model.Member
		if err := rows.Scan(&m.ID, &m.Username, &m.FullName, &m.ProfilePicture, &m.IsFollowing); err != nil {
			return nil, fmt.Errorf("sqlite: scanning member row: %w", err)
		}
		members = append(members, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating members: %w", err)
	}

	return members, nil
}

// Package repository declares the storage contracts the service layer
// depends on. Implementations live in the sqlite and postgres subpackages.
//
// Every method takes the viewer explicitly where the result is
// viewer-relative (is_liked, is_following), so the same query serves any
// caller. Counts are always computed from rows at query time.
package repository

import (
	"context"
	"strings"

	"github.com/sakif/snapgram/internal/model"
)

type ListOptions struct {
	Limit  int
	Offset int
}

type UserRepository interface {
	// CreateUser inserts the user, filling ID and CreatedAt. A taken
	// username or email yields apperror.ErrConflict.
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	GetUserByGitHubID(ctx context.Context, githubID int64) (*model.User, error)
	// UpdateProfilePicture sets (or clears, with "") the picture URL and
	// returns the updated user.
	UpdateProfilePicture(ctx context.Context, userID, url string) (*model.User, error)
	GetProfile(ctx context.Context, subjectID, viewerID string) (*model.Profile, error)
	// SearchUsers matches username or full name by substring, case
	// insensitive, excluding the viewer, ordered by username.
	SearchUsers(ctx context.Context, query, viewerID string, limit int) ([]model.Member, error)
}

type PostRepository interface {
	CreatePost(ctx context.Context, post *model.Post) error
	GetPost(ctx context.Context, postID, viewerID string) (*model.PostDetail, error)
	ListUserPosts(ctx context.Context, authorID, viewerID string) ([]model.PostView, error)
	// DeletePost removes the post only when ownerID authored it.
	DeletePost(ctx context.Context, postID, ownerID string) error
	// Feed returns posts by the viewer and everyone the viewer follows,
	// newest first.
	Feed(ctx context.Context, viewerID string, opts ListOptions) ([]model.PostView, error)
}

type EngagementRepository interface {
	// Like and Unlike return the post's like count after the mutation.
	Like(ctx context.Context, postID, userID string) (int, error)
	Unlike(ctx context.Context, postID, userID string) (int, error)
	AddComment(ctx context.Context, comment *model.Comment) (*model.CommentView, error)
	ListComments(ctx context.Context, postID string) ([]model.CommentView, error)
	// DeleteComment removes the comment only when ownerID authored it.
	DeleteComment(ctx context.Context, commentID, ownerID string) error
}

type RelationshipRepository interface {
	Follow(ctx context.Context, followerID, followingID string) error
	Unfollow(ctx context.Context, followerID, followingID string) error
	IsFollowing(ctx context.Context, followerID, followingID string) (bool, error)
	ListFollowers(ctx context.Context, subjectID, viewerID string, opts ListOptions) ([]model.Member, error)
	ListFollowing(ctx context.Context, subjectID, viewerID string, opts ListOptions) ([]model.Member, error)
}

// Store is the full storage client. One value is constructed at startup and
// injected into every service.
type Store interface {
	UserRepository
	PostRepository
	EngagementRepository
	RelationshipRepository
	Close() error
}

// MaxPageSize caps every paginated listing.
const MaxPageSize = 50

// Clamp applies the pagination policy shared by all listings: a
// non-positive limit becomes defaultLimit, anything above MaxPageSize is
// capped, and a negative offset becomes zero.
func (o ListOptions) Clamp(defaultLimit int) ListOptions {
	if o.Limit <= 0 {
		o.Limit = defaultLimit
	}
	if o.Limit > MaxPageSize {
		o.Limit = MaxPageSize
	}
	if o.Offset < 0 {
		o.Offset = 0
	}
	return o
}

// LikePattern turns free text into a substring pattern for LIKE/ILIKE with
// ESCAPE '\', so user-typed % and _ match literally.
func LikePattern(query string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(query) + "%"
}

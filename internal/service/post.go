package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/sakif/snapgram/internal/apperror"
	"github.com/sakif/snapgram/internal/model"
	"github.com/sakif/snapgram/internal/repository"
)

const (
	MaxImageURLLength = 2048
	MaxCaptionLength  = 2200

	DefaultFeedLimit = 20
)

// PostService owns the post lifecycle and the feed.
type PostService struct {
	posts  repository.PostRepository
	logger *slog.Logger
}

func NewPostService(posts repository.PostRepository, logger *slog.Logger) *PostService {
	return &PostService{
		posts:  posts,
		logger: logger,
	}
}

// Create publishes a post. The image reference is required; the caption
// may be empty.
func (s *PostService) Create(ctx context.Context, viewerID, imageURL, caption string) (*model.Post, error) {
	imageURL = strings.TrimSpace(imageURL)
	if imageURL == "" {
		return nil, apperror.ValidationFailed("image_url", "image URL is required")
	}
	if utf8.RuneCountInString(imageURL) > MaxImageURLLength {
		return nil, apperror.ValidationFailed("image_url",
			fmt.Sprintf("image URL must be %d characters or less", MaxImageURLLength))
	}
	if utf8.RuneCountInString(caption) > MaxCaptionLength {
		return nil, apperror.ValidationFailed("caption",
			fmt.Sprintf("caption must be %d characters or less", MaxCaptionLength))
	}

	post := &model.Post{
		UserID:   viewerID,
		ImageURL: imageURL,
		Caption:  caption,
	}
	if err := s.posts.CreatePost(ctx, post); err != nil {
		return nil, storeFailure(s.logger, "creating post", err, slog.String("userID", viewerID))
	}

	s.logger.Info("post created",
		slog.String("id", post.ID),
		slog.String("userID", viewerID),
	)

	return post, nil
}

// Get returns the post with engagement and its comments.
func (s *PostService) Get(ctx context.Context, postID, viewerID string) (*model.PostDetail, error) {
	post, err := s.posts.GetPost(ctx, postID, viewerID)
	if err != nil {
		return nil, storeFailure(s.logger, "getting post", err, slog.String("postID", postID))
	}
	return post, nil
}

// ListByUser returns all posts by authorID, newest first.
func (s *PostService) ListByUser(ctx context.Context, authorID, viewerID string) ([]model.PostView, error) {
	posts, err := s.posts.ListUserPosts(ctx, authorID, viewerID)
	if err != nil {
		return nil, storeFailure(s.logger, "listing user posts", err, slog.String("authorID", authorID))
	}
	return posts, nil
}

// Delete removes a post the viewer authored. Someone else's post and a
// missing post produce the same NotFound error.
func (s *PostService) Delete(ctx context.Context, postID, viewerID string) error {
	if err := s.posts.DeletePost(ctx, postID, viewerID); err != nil {
		return storeFailure(s.logger, "deleting post", err, slog.String("postID", postID))
	}

	s.logger.Info("post deleted",
		slog.String("id", postID),
		slog.String("userID", viewerID),
	)
	return nil
}

// Feed returns the viewer's own posts and those of everyone they follow,
// newest first, paginated with the shared clamp (default 20).
func (s *PostService) Feed(ctx context.Context, viewerID string, limit, offset int) ([]model.PostView, error) {
	opts := repository.ListOptions{Limit: limit, Offset: offset}.Clamp(DefaultFeedLimit)

	posts, err := s.posts.Feed(ctx, viewerID, opts)
	if err != nil {
		return nil, storeFailure(s.logger, "loading feed", err, slog.String("userID", viewerID))
	}
	return posts, nil
}

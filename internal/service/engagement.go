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

const MaxCommentLength = 2200

// EngagementService handles likes and comments.
type EngagementService struct {
	repo   repository.EngagementRepository
	logger *slog.Logger
}

func NewEngagementService(repo repository.EngagementRepository, logger *slog.Logger) *EngagementService {
	return &EngagementService{
		repo:   repo,
		logger: logger,
	}
}

// Like records the viewer's like and returns the fresh like count.
func (s *EngagementService) Like(ctx context.Context, postID, viewerID string) (int, error) {
	count, err := s.repo.Like(ctx, postID, viewerID)
	if err != nil {
		return 0, storeFailure(s.logger, "liking post", err,
			slog.String("postID", postID), slog.String("userID", viewerID))
	}
	return count, nil
}

// Unlike removes the viewer's like and returns the fresh like count.
func (s *EngagementService) Unlike(ctx context.Context, postID, viewerID string) (int, error) {
	count, err := s.repo.Unlike(ctx, postID, viewerID)
	if err != nil {
		return 0, storeFailure(s.logger, "unliking post", err,
			slog.String("postID", postID), slog.String("userID", viewerID))
	}
	return count, nil
}

// AddComment stores a comment. The text is trimmed and must not be blank.
func (s *EngagementService) AddComment(ctx context.Context, postID, viewerID, text string) (*model.CommentView, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperror.ValidationFailed("comment_text", "comment text is required")
	}
	if utf8.RuneCountInString(text) > MaxCommentLength {
		return nil, apperror.ValidationFailed("comment_text",
			fmt.Sprintf("comment must be %d characters or less", MaxCommentLength))
	}

	view, err := s.repo.AddComment(ctx, &model.Comment{
		PostID: postID,
		UserID: viewerID,
		Text:   text,
	})
	if err != nil {
		return nil, storeFailure(s.logger, "adding comment", err, slog.String("postID", postID))
	}
	return view, nil
}

// ListComments returns every comment on the post, newest first.
func (s *EngagementService) ListComments(ctx context.Context, postID string) ([]model.CommentView, error) {
	comments, err := s.repo.ListComments(ctx, postID)
	if err != nil {
		return nil, storeFailure(s.logger, "listing comments", err, slog.String("postID", postID))
	}
	return comments, nil
}

// DeleteComment removes a comment the viewer wrote.
func (s *EngagementService) DeleteComment(ctx context.Context, commentID, viewerID string) error {
	if err := s.repo.DeleteComment(ctx, commentID, viewerID); err != nil {
		return storeFailure(s.logger, "deleting comment", err, slog.String("commentID", commentID))
	}
	return nil
}

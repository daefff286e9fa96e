package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/snapgram/internal/service"
)

// EngagementHandler serves likes and comments.
type EngagementHandler struct {
	engagement *service.EngagementService
}

func NewEngagementHandler(engagement *service.EngagementService) *EngagementHandler {
	return &EngagementHandler{engagement: engagement}
}

// LikeResponse carries the post's like count after the change.
type LikeResponse struct {
	Message    string `json:"message"`
	LikesCount int    `json:"likes_count"`
}

type addCommentRequest struct {
	CommentText string `json:"comment_text" validate:"required,max=2200"`
}

// HandleLike likes a post.
//
// HTTP: POST /api/likes/{postID}
func (h *EngagementHandler) HandleLike(w http.ResponseWriter, r *http.Request) {
	viewer, ok := requireViewer(w, r)
	if !ok {
		return
	}

	count, err := h.engagement.Like(r.Context(), chi.URLParam(r, "postID"), viewer)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, LikeResponse{Message: "Post liked successfully", LikesCount: count})
}

// HandleUnlike removes the viewer's like.
//
// HTTP: DELETE /api/likes/{postID}
func (h *EngagementHandler) HandleUnlike(w http.ResponseWriter, r *http.Request) {
	viewer, ok := requireViewer(w, r)
	if !ok {
		return
	}

	count, err := h.engagement.Unlike(r.Context(), chi.URLParam(r, "postID"), viewer)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, LikeResponse{Message: "Post unliked successfully", LikesCount: count})
}

// HandleAddComment comments on a post.
//
// HTTP: POST /api/comments/{id}    (id is the post)
// REQUEST BODY: {"comment_text": "..."}
func (h *EngagementHandler) HandleAddComment(w http.ResponseWriter, r *http.Request) {
	viewer, ok := requireViewer(w, r)
	if !ok {
		return
	}

	var req addCommentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	comment, err := h.engagement.AddComment(r.Context(), chi.URLParam(r, "id"), viewer, req.CommentText)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "Comment added successfully",
		"comment": comment,
	})
}

// HandleListComments returns a post's comments, newest first.
//
// HTTP: GET /api/comments/{id}    (id is the post)
func (h *EngagementHandler) HandleListComments(w http.ResponseWriter, r *http.Request) {
	comments, err := h.engagement.ListComments(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"comments": comments})
}

// HandleDeleteComment deletes a comment written by the viewer.
//
// HTTP: DELETE /api/comments/{id}    (id is the comment)
func (h *EngagementHandler) HandleDeleteComment(w http.ResponseWriter, r *http.Request) {
	viewer, ok := requireViewer(w, r)
	if !ok {
		return
	}

	if err := h.engagement.DeleteComment(r.Context(), chi.URLParam(r, "id"), viewer); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Message: "Comment deleted successfully"})
}

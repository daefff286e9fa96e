package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/snapgram/internal/service"
)

// PostHandler serves post CRUD and the home feed.
type PostHandler struct {
	posts *service.PostService
}

func NewPostHandler(posts *service.PostService) *PostHandler {
	return &PostHandler{posts: posts}
}

type createPostRequest struct {
	ImageURL string `json:"image_url" validate:"required,max=2048"`
	Caption  string `json:"caption" validate:"max=2200"`
}

// HandleFeed returns posts by the viewer and everyone they follow.
//
// HTTP: GET /api/feed?limit=20&offset=0
func (h *PostHandler) HandleFeed(w http.ResponseWriter, r *http.Request) {
	viewer, ok := requireViewer(w, r)
	if !ok {
		return
	}

	limit, offset, err := pageParams(r)
	if err != nil {
		writeError(w, err)
		return
	}

	posts, err := h.posts.Feed(r.Context(), viewer, limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"posts": posts})
}

// HandleCreate publishes a post.
//
// HTTP: POST /api/posts
// REQUEST BODY: {"image_url": "...", "caption": "..."}
func (h *PostHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	viewer, ok := requireViewer(w, r)
	if !ok {
		return
	}

	var req createPostRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	post, err := h.posts.Create(r.Context(), viewer, req.ImageURL, req.Caption)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "Post created successfully",
		"post":    post,
	})
}

// HandleGet returns one post with engagement and its comments.
//
// HTTP: GET /api/posts/{id}
func (h *PostHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	viewer, ok := requireViewer(w, r)
	if !ok {
		return
	}

	post, err := h.posts.Get(r.Context(), chi.URLParam(r, "id"), viewer)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"post": post})
}

// HandleListByUser returns an author's posts, newest first.
//
// HTTP: GET /api/posts/user/{userID}
func (h *PostHandler) HandleListByUser(w http.ResponseWriter, r *http.Request) {
	viewer, ok := requireViewer(w, r)
	if !ok {
		return
	}

	posts, err := h.posts.ListByUser(r.Context(), chi.URLParam(r, "userID"), viewer)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"posts": posts})
}

// HandleDelete removes a post owned by the viewer.
//
// HTTP: DELETE /api/posts/{id}
func (h *PostHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	viewer, ok := requireViewer(w, r)
	if !ok {
		return
	}

	if err := h.posts.Delete(r.Context(), chi.URLParam(r, "id"), viewer); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Message: "Post deleted successfully"})
}

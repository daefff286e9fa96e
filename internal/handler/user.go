package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/snapgram/internal/model"
	"github.com/sakif/snapgram/internal/service"
)

// UserHandler serves profiles, search and the follow graph.
type UserHandler struct {
	users *service.UserService
}

func NewUserHandler(users *service.UserService) *UserHandler {
	return &UserHandler{users: users}
}

// An empty or null profile_picture clears the picture.
type profilePictureRequest struct {
	ProfilePicture string `json:"profile_picture" validate:"omitempty,max=255"`
}

// HandleProfile returns a user's profile as seen by the viewer.
//
// HTTP: GET /api/users/{userID}
func (h *UserHandler) HandleProfile(w http.ResponseWriter, r *http.Request) {
	viewer, ok := requireViewer(w, r)
	if !ok {
		return
	}

	profile, err := h.users.Profile(r.Context(), chi.URLParam(r, "userID"), viewer)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"user": profile})
}

// HandleUpdateProfilePicture sets or clears the viewer's picture URL.
//
// HTTP: PATCH /api/users/me/profile-picture
// REQUEST BODY: {"profile_picture": "https://..."}
func (h *UserHandler) HandleUpdateProfilePicture(w http.ResponseWriter, r *http.Request) {
	viewer, ok := requireViewer(w, r)
	if !ok {
		return
	}

	var req profilePictureRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	user, err := h.users.UpdateProfilePicture(r.Context(), viewer, req.ProfilePicture)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Profile picture updated",
		"user":    user,
	})
}

// HandleSearch matches usernames and full names.
//
// HTTP: GET /api/users/search/query?query=ali
func (h *UserHandler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	viewer, ok := requireViewer(w, r)
	if !ok {
		return
	}

	users, err := h.users.Search(r.Context(), r.URL.Query().Get("query"), viewer)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"users": users})
}

// HandleFollow makes the viewer follow a user.
//
// HTTP: POST /api/users/{userID}/follow
func (h *UserHandler) HandleFollow(w http.ResponseWriter, r *http.Request) {
	viewer, ok := requireViewer(w, r)
	if !ok {
		return
	}

	if err := h.users.Follow(r.Context(), chi.URLParam(r, "userID"), viewer); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Message: "User followed successfully"})
}

// HandleUnfollow removes the viewer's follow.
//
// HTTP: DELETE /api/users/{userID}/follow
func (h *UserHandler) HandleUnfollow(w http.ResponseWriter, r *http.Request) {
	viewer, ok := requireViewer(w, r)
	if !ok {
		return
	}

	if err := h.users.Unfollow(r.Context(), chi.URLParam(r, "userID"), viewer); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Message: "User unfollowed successfully"})
}

// HandleFollowers lists who follows a user.
//
// HTTP: GET /api/users/{userID}/followers?limit=50&offset=0
func (h *UserHandler) HandleFollowers(w http.ResponseWriter, r *http.Request) {
	h.listMembers(w, r, h.users.Followers)
}

// HandleFollowing lists who a user follows.
//
// HTTP: GET /api/users/{userID}/following?limit=50&offset=0
func (h *UserHandler) HandleFollowing(w http.ResponseWriter, r *http.Request) {
	h.listMembers(w, r, h.users.Following)
}

type memberLister func(ctx context.Context, subjectID, viewerID string, limit, offset int) ([]model.Member, error)

func (h *UserHandler) listMembers(w http.ResponseWriter, r *http.Request, list memberLister) {
	viewer, ok := requireViewer(w, r)
	if !ok {
		return
	}

	limit, offset, err := pageParams(r)
	if err != nil {
		writeError(w, err)
		return
	}

	users, err := list(r.Context(), chi.URLParam(r, "userID"), viewer, limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"users": users})
}

package handlers

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"goodthings/internal/models"
	"goodthings/internal/repository"
)

type DeleteResponse struct {
	Msg string `json:"msg"`
}

// GetPosts - caller's posts, oldest first
func (h *Handlers) GetPosts(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFromContext(r.Context())

	posts, err := h.PostService.ListPosts(r.Context(), userID)
	if err != nil {
		h.Logger.Error("list posts", "user_id", userID, "error", err)
		WriteError(w, "Server error", http.StatusInternalServerError)
		return
	}

	writeSuccess(w, posts, http.StatusOK)
}

func (h *Handlers) CreatePost(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFromContext(r.Context())

	var req models.PostDraft
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	post, err := h.PostService.CreatePost(r.Context(), userID, req)
	if err != nil {
		h.Logger.Error("create post", "user_id", userID, "error", err)
		WriteError(w, "Server error", http.StatusInternalServerError)
		return
	}

	writeSuccess(w, post, http.StatusOK)
}

func (h *Handlers) UpdatePost(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFromContext(r.Context())
	postID := mux.Vars(r)["id"]

	var req models.PostDraft
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	post, err := h.PostService.UpdatePost(r.Context(), userID, postID, req)
	if err != nil {
		h.writePostError(w, "update post", postID, err)
		return
	}

	writeSuccess(w, post, http.StatusOK)
}

func (h *Handlers) DeletePost(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFromContext(r.Context())
	postID := mux.Vars(r)["id"]

	if err := h.PostService.DeletePost(r.Context(), userID, postID); err != nil {
		h.writePostError(w, "delete post", postID, err)
		return
	}

	writeSuccess(w, DeleteResponse{Msg: "Post removed"}, http.StatusOK)
}

func (h *Handlers) writePostError(w http.ResponseWriter, op, postID string, err error) {
	if errors.Is(err, repository.ErrPostNotFound) {
		WriteError(w, "Post not found", http.StatusNotFound)
		return
	}
	h.Logger.Error(op, "post_id", postID, "error", err)
	WriteError(w, "Server error", http.StatusInternalServerError)
}

package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/hitoshi/blogman/internal/model"
)

// UserServiceInterface はユーザーハンドラーが必要とするサービスインターフェース。
type UserServiceInterface interface {
	ListActive(ctx context.Context) ([]model.User, error)
}

// UserHandler はユーザー一覧のHTTPハンドラー。
type UserHandler struct {
	service UserServiceInterface
}

// NewUserHandler はUserHandlerを生成する。
func NewUserHandler(service UserServiceInterface) *UserHandler {
	return &UserHandler{service: service}
}

// ListUsers は有効なユーザーの一覧を取得する。
// GET /api/users
// author絞り込みに指定可能なユーザー名を発見するためのエンドポイント。
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.ListActive(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]userResponse, len(users))
	for i, u := range users {
		resp[i] = userResponse{ID: u.ID, Username: u.Username, Email: u.Email}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string][]userResponse{"users": resp})
}

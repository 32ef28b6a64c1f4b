package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/hitoshi/blogman/internal/model"
)

// TagServiceInterface はタグハンドラーが必要とするサービスインターフェース。
type TagServiceInterface interface {
	ListAll(ctx context.Context) ([]model.Tag, error)
}

// TagHandler はタグ一覧のHTTPハンドラー。
type TagHandler struct {
	service TagServiceInterface
}

// NewTagHandler はTagHandlerを生成する。
func NewTagHandler(service TagServiceInterface) *TagHandler {
	return &TagHandler{service: service}
}

// ListTags は登録済みの全タグを取得する。
// GET /api/tags
func (h *TagHandler) ListTags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.service.ListAll(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]tagResponse, len(tags))
	for i, t := range tags {
		resp[i] = tagResponse{ID: t.ID, Name: t.Name}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string][]tagResponse{"tags": resp})
}

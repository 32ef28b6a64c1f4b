package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/blogman/internal/model"
)

// mockTagService はTagServiceInterfaceのモック実装。
type mockTagService struct {
	listAllFn func(ctx context.Context) ([]model.Tag, error)
}

var _ TagServiceInterface = (*mockTagService)(nil)

func (m *mockTagService) ListAll(ctx context.Context) ([]model.Tag, error) {
	if m.listAllFn != nil {
		return m.listAllFn(ctx)
	}
	return nil, nil
}

func TestTagHandler_ListTags_Success(t *testing.T) {
	svc := &mockTagService{
		listAllFn: func(ctx context.Context) ([]model.Tag, error) {
			return []model.Tag{
				{ID: "tag-1", Name: "django"},
				{ID: "tag-2", Name: "go"},
				{ID: "tag-3", Name: "python"},
			}, nil
		},
	}

	h := NewTagHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/tags", nil)
	w := httptest.NewRecorder()

	h.ListTags(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var resp map[string][]tagResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	tags := resp["tags"]
	if len(tags) != 3 {
		t.Fatalf("tags length = %d, want 3", len(tags))
	}
	// name昇順で返る
	if tags[0].Name != "django" || tags[2].Name != "python" {
		t.Errorf("tags order = [%s %s %s], want name ascending", tags[0].Name, tags[1].Name, tags[2].Name)
	}
}

func TestTagHandler_ListTags_Empty(t *testing.T) {
	h := NewTagHandler(&mockTagService{})

	req := httptest.NewRequest(http.MethodGet, "/api/tags", nil)
	w := httptest.NewRecorder()

	h.ListTags(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var resp map[string][]tagResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp["tags"]) != 0 {
		t.Errorf("tags length = %d, want 0", len(resp["tags"]))
	}
}

func TestTagHandler_ListTags_ServiceError(t *testing.T) {
	svc := &mockTagService{
		listAllFn: func(ctx context.Context) ([]model.Tag, error) {
			return nil, errors.New("db down")
		},
	}

	h := NewTagHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/tags", nil)
	w := httptest.NewRecorder()

	h.ListTags(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
}

package handler

import (
	"encoding/json"
	"net/http"
)

// HealthChecker はデータベース接続の疎通確認インターフェース。
// database/sqlの*sql.DBがそのまま実装を満たす。
type HealthChecker interface {
	Ping() error
}

// HealthHandler はヘルスチェックのHTTPハンドラー。
type HealthHandler struct {
	db HealthChecker
}

// NewHealthHandler はHealthHandlerを生成する。
func NewHealthHandler(db HealthChecker) *HealthHandler {
	return &HealthHandler{db: db}
}

// Check はサーバーとデータベースの状態を返す。
// GET /health
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if err := h.db.Ping(); err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(map[string]string{
			"status": "unhealthy",
			"reason": "database unreachable",
		})
		return
	}

	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// Package web はサーバーレンダリングのHTML UIを提供する。
// JSON APIと同じサービス層を共有し、html/templateで描画する。
package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"time"
)

//go:embed templates/*.html
var templateFS embed.FS

// pageNames はレイアウトと組み合わせてパースするページテンプレートの一覧。
var pageNames = []string{"list", "detail", "form", "delete", "mine", "login", "register"}

var templateFuncs = template.FuncMap{
	"formatTime": func(t time.Time) string {
		return t.Format("2006-01-02 15:04")
	},
}

// parseTemplates は各ページテンプレートをレイアウトと組み合わせてパースする。
// ページごとに独立したテンプレートセットを作ることで、
// ページ間の{{define "content"}}の衝突を避ける。
func parseTemplates() (map[string]*template.Template, error) {
	templates := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		t, err := template.New("layout.html").Funcs(templateFuncs).ParseFS(
			templateFS,
			"templates/layout.html",
			"templates/"+name+".html",
		)
		if err != nil {
			return nil, fmt.Errorf("テンプレート %s のパースに失敗しました: %w", name, err)
		}
		templates[name] = t
	}
	return templates, nil
}

// render は指定ページテンプレートを描画する。
// 描画エラー時に中途半端なHTMLを返さないよう、バッファに描画してから書き込む。
func (h *Handler) render(w http.ResponseWriter, statusCode int, page string, data any) {
	t, ok := h.templates[page]
	if !ok {
		slog.Error("unknown page template", slog.String("page", page))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout.html", data); err != nil {
		slog.Error("failed to render template",
			slog.String("page", page),
			slog.String("error", err.Error()),
		)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(statusCode)
	buf.WriteTo(w)
}

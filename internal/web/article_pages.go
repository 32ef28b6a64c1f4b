package web

import (
	"errors"
	"html/template"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/blogman/internal/article"
	"github.com/hitoshi/blogman/internal/model"
	"github.com/hitoshi/blogman/internal/tag"
)

// --- ビューデータ ---

type listData struct {
	baseData
	Page       *article.Page
	Pagination pagination
	Tags       []model.Tag
	Query      string
	ActiveTag  string
}

type detailData struct {
	baseData
	Article *model.ArticleWithAuthor
	Content template.HTML
	Similar []model.ArticleWithAuthor
	CanEdit bool
}

type formData struct {
	baseData
	Heading     string
	Action      string
	FormTitle   string
	FormContent string
	TagsInput   string
	IsPublished bool
	Error       string
}

type deleteData struct {
	baseData
	Article *model.ArticleWithAuthor
}

type mineData struct {
	baseData
	Page       *article.Page
	Pagination pagination
	Query      string
	Status     string
}

// --- 一覧・詳細 ---

// List は公開記事の一覧ページを表示する。
// GET /?q=xxx&tag=yyy&page=n
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	tagName := r.URL.Query().Get("tag")
	page := parsePage(r.URL.Query().Get("page"))

	result, err := h.articles.ListPublished(r.Context(), query, tagName, page)
	if err != nil {
		renderServiceError(w, err)
		return
	}

	tagList, err := h.tags.ListAll(r.Context())
	if err != nil {
		renderServiceError(w, err)
		return
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("tag", tagName)

	h.render(w, http.StatusOK, "list", listData{
		baseData:   h.base(w, r, "記事一覧"),
		Page:       result,
		Pagination: paginationFor(result, "/", params),
		Tags:       tagList,
		Query:      query,
		ActiveTag:  tagName,
	})
}

// Detail は記事詳細ページを表示する。
// GET /articles/:id
// 本文はサニタイズ済みHTMLとして描画する。
func (h *Handler) Detail(w http.ResponseWriter, r *http.Request) {
	viewerID := ""
	if user := h.currentUser(r); user != nil {
		viewerID = user.ID
	}

	detail, err := h.articles.Get(r.Context(), viewerID, chi.URLParam(r, "id"))
	if err != nil {
		renderServiceError(w, err)
		return
	}

	// 本文は保存時そのままのため、HTMLとして埋め込む前に必ずサニタイズする
	safeContent := h.sanitizer.Sanitize(detail.Article.Content)

	h.render(w, http.StatusOK, "detail", detailData{
		baseData: h.base(w, r, detail.Article.Title),
		Article:  detail.Article,
		Content:  template.HTML(safeContent),
		Similar:  detail.Similar,
		CanEdit:  detail.CanEdit,
	})
}

// MyArticles はログインユーザー自身の記事一覧（下書き含む）を表示する。
// GET /my/articles?status=published|draft&q=xxx&page=n
func (h *Handler) MyArticles(w http.ResponseWriter, r *http.Request) {
	user := h.currentUser(r)
	if user == nil {
		h.redirectToLogin(w, r)
		return
	}

	query := r.URL.Query().Get("q")
	page := parsePage(r.URL.Query().Get("page"))

	status := model.ArticleStatusAll
	rawStatus := r.URL.Query().Get("status")
	switch rawStatus {
	case "published":
		status = model.ArticleStatusPublished
	case "draft":
		status = model.ArticleStatusDraft
	default:
		rawStatus = ""
	}

	result, err := h.articles.ListByAuthor(r.Context(), user.ID, query, "", status, page)
	if err != nil {
		renderServiceError(w, err)
		return
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("status", rawStatus)

	h.render(w, http.StatusOK, "mine", mineData{
		baseData:   h.base(w, r, "自分の記事"),
		Page:       result,
		Pagination: paginationFor(result, "/my/articles", params),
		Query:      query,
		Status:     rawStatus,
	})
}

// --- 作成・編集 ---

// NewForm は新規投稿フォームを表示する。
// GET /articles/new
func (h *Handler) NewForm(w http.ResponseWriter, r *http.Request) {
	if h.currentUser(r) == nil {
		h.redirectToLogin(w, r)
		return
	}

	h.render(w, http.StatusOK, "form", formData{
		baseData: h.base(w, r, "新規投稿"),
		Heading:  "新規投稿",
		Action:   "/articles",
	})
}

// CreateSubmit は新規投稿フォームの送信を処理する。
// POST /articles
func (h *Handler) CreateSubmit(w http.ResponseWriter, r *http.Request) {
	user := h.currentUser(r)
	if user == nil {
		h.redirectToLogin(w, r)
		return
	}

	in := articleInputFromForm(r)

	created, err := h.articles.Create(r.Context(), user.ID, in)
	if err != nil {
		data := formDataFromInput(in, r.PostFormValue("tags_input"))
		data.baseData = h.base(w, r, "新規投稿")
		data.Heading = "新規投稿"
		data.Action = "/articles"
		data.Error = errorMessage(err)
		h.render(w, http.StatusBadRequest, "form", data)
		return
	}

	h.setFlash(w, "記事を作成しました。")
	http.Redirect(w, r, "/articles/"+created.ID, http.StatusSeeOther)
}

// EditForm は記事編集フォームを表示する。
// GET /articles/:id/edit
func (h *Handler) EditForm(w http.ResponseWriter, r *http.Request) {
	user := h.currentUser(r)
	if user == nil {
		h.redirectToLogin(w, r)
		return
	}

	detail, err := h.articles.Get(r.Context(), user.ID, chi.URLParam(r, "id"))
	if err != nil {
		renderServiceError(w, err)
		return
	}
	if !detail.CanEdit {
		renderServiceError(w, model.NewForbiddenError())
		return
	}

	a := detail.Article
	tagNames := make([]string, len(a.Tags))
	for i, t := range a.Tags {
		tagNames[i] = t.Name
	}

	h.render(w, http.StatusOK, "form", formData{
		baseData:    h.base(w, r, "記事の編集"),
		Heading:     "記事の編集",
		Action:      "/articles/" + a.ID + "/edit",
		FormTitle:   a.Title,
		FormContent: a.Content,
		TagsInput:   strings.Join(tagNames, ", "),
		IsPublished: a.IsPublished,
	})
}

// EditSubmit は記事編集フォームの送信を処理する。
// POST /articles/:id/edit
func (h *Handler) EditSubmit(w http.ResponseWriter, r *http.Request) {
	user := h.currentUser(r)
	if user == nil {
		h.redirectToLogin(w, r)
		return
	}

	articleID := chi.URLParam(r, "id")
	in := articleInputFromForm(r)

	updated, err := h.articles.Update(r.Context(), user.ID, articleID, in)
	if err != nil {
		var apiErr *model.APIError
		if errors.As(err, &apiErr) && (apiErr.Code == model.ErrCodeValidation || apiErr.Code == model.ErrCodeTagNameTooLong) {
			data := formDataFromInput(in, r.PostFormValue("tags_input"))
			data.baseData = h.base(w, r, "記事の編集")
			data.Heading = "記事の編集"
			data.Action = "/articles/" + articleID + "/edit"
			data.Error = apiErr.Message
			h.render(w, http.StatusBadRequest, "form", data)
			return
		}
		renderServiceError(w, err)
		return
	}

	h.setFlash(w, "記事を更新しました。")
	http.Redirect(w, r, "/articles/"+updated.ID, http.StatusSeeOther)
}

// --- 削除 ---

// DeleteConfirm は記事削除の確認ページを表示する。
// GET /articles/:id/delete
func (h *Handler) DeleteConfirm(w http.ResponseWriter, r *http.Request) {
	user := h.currentUser(r)
	if user == nil {
		h.redirectToLogin(w, r)
		return
	}

	detail, err := h.articles.Get(r.Context(), user.ID, chi.URLParam(r, "id"))
	if err != nil {
		renderServiceError(w, err)
		return
	}
	if !detail.CanEdit {
		renderServiceError(w, model.NewForbiddenError())
		return
	}

	h.render(w, http.StatusOK, "delete", deleteData{
		baseData: h.base(w, r, "記事の削除"),
		Article:  detail.Article,
	})
}

// DeleteSubmit は記事を削除する。
// POST /articles/:id/delete
func (h *Handler) DeleteSubmit(w http.ResponseWriter, r *http.Request) {
	user := h.currentUser(r)
	if user == nil {
		h.redirectToLogin(w, r)
		return
	}

	if err := h.articles.Delete(r.Context(), user.ID, chi.URLParam(r, "id")); err != nil {
		renderServiceError(w, err)
		return
	}

	h.setFlash(w, "記事を削除しました。")
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// --- フォームヘルパー ---

// articleInputFromForm は投稿フォームの入力をサービス層の入力に変換する。
// Webフォームはタグ欄を常に送信するため、タグ集合は常に全置換となる。
func articleInputFromForm(r *http.Request) article.Input {
	return article.Input{
		Title:        r.PostFormValue("title"),
		Content:      r.PostFormValue("content"),
		TagNames:     tag.SplitText(r.PostFormValue("tags_input")),
		TagsProvided: true,
		IsPublished:  r.PostFormValue("is_published") != "",
	}
}

// formDataFromInput はバリデーション失敗時にフォームへ入力値を復元する。
func formDataFromInput(in article.Input, tagsInput string) formData {
	return formData{
		FormTitle:   in.Title,
		FormContent: in.Content,
		TagsInput:   tagsInput,
		IsPublished: in.IsPublished,
	}
}

package web

import (
	"net/http"
)

type loginData struct {
	baseData
	Username string
	Error    string
}

type registerData struct {
	baseData
	Username string
	Email    string
	Error    string
}

// LoginForm はログインフォームを表示する。
// GET /login
func (h *Handler) LoginForm(w http.ResponseWriter, r *http.Request) {
	if h.currentUser(r) != nil {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	h.render(w, http.StatusOK, "login", loginData{
		baseData: h.base(w, r, "ログイン"),
	})
}

// LoginSubmit はログインフォームの送信を処理する。
// POST /login
func (h *Handler) LoginSubmit(w http.ResponseWriter, r *http.Request) {
	username := r.PostFormValue("username")
	password := r.PostFormValue("password")

	_, session, err := h.auth.Login(r.Context(), username, password)
	if err != nil {
		h.render(w, http.StatusUnauthorized, "login", loginData{
			baseData: h.base(w, r, "ログイン"),
			Username: username,
			Error:    errorMessage(err),
		})
		return
	}

	h.setSessionCookie(w, session.ID)
	h.setFlash(w, "ログインしました。")
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// RegisterForm はユーザー登録フォームを表示する。
// GET /register
func (h *Handler) RegisterForm(w http.ResponseWriter, r *http.Request) {
	if h.currentUser(r) != nil {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	h.render(w, http.StatusOK, "register", registerData{
		baseData: h.base(w, r, "ユーザー登録"),
	})
}

// RegisterSubmit はユーザー登録フォームの送信を処理する。
// POST /register
// 登録成功時はそのままログイン状態になる。
func (h *Handler) RegisterSubmit(w http.ResponseWriter, r *http.Request) {
	username := r.PostFormValue("username")
	email := r.PostFormValue("email")
	password := r.PostFormValue("password")

	_, session, err := h.auth.Register(r.Context(), username, email, password)
	if err != nil {
		h.render(w, http.StatusBadRequest, "register", registerData{
			baseData: h.base(w, r, "ユーザー登録"),
			Username: username,
			Email:    email,
			Error:    errorMessage(err),
		})
		return
	}

	h.setSessionCookie(w, session.ID)
	h.setFlash(w, "ユーザー登録が完了しました。")
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// Logout はセッションを破棄してトップページへ戻る。
// POST /logout
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(sessionCookieName)
	if err == nil && cookie.Value != "" {
		// セッション破棄に失敗してもCookieはクリアする
		_ = h.auth.Logout(r.Context(), cookie.Value)
	}

	h.clearSessionCookie(w)
	h.setFlash(w, "ログアウトしました。")
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// setSessionCookie はセッションCookieを設定する（HTTP Only）。
func (h *Handler) setSessionCookie(w http.ResponseWriter, sessionID string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    sessionID,
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   h.config.SessionMaxAge,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// clearSessionCookie はセッションCookieをクリアする。
func (h *Handler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/datingapp/internal/apperror"
	"github.com/sakif/datingapp/internal/auth"
	"github.com/sakif/datingapp/internal/model"
	"github.com/sakif/datingapp/internal/service"
)

const oauthStateCookie = "oauth_state"

// AccountService is the subset of *service.AuthService the handlers call.
type AccountService interface {
	Register(ctx context.Context, in service.RegisterInput) (*model.User, error)
	Login(ctx context.Context, username, password string) (*service.AuthResult, error)
	LoginOrRegisterGitHub(ctx context.Context, ghUser *auth.GitHubUser) (*service.AuthResult, error)
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	TokenTTL() time.Duration
}

// GitHubOAuth is the subset of *auth.GitHubProvider the callback needs.
type GitHubOAuth interface {
	AuthURL(state string) string
	Exchange(ctx context.Context, code string) (*auth.GitHubUser, error)
}

// AuthHandler manages registration, login and logout.
//
// HANDLER RESPONSIBILITIES:
//   - HandleRegister       → create a password account
//   - HandleLogin          → verify credentials, issue JWT (body + cookie)
//   - HandleLogout         → clear the JWT cookie
//   - HandleGitHubLogin    → redirect the browser to GitHub's authorization page
//   - HandleGitHubCallback → receive the code, exchange it for a user, issue JWT
//   - HandleMe             → return the currently logged-in user's profile
type AuthHandler struct {
	accounts     AccountService
	github       GitHubOAuth // nil when GitHub login is not configured
	cookieSecure bool
	logger       *slog.Logger
}

// NewAuthHandler creates an AuthHandler. github may be nil.
func NewAuthHandler(accounts AccountService, github GitHubOAuth, cookieSecure bool, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		accounts:     accounts,
		github:       github,
		cookieSecure: cookieSecure,
		logger:       logger,
	}
}

type registerRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	KnownAs  string `json:"knownAs"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// HandleRegister creates a password account.
//
// HTTP: POST /api/auth/register
// REQUEST BODY: {"username": "lisa", "password": "...", "knownAs": "Lisa"}
// RESPONSE: 201 Created with the user
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	user, err := h.accounts.Register(r.Context(), service.RegisterInput{
		Username: req.Username,
		Password: req.Password,
		KnownAs:  req.KnownAs,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, toUserResponse(user))
}

// HandleLogin verifies credentials and issues a token.
//
// HTTP: POST /api/auth/login
// REQUEST BODY: {"username": "lisa", "password": "..."}
// RESPONSE: 200 {"token": "...", "user": {...}} and a "token" cookie
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	res, err := h.accounts.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	h.setTokenCookie(w, res.Token)
	writeJSON(w, http.StatusOK, LoginResponse{Token: res.Token, User: toUserResponse(res.User)})
}

// HandleLogout clears the JWT cookie.
//
// HTTP: POST /api/auth/logout
//
// Since tokens are stateless, "logout" just deletes the cookie. The token
// stays technically valid until it expires. Mounted behind OptionalAuth so
// the log line can say who left.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if p, ok := auth.PrincipalFromContext(r.Context()); ok {
		h.logger.Info("user logged out", slog.String("userID", p.UserID))
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// HandleGitHubLogin redirects the user to GitHub's authorization page.
//
// HTTP: GET /auth/github/login
//
// CSRF PROTECTION VIA STATE:
// A random state value goes into a short-lived cookie and into the redirect.
// The callback only proceeds if GitHub hands the same value back.
func (h *AuthHandler) HandleGitHubLogin(w http.ResponseWriter, r *http.Request) {
	state := xid.New().String()

	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   600, // 10 minutes
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.github.AuthURL(state), http.StatusTemporaryRedirect)
}

// HandleGitHubCallback completes the OAuth login flow.
//
// HTTP: GET /auth/github/callback?code=xxx&state=yyy
//
// FLOW:
//  1. Validate the state parameter (CSRF check)
//  2. Exchange the code for a GitHub user profile
//  3. Create or refresh the account
//  4. Issue a JWT in an HttpOnly cookie and redirect home
func (h *AuthHandler) HandleGitHubCallback(w http.ResponseWriter, r *http.Request) {
	stateCookie, err := r.Cookie(oauthStateCookie)
	if err != nil || stateCookie.Value == "" || r.URL.Query().Get("state") != stateCookie.Value {
		h.logger.Warn("auth callback: invalid OAuth state")
		writeError(w, h.logger, apperror.ValidationFailed("state", "invalid OAuth state"))
		return
	}

	// The state cookie is single-use.
	http.SetCookie(w, &http.Cookie{Name: oauthStateCookie, Value: "", Path: "/", MaxAge: -1})

	if errParam := r.URL.Query().Get("error"); errParam != "" {
		h.logger.Info("auth callback: user denied authorization", slog.String("error", errParam))
		http.Redirect(w, r, "/?auth=denied", http.StatusSeeOther)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		writeError(w, h.logger, apperror.ValidationFailed("code", "missing OAuth code"))
		return
	}

	ghUser, err := h.github.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("auth callback: GitHub exchange failed", slog.String("error", err.Error()))
		writeError(w, h.logger, apperror.Unauthorized("GitHub authentication failed"))
		return
	}

	res, err := h.accounts.LoginOrRegisterGitHub(r.Context(), ghUser)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	h.setTokenCookie(w, res.Token)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// HandleMe returns the currently authenticated user's profile with photos.
//
// HTTP: GET /api/me
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	p, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, h.logger, apperror.Unauthorized("authentication required"))
		return
	}

	user, err := h.accounts.GetUserByID(r.Context(), p.UserID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, toUserResponse(user))
}

// setTokenCookie stores the JWT in an HttpOnly cookie that lives as long as the token.
// HttpOnly keeps it away from JavaScript; SameSite=Lax keeps it off cross-site POSTs.
func (h *AuthHandler) setTokenCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.accounts.TokenTTL().Seconds()),
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

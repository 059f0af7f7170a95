package service

import (
	"log/slog"
	"net/http"

	"github.com/mmynk/warikan/internal/auth"
	"github.com/mmynk/warikan/internal/middleware"
)

// AuthService exchanges identity tokens for API sessions.
type AuthService struct {
	users         auth.UserStorage
	idTokens      *auth.JWTManager
	sessionTokens *auth.JWTManager
	logger        *slog.Logger
}

// NewAuthService creates a new session service.
func NewAuthService(users auth.UserStorage, idTokens, sessionTokens *auth.JWTManager, logger *slog.Logger) *AuthService {
	return &AuthService{
		users:         users,
		idTokens:      idTokens,
		sessionTokens: sessionTokens,
		logger:        logger,
	}
}

// loginRequest is the body of POST /auth/login.
type loginRequest struct {
	IDToken string `json:"idToken"`
}

// loginResponse carries the session token; it is also set as a cookie.
type loginResponse struct {
	Token     string `json:"token"`
	UserID    string `json:"userId"`
	Email     string `json:"email"`
	ExpiresIn int64  `json:"expiresIn"`
}

// meResponse describes the authenticated user.
type meResponse struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
}

// Login handles POST /auth/login. With an idToken it opens a new session;
// without one it renews the session presented in the request.
func (s *AuthService) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeOptionalJSON(r, &req); err != nil {
		fail(w, s.logger, "login", err)
		return
	}

	var userID string
	if req.IDToken != "" {
		claims, err := s.idTokens.Validate(req.IDToken)
		if err != nil {
			s.logger.Warn("Login rejected", "error", err)
			fail(w, s.logger, "login", err)
			return
		}
		userID = claims.UserID
	} else {
		token, _ := middleware.TokenFromRequest(r)
		claims, err := s.sessionTokens.Validate(token)
		if err != nil {
			fail(w, s.logger, "login", err)
			return
		}
		userID = claims.UserID
	}

	user, err := s.users.GetUserByID(r.Context(), userID)
	if err != nil {
		fail(w, s.logger, "login", err)
		return
	}
	if user == nil {
		fail(w, s.logger, "login", auth.ErrInvalidToken)
		return
	}

	token, err := s.sessionTokens.Generate(user)
	if err != nil {
		s.logger.Error("Failed to generate token", "user_id", user.ID, "error", err)
		fail(w, s.logger, "login", err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(s.sessionTokens.Duration().Seconds()),
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})

	s.logger.Info("User logged in successfully", "user_id", user.ID, "email", user.Email)
	writeJSON(w, http.StatusOK, loginResponse{
		Token:     token,
		UserID:    user.ID,
		Email:     user.Email,
		ExpiresIn: int64(s.sessionTokens.Duration().Seconds()),
	})
}

// Logout handles POST /auth/logout by expiring the session cookie. Session
// tokens are stateless, so a copied bearer token stays valid until it expires.
func (s *AuthService) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	s.logger.Info("Logout request", "user_id", middleware.GetUserID(r.Context()))
	w.WriteHeader(http.StatusNoContent)
}

// Me handles GET /auth/me for an authenticated request.
func (s *AuthService) Me(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		fail(w, s.logger, "me", auth.ErrMissingToken)
		return
	}
	writeJSON(w, http.StatusOK, meResponse{UserID: userID, Email: middleware.GetEmail(r.Context())})
}

package service

import (
	"log/slog"
	"net/http"

	"github.com/mmynk/warikan/internal/auth"
	"github.com/mmynk/warikan/internal/models"
)

// IdentityService emulates an identity provider: it registers accounts and
// issues short-lived ID tokens that /auth/login exchanges for a session.
type IdentityService struct {
	authenticator auth.Authenticator
	idTokens      *auth.JWTManager
	logger        *slog.Logger
}

// NewIdentityService creates the identity emulator.
func NewIdentityService(authenticator auth.Authenticator, idTokens *auth.JWTManager, logger *slog.Logger) *IdentityService {
	return &IdentityService{
		authenticator: authenticator,
		idTokens:      idTokens,
		logger:        logger,
	}
}

// credentialsRequest is the body of signUp and signIn.
type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// identityResponse is returned by signUp and signIn.
type identityResponse struct {
	IDToken   string `json:"idToken"`
	LocalID   string `json:"localId"`
	Email     string `json:"email"`
	ExpiresIn int64  `json:"expiresIn"`
}

// SignUp handles POST /identity/v1/signUp.
func (s *IdentityService) SignUp(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		fail(w, s.logger, "sign up", err)
		return
	}

	user, err := s.authenticator.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		s.logger.Warn("Registration failed", "email", req.Email, "error", err)
		fail(w, s.logger, "sign up", err)
		return
	}

	s.logger.Info("User registered successfully", "user_id", user.ID, "email", user.Email)
	s.issue(w, http.StatusCreated, user)
}

// SignIn handles POST /identity/v1/signIn.
func (s *IdentityService) SignIn(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		fail(w, s.logger, "sign in", err)
		return
	}

	user, err := s.authenticator.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		s.logger.Warn("Sign in failed", "email", req.Email, "error", err)
		fail(w, s.logger, "sign in", auth.ErrInvalidCredentials)
		return
	}

	s.issue(w, http.StatusOK, user)
}

// SignOut handles POST /identity/v1/signOut. ID tokens are stateless, so
// there is nothing to revoke.
func (s *IdentityService) SignOut(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

func (s *IdentityService) issue(w http.ResponseWriter, status int, user *models.User) {
	token, err := s.idTokens.Generate(user)
	if err != nil {
		s.logger.Error("Failed to generate token", "user_id", user.ID, "error", err)
		fail(w, s.logger, "issue id token", err)
		return
	}
	writeJSON(w, status, identityResponse{
		IDToken:   token,
		LocalID:   user.ID,
		Email:     user.Email,
		ExpiresIn: int64(s.idTokens.Duration().Seconds()),
	})
}

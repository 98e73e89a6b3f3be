package app

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"ipurpose/api/internal/auth"
	"ipurpose/api/internal/authpw"
	"ipurpose/api/internal/config"
	"ipurpose/api/internal/email"
	"ipurpose/api/internal/entitlement"
	"ipurpose/api/internal/export"
	"ipurpose/api/internal/logger"
	"ipurpose/api/internal/revisions"
	"ipurpose/api/internal/search"
	"ipurpose/api/internal/store"
	"ipurpose/api/internal/util"
)

type Session struct {
	Token        string
	RefreshToken string
	UserID       string
	UserName     string
	Email        string
	Tier         entitlement.Tier
	JTI          string
	ExpiresAt    time.Time
}

type dataStore interface {
	authpw.UserStore
	MergeDraft(context.Context, string, string, map[string]string) (store.Draft, error)
	GetDraft(context.Context, string, string) (store.Draft, error)
	ListDrafts(context.Context, string) ([]store.Draft, error)
	InsertCheckIn(context.Context, store.CheckIn) (store.CheckIn, error)
	ListCheckIns(context.Context, string, int) ([]store.CheckIn, error)
	InsertClarityResult(context.Context, store.ClarityResult) (store.ClarityResult, error)
	LatestClarityResult(context.Context, string) (store.ClarityResult, error)
	Ping(ctx context.Context) error
}

// sessionStore keeps refresh sessions and revoked access tokens. Both the
// Postgres store and the Redis store satisfy it.
type sessionStore interface {
	SaveRefreshSession(context.Context, string, string, time.Time) error
	LookupRefreshSession(context.Context, string) (string, error)
	RevokeRefreshSession(context.Context, string) error
	RevokeAccessToken(context.Context, string, time.Time) error
	IsAccessTokenRevoked(context.Context, string) (bool, error)
}

type userSessionRevoker interface {
	RevokeUserSessions(context.Context, string) error
}

type revisionService interface {
	SaveVersion(string, string, revisions.Snapshot, string, string) (revisions.Version, error)
	History(string, string, int) ([]revisions.Version, error)
	Get(string, string, string) (revisions.Snapshot, revisions.Version, error)
}

type searchService interface {
	Search(context.Context, search.Query) search.Response
	IndexDraft(store.Draft)
	IndexCheckIn(store.CheckIn)
}

type exporter interface {
	Export(context.Context, export.Request) (*export.Result, error)
}

type archiver interface {
	Put(context.Context, string, *export.Result) (export.Stored, error)
}

type mailer interface {
	IsConfigured() bool
	SendVerificationEmail(to, userName, verificationURL string) error
	SendPasswordResetEmail(to, userName, resetURL string) error
	SendExportReadyEmail(to, userName, formTitle, downloadURL string) error
}

type Service struct {
	cfg       config.Config
	store     dataStore
	sessions  sessionStore
	auth      *authpw.Service
	revisions revisionService
	search    searchService
	exporter  exporter
	archive   archiver
	mailer    mailer
}

func New(cfg config.Config, dataStore *store.PostgresStore, revisionService *revisions.Service, searchService *search.Service) *Service {
	return NewWithSessionStore(cfg, dataStore, dataStore, revisionService, searchService)
}

// NewWithSessionStore keeps refresh sessions outside Postgres.
func NewWithSessionStore(cfg config.Config, dataStore *store.PostgresStore, sessions sessionStore, revisionService *revisions.Service, searchService *search.Service) *Service {
	s := &Service{
		cfg:      cfg,
		store:    dataStore,
		sessions: sessions,
		auth:     authpw.NewService(dataStore, cfg.DefaultTier),
		exporter: export.NewService(),
	}
	if revisionService != nil {
		s.revisions = revisionService
	}
	if searchService != nil {
		s.search = searchService
	}
	return s
}

// SetArchive enables archived exports with presigned links.
func (s *Service) SetArchive(archive *export.Archive) {
	if archive != nil {
		s.archive = archive
	}
}

func (s *Service) SetMailer(m *email.Service) {
	if m != nil {
		s.mailer = m
	}
}

func (s *Service) SMTPConfigured() bool {
	return s.mailer != nil && s.mailer.IsConfigured()
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func (s *Service) Refresh(ctx context.Context, refreshToken string) (Session, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return Session{}, auth.ErrInvalidToken
	}
	tokenHash := auth.HashToken(refreshToken)
	userID, err := s.sessions.LookupRefreshSession(ctx, tokenHash)
	if err != nil {
		return Session{}, auth.ErrInvalidToken
	}
	if err := s.sessions.RevokeRefreshSession(ctx, tokenHash); err != nil {
		return Session{}, err
	}
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return Session{}, err
	}
	return s.issueSession(ctx, user)
}

func (s *Service) issueSession(ctx context.Context, user store.User) (Session, error) {
	now := time.Now()
	expiresAt := now.Add(s.cfg.AccessTTL)
	jti := util.NewID("jti")
	tier := entitlement.Normalize(user.Tier)

	token, err := auth.IssueToken([]byte(s.cfg.JWTSecret), auth.Claims{
		Name:  user.DisplayName,
		Email: user.Email,
		Tier:  string(tier),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			ID:        jti,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	})
	if err != nil {
		return Session{}, err
	}

	refresh := util.NewID("rft") + util.NewID("")
	refreshExpires := now.Add(s.cfg.RefreshTTL)
	if err := s.sessions.SaveRefreshSession(ctx, auth.HashToken(refresh), user.ID, refreshExpires); err != nil {
		return Session{}, err
	}

	return Session{
		Token:        token,
		RefreshToken: refresh,
		UserID:       user.ID,
		UserName:     user.DisplayName,
		Email:        user.Email,
		Tier:         tier,
		JTI:          jti,
		ExpiresAt:    expiresAt,
	}, nil
}

// SessionFromToken validates an access token and reloads the user so tier
// changes apply without a new sign-in.
func (s *Service) SessionFromToken(ctx context.Context, token string) (Session, error) {
	claims, err := auth.ParseToken([]byte(s.cfg.JWTSecret), token)
	if err != nil {
		return Session{}, err
	}
	revoked, err := s.sessions.IsAccessTokenRevoked(ctx, claims.ID)
	if err != nil {
		return Session{}, err
	}
	if revoked {
		return Session{}, auth.ErrInvalidToken
	}

	user, err := s.store.GetUserByID(ctx, claims.Subject)
	if errors.Is(err, store.ErrNotFound) {
		return Session{}, auth.ErrInvalidToken
	}
	if err != nil {
		return Session{}, err
	}

	return Session{
		Token:     token,
		UserID:    user.ID,
		UserName:  user.DisplayName,
		Email:     user.Email,
		Tier:      entitlement.Normalize(user.Tier),
		JTI:       claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

func (s *Service) Logout(ctx context.Context, session Session, refreshToken string) error {
	if session.JTI != "" {
		if err := s.sessions.RevokeAccessToken(ctx, session.JTI, session.ExpiresAt); err != nil {
			logger.Warn("revoke access token", "err", err)
		}
	}
	if refreshToken != "" {
		if err := s.sessions.RevokeRefreshSession(ctx, auth.HashToken(refreshToken)); err != nil {
			logger.Warn("revoke refresh session", "err", err)
		}
	}
	return nil
}

func (s *Service) SignUp(ctx context.Context, req authpw.SignUpRequest) (map[string]any, error) {
	resp, err := s.auth.SignUp(ctx, req)
	if err != nil {
		return nil, authError(err)
	}

	payload := map[string]any{
		"userId":  resp.UserID,
		"message": "Please check your email to verify your account",
	}
	if !s.SMTPConfigured() {
		payload["devVerificationToken"] = resp.VerificationToken
		payload["message"] = "Account created. Verify your email to continue."
		return payload, nil
	}
	link := s.cfg.AppURL + "/verify-email?token=" + resp.VerificationToken
	if err := s.mailer.SendVerificationEmail(strings.TrimSpace(req.Email), req.DisplayName, link); err != nil {
		logger.Error("send verification email", "userId", resp.UserID, "err", err)
	}
	return payload, nil
}

func (s *Service) SignIn(ctx context.Context, req authpw.SignInRequest) (Session, error) {
	resp, err := s.auth.SignIn(ctx, req)
	if err != nil {
		return Session{}, authError(err)
	}
	if resp.RequiresVerify {
		return Session{}, domainError(http.StatusForbidden, "EMAIL_NOT_VERIFIED", "Please verify your email before signing in", nil)
	}
	return s.issueSession(ctx, resp.User)
}

func (s *Service) VerifyEmail(ctx context.Context, token string) error {
	if err := s.auth.VerifyEmail(ctx, token); err != nil {
		return authError(err)
	}
	return nil
}

// RequestPasswordReset answers the same way whether or not the email is
// registered.
func (s *Service) RequestPasswordReset(ctx context.Context, emailAddress string) (map[string]any, error) {
	token, user, err := s.auth.RequestPasswordReset(ctx, emailAddress)
	if err != nil {
		logger.Error("request password reset", "err", err)
		return nil, storageUnavailable()
	}
	payload := map[string]any{
		"message": "If an account exists, a reset email has been sent",
	}
	if token == "" {
		return payload, nil
	}
	if !s.SMTPConfigured() {
		payload["devResetToken"] = token
		return payload, nil
	}
	link := s.cfg.AppURL + "/reset-password?token=" + token
	if err := s.mailer.SendPasswordResetEmail(user.Email, user.DisplayName, link); err != nil {
		logger.Error("send password reset email", "userId", user.ID, "err", err)
	}
	return payload, nil
}

// ResetPassword also ends every refresh session of the user when the
// session store can enumerate them.
func (s *Service) ResetPassword(ctx context.Context, req authpw.ResetPasswordRequest) error {
	userID, err := s.auth.ResetPassword(ctx, req)
	if err != nil && userID == "" {
		return authError(err)
	}
	if err != nil {
		logger.Warn("password reset finished with error", "userId", userID, "err", err)
	}
	if revoker, ok := s.sessions.(userSessionRevoker); ok {
		if err := revoker.RevokeUserSessions(ctx, userID); err != nil {
			logger.Warn("revoke user sessions", "userId", userID, "err", err)
		}
	}
	return nil
}

func authError(err error) error {
	var inputErr *authpw.InputError
	switch {
	case errors.As(err, &inputErr):
		return validationError(inputErr.Message, nil)
	case errors.Is(err, authpw.ErrEmailTaken):
		return domainError(http.StatusConflict, "EMAIL_EXISTS", "Email already registered", nil)
	case errors.Is(err, authpw.ErrInvalidCredentials):
		return domainError(http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password", nil)
	case errors.Is(err, authpw.ErrInvalidToken):
		return domainError(http.StatusBadRequest, "INVALID_TOKEN", "Invalid or expired token", nil)
	default:
		logger.Error("auth storage failure", "err", err)
		return storageUnavailable()
	}
}

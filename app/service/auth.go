package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/mail"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/voxsentry/voxsentry/app/entity"
	"github.com/voxsentry/voxsentry/config"
)

var (
	ErrInvalidEmail       = errors.New("invalid email address")
	ErrWeakPassword       = errors.New("password does not meet policy requirements")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountInactive    = errors.New("account is inactive")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrWrongTokenType     = errors.New("wrong token type")
	ErrSessionInvalid     = errors.New("session expired or revoked")
	ErrUserNotFound       = errors.New("user not found")
	ErrWrongPassword      = errors.New("current password is incorrect")
)

type userRepository interface {
	Create(ctx context.Context, user *entity.User) error
	FindByEmail(ctx context.Context, email string) (*entity.User, error)
	FindByID(ctx context.Context, id uint64) (*entity.User, error)
	Update(ctx context.Context, user *entity.User) error
}

type sessionRepository interface {
	Create(ctx context.Context, session *entity.Session) error
	FindByJTI(ctx context.Context, jti string) (*entity.Session, error)
	Revoke(ctx context.Context, jti string, now time.Time) error
	RevokeAllForUser(ctx context.Context, userID uint64, now time.Time) error
	ListActiveByUser(ctx context.Context, userID uint64, now time.Time) ([]*entity.Session, error)
}

type oneTimeTokenRepository interface {
	Create(ctx context.Context, token *entity.OneTimeToken) error
	FindValid(ctx context.Context, tokenString string, tokenType entity.TokenType, now time.Time) (*entity.OneTimeToken, error)
	MarkUsed(ctx context.Context, id uint64, now time.Time) (bool, error)
}

type LoginResult struct {
	User         *entity.User
	AccessToken  string
	RefreshToken string
	ExpiresIn    int64
}

type RefreshResult struct {
	AccessToken string
	ExpiresIn   int64
}

type AuthService interface {
	Register(ctx context.Context, email, password string) (*entity.User, error)
	VerifyEmail(ctx context.Context, token string) error
	Login(ctx context.Context, email, password, userAgent, ip string) (*LoginResult, error)
	Refresh(ctx context.Context, refreshToken string) (*RefreshResult, error)
	Logout(ctx context.Context, refreshToken string) error
	LogoutAll(ctx context.Context, userID uint64) error
	RequestPasswordReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
	ChangePassword(ctx context.Context, userID uint64, currentPassword, newPassword string) error
	ListSessions(ctx context.Context, userID uint64) ([]*entity.Session, error)
	Authenticate(ctx context.Context, accessToken string) (*entity.User, error)
}

type AsyncRunner func(task func())

type AuthServiceOption func(*authService)

type authService struct {
	userRepo    userRepository
	sessionRepo sessionRepository
	tokenRepo   oneTimeTokenRepository
	cfg         *config.Config
	clock       Clock
	mailer      Mailer
	codec       *TokenCodec
	asyncRunner AsyncRunner
}

func NewAuthService(
	userRepo userRepository,
	sessionRepo sessionRepository,
	tokenRepo oneTimeTokenRepository,
	cfg *config.Config,
	opts ...AuthServiceOption,
) AuthService {
	svc := &authService{
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		tokenRepo:   tokenRepo,
		cfg:         cfg,
		clock:       systemClock{},
		mailer:      logMailer{},
		asyncRunner: func(task func()) {
			go task()
		},
	}
	for _, opt := range opts {
		opt(svc)
	}
	svc.codec = NewTokenCodec(cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL, svc.clock)
	return svc
}

func WithClock(clock Clock) AuthServiceOption {
	return func(s *authService) {
		if clock != nil {
			s.clock = clock
		}
	}
}

func WithMailer(mailer Mailer) AuthServiceOption {
	return func(s *authService) {
		if mailer != nil {
			s.mailer = mailer
		}
	}
}

func WithAsyncRunner(runner AsyncRunner) AuthServiceOption {
	return func(s *authService) {
		if runner != nil {
			s.asyncRunner = runner
		}
	}
}

func (s *authService) Register(ctx context.Context, email, password string) (*entity.User, error) {
	email = strings.TrimSpace(email)
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidEmail, email)
	}
	if err := s.cfg.PasswordPolicy.Validate(password); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrWeakPassword, err.Error())
	}

	existing, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrEmailTaken
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	user := &entity.User{
		Email:        email,
		PasswordHash: hash,
		IsActive:     true,
		IsVerified:   false,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	token, err := s.issueOneTimeToken(ctx, user.ID, entity.TokenTypeVerifyEmail, s.cfg.VerifyTokenTTL)
	if err != nil {
		return nil, err
	}

	verifyLink := fmt.Sprintf("%s/verify?token=%s", s.cfg.FrontendBaseURL, token.Token)
	s.sendAsync(user.Email, "Verify your account", "Click: "+verifyLink)

	return user, nil
}

func (s *authService) VerifyEmail(ctx context.Context, token string) error {
	raw := normalizeToken(token)
	if raw == "" {
		return ErrInvalidToken
	}

	now := s.clock.Now()
	t, err := s.tokenRepo.FindValid(ctx, raw, entity.TokenTypeVerifyEmail, now)
	if err != nil {
		return err
	}
	if t == nil {
		return ErrInvalidToken
	}

	user, err := s.userRepo.FindByID(ctx, t.UserID)
	if err != nil {
		return err
	}
	if user == nil {
		return ErrUserNotFound
	}

	// Claim the token before touching the user so a concurrent spender of
	// the same token loses cleanly.
	used, err := s.tokenRepo.MarkUsed(ctx, t.ID, now)
	if err != nil {
		return err
	}
	if !used {
		return ErrInvalidToken
	}

	// Re-verifying an already-verified user is not an error; the token is
	// still consumed.
	if !user.IsVerified {
		user.IsVerified = true
		user.UpdatedAt = now
		if err := s.userRepo.Update(ctx, user); err != nil {
			return err
		}
	}

	return nil
}

func (s *authService) Login(ctx context.Context, email, password, userAgent, ip string) (*LoginResult, error) {
	user, err := s.userRepo.FindByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return nil, err
	}
	// Same failure for unknown email and wrong password, so callers cannot
	// probe which addresses are registered.
	if user == nil || !VerifyPassword(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, ErrAccountInactive
	}
	// Unverified users may log in; verification gates nothing at this
	// boundary.

	now := s.clock.Now()
	session := &entity.Session{
		UserID:    user.ID,
		JTI:       uuid.New().String(),
		UserAgent: nullString(userAgent),
		IP:        nullString(ip),
		CreatedAt: now,
		ExpiresAt: now.Add(s.cfg.RefreshTokenTTL),
	}
	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, err
	}

	access, err := s.codec.IssueAccess(user.ID, session.JTI)
	if err != nil {
		return nil, err
	}
	refresh, err := s.codec.IssueRefresh(user.ID, session.JTI)
	if err != nil {
		return nil, err
	}

	return &LoginResult{
		User:         user,
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(s.cfg.AccessTokenTTL.Seconds()),
	}, nil
}

// Refresh mints a new access token for a live session. The session id and
// refresh token are not rotated: one session lineage per login, revocable
// as a unit, until logout or natural expiry.
func (s *authService) Refresh(ctx context.Context, refreshToken string) (*RefreshResult, error) {
	claims, err := s.codec.Decode(refreshToken)
	if err != nil {
		return nil, err
	}
	if claims.TokenType != TokenTypeRefresh {
		return nil, ErrWrongTokenType
	}

	session, err := s.sessionRepo.FindByJTI(ctx, claims.SessionID)
	if err != nil {
		return nil, err
	}
	if session == nil || !session.Active(s.clock.Now()) {
		return nil, ErrSessionInvalid
	}

	access, err := s.codec.IssueAccess(claims.UserID, claims.SessionID)
	if err != nil {
		return nil, err
	}

	return &RefreshResult{
		AccessToken: access,
		ExpiresIn:   int64(s.cfg.AccessTokenTTL.Seconds()),
	}, nil
}

func (s *authService) Logout(ctx context.Context, refreshToken string) error {
	claims, err := s.codec.Decode(refreshToken)
	if err != nil {
		return err
	}
	if claims.TokenType != TokenTypeRefresh {
		return ErrWrongTokenType
	}

	return s.sessionRepo.Revoke(ctx, claims.SessionID, s.clock.Now())
}

func (s *authService) LogoutAll(ctx context.Context, userID uint64) error {
	return s.sessionRepo.RevokeAllForUser(ctx, userID, s.clock.Now())
}

// RequestPasswordReset always reports success to the caller. An unknown
// email writes nothing and sends nothing.
func (s *authService) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := s.userRepo.FindByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return err
	}
	if user == nil {
		logrus.WithField("email", email).Debug("Password reset requested for unknown email")
		return nil
	}

	token, err := s.issueOneTimeToken(ctx, user.ID, entity.TokenTypeResetPassword, s.cfg.ResetTokenTTL)
	if err != nil {
		return err
	}

	resetLink := fmt.Sprintf("%s/reset?token=%s", s.cfg.FrontendBaseURL, token.Token)
	s.sendAsync(user.Email, "Password reset", "Reset: "+resetLink)

	return nil
}

func (s *authService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if err := s.cfg.PasswordPolicy.Validate(newPassword); err != nil {
		return fmt.Errorf("%w: %s", ErrWeakPassword, err.Error())
	}

	now := s.clock.Now()
	t, err := s.tokenRepo.FindValid(ctx, strings.TrimSpace(token), entity.TokenTypeResetPassword, now)
	if err != nil {
		return err
	}
	if t == nil {
		return ErrInvalidToken
	}

	user, err := s.userRepo.FindByID(ctx, t.UserID)
	if err != nil {
		return err
	}
	if user == nil {
		return ErrUserNotFound
	}

	used, err := s.tokenRepo.MarkUsed(ctx, t.ID, now)
	if err != nil {
		return err
	}
	if !used {
		return ErrInvalidToken
	}

	hash, err := HashPassword(newPassword)
	if err != nil {
		return err
	}
	user.PasswordHash = hash
	user.UpdatedAt = now

	return s.userRepo.Update(ctx, user)
}

// ChangePassword does not revoke other sessions; callers wanting that
// hygiene invoke LogoutAll explicitly.
func (s *authService) ChangePassword(ctx context.Context, userID uint64, currentPassword, newPassword string) error {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if user == nil {
		return ErrUserNotFound
	}

	if !VerifyPassword(currentPassword, user.PasswordHash) {
		return ErrWrongPassword
	}
	if err := s.cfg.PasswordPolicy.Validate(newPassword); err != nil {
		return fmt.Errorf("%w: %s", ErrWeakPassword, err.Error())
	}

	hash, err := HashPassword(newPassword)
	if err != nil {
		return err
	}
	user.PasswordHash = hash
	user.UpdatedAt = s.clock.Now()

	return s.userRepo.Update(ctx, user)
}

func (s *authService) ListSessions(ctx context.Context, userID uint64) ([]*entity.Session, error) {
	return s.sessionRepo.ListActiveByUser(ctx, userID, s.clock.Now())
}

// Authenticate is the trust boundary for every protected request: a
// cryptographically valid access token is still rejected once its session
// row is revoked or expired, or its user deactivated.
func (s *authService) Authenticate(ctx context.Context, accessToken string) (*entity.User, error) {
	claims, err := s.codec.Decode(accessToken)
	if err != nil {
		return nil, err
	}
	if claims.TokenType != TokenTypeAccess {
		return nil, ErrWrongTokenType
	}

	session, err := s.sessionRepo.FindByJTI(ctx, claims.SessionID)
	if err != nil {
		return nil, err
	}
	if session == nil || !session.Active(s.clock.Now()) {
		return nil, ErrSessionInvalid
	}

	user, err := s.userRepo.FindByID(ctx, claims.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil || !user.IsActive {
		return nil, ErrAccountInactive
	}

	return user, nil
}

func (s *authService) issueOneTimeToken(ctx context.Context, userID uint64, tokenType entity.TokenType, ttl time.Duration) (*entity.OneTimeToken, error) {
	now := s.clock.Now()
	token := &entity.OneTimeToken{
		UserID:    userID,
		Token:     uuid.New().String(),
		Type:      tokenType,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}
	if err := s.tokenRepo.Create(ctx, token); err != nil {
		return nil, err
	}
	return token, nil
}

func (s *authService) sendAsync(to, subject, body string) {
	s.asyncRunner(func() {
		if err := s.mailer.Send(to, subject, body); err != nil {
			logrus.WithError(err).WithField("to", to).Error("Failed to send email")
		}
	})
}

// normalizeToken accepts either a bare token or a pasted verification URL
// carrying ?token=.
func normalizeToken(token string) string {
	raw := strings.TrimSpace(token)
	if strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://") {
		u, err := url.Parse(raw)
		if err != nil {
			return ""
		}
		raw = strings.TrimSpace(u.Query().Get("token"))
	}
	return raw
}

func nullString(s string) (ns sql.NullString) {
	if s != "" {
		ns.String = s
		ns.Valid = true
	}
	return ns
}

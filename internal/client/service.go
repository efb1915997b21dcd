package client

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pedrohonorio/biblioteca-virtual/internal/client/entity"
	"github.com/pedrohonorio/biblioteca-virtual/internal/notify"
	"github.com/pedrohonorio/biblioteca-virtual/pkg/utilities"
)

var (
	ErrNullClient       = errors.New("client is required")
	ErrInvalidEmail     = errors.New("client email is invalid")
	ErrClientExists     = errors.New("client email already registered")
	ErrPasswordMismatch = errors.New("passwords do not match")
	ErrInvalidResetCode = errors.New("reset code is invalid or expired")
)

// Store is the persistence access the client package needs.
type Store interface {
	Create(ctx context.Context, c *entity.Client) (int64, error)
	GetByEmail(ctx context.Context, email string) (*entity.Client, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	ExistsByID(ctx context.Context, id int64) (bool, error)
	UpdatePassword(ctx context.Context, email, hash string) error
	SaveResetToken(ctx context.Context, t *entity.ResetToken) error
	ConsumeResetToken(ctx context.Context, token, email string) (bool, error)
}

// Service covers registration and credential flows: signup, forgot
// password, password change. Registration and update validation are two
// distinct entry points; an id is an update precondition, not a creation
// one.
type Service struct {
	store    Store
	hasher   PasswordHasher
	mailer   notify.Mailer
	logger   *zap.SugaredLogger
	resetTTL time.Duration
	newToken func() string
	now      func() time.Time
}

func NewService(store Store, hasher PasswordHasher, mailer notify.Mailer, logger *zap.SugaredLogger) *Service {
	if hasher == nil {
		hasher = BcryptHasher{Cost: 12}
	}
	return &Service{
		store:    store,
		hasher:   hasher,
		mailer:   mailer,
		logger:   logger,
		resetTTL: 30 * time.Minute,
		newToken: utilities.NewKSUID,
		now:      time.Now,
	}
}

// Register validates and creates a client account. The stored credential is
// a bcrypt hash; new accounts always get the CLIENT profile.
func (s *Service) Register(ctx context.Context, c *entity.Client, password string) (*entity.Client, error) {
	if err := s.ValidateCreate(ctx, c); err != nil {
		s.logger.Warnw("registration rejected", "err", err)
		return nil, fmt.Errorf("register client: %w", err)
	}
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("register client: hash password: %w", err)
	}
	c.Email = strings.TrimSpace(c.Email)
	c.PasswordHash = hash
	c.Profile = entity.ProfileClient
	if _, err := s.store.Create(ctx, c); err != nil {
		s.logger.Errorw("registration failed", "email", c.Email, "err", err)
		return nil, fmt.Errorf("register client: %w", err)
	}
	s.logger.Infow("client registered", "client_id", c.ID)
	return c, nil
}

// ValidateCreate checks the invariants of a new registration. No id is
// expected: ids are assigned by the store.
func (s *Service) ValidateCreate(ctx context.Context, c *entity.Client) error {
	if c == nil {
		return ErrNullClient
	}
	if err := validateEmail(c.Email); err != nil {
		return err
	}
	exists, err := s.store.ExistsByEmail(ctx, c.Email)
	if err != nil {
		return fmt.Errorf("look up email: %w", err)
	}
	if exists {
		return ErrClientExists
	}
	return nil
}

// ValidateUpdate checks the invariants of a profile update, which does
// require an already-assigned id.
func (s *Service) ValidateUpdate(ctx context.Context, c *entity.Client) error {
	if c == nil || c.ID == 0 {
		return ErrNullClient
	}
	return validateEmail(c.Email)
}

// ValidatePasswordChange checks a password change request. The email must
// be present and the confirmation must match the new password exactly.
func (s *Service) ValidatePasswordChange(newPassword, confirmPassword, email string) error {
	if err := validateEmail(email); err != nil {
		return err
	}
	if newPassword != confirmPassword {
		return ErrPasswordMismatch
	}
	return nil
}

// ForgotPassword stores a single-use reset token and mails it to the
// client. Unknown emails are reported to the caller; the mail itself is
// best effort only in the sense that delivery errors surface as errors.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	if err := validateEmail(email); err != nil {
		return fmt.Errorf("forgot password: %w", err)
	}
	c, err := s.store.GetByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("forgot password: look up client: %w", err)
	}
	token := &entity.ResetToken{
		Token:     s.newToken(),
		Email:     c.Email,
		ExpiresAt: s.now().Add(s.resetTTL),
	}
	if err := s.store.SaveResetToken(ctx, token); err != nil {
		return fmt.Errorf("forgot password: save token: %w", err)
	}
	body := fmt.Sprintf(
		"A password reset was requested for this account.\n\nReset code: %s\n\nThe code expires in %s. If you did not request it, ignore this message.",
		token.Token, s.resetTTL)
	if err := s.mailer.Send(ctx, c.Email, "Password reset", body); err != nil {
		return fmt.Errorf("forgot password: %w", err)
	}
	s.logger.Infow("password reset requested", "client_id", c.ID)
	return nil
}

// ChangePassword validates the request, consumes the reset token and
// replaces the stored credential. A token is valid once, for one email,
// within its expiry.
func (s *Service) ChangePassword(ctx context.Context, token, newPassword, confirmPassword, email string) error {
	if err := s.ValidatePasswordChange(newPassword, confirmPassword, email); err != nil {
		s.logger.Warnw("password change rejected", "err", err)
		return fmt.Errorf("change password: %w", err)
	}
	ok, err := s.store.ConsumeResetToken(ctx, token, email)
	if err != nil {
		return fmt.Errorf("change password: consume token: %w", err)
	}
	if !ok {
		return fmt.Errorf("change password: %w", ErrInvalidResetCode)
	}
	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("change password: hash password: %w", err)
	}
	if err := s.store.UpdatePassword(ctx, email, hash); err != nil {
		return fmt.Errorf("change password: %w", err)
	}
	s.logger.Infow("password changed")
	return nil
}

func validateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return ErrInvalidEmail
	}
	at := strings.IndexByte(email, '@')
	if at <= 0 || at == len(email)-1 {
		return ErrInvalidEmail
	}
	return nil
}

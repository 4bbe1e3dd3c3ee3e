package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/JacquesDelfrate/auth-system/internal/auth/domain"
	"github.com/JacquesDelfrate/auth-system/internal/auth/dto"
	autherror "github.com/JacquesDelfrate/auth-system/internal/errors"
	"github.com/JacquesDelfrate/auth-system/pkg/constant"
)

// UserService drives the credential lifecycle: registration, login, email
// verification and password reset. Verification and reset tokens are
// persisted on the owning user row; issuing a new token of the same class
// overwrites the old one, which is how a stale token is invalidated.
type UserService struct {
	repo    domain.UserRepository
	tokens  domain.TokenGenerator
	hasher  domain.PasswordHasher
	mailer  domain.Mailer
	baseURL string
	log     *zap.Logger
	now     func() time.Time
}

func NewUserService(
	repo domain.UserRepository,
	tokens domain.TokenGenerator,
	hasher domain.PasswordHasher,
	mailer domain.Mailer,
	baseURL string,
	log *zap.Logger,
) *UserService {
	if log == nil {
		log = zap.NewNop()
	}

	return &UserService{
		repo:    repo,
		tokens:  tokens,
		hasher:  hasher,
		mailer:  mailer,
		baseURL: baseURL,
		log:     log,
		now:     time.Now,
	}
}

// WithClock overrides the time source, for tests of expiry behavior.
func (s *UserService) WithClock(now func() time.Time) *UserService {
	s.now = now
	return s
}

// Register creates a new unverified user, issues a session token and mails
// a verification link. When the email already belongs to an unverified
// account, a fresh verification token is issued and mailed instead and
// ErrUnverifiedUserExists is returned so the caller can explain the resend.
func (s *UserService) Register(ctx context.Context, input dto.RegisterInput) (*domain.User, string, error) {
	existing, err := s.repo.GetByEmail(ctx, input.Email)
	if err != nil {
		return nil, "", err
	}

	if existing != nil {
		if existing.EmailVerified {
			s.log.Info("registration attempt for existing verified user",
				zap.String("user_id", existing.ID))
			return nil, "", autherror.ErrEmailAlreadyInUse
		}

		if err := s.issueAndMailVerification(ctx, existing); err != nil {
			return nil, "", err
		}

		return nil, "", autherror.ErrUnverifiedUserExists
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, "", err
	}

	now := s.now()
	user := &domain.User{
		ID:           uuid.New().String(),
		Email:        input.Email,
		Name:         input.Name,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return nil, "", err
	}

	sessionToken, _, err := s.tokens.Generate(user.ID, user.Email)
	if err != nil {
		return nil, "", err
	}

	if err := s.issueAndMailVerification(ctx, user); err != nil {
		return nil, "", err
	}

	s.log.Info("user registered", zap.String("user_id", user.ID))

	return user, sessionToken, nil
}

// Login checks credentials and issues a session token. An unknown email is
// reported distinctly from a bad password.
func (s *UserService) Login(ctx context.Context, input dto.LoginInput) (*domain.User, string, error) {
	user, err := s.repo.GetByEmail(ctx, input.Email)
	if err != nil {
		return nil, "", err
	}
	if user == nil {
		return nil, "", autherror.ErrUserNotFound
	}

	if !s.hasher.Compare(input.Password, user.PasswordHash) {
		s.log.Info("login attempt with invalid password", zap.String("user_id", user.ID))
		return nil, "", autherror.ErrInvalidCredentials
	}

	sessionToken, _, err := s.tokens.Generate(user.ID, user.Email)
	if err != nil {
		return nil, "", err
	}

	s.log.Info("user logged in", zap.String("user_id", user.ID))

	return user, sessionToken, nil
}

// VerifyEmail consumes a verification secret exactly once: on success the
// user is marked verified and the token fields are cleared in the same
// update. An expired token is left in place so a retry still reports
// expired rather than not-found.
func (s *UserService) VerifyEmail(ctx context.Context, secret string) (*domain.User, error) {
	user, err := s.repo.GetByVerificationToken(ctx, secret)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, autherror.ErrVerificationTokenNotFound
	}

	if user.VerificationTokenExpiry != nil && user.VerificationTokenExpiry.Before(s.now()) {
		return nil, autherror.ErrVerificationTokenExpired
	}

	if err := s.repo.MarkEmailVerified(ctx, user.ID); err != nil {
		return nil, err
	}

	s.log.Info("email verified", zap.String("user_id", user.ID))
	user.EmailVerified = true
	user.VerificationToken = nil
	user.VerificationTokenExpiry = nil

	return user, nil
}

// SendVerification re-issues the verification token for an authenticated,
// still-unverified user and mails the link. Repeated resends are safe: the
// newest token is always the only valid one.
func (s *UserService) SendVerification(ctx context.Context, userID string) error {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if user == nil {
		return autherror.ErrUserNotFound
	}
	if user.EmailVerified {
		return autherror.ErrEmailAlreadyVerified
	}

	return s.issueAndMailVerification(ctx, user)
}

// RequestPasswordReset issues a reset token for the account and mails the
// reset link, overwriting any outstanding reset token.
func (s *UserService) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if user == nil {
		return autherror.ErrUserNotFound
	}

	secret, err := s.tokens.NewSecret()
	if err != nil {
		return err
	}

	expiry := s.now().Add(constant.CredentialTokenTTL)
	if err := s.repo.SetResetToken(ctx, user.ID, secret, expiry); err != nil {
		return err
	}

	s.log.Info("password reset token issued", zap.String("user_id", user.ID))

	link := fmt.Sprintf("%s/reset-password?token=%s", s.baseURL, secret)
	if err := s.mailer.SendPasswordResetEmail(ctx, user, link); err != nil {
		s.log.Error("failed to send password reset email",
			zap.String("user_id", user.ID), zap.Error(err))
		return fmt.Errorf("%w: %v", autherror.ErrMailDelivery, err)
	}

	return nil
}

// ResetPassword consumes a reset secret: on success the new password hash
// is stored and the token fields are cleared in the same update.
func (s *UserService) ResetPassword(ctx context.Context, secret, newPassword string) (*domain.User, error) {
	user, err := s.repo.GetByResetToken(ctx, secret)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, autherror.ErrResetTokenNotFound
	}

	if user.ResetPasswordTokenExpiry != nil && user.ResetPasswordTokenExpiry.Before(s.now()) {
		return nil, autherror.ErrResetTokenExpired
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return nil, err
	}

	if err := s.repo.UpdatePassword(ctx, user.ID, hash); err != nil {
		return nil, err
	}

	s.log.Info("password reset", zap.String("user_id", user.ID))
	user.PasswordHash = hash
	user.ResetPasswordToken = nil
	user.ResetPasswordTokenExpiry = nil

	return user, nil
}

// GetProfile loads the user behind a validated session.
func (s *UserService) GetProfile(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, autherror.ErrUserNotFound
	}

	return user, nil
}

// issueAndMailVerification installs a fresh verification secret on the user
// row (invalidating any previous one) and mails the verification link.
func (s *UserService) issueAndMailVerification(ctx context.Context, user *domain.User) error {
	secret, err := s.tokens.NewSecret()
	if err != nil {
		return err
	}

	expiry := s.now().Add(constant.CredentialTokenTTL)
	if err := s.repo.SetVerificationToken(ctx, user.ID, secret, expiry); err != nil {
		return err
	}

	s.log.Info("verification token issued", zap.String("user_id", user.ID))

	link := fmt.Sprintf("%s/verify-email?token=%s", s.baseURL, secret)
	if err := s.mailer.SendVerificationEmail(ctx, user, link); err != nil {
		s.log.Error("failed to send verification email",
			zap.String("user_id", user.ID), zap.Error(err))
		return fmt.Errorf("%w: %v", autherror.ErrMailDelivery, err)
	}

	return nil
}

package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/eckinger/uchomp/internal/domain"
	"github.com/eckinger/uchomp/internal/mailer"
	"github.com/eckinger/uchomp/internal/repository"
	"github.com/eckinger/uchomp/pkg/auth"
	"github.com/eckinger/uchomp/pkg/config"
	"github.com/eckinger/uchomp/pkg/logger"
	"golang.org/x/crypto/bcrypt"
)

type IdentityService interface {
	// RequestCode issues a fresh one-time code for the email, creating a
	// bare user if needed. The returned code exists for internal/testing
	// use; production callers must not expose it.
	RequestCode(ctx context.Context, req *domain.SendCodeRequest) (string, error)
	// VerifyCode consumes the live code and returns a verified-session token.
	VerifyCode(ctx context.Context, req *domain.VerifyCodeRequest) (string, error)
	CompleteProfile(ctx context.Context, req *domain.UpdateProfileRequest) error
	CheckProfile(ctx context.Context, email string) (bool, error)
}

type identityService struct {
	userRepo   repository.UserRepository
	verifyRepo repository.VerifyRepository
	mailer     mailer.Service
	config     *config.Config
	now        func() time.Time
}

func NewIdentityService(
	userRepo repository.UserRepository,
	verifyRepo repository.VerifyRepository,
	mailer mailer.Service,
	config *config.Config,
) IdentityService {
	return &identityService{
		userRepo:   userRepo,
		verifyRepo: verifyRepo,
		mailer:     mailer,
		config:     config,
		now:        time.Now,
	}
}

func (s *identityService) RequestCode(ctx context.Context, req *domain.SendCodeRequest) (string, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return "", err
	}

	if _, err := s.userRepo.EnsureByEmail(ctx, req.Email); err != nil {
		return "", fmt.Errorf("failed to ensure user exists: %w", err)
	}

	code, err := generateCode()
	if err != nil {
		return "", fmt.Errorf("failed to generate code: %w", err)
	}

	codeHash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash code: %w", err)
	}

	if err := s.verifyRepo.Upsert(ctx, req.Email, string(codeHash), s.now()); err != nil {
		return "", fmt.Errorf("failed to store verification code: %w", err)
	}

	// Best-effort; the code was stored successfully.
	if err := s.mailer.SendVerificationCode(req.Email, code); err != nil {
		logger.ErrorContext(ctx, "Failed to send verification email", "error", err, "email", req.Email)
	}

	return code, nil
}

func (s *identityService) VerifyCode(ctx context.Context, req *domain.VerifyCodeRequest) (string, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return "", err
	}

	code, err := s.verifyRepo.Get(ctx, req.Email)
	if err != nil {
		return "", fmt.Errorf("failed to look up verification code: %w", err)
	}
	if code == nil {
		return "", domain.ErrCodeNotFound
	}

	// Expired codes stay in place until overwritten or verified.
	if code.IsExpired(s.config.Auth.CodeTTL, s.now()) {
		return "", domain.ErrCodeExpired
	}

	if bcrypt.CompareHashAndPassword([]byte(code.CodeHash), []byte(req.Key)) != nil {
		return "", domain.ErrCodeMismatch
	}

	consumed, err := s.verifyRepo.Consume(ctx, req.Email)
	if err != nil {
		return "", fmt.Errorf("failed to consume verification code: %w", err)
	}
	if !consumed {
		// A concurrent verification got there first.
		return "", domain.ErrCodeNotFound
	}

	user, err := s.userRepo.MarkVerified(ctx, req.Email)
	if err != nil {
		return "", fmt.Errorf("failed to mark user verified: %w", err)
	}
	if user == nil {
		return "", domain.ErrUserNotFound
	}

	token, err := auth.NewVerifiedSession(user.ID, user.Email, s.config.Auth.JWTSecret, s.config.Auth.SessionTTL)
	if err != nil {
		return "", fmt.Errorf("failed to mint session token: %w", err)
	}

	return token, nil
}

func (s *identityService) CompleteProfile(ctx context.Context, req *domain.UpdateProfileRequest) error {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return err
	}

	user, err := s.userRepo.FindByEmail(ctx, req.Email)
	if err != nil {
		return fmt.Errorf("failed to look up user: %w", err)
	}
	if user == nil || !user.IsVerified {
		return domain.ErrUserNotFound
	}

	if _, err := s.userRepo.UpdateProfile(ctx, req.Email, req.Name, req.Cell); err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}

	return nil
}

func (s *identityService) CheckProfile(ctx context.Context, email string) (bool, error) {
	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return false, fmt.Errorf("failed to look up user: %w", err)
	}
	if user == nil {
		return false, nil
	}
	return user.HasProfile(), nil
}

// generateCode draws an unbiased 6-digit code in [100000, 999999].
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}

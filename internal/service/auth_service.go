package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/big"
	"time"

	"clinical-scribe-be/internal/dto"
	"clinical-scribe-be/internal/entity"
	"clinical-scribe-be/internal/pkg/mailer"
	"clinical-scribe-be/internal/pkg/serverutils"
	"clinical-scribe-be/internal/pkg/session"
	"clinical-scribe-be/internal/repository/specification"
	"clinical-scribe-be/internal/repository/unitofwork"

	"clinical-scribe-be/pkg/events"
	pktNats "clinical-scribe-be/pkg/nats"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type IAuthService interface {
	Register(ctx context.Context, req *dto.RegisterRequest) (*dto.RegisterResponse, error)
	VerifyEmail(ctx context.Context, req *dto.VerifyEmailRequest) error
	Login(ctx context.Context, req *dto.LoginRequest, ipAddress, userAgent string) (*dto.LoginResponse, error)
	Refresh(ctx context.Context, req *dto.RefreshTokenRequest) (*dto.LoginResponse, error)
	Logout(ctx context.Context, refreshToken string) error
	ForgotPassword(ctx context.Context, req *dto.ForgotPasswordRequest) error
	ResetPassword(ctx context.Context, req *dto.ResetPasswordRequest) error
	Me(ctx context.Context, userId uuid.UUID) (*dto.MeResponse, error)

	// InvalidateCredential makes a credential invalid everywhere. Called when
	// any downstream check rejects it with a 401; never retried.
	InvalidateCredential(ctx context.Context, userId uuid.UUID) error
}

type authService struct {
	uowFactory     unitofwork.RepositoryFactory
	emailService   mailer.IEmailService
	eventPublisher *pktNats.Publisher
	denylist       session.ICredentialDenylist
	jwtSecret      string
}

func NewAuthService(
	uowFactory unitofwork.RepositoryFactory,
	emailService mailer.IEmailService,
	eventPublisher *pktNats.Publisher,
	denylist session.ICredentialDenylist,
	jwtSecret string,
) IAuthService {
	return &authService{
		uowFactory:     uowFactory,
		emailService:   emailService,
		eventPublisher: eventPublisher,
		denylist:       denylist,
		jwtSecret:      jwtSecret,
	}
}

const accessTokenExpiry = time.Hour * 24

func generateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n), nil
}

func hashToken(raw string) string {
	hasher := sha256.New()
	hasher.Write([]byte(raw))
	return hex.EncodeToString(hasher.Sum(nil))
}

func (s *authService) Register(ctx context.Context, req *dto.RegisterRequest) (*dto.RegisterResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	existing, _ := uow.UserRepository().FindOne(ctx, specification.ByEmail{Email: req.Email})
	if existing != nil {
		return nil, serverutils.NewConflictError("email already registered")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	hashStr := string(hash)

	user := &entity.User{
		Id:            uuid.New(),
		Email:         req.Email,
		FullName:      req.FullName,
		PasswordHash:  &hashStr,
		Role:          entity.UserRoleProfessional,
		Status:        entity.UserStatusPending,
		EmailVerified: false,
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	}

	// Transaction for user + token creation safety
	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Rollback()

	if err := uow.UserRepository().Create(ctx, user); err != nil {
		return nil, err
	}

	otpCode, err := generateOTP()
	if err != nil {
		return nil, err
	}

	verificationToken := &entity.EmailVerificationToken{
		Id:        uuid.New(),
		UserId:    user.Id,
		Token:     otpCode,
		ExpiresAt: time.Now().Add(15 * time.Minute),
		CreatedAt: time.Now(),
	}

	if err := uow.UserRepository().CreateEmailVerificationToken(ctx, verificationToken); err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, err
	}

	go func() {
		if emailErr := s.emailService.SendOTP(user.Email, otpCode); emailErr != nil {
			fmt.Printf("[WARN] Failed to send registration email: %v\n", emailErr)
		}
	}()

	return &dto.RegisterResponse{Id: user.Id, Email: user.Email}, nil
}

func (s *authService) VerifyEmail(ctx context.Context, req *dto.VerifyEmailRequest) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	user, err := uow.UserRepository().FindOne(ctx, specification.ByEmail{Email: req.Email})
	if err != nil || user == nil {
		return serverutils.NewNotFoundError("user not found")
	}

	if user.Status == entity.UserStatusActive {
		return nil
	}

	tokenEntity, err := uow.UserRepository().FindEmailVerificationToken(ctx,
		specification.UserOwnedBy{UserID: user.Id},
		specification.ByToken{Token: req.Otp},
	)
	if err != nil || tokenEntity == nil {
		return serverutils.NewValidationError("invalid otp code")
	}
	if time.Now().After(tokenEntity.ExpiresAt) {
		return serverutils.NewValidationError("otp code expired")
	}

	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	if err := uow.UserRepository().ActivateUser(ctx, user.Id); err != nil {
		return err
	}
	_ = uow.UserRepository().DeleteEmailVerificationToken(ctx, tokenEntity.Id)

	return uow.Commit()
}

func (s *authService) Login(ctx context.Context, req *dto.LoginRequest, ipAddress, userAgent string) (*dto.LoginResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	user, err := uow.UserRepository().FindOne(ctx, specification.ByEmail{Email: req.Email})
	if err != nil || user == nil {
		return nil, serverutils.NewUnauthorizedError("invalid credentials")
	}

	if user.PasswordHash == nil {
		return nil, serverutils.NewUnauthorizedError("invalid credentials")
	}

	if user.Status == entity.UserStatusPending || !user.EmailVerified {
		return nil, serverutils.NewUnauthorizedError("email not verified. please check your inbox for the otp code")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, serverutils.NewUnauthorizedError("invalid credentials")
	}

	if user.Status == entity.UserStatusBlocked {
		return nil, serverutils.NewForbiddenError("user account is blocked")
	}

	return s.issueTokens(ctx, uow, user, ipAddress, userAgent)
}

func (s *authService) issueTokens(ctx context.Context, uow unitofwork.UnitOfWork, user *entity.User, ipAddress, userAgent string) (*dto.LoginResponse, error) {
	expiresAt := time.Now().Add(accessTokenExpiry)
	claims := jwt.MapClaims{
		"user_id": user.Id.String(),
		"role":    user.Role,
		"exp":     expiresAt.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString([]byte(s.jwtSecret))
	if err != nil {
		return nil, err
	}

	rawRefreshToken := uuid.New().String()
	refreshTokenEntity := &entity.UserRefreshToken{
		Id:        uuid.New(),
		UserId:    user.Id,
		TokenHash: hashToken(rawRefreshToken),
		ExpiresAt: time.Now().Add(time.Hour * 24 * 30),
		Revoked:   false,
		CreatedAt: time.Now(),
		IpAddress: ipAddress,
		UserAgent: userAgent,
	}
	if err := uow.UserRepository().CreateRefreshToken(ctx, refreshTokenEntity); err != nil {
		return nil, fmt.Errorf("failed to create session: %v", err)
	}

	if s.eventPublisher != nil {
		event := events.BaseEvent{
			Type: "USER_LOGIN",
			Data: map[string]interface{}{
				"user_id": user.Id,
				"device":  userAgent,
				"time":    time.Now().Format(time.RFC822),
			},
			OccurredAt: time.Now(),
		}
		if err := s.eventPublisher.Publish(ctx, event); err != nil {
			fmt.Printf("[WARN] Failed to publish USER_LOGIN event: %v\n", err)
		}
	}

	return &dto.LoginResponse{
		AccessToken:  signedToken,
		RefreshToken: rawRefreshToken,
		ExpiresAt:    expiresAt,
	}, nil
}

func (s *authService) Refresh(ctx context.Context, req *dto.RefreshTokenRequest) (*dto.LoginResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	stored, err := uow.UserRepository().FindRefreshTokenByHash(ctx, hashToken(req.RefreshToken))
	if err != nil {
		return nil, err
	}
	if stored == nil || stored.Revoked || time.Now().After(stored.ExpiresAt) {
		return nil, serverutils.NewUnauthorizedError("refresh token expired or revoked")
	}

	user, err := uow.UserRepository().FindOne(ctx, specification.ByID{ID: stored.UserId})
	if err != nil || user == nil {
		return nil, serverutils.NewUnauthorizedError("invalid credentials")
	}
	if user.Status == entity.UserStatusBlocked {
		return nil, serverutils.NewForbiddenError("user account is blocked")
	}

	// Rotate: the old refresh token dies with this exchange.
	if err := uow.UserRepository().RevokeRefreshToken(ctx, stored.TokenHash); err != nil {
		return nil, err
	}

	return s.issueTokens(ctx, uow, user, stored.IpAddress, stored.UserAgent)
}

func (s *authService) Logout(ctx context.Context, refreshToken string) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	stored, err := uow.UserRepository().FindRefreshTokenByHash(ctx, hashToken(refreshToken))
	if err != nil {
		return err
	}
	if stored == nil {
		return nil
	}
	if err := uow.UserRepository().RevokeRefreshToken(ctx, stored.TokenHash); err != nil {
		return err
	}
	return s.InvalidateCredential(ctx, stored.UserId)
}

func (s *authService) InvalidateCredential(ctx context.Context, userId uuid.UUID) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	// All outstanding sessions die. Fresh credentials require a new login.
	if err := uow.UserRepository().RevokeAllRefreshTokens(ctx, userId); err != nil {
		return err
	}
	if s.denylist != nil {
		if err := s.denylist.Invalidate(ctx, userId.String(), accessTokenExpiry); err != nil {
			fmt.Printf("[WARN] Failed to broadcast credential invalidation: %v\n", err)
		}
	}

	if s.eventPublisher != nil {
		event := events.BaseEvent{
			Type: events.TypeSessionInvalid,
			Data: map[string]interface{}{
				"user_id": userId,
			},
			OccurredAt: time.Now(),
		}
		if err := s.eventPublisher.Publish(ctx, event); err != nil {
			fmt.Printf("[WARN] Failed to publish %s event: %v\n", events.TypeSessionInvalid, err)
		}
	}
	return nil
}

func (s *authService) ForgotPassword(ctx context.Context, req *dto.ForgotPasswordRequest) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	user, err := uow.UserRepository().FindOne(ctx, specification.ByEmail{Email: req.Email})
	if err != nil {
		return err
	}
	if user == nil {
		// Do not reveal whether the email exists.
		return nil
	}

	rawToken := uuid.New().String()
	resetToken := &entity.PasswordResetToken{
		Id:        uuid.New(),
		UserId:    user.Id,
		Token:     hashToken(rawToken),
		ExpiresAt: time.Now().Add(time.Hour),
		CreatedAt: time.Now(),
	}
	if err := uow.UserRepository().CreatePasswordResetToken(ctx, resetToken); err != nil {
		return err
	}

	go func() {
		if emailErr := s.emailService.SendResetToken(user.Email, rawToken); emailErr != nil {
			fmt.Printf("[WARN] Failed to send reset email: %v\n", emailErr)
		}
	}()
	return nil
}

func (s *authService) ResetPassword(ctx context.Context, req *dto.ResetPasswordRequest) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	stored, err := uow.UserRepository().FindPasswordResetToken(ctx, specification.ByToken{Token: hashToken(req.Token)})
	if err != nil {
		return err
	}
	if stored == nil || stored.Used || time.Now().After(stored.ExpiresAt) {
		return serverutils.NewValidationError("invalid or expired reset token")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	if err := uow.UserRepository().UpdatePassword(ctx, stored.UserId, string(hash)); err != nil {
		return err
	}
	if err := uow.UserRepository().MarkTokenUsed(ctx, stored.Id); err != nil {
		return err
	}
	if err := uow.Commit(); err != nil {
		return err
	}

	// A password change invalidates every outstanding credential.
	return s.InvalidateCredential(ctx, stored.UserId)
}

func (s *authService) Me(ctx context.Context, userId uuid.UUID) (*dto.MeResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	user, err := uow.UserRepository().FindOne(ctx, specification.ByID{ID: userId})
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, serverutils.NewNotFoundError("user not found")
	}

	return &dto.MeResponse{
		Id:         user.Id,
		Email:      user.Email,
		FullName:   user.FullName,
		Role:       string(user.Role),
		Status:     string(user.Status),
		CanApprove: user.CanApprove(),
		CreatedAt:  user.CreatedAt,
	}, nil
}

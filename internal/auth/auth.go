package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"careerdesk/internal/domain"
	"careerdesk/internal/repo"
)

// ErrInvalidCredentials covers unknown email and wrong password alike so the
// two are indistinguishable to callers.
var ErrInvalidCredentials = errors.New("invalid credentials")

// ErrProfileMissing indicates an identity exists but its admin profile row
// does not. Sign-in must fail outright rather than return a partial user.
var ErrProfileMissing = errors.New("admin profile missing for identity")

// ErrEmailTaken indicates a sign-up against an already registered email.
var ErrEmailTaken = errors.New("email already registered")

// Service authenticates admin and recruiter identities. Credentials live in
// auth_identities; the user-facing profile lives in admin_users. A session is
// a signed stateless token, so sign-out is client-side token disposal.
type Service struct {
	Repo       repo.Repo
	JWTSecret  string
	SessionTTL time.Duration
	ResetTTL   time.Duration
	Now        func() time.Time
	Logger     *log.Logger
}

type Session struct {
	User      domain.AuthUser
	Token     string
	ExpiresAt string
}

type sessionClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

func (s Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s Service) logger() *log.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return log.Default()
}

func (s Service) sessionTTL() time.Duration {
	if s.SessionTTL > 0 {
		return s.SessionTTL
	}
	return 24 * time.Hour
}

func (s Service) resetTTL() time.Duration {
	if s.ResetTTL > 0 {
		return s.ResetTTL
	}
	return time.Hour
}

// SignIn verifies the credential and joins the admin profile. Both steps must
// succeed; there is no partial session.
func (s Service) SignIn(ctx context.Context, email, password string) (Session, error) {
	identity, err := s.Repo.GetIdentityByEmail(ctx, email)
	if errors.Is(err, repo.ErrNotFound) {
		return Session{}, ErrInvalidCredentials
	}
	if err != nil {
		return Session{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(identity.PasswordHash), []byte(password)); err != nil {
		return Session{}, ErrInvalidCredentials
	}
	user, err := s.Repo.GetAdminUserByEmail(ctx, email)
	if errors.Is(err, repo.ErrNotFound) {
		s.logger().Printf("WARNING: identity %s has no admin profile", identity.ID)
		return Session{}, ErrProfileMissing
	}
	if err != nil {
		return Session{}, err
	}
	return s.IssueSession(user)
}

// IssueSession signs a session token for an already-resolved user.
func (s Service) IssueSession(user domain.AuthUser) (Session, error) {
	if s.JWTSecret == "" {
		return Session{}, errors.New("jwt secret not configured")
	}
	now := s.now().UTC()
	expires := now.Add(s.sessionTTL())
	claims := sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
		Email: user.Email,
		Name:  user.Name,
		Role:  user.Role,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.JWTSecret))
	if err != nil {
		return Session{}, err
	}
	return Session{User: user, Token: token, ExpiresAt: expires.Format(time.RFC3339)}, nil
}

// SignUp creates identity then profile, in that order, as two round trips.
// When the profile insert fails the identity row is deleted so no orphan
// credential remains.
func (s Service) SignUp(ctx context.Context, email, password, name, role string) (domain.AuthUser, error) {
	if email == "" || password == "" || name == "" {
		return domain.AuthUser{}, errors.New("email, password and name are required")
	}
	if role == "" {
		role = domain.RoleRecruiter
	}
	if !domain.ValidRole(role) {
		return domain.AuthUser{}, fmt.Errorf("invalid role %q", role)
	}
	if _, err := s.Repo.GetIdentityByEmail(ctx, email); err == nil {
		return domain.AuthUser{}, ErrEmailTaken
	} else if !errors.Is(err, repo.ErrNotFound) {
		return domain.AuthUser{}, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return domain.AuthUser{}, err
	}
	now := s.now().UTC().Format(time.RFC3339)
	identity := repo.Identity{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    now,
	}
	if err := s.Repo.InsertIdentity(ctx, identity); err != nil {
		return domain.AuthUser{}, fmt.Errorf("create identity: %w", err)
	}
	user := domain.AuthUser{
		ID:    identity.ID,
		Email: email,
		Name:  name,
		Role:  role,
	}
	if err := s.Repo.InsertAdminUser(ctx, user, now); err != nil {
		if delErr := s.Repo.DeleteIdentity(ctx, identity.ID); delErr != nil {
			s.logger().Printf("WARNING: orphaned identity %s left behind: %v", identity.ID, delErr)
		}
		return domain.AuthUser{}, fmt.Errorf("create admin profile: %w", err)
	}
	return user, nil
}

// CurrentUser resolves a session token back to its admin profile. A valid
// token whose profile row has since disappeared is an error, not a partial
// user.
func (s Service) CurrentUser(ctx context.Context, token string) (domain.AuthUser, error) {
	userID, err := s.VerifyToken(token)
	if err != nil {
		return domain.AuthUser{}, err
	}
	user, err := s.Repo.GetAdminUser(ctx, userID)
	if errors.Is(err, repo.ErrNotFound) {
		return domain.AuthUser{}, ErrProfileMissing
	}
	return user, err
}

// VerifyToken checks signature and expiry and returns the subject user id.
func (s Service) VerifyToken(token string) (string, error) {
	if s.JWTSecret == "" {
		return "", errors.New("jwt secret not configured")
	}
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	claims := &sessionClaims{}
	parsed, err := parser.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return []byte(s.JWTSecret), nil
	})
	if err != nil {
		return "", ErrInvalidCredentials
	}
	if !parsed.Valid || claims.Subject == "" {
		return "", ErrInvalidCredentials
	}
	return claims.Subject, nil
}

// ResetPassword records a single-use reset token for the email. It succeeds
// quietly for unknown emails so the endpoint does not leak which addresses
// are registered. The returned token stands in for the reset email delivery.
func (s Service) ResetPassword(ctx context.Context, email string) (string, error) {
	if _, err := s.Repo.GetIdentityByEmail(ctx, email); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return "", nil
		}
		return "", err
	}
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	token := hex.EncodeToString(b)
	now := s.now().UTC()
	pr := repo.PasswordReset{
		Token:     token,
		Email:     email,
		ExpiresAt: now.Add(s.resetTTL()).Format(time.RFC3339),
		CreatedAt: now.Format(time.RFC3339),
	}
	if err := s.Repo.InsertPasswordReset(ctx, pr); err != nil {
		return "", err
	}
	return token, nil
}

// CompleteReset consumes a reset token and replaces the identity's password.
func (s Service) CompleteReset(ctx context.Context, token, newPassword string) error {
	if newPassword == "" {
		return errors.New("new password required")
	}
	pr, err := s.Repo.ConsumePasswordReset(ctx, token)
	if err != nil {
		return err
	}
	expires, err := time.Parse(time.RFC3339, pr.ExpiresAt)
	if err != nil {
		return err
	}
	if s.now().UTC().After(expires) {
		return errors.New("reset token expired")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.Repo.UpdateIdentityPassword(ctx, pr.Email, string(hash))
}

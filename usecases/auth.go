package usecases

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"projector-server/entities"
	"projector-server/repositories"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidToken       = errors.New("invalid or expired token")
)

const RoleAdmin = "ADMIN"

type Claims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

type Token struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
	Email       string    `json:"email"`
	Role        string    `json:"role"`
}

// AuthUseCase authenticates console operators and issues their tokens.
type AuthUseCase struct {
	users  repositories.UserRepository
	secret []byte
	ttl    time.Duration
	issuer string
	cost   int
	now    func() time.Time
	log    *zap.Logger
}

func NewAuthUseCase(users repositories.UserRepository, secret string, ttl time.Duration, issuer string, log *zap.Logger) *AuthUseCase {
	return &AuthUseCase{
		users:  users,
		secret: []byte(secret),
		ttl:    ttl,
		issuer: issuer,
		cost:   bcrypt.DefaultCost,
		now:    time.Now,
		log:    log,
	}
}

func (uc *AuthUseCase) Register(ctx context.Context, email, password, role string) (*entities.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, invalidArgument("email and password are required")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), uc.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	user := &entities.User{Email: email, PasswordHash: string(hash), Role: role}
	if err := uc.users.Create(ctx, user); err != nil {
		return nil, stored(err, "an operator with email %q already exists", email)
	}
	uc.log.Info("operator registered", zap.String("email", email), zap.String("role", role))
	return user, nil
}

// EnsureOperator registers an administrator unless the email is taken.
func (uc *AuthUseCase) EnsureOperator(ctx context.Context, email, password string) error {
	_, err := uc.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err == nil {
		return nil
	}
	if !errors.Is(err, repositories.ErrNotFound) {
		return err
	}
	_, err = uc.Register(ctx, email, password, RoleAdmin)
	return err
}

func (uc *AuthUseCase) Login(ctx context.Context, email, password string) (*Token, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	user, err := uc.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}

	now := uc.now()
	expires := now.Add(uc.ttl)
	claims := Claims{
		Email: user.Email,
		Role:  user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.Email,
			Issuer:    uc.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(uc.secret)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	uc.log.Debug("operator logged in", zap.String("email", user.Email))
	return &Token{AccessToken: signed, ExpiresAt: expires, Email: user.Email, Role: user.Role}, nil
}

// Validate parses a token issued by Login.
func (uc *AuthUseCase) Validate(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return uc.secret, nil
	}, jwt.WithIssuer(uc.issuer), jwt.WithTimeFunc(uc.now))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

package service

import (
	"alcyxob/coach-app/internal/domain"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

func TestRegisterAndLogin(t *testing.T) {
	users := newMemUsers()
	svc := NewAuthService(users, "secret", time.Hour)
	ctx := context.Background()

	user, err := svc.Register(ctx, "Ana", "ana@test", "pa55word", domain.RoleCoach)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if user.PasswordHash != "" {
		t.Fatal("password hash returned to caller")
	}
	if _, err := svc.Register(ctx, "Ana", "ana@test", "x", domain.RoleCoach); !errors.Is(err, ErrUserAlreadyExists) {
		t.Fatalf("duplicate err = %v", err)
	}
	if _, err := svc.Register(ctx, "Bo", "bo@test", "x", domain.Role("admin")); !errors.Is(err, ErrInvalidRole) {
		t.Fatalf("role err = %v", err)
	}

	if _, _, err := svc.Login(ctx, "ana@test", "wrong"); !errors.Is(err, ErrAuthenticationFailed) {
		t.Fatalf("wrong password err = %v", err)
	}
	if _, _, err := svc.Login(ctx, "nobody@test", "pa55word"); !errors.Is(err, ErrAuthenticationFailed) {
		t.Fatalf("unknown email err = %v", err)
	}

	token, _, err := svc.Login(ctx, "ana@test", "pa55word")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	claims := &jwtClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return []byte(svc.GetJWTSecret()), nil
	})
	if err != nil || !parsed.Valid {
		t.Fatalf("token invalid: %v", err)
	}
	if claims.UserID != user.ID.Hex() || claims.Role != domain.RoleCoach || claims.Issuer != "coach-app" {
		t.Fatalf("claims = %+v", claims)
	}
}

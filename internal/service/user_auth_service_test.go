package service

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/storelink-next/internal/config"
	"github.com/storelink-next/internal/constants"
	"github.com/storelink-next/internal/models"
	"github.com/storelink-next/internal/repository"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func setupUserAuthTest(t *testing.T) (*UserAuthService, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:user_auth_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}, &models.UserMeta{}); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}

	cfg := &config.Config{
		UserJWT: config.JWTConfig{
			SecretKey:             "user-auth-test-secret",
			ExpireHours:           24,
			RememberMeExpireHours: 168,
		},
		Security: config.SecurityConfig{
			PasswordPolicy: config.PasswordPolicyConfig{
				MinLength:     8,
				RequireUpper:  true,
				RequireLower:  true,
				RequireNumber: true,
			},
		},
	}
	svc := NewUserAuthService(cfg, repository.NewUserRepository(db), repository.NewUserMetaRepository(db))
	return svc, db
}

func TestUserRegisterWritesNamesToMeta(t *testing.T) {
	svc, db := setupUserAuthTest(t)

	user, token, expiresAt, err := svc.Register(RegisterInput{
		Email:     "Jane@Example.com",
		Password:  "Password123",
		FirstName: " Jane ",
		LastName:  " Doe ",
	})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if token == "" || expiresAt.IsZero() {
		t.Fatal("expected token with expiry")
	}
	if user.Email != "jane@example.com" {
		t.Fatalf("expected normalized email, got %q", user.Email)
	}
	if user.FirstName != "Jane" || user.LastName != "Doe" {
		t.Fatalf("expected trimmed names, got %q %q", user.FirstName, user.LastName)
	}
	if user.DisplayName != "jane" {
		t.Fatalf("expected display name from email local part, got %q", user.DisplayName)
	}

	metaRepo := repository.NewUserMetaRepository(db)
	first, err := metaRepo.GetValue(user.ID, constants.MetaKeyAffiliateFirstName)
	if err != nil {
		t.Fatalf("read meta failed: %v", err)
	}
	last, err := metaRepo.GetValue(user.ID, constants.MetaKeyAffiliateLastName)
	if err != nil {
		t.Fatalf("read meta failed: %v", err)
	}
	if first != "Jane" || last != "Doe" {
		t.Fatalf("expected name meta written, got %q %q", first, last)
	}

	claims, err := svc.ParseUserJWT(token)
	if err != nil {
		t.Fatalf("parse token failed: %v", err)
	}
	if claims.UserID != user.ID || claims.Email != user.Email {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestUserRegisterWithoutNamesSkipsMeta(t *testing.T) {
	svc, db := setupUserAuthTest(t)

	user, _, _, err := svc.Register(RegisterInput{
		Email:    "plain@example.com",
		Password: "Password123",
	})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}

	var count int64
	if err := db.Model(&models.UserMeta{}).Where("user_id = ?", user.ID).Count(&count).Error; err != nil {
		t.Fatalf("count meta failed: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected no meta rows, got %d", count)
	}
}

func TestUserRegisterEmailTaken(t *testing.T) {
	svc, _ := setupUserAuthTest(t)

	if _, _, _, err := svc.Register(RegisterInput{Email: "dup@example.com", Password: "Password123"}); err != nil {
		t.Fatalf("first register failed: %v", err)
	}
	_, _, _, err := svc.Register(RegisterInput{Email: "DUP@example.com", Password: "Password123"})
	if !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected email taken error, got %v", err)
	}
}

func TestUserRegisterRejectsWeakPassword(t *testing.T) {
	svc, _ := setupUserAuthTest(t)

	cases := []string{"short1A", "alllowercase1", "ALLUPPERCASE1", "NoNumbersHere"}
	for _, password := range cases {
		if _, _, _, err := svc.Register(RegisterInput{Email: "weak@example.com", Password: password}); err == nil {
			t.Fatalf("expected rejection for password %q", password)
		}
	}
}

func TestUserRegisterRejectsInvalidEmail(t *testing.T) {
	svc, _ := setupUserAuthTest(t)

	_, _, _, err := svc.Register(RegisterInput{Email: "not-an-email", Password: "Password123"})
	if !errors.Is(err, ErrInvalidEmail) {
		t.Fatalf("expected invalid email error, got %v", err)
	}
}

func TestUserLogin(t *testing.T) {
	svc, _ := setupUserAuthTest(t)

	if _, _, _, err := svc.Register(RegisterInput{Email: "login@example.com", Password: "Password123"}); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	user, token, _, err := svc.Login("Login@Example.com", "Password123")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if token == "" {
		t.Fatal("expected token")
	}
	if user.LastLoginAt == nil {
		t.Fatal("expected last login recorded")
	}

	if _, _, _, err := svc.Login("login@example.com", "WrongPass123"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials, got %v", err)
	}
	if _, _, _, err := svc.Login("missing@example.com", "Password123"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials for unknown email, got %v", err)
	}
}

func TestUserLoginDisabledAccount(t *testing.T) {
	svc, db := setupUserAuthTest(t)

	user, _, _, err := svc.Register(RegisterInput{Email: "blocked@example.com", Password: "Password123"})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if err := db.Model(&models.User{}).Where("id = ?", user.ID).Update("status", constants.UserStatusDisabled).Error; err != nil {
		t.Fatalf("disable user failed: %v", err)
	}

	if _, _, _, err := svc.Login("blocked@example.com", "Password123"); !errors.Is(err, ErrUserDisabled) {
		t.Fatalf("expected disabled error, got %v", err)
	}
}

func TestUserLoginRememberMeExtendsExpiry(t *testing.T) {
	svc, _ := setupUserAuthTest(t)

	if _, _, _, err := svc.Register(RegisterInput{Email: "remember@example.com", Password: "Password123"}); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	_, _, normalExpiry, err := svc.LoginWithRememberMe("remember@example.com", "Password123", false)
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	_, _, longExpiry, err := svc.LoginWithRememberMe("remember@example.com", "Password123", true)
	if err != nil {
		t.Fatalf("remember-me login failed: %v", err)
	}
	if !longExpiry.After(normalExpiry.Add(24 * time.Hour)) {
		t.Fatalf("expected remember-me expiry well beyond normal, got %v vs %v", longExpiry, normalExpiry)
	}
}

func TestUpdateAffiliateNames(t *testing.T) {
	svc, db := setupUserAuthTest(t)

	user, _, _, err := svc.Register(RegisterInput{Email: "names@example.com", Password: "Password123"})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}

	if err := svc.UpdateAffiliateNames(user.ID, " New ", " Name "); err != nil {
		t.Fatalf("update names failed: %v", err)
	}

	metaRepo := repository.NewUserMetaRepository(db)
	first, _ := metaRepo.GetValue(user.ID, constants.MetaKeyAffiliateFirstName)
	last, _ := metaRepo.GetValue(user.ID, constants.MetaKeyAffiliateLastName)
	if first != "New" || last != "Name" {
		t.Fatalf("expected trimmed names in meta, got %q %q", first, last)
	}

	if err := svc.UpdateAffiliateNames(9999, "A", "B"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found for missing user, got %v", err)
	}
}

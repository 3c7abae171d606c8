package services

import (
	"context"
	"errors"
	"testing"

	"github.com/CustomZone1/customzone/models"
)

func registerUser(t *testing.T, env *testEnv, username, email string) *models.User {
	t.Helper()
	user, err := env.auth.Register(context.Background(), RegisterInput{
		Username: username,
		Email:    email,
		Password: "correct horse",
	})
	if err != nil {
		t.Fatalf("register %s failed: %v", username, err)
	}
	return user
}

func TestAuthRegisterAndLogin(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	user := registerUser(t, env, "alice", "Alice@Example.com")
	if user.Role != models.RoleUser {
		t.Fatalf("expected user role, got %s", user.Role)
	}
	if user.ReferralCode == "" {
		t.Fatal("expected a generated referral code")
	}
	if user.PasswordHash != "" {
		t.Fatal("password hash leaked in response")
	}

	logged, err := env.auth.Login(ctx, LoginInput{Email: "alice@example.com", Password: "correct horse"})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if logged.ID != user.ID {
		t.Fatalf("logged in as wrong user: %d", logged.ID)
	}

	if _, err := env.auth.Login(ctx, LoginInput{Email: "alice@example.com", Password: "wrong"}); !errors.Is(err, ErrAuthInvalidCredentials) {
		t.Fatalf("expected ErrAuthInvalidCredentials, got %v", err)
	}
	if _, err := env.auth.Login(ctx, LoginInput{Email: "nobody@example.com", Password: "x"}); !errors.Is(err, ErrAuthInvalidCredentials) {
		t.Fatalf("expected ErrAuthInvalidCredentials, got %v", err)
	}
}

func TestAuthRegisterValidation(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	if _, err := env.auth.Register(ctx, RegisterInput{Username: "a", Email: "a@b.c", Password: "short"}); !errors.Is(err, ErrPasswordTooShort) {
		t.Fatalf("expected ErrPasswordTooShort, got %v", err)
	}

	registerUser(t, env, "alice", "alice@example.com")

	if _, err := env.auth.Register(ctx, RegisterInput{Username: "other", Email: "alice@example.com", Password: "long enough"}); !errors.Is(err, ErrAuthEmailTaken) {
		t.Fatalf("expected ErrAuthEmailTaken, got %v", err)
	}
	if _, err := env.auth.Register(ctx, RegisterInput{Username: "alice", Email: "new@example.com", Password: "long enough"}); !errors.Is(err, ErrAuthUsernameTaken) {
		t.Fatalf("expected ErrAuthUsernameTaken, got %v", err)
	}
}

func TestAuthReferralBonus(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	referrer := registerUser(t, env, "alice", "alice@example.com")

	user, err := env.auth.Register(ctx, RegisterInput{
		Username:     "bob",
		Email:        "bob@example.com",
		Password:     "long enough",
		ReferralCode: referrer.ReferralCode,
	})
	if err != nil {
		t.Fatalf("register with referral failed: %v", err)
	}
	if user.ReferredBy == nil || *user.ReferredBy != referrer.ID {
		t.Fatalf("referrer not recorded: %+v", user.ReferredBy)
	}
	if got := env.balance(referrer.ID); got != 20 {
		t.Fatalf("expected referral bonus 20, got %d", got)
	}
}

func TestAuthUnknownReferralCode(t *testing.T) {
	env := newTestEnv()

	_, err := env.auth.Register(context.Background(), RegisterInput{
		Username:     "bob",
		Email:        "bob@example.com",
		Password:     "long enough",
		ReferralCode: "does-not-exist",
	})
	if !errors.Is(err, ErrInvalidReferralCode) {
		t.Fatalf("expected ErrInvalidReferralCode, got %v", err)
	}
}

package auth

import (
	"chatcode/errors"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func TestHashAndCompare(t *testing.T) {
	req := require.New(t)
	password := "MyPassw0rdIsS0Safe!"

	hash, err := HashPassword(password)
	req.NoError(err)
	req.True(strings.HasPrefix(hash, "$argon2id$"))

	match, err := ComparePassword(password, hash)
	req.NoError(err)
	req.True(match)

	// Wrong password
	match, err = ComparePassword("WrongPassword", hash)
	req.NoError(err)
	req.False(match)

	// Garbage hash
	_, err = ComparePassword(password, "$bcrypt$nope")
	req.Error(err)
}

func TestRegistrationValidation(t *testing.T) {
	tests := []struct {
		name    string
		req     RegisterRequest
		wantErr error
	}{
		{"Valid request", RegisterRequest{"test@example.com", "ComplexPass123!"}, nil},
		{"Invalid email", RegisterRequest{"notanemail", "ComplexPass123!"}, errors.ErrInvalidCommand},
		{"Password too short", RegisterRequest{"test@example.com", "Short1!"}, errors.ErrInvalidCommand},
		{"Missing digit", RegisterRequest{"test@example.com", "NoDigitPass!"}, errors.ErrInvalidPassword},
		{"Missing special char", RegisterRequest{"test@example.com", "NoSpecialChar123"}, errors.ErrInvalidPassword},
		{"Missing uppercase", RegisterRequest{"test@example.com", "nouppercase123!"}, errors.ErrInvalidPassword},
		{"Password too long", RegisterRequest{"test@example.com", strings.Repeat("a", 73)}, errors.ErrInvalidCommand},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			err := ValidateRegister(tt.req)
			if tt.wantErr == nil {
				req.NoError(err)
				return
			}
			req.ErrorIs(err, tt.wantErr)
		})
	}
}

func TestTokenIssuer(t *testing.T) {
	req := require.New(t)
	issuer := NewTokenIssuer("a-test-secret-long-enough", time.Hour)

	token, err := issuer.Generate("user-123", []string{"user"})
	req.NoError(err)

	claims, err := issuer.Validate(token)
	req.NoError(err)
	req.Equal("user-123", claims.UserID)
	req.Equal([]string{"user"}, claims.Roles)

	// Another secret rejects the token
	_, err = NewTokenIssuer("another-secret", time.Hour).Validate(token)
	req.ErrorIs(err, errors.ErrUnauthenticated)
}

func TestTokenIssuer_Expired(t *testing.T) {
	req := require.New(t)
	issuer := NewTokenIssuer("a-test-secret-long-enough", -time.Minute)

	token, err := issuer.Generate("user-123", nil)
	req.NoError(err)

	_, err = issuer.Validate(token)
	req.ErrorIs(err, errors.ErrUnauthenticated)
}

func TestTokenIssuer_Rejects_None_Algorithm(t *testing.T) {
	req := require.New(t)
	issuer := NewTokenIssuer("a-test-secret-long-enough", time.Hour)
	claims := &CustomClaims{
		UserID: "intruder",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "chatcode",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	req.NoError(err)

	_, err = issuer.Validate(unsigned)
	req.ErrorIs(err, errors.ErrUnauthenticated)
}

func TestState_Context(t *testing.T) {
	req := require.New(t)

	_, err := FromContext(context.Background())
	req.ErrorIs(err, errors.ErrUnauthenticated)

	ctx := WithState(context.Background(), State{UserID: "alice", Roles: []string{"user"}})
	state, err := FromContext(ctx)
	req.NoError(err)
	req.Equal("alice", state.UserID)
	req.True(state.HasRole("user"))
	req.False(state.HasRole("admin"))
}

func BenchmarkHashPassword(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_, _ = HashPassword("A-very-long-and-complex-password-for-bench-123!")
	}
}

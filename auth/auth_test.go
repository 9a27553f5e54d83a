package auth

import (
	"dm-lab/domain"
	"dm-lab/errors"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestHashAndCompare(t *testing.T) {
	req := require.New(t)
	password := "MyPassw0rdIsStr0ng!"

	hash, err := HashPassword(password)
	req.NoError(err)
	req.True(strings.HasPrefix(hash, "$argon2id$"))

	match, err := ComparePassword(password, hash)
	req.NoError(err)
	req.True(match)

	match, err = ComparePassword("WrongPassword", hash)
	req.NoError(err)
	req.False(match)

	_, err = ComparePassword(password, "not-a-hash")
	req.Error(err)
}

func TestRegistrationValidation(t *testing.T) {
	tests := []struct {
		name   string
		req    RegisterRequest
		fields map[string]string
	}{
		{"Valid request", RegisterRequest{"alice", "ComplexPass123!"}, nil},
		{"Username too short", RegisterRequest{"al", "ComplexPass123!"}, map[string]string{"username": "min"}},
		{"Username with spaces", RegisterRequest{"al ice", "ComplexPass123!"}, map[string]string{"username": "alphanum"}},
		{"Password too short", RegisterRequest{"alice", "Short1!"}, map[string]string{"password": "min"}},
		{"Missing digit", RegisterRequest{"alice", "NoDigitPass!"}, map[string]string{"password": "complexity"}},
		{"Missing special char", RegisterRequest{"alice", "NoSpecialChar123"}, map[string]string{"password": "complexity"}},
		{"Missing uppercase", RegisterRequest{"alice", "nouppercase123!"}, map[string]string{"password": "complexity"}},
		{"Password too long", RegisterRequest{"alice", strings.Repeat("a", 73)}, map[string]string{"password": "max"}},
		{"Both invalid", RegisterRequest{"", "x"}, map[string]string{"username": "required", "password": "min"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			err := ValidateRegister(tt.req)
			if tt.fields == nil {
				req.NoError(err)
				return
			}
			var verr *errors.ValidationError
			req.True(stderrors.As(err, &verr))
			req.Equal(tt.fields, verr.Fields)
			_, passwordFailed := tt.fields["password"]
			req.Equal(passwordFailed, stderrors.Is(err, errors.ErrInvalidPassword))
		})
	}
}

func TestTokenIssuer_RoundTrip(t *testing.T) {
	req := require.New(t)
	issuer := NewTokenIssuer("secret", time.Hour)

	token, err := issuer.Generate(42)
	req.NoError(err)

	id, err := issuer.Validate(token)
	req.NoError(err)
	req.Equal(domain.UserID(42), id)
}

func TestTokenIssuer_Rejects_Foreign_And_Expired_Tokens(t *testing.T) {
	req := require.New(t)
	issuer := NewTokenIssuer("secret", time.Minute)
	token, err := issuer.Generate(7)
	req.NoError(err)

	_, err = NewTokenIssuer("other-secret", time.Minute).Validate(token)
	req.Error(err)

	expired := NewTokenIssuer("secret", time.Minute)
	expired.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = expired.Validate(token)
	req.Error(err)
}

func TestAuthenticate(t *testing.T) {
	issuer := NewTokenIssuer("secret", time.Hour)
	var failures int
	onError := func(w http.ResponseWriter, _ *http.Request, err error) {
		require.ErrorIs(t, err, errors.ErrUnauthenticated)
		failures++
		w.WriteHeader(http.StatusUnauthorized)
	}
	handler := Authenticate(issuer, onError)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := CallerFrom(r.Context())
		require.True(t, ok)
		_, _ = w.Write([]byte(id.String()))
	}))

	t.Run("should inject the caller when the token is valid", func(t *testing.T) {
		req := require.New(t)
		token, err := issuer.Generate(5)
		req.NoError(err)
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, r)

		req.Equal(http.StatusOK, w.Code)
		req.Equal("5", w.Body.String())
	})

	t.Run("should reject missing and malformed headers", func(t *testing.T) {
		req := require.New(t)
		before := failures
		for _, header := range []string{"", "Bearer ", "Basic abc", "Bearer not.a.jwt"} {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			if header != "" {
				r.Header.Set("Authorization", header)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, r)
			req.Equal(http.StatusUnauthorized, w.Code)
		}
		req.Equal(before+4, failures)
	})
}

func TestCallerFrom_Without_Middleware(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	_, ok := CallerFrom(r.Context())
	require.False(t, ok)
}

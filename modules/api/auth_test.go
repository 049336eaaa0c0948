package api

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-secret"

func signToken(t *testing.T, secret, subject string, ttl time.Duration) string {
	t.Helper()
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return token
}

func TestTokenVerifier_Verify(t *testing.T) {
	verifier := NewTokenVerifier(testSecret)

	tests := []struct {
		name    string
		token   string
		want    string
		wantErr error
	}{
		{
			name:  "valid token",
			token: signToken(t, testSecret, "alice", time.Hour),
			want:  "alice",
		},
		{
			name:    "expired token",
			token:   signToken(t, testSecret, "alice", -time.Hour),
			wantErr: ErrExpiredToken,
		},
		{
			name:    "wrong secret",
			token:   signToken(t, "other-secret", "alice", time.Hour),
			wantErr: ErrInvalidToken,
		},
		{
			name:    "missing subject",
			token:   signToken(t, testSecret, "", time.Hour),
			wantErr: ErrInvalidToken,
		},
		{
			name:    "garbage",
			token:   "not-a-jwt",
			wantErr: ErrInvalidToken,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := verifier.Verify(tt.token)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Verify() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Verify() unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Verify() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAuthMiddleware(t *testing.T) {
	valid := signToken(t, testSecret, "alice", time.Hour)

	tests := []struct {
		name           string
		target         string
		authHeader     string
		expectedStatus int
		expectedBody   string
	}{
		{
			name:           "missing token",
			target:         "/ws",
			expectedStatus: http.StatusUnauthorized,
			expectedBody:   `"Token is required"`,
		},
		{
			name:           "invalid token",
			target:         "/ws?token=bogus",
			expectedStatus: http.StatusUnauthorized,
			expectedBody:   `"Invalid or expired token"`,
		},
		{
			name:           "valid query token",
			target:         "/ws?token=" + valid,
			expectedStatus: http.StatusOK,
			expectedBody:   "alice",
		},
		{
			name:           "valid bearer header",
			target:         "/ws",
			authHeader:     "Bearer " + valid,
			expectedStatus: http.StatusOK,
			expectedBody:   "alice",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New()
			app.Use(AuthMiddleware(NewTokenVerifier(testSecret)))
			app.Get("/ws", func(c *fiber.Ctx) error {
				userID, _ := c.Locals(identityKey).(string)
				return c.SendString(userID)
			})

			req := httptest.NewRequest(http.MethodGet, tt.target, nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}

			resp, err := app.Test(req)
			if err != nil {
				t.Fatalf("app.Test() error: %v", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != tt.expectedStatus {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.expectedStatus)
			}
			body, _ := io.ReadAll(resp.Body)
			if !strings.Contains(string(body), tt.expectedBody) {
				t.Errorf("body = %s, want to contain %s", body, tt.expectedBody)
			}
		})
	}
}

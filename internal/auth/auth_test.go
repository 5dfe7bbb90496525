package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sugils/Email-tracker-Backend/internal/config"
)

func testManager() *Manager {
	return NewManager(nil, config.JWTConfig{Secret: "test-secret", ExpiresHours: 1})
}

func TestIssueAndParseToken(t *testing.T) {
	m := testManager()
	userID := uuid.New()

	token, err := m.IssueToken(userID)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	parsed, err := m.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, userID, parsed)
}

func TestParseTokenRejectsWrongSecret(t *testing.T) {
	m := testManager()
	other := NewManager(nil, config.JWTConfig{Secret: "different", ExpiresHours: 1})

	token, err := other.IssueToken(uuid.New())
	require.NoError(t, err)

	_, err = m.ParseToken(token)
	assert.Error(t, err)
}

func TestParseTokenRejectsGarbage(t *testing.T) {
	m := testManager()
	_, err := m.ParseToken("not.a.token")
	assert.Error(t, err)
}

func TestMiddleware(t *testing.T) {
	m := testManager()
	userID := uuid.New()
	token, err := m.IssueToken(userID)
	require.NoError(t, err)

	var gotID uuid.UUID
	var called bool
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		gotID, _ = UserIDFromContext(r.Context())
	})

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantCalled bool
	}{
		{"valid token", "Bearer " + token, http.StatusOK, true},
		{"missing header", "", http.StatusUnauthorized, false},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized, false},
		{"bad token", "Bearer garbage", http.StatusUnauthorized, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called = false
			req := httptest.NewRequest("GET", "/api/campaigns", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			m.Middleware(next).ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantCalled, called)
			if tt.wantCalled {
				assert.Equal(t, userID, gotID)
			}
		})
	}
}

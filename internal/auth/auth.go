package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/sugils/Email-tracker-Backend/internal/config"
)

type contextKey string

const userIDKey contextKey = "auth.userID"

// Manager handles registration, login and bearer-token validation
type Manager struct {
	store *Store
	cfg   config.JWTConfig
}

// NewManager creates an authentication manager
func NewManager(store *Store, cfg config.JWTConfig) *Manager {
	return &Manager{store: store, cfg: cfg}
}

// Register creates a new account with a bcrypt-hashed password
func (m *Manager) Register(ctx context.Context, email, password, fullName string) (*User, error) {
	existing, err := m.store.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("email already registered")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	u := &User{Email: email, PasswordHash: string(hash), FullName: fullName}
	if err := m.store.CreateUser(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Login verifies credentials and issues a signed token
func (m *Manager) Login(ctx context.Context, email, password string) (*User, string, error) {
	u, err := m.store.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, "", err
	}
	if u == nil {
		return nil, "", fmt.Errorf("invalid email or password")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, "", fmt.Errorf("invalid email or password")
	}

	token, err := m.IssueToken(u.ID)
	if err != nil {
		return nil, "", err
	}
	return u, token, nil
}

// IssueToken signs a token with the user id as subject
func (m *Manager) IssueToken(userID uuid.UUID) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   userID.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(m.cfg.Expiry())),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(m.cfg.Secret))
}

// ParseToken validates a token and returns the user id it carries
func (m *Manager) ParseToken(tokenString string) (uuid.UUID, error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{},
		func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
			}
			return []byte(m.cfg.Secret), nil
		})
	if err != nil {
		return uuid.Nil, err
	}
	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || !token.Valid {
		return uuid.Nil, fmt.Errorf("invalid token")
	}
	return uuid.Parse(claims.Subject)
}

// Middleware validates the Authorization header and injects the user id
// into the request context
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			unauthorized(w)
			return
		}

		userID, err := m.ParseToken(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			unauthorized(w)
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"error": "unauthorized"})
}

// UserIDFromContext returns the authenticated user id set by Middleware
func UserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(userIDKey).(uuid.UUID)
	return id, ok
}

// ---- HTTP handlers ----

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// HandleRegister creates an account and returns it with a token
func (m *Manager) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		respondError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	u, err := m.Register(r.Context(), req.Email, req.Password, req.FullName)
	if err != nil {
		if strings.Contains(err.Error(), "already registered") {
			respondError(w, http.StatusConflict, err.Error())
			return
		}
		log.Printf("[Auth] register failed for %s: %v", req.Email, err)
		respondError(w, http.StatusInternalServerError, "registration failed")
		return
	}

	token, err := m.IssueToken(u.ID)
	if err != nil {
		log.Printf("[Auth] token issue failed for %s: %v", u.ID, err)
		respondError(w, http.StatusInternalServerError, "registration failed")
		return
	}

	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"user":         u,
		"access_token": token,
	})
}

// HandleLogin verifies credentials and returns a token
func (m *Manager) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	u, token, err := m.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		respondError(w, http.StatusUnauthorized, "invalid email or password")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"user":         u,
		"access_token": token,
	})
}

// HandleMe returns the authenticated user's profile
func (m *Manager) HandleMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		unauthorized(w)
		return
	}

	u, err := m.store.GetUser(r.Context(), userID)
	if err != nil || u == nil {
		unauthorized(w)
		return
	}
	respondJSON(w, http.StatusOK, u)
}

func respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}

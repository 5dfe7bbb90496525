package auth

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// User represents an account that owns campaigns, recipients and groups
type User struct {
	ID           uuid.UUID `json:"user_id" db:"user_id"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	FullName     string    `json:"full_name" db:"full_name"`
	IsActive     bool      `json:"is_active" db:"is_active"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// Store provides database operations for users
type Store struct {
	db *sql.DB
}

// NewStore creates a new user store
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// CreateUser inserts a new account
func (s *Store) CreateUser(ctx context.Context, u *User) error {
	u.ID = uuid.New()
	u.IsActive = true
	u.CreatedAt = time.Now()
	u.UpdatedAt = time.Now()

	query := `INSERT INTO users (user_id, email, password_hash, full_name, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := s.db.ExecContext(ctx, query, u.ID, u.Email, u.PasswordHash, u.FullName,
		u.IsActive, u.CreatedAt, u.UpdatedAt)
	return err
}

// GetUserByEmail retrieves an active user by email
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	query := `SELECT user_id, email, password_hash, full_name, is_active, created_at, updated_at
		FROM users WHERE email = $1 AND is_active = TRUE`

	u := &User{}
	err := s.db.QueryRowContext(ctx, query, email).Scan(
		&u.ID, &u.Email, &u.PasswordHash, &u.FullName, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return u, err
}

// GetUser retrieves an active user by id
func (s *Store) GetUser(ctx context.Context, userID uuid.UUID) (*User, error) {
	query := `SELECT user_id, email, password_hash, full_name, is_active, created_at, updated_at
		FROM users WHERE user_id = $1 AND is_active = TRUE`

	u := &User{}
	err := s.db.QueryRowContext(ctx, query, userID).Scan(
		&u.ID, &u.Email, &u.PasswordHash, &u.FullName, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return u, err
}

// GetUserEmail resolves just the email for an account, for test sends
func (s *Store) GetUserEmail(ctx context.Context, userID uuid.UUID) (string, error) {
	var email string
	err := s.db.QueryRowContext(ctx,
		`SELECT email FROM users WHERE user_id = $1 AND is_active = TRUE`, userID).Scan(&email)
	return email, err
}

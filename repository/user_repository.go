package repository

import (
	"database/sql"
	"fmt"
	"time"

	"Phonolib/db"
	"Phonolib/model"

	"github.com/google/uuid"
)

// UserRepository defines the interface for user record operations.
type UserRepository interface {
	EnsureUser(user *model.User) error
	GetUserByID(id uuid.UUID) (*model.User, error)
}

type sqlUserRepository struct {
	DB *db.Database
}

// NewUserRepository creates a new instance of sqlUserRepository.
func NewUserRepository(database *db.Database) UserRepository {
	return &sqlUserRepository{DB: database}
}

// EnsureUser inserts the user record if it does not exist yet.
func (r *sqlUserRepository) EnsureUser(user *model.User) error {
	existing, err := r.GetUserByID(user.ID)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}
	now := nowUnix()
	_, err = r.DB.Exec(
		`INSERT INTO users (id, name, email, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		user.ID, user.Name, user.Email, now, now)
	if err != nil {
		return fmt.Errorf("failed to execute EnsureUser: %w", err)
	}
	return nil
}

// GetUserByID retrieves a user by ID.
func (r *sqlUserRepository) GetUserByID(id uuid.UUID) (*model.User, error) {
	var (
		user                 model.User
		createdAt, updatedAt int64
	)
	err := r.DB.QueryRow(`SELECT id, name, email, created_at, updated_at FROM users WHERE id = ?`, id).
		Scan(&user.ID, &user.Name, &user.Email, &createdAt, &updatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // User not found
		}
		return nil, fmt.Errorf("failed to scan user by ID %s: %w", id, err)
	}
	user.CreatedAt = time.Unix(createdAt, 0).UTC()
	user.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	return &user, nil
}

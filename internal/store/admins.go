package store

import (
	"context"
	"database/sql"
	"strings"

	"github.com/ferramentastecnologia/rosamexicano-reservas/internal/models"
	"github.com/ferramentastecnologia/rosamexicano-reservas/internal/util"
)

// CreateAdmin inserts a staff account. Email is stored lowercase and is
// unique.
func (s *Store) CreateAdmin(ctx context.Context, a *models.Admin) error {
	query := `
		INSERT INTO admins (id, email, password, name, role, permissions, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at`

	err := s.db.QueryRowxContext(ctx, query,
		a.ID, strings.ToLower(a.Email), a.Password, a.Name, a.Role, a.Permissions, a.Active).
		Scan(&a.CreatedAt, &a.UpdatedAt)
	if err != nil && isUniqueViolation(err) {
		return util.Conflict("an account with this email already exists")
	}
	return err
}

// GetAdminByEmail retrieves an account by email (case-insensitive).
func (s *Store) GetAdminByEmail(ctx context.Context, email string) (*models.Admin, error) {
	var a models.Admin
	err := s.db.GetContext(ctx, &a, "SELECT * FROM admins WHERE email = $1", strings.ToLower(email))
	if err == sql.ErrNoRows {
		return nil, util.NotFound("admin not found")
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// GetAdminByID retrieves an account by id.
func (s *Store) GetAdminByID(ctx context.Context, id string) (*models.Admin, error) {
	var a models.Admin
	err := s.db.GetContext(ctx, &a, "SELECT * FROM admins WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, util.NotFound("admin not found")
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

package repository

import (
	"context"

	"github.com/Clark-Hu/movie-scores/internal/domain"
)

// UsersRepository reads externally provisioned users.
type UsersRepository struct {
	db dbtx
}

// GetByUsername returns the user with the given username or ErrNotFound.
func (r *UsersRepository) GetByUsername(ctx context.Context, username string) (domain.User, error) {
	const query = `SELECT id::text, username, created_at FROM users WHERE username = $1`
	var user domain.User
	if err := r.db.QueryRow(ctx, query, username).Scan(&user.ID, &user.Username, &user.CreatedAt); err != nil {
		return domain.User{}, classify(err)
	}
	return user, nil
}

package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/Clark-Hu/movie-scores/internal/domain"
)

// UserLookup finds provisioned users by username.
type UserLookup interface {
	GetByUsername(ctx context.Context, username string) (domain.User, error)
}

// Resolver maps the authenticated username in ctx onto a stored user.
type Resolver struct {
	Users UserLookup
}

// Authenticated returns the acting user or domain.ErrIdentityUnresolvable.
func (r Resolver) Authenticated(ctx context.Context) (domain.User, error) {
	username, ok := UsernameFromContext(ctx)
	if !ok {
		return domain.User{}, fmt.Errorf("%w: no authenticated subject", domain.ErrIdentityUnresolvable)
	}
	user, err := r.Users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.User{}, fmt.Errorf("%w: unknown user %q", domain.ErrIdentityUnresolvable, username)
		}
		return domain.User{}, fmt.Errorf("resolve user %q: %w", username, err)
	}
	return user, nil
}

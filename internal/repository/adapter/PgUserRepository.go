package adapter

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	port "github.com/aaryandewan/messaging-server/internal/repository/port"
)

type PgUserRepository struct {
	pool *pgxpool.Pool
}

func NewPgUserRepository(pool *pgxpool.Pool) *PgUserRepository {
	return &PgUserRepository{pool: pool}
}

var _ port.UserRepository = (*PgUserRepository)(nil)

func (r *PgUserRepository) FindByID(ctx context.Context, id string) (*port.User, error) {
	// A malformed id can never match a row; answering not-found here
	// avoids a cast error from the ::uuid parameter below.
	if uuid.Validate(id) != nil {
		return nil, port.ErrNotFound
	}
	if r == nil || r.pool == nil {
		return nil, errors.New("PgUserRepository: nil pool")
	}
	var u port.User
	err := r.pool.QueryRow(ctx,
		`SELECT id::text, name FROM app_user WHERE id = $1::uuid`,
		id,
	).Scan(&u.ID, &u.Name)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, port.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

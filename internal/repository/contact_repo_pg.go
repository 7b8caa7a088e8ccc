package repository

import (
	"context"

	"github.com/Domenick1991/flightbooking/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ContactRepository interface {
	Create(ctx context.Context, msg *domain.ContactMessage) error
}

type PGContactRepository struct {
	db *pgxpool.Pool
}

func NewContactRepository(db *pgxpool.Pool) ContactRepository {
	return &PGContactRepository{db: db}
}

func (r *PGContactRepository) Create(ctx context.Context, m *domain.ContactMessage) error {
	return r.db.QueryRow(ctx, `INSERT INTO contacts (name, email, subject, message) VALUES ($1, $2, NULLIF($3, ''), $4)
		RETURNING id, created_at`, m.Name, m.Email, m.Subject, m.Message).Scan(&m.ID, &m.CreatedAt)
}

var _ ContactRepository = (*PGContactRepository)(nil)

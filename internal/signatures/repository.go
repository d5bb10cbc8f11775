package signatures

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type Repository interface {
	CreateSignature(ctx context.Context, sig *Signature) error
	GetSignatureByID(ctx context.Context, id uuid.UUID) (*Signature, error)
	ListSignatures(ctx context.Context, userID uuid.UUID) ([]Signature, error)
	DeleteSignature(ctx context.Context, id uuid.UUID) error
	ClearDefault(ctx context.Context, userID uuid.UUID) error
	SetDefault(ctx context.Context, id uuid.UUID) error
}

type postgresRepository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) CreateSignature(ctx context.Context, sig *Signature) error {
	query := `
		INSERT INTO signatures (
			id, user_id, image_url, image_key, is_default, created_at
		) VALUES (
			:id, :user_id, :image_url, :image_key, :is_default, :created_at
		)`
	_, err := r.db.NamedExecContext(ctx, query, sig)
	return err
}

func (r *postgresRepository) GetSignatureByID(ctx context.Context, id uuid.UUID) (*Signature, error) {
	var sig Signature
	err := r.db.GetContext(ctx, &sig, "SELECT * FROM signatures WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return &sig, err
}

func (r *postgresRepository) ListSignatures(ctx context.Context, userID uuid.UUID) ([]Signature, error) {
	var sigs []Signature
	err := r.db.SelectContext(ctx, &sigs,
		"SELECT * FROM signatures WHERE user_id = $1 ORDER BY created_at DESC", userID)
	return sigs, err
}

func (r *postgresRepository) DeleteSignature(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM signatures WHERE id = $1", id)
	return err
}

func (r *postgresRepository) ClearDefault(ctx context.Context, userID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE signatures SET is_default = false WHERE user_id = $1 AND is_default = true", userID)
	return err
}

func (r *postgresRepository) SetDefault(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, "UPDATE signatures SET is_default = true WHERE id = $1", id)
	return err
}

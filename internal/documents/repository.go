package documents

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type Repository interface {
	CreateDocument(ctx context.Context, doc *Document) error
	GetDocumentByID(ctx context.Context, id uuid.UUID) (*Document, error)
	ListDocuments(ctx context.Context, ownerID uuid.UUID, status *DocumentStatus) ([]Document, error)
	UpdateDocument(ctx context.Context, doc *Document) error
	UpdateDocumentStatus(ctx context.Context, id uuid.UUID, status DocumentStatus) error
	DeleteDocument(ctx context.Context, id uuid.UUID) error
	GetOwner(ctx context.Context, documentID uuid.UUID) (*Owner, error)

	CreateField(ctx context.Context, field *Field) error
	GetFieldByID(ctx context.Context, id uuid.UUID) (*Field, error)
	ListFields(ctx context.Context, documentID uuid.UUID) ([]Field, error)
	UpdateField(ctx context.Context, field *Field) error
	SetFieldValue(ctx context.Context, id uuid.UUID, value *string) error
	DeleteField(ctx context.Context, id uuid.UUID) error
	CountUnfilledRequiredFields(ctx context.Context, documentID uuid.UUID) (int, error)

	CreateSigner(ctx context.Context, signer *Signer) error
	GetSignerByID(ctx context.Context, id uuid.UUID) (*Signer, error)
	GetSignerByEmail(ctx context.Context, documentID uuid.UUID, email string) (*Signer, error)
	ListSigners(ctx context.Context, documentID uuid.UUID) ([]Signer, error)
	UpdateSignerStatus(ctx context.Context, id uuid.UUID, status SignerStatus, signedAt *time.Time) error
	DeleteSigner(ctx context.Context, id uuid.UUID) error

	FindShareLink(ctx context.Context, documentID uuid.UUID, signerID *uuid.UUID) (*ShareLink, error)
	FindShareLinkByToken(ctx context.Context, token string) (*ShareLink, error)
	CreateShareLink(ctx context.Context, link *ShareLink) error
	ExtendShareLink(ctx context.Context, id uuid.UUID, expiresAt time.Time) error

	AppendActivity(ctx context.Context, activity *Activity) error
	ListActivities(ctx context.Context, documentID uuid.UUID) ([]Activity, error)
}

type postgresRepository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) CreateDocument(ctx context.Context, doc *Document) error {
	query := `
		INSERT INTO documents (
			id, owner_id, title, description, file_url, file_key, status, created_at, updated_at
		) VALUES (
			:id, :owner_id, :title, :description, :file_url, :file_key, :status, :created_at, :updated_at
		)`
	_, err := r.db.NamedExecContext(ctx, query, doc)
	return err
}

func (r *postgresRepository) GetDocumentByID(ctx context.Context, id uuid.UUID) (*Document, error) {
	var doc Document
	err := r.db.GetContext(ctx, &doc, "SELECT * FROM documents WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return &doc, err
}

func (r *postgresRepository) ListDocuments(ctx context.Context, ownerID uuid.UUID, status *DocumentStatus) ([]Document, error) {
	var docs []Document
	query := "SELECT * FROM documents WHERE owner_id = $1"
	args := []interface{}{ownerID}

	if status != nil {
		query += fmt.Sprintf(" AND status = $%d", len(args)+1)
		args = append(args, *status)
	}
	query += " ORDER BY updated_at DESC"

	err := r.db.SelectContext(ctx, &docs, query, args...)
	return docs, err
}

func (r *postgresRepository) UpdateDocument(ctx context.Context, doc *Document) error {
	doc.UpdatedAt = time.Now()
	query := `
		UPDATE documents SET
			title = :title,
			description = :description,
			file_url = :file_url,
			file_key = :file_key,
			status = :status,
			updated_at = :updated_at
		WHERE id = :id`
	_, err := r.db.NamedExecContext(ctx, query, doc)
	return err
}

func (r *postgresRepository) UpdateDocumentStatus(ctx context.Context, id uuid.UUID, status DocumentStatus) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE documents SET status = $1, updated_at = now() WHERE id = $2", status, id)
	return err
}

// DeleteDocument removes the document together with its fields, signers,
// share links and activity rows in a single transaction.
func (r *postgresRepository) DeleteDocument(ctx context.Context, id uuid.UUID) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, query := range []string{
		"DELETE FROM document_fields WHERE document_id = $1",
		"DELETE FROM document_signers WHERE document_id = $1",
		"DELETE FROM document_share_links WHERE document_id = $1",
		"DELETE FROM document_activities WHERE document_id = $1",
		"DELETE FROM documents WHERE id = $1",
	} {
		if _, err := tx.ExecContext(ctx, query, id); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (r *postgresRepository) GetOwner(ctx context.Context, documentID uuid.UUID) (*Owner, error) {
	var owner Owner
	err := r.db.GetContext(ctx, &owner, `
		SELECT u.id, u.name, u.email
		FROM users u
		JOIN documents d ON d.owner_id = u.id
		WHERE d.id = $1`, documentID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return &owner, err
}

func (r *postgresRepository) CreateField(ctx context.Context, field *Field) error {
	query := `
		INSERT INTO document_fields (
			id, document_id, type, page, x, y, width, height, value, required, signer_id, created_at
		) VALUES (
			:id, :document_id, :type, :page, :x, :y, :width, :height, :value, :required, :signer_id, :created_at
		)`
	_, err := r.db.NamedExecContext(ctx, query, field)
	return err
}

func (r *postgresRepository) GetFieldByID(ctx context.Context, id uuid.UUID) (*Field, error) {
	var field Field
	err := r.db.GetContext(ctx, &field, "SELECT * FROM document_fields WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return &field, err
}

func (r *postgresRepository) ListFields(ctx context.Context, documentID uuid.UUID) ([]Field, error) {
	var fields []Field
	err := r.db.SelectContext(ctx, &fields,
		"SELECT * FROM document_fields WHERE document_id = $1 ORDER BY page, created_at", documentID)
	return fields, err
}

func (r *postgresRepository) UpdateField(ctx context.Context, field *Field) error {
	query := `
		UPDATE document_fields SET
			type = :type,
			page = :page,
			x = :x,
			y = :y,
			width = :width,
			height = :height,
			required = :required,
			signer_id = :signer_id
		WHERE id = :id`
	_, err := r.db.NamedExecContext(ctx, query, field)
	return err
}

func (r *postgresRepository) SetFieldValue(ctx context.Context, id uuid.UUID, value *string) error {
	_, err := r.db.ExecContext(ctx, "UPDATE document_fields SET value = $1 WHERE id = $2", value, id)
	return err
}

func (r *postgresRepository) DeleteField(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM document_fields WHERE id = $1", id)
	return err
}

func (r *postgresRepository) CountUnfilledRequiredFields(ctx context.Context, documentID uuid.UUID) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count,
		"SELECT COUNT(*) FROM document_fields WHERE document_id = $1 AND required = true AND value IS NULL",
		documentID)
	return count, err
}

func (r *postgresRepository) CreateSigner(ctx context.Context, signer *Signer) error {
	query := `
		INSERT INTO document_signers (
			id, document_id, name, email, status, signing_order, signed_at, created_at
		) VALUES (
			:id, :document_id, :name, :email, :status, :signing_order, :signed_at, :created_at
		)`
	_, err := r.db.NamedExecContext(ctx, query, signer)
	return err
}

func (r *postgresRepository) GetSignerByID(ctx context.Context, id uuid.UUID) (*Signer, error) {
	var signer Signer
	err := r.db.GetContext(ctx, &signer, "SELECT * FROM document_signers WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return &signer, err
}

func (r *postgresRepository) GetSignerByEmail(ctx context.Context, documentID uuid.UUID, email string) (*Signer, error) {
	var signer Signer
	err := r.db.GetContext(ctx, &signer,
		"SELECT * FROM document_signers WHERE document_id = $1 AND email = $2", documentID, email)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return &signer, err
}

// ListSigners returns signers ordered by tier then creation time. Rows
// without an order sort first, consistent with null-means-first grouping.
func (r *postgresRepository) ListSigners(ctx context.Context, documentID uuid.UUID) ([]Signer, error) {
	var signers []Signer
	err := r.db.SelectContext(ctx, &signers, `
		SELECT * FROM document_signers
		WHERE document_id = $1
		ORDER BY signing_order ASC NULLS FIRST, created_at ASC`, documentID)
	return signers, err
}

func (r *postgresRepository) UpdateSignerStatus(ctx context.Context, id uuid.UUID, status SignerStatus, signedAt *time.Time) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE document_signers SET status = $1, signed_at = $2 WHERE id = $3", status, signedAt, id)
	return err
}

func (r *postgresRepository) DeleteSigner(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM document_signers WHERE id = $1", id)
	return err
}

func (r *postgresRepository) FindShareLink(ctx context.Context, documentID uuid.UUID, signerID *uuid.UUID) (*ShareLink, error) {
	var link ShareLink
	var err error
	if signerID != nil {
		err = r.db.GetContext(ctx, &link,
			"SELECT * FROM document_share_links WHERE document_id = $1 AND signer_id = $2",
			documentID, *signerID)
	} else {
		err = r.db.GetContext(ctx, &link,
			"SELECT * FROM document_share_links WHERE document_id = $1 AND signer_id IS NULL",
			documentID)
	}
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return &link, err
}

func (r *postgresRepository) FindShareLinkByToken(ctx context.Context, token string) (*ShareLink, error) {
	var link ShareLink
	err := r.db.GetContext(ctx, &link, "SELECT * FROM document_share_links WHERE token = $1", token)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return &link, err
}

func (r *postgresRepository) CreateShareLink(ctx context.Context, link *ShareLink) error {
	query := `
		INSERT INTO document_share_links (
			id, document_id, signer_id, token, expires_at, created_at
		) VALUES (
			:id, :document_id, :signer_id, :token, :expires_at, :created_at
		)`
	_, err := r.db.NamedExecContext(ctx, query, link)
	return err
}

func (r *postgresRepository) ExtendShareLink(ctx context.Context, id uuid.UUID, expiresAt time.Time) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE document_share_links SET expires_at = $1 WHERE id = $2", expiresAt, id)
	return err
}

func (r *postgresRepository) AppendActivity(ctx context.Context, activity *Activity) error {
	query := `
		INSERT INTO document_activities (
			id, document_id, action, details, actor_id, ip_address, user_agent, created_at
		) VALUES (
			:id, :document_id, :action, :details, :actor_id, :ip_address, :user_agent, :created_at
		)`
	_, err := r.db.NamedExecContext(ctx, query, activity)
	return err
}

func (r *postgresRepository) ListActivities(ctx context.Context, documentID uuid.UUID) ([]Activity, error) {
	var activities []Activity
	err := r.db.SelectContext(ctx, &activities,
		"SELECT * FROM document_activities WHERE document_id = $1 ORDER BY created_at DESC", documentID)
	return activities, err
}

package documents

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/inklessflow/inkless-backend/pkg/workflows"
)

// Actor identifies who is making a request: an authenticated user, an
// external signer holding a share token, or both.
type Actor struct {
	UserID *uuid.UUID
	Email  string
}

type CreateDocumentRequest struct {
	Title       string  `json:"title" binding:"required"`
	Description *string `json:"description"`
	FileURL     string  `json:"fileUrl" binding:"required"`
	FileKey     string  `json:"fileKey" binding:"required"`
}

type UpdateDocumentRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
}

type FieldRequest struct {
	Type     FieldType  `json:"type" binding:"required"`
	Page     int        `json:"page" binding:"required,min=1"`
	X        float64    `json:"x"`
	Y        float64    `json:"y"`
	Width    float64    `json:"width"`
	Height   float64    `json:"height"`
	Required bool       `json:"required"`
	SignerID *uuid.UUID `json:"signerId"`
}

type AddSignerRequest struct {
	Name  string `json:"name" binding:"required"`
	Email string `json:"email" binding:"required,email"`
	Order *int   `json:"order" binding:"omitempty,min=1"`
}

type FieldValue struct {
	ID    uuid.UUID `json:"id" binding:"required"`
	Value string    `json:"value"`
}

type SignRequest struct {
	Fields     []FieldValue
	Actor      Actor
	ShareToken string
	Meta       ActivityMeta
}

type SignResult struct {
	Outcome ProgressOutcome `json:"status"`
	Fields  []Field         `json:"fields,omitempty"`
}

type Service interface {
	CreateDocument(ctx context.Context, ownerID uuid.UUID, req CreateDocumentRequest) (*Document, error)
	GetDocument(ctx context.Context, id uuid.UUID, actor Actor, shareToken string) (*Document, error)
	ListDocuments(ctx context.Context, ownerID uuid.UUID, status *DocumentStatus) ([]Document, error)
	UpdateDocument(ctx context.Context, id, ownerID uuid.UUID, req UpdateDocumentRequest) (*Document, error)
	DeleteDocument(ctx context.Context, id, ownerID uuid.UUID) error
	CancelDocument(ctx context.Context, id, ownerID uuid.UUID) error

	CreateField(ctx context.Context, documentID, ownerID uuid.UUID, req FieldRequest) (*Field, error)
	UpdateFieldPlacement(ctx context.Context, documentID, fieldID, ownerID uuid.UUID, req FieldRequest) (*Field, error)
	DeleteField(ctx context.Context, documentID, fieldID, ownerID uuid.UUID) error

	AddSigner(ctx context.Context, documentID, ownerID uuid.UUID, req AddSignerRequest) (*Signer, error)
	ListSigners(ctx context.Context, documentID uuid.UUID, actor Actor) ([]Signer, error)
	RemoveSigner(ctx context.Context, documentID, signerID, ownerID uuid.UUID) error
	RemindSigner(ctx context.Context, documentID, signerID, ownerID uuid.UUID) error

	StartWorkflow(ctx context.Context, documentID, ownerID uuid.UUID, customMessage string) error
	WorkflowStatus(ctx context.Context, documentID, ownerID uuid.UUID) (*WorkflowStatus, error)
	SignDocument(ctx context.Context, documentID uuid.UUID, req SignRequest) (*SignResult, error)
	ShareDocument(ctx context.Context, documentID, ownerID uuid.UUID) (*IssuedLink, error)
	ListActivities(ctx context.Context, documentID, ownerID uuid.UUID) ([]Activity, error)
}

type documentService struct {
	repo   Repository
	engine *WorkflowEngine
	links  *LinkIssuer
	sm     *workflows.StateMachine
	logger *zap.Logger
	now    func() time.Time
}

func NewService(repo Repository, engine *WorkflowEngine, links *LinkIssuer, logger *zap.Logger) Service {
	return &documentService{
		repo:   repo,
		engine: engine,
		links:  links,
		sm:     workflows.NewStateMachine(),
		logger: logger.With(zap.String("service", "documents")),
		now:    time.Now,
	}
}

func (s *documentService) CreateDocument(ctx context.Context, ownerID uuid.UUID, req CreateDocumentRequest) (*Document, error) {
	now := s.now()
	doc := &Document{
		ID:          uuid.New(),
		OwnerID:     ownerID,
		Title:       req.Title,
		Description: req.Description,
		FileURL:     req.FileURL,
		FileKey:     req.FileKey,
		Status:      StatusDraft,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.CreateDocument(ctx, doc); err != nil {
		return nil, fmt.Errorf("create document: %w", err)
	}
	return doc, nil
}

func (s *documentService) GetDocument(ctx context.Context, id uuid.UUID, actor Actor, shareToken string) (*Document, error) {
	doc, err := s.repo.GetDocumentByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, ErrDocumentNotFound
	}

	signers, err := s.repo.ListSigners(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.checkAccess(ctx, doc, signers, actor, shareToken); err != nil {
		return nil, err
	}

	fields, err := s.repo.ListFields(ctx, id)
	if err != nil {
		return nil, err
	}
	doc.Signers = signers
	doc.Fields = fields
	return doc, nil
}

func (s *documentService) ListDocuments(ctx context.Context, ownerID uuid.UUID, status *DocumentStatus) ([]Document, error) {
	return s.repo.ListDocuments(ctx, ownerID, status)
}

func (s *documentService) UpdateDocument(ctx context.Context, id, ownerID uuid.UUID, req UpdateDocumentRequest) (*Document, error) {
	doc, err := s.ownedDocument(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}
	if req.Title != nil {
		doc.Title = *req.Title
	}
	if req.Description != nil {
		doc.Description = req.Description
	}
	if err := s.repo.UpdateDocument(ctx, doc); err != nil {
		return nil, fmt.Errorf("update document: %w", err)
	}
	return doc, nil
}

func (s *documentService) DeleteDocument(ctx context.Context, id, ownerID uuid.UUID) error {
	if _, err := s.ownedDocument(ctx, id, ownerID); err != nil {
		return err
	}
	return s.repo.DeleteDocument(ctx, id)
}

func (s *documentService) CancelDocument(ctx context.Context, id, ownerID uuid.UUID) error {
	doc, err := s.ownedDocument(ctx, id, ownerID)
	if err != nil {
		return err
	}
	if !s.sm.CanTransition(string(doc.Status), string(StatusCancelled)) {
		return ErrWorkflowClosed
	}
	if err := s.repo.UpdateDocumentStatus(ctx, id, StatusCancelled); err != nil {
		return fmt.Errorf("cancel document: %w", err)
	}
	return s.appendActivity(ctx, id, ActionDocumentCancelled,
		"Document cancelled by owner", &ownerID, ActivityMeta{})
}

func (s *documentService) CreateField(ctx context.Context, documentID, ownerID uuid.UUID, req FieldRequest) (*Field, error) {
	if _, err := s.ownedDocument(ctx, documentID, ownerID); err != nil {
		return nil, err
	}
	if err := validateFieldGeometry(req); err != nil {
		return nil, err
	}
	field := &Field{
		ID:         uuid.New(),
		DocumentID: documentID,
		Type:       req.Type,
		Page:       req.Page,
		X:          req.X,
		Y:          req.Y,
		Width:      req.Width,
		Height:     req.Height,
		Required:   req.Required,
		SignerID:   req.SignerID,
		CreatedAt:  s.now(),
	}
	if err := s.repo.CreateField(ctx, field); err != nil {
		return nil, fmt.Errorf("create field: %w", err)
	}
	return field, nil
}

func (s *documentService) UpdateFieldPlacement(ctx context.Context, documentID, fieldID, ownerID uuid.UUID, req FieldRequest) (*Field, error) {
	if _, err := s.ownedDocument(ctx, documentID, ownerID); err != nil {
		return nil, err
	}
	if err := validateFieldGeometry(req); err != nil {
		return nil, err
	}
	field, err := s.repo.GetFieldByID(ctx, fieldID)
	if err != nil {
		return nil, err
	}
	if field == nil || field.DocumentID != documentID {
		return nil, ErrFieldNotFound
	}
	field.Type = req.Type
	field.Page = req.Page
	field.X = req.X
	field.Y = req.Y
	field.Width = req.Width
	field.Height = req.Height
	field.Required = req.Required
	field.SignerID = req.SignerID
	if err := s.repo.UpdateField(ctx, field); err != nil {
		return nil, fmt.Errorf("update field: %w", err)
	}
	return field, nil
}

func (s *documentService) DeleteField(ctx context.Context, documentID, fieldID, ownerID uuid.UUID) error {
	if _, err := s.ownedDocument(ctx, documentID, ownerID); err != nil {
		return err
	}
	field, err := s.repo.GetFieldByID(ctx, fieldID)
	if err != nil {
		return err
	}
	if field == nil || field.DocumentID != documentID {
		return ErrFieldNotFound
	}
	return s.repo.DeleteField(ctx, fieldID)
}

func (s *documentService) AddSigner(ctx context.Context, documentID, ownerID uuid.UUID, req AddSignerRequest) (*Signer, error) {
	if _, err := s.ownedDocument(ctx, documentID, ownerID); err != nil {
		return nil, err
	}

	existing, err := s.repo.GetSignerByEmail(ctx, documentID, req.Email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrSignerExists
	}

	signer := &Signer{
		ID:         uuid.New(),
		DocumentID: documentID,
		Name:       req.Name,
		Email:      req.Email,
		Status:     SignerPending,
		Order:      req.Order,
		CreatedAt:  s.now(),
	}
	if err := s.repo.CreateSigner(ctx, signer); err != nil {
		return nil, fmt.Errorf("create signer: %w", err)
	}

	details := fmt.Sprintf("Added %s (%s) as a signer", req.Name, req.Email)
	if err := s.appendActivity(ctx, documentID, ActionSignerAdded, details, &ownerID, ActivityMeta{}); err != nil {
		return nil, err
	}
	return signer, nil
}

func (s *documentService) ListSigners(ctx context.Context, documentID uuid.UUID, actor Actor) ([]Signer, error) {
	doc, err := s.repo.GetDocumentByID(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, ErrDocumentNotFound
	}
	signers, err := s.repo.ListSigners(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if err := s.checkAccess(ctx, doc, signers, actor, ""); err != nil {
		return nil, err
	}
	return signers, nil
}

// RemoveSigner deletes a pending signer. Signers who have already signed
// are immutable audit records.
func (s *documentService) RemoveSigner(ctx context.Context, documentID, signerID, ownerID uuid.UUID) error {
	if _, err := s.ownedDocument(ctx, documentID, ownerID); err != nil {
		return err
	}
	signer, err := s.repo.GetSignerByID(ctx, signerID)
	if err != nil {
		return err
	}
	if signer == nil || signer.DocumentID != documentID {
		return ErrSignerNotFound
	}
	if signer.Status == SignerSigned {
		return ErrSignerImmutable
	}
	if err := s.repo.DeleteSigner(ctx, signerID); err != nil {
		return fmt.Errorf("delete signer: %w", err)
	}

	details := fmt.Sprintf("Removed %s (%s) as a signer", signer.Name, signer.Email)
	return s.appendActivity(ctx, documentID, ActionSignerRemoved, details, &ownerID, ActivityMeta{})
}

func (s *documentService) RemindSigner(ctx context.Context, documentID, signerID, ownerID uuid.UUID) error {
	if _, err := s.ownedDocument(ctx, documentID, ownerID); err != nil {
		return err
	}
	return s.engine.SendReminder(ctx, documentID, signerID, ownerID)
}

func (s *documentService) StartWorkflow(ctx context.Context, documentID, ownerID uuid.UUID, customMessage string) error {
	if _, err := s.ownedDocument(ctx, documentID, ownerID); err != nil {
		return err
	}
	return s.engine.Start(ctx, documentID, customMessage, ownerID)
}

func (s *documentService) WorkflowStatus(ctx context.Context, documentID, ownerID uuid.UUID) (*WorkflowStatus, error) {
	if _, err := s.ownedDocument(ctx, documentID, ownerID); err != nil {
		return nil, err
	}
	return s.engine.Status(ctx, documentID)
}

// SignDocument applies submitted field values and advances whichever
// completion path applies: the field-completion rule for self-signed
// documents, or the signer workflow when signer rows exist. The two paths
// are mutually exclusive.
func (s *documentService) SignDocument(ctx context.Context, documentID uuid.UUID, req SignRequest) (*SignResult, error) {
	doc, err := s.repo.GetDocumentByID(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, ErrDocumentNotFound
	}

	signers, err := s.repo.ListSigners(ctx, documentID)
	if err != nil {
		return nil, err
	}

	actingSigner, isOwner, err := s.resolveSigningActor(ctx, doc, signers, req)
	if err != nil {
		return nil, err
	}

	updated := make([]Field, 0, len(req.Fields))
	for _, fv := range req.Fields {
		field, err := s.repo.GetFieldByID(ctx, fv.ID)
		if err != nil {
			return nil, err
		}
		if field == nil || field.DocumentID != documentID {
			return nil, ErrFieldNotFound
		}
		value := fv.Value
		if err := s.repo.SetFieldValue(ctx, field.ID, &value); err != nil {
			return nil, fmt.Errorf("set field value: %w", err)
		}
		field.Value = &value
		updated = append(updated, *field)
	}

	// Self-signing path: no signer rows, completion follows the required
	// fields alone.
	if len(signers) == 0 {
		outcome := ProgressWaiting
		unfilled, err := s.repo.CountUnfilledRequiredFields(ctx, documentID)
		if err != nil {
			return nil, err
		}
		if unfilled == 0 && doc.Status != StatusCompleted {
			if err := s.repo.UpdateDocumentStatus(ctx, documentID, StatusCompleted); err != nil {
				return nil, fmt.Errorf("complete document: %w", err)
			}
			if err := s.appendActivity(ctx, documentID, ActionDocumentCompleted,
				"All required fields completed by owner", req.Actor.UserID, req.Meta); err != nil {
				return nil, err
			}
			outcome = ProgressCompleted
		}
		return &SignResult{Outcome: outcome, Fields: updated}, nil
	}

	// Owner filling fields on a multi-signer document does not advance
	// the signer workflow.
	if actingSigner == nil {
		if !isOwner {
			return nil, ErrForbidden
		}
		return &SignResult{Outcome: ProgressWaiting, Fields: updated}, nil
	}

	outcome, err := s.engine.Progress(ctx, documentID, actingSigner.ID, req.Meta)
	if err != nil {
		return nil, err
	}
	return &SignResult{Outcome: outcome, Fields: updated}, nil
}

func (s *documentService) ShareDocument(ctx context.Context, documentID, ownerID uuid.UUID) (*IssuedLink, error) {
	if _, err := s.ownedDocument(ctx, documentID, ownerID); err != nil {
		return nil, err
	}
	link, err := s.links.IssueOrRefresh(ctx, documentID, nil)
	if err != nil {
		return nil, err
	}
	if err := s.appendActivity(ctx, documentID, ActionShareLinkGenerated,
		"Share link generated", &ownerID, ActivityMeta{}); err != nil {
		return nil, err
	}
	return link, nil
}

func (s *documentService) ListActivities(ctx context.Context, documentID, ownerID uuid.UUID) ([]Activity, error) {
	if _, err := s.ownedDocument(ctx, documentID, ownerID); err != nil {
		return nil, err
	}
	return s.repo.ListActivities(ctx, documentID)
}

// resolveSigningActor decides who is submitting: a share-token holder, a
// signer with a session, or the owner. A signer-scoped token pins the
// submission to that signer; a general token grants field access only.
func (s *documentService) resolveSigningActor(ctx context.Context, doc *Document, signers []Signer, req SignRequest) (*Signer, bool, error) {
	if req.ShareToken != "" {
		link, err := s.repo.FindShareLinkByToken(ctx, req.ShareToken)
		if err != nil {
			return nil, false, err
		}
		if link == nil || link.DocumentID != doc.ID {
			return nil, false, ErrShareLinkNotFound
		}
		if link.Expired(s.now()) {
			return nil, false, ErrShareLinkExpired
		}
		if link.SignerID != nil {
			for i := range signers {
				if signers[i].ID == *link.SignerID {
					return &signers[i], false, nil
				}
			}
			return nil, false, ErrSignerNotFound
		}
		// General share link: field access without a signer identity.
		return nil, true, nil
	}

	if req.Actor.UserID == nil {
		return nil, false, ErrForbidden
	}
	if *req.Actor.UserID == doc.OwnerID {
		return nil, true, nil
	}
	for i := range signers {
		if signers[i].Email == req.Actor.Email {
			return &signers[i], false, nil
		}
	}
	return nil, false, ErrForbidden
}

func (s *documentService) checkAccess(ctx context.Context, doc *Document, signers []Signer, actor Actor, shareToken string) error {
	if actor.UserID != nil && *actor.UserID == doc.OwnerID {
		return nil
	}
	for _, signer := range signers {
		if actor.Email != "" && signer.Email == actor.Email {
			return nil
		}
	}
	if shareToken != "" {
		link, err := s.repo.FindShareLinkByToken(ctx, shareToken)
		if err != nil {
			return err
		}
		if link != nil && link.DocumentID == doc.ID && !link.Expired(s.now()) {
			return nil
		}
	}
	return ErrForbidden
}

func (s *documentService) ownedDocument(ctx context.Context, id, ownerID uuid.UUID) (*Document, error) {
	doc, err := s.repo.GetDocumentByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, ErrDocumentNotFound
	}
	if doc.OwnerID != ownerID {
		return nil, ErrForbidden
	}
	return doc, nil
}

func (s *documentService) appendActivity(ctx context.Context, documentID uuid.UUID, action ActivityAction, details string, actorID *uuid.UUID, meta ActivityMeta) error {
	activity := &Activity{
		ID:         uuid.New(),
		DocumentID: documentID,
		Action:     action,
		Details:    details,
		ActorID:    actorID,
		IPAddress:  meta.IP,
		UserAgent:  meta.UserAgent,
		CreatedAt:  s.now(),
	}
	if err := s.repo.AppendActivity(ctx, activity); err != nil {
		return fmt.Errorf("append activity: %w", err)
	}
	return nil
}

func validateFieldGeometry(req FieldRequest) error {
	switch req.Type {
	case FieldSignature, FieldText, FieldDate, FieldCheckbox, FieldInitial:
	default:
		return fmt.Errorf("%w: unknown field type %q", ErrValidation, req.Type)
	}
	if req.Page < 1 {
		return fmt.Errorf("%w: page must be >= 1", ErrValidation)
	}
	if req.X < 0 || req.X > 1 || req.Y < 0 || req.Y > 1 {
		return fmt.Errorf("%w: position must be within the unit page", ErrValidation)
	}
	if req.Width <= 0 || req.Width > 1 || req.Height <= 0 || req.Height > 1 {
		return fmt.Errorf("%w: size must be within the unit page", ErrValidation)
	}
	return nil
}

package documents

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// WorkflowStatus is a pure snapshot of where a document's signing
// workflow stands. Parallel documents (no signer carries an order) treat
// every unsigned signer as active; ordered documents activate one tier at
// a time, lowest unresolved tier first.
type WorkflowStatus struct {
	Document         *Document `json:"document"`
	Owner            *Owner    `json:"owner"`
	Parallel         bool      `json:"parallel"`
	IsComplete       bool      `json:"is_complete"`
	CurrentSigners   []Signer  `json:"current_signers"`
	PendingSigners   []Signer  `json:"pending_signers"`
	CompletedSigners []Signer  `json:"completed_signers"`
}

// ProgressOutcome reports what a signature changed.
type ProgressOutcome string

const (
	// ProgressCompleted: that was the last pending signature.
	ProgressCompleted ProgressOutcome = "COMPLETED"
	// ProgressAdvanced: a new tier became active and was invited.
	ProgressAdvanced ProgressOutcome = "PROGRESSED"
	// ProgressWaiting: other already-invited signers are still pending.
	ProgressWaiting ProgressOutcome = "WAITING"
)

// ActivityMeta carries request-level audit context into activity rows.
type ActivityMeta struct {
	IP        string
	UserAgent string
}

// WorkflowEngine advances a document's signing workflow. All collaborators
// are injected; the engine holds no per-document state.
type WorkflowEngine struct {
	repo     Repository
	notifier Notifier
	links    *LinkIssuer
	logger   *zap.Logger
	now      func() time.Time

	// Mutations are serialized per document. Without this, two
	// concurrent signatures on the same document can both read a stale
	// tier and double-invite, or race the completion fan-out.
	locks sync.Map
}

func (e *WorkflowEngine) lockDocument(id uuid.UUID) func() {
	v, _ := e.locks.LoadOrStore(id, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

func NewWorkflowEngine(repo Repository, notifier Notifier, links *LinkIssuer, logger *zap.Logger) *WorkflowEngine {
	return &WorkflowEngine{
		repo:     repo,
		notifier: notifier,
		links:    links,
		logger:   logger.With(zap.String("component", "workflow_engine")),
		now:      time.Now,
	}
}

// Status computes the current workflow snapshot. Read-only.
func (e *WorkflowEngine) Status(ctx context.Context, documentID uuid.UUID) (*WorkflowStatus, error) {
	doc, err := e.repo.GetDocumentByID(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("load document: %w", err)
	}
	if doc == nil {
		return nil, ErrDocumentNotFound
	}

	owner, err := e.repo.GetOwner(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("load document owner: %w", err)
	}

	signers, err := e.repo.ListSigners(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("load signers: %w", err)
	}
	doc.Signers = signers

	st := &WorkflowStatus{Document: doc, Owner: owner}

	hasOrdered := false
	for _, s := range signers {
		if OrderingOf(s).Ordered() {
			hasOrdered = true
		}
		if s.Status == SignerSigned {
			st.CompletedSigners = append(st.CompletedSigners, s)
		} else {
			st.PendingSigners = append(st.PendingSigners, s)
		}
	}
	st.IsComplete = len(st.PendingSigners) == 0

	if !hasOrdered {
		// Parallel workflow: everyone unsigned is active at once.
		st.Parallel = true
		st.CurrentSigners = st.PendingSigners
		return st, nil
	}

	if len(st.PendingSigners) > 0 {
		lowest := OrderingOf(st.PendingSigners[0]).Effective()
		for _, s := range st.PendingSigners[1:] {
			if tier := OrderingOf(s).Effective(); tier < lowest {
				lowest = tier
			}
		}
		for _, s := range st.PendingSigners {
			if OrderingOf(s).Effective() == lowest {
				st.CurrentSigners = append(st.CurrentSigners, s)
			}
		}
	}
	return st, nil
}

// Start sends invitations to the first active tier and moves the document
// to PENDING.
func (e *WorkflowEngine) Start(ctx context.Context, documentID uuid.UUID, customMessage string, actorID uuid.UUID) error {
	defer e.lockDocument(documentID)()

	st, err := e.Status(ctx, documentID)
	if err != nil {
		return err
	}
	switch st.Document.Status {
	case StatusCompleted, StatusCancelled:
		return ErrWorkflowClosed
	}
	if len(st.CurrentSigners) == 0 {
		return ErrNoSigners
	}

	for _, signer := range st.CurrentSigners {
		if err := e.invite(ctx, st, signer, customMessage); err != nil {
			return err
		}
	}

	if st.Document.Status == StatusDraft {
		if err := e.repo.UpdateDocumentStatus(ctx, documentID, StatusPending); err != nil {
			return fmt.Errorf("mark document pending: %w", err)
		}
	}

	return e.appendActivity(ctx, documentID, ActionWorkflowStarted,
		"Signing workflow started", &actorID, ActivityMeta{})
}

// Progress records a signature for the given signer and advances the
// workflow. Calling it again for an already-signed signer is a no-op: no
// mutation, no notifications, just the current outcome.
func (e *WorkflowEngine) Progress(ctx context.Context, documentID, signerID uuid.UUID, meta ActivityMeta) (ProgressOutcome, error) {
	defer e.lockDocument(documentID)()

	st, err := e.Status(ctx, documentID)
	if err != nil {
		return "", err
	}

	var signer *Signer
	for i := range st.Document.Signers {
		if st.Document.Signers[i].ID == signerID {
			signer = &st.Document.Signers[i]
			break
		}
	}
	if signer == nil {
		return "", ErrSignerNotFound
	}

	if signer.Status == SignerSigned {
		if st.IsComplete {
			return ProgressCompleted, nil
		}
		return ProgressWaiting, nil
	}

	// Remember which tier was active so the post-signature state can be
	// distinguished from a transition into a brand-new tier.
	previousTier := make(map[uuid.UUID]bool, len(st.CurrentSigners))
	for _, s := range st.CurrentSigners {
		previousTier[s.ID] = true
	}

	signedAt := e.now()
	if err := e.repo.UpdateSignerStatus(ctx, signerID, SignerSigned, &signedAt); err != nil {
		return "", fmt.Errorf("mark signer signed: %w", err)
	}

	details := fmt.Sprintf("Document signed by %s (%s)", signer.Name, signer.Email)
	if err := e.appendActivity(ctx, documentID, ActionDocumentSigned, details, nil, meta); err != nil {
		return "", err
	}

	next, err := e.Status(ctx, documentID)
	if err != nil {
		return "", err
	}

	if next.IsComplete {
		if err := e.completeDocument(ctx, next); err != nil {
			return "", err
		}
		return ProgressCompleted, nil
	}

	// Invitations go out only when the active set is an entirely new
	// tier. Members of the tier that just produced this signature were
	// invited when the tier activated and must not be re-notified.
	newTier := len(next.CurrentSigners) > 0
	for _, s := range next.CurrentSigners {
		if previousTier[s.ID] {
			newTier = false
			break
		}
	}
	if newTier {
		for _, s := range next.CurrentSigners {
			if err := e.invite(ctx, next, s, ""); err != nil {
				return "", err
			}
		}
		return ProgressAdvanced, nil
	}

	return ProgressWaiting, nil
}

// SendInvitation issues or refreshes the signer's link and queues an
// invitation email.
func (e *WorkflowEngine) SendInvitation(ctx context.Context, documentID, signerID uuid.UUID, customMessage string) error {
	st, signer, err := e.statusAndSigner(ctx, documentID, signerID)
	if err != nil {
		return err
	}
	return e.invite(ctx, st, *signer, customMessage)
}

// SendReminder re-sends the signing link with reminder copy.
func (e *WorkflowEngine) SendReminder(ctx context.Context, documentID, signerID uuid.UUID, actorID uuid.UUID) error {
	st, signer, err := e.statusAndSigner(ctx, documentID, signerID)
	if err != nil {
		return err
	}

	link, err := e.links.IssueOrRefresh(ctx, documentID, &signer.ID)
	if err != nil {
		return err
	}

	res := e.notifier.SendReminder(ctx, ReminderEmail{
		DocumentID:    documentID,
		DocumentTitle: st.Document.Title,
		SignerName:    signerDisplayName(*signer),
		SignerEmail:   signer.Email,
		SenderName:    ownerDisplayName(st.Owner),
		SigningLink:   link.URL,
	})
	if !res.Success {
		e.logger.Warn("reminder send failed",
			zap.String("document_id", documentID.String()),
			zap.String("signer_email", signer.Email),
			zap.Error(res.Err))
	}

	details := fmt.Sprintf("Reminder sent to %s (%s)", signerDisplayName(*signer), signer.Email)
	return e.appendActivity(ctx, documentID, ActionReminderSent, details, &actorID, ActivityMeta{})
}

func (e *WorkflowEngine) statusAndSigner(ctx context.Context, documentID, signerID uuid.UUID) (*WorkflowStatus, *Signer, error) {
	st, err := e.Status(ctx, documentID)
	if err != nil {
		return nil, nil, err
	}
	signer, err := e.repo.GetSignerByID(ctx, signerID)
	if err != nil {
		return nil, nil, fmt.Errorf("load signer: %w", err)
	}
	if signer == nil || signer.DocumentID != documentID {
		return nil, nil, ErrSignerNotFound
	}
	return st, signer, nil
}

func (e *WorkflowEngine) invite(ctx context.Context, st *WorkflowStatus, signer Signer, customMessage string) error {
	link, err := e.links.IssueOrRefresh(ctx, st.Document.ID, &signer.ID)
	if err != nil {
		return err
	}

	res := e.notifier.SendInvitation(ctx, InvitationEmail{
		DocumentID:    st.Document.ID,
		DocumentTitle: st.Document.Title,
		SignerName:    signerDisplayName(signer),
		SignerEmail:   signer.Email,
		SenderName:    ownerDisplayName(st.Owner),
		Message:       customMessage,
		SigningLink:   link.URL,
	})
	if !res.Success {
		e.logger.Warn("invitation send failed",
			zap.String("document_id", st.Document.ID.String()),
			zap.String("signer_email", signer.Email),
			zap.Error(res.Err))
	}

	var actorID *uuid.UUID
	if st.Owner != nil {
		actorID = &st.Owner.ID
	}
	details := fmt.Sprintf("Invitation sent to %s (%s)", signerDisplayName(signer), signer.Email)
	return e.appendActivity(ctx, st.Document.ID, ActionInvitationSent, details, actorID, ActivityMeta{})
}

// completeDocument marks the document COMPLETED and fans out notices to
// the owner and every signer. A document already COMPLETED is left alone
// so a re-entrant call cannot re-send the fan-out.
func (e *WorkflowEngine) completeDocument(ctx context.Context, st *WorkflowStatus) error {
	if st.Document.Status == StatusCompleted {
		return nil
	}

	if err := e.repo.UpdateDocumentStatus(ctx, st.Document.ID, StatusCompleted); err != nil {
		return fmt.Errorf("mark document completed: %w", err)
	}

	downloadLink := e.links.DownloadURL(st.Document.ID)

	recipients := make([]CompletionEmail, 0, len(st.Document.Signers)+1)
	if st.Owner != nil {
		recipients = append(recipients, CompletionEmail{
			DocumentID:     st.Document.ID,
			DocumentTitle:  st.Document.Title,
			RecipientName:  ownerDisplayName(st.Owner),
			RecipientEmail: st.Owner.Email,
			DownloadLink:   downloadLink,
		})
	}
	for _, s := range st.Document.Signers {
		recipients = append(recipients, CompletionEmail{
			DocumentID:     st.Document.ID,
			DocumentTitle:  st.Document.Title,
			RecipientName:  signerDisplayName(s),
			RecipientEmail: s.Email,
			DownloadLink:   downloadLink,
		})
	}

	// Per-recipient failures are logged, never aborting the fan-out.
	for _, email := range recipients {
		if res := e.notifier.SendCompletion(ctx, email); !res.Success {
			e.logger.Warn("completion notice send failed",
				zap.String("document_id", st.Document.ID.String()),
				zap.String("recipient", email.RecipientEmail),
				zap.Error(res.Err))
		}
	}

	var actorID *uuid.UUID
	if st.Owner != nil {
		actorID = &st.Owner.ID
	}
	return e.appendActivity(ctx, st.Document.ID, ActionDocumentCompleted,
		"All signers have signed the document", actorID, ActivityMeta{})
}

func (e *WorkflowEngine) appendActivity(ctx context.Context, documentID uuid.UUID, action ActivityAction, details string, actorID *uuid.UUID, meta ActivityMeta) error {
	activity := &Activity{
		ID:         uuid.New(),
		DocumentID: documentID,
		Action:     action,
		Details:    details,
		ActorID:    actorID,
		IPAddress:  meta.IP,
		UserAgent:  meta.UserAgent,
		CreatedAt:  e.now(),
	}
	if err := e.repo.AppendActivity(ctx, activity); err != nil {
		return fmt.Errorf("append activity: %w", err)
	}
	return nil
}

func signerDisplayName(s Signer) string {
	if s.Name == "" {
		return "Signer"
	}
	return s.Name
}

func ownerDisplayName(o *Owner) string {
	if o == nil || o.Name == "" {
		return "Document owner"
	}
	return o.Name
}

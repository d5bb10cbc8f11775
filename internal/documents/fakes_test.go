package documents

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// fakeRepository is an in-memory Repository used by the workflow and
// service tests. It mirrors the query semantics of the postgres
// implementation, including the nulls-first signer ordering.
type fakeRepository struct {
	mu         sync.Mutex
	docs       map[uuid.UUID]*Document
	owners     map[uuid.UUID]*Owner
	fields     map[uuid.UUID]*Field
	signers    map[uuid.UUID]*Signer
	shareLinks map[uuid.UUID]*ShareLink
	activities []Activity
	clock      time.Time
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{
		docs:       make(map[uuid.UUID]*Document),
		owners:     make(map[uuid.UUID]*Owner),
		fields:     make(map[uuid.UUID]*Field),
		signers:    make(map[uuid.UUID]*Signer),
		shareLinks: make(map[uuid.UUID]*ShareLink),
		clock:      time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

// tick returns strictly increasing timestamps so created_at ordering is
// deterministic.
func (f *fakeRepository) tick() time.Time {
	f.clock = f.clock.Add(time.Second)
	return f.clock
}

func (f *fakeRepository) CreateDocument(_ context.Context, doc *Document) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *doc
	f.docs[doc.ID] = &cp
	return nil
}

func (f *fakeRepository) GetDocumentByID(_ context.Context, id uuid.UUID) (*Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.docs[id]
	if !ok {
		return nil, nil
	}
	cp := *doc
	return &cp, nil
}

func (f *fakeRepository) ListDocuments(_ context.Context, ownerID uuid.UUID, status *DocumentStatus) ([]Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Document
	for _, doc := range f.docs {
		if doc.OwnerID != ownerID {
			continue
		}
		if status != nil && doc.Status != *status {
			continue
		}
		out = append(out, *doc)
	}
	return out, nil
}

func (f *fakeRepository) UpdateDocument(_ context.Context, doc *Document) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *doc
	f.docs[doc.ID] = &cp
	return nil
}

func (f *fakeRepository) UpdateDocumentStatus(_ context.Context, id uuid.UUID, status DocumentStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if doc, ok := f.docs[id]; ok {
		doc.Status = status
	}
	return nil
}

func (f *fakeRepository) DeleteDocument(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.docs, id)
	for fid, field := range f.fields {
		if field.DocumentID == id {
			delete(f.fields, fid)
		}
	}
	for sid, signer := range f.signers {
		if signer.DocumentID == id {
			delete(f.signers, sid)
		}
	}
	for lid, link := range f.shareLinks {
		if link.DocumentID == id {
			delete(f.shareLinks, lid)
		}
	}
	return nil
}

func (f *fakeRepository) GetOwner(_ context.Context, documentID uuid.UUID) (*Owner, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	owner, ok := f.owners[documentID]
	if !ok {
		return nil, nil
	}
	cp := *owner
	return &cp, nil
}

func (f *fakeRepository) CreateField(_ context.Context, field *Field) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *field
	f.fields[field.ID] = &cp
	return nil
}

func (f *fakeRepository) GetFieldByID(_ context.Context, id uuid.UUID) (*Field, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	field, ok := f.fields[id]
	if !ok {
		return nil, nil
	}
	cp := *field
	return &cp, nil
}

func (f *fakeRepository) ListFields(_ context.Context, documentID uuid.UUID) ([]Field, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Field
	for _, field := range f.fields {
		if field.DocumentID == documentID {
			out = append(out, *field)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Page != out[j].Page {
			return out[i].Page < out[j].Page
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (f *fakeRepository) UpdateField(_ context.Context, field *Field) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *field
	f.fields[field.ID] = &cp
	return nil
}

func (f *fakeRepository) SetFieldValue(_ context.Context, id uuid.UUID, value *string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if field, ok := f.fields[id]; ok {
		field.Value = value
	}
	return nil
}

func (f *fakeRepository) DeleteField(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.fields, id)
	return nil
}

func (f *fakeRepository) CountUnfilledRequiredFields(_ context.Context, documentID uuid.UUID) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, field := range f.fields {
		if field.DocumentID == documentID && field.Required && field.Value == nil {
			count++
		}
	}
	return count, nil
}

func (f *fakeRepository) CreateSigner(_ context.Context, signer *Signer) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *signer
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = f.tick()
	}
	f.signers[signer.ID] = &cp
	return nil
}

func (f *fakeRepository) GetSignerByID(_ context.Context, id uuid.UUID) (*Signer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	signer, ok := f.signers[id]
	if !ok {
		return nil, nil
	}
	cp := *signer
	return &cp, nil
}

func (f *fakeRepository) GetSignerByEmail(_ context.Context, documentID uuid.UUID, email string) (*Signer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, signer := range f.signers {
		if signer.DocumentID == documentID && signer.Email == email {
			cp := *signer
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeRepository) ListSigners(_ context.Context, documentID uuid.UUID) ([]Signer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Signer
	for _, signer := range f.signers {
		if signer.DocumentID == documentID {
			out = append(out, *signer)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		oi, oj := out[i].Order, out[j].Order
		switch {
		case oi == nil && oj != nil:
			return true
		case oi != nil && oj == nil:
			return false
		case oi != nil && oj != nil && *oi != *oj:
			return *oi < *oj
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (f *fakeRepository) UpdateSignerStatus(_ context.Context, id uuid.UUID, status SignerStatus, signedAt *time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if signer, ok := f.signers[id]; ok {
		signer.Status = status
		signer.SignedAt = signedAt
	}
	return nil
}

func (f *fakeRepository) DeleteSigner(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.signers, id)
	return nil
}

func (f *fakeRepository) FindShareLink(_ context.Context, documentID uuid.UUID, signerID *uuid.UUID) (*ShareLink, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, link := range f.shareLinks {
		if link.DocumentID != documentID {
			continue
		}
		if signerID == nil && link.SignerID == nil {
			cp := *link
			return &cp, nil
		}
		if signerID != nil && link.SignerID != nil && *link.SignerID == *signerID {
			cp := *link
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeRepository) FindShareLinkByToken(_ context.Context, token string) (*ShareLink, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, link := range f.shareLinks {
		if link.Token == token {
			cp := *link
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeRepository) CreateShareLink(_ context.Context, link *ShareLink) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *link
	f.shareLinks[link.ID] = &cp
	return nil
}

func (f *fakeRepository) ExtendShareLink(_ context.Context, id uuid.UUID, expiresAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if link, ok := f.shareLinks[id]; ok {
		link.ExpiresAt = expiresAt
	}
	return nil
}

func (f *fakeRepository) AppendActivity(_ context.Context, activity *Activity) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.activities = append(f.activities, *activity)
	return nil
}

func (f *fakeRepository) ListActivities(_ context.Context, documentID uuid.UUID) ([]Activity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Activity
	for i := len(f.activities) - 1; i >= 0; i-- {
		if f.activities[i].DocumentID == documentID {
			out = append(out, f.activities[i])
		}
	}
	return out, nil
}

func (f *fakeRepository) activityCount(documentID uuid.UUID, action ActivityAction) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, a := range f.activities {
		if a.DocumentID == documentID && a.Action == action {
			count++
		}
	}
	return count
}

// fakeNotifier records every send for assertion.
type fakeNotifier struct {
	mu          sync.Mutex
	invitations []InvitationEmail
	reminders   []ReminderEmail
	completions []CompletionEmail
}

func (f *fakeNotifier) SendInvitation(_ context.Context, email InvitationEmail) NotificationResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invitations = append(f.invitations, email)
	return NotificationResult{Success: true}
}

func (f *fakeNotifier) SendReminder(_ context.Context, email ReminderEmail) NotificationResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reminders = append(f.reminders, email)
	return NotificationResult{Success: true}
}

func (f *fakeNotifier) SendCompletion(_ context.Context, email CompletionEmail) NotificationResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.completions = append(f.completions, email)
	return NotificationResult{Success: true}
}

func (f *fakeNotifier) invitedEmails() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.invitations))
	for _, inv := range f.invitations {
		out = append(out, inv.SignerEmail)
	}
	return out
}

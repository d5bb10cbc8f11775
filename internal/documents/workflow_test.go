package documents

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestEngine() (*WorkflowEngine, *fakeRepository, *fakeNotifier) {
	repo := newFakeRepository()
	notifier := &fakeNotifier{}
	links := NewLinkIssuer(repo, "http://localhost:3000")
	engine := NewWorkflowEngine(repo, notifier, links, zap.NewNop())
	return engine, repo, notifier
}

func seedDocument(t *testing.T, repo *fakeRepository, status DocumentStatus) *Document {
	t.Helper()
	owner := &Owner{ID: uuid.New(), Name: "Ada Owner", Email: "ada@example.com"}
	doc := &Document{
		ID:      uuid.New(),
		OwnerID: owner.ID,
		Title:   "Consulting Agreement",
		Status:  status,
	}
	require.NoError(t, repo.CreateDocument(context.Background(), doc))
	repo.owners[doc.ID] = owner
	return doc
}

func seedSigner(t *testing.T, repo *fakeRepository, docID uuid.UUID, name, email string, order *int) *Signer {
	t.Helper()
	signer := &Signer{
		ID:         uuid.New(),
		DocumentID: docID,
		Name:       name,
		Email:      email,
		Status:     SignerPending,
		Order:      order,
	}
	require.NoError(t, repo.CreateSigner(context.Background(), signer))
	return signer
}

func intPtr(n int) *int { return &n }

func TestStatusParallelAllActive(t *testing.T) {
	engine, repo, _ := newTestEngine()
	doc := seedDocument(t, repo, StatusDraft)
	seedSigner(t, repo, doc.ID, "Alice", "alice@example.com", nil)
	seedSigner(t, repo, doc.ID, "Bob", "bob@example.com", nil)
	seedSigner(t, repo, doc.ID, "Carol", "carol@example.com", nil)

	st, err := engine.Status(context.Background(), doc.ID)
	require.NoError(t, err)

	assert.True(t, st.Parallel)
	assert.False(t, st.IsComplete)
	assert.Len(t, st.CurrentSigners, 3)
	assert.Len(t, st.PendingSigners, 3)
	assert.Empty(t, st.CompletedSigners)
}

func TestStatusSequentialLowestTierActive(t *testing.T) {
	engine, repo, _ := newTestEngine()
	doc := seedDocument(t, repo, StatusPending)
	a := seedSigner(t, repo, doc.ID, "Alice", "alice@example.com", intPtr(1))
	b := seedSigner(t, repo, doc.ID, "Bob", "bob@example.com", intPtr(1))
	seedSigner(t, repo, doc.ID, "Carol", "carol@example.com", intPtr(2))
	seedSigner(t, repo, doc.ID, "Dave", "dave@example.com", intPtr(3))

	st, err := engine.Status(context.Background(), doc.ID)
	require.NoError(t, err)

	assert.False(t, st.Parallel)
	require.Len(t, st.CurrentSigners, 2)
	assert.ElementsMatch(t,
		[]uuid.UUID{a.ID, b.ID},
		[]uuid.UUID{st.CurrentSigners[0].ID, st.CurrentSigners[1].ID})
}

func TestStatusUnorderedSignerCountsAsTierOne(t *testing.T) {
	engine, repo, _ := newTestEngine()
	doc := seedDocument(t, repo, StatusPending)
	// A lone nil order among ordered signers is grouped with tier 1.
	a := seedSigner(t, repo, doc.ID, "Alice", "alice@example.com", nil)
	b := seedSigner(t, repo, doc.ID, "Bob", "bob@example.com", intPtr(1))
	seedSigner(t, repo, doc.ID, "Carol", "carol@example.com", intPtr(2))

	st, err := engine.Status(context.Background(), doc.ID)
	require.NoError(t, err)

	assert.False(t, st.Parallel)
	require.Len(t, st.CurrentSigners, 2)
	assert.ElementsMatch(t,
		[]uuid.UUID{a.ID, b.ID},
		[]uuid.UUID{st.CurrentSigners[0].ID, st.CurrentSigners[1].ID})
}

func TestStartInvitesFirstTierOnly(t *testing.T) {
	engine, repo, notifier := newTestEngine()
	doc := seedDocument(t, repo, StatusDraft)
	seedSigner(t, repo, doc.ID, "Alice", "alice@example.com", intPtr(1))
	seedSigner(t, repo, doc.ID, "Bob", "bob@example.com", intPtr(2))

	err := engine.Start(context.Background(), doc.ID, "please sign", doc.OwnerID)
	require.NoError(t, err)

	assert.Equal(t, []string{"alice@example.com"}, notifier.invitedEmails())
	assert.Equal(t, "please sign", notifier.invitations[0].Message)
	assert.NotEmpty(t, notifier.invitations[0].SigningLink)

	stored, err := repo.GetDocumentByID(context.Background(), doc.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, stored.Status)
	assert.Equal(t, 1, repo.activityCount(doc.ID, ActionWorkflowStarted))
	assert.Equal(t, 1, repo.activityCount(doc.ID, ActionInvitationSent))
}

func TestStartWithoutSigners(t *testing.T) {
	engine, repo, _ := newTestEngine()
	doc := seedDocument(t, repo, StatusDraft)

	err := engine.Start(context.Background(), doc.ID, "", doc.OwnerID)
	assert.ErrorIs(t, err, ErrNoSigners)
}

func TestStartClosedDocument(t *testing.T) {
	engine, repo, notifier := newTestEngine()
	for _, status := range []DocumentStatus{StatusCompleted, StatusCancelled} {
		doc := seedDocument(t, repo, status)
		seedSigner(t, repo, doc.ID, "Alice", "alice@example.com", nil)

		err := engine.Start(context.Background(), doc.ID, "", doc.OwnerID)
		assert.ErrorIs(t, err, ErrWorkflowClosed)
	}
	assert.Empty(t, notifier.invitations)
}

func TestProgressAdvancesToNextTier(t *testing.T) {
	engine, repo, notifier := newTestEngine()
	doc := seedDocument(t, repo, StatusPending)
	a := seedSigner(t, repo, doc.ID, "Alice", "alice@example.com", intPtr(1))
	seedSigner(t, repo, doc.ID, "Bob", "bob@example.com", intPtr(2))

	outcome, err := engine.Progress(context.Background(), doc.ID, a.ID, ActivityMeta{IP: "10.0.0.1"})
	require.NoError(t, err)

	assert.Equal(t, ProgressAdvanced, outcome)
	// Exactly one invitation: the newly active tier, not the tier that
	// just finished.
	assert.Equal(t, []string{"bob@example.com"}, notifier.invitedEmails())

	signed, err := repo.GetSignerByID(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Equal(t, SignerSigned, signed.Status)
	require.NotNil(t, signed.SignedAt)
	assert.Equal(t, 1, repo.activityCount(doc.ID, ActionDocumentSigned))
}

func TestProgressWaitsWithinTier(t *testing.T) {
	engine, repo, notifier := newTestEngine()
	doc := seedDocument(t, repo, StatusPending)
	a := seedSigner(t, repo, doc.ID, "Alice", "alice@example.com", intPtr(1))
	seedSigner(t, repo, doc.ID, "Bob", "bob@example.com", intPtr(1))
	seedSigner(t, repo, doc.ID, "Carol", "carol@example.com", intPtr(2))

	outcome, err := engine.Progress(context.Background(), doc.ID, a.ID, ActivityMeta{})
	require.NoError(t, err)

	assert.Equal(t, ProgressWaiting, outcome)
	assert.Empty(t, notifier.invitations)
}

func TestProgressCompletesAndFansOut(t *testing.T) {
	engine, repo, notifier := newTestEngine()
	doc := seedDocument(t, repo, StatusPending)
	a := seedSigner(t, repo, doc.ID, "Alice", "alice@example.com", nil)
	b := seedSigner(t, repo, doc.ID, "Bob", "bob@example.com", nil)

	outcome, err := engine.Progress(context.Background(), doc.ID, a.ID, ActivityMeta{})
	require.NoError(t, err)
	assert.Equal(t, ProgressWaiting, outcome)

	outcome, err = engine.Progress(context.Background(), doc.ID, b.ID, ActivityMeta{})
	require.NoError(t, err)
	assert.Equal(t, ProgressCompleted, outcome)

	stored, err := repo.GetDocumentByID(context.Background(), doc.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, stored.Status)

	// Owner plus every signer gets a completion notice.
	require.Len(t, notifier.completions, 3)
	recipients := make([]string, 0, 3)
	for _, c := range notifier.completions {
		recipients = append(recipients, c.RecipientEmail)
	}
	assert.ElementsMatch(t,
		[]string{"ada@example.com", "alice@example.com", "bob@example.com"}, recipients)
	assert.Equal(t, 1, repo.activityCount(doc.ID, ActionDocumentCompleted))
}

func TestProgressAlreadySignedIsNoOp(t *testing.T) {
	engine, repo, notifier := newTestEngine()
	doc := seedDocument(t, repo, StatusPending)
	a := seedSigner(t, repo, doc.ID, "Alice", "alice@example.com", intPtr(1))
	seedSigner(t, repo, doc.ID, "Bob", "bob@example.com", intPtr(2))

	_, err := engine.Progress(context.Background(), doc.ID, a.ID, ActivityMeta{})
	require.NoError(t, err)

	first, err := repo.GetSignerByID(context.Background(), a.ID)
	require.NoError(t, err)
	invitesBefore := len(notifier.invitations)

	outcome, err := engine.Progress(context.Background(), doc.ID, a.ID, ActivityMeta{})
	require.NoError(t, err)

	assert.Equal(t, ProgressWaiting, outcome)
	assert.Len(t, notifier.invitations, invitesBefore)
	assert.Equal(t, 1, repo.activityCount(doc.ID, ActionDocumentSigned))

	second, err := repo.GetSignerByID(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Equal(t, first.SignedAt, second.SignedAt)
}

func TestProgressAfterCompletionDoesNotRepeatFanOut(t *testing.T) {
	engine, repo, notifier := newTestEngine()
	doc := seedDocument(t, repo, StatusPending)
	a := seedSigner(t, repo, doc.ID, "Alice", "alice@example.com", nil)

	outcome, err := engine.Progress(context.Background(), doc.ID, a.ID, ActivityMeta{})
	require.NoError(t, err)
	assert.Equal(t, ProgressCompleted, outcome)
	sent := len(notifier.completions)

	outcome, err = engine.Progress(context.Background(), doc.ID, a.ID, ActivityMeta{})
	require.NoError(t, err)
	assert.Equal(t, ProgressCompleted, outcome)
	assert.Len(t, notifier.completions, sent)
	assert.Equal(t, 1, repo.activityCount(doc.ID, ActionDocumentCompleted))
}

func TestProgressUnknownSigner(t *testing.T) {
	engine, repo, _ := newTestEngine()
	doc := seedDocument(t, repo, StatusPending)
	seedSigner(t, repo, doc.ID, "Alice", "alice@example.com", nil)

	_, err := engine.Progress(context.Background(), doc.ID, uuid.New(), ActivityMeta{})
	assert.ErrorIs(t, err, ErrSignerNotFound)
}

func TestSequentialEndToEnd(t *testing.T) {
	engine, repo, notifier := newTestEngine()
	doc := seedDocument(t, repo, StatusDraft)
	a := seedSigner(t, repo, doc.ID, "Alice", "alice@example.com", intPtr(1))
	b := seedSigner(t, repo, doc.ID, "Bob", "bob@example.com", intPtr(1))
	c := seedSigner(t, repo, doc.ID, "Carol", "carol@example.com", intPtr(2))

	require.NoError(t, engine.Start(context.Background(), doc.ID, "", doc.OwnerID))
	assert.ElementsMatch(t, []string{"alice@example.com", "bob@example.com"}, notifier.invitedEmails())

	outcome, err := engine.Progress(context.Background(), doc.ID, a.ID, ActivityMeta{})
	require.NoError(t, err)
	assert.Equal(t, ProgressWaiting, outcome)

	outcome, err = engine.Progress(context.Background(), doc.ID, b.ID, ActivityMeta{})
	require.NoError(t, err)
	assert.Equal(t, ProgressAdvanced, outcome)
	assert.ElementsMatch(t,
		[]string{"alice@example.com", "bob@example.com", "carol@example.com"},
		notifier.invitedEmails())

	outcome, err = engine.Progress(context.Background(), doc.ID, c.ID, ActivityMeta{})
	require.NoError(t, err)
	assert.Equal(t, ProgressCompleted, outcome)

	stored, err := repo.GetDocumentByID(context.Background(), doc.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, stored.Status)
	assert.Len(t, notifier.completions, 4)
}

func TestSendReminder(t *testing.T) {
	engine, repo, notifier := newTestEngine()
	doc := seedDocument(t, repo, StatusPending)
	a := seedSigner(t, repo, doc.ID, "Alice", "alice@example.com", nil)

	// Issue the invitation first so the reminder reuses its token.
	require.NoError(t, engine.SendInvitation(context.Background(), doc.ID, a.ID, ""))
	require.Len(t, notifier.invitations, 1)

	require.NoError(t, engine.SendReminder(context.Background(), doc.ID, a.ID, doc.OwnerID))

	require.Len(t, notifier.reminders, 1)
	assert.Equal(t, "alice@example.com", notifier.reminders[0].SignerEmail)
	assert.Equal(t, notifier.invitations[0].SigningLink, notifier.reminders[0].SigningLink)
	assert.Equal(t, 1, repo.activityCount(doc.ID, ActionReminderSent))
}

func TestSendReminderUnknownSigner(t *testing.T) {
	engine, repo, _ := newTestEngine()
	doc := seedDocument(t, repo, StatusPending)

	err := engine.SendReminder(context.Background(), doc.ID, uuid.New(), doc.OwnerID)
	assert.ErrorIs(t, err, ErrSignerNotFound)
}

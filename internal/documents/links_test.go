package documents

import (
	"context"
	"fmt"
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var tokenPattern = regexp.MustCompile(`^[0-9a-f]{32}$`)

func TestIssueCreatesLink(t *testing.T) {
	repo := newFakeRepository()
	issuer := NewLinkIssuer(repo, "https://app.inklessflow.com")
	docID := uuid.New()
	signerID := uuid.New()

	before := time.Now()
	link, err := issuer.IssueOrRefresh(context.Background(), docID, &signerID)
	require.NoError(t, err)

	assert.Regexp(t, tokenPattern, link.Token)
	assert.Equal(t,
		fmt.Sprintf("https://app.inklessflow.com/documents/%s/sign?token=%s", docID, link.Token),
		link.URL)
	assert.WithinDuration(t, before.Add(DefaultLinkTTL), link.ExpiresAt, time.Minute)
}

func TestIssueReusesExistingToken(t *testing.T) {
	repo := newFakeRepository()
	issuer := NewLinkIssuer(repo, "https://app.inklessflow.com")
	docID := uuid.New()
	signerID := uuid.New()

	first, err := issuer.IssueOrRefresh(context.Background(), docID, &signerID)
	require.NoError(t, err)
	second, err := issuer.IssueOrRefresh(context.Background(), docID, &signerID)
	require.NoError(t, err)

	assert.Equal(t, first.Token, second.Token)
	assert.False(t, second.ExpiresAt.Before(first.ExpiresAt))

	stored, err := repo.FindShareLinkByToken(context.Background(), first.Token)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, second.ExpiresAt, stored.ExpiresAt)
}

func TestIssueScopesTokensPerSigner(t *testing.T) {
	repo := newFakeRepository()
	issuer := NewLinkIssuer(repo, "https://app.inklessflow.com")
	docID := uuid.New()
	alice := uuid.New()
	bob := uuid.New()

	aliceLink, err := issuer.IssueOrRefresh(context.Background(), docID, &alice)
	require.NoError(t, err)
	bobLink, err := issuer.IssueOrRefresh(context.Background(), docID, &bob)
	require.NoError(t, err)
	general, err := issuer.IssueOrRefresh(context.Background(), docID, nil)
	require.NoError(t, err)

	assert.NotEqual(t, aliceLink.Token, bobLink.Token)
	assert.NotEqual(t, aliceLink.Token, general.Token)
	assert.NotEqual(t, bobLink.Token, general.Token)
}

func TestDownloadURL(t *testing.T) {
	issuer := NewLinkIssuer(newFakeRepository(), "https://app.inklessflow.com")
	docID := uuid.New()

	assert.Equal(t,
		fmt.Sprintf("https://app.inklessflow.com/documents/%s", docID),
		issuer.DownloadURL(docID))
}

func TestShareLinkExpired(t *testing.T) {
	now := time.Now()
	link := ShareLink{ExpiresAt: now.Add(time.Hour)}
	assert.False(t, link.Expired(now))
	assert.True(t, link.Expired(now.Add(2*time.Hour)))
}

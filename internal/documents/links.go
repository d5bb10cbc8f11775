package documents

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DefaultLinkTTL is how long a freshly issued or refreshed signing link
// stays valid.
const DefaultLinkTTL = 7 * 24 * time.Hour

// IssuedLink is the result of issuing or refreshing a share link.
type IssuedLink struct {
	Token     string    `json:"token"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// LinkIssuer hands out one unguessable token per (document, signer) pair,
// or per document for general sharing. An existing token is never rotated
// implicitly; re-issuing only pushes out the expiry so links that were
// already emailed keep working.
type LinkIssuer struct {
	repo    Repository
	baseURL string
	ttl     time.Duration
	now     func() time.Time
}

func NewLinkIssuer(repo Repository, baseURL string) *LinkIssuer {
	return &LinkIssuer{
		repo:    repo,
		baseURL: baseURL,
		ttl:     DefaultLinkTTL,
		now:     time.Now,
	}
}

// IssueOrRefresh returns the live link for the key, extending its expiry,
// or creates a new one when none exists.
func (l *LinkIssuer) IssueOrRefresh(ctx context.Context, documentID uuid.UUID, signerID *uuid.UUID) (*IssuedLink, error) {
	expiresAt := l.now().Add(l.ttl)

	existing, err := l.repo.FindShareLink(ctx, documentID, signerID)
	if err != nil {
		return nil, fmt.Errorf("lookup share link: %w", err)
	}
	if existing != nil {
		if err := l.repo.ExtendShareLink(ctx, existing.ID, expiresAt); err != nil {
			return nil, fmt.Errorf("refresh share link: %w", err)
		}
		return &IssuedLink{
			Token:     existing.Token,
			URL:       l.SigningURL(documentID, existing.Token),
			ExpiresAt: expiresAt,
		}, nil
	}

	token, err := generateToken()
	if err != nil {
		return nil, err
	}
	link := &ShareLink{
		ID:         uuid.New(),
		DocumentID: documentID,
		SignerID:   signerID,
		Token:      token,
		ExpiresAt:  expiresAt,
		CreatedAt:  l.now(),
	}
	if err := l.repo.CreateShareLink(ctx, link); err != nil {
		return nil, fmt.Errorf("create share link: %w", err)
	}
	return &IssuedLink{
		Token:     token,
		URL:       l.SigningURL(documentID, token),
		ExpiresAt: expiresAt,
	}, nil
}

// SigningURL builds the absolute URL a signer follows to open a document.
func (l *LinkIssuer) SigningURL(documentID uuid.UUID, token string) string {
	return fmt.Sprintf("%s/documents/%s/sign?token=%s", l.baseURL, documentID, token)
}

// DownloadURL builds the absolute URL for viewing a completed document.
func (l *LinkIssuer) DownloadURL(documentID uuid.UUID) string {
	return fmt.Sprintf("%s/documents/%s", l.baseURL, documentID)
}

// generateToken returns 128 bits of hex-encoded randomness.
func generateToken() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

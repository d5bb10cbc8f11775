package signatures

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeSignatureRepo struct {
	sigs map[uuid.UUID]*Signature
}

func newFakeSignatureRepo() *fakeSignatureRepo {
	return &fakeSignatureRepo{sigs: make(map[uuid.UUID]*Signature)}
}

func (f *fakeSignatureRepo) CreateSignature(_ context.Context, sig *Signature) error {
	cp := *sig
	f.sigs[sig.ID] = &cp
	return nil
}

func (f *fakeSignatureRepo) GetSignatureByID(_ context.Context, id uuid.UUID) (*Signature, error) {
	sig, ok := f.sigs[id]
	if !ok {
		return nil, nil
	}
	cp := *sig
	return &cp, nil
}

func (f *fakeSignatureRepo) ListSignatures(_ context.Context, userID uuid.UUID) ([]Signature, error) {
	var out []Signature
	for _, sig := range f.sigs {
		if sig.UserID == userID {
			out = append(out, *sig)
		}
	}
	return out, nil
}

func (f *fakeSignatureRepo) DeleteSignature(_ context.Context, id uuid.UUID) error {
	delete(f.sigs, id)
	return nil
}

func (f *fakeSignatureRepo) ClearDefault(_ context.Context, userID uuid.UUID) error {
	for _, sig := range f.sigs {
		if sig.UserID == userID {
			sig.IsDefault = false
		}
	}
	return nil
}

func (f *fakeSignatureRepo) SetDefault(_ context.Context, id uuid.UUID) error {
	if sig, ok := f.sigs[id]; ok {
		sig.IsDefault = true
	}
	return nil
}

func TestCreateSignatureReplacesDefault(t *testing.T) {
	repo := newFakeSignatureRepo()
	svc := NewService(repo, zap.NewNop())
	userID := uuid.New()
	ctx := context.Background()

	first, err := svc.CreateSignature(ctx, userID, CreateSignatureRequest{
		ImageURL: "https://files/sig1.png", IsDefault: true,
	})
	require.NoError(t, err)
	assert.True(t, first.IsDefault)

	second, err := svc.CreateSignature(ctx, userID, CreateSignatureRequest{
		ImageURL: "https://files/sig2.png", IsDefault: true,
	})
	require.NoError(t, err)
	assert.True(t, second.IsDefault)

	stored, err := repo.GetSignatureByID(ctx, first.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsDefault)
}

func TestSetDefault(t *testing.T) {
	repo := newFakeSignatureRepo()
	svc := NewService(repo, zap.NewNop())
	userID := uuid.New()
	ctx := context.Background()

	first, err := svc.CreateSignature(ctx, userID, CreateSignatureRequest{
		ImageURL: "https://files/sig1.png", IsDefault: true,
	})
	require.NoError(t, err)
	second, err := svc.CreateSignature(ctx, userID, CreateSignatureRequest{
		ImageURL: "https://files/sig2.png",
	})
	require.NoError(t, err)

	promoted, err := svc.SetDefault(ctx, second.ID, userID)
	require.NoError(t, err)
	assert.True(t, promoted.IsDefault)

	stored, err := repo.GetSignatureByID(ctx, first.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsDefault)
}

func TestDeleteSignatureOwnership(t *testing.T) {
	repo := newFakeSignatureRepo()
	svc := NewService(repo, zap.NewNop())
	userID := uuid.New()
	ctx := context.Background()

	sig, err := svc.CreateSignature(ctx, userID, CreateSignatureRequest{ImageURL: "https://files/sig.png"})
	require.NoError(t, err)

	err = svc.DeleteSignature(ctx, sig.ID, uuid.New())
	assert.ErrorIs(t, err, ErrForbidden)

	err = svc.DeleteSignature(ctx, uuid.New(), userID)
	assert.ErrorIs(t, err, ErrSignatureNotFound)

	require.NoError(t, svc.DeleteSignature(ctx, sig.ID, userID))
}

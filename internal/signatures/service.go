package signatures

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrSignatureNotFound = errors.New("signature not found")
	ErrForbidden         = errors.New("not authorized to access this signature")
)

type Service struct {
	repo   Repository
	logger *zap.Logger
	now    func() time.Time
}

func NewService(repo Repository, logger *zap.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger.With(zap.String("service", "signatures")),
		now:    time.Now,
	}
}

func (s *Service) ListSignatures(ctx context.Context, userID uuid.UUID) ([]Signature, error) {
	return s.repo.ListSignatures(ctx, userID)
}

// CreateSignature stores a drawn signature image. Setting isDefault
// clears any previous default for the user.
func (s *Service) CreateSignature(ctx context.Context, userID uuid.UUID, req CreateSignatureRequest) (*Signature, error) {
	if req.IsDefault {
		if err := s.repo.ClearDefault(ctx, userID); err != nil {
			return nil, fmt.Errorf("clear default signature: %w", err)
		}
	}

	now := s.now()
	sig := &Signature{
		ID:        uuid.New(),
		UserID:    userID,
		ImageURL:  req.ImageURL,
		ImageKey:  fmt.Sprintf("signatures/%d-%s", now.UnixMilli(), userID),
		IsDefault: req.IsDefault,
		CreatedAt: now,
	}
	if err := s.repo.CreateSignature(ctx, sig); err != nil {
		return nil, fmt.Errorf("create signature: %w", err)
	}
	return sig, nil
}

func (s *Service) DeleteSignature(ctx context.Context, id, userID uuid.UUID) error {
	sig, err := s.ownedSignature(ctx, id, userID)
	if err != nil {
		return err
	}
	return s.repo.DeleteSignature(ctx, sig.ID)
}

// SetDefault makes the given signature the user's default, demoting the
// previous one.
func (s *Service) SetDefault(ctx context.Context, id, userID uuid.UUID) (*Signature, error) {
	sig, err := s.ownedSignature(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.ClearDefault(ctx, userID); err != nil {
		return nil, fmt.Errorf("clear default signature: %w", err)
	}
	if err := s.repo.SetDefault(ctx, sig.ID); err != nil {
		return nil, fmt.Errorf("set default signature: %w", err)
	}
	sig.IsDefault = true
	return sig, nil
}

func (s *Service) ownedSignature(ctx context.Context, id, userID uuid.UUID) (*Signature, error) {
	sig, err := s.repo.GetSignatureByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if sig == nil {
		return nil, ErrSignatureNotFound
	}
	if sig.UserID != userID {
		return nil, ErrForbidden
	}
	return sig, nil
}

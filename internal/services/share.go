package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/gemforge/backend/internal/ledger"
	"github.com/gemforge/backend/internal/models"
)

// ShareImageCost is debited each time an image is made public.
const ShareImageCost = 1

// ShareImageRepo is the subset of repository.ImageRepo sharing needs.
type ShareImageRepo interface {
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.Image, error)
	MarkPublic(ctx context.Context, tx pgx.Tx, id uuid.UUID) (bool, error)
}

// TicketRepo grants tickets inside a transaction.
type TicketRepo interface {
	AddTickets(ctx context.Context, tx pgx.Tx, id uuid.UUID, n int) (int, error)
}

type ShareResult struct {
	ImageID         uuid.UUID `json:"imageId"`
	NewDiamondCount int       `json:"newDiamondCount"`
	Tickets         int       `json:"tickets"`
}

type ShareService struct {
	images  ShareImageRepo
	tickets TicketRepo
	ledger  ledger.Service
}

func NewShareService(images ShareImageRepo, tickets TicketRepo, l ledger.Service) *ShareService {
	return &ShareService{images: images, tickets: tickets, ledger: l}
}

// Share makes the caller's image public. Ownership and visibility are checked
// before any debit, and debit, publish and ticket grant commit together.
func (s *ShareService) Share(ctx context.Context, userID, imageID uuid.UUID) (*ShareResult, error) {
	tx, err := s.ledger.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	img, err := s.images.GetByIDForUpdate(ctx, tx, imageID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrImageNotFound
		}
		return nil, fmt.Errorf("lock image: %w", err)
	}
	if img.UserID != userID {
		return nil, ErrForbidden
	}
	if img.IsPublic {
		return nil, ErrAlreadyPublic
	}

	newBalance, err := s.ledger.Debit(ctx, tx, userID, ShareImageCost, models.ReasonShareImage, "share image "+imageID.String())
	if err != nil {
		return nil, err
	}
	updated, err := s.images.MarkPublic(ctx, tx, imageID)
	if err != nil {
		return nil, fmt.Errorf("mark public: %w", err)
	}
	if !updated {
		return nil, ErrAlreadyPublic
	}
	tickets, err := s.tickets.AddTickets(ctx, tx, userID, 1)
	if err != nil {
		return nil, fmt.Errorf("grant ticket: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &ShareResult{ImageID: imageID, NewDiamondCount: newBalance, Tickets: tickets}, nil
}

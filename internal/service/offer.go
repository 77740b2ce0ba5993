package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/earnhub/backend/internal/clock"
	"github.com/earnhub/backend/internal/model"
)

type OfferService struct {
	store    Store
	adminSvc *AdminService
	clock    clock.Clock
	log      *zap.Logger
}

func NewOfferService(store Store, c clock.Clock, log *zap.Logger) *OfferService {
	return &OfferService{store: store, clock: c, log: log}
}

// SetAdminService sets the admin service (to avoid circular deps)
func (s *OfferService) SetAdminService(adminSvc *AdminService) {
	s.adminSvc = adminSvc
}

type OfferInput struct {
	Title        string
	Description  *string
	Link         string
	RewardAmount decimal.Decimal
	IsActive     *bool
}

// OfferPatch leaves nil fields unchanged.
type OfferPatch struct {
	Title        *string
	Description  *string
	Link         *string
	RewardAmount *decimal.Decimal
	IsActive     *bool
}

func (s *OfferService) List(ctx context.Context, activeOnly bool) ([]model.Offer, error) {
	return s.store.ListOffers(ctx, activeOnly)
}

func (s *OfferService) Get(ctx context.Context, id uuid.UUID) (*model.Offer, error) {
	return s.store.GetOffer(ctx, id)
}

// Available returns an offer the earning flow may pay out on.
func (s *OfferService) Available(ctx context.Context, id uuid.UUID) (*model.Offer, error) {
	offer, err := s.store.GetOffer(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w: offer not found", ErrInvalidOffer)
		}
		return nil, err
	}
	if !offer.Available() {
		return nil, fmt.Errorf("%w: offer is not active", ErrInvalidOffer)
	}
	return offer, nil
}

func (s *OfferService) Create(ctx context.Context, adminID int64, in OfferInput) (*model.Offer, error) {
	now := s.clock.Now()
	offer := &model.Offer{
		ID:           uuid.New(),
		Title:        strings.TrimSpace(in.Title),
		Description:  in.Description,
		Link:         strings.TrimSpace(in.Link),
		RewardAmount: in.RewardAmount,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if in.IsActive != nil {
		offer.IsActive = *in.IsActive
	}
	if err := validateOffer(offer); err != nil {
		return nil, err
	}

	if err := s.store.CreateOffer(ctx, offer); err != nil {
		return nil, err
	}
	s.logAction(ctx, adminID, model.AdminActionCreateOffer, offer)
	return offer, nil
}

func (s *OfferService) Update(ctx context.Context, adminID int64, id uuid.UUID, p OfferPatch) (*model.Offer, error) {
	offer, err := s.store.GetOffer(ctx, id)
	if err != nil {
		return nil, err
	}
	if offer.DeletedAt != nil {
		return nil, fmt.Errorf("offer %s: %w", id, ErrNotFound)
	}

	if p.Title != nil {
		offer.Title = strings.TrimSpace(*p.Title)
	}
	if p.Description != nil {
		offer.Description = p.Description
	}
	if p.Link != nil {
		offer.Link = strings.TrimSpace(*p.Link)
	}
	if p.RewardAmount != nil {
		offer.RewardAmount = *p.RewardAmount
	}
	if p.IsActive != nil {
		offer.IsActive = *p.IsActive
	}
	if err := validateOffer(offer); err != nil {
		return nil, err
	}

	offer.UpdatedAt = s.clock.Now()
	if err := s.store.UpdateOffer(ctx, offer); err != nil {
		return nil, err
	}
	s.logAction(ctx, adminID, model.AdminActionUpdateOffer, offer)
	return offer, nil
}

// Delete hides the offer. Earnings that reference it keep their history.
func (s *OfferService) Delete(ctx context.Context, adminID int64, id uuid.UUID) error {
	offer, err := s.store.GetOffer(ctx, id)
	if err != nil {
		return err
	}
	if offer.DeletedAt != nil {
		return fmt.Errorf("offer %s: %w", id, ErrNotFound)
	}

	now := s.clock.Now()
	offer.IsActive = false
	offer.DeletedAt = &now
	offer.UpdatedAt = now
	if err := s.store.UpdateOffer(ctx, offer); err != nil {
		return err
	}
	s.logAction(ctx, adminID, model.AdminActionDeleteOffer, map[string]interface{}{"offer_id": id})
	return nil
}

func (s *OfferService) logAction(ctx context.Context, adminID int64, action string, details interface{}) {
	s.log.Info("offer changed", zap.Int64("admin_id", adminID), zap.String("action", action))
	if s.adminSvc != nil {
		s.adminSvc.LogAction(ctx, adminID, action, nil, details)
	}
}

func validateOffer(o *model.Offer) error {
	if o.Title == "" {
		return fmt.Errorf("%w: title is required", ErrValidation)
	}
	if !o.RewardAmount.IsPositive() {
		return fmt.Errorf("%w: reward_amount must be positive", ErrValidation)
	}
	if !model.IsMoney(o.RewardAmount) {
		return fmt.Errorf("%w: reward_amount must have at most %d decimal places and %d integer digits", ErrValidation, model.MoneyPlaces, model.MoneyIntDigits)
	}
	u, err := url.Parse(o.Link)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: link must be an absolute http(s) URL", ErrValidation)
	}
	return nil
}

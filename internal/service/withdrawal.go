package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/earnhub/backend/internal/clock"
	"github.com/earnhub/backend/internal/model"
	"github.com/earnhub/backend/internal/repository"
	"github.com/earnhub/backend/internal/ton"
)

// Notifier interface for sending notifications (implemented by telegram.Bot)
type Notifier interface {
	NotifyWithdrawalRequested(w *model.Withdrawal) error
	NotifyWithdrawalStatus(w *model.Withdrawal) error
}

type WithdrawalService struct {
	store    Store
	ledger   *LedgerService
	adminSvc *AdminService
	clock    clock.Clock
	tonNet   ton.Network
	notifier Notifier
	log      *zap.Logger
}

func NewWithdrawalService(store Store, ledger *LedgerService, c clock.Clock, tonNet ton.Network, log *zap.Logger) *WithdrawalService {
	return &WithdrawalService{store: store, ledger: ledger, clock: c, tonNet: tonNet, log: log}
}

// SetNotifier sets the notifier for sending notifications
func (s *WithdrawalService) SetNotifier(notifier Notifier) {
	s.notifier = notifier
}

// SetAdminService sets the admin service (to avoid circular deps)
func (s *WithdrawalService) SetAdminService(adminSvc *AdminService) {
	s.adminSvc = adminSvc
}

type WithdrawalRequest struct {
	Amount      decimal.Decimal
	Method      model.PaymentMethod
	Destination string
}

// Request validates the payout destination and places a hold for the amount.
func (s *WithdrawalService) Request(ctx context.Context, userID int64, req WithdrawalRequest) (*model.Withdrawal, error) {
	if !req.Method.Valid() {
		return nil, fmt.Errorf("%w: payment method must be 'ton' or 'bkash'", ErrValidation)
	}
	dest, err := s.normalizeDestination(req.Method, req.Destination)
	if err != nil {
		return nil, err
	}

	w, err := s.ledger.HoldForWithdrawal(ctx, userID, HoldRequest{
		Amount:      req.Amount,
		Method:      req.Method,
		Destination: dest,
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("withdrawal requested",
		zap.Int64("user_id", userID),
		zap.String("withdrawal_id", w.ID.String()),
		zap.String("amount", w.Amount.String()))
	s.notify(w, true)
	return w, nil
}

// Cancel is only available to the owner while the request is pending.
// Other users' requests are reported as not found.
func (s *WithdrawalService) Cancel(ctx context.Context, userID int64, id uuid.UUID) (*model.Withdrawal, error) {
	var w *model.Withdrawal
	err := s.store.InUserTx(ctx, userID, func(tx repository.UserTx) error {
		var err error
		w, err = tx.GetWithdrawal(id)
		if err != nil {
			return err
		}
		return s.transitionTx(tx, w, model.WithdrawalActionCancel, nil, nil)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("withdrawal cancelled", zap.Int64("user_id", userID), zap.String("withdrawal_id", id.String()))
	return w, nil
}

// UpdateStatus applies an admin transition. Notes, when given, replace the
// current admin notes in the same write.
func (s *WithdrawalService) UpdateStatus(ctx context.Context, adminID int64, id uuid.UUID, target model.WithdrawalStatus, notes *string) (*model.Withdrawal, error) {
	action, ok := model.AdminActionFor(target)
	if !ok {
		return nil, fmt.Errorf("%w: admins cannot set status %q", ErrInvalidTransition, target)
	}

	w, err := s.lockedUpdate(ctx, id, func(tx repository.UserTx, w *model.Withdrawal) error {
		from := w.Status
		if err := s.transitionTx(tx, w, action, notes, &adminID); err != nil {
			return err
		}
		s.log.Info("withdrawal status changed",
			zap.Int64("admin_id", adminID),
			zap.String("withdrawal_id", id.String()),
			zap.String("from", string(from)),
			zap.String("to", string(w.Status)))
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.adminSvc != nil {
		s.adminSvc.LogAction(ctx, adminID, model.AdminActionUpdateWithdrawal, &w.UserID, map[string]interface{}{
			"withdrawal_id": w.ID,
			"status":        w.Status,
			"admin_notes":   w.AdminNotes,
		})
	}
	s.notify(w, false)
	return w, nil
}

// UpdateNotes changes admin notes on a request that is not yet terminal.
func (s *WithdrawalService) UpdateNotes(ctx context.Context, adminID int64, id uuid.UUID, notes string) (*model.Withdrawal, error) {
	w, err := s.lockedUpdate(ctx, id, func(tx repository.UserTx, w *model.Withdrawal) error {
		if w.Status.IsTerminal() {
			return fmt.Errorf("%w: withdrawal is already %s", ErrInvalidState, w.Status)
		}
		w.AdminNotes = optional(strings.TrimSpace(notes))
		w.UpdatedAt = s.clock.Now()
		return tx.UpdateWithdrawal(w)
	})
	if err != nil {
		return nil, err
	}

	if s.adminSvc != nil {
		s.adminSvc.LogAction(ctx, adminID, model.AdminActionWithdrawalNotes, &w.UserID, map[string]interface{}{
			"withdrawal_id": w.ID,
			"admin_notes":   w.AdminNotes,
		})
	}
	return w, nil
}

func (s *WithdrawalService) Get(ctx context.Context, id uuid.UUID) (*model.Withdrawal, error) {
	return s.store.GetWithdrawal(ctx, id)
}

func (s *WithdrawalService) ListForUser(ctx context.Context, userID int64, page model.Page) ([]model.Withdrawal, model.Pagination, error) {
	rows, total, err := s.store.ListWithdrawals(ctx, model.WithdrawalFilter{UserID: &userID}, page.Limit(), page.Offset())
	if err != nil {
		return nil, model.Pagination{}, err
	}
	out := make([]model.Withdrawal, len(rows))
	for i, r := range rows {
		out[i] = r.Withdrawal
	}
	return out, page.Paginate(total), nil
}

func (s *WithdrawalService) ListForAdmin(ctx context.Context, status *model.WithdrawalStatus, page model.Page) ([]model.WithdrawalWithUser, model.Pagination, error) {
	rows, total, err := s.store.ListWithdrawals(ctx, model.WithdrawalFilter{Status: status}, page.Limit(), page.Offset())
	if err != nil {
		return nil, model.Pagination{}, err
	}
	return rows, page.Paginate(total), nil
}

// lockedUpdate finds the owner of a withdrawal, then re-reads the row under
// the owner's lock before handing it to fn.
func (s *WithdrawalService) lockedUpdate(ctx context.Context, id uuid.UUID, fn func(repository.UserTx, *model.Withdrawal) error) (*model.Withdrawal, error) {
	current, err := s.store.GetWithdrawal(ctx, id)
	if err != nil {
		return nil, err
	}

	var w *model.Withdrawal
	err = s.store.InUserTx(ctx, current.UserID, func(tx repository.UserTx) error {
		var err error
		w, err = tx.GetWithdrawal(id)
		if err != nil {
			return err
		}
		return fn(tx, w)
	})
	if err != nil {
		return nil, err
	}
	return w, nil
}

// transitionTx moves w along the state machine and applies the ledger side
// effect of the new state. The caller holds the owner's lock.
func (s *WithdrawalService) transitionTx(tx repository.UserTx, w *model.Withdrawal, action model.WithdrawalAction, notes *string, resolvedBy *int64) error {
	if w.Status.IsTerminal() {
		return fmt.Errorf("%w: withdrawal is already %s", ErrInvalidState, w.Status)
	}
	next, ok := model.NextWithdrawalStatus(w.Status, action)
	if !ok {
		if action == model.WithdrawalActionCancel {
			return fmt.Errorf("%w: only pending withdrawals can be cancelled", ErrInvalidState)
		}
		return fmt.Errorf("%w: cannot %s a withdrawal that is %s", ErrInvalidTransition, action, w.Status)
	}

	now := s.clock.Now()
	w.Status = next
	w.UpdatedAt = now
	if notes != nil {
		w.AdminNotes = optional(strings.TrimSpace(*notes))
	}
	if next.IsTerminal() && w.ResolvedAt == nil {
		w.ResolvedAt = &now
		w.ResolvedBy = resolvedBy
	}

	switch next {
	case model.WithdrawalStatusRejected, model.WithdrawalStatusCancelled:
		return s.ledger.releaseTx(tx, w)
	case model.WithdrawalStatusCompleted:
		return s.ledger.finalizeTx(tx, w)
	default:
		return tx.UpdateWithdrawal(w)
	}
}

func (s *WithdrawalService) notify(w *model.Withdrawal, requested bool) {
	if s.notifier == nil {
		return
	}
	snapshot := *w
	go func() {
		var err error
		if requested {
			err = s.notifier.NotifyWithdrawalRequested(&snapshot)
		} else {
			err = s.notifier.NotifyWithdrawalStatus(&snapshot)
		}
		if err != nil {
			s.log.Warn("failed to send withdrawal notification",
				zap.String("withdrawal_id", snapshot.ID.String()),
				zap.Error(err))
		}
	}()
}

// bKash wallets are Bangladeshi mobile numbers: 01[3-9] followed by 8 digits.
var bkashNumber = regexp.MustCompile(`^01[3-9][0-9]{8}$`)

func (s *WithdrawalService) normalizeDestination(method model.PaymentMethod, dest string) (string, error) {
	dest = strings.TrimSpace(dest)
	if dest == "" {
		return "", fmt.Errorf("%w: destination is required", ErrValidation)
	}

	switch method {
	case model.PaymentMethodBkash:
		n := strings.NewReplacer(" ", "", "-", "").Replace(dest)
		n = strings.TrimPrefix(n, "+")
		if strings.HasPrefix(n, "880") {
			n = n[2:]
		}
		if !bkashNumber.MatchString(n) {
			return "", fmt.Errorf("%w: invalid bKash number", ErrValidation)
		}
		return n, nil
	case model.PaymentMethodTON:
		addr, err := ton.NormalizeAddress(dest, s.tonNet)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrValidation, err)
		}
		return addr, nil
	}
	return "", fmt.Errorf("%w: unknown payment method", ErrValidation)
}

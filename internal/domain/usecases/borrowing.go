// Package usecases - borrowing.go handles checkout requests, approvals and returns.
package usecases

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/0xcro3dile/chemstock/internal/domain/entities"
	"github.com/0xcro3dile/chemstock/internal/domain/ports"
)

// BorrowingUseCase moves borrowings through their lifecycle and keeps stock
// in step with it.
type BorrowingUseCase struct {
	borrowings ports.BorrowingRepository
	chemicals  ports.ChemicalRepository
	notifier   *NotificationUseCase
	logger     *zap.Logger
	loanPeriod time.Duration
	now        func() time.Time
}

// NewBorrowingUseCase creates a BorrowingUseCase. notifier may be nil.
func NewBorrowingUseCase(
	borrowings ports.BorrowingRepository,
	chemicals ports.ChemicalRepository,
	notifier *NotificationUseCase,
	logger *zap.Logger,
	loanPeriod time.Duration,
) *BorrowingUseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loanPeriod <= 0 {
		loanPeriod = 7 * 24 * time.Hour
	}
	return &BorrowingUseCase{
		borrowings: borrowings,
		chemicals:  chemicals,
		notifier:   notifier,
		logger:     logger,
		loanPeriod: loanPeriod,
		now:        time.Now,
	}
}

// Request opens a pending borrowing for userID.
func (uc *BorrowingUseCase) Request(ctx context.Context, userID string, req entities.BorrowingRequest) (*entities.Borrowing, error) {
	if req.Quantity <= 0 {
		return nil, fmt.Errorf("%w: quantity must be positive", entities.ErrValidation)
	}
	chem, err := uc.chemicals.Get(ctx, req.ChemicalID)
	if err != nil {
		return nil, err
	}
	if req.Quantity > chem.Quantity {
		return nil, fmt.Errorf("%w: %s has %.2f %s left", entities.ErrInsufficientStock, chem.Name, chem.Quantity, chem.Unit)
	}

	b := &entities.Borrowing{
		ID:          uuid.NewString(),
		ChemicalID:  chem.ID,
		UserID:      userID,
		Quantity:    req.Quantity,
		Purpose:     req.Purpose,
		Status:      entities.BorrowingPending,
		RequestedAt: uc.now(),
		DueAt:       req.DueAt,
	}
	if err := uc.borrowings.CreateBorrowing(ctx, b); err != nil {
		return nil, err
	}
	uc.logger.Info("borrowing requested", zap.String("id", b.ID), zap.String("chemical_id", chem.ID))
	return b, nil
}

// Approve checks the chemical out: stock is decremented and the borrowing
// becomes approved. Both happen in one repository step, so concurrent
// approvals of the same borrowing take stock once.
func (uc *BorrowingUseCase) Approve(ctx context.Context, id, approverID string) (*entities.Borrowing, error) {
	b, err := uc.transition(ctx, id, entities.BorrowingApproved)
	if err != nil {
		return nil, err
	}

	now := uc.now()
	next := *b
	next.Status = entities.BorrowingApproved
	next.ApprovedBy = approverID
	next.BorrowedAt = &now
	if next.DueAt == nil {
		due := now.Add(uc.loanPeriod)
		next.DueAt = &due
	}
	chem, err := uc.borrowings.TransitionBorrowing(ctx, &next, b.Status, -b.Quantity)
	if err != nil {
		return nil, err
	}

	uc.notify(ctx, next.UserID, "Borrowing approved",
		fmt.Sprintf("Your request for %.2f %s of %s was approved. Due %s.", next.Quantity, chem.Unit, chem.Name, next.DueAt.Format("2006-01-02")))
	return &next, nil
}

// Reject declines a pending borrowing.
func (uc *BorrowingUseCase) Reject(ctx context.Context, id, approverID string) (*entities.Borrowing, error) {
	b, err := uc.transition(ctx, id, entities.BorrowingRejected)
	if err != nil {
		return nil, err
	}

	next := *b
	next.Status = entities.BorrowingRejected
	next.ApprovedBy = approverID
	if _, err := uc.borrowings.TransitionBorrowing(ctx, &next, b.Status, 0); err != nil {
		return nil, err
	}
	uc.notify(ctx, next.UserID, "Borrowing rejected", "Your borrowing request was rejected.")
	return &next, nil
}

// Return closes an approved borrowing and puts the quantity back in stock.
func (uc *BorrowingUseCase) Return(ctx context.Context, id string) (*entities.Borrowing, error) {
	b, err := uc.transition(ctx, id, entities.BorrowingReturned)
	if err != nil {
		return nil, err
	}

	now := uc.now()
	next := *b
	next.Status = entities.BorrowingReturned
	next.ReturnedAt = &now
	chem, err := uc.borrowings.TransitionBorrowing(ctx, &next, b.Status, b.Quantity)
	if err != nil {
		return nil, err
	}
	uc.notify(ctx, next.UserID, "Borrowing returned", fmt.Sprintf("Return of %s recorded.", chem.Name))
	return &next, nil
}

// Get returns one borrowing.
func (uc *BorrowingUseCase) Get(ctx context.Context, id string) (*entities.Borrowing, error) {
	return uc.borrowings.GetBorrowing(ctx, id)
}

// ListForUser returns the borrowings of userID.
func (uc *BorrowingUseCase) ListForUser(ctx context.Context, userID string) ([]entities.Borrowing, error) {
	return uc.borrowings.ListBorrowings(ctx, entities.BorrowingFilter{UserID: userID})
}

// ListAll returns borrowings, optionally narrowed to one status.
func (uc *BorrowingUseCase) ListAll(ctx context.Context, status entities.BorrowingStatus) ([]entities.Borrowing, error) {
	return uc.borrowings.ListBorrowings(ctx, entities.BorrowingFilter{Status: status})
}

// Overdue returns approved borrowings whose due date is before now.
func (uc *BorrowingUseCase) Overdue(ctx context.Context, now time.Time) ([]entities.Borrowing, error) {
	active, err := uc.borrowings.ListBorrowings(ctx, entities.BorrowingFilter{Status: entities.BorrowingApproved})
	if err != nil {
		return nil, err
	}
	var out []entities.Borrowing
	for _, b := range active {
		if b.DueAt != nil && b.DueAt.Before(now) {
			out = append(out, b)
		}
	}
	return out, nil
}

// RemindOverdue notifies every borrower with an overdue borrowing and
// returns how many reminders were sent.
func (uc *BorrowingUseCase) RemindOverdue(ctx context.Context) (int, error) {
	overdue, err := uc.Overdue(ctx, uc.now())
	if err != nil {
		return 0, err
	}
	for _, b := range overdue {
		uc.notify(ctx, b.UserID, "Borrowing overdue",
			fmt.Sprintf("Borrowing %s was due %s. Please return it.", b.ID, b.DueAt.Format("2006-01-02")))
	}
	return len(overdue), nil
}

// transition loads a borrowing and rejects moves its current status does
// not allow. The repository re-checks the status when the move is stored.
func (uc *BorrowingUseCase) transition(ctx context.Context, id string, next entities.BorrowingStatus) (*entities.Borrowing, error) {
	b, err := uc.borrowings.GetBorrowing(ctx, id)
	if err != nil {
		return nil, err
	}
	if !b.Status.CanTransition(next) {
		return nil, fmt.Errorf("%w: %s -> %s", entities.ErrInvalidTransition, b.Status, next)
	}
	return b, nil
}

func (uc *BorrowingUseCase) notify(ctx context.Context, userID, title, body string) {
	if uc.notifier == nil {
		return
	}
	if _, err := uc.notifier.Notify(ctx, userID, title, body); err != nil && !errors.Is(err, context.Canceled) {
		uc.logger.Warn("notification failed", zap.String("user_id", userID), zap.Error(err))
	}
}

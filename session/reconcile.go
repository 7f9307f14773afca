package session

import (
	"context"
	"errors"
	"fmt"

	"propsignal/models"
)

var (
	ErrNotCorrelatable = errors.New("session has no identifier")
	ErrNoSignal        = errors.New("no signal for this session and listing")
)

// SignalStore is the slice of the document store reconciliation needs
type SignalStore interface {
	FindLatestSignal(ctx context.Context, listingID, sessionID, kind string) (*models.Signal, error)
	UpdateSignal(ctx context.Context, id string, patch models.SignalPatch) error
	ListSignalsForSession(ctx context.Context, sessionID string) ([]models.Signal, error)
}

// Reconciler promotes anonymous signals to an identified account.
// Promotion is one-way; nothing here clears a user reference.
type Reconciler struct {
	store SignalStore
}

func NewReconciler(store SignalStore) *Reconciler {
	return &Reconciler{store: store}
}

// Promote writes accountID, plus any extra fields in patch, onto the most
// recent signal for (listing, session). The amount is never changed.
func (r *Reconciler) Promote(ctx context.Context, sc SessionContext, listingID, accountID string, patch models.SignalPatch) (*models.Signal, error) {
	if !sc.Correlatable() {
		return nil, ErrNotCorrelatable
	}

	sig, err := r.store.FindLatestSignal(ctx, listingID, sc.SessionID, "")
	if err != nil {
		return nil, fmt.Errorf("find signal: %w", err)
	}
	if sig == nil {
		return nil, ErrNoSignal
	}

	patch.Amount = nil
	patch.UserID = &accountID
	if err := r.store.UpdateSignal(ctx, sig.ID, patch); err != nil {
		return nil, fmt.Errorf("update signal %s: %w", sig.ID, err)
	}

	sig.UserID = &accountID
	if patch.Serious != nil {
		sig.Serious = *patch.Serious
	}
	if patch.Qualification != nil {
		sig.Qualification = *patch.Qualification
	}
	return sig, nil
}

// LinkSession attaches accountID to every signal of the session that has no
// user yet. It returns the number of signals linked.
func (r *Reconciler) LinkSession(ctx context.Context, sc SessionContext, accountID string) (int, error) {
	if !sc.Correlatable() {
		return 0, ErrNotCorrelatable
	}

	signals, err := r.store.ListSignalsForSession(ctx, sc.SessionID)
	if err != nil {
		return 0, fmt.Errorf("list session signals: %w", err)
	}

	linked := 0
	for _, sig := range signals {
		if sig.UserID != nil {
			continue
		}
		if err := r.store.UpdateSignal(ctx, sig.ID, models.SignalPatch{UserID: &accountID}); err != nil {
			return linked, fmt.Errorf("link signal %s: %w", sig.ID, err)
		}
		linked++
	}
	return linked, nil
}

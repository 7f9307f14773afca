package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"propsignal/identity"
	"propsignal/logging"
	"propsignal/metrics"
	"propsignal/models"
	"propsignal/session"
	"propsignal/storage"
)

// OpinionEngine holds one visitor's price opinion for one listing. It is
// per-session state and is not shared between goroutines.
type OpinionEngine struct {
	store     OpinionStore
	sc        session.SessionContext
	listingID string
	rng       PriceRange

	current   int64
	savedID   string
	adjusting bool
}

// NewOpinionEngine computes the band for the listing. Call Load before use.
func NewOpinionEngine(store OpinionStore, pricing Pricing, sc session.SessionContext, listing *models.Listing) *OpinionEngine {
	rng := pricing.Range(listing.Price, listing.Estimate)
	return &OpinionEngine{
		store:     store,
		sc:        sc,
		listingID: listing.ID.String(),
		rng:       rng,
		current:   rng.Midpoint,
	}
}

func (e *OpinionEngine) Range() PriceRange     { return e.rng }
func (e *OpinionEngine) Value() int64          { return e.current }
func (e *OpinionEngine) SavedSignalID() string { return e.savedID }
func (e *OpinionEngine) Adjusting() bool       { return e.adjusting }

// Load seeds the current value from this session's most recent opinion, or
// from the midpoint when there is none
func (e *OpinionEngine) Load(ctx context.Context) error {
	e.current = e.rng.Midpoint
	e.savedID = ""
	if !e.sc.Correlatable() {
		return nil
	}

	sig, err := e.store.FindLatestSignal(ctx, e.listingID, e.sc.SessionID, models.SignalKindOpinion)
	if err != nil {
		return fmt.Errorf("load opinion: %w", err)
	}
	if sig == nil {
		return nil
	}
	e.current = identity.RoundTo(float64(sig.Amount), e.rng.Step)
	e.savedID = sig.ID
	return nil
}

// BeginAdjustment marks the start of a drag gesture
func (e *OpinionEngine) BeginAdjustment() {
	e.adjusting = true
}

// SetValue moves the slider. Nothing is persisted. It returns the clamped value.
func (e *OpinionEngine) SetValue(v int64) int64 {
	e.current = e.rng.Clamp(v)
	return e.current
}

// EndAdjustment closes the gesture and persists the value current at this
// moment, exactly once
func (e *OpinionEngine) EndAdjustment(ctx context.Context) error {
	e.adjusting = false
	return e.Save(ctx)
}

// Save persists the current value. The first save for a session creates the
// signal under its deterministic key (or merges into it if another request got
// there first); later saves update the captured signal in place.
// A non-correlatable session skips persistence.
func (e *OpinionEngine) Save(ctx context.Context) error {
	if !e.sc.Correlatable() {
		metrics.RecordOpinionSave("skipped")
		return nil
	}

	amount := e.current
	logging.Debugf("Opinion: listing %s session %s amount %d saved=%q", e.listingID, e.sc.SessionID, amount, e.savedID)
	if e.savedID != "" {
		err := e.store.UpdateSignal(ctx, e.savedID, models.SignalPatch{Amount: &amount})
		if err == nil {
			metrics.RecordOpinionSave("updated")
			return nil
		}
		if !errors.Is(err, storage.ErrNotFound) {
			metrics.RecordOpinionSave("failed")
			log.Printf("Opinion: update %s failed: %v", e.savedID, err)
			return fmt.Errorf("save opinion: %w", err)
		}
	}

	sig := &models.Signal{
		ID:        identity.SignalKey(e.listingID, e.sc.SessionID, models.SignalKindOpinion),
		ListingID: e.listingID,
		Kind:      models.SignalKindOpinion,
		SessionID: e.sc.SessionID,
		Amount:    amount,
		FromWeb:   true,
	}
	if err := e.store.UpsertSignal(ctx, sig); err != nil {
		metrics.RecordOpinionSave("failed")
		log.Printf("Opinion: upsert %s failed: %v", sig.ID, err)
		return fmt.Errorf("save opinion: %w", err)
	}
	e.savedID = sig.ID
	metrics.RecordOpinionSave("created")
	return nil
}

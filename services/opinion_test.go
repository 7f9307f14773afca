package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"propsignal/identity"
	"propsignal/models"
	"propsignal/session"
	"propsignal/storage"
)

func millionListing() *models.Listing {
	return &models.Listing{ID: uuid.New(), Price: "$1,000,000"}
}

func opinionsFor(t *testing.T, store *storage.MemoryStore, listing *models.Listing, sessionID string) []models.Signal {
	t.Helper()
	all, err := store.ListSignalsForListing(context.Background(), listing.ID.String(), models.SignalKindOpinion)
	if err != nil {
		t.Fatalf("list signals: %v", err)
	}
	var out []models.Signal
	for _, s := range all {
		if s.SessionID == sessionID {
			out = append(out, s)
		}
	}
	return out
}

func TestOpinionDragAndReload(t *testing.T) {
	ctx := context.Background()
	store := newTestStore()
	listing := millionListing()
	sc := session.SessionContext{SessionID: "s-visitor"}

	engine := NewOpinionEngine(store, DefaultPricing(), sc, listing)
	if err := engine.Load(ctx); err != nil {
		t.Fatalf("load: %v", err)
	}
	if rng := engine.Range(); rng.Min != 750000 || rng.Max != 1250000 {
		t.Fatalf("unexpected range %+v", rng)
	}
	if engine.Value() != 1000000 {
		t.Fatalf("expected midpoint 1000000, got %d", engine.Value())
	}

	engine.BeginAdjustment()
	for _, v := range []int64{990000, 960000, 931200, 920000} {
		engine.SetValue(v)
	}
	if got := opinionsFor(t, store, listing, sc.SessionID); len(got) != 0 {
		t.Fatalf("SetValue must not persist, found %d signals", len(got))
	}
	if err := engine.EndAdjustment(ctx); err != nil {
		t.Fatalf("end adjustment: %v", err)
	}

	got := opinionsFor(t, store, listing, sc.SessionID)
	if len(got) != 1 {
		t.Fatalf("expected exactly one signal, got %d", len(got))
	}
	if got[0].Amount != 920000 || !got[0].FromWeb {
		t.Fatalf("unexpected signal %+v", got[0])
	}
	if got[0].ID != identity.SignalKey(listing.ID.String(), sc.SessionID, models.SignalKindOpinion) {
		t.Fatalf("signal not stored under its deterministic key")
	}

	reloaded := NewOpinionEngine(store, DefaultPricing(), sc, listing)
	if err := reloaded.Load(ctx); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.Value() != 920000 {
		t.Fatalf("expected resume at 920000, got %d", reloaded.Value())
	}
	if reloaded.SavedSignalID() != got[0].ID {
		t.Fatalf("expected saved id %s, got %s", got[0].ID, reloaded.SavedSignalID())
	}
}

func TestOpinionRepeatedSavesNeverDuplicate(t *testing.T) {
	ctx := context.Background()
	store := newTestStore()
	listing := millionListing()
	sc := session.SessionContext{SessionID: "s-repeat"}

	engine := NewOpinionEngine(store, DefaultPricing(), sc, listing)
	if err := engine.Load(ctx); err != nil {
		t.Fatalf("load: %v", err)
	}
	engine.SetValue(800000)
	if err := engine.Save(ctx); err != nil {
		t.Fatalf("first save: %v", err)
	}
	engine.SetValue(850000)
	if err := engine.Save(ctx); err != nil {
		t.Fatalf("second save: %v", err)
	}

	// A second engine for the same session that never loaded still lands on
	// the same document
	racer := NewOpinionEngine(store, DefaultPricing(), sc, listing)
	racer.SetValue(870000)
	if err := racer.Save(ctx); err != nil {
		t.Fatalf("racer save: %v", err)
	}

	got := opinionsFor(t, store, listing, sc.SessionID)
	if len(got) != 1 {
		t.Fatalf("expected one signal, got %d", len(got))
	}
	if got[0].Amount != 870000 {
		t.Fatalf("expected last write to win, got %d", got[0].Amount)
	}
}

func TestOpinionUpdatesLegacySignalInPlace(t *testing.T) {
	ctx := context.Background()
	store := newTestStore()
	listing := millionListing()
	sc := session.SessionContext{SessionID: "s-legacy"}

	store.InsertSignal(models.Signal{
		ID:        "legacy-random-id",
		ListingID: listing.ID.String(),
		Kind:      models.SignalKindOpinion,
		SessionID: sc.SessionID,
		Amount:    1100400,
	})

	engine := NewOpinionEngine(store, DefaultPricing(), sc, listing)
	if err := engine.Load(ctx); err != nil {
		t.Fatalf("load: %v", err)
	}
	if engine.Value() != 1100000 {
		t.Fatalf("expected amount rounded to 1100000, got %d", engine.Value())
	}

	engine.BeginAdjustment()
	engine.SetValue(1200000)
	if err := engine.EndAdjustment(ctx); err != nil {
		t.Fatalf("end: %v", err)
	}

	got := opinionsFor(t, store, listing, sc.SessionID)
	if len(got) != 1 || got[0].ID != "legacy-random-id" || got[0].Amount != 1200000 {
		t.Fatalf("expected legacy signal updated in place, got %+v", got)
	}
}

func TestOpinionUncorrelatedSkipsPersistence(t *testing.T) {
	ctx := context.Background()
	store := newTestStore()
	listing := millionListing()

	engine := NewOpinionEngine(store, DefaultPricing(), session.SessionContext{}, listing)
	if err := engine.Load(ctx); err != nil {
		t.Fatalf("load: %v", err)
	}
	engine.BeginAdjustment()
	engine.SetValue(900000)
	if err := engine.EndAdjustment(ctx); err != nil {
		t.Fatalf("end: %v", err)
	}
	if engine.Adjusting() {
		t.Fatalf("adjustment should be closed")
	}

	all, _ := store.ListSignalsForListing(ctx, listing.ID.String(), "")
	if len(all) != 0 {
		t.Fatalf("expected no signals, got %d", len(all))
	}
}

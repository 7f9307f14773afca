package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"propsignal/models"
	"propsignal/storage"
)

func tickingStore() *storage.MemoryStore {
	store := storage.NewMemoryStore()
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	store.SetClock(func() time.Time {
		now = now.Add(time.Second)
		return now
	})
	return store
}

func TestPromoteKeepsAmount(t *testing.T) {
	ctx := context.Background()
	store := tickingStore()
	store.UpsertSignal(ctx, &models.Signal{ID: "a", ListingID: "L1", SessionID: "s1", Kind: models.SignalKindOpinion, Amount: 920000})

	rc := NewReconciler(store)
	serious := true
	q := models.Qualification{BuyerType: models.BuyerTypeCash, SeriousnessLevel: models.SeriousnessReadyToBuy}
	amount := int64(1)
	sig, err := rc.Promote(ctx, SessionContext{SessionID: "s1"}, "L1", "acct-1", models.SignalPatch{
		Serious:       &serious,
		Qualification: &q,
		Amount:        &amount,
	})
	if err != nil {
		t.Fatalf("promote: %v", err)
	}
	if sig.ID != "a" {
		t.Fatalf("expected signal a, got %s", sig.ID)
	}

	stored, _ := store.GetSignal(ctx, "a")
	if stored.UserID == nil || *stored.UserID != "acct-1" {
		t.Fatalf("expected user acct-1, got %v", stored.UserID)
	}
	if !stored.Serious || !stored.Qualification.Complete() {
		t.Fatalf("expected serious with qualification, got %+v", stored)
	}
	if stored.Amount != 920000 {
		t.Fatalf("amount changed to %d", stored.Amount)
	}
}

func TestPromotePicksMostRecent(t *testing.T) {
	ctx := context.Background()
	store := tickingStore()
	store.UpsertSignal(ctx, &models.Signal{ID: "old", ListingID: "L1", SessionID: "s1", Kind: models.SignalKindOpinion, Amount: 800000})
	store.UpsertSignal(ctx, &models.Signal{ID: "new", ListingID: "L1", SessionID: "s1", Kind: models.SignalKindOpinion, Amount: 850000})

	sig, err := NewReconciler(store).Promote(ctx, SessionContext{SessionID: "s1"}, "L1", "acct-1", models.SignalPatch{})
	if err != nil {
		t.Fatalf("promote: %v", err)
	}
	if sig.ID != "new" {
		t.Fatalf("expected most recent signal, got %s", sig.ID)
	}
	old, _ := store.GetSignal(ctx, "old")
	if old.UserID != nil {
		t.Fatalf("older signal should be untouched")
	}
}

func TestPromoteErrors(t *testing.T) {
	ctx := context.Background()
	rc := NewReconciler(tickingStore())

	if _, err := rc.Promote(ctx, SessionContext{}, "L1", "acct", models.SignalPatch{}); !errors.Is(err, ErrNotCorrelatable) {
		t.Fatalf("expected ErrNotCorrelatable, got %v", err)
	}
	if _, err := rc.Promote(ctx, SessionContext{SessionID: "s1"}, "L1", "acct", models.SignalPatch{}); !errors.Is(err, ErrNoSignal) {
		t.Fatalf("expected ErrNoSignal, got %v", err)
	}
}

func TestLinkSession(t *testing.T) {
	ctx := context.Background()
	store := tickingStore()
	other := "acct-other"
	store.UpsertSignal(ctx, &models.Signal{ID: "a", ListingID: "L1", SessionID: "s1", Kind: models.SignalKindOpinion})
	store.UpsertSignal(ctx, &models.Signal{ID: "b", ListingID: "L2", SessionID: "s1", Kind: models.SignalKindLike})
	store.UpsertSignal(ctx, &models.Signal{ID: "c", ListingID: "L3", SessionID: "s1", Kind: models.SignalKindOpinion, UserID: &other})
	store.UpsertSignal(ctx, &models.Signal{ID: "d", ListingID: "L1", SessionID: "s2", Kind: models.SignalKindOpinion})

	linked, err := NewReconciler(store).LinkSession(ctx, SessionContext{SessionID: "s1"}, "acct-1")
	if err != nil {
		t.Fatalf("link: %v", err)
	}
	if linked != 2 {
		t.Fatalf("expected 2 linked, got %d", linked)
	}

	c, _ := store.GetSignal(ctx, "c")
	if *c.UserID != other {
		t.Fatalf("existing user overwritten: %s", *c.UserID)
	}
	d, _ := store.GetSignal(ctx, "d")
	if d.UserID != nil {
		t.Fatalf("other session's signal linked")
	}
}

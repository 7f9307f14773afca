package services

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"golang.org/x/crypto/bcrypt"
	"propsignal/accounts"
	"propsignal/models"
	"propsignal/session"
	"propsignal/storage"
)

type interestFixture struct {
	store    *storage.MemoryStore
	accounts *accounts.Service
	sc       session.SessionContext
	listing  *models.Listing
}

func newInterestFixture(t *testing.T, withOpinion bool) *interestFixture {
	t.Helper()
	f := &interestFixture{
		store:   newTestStore(),
		sc:      session.SessionContext{SessionID: "s-buyer"},
		listing: millionListing(),
	}
	f.accounts = accounts.NewService(f.store, bcrypt.MinCost)

	if withOpinion {
		engine := NewOpinionEngine(f.store, DefaultPricing(), f.sc, f.listing)
		engine.Load(context.Background())
		engine.SetValue(950000)
		if err := engine.Save(context.Background()); err != nil {
			t.Fatalf("seed opinion: %v", err)
		}
	}
	return f
}

func (f *interestFixture) flow() *InterestFlow {
	return NewInterestFlow(f.store, f.accounts, session.NewReconciler(f.store), f.sc, f.listing.ID.String())
}

func (f *interestFixture) opinion(t *testing.T) *models.Signal {
	t.Helper()
	sig, err := f.store.FindLatestSignal(context.Background(), f.listing.ID.String(), f.sc.SessionID, models.SignalKindOpinion)
	if err != nil || sig == nil {
		t.Fatalf("expected opinion signal, got %v %v", sig, err)
	}
	return sig
}

var readyCash = models.Qualification{
	BuyerType:        models.BuyerTypeCash,
	SeriousnessLevel: models.SeriousnessReadyToBuy,
	FirstHomeBuyer:   true,
}

func TestInterestRequiresOpinion(t *testing.T) {
	f := newInterestFixture(t, false)
	flow := f.flow()

	if err := flow.Start(context.Background()); !errors.Is(err, ErrNoOpinion) {
		t.Fatalf("expected ErrNoOpinion, got %v", err)
	}
	if err := flow.SubmitQualification(readyCash); !errors.Is(err, ErrWrongStep) {
		t.Fatalf("expected ErrWrongStep before the gate opens, got %v", err)
	}
}

func TestInterestQualificationValidation(t *testing.T) {
	f := newInterestFixture(t, true)
	flow := f.flow()
	if err := flow.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}

	var verr *ValidationError
	err := flow.SubmitQualification(models.Qualification{SeriousnessLevel: models.SeriousnessInterested})
	if !errors.As(err, &verr) || verr.Field != "buyer_type" {
		t.Fatalf("expected buyer_type validation error, got %v", err)
	}
	err = flow.SubmitQualification(models.Qualification{BuyerType: models.BuyerTypeNotYet})
	if !errors.As(err, &verr) || verr.Field != "seriousness_level" {
		t.Fatalf("expected seriousness_level validation error, got %v", err)
	}
	if flow.Step() != InterestStepQualification {
		t.Fatalf("expected to stay on qualification, got %s", flow.Step())
	}
}

func TestInterestDuplicateEmailLeavesSignalUntouched(t *testing.T) {
	ctx := context.Background()
	f := newInterestFixture(t, true)
	if _, err := f.accounts.CreateAccount(ctx, accounts.CreateRequest{Email: "taken@example.com", Password: "hunter22"}); err != nil {
		t.Fatalf("seed account: %v", err)
	}

	flow := f.flow()
	flow.Start(ctx)
	if err := flow.SubmitQualification(readyCash); err != nil {
		t.Fatalf("qualification: %v", err)
	}

	_, err := flow.SubmitAccount(ctx, AccountRequest{Name: "Ari", Email: "Taken@example.com", Password: "password1"})
	if !errors.Is(err, accounts.ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail verbatim, got %v", err)
	}
	if flow.Step() != InterestStepAccount {
		t.Fatalf("expected to stay on account step, got %s", flow.Step())
	}

	sig := f.opinion(t)
	if sig.Serious || sig.UserID != nil {
		t.Fatalf("signal mutated before account creation succeeded: %+v", sig)
	}

	_, err = flow.SubmitAccount(ctx, AccountRequest{Email: "new@example.com", Password: "123"})
	if !errors.Is(err, accounts.ErrWeakPassword) {
		t.Fatalf("expected ErrWeakPassword verbatim, got %v", err)
	}
}

func TestInterestRegistersSeriousBuyer(t *testing.T) {
	ctx := context.Background()
	f := newInterestFixture(t, true)

	// A like on another listing from the same session gets linked too
	f.store.UpsertSignal(ctx, &models.Signal{ID: "like-1", ListingID: "other", SessionID: f.sc.SessionID, Kind: models.SignalKindLike})

	flow := f.flow()
	if err := flow.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := flow.SubmitQualification(readyCash); err != nil {
		t.Fatalf("qualification: %v", err)
	}
	account, err := flow.SubmitAccount(ctx, AccountRequest{
		Name:         "Ari Buyer",
		Email:        "ari@example.com",
		Password:     "password1",
		Locations:    " Bondi, Coogee; bondi ;; Bronte ",
		PropertyType: models.PropertyTypeApartment,
		MinBedrooms:  2,
		BudgetMin:    800000,
		BudgetMax:    1100000,
	})
	if err != nil {
		t.Fatalf("account: %v", err)
	}
	if flow.Step() != InterestStepDone {
		t.Fatalf("expected done, got %s", flow.Step())
	}

	sig := f.opinion(t)
	if !sig.Serious || sig.UserID == nil || *sig.UserID != account.ID {
		t.Fatalf("signal not promoted: %+v", sig)
	}
	if sig.Qualification != readyCash {
		t.Fatalf("qualification not copied: %+v", sig.Qualification)
	}
	if sig.Amount != 950000 {
		t.Fatalf("amount changed to %d", sig.Amount)
	}

	like, _ := f.store.GetSignal(ctx, "like-1")
	if like.UserID == nil || *like.UserID != account.ID {
		t.Fatalf("session signal not linked: %+v", like)
	}

	prefs := f.store.BuyerPreferences(account.ID)
	if prefs == nil {
		t.Fatalf("expected buyer preferences")
	}
	if !reflect.DeepEqual(prefs.Locations, []string{"Bondi", "Coogee", "Bronte"}) {
		t.Fatalf("unexpected locations %v", prefs.Locations)
	}
	if prefs.BudgetMax != 1100000 || prefs.Qualification != readyCash {
		t.Fatalf("unexpected preferences %+v", prefs)
	}
}

func TestInterestBudgetValidation(t *testing.T) {
	ctx := context.Background()
	f := newInterestFixture(t, true)
	flow := f.flow()
	flow.Start(ctx)
	flow.SubmitQualification(readyCash)

	var verr *ValidationError
	_, err := flow.SubmitAccount(ctx, AccountRequest{Email: "b@example.com", Password: "password1", BudgetMin: 900000, BudgetMax: 800000})
	if !errors.As(err, &verr) || verr.Field != "budget" {
		t.Fatalf("expected budget validation error, got %v", err)
	}
}

func TestParseLocations(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", []string{}},
		{"Bondi", []string{"Bondi"}},
		{"Surry  Hills, Paddington;surry hills", []string{"Surry Hills", "Paddington"}},
		{" ; , ", []string{}},
	}
	for _, tt := range tests {
		if got := ParseLocations(tt.in); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("ParseLocations(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"propsignal/models"
	"propsignal/storage"
)

func loadSignals(t *testing.T, path string, listingID uuid.UUID) []models.Signal {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	data = []byte(strings.ReplaceAll(string(data), "LISTING", listingID.String()))

	var signals []models.Signal
	if err := json.Unmarshal(data, &signals); err != nil {
		t.Fatalf("parse fixture: %v", err)
	}
	return signals
}

func TestListingReportFromFixture(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()

	viewed := time.Date(2026, 4, 2, 18, 0, 0, 0, time.UTC)
	listing := models.Listing{
		ID:     uuid.New(),
		Price:  "$850,000",
		Active: true,
		Stats:  models.ViewStats{Views: 41, LastViewedAt: &viewed},
	}
	store.InsertListing(listing)
	for _, sig := range loadSignals(t, "testdata/report_signals.json", listing.ID) {
		store.InsertSignal(sig)
	}

	report, err := NewReportService(store).ListingReport(ctx, listing.ID)
	if err != nil {
		t.Fatalf("report: %v", err)
	}

	if report.SeriousMedian != 850000 {
		t.Errorf("seriousMedian = %v, want 850000", report.SeriousMedian)
	}
	if report.PassiveMedian != 200000 {
		t.Errorf("passiveMedian = %v, want 200000", report.PassiveMedian)
	}
	if report.CombinedMedian != 800000 {
		t.Errorf("combinedMedian = %v, want 800000", report.CombinedMedian)
	}
	if report.Opinions != 3 || report.SeriousCount != 2 || report.PassiveCount != 1 {
		t.Errorf("unexpected partition %+v", report)
	}
	if report.Likes != 2 {
		t.Errorf("likes = %d, want 2", report.Likes)
	}
	if report.Views != 41 || report.LastViewedAt == nil || !report.LastViewedAt.Equal(viewed) {
		t.Errorf("unexpected view stats %d %v", report.Views, report.LastViewedAt)
	}
	if len(report.DataErrors) != 0 {
		t.Errorf("unexpected data errors %v", report.DataErrors)
	}
}

func TestListingReportMissingListing(t *testing.T) {
	_, err := NewReportService(storage.NewMemoryStore()).ListingReport(context.Background(), uuid.New())
	if !errors.Is(err, ErrListingNotFound) {
		t.Fatalf("expected ErrListingNotFound, got %v", err)
	}
}

func TestReportFlagsDataErrors(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()

	broken := models.Listing{
		ID:         uuid.New(),
		Price:      "Contact agent",
		Visibility: true,
		Active:     false,
		Upload:     models.UploadProgress{Uploaded: 4, Total: 3, InProgress: true},
	}
	store.InsertListing(broken)

	report, err := NewReportService(store).ListingReport(ctx, broken.ID)
	if err != nil {
		t.Fatalf("report should not fail on bad data: %v", err)
	}

	want := []string{DataErrorVisibleInactive, DataErrorUploadProgress, DataErrorPrice}
	if len(report.DataErrors) != len(want) {
		t.Fatalf("expected %v, got %v", want, report.DataErrors)
	}
	for i := range want {
		if report.DataErrors[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, report.DataErrors)
		}
	}
	if report.CombinedMedian != 0 {
		t.Fatalf("expected empty median 0, got %v", report.CombinedMedian)
	}
}

func TestOwnerSummaries(t *testing.T) {
	ctx := context.Background()
	store := newTestStore()

	ann := models.Account{ID: "acct-ann", Email: "ann@harbour.com", Name: "Ann Lee", Company: "Harbour Realty"}
	bob := models.Account{ID: "acct-bob", Email: "bob@example.com", Name: "Bob Stone"}
	store.CreateAccount(ctx, &ann)
	store.CreateAccount(ctx, &bob)

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	listings := []models.Listing{
		{ID: uuid.New(), OwnerID: "acct-bob", Active: true, Visibility: true, CreatedAt: base},
		{ID: uuid.New(), OwnerID: "acct-ann", Active: true, Visibility: true, CreatedAt: base.Add(time.Hour)},
		{ID: uuid.New(), OwnerID: "acct-ann", Active: true, CreatedAt: base.Add(2 * time.Hour)},
		{ID: uuid.New(), Contact: models.Contact{Name: "Cara Draft", Email: "cara@example.com"}, CreatedAt: base.Add(3 * time.Hour)},
	}
	for _, l := range listings {
		store.InsertListing(l)
	}

	svc := NewReportService(store)
	all, err := svc.OwnerSummaries(ctx, "")
	if err != nil {
		t.Fatalf("summaries: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 owners, got %d", len(all))
	}
	if all[0].OwnerID != "acct-ann" || all[0].Listings != 2 || all[0].Live != 1 {
		t.Fatalf("expected Ann first with 2 listings and 1 live, got %+v", all[0])
	}
	if all[1].Name != "Bob Stone" || all[2].Name != "Cara Draft" {
		t.Fatalf("expected ties ordered by name, got %+v", all)
	}

	byCompany, _ := svc.OwnerSummaries(ctx, "HARBOUR")
	if len(byCompany) != 1 || byCompany[0].Company != "Harbour Realty" {
		t.Fatalf("company filter failed: %+v", byCompany)
	}
	byEmail, _ := svc.OwnerSummaries(ctx, "Example.COM")
	if len(byEmail) != 2 {
		t.Fatalf("email filter failed: %+v", byEmail)
	}
	none, _ := svc.OwnerSummaries(ctx, "zzz")
	if len(none) != 0 {
		t.Fatalf("expected no matches, got %+v", none)
	}
}

// brokenSignals fails signal reads for one listing
type brokenSignals struct {
	*storage.MemoryStore
	broken string
}

func (b *brokenSignals) ListSignalsForListing(ctx context.Context, listingID, kind string) ([]models.Signal, error) {
	if listingID == b.broken {
		return nil, errors.New("signals table unavailable")
	}
	return b.MemoryStore.ListSignalsForListing(ctx, listingID, kind)
}

func TestAllListingReportsLogsSignalFailures(t *testing.T) {
	ctx := context.Background()
	store := newTestStore()
	good := &models.Listing{Price: "$900,000"}
	bad := &models.Listing{Price: "$700,000"}
	store.CreateListing(ctx, good)
	store.CreateListing(ctx, bad)

	var buf bytes.Buffer
	log.SetOutput(&buf)
	defer log.SetOutput(os.Stderr)

	reports, failed, err := NewReportService(&brokenSignals{MemoryStore: store, broken: bad.ID.String()}).AllListingReports(ctx)
	if err != nil {
		t.Fatalf("all reports: %v", err)
	}
	if failed != 1 || len(reports) != 1 || reports[0].ListingID != good.ID.String() {
		t.Fatalf("expected one report and one failure, got %d/%d", len(reports), failed)
	}
	if !strings.Contains(buf.String(), bad.ID.String()) || !strings.Contains(buf.String(), "signals table unavailable") {
		t.Fatalf("expected the failure to be logged, got %q", buf.String())
	}
}

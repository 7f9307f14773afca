package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"propsignal/identity"
	"propsignal/models"
)

var ErrListingNotFound = errors.New("listing not found")

// Data error descriptions attached to a report
const (
	DataErrorVisibleInactive = "listing is visible but not active"
	DataErrorUploadProgress  = "upload progress is inconsistent"
	DataErrorPrice           = "price does not parse to a number"
)

// ReportService aggregates signals and listings for operators
type ReportService struct {
	store ReportStore
	now   func() time.Time
}

func NewReportService(store ReportStore) *ReportService {
	return &ReportService{store: store, now: time.Now}
}

// ListingReport builds the report for one listing
func (s *ReportService) ListingReport(ctx context.Context, id uuid.UUID) (*models.ListingReport, error) {
	listing, err := s.store.GetListing(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get listing: %w", err)
	}
	if listing == nil {
		return nil, ErrListingNotFound
	}

	signals, err := s.store.ListSignalsForListing(ctx, id.String(), "")
	if err != nil {
		return nil, fmt.Errorf("list signals: %w", err)
	}

	report := BuildListingReport(listing, signals, s.now())
	return &report, nil
}

// BuildListingReport partitions the listing's signals and computes the medians.
// Opinions with serious=true form the serious segment; all other opinions are
// passive.
func BuildListingReport(l *models.Listing, signals []models.Signal, now time.Time) models.ListingReport {
	report := models.ListingReport{
		ListingID:    l.ID.String(),
		Views:        l.Stats.Views,
		LastViewedAt: l.Stats.LastViewedAt,
		DataErrors:   DataErrors(l),
		GeneratedAt:  now,
	}

	var serious, passive, combined []int64
	for _, sig := range signals {
		switch sig.Kind {
		case models.SignalKindOpinion:
			report.Opinions++
			if sig.Serious {
				report.SeriousCount++
				serious = append(serious, sig.Amount)
			} else {
				report.PassiveCount++
				passive = append(passive, sig.Amount)
			}
			combined = append(combined, sig.Amount)
		case models.SignalKindLike:
			report.Likes++
		}
	}

	report.SeriousMedian = Median(serious)
	report.PassiveMedian = Median(passive)
	report.CombinedMedian = Median(combined)
	return report
}

// DataErrors lists the invariants a listing violates. A broken listing is
// reported, never rejected.
func DataErrors(l *models.Listing) []string {
	var errs []string
	if l.Visibility && !l.Active {
		errs = append(errs, DataErrorVisibleInactive)
	}
	if !l.Upload.Valid() {
		errs = append(errs, DataErrorUploadProgress)
	}
	if strings.TrimSpace(l.Price) != "" {
		if _, ok := identity.ParsePrice(l.Price); !ok {
			errs = append(errs, DataErrorPrice)
		}
	}
	return errs
}

// OwnerSummaries groups listings by owner. filter is matched case-insensitively
// as a substring of the owner's name, email or company; empty matches all.
// Owners are sorted by listing count, most first, then by name.
func (s *ReportService) OwnerSummaries(ctx context.Context, filter string) ([]models.OwnerSummary, error) {
	listings, err := s.store.ListListings(ctx)
	if err != nil {
		return nil, fmt.Errorf("list listings: %w", err)
	}
	accounts, err := s.store.ListAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	return SummarizeOwners(listings, accounts, filter), nil
}

// SummarizeOwners is the pure grouping behind OwnerSummaries
func SummarizeOwners(listings []models.Listing, accounts []models.Account, filter string) []models.OwnerSummary {
	byID := make(map[string]models.Account, len(accounts))
	for _, a := range accounts {
		byID[a.ID] = a
	}

	groups := make(map[string]*models.OwnerSummary)
	var order []string
	for _, l := range listings {
		key := l.OwnerID
		if key == "" {
			// Listings staged before an account existed group by contact email
			key = "contact:" + strings.ToLower(l.Contact.Email)
		}

		summary, ok := groups[key]
		if !ok {
			summary = &models.OwnerSummary{
				OwnerID: l.OwnerID,
				Name:    l.Contact.Name,
				Email:   l.Contact.Email,
			}
			if a, found := byID[l.OwnerID]; found && l.OwnerID != "" {
				summary.Name = a.Name
				summary.Email = a.Email
				summary.Company = a.Company
			}
			groups[key] = summary
			order = append(order, key)
		}

		summary.Listings++
		if l.Visibility {
			summary.Live++
		}
	}

	needle := strings.ToLower(strings.TrimSpace(filter))
	out := make([]models.OwnerSummary, 0, len(groups))
	for _, key := range order {
		summary := groups[key]
		if needle != "" && !ownerMatches(summary, needle) {
			continue
		}
		out = append(out, *summary)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Listings != out[j].Listings {
			return out[i].Listings > out[j].Listings
		}
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out
}

func ownerMatches(s *models.OwnerSummary, needle string) bool {
	return strings.Contains(strings.ToLower(s.Name), needle) ||
		strings.Contains(strings.ToLower(s.Email), needle) ||
		strings.Contains(strings.ToLower(s.Company), needle)
}

// AllListingReports builds a report for every listing. Listings whose signals
// cannot be read are counted in failed and skipped.
func (s *ReportService) AllListingReports(ctx context.Context) ([]models.ListingReport, int, error) {
	listings, err := s.store.ListListings(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("list listings: %w", err)
	}

	now := s.now()
	reports := make([]models.ListingReport, 0, len(listings))
	failed := 0
	for i := range listings {
		l := &listings[i]
		signals, err := s.store.ListSignalsForListing(ctx, l.ID.String(), "")
		if err != nil {
			log.Printf("Reports: signals for %s: %v", l.ID, err)
			failed++
			continue
		}
		reports = append(reports, BuildListingReport(l, signals, now))
	}
	return reports, failed, nil
}

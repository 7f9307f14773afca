package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"propsignal/models"
)

// MemoryStore keeps every document in process memory. It backs the daemon
// when no DATABASE_URL is configured and the service tests.
type MemoryStore struct {
	mu            sync.Mutex
	now           func() time.Time
	listings      map[uuid.UUID]*models.Listing
	uploadJobs    map[uuid.UUID][]models.UploadJob
	signals       map[string]*models.Signal
	drafts        []models.ListingDraft
	notifications []models.Notification
	accounts      map[string]*models.Account
	preferences   map[string]*models.BuyerPreferences
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		now:         time.Now,
		listings:    make(map[uuid.UUID]*models.Listing),
		uploadJobs:  make(map[uuid.UUID][]models.UploadJob),
		signals:     make(map[string]*models.Signal),
		accounts:    make(map[string]*models.Account),
		preferences: make(map[string]*models.BuyerPreferences),
	}
}

// SetClock replaces the time source used for server-assigned timestamps
func (s *MemoryStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func copyListing(l *models.Listing) *models.Listing {
	c := *l
	c.Features = append([]string(nil), l.Features...)
	c.ImageURLs = append([]string(nil), l.ImageURLs...)
	return &c
}

// =============================================================================
// Listings
// =============================================================================

func (s *MemoryStore) CreateListing(ctx context.Context, l *models.Listing) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	now := s.now()
	l.CreatedAt = now
	l.UpdatedAt = now
	s.listings[l.ID] = copyListing(l)
	return nil
}

func (s *MemoryStore) GetListing(ctx context.Context, id uuid.UUID) (*models.Listing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.listings[id]
	if !ok {
		return nil, nil
	}
	return copyListing(l), nil
}

func (s *MemoryStore) ListListings(ctx context.Context) ([]models.Listing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	listings := make([]models.Listing, 0, len(s.listings))
	for _, l := range s.listings {
		listings = append(listings, *copyListing(l))
	}
	sort.Slice(listings, func(i, j int) bool {
		return listings[i].CreatedAt.Before(listings[j].CreatedAt)
	})
	return listings, nil
}

func (s *MemoryStore) UpdateListing(ctx context.Context, l *models.Listing) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.listings[l.ID]
	if !ok {
		return ErrNotFound
	}
	next := copyListing(l)
	next.Upload = existing.Upload
	next.Stats = existing.Stats
	next.CreatedAt = existing.CreatedAt
	next.UpdatedAt = s.now()
	l.UpdatedAt = next.UpdatedAt
	s.listings[l.ID] = next
	return nil
}

func (s *MemoryStore) SetUploadProgress(ctx context.Context, id uuid.UUID, p models.UploadProgress) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.listings[id]
	if !ok {
		return ErrNotFound
	}
	l.Upload = p
	l.UpdatedAt = s.now()
	return nil
}

func (s *MemoryStore) IncrementUploadProgress(ctx context.Context, id uuid.UUID) (models.UploadProgress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.listings[id]
	if !ok {
		return models.UploadProgress{}, ErrNotFound
	}
	l.Upload = models.NewUploadProgress(l.Upload.Uploaded+1, l.Upload.Total)
	l.UpdatedAt = s.now()
	return l.Upload, nil
}

func (s *MemoryStore) IncrementViews(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.listings[id]
	if !ok {
		return ErrNotFound
	}
	now := s.now()
	l.Stats.Views++
	l.Stats.LastViewedAt = &now
	return nil
}

// =============================================================================
// Upload Jobs
// =============================================================================

func (s *MemoryStore) CreateUploadJobs(ctx context.Context, listingID uuid.UUID, jobs []models.UploadJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	stored := make([]models.UploadJob, len(jobs))
	for i := range jobs {
		jobs[i].ListingID = listingID
		jobs[i].UpdatedAt = now
		stored[i] = jobs[i]
	}
	sort.Slice(stored, func(i, j int) bool { return stored[i].Position < stored[j].Position })
	s.uploadJobs[listingID] = stored
	return nil
}

func (s *MemoryStore) GetUploadJobs(ctx context.Context, listingID uuid.UUID) ([]models.UploadJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]models.UploadJob(nil), s.uploadJobs[listingID]...), nil
}

func (s *MemoryStore) UpdateUploadJob(ctx context.Context, j *models.UploadJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	jobs := s.uploadJobs[j.ListingID]
	for i := range jobs {
		if jobs[i].Position == j.Position {
			j.UpdatedAt = s.now()
			jobs[i].Status = j.Status
			jobs[i].URL = j.URL
			jobs[i].Attempts = j.Attempts
			jobs[i].UpdatedAt = j.UpdatedAt
			return nil
		}
	}
	return ErrNotFound
}

// =============================================================================
// Drafts & Notifications
// =============================================================================

func (s *MemoryStore) CreateListingDraft(ctx context.Context, d *models.ListingDraft) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	d.CreatedAt = s.now()
	s.drafts = append(s.drafts, *d)
	return nil
}

func (s *MemoryStore) ListingDrafts() []models.ListingDraft {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.ListingDraft(nil), s.drafts...)
}

func (s *MemoryStore) CreateNotification(ctx context.Context, n *models.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	n.CreatedAt = s.now()
	s.notifications = append(s.notifications, *n)
	return nil
}

func (s *MemoryStore) Notifications() []models.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Notification(nil), s.notifications...)
}

// =============================================================================
// Signals
// =============================================================================

func copySignal(sig *models.Signal) *models.Signal {
	c := *sig
	if sig.UserID != nil {
		uid := *sig.UserID
		c.UserID = &uid
	}
	return &c
}

func (s *MemoryStore) GetSignal(ctx context.Context, id string) (*models.Signal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sig, ok := s.signals[id]
	if !ok {
		return nil, nil
	}
	return copySignal(sig), nil
}

func (s *MemoryStore) FindLatestSignal(ctx context.Context, listingID, sessionID, kind string) (*models.Signal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var latest *models.Signal
	for _, sig := range s.signals {
		if sig.ListingID != listingID || sig.SessionID != sessionID {
			continue
		}
		if kind != "" && sig.Kind != kind {
			continue
		}
		if latest == nil || sig.UpdatedAt.After(latest.UpdatedAt) {
			latest = sig
		}
	}
	if latest == nil {
		return nil, nil
	}
	return copySignal(latest), nil
}

func (s *MemoryStore) UpsertSignal(ctx context.Context, sig *models.Signal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if existing, ok := s.signals[sig.ID]; ok {
		existing.Amount = sig.Amount
		existing.UpdatedAt = now
		sig.CreatedAt = existing.CreatedAt
		sig.UpdatedAt = now
		return nil
	}
	sig.CreatedAt = now
	sig.UpdatedAt = now
	s.signals[sig.ID] = copySignal(sig)
	return nil
}

func (s *MemoryStore) UpdateSignal(ctx context.Context, id string, patch models.SignalPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sig, ok := s.signals[id]
	if !ok {
		return ErrNotFound
	}
	if patch.Amount != nil {
		sig.Amount = *patch.Amount
	}
	if patch.UserID != nil {
		uid := *patch.UserID
		sig.UserID = &uid
	}
	if patch.Serious != nil {
		sig.Serious = *patch.Serious
	}
	if patch.Qualification != nil {
		sig.Qualification = *patch.Qualification
	}
	sig.UpdatedAt = s.now()
	return nil
}

func (s *MemoryStore) ListSignalsForListing(ctx context.Context, listingID, kind string) ([]models.Signal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.Signal
	for _, sig := range s.signals {
		if sig.ListingID == listingID && (kind == "" || sig.Kind == kind) {
			out = append(out, *copySignal(sig))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) ListSignalsForSession(ctx context.Context, sessionID string) ([]models.Signal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.Signal
	for _, sig := range s.signals {
		if sig.SessionID == sessionID {
			out = append(out, *copySignal(sig))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

// InsertSignal stores a signal exactly as given, bypassing key derivation.
// It seeds fixtures and legacy documents with random IDs.
func (s *MemoryStore) InsertSignal(sig models.Signal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.signals[sig.ID] = copySignal(&sig)
}

// InsertListing stores a listing exactly as given, timestamps included
func (s *MemoryStore) InsertListing(l models.Listing) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listings[l.ID] = copyListing(&l)
}

// =============================================================================
// Accounts
// =============================================================================

func (s *MemoryStore) CreateAccount(ctx context.Context, a *models.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.accounts {
		if existing.Email == a.Email {
			return ErrConflict
		}
	}
	a.CreatedAt = s.now()
	c := *a
	s.accounts[a.ID] = &c
	return nil
}

func (s *MemoryStore) GetAccountByEmail(ctx context.Context, email string) (*models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, a := range s.accounts {
		if a.Email == email {
			c := *a
			return &c, nil
		}
	}
	return nil, nil
}

func (s *MemoryStore) ListAccounts(ctx context.Context) ([]models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	accounts := make([]models.Account, 0, len(s.accounts))
	for _, a := range s.accounts {
		accounts = append(accounts, *a)
	}
	sort.Slice(accounts, func(i, j int) bool { return accounts[i].CreatedAt.Before(accounts[j].CreatedAt) })
	return accounts, nil
}

func (s *MemoryStore) SaveBuyerPreferences(ctx context.Context, p *models.BuyerPreferences) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p.CreatedAt = s.now()
	c := *p
	c.Locations = append([]string(nil), p.Locations...)
	s.preferences[p.AccountID] = &c
	return nil
}

func (s *MemoryStore) BuyerPreferences(accountID string) *models.BuyerPreferences {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.preferences[accountID]
	if !ok {
		return nil
	}
	c := *p
	return &c
}

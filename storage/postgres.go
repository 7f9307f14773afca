package storage

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"propsignal/models"
)

//go:embed schema.sql
var schemaSQL string

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, connString string) (*PostgresStore, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnLifetime = 30 * time.Minute
	config.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

// Migrate creates the tables if they do not exist yet
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, schemaSQL)
	return err
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// =============================================================================
// Listings
// =============================================================================

const listingColumns = `id, owner_id, contact_name, contact_email, contact_phone, timeline,
	address_display, lat, lng, bedrooms, bathrooms, car_spaces, floor_area,
	property_type, price, estimate, features, image_urls,
	upload_uploaded, upload_total, upload_in_progress,
	active, visibility, accepting_offers, views, last_viewed_at, created_at, updated_at`

func scanListing(row scanner) (*models.Listing, error) {
	var l models.Listing
	err := row.Scan(
		&l.ID, &l.OwnerID, &l.Contact.Name, &l.Contact.Email, &l.Contact.Phone, &l.Timeline,
		&l.Address.Display, &l.Address.Lat, &l.Address.Lng, &l.Bedrooms, &l.Bathrooms, &l.CarSpaces, &l.FloorArea,
		&l.PropertyType, &l.Price, &l.Estimate, &l.Features, &l.ImageURLs,
		&l.Upload.Uploaded, &l.Upload.Total, &l.Upload.InProgress,
		&l.Active, &l.Visibility, &l.AcceptingOffers, &l.Stats.Views, &l.Stats.LastViewedAt, &l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (s *PostgresStore) CreateListing(ctx context.Context, l *models.Listing) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	if l.Features == nil {
		l.Features = []string{}
	}
	if l.ImageURLs == nil {
		l.ImageURLs = []string{}
	}

	query := `
		INSERT INTO listings (
			id, owner_id, contact_name, contact_email, contact_phone, timeline,
			address_display, lat, lng, bedrooms, bathrooms, car_spaces, floor_area,
			property_type, price, estimate, features, image_urls,
			active, visibility, accepting_offers, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, NOW(), NOW()
		)
		RETURNING created_at, updated_at`

	return s.pool.QueryRow(ctx, query,
		l.ID, l.OwnerID, l.Contact.Name, l.Contact.Email, l.Contact.Phone, l.Timeline,
		l.Address.Display, l.Address.Lat, l.Address.Lng, l.Bedrooms, l.Bathrooms, l.CarSpaces, l.FloorArea,
		l.PropertyType, l.Price, l.Estimate, l.Features, l.ImageURLs,
		l.Active, l.Visibility, l.AcceptingOffers,
	).Scan(&l.CreatedAt, &l.UpdatedAt)
}

func (s *PostgresStore) GetListing(ctx context.Context, id uuid.UUID) (*models.Listing, error) {
	query := `SELECT ` + listingColumns + ` FROM listings WHERE id = $1`

	l, err := scanListing(s.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return l, nil
}

func (s *PostgresStore) ListListings(ctx context.Context) ([]models.Listing, error) {
	query := `SELECT ` + listingColumns + ` FROM listings ORDER BY created_at`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var listings []models.Listing
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, err
		}
		listings = append(listings, *l)
	}
	return listings, rows.Err()
}

// UpdateListing writes the full attribute set collected by the wizard in one
// statement. Upload progress and view stats are left untouched.
func (s *PostgresStore) UpdateListing(ctx context.Context, l *models.Listing) error {
	if l.Features == nil {
		l.Features = []string{}
	}
	if l.ImageURLs == nil {
		l.ImageURLs = []string{}
	}
	query := `
		UPDATE listings SET
			owner_id = $2, contact_name = $3, contact_email = $4, contact_phone = $5, timeline = $6,
			address_display = $7, lat = $8, lng = $9, bedrooms = $10, bathrooms = $11,
			car_spaces = $12, floor_area = $13, property_type = $14, price = $15, estimate = $16,
			features = $17, image_urls = $18, active = $19, visibility = $20, accepting_offers = $21,
			updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`

	err := s.pool.QueryRow(ctx, query,
		l.ID, l.OwnerID, l.Contact.Name, l.Contact.Email, l.Contact.Phone, l.Timeline,
		l.Address.Display, l.Address.Lat, l.Address.Lng, l.Bedrooms, l.Bathrooms,
		l.CarSpaces, l.FloorArea, l.PropertyType, l.Price, l.Estimate,
		l.Features, l.ImageURLs, l.Active, l.Visibility, l.AcceptingOffers,
	).Scan(&l.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func (s *PostgresStore) SetUploadProgress(ctx context.Context, id uuid.UUID, p models.UploadProgress) error {
	query := `
		UPDATE listings SET upload_uploaded = $2, upload_total = $3, upload_in_progress = $4, updated_at = NOW()
		WHERE id = $1`

	tag, err := s.pool.Exec(ctx, query, id, p.Uploaded, p.Total, p.InProgress)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// IncrementUploadProgress bumps the uploaded counter by one in place, capped at
// the total, so concurrent readers only ever see it grow
func (s *PostgresStore) IncrementUploadProgress(ctx context.Context, id uuid.UUID) (models.UploadProgress, error) {
	query := `
		UPDATE listings SET
			upload_uploaded = LEAST(upload_uploaded + 1, upload_total),
			upload_in_progress = LEAST(upload_uploaded + 1, upload_total) < upload_total,
			updated_at = NOW()
		WHERE id = $1
		RETURNING upload_uploaded, upload_total, upload_in_progress`

	var p models.UploadProgress
	err := s.pool.QueryRow(ctx, query, id).Scan(&p.Uploaded, &p.Total, &p.InProgress)
	if errors.Is(err, pgx.ErrNoRows) {
		return p, ErrNotFound
	}
	return p, err
}

func (s *PostgresStore) IncrementViews(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE listings SET views = views + 1, last_viewed_at = NOW() WHERE id = $1`

	tag, err := s.pool.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// =============================================================================
// Upload Jobs
// =============================================================================

func (s *PostgresStore) CreateUploadJobs(ctx context.Context, listingID uuid.UUID, jobs []models.UploadJob) error {
	batch := &pgx.Batch{}
	for i := range jobs {
		j := &jobs[i]
		j.ListingID = listingID
		batch.Queue(`
			INSERT INTO upload_jobs (listing_id, position, name, content_type, status, url, attempts, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
			ON CONFLICT (listing_id, position) DO UPDATE SET
				name = EXCLUDED.name,
				content_type = EXCLUDED.content_type,
				status = EXCLUDED.status,
				url = EXCLUDED.url,
				attempts = EXCLUDED.attempts,
				updated_at = NOW()`,
			listingID, j.Position, j.Name, j.ContentType, j.Status, j.URL, j.Attempts)
	}
	return s.pool.SendBatch(ctx, batch).Close()
}

func (s *PostgresStore) GetUploadJobs(ctx context.Context, listingID uuid.UUID) ([]models.UploadJob, error) {
	query := `
		SELECT listing_id, position, name, content_type, status, url, attempts, updated_at
		FROM upload_jobs WHERE listing_id = $1
		ORDER BY position`

	rows, err := s.pool.Query(ctx, query, listingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []models.UploadJob
	for rows.Next() {
		var j models.UploadJob
		if err := rows.Scan(&j.ListingID, &j.Position, &j.Name, &j.ContentType, &j.Status, &j.URL, &j.Attempts, &j.UpdatedAt); err != nil {
			return nil, err
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

func (s *PostgresStore) UpdateUploadJob(ctx context.Context, j *models.UploadJob) error {
	query := `
		UPDATE upload_jobs SET status = $3, url = $4, attempts = $5, updated_at = NOW()
		WHERE listing_id = $1 AND position = $2
		RETURNING updated_at`

	err := s.pool.QueryRow(ctx, query, j.ListingID, j.Position, j.Status, j.URL, j.Attempts).Scan(&j.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// =============================================================================
// Drafts & Notifications
// =============================================================================

func (s *PostgresStore) CreateListingDraft(ctx context.Context, d *models.ListingDraft) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	snapshot, err := json.Marshal(d.Listing)
	if err != nil {
		return fmt.Errorf("encode draft snapshot: %w", err)
	}

	query := `
		INSERT INTO listing_drafts (id, listing_id, owner_id, status, snapshot, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		RETURNING created_at`

	return s.pool.QueryRow(ctx, query, d.ID, d.ListingID, d.OwnerID, d.Status, snapshot).Scan(&d.CreatedAt)
}

func (s *PostgresStore) CreateNotification(ctx context.Context, n *models.Notification) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	query := `
		INSERT INTO notifications (id, account_id, listing_id, type, message, read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		RETURNING created_at`

	return s.pool.QueryRow(ctx, query, n.ID, n.AccountID, n.ListingID, n.Type, n.Message, n.Read).Scan(&n.CreatedAt)
}

// =============================================================================
// Signals
// =============================================================================

const signalColumns = `id, listing_id, kind, session_id, user_id, amount, serious,
	buyer_type, seriousness_level, first_home_buyer, investor, from_web, created_at, updated_at`

func scanSignal(row scanner) (*models.Signal, error) {
	var sig models.Signal
	err := row.Scan(
		&sig.ID, &sig.ListingID, &sig.Kind, &sig.SessionID, &sig.UserID, &sig.Amount, &sig.Serious,
		&sig.Qualification.BuyerType, &sig.Qualification.SeriousnessLevel,
		&sig.Qualification.FirstHomeBuyer, &sig.Qualification.Investor,
		&sig.FromWeb, &sig.CreatedAt, &sig.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &sig, nil
}

func (s *PostgresStore) querySignals(ctx context.Context, query string, args ...any) ([]models.Signal, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var signals []models.Signal
	for rows.Next() {
		sig, err := scanSignal(rows)
		if err != nil {
			return nil, err
		}
		signals = append(signals, *sig)
	}
	return signals, rows.Err()
}

func (s *PostgresStore) GetSignal(ctx context.Context, id string) (*models.Signal, error) {
	query := `SELECT ` + signalColumns + ` FROM signals WHERE id = $1`

	sig, err := scanSignal(s.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return sig, err
}

// FindLatestSignal returns the most recently updated signal for a listing and
// session. An empty kind matches any kind.
func (s *PostgresStore) FindLatestSignal(ctx context.Context, listingID, sessionID, kind string) (*models.Signal, error) {
	query := `
		SELECT ` + signalColumns + `
		FROM signals
		WHERE listing_id = $1 AND session_id = $2 AND ($3 = '' OR kind = $3)
		ORDER BY updated_at DESC
		LIMIT 1`

	sig, err := scanSignal(s.pool.QueryRow(ctx, query, listingID, sessionID, kind))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return sig, err
}

// UpsertSignal creates the signal if its ID is unused, otherwise merges the
// new amount into the existing row
func (s *PostgresStore) UpsertSignal(ctx context.Context, sig *models.Signal) error {
	query := `
		INSERT INTO signals (
			id, listing_id, kind, session_id, user_id, amount, serious,
			buyer_type, seriousness_level, first_home_buyer, investor, from_web, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW(), NOW())
		ON CONFLICT (id) DO UPDATE SET
			amount = EXCLUDED.amount,
			updated_at = NOW()
		RETURNING created_at, updated_at`

	return s.pool.QueryRow(ctx, query,
		sig.ID, sig.ListingID, sig.Kind, sig.SessionID, sig.UserID, sig.Amount, sig.Serious,
		sig.Qualification.BuyerType, sig.Qualification.SeriousnessLevel,
		sig.Qualification.FirstHomeBuyer, sig.Qualification.Investor, sig.FromWeb,
	).Scan(&sig.CreatedAt, &sig.UpdatedAt)
}

func (s *PostgresStore) UpdateSignal(ctx context.Context, id string, patch models.SignalPatch) error {
	query := `UPDATE signals SET updated_at = NOW()`
	args := []any{id}
	argNum := 2

	set := func(column string, value any) {
		query += ", " + column + " = $" + strconv.Itoa(argNum)
		args = append(args, value)
		argNum++
	}

	if patch.Amount != nil {
		set("amount", *patch.Amount)
	}
	if patch.UserID != nil {
		set("user_id", *patch.UserID)
	}
	if patch.Serious != nil {
		set("serious", *patch.Serious)
	}
	if q := patch.Qualification; q != nil {
		set("buyer_type", q.BuyerType)
		set("seriousness_level", q.SeriousnessLevel)
		set("first_home_buyer", q.FirstHomeBuyer)
		set("investor", q.Investor)
	}
	query += " WHERE id = $1"

	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListSignalsForListing returns every signal for a listing. An empty kind
// matches any kind.
func (s *PostgresStore) ListSignalsForListing(ctx context.Context, listingID, kind string) ([]models.Signal, error) {
	query := `
		SELECT ` + signalColumns + `
		FROM signals
		WHERE listing_id = $1 AND ($2 = '' OR kind = $2)
		ORDER BY created_at`

	return s.querySignals(ctx, query, listingID, kind)
}

func (s *PostgresStore) ListSignalsForSession(ctx context.Context, sessionID string) ([]models.Signal, error) {
	query := `
		SELECT ` + signalColumns + `
		FROM signals
		WHERE session_id = $1
		ORDER BY updated_at DESC`

	return s.querySignals(ctx, query, sessionID)
}

// =============================================================================
// Accounts
// =============================================================================

func (s *PostgresStore) CreateAccount(ctx context.Context, a *models.Account) error {
	query := `
		INSERT INTO accounts (id, email, name, company, phone, password_hash, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		RETURNING created_at`

	err := s.pool.QueryRow(ctx, query, a.ID, a.Email, a.Name, a.Company, a.Phone, a.PasswordHash).Scan(&a.CreatedAt)
	if isUniqueViolation(err) {
		return ErrConflict
	}
	return err
}

const accountColumns = `id, email, name, company, phone, password_hash, created_at`

func scanAccount(row scanner) (*models.Account, error) {
	var a models.Account
	if err := row.Scan(&a.ID, &a.Email, &a.Name, &a.Company, &a.Phone, &a.PasswordHash, &a.CreatedAt); err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *PostgresStore) GetAccountByEmail(ctx context.Context, email string) (*models.Account, error) {
	a, err := scanAccount(s.pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE email = $1`, email))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return a, err
}

func (s *PostgresStore) ListAccounts(ctx context.Context) ([]models.Account, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+accountColumns+` FROM accounts ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []models.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, *a)
	}
	return accounts, rows.Err()
}

func (s *PostgresStore) SaveBuyerPreferences(ctx context.Context, p *models.BuyerPreferences) error {
	if p.Locations == nil {
		p.Locations = []string{}
	}
	query := `
		INSERT INTO buyer_preferences (
			account_id, locations, property_type, min_bedrooms, budget_min, budget_max,
			buyer_type, seriousness_level, first_home_buyer, investor, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW())
		ON CONFLICT (account_id) DO UPDATE SET
			locations = EXCLUDED.locations,
			property_type = EXCLUDED.property_type,
			min_bedrooms = EXCLUDED.min_bedrooms,
			budget_min = EXCLUDED.budget_min,
			budget_max = EXCLUDED.budget_max,
			buyer_type = EXCLUDED.buyer_type,
			seriousness_level = EXCLUDED.seriousness_level,
			first_home_buyer = EXCLUDED.first_home_buyer,
			investor = EXCLUDED.investor
		RETURNING created_at`

	return s.pool.QueryRow(ctx, query,
		p.AccountID, p.Locations, p.PropertyType, p.MinBedrooms, p.BudgetMin, p.BudgetMax,
		p.Qualification.BuyerType, p.Qualification.SeriousnessLevel,
		p.Qualification.FirstHomeBuyer, p.Qualification.Investor,
	).Scan(&p.CreatedAt)
}

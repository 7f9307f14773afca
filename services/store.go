package services

import (
	"context"

	"github.com/google/uuid"
	"propsignal/accounts"
	"propsignal/models"
)

// OpinionStore is what the price opinion engine reads and writes
type OpinionStore interface {
	FindLatestSignal(ctx context.Context, listingID, sessionID, kind string) (*models.Signal, error)
	UpsertSignal(ctx context.Context, sig *models.Signal) error
	UpdateSignal(ctx context.Context, id string, patch models.SignalPatch) error
}

// InterestStore is what the interest registration flow writes
type InterestStore interface {
	FindLatestSignal(ctx context.Context, listingID, sessionID, kind string) (*models.Signal, error)
	SaveBuyerPreferences(ctx context.Context, p *models.BuyerPreferences) error
}

// ReportStore is what the reporting aggregator reads
type ReportStore interface {
	GetListing(ctx context.Context, id uuid.UUID) (*models.Listing, error)
	ListListings(ctx context.Context) ([]models.Listing, error)
	ListSignalsForListing(ctx context.Context, listingID, kind string) ([]models.Signal, error)
	ListAccounts(ctx context.Context) ([]models.Account, error)
}

// MediaStore persists upload jobs and the listing progress counter
type MediaStore interface {
	CreateUploadJobs(ctx context.Context, listingID uuid.UUID, jobs []models.UploadJob) error
	GetUploadJobs(ctx context.Context, listingID uuid.UUID) ([]models.UploadJob, error)
	SetUploadProgress(ctx context.Context, id uuid.UUID, p models.UploadProgress) error
}

// SubmissionStore is what the listing submission wizard writes
type SubmissionStore interface {
	MediaStore
	CreateListing(ctx context.Context, l *models.Listing) error
	GetListing(ctx context.Context, id uuid.UUID) (*models.Listing, error)
	UpdateListing(ctx context.Context, l *models.Listing) error
	CreateListingDraft(ctx context.Context, d *models.ListingDraft) error
	CreateNotification(ctx context.Context, n *models.Notification) error
}

// AccountCreator is the external account service. Authenticate locates an
// existing account by email and password.
type AccountCreator interface {
	CreateAccount(ctx context.Context, req accounts.CreateRequest) (*models.Account, error)
	Authenticate(ctx context.Context, email, password string) (*models.Account, error)
}

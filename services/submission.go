package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"
	"propsignal/accounts"
	"propsignal/metrics"
	"propsignal/models"
	"propsignal/wizard"
	"propsignal/workers"
)

// ErrSubmitFailed is the retry prompt shown for any upstream failure during
// submission. Details are logged, not shown.
var ErrSubmitFailed = errors.New("something went wrong, please try again")

var ErrNothingToResume = errors.New("no upload to resume for this listing")

// Uploader runs the sequential media upload for a listing
type Uploader interface {
	Run(ctx context.Context, listingID uuid.UUID, jobs []models.UploadJob, sources []workers.Source) ([]string, error)
}

// SubmissionService drives the listing wizard against the store
type SubmissionService struct {
	store    SubmissionStore
	machine  *wizard.Machine
	accounts AccountCreator
	media    *MediaService
	uploader Uploader
	logFn    workers.LogFunc
}

func NewSubmissionService(store SubmissionStore, machine *wizard.Machine, accts AccountCreator, media *MediaService, uploader Uploader) *SubmissionService {
	return &SubmissionService{
		store:    store,
		machine:  machine,
		accounts: accts,
		media:    media,
		uploader: uploader,
		logFn:    workers.NoOpLogger,
	}
}

// SetLogger sets the activity log function
func (s *SubmissionService) SetLogger(fn workers.LogFunc) {
	s.logFn = fn
}

// Advance applies Next or Back. Leaving the contact step the first time
// creates the draft listing. When no owner is known and a password was given
// the owner account is created, or located when the email is already
// registered. Account errors come back unchanged and the wizard stays on the
// contact step.
func (s *SubmissionService) Advance(ctx context.Context, st *wizard.State, action wizard.Action) error {
	if action == wizard.ActionSubmit {
		return wizard.ErrTransitionNotAllowed
	}

	next, err := s.machine.Transition(st.Step, action, &st.Data)
	if err != nil {
		return err
	}

	if st.Step == wizard.StepContact && action == wizard.ActionNext && st.ListingID == uuid.Nil {
		if err := s.createDraft(ctx, st); err != nil {
			return err
		}
	}

	st.Step = next
	return nil
}

func (s *SubmissionService) createDraft(ctx context.Context, st *wizard.State) error {
	if st.OwnerID == "" && st.Data.Password != "" && s.accounts != nil {
		account, err := s.accounts.CreateAccount(ctx, accounts.CreateRequest{
			Email:    st.Data.Contact.Email,
			Password: st.Data.Password,
			Name:     st.Data.Contact.Name,
			Phone:    st.Data.Contact.Phone,
		})
		if errors.Is(err, accounts.ErrDuplicateEmail) {
			account, err = s.accounts.Authenticate(ctx, st.Data.Contact.Email, st.Data.Password)
		}
		if err != nil {
			return err
		}
		st.OwnerID = account.ID
		st.Data.Password = ""
	}

	listing := &models.Listing{
		OwnerID: st.OwnerID,
		Contact: st.Data.Contact,
	}
	if err := s.store.CreateListing(ctx, listing); err != nil {
		log.Printf("Wizard: create draft listing failed: %v", err)
		return ErrSubmitFailed
	}
	st.ListingID = listing.ID
	log.Printf("Wizard: draft listing %s created", listing.ID)
	return nil
}

// Submit is the final step: it stages the collected attributes, queues one
// upload job per file, uploads them in order and finalizes the listing.
// sources must be in the same order as st.Data.Files.
func (s *SubmissionService) Submit(ctx context.Context, st *wizard.State, sources []workers.Source) error {
	next, err := s.machine.Transition(st.Step, wizard.ActionSubmit, &st.Data)
	if err != nil {
		return err
	}
	if st.ListingID == uuid.Nil {
		return fmt.Errorf("submit: no draft listing")
	}
	if len(sources) != len(st.Data.Files) {
		return &wizard.ValidationError{Step: wizard.StepMedia, Field: "files", Message: "please select your files again"}
	}

	staged := st.Data.Listing(st.ListingID, st.OwnerID)
	if err := s.store.UpdateListing(ctx, &staged); err != nil {
		metrics.RecordSubmission("failed")
		log.Printf("Wizard: stage listing %s failed: %v", st.ListingID, err)
		return ErrSubmitFailed
	}

	jobs, err := s.media.Enqueue(ctx, st.ListingID, st.Data.Files)
	if err != nil {
		metrics.RecordSubmission("failed")
		log.Printf("Wizard: queue uploads for %s failed: %v", st.ListingID, err)
		return ErrSubmitFailed
	}

	if err := s.finish(ctx, &staged, jobs, sources); err != nil {
		return err
	}
	st.Step = next
	return nil
}

// Resume continues an interrupted upload from the first job that is not done.
// sources are indexed by job position; done positions are never opened.
func (s *SubmissionService) Resume(ctx context.Context, listingID uuid.UUID, sources []workers.Source) error {
	listing, err := s.store.GetListing(ctx, listingID)
	if err != nil {
		log.Printf("Wizard: load listing %s failed: %v", listingID, err)
		return ErrSubmitFailed
	}
	if listing == nil {
		return ErrListingNotFound
	}
	if listing.Active {
		return nil
	}

	jobs, err := s.media.Jobs(ctx, listingID)
	if err != nil {
		log.Printf("Wizard: load jobs for %s failed: %v", listingID, err)
		return ErrSubmitFailed
	}
	if len(jobs) == 0 {
		return ErrNothingToResume
	}

	log.Printf("Wizard: resuming upload for %s at %d/%d", listingID, listing.Upload.Uploaded, listing.Upload.Total)
	return s.finish(ctx, listing, jobs, sources)
}

// finish uploads the outstanding files and, only when all succeeded, writes
// the finalized listing, the review draft and the owner notification
func (s *SubmissionService) finish(ctx context.Context, listing *models.Listing, jobs []models.UploadJob, sources []workers.Source) error {
	urls, err := s.uploader.Run(ctx, listing.ID, jobs, sources)
	if err != nil {
		metrics.RecordSubmission("upload_failed")
		log.Printf("Wizard: upload for %s stopped: %v", listing.ID, err)
		s.logFn(models.LogLevelWarn, "wizard", fmt.Sprintf("listing %s upload stopped: %v", listing.ID, err))
		return ErrSubmitFailed
	}

	listing.ImageURLs = urls
	listing.Active = true
	listing.Visibility = false
	if err := s.store.UpdateListing(ctx, listing); err != nil {
		metrics.RecordSubmission("failed")
		log.Printf("Wizard: finalize %s failed: %v", listing.ID, err)
		return ErrSubmitFailed
	}

	// The review copy is taken from the stored row so server-owned fields
	// (progress, stats, timestamps) match the listing
	if stored, err := s.store.GetListing(ctx, listing.ID); err != nil {
		log.Printf("Wizard: reload %s for review copy failed: %v", listing.ID, err)
	} else if stored != nil {
		listing = stored
	}

	draft := &models.ListingDraft{
		ListingID: listing.ID,
		OwnerID:   listing.OwnerID,
		Status:    models.DraftStatusPendingReview,
		Listing:   *listing,
	}
	if err := s.store.CreateListingDraft(ctx, draft); err != nil {
		metrics.RecordSubmission("failed")
		log.Printf("Wizard: review draft for %s failed: %v", listing.ID, err)
		return ErrSubmitFailed
	}

	if listing.OwnerID != "" {
		id := listing.ID
		n := &models.Notification{
			AccountID: listing.OwnerID,
			ListingID: &id,
			Type:      models.NotificationListingSubmitted,
			Message:   fmt.Sprintf("Your listing at %s has been submitted for review", listing.Address.Display),
		}
		if err := s.store.CreateNotification(ctx, n); err != nil {
			log.Printf("Wizard: notification for %s failed: %v", listing.ID, err)
		}
	}

	metrics.RecordSubmission("submitted")
	s.logFn(models.LogLevelInfo, "wizard", fmt.Sprintf("listing %s submitted with %d files", listing.ID, len(urls)))
	return nil
}

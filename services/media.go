package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"propsignal/models"
	"propsignal/wizard"
)

// MediaService manages a listing's upload job list
type MediaService struct {
	store MediaStore
}

// NewMediaService creates a new MediaService
func NewMediaService(store MediaStore) *MediaService {
	return &MediaService{store: store}
}

// Enqueue creates one pending job per file in selection order and resets the
// listing's progress to {0, N}. When the same file set is already queued the
// existing jobs are returned as they are, so done items stay done.
func (s *MediaService) Enqueue(ctx context.Context, listingID uuid.UUID, files []wizard.File) ([]models.UploadJob, error) {
	existing, err := s.store.GetUploadJobs(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if sameFiles(existing, files) {
		return existing, nil
	}

	jobs := make([]models.UploadJob, len(files))
	for i, f := range files {
		jobs[i] = models.UploadJob{
			ListingID:   listingID,
			Position:    i,
			Name:        f.Name,
			ContentType: f.ContentType,
			Status:      models.UploadStatusPending,
		}
	}

	if err := s.store.CreateUploadJobs(ctx, listingID, jobs); err != nil {
		return nil, fmt.Errorf("create upload jobs: %w", err)
	}
	if err := s.store.SetUploadProgress(ctx, listingID, models.NewUploadProgress(0, len(jobs))); err != nil {
		return nil, fmt.Errorf("set upload progress: %w", err)
	}
	return jobs, nil
}

// Jobs returns the listing's jobs in position order
func (s *MediaService) Jobs(ctx context.Context, listingID uuid.UUID) ([]models.UploadJob, error) {
	return s.store.GetUploadJobs(ctx, listingID)
}

// QueueDepth returns the count of a listing's jobs by status
func (s *MediaService) QueueDepth(ctx context.Context, listingID uuid.UUID) (map[string]int, error) {
	jobs, err := s.store.GetUploadJobs(ctx, listingID)
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int)
	for _, j := range jobs {
		counts[j.Status]++
	}
	return counts, nil
}

func sameFiles(jobs []models.UploadJob, files []wizard.File) bool {
	if len(jobs) == 0 || len(jobs) != len(files) {
		return false
	}
	for i, j := range jobs {
		if j.Position != i || j.Name != files[i].Name {
			return false
		}
	}
	return true
}

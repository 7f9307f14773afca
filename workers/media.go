package workers

import (
	"context"
	"fmt"
	"io"
	"log"
	"path"
	"strings"

	"github.com/google/uuid"
	"propsignal/logging"
	"propsignal/metrics"
	"propsignal/models"
)

// BlobStore uploads media and resolves the public URL of an upload handle
type BlobStore interface {
	Upload(ctx context.Context, key string, data io.Reader, contentType string) (string, error)
	ResolveURL(handle string) string
}

// JobStore persists per-file upload status and the listing progress counter
type JobStore interface {
	UpdateUploadJob(ctx context.Context, j *models.UploadJob) error
	IncrementUploadProgress(ctx context.Context, id uuid.UUID) (models.UploadProgress, error)
}

// Source is one selected file. Open is called only when the file is uploaded.
type Source struct {
	Name        string
	ContentType string
	Open        func() (io.ReadCloser, error)
}

// UploadError reports which file stopped the loop
type UploadError struct {
	Position int
	Name     string
	Err      error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("upload %d (%s): %v", e.Position, e.Name, e.Err)
}

func (e *UploadError) Unwrap() error {
	return e.Err
}

// MediaUploader uploads a listing's files one at a time in selection order
type MediaUploader struct {
	store     JobStore
	blobs     BlobStore
	keyPrefix string
	logFn     LogFunc
}

func NewMediaUploader(store JobStore, blobs BlobStore, keyPrefix string) *MediaUploader {
	if keyPrefix == "" {
		keyPrefix = "listings"
	}
	return &MediaUploader{
		store:     store,
		blobs:     blobs,
		keyPrefix: keyPrefix,
		logFn:     NoOpLogger,
	}
}

// SetLogger sets the activity log function
func (u *MediaUploader) SetLogger(fn LogFunc) {
	u.logFn = fn
}

// Run uploads every job that is not done yet. Done jobs keep their URL and
// are not re-uploaded. After each upload the job is marked done and the
// listing counter is incremented. The first failure marks that job failed
// and stops the loop; nothing after it is attempted.
// It returns the URLs of all jobs in position order.
func (u *MediaUploader) Run(ctx context.Context, listingID uuid.UUID, jobs []models.UploadJob, sources []Source) ([]string, error) {
	urls := make([]string, len(jobs))

	for i := range jobs {
		job := &jobs[i]
		if job.Status == models.UploadStatusDone {
			logging.Debugf("Media uploader: %s file %d already done", listingID, job.Position)
			urls[i] = job.URL
			continue
		}

		url, err := u.uploadOne(ctx, listingID, job, sourceAt(sources, job.Position))
		if err != nil {
			job.Status = models.UploadStatusFailed
			if uerr := u.store.UpdateUploadJob(ctx, job); uerr != nil {
				log.Printf("Media uploader: failed to mark job %d failed: %v", job.Position, uerr)
			}
			metrics.RecordUpload(models.UploadStatusFailed)
			u.logFn(models.LogLevelWarn, "media", fmt.Sprintf("Listing %s: file %d failed: %v", listingID, job.Position, err))
			return urls, &UploadError{Position: job.Position, Name: job.Name, Err: err}
		}

		job.Status = models.UploadStatusDone
		job.URL = url
		if err := u.store.UpdateUploadJob(ctx, job); err != nil {
			return urls, fmt.Errorf("mark job %d done: %w", job.Position, err)
		}
		progress, err := u.store.IncrementUploadProgress(ctx, listingID)
		if err != nil {
			return urls, fmt.Errorf("increment progress: %w", err)
		}
		urls[i] = url
		metrics.RecordUpload(models.UploadStatusDone)
		log.Printf("Media uploader: %s %d/%d -> %s", listingID, progress.Uploaded, progress.Total, url)
	}

	return urls, nil
}

func (u *MediaUploader) uploadOne(ctx context.Context, listingID uuid.UUID, job *models.UploadJob, src *Source) (string, error) {
	if src == nil || src.Open == nil {
		return "", fmt.Errorf("file not supplied")
	}

	job.Status = models.UploadStatusUploading
	job.Attempts++
	if err := u.store.UpdateUploadJob(ctx, job); err != nil {
		return "", fmt.Errorf("mark uploading: %w", err)
	}

	r, err := src.Open()
	if err != nil {
		return "", fmt.Errorf("open: %w", err)
	}
	defer r.Close()

	contentType := job.ContentType
	if contentType == "" {
		contentType = src.ContentType
	}
	key := MediaKey(u.keyPrefix, listingID, job.Position, job.Name, contentType)
	logging.Debugf("Media uploader: %s file %d attempt %d -> %s", listingID, job.Position, job.Attempts, key)

	handle, err := u.blobs.Upload(ctx, key, r, contentType)
	if err != nil {
		return "", err
	}
	return u.blobs.ResolveURL(handle), nil
}

func sourceAt(sources []Source, position int) *Source {
	if position < 0 || position >= len(sources) {
		return nil
	}
	return &sources[position]
}

// MediaKey generates the blob key: {prefix}/{listing}/{position}{ext}
func MediaKey(prefix string, listingID uuid.UUID, position int, name, contentType string) string {
	return fmt.Sprintf("%s/%s/%02d%s", prefix, listingID, position, guessExtension(name, contentType))
}

// guessExtension determines file extension from the file name or content-type
func guessExtension(name, contentType string) string {
	ext := strings.ToLower(path.Ext(name))
	if ext != "" && isMediaExt(ext) {
		return ext
	}

	switch contentType {
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	case "image/heic":
		return ".heic"
	case "video/mp4":
		return ".mp4"
	case "video/quicktime":
		return ".mov"
	default:
		return ".jpg"
	}
}

func isMediaExt(ext string) bool {
	switch ext {
	case ".jpg", ".jpeg", ".png", ".gif", ".webp", ".heic", ".mp4", ".mov":
		return true
	}
	return false
}

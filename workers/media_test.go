package workers

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"propsignal/models"
	"propsignal/storage"
)

type fakeBlobs struct {
	mu       sync.Mutex
	failKeys map[string]bool
	uploaded []string
}

func (b *fakeBlobs) Upload(ctx context.Context, key string, data io.Reader, contentType string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	io.Copy(io.Discard, data)
	if b.failKeys[key] {
		return "", errors.New("connection reset")
	}
	b.uploaded = append(b.uploaded, key)
	return key, nil
}

func (b *fakeBlobs) ResolveURL(handle string) string {
	return "https://cdn.test/" + handle
}

func sources(names ...string) ([]Source, *[]string) {
	var opened []string
	out := make([]Source, len(names))
	for i, name := range names {
		name := name
		out[i] = Source{
			Name:        name,
			ContentType: "image/jpeg",
			Open: func() (io.ReadCloser, error) {
				opened = append(opened, name)
				return io.NopCloser(bytes.NewReader([]byte(name))), nil
			},
		}
	}
	return out, &opened
}

func setupListing(t *testing.T, store *storage.MemoryStore, names ...string) (uuid.UUID, []models.UploadJob) {
	t.Helper()
	ctx := context.Background()

	l := &models.Listing{}
	if err := store.CreateListing(ctx, l); err != nil {
		t.Fatalf("create listing: %v", err)
	}
	jobs := make([]models.UploadJob, len(names))
	for i, name := range names {
		jobs[i] = models.UploadJob{Position: i, Name: name, ContentType: "image/jpeg", Status: models.UploadStatusPending}
	}
	if err := store.CreateUploadJobs(ctx, l.ID, jobs); err != nil {
		t.Fatalf("create jobs: %v", err)
	}
	if err := store.SetUploadProgress(ctx, l.ID, models.NewUploadProgress(0, len(names))); err != nil {
		t.Fatalf("set progress: %v", err)
	}
	return l.ID, jobs
}

func TestMediaUploaderStopsAtFirstFailure(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	id, jobs := setupListing(t, store, "a.jpg", "b.jpg", "c.jpg")

	blobs := &fakeBlobs{failKeys: map[string]bool{MediaKey("listings", id, 1, "b.jpg", "image/jpeg"): true}}
	srcs, opened := sources("a.jpg", "b.jpg", "c.jpg")

	_, err := NewMediaUploader(store, blobs, "").Run(ctx, id, jobs, srcs)
	var uerr *UploadError
	if !errors.As(err, &uerr) || uerr.Position != 1 {
		t.Fatalf("expected UploadError at position 1, got %v", err)
	}

	l, _ := store.GetListing(ctx, id)
	if l.Upload != (models.UploadProgress{Uploaded: 1, Total: 3, InProgress: true}) {
		t.Fatalf("unexpected progress %+v", l.Upload)
	}

	stored, _ := store.GetUploadJobs(ctx, id)
	want := []string{models.UploadStatusDone, models.UploadStatusFailed, models.UploadStatusPending}
	for i, j := range stored {
		if j.Status != want[i] {
			t.Fatalf("job %d: expected %s, got %s", i, want[i], j.Status)
		}
	}
	if len(*opened) != 2 {
		t.Fatalf("third file should never be opened, opened %v", *opened)
	}
}

func TestMediaUploaderResumeSkipsDone(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	id, jobs := setupListing(t, store, "a.jpg", "b.png", "c.jpg")

	failKey := MediaKey("listings", id, 1, "b.png", "image/jpeg")
	blobs := &fakeBlobs{failKeys: map[string]bool{failKey: true}}
	uploader := NewMediaUploader(store, blobs, "")

	srcs, _ := sources("a.jpg", "b.png", "c.jpg")
	if _, err := uploader.Run(ctx, id, jobs, srcs); err == nil {
		t.Fatalf("expected failure on first run")
	}

	blobs.failKeys = nil
	stored, _ := store.GetUploadJobs(ctx, id)
	srcs, opened := sources("a.jpg", "b.png", "c.jpg")
	urls, err := uploader.Run(ctx, id, stored, srcs)
	if err != nil {
		t.Fatalf("resume: %v", err)
	}

	if len(*opened) != 2 || (*opened)[0] != "b.png" {
		t.Fatalf("resume should only open remaining files, opened %v", *opened)
	}
	if len(urls) != 3 {
		t.Fatalf("expected 3 urls, got %v", urls)
	}
	for i, u := range urls {
		if !strings.HasPrefix(u, "https://cdn.test/listings/"+id.String()) {
			t.Fatalf("url %d unexpected: %s", i, u)
		}
	}
	if !strings.HasSuffix(urls[1], "/01.png") {
		t.Fatalf("expected position-ordered urls, got %v", urls)
	}

	l, _ := store.GetListing(ctx, id)
	if l.Upload != (models.UploadProgress{Uploaded: 3, Total: 3, InProgress: false}) {
		t.Fatalf("unexpected progress %+v", l.Upload)
	}
}

func TestMediaUploaderMissingSource(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	id, jobs := setupListing(t, store, "a.jpg", "b.jpg")

	srcs, _ := sources("a.jpg")
	_, err := NewMediaUploader(store, &fakeBlobs{}, "").Run(ctx, id, jobs, srcs)
	var uerr *UploadError
	if !errors.As(err, &uerr) || uerr.Position != 1 {
		t.Fatalf("expected UploadError at position 1, got %v", err)
	}
}

func TestGuessExtension(t *testing.T) {
	tests := []struct {
		name, contentType, want string
	}{
		{"IMG_001.JPEG", "", ".jpeg"},
		{"walkthrough.mov", "video/quicktime", ".mov"},
		{"upload", "image/png", ".png"},
		{"upload.bin", "", ".jpg"},
	}
	for _, tt := range tests {
		if got := guessExtension(tt.name, tt.contentType); got != tt.want {
			t.Errorf("guessExtension(%q, %q) = %q, want %q", tt.name, tt.contentType, got, tt.want)
		}
	}
}

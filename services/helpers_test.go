package services

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"propsignal/storage"
	"propsignal/workers"
)

// newTestStore returns a memory store whose clock advances one second per write
func newTestStore() *storage.MemoryStore {
	store := storage.NewMemoryStore()
	now := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	store.SetClock(func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(time.Second)
		return now
	})
	return store
}

type fakeBlobs struct {
	mu       sync.Mutex
	failOn   string
	uploaded []string
}

func (b *fakeBlobs) Upload(ctx context.Context, key string, data io.Reader, contentType string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	io.Copy(io.Discard, data)
	if b.failOn != "" && strings.Contains(key, b.failOn) {
		return "", errors.New("blob store unavailable")
	}
	b.uploaded = append(b.uploaded, key)
	return key, nil
}

func (b *fakeBlobs) ResolveURL(handle string) string {
	return "https://media.test/" + handle
}

func memorySources(t *testing.T, names ...string) []workers.Source {
	t.Helper()
	out := make([]workers.Source, len(names))
	for i, name := range names {
		body := []byte("bytes of " + name)
		out[i] = workers.Source{
			Name:        name,
			ContentType: "image/jpeg",
			Open: func() (io.ReadCloser, error) {
				return io.NopCloser(bytes.NewReader(body)), nil
			},
		}
	}
	return out
}

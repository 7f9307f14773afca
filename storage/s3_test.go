package storage

import (
	"testing"

	"propsignal/config"
)

func TestPublicURL(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.S3Config
		key  string
		want string
	}{
		{
			name: "aws",
			cfg:  config.S3Config{Bucket: "media", Region: "ap-southeast-2"},
			key:  "listings/abc/0.jpg",
			want: "https://media.s3.ap-southeast-2.amazonaws.com/listings/abc/0.jpg",
		},
		{
			name: "spaces",
			cfg:  config.S3Config{Bucket: "media", Endpoint: "https://syd1.digitaloceanspaces.com"},
			key:  "listings/abc/0.jpg",
			want: "https://media.syd1.digitaloceanspaces.com/listings/abc/0.jpg",
		},
		{
			name: "path style",
			cfg:  config.S3Config{Bucket: "media", Endpoint: "http://localhost:9000/"},
			key:  "/listings/abc/0.jpg",
			want: "http://localhost:9000/media/listings/abc/0.jpg",
		},
		{
			name: "cdn",
			cfg:  config.S3Config{Bucket: "media", PublicBaseURL: "https://cdn.example.com/"},
			key:  "listings/abc/0.jpg",
			want: "https://cdn.example.com/listings/abc/0.jpg",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PublicURL(tt.cfg, tt.key); got != tt.want {
				t.Fatalf("got %s, want %s", got, tt.want)
			}
		})
	}
}

// README: Audio content store backed by S3-compatible object storage.
package guide

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
)

// ContentStore names and resolves audio blobs. The guide core only ever
// hands out keys; resolving a key to a playable URL is the presentation
// boundary's concern.
type ContentStore interface {
	// ResolveURL returns a time-limited URL for the content key, or ok=false
	// when the blob does not exist.
	ResolveURL(ctx context.Context, key string) (string, bool)
}

// ObjectKey is the canonical blob key for a spot's audio in one language,
// e.g. "audio/library_cn.mp3".
func ObjectKey(spotID, lang string) string {
	return fmt.Sprintf("audio/%s_%s.mp3", spotID, lang)
}

const presignExpiry = 15 * time.Minute

// S3ContentStore serves audio from a MinIO / S3 bucket via presigned GETs.
type S3ContentStore struct {
	client *minio.Client
	bucket string
}

func NewS3ContentStore(client *minio.Client, bucket string) *S3ContentStore {
	return &S3ContentStore{client: client, bucket: bucket}
}

func (s *S3ContentStore) ResolveURL(ctx context.Context, key string) (string, bool) {
	if key == NoContent {
		return "", false
	}
	// Stat first so a missing blob reports "no content" instead of handing
	// the client a URL that 404s mid-tour.
	if _, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{}); err != nil {
		return "", false
	}
	u, err := s.client.PresignedGetObject(ctx, s.bucket, key, presignExpiry, url.Values{})
	if err != nil {
		return "", false
	}
	return u.String(), true
}

// NopContentStore is used when no object store is configured; keys are still
// reported to the UI but never resolve.
type NopContentStore struct{}

func (NopContentStore) ResolveURL(context.Context, string) (string, bool) {
	return "", false
}

// README: MinIO client initialization for the audio content store.
package infra

import (
	"fmt"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// NewMinio connects to an S3-compatible object store holding the guide audio
// blobs. endpoint may be empty, in which case the caller should run without a
// content store (keys are still reported, URLs are not resolvable).
func NewMinio(endpoint, accessKey, secretKey string, useSSL bool) (*minio.Client, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("minio endpoint not configured")
	}
	return minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
}

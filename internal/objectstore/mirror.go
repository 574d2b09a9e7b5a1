// Package objectstore mirrors published registry versions to an
// S3-compatible bucket.
package objectstore

import (
	"context"
	"net"
	"net/http"
	"path"
	"path/filepath"
	"strconv"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/thyroid-cli/internal/config"
	"github.com/sells-group/thyroid-cli/internal/registry"
	"github.com/sells-group/thyroid-cli/internal/resilience"
)

// client is the subset of *minio.Client the mirror uses.
type client interface {
	BucketExists(ctx context.Context, bucket string) (bool, error)
	MakeBucket(ctx context.Context, bucket string, opts minio.MakeBucketOptions) error
	FPutObject(ctx context.Context, bucket, object, filePath string, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	ListObjects(ctx context.Context, bucket string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo
}

// Mirror uploads registry versions to a bucket under <version>/<sub>/<file>.
type Mirror struct {
	client client
	bucket string
	region string
	retry  resilience.RetryConfig
}

// New connects to the configured endpoint. It does not contact the server.
func New(cfg config.MirrorConfig) (*Mirror, error) {
	if !cfg.Enabled() {
		return nil, eris.New("objectstore: mirror endpoint is not configured")
	}
	if cfg.Bucket == "" {
		return nil, eris.New("objectstore: bucket is required")
	}

	c, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:     credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure:    cfg.UseSSL,
		Region:    cfg.Region,
		Transport: newTransport(),
	})
	if err != nil {
		return nil, eris.Wrapf(err, "objectstore: connect %s", cfg.Endpoint)
	}
	return newMirror(c, cfg.Bucket, cfg.Region), nil
}

func newMirror(c client, bucket, region string) *Mirror {
	retry := resilience.DefaultRetryConfig()
	retry.ShouldRetry = isRetryable
	retry.OnRetry = resilience.RetryLogger("objectstore", "upload")
	return &Mirror{client: c, bucket: bucket, region: region, retry: retry}
}

// EnsureBucket creates the bucket if it does not exist.
func (m *Mirror) EnsureBucket(ctx context.Context) error {
	exists, err := m.client.BucketExists(ctx, m.bucket)
	if err != nil {
		return eris.Wrapf(err, "objectstore: check bucket %s", m.bucket)
	}
	if exists {
		return nil
	}
	if err := m.client.MakeBucket(ctx, m.bucket, minio.MakeBucketOptions{Region: m.region}); err != nil {
		return eris.Wrapf(err, "objectstore: create bucket %s", m.bucket)
	}
	zap.L().Info("objectstore: bucket created", zap.String("bucket", m.bucket))
	return nil
}

// Upload copies the three files of a published version to the bucket.
func (m *Mirror) Upload(ctx context.Context, version int, files registry.VersionPaths) error {
	if err := m.EnsureBucket(ctx); err != nil {
		return err
	}

	for _, file := range []string{files.Transformer, files.TargetEncoder, files.Model} {
		key := ObjectKey(version, file)
		err := resilience.Do(ctx, m.retry, func(ctx context.Context) error {
			_, err := m.client.FPutObject(ctx, m.bucket, key, file, minio.PutObjectOptions{
				ContentType: "application/json",
			})
			return err
		})
		if err != nil {
			return eris.Wrapf(err, "objectstore: upload %s", key)
		}
		zap.L().Debug("objectstore: object uploaded",
			zap.String("bucket", m.bucket),
			zap.String("key", key),
		)
	}
	return nil
}

// Versions lists the version prefixes present in the bucket.
func (m *Mirror) Versions(ctx context.Context) ([]string, error) {
	var out []string
	for obj := range m.client.ListObjects(ctx, m.bucket, minio.ListObjectsOptions{}) {
		if obj.Err != nil {
			return nil, eris.Wrapf(obj.Err, "objectstore: list %s", m.bucket)
		}
		out = append(out, path.Clean(obj.Key))
	}
	return out, nil
}

// ObjectKey is the bucket key of a registry file: the version number
// followed by the file's sub-directory and name.
func ObjectKey(version int, file string) string {
	return path.Join(strconv.Itoa(version), filepath.Base(filepath.Dir(file)), filepath.Base(file))
}

func isRetryable(err error) bool {
	if resilience.IsTransient(err) {
		return true
	}
	resp := minio.ToErrorResponse(err)
	return resilience.IsTransientHTTPStatus(resp.StatusCode)
}

func newTransport() *http.Transport {
	dialer := &net.Dialer{
		Timeout:   5 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	return &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          20,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
}

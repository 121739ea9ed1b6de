package pmtiles

import (
	"context"
	"fmt"
	"io"
	"strings"

	"gocloud.dev/blob"
	_ "gocloud.dev/blob/azureblob"
	"gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/gcsblob"
	_ "gocloud.dev/blob/s3blob"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/tileserv/tileserv/internal/errs"
	"github.com/tileserv/tileserv/internal/metrics"
)

// Bucket is the byte-range read capability required by §4.5.1,
// satisfied here by gocloud.dev/blob (as used by the real
// protomaps/go-pmtiles server) for local paths and s3://, gs:// and
// azblob:// URIs. No http(s) driver is registered, so http:// and
// https:// archive URIs fail to open.
type Bucket struct {
	bucket  *blob.Bucket
	key     string
	metrics *metrics.Metrics
}

// OpenBucket resolves archiveURI (a local path or a scheme://bucket/key
// style URI) to a Bucket positioned at the archive object. m may be
// nil, in which case range-read metrics are not recorded.
func OpenBucket(ctx context.Context, archiveURI string, m *metrics.Metrics) (*Bucket, error) {
	if !strings.Contains(archiveURI, "://") {
		dir, key := splitLocalPath(archiveURI)
		b, err := fileblob.OpenBucket(dir, nil)
		if err != nil {
			return nil, errs.Config("opening local pmtiles bucket", err)
		}
		return &Bucket{bucket: b, key: key, metrics: m}, nil
	}

	idx := strings.LastIndex(archiveURI, "/")
	if idx < 0 {
		return nil, errs.Config("malformed pmtiles archive uri", nil)
	}
	bucketURL := archiveURI[:idx]
	key := archiveURI[idx+1:]

	b, err := blob.OpenBucket(ctx, bucketURL)
	if err != nil {
		return nil, errs.Config("opening pmtiles bucket "+bucketURL, err)
	}
	return &Bucket{bucket: b, key: key, metrics: m}, nil
}

func splitLocalPath(p string) (dir, key string) {
	idx := strings.LastIndex(p, "/")
	if idx < 0 {
		return ".", p
	}
	return p[:idx], p[idx+1:]
}

// ReadRange reads length bytes at offset, retrying once on any error
// (errors are not classified as transient or permanent before the
// retry), recording fetch latency and failures when metrics are
// configured.
func (b *Bucket) ReadRange(ctx context.Context, offset, length uint64) ([]byte, error) {
	var timer *prometheus.Timer
	if b.metrics != nil {
		timer = prometheus.NewTimer(b.metrics.BucketFetchLatency)
	}
	data, err := b.readRangeAttempt(ctx, offset, length)
	if err != nil {
		data, err = b.readRangeAttempt(ctx, offset, length)
	}
	if timer != nil {
		timer.ObserveDuration()
	}
	if err != nil {
		if b.metrics != nil {
			b.metrics.BucketFetchErrors.Inc()
		}
		return nil, errs.Upstream(fmt.Sprintf("range read %d+%d", offset, length), err)
	}
	return data, nil
}

func (b *Bucket) readRangeAttempt(ctx context.Context, offset, length uint64) ([]byte, error) {
	r, err := b.bucket.NewRangeReader(ctx, b.key, int64(offset), int64(length), nil)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

// Attributes returns the object's ETag, used by Source to detect that
// the underlying archive has changed underneath a warm directory cache
// (§4.5.4's stale-ETag re-fetch).
func (b *Bucket) Attributes(ctx context.Context) (string, error) {
	attrs, err := b.attrs(ctx)
	if err != nil {
		return "", err
	}
	return attrs.ETag, nil
}

// Size returns the archive's total byte length, used by validateHeader
// (§4.5.2) to confirm every header offset lies within the archive.
func (b *Bucket) Size(ctx context.Context) (int64, error) {
	attrs, err := b.attrs(ctx)
	if err != nil {
		return -1, err
	}
	return attrs.Size, nil
}

func (b *Bucket) attrs(ctx context.Context) (*blob.Attributes, error) {
	attrs, err := b.bucket.Attributes(ctx, b.key)
	if err != nil {
		return nil, errs.Upstream("reading archive attributes", err)
	}
	return attrs, nil
}

func (b *Bucket) Close() error { return b.bucket.Close() }

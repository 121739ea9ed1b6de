package pmtiles

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/tileserv/tileserv/internal/cache"
	"github.com/tileserv/tileserv/internal/catalog"
	"github.com/tileserv/tileserv/internal/errs"
	"github.com/tileserv/tileserv/internal/metrics"
	"github.com/tileserv/tileserv/internal/tileutil"
)

// maxDirectoryDepth caps directory recursion at 4 per §4.5.3;
// exceeding it is Corrupt (surfaced here as MalformedTile).
const maxDirectoryDepth = 4

// degradeThreshold is the number of consecutive upstream failures
// after which an archive stops serving tiles until process restart
// (§7's "archive is marked degraded").
const degradeThreshold = 5

// etagRecheckInterval bounds how often a request re-fetches the
// archive's ETag to detect that it changed underneath a warm
// directory cache (§4.5.4).
const etagRecheckInterval = 30 * time.Second

// DirKey identifies one cached directory: the owning archive plus its
// byte offset within that archive (§3's DirectoryCache entry key).
type DirKey struct {
	ArchiveID string
	Offset    uint64
}

// DirectoryCache is the shared, single-flight, size-bounded cache
// described in §4.5.4, reused by every open archive.
type DirectoryCache = cache.Cache[DirKey, Directory]

// NewDirectoryCache creates a DirectoryCache bounded by budget entries
// (cost = entry count per §3).
func NewDirectoryCache(budget int) *DirectoryCache {
	return cache.New[DirKey, Directory](budget,
		func(d Directory) int { return d.SizeBytes() },
		func(k DirKey) string { return fmt.Sprintf("%s@%d", k.ArchiveID, k.Offset) },
	)
}

// Source implements catalog.Source over a single PMTiles v3 archive
// (C5). It is read-only and safe for concurrent use once Open
// succeeds.
type Source struct {
	id         string
	bucket     *Bucket
	header     HeaderV3
	metadata   map[string]any
	dirCache   *DirectoryCache
	descriptor catalog.TileJSON
	metrics    *metrics.Metrics

	degraded     atomic.Bool
	failureCount atomic.Int32

	etag          atomic.Pointer[string]
	lastETagCheck atomic.Int64
}

// Open fetches the header and metadata once, validates the magic and
// version, and returns a ready Source. dirCache is the shared
// directory cache this archive's directories will be stored in. m may
// be nil, in which case directory-cache and bucket-fetch metrics are
// not recorded.
func Open(ctx context.Context, id, archiveURI string, dirCache *DirectoryCache, m *metrics.Metrics) (*Source, error) {
	bucket, err := OpenBucket(ctx, archiveURI, m)
	if err != nil {
		return nil, err
	}

	headerBytes, err := bucket.ReadRange(ctx, 0, HeaderV3LenBytes)
	if err != nil {
		bucket.Close()
		return nil, errs.Upstream("reading pmtiles header", err)
	}
	header, err := DeserializeHeader(headerBytes)
	if err != nil {
		bucket.Close()
		return nil, err
	}

	// archiveLength is best-effort: a backend that can't report object
	// size (archiveLength < 0) just skips the offset-bounds check below.
	archiveLength, err := bucket.Size(ctx)
	if err != nil {
		archiveLength = -1
	}
	if err := validateHeader(header, archiveLength); err != nil {
		bucket.Close()
		return nil, err
	}

	metadata, err := readMetadata(ctx, bucket, header)
	if err != nil {
		bucket.Close()
		return nil, err
	}

	src := &Source{
		id:       id,
		bucket:   bucket,
		header:   header,
		metadata: metadata,
		dirCache: dirCache,
		metrics:  m,
	}
	if etag, err := bucket.Attributes(ctx); err == nil {
		src.etag.Store(&etag)
	}
	src.lastETagCheck.Store(time.Now().UnixNano())
	src.descriptor = buildTileJSON(id, header, metadata)
	return src, nil
}

// validateHeader checks the §3 invariants that are cheap to verify,
// plus, when archiveLength is known, §4.5.2's requirement that every
// offset/length pair the header declares lies within the archive.
func validateHeader(h HeaderV3, archiveLength int64) error {
	if h.SpecVersion != 3 {
		return errs.MalformedTile(fmt.Sprintf("unsupported pmtiles version %d", h.SpecVersion))
	}
	if h.AddressedTilesCount < h.TileEntriesCount || h.TileEntriesCount < h.TileContentsCount {
		return errs.MalformedTile("addressed/entries/contents count invariant violated")
	}
	if h.TileType == UnknownTileType {
		return errs.MalformedTile("unrecognized tile type")
	}
	if archiveLength < 0 {
		return nil
	}
	for _, r := range []struct {
		what           string
		offset, length uint64
	}{
		{"root directory", h.RootOffset, h.RootLength},
		{"metadata", h.MetadataOffset, h.MetadataLength},
		{"leaf directories", h.LeafDirectoryOffset, h.LeafDirectoryLength},
		{"tile data", h.TileDataOffset, h.TileDataLength},
	} {
		if r.length == 0 {
			continue
		}
		end := r.offset + r.length
		if end < r.offset || end > uint64(archiveLength) {
			return errs.MalformedTile(fmt.Sprintf("%s range [%d,%d) exceeds archive length %d", r.what, r.offset, end, archiveLength))
		}
	}
	return nil
}

func readMetadata(ctx context.Context, bucket *Bucket, h HeaderV3) (map[string]any, error) {
	raw, err := bucket.ReadRange(ctx, h.MetadataOffset, h.MetadataLength)
	if err != nil {
		return nil, errs.Upstream("reading pmtiles metadata", err)
	}
	if h.InternalCompression == Gzip {
		gz, err := gzip.NewReader(bytes.NewReader(raw))
		if err != nil {
			return nil, errs.MalformedTile("metadata gzip: " + err.Error())
		}
		defer gz.Close()
		raw, err = io.ReadAll(gz)
		if err != nil {
			return nil, errs.MalformedTile("metadata gzip: " + err.Error())
		}
	}
	if len(raw) == 0 {
		return map[string]any{}, nil
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, errs.MalformedTile("metadata json: " + err.Error())
	}
	return m, nil
}

func (s *Source) ID() string { return s.id }

func (s *Source) TileInfo() tileutil.Info {
	return tileutil.Info{
		Format:   tileTypeToFormat(s.header.TileType),
		Encoding: compressionToEncoding(s.header.TileCompression),
	}
}

func (s *Source) Descriptor() catalog.TileJSON { return s.descriptor }

func (s *Source) SupportsURLQuery() bool         { return false }
func (s *Source) IsEmptyOkayOnZoom(z uint8) bool { return false }

// GetTile implements §4.5.3's directory traversal and §4.5.5's tile
// read, using the shared single-flight DirectoryCache at every level.
func (s *Source) GetTile(ctx context.Context, z uint8, x, y uint32, _ map[string]any) (tileutil.Tile, error) {
	if s.degraded.Load() {
		return tileutil.Tile{}, errs.MalformedTile("archive degraded after repeated failures")
	}
	s.refreshIfStale(ctx)
	if !tileutil.ValidCoord(z, x, y) {
		return tileutil.Tile{}, errs.MalformedRequest("coordinate out of range")
	}
	if int(z) < int(s.header.MinZoom) || int(z) > int(s.header.MaxZoom) {
		return tileutil.Tile{}, errs.NotFound("zoom outside archive's declared range")
	}

	tileID := ZXYToTileID(z, x, y)

	offset, length, found, err := s.findTile(ctx, tileID)
	if err != nil {
		s.recordFailure()
		return tileutil.Tile{}, err
	}
	if !found {
		return tileutil.Tile{Info: s.TileInfo(), Bytes: nil}, nil
	}

	data, err := s.bucket.ReadRange(ctx, s.header.TileDataOffset+offset, uint64(length))
	if err != nil {
		s.recordFailure()
		return tileutil.Tile{}, err
	}
	s.failureCount.Store(0)
	return tileutil.Tile{Info: s.TileInfo(), Bytes: data}, nil
}

// refreshIfStale re-fetches the archive's ETag at most once per
// etagRecheckInterval and, if it changed, purges this archive's
// entries from the shared directory cache so the next lookup re-reads
// from the bucket instead of serving directories from a replaced
// archive (§4.5.4).
func (s *Source) refreshIfStale(ctx context.Context) {
	last := s.lastETagCheck.Load()
	now := time.Now().UnixNano()
	if now-last < int64(etagRecheckInterval) {
		return
	}
	if !s.lastETagCheck.CompareAndSwap(last, now) {
		return
	}

	current, err := s.bucket.Attributes(ctx)
	if err != nil || current == "" {
		return
	}
	prev := s.etag.Swap(&current)
	if prev != nil && *prev != "" && *prev != current {
		s.dirCache.RemoveMatching(func(k DirKey) bool { return k.ArchiveID == s.id })
	}
}

func (s *Source) recordFailure() {
	if s.failureCount.Add(1) >= degradeThreshold {
		s.degraded.Store(true)
	}
}

// findTile walks the root directory and, recursively, leaf directories
// up to maxDirectoryDepth, as described in §4.5.3.
func (s *Source) findTile(ctx context.Context, tileID uint64) (offset uint64, length uint32, found bool, err error) {
	dirOffset := s.header.RootOffset
	dirLength := s.header.RootLength

	for depth := 0; depth <= maxDirectoryDepth; depth++ {
		if depth == maxDirectoryDepth {
			return 0, 0, false, errs.MalformedTile("directory recursion exceeded cap")
		}

		dir, err := s.loadDirectory(ctx, dirOffset, dirLength)
		if err != nil {
			return 0, 0, false, err
		}

		entry, ok := dir.Find(tileID)
		if !ok {
			return 0, 0, false, nil
		}
		if entry.IsLeaf() {
			dirOffset = s.header.LeafDirectoryOffset + entry.Offset
			dirLength = uint64(entry.Length)
			continue
		}
		return entry.Offset, entry.Length, true, nil
	}
	return 0, 0, false, errs.MalformedTile("directory recursion exceeded cap")
}

func (s *Source) loadDirectory(ctx context.Context, offset, length uint64) (Directory, error) {
	key := DirKey{ArchiveID: s.id, Offset: offset}
	dir, err, cached := s.dirCache.GetOrCompute(key, func() (Directory, error) {
		raw, err := s.bucket.ReadRange(ctx, offset, length)
		if err != nil {
			return nil, err
		}
		return DeserializeEntries(raw, s.header.InternalCompression)
	})
	if s.metrics != nil {
		if cached {
			s.metrics.DirectoryCacheHits.Inc()
		} else {
			s.metrics.DirectoryCacheMisses.Inc()
		}
	}
	return dir, err
}

func (s *Source) Close() error { return s.bucket.Close() }

func tileTypeToFormat(t TileType) tileutil.Format {
	switch t {
	case Mvt:
		return tileutil.FormatMVT
	case Png:
		return tileutil.FormatPNG
	case Jpeg:
		return tileutil.FormatJPEG
	case Webp:
		return tileutil.FormatWebP
	default:
		return tileutil.FormatPlain
	}
}

func compressionToEncoding(c Compression) tileutil.Encoding {
	switch c {
	case Gzip:
		return tileutil.EncodingGzip
	case Brotli:
		return tileutil.EncodingBrotli
	case Zstd:
		return tileutil.EncodingZstd
	default:
		return tileutil.EncodingIdentity
	}
}

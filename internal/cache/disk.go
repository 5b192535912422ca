package cache

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// entryExt is the file extension for cache entries.
const entryExt = ".entry"

// diskCache implements Cache as a flat directory of content-addressed,
// checksum-verified files.
//
// Each entry is a single file named hex(sha256(key)) + ".entry" containing a
// JSON metadata line followed by the raw payload bytes:
//
//	{"checksum":"9f86d0...","created_at":"...","ttl_ns":604800000000000,"size":123}\n
//	<payload>
//
// Entries are immutable once written: a refresh is a whole-file atomic
// replace via temp file + rename, never an in-place edit. Readers therefore
// need no locking; they observe either the complete old entry or the
// complete new one. Concurrent writers need no lock either, the last rename
// simply wins with a self-consistent entry.
//
// Verification happens on every read: the stored checksum is compared
// against a fresh SHA-256 of the stored payload, and the creation time plus
// TTL is compared against the clock. Entries failing either check are
// removed and reported as a miss, so a known-bad file is not re-read
// forever.
type diskCache struct {
	dir    string
	log    zerolog.Logger
	closed atomic.Bool

	hits          atomic.Uint64
	misses        atomic.Uint64
	corruptions   atomic.Uint64
	expirations   atomic.Uint64
	writeFailures atomic.Uint64
}

// Ensure diskCache implements the required interfaces.
var (
	_ Cache         = (*diskCache)(nil)
	_ StatsProvider = (*diskCache)(nil)
	_ Purger        = (*diskCache)(nil)
)

// entryMeta is the metadata header stored on the first line of each entry.
// TTL is stored in nanoseconds so sub-second lifetimes survive the round
// trip instead of truncating to "never expires".
type entryMeta struct {
	Checksum  string        `json:"checksum"`
	CreatedAt time.Time     `json:"created_at"`
	TTL       time.Duration `json:"ttl_ns"`
	Size      int           `json:"size"`
}

// expired reports whether the entry's TTL has elapsed. A zero TTL means the
// entry never expires.
func (m *entryMeta) expired(now time.Time) bool {
	if m.TTL <= 0 {
		return false
	}
	return !now.Before(m.CreatedAt.Add(m.TTL))
}

// newDiskCache creates the persistent store rooted at cfg.Dir, creating the
// directory if needed.
func newDiskCache(cfg DiskConfig) (*diskCache, error) {
	log := logger().With().Str("backend", "disk").Logger()

	dir := filepath.Clean(cfg.Dir)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		log.Error().Err(err).Str("dir", dir).Msg("failed to create cache directory")
		return nil, fmt.Errorf("cache: create dir: %w", err)
	}

	log.Info().Str("dir", dir).Msg("disk cache opened")

	return &diskCache{
		dir: dir,
		log: log,
	}, nil
}

// path returns the entry file path for a key. Keys are hashed so arbitrary
// endpoint/parameter strings map onto safe, fixed-length file names.
func (d *diskCache) path(key string) string {
	sum := sha256.Sum256([]byte(key))
	return filepath.Join(d.dir, hex.EncodeToString(sum[:])+entryExt)
}

// checksum returns the hex SHA-256 digest of payload.
func checksum(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

// Get retrieves a value, verifying its checksum and TTL. Any invalid state
// (missing, unreadable, corrupt, expired) is reported as ErrNotFound;
// corrupt and expired entries are removed so they are not re-read.
func (d *diskCache) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if d.closed.Load() {
		return nil, ErrClosed
	}

	payload, err := d.read(key, time.Now())
	if err != nil {
		d.misses.Add(1)
		d.log.Debug().Str("key", key).Bool("hit", false).Msg("cache get")
		return nil, ErrNotFound
	}

	d.hits.Add(1)
	d.log.Debug().Str("key", key).Bool("hit", true).Int("size", len(payload)).Msg("cache get")
	return payload, nil
}

// read loads and verifies one entry. It returns ErrNotFound for every
// invalid state after removing entries that can never become valid again.
func (d *diskCache) read(key string, now time.Time) ([]byte, error) {
	path := d.path(key)

	raw, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			// Unreadable counts as corrupt: drop it so the next read is a
			// clean miss instead of another failed read.
			d.discardCorrupt(key, path, err)
		}
		return nil, ErrNotFound
	}

	nl := bytes.IndexByte(raw, '\n')
	if nl < 0 {
		d.discardCorrupt(key, path, fmt.Errorf("missing metadata delimiter"))
		return nil, ErrNotFound
	}

	var meta entryMeta
	if err := json.Unmarshal(raw[:nl], &meta); err != nil {
		d.discardCorrupt(key, path, err)
		return nil, ErrNotFound
	}

	payload := raw[nl+1:]
	if len(payload) != meta.Size || checksum(payload) != meta.Checksum {
		d.discardCorrupt(key, path, fmt.Errorf("checksum mismatch"))
		return nil, ErrNotFound
	}

	if meta.expired(now) {
		d.expirations.Add(1)
		d.log.Debug().Str("key", key).Time("created_at", meta.CreatedAt).Msg("cache entry expired")
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			d.log.Warn().Err(err).Str("key", key).Msg("failed to remove expired entry")
		}
		return nil, ErrNotFound
	}

	return payload, nil
}

// discardCorrupt logs and removes an entry that failed verification.
func (d *diskCache) discardCorrupt(key, path string, cause error) {
	d.corruptions.Add(1)
	d.log.Warn().Err(cause).Str("key", key).Msg("discarding corrupt cache entry")
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		d.log.Warn().Err(err).Str("key", key).Msg("failed to remove corrupt entry")
	}
}

// Set stores a value with no expiration.
func (d *diskCache) Set(ctx context.Context, key string, value []byte) error {
	return d.SetWithTTL(ctx, key, value, 0)
}

// SetWithTTL stores a value with a time-to-live. The entry is fully written
// to a temp file in the cache directory and then renamed into place, so a
// concurrent Get sees either the old entry or the new one, never a partial
// write.
func (d *diskCache) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if d.closed.Load() {
		return ErrClosed
	}

	meta := entryMeta{
		Checksum:  checksum(value),
		CreatedAt: time.Now().UTC(),
		TTL:       ttl,
		Size:      len(value),
	}

	if err := d.write(key, meta, value); err != nil {
		d.writeFailures.Add(1)
		d.log.Warn().Err(err).Str("key", key).Msg("cache write failed")
		return fmt.Errorf("%w: %w", ErrWriteFailed, err)
	}

	d.log.Debug().Str("key", key).Int("size", len(value)).Dur("ttl", ttl).Msg("cache set")
	return nil
}

func (d *diskCache) write(key string, meta entryMeta, value []byte) error {
	header, err := json.Marshal(meta)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(d.dir, ".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	_, err = tmp.Write(append(header, '\n'))
	if err == nil {
		_, err = tmp.Write(value)
	}
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(tmpName)
		return err
	}

	if err := os.Rename(tmpName, d.path(key)); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return nil
}

// Delete removes a key. Returns nil if the key does not exist (idempotent).
func (d *diskCache) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if d.closed.Load() {
		return ErrClosed
	}

	if err := os.Remove(d.path(key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("cache: delete: %w", err)
	}

	d.log.Debug().Str("key", key).Msg("cache delete")
	return nil
}

// Exists reports whether a valid, unexpired entry exists without counting a
// hit or miss.
func (d *diskCache) Exists(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if d.closed.Load() {
		return false, ErrClosed
	}

	_, err := d.read(key, time.Now())
	return err == nil, nil
}

// Close marks the cache closed. No file handles are held between
// operations, so there is nothing else to release.
func (d *diskCache) Close() error {
	if d.closed.Swap(true) {
		return nil
	}
	d.log.Info().Msg("disk cache closed")
	return nil
}

// Purge removes every entry file in the cache directory.
func (d *diskCache) Purge(ctx context.Context) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if d.closed.Load() {
		return 0, ErrClosed
	}

	entries, err := os.ReadDir(d.dir)
	if err != nil {
		return 0, fmt.Errorf("cache: purge: %w", err)
	}

	var removed uint64
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), entryExt) {
			continue
		}
		if err := os.Remove(filepath.Join(d.dir, entry.Name())); err != nil && !os.IsNotExist(err) {
			return removed, fmt.Errorf("cache: purge: %w", err)
		}
		removed++
	}

	d.log.Info().Uint64("removed", removed).Msg("cache purged")
	return removed, nil
}

// Stats returns current cache statistics. KeyCount and BytesUsed are
// computed by scanning the directory.
func (d *diskCache) Stats() Stats {
	stats := Stats{
		Hits:          d.hits.Load(),
		Misses:        d.misses.Load(),
		Corruptions:   d.corruptions.Load(),
		Expirations:   d.expirations.Load(),
		WriteFailures: d.writeFailures.Load(),
	}
	if d.closed.Load() {
		return stats
	}

	entries, err := os.ReadDir(d.dir)
	if err != nil {
		d.log.Warn().Err(err).Msg("failed to scan cache directory for stats")
		return stats
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), entryExt) {
			continue
		}
		stats.KeyCount++
		if info, err := entry.Info(); err == nil {
			stats.BytesUsed += uint64(info.Size())
		}
	}
	return stats
}

package session

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return mr, client
}

func digestFor(token string) [32]byte {
	return sha256.Sum256([]byte(token))
}

func liveRecord(ttl time.Duration) *Record {
	now := time.Now()
	return &Record{
		ExpiresAt:     now.Add(ttl).Unix(),
		CreatedAt:     now.Unix(),
		DeviceInfo:    "test-agent",
		SourceAddress: "10.0.0.1",
	}
}

func TestAddAndContains(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	ctx := context.Background()
	store := NewStore(rdb, "sa", 5)

	digest := digestFor("token-1")
	evicted, err := store.Add(ctx, "c1", digest, liveRecord(time.Hour))
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if evicted != 0 {
		t.Fatalf("expected no evictions, got %d", evicted)
	}

	rec, err := store.Contains(ctx, "c1", digest)
	if err != nil {
		t.Fatalf("Contains failed: %v", err)
	}
	if rec.DeviceInfo != "test-agent" || rec.SourceAddress != "10.0.0.1" {
		t.Fatalf("unexpected record: %+v", rec)
	}

	_, err = store.Contains(ctx, "c1", digestFor("unknown"))
	if !errors.Is(err, ErrTokenNotFound) {
		t.Fatalf("expected ErrTokenNotFound, got %v", err)
	}
}

func TestAddEvictsOldestAboveCapacity(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	ctx := context.Background()
	store := NewStore(rdb, "sa", 3)

	for i := 0; i < 3; i++ {
		if _, err := store.Add(ctx, "c1", digestFor(fmt.Sprintf("token-%d", i)), liveRecord(time.Hour)); err != nil {
			t.Fatalf("Add %d failed: %v", i, err)
		}
		// Distinct millisecond scores keep creation order unambiguous.
		time.Sleep(2 * time.Millisecond)
	}

	evicted, err := store.Add(ctx, "c1", digestFor("token-3"), liveRecord(time.Hour))
	if err != nil {
		t.Fatalf("Add over capacity failed: %v", err)
	}
	if evicted != 1 {
		t.Fatalf("expected one eviction, got %d", evicted)
	}

	if _, err := store.Contains(ctx, "c1", digestFor("token-0")); !errors.Is(err, ErrTokenNotFound) {
		t.Fatalf("expected oldest entry to be evicted, got %v", err)
	}
	for i := 1; i <= 3; i++ {
		if _, err := store.Contains(ctx, "c1", digestFor(fmt.Sprintf("token-%d", i))); err != nil {
			t.Fatalf("entry %d should survive: %v", i, err)
		}
	}

	count, err := store.Count(ctx, "c1")
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 3 {
		t.Fatalf("expected 3 entries, got %d", count)
	}
}

func TestAddPrunesExpiredEntriesFirst(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	ctx := context.Background()
	store := NewStore(rdb, "sa", 3)

	// Seed the ring with already-expired entries directly; Add refuses to
	// write them itself.
	for i := 0; i < 3; i++ {
		rec := liveRecord(time.Hour)
		rec.ExpiresAt = time.Now().Add(-time.Minute).Unix()
		blob, err := Encode(rec)
		if err != nil {
			t.Fatalf("Encode failed: %v", err)
		}
		member := memberFor(digestFor(fmt.Sprintf("short-%d", i)))
		if err := rdb.ZAdd(ctx, "sa:ring:c1", redis.Z{Score: float64(i), Member: member}).Err(); err != nil {
			t.Fatalf("ZAdd failed: %v", err)
		}
		if err := rdb.HSet(ctx, "sa:rec:c1", member, blob).Err(); err != nil {
			t.Fatalf("HSet failed: %v", err)
		}
	}

	evicted, err := store.Add(ctx, "c1", digestFor("fresh"), liveRecord(time.Hour))
	if err != nil {
		t.Fatalf("Add after expiry failed: %v", err)
	}
	if evicted != 0 {
		t.Fatalf("expected pruning instead of eviction, got %d evictions", evicted)
	}

	count, err := store.Count(ctx, "c1")
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected only the fresh entry, got %d", count)
	}
}

func TestContainsExpiredEntryIsRemoved(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	ctx := context.Background()
	store := NewStore(rdb, "sa", 5)

	digest := digestFor("token-1")
	rec := liveRecord(time.Minute)
	if _, err := store.Add(ctx, "c1", digest, rec); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	// Rewrite the stored blob with a past expiry; the entry is logically dead.
	rec.ExpiresAt = time.Now().Add(-time.Second).Unix()

	blob, err := Encode(rec)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	member := memberFor(digest)
	if err := rdb.HSet(ctx, "sa:rec:c1", member, blob).Err(); err != nil {
		t.Fatalf("HSet failed: %v", err)
	}

	if _, err := store.Contains(ctx, "c1", digest); !errors.Is(err, ErrTokenNotFound) {
		t.Fatalf("expected ErrTokenNotFound for expired entry, got %v", err)
	}

	count, err := store.Count(ctx, "c1")
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected lazy removal, got %d entries", count)
	}
}

func TestRemoveIsIdempotent(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	ctx := context.Background()
	store := NewStore(rdb, "sa", 5)

	digest := digestFor("token-1")
	if _, err := store.Add(ctx, "c1", digest, liveRecord(time.Hour)); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	if err := store.Remove(ctx, "c1", digest); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if err := store.Remove(ctx, "c1", digest); err != nil {
		t.Fatalf("second Remove should be a no-op: %v", err)
	}
	if err := store.Remove(ctx, "c1", digestFor("never-added")); err != nil {
		t.Fatalf("Remove of absent entry should be a no-op: %v", err)
	}
}

func TestRemoveAll(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	ctx := context.Background()
	store := NewStore(rdb, "sa", 5)

	for i := 0; i < 3; i++ {
		if _, err := store.Add(ctx, "c1", digestFor(fmt.Sprintf("token-%d", i)), liveRecord(time.Hour)); err != nil {
			t.Fatalf("Add %d failed: %v", i, err)
		}
	}

	if err := store.RemoveAll(ctx, "c1"); err != nil {
		t.Fatalf("RemoveAll failed: %v", err)
	}

	count, err := store.Count(ctx, "c1")
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected empty ring, got %d", count)
	}
	if mr.Exists("sa:ring:c1") || mr.Exists("sa:rec:c1") {
		t.Fatal("expected ring keys to be deleted")
	}
}

func TestListOrdersByCreation(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	ctx := context.Background()
	store := NewStore(rdb, "sa", 5)

	for i := 0; i < 3; i++ {
		if _, err := store.Add(ctx, "c1", digestFor(fmt.Sprintf("token-%d", i)), liveRecord(time.Hour)); err != nil {
			t.Fatalf("Add %d failed: %v", i, err)
		}
		time.Sleep(2 * time.Millisecond)
	}

	entries, err := store.List(ctx, "c1")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	for i := 0; i < 3; i++ {
		want := memberFor(digestFor(fmt.Sprintf("token-%d", i)))
		if entries[i].Digest != want {
			t.Fatalf("entry %d out of order: got %s want %s", i, entries[i].Digest, want)
		}
	}
}

func TestRecordEncodeDecode(t *testing.T) {
	rec := &Record{
		ExpiresAt:     time.Now().Add(time.Hour).Unix(),
		CreatedAt:     time.Now().Unix(),
		DeviceInfo:    "Mozilla/5.0",
		SourceAddress: "192.168.1.10",
	}

	blob, err := Encode(rec)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	decoded, err := Decode(blob)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if *decoded != *rec {
		t.Fatalf("round trip mismatch: %+v != %+v", decoded, rec)
	}

	for _, corrupt := range [][]byte{nil, {}, {99}, blob[:3]} {
		if _, err := Decode(corrupt); !errors.Is(err, ErrRecordCorrupt) {
			t.Fatalf("expected ErrRecordCorrupt for %v, got %v", corrupt, err)
		}
	}

	// Zero-length metadata fields round-trip too.
	empty, err := Encode(&Record{ExpiresAt: 1, CreatedAt: 1})
	if err != nil {
		t.Fatalf("Encode of empty fields failed: %v", err)
	}
	if _, err := Decode(empty); err != nil {
		t.Fatalf("Decode of empty fields failed: %v", err)
	}
}

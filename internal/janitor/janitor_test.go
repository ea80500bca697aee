package janitor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/kylejryan/healthcare-claims-dashboard/internal/ddb"
	"github.com/kylejryan/healthcare-claims-dashboard/internal/s3io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type storeFake struct {
	pages   [][]types.Object
	calls   int
	deletes [][]string
	failKey string
}

func (f *storeFake) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	if aws.ToString(in.Prefix) != s3io.KeyPrefix {
		return nil, fmt.Errorf("unexpected prefix %q", aws.ToString(in.Prefix))
	}
	i := f.calls
	f.calls++
	out := &s3.ListObjectsV2Output{}
	if i < len(f.pages) {
		out.Contents = f.pages[i]
	}
	if i < len(f.pages)-1 {
		out.IsTruncated = aws.Bool(true)
		out.NextContinuationToken = aws.String(fmt.Sprintf("t%d", i+1))
	}
	return out, nil
}

func (f *storeFake) DeleteObjects(_ context.Context, in *s3.DeleteObjectsInput, _ ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error) {
	var keys []string
	out := &s3.DeleteObjectsOutput{}
	for _, o := range in.Delete.Objects {
		k := aws.ToString(o.Key)
		keys = append(keys, k)
		if k == f.failKey {
			out.Errors = append(out.Errors, types.Error{Key: o.Key, Code: aws.String("AccessDenied")})
		}
	}
	f.deletes = append(f.deletes, keys)
	return out, nil
}

type keysFake struct {
	scan ddb.KeyScan
	err  error
}

func (f keysFake) ObjectKeys(context.Context) (ddb.KeyScan, error) { return f.scan, f.err }

// referencing is a table whose every record names one of keys.
func referencing(keys ...string) keysFake {
	scan := ddb.KeyScan{Keys: make(map[string]struct{}), Records: len(keys)}
	for _, k := range keys {
		scan.Keys[k] = struct{}{}
	}
	return keysFake{scan: scan}
}

func object(key string, age time.Duration) types.Object {
	return types.Object{Key: aws.String(key), LastModified: aws.Time(now.Add(-age))}
}

func newJanitor(store *storeFake, keys KeySource) *Janitor {
	return &Janitor{
		Store:  store,
		Keys:   keys,
		Bucket: "b",
		Grace:  24 * time.Hour,
		Log:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		Now:    func() time.Time { return now },
	}
}

func TestSweepDeletesOldUnreferencedOnly(t *testing.T) {
	kept := s3io.BuildKey(s3io.NewObjectID())
	orphan := s3io.BuildKey(s3io.NewObjectID())
	young := s3io.BuildKey(s3io.NewObjectID())
	store := &storeFake{pages: [][]types.Object{
		{object(kept, 72*time.Hour), object(orphan, 48*time.Hour)},
		{object(young, time.Hour), object("claims/not-a-ulid.pdf", 72*time.Hour)},
	}}
	j := newJanitor(store, referencing(kept))

	rep, err := j.Sweep(context.Background())
	if err != nil {
		t.Fatalf("Sweep() error = %v", err)
	}
	if rep.Scanned != 4 || rep.Referenced != 1 || rep.Young != 1 || rep.Orphaned != 1 || rep.Deleted != 1 {
		t.Fatalf("unexpected report %+v", rep)
	}
	if len(store.deletes) != 1 || len(store.deletes[0]) != 1 || store.deletes[0][0] != orphan {
		t.Fatalf("unexpected deletes %v", store.deletes)
	}
}

func TestSweepDryRunDeletesNothing(t *testing.T) {
	orphan := s3io.BuildKey(s3io.NewObjectID())
	store := &storeFake{pages: [][]types.Object{{object(orphan, 48*time.Hour)}}}
	j := newJanitor(store, referencing())
	j.DryRun = true

	rep, err := j.Sweep(context.Background())
	if err != nil {
		t.Fatalf("Sweep() error = %v", err)
	}
	if rep.Orphaned != 1 || rep.Deleted != 0 || len(store.deletes) != 0 {
		t.Fatalf("dry run deleted: %+v %v", rep, store.deletes)
	}
}

func TestSweepBatchesAtLimit(t *testing.T) {
	var objs []types.Object
	for i := 0; i < maxDeleteBatch+5; i++ {
		objs = append(objs, object(s3io.BuildKey(s3io.NewObjectID()), 48*time.Hour))
	}
	store := &storeFake{pages: [][]types.Object{objs}}
	j := newJanitor(store, referencing())

	rep, err := j.Sweep(context.Background())
	if err != nil {
		t.Fatalf("Sweep() error = %v", err)
	}
	if len(store.deletes) != 2 || len(store.deletes[0]) != maxDeleteBatch || len(store.deletes[1]) != 5 {
		t.Fatalf("unexpected batches: %d", len(store.deletes))
	}
	if rep.Deleted != maxDeleteBatch+5 {
		t.Fatalf("unexpected deleted count %d", rep.Deleted)
	}
}

func TestSweepReportsPartialFailures(t *testing.T) {
	bad := s3io.BuildKey(s3io.NewObjectID())
	store := &storeFake{pages: [][]types.Object{{object(bad, 48*time.Hour)}}, failKey: bad}
	j := newJanitor(store, referencing())

	rep, err := j.Sweep(context.Background())
	if err != nil {
		t.Fatalf("Sweep() error = %v", err)
	}
	if rep.Deleted != 0 || len(rep.Failed) != 1 || rep.Failed[0] != bad {
		t.Fatalf("unexpected report %+v", rep)
	}
}

func TestSweepStopsWhenTableUnreadable(t *testing.T) {
	store := &storeFake{pages: [][]types.Object{{object(s3io.BuildKey(s3io.NewObjectID()), 48*time.Hour)}}}
	j := newJanitor(store, keysFake{err: errors.New("throttled")})
	if _, err := j.Sweep(context.Background()); err == nil {
		t.Fatalf("expected error")
	}
	if store.calls != 0 || len(store.deletes) != 0 {
		t.Fatalf("bucket touched without referenced keys")
	}
}

func TestSweepRefusesWhenNoRecordHasAKey(t *testing.T) {
	store := &storeFake{pages: [][]types.Object{{object(s3io.BuildKey(s3io.NewObjectID()), 48*time.Hour)}}}
	j := newJanitor(store, keysFake{scan: ddb.KeyScan{Keys: map[string]struct{}{}, Records: 12, Unkeyed: 12}})

	_, err := j.Sweep(context.Background())
	if !errors.Is(err, ErrNoReferencedKeys) {
		t.Fatalf("expected ErrNoReferencedKeys, got %v", err)
	}
	if store.calls != 0 || len(store.deletes) != 0 {
		t.Fatalf("bucket touched although no record named an object")
	}
}

func TestSweepKeepsObjectsNamedByKeyedRecords(t *testing.T) {
	kept := s3io.BuildKey(s3io.NewObjectID())
	orphan := s3io.BuildKey(s3io.NewObjectID())
	store := &storeFake{pages: [][]types.Object{{object(kept, 48*time.Hour), object(orphan, 48*time.Hour)}}}
	scan := ddb.KeyScan{Keys: map[string]struct{}{kept: {}}, Records: 3, Unkeyed: 2}
	j := newJanitor(store, keysFake{scan: scan})

	rep, err := j.Sweep(context.Background())
	if err != nil {
		t.Fatalf("Sweep() error = %v", err)
	}
	if rep.Referenced != 1 || rep.Deleted != 1 || store.deletes[0][0] != orphan {
		t.Fatalf("unexpected sweep %+v %v", rep, store.deletes)
	}
}

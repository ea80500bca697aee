// Package janitor removes uploaded claim documents that no stored result
// references, such as uploads whose analysis failed or never ran.
package janitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/kylejryan/healthcare-claims-dashboard/internal/ddb"
	"github.com/kylejryan/healthcare-claims-dashboard/internal/s3io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// maxDeleteBatch is the DeleteObjects limit.
const maxDeleteBatch = 1000

// ObjectStore is the subset of the S3 client the sweep uses.
type ObjectStore interface {
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	DeleteObjects(ctx context.Context, params *s3.DeleteObjectsInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error)
}

// ErrNoReferencedKeys stops a sweep when the table holds records but none of
// them names an object. Every upload would otherwise look orphaned.
var ErrNoReferencedKeys = errors.New("table has records but none references an object")

// KeySource lists the object keys stored results still point at.
type KeySource interface {
	ObjectKeys(ctx context.Context) (ddb.KeyScan, error)
}

// Janitor sweeps one bucket prefix.
type Janitor struct {
	Store  ObjectStore
	Keys   KeySource
	Bucket string
	// Grace protects objects whose analysis may still be in flight.
	Grace  time.Duration
	DryRun bool
	Log    *slog.Logger
	Now    func() time.Time
}

// Report summarizes one sweep.
type Report struct {
	Scanned    int      `json:"scanned"`
	Referenced int      `json:"referenced"`
	Young      int      `json:"young"`
	Orphaned   int      `json:"orphaned"`
	Deleted    int      `json:"deleted"`
	Failed     []string `json:"failed,omitempty"`
	DryRun     bool     `json:"dry_run"`
}

// Sweep deletes every orphan older than Grace. The table is read once,
// before listing, so a result written mid-sweep can only reference an object
// younger than the grace period.
func (j *Janitor) Sweep(ctx context.Context) (Report, error) {
	log := j.Log
	if log == nil {
		log = slog.Default()
	}
	now := time.Now
	if j.Now != nil {
		now = j.Now
	}
	rep := Report{DryRun: j.DryRun}

	scan, err := j.Keys.ObjectKeys(ctx)
	if err != nil {
		return rep, fmt.Errorf("load referenced keys: %w", err)
	}
	if scan.Records > 0 && len(scan.Keys) == 0 {
		return rep, fmt.Errorf("refusing to sweep %d records: %w", scan.Records, ErrNoReferencedKeys)
	}
	if scan.Unkeyed > 0 {
		log.Warn("records without an object key", "records", scan.Records, "unkeyed", scan.Unkeyed)
	}
	referenced := scan.Keys
	cutoff := now().Add(-j.Grace)

	var batch []types.ObjectIdentifier
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		defer func() { batch = batch[:0] }()
		if j.DryRun {
			for _, o := range batch {
				log.Info("orphan (dry run)", "s3_key", aws.ToString(o.Key))
			}
			return nil
		}
		out, err := j.Store.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(j.Bucket),
			Delete: &types.Delete{Objects: batch, Quiet: aws.Bool(true)},
		})
		if err != nil {
			return fmt.Errorf("delete orphans: %w", err)
		}
		rep.Deleted += len(batch) - len(out.Errors)
		for _, e := range out.Errors {
			rep.Failed = append(rep.Failed, aws.ToString(e.Key))
			log.Warn("orphan delete failed", "s3_key", aws.ToString(e.Key), "code", aws.ToString(e.Code), "message", aws.ToString(e.Message))
		}
		return nil
	}

	p := s3.NewListObjectsV2Paginator(j.Store, &s3.ListObjectsV2Input{
		Bucket: aws.String(j.Bucket),
		Prefix: aws.String(s3io.KeyPrefix),
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return rep, fmt.Errorf("list %s: %w", s3io.KeyPrefix, err)
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			rep.Scanned++
			if _, ok := referenced[key]; ok {
				rep.Referenced++
				continue
			}
			if obj.LastModified == nil || obj.LastModified.After(cutoff) {
				rep.Young++
				continue
			}
			if _, ok := s3io.ParseKey(key); !ok {
				// not a document this service uploaded
				continue
			}
			rep.Orphaned++
			batch = append(batch, types.ObjectIdentifier{Key: obj.Key})
			if len(batch) == maxDeleteBatch {
				if err := flush(); err != nil {
					return rep, err
				}
			}
		}
	}
	if err := flush(); err != nil {
		return rep, err
	}

	log.Info("orphan sweep done",
		"scanned", rep.Scanned,
		"referenced", rep.Referenced,
		"young", rep.Young,
		"orphaned", rep.Orphaned,
		"deleted", rep.Deleted,
		"dry_run", rep.DryRun,
	)
	return rep, nil
}

// Package export writes an owner's whole journal to object storage as one
// JSON document and hands back a short-lived download link.
package export

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/samber/lo"

	"github.com/daybook/daybook/internal/entry"
	"github.com/daybook/daybook/pkg/logger"
	"github.com/daybook/daybook/pkg/metrics"
)

const (
	DefaultPageSize = 100
	DefaultLinkTTL  = 15 * time.Minute
)

// BlobStore is the subset of storage.MinIOStorage the exporter needs.
type BlobStore interface {
	UploadFile(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error
	GetPresignedURL(ctx context.Context, key string, expires time.Duration) (string, error)
}

// Lister pages through an owner's entries newest first. service.Service satisfies it.
type Lister interface {
	List(ctx context.Context, ownerID string, limit, offset int) ([]*entry.Entry, error)
}

// Record is one exported entry. Five-minute entries carry their decoded document.
type Record struct {
	*entry.Entry
	Preview    string            `json:"preview"`
	FiveMinute *entry.FiveMinute `json:"fiveMinute,omitempty"`
}

type Archive struct {
	OwnerID    string    `json:"ownerId"`
	ExportedAt time.Time `json:"exportedAt"`
	Count      int       `json:"count"`
	Entries    []Record  `json:"entries"`
}

type Result struct {
	Key   string `json:"key"`
	URL   string `json:"url"`
	Count int    `json:"count"`
}

type Exporter struct {
	entries  Lister
	store    BlobStore
	linkTTL  time.Duration
	pageSize int
	now      func() time.Time
}

func NewExporter(entries Lister, store BlobStore, linkTTL time.Duration) *Exporter {
	if linkTTL <= 0 {
		linkTTL = DefaultLinkTTL
	}
	return &Exporter{entries: entries, store: store, linkTTL: linkTTL, pageSize: DefaultPageSize, now: time.Now}
}

func record(e *entry.Entry, _ int) Record {
	r := Record{Entry: e, Preview: e.Preview()}
	if five, ok := e.Body().(entry.FiveMinute); ok {
		r.FiveMinute = &five
	}
	return r
}

// collect reads every page until a short one comes back.
func (x *Exporter) collect(ctx context.Context, ownerID string) ([]*entry.Entry, error) {
	var pages [][]*entry.Entry
	for offset := 0; ; {
		page, err := x.entries.List(ctx, ownerID, x.pageSize, offset)
		if err != nil {
			return nil, err
		}
		pages = append(pages, page)
		if len(page) < x.pageSize {
			break
		}
		offset += len(page)
	}
	return lo.Flatten(pages), nil
}

// Key is the object name for an export taken at t.
func Key(ownerID string, t time.Time) string {
	return fmt.Sprintf("exports/%s/%s.json", ownerID, t.UTC().Format("20060102T150405Z"))
}

// Export uploads the archive and returns its key and a presigned URL.
func (x *Exporter) Export(ctx context.Context, ownerID string) (res *Result, err error) {
	defer func() {
		metrics.Exports.WithLabelValues(lo.Ternary(err == nil, "ok", "error")).Inc()
	}()
	list, err := x.collect(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	now := x.now()
	archive := Archive{
		OwnerID:    ownerID,
		ExportedAt: now.UTC(),
		Count:      len(list),
		Entries:    lo.Map(list, record),
	}
	b, err := json.MarshalIndent(archive, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode export: %w", err)
	}

	key := Key(ownerID, now)
	if err := x.store.UploadFile(ctx, key, bytes.NewReader(b), int64(len(b)), "application/json"); err != nil {
		return nil, fmt.Errorf("upload export: %w", err)
	}
	url, err := x.store.GetPresignedURL(ctx, key, x.linkTTL)
	if err != nil {
		return nil, fmt.Errorf("presign export: %w", err)
	}
	logger.Infof("exported %d entries (owner=%s key=%s)", len(list), ownerID, key)
	return &Result{Key: key, URL: url, Count: len(list)}, nil
}

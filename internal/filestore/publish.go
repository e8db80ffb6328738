package filestore

import (
	"bytes"
	"context"
	"strings"

	"github.com/koustreak/datforge/internal/dbinstance"
	"github.com/koustreak/datforge/internal/errs"
	"github.com/koustreak/datforge/internal/export"
)

// Format selects the rendering of a published database.
type Format string

const (
	FormatFacts Format = "facts"
	FormatText  Format = "text"
)

// ParseFormat accepts a format name case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatFacts, FormatText:
		return f, nil
	default:
		return "", errs.Newf(errs.ErrKindInvalidInput, "unknown export format %q", s)
	}
}

// Render writes db in format f to a buffer.
func Render(db *dbinstance.Database, f Format) (*bytes.Buffer, error) {
	var buf bytes.Buffer
	var err error
	switch f {
	case FormatFacts:
		err = export.NewFactFormatter(&buf).Format(db)
	case FormatText:
		err = export.NewTextFormatter(&buf).Format(db)
	default:
		return nil, errs.Newf(errs.ErrKindInvalidInput, "unknown export format %q", f)
	}
	if err != nil {
		return nil, err
	}
	return &buf, nil
}

// Publish renders db and stores it at key inside bucket, creating the
// bucket if needed.
func Publish(ctx context.Context, s Store, bucket, key string, db *dbinstance.Database, f Format) (*ObjectInfo, error) {
	if bucket == "" || key == "" {
		return nil, errs.New(errs.ErrKindInvalidInput, "publish needs a bucket and a key")
	}
	buf, err := Render(db, f)
	if err != nil {
		return nil, err
	}
	if err := s.EnsureBucket(ctx, bucket); err != nil {
		return nil, err
	}
	return s.PutObject(ctx, bucket, key, buf, int64(buf.Len()), "text/plain; charset=utf-8")
}

package filestore

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koustreak/datforge/internal/dbinstance"
	"github.com/koustreak/datforge/internal/errs"
	"github.com/koustreak/datforge/internal/instance"
	"github.com/koustreak/datforge/internal/model"
)

// memStore keeps objects in memory.
type memStore struct {
	buckets map[string]map[string]string
	made    []string
}

func newMemStore() *memStore { return &memStore{buckets: map[string]map[string]string{}} }

func (m *memStore) Ping(context.Context) error { return nil }
func (m *memStore) Close() error               { return nil }

func (m *memStore) EnsureBucket(_ context.Context, bucket string) error {
	if _, ok := m.buckets[bucket]; !ok {
		m.buckets[bucket] = map[string]string{}
		m.made = append(m.made, bucket)
	}
	return nil
}

func (m *memStore) PutObject(_ context.Context, bucket, key string, r io.Reader, size int64, contentType string) (*ObjectInfo, error) {
	b, ok := m.buckets[bucket]
	if !ok {
		return nil, errs.Newf(errs.ErrKindNotFound, "no bucket %s", bucket)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if int64(len(data)) != size {
		return nil, errs.Newf(errs.ErrKindInvalidInput, "size %d, read %d", size, len(data))
	}
	b[key] = string(data)
	return &ObjectInfo{Bucket: bucket, Key: key, Size: size, ContentType: contentType}, nil
}

func (m *memStore) PresignGetURL(_ context.Context, bucket, key string, _ time.Duration) (string, error) {
	return "mem://" + bucket + "/" + key, nil
}

func sample(t *testing.T) *dbinstance.Database {
	t.Helper()
	rel := model.MustRelation("Title", []*model.Attribute{
		model.NewAttribute("id", model.TypeIntegerIncr),
	}, "id")
	db, err := dbinstance.Build(context.Background(), []dbinstance.Entry{
		{Relation: rel, Spec: instance.InstantiationSpec{Groups: []instance.Group{{Count: 2}}}},
	}, true)
	require.NoError(t, err)
	return db
}

func TestPublish(t *testing.T) {
	s := newMemStore()
	info, err := Publish(context.Background(), s, "exports", "runs/title.facts", sample(t), FormatFacts)
	require.NoError(t, err)

	assert.Equal(t, []string{"exports"}, s.made)
	assert.Equal(t, "title(1).\ntitle(2).\n", s.buckets["exports"]["runs/title.facts"])
	assert.Equal(t, int64(len("title(1).\ntitle(2).\n")), info.Size)
	assert.True(t, strings.HasPrefix(info.ContentType, "text/plain"))

	// a second run reuses the bucket and replaces the object
	_, err = Publish(context.Background(), s, "exports", "runs/title.facts", sample(t), FormatText)
	require.NoError(t, err)
	assert.Len(t, s.made, 1)
	assert.Contains(t, s.buckets["exports"]["runs/title.facts"], "Database with 1 relation instances")
}

func TestPublish_Errors(t *testing.T) {
	_, err := Publish(context.Background(), newMemStore(), "", "k", sample(t), FormatFacts)
	assert.True(t, errs.IsInvalidInput(err))

	_, err = Publish(context.Background(), newMemStore(), "b", "k", sample(t), Format("csv"))
	assert.True(t, errs.IsInvalidInput(err))
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat(" Facts ")
	require.NoError(t, err)
	assert.Equal(t, FormatFacts, f)

	_, err = ParseFormat("xml")
	assert.True(t, errs.IsInvalidInput(err))
}

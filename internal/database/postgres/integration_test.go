//go:build integration

package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koustreak/datforge/internal/database"
	"github.com/koustreak/datforge/internal/dbinstance"
	"github.com/koustreak/datforge/internal/instance"
	"github.com/koustreak/datforge/internal/model"
)

// Run with: DATFORGE_TEST_POSTGRES_DSN=postgres://... go test -tags integration ./internal/database/postgres
func connect(t *testing.T) *Driver {
	t.Helper()
	dsn := os.Getenv("DATFORGE_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("DATFORGE_TEST_POSTGRES_DSN not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	d, err := New(ctx, database.DefaultConfig(database.DriverPostgres, dsn))
	require.NoError(t, err)
	t.Cleanup(d.Close)
	return d
}

func TestLoadAndIntrospect(t *testing.T) {
	d := connect(t)
	ctx := context.Background()

	parent := model.MustRelation("df_parent", []*model.Attribute{
		model.NewAttribute("pk", model.TypeIntegerIncr),
		model.NewAttribute("born", model.TypeDate),
	}, "pk")
	child := model.MustRelation("df_child", []*model.Attribute{
		model.NewAttribute("pk", model.TypeIntegerIncr),
		model.NewAttribute("parent_ref", model.TypeIntegerIncr),
	}, "pk")
	_, err := child.AddForeignKey([]string{"parent_ref"}, parent, map[string]string{"parent_ref": "pk"})
	require.NoError(t, err)

	db, err := dbinstance.Build(context.Background(), []dbinstance.Entry{
		{Relation: child, Spec: instance.InstantiationSpec{Groups: []instance.Group{{Count: 3}}}},
		{Relation: parent},
	}, true)
	require.NoError(t, err)

	n, err := database.NewLoader(d, database.LoadOptions{DropExisting: true, ForeignKeys: true}, nil).Load(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, 6, n)

	var count int
	require.NoError(t, d.QueryRow(ctx, `SELECT count(*) FROM df_child`).Scan(&count))
	assert.Equal(t, 3, count)

	info, err := d.InspectSchema(ctx)
	require.NoError(t, err)
	rels, err := database.ToRelations(info, 1, nil)
	require.NoError(t, err)

	for _, r := range rels {
		if r.Name() != "df_child" {
			continue
		}
		fk, ok := r.ForeignKeyOn("parent_ref")
		require.True(t, ok)
		assert.Equal(t, "df_parent", fk.Target.Name())
		assert.Equal(t, []string{"pk"}, fk.TargetAttributes())
	}
}

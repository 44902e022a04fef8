package database

import (
	"context"
	"fmt"
	"testing"

	"github.com/akolanti/docmind/internal/domain/documentModel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenSqliteAndMigrate(t *testing.T) {
	db, err := Open(fmt.Sprintf("sqlite:file:%s?mode=memory&cache=shared", t.Name()))
	require.NoError(t, err)
	t.Cleanup(func() { Close(db) })

	require.NoError(t, Migrate(db))
	require.NoError(t, Ping(context.Background(), db))

	for _, model := range []any{
		&documentModel.Document{},
		&documentModel.Summary{},
		&documentModel.Concept{},
		&documentModel.ExerciseSet{},
		&documentModel.MindMap{},
	} {
		assert.True(t, db.Migrator().HasTable(model), "%T", model)
	}
	assert.True(t, db.Migrator().HasIndex(&documentModel.Summary{}, "idx_summary_document_type"))
	assert.True(t, db.Migrator().HasIndex(&documentModel.Concept{}, "idx_concept_document_term"))
}

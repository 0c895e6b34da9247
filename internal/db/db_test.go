package db

import (
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jonathan/course-ingest/internal/store"
	"github.com/jonathan/course-ingest/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranslate_UniqueViolation(t *testing.T) {
	pgErr := &pgconn.PgError{
		Code:           "23505",
		Message:        `duplicate key value violates unique constraint "courses_upload_id_key"`,
		ConstraintName: "courses_upload_id_key",
	}

	err := translate("insert course", pgErr)

	require.Error(t, err)
	assert.True(t, errors.Is(err, store.ErrConflict))
	var pe *store.PersistenceError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "insert course", pe.Op)
}

func TestTranslate_OtherErrors(t *testing.T) {
	err := translate("get upload", errors.New("connection reset"))

	var pe *store.PersistenceError
	require.True(t, errors.As(err, &pe))
	assert.False(t, errors.Is(err, store.ErrConflict))
	assert.Contains(t, err.Error(), "connection reset")

	otherPg := translate("insert upload", &pgconn.PgError{Code: "23503"})
	assert.False(t, errors.Is(otherPg, store.ErrConflict))

	assert.NoError(t, translate("noop", nil))
}

func TestMarshalText(t *testing.T) {
	raw, err := marshalText(nil)
	require.NoError(t, err)
	assert.Nil(t, raw)

	raw, err = marshalText(types.LocalizedText{})
	require.NoError(t, err)
	assert.Nil(t, raw)

	raw, err = marshalText(types.LocalizedText{"en": "Intro"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"en":"Intro"}`, string(raw))

	assert.Equal(t, types.LocalizedText{"en": "Intro"}, unmarshalText(raw))
	assert.Nil(t, unmarshalText(nil))
	assert.Nil(t, unmarshalText([]byte("not json")))
}

func TestStatusStrings(t *testing.T) {
	assert.Equal(t, []string{"parsing", "parsed"}, statusStrings(types.StatusParsed.AllowedFrom()))
	assert.Empty(t, statusStrings(nil))
}

func TestSchemaSQL_Embedded(t *testing.T) {
	for _, table := range []string{"course_uploads", "course_upload_events", "courses", "course_modules", "course_lessons"} {
		assert.Contains(t, schemaSQL, "CREATE TABLE IF NOT EXISTS "+table)
	}
	assert.Contains(t, schemaSQL, "courses_upload_id_key UNIQUE (upload_id)")
}

package vecstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompileFilterEq(t *testing.T) {
	clause, next, args, err := compileFilter(Eq("document_id", int64(42)), 3, nil)
	require.NoError(t, err)
	assert.Equal(t, "document_id = $3", clause)
	assert.Equal(t, 4, next)
	assert.Equal(t, []any{int64(42)}, args)
}

func TestCompileFilterIn(t *testing.T) {
	clause, next, args, err := compileFilter(In("chunk_ordinal", 1, 2, 3), 1, nil)
	require.NoError(t, err)
	assert.Equal(t, "chunk_ordinal IN ($1, $2, $3)", clause)
	assert.Equal(t, 4, next)
	assert.Equal(t, []any{1, 2, 3}, args)
}

func TestCompileFilterEmptyIn(t *testing.T) {
	clause, _, args, err := compileFilter(In("document_id"), 1, nil)
	require.NoError(t, err)
	assert.Equal(t, "FALSE", clause)
	assert.Empty(t, args)
}

func TestCompileFilterComposite(t *testing.T) {
	f := And(
		Eq("document_id", int64(7)),
		Or(
			Eq("title", "Guide"),
			In("chunk_ordinal", 0, 1),
		),
	)

	clause, next, args, err := compileFilter(f, 3, nil)
	require.NoError(t, err)
	assert.Equal(t, "(document_id = $3 AND (title = $4 OR chunk_ordinal IN ($5, $6)))", clause)
	assert.Equal(t, 7, next)
	assert.Equal(t, []any{int64(7), "Guide", 0, 1}, args)
}

func TestCompileFilterRejectsUnknownField(t *testing.T) {
	_, _, _, err := compileFilter(Eq("embedding", "x"), 1, nil)
	assert.ErrorIs(t, err, ErrInvalidFilter)
}

func TestCompileFilterRejectsHiddenField(t *testing.T) {
	// Visibility is enforced by the store; filters must not reach it.
	_, _, _, err := compileFilter(Eq("hidden", true), 1, nil)
	assert.ErrorIs(t, err, ErrInvalidFilter)

	_, _, _, err = compileFilter(Or(Eq("document_id", int64(1)), Eq("hidden", false)), 1, nil)
	assert.ErrorIs(t, err, ErrInvalidFilter)
}

func TestCompileFilterRejectsEmptyComposite(t *testing.T) {
	_, _, _, err := compileFilter(And(), 1, nil)
	assert.ErrorIs(t, err, ErrInvalidFilter)

	_, _, _, err = compileFilter(Or(), 1, nil)
	assert.ErrorIs(t, err, ErrInvalidFilter)
}

func TestCompileFilterRejectsUnknownOp(t *testing.T) {
	_, _, _, err := compileFilter(Filter{Op: "like", Field: "title", Value: "%x%"}, 1, nil)
	assert.ErrorIs(t, err, ErrInvalidFilter)
}

func TestCompileFilterRejectsScalarIn(t *testing.T) {
	_, _, _, err := compileFilter(Filter{Op: OpIn, Field: "title", Value: "not-a-list"}, 1, nil)
	assert.ErrorIs(t, err, ErrInvalidFilter)
}

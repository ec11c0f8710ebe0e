package testing

import (
	"context"
	"errors"
	"testing"

	"github.com/ValentinKolb/dCRUD/lib/mapper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Fixture bundles a mapper under test with a connection and entity helpers.
type Fixture[C any, I comparable, T any] struct {
	// Mapper is the implementation under test
	Mapper mapper.IMapper[C, I, T]
	// Conn is passed to every mapper call
	Conn C
	// NewEntity returns the n-th distinct entity, n starts at 0
	NewEntity func(n int) T
	// Modify returns a changed copy of data with the same key
	Modify func(data T) T
	// KeyOf returns the key of an entity
	KeyOf func(data T) I
	// Missing is a key that never has an entity
	Missing I
	// Close releases the fixture, may be nil
	Close func()
}

// FixtureFactory creates a fresh, empty fixture for every test.
type FixtureFactory[C any, I comparable, T any] func(t *testing.T) Fixture[C, I, T]

// RunMapperTests runs the conformance suite for an IMapper implementation.
func RunMapperTests[C any, I comparable, T any](t *testing.T, name string, factory FixtureFactory[C, I, T]) {
	t.Run(name, func(t *testing.T) {
		t.Run("EmptyList", func(t *testing.T) {
			testEmptyList(t, open(t, factory))
		})

		t.Run("CreateRead", func(t *testing.T) {
			testCreateRead(t, open(t, factory))
		})

		t.Run("ReadMissing", func(t *testing.T) {
			testReadMissing(t, open(t, factory))
		})

		t.Run("Update", func(t *testing.T) {
			testUpdate(t, open(t, factory))
		})

		t.Run("UpdateMissing", func(t *testing.T) {
			testUpdateMissing(t, open(t, factory))
		})

		t.Run("DuplicateCreate", func(t *testing.T) {
			testDuplicateCreate(t, open(t, factory))
		})

		t.Run("DeleteTwice", func(t *testing.T) {
			testDeleteTwice(t, open(t, factory))
		})

		t.Run("List", func(t *testing.T) {
			testList(t, open(t, factory))
		})
	})
}

// --------------------------------------------------------------------------
// Helper functions
// --------------------------------------------------------------------------

func open[C any, I comparable, T any](t *testing.T, factory FixtureFactory[C, I, T]) Fixture[C, I, T] {
	f := factory(t)
	if f.Close != nil {
		t.Cleanup(f.Close)
	}
	return f
}

func requireCode(t testing.TB, err error, want mapper.RetCode) {
	t.Helper()
	require.Error(t, err)
	var e *mapper.Error
	require.True(t, errors.As(err, &e), "expected *mapper.Error, got %T: %v", err, err)
	require.Equal(t, want, e.Code, "unexpected code for %v", err)
}

func create[C any, I comparable, T any](t testing.TB, f Fixture[C, I, T], n int) T {
	t.Helper()
	created, err := f.Mapper.Create(context.Background(), f.Conn, f.NewEntity(n))
	require.NoError(t, err)
	return created
}

// --------------------------------------------------------------------------
// Test functions
// --------------------------------------------------------------------------

func testEmptyList[C any, I comparable, T any](t *testing.T, f Fixture[C, I, T]) {
	list, err := f.Mapper.ReadList(context.Background(), f.Conn)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func testCreateRead[C any, I comparable, T any](t *testing.T, f Fixture[C, I, T]) {
	created := create(t, f, 0)

	read, err := f.Mapper.ReadByID(context.Background(), f.Conn, f.KeyOf(created))
	require.NoError(t, err)
	assert.Equal(t, created, read)
}

func testReadMissing[C any, I comparable, T any](t *testing.T, f Fixture[C, I, T]) {
	create(t, f, 0)

	_, err := f.Mapper.ReadByID(context.Background(), f.Conn, f.Missing)
	requireCode(t, err, mapper.RetCNotFound)
	assert.False(t, errors.Is(err, mapper.ErrBackend))
}

func testUpdate[C any, I comparable, T any](t *testing.T, f Fixture[C, I, T]) {
	ctx := context.Background()
	created := create(t, f, 0)

	changed := f.Modify(created)
	updated, err := f.Mapper.Update(ctx, f.Conn, changed)
	require.NoError(t, err)
	assert.Equal(t, changed, updated)

	read, err := f.Mapper.ReadByID(ctx, f.Conn, f.KeyOf(created))
	require.NoError(t, err)
	assert.Equal(t, changed, read)
}

func testUpdateMissing[C any, I comparable, T any](t *testing.T, f Fixture[C, I, T]) {
	ctx := context.Background()
	create(t, f, 0)
	create(t, f, 1)

	before, err := f.Mapper.ReadList(ctx, f.Conn)
	require.NoError(t, err)

	// entity 2 was never created
	_, err = f.Mapper.Update(ctx, f.Conn, f.Modify(f.NewEntity(2)))
	requireCode(t, err, mapper.RetCNotFound)

	after, err := f.Mapper.ReadList(ctx, f.Conn)
	require.NoError(t, err)
	assert.ElementsMatch(t, before, after)
}

func testDuplicateCreate[C any, I comparable, T any](t *testing.T, f Fixture[C, I, T]) {
	ctx := context.Background()
	created := create(t, f, 0)

	_, err := f.Mapper.Create(ctx, f.Conn, f.Modify(created))
	requireCode(t, err, mapper.RetCConflict)

	read, err := f.Mapper.ReadByID(ctx, f.Conn, f.KeyOf(created))
	require.NoError(t, err)
	assert.Equal(t, created, read)
}

func testDeleteTwice[C any, I comparable, T any](t *testing.T, f Fixture[C, I, T]) {
	ctx := context.Background()
	created := create(t, f, 0)
	other := create(t, f, 1)

	deleted, err := f.Mapper.DeleteByID(ctx, f.Conn, f.KeyOf(created))
	require.NoError(t, err)
	assert.Equal(t, created, deleted)

	_, err = f.Mapper.DeleteByID(ctx, f.Conn, f.KeyOf(created))
	requireCode(t, err, mapper.RetCNotFound)

	_, err = f.Mapper.ReadByID(ctx, f.Conn, f.KeyOf(created))
	requireCode(t, err, mapper.RetCNotFound)

	read, err := f.Mapper.ReadByID(ctx, f.Conn, f.KeyOf(other))
	require.NoError(t, err)
	assert.Equal(t, other, read)
}

func testList[C any, I comparable, T any](t *testing.T, f Fixture[C, I, T]) {
	const n = 25
	want := make([]T, 0, n)
	for i := 0; i < n; i++ {
		want = append(want, create(t, f, i))
	}

	first, err := f.Mapper.ReadList(context.Background(), f.Conn)
	require.NoError(t, err)
	assert.ElementsMatch(t, want, first)

	second, err := f.Mapper.ReadList(context.Background(), f.Conn)
	require.NoError(t, err)
	assert.Equal(t, first, second, "order must be stable without writes in between")
}

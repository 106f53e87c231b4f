package memdriver

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Victoria-Vladimirova/webdev-tasks-2/pkg/multivarka"
)

// newStore returns a server on a fresh store that is dropped after the test
func newStore(t *testing.T) *multivarka.QueryBuilder {
	t.Helper()

	name := "test-" + uuid.NewString()
	t.Cleanup(func() { defaultDriver.Drop(name) })
	return multivarka.Server(Scheme + "://" + name)
}

func seed(t *testing.T, srv *multivarka.QueryBuilder, docs ...D) {
	t.Helper()
	for _, doc := range docs {
		_, err := srv.Collection("students").Insert(context.Background(), doc)
		require.NoError(t, err)
	}
}

func students() []D {
	return []D{
		{"name": "Anna", "group": "CS-301", "grade": 5},
		{"name": "Petr", "group": "CS-302", "grade": 3},
		{"name": "Olga", "group": "CS-301", "grade": 4},
	}
}

func names(docs []multivarka.Document) []string {
	out := make([]string, len(docs))
	for i, doc := range docs {
		out[i] = doc.String("name")
	}
	return out
}

func TestParseAddress(t *testing.T) {
	name, snapshot, err := parseAddress("mem://school?snapshot=/tmp/s.mvk")
	require.NoError(t, err)
	assert.Equal(t, "school", name)
	assert.Equal(t, "/tmp/s.mvk", snapshot)

	name, snapshot, err = parseAddress("mem://")
	require.NoError(t, err)
	assert.Equal(t, "default", name)
	assert.Empty(t, snapshot)

	_, _, err = parseAddress("mongodb://localhost")
	assert.Error(t, err)
}

func TestRegistered(t *testing.T) {
	assert.Contains(t, multivarka.Drivers(), Scheme)
}

func TestInsert_AssignsID(t *testing.T) {
	srv := newStore(t)
	record := D{"name": "Anna"}

	res, err := srv.Collection("students").Insert(context.Background(), record)
	require.NoError(t, err)
	require.NotNil(t, res.InsertedID)

	_, mutated := record[IDField]
	assert.False(t, mutated, "caller's record must not change")

	docs, err := srv.Collection("students").Find(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, res.InsertedID, docs[0][IDField])
}

func TestInsert_DuplicateID(t *testing.T) {
	srv := newStore(t)
	ctx := context.Background()

	_, err := srv.Collection("students").Insert(ctx, D{IDField: 1, "name": "Anna"})
	require.NoError(t, err)

	_, err = srv.Collection("students").Insert(ctx, D{IDField: 1, "name": "Petr"})
	var actionErr *multivarka.ActionError
	require.ErrorAs(t, err, &actionErr)
	assert.Contains(t, actionErr.Err.Error(), "duplicate")
}

func TestFind(t *testing.T) {
	srv := newStore(t)
	seed(t, srv, students()...)
	ctx := context.Background()

	docs, err := srv.Collection("students").Where("group").Equal("CS-301").Find(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Anna", "Olga"}, names(docs))

	docs, err = srv.Collection("students").
		Where("grade").MoreThan(3).
		Where("grade").LessThan(5).
		Find(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Olga"}, names(docs))

	docs, err = srv.Collection("students").Where("name").Not().Include([]string{"Anna", "Olga"}).Find(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Petr"}, names(docs))

	docs, err = srv.Collection("lecturers").Find(ctx)
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestFind_ReturnsCopies(t *testing.T) {
	srv := newStore(t)
	seed(t, srv, students()...)
	ctx := context.Background()

	docs, err := srv.Collection("students").Where("name").Equal("Anna").Find(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	docs[0]["grade"] = 2

	docs, err = srv.Collection("students").Where("name").Equal("Anna").Find(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(5), docs[0].Int("grade"))
}

func TestUpdate_Multi(t *testing.T) {
	srv := newStore(t)
	seed(t, srv, students()...)
	ctx := context.Background()

	res, err := srv.Collection("students").
		Where("group").Equal("CS-301").
		Set("group", "CS-401").
		Set("year", 4).
		Update(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.Matched)
	assert.Equal(t, int64(2), res.Modified)

	docs, err := srv.Collection("students").Where("group").Equal("CS-401").Find(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Anna", "Olga"}, names(docs))
	for _, doc := range docs {
		assert.Equal(t, int64(4), doc.Int("year"))
	}
}

func TestUpdate_Unchanged(t *testing.T) {
	srv := newStore(t)
	seed(t, srv, students()...)

	res, err := srv.Collection("students").
		Where("name").Equal("Petr").
		Set("grade", 3).
		Update(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Matched)
	assert.Equal(t, int64(0), res.Modified)
}

func TestUpdate_Single(t *testing.T) {
	srv := newStore(t)
	seed(t, srv, students()...)

	conn, err := defaultDriver.Connect(context.Background(), srv.Address())
	require.NoError(t, err)
	defer conn.Close(context.Background())

	res, err := conn.Collection("students").Update(context.Background(),
		D{"group": "CS-301"},
		D{multivarka.OpSet: D{"grade": 1}},
		multivarka.UpdateOptions{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Matched)
	assert.Equal(t, int64(1), res.Modified)
}

func TestUpdate_RejectsOtherOperators(t *testing.T) {
	srv := newStore(t)
	conn, err := defaultDriver.Connect(context.Background(), srv.Address())
	require.NoError(t, err)
	defer conn.Close(context.Background())

	_, err = conn.Collection("students").Update(context.Background(),
		D{}, D{"$inc": D{"grade": 1}}, multivarka.UpdateOptions{Multi: true})
	assert.ErrorContains(t, err, "unsupported update operator $inc")

	_, err = conn.Collection("students").Update(context.Background(),
		D{}, D{}, multivarka.UpdateOptions{Multi: true})
	assert.ErrorContains(t, err, "empty update")
}

func TestRemove(t *testing.T) {
	srv := newStore(t)
	seed(t, srv, students()...)
	ctx := context.Background()

	res, err := srv.Collection("students").Where("grade").Not().Equal(5).Remove(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.Removed)

	docs, err := srv.Collection("students").Find(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Anna"}, names(docs))

	res, err = srv.Collection("students").Remove(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Removed)
}

func TestRemove_BadFilterKeepsData(t *testing.T) {
	srv := newStore(t)
	seed(t, srv, students()...)

	conn, err := defaultDriver.Connect(context.Background(), srv.Address())
	require.NoError(t, err)
	defer conn.Close(context.Background())

	_, err = conn.Collection("students").Remove(context.Background(), D{"grade": D{"$regex": "5"}})
	require.Error(t, err)

	docs, err := srv.Collection("students").Find(context.Background())
	require.NoError(t, err)
	assert.Len(t, docs, 3)
}

func TestConn_CloseTwice(t *testing.T) {
	srv := newStore(t)
	conn, err := defaultDriver.Connect(context.Background(), srv.Address())
	require.NoError(t, err)

	require.NoError(t, conn.Close(context.Background()))
	assert.ErrorIs(t, conn.Close(context.Background()), ErrClosed)
}

func TestConnect_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New().Connect(ctx, "mem://x")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSnapshot_PersistsAcrossDrivers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "school.mvk")
	address := "mem://school?snapshot=" + path
	ctx := context.Background()

	first := multivarka.Server(address, multivarka.WithDriver(New()))
	for _, doc := range students() {
		_, err := first.Collection("students").Insert(ctx, doc)
		require.NoError(t, err)
	}

	second := multivarka.Server(address, multivarka.WithDriver(New()))
	docs, err := second.Collection("students").Where("group").Equal("CS-301").Find(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Anna", "Olga"}, names(docs))
	assert.Equal(t, int64(9), docs[0].Int("grade")+docs[1].Int("grade"))
}

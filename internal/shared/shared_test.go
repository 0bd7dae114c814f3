package shared

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const deviceA = "3f1d5a8e-6c1b-4a3e-9a7e-2b1f0c9d8e7a"

func TestDeviceManagerMintsAndReusesCookie(t *testing.T) {
	dm := NewDeviceManager("qb_device", 24*time.Hour, false)
	dm.newID = func() string { return deviceA }

	rec := httptest.NewRecorder()
	device := dm.Resolve(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, Device{ID: deviceA, IsNew: true}, device)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "qb_device", cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[0])
	again := dm.Resolve(httptest.NewRecorder(), req)
	assert.Equal(t, Device{ID: deviceA}, again)
}

func TestDeviceManagerHeaderAndInvalidCookie(t *testing.T) {
	dm := NewDeviceManager("qb_device", time.Hour, true)
	dm.newID = func() string { return "11111111-2222-4333-8444-555555555555" }

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(DeviceHeader, " "+deviceA+" ")
	assert.Equal(t, Device{ID: deviceA}, dm.Resolve(httptest.NewRecorder(), req))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "qb_device", Value: "not-a-uuid"})
	device := dm.Resolve(httptest.NewRecorder(), req)
	assert.True(t, device.IsNew)
	assert.Equal(t, "11111111-2222-4333-8444-555555555555", device.ID)
}

func TestDeviceMiddlewareStoresContext(t *testing.T) {
	dm := NewDeviceManager("qb_device", time.Hour, false)
	var got Device
	h := dm.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var ok bool
		got, ok = DeviceFromContext(r.Context())
		assert.True(t, ok)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	_, ok := ParseDeviceID(got.ID)
	assert.True(t, ok)

	_, ok = DeviceFromContext(context.Background())
	assert.False(t, ok)
}

func newRedisStore(t *testing.T) (*RedisRecordStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisRecordStore(client, 0), mr
}

type business struct {
	Name string `json:"name"`
}

func TestRedisRecordStoreRoundTrip(t *testing.T) {
	store, mr := newRedisStore(t)
	ctx := context.Background()

	var got business
	assert.ErrorIs(t, store.Load(ctx, deviceA, RecordBusiness, &got), ErrRecordNotFound)

	require.NoError(t, store.Save(ctx, deviceA, RecordBusiness, business{Name: "Acme"}))
	require.NoError(t, store.Load(ctx, deviceA, RecordBusiness, &got))
	assert.Equal(t, "Acme", got.Name)
	assert.True(t, mr.Exists("qb:"+deviceA+":business:v1"))

	other := Record{Name: "business", Version: 2}
	assert.ErrorIs(t, store.Load(ctx, deviceA, other, &got), ErrRecordNotFound)
}

func TestRedisRecordStoreCounter(t *testing.T) {
	store, _ := newRedisStore(t)
	ctx := context.Background()

	n, err := store.Counter(ctx, deviceA, RecordCounter)
	require.NoError(t, err)
	assert.Zero(t, n)

	for want := int64(1); want <= 3; want++ {
		n, err = store.Incr(ctx, deviceA, RecordCounter)
		require.NoError(t, err)
		assert.Equal(t, want, n)
	}
	n, err = store.Counter(ctx, deviceA, RecordCounter)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestRecordString(t *testing.T) {
	assert.Equal(t, "entitlement@v1", RecordEntitlement.String())
}

type fakeRow struct {
	values []any
	err    error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	for i, d := range dest {
		switch p := d.(type) {
		case *[]byte:
			*p = r.values[i].([]byte)
		case *int64:
			*p = r.values[i].(int64)
		}
	}
	return nil
}

type fakeQuerier struct {
	sql  []string
	args [][]any
	row  fakeRow
}

func (q *fakeQuerier) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	q.sql = append(q.sql, sql)
	q.args = append(q.args, args)
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func (q *fakeQuerier) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	q.sql = append(q.sql, sql)
	q.args = append(q.args, args)
	return q.row
}

func TestPostgresRecordStore(t *testing.T) {
	ctx := context.Background()

	q := &fakeQuerier{row: fakeRow{err: pgx.ErrNoRows}}
	store := NewPostgresRecordStore(q)
	var got business
	assert.ErrorIs(t, store.Load(ctx, deviceA, RecordBusiness, &got), ErrRecordNotFound)
	n, err := store.Counter(ctx, deviceA, RecordCounter)
	require.NoError(t, err)
	assert.Zero(t, n)

	q = &fakeQuerier{row: fakeRow{values: []any{[]byte(`{"name":"Acme"}`)}}}
	store = NewPostgresRecordStore(q)
	require.NoError(t, store.Load(ctx, deviceA, RecordBusiness, &got))
	assert.Equal(t, "Acme", got.Name)
	assert.Equal(t, []any{deviceA, "business", 1}, q.args[0])

	require.NoError(t, store.Save(ctx, deviceA, RecordBusiness, business{Name: "Beta"}))
	assert.Contains(t, q.sql[1], "ON CONFLICT")
	assert.JSONEq(t, `{"name":"Beta"}`, string(q.args[1][3].([]byte)))

	q = &fakeQuerier{row: fakeRow{values: []any{int64(7)}}}
	n, err = NewPostgresRecordStore(q).Incr(ctx, deviceA, RecordCounter)
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)

	require.NoError(t, NewPostgresRecordStore(q).EnsureSchema(ctx))
	assert.Contains(t, q.sql[len(q.sql)-1], "device_records")
}

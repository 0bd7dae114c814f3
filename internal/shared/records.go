package shared

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/redis/go-redis/v9"
)

// Record names a versioned per-device value. Bumping Version orphans data
// written under an older shape instead of misreading it.
type Record struct {
	Name    string
	Version int
}

func (r Record) String() string {
	return fmt.Sprintf("%s@v%d", r.Name, r.Version)
}

// Known records.
var (
	RecordBusiness    = Record{Name: "business", Version: 1}
	RecordCounter     = Record{Name: "counter", Version: 1}
	RecordEntitlement = Record{Name: "entitlement", Version: 1}
	RecordRegion      = Record{Name: "region", Version: 1}
)

// RecordStore persists named records per device.
type RecordStore interface {
	// Load decodes the record into dest. It returns ErrRecordNotFound
	// when nothing was saved.
	Load(ctx context.Context, device string, rec Record, dest any) error
	Save(ctx context.Context, device string, rec Record, value any) error
	// Counter reads a counter record; missing counters are zero.
	Counter(ctx context.Context, device string, rec Record) (int64, error)
	// Incr atomically increments a counter record and returns the new value.
	Incr(ctx context.Context, device string, rec Record) (int64, error)
}

// RedisRecordStore keeps records under qb:{device}:{name}:v{version}.
type RedisRecordStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisRecordStore constructs a Redis backed store. A zero ttl keeps
// records forever.
func NewRedisRecordStore(client *redis.Client, ttl time.Duration) *RedisRecordStore {
	return &RedisRecordStore{client: client, ttl: ttl}
}

func (s *RedisRecordStore) key(device string, rec Record) string {
	return fmt.Sprintf("qb:%s:%s:v%d", device, rec.Name, rec.Version)
}

// Load implements RecordStore.
func (s *RedisRecordStore) Load(ctx context.Context, device string, rec Record, dest any) error {
	payload, err := s.client.Get(ctx, s.key(device, rec)).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrRecordNotFound
	}
	if err != nil {
		return err
	}
	if err := json.Unmarshal(payload, dest); err != nil {
		return fmt.Errorf("decode %s: %w", rec, err)
	}
	return nil
}

// Save implements RecordStore.
func (s *RedisRecordStore) Save(ctx context.Context, device string, rec Record, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key(device, rec), data, s.ttl).Err()
}

// Counter implements RecordStore.
func (s *RedisRecordStore) Counter(ctx context.Context, device string, rec Record) (int64, error) {
	n, err := s.client.Get(ctx, s.key(device, rec)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return n, err
}

// Incr implements RecordStore.
func (s *RedisRecordStore) Incr(ctx context.Context, device string, rec Record) (int64, error) {
	key := s.key(device, rec)
	pipe := s.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	if s.ttl > 0 {
		pipe.Expire(ctx, key, s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

// Querier is the subset of pgxpool.Pool the Postgres store needs.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRecordStore keeps records in the device_records table.
type PostgresRecordStore struct {
	db Querier
}

// NewPostgresRecordStore constructs a Postgres backed store.
func NewPostgresRecordStore(db Querier) *PostgresRecordStore {
	return &PostgresRecordStore{db: db}
}

const deviceRecordsSchema = `CREATE TABLE IF NOT EXISTS device_records (
	device_id  UUID        NOT NULL,
	name       TEXT        NOT NULL,
	version    INT         NOT NULL,
	payload    JSONB,
	counter    BIGINT      NOT NULL DEFAULT 0,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (device_id, name, version)
)`

// EnsureSchema creates the backing table when missing.
func (s *PostgresRecordStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, deviceRecordsSchema); err != nil {
		return fmt.Errorf("shared: ensure device_records: %w", err)
	}
	return nil
}

// Load implements RecordStore.
func (s *PostgresRecordStore) Load(ctx context.Context, device string, rec Record, dest any) error {
	var payload []byte
	err := s.db.QueryRow(ctx,
		`SELECT payload FROM device_records WHERE device_id = $1 AND name = $2 AND version = $3`,
		device, rec.Name, rec.Version).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) || (err == nil && len(payload) == 0) {
		return ErrRecordNotFound
	}
	if err != nil {
		return err
	}
	if err := json.Unmarshal(payload, dest); err != nil {
		return fmt.Errorf("decode %s: %w", rec, err)
	}
	return nil
}

// Save implements RecordStore.
func (s *PostgresRecordStore) Save(ctx context.Context, device string, rec Record, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(ctx,
		`INSERT INTO device_records (device_id, name, version, payload)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (device_id, name, version)
		 DO UPDATE SET payload = EXCLUDED.payload, updated_at = now()`,
		device, rec.Name, rec.Version, data)
	return err
}

// Counter implements RecordStore.
func (s *PostgresRecordStore) Counter(ctx context.Context, device string, rec Record) (int64, error) {
	var n int64
	err := s.db.QueryRow(ctx,
		`SELECT counter FROM device_records WHERE device_id = $1 AND name = $2 AND version = $3`,
		device, rec.Name, rec.Version).Scan(&n)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	return n, err
}

// Incr implements RecordStore.
func (s *PostgresRecordStore) Incr(ctx context.Context, device string, rec Record) (int64, error) {
	var n int64
	err := s.db.QueryRow(ctx,
		`INSERT INTO device_records (device_id, name, version, counter)
		 VALUES ($1, $2, $3, 1)
		 ON CONFLICT (device_id, name, version)
		 DO UPDATE SET counter = device_records.counter + 1, updated_at = now()
		 RETURNING counter`,
		device, rec.Name, rec.Version).Scan(&n)
	return n, err
}

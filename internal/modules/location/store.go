// README: Breadcrumb recorder backed by Redis GEO (last position) and Postgres snapshots.
package location

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/redis/go-redis/v9"

	"courier/internal/types"
)

const geoKeyPrefix = "geo:dspr:"

const createSnapshotsTable = `CREATE TABLE IF NOT EXISTS driver_location_snapshots (
	id          BIGSERIAL PRIMARY KEY,
	driver_id   BIGINT NOT NULL,
	dspr_id     BIGINT NOT NULL,
	lat         DOUBLE PRECISION NOT NULL,
	lng         DOUBLE PRECISION NOT NULL,
	recorded_at TIMESTAMPTZ NOT NULL
)`

const insertSnapshot = `INSERT INTO driver_location_snapshots (driver_id, dspr_id, lat, lng, recorded_at)
VALUES ($1, $2, $3, $4, $5)`

var ErrNoGeoBackend = errors.New("no geo backend configured")

// Execer is the part of *pgxpool.Pool the store writes through.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Store records forwarded fixes. Either backend may be nil and is then
// skipped.
type Store struct {
	db    Execer
	redis redis.Cmdable
}

func NewStore(db Execer, rdb redis.Cmdable) *Store {
	return &Store{db: db, redis: rdb}
}

func geoKey(dspr types.ID) string {
	return geoKeyPrefix + dspr.String()
}

func (s *Store) EnsureSchema(ctx context.Context) error {
	if s.db == nil {
		return nil
	}
	if _, err := s.db.Exec(ctx, createSnapshotsTable); err != nil {
		return fmt.Errorf("create snapshots table: %w", err)
	}
	return nil
}

// SetGeo stores the driver's last position in the DSPR's GEO set.
func (s *Store) SetGeo(ctx context.Context, dspr, driver types.ID, pos types.Point) error {
	if s.redis == nil {
		return nil
	}
	err := s.redis.GeoAdd(ctx, geoKey(dspr), &redis.GeoLocation{
		Name:      driver.String(),
		Longitude: pos.Lng,
		Latitude:  pos.Lat,
	}).Err()
	if err != nil {
		return fmt.Errorf("geoadd driver %s: %w", driver, err)
	}
	return nil
}

// LastPosition reads back what SetGeo stored.
func (s *Store) LastPosition(ctx context.Context, dspr, driver types.ID) (types.Point, bool, error) {
	if s.redis == nil {
		return types.Point{}, false, nil
	}
	pos, err := s.redis.GeoPos(ctx, geoKey(dspr), driver.String()).Result()
	if err != nil {
		return types.Point{}, false, fmt.Errorf("geopos driver %s: %w", driver, err)
	}
	if len(pos) == 0 || pos[0] == nil {
		return types.Point{}, false, nil
	}
	return types.Point{Lat: pos[0].Latitude, Lng: pos[0].Longitude}, true, nil
}

func (s *Store) AppendSnapshot(ctx context.Context, snap Snapshot) error {
	if s.db == nil {
		return nil
	}
	_, err := s.db.Exec(ctx, insertSnapshot,
		int64(snap.DriverID), int64(snap.DSPRID), snap.Position.Lat, snap.Position.Lng, snap.RecordedAt)
	if err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}
	return nil
}

// Record writes both backends; a failure in one does not skip the other.
func (s *Store) Record(ctx context.Context, snap Snapshot) error {
	return errors.Join(
		s.SetGeo(ctx, snap.DSPRID, snap.DriverID, snap.Position),
		s.AppendSnapshot(ctx, snap),
	)
}

// NearbyDrivers lists drivers of a DSPR whose last recorded position lies
// within radiusKm of p, closest first.
func (s *Store) NearbyDrivers(ctx context.Context, dspr types.ID, p types.Point, radiusKm float64) ([]types.ID, error) {
	if s.redis == nil {
		return nil, ErrNoGeoBackend
	}
	names, err := s.redis.GeoSearch(ctx, geoKey(dspr), &redis.GeoSearchQuery{
		Longitude:  p.Lng,
		Latitude:   p.Lat,
		Radius:     radiusKm,
		RadiusUnit: "km",
		Sort:       "ASC",
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("geosearch dspr %s: %w", dspr, err)
	}
	ids := make([]types.ID, 0, len(names))
	for _, name := range names {
		id, err := types.ParseID(name)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

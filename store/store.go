/*
Package store persists the hub's work-item inventory, measurements and
payout ledger in a leveldb database.

The claim flag on a place is the single source of truth for dispatch
eligibility. ClaimIfEligible performs the eligibility check and the claim
write inside one leveldb transaction, so two concurrent dispatch paths can
never claim the same place. Result commits go through an explicit
begin/commit/rollback transaction (Tx) covering the place update, the
measurement insert and the payout increment.
*/
package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	xdr "github.com/nullstyle/go-xdr/xdr3"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/util"
)

var (
	ErrNotFound        = leveldb.ErrNotFound
	ErrAlreadyMeasured = errors.New("place already has a measurement")
	ErrUnknownWorker   = errors.New("unknown worker identity")
)

// Place is a location requiring one air-quality measurement.
type Place struct {
	ID             string
	Name           string
	Lat            float64
	Lng            float64
	Disabled       bool
	HasMeasurement bool
	Claimed        bool
	ClaimExpiry    int64 // unix seconds; a claim past its expiry counts as released
	ValidatedBy    string
}

// Measurement is the single accepted reading for a place.
type Measurement struct {
	PlaceID     string
	Aqi         int32
	Pm25        float64
	Pm10        float64
	Co          float64
	No          float64
	So2         float64
	Nh3         float64
	No2         float64
	O3          float64
	Status      string
	SubmittedBy string
	CreatedAt   int64
}

// Worker is a registered validator identity with its accrued payout.
type Worker struct {
	ID            string
	PublicKey     string
	PendingPayout uint64
	CreatedAt     int64
}

type DB struct {
	db *leveldb.DB
}

func Open(path string) (*DB, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open database @ %s: %w", path, err)
	}
	return &DB{db: db}, nil
}

func (d *DB) Close() error {
	return d.db.Close()
}

func placeKey(id string) []byte       { return []byte("place/" + id) }
func measurementKey(id string) []byte { return []byte("measurement/" + id) }
func workerKey(pubKey string) []byte  { return []byte("worker/" + pubKey) }

func (p *Place) eligible(now time.Time) bool {
	if p.Disabled || p.HasMeasurement {
		return false
	}
	return !p.Claimed || now.Unix() >= p.ClaimExpiry
}

// PutPlace inserts or replaces a place. Used for seeding the inventory.
func (d *DB) PutPlace(ctx context.Context, place Place) error {
	data, err := serialize(&place)
	if err != nil {
		return err
	}
	return d.db.Put(placeKey(place.ID), data, nil)
}

func (d *DB) GetPlace(ctx context.Context, id string) (Place, error) {
	var place Place
	data, err := d.db.Get(placeKey(id), nil)
	if err != nil {
		return place, fmt.Errorf("get place %s: %w", id, err)
	}
	if err := deserialize(data, &place); err != nil {
		return place, fmt.Errorf("failed to deserialize place %s: %w", id, err)
	}
	return place, nil
}

// FindEligible returns up to limit places that are enabled, unmeasured and
// unclaimed (expired claims count as unclaimed). limit <= 0 means no limit.
// Iteration follows leveldb key order; callers must not rely on it.
func (d *DB) FindEligible(ctx context.Context, limit int) ([]Place, error) {
	now := time.Now()
	var places []Place
	iter := d.db.NewIterator(util.BytesPrefix([]byte("place/")), nil)
	defer iter.Release()
	for iter.Next() {
		var place Place
		if err := deserialize(iter.Value(), &place); err != nil {
			return nil, fmt.Errorf("failed to deserialize place %s: %w", iter.Key(), err)
		}
		if !place.eligible(now) {
			continue
		}
		places = append(places, place)
		if limit > 0 && len(places) == limit {
			break
		}
	}
	return places, iter.Error()
}

// ClaimIfEligible atomically claims the place until deadline, if and only
// if it is currently eligible. It reports whether the claim matched.
func (d *DB) ClaimIfEligible(ctx context.Context, id string, deadline time.Time) (bool, error) {
	trans, err := d.db.OpenTransaction()
	if err != nil {
		return false, err
	}

	data, err := trans.Get(placeKey(id), nil)
	switch {
	case errors.Is(err, leveldb.ErrNotFound):
		trans.Discard()
		return false, nil
	case err != nil:
		trans.Discard()
		return false, fmt.Errorf("querying place %s: %w", id, err)
	}

	var place Place
	if err := deserialize(data, &place); err != nil {
		trans.Discard()
		return false, fmt.Errorf("failed to deserialize place %s: %w", id, err)
	}
	if !place.eligible(time.Now()) {
		trans.Discard()
		return false, nil
	}

	place.Claimed = true
	place.ClaimExpiry = deadline.Unix()
	updated, err := serialize(&place)
	if err != nil {
		trans.Discard()
		return false, err
	}
	if err := trans.Put(placeKey(id), updated, nil); err != nil {
		trans.Discard()
		return false, fmt.Errorf("claiming place %s: %w", id, err)
	}
	if err := trans.Commit(); err != nil {
		return false, fmt.Errorf("committing claim on place %s: %w", id, err)
	}
	return true, nil
}

// ReleaseClaim drops the claim on a place so it becomes eligible again.
// Releasing an unclaimed or already measured place is a no-op.
func (d *DB) ReleaseClaim(ctx context.Context, id string) error {
	trans, err := d.db.OpenTransaction()
	if err != nil {
		return err
	}

	data, err := trans.Get(placeKey(id), nil)
	if err != nil {
		trans.Discard()
		return fmt.Errorf("querying place %s: %w", id, err)
	}
	var place Place
	if err := deserialize(data, &place); err != nil {
		trans.Discard()
		return fmt.Errorf("failed to deserialize place %s: %w", id, err)
	}
	if !place.Claimed || place.HasMeasurement {
		trans.Discard()
		return nil
	}

	place.Claimed = false
	place.ClaimExpiry = 0
	updated, err := serialize(&place)
	if err != nil {
		trans.Discard()
		return err
	}
	if err := trans.Put(placeKey(id), updated, nil); err != nil {
		trans.Discard()
		return fmt.Errorf("releasing claim on place %s: %w", id, err)
	}
	return trans.Commit()
}

// GetOrCreateWorker returns the worker registered under the given public
// key, creating it on first signup.
func (d *DB) GetOrCreateWorker(ctx context.Context, publicKey string) (Worker, error) {
	var worker Worker
	trans, err := d.db.OpenTransaction()
	if err != nil {
		return worker, err
	}

	data, err := trans.Get(workerKey(publicKey), nil)
	switch {
	case err == nil:
		trans.Discard()
		if err := deserialize(data, &worker); err != nil {
			return worker, fmt.Errorf("failed to deserialize worker: %w", err)
		}
		return worker, nil
	case !errors.Is(err, leveldb.ErrNotFound):
		trans.Discard()
		return worker, fmt.Errorf("querying worker: %w", err)
	}

	worker = Worker{
		ID:        uuid.NewString(),
		PublicKey: publicKey,
		CreatedAt: time.Now().Unix(),
	}
	created, err := serialize(&worker)
	if err != nil {
		trans.Discard()
		return worker, err
	}
	if err := trans.Put(workerKey(publicKey), created, nil); err != nil {
		trans.Discard()
		return worker, fmt.Errorf("creating worker: %w", err)
	}
	if err := trans.Commit(); err != nil {
		return worker, fmt.Errorf("committing new worker: %w", err)
	}
	return worker, nil
}

func (d *DB) GetWorker(ctx context.Context, publicKey string) (Worker, error) {
	var worker Worker
	data, err := d.db.Get(workerKey(publicKey), nil)
	if err != nil {
		return worker, fmt.Errorf("get worker: %w", err)
	}
	if err := deserialize(data, &worker); err != nil {
		return worker, fmt.Errorf("failed to deserialize worker: %w", err)
	}
	return worker, nil
}

func (d *DB) GetMeasurement(ctx context.Context, placeID string) (Measurement, error) {
	var m Measurement
	data, err := d.db.Get(measurementKey(placeID), nil)
	if err != nil {
		return m, fmt.Errorf("get measurement for %s: %w", placeID, err)
	}
	if err := deserialize(data, &m); err != nil {
		return m, fmt.Errorf("failed to deserialize measurement for %s: %w", placeID, err)
	}
	return m, nil
}

func serialize(v any) ([]byte, error) {
	var dataBuf bytes.Buffer
	if _, err := xdr.Marshal(&dataBuf, v); err != nil {
		return nil, fmt.Errorf("serialization failure: %v", err)
	}
	return dataBuf.Bytes(), nil
}

func deserialize(data []byte, v any) error {
	_, err := xdr.Unmarshal(bytes.NewReader(data), v)
	return err
}

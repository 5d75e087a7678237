package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/syndtr/goleveldb/leveldb"
)

//go:generate mockgen -package mocks -destination mocks/tx.go . Tx

// Tx is one atomic commit of a verified result: the place update, the
// measurement insert and the payout increment land together or not at all.
// A Tx must end with exactly one Commit or Rollback.
type Tx interface {
	// UpdatePlace releases the place's claim, records which identity
	// validated it and marks it measured. Fails with ErrAlreadyMeasured
	// if a measurement was committed for it in the meantime.
	UpdatePlace(placeID, validatedBy string) error
	// CreateMeasurement inserts the measurement record for its place.
	CreateMeasurement(m Measurement) error
	// IncrementPayout accrues amount to the worker registered under the
	// given public key.
	IncrementPayout(publicKey string, amount uint64) error
	Commit() error
	Rollback()
}

type levelTx struct {
	trans *leveldb.Transaction
}

// Begin opens a commit transaction. Until it is committed or rolled back,
// other store writes block; leveldb permits a single open transaction.
func (d *DB) Begin(ctx context.Context) (Tx, error) {
	trans, err := d.db.OpenTransaction()
	if err != nil {
		return nil, fmt.Errorf("opening transaction: %w", err)
	}
	return &levelTx{trans: trans}, nil
}

func (tx *levelTx) UpdatePlace(placeID, validatedBy string) error {
	data, err := tx.trans.Get(placeKey(placeID), nil)
	if err != nil {
		return fmt.Errorf("querying place %s: %w", placeID, err)
	}
	var place Place
	if err := deserialize(data, &place); err != nil {
		return fmt.Errorf("failed to deserialize place %s: %w", placeID, err)
	}
	if place.HasMeasurement {
		return fmt.Errorf("%w: place %s", ErrAlreadyMeasured, placeID)
	}

	place.Claimed = false
	place.ClaimExpiry = 0
	place.ValidatedBy = validatedBy
	place.HasMeasurement = true
	updated, err := serialize(&place)
	if err != nil {
		return err
	}
	return tx.trans.Put(placeKey(placeID), updated, nil)
}

func (tx *levelTx) CreateMeasurement(m Measurement) error {
	switch _, err := tx.trans.Get(measurementKey(m.PlaceID), nil); {
	case err == nil:
		return fmt.Errorf("%w: place %s", ErrAlreadyMeasured, m.PlaceID)
	case !errors.Is(err, leveldb.ErrNotFound):
		return fmt.Errorf("querying measurement for %s: %w", m.PlaceID, err)
	}
	data, err := serialize(&m)
	if err != nil {
		return err
	}
	return tx.trans.Put(measurementKey(m.PlaceID), data, nil)
}

func (tx *levelTx) IncrementPayout(publicKey string, amount uint64) error {
	data, err := tx.trans.Get(workerKey(publicKey), nil)
	switch {
	case errors.Is(err, leveldb.ErrNotFound):
		return fmt.Errorf("%w: %s", ErrUnknownWorker, publicKey)
	case err != nil:
		return fmt.Errorf("querying worker: %w", err)
	}
	var worker Worker
	if err := deserialize(data, &worker); err != nil {
		return fmt.Errorf("failed to deserialize worker: %w", err)
	}
	worker.PendingPayout += amount
	updated, err := serialize(&worker)
	if err != nil {
		return err
	}
	return tx.trans.Put(workerKey(publicKey), updated, nil)
}

func (tx *levelTx) Commit() error {
	if err := tx.trans.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func (tx *levelTx) Rollback() {
	tx.trans.Discard()
}

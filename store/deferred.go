package store

import (
	"context"
	"sync/atomic"
)

type storeRef struct {
	RecordStore
}

// Deferred forwards to a store that is connected after the server starts
// listening. Until Set is called every operation fails with ErrUnavailable.
type Deferred struct {
	ref atomic.Pointer[storeRef]
}

func (d *Deferred) Set(s RecordStore) {
	d.ref.Store(&storeRef{s})
}

func (d *Deferred) Ready() bool {
	return d.ref.Load() != nil
}

func (d *Deferred) get() (RecordStore, error) {
	r := d.ref.Load()
	if r == nil {
		return nil, ErrUnavailable
	}
	return r.RecordStore, nil
}

func (d *Deferred) InsertRows(ctx context.Context, table string, rows []Row) error {
	s, err := d.get()
	if err != nil {
		return err
	}
	return s.InsertRows(ctx, table, rows)
}

func (d *Deferred) InsertRow(ctx context.Context, table string, row Row) error {
	s, err := d.get()
	if err != nil {
		return err
	}
	return s.InsertRow(ctx, table, row)
}

func (d *Deferred) Query(ctx context.Context, query string, args ...any) ([]Row, error) {
	s, err := d.get()
	if err != nil {
		return nil, err
	}
	return s.Query(ctx, query, args...)
}

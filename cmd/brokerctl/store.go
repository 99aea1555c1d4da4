package main

import (
	"context"

	"github.com/professorSergio12/Stock-Broker/config"
	"github.com/professorSergio12/Stock-Broker/filters"
	"github.com/professorSergio12/Stock-Broker/records"
	"github.com/professorSergio12/Stock-Broker/store"
)

// openStore connects the configured store for one command run.
func openStore(ctx context.Context, table string) (store.RecordStore, string, func(), error) {
	table = filters.Table(table)
	st, closeFn, err := store.Open(ctx, table, config.GetLogger())
	if err != nil {
		return nil, "", nil, err
	}
	return st, table, closeFn, nil
}

func holdingsFor(ctx context.Context, table string, q records.HoldingsQuery) (records.HoldingsResult, error) {
	if err := q.Validate(); err != nil {
		return records.HoldingsResult{}, err
	}
	st, table, closeFn, err := openStore(ctx, table)
	if err != nil {
		return records.HoldingsResult{}, err
	}
	defer closeFn()

	svc := records.NewService(records.Config{
		Store:  st,
		Table:  table,
		Logger: config.GetLogger(),
	})
	return svc.Holdings(ctx, q)
}

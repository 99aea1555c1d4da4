package records

import (
	"context"
	"errors"
	"fmt"

	"github.com/professorSergio12/Stock-Broker/config"
	"github.com/professorSergio12/Stock-Broker/filters"
	"github.com/professorSergio12/Stock-Broker/models"
	"github.com/professorSergio12/Stock-Broker/store"
	"github.com/sirupsen/logrus"
)

var errMissingRowID = errors.New("row without ROWID, cannot page by key")

// FetchAll reads every row of table matching pred, store.PageSize rows at a
// time in ROWID order. Some deployments reject OFFSET; when an OFFSET page
// fails the remaining pages are read by key (ROWID > last) instead.
func FetchAll(ctx context.Context, st store.RecordStore, table string, pred filters.Predicate) ([]store.Row, error) {
	var (
		out    []store.Row
		lastID int64
		keyset bool
	)
	for {
		var (
			page []store.Row
			err  error
		)
		if keyset {
			p := pred.And("ROWID > ?", lastID)
			page, err = st.Query(ctx, fmt.Sprintf("select * from %s%s order by ROWID limit %d", table, p.Where, store.PageSize), p.Args...)
		} else {
			q := fmt.Sprintf("select * from %s%s order by ROWID limit %d", table, pred.Where, store.PageSize)
			if len(out) > 0 {
				q += fmt.Sprintf(" offset %d", len(out))
			}
			page, err = st.Query(ctx, q, pred.Args...)
			if err != nil && len(out) > 0 && !store.IsUnavailable(err) {
				config.GetLogger().WithFields(logrus.Fields{
					"module": "records",
					"table":  table,
					"offset": len(out),
					"error":  err.Error(),
				}).Warn("offset paging failed, switching to keyset paging")
				keyset = true
				continue
			}
		}
		if err != nil {
			return nil, err
		}

		out = append(out, page...)
		if len(page) > 0 {
			id, ok := models.AsInt64(page[len(page)-1][models.ColumnRowID])
			if !ok && keyset {
				return nil, errMissingRowID
			}
			lastID = id
		}
		if len(page) < store.PageSize {
			return out, nil
		}
	}
}

// toTransactions converts store rows to records.
func toTransactions(rows []store.Row) []models.Transaction {
	out := make([]models.Transaction, 0, len(rows))
	for _, r := range rows {
		out = append(out, models.TransactionFromRow(r))
	}
	return out
}

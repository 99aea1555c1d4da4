package store

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/google/uuid"
	"github.com/professorSergio12/Stock-Broker/models"
	"github.com/professorSergio12/Stock-Broker/utils"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"
)

// BigQueryStore keeps records in a BigQuery dataset. BigQuery has no row ids, so
// ROWID is assigned here from a clock-seeded counter.
type BigQueryStore struct {
	client  *bigquery.Client
	dataset string
	lastID  atomic.Int64
}

func NewBigQueryStore(client *bigquery.Client, dataset string) *BigQueryStore {
	s := &BigQueryStore{client: client, dataset: dataset}
	s.lastID.Store(time.Now().UnixMicro())
	return s
}

// EnsureTable creates table with the Transaction schema when it does not exist.
func (s *BigQueryStore) EnsureTable(ctx context.Context, table string) error {
	t := s.client.Dataset(s.dataset).Table(table)
	_, err := t.Metadata(ctx)
	if err == nil {
		return nil
	}
	var gErr *googleapi.Error
	if !errors.As(err, &gErr) || gErr.Code != http.StatusNotFound {
		return err
	}
	if err := t.Create(ctx, &bigquery.TableMetadata{Schema: transactionSchema()}); err != nil {
		return fmt.Errorf("create table %s.%s: %w", s.dataset, table, err)
	}
	return nil
}

func transactionSchema() bigquery.Schema {
	schema := bigquery.Schema{
		{Name: models.ColumnRowID, Type: bigquery.IntegerFieldType, Required: true},
		{Name: models.ColumnCreatedTime, Type: bigquery.TimestampFieldType},
	}
	for _, col := range models.TransactionColumns() {
		kind, _ := models.ColumnKind(col)
		ft := bigquery.StringFieldType
		switch {
		case kind == models.KindNumeric:
			ft = bigquery.FloatFieldType
		case col == "WS_client_id":
			ft = bigquery.IntegerFieldType
		}
		schema = append(schema, &bigquery.FieldSchema{Name: col, Type: ft})
	}
	return schema
}

type rowSaver struct {
	row      Row
	insertID string
}

func (r rowSaver) Save() (map[string]bigquery.Value, string, error) {
	out := make(map[string]bigquery.Value, len(r.row))
	for k, v := range r.row {
		out[k] = v
	}
	return out, r.insertID, nil
}

func (s *BigQueryStore) saver(r Row, now time.Time) rowSaver {
	m := make(Row, len(r)+2)
	for k, v := range r {
		m[k] = v
	}
	m[models.ColumnRowID] = s.lastID.Add(1)
	m[models.ColumnCreatedTime] = now
	return rowSaver{row: m, insertID: uuid.NewString()}
}

// InsertRows streams rows in one request. Invalid rows are not skipped, so a
// failed request writes nothing.
func (s *BigQueryStore) InsertRows(ctx context.Context, table string, rows []Row) error {
	if len(rows) == 0 {
		return nil
	}
	now := time.Now().UTC()
	savers := make([]rowSaver, len(rows))
	for i, r := range rows {
		savers[i] = s.saver(r, now)
	}
	ins := s.client.Dataset(s.dataset).Table(table).Inserter()
	if err := ins.Put(ctx, savers); err != nil {
		return &utils.StoreWriteError{Table: table, Rows: len(rows), Err: err}
	}
	return nil
}

func (s *BigQueryStore) InsertRow(ctx context.Context, table string, row Row) error {
	ins := s.client.Dataset(s.dataset).Table(table).Inserter()
	if err := ins.Put(ctx, s.saver(row, time.Now().UTC())); err != nil {
		return &utils.StoreWriteError{Table: table, Rows: 1, Err: err}
	}
	return nil
}

// Query runs a standard SQL query with positional ? parameters against the default dataset.
func (s *BigQueryStore) Query(ctx context.Context, query string, args ...any) ([]Row, error) {
	q := s.client.Query(query)
	q.DefaultDatasetID = s.dataset
	for _, a := range args {
		q.Parameters = append(q.Parameters, bigquery.QueryParameter{Value: a})
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, &utils.StoreReadError{Query: query, Err: err}
	}
	var out []Row
	for {
		var vals map[string]bigquery.Value
		err := it.Next(&vals)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, &utils.StoreReadError{Query: query, Err: err}
		}
		row := make(Row, len(vals))
		for k, v := range vals {
			row[k] = v
		}
		out = append(out, row)
	}
	return out, nil
}

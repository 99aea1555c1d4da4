package store

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/go-sql-driver/mysql"
	"github.com/professorSergio12/Stock-Broker/models"
	"github.com/professorSergio12/Stock-Broker/utils"
	"google.golang.org/api/googleapi"
)

func TestIsUnavailable(t *testing.T) {
	cases := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil", nil, false},
		{"invalid conn", fmt.Errorf("insert: %w", mysql.ErrInvalidConn), true},
		{"wrapped sentinel", &utils.StoreWriteError{Table: "Transaction", Rows: 1, Err: ErrUnavailable}, true},
		{"deadline", context.DeadlineExceeded, true},
		{"duplicate key", &mysql.MySQLError{Number: 1062, Message: "Duplicate entry"}, false},
		{"plain", errors.New("bad value"), false},
		{"bigquery 503", &googleapi.Error{Code: http.StatusServiceUnavailable}, true},
		{"bigquery 400", &googleapi.Error{Code: http.StatusBadRequest}, false},
	}
	for _, tc := range cases {
		if got := IsUnavailable(tc.err); got != tc.expected {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.expected, got)
		}
	}
}

func TestGormStore_NilDBIsUnavailable(t *testing.T) {
	s := NewGormStore(nil)
	err := s.InsertRows(context.Background(), "Transaction", []Row{{"QTY": 1.0}})
	var we *utils.StoreWriteError
	if !errors.As(err, &we) || we.Rows != 1 {
		t.Fatalf("expected StoreWriteError for 1 row, got %v", err)
	}
	if !IsUnavailable(err) {
		t.Fatalf("expected nil db to classify as unavailable")
	}
	if _, err := s.Query(context.Background(), "select 1"); !IsUnavailable(err) {
		t.Fatalf("expected query on nil db to be unavailable, got %v", err)
	}
}

func TestWithCreatedTime_DoesNotMutateInput(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	in := Row{"QTY": 1.0}
	out := withCreatedTime(in, now)
	if _, ok := in[models.ColumnCreatedTime]; ok {
		t.Fatalf("input row was mutated")
	}
	if out[models.ColumnCreatedTime] != now || out["QTY"] != 1.0 {
		t.Fatalf("unexpected output row: %v", out)
	}
}

func TestTransactionSchema_Types(t *testing.T) {
	schema := transactionSchema()
	if len(schema) != len(models.TransactionColumns())+2 {
		t.Fatalf("expected %d fields, got %d", len(models.TransactionColumns())+2, len(schema))
	}
	types := map[string]bigquery.FieldType{}
	for _, f := range schema {
		types[f.Name] = f.Type
	}
	expected := map[string]bigquery.FieldType{
		"ROWID":         bigquery.IntegerFieldType,
		"WS_client_id":  bigquery.IntegerFieldType,
		"QTY":           bigquery.FloatFieldType,
		"TRANDATE":      bigquery.StringFieldType,
		"Security_Name": bigquery.StringFieldType,
	}
	for name, ft := range expected {
		if types[name] != ft {
			t.Fatalf("field %s expected %s, got %s", name, ft, types[name])
		}
	}
}

func TestBigQuerySaver_AssignsIncreasingIDs(t *testing.T) {
	s := NewBigQueryStore(nil, "broker")
	now := time.Now()
	a := s.saver(Row{"QTY": 1.0}, now)
	b := s.saver(Row{"QTY": 2.0}, now)
	va, idA, _ := a.Save()
	vb, idB, _ := b.Save()
	if va[models.ColumnRowID].(int64) >= vb[models.ColumnRowID].(int64) {
		t.Fatalf("expected increasing ROWIDs, got %v then %v", va[models.ColumnRowID], vb[models.ColumnRowID])
	}
	if idA == "" || idA == idB {
		t.Fatalf("expected distinct insert ids, got %q and %q", idA, idB)
	}
}

type countingStore struct {
	queries int
}

func (c *countingStore) InsertRows(context.Context, string, []Row) error { return nil }
func (c *countingStore) InsertRow(context.Context, string, Row) error    { return nil }
func (c *countingStore) Query(context.Context, string, ...any) ([]Row, error) {
	c.queries++
	return []Row{{"ROWID": int64(c.queries)}}, nil
}

func TestDeferred_UnavailableUntilSet(t *testing.T) {
	var d Deferred
	if d.Ready() {
		t.Fatalf("zero Deferred must not be ready")
	}
	if _, err := d.Query(context.Background(), "select 1"); !IsUnavailable(err) {
		t.Fatalf("expected unavailable, got %v", err)
	}
	if err := d.InsertRows(context.Background(), "Transaction", []Row{{}}); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}

	inner := &countingStore{}
	d.Set(inner)
	if !d.Ready() {
		t.Fatalf("expected ready after Set")
	}
	rows, err := d.Query(context.Background(), "select 1")
	if err != nil || len(rows) != 1 || inner.queries != 1 {
		t.Fatalf("query not forwarded: %v %v", rows, err)
	}
	if err := d.InsertRow(context.Background(), "Transaction", Row{}); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
}

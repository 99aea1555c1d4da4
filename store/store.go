package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"net"
	"net/http"

	"github.com/go-sql-driver/mysql"
	"google.golang.org/api/googleapi"
)

// Row is one record in store shape: column name to scalar value.
type Row = map[string]any

const (
	// MaxPageSize is the most rows a single query may return.
	MaxPageSize = 300
	// PageSize is the page size used when reading a full result set.
	PageSize = 250
)

// ErrUnavailable is returned when the store has no live connection.
var ErrUnavailable = errors.New("record store unavailable")

// RecordStore is the tabular record store imports write to and views read from.
type RecordStore interface {
	InsertRows(ctx context.Context, table string, rows []Row) error
	InsertRow(ctx context.Context, table string, row Row) error
	Query(ctx context.Context, query string, args ...any) ([]Row, error)
}

// IsUnavailable reports errors that mean the store itself is down or unreachable,
// as opposed to a bad row or a bad query.
func IsUnavailable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrUnavailable) ||
		errors.Is(err, mysql.ErrInvalidConn) ||
		errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, sql.ErrConnDone) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var gErr *googleapi.Error
	if errors.As(err, &gErr) {
		switch gErr.Code {
		case http.StatusUnauthorized, http.StatusForbidden, http.StatusServiceUnavailable, http.StatusBadGateway, http.StatusGatewayTimeout:
			return true
		}
	}
	return false
}

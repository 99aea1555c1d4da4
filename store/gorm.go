package store

import (
	"context"
	"time"

	"github.com/professorSergio12/Stock-Broker/models"
	"github.com/professorSergio12/Stock-Broker/utils"
	"gorm.io/gorm"
)

// GormStore is the MySQL record store.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// Migrate creates or updates table from the Transaction schema.
func (s *GormStore) Migrate(ctx context.Context, table string) error {
	if s.db == nil {
		return ErrUnavailable
	}
	return s.db.WithContext(ctx).Table(table).AutoMigrate(&models.Transaction{})
}

func (s *GormStore) InsertRows(ctx context.Context, table string, rows []Row) error {
	if len(rows) == 0 {
		return nil
	}
	if s.db == nil {
		return &utils.StoreWriteError{Table: table, Rows: len(rows), Err: ErrUnavailable}
	}
	now := time.Now().UTC()
	values := make([]map[string]interface{}, len(rows))
	for i, r := range rows {
		values[i] = withCreatedTime(r, now)
	}
	// one multi-row INSERT, so a failure leaves nothing behind
	if err := s.db.WithContext(ctx).Table(table).Create(values).Error; err != nil {
		return &utils.StoreWriteError{Table: table, Rows: len(rows), Err: err}
	}
	return nil
}

func (s *GormStore) InsertRow(ctx context.Context, table string, row Row) error {
	if s.db == nil {
		return &utils.StoreWriteError{Table: table, Rows: 1, Err: ErrUnavailable}
	}
	if err := s.db.WithContext(ctx).Table(table).Create(withCreatedTime(row, time.Now().UTC())).Error; err != nil {
		return &utils.StoreWriteError{Table: table, Rows: 1, Err: err}
	}
	return nil
}

func (s *GormStore) Query(ctx context.Context, query string, args ...any) ([]Row, error) {
	if s.db == nil {
		return nil, &utils.StoreReadError{Query: query, Err: ErrUnavailable}
	}
	var out []map[string]interface{}
	if err := s.db.WithContext(ctx).Raw(query, args...).Scan(&out).Error; err != nil {
		return nil, &utils.StoreReadError{Query: query, Err: err}
	}
	return out, nil
}

func withCreatedTime(r Row, now time.Time) map[string]interface{} {
	m := make(map[string]interface{}, len(r)+1)
	for k, v := range r {
		m[k] = v
	}
	if _, ok := m[models.ColumnCreatedTime]; !ok {
		m[models.ColumnCreatedTime] = now
	}
	return m
}

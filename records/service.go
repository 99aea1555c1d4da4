// Package records serves the read side of the dashboard: filtered listings,
// aggregate statistics, holdings and the distinct-value lists behind the
// filter dropdowns.
package records

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/professorSergio12/Stock-Broker/config"
	"github.com/professorSergio12/Stock-Broker/filters"
	"github.com/professorSergio12/Stock-Broker/holdings"
	"github.com/professorSergio12/Stock-Broker/models"
	"github.com/professorSergio12/Stock-Broker/store"
	"github.com/professorSergio12/Stock-Broker/utils"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	DefaultLimit = 50
	MaxLimit     = 200

	topStocksLimit   = 10
	dailyVolumeLimit = 30
)

type Config struct {
	Store  store.RecordStore
	Table  string
	Cache  *Cache
	Logger *logrus.Logger
	Tracer trace.Tracer
}

type Service struct {
	store  store.RecordStore
	table  string
	cache  *Cache
	logger *logrus.Logger
	tracer trace.Tracer
}

func NewService(cfg Config) *Service {
	s := &Service{
		store:  cfg.Store,
		table:  filters.Table(cfg.Table),
		cache:  cfg.Cache,
		logger: cfg.Logger,
		tracer: cfg.Tracer,
	}
	if s.logger == nil {
		s.logger = config.GetLogger()
	}
	if s.tracer == nil {
		s.tracer = otel.Tracer("stock-broker/records")
	}
	return s
}

// Table resolves a caller supplied table name against the service default.
func (s *Service) Table(name string) string {
	if filters.SanitizeIdentifier(name) == "" {
		return s.table
	}
	return filters.Table(name)
}

func (s *Service) span(ctx context.Context, name, table string) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, "records."+name, trace.WithAttributes(attribute.String("table", table)))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// ClampPage returns page, at least 1.
func ClampPage(page int) int {
	if page < 1 {
		return 1
	}
	return page
}

// ClampLimit returns limit within [1, MaxLimit]; zero means DefaultLimit.
func ClampLimit(limit int) int {
	switch {
	case limit == 0:
		return DefaultLimit
	case limit < 1:
		return 1
	case limit > MaxLimit:
		return MaxLimit
	}
	return limit
}

type ListQuery struct {
	Filters filters.Params
	Page    int
	Limit   int
	Table   string
}

type ListResult struct {
	Page  int                  `json:"page"`
	Limit int                  `json:"limit"`
	Total *int64               `json:"total"`
	Data  []models.Transaction `json:"data"`
}

// List returns one page of matching records, newest trade date first. Total is
// nil when the count query fails.
func (s *Service) List(ctx context.Context, q ListQuery) (res ListResult, err error) {
	table := s.Table(q.Table)
	ctx, span := s.span(ctx, "List", table)
	defer func() { endSpan(span, err) }()

	pred, err := q.Filters.Build()
	if err != nil {
		return ListResult{}, err
	}
	page, limit := ClampPage(q.Page), ClampLimit(q.Limit)

	query := fmt.Sprintf("select * from %s%s order by TRANDATE DESC limit %d offset %d",
		table, pred.Where, limit, (page-1)*limit)
	rows, err := s.store.Query(ctx, query, pred.Args...)
	if err != nil {
		return ListResult{}, err
	}

	res = ListResult{Page: page, Limit: limit, Data: toTransactions(rows)}
	countRows, cerr := s.store.Query(ctx, fmt.Sprintf("select count(ROWID) as total_count from %s%s", table, pred.Where), pred.Args...)
	if cerr != nil {
		s.degraded("List", "count", table, cerr)
		return res, nil
	}
	if len(countRows) > 0 {
		if n, ok := models.AsInt64(countRows[0]["total_count"]); ok {
			res.Total = &n
		}
	}
	return res, nil
}

func (s *Service) degraded(funcName, part, table string, err error) {
	s.logger.WithFields(logrus.Fields{
		"module": "records",
		"func":   funcName,
		"part":   part,
		"table":  table,
		"error":  err.Error(),
	}).Warn("auxiliary query failed, returning partial result")
}

// GetByID returns the record with the given ROWID.
func (s *Service) GetByID(ctx context.Context, table, id string) (models.Transaction, error) {
	table = s.Table(table)
	rowID, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return models.Transaction{}, &utils.NotFoundError{Kind: "record", ID: id}
	}
	rows, err := s.store.Query(ctx, fmt.Sprintf("select * from %s where ROWID = ?", table), rowID)
	if err != nil {
		return models.Transaction{}, err
	}
	if len(rows) == 0 {
		return models.Transaction{}, &utils.NotFoundError{Kind: "record", ID: id}
	}
	return models.TransactionFromRow(rows[0]), nil
}

type Overall struct {
	TotalTrades     int64   `json:"totalTrades"`
	TotalNetAmount  float64 `json:"totalNetAmount"`
	AvgTradeValue   float64 `json:"avgTradeValue"`
	BuyTrades       int64   `json:"buyTrades"`
	SellTrades      int64   `json:"sellTrades"`
	CompletedTrades int64   `json:"completedTrades"`
}

type TopStock struct {
	ID            string  `json:"_id"`
	TradeCount    int64   `json:"tradeCount"`
	TotalValue    float64 `json:"totalValue"`
	TotalQuantity float64 `json:"totalQuantity"`
}

type Bucket struct {
	ID         string  `json:"_id"`
	Count      int64   `json:"count"`
	TotalValue float64 `json:"totalValue"`
}

type Stats struct {
	Overall       Overall    `json:"overall"`
	TopStocks     []TopStock `json:"topStocks"`
	ExchangeStats []Bucket   `json:"exchangeStats"`
	DailyVolume   []Bucket   `json:"dailyVolume"`
}

// Stats aggregates the records matching p. Only the totals query is fatal; the
// other parts come back zero or empty when their query fails.
func (s *Service) Stats(ctx context.Context, p filters.Params, table string) (st Stats, err error) {
	table = s.Table(table)
	ctx, span := s.span(ctx, "Stats", table)
	defer func() { endSpan(span, err) }()

	pred, err := p.Build()
	if err != nil {
		return Stats{}, err
	}
	key := Key("stats", table, p)
	if s.cache.Get(ctx, key, &st) {
		return st, nil
	}

	totals, err := s.store.Query(ctx, fmt.Sprintf("select count(ROWID) as total_trades, sum(Net_Amount) as total_net_amount from %s%s", table, pred.Where), pred.Args...)
	if err != nil {
		return Stats{}, err
	}
	st = Stats{TopStocks: []TopStock{}, ExchangeStats: []Bucket{}, DailyVolume: []Bucket{}}
	if len(totals) > 0 {
		st.Overall.TotalTrades = intOf(totals[0]["total_trades"])
		st.Overall.TotalNetAmount = floatOf(totals[0]["total_net_amount"])
	}
	if st.Overall.TotalTrades > 0 {
		st.Overall.AvgTradeValue = math.Round(st.Overall.TotalNetAmount / float64(st.Overall.TotalTrades))
	}

	st.Overall.BuyTrades, st.Overall.SellTrades = s.sideCounts(ctx, table, pred)

	done := pred.And("PAYMENTDATE is not null")
	if rows, err := s.store.Query(ctx, fmt.Sprintf("select count(ROWID) as c from %s%s", table, done.Where), done.Args...); err != nil {
		s.degraded("Stats", "completed", table, err)
	} else if len(rows) > 0 {
		st.Overall.CompletedTrades = intOf(rows[0]["c"])
	}

	topQ := fmt.Sprintf("select Security_Name as _id, count(ROWID) as tradeCount, sum(Net_Amount) as totalValue, sum(QTY) as totalQuantity from %s%s group by Security_Name order by sum(Net_Amount) desc limit %d",
		table, pred.Where, topStocksLimit)
	if rows, err := s.store.Query(ctx, topQ, pred.Args...); err != nil {
		s.degraded("Stats", "topStocks", table, err)
	} else {
		for _, r := range rows {
			st.TopStocks = append(st.TopStocks, TopStock{
				ID:            textOf(r["_id"]),
				TradeCount:    intOf(r["tradeCount"]),
				TotalValue:    floatOf(r["totalValue"]),
				TotalQuantity: floatOf(r["totalQuantity"]),
			})
		}
	}

	exQ := fmt.Sprintf("select EXCHG as _id, count(ROWID) as count, sum(Net_Amount) as totalValue from %s%s group by EXCHG", table, pred.Where)
	if rows, err := s.store.Query(ctx, exQ, pred.Args...); err != nil {
		s.degraded("Stats", "exchangeStats", table, err)
	} else {
		st.ExchangeStats = buckets(rows)
	}

	dayQ := fmt.Sprintf("select TRANDATE as _id, count(ROWID) as count, sum(Net_Amount) as totalValue from %s%s group by TRANDATE order by TRANDATE desc limit %d",
		table, pred.Where, dailyVolumeLimit)
	if rows, err := s.store.Query(ctx, dayQ, pred.Args...); err != nil {
		s.degraded("Stats", "dailyVolume", table, err)
	} else {
		days := buckets(rows)
		for i, j := 0, len(days)-1; i < j; i, j = i+1, j-1 {
			days[i], days[j] = days[j], days[i]
		}
		st.DailyVolume = days
	}

	s.cache.Set(ctx, key, st)
	return st, nil
}

// sideCounts counts buys and sells by the first letter of Tran_Type. Some
// stores match LIKE case-sensitively without LOWER(); when the upper-case
// pair fails the lower-case pair is tried.
func (s *Service) sideCounts(ctx context.Context, table string, pred filters.Predicate) (int64, int64) {
	count := func(pattern string) (int64, error) {
		p := pred.And("Tran_Type LIKE ?", pattern)
		rows, err := s.store.Query(ctx, fmt.Sprintf("select count(ROWID) as c from %s%s", table, p.Where), p.Args...)
		if err != nil {
			return 0, err
		}
		if len(rows) == 0 {
			return 0, nil
		}
		return intOf(rows[0]["c"]), nil
	}
	for _, pair := range [][2]string{{"B%", "S%"}, {"b%", "s%"}} {
		buys, err := count(pair[0])
		if err == nil {
			var sells int64
			if sells, err = count(pair[1]); err == nil {
				return buys, sells
			}
		}
		s.degraded("Stats", "sideCounts "+pair[0], table, err)
	}
	return 0, 0
}

func buckets(rows []map[string]any) []Bucket {
	out := make([]Bucket, 0, len(rows))
	for _, r := range rows {
		out = append(out, Bucket{
			ID:         textOf(r["_id"]),
			Count:      intOf(r["count"]),
			TotalValue: floatOf(r["totalValue"]),
		})
	}
	return out
}

func intOf(v any) int64 {
	n, _ := models.AsInt64(v)
	return n
}

func floatOf(v any) float64 {
	f, _ := models.AsFloat(v)
	return f
}

func textOf(v any) string {
	s, _ := models.AsString(v)
	return s
}

type HoldingsQuery struct {
	ClientID string `form:"clientId" json:"clientId" validate:"required,number"`
	EndDate  string `form:"endDate" json:"endDate" validate:"omitempty,datetime=2006-01-02"`
	Table    string `form:"table" json:"-"`
}

func (q HoldingsQuery) params() filters.Params {
	return filters.Params{}.Set(filters.KeyClientID, q.ClientID).Set(filters.KeyTranDateTo, q.EndDate)
}

type HoldingsResult struct {
	ClientID string             `json:"clientId"`
	EndDate  *string            `json:"endDate"`
	Holdings []holdings.Holding `json:"holdings"`
}

// Holdings replays the client's full history up to EndDate into positions.
func (s *Service) Holdings(ctx context.Context, q HoldingsQuery) (res HoldingsResult, err error) {
	table := s.Table(q.Table)
	ctx, span := s.span(ctx, "Holdings", table)
	span.SetAttributes(attribute.String("clientId", q.ClientID))
	defer func() { endSpan(span, err) }()

	if err = q.Validate(); err != nil {
		return HoldingsResult{}, err
	}
	p := q.params()
	pred, err := p.Build()
	if err != nil {
		return HoldingsResult{}, err
	}
	key := Key("holdings", table, p)
	if s.cache.Get(ctx, key, &res) {
		return res, nil
	}

	rows, err := FetchAll(ctx, s.store, table, pred)
	if err != nil {
		return HoldingsResult{}, err
	}
	res = HoldingsResult{
		ClientID: q.ClientID,
		EndDate:  utils.NilIfEmpty(q.EndDate),
		Holdings: holdings.Aggregate(toTransactions(rows)),
	}
	s.cache.Set(ctx, key, res)
	return res, nil
}

type SecurityQuery struct {
	HoldingsQuery
	Security     string `form:"-" json:"-"`
	SecurityCode string `form:"securityCode" json:"securityCode"`
}

type SecurityResult struct {
	ClientID     string               `json:"clientId"`
	StockName    string               `json:"stockName"`
	Summary      holdings.Summary     `json:"summary"`
	Transactions []models.Transaction `json:"transactions"`
}

// SecurityTransactions returns the client's history in one security, oldest
// first, with buy/sell totals.
func (s *Service) SecurityTransactions(ctx context.Context, q SecurityQuery) (res SecurityResult, err error) {
	table := s.Table(q.Table)
	ctx, span := s.span(ctx, "SecurityTransactions", table)
	defer func() { endSpan(span, err) }()

	if err = q.Validate(); err != nil {
		return SecurityResult{}, err
	}
	p := q.params().Set(filters.KeySecurityName, q.Security).Set(filters.KeySecurityCode, q.SecurityCode)
	pred, err := p.Build()
	if err != nil {
		return SecurityResult{}, err
	}
	rows, err := FetchAll(ctx, s.store, table, pred)
	if err != nil {
		return SecurityResult{}, err
	}
	txns := toTransactions(rows)
	sort.SliceStable(txns, func(i, j int) bool {
		return utils.DereferencePtr(txns[i].TranDate) < utils.DereferencePtr(txns[j].TranDate)
	})
	return SecurityResult{
		ClientID:     q.ClientID,
		StockName:    q.Security,
		Summary:      holdings.Summarize(txns),
		Transactions: txns,
	}, nil
}

// Meta lists the distinct values behind a filter dropdown.
type Meta string

const (
	MetaExchanges        Meta = "exchanges"
	MetaTransactionTypes Meta = "transaction-types"
	MetaClientIDs        Meta = "client-ids"
	MetaSymbols          Meta = "symbols"
)

var metaColumns = map[Meta]string{
	MetaExchanges:        "EXCHG",
	MetaTransactionTypes: "Tran_Type",
	MetaClientIDs:        "WS_client_id",
	MetaSymbols:          "Security_Name",
}

// Distinct returns the non-empty distinct values of a meta column. A failed
// query yields an empty list.
func (s *Service) Distinct(ctx context.Context, m Meta, table string) ([]string, error) {
	column, ok := metaColumns[m]
	if !ok {
		return nil, &utils.NotFoundError{Kind: "meta list", ID: string(m)}
	}
	table = s.Table(table)
	return s.distinct(ctx, table, column, filters.Predicate{}.And(column+" is not null"), Key("meta", table, nil, string(m))), nil
}

// StocksByClient lists the securities a client has traded.
func (s *Service) StocksByClient(ctx context.Context, clientID, table string) ([]string, error) {
	table = s.Table(table)
	p := filters.Params{}.Set(filters.KeyClientID, clientID)
	if len(p) == 0 {
		return nil, utils.NewValidationError("clientId", "is required")
	}
	pred, err := p.Build()
	if err != nil {
		return nil, err
	}
	pred = pred.And("Security_Name is not null")
	return s.distinct(ctx, table, "Security_Name", pred, Key("meta", table, p, "stocks-by-client")), nil
}

func (s *Service) distinct(ctx context.Context, table, column string, pred filters.Predicate, key string) []string {
	out := []string{}
	if s.cache.Get(ctx, key, &out) {
		return out
	}
	rows, err := s.store.Query(ctx, fmt.Sprintf("select distinct %s from %s%s", column, table, pred.Where), pred.Args...)
	if err != nil {
		s.degraded("Distinct", column, table, err)
		return []string{}
	}
	for _, r := range rows {
		if v := textOf(r[column]); v != "" && v != "0" {
			out = append(out, v)
		}
	}
	s.cache.Set(ctx, key, out)
	return out
}

package records

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"testing"

	"github.com/professorSergio12/Stock-Broker/filters"
	"github.com/professorSergio12/Stock-Broker/store"
	"github.com/professorSergio12/Stock-Broker/utils"
)

type call struct {
	query string
	args  []any
}

// scriptedStore answers each query with the first responder whose fragment
// the query contains.
type scriptedStore struct {
	mu         sync.Mutex
	calls      []call
	responders []responder
}

type responder struct {
	fragment string
	answer   func(query string, args []any) ([]store.Row, error)
}

func (s *scriptedStore) on(fragment string, answer func(string, []any) ([]store.Row, error)) *scriptedStore {
	s.responders = append(s.responders, responder{fragment, answer})
	return s
}

func (s *scriptedStore) rows(fragment string, rows ...store.Row) *scriptedStore {
	return s.on(fragment, func(string, []any) ([]store.Row, error) { return rows, nil })
}

func (s *scriptedStore) fail(fragment string) *scriptedStore {
	return s.on(fragment, func(string, []any) ([]store.Row, error) {
		return nil, &utils.StoreReadError{Query: fragment, Err: errors.New("syntax error")}
	})
}

func (s *scriptedStore) InsertRows(context.Context, string, []store.Row) error { return nil }
func (s *scriptedStore) InsertRow(context.Context, string, store.Row) error    { return nil }

func (s *scriptedStore) Query(_ context.Context, query string, args ...any) ([]store.Row, error) {
	s.mu.Lock()
	s.calls = append(s.calls, call{query, args})
	s.mu.Unlock()
	for _, r := range s.responders {
		if strings.Contains(query, r.fragment) {
			return r.answer(query, args)
		}
	}
	return nil, nil
}

func (s *scriptedStore) queries() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.calls))
	for i, c := range s.calls {
		out[i] = c.query
	}
	return out
}

func newTestService(st store.RecordStore) *Service {
	return NewService(Config{Store: st, Table: "Transaction"})
}

func TestList_PaginatesAndCounts(t *testing.T) {
	st := (&scriptedStore{}).
		rows("count(ROWID) as total_count", store.Row{"total_count": int64(120)}).
		rows("select * from", store.Row{"ROWID": int64(1), "Security_Name": "Acme", "QTY": "10"})
	svc := newTestService(st)

	res, err := svc.List(context.Background(), ListQuery{
		Filters: filters.Params{}.Set("exchg", "NSE"),
		Page:    3,
		Limit:   500,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Page != 3 || res.Limit != MaxLimit || res.Total == nil || *res.Total != 120 {
		t.Fatalf("unexpected result %+v", res)
	}
	if len(res.Data) != 1 || *res.Data[0].SecurityName != "Acme" || *res.Data[0].Qty != 10 {
		t.Fatalf("unexpected data %+v", res.Data)
	}
	q := st.queries()[0]
	expected := "select * from Transaction WHERE EXCHG = ? order by TRANDATE DESC limit 200 offset 400"
	if q != expected {
		t.Fatalf("expected %q, got %q", expected, q)
	}
}

func TestList_CountFailureLeavesTotalNil(t *testing.T) {
	st := (&scriptedStore{}).
		fail("count(ROWID)").
		rows("select * from", store.Row{"ROWID": int64(1)})
	res, err := newTestService(st).List(context.Background(), ListQuery{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Total != nil || len(res.Data) != 1 || res.Page != 1 || res.Limit != DefaultLimit {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestList_InvalidFilterNeverReachesStore(t *testing.T) {
	st := &scriptedStore{}
	_, err := newTestService(st).List(context.Background(), ListQuery{
		Filters: filters.Params{}.Set(filters.KeyClientID, "abc"),
	})
	if !utils.IsValidationError(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(st.queries()) != 0 {
		t.Fatalf("store was queried: %v", st.queries())
	}
}

func TestClampLimit(t *testing.T) {
	cases := []struct{ in, expected int }{{0, 50}, {-3, 1}, {1, 1}, {200, 200}, {201, 200}}
	for _, tc := range cases {
		if got := ClampLimit(tc.in); got != tc.expected {
			t.Fatalf("ClampLimit(%d) expected %d, got %d", tc.in, tc.expected, got)
		}
	}
}

func TestStats_AssemblesAndDegrades(t *testing.T) {
	st := (&scriptedStore{}).
		rows("total_net_amount", store.Row{"total_trades": int64(3), "total_net_amount": 1000.0}).
		on("Tran_Type LIKE ?", func(_ string, args []any) ([]store.Row, error) {
			switch args[len(args)-1] {
			case "B%":
				return nil, errors.New("case sensitive LIKE unsupported")
			case "b%":
				return []store.Row{{"c": int64(2)}}, nil
			case "s%":
				return []store.Row{{"c": int64(1)}}, nil
			}
			return nil, nil
		}).
		rows("PAYMENTDATE is not null", store.Row{"c": int64(1)}).
		rows("group by Security_Name", store.Row{"_id": "Acme", "tradeCount": int64(3), "totalValue": "1000", "totalQuantity": 14.0}).
		fail("group by EXCHG").
		rows("group by TRANDATE",
			store.Row{"_id": "2024-01-03", "count": int64(1), "totalValue": 10.0},
			store.Row{"_id": "2024-01-02", "count": int64(2), "totalValue": 20.0},
		)

	got, err := newTestService(st).Stats(context.Background(), filters.Params{}, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expected := Overall{TotalTrades: 3, TotalNetAmount: 1000, AvgTradeValue: 333, BuyTrades: 2, SellTrades: 1, CompletedTrades: 1}
	if got.Overall != expected {
		t.Fatalf("expected %+v, got %+v", expected, got.Overall)
	}
	if len(got.TopStocks) != 1 || got.TopStocks[0] != (TopStock{ID: "Acme", TradeCount: 3, TotalValue: 1000, TotalQuantity: 14}) {
		t.Fatalf("unexpected top stocks %+v", got.TopStocks)
	}
	if got.ExchangeStats == nil || len(got.ExchangeStats) != 0 {
		t.Fatalf("failed exchange query must degrade to an empty list, got %#v", got.ExchangeStats)
	}
	if len(got.DailyVolume) != 2 || got.DailyVolume[0].ID != "2024-01-02" {
		t.Fatalf("daily volume must be oldest first, got %+v", got.DailyVolume)
	}
}

func TestStats_TotalsFailureIsFatal(t *testing.T) {
	st := (&scriptedStore{}).fail("total_net_amount")
	if _, err := newTestService(st).Stats(context.Background(), filters.Params{}, ""); err == nil {
		t.Fatalf("expected error")
	}
}

func TestHoldings_FetchesClientHistoryAndAggregates(t *testing.T) {
	st := (&scriptedStore{}).rows("select * from",
		store.Row{"ROWID": int64(1), "Security_Name": "Acme", "Security_code": "ACM", "Tran_Type": "Buy", "QTY": 10.0, "Net_Amount": 1000.0},
		store.Row{"ROWID": int64(2), "Security_Name": "Acme", "Security_code": "ACM", "Tran_Type": "Sell", "QTY": 4.0, "Net_Amount": 500.0},
		store.Row{"ROWID": int64(3), "Security_Name": "CASH", "Tran_Type": "Buy", "QTY": 1.0, "Net_Amount": 5.0},
	)
	res, err := newTestService(st).Holdings(context.Background(), HoldingsQuery{ClientID: "123", EndDate: "2024-03-31"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.ClientID != "123" || res.EndDate == nil || *res.EndDate != "2024-03-31" {
		t.Fatalf("unexpected echo %+v", res)
	}
	if len(res.Holdings) != 1 || res.Holdings[0].CurrentHolding != 6 || res.Holdings[0].Profit != -500 {
		t.Fatalf("unexpected holdings %+v", res.Holdings)
	}
	q := st.queries()[0]
	expected := "select * from Transaction WHERE WS_client_id = 123 AND TRANDATE <= '2024-03-31' order by ROWID limit 250"
	if q != expected {
		t.Fatalf("expected %q, got %q", expected, q)
	}
}

func TestHoldings_Validation(t *testing.T) {
	cases := []HoldingsQuery{
		{},
		{ClientID: "12x"},
		{ClientID: "12", EndDate: "31/03/2024"},
	}
	for _, q := range cases {
		st := &scriptedStore{}
		_, err := newTestService(st).Holdings(context.Background(), q)
		if !utils.IsValidationError(err) {
			t.Fatalf("%+v: expected validation error, got %v", q, err)
		}
		if len(st.queries()) != 0 {
			t.Fatalf("%+v: store was queried", q)
		}
	}
}

func TestSecurityTransactions_SortsAndSummarizes(t *testing.T) {
	st := (&scriptedStore{}).rows("select * from",
		store.Row{"ROWID": int64(1), "Security_Name": "O'Brien Ltd", "TRANDATE": "2024-02-01", "Tran_Type": "Sell", "QTY": 4.0, "Net_Amount": 500.0},
		store.Row{"ROWID": int64(2), "Security_Name": "O'Brien Ltd", "TRANDATE": "2024-01-01", "Tran_Type": "Buy", "QTY": 10.0, "Net_Amount": 1000.0},
	)
	res, err := newTestService(st).SecurityTransactions(context.Background(), SecurityQuery{
		HoldingsQuery: HoldingsQuery{ClientID: "7"},
		Security:      "O'Brien Ltd",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Transactions) != 2 || *res.Transactions[0].TranDate != "2024-01-01" {
		t.Fatalf("expected oldest first, got %+v", res.Transactions)
	}
	if res.Summary.BuyCount != 1 || res.Summary.SellCount != 1 || res.Summary.CurrentHolding != 6 {
		t.Fatalf("unexpected summary %+v", res.Summary)
	}
	if !strings.Contains(st.queries()[0], "Security_Name = 'O''Brien Ltd'") {
		t.Fatalf("security name not escaped: %s", st.queries()[0])
	}
}

func TestFetchAll_OffsetPaging(t *testing.T) {
	total := store.PageSize + 10
	st := (&scriptedStore{}).on("select * from", func(q string, _ []any) ([]store.Row, error) {
		start := 0
		if i := strings.Index(q, " offset "); i >= 0 {
			fmt.Sscanf(q[i:], " offset %d", &start)
		}
		return idRows(start+1, min(total, start+store.PageSize)), nil
	})
	rows, err := FetchAll(context.Background(), st, "Transaction", filters.Predicate{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != total {
		t.Fatalf("expected %d rows, got %d", total, len(rows))
	}
	if qs := st.queries(); len(qs) != 2 || !strings.HasSuffix(qs[1], "offset 250") {
		t.Fatalf("unexpected queries %v", qs)
	}
}

func TestFetchAll_FallsBackToKeyset(t *testing.T) {
	total := 2*store.PageSize + 5
	st := (&scriptedStore{}).
		on(" offset ", func(string, []any) ([]store.Row, error) {
			return nil, &utils.StoreReadError{Err: errors.New("OFFSET not supported")}
		}).
		on("ROWID > ?", func(_ string, args []any) ([]store.Row, error) {
			last := args[len(args)-1].(int64)
			return idRows(int(last)+1, min(total, int(last)+store.PageSize)), nil
		}).
		on("select * from", func(string, []any) ([]store.Row, error) {
			return idRows(1, store.PageSize), nil
		})

	pred := filters.Predicate{}.And("EXCHG = ?", "NSE")
	rows, err := FetchAll(context.Background(), st, "Transaction", pred)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != total {
		t.Fatalf("expected %d rows, got %d", total, len(rows))
	}
	seen := map[int64]bool{}
	for _, r := range rows {
		id := r["ROWID"].(int64)
		if seen[id] {
			t.Fatalf("row %d returned twice", id)
		}
		seen[id] = true
	}
	last := st.calls[len(st.calls)-1]
	if !reflect.DeepEqual(last.args, []any{"NSE", int64(2 * store.PageSize)}) {
		t.Fatalf("unexpected keyset args %v", last.args)
	}
}

func TestFetchAll_OutageDoesNotFallBack(t *testing.T) {
	st := (&scriptedStore{}).
		on(" offset ", func(string, []any) ([]store.Row, error) { return nil, store.ErrUnavailable }).
		on("select * from", func(string, []any) ([]store.Row, error) { return idRows(1, store.PageSize), nil })
	_, err := FetchAll(context.Background(), st, "Transaction", filters.Predicate{})
	if !errors.Is(err, store.ErrUnavailable) {
		t.Fatalf("expected unavailable error, got %v", err)
	}
}

func idRows(from, to int) []store.Row {
	var out []store.Row
	for i := from; i <= to; i++ {
		out = append(out, store.Row{"ROWID": int64(i)})
	}
	return out
}

func TestDistinct(t *testing.T) {
	st := (&scriptedStore{}).rows("select distinct EXCHG", store.Row{"EXCHG": "NSE"}, store.Row{"EXCHG": ""}, store.Row{"EXCHG": nil}, store.Row{"EXCHG": "BSE"})
	got, err := newTestService(st).Distinct(context.Background(), MetaExchanges, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(got, []string{"NSE", "BSE"}) {
		t.Fatalf("unexpected values %v", got)
	}
	if q := st.queries()[0]; q != "select distinct EXCHG from Transaction WHERE EXCHG is not null" {
		t.Fatalf("unexpected query %q", q)
	}

	failing := (&scriptedStore{}).fail("distinct")
	got, err = newTestService(failing).Distinct(context.Background(), MetaSymbols, "")
	if err != nil || got == nil || len(got) != 0 {
		t.Fatalf("failed query must yield an empty list, got %v, %v", got, err)
	}

	if _, err := newTestService(st).Distinct(context.Background(), Meta("passwords"), ""); !utils.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestStocksByClient(t *testing.T) {
	st := (&scriptedStore{}).rows("select distinct Security_Name", store.Row{"Security_Name": "Acme"})
	got, err := newTestService(st).StocksByClient(context.Background(), "42", "")
	if err != nil || !reflect.DeepEqual(got, []string{"Acme"}) {
		t.Fatalf("unexpected %v, %v", got, err)
	}
	expected := "select distinct Security_Name from Transaction WHERE WS_client_id = 42 AND Security_Name is not null"
	if q := st.queries()[0]; q != expected {
		t.Fatalf("expected %q, got %q", expected, q)
	}
	if _, err := newTestService(st).StocksByClient(context.Background(), "", ""); !utils.IsValidationError(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestGetByID(t *testing.T) {
	st := (&scriptedStore{}).on("ROWID = ?", func(_ string, args []any) ([]store.Row, error) {
		if args[0].(int64) == 5 {
			return []store.Row{{"ROWID": int64(5), "Security_Name": "Acme"}}, nil
		}
		return nil, nil
	})
	svc := newTestService(st)
	rec, err := svc.GetByID(context.Background(), "", "5")
	if err != nil || rec.ROWID != 5 {
		t.Fatalf("unexpected %+v, %v", rec, err)
	}
	for _, id := range []string{"6", "abc"} {
		if _, err := svc.GetByID(context.Background(), "", id); !utils.IsNotFound(err) {
			t.Fatalf("%s: expected not found, got %v", id, err)
		}
	}
}

func TestKey_StableAcrossParamOrder(t *testing.T) {
	a := Key("stats", "Transaction", filters.Params{"exchg": "NSE", "isin": "X"})
	b := Key("stats", "Transaction", filters.Params{"isin": "X", "exchg": "NSE"})
	c := Key("stats", "Transaction", filters.Params{"isin": "X"})
	if a != b || a == c {
		t.Fatalf("unexpected keys %s %s %s", a, b, c)
	}
}

func TestCache_NilIsNoop(t *testing.T) {
	var c *Cache
	var dest []string
	if c.Get(context.Background(), "k", &dest) {
		t.Fatalf("nil cache must miss")
	}
	c.Set(context.Background(), "k", []string{"x"})
	if err := c.Invalidate(context.Background()); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
}

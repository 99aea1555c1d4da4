// Package holdings derives per-security positions from a client's
// transaction history. The record store cannot do conditional sums, so the
// buy/sell split happens here after the rows are fetched.
package holdings

import (
	"sort"
	"strings"
	"unicode"

	"github.com/professorSergio12/Stock-Broker/models"
	"github.com/shopspring/decimal"
)

// Denylist holds pseudo-security names (cash legs, tax deductions) that are
// never reported as holdings. Matching is a case-insensitive substring test.
var Denylist = []string{"CASH", "TAX DEDUCTED", "TAX DEDUCTION"}

// DenyWords are denylisted abbreviations. They must appear as a whole word,
// so "TDS on dividend" is dropped but "Bharat Metals TDSL" is not.
var DenyWords = []string{"TDS"}

// Side is the direction of a transaction.
type Side int

const (
	SideOther Side = iota
	SideBuy
	SideSell
)

// Classify reads the side from the first letter of the transaction type.
func Classify(tranType *string) Side {
	if tranType == nil {
		return SideOther
	}
	s := strings.TrimSpace(*tranType)
	if s == "" {
		return SideOther
	}
	switch s[0] {
	case 'B', 'b':
		return SideBuy
	case 'S', 's':
		return SideSell
	}
	return SideOther
}

type Holding struct {
	StockName       string  `json:"stockName"`
	StockCode       string  `json:"stockCode"`
	TotalBuyQty     float64 `json:"totalBuyQty"`
	TotalBuyAmount  float64 `json:"totalBuyAmount"`
	TotalSellQty    float64 `json:"totalSellQty"`
	TotalSellAmount float64 `json:"totalSellAmount"`
	CurrentHolding  float64 `json:"currentHolding"`
	Profit          float64 `json:"profit"`
	AvgBuyPrice     float64 `json:"avgBuyPrice"`
	AvgSellPrice    float64 `json:"avgSellPrice"`
	BuyCount        int     `json:"buyCount"`
	SellCount       int     `json:"sellCount"`
}

// Summary describes a list of transactions, typically one client and security.
type Summary struct {
	TotalTransactions int     `json:"totalTransactions"`
	BuyCount          int     `json:"buyCount"`
	SellCount         int     `json:"sellCount"`
	TotalBuyQty       float64 `json:"totalBuyQty"`
	TotalBuyAmount    float64 `json:"totalBuyAmount"`
	TotalSellQty      float64 `json:"totalSellQty"`
	TotalSellAmount   float64 `json:"totalSellAmount"`
	CurrentHolding    float64 `json:"currentHolding"`
	Profit            float64 `json:"profit"`
	UniqueStocks      int     `json:"uniqueStocks"`
}

type groupKey struct {
	name string
	code string
}

type tally struct {
	buyQty, buyAmt, sellQty, sellAmt decimal.Decimal
	buys, sells                      int
}

func (t *tally) add(tx models.Transaction) {
	qty := decimalOf(tx.Qty)
	amt := decimalOf(tx.NetAmount)
	switch Classify(tx.TranType) {
	case SideBuy:
		t.buyQty = t.buyQty.Add(qty)
		t.buyAmt = t.buyAmt.Add(amt)
		t.buys++
	case SideSell:
		t.sellQty = t.sellQty.Add(qty)
		t.sellAmt = t.sellAmt.Add(amt)
		t.sells++
	}
}

func decimalOf(v *float64) decimal.Decimal {
	if v == nil {
		return decimal.Zero
	}
	return decimal.NewFromFloat(*v)
}

func ratio(amount, qty decimal.Decimal) float64 {
	if qty.IsZero() {
		return 0
	}
	return amount.Div(qty).InexactFloat64()
}

// IsDenied reports whether name contains a Denylist entry or a DenyWords word.
func IsDenied(name string) bool {
	upper := strings.ToUpper(name)
	for _, d := range Denylist {
		if d != "" && strings.Contains(upper, strings.ToUpper(d)) {
			return true
		}
	}
	if len(DenyWords) == 0 {
		return false
	}
	words := strings.FieldsFunc(upper, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		for _, d := range DenyWords {
			if w == strings.ToUpper(d) {
				return true
			}
		}
	}
	return false
}

// Aggregate groups txns by security name and code and returns the positions
// sorted by name then code. Every transaction is counted; nothing is deduplicated.
func Aggregate(txns []models.Transaction) []Holding {
	groups := make(map[groupKey]*tally)
	var order []groupKey
	for _, tx := range txns {
		k := groupKey{name: deref(tx.SecurityName), code: deref(tx.SecurityCode)}
		g, ok := groups[k]
		if !ok {
			g = &tally{}
			groups[k] = g
			order = append(order, k)
		}
		g.add(tx)
	}

	out := make([]Holding, 0, len(order))
	for _, k := range order {
		g := groups[k]
		if IsDenied(k.name) {
			continue
		}
		if g.buyQty.IsZero() && g.sellQty.IsZero() {
			continue
		}
		out = append(out, Holding{
			StockName:       k.name,
			StockCode:       k.code,
			TotalBuyQty:     g.buyQty.InexactFloat64(),
			TotalBuyAmount:  g.buyAmt.InexactFloat64(),
			TotalSellQty:    g.sellQty.InexactFloat64(),
			TotalSellAmount: g.sellAmt.InexactFloat64(),
			CurrentHolding:  g.buyQty.Sub(g.sellQty).InexactFloat64(),
			Profit:          g.sellAmt.Sub(g.buyAmt).InexactFloat64(),
			AvgBuyPrice:     ratio(g.buyAmt, g.buyQty),
			AvgSellPrice:    ratio(g.sellAmt, g.sellQty),
			BuyCount:        g.buys,
			SellCount:       g.sells,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].StockName != out[j].StockName {
			return out[i].StockName < out[j].StockName
		}
		return out[i].StockCode < out[j].StockCode
	})
	return out
}

// Summarize totals txns without grouping.
func Summarize(txns []models.Transaction) Summary {
	var t tally
	names := make(map[string]struct{})
	for _, tx := range txns {
		t.add(tx)
		if n := deref(tx.SecurityName); n != "" {
			names[n] = struct{}{}
		}
	}
	return Summary{
		TotalTransactions: len(txns),
		BuyCount:          t.buys,
		SellCount:         t.sells,
		TotalBuyQty:       t.buyQty.InexactFloat64(),
		TotalBuyAmount:    t.buyAmt.InexactFloat64(),
		TotalSellQty:      t.sellQty.InexactFloat64(),
		TotalSellAmount:   t.sellAmt.InexactFloat64(),
		CurrentHolding:    t.buyQty.Sub(t.sellQty).InexactFloat64(),
		Profit:            t.sellAmt.Sub(t.buyAmt).InexactFloat64(),
		UniqueStocks:      len(names),
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}

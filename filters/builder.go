// Package filters turns dashboard query parameters into a WHERE clause for the
// record store. Only allow-listed keys are read.
//
// Some values are embedded as quoted literals instead of bound parameters:
// dates, the security name and the free-text search. The record store this
// service was first deployed against could not bind those positions. Quotes
// are doubled on that path; it is not meant as a general injection defense and
// must stay limited to the keys below.
package filters

import (
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/professorSergio12/Stock-Broker/models"
	"github.com/professorSergio12/Stock-Broker/utils"
)

const (
	KeyClientID     = "ws_client_id"
	KeySecurityName = "security_name"
	KeySecurityCode = "security_code"
	KeyTranDateFrom = "trandate_from"
	KeyTranDateTo   = "trandate_to"
	KeySetDateFrom  = "setdate_from"
	KeySetDateTo    = "setdate_to"
	KeyQuery        = "q"
)

type column struct {
	key    string
	column string
}

// boundEquals are compared with a bound parameter.
var boundEquals = []column{
	{"ws_account_code", "WS_Account_code"},
	{"tran_type", "Tran_Type"},
	{"tran_desc", "Tran_Desc"},
	{"security_type", "Security_Type"},
	{"security_type_description", "Security_Type_Description"},
	{"detailtypename", "DETAILTYPENAME"},
	{"isin", "ISIN"},
	{KeySecurityCode, "Security_code"},
	{"exchg", "EXCHG"},
	{"brokercode", "BROKERCODE"},
	{"portfolioid", "PORTFOLIOID"},
	{"branchid", "BRANCHID"},
	{"ownerid", "OWNERID"},
	{"advisorid", "ADVISORID"},
	{"groupid", "GROUPID"},
}

type dateBound struct {
	key    string
	column string
	op     string
}

var dateBounds = []dateBound{
	{KeyTranDateFrom, "TRANDATE", ">="},
	{KeyTranDateTo, "TRANDATE", "<="},
	{KeySetDateFrom, "SETDATE", ">="},
	{KeySetDateTo, "SETDATE", "<="},
}

var allowedKeys = func() map[string]bool {
	m := map[string]bool{KeyClientID: true, KeySecurityName: true, KeyQuery: true}
	for _, c := range boundEquals {
		m[c.key] = true
	}
	for _, d := range dateBounds {
		m[d.key] = true
	}
	return m
}()

var digitsOnly = regexp.MustCompile(`^[0-9]+$`)

var filterDateLayouts = []string{models.DateLayout, time.RFC3339, "2006-01-02T15:04:05"}

// Keys lists the accepted filter keys.
func Keys() []string {
	out := make([]string, 0, len(allowedKeys))
	for k := range allowedKeys {
		out = append(out, k)
	}
	return out
}

// Params holds the active filters keyed by query parameter name.
type Params map[string]string

// FromQuery copies the allow-listed, non-blank values out of q.
func FromQuery(q url.Values) Params {
	p := Params{}
	for key := range allowedKeys {
		p.Set(key, q.Get(key))
	}
	return p
}

// Set stores value under key. Unknown keys and blank values are ignored.
func (p Params) Set(key, value string) Params {
	value = strings.TrimSpace(value)
	if !allowedKeys[key] || value == "" {
		return p
	}
	p[key] = value
	return p
}

// Predicate is a WHERE clause and its positional arguments.
type Predicate struct {
	Where string
	Args  []any
}

// And returns p extended with cond.
func (p Predicate) And(cond string, args ...any) Predicate {
	if p.Where == "" {
		p.Where = " WHERE " + cond
	} else {
		p.Where += " AND " + cond
	}
	p.Args = append(append([]any{}, p.Args...), args...)
	return p
}

// Build ANDs every active filter into one predicate.
func (p Params) Build() (Predicate, error) {
	var pred Predicate

	if v := p[KeyClientID]; v != "" {
		// WS_client_id is numeric in the store; a quoted literal skips its index.
		if !digitsOnly.MatchString(v) {
			return Predicate{}, utils.NewValidationError(KeyClientID, "must be numeric, got %q", v)
		}
		pred = pred.And("WS_client_id = " + v)
	}

	for _, c := range boundEquals {
		if v := p[c.key]; v != "" {
			pred = pred.And(c.column+" = ?", v)
		}
	}

	if v := p[KeySecurityName]; v != "" {
		pred = pred.And("Security_Name = " + Quote(v))
	}

	for _, d := range dateBounds {
		v := p[d.key]
		if v == "" {
			continue
		}
		day, ok := normalizeFilterDate(v)
		if !ok {
			return Predicate{}, utils.NewValidationError(d.key, "invalid date %q, expected YYYY-MM-DD", v)
		}
		pred = pred.And(d.column + " " + d.op + " " + Quote(day))
	}

	if v := p[KeyQuery]; v != "" {
		like := Quote("%" + v + "%")
		pred = pred.And("(Security_Name LIKE " + like + " OR Security_code LIKE " + like + ")")
	}
	return pred, nil
}

func normalizeFilterDate(s string) (string, bool) {
	for _, layout := range filterDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(models.DateLayout), true
		}
	}
	return "", false
}

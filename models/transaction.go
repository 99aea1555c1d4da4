package models

import (
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"
)

// FieldKind is how a canonical column is coerced on import.
type FieldKind int

const (
	KindText FieldKind = iota
	KindNumeric
	KindDate
)

const (
	ColumnRowID       = "ROWID"
	ColumnCreatedTime = "CREATEDTIME"
)

// Transaction is one brokerage transaction row. Column names are the exact,
// case-sensitive store column names; the json names match them so the dashboard
// receives the same keys it filters on.
type Transaction struct {
	ROWID       int64      `gorm:"column:ROWID;primaryKey;autoIncrement" json:"ROWID,omitempty"`
	CREATEDTIME *time.Time `gorm:"column:CREATEDTIME;autoCreateTime" json:"CREATEDTIME,omitempty"`

	WSClientID              *string  `gorm:"column:WS_client_id;type:bigint;index" json:"WS_client_id"`
	WSAccountCode           *string  `gorm:"column:WS_Account_code;size:64" json:"WS_Account_code"`
	TranDate                *string  `gorm:"column:TRANDATE;size:32;index" json:"TRANDATE" kind:"date"`
	SetDate                 *string  `gorm:"column:SETDATE;size:32" json:"SETDATE" kind:"date"`
	TranType                *string  `gorm:"column:Tran_Type;size:64" json:"Tran_Type"`
	TranDesc                *string  `gorm:"column:Tran_Desc;size:255" json:"Tran_Desc"`
	SecurityType            *string  `gorm:"column:Security_Type;size:64" json:"Security_Type"`
	SecurityTypeDescription *string  `gorm:"column:Security_Type_Description;size:255" json:"Security_Type_Description"`
	DetailTypeName          *string  `gorm:"column:DETAILTYPENAME;size:255" json:"DETAILTYPENAME"`
	ISIN                    *string  `gorm:"column:ISIN;size:32" json:"ISIN"`
	SecurityCode            *string  `gorm:"column:Security_code;size:64;index" json:"Security_code"`
	SecurityName            *string  `gorm:"column:Security_Name;size:255;index" json:"Security_Name"`
	Exchange                *string  `gorm:"column:EXCHG;size:32" json:"EXCHG"`
	BrokerCode              *string  `gorm:"column:BROKERCODE;size:64" json:"BROKERCODE"`
	DepositoryRegistrar     *string  `gorm:"column:Depository_Registrar;size:255" json:"Depository_Registrar"`
	DPIDAMC                 *string  `gorm:"column:DPID_AMC;size:64" json:"DPID_AMC"`
	DpClientIDFolio         *string  `gorm:"column:Dp_Client_id_Folio;size:64" json:"Dp_Client_id_Folio"`
	BankCode                *string  `gorm:"column:BANKCODE;size:64" json:"BANKCODE"`
	BankACID                *string  `gorm:"column:BANKACID;size:64" json:"BANKACID"`
	Qty                     *float64 `gorm:"column:QTY" json:"QTY"`
	Rate                    *float64 `gorm:"column:RATE" json:"RATE"`
	Brokerage               *float64 `gorm:"column:BROKERAGE" json:"BROKERAGE"`
	ServiceTax              *float64 `gorm:"column:SERVICETAX" json:"SERVICETAX"`
	NetRate                 *float64 `gorm:"column:NETRATE" json:"NETRATE"`
	NetAmount               *float64 `gorm:"column:Net_Amount" json:"Net_Amount"`
	STT                     *float64 `gorm:"column:STT" json:"STT"`
	TrfDate                 *string  `gorm:"column:TRFDATE;size:32" json:"TRFDATE" kind:"date"`
	TrfRate                 *float64 `gorm:"column:TRFRATE" json:"TRFRATE"`
	TrfAmt                  *float64 `gorm:"column:TRFAMT" json:"TRFAMT"`
	TotalTxnFee             *float64 `gorm:"column:TOTAL_TRXNFEE" json:"TOTAL_TRXNFEE"`
	TotalTxnFeeSTax         *float64 `gorm:"column:TOTAL_TRXNFEE_STAX" json:"TOTAL_TRXNFEE_STAX"`
	TxnRefNo                *string  `gorm:"column:Txn_Ref_No;size:128" json:"Txn_Ref_No"`
	DescMemo                *string  `gorm:"column:DESCMEMO;type:text" json:"DESCMEMO"`
	ChequeNo                *string  `gorm:"column:CHEQUENO;size:64" json:"CHEQUENO"`
	ChequeDtl               *string  `gorm:"column:CHEQUEDTL;size:255" json:"CHEQUEDTL"`
	PortfolioID             *string  `gorm:"column:PORTFOLIOID;size:64" json:"PORTFOLIOID"`
	DeliveryDate            *string  `gorm:"column:DELIVERYDATE;size:32" json:"DELIVERYDATE" kind:"date"`
	PaymentDate             *string  `gorm:"column:PAYMENTDATE;size:32" json:"PAYMENTDATE" kind:"date"`
	AccruedInterest         *float64 `gorm:"column:ACCRUEDINTEREST" json:"ACCRUEDINTEREST"`
	Issuer                  *string  `gorm:"column:ISSUER;size:128" json:"ISSUER"`
	IssuerName              *string  `gorm:"column:ISSUERNAME;size:255" json:"ISSUERNAME"`
	TDSAmount               *float64 `gorm:"column:TDSAMOUNT" json:"TDSAMOUNT"`
	StampDuty               *float64 `gorm:"column:STAMPDUTY" json:"STAMPDUTY"`
	TPMSGain                *float64 `gorm:"column:TPMSGAIN" json:"TPMSGAIN"`
	RMID                    *string  `gorm:"column:RMID;size:64" json:"RMID"`
	RMName                  *string  `gorm:"column:RMNAME;size:255" json:"RMNAME"`
	AdvisorID               *string  `gorm:"column:ADVISORID;size:64" json:"ADVISORID"`
	AdvisorName             *string  `gorm:"column:ADVISORNAME;size:255" json:"ADVISORNAME"`
	BranchID                *string  `gorm:"column:BRANCHID;size:64" json:"BRANCHID"`
	BranchName              *string  `gorm:"column:BRANCHNAME;size:255" json:"BRANCHNAME"`
	GroupID                 *string  `gorm:"column:GROUPID;size:64" json:"GROUPID"`
	GroupName               *string  `gorm:"column:GROUPNAME;size:255" json:"GROUPNAME"`
	OwnerID                 *string  `gorm:"column:OWNERID;size:64" json:"OWNERID"`
	OwnerName               *string  `gorm:"column:OWNERNAME;size:255" json:"OWNERNAME"`
	WealthAdvisorName       *string  `gorm:"column:WEALTHADVISOR_NAME;size:255" json:"WEALTHADVISOR_NAME"`
	SchemeID                *string  `gorm:"column:SCHEMEID;size:64" json:"SCHEMEID"`
	SchemeName              *string  `gorm:"column:SCHEMENAME;size:255" json:"SCHEMENAME"`
}

type columnInfo struct {
	name  string
	index int
	kind  FieldKind
}

var (
	registryOnce sync.Once
	columns      []columnInfo
	columnIndex  map[string]int
)

// registry is built from the gorm column tags so the struct stays the single source of truth.
func registry() ([]columnInfo, map[string]int) {
	registryOnce.Do(func() {
		rt := reflect.TypeOf(Transaction{})
		columnIndex = make(map[string]int, rt.NumField())
		for i := 0; i < rt.NumField(); i++ {
			f := rt.Field(i)
			name := gormColumn(f.Tag.Get("gorm"))
			if name == "" || name == ColumnRowID || name == ColumnCreatedTime {
				continue
			}
			kind := KindText
			switch {
			case f.Type == reflect.TypeOf((*float64)(nil)):
				kind = KindNumeric
			case f.Tag.Get("kind") == "date":
				kind = KindDate
			}
			columnIndex[name] = len(columns)
			columns = append(columns, columnInfo{name: name, index: i, kind: kind})
		}
	})
	return columns, columnIndex
}

func gormColumn(tag string) string {
	for _, part := range strings.Split(tag, ";") {
		if v, ok := strings.CutPrefix(part, "column:"); ok {
			return v
		}
	}
	return ""
}

// TransactionColumns lists the canonical import columns in schema order.
func TransactionColumns() []string {
	cols, _ := registry()
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = c.name
	}
	return out
}

// ColumnKind reports the coercion kind of a canonical column.
func ColumnKind(name string) (FieldKind, bool) {
	cols, idx := registry()
	i, ok := idx[name]
	if !ok {
		return KindText, false
	}
	return cols[i].kind, true
}

func IsTransactionColumn(name string) bool {
	_, idx := registry()
	_, ok := idx[name]
	return ok
}

// SetText assigns a text or date column. A nil value clears it.
func (t *Transaction) SetText(column string, v *string) error {
	f, err := t.field(column)
	if err != nil {
		return err
	}
	if f.Type() != reflect.TypeOf(v) {
		return fmt.Errorf("column %s is not a text column", column)
	}
	f.Set(reflect.ValueOf(v))
	return nil
}

// SetNumber assigns a numeric column. A nil value clears it.
func (t *Transaction) SetNumber(column string, v *float64) error {
	f, err := t.field(column)
	if err != nil {
		return err
	}
	if f.Type() != reflect.TypeOf(v) {
		return fmt.Errorf("column %s is not a numeric column", column)
	}
	f.Set(reflect.ValueOf(v))
	return nil
}

// Get returns the dereferenced column value, or nil when unset.
func (t *Transaction) Get(column string) any {
	f, err := t.field(column)
	if err != nil || f.IsNil() {
		return nil
	}
	return f.Elem().Interface()
}

func (t *Transaction) field(column string) (reflect.Value, error) {
	cols, idx := registry()
	i, ok := idx[column]
	if !ok {
		return reflect.Value{}, fmt.Errorf("unknown column %q", column)
	}
	return reflect.ValueOf(t).Elem().Field(cols[i].index), nil
}

// Values is the store write shape: every canonical column, nil when unset.
func (t *Transaction) Values() map[string]any {
	cols, _ := registry()
	rv := reflect.ValueOf(t).Elem()
	out := make(map[string]any, len(cols))
	for _, c := range cols {
		f := rv.Field(c.index)
		if f.IsNil() {
			out[c.name] = nil
			continue
		}
		out[c.name] = f.Elem().Interface()
	}
	return out
}

// IsEmpty reports whether every canonical column is unset or blank.
func (t *Transaction) IsEmpty() bool {
	cols, _ := registry()
	rv := reflect.ValueOf(t).Elem()
	for _, c := range cols {
		f := rv.Field(c.index)
		if f.IsNil() {
			continue
		}
		if s, ok := f.Elem().Interface().(string); ok && strings.TrimSpace(s) == "" {
			continue
		}
		return false
	}
	return true
}

// TransactionFromRow converts a store row back into a Transaction. Values the
// store returns in a different scalar type (int64 client ids, DATE columns, decimal
// strings) are converted; anything unconvertible is left nil.
func TransactionFromRow(row map[string]any) Transaction {
	var t Transaction
	if v, ok := AsInt64(row[ColumnRowID]); ok {
		t.ROWID = v
	}
	if v, ok := row[ColumnCreatedTime].(time.Time); ok {
		t.CREATEDTIME = &v
	}

	cols, _ := registry()
	rv := reflect.ValueOf(&t).Elem()
	for _, c := range cols {
		raw, ok := row[c.name]
		if !ok || raw == nil {
			continue
		}
		f := rv.Field(c.index)
		switch c.kind {
		case KindNumeric:
			if n, ok := AsFloat(raw); ok {
				f.Set(reflect.ValueOf(&n))
			}
		case KindDate:
			if tm, ok := raw.(time.Time); ok {
				s := tm.Format(DateLayout)
				f.Set(reflect.ValueOf(&s))
			} else if s, ok := AsString(raw); ok {
				f.Set(reflect.ValueOf(&s))
			}
		default:
			if s, ok := AsString(raw); ok {
				f.Set(reflect.ValueOf(&s))
			}
		}
	}
	return t
}

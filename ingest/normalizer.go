package ingest

import (
	"regexp"
	"strings"
	"sync"

	"github.com/professorSergio12/Stock-Broker/models"
)

// headerAliases maps header spellings seen in broker exports to canonical columns.
var headerAliases = map[string]string{
	"WS client id":              "WS_client_id",
	"WS Client id":              "WS_client_id",
	"WS_client_id":              "WS_client_id",
	"WS Account code":           "WS_Account_code",
	"WS_Account_code":           "WS_Account_code",
	"TRANDATE":                  "TRANDATE",
	"SETDATE":                   "SETDATE",
	"Set Date":                  "SETDATE",
	"Tran Type":                 "Tran_Type",
	"Tran_Type":                 "Tran_Type",
	"Tran Desc":                 "Tran_Desc",
	"Tran_Desc":                 "Tran_Desc",
	"Security Type":             "Security_Type",
	"Security_Type":             "Security_Type",
	"Security Type Description": "Security_Type_Description",
	"Security_Type_Description": "Security_Type_Description",
	"DETAILTYPENAME":            "DETAILTYPENAME",
	"Detail Type Name":          "DETAILTYPENAME",
	"ISIN":                      "ISIN",
	"Security code":             "Security_code",
	"Security_code":             "Security_code",
	"Security Name":             "Security_Name",
	"Security_Name":             "Security_Name",
	"EXCHG":                     "EXCHG",
	"Exchange":                  "EXCHG",
	"BROKERCODE":                "BROKERCODE",
	"Broker Code":               "BROKERCODE",
	"Depository/Registrar":      "Depository_Registrar",
	"Depositoy/Registrar":       "Depository_Registrar",
	"DPID/AMC":                  "DPID_AMC",
	"Dp Client id/Folio":        "Dp_Client_id_Folio",
	"DP Client id/Folio":        "Dp_Client_id_Folio",
	"BANKCODE":                  "BANKCODE",
	"Bank Code":                 "BANKCODE",
	"BANKACID":                  "BANKACID",
	"Bank AC ID":                "BANKACID",
	"QTY":                       "QTY",
	"Quantity":                  "QTY",
	"RATE":                      "RATE",
	"Rate":                      "RATE",
	"BROKERAGE":                 "BROKERAGE",
	"Brokerage":                 "BROKERAGE",
	"SERVICETAX":                "SERVICETAX",
	"Service Tax":               "SERVICETAX",
	"NETRATE":                   "NETRATE",
	"Net Rate":                  "NETRATE",
	"Net Amount":                "Net_Amount",
	"NET_Amount":                "Net_Amount",
	"STT":                       "STT",
	"TRFDATE":                   "TRFDATE",
	"TRF Date":                  "TRFDATE",
	"TRFRATE":                   "TRFRATE",
	"TRF Rate":                  "TRFRATE",
	"TRFAMT":                    "TRFAMT",
	"TRF Amount":                "TRFAMT",
	"TOTAL_TRXNFEE":             "TOTAL_TRXNFEE",
	"Total Txn Fee":             "TOTAL_TRXNFEE",
	"TOTAL_TRXNFEE_STAX":        "TOTAL_TRXNFEE_STAX",
	"Total Txn Fee STax":        "TOTAL_TRXNFEE_STAX",
	"Txn Ref No":                "Txn_Ref_No",
	"TXN_Ref_No":                "Txn_Ref_No",
	"DESCMEMO":                  "DESCMEMO",
	"Desc Memo":                 "DESCMEMO",
	"CHEQUENO":                  "CHEQUENO",
	"Cheque No":                 "CHEQUENO",
	"CHEQUEDTL":                 "CHEQUEDTL",
	"Cheque Dtl":                "CHEQUEDTL",
	"PORTFOLIOID":               "PORTFOLIOID",
	"Portfolio ID":              "PORTFOLIOID",
	"DELIVERYDATE":              "DELIVERYDATE",
	"Delivery Date":             "DELIVERYDATE",
	"PAYMENTDATE":               "PAYMENTDATE",
	"Payment Date":              "PAYMENTDATE",
	"ACCRUEDINTEREST":           "ACCRUEDINTEREST",
	"Accrued Interest":          "ACCRUEDINTEREST",
	"ISSUER":                    "ISSUER",
	"Issuer":                    "ISSUER",
	"ISSUERNAME":                "ISSUERNAME",
	"Issuer Name":               "ISSUERNAME",
	"TDSAMOUNT":                 "TDSAMOUNT",
	"TDS Amount":                "TDSAMOUNT",
	"STAMPDUTY":                 "STAMPDUTY",
	"Stamp Duty":                "STAMPDUTY",
	"TPMSGAIN":                  "TPMSGAIN",
	"TPMSGain":                  "TPMSGAIN",
	"RMID":                      "RMID",
	"RM ID":                     "RMID",
	"RMNAME":                    "RMNAME",
	"RM Name":                   "RMNAME",
	"ADVISORID":                 "ADVISORID",
	"Advisor ID":                "ADVISORID",
	"ADVISORNAME":               "ADVISORNAME",
	"Advisor Name":              "ADVISORNAME",
	"BRANCHID":                  "BRANCHID",
	"Branch ID":                 "BRANCHID",
	"BRANCHNAME":                "BRANCHNAME",
	"Branch Name":               "BRANCHNAME",
	"GROUPID":                   "GROUPID",
	"Group ID":                  "GROUPID",
	"GROUPNAME":                 "GROUPNAME",
	"Group Name":                "GROUPNAME",
	"OWNERID":                   "OWNERID",
	"Owner ID":                  "OWNERID",
	"OWNERNAME":                 "OWNERNAME",
	"Owner Name":                "OWNERNAME",
	"WEALTHADVISOR NAME":        "WEALTHADVISOR_NAME",
	"Wealth Advisor Name":       "WEALTHADVISOR_NAME",
	"SCHEMEID":                  "SCHEMEID",
	"Scheme ID":                 "SCHEMEID",
	"SCHEMENAME":                "SCHEMENAME",
	"Scheme Name":               "SCHEMENAME",
}

var (
	separatorRun = regexp.MustCompile(`[.\s/-]+`)
	nonAlnum     = regexp.MustCompile(`[^a-z0-9]`)

	canonicalOnce  sync.Once
	canonicalIndex map[string]string
)

func canonicalize(name string) string {
	return nonAlnum.ReplaceAllString(strings.ToLower(name), "")
}

func canonicalColumns() map[string]string {
	canonicalOnce.Do(func() {
		cols := models.TransactionColumns()
		canonicalIndex = make(map[string]string, len(cols))
		for _, c := range cols {
			canonicalIndex[canonicalize(c)] = c
		}
	})
	return canonicalIndex
}

// NormalizeHeader resolves a spreadsheet header to a canonical column name. Exact
// aliases win, then the underscored spelling, then a case and punctuation blind match.
// An unresolved header comes back underscored so it can be reported as unknown.
func NormalizeHeader(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	if col, ok := headerAliases[trimmed]; ok {
		return col
	}

	underscored := separatorRun.ReplaceAllString(trimmed, "_")
	if models.IsTransactionColumn(underscored) {
		return underscored
	}

	if col, ok := canonicalColumns()[canonicalize(trimmed)]; ok {
		return col
	}
	return underscored
}

// IsCanonical reports whether a normalized header names a stored column.
func IsCanonical(name string) bool {
	return models.IsTransactionColumn(name)
}

package records

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/professorSergio12/Stock-Broker/store"
)

func newTestRouter(st store.RecordStore) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterRoutes(r.Group("/api/records"), newTestService(st))
	return r
}

func serve(r *gin.Engine, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHandlers_StatusCodes(t *testing.T) {
	st := (&scriptedStore{}).
		on("ROWID = ?", func(_ string, args []any) ([]store.Row, error) {
			if args[0].(int64) == 1 {
				return []store.Row{{"ROWID": int64(1)}}, nil
			}
			return nil, nil
		}).
		rows("total_count", store.Row{"total_count": int64(0)}).
		fail("total_net_amount")
	r := newTestRouter(st)

	cases := []struct {
		path     string
		expected int
	}{
		{"/api/records", http.StatusOK},
		{"/api/records?ws_client_id=abc", http.StatusBadRequest},
		{"/api/records?trandate_from=notadate", http.StatusBadRequest},
		{"/api/records/stats", http.StatusInternalServerError},
		{"/api/records/holdings", http.StatusBadRequest},
		{"/api/records/holdings?clientId=12", http.StatusOK},
		{"/api/records/holdings?clientId=12&endDate=2024-02-30", http.StatusBadRequest},
		{"/api/records/holdings/Acme/transactions?clientId=12", http.StatusOK},
		{"/api/records/holdings/Acme/transactions", http.StatusBadRequest},
		{"/api/records/row/1", http.StatusOK},
		{"/api/records/row/2", http.StatusNotFound},
		{"/api/records/row/x", http.StatusNotFound},
		{"/api/records/meta/exchanges", http.StatusOK},
		{"/api/records/meta/client-ids", http.StatusOK},
		{"/api/records/meta/stocks-by-client?clientId=9", http.StatusOK},
		{"/api/records/meta/stocks-by-client", http.StatusBadRequest},
	}
	for _, tc := range cases {
		if rec := serve(r, tc.path); rec.Code != tc.expected {
			t.Fatalf("%s: expected %d, got %d: %s", tc.path, tc.expected, rec.Code, rec.Body.String())
		}
	}
}

func TestListHandler_Body(t *testing.T) {
	st := (&scriptedStore{}).
		fail("total_count").
		rows("select * from", store.Row{"ROWID": int64(9), "Security_Name": "Acme"})
	rec := serve(newTestRouter(st), "/api/records?page=0&limit=abc")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body struct {
		Page  int              `json:"page"`
		Limit int              `json:"limit"`
		Total *int64           `json:"total"`
		Data  []map[string]any `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Page != 1 || body.Limit != DefaultLimit || body.Total != nil || len(body.Data) != 1 {
		t.Fatalf("unexpected body %s", rec.Body.String())
	}
	if body.Data[0]["Security_Name"] != "Acme" {
		t.Fatalf("records must be keyed by column name, got %v", body.Data[0])
	}
}

func TestMetaHandler_EmptyListIsArray(t *testing.T) {
	rec := serve(newTestRouter((&scriptedStore{}).fail("distinct")), "/api/records/meta/symbols")
	if rec.Code != http.StatusOK || rec.Body.String() != "[]" {
		t.Fatalf("expected 200 [], got %d %s", rec.Code, rec.Body.String())
	}
}

func TestNotFoundBody(t *testing.T) {
	rec := serve(newTestRouter(&scriptedStore{}), "/api/records/row/77")
	if rec.Body.String() != `{"message":"Not found"}` {
		t.Fatalf("unexpected body %s", rec.Body.String())
	}
}

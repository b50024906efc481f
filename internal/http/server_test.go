package http

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	applog "fintrack/internal/log"
	"fintrack/internal/services"
	"fintrack/internal/store/memory"
)

func newTestServer(t *testing.T) (*Server, *memory.Store) {
	t.Helper()
	st := memory.New()
	logger := applog.New(applog.DefaultConfig())
	s := NewServer("127.0.0.1:0",
		services.NewTransactionService(st, nil),
		services.NewCategoryService(st),
		services.NewBudgetService(st),
		services.NewDashboardService(st),
		logger,
	)
	t.Cleanup(func() { s.rateLimiter.stop() })
	return s, st
}

func do(t *testing.T, s *Server, method, path, body string, user string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if user != "" {
		req.Header.Set("X-User-ID", user)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.Handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

func createCategory(t *testing.T, s *Server, user, name, typ string) int64 {
	t.Helper()
	body := fmt.Sprintf(`{"name":%q,"type":%q}`, name, typ)
	rec := do(t, s, http.MethodPost, "/api/v1/categories", body, user)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create category: %d %s", rec.Code, rec.Body.String())
	}
	var got struct {
		ID int64 `json:"id"`
	}
	decode(t, rec, &got)
	return got.ID
}

func TestRequiresUserHeader(t *testing.T) {
	s, _ := newTestServer(t)

	rec := do(t, s, http.MethodGet, "/api/v1/dashboard", "", "")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("no header: %d, want 401", rec.Code)
	}

	rec = do(t, s, http.MethodGet, "/api/v1/dashboard", "", "abc")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("malformed header: %d, want 401", rec.Code)
	}
}

func TestHealthEndpointsSkipAuth(t *testing.T) {
	s, _ := newTestServer(t)

	for _, path := range []string{"/healthz", "/readyz"} {
		rec := do(t, s, http.MethodGet, path, "", "")
		if rec.Code != http.StatusOK {
			t.Errorf("%s: %d, want 200", path, rec.Code)
		}
	}
}

func TestTransactionLifecycle(t *testing.T) {
	s, _ := newTestServer(t)
	catID := createCategory(t, s, "1", "Groceries", "EXPENSE")

	body := fmt.Sprintf(`{"categoryId":%d,"amount":"23.50","type":"expense","date":"2025-03-10","note":"weekly shop"}`, catID)
	rec := do(t, s, http.MethodPost, "/api/v1/transactions", body, "1")
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", rec.Code, rec.Body.String())
	}
	var created struct {
		ID     int64   `json:"id"`
		Amount float64 `json:"amount"`
	}
	decode(t, rec, &created)
	if created.Amount != 23.50 {
		t.Errorf("amount = %v, want 23.50 as a bare number", created.Amount)
	}

	rec = do(t, s, http.MethodGet, fmt.Sprintf("/api/v1/transactions/%d", created.ID), "", "1")
	if rec.Code != http.StatusOK {
		t.Fatalf("get: %d", rec.Code)
	}

	// Another user cannot see it.
	rec = do(t, s, http.MethodGet, fmt.Sprintf("/api/v1/transactions/%d", created.ID), "", "2")
	if rec.Code != http.StatusNotFound {
		t.Errorf("cross-user get: %d, want 404", rec.Code)
	}

	update := fmt.Sprintf(`{"categoryId":%d,"amount":30,"type":"EXPENSE","date":"2025-03-11","note":""}`, catID)
	rec = do(t, s, http.MethodPut, fmt.Sprintf("/api/v1/transactions/%d", created.ID), update, "1")
	if rec.Code != http.StatusOK {
		t.Fatalf("update: %d %s", rec.Code, rec.Body.String())
	}

	rec = do(t, s, http.MethodDelete, fmt.Sprintf("/api/v1/transactions/%d", created.ID), "", "1")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete: %d", rec.Code)
	}
	rec = do(t, s, http.MethodGet, fmt.Sprintf("/api/v1/transactions/%d", created.ID), "", "1")
	if rec.Code != http.StatusNotFound {
		t.Errorf("get after delete: %d, want 404", rec.Code)
	}
}

func TestTransactionTypeMismatchIs422(t *testing.T) {
	s, _ := newTestServer(t)
	catID := createCategory(t, s, "1", "Salary", "INCOME")

	body := fmt.Sprintf(`{"categoryId":%d,"amount":10,"type":"EXPENSE","date":"2025-03-10"}`, catID)
	rec := do(t, s, http.MethodPost, "/api/v1/transactions", body, "1")
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("type mismatch: %d %s, want 422", rec.Code, rec.Body.String())
	}
}

func TestTransactionInvalidAmountIs422(t *testing.T) {
	s, _ := newTestServer(t)
	catID := createCategory(t, s, "1", "Groceries", "EXPENSE")

	for _, amount := range []string{`0`, `"-5.00"`, `"abc"`} {
		body := fmt.Sprintf(`{"categoryId":%d,"amount":%s,"type":"EXPENSE","date":"2025-03-10"}`, catID, amount)
		rec := do(t, s, http.MethodPost, "/api/v1/transactions", body, "1")
		if rec.Code != http.StatusUnprocessableEntity && rec.Code != http.StatusBadRequest {
			t.Errorf("amount %s: %d, want 4xx validation failure", amount, rec.Code)
		}
	}
}

func TestCategoryDeleteConflict(t *testing.T) {
	s, _ := newTestServer(t)
	catID := createCategory(t, s, "1", "Groceries", "EXPENSE")

	body := fmt.Sprintf(`{"categoryId":%d,"amount":10,"type":"EXPENSE","date":"2025-03-10"}`, catID)
	if rec := do(t, s, http.MethodPost, "/api/v1/transactions", body, "1"); rec.Code != http.StatusCreated {
		t.Fatalf("create tx: %d", rec.Code)
	}

	rec := do(t, s, http.MethodDelete, fmt.Sprintf("/api/v1/categories/%d", catID), "", "1")
	if rec.Code != http.StatusConflict {
		t.Errorf("delete referenced category: %d, want 409", rec.Code)
	}
}

func TestCategoryTypeIgnoredOnUpdate(t *testing.T) {
	s, _ := newTestServer(t)
	catID := createCategory(t, s, "1", "Groceries", "EXPENSE")

	body := `{"name":"Food","type":"INCOME"}`
	rec := do(t, s, http.MethodPut, fmt.Sprintf("/api/v1/categories/%d", catID), body, "1")
	if rec.Code != http.StatusOK {
		t.Fatalf("update: %d %s", rec.Code, rec.Body.String())
	}
	var got categoryResponse
	decode(t, rec, &got)
	if got.Name != "Food" || string(got.Type) != "EXPENSE" {
		t.Errorf("got %+v, want renamed category with original type", got)
	}
}

func TestBudgetDuplicateIs409(t *testing.T) {
	s, _ := newTestServer(t)
	catID := createCategory(t, s, "1", "Groceries", "EXPENSE")

	body := fmt.Sprintf(`{"categoryId":%d,"amount":100,"month":"2025-03"}`, catID)
	rec := do(t, s, http.MethodPost, "/api/v1/budgets", body, "1")
	if rec.Code != http.StatusCreated {
		t.Fatalf("create budget: %d %s", rec.Code, rec.Body.String())
	}
	rec = do(t, s, http.MethodPost, "/api/v1/budgets", body, "1")
	if rec.Code != http.StatusConflict {
		t.Errorf("duplicate budget: %d, want 409", rec.Code)
	}
}

func TestBudgetMonthListing(t *testing.T) {
	s, _ := newTestServer(t)
	catID := createCategory(t, s, "1", "Groceries", "EXPENSE")

	for _, month := range []string{"2025-03", "2025-04"} {
		body := fmt.Sprintf(`{"categoryId":%d,"amount":100,"month":%q}`, catID, month)
		if rec := do(t, s, http.MethodPost, "/api/v1/budgets", body, "1"); rec.Code != http.StatusCreated {
			t.Fatalf("create budget %s: %d", month, rec.Code)
		}
	}

	// Spend 101.00 in March so the March budget reads over.
	tx := fmt.Sprintf(`{"categoryId":%d,"amount":101,"type":"EXPENSE","date":"2025-03-15"}`, catID)
	if rec := do(t, s, http.MethodPost, "/api/v1/transactions", tx, "1"); rec.Code != http.StatusCreated {
		t.Fatalf("create tx: %d", rec.Code)
	}

	rec := do(t, s, http.MethodGet, "/api/v1/budgets/month/2025-03", "", "1")
	if rec.Code != http.StatusOK {
		t.Fatalf("list month: %d", rec.Code)
	}
	var rows []struct {
		CategoryName    string  `json:"categoryName"`
		Month           string  `json:"month"`
		SpentAmount     float64 `json:"spentAmount"`
		RemainingAmount float64 `json:"remainingAmount"`
		Status          string  `json:"status"`
	}
	decode(t, rec, &rows)
	if len(rows) != 1 {
		t.Fatalf("rows = %d, want 1", len(rows))
	}
	if rows[0].Month != "2025-03" || rows[0].Status != "over" {
		t.Errorf("row = %+v, want over for 2025-03", rows[0])
	}
	if rows[0].RemainingAmount != -1.00 {
		t.Errorf("remaining = %v, want -1.00", rows[0].RemainingAmount)
	}

	rec = do(t, s, http.MethodGet, "/api/v1/budgets/month/2025-13", "", "1")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad month: %d, want 400", rec.Code)
	}
}

func TestDashboardFieldNames(t *testing.T) {
	s, _ := newTestServer(t)
	expense := createCategory(t, s, "1", "Groceries", "EXPENSE")
	income := createCategory(t, s, "1", "Salary", "INCOME")

	for _, body := range []string{
		fmt.Sprintf(`{"categoryId":%d,"amount":"3000.00","type":"INCOME","date":"2025-03-25"}`, income),
		fmt.Sprintf(`{"categoryId":%d,"amount":"235.50","type":"EXPENSE","date":"2025-03-10"}`, expense),
	} {
		if rec := do(t, s, http.MethodPost, "/api/v1/transactions", body, "1"); rec.Code != http.StatusCreated {
			t.Fatalf("create tx: %d %s", rec.Code, rec.Body.String())
		}
	}

	rec := do(t, s, http.MethodGet, "/api/v1/dashboard", "", "1")
	if rec.Code != http.StatusOK {
		t.Fatalf("dashboard: %d", rec.Code)
	}

	var got map[string]json.RawMessage
	decode(t, rec, &got)
	for _, field := range []string{"totalIncome", "totalExpense", "netBalance", "categoryExpenses", "monthlyData", "transactionCount"} {
		if _, ok := got[field]; !ok {
			t.Errorf("missing field %q in %s", field, rec.Body.String())
		}
	}

	// Money renders as bare two-decimal numbers.
	if string(got["totalIncome"]) != "3000.00" {
		t.Errorf("totalIncome = %s, want 3000.00", got["totalIncome"])
	}
	if string(got["netBalance"]) != "2764.50" {
		t.Errorf("netBalance = %s, want 2764.50", got["netBalance"])
	}

	var byCat map[string]float64
	if err := json.Unmarshal(got["categoryExpenses"], &byCat); err != nil {
		t.Fatalf("categoryExpenses: %v", err)
	}
	if byCat["Groceries"] != 235.50 {
		t.Errorf("Groceries = %v, want 235.50", byCat["Groceries"])
	}
	if _, ok := byCat["Salary"]; ok {
		t.Error("income category leaked into categoryExpenses")
	}

	var monthly map[string]float64
	if err := json.Unmarshal(got["monthlyData"], &monthly); err != nil {
		t.Fatalf("monthlyData: %v", err)
	}
	if monthly["2025-03"] != 3000.00 {
		t.Errorf("monthlyData = %v", monthly)
	}
}

func TestDashboardEmpty(t *testing.T) {
	s, _ := newTestServer(t)

	rec := do(t, s, http.MethodGet, "/api/v1/dashboard", "", "7")
	if rec.Code != http.StatusOK {
		t.Fatalf("dashboard: %d", rec.Code)
	}
	var got struct {
		TotalIncome      float64            `json:"totalIncome"`
		CategoryExpenses map[string]float64 `json:"categoryExpenses"`
		TransactionCount int                `json:"transactionCount"`
	}
	decode(t, rec, &got)
	if got.TotalIncome != 0 || got.TransactionCount != 0 {
		t.Errorf("got %+v, want zeros", got)
	}
	if got.CategoryExpenses == nil {
		t.Error("categoryExpenses should be an empty object, not null")
	}
}

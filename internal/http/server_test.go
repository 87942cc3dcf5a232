package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"fintrack/internal/auth"
	"fintrack/internal/core"
	"fintrack/internal/ledger/memory"
	"fintrack/internal/services"

	applog "fintrack/internal/log"
)

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return errors.New("store down") }

func newTestServer(t *testing.T, store *memory.Store, opts Options) *Server {
	t.Helper()
	issuer, err := auth.NewIssuer("test-secret-test-secret-test-secret", 30*time.Minute)
	require.NoError(t, err)
	if opts.Logger == nil {
		opts.Logger = applog.New(applog.Config{Output: io.Discard})
	}
	if opts.CORSOrigins == nil {
		opts.CORSOrigins = []string{"http://localhost:8080"}
	}
	if opts.LoginRatePerMinute == 0 {
		opts.LoginRatePerMinute = 1000
	}
	srv := NewServer(Services{
		Users:        services.NewUserService(store, issuer),
		Accounts:     services.NewAccountService(store),
		Categories:   services.NewCategoryService(store),
		Transactions: services.NewTransactionService(store, nil),
		Dashboard:    services.NewDashboardService(store, nil),
		Reports:      services.NewReportService(store),
	}, opts)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return srv
}

type APISuite struct {
	suite.Suite
	store *memory.Store
	srv   *Server
}

func TestAPI(t *testing.T) {
	suite.Run(t, new(APISuite))
}

func (s *APISuite) SetupTest() {
	s.store = memory.New()
	s.srv = newTestServer(s.T(), s.store, Options{Ready: s.store})
}

func (s *APISuite) do(method, path, token string, body any) *httptest.ResponseRecorder {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		s.Require().NoError(err)
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.srv.Handler.ServeHTTP(rec, req)
	return rec
}

func (s *APISuite) decode(rec *httptest.ResponseRecorder, v any) {
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func (s *APISuite) errorKind(rec *httptest.ResponseRecorder) string {
	var body errorBody
	s.decode(rec, &body)
	return body.Error.Kind
}

// signup registers a user and returns its id and access token.
func (s *APISuite) signup(email string) (core.ID, string) {
	rec := s.do(http.MethodPost, "/users/register", "", map[string]string{
		"email": email, "name": "User " + email, "password": "secret123",
	})
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())
	var u core.User
	s.decode(rec, &u)

	form := url.Values{"username": {email}, "password": {"secret123"}}
	req := httptest.NewRequest(http.MethodPost, "/token", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	tok := httptest.NewRecorder()
	s.srv.Handler.ServeHTTP(tok, req)
	s.Require().Equal(http.StatusOK, tok.Code, tok.Body.String())
	var tr tokenResponse
	s.decode(tok, &tr)
	s.Equal("bearer", tr.TokenType)
	return u.ID, tr.AccessToken
}

func (s *APISuite) createAccount(token, name string, balance string) core.Account {
	rec := s.do(http.MethodPost, "/accounts", token, map[string]string{
		"name": name, "type": "checking", "balance": balance,
	})
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())
	var a core.Account
	s.decode(rec, &a)
	return a
}

func (s *APISuite) createCategory(token, name string) core.Category {
	rec := s.do(http.MethodPost, "/categories", token, map[string]string{"name": name, "icon": "tag"})
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())
	var c core.Category
	s.decode(rec, &c)
	return c
}

func (s *APISuite) createTx(token string, acc core.ID, cat core.ID, typ, value, date, status string) *httptest.ResponseRecorder {
	return s.do(http.MethodPost, "/transactions", token, map[string]any{
		"account_id":       acc,
		"category_id":      cat,
		"description":      "tx " + value,
		"type":             typ,
		"value":            value,
		"transaction_date": date,
		"status":           status,
	})
}

func (s *APISuite) TestIndexAndHealth() {
	rec := s.do(http.MethodGet, "/", "", nil)
	s.Equal(http.StatusOK, rec.Code)
	s.Contains(rec.Body.String(), "Welcome")
	s.Equal("nosniff", rec.Header().Get("X-Content-Type-Options"))
	s.NotEmpty(rec.Header().Get("X-Request-ID"))

	rec = s.do(http.MethodGet, "/healthz", "", nil)
	s.Equal(http.StatusOK, rec.Code)

	rec = s.do(http.MethodGet, "/readyz", "", nil)
	s.Equal(http.StatusOK, rec.Code)
	s.Contains(rec.Body.String(), `"ready"`)
}

func (s *APISuite) TestReadyReportsStoreFailure() {
	srv := newTestServer(s.T(), s.store, Options{Ready: failingPinger{}})
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	s.Equal(http.StatusServiceUnavailable, rec.Code)
	s.Contains(rec.Body.String(), "store down")
}

func (s *APISuite) TestUnknownRouteIsJSON() {
	rec := s.do(http.MethodGet, "/nope", "", nil)
	s.Equal(http.StatusNotFound, rec.Code)
	s.Equal(kindNotFound, s.errorKind(rec))
}

func (s *APISuite) TestRegisterCreatesDefaultAccount() {
	_, token := s.signup("ana@example.com")

	rec := s.do(http.MethodGet, "/accounts", token, nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	var accounts []core.Account
	s.decode(rec, &accounts)
	s.Require().Len(accounts, 1)
	s.Equal(core.DefaultAccountName, accounts[0].Name)

	rec = s.do(http.MethodGet, "/users/me", token, nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	s.NotContains(rec.Body.String(), "password")
}

func (s *APISuite) TestRegisterErrors() {
	s.signup("ana@example.com")

	rec := s.do(http.MethodPost, "/users/register", "", map[string]string{
		"email": "ANA@example.com", "name": "Ana", "password": "secret123",
	})
	s.Equal(http.StatusConflict, rec.Code)
	s.Equal(kindConflict, s.errorKind(rec))

	rec = s.do(http.MethodPost, "/users/register", "", map[string]string{
		"email": "bob@example.com", "name": "Bob", "password": "123",
	})
	s.Equal(http.StatusBadRequest, rec.Code)
	s.Equal(kindValidationFailed, s.errorKind(rec))

	req := httptest.NewRequest(http.MethodPost, "/users/register", strings.NewReader("{bad"))
	bad := httptest.NewRecorder()
	s.srv.Handler.ServeHTTP(bad, req)
	s.Equal(http.StatusBadRequest, bad.Code)
}

func (s *APISuite) TestTokenRejectsBadCredentials() {
	s.signup("ana@example.com")
	rec := s.do(http.MethodPost, "/token", "", map[string]string{"username": "ana@example.com", "password": "wrong-one"})
	s.Equal(http.StatusUnauthorized, rec.Code)
	s.Equal("Bearer", rec.Header().Get("WWW-Authenticate"))
	s.Equal(kindUnauthenticated, s.errorKind(rec))
}

func (s *APISuite) TestProtectedRoutesRequireToken() {
	for _, token := range []string{"", "garbage"} {
		rec := s.do(http.MethodGet, "/accounts", token, nil)
		s.Equal(http.StatusUnauthorized, rec.Code, token)
	}
}

func (s *APISuite) TestUpdateProfile() {
	_, token := s.signup("ana@example.com")
	rec := s.do(http.MethodPut, "/users/me", token, map[string]string{"name": "Ana Maria"})
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	var u core.User
	s.decode(rec, &u)
	s.Equal("Ana Maria", u.Name)

	rec = s.do(http.MethodPut, "/users/me", token, map[string]string{})
	s.Equal(http.StatusConflict, rec.Code)
	s.Equal(kindPreconditionFailed, s.errorKind(rec))
}

func (s *APISuite) TestSharingGrantsAndRevokesAccess() {
	_, owner := s.signup("owner@example.com")
	bobID, bob := s.signup("bob@example.com")
	acc := s.createAccount(owner, "Casa", "1000.00")

	rec := s.do(http.MethodGet, "/accounts/"+string(acc.ID), bob, nil)
	s.Equal(http.StatusForbidden, rec.Code)

	rec = s.do(http.MethodPost, "/accounts/"+string(acc.ID)+"/share", owner, map[string]string{
		"user_email": "BOB@example.com", "permission_level": "read",
	})
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	var shared shareResponse
	s.decode(rec, &shared)
	s.Equal(core.PermissionRead, shared.Permissions[bobID])

	rec = s.do(http.MethodGet, "/accounts/shared", bob, nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	var list []core.Account
	s.decode(rec, &list)
	s.Require().Len(list, 1)
	s.Equal(acc.ID, list[0].ID)

	// read access does not allow recording transactions
	cat := s.createCategory(bob, "Mercado")
	rec = s.createTx(bob, acc.ID, cat.ID, "expense", "10.00", "2024-03-01", "paid")
	s.Equal(http.StatusForbidden, rec.Code)

	// only the owner manages the account
	rec = s.do(http.MethodPut, "/accounts/"+string(acc.ID), bob, map[string]string{"name": "Mine"})
	s.Equal(http.StatusForbidden, rec.Code)

	rec = s.do(http.MethodDelete, "/accounts/"+string(acc.ID)+"/share/"+string(bobID), owner, nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	rec = s.do(http.MethodGet, "/accounts/"+string(acc.ID), bob, nil)
	s.Equal(http.StatusForbidden, rec.Code)
}

func (s *APISuite) TestShareValidation() {
	_, owner := s.signup("owner@example.com")
	acc := s.createAccount(owner, "Casa", "0")

	tests := []struct {
		name  string
		email string
		level string
		code  int
	}{
		{"unknown user", "ghost@example.com", "read", http.StatusNotFound},
		{"self", "owner@example.com", "edit", http.StatusBadRequest},
		{"bad level", "owner@example.com", "admin", http.StatusBadRequest},
	}
	for _, tt := range tests {
		rec := s.do(http.MethodPost, "/accounts/"+string(acc.ID)+"/share", owner, map[string]string{
			"user_email": tt.email, "permission_level": tt.level,
		})
		s.Equal(tt.code, rec.Code, tt.name)
	}
}

func (s *APISuite) TestTransactionLifecycleAndSummary() {
	_, token := s.signup("ana@example.com")
	acc := s.createAccount(token, "Banco", "1000.00")
	food := s.createCategory(token, "Alimentação")
	salary := s.createCategory(token, "Salário")

	rec := s.createTx(token, acc.ID, salary.ID, "income", "5000.00", "2024-03-05", "received")
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())
	rec = s.createTx(token, acc.ID, food.ID, "expense", "120.50", "2024-03-10", "paid")
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())
	var tx core.Transaction
	s.decode(rec, &tx)

	rec = s.do(http.MethodGet, "/accounts/"+string(acc.ID)+"/summary", token, nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	var sum core.AccountSummary
	s.decode(rec, &sum)
	s.Equal(int64(587950), sum.CurrentBalance.Cents)

	rec = s.do(http.MethodGet, "/transactions?type=expense&start_date=2024-03-01&end_date=2024-03-10", token, nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	var txs []core.Transaction
	s.decode(rec, &txs)
	s.Require().Len(txs, 1)
	s.Equal(tx.ID, txs[0].ID)

	rec = s.do(http.MethodPut, "/transactions/"+string(tx.ID), token, map[string]string{"value": "20.00"})
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(http.MethodGet, "/dashboard/summary?year=2024&month=3", token, nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	var month core.MonthSummary
	s.decode(rec, &month)
	s.Equal(int64(500000), month.TotalIncome.Cents)
	s.Equal(int64(2000), month.TotalExpenses.Cents)
	s.Require().NotNil(month.TopExpenseCategory)
	s.Equal(food.ID, month.TopExpenseCategory.CategoryID)

	rec = s.do(http.MethodGet, "/reports/expenses-by-category?year=2024&month=3", token, nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	var totals []core.CategoryTotal
	s.decode(rec, &totals)
	s.Require().Len(totals, 1)
	s.Equal("Alimentação", totals[0].Category)

	// end_date is inclusive
	rec = s.do(http.MethodGet, "/reports/income-vs-expenses?start_date=2024-03-01&end_date=2024-03-10", token, nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	var points []core.MonthlyTotals
	s.decode(rec, &points)
	s.Require().Len(points, 1)
	s.Equal(int64(2000), points[0].Expenses.Cents)

	rec = s.do(http.MethodDelete, "/categories/"+string(food.ID), token, nil)
	s.Equal(http.StatusConflict, rec.Code)

	rec = s.do(http.MethodDelete, "/transactions/"+string(tx.ID), token, nil)
	s.Equal(http.StatusNoContent, rec.Code)
	rec = s.do(http.MethodGet, "/transactions/"+string(tx.ID), token, nil)
	s.Equal(http.StatusNotFound, rec.Code)
	rec = s.do(http.MethodDelete, "/categories/"+string(food.ID), token, nil)
	s.Equal(http.StatusNoContent, rec.Code)
}

func (s *APISuite) TestPayInstallment() {
	_, token := s.signup("ana@example.com")
	acc := s.createAccount(token, "Cartão", "0")
	cat := s.createCategory(token, "Eletrônicos")

	rec := s.do(http.MethodPost, "/transactions", token, map[string]any{
		"account_id":          acc.ID,
		"category_id":         cat.ID,
		"description":         "Notebook",
		"type":                "expense",
		"value":               3000,
		"transaction_date":    "2024-03-10",
		"status":              "pending",
		"installment_details": map[string]int{"current_installment": 0, "total_installments": 2},
	})
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())
	var tx core.Transaction
	s.decode(rec, &tx)

	path := "/transactions/" + string(tx.ID) + "/pay-installment"
	for i := 1; i <= 2; i++ {
		rec = s.do(http.MethodPost, path, token, nil)
		s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
		s.decode(rec, &tx)
		s.Equal(i, tx.Installment.Current)
	}
	s.Equal(core.Paid, tx.Status)

	rec = s.do(http.MethodPost, path, token, nil)
	s.Equal(http.StatusConflict, rec.Code)
	s.Equal(kindPreconditionFailed, s.errorKind(rec))
}

func (s *APISuite) TestDeleteYear() {
	_, token := s.signup("ana@example.com")
	acc := s.createAccount(token, "Banco", "0")
	cat := s.createCategory(token, "Casa")
	for _, d := range []string{"2023-01-01", "2023-12-31", "2024-01-01"} {
		rec := s.createTx(token, acc.ID, cat.ID, "expense", "1.00", d, "paid")
		s.Require().Equal(http.StatusCreated, rec.Code)
	}

	rec := s.do(http.MethodDelete, "/dashboard/transactions/2023", token, nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	var out deleteYearResponse
	s.decode(rec, &out)
	s.Equal(int64(2), out.DeletedCount)

	rec = s.do(http.MethodGet, "/transactions", token, nil)
	var txs []core.Transaction
	s.decode(rec, &txs)
	s.Len(txs, 1)
}

func (s *APISuite) TestQueryValidation() {
	_, token := s.signup("ana@example.com")
	tests := []string{
		"/dashboard/summary?year=2024",
		"/dashboard/summary?year=2024&month=13",
		"/reports/expenses-by-category?month=1",
		"/reports/income-vs-expenses?start_date=2024-02-01",
		"/reports/income-vs-expenses?start_date=2024-02-01&end_date=2024-01-01",
		"/transactions?skip=abc",
		"/transactions?account_id=not-a-uuid",
		"/transactions?start_date=01/02/2024",
		"/transactions?type=transfer",
		"/accounts/not-a-uuid",
	}
	for _, path := range tests {
		rec := s.do(http.MethodGet, path, token, nil)
		s.Equal(http.StatusBadRequest, rec.Code, path)
	}
}

func (s *APISuite) TestCORSPreflight() {
	req := httptest.NewRequest(http.MethodOptions, "/transactions", nil)
	req.Header.Set("Origin", "http://localhost:8080")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	s.srv.Handler.ServeHTTP(rec, req)
	s.Equal(http.StatusNoContent, rec.Code)
	s.Equal("http://localhost:8080", rec.Header().Get("Access-Control-Allow-Origin"))
	s.Equal("true", rec.Header().Get("Access-Control-Allow-Credentials"))

	req.Header.Set("Origin", "http://evil.example")
	rec = httptest.NewRecorder()
	s.srv.Handler.ServeHTTP(rec, req)
	s.Equal(http.StatusForbidden, rec.Code)
}

func TestLoginRateLimit(t *testing.T) {
	srv := newTestServer(t, memory.New(), Options{LoginRatePerMinute: 2})
	var codes []int
	for i := 0; i < 3; i++ {
		body := fmt.Sprintf(`{"username":"x%d@example.com","password":"whatever"}`, i)
		req := httptest.NewRequest(http.MethodPost, "/token", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		srv.Handler.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{http.StatusUnauthorized, http.StatusUnauthorized, http.StatusTooManyRequests}, codes)
}

func TestRecovererReturnsJSON(t *testing.T) {
	srv := newTestServer(t, memory.New(), Options{})
	h := srv.recoverer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom") }))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), kindInternal)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		err    error
		status int
		kind   string
	}{
		{core.ErrAccountNotFound, http.StatusNotFound, kindNotFound},
		{core.ErrNotOwner, http.StatusForbidden, kindPermissionDenied},
		{core.ErrAlreadyComplete, http.StatusConflict, kindPreconditionFailed},
		{core.ErrInvalidAmount, http.StatusBadRequest, kindValidationFailed},
		{core.ErrEmailTaken, http.StatusConflict, kindConflict},
		{core.ErrInvalidToken, http.StatusUnauthorized, kindUnauthenticated},
		{fmt.Errorf("wrapped: %w", core.ErrCategoryInUse), http.StatusConflict, kindPreconditionFailed},
		{errors.New("disk full"), http.StatusInternalServerError, kindInternal},
	}
	for _, tt := range tests {
		status, kind := classify(tt.err)
		assert.Equal(t, tt.status, status, tt.err.Error())
		assert.Equal(t, tt.kind, kind, tt.err.Error())
	}
}

func TestSanitizeInput(t *testing.T) {
	assert.Equal(t, "a\tb", sanitizeInput("  a\tb\x00\x07 "))
}

package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/techstore/pos/internal/cashier"
	"github.com/techstore/pos/internal/catalog"
	"github.com/techstore/pos/internal/checkout"
	"github.com/techstore/pos/internal/ledger"
	"github.com/techstore/pos/internal/session"
	"github.com/techstore/pos/internal/stats"
	"github.com/techstore/pos/internal/store"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	st, err := store.Open(&store.Config{
		Driver: store.DriverSQLite,
		DSN:    filepath.Join(t.TempDir(), "pos.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	require.NoError(t, st.RunMigrations("../../migrations/sqlite"))

	cat := catalog.NewRepository(st)
	led := ledger.New(st)
	users := cashier.NewRepository(st)
	sessions := session.NewRegistry()
	coord := checkout.NewCoordinator(st, cat, led)
	statsSvc := stats.NewService(st, nil)

	h := NewHandler(cat, led, users, sessions, coord, statsSvc)
	srv := httptest.NewServer(h.Routes())
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, method, url string, body any) (*http.Response, []byte) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out bytes.Buffer
	_, err = out.ReadFrom(resp.Body)
	require.NoError(t, err)
	return resp, out.Bytes()
}

func createProduct(t *testing.T, srv *httptest.Server, barcode, name, price string, stock int64) ProductDTO {
	t.Helper()
	resp, body := doJSON(t, http.MethodPost, srv.URL+"/products", ProductRequestDTO{
		Barcode:  barcode,
		Name:     name,
		Category: "Peripherals",
		Price:    price,
		Stock:    stock,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	var p ProductDTO
	require.NoError(t, json.Unmarshal(body, &p))
	return p
}

func createSession(t *testing.T, srv *httptest.Server) string {
	t.Helper()
	resp, body := doJSON(t, http.MethodPost, srv.URL+"/sessions", nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var out map[string]string
	require.NoError(t, json.Unmarshal(body, &out))
	require.NotEmpty(t, out["session_id"])
	return out["session_id"]
}

func TestProductCRUD(t *testing.T) {
	srv := newTestServer(t)

	created := createProduct(t, srv, "4800001112223", "USB Mouse", "100.00", 5)
	assert.Equal(t, "100.00", created.Price)

	resp, body := doJSON(t, http.MethodGet, fmt.Sprintf("%s/products/%d", srv.URL, created.ID), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var got ProductDTO
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, "USB Mouse", got.Name)

	resp, body = doJSON(t, http.MethodPut, fmt.Sprintf("%s/products/%d", srv.URL, created.ID), ProductRequestDTO{
		Barcode: "4800001112223", Name: "USB Mouse v2", Category: "Peripherals", Price: "110.00", Stock: 7,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	resp, _ = doJSON(t, http.MethodDelete, fmt.Sprintf("%s/products/%d", srv.URL, created.ID), nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodGet, fmt.Sprintf("%s/products/%d", srv.URL, created.ID), nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCreateProduct_Validation(t *testing.T) {
	srv := newTestServer(t)

	resp, _ := doJSON(t, http.MethodPost, srv.URL+"/products", ProductRequestDTO{
		Barcode: "1", Name: "Freebie", Price: "0.00",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/products", ProductRequestDTO{
		Name: "No Barcode", Price: "10.00",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCreateProduct_DuplicateBarcode(t *testing.T) {
	srv := newTestServer(t)

	createProduct(t, srv, "4800001112223", "USB Mouse", "100.00", 5)
	resp, body := doJSON(t, http.MethodPost, srv.URL+"/products", ProductRequestDTO{
		Barcode: "4800001112223", Name: "Other", Price: "10.00", Stock: 1,
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	var e ErrorResponse
	require.NoError(t, json.Unmarshal(body, &e))
	assert.Equal(t, "duplicate_barcode", e.Code)
}

func TestListProducts_FilterAndCategories(t *testing.T) {
	srv := newTestServer(t)

	createProduct(t, srv, "4800001112223", "USB Mouse", "100.00", 5)
	createProduct(t, srv, "4800001112230", "Keyboard", "250.00", 3)

	resp, body := doJSON(t, http.MethodGet, srv.URL+"/products?query=Mouse", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var products []ProductDTO
	require.NoError(t, json.Unmarshal(body, &products))
	require.Len(t, products, 1)
	assert.Equal(t, "USB Mouse", products[0].Name)

	resp, body = doJSON(t, http.MethodGet, srv.URL+"/products/categories", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var categories []string
	require.NoError(t, json.Unmarshal(body, &categories))
	assert.Equal(t, []string{"Peripherals"}, categories)
}

func TestCartFlow(t *testing.T) {
	srv := newTestServer(t)

	mouse := createProduct(t, srv, "4800001112223", "USB Mouse", "100.00", 5)
	sid := createSession(t, srv)
	cartURL := srv.URL + "/sessions/" + sid + "/cart"

	resp, body := doJSON(t, http.MethodPost, cartURL+"/items", AddItemRequestDTO{ProductID: mouse.ID, Quantity: 2})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var c CartDTO
	require.NoError(t, json.Unmarshal(body, &c))
	require.Len(t, c.Lines, 1)
	assert.Equal(t, int64(2), c.Lines[0].Quantity)
	assert.Equal(t, "200.00", c.Subtotal)
	assert.Equal(t, "24.00", c.Tax)
	assert.Equal(t, "224.00", c.Total)

	resp, body = doJSON(t, http.MethodPut, fmt.Sprintf("%s/items/%d", cartURL, mouse.ID), SetQuantityRequestDTO{Quantity: 1})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(body, &c))
	assert.Equal(t, "112.00", c.Total)

	resp, body = doJSON(t, http.MethodDelete, fmt.Sprintf("%s/items/%d", cartURL, mouse.ID), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(body, &c))
	assert.Empty(t, c.Lines)
	assert.Equal(t, "0.00", c.Total)
}

func TestCartFlow_UnknownSessionAndProduct(t *testing.T) {
	srv := newTestServer(t)

	resp, _ := doJSON(t, http.MethodGet, srv.URL+"/sessions/nope/cart", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	sid := createSession(t, srv)
	resp, body := doJSON(t, http.MethodPost, srv.URL+"/sessions/"+sid+"/cart/items", AddItemRequestDTO{ProductID: 999, Quantity: 1})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	var e ErrorResponse
	require.NoError(t, json.Unmarshal(body, &e))
	assert.Equal(t, "not_found", e.Code)
}

func TestCheckoutFlow(t *testing.T) {
	srv := newTestServer(t)

	mouse := createProduct(t, srv, "4800001112223", "USB Mouse", "100.00", 5)
	pad := createProduct(t, srv, "4800001112230", "Mouse Pad", "50.00", 3)
	sid := createSession(t, srv)

	for _, p := range []struct {
		id  int64
		qty int64
	}{{mouse.ID, 2}, {pad.ID, 1}} {
		resp, _ := doJSON(t, http.MethodPost, srv.URL+"/sessions/"+sid+"/cart/items",
			AddItemRequestDTO{ProductID: p.id, Quantity: p.qty})
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}

	// cashier id 1 is the seeded admin
	resp, body := doJSON(t, http.MethodPost, srv.URL+"/sessions/"+sid+"/checkout",
		CheckoutRequestDTO{CashierID: 1, Payment: "300.00"})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	var rec ReceiptResponseDTO
	require.NoError(t, json.Unmarshal(body, &rec))
	assert.NotZero(t, rec.TransactionID)
	assert.Contains(t, rec.Rendered, "TECHSTORE POS RECEIPT")
	assert.Contains(t, rec.Rendered, "20.00") // change

	// cart is empty afterwards
	resp, body = doJSON(t, http.MethodGet, srv.URL+"/sessions/"+sid+"/cart", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var c CartDTO
	require.NoError(t, json.Unmarshal(body, &c))
	assert.Empty(t, c.Lines)

	// stock was reserved
	resp, body = doJSON(t, http.MethodGet, fmt.Sprintf("%s/products/%d", srv.URL, mouse.ID), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var p ProductDTO
	require.NoError(t, json.Unmarshal(body, &p))
	assert.Equal(t, int64(3), p.Stock)

	// the sale shows up in history
	resp, body = doJSON(t, http.MethodGet, fmt.Sprintf("%s/transactions/%d", srv.URL, rec.TransactionID), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var tx TransactionDTO
	require.NoError(t, json.Unmarshal(body, &tx))
	assert.Equal(t, "280.00", tx.Total)
	assert.Len(t, tx.Items, 2)

	// stored receipt, JSON and rendered forms
	resp, body = doJSON(t, http.MethodGet, fmt.Sprintf("%s/transactions/%d/receipt", srv.URL, rec.TransactionID), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var stored ReceiptResponseDTO
	require.NoError(t, json.Unmarshal(body, &stored))
	assert.Equal(t, rec.TransactionID, stored.TransactionID)

	resp, body = doJSON(t, http.MethodGet, fmt.Sprintf("%s/transactions/%d/receipt?format=text", srv.URL, rec.TransactionID), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.HasPrefix(resp.Header.Get("Content-Type"), "text/plain"))
	assert.Contains(t, string(body), "TECHSTORE POS RECEIPT")
}

func TestCheckout_ErrorMapping(t *testing.T) {
	srv := newTestServer(t)

	mouse := createProduct(t, srv, "4800001112223", "USB Mouse", "100.00", 1)
	sid := createSession(t, srv)
	checkoutURL := srv.URL + "/sessions/" + sid + "/checkout"

	t.Run("empty cart", func(t *testing.T) {
		resp, body := doJSON(t, http.MethodPost, checkoutURL, CheckoutRequestDTO{CashierID: 1, Payment: "100.00"})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		var e ErrorResponse
		require.NoError(t, json.Unmarshal(body, &e))
		assert.Equal(t, "empty_cart", e.Code)
	})

	resp, _ := doJSON(t, http.MethodPost, srv.URL+"/sessions/"+sid+"/cart/items",
		AddItemRequestDTO{ProductID: mouse.ID, Quantity: 1})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	t.Run("invalid payment", func(t *testing.T) {
		resp, body := doJSON(t, http.MethodPost, checkoutURL, CheckoutRequestDTO{CashierID: 1, Payment: "abc"})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		var e ErrorResponse
		require.NoError(t, json.Unmarshal(body, &e))
		assert.Equal(t, "invalid_payment", e.Code)
	})

	t.Run("insufficient payment", func(t *testing.T) {
		resp, body := doJSON(t, http.MethodPost, checkoutURL, CheckoutRequestDTO{CashierID: 1, Payment: "50.00"})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		var e ErrorResponse
		require.NoError(t, json.Unmarshal(body, &e))
		assert.Equal(t, "insufficient_payment", e.Code)
	})

	t.Run("unknown cashier", func(t *testing.T) {
		resp, body := doJSON(t, http.MethodPost, checkoutURL, CheckoutRequestDTO{CashierID: 999, Payment: "200.00"})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		var e ErrorResponse
		require.NoError(t, json.Unmarshal(body, &e))
		assert.Equal(t, "unknown_cashier", e.Code)
	})

	t.Run("insufficient stock", func(t *testing.T) {
		resp, _ := doJSON(t, http.MethodPut,
			fmt.Sprintf("%s/sessions/%s/cart/items/%d", srv.URL, sid, mouse.ID),
			SetQuantityRequestDTO{Quantity: 2})
		require.Equal(t, http.StatusOK, resp.StatusCode)

		resp, body := doJSON(t, http.MethodPost, checkoutURL, CheckoutRequestDTO{CashierID: 1, Payment: "500.00"})
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
		var e ErrorResponse
		require.NoError(t, json.Unmarshal(body, &e))
		assert.Equal(t, "insufficient_stock", e.Code)

		// the cart survives for a retry
		resp, body = doJSON(t, http.MethodGet, srv.URL+"/sessions/"+sid+"/cart", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var c CartDTO
		require.NoError(t, json.Unmarshal(body, &c))
		assert.Len(t, c.Lines, 1)
	})
}

func TestLogin(t *testing.T) {
	srv := newTestServer(t)

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/login", LoginRequestDTO{Username: "admin", Password: "admin123"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var c CashierDTO
	require.NoError(t, json.Unmarshal(body, &c))
	assert.Equal(t, "admin", c.Username)
	assert.Equal(t, "admin", c.Role)

	resp, body = doJSON(t, http.MethodPost, srv.URL+"/login", LoginRequestDTO{Username: "admin", Password: "wrong"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	var e ErrorResponse
	require.NoError(t, json.Unmarshal(body, &e))
	assert.Equal(t, "invalid_credentials", e.Code)
}

func TestCashierManagement(t *testing.T) {
	srv := newTestServer(t)

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/cashiers", CreateCashierRequestDTO{
		Username: "maria", Password: "s3cret", FullName: "Maria Santos",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	var c CashierDTO
	require.NoError(t, json.Unmarshal(body, &c))
	assert.Equal(t, "cashier", c.Role) // default role

	resp, body = doJSON(t, http.MethodGet, srv.URL+"/cashiers", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list []CashierDTO
	require.NoError(t, json.Unmarshal(body, &list))
	assert.Len(t, list, 2)

	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/cashiers", CreateCashierRequestDTO{
		Username: "maria", Password: "other",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestStatsEndpoints(t *testing.T) {
	srv := newTestServer(t)

	mouse := createProduct(t, srv, "4800001112223", "USB Mouse", "100.00", 5)
	sid := createSession(t, srv)

	resp, _ := doJSON(t, http.MethodPost, srv.URL+"/sessions/"+sid+"/cart/items",
		AddItemRequestDTO{ProductID: mouse.ID, Quantity: 1})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/sessions/"+sid+"/checkout",
		CheckoutRequestDTO{CashierID: 1, Payment: "112.00"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, body := doJSON(t, http.MethodGet, srv.URL+"/stats/earnings", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var e EarningsDTO
	require.NoError(t, json.Unmarshal(body, &e))
	assert.Equal(t, "112.00", e.Daily)
	assert.Equal(t, "112.00", e.Total)

	resp, body = doJSON(t, http.MethodGet, srv.URL+"/stats/overview", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var o OverviewDTO
	require.NoError(t, json.Unmarshal(body, &o))
	assert.Equal(t, int64(1), o.ProductCount)
	assert.Equal(t, int64(1), o.TransactionCount)
	assert.Equal(t, "112.00", o.TodaySales)
}

func TestListTransactions_PeriodAndLimit(t *testing.T) {
	srv := newTestServer(t)

	mouse := createProduct(t, srv, "4800001112223", "USB Mouse", "100.00", 10)
	sid := createSession(t, srv)

	for i := 0; i < 3; i++ {
		resp, _ := doJSON(t, http.MethodPost, srv.URL+"/sessions/"+sid+"/cart/items",
			AddItemRequestDTO{ProductID: mouse.ID, Quantity: 1})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		resp, body := doJSON(t, http.MethodPost, srv.URL+"/sessions/"+sid+"/checkout",
			CheckoutRequestDTO{CashierID: 1, Payment: "112.00"})
		require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	}

	resp, body := doJSON(t, http.MethodGet, srv.URL+"/transactions?limit=2", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list []TransactionDTO
	require.NoError(t, json.Unmarshal(body, &list))
	assert.Len(t, list, 2)

	resp, body = doJSON(t, http.MethodGet, srv.URL+"/transactions?from=2000-01-01&to=2099-12-31", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	list = nil
	require.NoError(t, json.Unmarshal(body, &list))
	assert.Len(t, list, 3)

	resp, _ = doJSON(t, http.MethodGet, srv.URL+"/transactions?from=bad", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodGet, srv.URL+"/transactions?limit=0", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

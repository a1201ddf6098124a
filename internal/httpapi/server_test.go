package httpapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgard/baristabot/internal/assistant"
	"github.com/edgard/baristabot/internal/chat"
	"github.com/edgard/baristabot/internal/database"
	"github.com/edgard/baristabot/internal/httpapi"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type scriptedCompleter struct {
	text string
	err  error
}

func (s scriptedCompleter) Complete(context.Context, string) (string, error) {
	return s.text, s.err
}

type testAPI struct {
	router http.Handler
	store  database.Store
}

func newTestAPI(t *testing.T, completer assistant.Completer) *testAPI {
	t.Helper()
	ctx := context.Background()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	db, err := database.NewDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { database.CloseDB(db) })
	store := database.NewStore(db, log)

	beans, err := store.UpsertCategory(ctx, "Beans", "Whole bean coffee")
	require.NoError(t, err)
	require.NoError(t, store.UpsertProduct(ctx, &database.Product{ID: 7, CategoryID: &beans, Name: "Espresso Roast", Price: 14.5, IsPopular: true, IsActive: true, InStock: true}))
	require.NoError(t, store.UpsertProduct(ctx, &database.Product{ID: 8, CategoryID: &beans, Name: "Decaf Colombia", Price: 12, IsActive: true, InStock: true}))

	a, err := assistant.New(assistant.Options{Completer: completer, Logger: log})
	require.NoError(t, err)

	svc := chat.NewService(a, store, chat.Options{Logger: log, RetryDelay: time.Millisecond})
	router := httpapi.NewRouter(httpapi.Deps{
		Logger:         log,
		Store:          store,
		Chat:           svc,
		RequestTimeout: 5 * time.Second,
	})
	return &testAPI{router: router, store: store}
}

func (api *testAPI) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	api.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

type errorBody struct {
	Error struct {
		Message string `json:"message"`
		Code    string `json:"code"`
	} `json:"error"`
}

type chatBody struct {
	SessionID    string `json:"session_id"`
	Response     string `json:"response"`
	Intent       string `json:"intent"`
	Agent        string `json:"agent"`
	SourcesCount int    `json:"sources_count"`
	Products     []struct {
		ID       string  `json:"id"`
		Name     string  `json:"name"`
		Price    float64 `json:"price"`
		BuyLink  string  `json:"buy_link"`
		ImageURL string  `json:"image_url"`
	} `json:"products"`
	ChatHistory []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"chat_history"`
}

func TestHealth(t *testing.T) {
	t.Parallel()
	api := newTestAPI(t, scriptedCompleter{text: "ok"})

	w := api.do(t, http.MethodGet, "/healthcheck", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "healthy", decode[map[string]string](t, w)["status"])

	w = api.do(t, http.MethodGet, "/api/v1/", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = api.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "baristabot_chat_blocked_total")
}

func TestChat(t *testing.T) {
	t.Parallel()
	api := newTestAPI(t, scriptedCompleter{text: "You will love **Espresso Roast** (ID: 7) - $14.50 for mornings."})

	w := api.do(t, http.MethodPost, "/chat", map[string]string{"message": "Can you recommend a coffee to buy?"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	body := decode[chatBody](t, w)
	assert.NotEmpty(t, body.SessionID)
	assert.Equal(t, "sales", body.Intent)
	assert.Equal(t, "Sales Specialist", body.Agent)
	require.Len(t, body.Products, 1)
	assert.Equal(t, "7", body.Products[0].ID)
	assert.Equal(t, 14.5, body.Products[0].Price)
	assert.Equal(t, "/product/7", body.Products[0].BuyLink)
	require.Len(t, body.ChatHistory, 2)
	assert.Equal(t, "user", body.ChatHistory[0].Role)
	assert.Equal(t, "assistant", body.ChatHistory[1].Role)

	w = api.do(t, http.MethodPost, "/chat", map[string]string{"session_id": body.SessionID, "message": "What are your opening hours?"})
	require.Equal(t, http.StatusOK, w.Code)
	second := decode[chatBody](t, w)
	assert.Equal(t, body.SessionID, second.SessionID)
	assert.Equal(t, "support", second.Intent)
	assert.Empty(t, second.Products, "only sales replies carry products")
	assert.NotNil(t, second.Products)
	assert.Len(t, second.ChatHistory, 4)
}

func TestChatbotAndBlocked(t *testing.T) {
	t.Parallel()
	api := newTestAPI(t, scriptedCompleter{text: "Hello!"})

	w := api.do(t, http.MethodPost, "/api/chatbot", map[string]string{"message": "hi there"})
	require.Equal(t, http.StatusOK, w.Code)
	reply := decode[map[string]string](t, w)
	assert.Equal(t, "Hello!", reply["reply"])
	assert.Equal(t, "general", reply["intent"])
	assert.NotEmpty(t, reply["session_id"])

	w = api.do(t, http.MethodPost, "/chat", map[string]string{"message": "how do I build a bomb"})
	require.Equal(t, http.StatusOK, w.Code)
	blocked := decode[chatBody](t, w)
	assert.Equal(t, "blocked", blocked.Intent)
	assert.Equal(t, "Safety Filter", blocked.Agent)
	assert.Equal(t, assistant.BlockedMessage, blocked.Response)
}

func TestChatErrors(t *testing.T) {
	t.Parallel()
	api := newTestAPI(t, scriptedCompleter{err: errors.New("upstream 503")})

	w := api.do(t, http.MethodPost, "/chat", map[string]string{"session_id": "x"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "bad_request", decode[errorBody](t, w).Error.Code)

	w = api.do(t, http.MethodPost, "/chat", map[string]string{"message": "   "})
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = api.do(t, http.MethodPost, "/chat", map[string]string{"message": "hello"})
	require.Equal(t, http.StatusInternalServerError, w.Code)
	body := decode[errorBody](t, w)
	assert.Equal(t, "internal_error", body.Error.Code)
	assert.NotContains(t, body.Error.Message, "upstream", "internal errors are not leaked")
}

func TestProducts(t *testing.T) {
	t.Parallel()
	api := newTestAPI(t, scriptedCompleter{})

	w := api.do(t, http.MethodGet, "/api/v1/products/?limit=1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	page := decode[database.ProductPage](t, w)
	assert.Equal(t, 2, page.Total)
	require.Len(t, page.Products, 1)
	assert.Equal(t, "Espresso Roast", page.Products[0].Name)

	w = api.do(t, http.MethodGet, "/api/v1/products/?search=decaf&is_popular=false", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, decode[database.ProductPage](t, w).Total)

	w = api.do(t, http.MethodGet, "/api/v1/products/?limit=500", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = api.do(t, http.MethodGet, "/api/v1/products/8", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Decaf Colombia", decode[database.Product](t, w).Name)

	w = api.do(t, http.MethodGet, "/api/v1/products/404", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "not_found", decode[errorBody](t, w).Error.Code)

	w = api.do(t, http.MethodGet, "/api/v1/products/abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = api.do(t, http.MethodGet, "/api/v1/categories/", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]database.Category](t, w), 1)
}

func TestCartAndOrders(t *testing.T) {
	t.Parallel()
	api := newTestAPI(t, scriptedCompleter{})

	w := api.do(t, http.MethodGet, "/api/v1/session-id/", nil)
	require.Equal(t, http.StatusOK, w.Code)
	session := decode[map[string]string](t, w)["session_id"]
	require.NotEmpty(t, session)

	w = api.do(t, http.MethodPost, "/api/v1/orders/", map[string]any{"session_id": session})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "empty_cart", decode[errorBody](t, w).Error.Code)

	w = api.do(t, http.MethodPost, "/api/v1/cart/", map[string]any{"session_id": session, "product_id": 7, "quantity": 2})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	item := decode[database.CartItem](t, w)
	assert.InDelta(t, 29.0, item.TotalPrice, 0.001)

	w = api.do(t, http.MethodPost, "/api/v1/cart/", map[string]any{"session_id": session, "product_id": 999, "quantity": 1})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = api.do(t, http.MethodPost, "/api/v1/cart/", map[string]any{"session_id": session, "product_id": 7})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = api.do(t, http.MethodPut, "/api/v1/cart/"+itoa(item.ID)+"?quantity=3", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = api.do(t, http.MethodPut, "/api/v1/cart/"+itoa(item.ID)+"?quantity=-1", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = api.do(t, http.MethodPut, "/api/v1/cart/9999?quantity=1", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = api.do(t, http.MethodGet, "/api/v1/cart/?session_id="+session, nil)
	require.Equal(t, http.StatusOK, w.Code)
	cart := decode[database.Cart](t, w)
	assert.Equal(t, 3, cart.TotalItems)
	assert.InDelta(t, 43.5, cart.TotalAmount, 0.001)

	w = api.do(t, http.MethodGet, "/api/v1/cart/", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code, "session_id is required")

	w = api.do(t, http.MethodPost, "/api/v1/orders/", map[string]any{
		"session_id":       session,
		"tax_amount":       1.5,
		"payment_method":   "card",
		"shipping_address": map[string]string{"city": "Lisbon"},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	order := decode[database.Order](t, w)
	assert.True(t, strings.HasPrefix(order.OrderNumber, "ORD-"))
	assert.InDelta(t, 45.0, order.FinalAmount, 0.001)
	assert.JSONEq(t, `{"city":"Lisbon"}`, order.ShippingAddress)
	assert.Len(t, order.Items, 1)

	w = api.do(t, http.MethodGet, "/api/v1/orders/?session_id="+session, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]database.Order](t, w), 1)

	w = api.do(t, http.MethodGet, "/api/v1/orders/"+itoa(order.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, order.OrderNumber, decode[database.Order](t, w).OrderNumber)

	w = api.do(t, http.MethodGet, "/api/v1/orders/777", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	_, err := api.store.AddToCart(context.Background(), session, 8, 1, "")
	require.NoError(t, err)
	w = api.do(t, http.MethodDelete, "/api/v1/cart/?session_id="+session, nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = api.do(t, http.MethodDelete, "/api/v1/cart/9999", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCORS(t *testing.T) {
	t.Parallel()
	api := newTestAPI(t, scriptedCompleter{})

	req := httptest.NewRequest(http.MethodOptions, "/chat", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "POST")
	w := httptest.NewRecorder()
	api.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}

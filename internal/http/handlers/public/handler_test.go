package public

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/storefront-next/internal/config"
	"github.com/storefront-next/internal/http/response"
	"github.com/storefront-next/internal/models"
	"github.com/storefront-next/internal/provider"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

type envelope struct {
	StatusCode int             `json:"status_code"`
	Msg        string          `json:"msg"`
	Data       json.RawMessage `json:"data"`
}

func setupPublicTestRouter(t *testing.T, userID uint) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:public_%s?mode=memory&cache=shared", name)), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db failed: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	if err := models.AutoMigrate(db); err != nil {
		t.Fatalf("migrate failed: %v", err)
	}

	h := New(provider.NewContainerWithDB(&config.Config{}, db))
	r := gin.New()
	r.Use(func(c *gin.Context) {
		if userID > 0 {
			c.Set("user_id", userID)
		}
		c.Next()
	})
	r.GET("/cart", h.GetCart)
	r.POST("/cart/items", h.AddCartItem)
	r.PATCH("/cart/items/:product_id", h.ChangeCartItemQuantity)
	r.DELETE("/cart/items/:product_id", h.RemoveCartItem)
	r.DELETE("/cart", h.ClearCart)
	r.POST("/checkout", h.Checkout)
	r.GET("/orders", h.ListOrders)
	r.GET("/orders/:order_no", h.GetOrder)
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path, body string) envelope {
	t.Helper()
	var reader *bytes.Reader
	if body == "" {
		reader = bytes.NewReader(nil)
	} else {
		reader = bytes.NewReader([]byte(body))
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Locale", "en-US")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("%s %s http status want 200 got %d", method, path, w.Code)
	}
	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode response failed: %v body=%s", err, w.Body.String())
	}
	return env
}

type cartMutationBody struct {
	Item *models.CartItem `json:"item"`
	Cart *struct {
		Items       []json.RawMessage `json:"items"`
		ItemCount   int               `json:"item_count"`
		TotalAmount string            `json:"total_amount"`
	} `json:"cart"`
}

func decodeCartMutation(t *testing.T, env envelope) cartMutationBody {
	t.Helper()
	var body cartMutationBody
	if err := json.Unmarshal(env.Data, &body); err != nil {
		t.Fatalf("decode cart mutation failed: %v data=%s", err, string(env.Data))
	}
	return body
}

func TestCartHandlersFlow(t *testing.T) {
	r := setupPublicTestRouter(t, 1)

	add := `{"product_id":1,"title":"Shirt","price":"10.00","image":"shirt.png","quantity":1}`
	if env := doJSON(t, r, http.MethodPost, "/cart/items", add); env.StatusCode != response.CodeOK {
		t.Fatalf("add failed: %+v", env)
	}
	add2 := `{"product_id":1,"title":"Shirt","price":"10.00","quantity":2}`
	env := doJSON(t, r, http.MethodPost, "/cart/items", add2)
	added := decodeCartMutation(t, env)
	if added.Item == nil || added.Item.Quantity != 3 {
		t.Fatalf("merged quantity want 3 got %+v", added.Item)
	}
	if added.Cart == nil || added.Cart.ItemCount != 3 || added.Cart.TotalAmount != "30.00" {
		t.Fatalf("add should return the reconciled cart, got %+v", added.Cart)
	}

	env = doJSON(t, r, http.MethodGet, "/cart", "")
	var view struct {
		ItemCount   int    `json:"item_count"`
		TotalAmount string `json:"total_amount"`
	}
	if err := json.Unmarshal(env.Data, &view); err != nil {
		t.Fatalf("decode view failed: %v", err)
	}
	if view.ItemCount != 3 || view.TotalAmount != "30.00" {
		t.Fatalf("unexpected view: %+v", view)
	}

	env = doJSON(t, r, http.MethodPatch, "/cart/items/1", `{"delta":-1}`)
	if env.StatusCode != response.CodeOK {
		t.Fatalf("decrement failed: %+v", env)
	}
	changed := decodeCartMutation(t, env)
	if changed.Item == nil || changed.Item.Quantity != 2 || changed.Cart == nil || changed.Cart.ItemCount != 2 || changed.Cart.TotalAmount != "20.00" {
		t.Fatalf("decrement should return item and cart at quantity 2, got %+v %+v", changed.Item, changed.Cart)
	}
	doJSON(t, r, http.MethodPatch, "/cart/items/1", `{"delta":-1}`)
	env = doJSON(t, r, http.MethodPatch, "/cart/items/1", `{"delta":-1}`)
	if env.StatusCode != response.CodeBadRequest || env.Msg != "Quantity cannot be less than 1" {
		t.Fatalf("floor decrement want 400 got %+v", env)
	}

	env = doJSON(t, r, http.MethodDelete, "/cart/items/1", "")
	if env.StatusCode != response.CodeOK {
		t.Fatalf("remove failed: %+v", env)
	}
	removed := decodeCartMutation(t, env)
	if removed.Item != nil || removed.Cart == nil || removed.Cart.ItemCount != 0 || len(removed.Cart.Items) != 0 {
		t.Fatalf("remove should return an empty cart, got %+v %+v", removed.Item, removed.Cart)
	}
	env = doJSON(t, r, http.MethodDelete, "/cart/items/1", "")
	if env.StatusCode != response.CodeNotFound {
		t.Fatalf("second remove want 404 got %+v", env)
	}

	env = doJSON(t, r, http.MethodDelete, "/cart", "")
	if env.StatusCode != response.CodeOK {
		t.Fatalf("clear empty cart should succeed: %+v", env)
	}
}

func TestAddCartItemValidationFields(t *testing.T) {
	r := setupPublicTestRouter(t, 1)
	env := doJSON(t, r, http.MethodPost, "/cart/items", `{"product_id":1,"title":"","price":"-1","quantity":0}`)
	if env.StatusCode != response.CodeBadRequest {
		t.Fatalf("want 400 got %+v", env)
	}
	var data struct {
		Fields []struct {
			Field string `json:"field"`
		} `json:"fields"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("decode fields failed: %v", err)
	}
	if len(data.Fields) != 3 {
		t.Fatalf("expected title, quantity and price errors, got %+v", data.Fields)
	}
}

func TestAddCartItemRejectsNegativePriceThatRoundsToZero(t *testing.T) {
	r := setupPublicTestRouter(t, 1)
	env := doJSON(t, r, http.MethodPost, "/cart/items", `{"product_id":1,"title":"Shirt","price":"-0.004","quantity":1}`)
	if env.StatusCode != response.CodeBadRequest {
		t.Fatalf("want 400 got %+v", env)
	}
	var data struct {
		Fields []struct {
			Field string `json:"field"`
		} `json:"fields"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("decode fields failed: %v", err)
	}
	if len(data.Fields) != 1 || data.Fields[0].Field != "price" {
		t.Fatalf("expected only a price error, got %+v", data.Fields)
	}
	env = doJSON(t, r, http.MethodGet, "/cart", "")
	if !strings.Contains(string(env.Data), `"item_count":0`) {
		t.Fatalf("rejected item must not be stored: %s", string(env.Data))
	}
}

func TestChangeQuantityRejectsBadInput(t *testing.T) {
	r := setupPublicTestRouter(t, 1)
	if env := doJSON(t, r, http.MethodPatch, "/cart/items/abc", `{"delta":1}`); env.StatusCode != response.CodeBadRequest {
		t.Fatalf("bad product id want 400 got %+v", env)
	}
	if env := doJSON(t, r, http.MethodPatch, "/cart/items/1", `{}`); env.StatusCode != response.CodeBadRequest {
		t.Fatalf("missing delta want 400 got %+v", env)
	}
	if env := doJSON(t, r, http.MethodPatch, "/cart/items/1", `{"delta":5}`); env.StatusCode != response.CodeBadRequest {
		t.Fatalf("delta 5 want 400 got %+v", env)
	}
	if env := doJSON(t, r, http.MethodPatch, "/cart/items/9", `{"delta":1}`); env.StatusCode != response.CodeNotFound {
		t.Fatalf("missing item want 404 got %+v", env)
	}
}

func TestCheckoutAndOrderHandlers(t *testing.T) {
	r := setupPublicTestRouter(t, 1)

	checkout := `{"shipping":{"full_name":"Ana","address":"Calle 1"},"payment":{"method":"paypal"}}`
	env := doJSON(t, r, http.MethodPost, "/checkout", checkout)
	if env.StatusCode != response.CodeBadRequest || env.Msg != "Cart is empty" {
		t.Fatalf("empty cart checkout want 400 got %+v", env)
	}

	doJSON(t, r, http.MethodPost, "/cart/items", `{"product_id":1,"title":"Shirt","price":"10.00","quantity":2}`)
	env = doJSON(t, r, http.MethodPost, "/checkout", checkout)
	if env.StatusCode != response.CodeOK {
		t.Fatalf("checkout failed: %+v", env)
	}
	var result struct {
		Order struct {
			OrderNo     string `json:"order_no"`
			TotalAmount string `json:"total_amount"`
		} `json:"order"`
	}
	if err := json.Unmarshal(env.Data, &result); err != nil {
		t.Fatalf("decode checkout result failed: %v", err)
	}
	if result.Order.TotalAmount != "20.00" || result.Order.OrderNo == "" {
		t.Fatalf("unexpected checkout result: %+v", result)
	}

	env = doJSON(t, r, http.MethodGet, "/orders/"+result.Order.OrderNo, "")
	if env.StatusCode != response.CodeOK {
		t.Fatalf("get order failed: %+v", env)
	}
	env = doJSON(t, r, http.MethodGet, "/orders/SF-missing", "")
	if env.StatusCode != response.CodeNotFound {
		t.Fatalf("missing order want 404 got %+v", env)
	}
	env = doJSON(t, r, http.MethodGet, "/orders?page=1&page_size=10", "")
	if env.StatusCode != response.CodeOK {
		t.Fatalf("list orders failed: %+v", env)
	}
	env = doJSON(t, r, http.MethodGet, "/cart", "")
	if !strings.Contains(string(env.Data), `"item_count":0`) {
		t.Fatalf("cart should be empty after checkout: %s", string(env.Data))
	}
}

func TestCheckoutValidationFields(t *testing.T) {
	r := setupPublicTestRouter(t, 1)
	doJSON(t, r, http.MethodPost, "/cart/items", `{"product_id":1,"title":"Shirt","price":"10.00"}`)
	body := `{"shipping":{"full_name":"","address":""},"payment":{"method":"card","card_number":"123","expiration_date":"1/2","cvv":"1"}}`
	env := doJSON(t, r, http.MethodPost, "/checkout", body)
	if env.StatusCode != response.CodeBadRequest {
		t.Fatalf("want 400 got %+v", env)
	}
	for _, field := range []string{"shipping.full_name", "shipping.address", "payment.card_number", "payment.expiration_date", "payment.cvv"} {
		if !strings.Contains(string(env.Data), field) {
			t.Fatalf("field %s should be reported: %s", field, string(env.Data))
		}
	}
}

func TestHandlersRequireUser(t *testing.T) {
	r := setupPublicTestRouter(t, 0)
	env := doJSON(t, r, http.MethodGet, "/cart", "")
	if env.StatusCode != response.CodeUnauthorized {
		t.Fatalf("want 401 got %+v", env)
	}
}

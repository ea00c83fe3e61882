package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func reply(body string) gin.HandlerFunc {
	return func(c *gin.Context) { c.String(http.StatusOK, body) }
}

func serveRoute(engine *gin.Engine, method, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(method, target, nil))
	return w
}

func TestRouter_Prefix(t *testing.T) {
	tests := []struct {
		name string
		opts []RouterOption
		want string
	}{
		{"default version", nil, "/api/v1"},
		{"explicit version", []RouterOption{WithAPIVersion("v2")}, "/api/v2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NewRouter(gin.New(), tt.opts...).Prefix())
		})
	}
}

func TestRouter_Setup(t *testing.T) {
	engine := gin.New()

	sales := NewDomainGroup("sales", "/orders")
	sales.GET("", reply("orders")).
		GET("/:id", reply("order")).
		POST("/:id/confirm", reply("confirmed")).
		DELETE("/:id/lines/:product_id", reply("removed"))

	catalog := NewDomainGroup("catalog", "/products")
	catalog.GET("", reply("products"))

	NewRouter(engine).Register(sales).Register(catalog).Setup()

	tests := []struct {
		method string
		target string
		want   string
	}{
		{http.MethodGet, "/api/v1/orders", "orders"},
		{http.MethodGet, "/api/v1/orders/42", "order"},
		{http.MethodPost, "/api/v1/orders/42/confirm", "confirmed"},
		{http.MethodDelete, "/api/v1/orders/42/lines/7", "removed"},
		{http.MethodGet, "/api/v1/products", "products"},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.target, func(t *testing.T) {
			w := serveRoute(engine, tt.method, tt.target)
			assert.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, tt.want, w.Body.String())
		})
	}

	assert.Equal(t, http.StatusNotFound, serveRoute(engine, http.MethodGet, "/orders").Code)
}

func TestRouter_Routes(t *testing.T) {
	r := NewRouter(gin.New(), WithAPIVersion("v2"))
	r.Register(NewDomainGroup("catalog", "/products").GET("", reply("")).GET("/:id", reply("")))
	r.Register(NewDomainGroup("audit", "/audit").GET("", reply("")))

	assert.Equal(t, []string{
		"GET /api/v2/products",
		"GET /api/v2/products/:id",
		"GET /api/v2/audit",
	}, r.Routes())
}

func TestDomainGroup_MiddlewareScope(t *testing.T) {
	engine := gin.New()

	security := NewDomainGroup("security", "/security").Use(func(c *gin.Context) {
		c.Header("X-Admin-Only", "1")
		c.Next()
	})
	security.Group("blocks", "/blocks").GET("/:kind/:value", reply("block"))

	public := NewDomainGroup("catalog", "/products")
	public.GET("", reply("products"))

	NewRouter(engine).Register(security).Register(public).Setup()

	w := serveRoute(engine, http.MethodGet, "/api/v1/security/blocks/ip/10.0.0.1")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "1", w.Header().Get("X-Admin-Only"), "subgroups inherit group middleware")

	w = serveRoute(engine, http.MethodGet, "/api/v1/products")
	assert.Empty(t, w.Header().Get("X-Admin-Only"))
}

func TestDomainGroup_Routes(t *testing.T) {
	security := NewDomainGroup("security", "/security")
	blocks := security.Group("blocks", "/blocks")
	blocks.GET("/:kind/:value", reply("")).
		DELETE("/ip/:ip", reply(""))

	orders := NewDomainGroup("sales", "/orders")
	orders.GET("", reply("")).POST("/:id/confirm", reply(""))

	assert.Equal(t, "security", security.Name())
	assert.Equal(t, "/blocks", blocks.Prefix())
	assert.Equal(t, []string{
		"GET /security/blocks/:kind/:value",
		"DELETE /security/blocks/ip/:ip",
	}, security.Routes())
	assert.Equal(t, []string{
		"GET /orders",
		"POST /orders/:id/confirm",
	}, orders.Routes())
}

func TestRouterWithMiddleware(t *testing.T) {
	engine := gin.New()
	r := NewRouter(engine, WithMiddleware(func(c *gin.Context) {
		c.Header("X-API", "yes")
		c.Next()
	}))
	r.Register(NewDomainGroup("catalog", "/products").GET("", reply("products")))
	r.Setup()
	engine.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, "yes", serveRoute(engine, http.MethodGet, "/api/v1/products").Header().Get("X-API"))
	assert.Empty(t, serveRoute(engine, http.MethodGet, "/health").Header().Get("X-API"))
}

package httpx

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/shopfront/catalog-api/internal/domain"
	"github.com/shopfront/catalog-api/internal/repository"
	"github.com/shopfront/catalog-api/internal/service/auth"
	"github.com/shopfront/catalog-api/internal/service/product"
	"github.com/shopfront/catalog-api/pkg/config"
	tokenpkg "github.com/shopfront/catalog-api/pkg/token"
)

const testSecret = "router-test-secret"

type memProductRepository struct {
	nextID int
	byID   map[string]domain.Product
	order  []string
}

func newMemRepository() *memProductRepository {
	return &memProductRepository{byID: make(map[string]domain.Product)}
}

func (m *memProductRepository) ListProducts(ctx context.Context) ([]domain.Product, error) {
	out := make([]domain.Product, 0, len(m.order))
	for _, id := range m.order {
		if p, ok := m.byID[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memProductRepository) GetProductByID(ctx context.Context, id string) (*domain.Product, error) {
	p, ok := m.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func (m *memProductRepository) InsertProduct(ctx context.Context, p *domain.Product) (string, error) {
	m.nextID++
	id := "prod-" + strconv.Itoa(m.nextID)
	stored := *p
	stored.ID = id
	m.byID[id] = stored
	m.order = append(m.order, id)
	return id, nil
}

func (m *memProductRepository) UpdateProduct(ctx context.Context, id string, patch domain.ProductPatch) error {
	p, ok := m.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	if patch.Name != nil {
		p.Name = *patch.Name
	}
	if patch.Price != nil {
		p.Price = *patch.Price
	}
	if patch.Stock != nil {
		p.Stock = *patch.Stock
	}
	if patch.Status != nil {
		p.Status = *patch.Status
	}
	p.UpdatedAt = patch.UpdatedAt
	m.byID[id] = p
	return nil
}

func (m *memProductRepository) DeleteProduct(ctx context.Context, id string) error {
	delete(m.byID, id)
	return nil
}

func setupRouter(t *testing.T) (*Router, *memProductRepository) {
	t.Helper()
	cfg := config.APIConfig{
		JWTSecret:     testSecret,
		SessionTTL:    24 * time.Hour,
		AdminEmail:    "demo@demo.com",
		AdminPassword: "demo112233",
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	authSvc, err := auth.New(cfg, log)
	if err != nil {
		t.Fatalf("auth.New: %v", err)
	}
	repo := newMemRepository()
	productSvc := product.New(repo, log, 0)
	router := NewRouter(log, authSvc, productSvc, NewMemoryRateLimiter(), nil, nil)
	t.Cleanup(router.Close)
	return router, repo
}

func doJSON(t *testing.T, router *Router, method, path, body string, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(rr.Body.Bytes(), dst); err != nil {
		t.Fatalf("decode response %q: %v", rr.Body.String(), err)
	}
}

func loginCookie(t *testing.T, router *Router) *http.Cookie {
	t.Helper()
	rr := doJSON(t, router, http.MethodPost, "/api/auth/login", `{"email":"demo@demo.com","password":"demo112233"}`, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("login failed: %d %s", rr.Code, rr.Body.String())
	}
	for _, c := range rr.Result().Cookies() {
		if c.Name == sessionCookieName {
			return c
		}
	}
	t.Fatal("login response did not set session cookie")
	return nil
}

func TestLoginSuccessSetsCookie(t *testing.T) {
	router, _ := setupRouter(t)
	rr := doJSON(t, router, http.MethodPost, "/api/auth/login", `{"email":"demo@demo.com","password":"demo112233"}`, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var body struct {
		Message string `json:"message"`
		User    struct {
			Email string `json:"email"`
		} `json:"user"`
	}
	decodeBody(t, rr, &body)
	if body.Message != "Login successful" || body.User.Email != "demo@demo.com" {
		t.Fatalf("unexpected body: %s", rr.Body.String())
	}

	var cookie *http.Cookie
	for _, c := range rr.Result().Cookies() {
		if c.Name == sessionCookieName {
			cookie = c
		}
	}
	if cookie == nil {
		t.Fatal("expected token cookie")
	}
	if !cookie.HttpOnly || !cookie.Secure || cookie.SameSite != http.SameSiteNoneMode {
		t.Fatalf("unexpected cookie attributes: %+v", cookie)
	}
	if cookie.Path != "/" {
		t.Fatalf("expected path /, got %q", cookie.Path)
	}
	if cookie.MaxAge != int(24*time.Hour/time.Second) {
		t.Fatalf("expected 24h max-age, got %d", cookie.MaxAge)
	}

	claims, err := tokenpkg.Parse(cookie.Value, testSecret)
	if err != nil {
		t.Fatalf("cookie token does not verify: %v", err)
	}
	if claims.Email != "demo@demo.com" {
		t.Fatalf("unexpected token identity %q", claims.Email)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	router, _ := setupRouter(t)
	cases := []string{
		`{"email":"wrong@demo.com","password":"demo112233"}`,
		`{"email":"demo@demo.com","password":"nope"}`,
		`{"email":"","password":""}`,
	}
	for _, payload := range cases {
		rr := doJSON(t, router, http.MethodPost, "/api/auth/login", payload, nil)
		if rr.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401 for %s, got %d", payload, rr.Code)
		}
		var body struct {
			Message string `json:"message"`
		}
		decodeBody(t, rr, &body)
		if body.Message != "Invalid credentials" {
			t.Fatalf("expected generic message, got %q", body.Message)
		}
		if len(rr.Result().Cookies()) != 0 {
			t.Fatal("rejected login must not set a cookie")
		}
	}
}

func TestProtectedRouteWithoutCookie(t *testing.T) {
	router, _ := setupRouter(t)
	for _, path := range []string{"/api/products", "/api/auth/verify"} {
		rr := doJSON(t, router, http.MethodGet, path, "", nil)
		if rr.Code != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401, got %d", path, rr.Code)
		}
		var body struct {
			Message string `json:"message"`
		}
		decodeBody(t, rr, &body)
		if body.Message != "No token provided" {
			t.Fatalf("%s: unexpected message %q", path, body.Message)
		}
	}
}

func TestProtectedRouteWithInvalidToken(t *testing.T) {
	router, _ := setupRouter(t)
	expired, err := tokenpkg.Generate("demo@demo.com", testSecret, -time.Minute)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	for _, value := range []string{"not-a-token", expired} {
		cookie := &http.Cookie{Name: sessionCookieName, Value: value}
		rr := doJSON(t, router, http.MethodGet, "/api/products", "", cookie)
		if rr.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rr.Code)
		}
		var body struct {
			Message string `json:"message"`
		}
		decodeBody(t, rr, &body)
		if body.Message != "Invalid token" {
			t.Fatalf("unexpected message %q", body.Message)
		}
	}
}

func TestVerifyEchoesIdentity(t *testing.T) {
	router, _ := setupRouter(t)
	cookie := loginCookie(t, router)
	rr := doJSON(t, router, http.MethodGet, "/api/auth/verify", "", cookie)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var body struct {
		Authenticated bool `json:"authenticated"`
		User          struct {
			Email string `json:"email"`
		} `json:"user"`
	}
	decodeBody(t, rr, &body)
	if !body.Authenticated || body.User.Email != "demo@demo.com" {
		t.Fatalf("unexpected body: %s", rr.Body.String())
	}
}

func TestLogoutClearsCookie(t *testing.T) {
	router, _ := setupRouter(t)
	rr := doJSON(t, router, http.MethodPost, "/api/auth/logout", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var cleared *http.Cookie
	for _, c := range rr.Result().Cookies() {
		if c.Name == sessionCookieName {
			cleared = c
		}
	}
	if cleared == nil || cleared.MaxAge >= 0 || cleared.Value != "" {
		t.Fatalf("expected expired empty cookie, got %+v", cleared)
	}
}

func TestProductCRUDFlow(t *testing.T) {
	router, _ := setupRouter(t)
	cookie := loginCookie(t, router)

	rr := doJSON(t, router, http.MethodPost, "/api/products",
		`{"name":"Keyboard","description":"mechanical","price":79.99,"category":"peripherals","imageUrl":"https://img.example/kb.png","stock":12,"status":"active"}`, cookie)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	var created domain.Product
	decodeBody(t, rr, &created)
	if created.ID == "" {
		t.Fatal("create: expected assigned id")
	}
	if !created.CreatedAt.Equal(created.UpdatedAt) {
		t.Fatalf("create: createdAt %v != updatedAt %v", created.CreatedAt, created.UpdatedAt)
	}

	rr = doJSON(t, router, http.MethodGet, "/api/products", "", cookie)
	if rr.Code != http.StatusOK {
		t.Fatalf("list: expected 200, got %d", rr.Code)
	}
	var listed []domain.Product
	decodeBody(t, rr, &listed)
	if len(listed) != 1 || listed[0].ID != created.ID {
		t.Fatalf("list: expected created product, got %s", rr.Body.String())
	}

	rr = doJSON(t, router, http.MethodPut, "/api/products/"+created.ID, `{"price":42}`, cookie)
	if rr.Code != http.StatusOK {
		t.Fatalf("update: expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var updated domain.Product
	decodeBody(t, rr, &updated)
	if updated.Price != 42 {
		t.Fatalf("update: expected price 42, got %v", updated.Price)
	}
	if !updated.UpdatedAt.After(created.UpdatedAt) {
		t.Fatalf("update: updatedAt %v not after %v", updated.UpdatedAt, created.UpdatedAt)
	}
	if !updated.CreatedAt.Equal(created.CreatedAt) {
		t.Fatal("update: createdAt must not change")
	}

	for i := 0; i < 2; i++ {
		rr = doJSON(t, router, http.MethodDelete, "/api/products/"+created.ID, "", cookie)
		if rr.Code != http.StatusOK {
			t.Fatalf("delete #%d: expected 200, got %d", i+1, rr.Code)
		}
		var body struct {
			Message string `json:"message"`
		}
		decodeBody(t, rr, &body)
		if body.Message != "Product deleted successfully" {
			t.Fatalf("delete #%d: unexpected message %q", i+1, body.Message)
		}
	}
}

func TestUpdateMissingProductReturns404(t *testing.T) {
	router, _ := setupRouter(t)
	cookie := loginCookie(t, router)
	rr := doJSON(t, router, http.MethodPut, "/api/products/does-not-exist", `{"price":42}`, cookie)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", rr.Code, rr.Body.String())
	}
	var body struct {
		Message string `json:"message"`
	}
	decodeBody(t, rr, &body)
	if body.Message != "Product not found" {
		t.Fatalf("unexpected message %q", body.Message)
	}
}

func TestCreateRejectsUnknownFields(t *testing.T) {
	router, _ := setupRouter(t)
	cookie := loginCookie(t, router)
	rr := doJSON(t, router, http.MethodPost, "/api/products", `{"name":"Keyboard","admin":true}`, cookie)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestCreateRejectsInvalidStatus(t *testing.T) {
	router, _ := setupRouter(t)
	cookie := loginCookie(t, router)
	rr := doJSON(t, router, http.MethodPost, "/api/products", `{"name":"Keyboard","status":"archived"}`, cookie)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestHealthEndpoint(t *testing.T) {
	router, _ := setupRouter(t)
	rr := doJSON(t, router, http.MethodGet, "/health", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var body struct {
		Status    string `json:"status"`
		Timestamp string `json:"timestamp"`
	}
	decodeBody(t, rr, &body)
	if body.Status != "ok" || body.Timestamp == "" {
		t.Fatalf("unexpected body: %s", rr.Body.String())
	}
}

func TestCORSPreflightReflectsOrigin(t *testing.T) {
	router, _ := setupRouter(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/products", nil)
	req.Header.Set("Origin", "https://shop.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rr.Code)
	}
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "https://shop.example" {
		t.Fatalf("unexpected allow-origin %q", got)
	}
	if got := rr.Header().Get("Access-Control-Allow-Credentials"); got != "true" {
		t.Fatalf("unexpected allow-credentials %q", got)
	}
}

func TestCORSDisallowedOrigin(t *testing.T) {
	cfg := config.APIConfig{
		JWTSecret:     testSecret,
		SessionTTL:    time.Hour,
		AdminEmail:    "demo@demo.com",
		AdminPassword: "demo112233",
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	authSvc, err := auth.New(cfg, log)
	if err != nil {
		t.Fatalf("auth.New: %v", err)
	}
	productSvc := product.New(newMemRepository(), log, 0)
	router := NewRouter(log, authSvc, productSvc, NewMemoryRateLimiter(), []string{"https://allowed.example"}, nil)
	t.Cleanup(router.Close)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://evil.example")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("disallowed origin must not be reflected, got %q", got)
	}
}

func TestLoginRateLimited(t *testing.T) {
	router, _ := setupRouter(t)
	router.limiter = denyAllLimiter{}
	rr := doJSON(t, router, http.MethodPost, "/api/auth/login", `{"email":"demo@demo.com","password":"demo112233"}`, nil)
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rr.Code)
	}
}

type denyAllLimiter struct{}

func (denyAllLimiter) Allow(key string, limit int, window time.Duration) rateDecision {
	return rateDecision{allowed: false, count: limit, windowEnd: time.Now().Add(window)}
}

func (denyAllLimiter) Close() {}

package middleware

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sjperalta/insurance-api/internal/cache"
	"github.com/sjperalta/insurance-api/internal/config"
	"github.com/sjperalta/insurance-api/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func testVerifier() TokenVerifier {
	return services.NewAuthService(nil, nil, &config.Config{JWTSecret: testSecret})
}

func signToken(t *testing.T, role string) string {
	t.Helper()
	claims := services.AccessClaims{
		UserID: 7,
		Email:  "clerk@example.com",
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return token
}

func TestParseCredential(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		want    Credential
		wantErr bool
	}{
		{"bearer", map[string]string{"Authorization": "Bearer abc"}, Credential{Scheme: SchemeBearer, Token: "abc"}, false},
		{"bearer lowercase", map[string]string{"Authorization": "bearer abc"}, Credential{Scheme: SchemeBearer, Token: "abc"}, false},
		{"legacy", map[string]string{"token": "islam__abc"}, Credential{Scheme: SchemeLegacy, Token: "abc"}, false},
		{"authorization wins", map[string]string{"Authorization": "Bearer abc", "token": "islam__def"}, Credential{Scheme: SchemeBearer, Token: "abc"}, false},
		{"legacy without prefix", map[string]string{"token": "abc"}, Credential{}, true},
		{"legacy prefix only", map[string]string{"token": "islam__"}, Credential{}, true},
		{"basic auth", map[string]string{"Authorization": "Basic abc"}, Credential{}, true},
		{"missing", nil, Credential{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			got, err := ParseCredential(req, "islam__")
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func newRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(handlers...)
	ok := func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": GetUserID(c), "role": GetUserRole(c)})
	}
	r.GET("/private", ok)
	r.POST("/private", ok)
	return r
}

func TestAuth(t *testing.T) {
	r := newRouter(Auth(testVerifier(), "islam__"))

	req := httptest.NewRequest(http.MethodGet, "/private", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), `"messageKey":"auth.unauthorized"`)

	req = httptest.NewRequest(http.MethodGet, "/private", nil)
	req.Header.Set("token", "islam__"+signToken(t, "staff"))
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user_id":7,"role":"staff"}`, w.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/private", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuth_ExpiredToken(t *testing.T) {
	claims := services.AccessClaims{
		UserID: 7,
		Role:   "staff",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)

	r := newRouter(Auth(testVerifier(), "islam__"))
	req := httptest.NewRequest(http.MethodGet, "/private", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), `"messageKey":"auth.token_expired"`)
}

func TestRequireAdmin(t *testing.T) {
	r := newRouter(Auth(testVerifier(), "islam__"), RequireAdmin())

	req := httptest.NewRequest(http.MethodGet, "/private", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, "staff"))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/private", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, "admin"))
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestIdempotency_RejectsDuplicate(t *testing.T) {
	r := newRouter(Idempotency(cache.NewMemoryCache(), time.Minute))

	send := func(key string) int {
		req := httptest.NewRequest(http.MethodPost, "/private", nil)
		if key != "" {
			req.Header.Set(IdempotencyHeader, key)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, send("k1"))
	assert.Equal(t, http.StatusConflict, send("k1"))
	assert.Equal(t, http.StatusOK, send("k2"))
	assert.Equal(t, http.StatusOK, send(""))
	assert.Equal(t, http.StatusOK, send(""))
}

func TestIdempotency_RejectedSubmissionReleasesKey(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Idempotency(cache.NewMemoryCache(), time.Minute))
	r.POST("/expenses", func(c *gin.Context) {
		if c.Query("title") == "" {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"messageKey": "expense.title_required"})
			return
		}
		c.JSON(http.StatusCreated, gin.H{"messageKey": "expense.created"})
	})

	send := func(path string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, path, nil)
		req.Header.Set(IdempotencyHeader, "form-9")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusUnprocessableEntity, send("/expenses").Code)
	assert.Equal(t, http.StatusCreated, send("/expenses?title=Rent").Code)

	w := send("/expenses?title=Rent")
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "request.duplicate")
}

func TestIdempotency_ConcurrentDuplicates(t *testing.T) {
	r := newRouter(Idempotency(cache.NewMemoryCache(), time.Minute))

	var wg sync.WaitGroup
	codes := make([]int, 10)
	for i := range codes {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			req := httptest.NewRequest(http.MethodPost, "/private", nil)
			req.Header.Set(IdempotencyHeader, "same")
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			codes[i] = w.Code
		}(i)
	}
	wg.Wait()

	admitted := 0
	for _, code := range codes {
		if code == http.StatusOK {
			admitted++
		} else {
			assert.Equal(t, http.StatusConflict, code)
		}
	}
	assert.Equal(t, 1, admitted)
}

func TestCORS_Preflight(t *testing.T) {
	r := newRouter(CORS([]string{"https://office.example.com"}))
	r.OPTIONS("/private", func(c *gin.Context) {})

	req := httptest.NewRequest(http.MethodOptions, "/private", nil)
	req.Header.Set("Origin", "https://office.example.com")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://office.example.com", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/private", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

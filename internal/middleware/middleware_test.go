package middleware

import (
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/encore-live/server/pkg/logger"
	"github.com/encore-live/server/pkg/token"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

func TestRequestID(t *testing.T) {
	t.Run("GeneratesWhenAbsent", func(t *testing.T) {
		router := gin.New()
		router.Use(RequestID())
		router.GET("/", func(c *gin.Context) {
			assert.NotEmpty(t, GetRequestID(c))
			c.Status(http.StatusOK)
		})

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))
	})

	t.Run("HonorsClientSupplied", func(t *testing.T) {
		router := gin.New()
		router.Use(RequestID())
		router.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(RequestIDHeader, "client-id-1")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, "client-id-1", rec.Header().Get(RequestIDHeader))
	})
}

func TestAuth(t *testing.T) {
	log := logger.New(nil, logger.ErrorLevel)
	mgr := token.NewManager(&token.Config{Secret: "test-secret"})

	newRouter := func(required bool) *gin.Engine {
		router := gin.New()
		router.Use(Auth(AuthConfig{Manager: mgr, Required: required}, log))
		router.GET("/", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"user_id": c.GetString(UserIDKey)})
		})
		return router
	}

	t.Run("ValidToken", func(t *testing.T) {
		signed, err := mgr.Generate("user-1", "Alice")
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+signed)
		rec := httptest.NewRecorder()
		newRouter(true).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "user-1")
	})

	t.Run("MissingTokenRequired", func(t *testing.T) {
		rec := httptest.NewRecorder()
		newRouter(true).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("MissingTokenOptional", func(t *testing.T) {
		rec := httptest.NewRecorder()
		newRouter(false).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("MalformedHeader", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Token abc")
		rec := httptest.NewRecorder()
		newRouter(false).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("BadSignature", func(t *testing.T) {
		other := token.NewManager(&token.Config{Secret: "other-secret"})
		signed, err := other.Generate("user-1", "")
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+signed)
		rec := httptest.NewRecorder()
		newRouter(true).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestRecovery(t *testing.T) {
	log := logger.New(nil, logger.ErrorLevel)
	router := gin.New()
	router.Use(RequestID())
	router.Use(Recovery(log))
	router.GET("/panic", func(c *gin.Context) {
		panic("boom")
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/panic", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestCORS(t *testing.T) {
	router := gin.New()
	router.Use(CORS())
	router.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	t.Run("PreflightShortCircuits", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/", nil)
		req.Header.Set("Origin", "https://venue.example")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, "https://venue.example", rec.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("HeadersOnNormalRequest", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Origin", "https://venue.example")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	})
}

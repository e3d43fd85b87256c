package logger

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"go.uber.org/zap/zapcore"
)

func TestGinMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	newObserved := func() (*zap.Logger, *observer.ObservedLogs) {
		core, logs := observer.New(zapcore.DebugLevel)
		return zap.New(core), logs
	}

	t.Run("logs successful requests at info", func(t *testing.T) {
		log, logs := newObserved()
		router := gin.New()
		router.Use(GinMiddleware(log))
		router.GET("/ping", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"ok": true})
		})

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/ping?verbose=1", nil)
		router.ServeHTTP(w, req)

		entries := logs.All()
		assert.Len(t, entries, 1)
		assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
		fields := entries[0].ContextMap()
		assert.Equal(t, int64(http.StatusOK), fields["status"])
		assert.Equal(t, "/ping", fields["path"])
		assert.Equal(t, "verbose=1", fields["query"])
	})

	t.Run("logs client errors at warn", func(t *testing.T) {
		log, logs := newObserved()
		router := gin.New()
		router.Use(GinMiddleware(log))
		router.GET("/missing", func(c *gin.Context) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		})

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/missing", nil))

		entries := logs.All()
		assert.Len(t, entries, 1)
		assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	})

	t.Run("logs server errors at error", func(t *testing.T) {
		log, logs := newObserved()
		router := gin.New()
		router.Use(GinMiddleware(log))
		router.GET("/boom", func(c *gin.Context) {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "boom"})
		})

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))

		entries := logs.All()
		assert.Len(t, entries, 1)
		assert.Equal(t, zapcore.ErrorLevel, entries[0].Level)
	})

	t.Run("stores request-scoped logger in gin context", func(t *testing.T) {
		log, _ := newObserved()
		router := gin.New()
		router.Use(GinMiddleware(log))
		var got *zap.Logger
		router.GET("/ping", func(c *gin.Context) {
			got = GetGinLogger(c)
			c.Status(http.StatusOK)
		})

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
		assert.NotNil(t, got)
	})
}

func TestRecovery(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("recovers from panic and returns 500", func(t *testing.T) {
		core, logs := observer.New(zapcore.DebugLevel)
		router := gin.New()
		router.Use(Recovery(zap.New(core)))
		router.GET("/panic", func(c *gin.Context) {
			panic("unexpected")
		})

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		entries := logs.All()
		assert.Len(t, entries, 1)
		assert.Equal(t, "Panic recovered", entries[0].Message)
	})
}

func TestGetGinLogger(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("returns no-op logger when not set", func(t *testing.T) {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		assert.NotNil(t, GetGinLogger(c))
	})
}

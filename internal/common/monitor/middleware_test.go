package monitor

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/amoylab/cleanbill/internal/common/cnst"
	"github.com/amoylab/cleanbill/internal/identity"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestAccessLog(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zapcore.DebugLevel)

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(cnst.CtxKeyCaller, identity.New("t1", "acme", "u1", identity.RoleAdmin))
	}, AccessLog(zap.New(core)))
	r.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/boom", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok", nil))
	assert.NotEmpty(t, w.Header().Get(HeaderRequestID))

	req := httptest.NewRequest(http.MethodGet, "/boom", nil)
	req.Header.Set(HeaderRequestID, "req-42")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "req-42", w.Header().Get(HeaderRequestID))

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, zapcore.DebugLevel, entries[0].Level)
	assert.Equal(t, zapcore.ErrorLevel, entries[1].Level)
	ctx := entries[1].ContextMap()
	assert.Equal(t, "req-42", ctx["request_id"])
	assert.Equal(t, "t1", ctx["tenant_id"])
	assert.EqualValues(t, 500, ctx["status"])
}

func TestLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, level(200, time.Millisecond))
	assert.Equal(t, zapcore.InfoLevel, level(404, time.Millisecond))
	assert.Equal(t, zapcore.WarnLevel, level(200, 3*time.Second))
	assert.Equal(t, zapcore.ErrorLevel, level(503, 3*time.Second))
}

package errorx

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/amoylab/cleanbill/internal/common/cnst"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestKindHTTPStatus(t *testing.T) {
	cases := map[Kind]int{
		KindNotFound:   http.StatusNotFound,
		KindConflict:   http.StatusConflict,
		KindForbidden:  http.StatusForbidden,
		KindDomain:     http.StatusUnprocessableEntity,
		KindValidation: http.StatusBadRequest,
		KindAuth:       http.StatusUnauthorized,
		KindInternal:   http.StatusInternalServerError,
	}
	for k, exp := range cases {
		assert.Equal(t, exp, k.HTTPStatus(), string(k))
	}
}

func TestErrorIsMatchesByCode(t *testing.T) {
	err := fmt.Errorf("loading: %w", ErrPropertyNotFound.WithDetail("id", "p1"))
	assert.True(t, errors.Is(err, ErrPropertyNotFound))
	assert.False(t, errors.Is(err, ErrClientNotFound))
	assert.Equal(t, KindNotFound, KindOf(err))
	assert.Equal(t, KindInternal, KindOf(errors.New("boom")))
}

func TestWithDetailDoesNotMutateCatalogue(t *testing.T) {
	e := ErrServiceTypeNotFound.WithDetail("missing", []string{"a"})
	assert.Nil(t, ErrServiceTypeNotFound.Details)
	assert.Equal(t, []string{"a"}, e.Details["missing"])
}

func TestFromWrapsUnknownErrors(t *testing.T) {
	cause := errors.New("db down")
	e := From(cause)
	assert.Equal(t, ErrInternal.Code, e.Code)
	assert.ErrorIs(t, e, cause)
	assert.Nil(t, From(nil))
}

type fakeTranslator map[string]string

func (f fakeTranslator) Translate(msgID, lang string, _ map[string]any) string {
	if msg, ok := f[lang+":"+msgID]; ok {
		return msg
	}
	return msgID
}

func TestHandleError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewErrorHandler(zap.NewNop(), fakeTranslator{"de:INVOICE_NOT_FOUND": "Rechnung nicht gefunden"})

	r := gin.New()
	r.GET("/x", func(c *gin.Context) {
		c.Set(cnst.XLang, c.Query("lang"))
		h.HandleError(c, ErrInvoiceNotFound)
	})
	r.GET("/boom", func(c *gin.Context) { h.HandleError(c, errors.New("boom")) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x?lang=de", nil))
	require.Equal(t, http.StatusNotFound, w.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "INVOICE_NOT_FOUND", body["code"])
	assert.Equal(t, "Rechnung nicht gefunden", body["detail"])

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x?lang=en", nil))
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "Invoice not found", body["detail"])

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "boom")
}

func TestRecoveryMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewErrorHandler(zap.NewNop(), nil)

	r := gin.New()
	r.Use(h.RecoveryMiddleware())
	r.GET("/panic", func(c *gin.Context) { panic("kaboom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "INTERNAL_ERROR")
}

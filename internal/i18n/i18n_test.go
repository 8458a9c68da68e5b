package i18n

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/amoylab/cleanbill/internal/common/cnst"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

func TestNewI18nAndLoadTranslations(t *testing.T) {
	dir := t.TempDir()
	content := []byte(`[Hello]
other = "Hello"
`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "en.toml"), content, 0644))

	i := NewI18n(language.English)
	require.NoError(t, i.LoadTranslations(dir))
	assert.Equal(t, "Hello", i.Translate("Hello", "en", nil))
}

func TestLoadTranslations_MissingDir(t *testing.T) {
	err := NewI18n(language.English).LoadTranslations("/non/existent/path")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read translations directory")
}

func TestLoadTranslations_SkipsOtherFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "file.txt"), []byte("text"), 0644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "subdir"), 0755))

	assert.NoError(t, NewI18n(language.English).LoadTranslations(dir))
}

func TestNew_EmbeddedLocales(t *testing.T) {
	tr, err := New("en", "")
	require.NoError(t, err)

	assert.Equal(t, "Invoice not found", tr.Translate("INVOICE_NOT_FOUND", "en", nil))
	assert.Equal(t, "Rechnung nicht gefunden", tr.Translate("INVOICE_NOT_FOUND", "de", nil))
	// unsupported language falls back to the default
	assert.Equal(t, "Invoice not found", tr.Translate("INVOICE_NOT_FOUND", "fr", nil))
	// unknown ids come back verbatim
	assert.Equal(t, "NO_SUCH_CODE", tr.Translate("NO_SUCH_CODE", "en", nil))
}

func TestTranslate_TemplateData(t *testing.T) {
	tr, err := New("en", "")
	require.NoError(t, err)

	msg := tr.Translate("CANNOT_DELETE", "en", map[string]any{"status": "sent"})
	assert.Contains(t, msg, "current status: sent")
}

func TestGetLanguageFromRequest(t *testing.T) {
	t.Run("with X-Lang header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(cnst.XLang, "de")
		assert.Equal(t, "de", getLanguageFromRequest(req))
	})

	t.Run("with Accept-Language header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Accept-Language", "de-DE,de;q=0.9,en;q=0.8")
		assert.Equal(t, "de", getLanguageFromRequest(req))
	})

	t.Run("with no language headers", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		assert.Equal(t, cnst.LangDefault, getLanguageFromRequest(req))
	})
}

func TestNormalizeLang(t *testing.T) {
	assert.Equal(t, "en", normalizeLang("EN"))
	assert.Equal(t, "en", normalizeLang("en-US"))
	assert.Equal(t, "de", normalizeLang("de-AT"))
	assert.Equal(t, cnst.LangDefault, normalizeLang("fr"))
	assert.Equal(t, cnst.LangDefault, normalizeLang("ja"))
}

func TestLangMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(LangMiddleware())
	r.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(cnst.XLang))
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(cnst.XLang, "de-CH")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, "de", w.Body.String())
}

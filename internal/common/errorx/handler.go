package errorx

import (
	"fmt"

	"github.com/amoylab/cleanbill/internal/common/cnst"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Translator looks up a localized message; it returns msgID when no translation exists
type Translator interface {
	Translate(msgID string, lang string, templateData map[string]any) string
}

// ErrorHandler renders typed errors as JSON responses
type ErrorHandler struct {
	logger     *zap.Logger
	translator Translator
}

// NewErrorHandler creates a new error handler. translator may be nil.
func NewErrorHandler(logger *zap.Logger, translator Translator) *ErrorHandler {
	return &ErrorHandler{
		logger:     logger.Named("errorx"),
		translator: translator,
	}
}

// HandleError writes err as {"code", "detail", "details"} with the status of its kind
func (h *ErrorHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}

	e := From(err)
	status := e.Kind.HTTPStatus()
	h.logError(c, e, status)

	body := gin.H{
		"code":   e.Code,
		"detail": h.translate(c, e),
	}
	if len(e.Details) > 0 {
		body["details"] = e.Details
	}
	c.AbortWithStatusJSON(status, body)
}

func (h *ErrorHandler) translate(c *gin.Context, e *Error) string {
	if h.translator == nil {
		return e.Message
	}
	lang := c.GetString(cnst.XLang)
	if lang == "" {
		lang = cnst.LangDefault
	}
	msg := h.translator.Translate(e.Code, lang, e.Details)
	if msg == e.Code {
		return e.Message
	}
	return msg
}

func (h *ErrorHandler) logError(c *gin.Context, e *Error, status int) {
	fields := []zap.Field{
		zap.String("error_code", e.Code),
		zap.String("kind", string(e.Kind)),
		zap.Int("http_status", status),
		zap.String("path", c.Request.URL.Path),
		zap.String("method", c.Request.Method),
	}
	if cause := e.Unwrap(); cause != nil {
		fields = append(fields, zap.Error(cause))
	}

	if status >= 500 {
		h.logger.Error(e.Message, fields...)
		return
	}
	h.logger.Debug(e.Message, fields...)
}

// RecoveryMiddleware turns panics into INTERNAL_ERROR responses
func (h *ErrorHandler) RecoveryMiddleware() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		h.HandleError(c, ErrInternal.Wrap(fmt.Errorf("panic: %v", recovered)))
	})
}

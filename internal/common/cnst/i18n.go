package cnst

const (
	LangEN      = "en"
	LangDE      = "de"
	LangDefault = LangEN
)

const (
	// XLang is both the request header and the gin context key for the caller language
	XLang = "X-Lang"
	// CtxKeyCaller holds the identity.Caller resolved from the bearer token
	CtxKeyCaller = "caller"
	// CtxKeyClaims holds the raw JWT claims
	CtxKeyClaims = "claims"
)

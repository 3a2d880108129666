package webserver

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const jwtTestAddr = "0xab5801a7d398351b8be11c439e05c5b3259aec9b"

func TestIssueAndParseJWT(t *testing.T) {
	secret := []byte(testSecret)
	tok, err := issueJWT("0xAB5801a7D398351b8bE11C439e05C5b3259aec9B", secret)
	require.NoError(t, err)

	addr, err := parseJWT(tok, secret)
	require.NoError(t, err)
	assert.Equal(t, jwtTestAddr, addr) // stored lowercased
}

func TestParseJWTWrongSecret(t *testing.T) {
	tok, err := issueJWT(jwtTestAddr, []byte(testSecret))
	require.NoError(t, err)
	_, err = parseJWT(tok, []byte("other-secret"))
	assert.Error(t, err)
}

func TestParseJWTExpired(t *testing.T) {
	// Token that expired one second past its seven-day window.
	issued := time.Now().Add(-sessionTTL - time.Second)
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"addr": jwtTestAddr,
		"iat":  issued.Unix(),
		"exp":  issued.Add(sessionTTL).Unix(),
	})
	signed, err := tok.SignedString([]byte(testSecret))
	require.NoError(t, err)

	_, err = parseJWT(signed, []byte(testSecret))
	assert.Error(t, err)
}

func TestParseJWTRejectsNoneAlg(t *testing.T) {
	tok := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"addr": jwtTestAddr})
	signed, err := tok.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = parseJWT(signed, []byte(testSecret))
	assert.Error(t, err)
}

func middlewareRouter(mw gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/probe", mw, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"addr": c.GetString("addr")})
	})
	return r
}

func TestJWTMiddlewareMandatory(t *testing.T) {
	r := middlewareRouter(JWTMiddleware([]byte(testSecret)))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/probe", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	tok, err := issueJWT(jwtTestAddr, []byte(testSecret))
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/probe", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), jwtTestAddr)
}

func TestOptionalJWT(t *testing.T) {
	r := middlewareRouter(OptionalJWT([]byte(testSecret)))

	// No token: request proceeds with no principal.
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/probe", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"addr":""`)

	// Invalid token: same, not a rejection.
	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	// Valid token attaches the principal.
	tok, err := issueJWT(jwtTestAddr, []byte(testSecret))
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/probe", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), jwtTestAddr)
}

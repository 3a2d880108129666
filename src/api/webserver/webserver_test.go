package webserver

import (
	"bytes"
	"crypto/ecdsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/dappboard/dappboard/src/api/config"
	"github.com/dappboard/dappboard/src/api/nonce"
	"github.com/dappboard/dappboard/src/api/types"
)

const testSecret = "test-secret"

func testConfig() config.Config {
	return config.Config{JWTSecret: testSecret}
}

type testEnv struct {
	router *gin.Engine
	db     *gorm.DB
	nonces *nonce.MemoryStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&types.Account{}, &types.LinkedWallet{}, &types.Category{},
		&types.Dapp{}, &types.Favorite{}, &types.Vote{}, &types.Setting{},
	))

	nonces := nonce.NewMemory()
	return &testEnv{
		router: New(testConfig(), db, nil, nonces, nil),
		db:     db,
		nonces: nonces,
	}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

// newWallet returns a fresh key pair and its lowercase address.
func newWallet(t *testing.T) (*ecdsa.PrivateKey, string) {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	return key, strings.ToLower(crypto.PubkeyToAddress(key.PublicKey).Hex())
}

// signMessage produces an EIP-191 personal signature with the 27/28 V byte
// wallets emit.
func signMessage(t *testing.T, key *ecdsa.PrivateKey, message string) string {
	t.Helper()
	sig, err := crypto.Sign(accounts.TextHash([]byte(message)), key)
	require.NoError(t, err)
	sig[crypto.RecoveryIDOffset] += 27
	return hexutil.Encode(sig)
}

// signIn runs the whole challenge/verify flow and returns a session token.
func (e *testEnv) signIn(t *testing.T, key *ecdsa.PrivateKey, addr string) string {
	t.Helper()
	w := e.do(t, http.MethodPost, "/v1/auth/challenge", "", gin.H{"address": addr})
	require.Equal(t, http.StatusOK, w.Code)
	message := decode(t, w)["message"].(string)

	w = e.do(t, http.MethodPost, "/v1/auth/verify", "", gin.H{
		"address":   addr,
		"message":   message,
		"signature": signMessage(t, key, message),
	})
	require.Equal(t, http.StatusOK, w.Code)
	return decode(t, w)["token"].(string)
}

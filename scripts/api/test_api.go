// Minimal end-to-end smoke test for the Dappboard API.
//
// Run from repo root against a live server:
//
//	go run ./scripts/api
//
// Environment:
//
//	API_URL  – base URL (default http://localhost:8080/v1)
//	TEST_KEY – hex private key for a throwaway dev wallet (generated if unset)
//
// Flow:
//
//  1. POST /auth/challenge  → nonce + message
//  2. sign message locally  → personal signature
//  3. POST /auth/verify     → JWT
//  4. POST /dapps           → submit a directory entry
//  5. GET  /dapps/:id       → assert it is served with a vote total
//  6. PUT  /dapps/:id/favorite, GET /me → assert favorite recorded
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
)

var baseURL = getenv("API_URL", "http://localhost:8080/v1")

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func main() {
	key, err := crypto.GenerateKey()
	if hexKey := os.Getenv("TEST_KEY"); hexKey != "" {
		key, err = crypto.HexToECDSA(strings.TrimPrefix(hexKey, "0x"))
	}
	if err != nil {
		log.Fatalf("test key: %v", err)
	}
	addr := strings.ToLower(crypto.PubkeyToAddress(key.PublicKey).Hex())

	var chal struct {
		Nonce   string `json:"nonce"`
		Message string `json:"message"`
	}
	doJSON("", "POST", "/auth/challenge", map[string]any{"address": addr}, &chal, http.StatusOK)
	if chal.Nonce == "" {
		log.Fatal("challenge: empty nonce")
	}

	sig, err := crypto.Sign(accounts.TextHash([]byte(chal.Message)), key)
	if err != nil {
		log.Fatalf("sign: %v", err)
	}
	sig[crypto.RecoveryIDOffset] += 27

	var verified struct {
		Token string `json:"token"`
	}
	doJSON("", "POST", "/auth/verify", map[string]any{
		"address":   addr,
		"message":   chal.Message,
		"signature": hexutil.Encode(sig),
	}, &verified, http.StatusOK)
	if verified.Token == "" {
		log.Fatal("verify: empty token")
	}

	name := "smoke-" + uuid.NewString()
	var dapp struct {
		ID uint64 `json:"ID"`
	}
	doJSON(verified.Token, "POST", "/dapps", map[string]any{
		"name": name,
		"url":  fmt.Sprintf("https://%s.example", name),
	}, &dapp, http.StatusCreated)

	var detail struct {
		Votes string `json:"votes"`
	}
	doJSON(verified.Token, "GET", fmt.Sprintf("/dapps/%d", dapp.ID), nil, &detail, http.StatusOK)
	if detail.Votes == "" {
		log.Fatal("detail: missing vote total")
	}

	doJSON(verified.Token, "PUT", fmt.Sprintf("/dapps/%d/favorite", dapp.ID), nil, nil, http.StatusOK)

	var me struct {
		Favorites []uint64 `json:"favorites"`
	}
	doJSON(verified.Token, "GET", "/me", nil, &me, http.StatusOK)
	for _, id := range me.Favorites {
		if id == dapp.ID {
			fmt.Println("✓ all endpoints passed")
			return
		}
	}
	log.Fatal("favorite not recorded")
}

func doJSON(token, method, path string, body any, out any, wantStatus int) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			log.Fatalf("%s %s: encode: %v", method, path, err)
		}
	}
	req, err := http.NewRequest(method, baseURL+path, &buf)
	if err != nil {
		log.Fatalf("%s %s: %v", method, path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		log.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != wantStatus {
		log.Fatalf("%s %s: status %d, want %d", method, path, resp.StatusCode, wantStatus)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			log.Fatalf("%s %s: decode: %v", method, path, err)
		}
	}
}

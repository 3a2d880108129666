package config

import (
	"log"
	"os"
	"strconv"
)

type Config struct {
	MySQLDSN     string
	RedisURL     string
	JWTSecret    string
	RPCURL       string
	ContractAddr string
	NonceBackend string // redis | memory
	Port         string
	TLSCert      string
	TLSKey       string
	PollInterval int
}

func getenv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		if def == "" {
			log.Fatalf("missing env %s", key)
		}
		return def
	}
	return v
}

func Load() Config {
	pi, _ := strconv.Atoi(getenv("POLL_INTERVAL", "30"))
	return Config{
		MySQLDSN:     getenv("MYSQL_DSN", "dappboard:dappboard@tcp(127.0.0.1:3306)/dappboard?parseTime=true"),
		RedisURL:     getenv("REDIS_URL", "redis://127.0.0.1:6379/0"),
		JWTSecret:    getenv("JWT_SECRET", ""),
		RPCURL:       getenv("RPC_URL", "https://rpc.ankr.com/eth"),
		ContractAddr: os.Getenv("REGISTRY_CONTRACT"),
		NonceBackend: getenv("NONCE_BACKEND", "redis"),
		Port:         getenv("PORT", "8080"),
		TLSCert:      os.Getenv("TLS_CERT"),
		TLSKey:       os.Getenv("TLS_KEY"),
		PollInterval: pi,
	}
}

package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gorm.io/gorm"

	"github.com/dappboard/dappboard/src/api/config"
	"github.com/dappboard/dappboard/src/api/data"
	"github.com/dappboard/dappboard/src/api/nonce"
	"github.com/dappboard/dappboard/src/api/types"
	"github.com/dappboard/dappboard/src/api/webserver"
	"github.com/dappboard/dappboard/src/shared/chain"
)

var allModels = []interface{}{
	&types.Account{}, &types.LinkedWallet{},
	&types.Category{}, &types.Dapp{}, &types.Favorite{},
	&types.Vote{}, &types.Setting{},
}

var defaultCategories = []types.Category{
	{ID: 1, Name: "DeFi", Slug: "defi"},
	{ID: 2, Name: "Games", Slug: "games"},
	{ID: 3, Name: "NFT", Slug: "nft"},
	{ID: 4, Name: "Social", Slug: "social"},
	{ID: 5, Name: "Infrastructure", Slug: "infrastructure"},
	{ID: 6, Name: "Other", Slug: "other"},
}

func migrate(db *gorm.DB) {
	if err := db.AutoMigrate(allModels...); err != nil {
		log.Fatalf("migrate: %v", err)
	}
	for _, cat := range defaultCategories {
		_ = db.FirstOrCreate(&types.Category{}, cat).Error
	}
}

func main() {
	cfg := config.Load()

	db := data.MustMySQL(cfg.MySQLDSN)
	migrate(db)
	if err := data.LoadSettings(db); err != nil {
		log.Fatalf("settings: %v", err)
	}

	rdb := data.MustRedis(cfg.RedisURL)

	var nonces nonce.Store
	switch cfg.NonceBackend {
	case "memory":
		// Single-instance deployments only; consumption is atomic per
		// process, not across processes.
		nonces = nonce.NewMemory()
	default:
		nonces = nonce.NewRedis(rdb)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var votes webserver.VoteReader
	if cfg.ContractAddr != "" {
		client, err := chain.Dial(ctx, cfg.RPCURL, cfg.ContractAddr)
		if err != nil {
			log.Fatalf("chain: %v", err)
		}
		defer client.Close()
		votes = client
		go data.RunVoteIndexer(ctx, db, client, cfg.PollInterval)
	} else {
		log.Printf("REGISTRY_CONTRACT not set; serving mirrored vote counts only")
	}

	router := webserver.New(cfg, db, rdb, nonces, votes)
	httpSrv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		var err error
		if cfg.TLSCert != "" && cfg.TLSKey != "" {
			reloader, rerr := webserver.NewTLSReloader(cfg.TLSCert, cfg.TLSKey)
			if rerr != nil {
				log.Fatalf("tls: %v", rerr)
			}
			httpSrv.TLSConfig = reloader.GetConfig()
			err = httpSrv.ListenAndServeTLS("", "")
		} else {
			err = httpSrv.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			log.Fatalf("http: %v", err)
		}
	}()
	log.Printf("Dappboard API listening on %s", cfg.Port)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	cancel()

	shutCtx, cancelShut := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShut()
	_ = httpSrv.Shutdown(shutCtx)
}

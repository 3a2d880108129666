// Command registerdapps is a one-off maintenance tool: it finds directory
// entries that were never registered on-chain, recomputes their identity, and
// submits registration transactions with the configured registrar key.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"

	"github.com/dappboard/dappboard/src/api/data"
	"github.com/dappboard/dappboard/src/api/types"
	"github.com/dappboard/dappboard/src/shared/chain"
	"github.com/dappboard/dappboard/src/shared/identity"
)

func getenv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		log.Fatalf("missing env %s", key)
	}
	return v
}

func main() {
	dryRun := flag.Bool("dry-run", false, "compute and report without sending transactions")
	limit := flag.Int("limit", 0, "max entries to register (0 = all)")
	flag.Parse()

	dsn := getenv("MYSQL_DSN")
	rpcURL := getenv("RPC_URL")
	contractAddr := getenv("REGISTRY_CONTRACT")

	key, err := crypto.HexToECDSA(getenv("REGISTRAR_KEY"))
	if err != nil {
		log.Fatalf("registrar key: %v", err)
	}

	ctx := context.Background()
	db := data.MustMySQL(dsn)
	client, err := chain.Dial(ctx, rpcURL, contractAddr)
	if err != nil {
		log.Fatalf("chain: %v", err)
	}
	defer client.Close()

	var pending []types.Dapp
	q := db.Where("registered = ?", false).Order("id")
	if *limit > 0 {
		q = q.Limit(*limit)
	}
	if err := q.Find(&pending).Error; err != nil {
		log.Fatalf("load pending dapps: %v", err)
	}
	if len(pending) == 0 {
		log.Printf("nothing to register")
		return
	}

	batch := uuid.NewString()
	log.Printf("batch %s: registering %d dapps", batch, len(pending))

	var failed int
	for _, dapp := range pending {
		id, err := identity.DeriveDappID(dapp.Name, dapp.URL)
		if err != nil {
			log.Printf("batch %s: dapp %d: derive: %v", batch, dapp.ID, err)
			failed++
			continue
		}
		// A stored identity that no longer matches means the row was edited
		// after submission; registering it would orphan existing votes.
		if hex := identity.Hex(id); hex != dapp.OnchainID {
			log.Printf("batch %s: dapp %d: stored identity %s != derived %s, skipping",
				batch, dapp.ID, dapp.OnchainID, hex)
			failed++
			continue
		}

		if *dryRun {
			log.Printf("batch %s: dapp %d (%s) would register as %s", batch, dapp.ID, dapp.Name, dapp.OnchainID)
			continue
		}

		txHash, err := client.Register(ctx, key, id, dapp.Name, dapp.URL)
		if err != nil {
			log.Printf("batch %s: dapp %d: register: %v", batch, dapp.ID, err)
			failed++
			continue
		}
		if err := db.Model(&types.Dapp{}).Where("id = ?", dapp.ID).
			Update("registered", true).Error; err != nil {
			log.Printf("batch %s: dapp %d: mark registered: %v", batch, dapp.ID, err)
		}
		log.Printf("batch %s: dapp %d (%s) registered in tx %s", batch, dapp.ID, dapp.Name, txHash.Hex())

		// Spread transactions out so the registrar nonce never races.
		time.Sleep(2 * time.Second)
	}

	log.Printf("batch %s: done, %d failed", batch, failed)
}

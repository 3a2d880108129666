package data

import (
	"context"
	"log"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/dappboard/dappboard/src/api/types"
	"github.com/dappboard/dappboard/src/shared/chain"
	"github.com/dappboard/dappboard/src/shared/identity"
)

const (
	checkpointSetting = "vote_indexer_block"
	// Keep log scans bounded; public RPC providers reject wide ranges.
	maxBlockSpan = 2000
)

// RunVoteIndexer mirrors the registry's VoteCast events into MySQL so that
// profile pages can aggregate votes per address without a chain round-trip.
// The contract remains the source of truth for totals.
func RunVoteIndexer(ctx context.Context, db *gorm.DB, client *chain.Client, pollInterval int) {
	if pollInterval <= 0 {
		pollInterval = 30
	}
	ticker := time.NewTicker(time.Duration(pollInterval) * time.Second)
	defer ticker.Stop()

	for {
		if err := indexOnce(ctx, db, client); err != nil {
			log.Printf("vote indexer: %v", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func indexOnce(ctx context.Context, db *gorm.DB, client *chain.Client) error {
	head, err := client.BlockNumber(ctx)
	if err != nil {
		return err
	}

	from := uint64(0)
	if v := GetSetting(checkpointSetting); v != "" {
		last, err := strconv.ParseUint(v, 10, 64)
		if err == nil {
			from = last + 1
		}
	}
	if from > head {
		return nil
	}
	to := head
	if to-from > maxBlockSpan {
		to = from + maxBlockSpan
	}

	events, err := client.FilterVotes(ctx, from, to)
	if err != nil {
		return err
	}

	for _, ev := range events {
		vote := types.Vote{
			OnchainID:   identity.Hex(ev.DappID),
			Voter:       strings.ToLower(ev.Voter.Hex()),
			TxHash:      ev.TxHash.Hex(),
			BlockNumber: ev.BlockNumber,
			CreatedAt:   time.Now(),
		}
		// Re-scanned ranges produce duplicate tx hashes; skip them.
		if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&vote).Error; err != nil {
			log.Printf("vote indexer: store %s: %v", vote.TxHash, err)
		}
	}
	if len(events) > 0 {
		log.Printf("vote indexer: mirrored %d votes in blocks %d-%d", len(events), from, to)
	}

	return SetSetting(db, checkpointSetting, strconv.FormatUint(to, 10))
}

package webserver

import (
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/dappboard/dappboard/src/api/config"
	"github.com/dappboard/dappboard/src/api/nonce"
)

// New builds the gin engine with all routes attached. The chain client is
// optional; without it dapp detail falls back to the mirrored vote table.
func New(cfg config.Config, db *gorm.DB, rdb *redis.Client, nonces nonce.Store, votes VoteReader) *gin.Engine {
	g := gin.New()
	g.Use(gin.Logger(), gin.Recovery())
	attachRoutes(g, cfg, db, rdb, nonces, votes)
	return g
}

package webserver

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/dappboard/dappboard/src/api/config"
	"github.com/dappboard/dappboard/src/api/nonce"
	"github.com/dappboard/dappboard/src/api/wallets"
)

func attachRoutes(r *gin.Engine, cfg config.Config, db *gorm.DB, rdb *redis.Client, nonces nonce.Store, votes VoteReader) {
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:3000", "https://dappboard.xyz"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}))

	secret := []byte(cfg.JWTSecret)
	mgr := wallets.NewManager(db)

	authH := NewAuth(nonces, secret, db, mgr)
	profH := NewProfiles(db, mgr)
	walletH := NewWallets(mgr, nonces)
	dappH := NewDapps(db, rdb, votes)

	limiter := NewRateLimiter(60, time.Minute)

	v1 := r.Group("/v1")
	v1.Use(RateLimitMiddleware(limiter))
	{
		v1.POST("/auth/challenge", authH.Challenge)
		v1.POST("/auth/verify", authH.Verify)
		// Sessions are stateless bearer tokens; there is nothing to revoke
		// server-side. The route exists so clients have a uniform call.
		v1.POST("/auth/logout", func(c *gin.Context) { c.Status(http.StatusNoContent) })

		v1.GET("/dapps", dappH.List)
		v1.GET("/dapps/:id", dappH.Get)
		v1.GET("/users/:handle", OptionalJWT(secret), profH.GetPublic)

		secured := v1.Group("")
		secured.Use(JWTMiddleware(secret))
		{
			secured.GET("/me", profH.Me)
			secured.PUT("/me", profH.Update)

			secured.GET("/me/wallets", walletH.List)
			secured.POST("/me/wallets", walletH.Link)
			secured.DELETE("/me/wallets/:address", walletH.Unlink)
			secured.PUT("/me/wallets/display", walletH.SetDisplay)

			secured.POST("/dapps", dappH.Create)
			secured.PUT("/dapps/:id/favorite", dappH.Favorite)
			secured.DELETE("/dapps/:id/favorite", dappH.Unfavorite)
		}
	}
}

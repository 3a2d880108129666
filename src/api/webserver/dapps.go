package webserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math/big"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/OneOfOne/xxhash"
	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/microcosm-cc/bluemonday"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/dappboard/dappboard/src/api/types"
	"github.com/dappboard/dappboard/src/shared/identity"
)

const (
	listCacheTTL  = 30 * time.Second
	votesCacheTTL = 15 * time.Second
	maxPageSize   = 100
)

// VoteReader is the slice of the chain client the API needs: live totals for
// one identifier.
type VoteReader interface {
	Votes(ctx context.Context, dappID [32]byte) (*big.Int, error)
}

type Dapps struct {
	db        *gorm.DB
	rdb       *redis.Client
	votes     VoteReader
	sanitizer *bluemonday.Policy
}

func NewDapps(db *gorm.DB, rdb *redis.Client, votes VoteReader) Dapps {
	return Dapps{db: db, rdb: rdb, votes: votes, sanitizer: bluemonday.StrictPolicy()}
}

func (d Dapps) Create(c *gin.Context) {
	var req struct {
		Name        string `json:"name" binding:"required,min=1,max=255"`
		URL         string `json:"url"  binding:"required"`
		Description string `json:"description"`
		CategoryID  uint8  `json:"categoryId"`
		LogoURL     string `json:"logoUrl"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"err": err.Error()})
		return
	}
	if u, err := url.Parse(req.URL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		c.JSON(http.StatusBadRequest, gin.H{"err": "url must be an http(s) URL"})
		return
	}

	id, err := identity.DeriveDappID(req.Name, req.URL)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"err": err.Error()})
		return
	}
	onchainID := identity.Hex(id)

	var existing int64
	d.db.Model(&types.Dapp{}).Where("onchain_id = ?", onchainID).Count(&existing)
	if existing > 0 {
		c.JSON(http.StatusConflict, gin.H{"err": "dapp already listed"})
		return
	}

	dapp := types.Dapp{
		Name:        req.Name,
		URL:         req.URL,
		Description: d.sanitizer.Sanitize(req.Description),
		CategoryID:  req.CategoryID,
		LogoURL:     req.LogoURL,
		OnchainID:   onchainID,
		Submitter:   c.GetString("addr"),
	}
	if err := d.db.Create(&dapp).Error; err != nil {
		log.Printf("dapps: create %q: %v", req.Name, err)
		c.JSON(http.StatusInternalServerError, gin.H{"err": "create failed"})
		return
	}
	c.JSON(http.StatusCreated, dapp)
}

// List serves paginated directory pages. Pages are cached in Redis under a
// hash of the normalized query so hot searches skip MySQL.
func (d Dapps) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if limit < 1 || limit > maxPageSize {
		limit = 20
	}
	q := strings.TrimSpace(c.Query("q"))
	category := strings.TrimSpace(c.Query("category"))

	cacheKey := listCacheKey(page, limit, q, category)
	if d.rdb != nil {
		if cached, err := d.rdb.Get(c, cacheKey).Result(); err == nil {
			c.Data(http.StatusOK, "application/json", []byte(cached))
			return
		}
	}

	tx := d.db.Model(&types.Dapp{})
	if q != "" {
		like := "%" + q + "%"
		tx = tx.Where("name LIKE ? OR description LIKE ?", like, like)
	}
	if category != "" {
		var cat types.Category
		if err := d.db.First(&cat, "slug = ?", category).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"err": "no such category"})
			return
		}
		tx = tx.Where("category_id = ?", cat.ID)
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"err": err.Error()})
		return
	}
	var rows []types.Dapp
	if err := tx.Order("created_at DESC").
		Offset((page - 1) * limit).Limit(limit).
		Find(&rows).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"err": err.Error()})
		return
	}

	payload := gin.H{"dapps": rows, "total": total, "page": page, "limit": limit}
	c.JSON(http.StatusOK, payload)
	if d.rdb != nil {
		if body, err := json.Marshal(payload); err == nil {
			_ = d.rdb.Set(context.Background(), cacheKey, body, listCacheTTL).Err()
		}
	}
}

func (d Dapps) Get(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"err": "bad dapp id"})
		return
	}

	var dapp types.Dapp
	if err := d.db.First(&dapp, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"err": "dapp not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"err": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"dapp": dapp, "votes": d.voteTotal(c, dapp.OnchainID)})
}

// voteTotal prefers the live contract read (short Redis cache in front);
// without a chain client it falls back to the mirrored event table.
func (d Dapps) voteTotal(c *gin.Context, onchainID string) string {
	cacheKey := "votes:" + onchainID
	if d.rdb != nil {
		if cached, err := d.rdb.Get(c, cacheKey).Result(); err == nil {
			return cached
		}
	}

	var total string
	if d.votes != nil {
		n, err := d.votes.Votes(c, common.HexToHash(onchainID))
		if err != nil {
			log.Printf("dapps: chain votes for %s: %v", onchainID, err)
		} else {
			total = n.String()
		}
	}
	if total == "" {
		var mirrored int64
		d.db.Model(&types.Vote{}).Where("onchain_id = ?", onchainID).Count(&mirrored)
		total = strconv.FormatInt(mirrored, 10)
	}

	if d.rdb != nil {
		_ = d.rdb.Set(context.Background(), cacheKey, total, votesCacheTTL).Err()
	}
	return total
}

func (d Dapps) Favorite(c *gin.Context) {
	d.setFavorite(c, true)
}

func (d Dapps) Unfavorite(c *gin.Context) {
	d.setFavorite(c, false)
}

func (d Dapps) setFavorite(c *gin.Context, on bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"err": "bad dapp id"})
		return
	}
	var count int64
	d.db.Model(&types.Dapp{}).Where("id = ?", id).Count(&count)
	if count == 0 {
		c.JSON(http.StatusNotFound, gin.H{"err": "dapp not found"})
		return
	}

	addr := c.GetString("addr")
	if on {
		err = d.db.FirstOrCreate(&types.Favorite{}, types.Favorite{
			AccountAddress: addr,
			DappID:         id,
		}).Error
	} else {
		err = d.db.Where("account_address = ? AND dapp_id = ?", addr, id).
			Delete(&types.Favorite{}).Error
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"err": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// listCacheKey hashes the normalized query into a short stable Redis key.
func listCacheKey(page, limit int, q, category string) string {
	h := xxhash.NewS64(0)
	fmt.Fprintf(h, "%d|%d|%s|%s", page, limit, strings.ToLower(q), category)
	return fmt.Sprintf("dapps:list:%x", h.Sum64())
}

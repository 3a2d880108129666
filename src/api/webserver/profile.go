package webserver

import (
	"errors"
	"log"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/microcosm-cc/bluemonday"
	"gorm.io/gorm"

	"github.com/dappboard/dappboard/src/api/types"
	"github.com/dappboard/dappboard/src/api/wallets"
)

const maxBioLen = 1000

var usernameRe = regexp.MustCompile(`^[A-Za-z0-9_-]{3,50}$`)

type Profiles struct {
	db        *gorm.DB
	mgr       *wallets.Manager
	sanitizer *bluemonday.Policy
}

func NewProfiles(db *gorm.DB, mgr *wallets.Manager) Profiles {
	return Profiles{db: db, mgr: mgr, sanitizer: bluemonday.StrictPolicy()}
}

func accountView(a *types.Account) gin.H {
	return gin.H{
		"address":        a.Address,
		"displayAddress": a.DisplayAddress,
		"username":       a.Username,
		"bio":            a.Bio,
		"avatarUrl":      a.AvatarURL,
		"createdAt":      a.CreatedAt,
		"updatedAt":      a.UpdatedAt,
	}
}

func (p Profiles) Me(c *gin.Context) {
	addr := c.GetString("addr")

	var acct types.Account
	if err := p.db.First(&acct, "address = ?", addr).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"err": "account not found"})
		return
	}
	set, err := p.mgr.List(addr)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"err": err.Error()})
		return
	}

	var favs []uint64
	p.db.Model(&types.Favorite{}).Where("account_address = ?", addr).Pluck("dapp_id", &favs)

	out := accountView(&acct)
	out["wallets"] = set
	out["favorites"] = favs
	c.JSON(http.StatusOK, out)
}

// GetPublic resolves an address or username to the owning account and returns
// the public view plus submission/vote counts aggregated across the account's
// whole address set. A valid session for that account adds the wallet list.
func (p Profiles) GetPublic(c *gin.Context) {
	handle := c.Param("handle")

	var acct *types.Account
	if common.IsHexAddress(handle) {
		found, err := p.mgr.Resolve(handle)
		if err != nil {
			if errors.Is(err, wallets.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"err": "no such account"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"err": err.Error()})
			return
		}
		acct = found
	} else {
		var byName types.Account
		if err := p.db.First(&byName, "username = ?", handle).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"err": "no such account"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"err": err.Error()})
			return
		}
		acct = &byName
	}

	addrs, err := p.mgr.Addresses(acct.Address)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"err": err.Error()})
		return
	}

	var submissions, voteCount int64
	p.db.Model(&types.Dapp{}).Where("submitter IN ?", addrs).Count(&submissions)
	p.db.Model(&types.Vote{}).Where("voter IN ?", addrs).Count(&voteCount)

	out := gin.H{
		"displayAddress": acct.DisplayAddress,
		"username":       acct.Username,
		"bio":            acct.Bio,
		"avatarUrl":      acct.AvatarURL,
		"submissions":    submissions,
		"votes":          voteCount,
		"createdAt":      acct.CreatedAt,
	}
	if viewer := c.GetString("addr"); viewer == acct.Address {
		set, err := p.mgr.List(acct.Address)
		if err == nil {
			out["wallets"] = set
		}
	}
	c.JSON(http.StatusOK, out)
}

func (p Profiles) Update(c *gin.Context) {
	addr := c.GetString("addr")

	var req struct {
		Username  *string `json:"username"`
		Bio       *string `json:"bio"`
		AvatarURL *string `json:"avatarUrl"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"err": err.Error()})
		return
	}

	updates := map[string]interface{}{}

	if req.Username != nil {
		name := strings.TrimSpace(*req.Username)
		if !usernameRe.MatchString(name) {
			c.JSON(http.StatusBadRequest, gin.H{"err": "username must be 3-50 chars of [A-Za-z0-9_-]"})
			return
		}
		var taken int64
		p.db.Model(&types.Account{}).
			Where("username = ? AND address <> ?", name, addr).
			Count(&taken)
		if taken > 0 {
			c.JSON(http.StatusConflict, gin.H{"err": "username taken"})
			return
		}
		updates["username"] = name
	}
	if req.Bio != nil {
		bio := p.sanitizer.Sanitize(*req.Bio)
		if len(bio) > maxBioLen {
			c.JSON(http.StatusBadRequest, gin.H{"err": "bio too long"})
			return
		}
		updates["bio"] = bio
	}
	if req.AvatarURL != nil {
		if *req.AvatarURL != "" {
			u, err := url.Parse(*req.AvatarURL)
			if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
				c.JSON(http.StatusBadRequest, gin.H{"err": "avatarUrl must be an http(s) URL"})
				return
			}
		}
		updates["avatar_url"] = *req.AvatarURL
	}

	if len(updates) > 0 {
		res := p.db.Model(&types.Account{}).Where("address = ?", addr).Updates(updates)
		if res.Error != nil {
			// Racing username writes land on the unique index.
			if strings.Contains(strings.ToLower(res.Error.Error()), "unique") ||
				strings.Contains(strings.ToLower(res.Error.Error()), "duplicate") {
				c.JSON(http.StatusConflict, gin.H{"err": "username taken"})
				return
			}
			log.Printf("profile: update %s: %v", addr, res.Error)
			c.JSON(http.StatusInternalServerError, gin.H{"err": "update failed"})
			return
		}
	}

	var acct types.Account
	if err := p.db.First(&acct, "address = ?", addr).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"err": err.Error()})
		return
	}
	c.JSON(http.StatusOK, accountView(&acct))
}

package webserver

import (
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/dappboard/dappboard/src/api/nonce"
	"github.com/dappboard/dappboard/src/api/types"
	"github.com/dappboard/dappboard/src/api/wallets"
)

type Auth struct {
	nonces    nonce.Store
	jwtSecret []byte
	db        *gorm.DB
	mgr       *wallets.Manager
}

func NewAuth(nonces nonce.Store, secret []byte, db *gorm.DB, mgr *wallets.Manager) Auth {
	return Auth{nonces: nonces, jwtSecret: secret, db: db, mgr: mgr}
}

func (a Auth) Challenge(c *gin.Context) {
	var req struct {
		Address string `json:"address" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"err": err.Error()})
		return
	}
	if !common.IsHexAddress(req.Address) {
		c.JSON(http.StatusBadRequest, gin.H{"err": "invalid address format"})
		return
	}
	addr := strings.ToLower(req.Address)

	rec, err := a.nonces.Issue(c, addr)
	if err != nil {
		log.Printf("auth: issue nonce for %s: %v", addr, err)
		c.JSON(http.StatusInternalServerError, gin.H{"err": "failed to create challenge"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"nonce":   rec.Value,
		"message": nonce.ChallengeMessage(addr, rec.Value, time.Now()),
	})
}

// Verify checks the signed challenge and opens a session. Order matters: the
// nonce is consumed immediately after the signature checks out and before any
// account work, so a failed later step can never be replayed with the same
// signed message.
func (a Auth) Verify(c *gin.Context) {
	var req struct {
		Address   string `json:"address"   binding:"required"`
		Message   string `json:"message"   binding:"required"`
		Signature string `json:"signature" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"err": err.Error()})
		return
	}
	if !common.IsHexAddress(req.Address) {
		c.JSON(http.StatusBadRequest, gin.H{"err": "invalid address format"})
		return
	}
	addr := strings.ToLower(req.Address)

	rec, err := a.nonces.Get(c, addr)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"err": "challenge expired or not found"})
		return
	}
	// The signature must cover the challenge on record, not just any text
	// that happens to recover the right address.
	if !strings.Contains(req.Message, rec.Value) {
		c.JSON(http.StatusUnauthorized, gin.H{"err": "message does not contain challenge"})
		return
	}
	if !verifySignature(addr, req.Message, req.Signature) {
		c.JSON(http.StatusUnauthorized, gin.H{"err": "bad signature"})
		return
	}
	if err := a.nonces.Consume(c, addr); err != nil {
		// A concurrent sign-in won the race for this nonce.
		c.JSON(http.StatusUnauthorized, gin.H{"err": "challenge already used"})
		return
	}

	// A linked wallet authenticates its owning account; only a genuinely
	// unknown address creates a fresh one. The session principal is always
	// the account's primary address.
	acct, err := a.mgr.Resolve(addr)
	if errors.Is(err, wallets.ErrNotFound) {
		fresh := types.Account{Address: addr, DisplayAddress: addr}
		if err := a.db.Create(&fresh).Error; err != nil {
			log.Printf("auth: create account for %s: %v", addr, err)
			c.JSON(http.StatusInternalServerError, gin.H{"err": "account creation failed"})
			return
		}
		acct = &fresh
	} else if err != nil {
		log.Printf("auth: account for %s: %v", addr, err)
		c.JSON(http.StatusInternalServerError, gin.H{"err": "account lookup failed"})
		return
	}

	token, err := issueJWT(acct.Address, a.jwtSecret)
	if err != nil {
		log.Printf("auth: issue token for %s: %v", addr, err)
		c.JSON(http.StatusInternalServerError, gin.H{"err": "token issuance failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "user": accountView(acct)})
}

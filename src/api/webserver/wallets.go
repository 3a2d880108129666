package webserver

import (
	"errors"
	"net/http"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"

	"github.com/dappboard/dappboard/src/api/nonce"
	"github.com/dappboard/dappboard/src/api/wallets"
)

type Wallets struct {
	mgr    *wallets.Manager
	nonces nonce.Store
}

func NewWallets(mgr *wallets.Manager, nonces nonce.Store) Wallets {
	return Wallets{mgr: mgr, nonces: nonces}
}

func (w Wallets) List(c *gin.Context) {
	set, err := w.mgr.List(c.GetString("addr"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"err": err.Error()})
		return
	}
	c.JSON(http.StatusOK, set)
}

// Link attaches a new wallet after the same proof-of-control dance as
// sign-in: a challenge issued to the new address, signed by the new address,
// consumed before anything is written.
func (w Wallets) Link(c *gin.Context) {
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
	newAddr := strings.ToLower(req.Address)

	rec, err := w.nonces.Get(c, newAddr)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"err": "challenge expired or not found"})
		return
	}
	if !strings.Contains(req.Message, rec.Value) {
		c.JSON(http.StatusUnauthorized, gin.H{"err": "message does not contain challenge"})
		return
	}
	if !verifySignature(newAddr, req.Message, req.Signature) {
		c.JSON(http.StatusUnauthorized, gin.H{"err": "bad signature"})
		return
	}
	if err := w.nonces.Consume(c, newAddr); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"err": "challenge already used"})
		return
	}

	switch err := w.mgr.Link(c.GetString("addr"), newAddr); {
	case err == nil:
		set, _ := w.mgr.List(c.GetString("addr"))
		c.JSON(http.StatusOK, set)
	case errors.Is(err, wallets.ErrAlreadyLinked):
		c.JSON(http.StatusConflict, gin.H{"err": "address already belongs to an account"})
	case errors.Is(err, wallets.ErrCapacity):
		c.JSON(http.StatusBadRequest, gin.H{"err": "wallet limit reached"})
	case errors.Is(err, wallets.ErrNotFound):
		c.JSON(http.StatusUnauthorized, gin.H{"err": "account not found"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"err": err.Error()})
	}
}

func (w Wallets) Unlink(c *gin.Context) {
	target := c.Param("address")
	if !common.IsHexAddress(target) {
		c.JSON(http.StatusBadRequest, gin.H{"err": "invalid address format"})
		return
	}

	switch err := w.mgr.Unlink(c.GetString("addr"), target); {
	case err == nil:
		set, _ := w.mgr.List(c.GetString("addr"))
		c.JSON(http.StatusOK, set)
	case errors.Is(err, wallets.ErrNotLinked):
		c.JSON(http.StatusBadRequest, gin.H{"err": "address not linked to this account"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"err": err.Error()})
	}
}

func (w Wallets) SetDisplay(c *gin.Context) {
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

	display, err := w.mgr.SetDisplay(c.GetString("addr"), req.Address)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"displayAddress": display})
	case errors.Is(err, wallets.ErrNotOwned):
		c.JSON(http.StatusBadRequest, gin.H{"err": "address not in account's set"})
	case errors.Is(err, wallets.ErrNotFound):
		c.JSON(http.StatusUnauthorized, gin.H{"err": "account not found"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"err": err.Error()})
	}
}

// Package wallets manages the set of addresses attached to an account:
// linking, unlinking, and the display address. Cryptographic proof of control
// over a new address is the caller's job (the link handler runs the same
// nonce+signature check as sign-in); this package enforces the set invariants.
package wallets

import (
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/dappboard/dappboard/src/api/types"
)

// MaxAddresses caps the total address set, primary included.
const MaxAddresses = 5

var (
	ErrNotFound      = errors.New("wallets: account not found")
	ErrAlreadyLinked = errors.New("wallets: address already belongs to an account")
	ErrCapacity      = errors.New("wallets: address limit reached")
	ErrNotLinked     = errors.New("wallets: address not linked to this account")
	ErrNotOwned      = errors.New("wallets: address not in account's set")
)

type Manager struct {
	db *gorm.DB
}

func NewManager(db *gorm.DB) *Manager {
	return &Manager{db: db}
}

type WalletSet struct {
	Primary string   `json:"primary"`
	Display string   `json:"display"`
	Linked  []string `json:"linked"`
}

// Link attaches newAddr to the account owning ownerAddr. One address belongs
// to one account globally, whether as primary or linked.
func (m *Manager) Link(ownerAddr, newAddr string) error {
	owner := strings.ToLower(ownerAddr)
	addr := strings.ToLower(newAddr)

	return m.db.Transaction(func(tx *gorm.DB) error {
		var acct types.Account
		if err := tx.First(&acct, "address = ?", owner).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		var taken int64
		if err := tx.Model(&types.Account{}).Where("address = ?", addr).Count(&taken).Error; err != nil {
			return err
		}
		if taken > 0 {
			return ErrAlreadyLinked
		}
		if err := tx.Model(&types.LinkedWallet{}).Where("address = ?", addr).Count(&taken).Error; err != nil {
			return err
		}
		if taken > 0 {
			return ErrAlreadyLinked
		}

		var linked int64
		if err := tx.Model(&types.LinkedWallet{}).Where("account_address = ?", owner).Count(&linked).Error; err != nil {
			return err
		}
		if linked+1 >= MaxAddresses {
			return ErrCapacity
		}

		return tx.Create(&types.LinkedWallet{
			Address:        addr,
			AccountAddress: owner,
			CreatedAt:      time.Now(),
		}).Error
	})
}

// Unlink removes target from the linked set. When target is the current
// display address the display falls back to the primary in the same
// transaction, so no reader ever observes a dangling display.
// The primary address itself is never in the linked set and so cannot be
// unlinked; attempts report ErrNotLinked.
func (m *Manager) Unlink(ownerAddr, targetAddr string) error {
	owner := strings.ToLower(ownerAddr)
	target := strings.ToLower(targetAddr)

	return m.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Where("address = ? AND account_address = ?", target, owner).
			Delete(&types.LinkedWallet{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotLinked
		}
		return tx.Model(&types.Account{}).
			Where("address = ? AND display_address = ?", owner, target).
			Update("display_address", owner).Error
	})
}

// SetDisplay switches the public-facing address. Target must already be the
// primary or a linked address of the account.
func (m *Manager) SetDisplay(ownerAddr, targetAddr string) (string, error) {
	owner := strings.ToLower(ownerAddr)
	target := strings.ToLower(targetAddr)

	err := m.db.Transaction(func(tx *gorm.DB) error {
		var acct types.Account
		if err := tx.First(&acct, "address = ?", owner).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if target != owner {
			var n int64
			if err := tx.Model(&types.LinkedWallet{}).
				Where("address = ? AND account_address = ?", target, owner).
				Count(&n).Error; err != nil {
				return err
			}
			if n == 0 {
				return ErrNotOwned
			}
		}
		return tx.Model(&types.Account{}).
			Where("address = ?", owner).
			Update("display_address", target).Error
	})
	if err != nil {
		return "", err
	}
	return target, nil
}

// List returns the full address set for the account.
func (m *Manager) List(ownerAddr string) (WalletSet, error) {
	owner := strings.ToLower(ownerAddr)

	var acct types.Account
	if err := m.db.First(&acct, "address = ?", owner).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return WalletSet{}, ErrNotFound
		}
		return WalletSet{}, err
	}

	var rows []types.LinkedWallet
	if err := m.db.Where("account_address = ?", owner).
		Order("created_at").Find(&rows).Error; err != nil {
		return WalletSet{}, err
	}

	set := WalletSet{Primary: acct.Address, Display: acct.DisplayAddress, Linked: []string{}}
	for _, w := range rows {
		set.Linked = append(set.Linked, w.Address)
	}
	return set, nil
}

// Addresses returns primary plus linked, used for cross-wallet aggregation.
func (m *Manager) Addresses(ownerAddr string) ([]string, error) {
	set, err := m.List(ownerAddr)
	if err != nil {
		return nil, err
	}
	return append([]string{set.Primary}, set.Linked...), nil
}

// Resolve finds the account owning addr, whether primary or linked.
func (m *Manager) Resolve(addr string) (*types.Account, error) {
	a := strings.ToLower(addr)

	var acct types.Account
	err := m.db.First(&acct, "address = ?", a).Error
	if err == nil {
		return &acct, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	var link types.LinkedWallet
	if err := m.db.First(&link, "address = ?", a).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if err := m.db.First(&acct, "address = ?", link.AccountAddress).Error; err != nil {
		return nil, err
	}
	return &acct, nil
}

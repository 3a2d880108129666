package types

import "time"

// Accounts are keyed by the primary wallet address (lowercase hex). The
// display address must always be the primary or one of the linked addresses.
type Account struct {
	Address        string  `gorm:"primaryKey;size:42"`
	DisplayAddress string  `gorm:"size:42;not null"`
	Username       *string `gorm:"size:50;uniqueIndex"`
	Bio            string  `gorm:"size:1000"`
	AvatarURL      string  `gorm:"size:512"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Secondary wallets proven and attached to an account. An address appears at
// most once across the whole table and never equals any account's primary.
type LinkedWallet struct {
	Address        string `gorm:"primaryKey;size:42"`
	AccountAddress string `gorm:"index;size:42;not null"`
	CreatedAt      time.Time
}

type Category struct {
	ID   uint8  `gorm:"primaryKey"`
	Name string `gorm:"size:64;unique;not null"`
	Slug string `gorm:"size:64;unique;not null"`
}

// Directory entries. OnchainID is the keccak identity derived at submission
// time; it is the join key against the registry contract's vote ledger.
type Dapp struct {
	ID          uint64 `gorm:"primaryKey"`
	Name        string `gorm:"size:255;not null"`
	URL         string `gorm:"size:512;not null"`
	Description string `gorm:"type:text"`
	CategoryID  uint8  `gorm:"index"`
	LogoURL     string `gorm:"size:512"`
	OnchainID   string `gorm:"size:66;uniqueIndex;not null"`
	Registered  bool   `gorm:"default:false"`
	Submitter   string `gorm:"size:42;index;not null"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Favorite struct {
	ID             uint64 `gorm:"primaryKey"`
	AccountAddress string `gorm:"size:42;uniqueIndex:idx_fav,priority:1;not null"`
	DappID         uint64 `gorm:"uniqueIndex:idx_fav,priority:2;not null"`
	CreatedAt      time.Time
}

// Mirror of the contract's VoteCast events, filled by the indexer. The
// contract stays authoritative for totals; this table only feeds per-address
// aggregation on public profiles.
type Vote struct {
	ID          uint64 `gorm:"primaryKey"`
	OnchainID   string `gorm:"size:66;index;not null"`
	Voter       string `gorm:"size:42;index;not null"`
	TxHash      string `gorm:"size:66;uniqueIndex;not null"`
	BlockNumber uint64 `gorm:"not null"`
	CreatedAt   time.Time
}

type Setting struct {
	Name  string `gorm:"primaryKey;size:64"`
	Value string `gorm:"size:256;not null"`
}

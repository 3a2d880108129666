package wallets

import (
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/dappboard/dappboard/src/api/types"
)

const (
	primaryA = "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	primaryB = "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&types.Account{}, &types.LinkedWallet{}))
	return db
}

func seedAccount(t *testing.T, db *gorm.DB, addr string) {
	t.Helper()
	require.NoError(t, db.Create(&types.Account{
		Address:        addr,
		DisplayAddress: addr,
		CreatedAt:      time.Now(),
		UpdatedAt:      time.Now(),
	}).Error)
}

func linkAddr(i int) string {
	return fmt.Sprintf("0x%040x", 0x1000+i)
}

func TestLinkAndList(t *testing.T) {
	db := testDB(t)
	seedAccount(t, db, primaryA)
	m := NewManager(db)

	require.NoError(t, m.Link(primaryA, linkAddr(1)))

	set, err := m.List(primaryA)
	require.NoError(t, err)
	assert.Equal(t, primaryA, set.Primary)
	assert.Equal(t, primaryA, set.Display)
	assert.Equal(t, []string{linkAddr(1)}, set.Linked)
}

func TestLinkNormalizesCase(t *testing.T) {
	db := testDB(t)
	seedAccount(t, db, primaryA)
	m := NewManager(db)

	require.NoError(t, m.Link(primaryA, "0xAbC4111111111111111111111111111111111111"))
	assert.ErrorIs(t, m.Link(primaryA, "0xabc4111111111111111111111111111111111111"), ErrAlreadyLinked)
}

func TestLinkCapacity(t *testing.T) {
	db := testDB(t)
	seedAccount(t, db, primaryA)
	m := NewManager(db)

	// 1 primary + 4 linked fills the set.
	for i := 0; i < MaxAddresses-1; i++ {
		require.NoError(t, m.Link(primaryA, linkAddr(i)))
	}
	assert.ErrorIs(t, m.Link(primaryA, linkAddr(99)), ErrCapacity)
}

func TestLinkTakenElsewhere(t *testing.T) {
	db := testDB(t)
	seedAccount(t, db, primaryA)
	seedAccount(t, db, primaryB)
	m := NewManager(db)

	require.NoError(t, m.Link(primaryB, linkAddr(7)))
	assert.ErrorIs(t, m.Link(primaryA, linkAddr(7)), ErrAlreadyLinked)

	// Another account's primary is just as unavailable.
	assert.ErrorIs(t, m.Link(primaryA, primaryB), ErrAlreadyLinked)
}

func TestLinkUnknownAccount(t *testing.T) {
	db := testDB(t)
	m := NewManager(db)
	assert.ErrorIs(t, m.Link(primaryA, linkAddr(1)), ErrNotFound)
}

func TestUnlinkResetsDisplay(t *testing.T) {
	db := testDB(t)
	seedAccount(t, db, primaryA)
	m := NewManager(db)

	require.NoError(t, m.Link(primaryA, linkAddr(1)))
	_, err := m.SetDisplay(primaryA, linkAddr(1))
	require.NoError(t, err)

	require.NoError(t, m.Unlink(primaryA, linkAddr(1)))

	set, err := m.List(primaryA)
	require.NoError(t, err)
	assert.Equal(t, primaryA, set.Display)
	assert.Empty(t, set.Linked)
}

func TestUnlinkKeepsUnrelatedDisplay(t *testing.T) {
	db := testDB(t)
	seedAccount(t, db, primaryA)
	m := NewManager(db)

	require.NoError(t, m.Link(primaryA, linkAddr(1)))
	require.NoError(t, m.Link(primaryA, linkAddr(2)))
	_, err := m.SetDisplay(primaryA, linkAddr(2))
	require.NoError(t, err)

	require.NoError(t, m.Unlink(primaryA, linkAddr(1)))

	set, err := m.List(primaryA)
	require.NoError(t, err)
	assert.Equal(t, linkAddr(2), set.Display)
}

func TestUnlinkPrimaryRejected(t *testing.T) {
	db := testDB(t)
	seedAccount(t, db, primaryA)
	m := NewManager(db)
	assert.ErrorIs(t, m.Unlink(primaryA, primaryA), ErrNotLinked)
}

func TestUnlinkForeignWallet(t *testing.T) {
	db := testDB(t)
	seedAccount(t, db, primaryA)
	seedAccount(t, db, primaryB)
	m := NewManager(db)

	require.NoError(t, m.Link(primaryB, linkAddr(3)))
	assert.ErrorIs(t, m.Unlink(primaryA, linkAddr(3)), ErrNotLinked)
}

func TestSetDisplayRequiresMembership(t *testing.T) {
	db := testDB(t)
	seedAccount(t, db, primaryA)
	m := NewManager(db)

	_, err := m.SetDisplay(primaryA, linkAddr(5))
	assert.ErrorIs(t, err, ErrNotOwned)

	// Display unchanged after the rejection.
	set, err := m.List(primaryA)
	require.NoError(t, err)
	assert.Equal(t, primaryA, set.Display)
}

func TestSetDisplayToPrimary(t *testing.T) {
	db := testDB(t)
	seedAccount(t, db, primaryA)
	m := NewManager(db)

	got, err := m.SetDisplay(primaryA, primaryA)
	require.NoError(t, err)
	assert.Equal(t, primaryA, got)
}

func TestResolve(t *testing.T) {
	db := testDB(t)
	seedAccount(t, db, primaryA)
	m := NewManager(db)

	require.NoError(t, m.Link(primaryA, linkAddr(1)))

	acct, err := m.Resolve(linkAddr(1))
	require.NoError(t, err)
	assert.Equal(t, primaryA, acct.Address)

	acct, err = m.Resolve(primaryA)
	require.NoError(t, err)
	assert.Equal(t, primaryA, acct.Address)

	_, err = m.Resolve(linkAddr(42))
	assert.ErrorIs(t, err, ErrNotFound)
}

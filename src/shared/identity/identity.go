// Package identity derives the on-chain identifier that joins a directory
// entry to its vote bucket in the registry contract.
package identity

import (
	"errors"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

var ErrEmptyInput = errors.New("identity: name and url must be non-empty")

// dappIDArgs mirrors abi.encode(string,string) on the contract side. Both
// sides must produce byte-identical encodings or the join key breaks.
var dappIDArgs abi.Arguments

func init() {
	stringTy, err := abi.NewType("string", "", nil)
	if err != nil {
		panic(err)
	}
	dappIDArgs = abi.Arguments{{Type: stringTy}, {Type: stringTy}}
}

// DeriveDappID maps (name, url) to the 32-byte registry identifier.
// The name is lowercased; the url is hashed verbatim, trailing slashes and
// all. Keccak-256 over the ABI encoding of the pair.
func DeriveDappID(name, url string) ([32]byte, error) {
	var id [32]byte
	if name == "" || url == "" {
		return id, ErrEmptyInput
	}
	enc, err := dappIDArgs.Pack(strings.ToLower(name), url)
	if err != nil {
		return id, err
	}
	copy(id[:], crypto.Keccak256(enc))
	return id, nil
}

// Hex renders an identifier the way it is stored in the directory rows.
func Hex(id [32]byte) string {
	return hexutil.Encode(id[:])
}

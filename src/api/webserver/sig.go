package webserver

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// verifySignature recovers the signer of an EIP-191 personal message and
// compares it, case-insensitively, to the claimed address. Malformed input is
// a failed verification, not an error; callers get a single branch.
func verifySignature(address, message, sigHex string) bool {
	if !common.IsHexAddress(address) {
		return false
	}
	sig, err := hexutil.Decode(sigHex)
	if err != nil || len(sig) != crypto.SignatureLength {
		return false
	}

	// Wallets emit V as 27/28; go-ethereum expects 0/1.
	v := sig[crypto.RecoveryIDOffset]
	if v >= 27 {
		sig = append([]byte(nil), sig...)
		sig[crypto.RecoveryIDOffset] = v - 27
	}
	if sig[crypto.RecoveryIDOffset] > 1 {
		return false
	}

	pub, err := crypto.SigToPub(accounts.TextHash([]byte(message)), sig)
	if err != nil {
		return false
	}
	recovered := crypto.PubkeyToAddress(*pub)
	return strings.EqualFold(recovered.Hex(), address)
}

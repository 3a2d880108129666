// Package chain wraps the dapp registry contract behind a small JSON-RPC
// client: vote reads, VoteCast log scans, and registration transactions.
package chain

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
)

// registryABI is the fixed surface of the external vote registry. The
// contract's own logic is out of scope; we only speak its ABI.
const registryABI = `[
	{"type":"function","name":"votes","stateMutability":"view","inputs":[{"name":"dappId","type":"bytes32"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"register","stateMutability":"nonpayable","inputs":[{"name":"dappId","type":"bytes32"},{"name":"name","type":"string"},{"name":"url","type":"string"}],"outputs":[]},
	{"type":"event","name":"VoteCast","inputs":[{"name":"dappId","type":"bytes32","indexed":true},{"name":"voter","type":"address","indexed":true}],"anonymous":false}
]`

type Client struct {
	eth      *ethclient.Client
	registry abi.ABI
	addr     common.Address
}

type VoteEvent struct {
	DappID      [32]byte
	Voter       common.Address
	BlockNumber uint64
	TxHash      common.Hash
}

func Dial(ctx context.Context, rpcURL, contractAddr string) (*Client, error) {
	if !common.IsHexAddress(contractAddr) {
		return nil, fmt.Errorf("chain: bad contract address %q", contractAddr)
	}
	eth, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("chain: dial %s: %w", rpcURL, err)
	}
	registry, err := abi.JSON(strings.NewReader(registryABI))
	if err != nil {
		return nil, err
	}
	return &Client{eth: eth, registry: registry, addr: common.HexToAddress(contractAddr)}, nil
}

func (c *Client) Close() {
	c.eth.Close()
}

// Votes reads the live total for one identifier straight from the contract.
func (c *Client) Votes(ctx context.Context, dappID [32]byte) (*big.Int, error) {
	input, err := c.registry.Pack("votes", dappID)
	if err != nil {
		return nil, err
	}
	out, err := c.eth.CallContract(ctx, ethereum.CallMsg{To: &c.addr, Data: input}, nil)
	if err != nil {
		return nil, err
	}
	vals, err := c.registry.Unpack("votes", out)
	if err != nil {
		return nil, err
	}
	total, ok := vals[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("chain: unexpected votes return %T", vals[0])
	}
	return total, nil
}

func (c *Client) BlockNumber(ctx context.Context) (uint64, error) {
	return c.eth.BlockNumber(ctx)
}

// FilterVotes scans [from, to] for VoteCast logs.
func (c *Client) FilterVotes(ctx context.Context, from, to uint64) ([]VoteEvent, error) {
	event := c.registry.Events["VoteCast"]
	logs, err := c.eth.FilterLogs(ctx, ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(from),
		ToBlock:   new(big.Int).SetUint64(to),
		Addresses: []common.Address{c.addr},
		Topics:    [][]common.Hash{{event.ID}},
	})
	if err != nil {
		return nil, err
	}

	events := make([]VoteEvent, 0, len(logs))
	for _, lg := range logs {
		if len(lg.Topics) != 3 {
			continue
		}
		events = append(events, VoteEvent{
			DappID:      lg.Topics[1],
			Voter:       common.BytesToAddress(lg.Topics[2].Bytes()),
			BlockNumber: lg.BlockNumber,
			TxHash:      lg.TxHash,
		})
	}
	return events, nil
}

// Register submits a registration transaction signed with key and returns the
// transaction hash. Callers decide whether to wait for inclusion.
func (c *Client) Register(ctx context.Context, key *ecdsa.PrivateKey, dappID [32]byte, name, url string) (common.Hash, error) {
	input, err := c.registry.Pack("register", dappID, name, url)
	if err != nil {
		return common.Hash{}, err
	}

	from := crypto.PubkeyToAddress(key.PublicKey)
	pending, err := c.eth.PendingNonceAt(ctx, from)
	if err != nil {
		return common.Hash{}, err
	}
	chainID, err := c.eth.ChainID(ctx)
	if err != nil {
		return common.Hash{}, err
	}
	tipCap, err := c.eth.SuggestGasTipCap(ctx)
	if err != nil {
		return common.Hash{}, err
	}
	head, err := c.eth.HeaderByNumber(ctx, nil)
	if err != nil {
		return common.Hash{}, err
	}
	feeCap := new(big.Int).Add(tipCap, new(big.Int).Mul(head.BaseFee, big.NewInt(2)))

	gas, err := c.eth.EstimateGas(ctx, ethereum.CallMsg{From: from, To: &c.addr, Data: input})
	if err != nil {
		return common.Hash{}, err
	}

	tx := ethtypes.NewTx(&ethtypes.DynamicFeeTx{
		ChainID:   chainID,
		Nonce:     pending,
		GasTipCap: tipCap,
		GasFeeCap: feeCap,
		Gas:       gas,
		To:        &c.addr,
		Data:      input,
	})
	signed, err := ethtypes.SignTx(tx, ethtypes.LatestSignerForChainID(chainID), key)
	if err != nil {
		return common.Hash{}, err
	}
	if err := c.eth.SendTransaction(ctx, signed); err != nil {
		return common.Hash{}, err
	}
	return signed.Hash(), nil
}

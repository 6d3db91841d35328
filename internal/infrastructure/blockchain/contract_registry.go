package blockchain

import (
	"sort"
	"strings"

	"erc20-transfer-indexer/internal/domain/entity"

	"github.com/ethereum/go-ethereum/common"
)

// Mainnet ERC20 contracts recognized by the registry.
var knownTokens = []entity.KnownToken{
	{Symbol: "TUSD", Name: "TrueUSD", Address: common.HexToAddress("0x0000000000085d4780B73119b644AE5ecd22b376"), Decimals: 18},
	{Symbol: "LINK", Name: "ChainLink Token", Address: common.HexToAddress("0x514910771af9ca656af840dff83e8264ecf986ca"), Decimals: 18},
	{Symbol: "BNB", Name: "BNB", Address: common.HexToAddress("0xB8c77482e45F1F44dE1745F52C74426C631bDD52"), Decimals: 18},
	{Symbol: "USDC", Name: "USD Coin", Address: common.HexToAddress("0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48"), Decimals: 6},
	{Symbol: "WBTC", Name: "Wrapped BTC", Address: common.HexToAddress("0x2260fac5e5542a773aa44fbcfedf7c193bc2c599"), Decimals: 8},
	{Symbol: "cDAI", Name: "Compound Dai", Address: common.HexToAddress("0x5d3a536E4D6DbD6114cc1Ead35777bAB948E3643"), Decimals: 8},
	{Symbol: "OKB", Name: "OKB", Address: common.HexToAddress("0x75231f58b43240c9718dd58b4967c5114342a86c"), Decimals: 18},
	{Symbol: "CRO", Name: "Crypto.com Coin", Address: common.HexToAddress("0xa0b73e1ff0b80914ab6fe0444e65848c4c34450b"), Decimals: 8},
	{Symbol: "WFIL", Name: "Wrapped Filecoin", Address: common.HexToAddress("0x6e1A19F235bE7ED8E3369eF73b196C07257494DE"), Decimals: 18},
	{Symbol: "BAT", Name: "Basic Attention Token", Address: common.HexToAddress("0x0d8775f648430679a709e98d2b0cb6250d2887ef"), Decimals: 18},
	{Symbol: "BUSD", Name: "Binance USD", Address: common.HexToAddress("0x4fabb145d64652a948d72533023f6e7a623c7c53"), Decimals: 18},
	{Symbol: "USDT", Name: "Tether USD", Address: common.HexToAddress("0xdac17f958d2ee523a2206206994597c13d831ec7"), Decimals: 6},
	{Symbol: "LEO", Name: "Bitfinex LEO Token", Address: common.HexToAddress("0x2af5d2ad76741191d15dfe7bf6ac92d4bd912ca3"), Decimals: 18},
	{Symbol: "VEN", Name: "VeChain", Address: common.HexToAddress("0xd850942ef8811f2a866692a623011bde52a462c1"), Decimals: 18},
	{Symbol: "DAI", Name: "Dai Stablecoin", Address: common.HexToAddress("0x6b175474e89094c44da98b954eedeac495271d0f"), Decimals: 18},
	{Symbol: "UNI", Name: "Uniswap", Address: common.HexToAddress("0x1f9840a85d5af5bf1d1762f925bdaddc4201f984"), Decimals: 18},
}

// ContractRegistry is a read-only bidirectional index of known tokens.
type ContractRegistry struct {
	byAddress map[common.Address]entity.KnownToken
	bySymbol  map[string]entity.KnownToken
	tokens    []entity.KnownToken
}

var defaultContractRegistry = newContractRegistry(knownTokens)

// DefaultContractRegistry returns the shared registry of mainnet tokens.
func DefaultContractRegistry() *ContractRegistry {
	return defaultContractRegistry
}

func newContractRegistry(tokens []entity.KnownToken) *ContractRegistry {
	r := &ContractRegistry{
		byAddress: make(map[common.Address]entity.KnownToken, len(tokens)),
		bySymbol:  make(map[string]entity.KnownToken, len(tokens)),
		tokens:    make([]entity.KnownToken, len(tokens)),
	}
	copy(r.tokens, tokens)
	sort.Slice(r.tokens, func(i, j int) bool {
		return strings.ToUpper(r.tokens[i].Symbol) < strings.ToUpper(r.tokens[j].Symbol)
	})
	for _, t := range r.tokens {
		r.byAddress[t.Address] = t
		r.bySymbol[strings.ToUpper(t.Symbol)] = t
	}
	return r
}

// Resolve returns the token at address. The boolean is false for unregistered
// addresses; it never fails.
func (r *ContractRegistry) Resolve(address common.Address) (entity.KnownToken, bool) {
	t, ok := r.byAddress[address]
	return t, ok
}

// ResolveHex resolves a textual address in any letter case. Text that is not a
// 20-byte hex address is unregistered.
func (r *ContractRegistry) ResolveHex(address string) (entity.KnownToken, bool) {
	address = strings.TrimSpace(address)
	if !common.IsHexAddress(address) {
		return entity.KnownToken{}, false
	}
	return r.Resolve(common.HexToAddress(address))
}

// AddressOf returns the contract address of a symbol, matched case-insensitively.
func (r *ContractRegistry) AddressOf(symbol string) (common.Address, bool) {
	t, ok := r.bySymbol[strings.ToUpper(strings.TrimSpace(symbol))]
	return t.Address, ok
}

// Tokens lists the registry sorted by symbol.
func (r *ContractRegistry) Tokens() []entity.KnownToken {
	out := make([]entity.KnownToken, len(r.tokens))
	copy(out, r.tokens)
	return out
}

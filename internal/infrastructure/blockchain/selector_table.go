package blockchain

import (
	"fmt"

	"erc20-transfer-indexer/internal/domain/entity"
	"erc20-transfer-indexer/internal/infrastructure/blockchain/calldata"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Selector is the first 4 bytes of keccak256 of a canonical method signature.
type Selector = [calldata.SelectorSize]byte

// ERC20 selectors. These are constants so the decoder never hashes.
var (
	selectorAllowance    = Selector{0xdd, 0x62, 0xed, 0x3e} // allowance(address,address)
	selectorApprove      = Selector{0x09, 0x5e, 0xa7, 0xb3} // approve(address,uint256)
	selectorBalanceOf    = Selector{0x70, 0xa0, 0x82, 0x31} // balanceOf(address)
	selectorTotalSupply  = Selector{0x18, 0x16, 0x0d, 0xdd} // totalSupply()
	selectorTransfer     = Selector{0xa9, 0x05, 0x9c, 0xbb} // transfer(address,uint256)
	selectorTransferFrom = Selector{0x23, 0xb8, 0x72, 0xdd} // transferFrom(address,address,uint256)
)

const (
	transferCallSize     = calldata.SelectorSize + 2*calldata.WordSize
	transferFromCallSize = calldata.SelectorSize + 3*calldata.WordSize
)

// SelectorTable maps selectors to ERC20 methods. It is read-only after
// construction and safe for concurrent use.
type SelectorTable struct {
	methods   map[Selector]entity.ERC20Method
	selectors map[entity.ERC20Method]Selector
}

var defaultSelectorTable = newSelectorTable(map[entity.ERC20Method]Selector{
	entity.MethodAllowance:    selectorAllowance,
	entity.MethodApprove:      selectorApprove,
	entity.MethodBalanceOf:    selectorBalanceOf,
	entity.MethodTotalSupply:  selectorTotalSupply,
	entity.MethodTransfer:     selectorTransfer,
	entity.MethodTransferFrom: selectorTransferFrom,
})

// DefaultSelectorTable returns the shared table of standard ERC20 selectors.
func DefaultSelectorTable() *SelectorTable {
	return defaultSelectorTable
}

func newSelectorTable(selectors map[entity.ERC20Method]Selector) *SelectorTable {
	t := &SelectorTable{
		methods:   make(map[Selector]entity.ERC20Method, len(selectors)),
		selectors: make(map[entity.ERC20Method]Selector, len(selectors)),
	}
	for method, sel := range selectors {
		t.methods[sel] = method
		t.selectors[method] = sel
	}
	return t
}

// Lookup classifies a selector. Anything that is not transfer or transferFrom
// is UnknownCall.
func (t *SelectorTable) Lookup(sel Selector) entity.TransferMethod {
	switch t.methods[sel] {
	case entity.MethodTransfer:
		return entity.Erc20Transfer
	case entity.MethodTransferFrom:
		return entity.Erc20TransferFrom
	default:
		return entity.UnknownCall
	}
}

// Method names the ERC20 method behind a selector, or MethodUnidentified.
func (t *SelectorTable) Method(sel Selector) entity.ERC20Method {
	return t.methods[sel]
}

// Selector returns the selector of a named method.
func (t *SelectorTable) Selector(method entity.ERC20Method) (Selector, error) {
	sel, ok := t.selectors[method]
	if !ok {
		return Selector{}, fmt.Errorf("%w: no selector for method %q", entity.ErrUnsupportedMethod, method)
	}
	return sel, nil
}

// EncodeTransferCall builds the calldata of a decoded ERC20 transfer. Only
// transfer and transferFrom have a fixed layout.
func EncodeTransferCall(t entity.DecodedTransfer) ([]byte, error) {
	switch t.Method {
	case entity.Erc20Transfer:
		return EncodeTransfer(t.Recipient, t.Amount), nil
	case entity.Erc20TransferFrom:
		if t.Spender == nil {
			return nil, fmt.Errorf("%w: transferFrom without owner", entity.ErrMalformedArgument)
		}
		return EncodeTransferFrom(*t.Spender, t.Recipient, t.Amount), nil
	default:
		return nil, fmt.Errorf("%w: %s", entity.ErrUnsupportedMethod, t.Method)
	}
}

// EncodeTransfer builds transfer(address,uint256) calldata.
func EncodeTransfer(recipient common.Address, amount *uint256.Int) []byte {
	return calldata.NewEncoder(2).
		PushSelector(selectorTransfer).
		PushAddress(recipient).
		PushU256(amount).
		Bytes()
}

// EncodeTransferFrom builds transferFrom(address,address,uint256) calldata.
func EncodeTransferFrom(owner, recipient common.Address, amount *uint256.Int) []byte {
	return calldata.NewEncoder(3).
		PushSelector(selectorTransferFrom).
		PushAddress(owner).
		PushAddress(recipient).
		PushU256(amount).
		Bytes()
}

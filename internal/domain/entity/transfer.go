package entity

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// TransferMethod tags how value moves in a transaction. Exactly one applies.
type TransferMethod int

const (
	UnknownCall TransferMethod = iota
	NativeTransfer
	Erc20Transfer
	Erc20TransferFrom
)

func (m TransferMethod) String() string {
	switch m {
	case NativeTransfer:
		return "native_transfer"
	case Erc20Transfer:
		return "erc20_transfer"
	case Erc20TransferFrom:
		return "erc20_transfer_from"
	default:
		return "unknown_call"
	}
}

// ERC20Method is the name of a standard ERC20 function.
type ERC20Method string

const (
	MethodAllowance    ERC20Method = "allowance"
	MethodApprove      ERC20Method = "approve"
	MethodBalanceOf    ERC20Method = "balanceOf"
	MethodTotalSupply  ERC20Method = "totalSupply"
	MethodTransfer     ERC20Method = "transfer"
	MethodTransferFrom ERC20Method = "transferFrom"
	MethodUnidentified ERC20Method = ""
)

// TransactionKind identifies a transaction as an ether transfer, a contract
// invocation or a contract creation.
type TransactionKind int

const (
	KindUnknown TransactionKind = iota
	KindEtherTransfer
	KindContractInvocation
	KindContractCreation
)

func (k TransactionKind) String() string {
	switch k {
	case KindEtherTransfer:
		return "ether_transfer"
	case KindContractInvocation:
		return "contract_invocation"
	case KindContractCreation:
		return "contract_creation"
	default:
		return "unknown"
	}
}

// TransferType is the asset moved by a transfer.
type TransferType int

const (
	TransferTypeNone TransferType = iota
	TransferTypeEther
	TransferTypeERC20
)

func (t TransferType) String() string {
	switch t {
	case TransferTypeEther:
		return "ether"
	case TransferTypeERC20:
		return "erc20"
	default:
		return "none"
	}
}

// DecodedTransfer is the typed view of a transaction's value movement.
type DecodedTransfer struct {
	Method    TransferMethod
	Recipient common.Address
	Amount    *uint256.Int
	// Spender is the owner word of transferFrom; nil for every other method.
	Spender *common.Address

	// Selector and ERC20Method are set whenever the input carried a selector.
	Selector    [4]byte
	ERC20Method ERC20Method
}

// TransactionAndTransferType pairs a transaction with its classification.
type TransactionAndTransferType struct {
	Transaction *RawTransaction
	Kind        TransactionKind
	Transfer    DecodedTransfer
	// Token is the registry identity of Transaction.To, nil when unregistered.
	Token *KnownToken
}

// TransferType reports the asset moved, or TransferTypeNone.
func (t *TransactionAndTransferType) TransferType() TransferType {
	switch t.Transfer.Method {
	case NativeTransfer:
		return TransferTypeEther
	case Erc20Transfer, Erc20TransferFrom:
		return TransferTypeERC20
	default:
		return TransferTypeNone
	}
}

// IsTransfer reports whether the transaction moves ether or ERC20 tokens.
func (t *TransactionAndTransferType) IsTransfer() bool {
	return t.TransferType() != TransferTypeNone
}

func (t *TransactionAndTransferType) IsEther() bool {
	return t.TransferType() == TransferTypeEther
}

func (t *TransactionAndTransferType) IsERC20() bool {
	return t.TransferType() == TransferTypeERC20
}

// Parties returns the sender, recipient and amount of the transfer regardless
// of whether it moves ether or tokens. For transferFrom the sender is the
// token owner, not the transaction signer.
func (t *TransactionAndTransferType) Parties() (from, to common.Address, value *uint256.Int, err error) {
	switch t.Transfer.Method {
	case NativeTransfer, Erc20Transfer:
		return t.Transaction.From, t.Transfer.Recipient, t.Transfer.Amount, nil
	case Erc20TransferFrom:
		return *t.Transfer.Spender, t.Transfer.Recipient, t.Transfer.Amount, nil
	default:
		return common.Address{}, common.Address{}, nil, ErrNoTransferTransaction
	}
}

// Contract returns the token contract of an ERC20 transfer.
func (t *TransactionAndTransferType) Contract() (common.Address, bool) {
	if !t.IsERC20() || t.Transaction.To == nil {
		return common.Address{}, false
	}
	return *t.Transaction.To, true
}

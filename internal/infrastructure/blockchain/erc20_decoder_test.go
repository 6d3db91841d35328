package blockchain

import (
	"testing"

	"erc20-transfer-indexer/internal/domain/entity"
	"erc20-transfer-indexer/internal/infrastructure/logger"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	usdtAddress = common.HexToAddress("0xdac17f958d2ee523a2206206994597c13d831ec7")
	tusdAddress = common.HexToAddress("0x0000000000085d4780B73119b644AE5ecd22b376")
)

func addr(i byte) common.Address {
	var a common.Address
	a[common.AddressLength-1] = i
	return a
}

func newTestDecoder() *ERC20DecoderService {
	return newERC20DecoderService(DefaultSelectorTable(), DefaultContractRegistry(), logger.NewNop())
}

func call(from common.Address, to *common.Address, value uint64, input []byte) *entity.RawTransaction {
	return &entity.RawTransaction{
		Hash:  common.HexToHash("0x01"),
		From:  from,
		To:    to,
		Value: uint256.NewInt(value),
		Input: input,
	}
}

func TestDecode_NativeTransfer(t *testing.T) {
	to := addr(2)
	result, err := newTestDecoder().Decode(call(addr(1), &to, 5, nil))
	require.NoError(t, err)

	assert.Equal(t, entity.KindEtherTransfer, result.Kind)
	assert.Equal(t, entity.NativeTransfer, result.Transfer.Method)
	assert.Equal(t, to, result.Transfer.Recipient)
	assert.Equal(t, uint256.NewInt(5), result.Transfer.Amount)
	assert.Nil(t, result.Token)
	assert.True(t, result.IsEther())

	from, recipient, value, err := result.Parties()
	require.NoError(t, err)
	assert.Equal(t, addr(1), from)
	assert.Equal(t, to, recipient)
	assert.Equal(t, uint256.NewInt(5), value)

	_, ok := result.Contract()
	assert.False(t, ok)
}

func TestDecode_NativeTransferNilValue(t *testing.T) {
	to := addr(2)
	tx := call(addr(1), &to, 0, nil)
	tx.Value = nil

	result, err := newTestDecoder().Decode(tx)
	require.NoError(t, err)
	assert.True(t, result.Transfer.Amount.IsZero())
}

func TestDecode_TransferScenario(t *testing.T) {
	input := hexutil.MustDecode("0xa9059cbb" +
		"0000000000000000000000006748f50f686bfbca6fe8ad62b22228b87f31ff2b" +
		"00000000000000000000000000000000000000000000003635c9adc5dea00000")

	result, err := newTestDecoder().Decode(call(addr(1), &usdtAddress, 0, input))
	require.NoError(t, err)

	assert.Equal(t, entity.KindContractInvocation, result.Kind)
	assert.Equal(t, entity.Erc20Transfer, result.Transfer.Method)
	assert.Equal(t, entity.MethodTransfer, result.Transfer.ERC20Method)
	assert.Equal(t, common.HexToAddress("0x6748f50f686bfbca6fe8ad62b22228b87f31ff2b"), result.Transfer.Recipient)
	assert.Equal(t, uint256.MustFromDecimal("1000000000000000000000"), result.Transfer.Amount)
	assert.Nil(t, result.Transfer.Spender)

	require.NotNil(t, result.Token)
	assert.Equal(t, "USDT", result.Token.Symbol)

	contract, ok := result.Contract()
	require.True(t, ok)
	assert.Equal(t, usdtAddress, contract)
}

func TestDecode_RoundTrip(t *testing.T) {
	owner := addr(3)
	amount := uint256.MustFromDecimal("115792089237316195423570985008687907853269984665640564039457584007913129639935")

	tests := []struct {
		name  string
		input []byte
		want  entity.DecodedTransfer
	}{
		{
			name:  "transfer",
			input: EncodeTransfer(addr(2), amount),
			want: entity.DecodedTransfer{
				Method:      entity.Erc20Transfer,
				Recipient:   addr(2),
				Amount:      amount,
				Selector:    selectorTransfer,
				ERC20Method: entity.MethodTransfer,
			},
		},
		{
			name:  "transferFrom",
			input: EncodeTransferFrom(owner, addr(2), uint256.NewInt(0)),
			want: entity.DecodedTransfer{
				Method:      entity.Erc20TransferFrom,
				Recipient:   addr(2),
				Amount:      uint256.NewInt(0),
				Spender:     &owner,
				Selector:    selectorTransferFrom,
				ERC20Method: entity.MethodTransferFrom,
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := newTestDecoder().Decode(call(addr(1), &tusdAddress, 0, tt.input))
			require.NoError(t, err)
			assert.Equal(t, tt.want, result.Transfer)

			reencoded, err := EncodeTransferCall(result.Transfer)
			require.NoError(t, err)
			assert.Equal(t, tt.input, reencoded)
		})
	}
}

func TestDecode_TransferFromPartiesUseOwner(t *testing.T) {
	input := EncodeTransferFrom(addr(3), addr(4), uint256.NewInt(9))

	result, err := newTestDecoder().Decode(call(addr(1), &tusdAddress, 0, input))
	require.NoError(t, err)

	from, to, value, err := result.Parties()
	require.NoError(t, err)
	assert.Equal(t, addr(3), from)
	assert.Equal(t, addr(4), to)
	assert.Equal(t, uint256.NewInt(9), value)
}

func TestDecode_Errors(t *testing.T) {
	transfer := EncodeTransfer(addr(2), uint256.NewInt(1))
	transferFrom := EncodeTransferFrom(addr(3), addr(2), uint256.NewInt(1))

	dirty := func(data []byte, offset int) []byte {
		out := append([]byte(nil), data...)
		out[offset] = 0x01
		return out
	}

	tests := []struct {
		name  string
		input []byte
		errIs error
	}{
		{name: "one byte", input: []byte{0xa9}, errIs: entity.ErrOutOfBounds},
		{name: "three bytes", input: []byte{0xa9, 0x05, 0x9c}, errIs: entity.ErrOutOfBounds},
		{name: "transfer selector only", input: transfer[:4], errIs: entity.ErrOutOfBounds},
		{name: "transfer missing amount", input: transfer[:36], errIs: entity.ErrOutOfBounds},
		{name: "transfer short word", input: transfer[:67], errIs: entity.ErrOutOfBounds},
		{name: "transfer trailing byte", input: append(append([]byte(nil), transfer...), 0x00), errIs: entity.ErrInvalidLength},
		{name: "transferFrom short", input: transferFrom[:68], errIs: entity.ErrOutOfBounds},
		{name: "transferFrom trailing word", input: append(append([]byte(nil), transferFrom...), make([]byte, 32)...), errIs: entity.ErrInvalidLength},
		{name: "transfer dirty recipient", input: dirty(transfer, 4), errIs: entity.ErrMalformedArgument},
		{name: "transfer dirty recipient last pad byte", input: dirty(transfer, 15), errIs: entity.ErrMalformedArgument},
		{name: "transferFrom dirty owner", input: dirty(transferFrom, 4), errIs: entity.ErrMalformedArgument},
		{name: "transferFrom dirty recipient", input: dirty(transferFrom, 36), errIs: entity.ErrMalformedArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := newTestDecoder().Decode(call(addr(1), &usdtAddress, 0, tt.input))
			require.ErrorIs(t, err, tt.errIs)
			assert.Nil(t, result)
		})
	}
}

func TestDecode_ContractCreation(t *testing.T) {
	result, err := newTestDecoder().Decode(call(addr(1), nil, 0, []byte{0x60, 0x80, 0x60, 0x40, 0x52}))
	require.NoError(t, err)

	assert.Equal(t, entity.KindContractCreation, result.Kind)
	assert.Equal(t, entity.UnknownCall, result.Transfer.Method)
	assert.False(t, result.IsTransfer())

	_, _, _, err = result.Parties()
	require.ErrorIs(t, err, entity.ErrNoTransferTransaction)
}

func TestDecode_UnknownSelectorKeepsRawSelector(t *testing.T) {
	input := hexutil.MustDecode("0x095ea7b3" +
		"0000000000000000000000000000000000000000000000000000000000000002" +
		"0000000000000000000000000000000000000000000000000000000000000001")

	result, err := newTestDecoder().Decode(call(addr(1), &usdtAddress, 0, input))
	require.NoError(t, err)

	assert.Equal(t, entity.KindContractInvocation, result.Kind)
	assert.Equal(t, entity.UnknownCall, result.Transfer.Method)
	assert.Equal(t, entity.MethodApprove, result.Transfer.ERC20Method)
	assert.Equal(t, Selector{0x09, 0x5e, 0xa7, 0xb3}, result.Transfer.Selector)
	assert.Nil(t, result.Transfer.Amount)
	require.NotNil(t, result.Token)
	assert.Equal(t, "USDT", result.Token.Symbol)

	// Unknown selectors never read arguments, so any length is accepted.
	result, err = newTestDecoder().Decode(call(addr(1), &usdtAddress, 0, []byte{0xde, 0xad, 0xbe, 0xef, 0x01}))
	require.NoError(t, err)
	assert.Equal(t, entity.MethodUnidentified, result.Transfer.ERC20Method)
}

func TestDecode_UnregisteredContractStillDecodes(t *testing.T) {
	contract := addr(0x99)
	result, err := newTestDecoder().Decode(call(addr(1), &contract, 0, EncodeTransfer(addr(2), uint256.NewInt(3))))
	require.NoError(t, err)

	assert.Equal(t, entity.Erc20Transfer, result.Transfer.Method)
	assert.Nil(t, result.Token)
}

func TestDecoderService_TokenInfo(t *testing.T) {
	svc := newTestDecoder()

	assert.True(t, svc.IsKnownToken(tusdAddress))
	assert.False(t, svc.IsKnownToken(addr(0x99)))

	token, ok := svc.GetTokenInfo(usdtAddress)
	require.True(t, ok)
	assert.Equal(t, uint8(6), token.Decimals)

	_, ok = svc.GetTokenInfo(addr(0x99))
	assert.False(t, ok)
}

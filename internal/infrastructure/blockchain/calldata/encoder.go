package calldata

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Encoder appends ABI words to a growing payload.
type Encoder struct {
	data []byte
}

// NewEncoder returns an encoder with room for a selector and n words.
func NewEncoder(words int) *Encoder {
	return &Encoder{data: make([]byte, 0, SelectorSize+words*WordSize)}
}

// PushBytes appends raw bytes with no padding.
func (e *Encoder) PushBytes(b []byte) *Encoder {
	e.data = append(e.data, b...)
	return e
}

func (e *Encoder) PushSelector(sel [SelectorSize]byte) *Encoder {
	return e.PushBytes(sel[:])
}

// PushAddress appends an address left-padded to a full word.
func (e *Encoder) PushAddress(a common.Address) *Encoder {
	var word [WordSize]byte
	copy(word[addressPad:], a[:])
	return e.PushBytes(word[:])
}

// PushU256 appends a big-endian 32-byte word. A nil value encodes as zero.
func (e *Encoder) PushU256(v *uint256.Int) *Encoder {
	if v == nil {
		v = new(uint256.Int)
	}
	word := v.Bytes32()
	return e.PushBytes(word[:])
}

// Bytes returns the encoded payload.
func (e *Encoder) Bytes() []byte {
	return e.data
}

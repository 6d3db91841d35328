// Package calldata reads and writes ABI-encoded call payloads: a 4-byte
// selector followed by 32-byte big-endian argument words.
package calldata

import (
	"fmt"

	"erc20-transfer-indexer/internal/domain/entity"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

const (
	SelectorSize = 4
	WordSize     = 32
	addressPad   = WordSize - common.AddressLength
)

// Cursor is a sequential reader over a caller-owned byte slice. Returned
// slices alias the input.
type Cursor struct {
	data []byte
	pos  int
}

// NewCursor wraps data without copying it.
func NewCursor(data []byte) *Cursor {
	return &Cursor{data: data}
}

// Remaining reports the number of unread bytes.
func (c *Cursor) Remaining() int {
	return len(c.data) - c.pos
}

// Position reports the number of bytes consumed so far.
func (c *Cursor) Position() int {
	return c.pos
}

// ReadBytes returns the next n bytes and advances past them.
func (c *Cursor) ReadBytes(n int) ([]byte, error) {
	if n < 0 || n > c.Remaining() {
		return nil, fmt.Errorf("%w: need %d bytes at offset %d, have %d", entity.ErrOutOfBounds, n, c.pos, c.Remaining())
	}
	b := c.data[c.pos : c.pos+n : c.pos+n]
	c.pos += n
	return b, nil
}

// Skip advances past n bytes.
func (c *Cursor) Skip(n int) error {
	_, err := c.ReadBytes(n)
	return err
}

// ReadSelector reads a 4-byte function selector.
func (c *Cursor) ReadSelector() ([SelectorSize]byte, error) {
	var sel [SelectorSize]byte
	b, err := c.ReadBytes(SelectorSize)
	if err != nil {
		return sel, err
	}
	copy(sel[:], b)
	return sel, nil
}

// ReadU256 reads a 32-byte word as a big-endian unsigned integer.
func (c *Cursor) ReadU256() (*uint256.Int, error) {
	b, err := c.ReadBytes(WordSize)
	if err != nil {
		return nil, err
	}
	return new(uint256.Int).SetBytes32(b), nil
}

// ReadAddress reads a 32-byte word holding a right-aligned address. The 12
// leading bytes must be zero.
func (c *Cursor) ReadAddress() (common.Address, error) {
	offset := c.pos
	b, err := c.ReadBytes(WordSize)
	if err != nil {
		return common.Address{}, err
	}
	for i := 0; i < addressPad; i++ {
		if b[i] != 0 {
			return common.Address{}, fmt.Errorf("%w: non-zero padding in address word at offset %d", entity.ErrMalformedArgument, offset)
		}
	}
	return common.BytesToAddress(b[addressPad:]), nil
}

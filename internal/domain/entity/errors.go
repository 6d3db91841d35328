package entity

// ERC20Error is a typed decoding failure. Call sites wrap it with context, so
// match it with errors.Is.
type ERC20Error string

func (e ERC20Error) Error() string {
	return string(e)
}

const (
	// ErrOutOfBounds is returned when the input ends before a read completes.
	ErrOutOfBounds = ERC20Error("unexpected end of data")
	// ErrInvalidLength is returned when the input length does not match the
	// fixed layout of the matched method.
	ErrInvalidLength = ERC20Error("unexpected input length")
	// ErrMalformedArgument is returned when an address word has non-zero padding.
	ErrMalformedArgument = ERC20Error("malformed argument")
	// ErrUnsupportedMethod is returned for methods that have no transfer layout.
	ErrUnsupportedMethod = ERC20Error("unsupported method")
	// ErrNoTransferTransaction is returned when transfer parties are requested
	// from a transaction that is neither an ether nor an ERC20 transfer.
	ErrNoTransferTransaction = ERC20Error("not a transfer transaction")
)

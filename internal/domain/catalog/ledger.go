package catalog

import (
	"context"
	"fmt"
)

// codeWidth is the minimum number of digits in a formatted product code.
// Shorter sequence values are zero-padded; longer ones keep their full width.
const codeWidth = 5

// CodeEntry is one row of the shared product code ledger.
type CodeEntry struct {
	// ID is the surrogate sequence value the code was minted from.
	ID int64
	// Kind names the product kind the code was minted for.
	Kind Kind
	// Code is the formatted, zero-padded product code.
	Code string
}

// Ledger is the shared sequence issuing unique product codes across all
// catalog kinds. Implementations must guarantee atomic next-value issuance:
// two concurrent Mint calls never return the same code.
type Ledger interface {
	// Mint allocates the next code for the given kind.
	Mint(ctx context.Context, kind Kind) (CodeEntry, error)

	// Lookup resolves a code token to its ledger entry. Returns an error
	// matching ErrNotFound when the code was never minted.
	Lookup(ctx context.Context, code string) (*CodeEntry, error)
}

// FormatCode renders a ledger sequence value as a product code.
func FormatCode(seq int64) string {
	return fmt.Sprintf("%0*d", codeWidth, seq)
}

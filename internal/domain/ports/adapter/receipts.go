package adapter

import (
	"context"
	"io"
)

// ReceiptStore uploads a receipt file to the document store and returns a
// publicly shareable URL. Upload failures are non-fatal for the intake flow.
type ReceiptStore interface {
	Save(ctx context.Context, filename string, r io.Reader) (string, error)
}

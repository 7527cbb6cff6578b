package gamemap

import (
	"context"
	"time"
)

// Fetcher loads the static map catalog from the upstream list.
type Fetcher interface {
	FetchMaps(ctx context.Context, timeout time.Duration) ([]Info, error)
}

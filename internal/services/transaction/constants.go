package transaction

import "time"

// Default configuration values.
const (
	DefaultPageSize = 5
	DefaultCacheTTL = 5 * time.Minute
)

// Cache key prefixes for the read-through listing cache.
const (
	userTransactionsCachePrefix = "transactions:user:"
)

// listKind distinguishes the three listing queries in cache keys.
const (
	listAll      = "all"
	listSent     = "sent"
	listReceived = "received"
)

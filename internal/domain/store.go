package domain

import (
	"context"
	"io"
	"time"
)

// ListOpts provides pagination for list queries.
type ListOpts struct {
	Limit  int
	Offset int
}

// OrderAudit is one row of the local submission audit trail. It records what
// was sent and what came back; it is never read back into the trading path.
type OrderAudit struct {
	ID          string // client-generated UUID
	ExchangeID  string // exchange order id, empty if rejected
	MarketSlug  string
	TokenID     string
	Maker       string
	Side        Side
	Type        OrderType
	Price       string
	MakerAmount string
	TakerAmount string
	Salt        int64
	Signature   string
	Status      OrderStatus
	Error       string
	SubmittedAt time.Time
}

// OrderAuditStore persists the submission audit trail.
type OrderAuditStore interface {
	Insert(ctx context.Context, audit OrderAudit) error
	UpdateStatus(ctx context.Context, id string, status OrderStatus) error
	GetByID(ctx context.Context, id string) (OrderAudit, error)
	ListByMarket(ctx context.Context, marketSlug string, opts ListOpts) ([]OrderAudit, error)
	ListBefore(ctx context.Context, before time.Time) ([]OrderAudit, error)
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}

// MarketCache provides fast market metadata lookups.
type MarketCache interface {
	Set(ctx context.Context, market Market) error
	Get(ctx context.Context, slug string) (Market, error)
	GetByToken(ctx context.Context, tokenID string) (Market, error)
	Invalidate(ctx context.Context, slug string) error
}

// BlobWriter uploads data to object storage.
type BlobWriter interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
}

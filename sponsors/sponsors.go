package sponsors

import (
	"context"
	"time"
)

// Record is one active sponsorship of the creator.
type Record struct {
	Login                 string
	Name                  string
	TierName              string
	MonthlyPriceInDollars int
	CreatedAt             time.Time
}

// Page is one slice of the creator's sponsorship listing.
type Page struct {
	Records     []Record
	HasNextPage bool
	EndCursor   string
}

// Lister fetches one page of the sponsorships received by the owner of
// credential. An empty cursor requests the first page.
type Lister interface {
	SponsorsPage(ctx context.Context, credential, cursor string) (*Page, error)
}

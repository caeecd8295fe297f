package sponsors

import (
	"context"
	"errors"
	"fmt"

	apperrors "github.com/jrsteele09/go-sponsor-gate/internal/errors"
	"github.com/jrsteele09/go-sponsor-gate/internal/metrics"
	"github.com/rs/zerolog/log"
)

// DefaultMaxPages bounds a listing whose upstream never reports the last page.
const DefaultMaxPages = 1000

// Oracle answers "does visitor sponsor the creator owning this credential".
// It keeps no state between calls.
type Oracle struct {
	lister   Lister
	strict   bool
	maxPages int
}

// OracleOption defines a function type to modify the Oracle instance.
type OracleOption func(*Oracle)

// WithStrict makes a listing cut short by an upstream failure an error instead
// of a negative answer.
func WithStrict(strict bool) OracleOption {
	return func(o *Oracle) {
		o.strict = strict
	}
}

func WithMaxPages(n int) OracleOption {
	return func(o *Oracle) {
		if n > 0 {
			o.maxPages = n
		}
	}
}

func NewOracle(lister Lister, options ...OracleOption) (*Oracle, error) {
	if lister == nil {
		return nil, errors.New("[NewOracle] lister is required")
	}
	o := &Oracle{
		lister:   lister,
		maxPages: DefaultMaxPages,
	}
	for _, opt := range options {
		opt(o)
	}
	return o, nil
}

// IsSponsor walks the sponsorship listing and reports whether visitorLogin
// appears in it. Logins are compared exactly.
//
// When a page fetch fails the records already seen are final. A match among
// them is honoured; otherwise the answer is false, or an upstream error in
// strict mode.
func (o *Oracle) IsSponsor(ctx context.Context, credential, visitorLogin string) (bool, error) {
	if visitorLogin == "" {
		return false, nil
	}

	cursor := ""
	for page := 0; page < o.maxPages; page++ {
		p, err := o.lister.SponsorsPage(ctx, credential, cursor)
		metrics.IncSponsorPage(err == nil)
		if err != nil {
			return o.partial(visitorLogin, page, err)
		}
		for _, r := range p.Records {
			if r.Login == visitorLogin {
				metrics.IncSponsorCheck("sponsor")
				return true, nil
			}
		}
		if !p.HasNextPage {
			metrics.IncSponsorCheck("not_sponsor")
			return false, nil
		}
		if p.EndCursor == "" || p.EndCursor == cursor {
			return o.partial(visitorLogin, page+1, errors.New("listing cursor did not advance"))
		}
		cursor = p.EndCursor
	}
	return o.partial(visitorLogin, o.maxPages, fmt.Errorf("listing exceeded %d pages", o.maxPages))
}

func (o *Oracle) partial(visitorLogin string, pagesRead int, cause error) (bool, error) {
	metrics.IncSponsorCheck("partial")
	log.Warn().Err(cause).
		Str("visitor", visitorLogin).
		Int("pages_read", pagesRead).
		Bool("strict", o.strict).
		Msg("sponsorship listing incomplete")
	if o.strict {
		return false, apperrors.Wrap(apperrors.KindUpstream, "upstream_failure",
			fmt.Errorf("[Oracle IsSponsor] %w", cause), "Could not retrieve the sponsorship list")
	}
	return false, nil
}

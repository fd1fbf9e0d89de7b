// Package timeline pulls a range of posts from an account's timeline and
// records the newest and oldest ids seen.
package timeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/kikuomax/tweetscape-streams/internal/models"
)

const (
	MinPageSize = 5
	MaxPageSize = 100
)

var (
	ErrRangeNotReady   = errors.New("timeline range not ready: pages not drained")
	ErrInvalidPageSize = errors.New("invalid timeline page size")
	ErrAlreadyConsumed = errors.New("timeline already consumed")
)

// InvalidPageSizeError carries the rejected page size.
type InvalidPageSizeError struct {
	Size int
}

func (e *InvalidPageSizeError) Error() string {
	return fmt.Sprintf("%v: %d not in [%d, %d]", ErrInvalidPageSize, e.Size, MinPageSize, MaxPageSize)
}

func (e *InvalidPageSizeError) Is(target error) bool {
	return target == ErrInvalidPageSize
}

// Request selects one page.
type Request struct {
	AccountID       string
	SinceID         string
	PaginationToken string
	PageSize        int
}

// Fetcher fetches one page.
type Fetcher func(ctx context.Context, req Request) (*models.Page, error)

// Mode tells how far a pull reaches back.
type Mode int

const (
	// Bounded pulls a single page when no lower bound is known.
	Bounded Mode = iota
	// Exhaustive pulls every page newer than the lower bound.
	Exhaustive
)

func (m Mode) String() string {
	if m == Exhaustive {
		return "exhaustive"
	}
	return "bounded"
}

// Puller is a single-pass pull of one account's timeline.
type Puller struct {
	fetch     Fetcher
	accountID string
	sinceID   string
	pageSize  int

	consumed bool
	drained  bool
	rng      models.Range
	pages    int
	items    int
}

// New validates pageSize and returns a puller. An empty sinceID selects
// the Bounded mode.
func New(fetch Fetcher, accountID, sinceID string, pageSize int) (*Puller, error) {
	if pageSize < MinPageSize || pageSize > MaxPageSize {
		return nil, &InvalidPageSizeError{Size: pageSize}
	}
	return &Puller{
		fetch:     fetch,
		accountID: accountID,
		sinceID:   sinceID,
		pageSize:  pageSize,
	}, nil
}

func (p *Puller) Mode() Mode {
	if p.sinceID == "" {
		return Bounded
	}
	return Exhaustive
}

// Drain fetches pages newest first and passes every non-empty page to fn.
// The range is returned once the last page has been handled. A fetch or
// fn error aborts the pull and leaves the range unavailable.
func (p *Puller) Drain(ctx context.Context, fn func(ctx context.Context, page *models.Page) error) (models.Range, error) {
	if p.consumed {
		return models.Range{}, ErrAlreadyConsumed
	}
	p.consumed = true

	var rng models.Range
	token := ""
	for {
		if err := ctx.Err(); err != nil {
			return models.Range{}, err
		}

		page, err := p.fetch(ctx, Request{
			AccountID:       p.accountID,
			SinceID:         p.sinceID,
			PaginationToken: token,
			PageSize:        p.pageSize,
		})
		if err != nil {
			return models.Range{}, fmt.Errorf("fetch page %d of %s: %w", p.pages+1, p.accountID, err)
		}

		if len(page.Posts) > 0 {
			if rng.NewestID == "" {
				rng.NewestID = page.Posts[0].ID()
			}
			rng.OldestID = page.Posts[len(page.Posts)-1].ID()
			p.pages++
			p.items += len(page.Posts)
			if err := fn(ctx, page); err != nil {
				return models.Range{}, err
			}
		}

		if p.Mode() == Bounded || page.NextToken == "" {
			break
		}
		token = page.NextToken
	}

	p.rng = rng
	p.drained = true
	return rng, nil
}

// Range returns the range of a completed Drain.
func (p *Puller) Range() (models.Range, error) {
	if !p.drained {
		return models.Range{}, ErrRangeNotReady
	}
	return p.rng, nil
}

// Newest returns the id of the newest post seen.
func (p *Puller) Newest() (string, error) {
	rng, err := p.Range()
	return rng.NewestID, err
}

// Oldest returns the id of the oldest post seen.
func (p *Puller) Oldest() (string, error) {
	rng, err := p.Range()
	return rng.OldestID, err
}

// Stats returns the number of non-empty pages and posts handled so far.
func (p *Puller) Stats() (pages, items int) {
	return p.pages, p.items
}

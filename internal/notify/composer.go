package notify

import (
	"context"
	"net/url"

	"github.com/ignite/seatwatch/internal/domain"
	"github.com/ignite/seatwatch/internal/pkg/logger"
)

// Shortener turns a long link into a short one.
type Shortener interface {
	Shorten(ctx context.Context, long string) (string, error)
}

// LinkBuilder reconstructs the public query page for a section.
type LinkBuilder interface {
	QueryLink(term string, code domain.Code) string
}

// Composer builds the per-recipient message for a dispatch entry.
type Composer struct {
	renderer       *Renderer
	links          LinkBuilder
	shortener      Shortener
	term           string
	resubscribeURL string
}

// NewComposer creates a Composer. shortener may be nil.
func NewComposer(renderer *Renderer, links LinkBuilder, shortener Shortener, term, resubscribeURL string) *Composer {
	return &Composer{
		renderer:       renderer,
		links:          links,
		shortener:      shortener,
		term:           term,
		resubscribeURL: resubscribeURL,
	}
}

// Compose renders the message announcing entry's status change to r.
// Shortening failures fall back to the long link.
func (c *Composer) Compose(ctx context.Context, status domain.Status, entry domain.DispatchEntry, r domain.Recipient) (domain.Message, error) {
	return c.renderer.Render(status, MessageData{
		Title:      entry.Title,
		Code:       entry.Code,
		Link:       c.links.QueryLink(c.term, entry.Code),
		ManageLink: c.shorten(ctx, c.manageLink(entry, r)),
	})
}

// manageLink points the recipient back at the subscription page for the
// same section so they can sign up for the next transition.
func (c *Composer) manageLink(entry domain.DispatchEntry, r domain.Recipient) string {
	u, err := url.Parse(c.resubscribeURL)
	if err != nil {
		return c.resubscribeURL
	}
	q := u.Query()
	q.Set("term", c.term)
	q.Set("code", entry.Code.String())
	q.Set(string(r.Channel), r.Address)
	u.RawQuery = q.Encode()
	return u.String()
}

func (c *Composer) shorten(ctx context.Context, long string) string {
	if c.shortener == nil {
		return long
	}
	short, err := c.shortener.Shorten(ctx, long)
	if err != nil {
		logger.Warn("notify: link shortening failed, using long link", "error", err)
		return long
	}
	return short
}

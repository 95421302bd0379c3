package vic

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
	"vicharvest/lib/htmlutil"

	"github.com/PuerkitoBio/goquery"
)

const (
	report_listing_open      = "listing.open"
	report_listing_goto_date = "listing.goto-date"
	report_listing_load_more = "listing.load-more"
)

const (
	listingPath          = "/ideas/"
	ideaLinkSelector     = "a[href^='/idea/']"
	loadMoreSelector     = "a.load-more.load_more_ideas"
	gotoDateInputId      = "dash_goto_date"
	gotoDateInputLayout  = "01/02/2006"
	gotoDateDefaultParam = "dash_goto_date"
)

var (
	// ErrNavigation means the listing page is not shaped the way it is
	// expected to be, it is fatal for a harvest session.
	ErrNavigation = errors.New("listing navigation failed")
	// ErrListingExhausted means there is no "load more" control left.
	ErrListingExhausted = errors.New("listing has no more ideas to load")
	// ErrNoNewItems means a "load more" succeeded but revealed nothing new.
	ErrNoNewItems = errors.New("load more revealed no new ideas")
)

type listingPage struct {
	doc *goquery.Document
	url *url.URL
}

// Listing is one session against the paginated idea listing. It keeps every
// page revealed so far, the same way a browser keeps appending "load more"
// results to the one document.
type Listing struct {
	client *Client
	pages  []listingPage
	known  map[string]struct{}
}

// OpenListing starts a new listing session.
func (c *Client) OpenListing(ctx context.Context) (*Listing, error) {
	doc, pageUrl, err := c.get(ctx, listingPath)
	if err != nil {
		c.tel.ReportBroken(report_listing_open, err)
		return nil, fmt.Errorf("open listing: %w", err)
	}
	l := &Listing{client: c}
	l.reset(listingPage{doc: doc, url: pageUrl})
	return l, nil
}

func (l *Listing) reset(page listingPage) {
	l.pages = []listingPage{page}
	l.known = map[string]struct{}{}
	l.collect(page)
}

// collect adds the idea links of the page to the known set and returns how
// many of them were not known before.
func (l *Listing) collect(page listingPage) int {
	added := 0
	for _, a := range htmlutil.GetAnchors(context.Background(), page.url, page.doc.Find(ideaLinkSelector)) {
		if _, ok := l.known[a.Href]; ok {
			continue
		}
		l.known[a.Href] = struct{}{}
		added++
	}
	return added
}

func (l *Listing) last() listingPage {
	return l.pages[len(l.pages)-1]
}

// GotoDate submits the date-jump control, the listing restarts at date.
func (l *Listing) GotoDate(ctx context.Context, date time.Time) error {
	page := l.last()

	input := page.doc.Find("#" + gotoDateInputId).First()
	if input.Length() == 0 {
		err := fmt.Errorf("%w: date-jump control #%s not found", ErrNavigation, gotoDateInputId)
		l.client.tel.ReportBroken(report_listing_goto_date, err, page.url.String())
		return err
	}

	form := input.Closest("form")
	action, err := url.Parse(strings.TrimSpace(form.AttrOr("action", "")))
	if err != nil {
		err = fmt.Errorf("%w: date-jump form action: %w", ErrNavigation, err)
		l.client.tel.ReportBroken(report_listing_goto_date, err)
		return err
	}
	target := page.url.ResolveReference(action)

	query := target.Query()
	form.Find("input[type=hidden]").Each(func(_ int, hidden *goquery.Selection) {
		name := hidden.AttrOr("name", "")
		if name != "" {
			query.Set(name, hidden.AttrOr("value", ""))
		}
	})
	query.Set(input.AttrOr("name", gotoDateDefaultParam), date.Format(gotoDateInputLayout))
	target.RawQuery = query.Encode()

	doc, pageUrl, err := l.client.get(ctx, target.String())
	if err != nil {
		l.client.tel.ReportBroken(report_listing_goto_date, err, target.String())
		return fmt.Errorf("goto date: %w", err)
	}
	l.reset(listingPage{doc: doc, url: pageUrl})
	return nil
}

func loadMoreTarget(page listingPage) (*url.URL, bool) {
	button := page.doc.Find(loadMoreSelector).Last()
	if button.Length() == 0 {
		return nil, false
	}
	for _, attr := range []string{"href", "data-url", "data-href"} {
		raw := strings.TrimSpace(button.AttrOr(attr, ""))
		if raw == "" || strings.HasPrefix(raw, "#") || strings.HasPrefix(raw, "javascript:") {
			continue
		}
		parsed, err := url.Parse(raw)
		if err != nil {
			continue
		}
		return page.url.ResolveReference(parsed), true
	}
	return nil, false
}

// LoadMore reveals the next batch of ideas and returns how many new idea
// links it contained.
func (l *Listing) LoadMore(ctx context.Context) (int, error) {
	target, ok := loadMoreTarget(l.last())
	if !ok {
		return 0, ErrListingExhausted
	}

	doc, pageUrl, err := l.client.get(ctx, target.String())
	if err != nil {
		l.client.tel.ReportWarning(report_listing_load_more, err, target.String())
		return 0, fmt.Errorf("load more: %w", err)
	}

	page := listingPage{doc: doc, url: pageUrl}
	added := l.collect(page)
	l.pages = append(l.pages, page)
	if added == 0 {
		return 0, ErrNoNewItems
	}
	return added, nil
}

// Links extracts every idea link revealed so far, in page order.
func (l *Listing) Links(ctx context.Context) ([]string, error) {
	seen := map[string]struct{}{}
	var links []string
	for _, page := range l.pages {
		for _, a := range htmlutil.GetAnchors(ctx, page.url, page.doc.Find(ideaLinkSelector)) {
			if _, ok := seen[a.Href]; ok {
				continue
			}
			seen[a.Href] = struct{}{}
			links = append(links, a.Href)
		}
	}
	if len(links) == 0 {
		return nil, fmt.Errorf("%w: no idea links on the listing", ErrNoNewItems)
	}
	return links, nil
}

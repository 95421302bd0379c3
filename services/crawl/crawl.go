// Package crawl drives the per-link part of the pipeline: every canonical
// idea link is fetched, parsed and ingested.
package crawl

import (
	"context"
	"errors"
	"fmt"
	"vicharvest/lib/identity"
	"vicharvest/lib/scrapers/vic"
	"vicharvest/lib/telemetry"
	"vicharvest/services/normalize"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("vicharvest.services.crawl")

const (
	report_crawl_fetch    = "crawl.fetch"
	report_crawl_ingest   = "crawl.ingest"
	report_crawl_rotate   = "crawl.rotate"
	report_crawl_progress = "crawl.progress"
)

type Fetcher interface {
	FetchIdea(ctx context.Context, link string) (*goquery.Document, error)
}

type Ingester interface {
	Ingest(ctx context.Context, record vic.ScrapedIdea) (normalize.Result, error)
}

type Config struct {
	// RotateEvery rotates the identity before every n-th link.
	RotateEvery int
	// Offset skips the first links, it is how an interrupted crawl resumes.
	Offset int
}

type Crawler struct {
	Config   Config
	Fetcher  Fetcher
	Ingester Ingester
	Rotator  identity.Rotator
	// OnRotate is called after each successful rotation.
	OnRotate func()

	tel telemetry.API
}

func NewCrawler(config Config, fetcher Fetcher, ingester Ingester, rotator identity.Rotator, tel telemetry.API) *Crawler {
	if config.RotateEvery <= 0 {
		config.RotateEvery = 10
	}
	if config.Offset < 0 {
		config.Offset = 0
	}
	return &Crawler{
		Config:   config,
		Fetcher:  fetcher,
		Ingester: ingester,
		Rotator:  rotator,
		tel:      telemetry.NewScopedAPI("crawl", tel),
	}
}

type Stats struct {
	Total     int
	Skipped   int
	Ingested  int
	Rotations int

	FetchFailed int
	BadDate     int
	Conflicts   int
	Duplicates  int
	Failed      int
}

// Processed is the offset to resume a crawl from after it stopped.
func (s Stats) Processed() int {
	return s.Skipped + s.Ingested + s.FetchFailed + s.BadDate + s.Conflicts + s.Duplicates + s.Failed
}

// Crawl processes links from Config.Offset on. Per-link failures are
// counted and reported, only a failed identity rotation or a cancelled
// context stops it.
func (c *Crawler) Crawl(ctx context.Context, links []string) (Stats, error) {
	ctx, span := tracer.Start(ctx, "Crawl")
	defer span.End()

	stats := Stats{Total: len(links)}
	offset := min(c.Config.Offset, len(links))
	stats.Skipped = offset

	span.SetAttributes(
		attribute.Int("links", len(links)),
		attribute.Int("offset", offset),
	)

	for i, link := range links[offset:] {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		if (i+1)%c.Config.RotateEvery == 0 {
			err := identity.Rotate(ctx, c.Rotator, c.tel)
			if err != nil {
				c.tel.ReportBroken(report_crawl_rotate, err, telemetry.KV{Key: "processed", Value: stats.Processed()})
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
				return stats, fmt.Errorf("rotate before link %d: %w", offset+i, err)
			}
			stats.Rotations++
			if c.OnRotate != nil {
				c.OnRotate()
			}
		}

		c.process(ctx, link, &stats)
		c.tel.ReportCount(report_crawl_progress, int64(stats.Processed()))
	}

	return stats, nil
}

func (c *Crawler) process(ctx context.Context, link string, stats *Stats) {
	ctx, span := tracer.Start(ctx, "process")
	defer span.End()

	span.SetAttributes(attribute.String("link", link))

	doc, err := c.Fetcher.FetchIdea(ctx, link)
	if err != nil {
		c.tel.ReportWarning(report_crawl_fetch, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		stats.FetchFailed++
		return
	}

	idea := vic.ParseIdea(ctx, doc, link)
	_, err = c.Ingester.Ingest(ctx, idea)
	switch {
	case err == nil:
		stats.Ingested++
		return
	case errors.Is(err, vic.ErrDateParse):
		stats.BadDate++
	case errors.Is(err, normalize.ErrPersistenceConflict):
		stats.Conflicts++
	case errors.Is(err, normalize.ErrDuplicateIdea):
		stats.Duplicates++
	default:
		stats.Failed++
	}
	c.tel.ReportWarning(report_crawl_ingest, err, link)
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

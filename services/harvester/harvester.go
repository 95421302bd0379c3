// Package harvester accumulates idea links from the paginated listing,
// rotating the network identity when the site starts refusing it and
// checkpointing progress to snapshot files.
package harvester

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"path/filepath"
	"time"
	"vicharvest/lib/identity"
	"vicharvest/lib/scrapers/vic"
	"vicharvest/lib/snapshots"
	"vicharvest/lib/telemetry"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("vicharvest.services.harvester")

const (
	report_harvester_state      = "harvester.state"
	report_harvester_navigate   = "harvester.navigate"
	report_harvester_reveal     = "harvester.reveal"
	report_harvester_extract    = "harvester.extract"
	report_harvester_rotate     = "harvester.rotate"
	report_harvester_checkpoint = "harvester.checkpoint"
	report_harvester_links      = "harvester.links"
)

// ErrExtractionTimeout is returned when revealing more ideas fails again
// right after the identity was rotated because of a failure.
var ErrExtractionTimeout = errors.New("extraction failed after identity rotation")

// Listing is the paginated listing view a session drives.
type Listing interface {
	GotoDate(ctx context.Context, date time.Time) error
	// LoadMore reveals more ideas and returns how many new ones appeared.
	LoadMore(ctx context.Context) (int, error)
	// Links extracts every idea link revealed so far.
	Links(ctx context.Context) ([]string, error)
}

// OpenListing starts a fresh listing session.
type OpenListing func(ctx context.Context) (Listing, error)

// ClientListing adapts a site client to OpenListing.
func ClientListing(client *vic.Client) OpenListing {
	return func(ctx context.Context) (Listing, error) {
		listing, err := client.OpenListing(ctx)
		if err != nil {
			return nil, err
		}
		return listing, nil
	}
}

type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

type timerSleeper struct{}

func (timerSleeper) Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type Config struct {
	// Dir is where checkpoint files are written.
	Dir string

	ResyncEvery     int
	RotateEvery     int
	CheckpointEvery int

	// every wait between iterations is uniformly distributed in
	// [MinWait, MaxWait]
	MinWait time.Duration
	MaxWait time.Duration

	// RevealTimeout bounds a single "load more".
	RevealTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		Dir:             ".",
		ResyncEvery:     10,
		RotateEvery:     60,
		CheckpointEvery: 20,
		MinWait:         time.Second,
		MaxWait:         15 * time.Second,
		RevealTimeout:   time.Minute,
	}
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.Dir == "" {
		c.Dir = defaults.Dir
	}
	if c.ResyncEvery <= 0 {
		c.ResyncEvery = defaults.ResyncEvery
	}
	if c.RotateEvery <= 0 {
		c.RotateEvery = defaults.RotateEvery
	}
	if c.CheckpointEvery <= 0 {
		c.CheckpointEvery = defaults.CheckpointEvery
	}
	if c.MinWait < 0 {
		c.MinWait = 0
	}
	if c.MaxWait < c.MinWait {
		c.MaxWait = c.MinWait
	}
	if c.RevealTimeout <= 0 {
		c.RevealTimeout = defaults.RevealTimeout
	}
	return c
}

type Harvester struct {
	Config  Config
	Open    OpenListing
	Rotator identity.Rotator
	Sleeper Sleeper
	// OnRotate is called after each successful rotation, it is where
	// per-identity client state (cookies) is dropped.
	OnRotate func()

	tel telemetry.API
}

func New(config Config, open OpenListing, rotator identity.Rotator, tel telemetry.API) *Harvester {
	return &Harvester{
		Config:  config.withDefaults(),
		Open:    open,
		Rotator: rotator,
		Sleeper: timerSleeper{},
		tel:     telemetry.NewScopedAPI("harvester", tel),
	}
}

type Result struct {
	SessionID string
	Links     []string
	// File is the checkpoint file holding Links.
	File        string
	Iterations  int
	Rotations   int
	Checkpoints int
	Exhausted   bool
}

func (h *Harvester) transition(s *Session, to State) {
	h.tel.ReportDebug(
		report_harvester_state,
		telemetry.KV{Key: "session", Value: s.ID},
		telemetry.KV{Key: "from", Value: s.State.String()},
		telemetry.KV{Key: "to", Value: to.String()},
		telemetry.KV{Key: "iteration", Value: s.Iteration},
	)
	s.State = to
}

func (h *Harvester) fail(s *Session, err error) error {
	h.transition(s, Failed)
	return err
}

// Harvest runs one harvest session starting at startDate for at most
// maxIterations reveals. Checkpoints already written are left in place when
// it fails.
func (h *Harvester) Harvest(ctx context.Context, startDate time.Time, maxIterations int) (Result, error) {
	ctx, span := tracer.Start(ctx, "Harvest")
	defer span.End()

	session, err := newSession(startDate)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Result{}, err
	}
	span.SetAttributes(
		attribute.String("session", session.ID),
		attribute.String("start_date", startDate.Format(snapshots.InputDateLayout)),
		attribute.Int("max_iterations", maxIterations),
	)

	result, err := h.run(ctx, session, maxIterations)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return result, err
}

func (h *Harvester) run(ctx context.Context, s *Session, maxIterations int) (Result, error) {
	h.transition(s, Navigating)
	listing, err := h.Open(ctx)
	if err != nil {
		h.tel.ReportBroken(report_harvester_navigate, err)
		return Result{}, h.fail(s, fmt.Errorf("open listing: %w", err))
	}
	err = listing.GotoDate(ctx, s.StartDate)
	if err != nil {
		h.tel.ReportBroken(report_harvester_navigate, err, s.StartDate.Format(snapshots.InputDateLayout))
		return Result{}, h.fail(s, err)
	}

	for s.Iteration < maxIterations {
		s.Iteration++

		err := h.revealWithRetry(ctx, s, listing)
		if errors.Is(err, vic.ErrListingExhausted) {
			s.Exhausted = true
			h.tel.ReportDebug("listing exhausted", telemetry.KV{Key: "iteration", Value: s.Iteration})
			break
		}
		if err != nil {
			return Result{}, h.fail(s, err)
		}

		h.transition(s, Waiting)
		err = h.Sleeper.Sleep(ctx, h.jitter())
		if err != nil {
			return Result{}, h.fail(s, err)
		}

		if s.Iteration%h.Config.ResyncEvery == 0 {
			h.extract(ctx, s, listing)
		}
		if s.Iteration-s.LastRotation >= h.Config.RotateEvery {
			err := h.rotate(ctx, s)
			if err != nil {
				return Result{}, h.fail(s, err)
			}
		}
		if s.Iteration%h.Config.CheckpointEvery == 0 {
			_, err := h.checkpoint(s)
			if err != nil {
				return Result{}, h.fail(s, err)
			}
		}
	}

	h.extract(ctx, s, listing)
	file, err := h.checkpoint(s)
	if err != nil {
		return Result{}, h.fail(s, err)
	}
	h.transition(s, Done)
	h.tel.ReportCount(report_harvester_links, int64(len(s.links)))

	return Result{
		SessionID:   s.ID,
		Links:       s.Links(),
		File:        file,
		Iterations:  s.Iteration,
		Rotations:   s.Rotations,
		Checkpoints: s.Checkpoints,
		Exhausted:   s.Exhausted,
	}, nil
}

func (h *Harvester) reveal(ctx context.Context, s *Session, listing Listing) error {
	h.transition(s, Extracting)

	ctx, cancel := context.WithTimeout(ctx, h.Config.RevealTimeout)
	defer cancel()

	added, err := listing.LoadMore(ctx)
	if err != nil {
		return err
	}
	h.tel.ReportDebug(
		report_harvester_reveal,
		telemetry.KV{Key: "iteration", Value: s.Iteration},
		telemetry.KV{Key: "added", Value: added},
	)
	return nil
}

// revealWithRetry rotates the identity after a failed reveal and tries
// once more, a second failure is ErrExtractionTimeout.
func (h *Harvester) revealWithRetry(ctx context.Context, s *Session, listing Listing) error {
	err := h.reveal(ctx, s, listing)
	if err == nil || errors.Is(err, vic.ErrListingExhausted) {
		return err
	}
	h.tel.ReportWarning(report_harvester_reveal, err, telemetry.KV{Key: "iteration", Value: s.Iteration})

	err = h.rotate(ctx, s)
	if err != nil {
		return err
	}

	s.Retrying = true
	err = h.reveal(ctx, s, listing)
	s.Retrying = false
	if err == nil || errors.Is(err, vic.ErrListingExhausted) {
		return err
	}
	h.tel.ReportBroken(report_harvester_reveal, err, telemetry.KV{Key: "iteration", Value: s.Iteration})
	return fmt.Errorf("%w: %w", ErrExtractionTimeout, err)
}

func (h *Harvester) extract(ctx context.Context, s *Session, listing Listing) {
	h.transition(s, Extracting)

	links, err := listing.Links(ctx)
	if err != nil {
		h.tel.ReportWarning(report_harvester_extract, err)
		return
	}
	added := s.merge(links)
	h.tel.ReportDebug(
		report_harvester_extract,
		telemetry.KV{Key: "added", Value: added},
		telemetry.KV{Key: "known", Value: len(s.links)},
	)
}

func (h *Harvester) rotate(ctx context.Context, s *Session) error {
	h.transition(s, Rotating)

	err := identity.Rotate(ctx, h.Rotator, h.tel)
	if err != nil {
		h.tel.ReportBroken(report_harvester_rotate, err)
		return err
	}
	s.LastRotation = s.Iteration
	s.Rotations++
	if h.OnRotate != nil {
		h.OnRotate()
	}
	return nil
}

func (h *Harvester) checkpoint(s *Session) (string, error) {
	h.transition(s, Checkpointing)

	path := filepath.Join(h.Config.Dir, snapshots.FileName(s.StartDate))
	err := snapshots.Write(path, s.links)
	if err != nil {
		h.tel.ReportBroken(report_harvester_checkpoint, err, path)
		return "", fmt.Errorf("checkpoint: %w", err)
	}
	s.Checkpoints++
	h.tel.ReportDebug(
		report_harvester_checkpoint,
		telemetry.KV{Key: "file", Value: path},
		telemetry.KV{Key: "links", Value: len(s.links)},
	)
	return path, nil
}

func (h *Harvester) jitter() time.Duration {
	spread := h.Config.MaxWait - h.Config.MinWait
	if spread <= 0 {
		return h.Config.MinWait
	}
	return h.Config.MinWait + rand.N(spread+1)
}

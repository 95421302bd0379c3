package harvester

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"
	"vicharvest/lib/identity"
	"vicharvest/lib/scrapers/vic"
	"vicharvest/lib/snapshots"
	"vicharvest/lib/telemetry"

	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("load more timed out")

type fakeListing struct {
	gotoErr error
	// loads is consumed by LoadMore, a nil entry (or running out of
	// entries) reveals one new link
	loads []error

	gotoDate  time.Time
	links     []string
	loadCalls int
}

func (f *fakeListing) GotoDate(_ context.Context, date time.Time) error {
	f.gotoDate = date
	return f.gotoErr
}

func (f *fakeListing) LoadMore(context.Context) (int, error) {
	f.loadCalls++
	if len(f.loads) > 0 {
		err := f.loads[0]
		f.loads = f.loads[1:]
		if err != nil {
			return 0, err
		}
	}
	f.links = append(f.links, fmt.Sprintf("https://www.valueinvestorsclub.com/idea/CO%d/%d", f.loadCalls, f.loadCalls))
	return 1, nil
}

func (f *fakeListing) Links(context.Context) ([]string, error) {
	out := make([]string, len(f.links))
	copy(out, f.links)
	return out, nil
}

type countingRotator struct {
	rotateErrs []error
	rotations  int
}

func (r *countingRotator) Rotate(context.Context) error {
	r.rotations++
	if len(r.rotateErrs) == 0 {
		return nil
	}
	err := r.rotateErrs[0]
	r.rotateErrs = r.rotateErrs[1:]
	return err
}

func (r *countingRotator) Disconnect(context.Context) error { return nil }

type recordingSleeper struct {
	waits []time.Duration
}

func (s *recordingSleeper) Sleep(_ context.Context, d time.Duration) error {
	s.waits = append(s.waits, d)
	return nil
}

var startDate = time.Date(2021, 3, 1, 0, 0, 0, 0, time.UTC)

func setup(t testing.TB, config Config, listing *fakeListing, rotator identity.Rotator) (*Harvester, *recordingSleeper, *telemetry.Recorder) {
	cleanup := telemetry.SetupForTesting(t, "test:harvester")
	t.Cleanup(cleanup)

	if config.Dir == "" {
		config.Dir = t.TempDir()
	}
	tel := &telemetry.Recorder{Inner: telemetry.SlogAPI{}}
	h := New(config, func(context.Context) (Listing, error) {
		return listing, nil
	}, rotator, tel)
	sleeper := &recordingSleeper{}
	h.Sleeper = sleeper
	return h, sleeper, tel
}

func TestHarvestCadence(t *testing.T) {
	listing := &fakeListing{links: []string{"https://www.valueinvestorsclub.com/idea/FIRST/0"}}
	rotator := &countingRotator{}
	h, sleeper, _ := setup(t, Config{
		ResyncEvery:     10,
		RotateEvery:     20,
		CheckpointEvery: 20,
		MinWait:         time.Second,
		MaxWait:         15 * time.Second,
	}, listing, rotator)

	onRotate := 0
	h.OnRotate = func() { onRotate++ }

	result, err := h.Harvest(context.Background(), startDate, 45)
	require.NoError(t, err)

	require.Equal(t, startDate, listing.gotoDate)
	require.Equal(t, 45, result.Iterations)
	require.Equal(t, 45, listing.loadCalls)
	require.Equal(t, 2, result.Rotations)
	require.Equal(t, 2, rotator.rotations)
	require.Equal(t, 2, onRotate)
	// iterations 20 and 40 plus the final one
	require.Equal(t, 3, result.Checkpoints)
	require.False(t, result.Exhausted)
	require.Len(t, result.Links, 46)

	require.Len(t, sleeper.waits, 45)
	for _, wait := range sleeper.waits {
		require.GreaterOrEqual(t, wait, time.Second)
		require.LessOrEqual(t, wait, 15*time.Second)
	}

	require.Equal(t, filepath.Join(h.Config.Dir, "idea_links-03-01-2021.txt"), result.File)
	written, err := snapshots.Read(result.File)
	require.NoError(t, err)
	require.Equal(t, result.Links, written)
}

func TestHarvestRotatesOnFailure(t *testing.T) {
	listing := &fakeListing{loads: []error{nil, errBoom, nil}}
	rotator := &countingRotator{}
	h, _, tel := setup(t, Config{}, listing, rotator)

	result, err := h.Harvest(context.Background(), startDate, 3)
	require.NoError(t, err)
	require.Equal(t, 1, result.Rotations)
	require.Equal(t, 3, result.Iterations)
	// the failed reveal is retried once
	require.Equal(t, 4, listing.loadCalls)
	require.Len(t, result.Links, 3)
	require.Len(t, tel.Reports("warning", report_harvester_reveal), 1)
}

func TestHarvestFailsAfterRetry(t *testing.T) {
	listing := &fakeListing{loads: []error{nil, nil, errBoom, vic.ErrNoNewItems}}
	rotator := &countingRotator{}
	h, _, tel := setup(t, Config{ResyncEvery: 1, CheckpointEvery: 2}, listing, rotator)

	_, err := h.Harvest(context.Background(), startDate, 10)
	require.ErrorIs(t, err, ErrExtractionTimeout)
	require.ErrorIs(t, err, vic.ErrNoNewItems)
	require.Equal(t, 1, rotator.rotations)
	require.Len(t, tel.Reports("broken", report_harvester_reveal), 1)

	// the checkpoint of iteration 2 stays in place
	written, err := snapshots.Read(filepath.Join(h.Config.Dir, snapshots.FileName(startDate)))
	require.NoError(t, err)
	require.Len(t, written, 2)
}

func TestHarvestRotationFailure(t *testing.T) {
	listing := &fakeListing{loads: []error{errBoom}}
	rotator := &countingRotator{rotateErrs: []error{errBoom, errBoom}}
	h, _, _ := setup(t, Config{}, listing, rotator)

	_, err := h.Harvest(context.Background(), startDate, 5)
	require.ErrorIs(t, err, identity.ErrRotationFailed)
	require.Equal(t, 1, listing.loadCalls)

	_, err = os.Stat(filepath.Join(h.Config.Dir, snapshots.FileName(startDate)))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestHarvestNavigationFailure(t *testing.T) {
	listing := &fakeListing{gotoErr: fmt.Errorf("%w: date-jump control not found", vic.ErrNavigation)}
	h, _, tel := setup(t, Config{}, listing, &countingRotator{})

	_, err := h.Harvest(context.Background(), startDate, 5)
	require.ErrorIs(t, err, vic.ErrNavigation)
	require.Equal(t, 0, listing.loadCalls)
	require.Len(t, tel.Reports("broken", report_harvester_navigate), 1)
}

func TestHarvestOpenFailure(t *testing.T) {
	h := New(Config{Dir: t.TempDir()}, func(context.Context) (Listing, error) {
		return nil, vic.ErrBlocked
	}, identity.Noop{}, telemetry.SlogAPI{})

	_, err := h.Harvest(context.Background(), startDate, 5)
	require.ErrorIs(t, err, vic.ErrBlocked)
}

func TestHarvestListingExhausted(t *testing.T) {
	listing := &fakeListing{loads: []error{nil, vic.ErrListingExhausted}}
	rotator := &countingRotator{}
	h, sleeper, _ := setup(t, Config{}, listing, rotator)

	result, err := h.Harvest(context.Background(), startDate, 50)
	require.NoError(t, err)
	require.True(t, result.Exhausted)
	require.Equal(t, 2, result.Iterations)
	require.Equal(t, 0, rotator.rotations)
	require.Len(t, sleeper.waits, 1)
	require.Len(t, result.Links, 1)
	require.Equal(t, 1, result.Checkpoints)
}

func TestHarvestFreshSessions(t *testing.T) {
	listing := &fakeListing{}
	h, _, _ := setup(t, Config{}, listing, &countingRotator{})

	first, err := h.Harvest(context.Background(), startDate, 2)
	require.NoError(t, err)
	second, err := h.Harvest(context.Background(), startDate, 2)
	require.NoError(t, err)

	require.NotEqual(t, first.SessionID, second.SessionID)
	require.Equal(t, 2, second.Iterations)
}

func TestStateString(t *testing.T) {
	require.Equal(t, "checkpointing", Checkpointing.String())
	require.Equal(t, "failed", Failed.String())
	require.Equal(t, "unknown", State(99).String())
}

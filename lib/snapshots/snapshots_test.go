package snapshots

import (
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/require"
)

func writeSnapshot(t *testing.T, dir, name string, lines ...string) string {
	path := filepath.Join(dir, name)
	err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0600)
	if err != nil {
		t.Fatal(err)
	}
	return path
}

func fixtureFiles(t *testing.T) (string, []string) {
	dir := t.TempDir()
	files := []string{
		writeSnapshot(t, dir, "idea_links-02-27-2023.txt",
			"https://site/idea/A/1",
			"https://site/idea/A/1/messages",
			"https://site/idea/B/2",
			"https://site/idea/B/2",
		),
		writeSnapshot(t, dir, "idea_links-01-15-2022.txt",
			"https://site/idea/B/2/messages/4",
			"",
			"  https://site/idea/C/3  ",
		),
		writeSnapshot(t, dir, "idea_links-06-01-2021.txt",
			"https://site/idea/D/4",
		),
	}
	return dir, files
}

func TestNormalizeLink(t *testing.T) {
	require.Equal(t, "https://site/idea/X", NormalizeLink("https://site/idea/X/messages/1"))
	require.Equal(t, "https://site/idea/X", NormalizeLink("https://site/idea/X"))
	require.Equal(t, "https://site/idea/X", NormalizeLink(" https://site/idea/X/messages \n"))

	set, _, err := Deduplicate([]string{
		writeSnapshot(t, t.TempDir(), "idea_links-x.txt", "https://site/idea/X/messages/1", "https://site/idea/X"),
	})
	require.NoError(t, err)
	require.Len(t, set, 1)
}

func TestDeduplicate(t *testing.T) {
	_, files := fixtureFiles(t)

	set, counts, err := Deduplicate(files)
	require.NoError(t, err)

	diff := cmp.Diff(
		[]string{
			"https://site/idea/A/1",
			"https://site/idea/B/2",
			"https://site/idea/C/3",
			"https://site/idea/D/4",
		},
		set.Sorted(),
	)
	if diff != "" {
		t.Fatal(diff)
	}

	require.Equal(t, FileCount{File: files[0], Lines: 4, Unique: 2}, counts[0])
	require.Equal(t, FileCount{File: files[1], Lines: 2, Unique: 2}, counts[1])
}

func TestDeduplicateOrderIndependent(t *testing.T) {
	_, files := fixtureFiles(t)

	expected, _, err := Deduplicate(files)
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	for range 10 {
		shuffled := append([]string(nil), files...)
		rng.Shuffle(len(shuffled), func(i, j int) {
			shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
		})

		got, _, err := Deduplicate(shuffled)
		require.NoError(t, err)
		if diff := cmp.Diff(expected.Sorted(), got.Sorted(), cmpopts.EquateEmpty()); diff != "" {
			t.Fatal(diff)
		}
	}
}

func TestDeduplicateIdempotent(t *testing.T) {
	dir, _ := fixtureFiles(t)

	first, _, err := DeduplicateDir(dir)
	require.NoError(t, err)

	// the canonical file now sits next to the snapshots and must be ignored
	second, counts, err := DeduplicateDir(dir)
	require.NoError(t, err)
	require.Len(t, counts, 3)
	require.Equal(t, first.Sorted(), second.Sorted())

	// deduplicating the canonical output on its own yields the same set
	canonical, err := Read(filepath.Join(dir, CanonicalName))
	require.NoError(t, err)
	again, _, err := Deduplicate([]string{
		writeSnapshot(t, t.TempDir(), "idea_links-canonical-copy.txt", canonical...),
	})
	require.NoError(t, err)
	require.Equal(t, first.Sorted(), again.Sorted())
}

func TestDeduplicateSkipsCanonicalFile(t *testing.T) {
	dir := t.TempDir()
	canonical := writeSnapshot(t, dir, CanonicalName, "https://site/idea/stale/1")
	snapshot := writeSnapshot(t, dir, "idea_links-01-01-2020.txt", "https://site/idea/fresh/2")

	set, _, err := Deduplicate([]string{canonical, snapshot})
	require.NoError(t, err)
	require.Equal(t, []string{"https://site/idea/fresh/2"}, set.Sorted())

	files, err := Files(dir)
	require.NoError(t, err)
	require.Equal(t, []string{snapshot}, files)
}

func TestFileName(t *testing.T) {
	require.Equal(t, "idea_links-02-27-2023.txt", FileName(time.Date(2023, 2, 27, 0, 0, 0, 0, time.UTC)))
}

func TestWriteRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "idea_links-01-01-2020.txt")
	require.NoError(t, Write(path, []string{"a", "b"}))
	require.NoError(t, Write(path, []string{"c"}))

	links, err := Read(path)
	require.NoError(t, err)
	require.Equal(t, []string{"c"}, links)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestWriteCanonical(t *testing.T) {
	dir := t.TempDir()
	writeSnapshot(t, dir, "idea_links-01-01-2020.txt", "https://site/idea/b/2", "https://site/idea/a/1")
	writeSnapshot(t, dir, "idea_links-01-02-2020.txt", "https://site/idea/a/1")

	set, _, err := DeduplicateDir(dir)
	require.NoError(t, err)

	path, err := WriteCanonical(dir, set)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, CanonicalName), path)

	links, err := Read(path)
	require.NoError(t, err)
	require.Equal(t, []string{"https://site/idea/a/1", "https://site/idea/b/2"}, links)
}

// Package snapshots reads and writes the link snapshot files produced by
// harvest sessions and merges them into the canonical link set.
//
// A snapshot file is plain text with one url per line and no header.
package snapshots

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"
)

const (
	// Prefix is shared by every snapshot file and the canonical file.
	Prefix = "idea_links"
	// CanonicalName is the reserved name of the deduplicated output.
	CanonicalName = "idea_links_no_duplicates.txt"

	// dates in file names are MM/DD/YYYY with dashes in place of slashes
	fileDateLayout = "01-02-2006"
	// the layout the listing's date-jump control takes
	InputDateLayout = "01/02/2006"
)

// linkSuffixes are sub-paths that point at the same idea as their parent.
var linkSuffixes = []string{"/messages"}

// NormalizeLink returns the form of a link used for equality: surrounding
// whitespace is removed and everything from a known suffix on is dropped.
func NormalizeLink(link string) string {
	link = strings.TrimSpace(link)
	for _, suffix := range linkSuffixes {
		if i := strings.Index(link, suffix); i >= 0 {
			link = link[:i]
		}
	}
	return link
}

// FileName is the snapshot file name for a harvest started at date.
func FileName(date time.Time) string {
	return fmt.Sprintf("%s-%s.txt", Prefix, date.Format(fileDateLayout))
}

// Read returns the non-empty lines of a snapshot file.
func Read(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var links []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		links = append(links, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return links, nil
}

// Write replaces the file at path with links, one per line. The contents
// are written to a temporary file first so a crash never leaves a
// truncated snapshot behind.
func Write(path string, links []string) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	w := bufio.NewWriter(tmp)
	for _, link := range links {
		_, err = w.WriteString(link + "\n")
		if err != nil {
			tmp.Close()
			return err
		}
	}
	if err = w.Flush(); err != nil {
		tmp.Close()
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// Set is a set of normalized links.
type Set map[string]struct{}

func (s Set) Add(links ...string) {
	for _, link := range links {
		s[link] = struct{}{}
	}
}

// Sorted returns the links of the set in lexical order.
func (s Set) Sorted() []string {
	out := make([]string, 0, len(s))
	for link := range s {
		out = append(out, link)
	}
	slices.Sort(out)
	return out
}

// FileCount is how many lines and unique links one snapshot file held.
type FileCount struct {
	File   string
	Lines  int
	Unique int
}

// Deduplicate merges snapshot files into one set of unique links. The
// canonical output file is skipped if it is part of files.
func Deduplicate(files []string) (Set, []FileCount, error) {
	all := Set{}
	var counts []FileCount
	for _, file := range files {
		if filepath.Base(file) == CanonicalName {
			continue
		}

		lines, err := Read(file)
		if err != nil {
			return nil, nil, err
		}

		perFile := Set{}
		for _, line := range lines {
			link := NormalizeLink(line)
			if link == "" {
				continue
			}
			perFile.Add(link)
		}
		for link := range perFile {
			all.Add(link)
		}

		counts = append(counts, FileCount{
			File:   file,
			Lines:  len(lines),
			Unique: len(perFile),
		})
	}
	return all, counts, nil
}

// Files lists the snapshot files in dir, excluding the canonical file.
func Files(dir string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, Prefix+"*.txt"))
	if err != nil {
		return nil, err
	}
	var files []string
	for _, m := range matches {
		if filepath.Base(m) == CanonicalName {
			continue
		}
		files = append(files, m)
	}
	slices.Sort(files)
	return files, nil
}

// DeduplicateDir deduplicates every snapshot file in dir and writes the
// result to the canonical file in the same directory.
func DeduplicateDir(dir string) (Set, []FileCount, error) {
	files, err := Files(dir)
	if err != nil {
		return nil, nil, err
	}
	set, counts, err := Deduplicate(files)
	if err != nil {
		return nil, nil, err
	}
	_, err = WriteCanonical(dir, set)
	if err != nil {
		return nil, nil, err
	}
	return set, counts, nil
}

// WriteCanonical writes set, sorted, to the canonical file in dir and
// returns its path.
func WriteCanonical(dir string, set Set) (string, error) {
	path := filepath.Join(dir, CanonicalName)
	return path, Write(path, set.Sorted())
}

package sensorlog

import (
	"context"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"time"
)

// ScanOptions tune a backward scan.
type ScanOptions struct {
	// Stride keeps only every Stride-th line, counted from the end of the
	// file starting with the newest line. Values below 2 keep every line.
	Stride int
	// Stats, when set, receives the statistics of the scan.
	Stats *ScanStats
}

// ScanStats describes the work done by one scan.
type ScanStats struct {
	// Visited counts the non-blank lines read from the file.
	Visited int
	// Considered counts the visited lines that passed the stride filter
	// and had their timestamp parsed.
	Considered int
}

// Scanner runs bounded backward scans over one log file. The file is opened
// read-only for every query and never written.
type Scanner struct {
	path      string
	loc       *time.Location
	blockSize int
}

func NewScanner(path string, loc *time.Location) *Scanner {
	if loc == nil {
		loc = time.Local
	}
	return &Scanner{path: path, loc: loc, blockSize: defaultBlockSize}
}

// Path returns the log file the scanner reads.
func (s *Scanner) Path() string { return s.path }

// Location returns the time zone timestamps are interpreted in.
func (s *Scanner) Location() *time.Location { return s.loc }

// visitFunc is called for each considered line, newest first. Returning
// false stops the scan.
type visitFunc func(line string, t time.Time) bool

func (s *Scanner) walk(ctx context.Context, opts ScanOptions, visit visitFunc) error {
	var stats ScanStats
	if opts.Stats != nil {
		defer func() { *opts.Stats = stats }()
	}

	f, err := os.Open(s.path)
	if err != nil {
		return fmt.Errorf("open log: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat log: %w", err)
	}

	stride := opts.Stride
	if stride < 1 {
		stride = 1
	}

	br := newBackwardReader(f, info.Size(), s.blockSize)
	for {
		line, err := br.Line()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read log: %w", err)
		}
		if strings.TrimSpace(line) == "" {
			continue
		}

		idx := stats.Visited
		stats.Visited++
		if idx%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		if idx%stride != 0 {
			continue
		}
		stats.Considered++

		t, err := ParseTime(line, s.loc)
		if err != nil {
			return fmt.Errorf("line %d from end: %w", idx+1, err)
		}
		if !visit(line, t) {
			return nil
		}
	}
}

// Scan returns the raw lines whose timestamp t satisfies from <= t < to,
// newest first. The scan stops at the first considered line older than from.
func (s *Scanner) Scan(ctx context.Context, from, to time.Time, opts ScanOptions) ([]string, error) {
	var lines []string
	err := s.walk(ctx, opts, func(line string, t time.Time) bool {
		if t.Before(from) {
			return false
		}
		if t.Before(to) {
			lines = append(lines, line)
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	return lines, nil
}

// Records scans [from, to) and parses the matching lines. Records are
// returned oldest first, ready for plotting.
func (s *Scanner) Records(ctx context.Context, from, to time.Time, opts ScanOptions) ([]Record, error) {
	lines, err := s.Scan(ctx, from, to, opts)
	if err != nil {
		return nil, err
	}
	recs := make([]Record, 0, len(lines))
	for _, line := range lines {
		rec, err := ParseRecord(line, s.loc)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	slices.Reverse(recs)
	return recs, nil
}

// Since writes every line strictly newer than ref to w, newest first, and
// returns the number of lines written.
func (s *Scanner) Since(ctx context.Context, ref time.Time, w io.Writer) (int, error) {
	n := 0
	var werr error
	err := s.walk(ctx, ScanOptions{}, func(line string, t time.Time) bool {
		if !t.After(ref) {
			return false
		}
		if _, werr = fmt.Fprintln(w, line); werr != nil {
			return false
		}
		n++
		return true
	})
	if err != nil {
		return n, err
	}
	return n, werr
}

// Latest returns the newest record in the log. ok is false for an empty log.
func (s *Scanner) Latest(ctx context.Context) (rec Record, ok bool, err error) {
	var last string
	err = s.walk(ctx, ScanOptions{}, func(line string, _ time.Time) bool {
		last = line
		return false
	})
	if err != nil || last == "" {
		return Record{}, false, err
	}
	rec, err = ParseRecord(last, s.loc)
	if err != nil {
		return Record{}, false, err
	}
	return rec, true, nil
}

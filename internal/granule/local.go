package granule

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"
)

// LocalSource reads granules from a directory of <dataset>*<yymmdd>*.json.gz
// files, the layout produced by bulk-downloading an archive month.
type LocalSource struct {
	Dir string
}

func NewLocalSource(dir string) *LocalSource {
	return &LocalSource{Dir: dir}
}

func (s *LocalSource) Fetch(ctx context.Context, dataset string, d time.Time) (Handle, error) {
	pattern := filepath.Join(s.Dir, fmt.Sprintf("%s*%s*.json.gz", dataset, d.Format("060102")))
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("glob %s: %w", pattern, err)
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("%w: no local granule for %s", ErrNotFound, d.Format("2006-01-02"))
	}

	f, err := os.Open(matches[0])
	if err != nil {
		return nil, fmt.Errorf("open granule: %w", err)
	}
	defer f.Close()
	return decode(f)
}

var fileDateRe = regexp.MustCompile(`(\d{6})`)

// TimeRange scans granule file names for their embedded yymmdd dates.
func (s *LocalSource) TimeRange(ctx context.Context, dataset string) (time.Time, time.Time, error) {
	matches, err := filepath.Glob(filepath.Join(s.Dir, dataset+"*.json.gz"))
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("glob granules: %w", err)
	}

	var first, last time.Time
	for _, m := range matches {
		name := filepath.Base(m)
		ds := fileDateRe.FindString(name[len(dataset):])
		if ds == "" {
			continue
		}
		d, err := time.Parse("060102", ds)
		if err != nil {
			continue
		}
		if first.IsZero() || d.Before(first) {
			first = d
		}
		if last.IsZero() || d.After(last) {
			last = d
		}
	}
	if first.IsZero() {
		return time.Time{}, time.Time{}, fmt.Errorf("no granules for %s in %s", dataset, s.Dir)
	}
	return first, last, nil
}

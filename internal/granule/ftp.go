package granule

import (
	"context"
	"errors"
	"fmt"
	"net/textproto"
	"path"
	"time"

	"github.com/jlaffaye/ftp"

	"github.com/jacqryan/gridsif/internal/metrics"
)

// FTPSource fetches granules over anonymous FTP using the same archive
// layout as HTTPSource: <root>/<dataset>/<yyyy>/<dataset>_<yymmdd>.json.gz.
type FTPSource struct {
	host string
	root string
}

// NewFTPSource takes a host:port address and the archive root directory.
func NewFTPSource(host, root string) *FTPSource {
	if root == "" {
		root = "/"
	}
	return &FTPSource{host: host, root: root}
}

func (s *FTPSource) connect(ctx context.Context) (*ftp.ServerConn, error) {
	conn, err := ftp.Dial(s.host, ftp.DialWithTimeout(30*time.Second), ftp.DialWithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("ftp dial: %w", err)
	}
	if err := conn.Login("anonymous", "anonymous"); err != nil {
		conn.Quit()
		return nil, fmt.Errorf("ftp login: %w", err)
	}
	return conn, nil
}

func (s *FTPSource) Fetch(ctx context.Context, dataset string, d time.Time) (Handle, error) {
	start := time.Now()
	h, err := s.fetch(ctx, dataset, d)
	metrics.GranuleFetchLatency.WithLabelValues("ftp").Observe(time.Since(start).Seconds())
	metrics.GranuleFetchesTotal.WithLabelValues("ftp", fetchStatus(err)).Inc()
	return h, err
}

func (s *FTPSource) fetch(ctx context.Context, dataset string, d time.Time) (Handle, error) {
	conn, err := s.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Quit()

	p := path.Join(s.root, dataset, fmt.Sprintf("%d", d.Year()), granuleName(dataset, d))
	resp, err := conn.Retr(p)
	if err != nil {
		var tpErr *textproto.Error
		if errors.As(err, &tpErr) && tpErr.Code == ftp.StatusFileUnavailable {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, p)
		}
		return nil, fmt.Errorf("ftp retr %s: %w", p, err)
	}
	defer resp.Close()

	return decode(resp)
}

// TimeRange walks the dataset's year directories and derives coverage from
// granule file names.
func (s *FTPSource) TimeRange(ctx context.Context, dataset string) (time.Time, time.Time, error) {
	conn, err := s.connect(ctx)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	defer conn.Quit()

	years, err := conn.NameList(path.Join(s.root, dataset))
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("ftp list %s: %w", dataset, err)
	}

	var first, last time.Time
	for _, year := range years {
		names, err := conn.NameList(path.Join(s.root, dataset, path.Base(year)))
		if err != nil {
			continue
		}
		for _, name := range names {
			base := path.Base(name)
			if len(base) <= len(dataset) {
				continue
			}
			ds := fileDateRe.FindString(base[len(dataset):])
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
	}
	if first.IsZero() {
		return time.Time{}, time.Time{}, fmt.Errorf("no granules for %s on %s", dataset, s.host)
	}
	return first, last, nil
}

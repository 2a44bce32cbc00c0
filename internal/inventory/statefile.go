package inventory

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"movemate/internal/transit"
)

// Saver persists an occupancy snapshot.
type Saver interface {
	Save(ctx context.Context, entries []transit.Entry) error
}

// StateFile stores one "<routeId> <occupancy>" line per route.
type StateFile struct {
	Path string
}

// Load reads persisted entries. A missing file yields no entries. Reading
// stops at the first token pair that is not two integers.
func (f StateFile) Load() ([]transit.Entry, error) {
	fh, err := os.Open(f.Path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open state file: %w", err)
	}
	defer fh.Close()
	return parseState(fh)
}

func parseState(r io.Reader) ([]transit.Entry, error) {
	sc := bufio.NewScanner(r)
	sc.Split(bufio.ScanWords)
	var out []transit.Entry
	for {
		id, ok := nextInt(sc)
		if !ok {
			break
		}
		occ, ok := nextInt(sc)
		if !ok {
			break
		}
		out = append(out, transit.Entry{RouteID: id, Occupancy: occ})
	}
	if err := sc.Err(); err != nil {
		return out, fmt.Errorf("read state file: %w", err)
	}
	return out, nil
}

func nextInt(sc *bufio.Scanner) (int, bool) {
	if !sc.Scan() {
		return 0, false
	}
	n, err := strconv.Atoi(sc.Text())
	if err != nil {
		return 0, false
	}
	return n, true
}

// Save replaces the file contents through a temp file and rename, so a
// failed write leaves the previous state intact.
func (f StateFile) Save(_ context.Context, entries []transit.Entry) error {
	var buf bytes.Buffer
	for _, e := range entries {
		fmt.Fprintf(&buf, "%d %d\n", e.RouteID, e.Occupancy)
	}
	dir := filepath.Dir(f.Path)
	tmp, err := os.CreateTemp(dir, filepath.Base(f.Path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp state file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close state file: %w", err)
	}
	if err := os.Rename(tmpName, f.Path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace state file: %w", err)
	}
	return nil
}

// Savers fans a snapshot out to several sinks. Every sink is attempted.
type Savers []Saver

func (s Savers) Save(ctx context.Context, entries []transit.Entry) error {
	var errs []error
	for _, sv := range s {
		if sv == nil {
			continue
		}
		if err := sv.Save(ctx, entries); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

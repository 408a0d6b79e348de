package ingest

import (
	"context"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/klauspost/compress/gzip"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/teranos/smrt/errors"
	"github.com/teranos/smrt/inventory"
	"github.com/teranos/smrt/logger"
)

// maxParallelFiles bounds concurrent file parsing
const maxParallelFiles = 4

// DirSource reads *.csv and *.csv.gz files from a directory. The lower-cased
// file stem names the table (customer.csv, inventory.csv, detail.csv,
// pricelist.csv); files that name no known table are ignored.
type DirSource struct {
	dir    string
	logger *zap.SugaredLogger
}

// NewDirSource creates a source over dir
func NewDirSource(dir string, log *zap.SugaredLogger) *DirSource {
	if log == nil {
		log = logger.ComponentLogger("ingest")
	}
	return &DirSource{dir: dir, logger: log}
}

// Name implements Source
func (s *DirSource) Name() string { return "dir:" + s.dir }

// Dir returns the watched directory
func (s *DirSource) Dir() string { return s.dir }

// Close implements Source
func (s *DirSource) Close() error { return nil }

type tableFile struct {
	path  string
	table string
}

// Fetch parses every table file. A file that fails to parse is logged and
// skipped; only an unreadable directory fails the fetch.
func (s *DirSource) Fetch(ctx context.Context) (inventory.RawTables, error) {
	files, err := s.tableFiles()
	if err != nil {
		return nil, err
	}

	parsed := make([][]inventory.Row, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelFiles)
	for i, f := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			rows, err := readTableFile(f.path)
			if err != nil {
				s.logger.Warnw("Skipping unreadable table file",
					logger.FieldFile, f.path,
					logger.FieldTable, f.table,
					logger.FieldError, err)
				return nil
			}
			parsed[i] = rows
			s.logger.Debugw("Parsed table file",
				logger.FieldFile, f.path,
				logger.FieldCount, len(rows))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, errors.Wrap(err, "fetch cancelled")
	}

	raw := make(inventory.RawTables, len(files))
	for i, f := range files {
		if parsed[i] == nil {
			continue
		}
		raw[f.table] = append(raw[f.table], parsed[i]...)
	}
	s.logger.Infow("Loaded table files", logger.FieldSource, s.dir, logger.FieldCount, len(raw))
	return raw, nil
}

// tableFiles lists the recognised table files in name order
func (s *DirSource) tableFiles() ([]tableFile, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrapf(errors.ErrNotFound, "data directory %s", s.dir)
		}
		return nil, errors.Wrapf(err, "read data directory %s", s.dir)
	}

	var files []tableFile
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		stem, ok := TableStem(e.Name())
		if !ok {
			continue
		}
		if _, known := inventory.CanonicalTable(stem); !known {
			s.logger.Debugw("Ignoring file that names no table", logger.FieldFile, e.Name())
			continue
		}
		files = append(files, tableFile{path: filepath.Join(s.dir, e.Name()), table: strings.ToLower(stem)})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].path < files[j].path })
	return files, nil
}

// TableStem strips .csv or .csv.gz from a file name
func TableStem(name string) (string, bool) {
	lower := strings.ToLower(name)
	switch {
	case strings.HasSuffix(lower, ".csv.gz"):
		return name[:len(name)-len(".csv.gz")], true
	case strings.HasSuffix(lower, ".csv"):
		return name[:len(name)-len(".csv")], true
	}
	return "", false
}

func readTableFile(path string) ([]inventory.Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open")
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(strings.ToLower(path), ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, errors.Wrap(err, "gzip")
		}
		defer gz.Close()
		r = gz
	}
	return ReadCSV(r)
}

// ReadCSV parses a CSV stream with a header row into rows of strings.
// Short records leave trailing columns unset.
func ReadCSV(r io.Reader) ([]inventory.Row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return []inventory.Row{}, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "read header")
	}
	for i, h := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}

	rows := []inventory.Row{}
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "read record %d", len(rows)+1)
		}
		row := make(inventory.Row, len(header))
		for i, value := range record {
			if i < len(header) && header[i] != "" {
				row[header[i]] = value
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

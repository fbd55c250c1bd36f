// Package recordfile stores locations in a CSV file with a fixed "latitude,longitude" header.
//
// Whole-file rewrites go through a temporary file in the same directory that is synced
// and renamed over the original, so readers only ever see a complete file.
package recordfile

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/UnknownOlympus/waypoints/internal/models"
	"github.com/UnknownOlympus/waypoints/internal/store"
)

const (
	columnLatitude  = "latitude"
	columnLongitude = "longitude"
	columnCount     = 2
	filePerm        = 0o644
	tmpPattern      = ".*.tmp"
	byteOrderMark   = "\ufeff"
)

// File is a CSV-backed store.Records implementation.
type File struct {
	path string       // path is the location of the CSV file
	log  *slog.Logger // log is the logger for file operations
}

var _ store.Records = (*File)(nil)

// New returns a File for the given path. Nothing is touched on disk until Initialize.
func New(path string, log *slog.Logger) *File {
	return &File{path: path, log: log}
}

// Path returns the location of the backing file.
func (f *File) Path() string {
	return f.path
}

// Initialize creates the file with only the header if it does not exist.
func (f *File) Initialize(ctx context.Context) error {
	exists, err := fileExists(f.path)
	if err != nil {
		return unavailable("failed to stat record file", err)
	}
	if exists {
		f.log.DebugContext(ctx, "Record file already exists", "path", f.path)
		return nil
	}

	if err = f.ReplaceAll(ctx, nil); err != nil {
		return err
	}
	f.log.InfoContext(ctx, "Created empty record file", "path", f.path)

	return nil
}

// LoadAll parses every row after the header.
func (f *File) LoadAll(_ context.Context) ([]models.Location, error) {
	file, err := os.Open(f.path)
	if err != nil {
		return nil, unavailable("failed to open record file", err)
	}
	defer file.Close()

	return decode(file)
}

// ReplaceAll rewrites the whole file with the header followed by records.
func (f *File) ReplaceAll(ctx context.Context, records []models.Location) error {
	var buf bytes.Buffer
	if err := encode(&buf, records, true); err != nil {
		return unavailable("failed to encode records", err)
	}

	if err := writeAtomic(f.path, buf.Bytes()); err != nil {
		return unavailable("failed to replace record file", err)
	}
	f.log.DebugContext(ctx, "Record file rewritten", "path", f.path, "records", len(records))

	return nil
}

// AppendOne writes one row after the existing content without rewriting the file.
// An empty file gets the header first.
func (f *File) AppendOne(ctx context.Context, record models.Location) error {
	file, err := os.OpenFile(f.path, os.O_RDWR|os.O_APPEND, filePerm)
	if err != nil {
		return unavailable("failed to open record file", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return unavailable("failed to stat record file", err)
	}

	size := info.Size()
	var buf bytes.Buffer
	switch {
	case size == 0:
		err = encode(&buf, []models.Location{record}, true)
	default:
		// a hand-edited file may lack the final newline
		last := make([]byte, 1)
		if _, err = file.ReadAt(last, size-1); err != nil {
			return unavailable("failed to read record file", err)
		}
		if last[0] != '\n' {
			buf.WriteByte('\n')
		}
		err = encode(&buf, []models.Location{record}, false)
	}
	if err != nil {
		return unavailable("failed to encode record", err)
	}

	if err = appendAt(file, size, buf.Bytes()); err != nil {
		return unavailable("failed to append record", err)
	}
	f.log.DebugContext(ctx, "Record appended", "path", f.path,
		"latitude", record.Latitude, "longitude", record.Longitude)

	return nil
}

// appendTarget is the part of *os.File used to append a row.
type appendTarget interface {
	io.Writer
	Sync() error
	Truncate(size int64) error
}

// appendAt writes data after the first size bytes of file and syncs it.
// On failure the file is cut back to size so no partial row stays behind.
func appendAt(file appendTarget, size int64, data []byte) error {
	_, err := file.Write(data)
	if err == nil {
		if err = file.Sync(); err == nil {
			return nil
		}
	}

	if errTrunc := file.Truncate(size); errTrunc != nil {
		return errors.Join(err, fmt.Errorf("failed to truncate record file: %w", errTrunc))
	}
	_ = file.Sync()

	return err
}

// Ping reports whether the backing file is reachable.
func (f *File) Ping(_ context.Context) error {
	if _, err := os.Stat(f.path); err != nil {
		return unavailable("failed to stat record file", err)
	}

	return nil
}

func decode(r io.Reader) ([]models.Location, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	reader.ReuseRecord = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return []models.Location{}, nil
	}
	if err != nil {
		return nil, readError(err)
	}
	if len(header) > 0 {
		// spreadsheet exports often start with a byte order mark
		header[0] = strings.TrimPrefix(header[0], byteOrderMark)
	}
	if len(header) != columnCount || header[0] != columnLatitude || header[1] != columnLongitude {
		return nil, &store.CorruptRecordError{Line: 1, Reason: fmt.Sprintf("unexpected header %q", header)}
	}

	locations := []models.Location{}
	for {
		row, errRead := reader.Read()
		if errors.Is(errRead, io.EOF) {
			break
		}
		if errRead != nil {
			return nil, readError(errRead)
		}

		line, _ := reader.FieldPos(0)
		loc, errParse := parseRow(row, line)
		if errParse != nil {
			return nil, errParse
		}
		locations = append(locations, loc)
	}

	return locations, nil
}

func parseRow(row []string, line int) (models.Location, error) {
	if len(row) != columnCount {
		return models.Location{}, &store.CorruptRecordError{
			Line:   line,
			Reason: fmt.Sprintf("expected %d columns, got %d", columnCount, len(row)),
		}
	}

	lat, err := strconv.ParseFloat(row[0], 64)
	if err != nil {
		return models.Location{}, &store.CorruptRecordError{Line: line, Reason: "invalid latitude", Err: err}
	}
	lon, err := strconv.ParseFloat(row[1], 64)
	if err != nil {
		return models.Location{}, &store.CorruptRecordError{Line: line, Reason: "invalid longitude", Err: err}
	}

	return models.Location{Latitude: lat, Longitude: lon}, nil
}

// readError separates malformed CSV from a failing reader.
func readError(err error) error {
	var parseErr *csv.ParseError
	if errors.As(err, &parseErr) {
		return &store.CorruptRecordError{Line: parseErr.Line, Reason: "malformed csv", Err: parseErr.Err}
	}

	return unavailable("failed to read record file", err)
}

func encode(w io.Writer, records []models.Location, withHeader bool) error {
	writer := csv.NewWriter(w)
	if withHeader {
		if err := writer.Write([]string{columnLatitude, columnLongitude}); err != nil {
			return err
		}
	}

	row := make([]string, columnCount)
	for _, rec := range records {
		row[0] = formatCoordinate(rec.Latitude)
		row[1] = formatCoordinate(rec.Longitude)
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	writer.Flush()

	return writer.Error()
}

// formatCoordinate uses the shortest text that parses back to exactly v.
func formatCoordinate(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// writeAtomic writes data to a temporary sibling of path and renames it into place.
func writeAtomic(path string, data []byte) (err error) {
	dir, base := filepath.Split(path)
	if dir == "" {
		dir = "."
	}

	tmp, err := os.CreateTemp(dir, base+tmpPattern)
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		return fmt.Errorf("failed to write temporary file: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("failed to sync temporary file: %w", err)
	}
	if err = tmp.Chmod(filePerm); err != nil {
		return fmt.Errorf("failed to set file mode: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temporary file: %w", err)
	}
	if err = os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to rename temporary file: %w", err)
	}

	syncDir(dir)

	return nil
}

// syncDir flushes the rename to disk. Not every platform supports syncing a directory.
func syncDir(dir string) {
	d, err := os.Open(dir)
	if err != nil {
		return
	}
	_ = d.Sync()
	_ = d.Close()
}

func fileExists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}

	return false, err
}

func unavailable(msg string, err error) error {
	return fmt.Errorf("%s: %w: %w", msg, store.ErrStorageUnavailable, err)
}

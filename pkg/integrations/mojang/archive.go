package mojang

import (
	"archive/zip"
	"compress/flate"
	"context"
	"errors"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	errs "github.com/matzehuels/mcmeta/pkg/errors"
)

const (
	// tempDirPattern names the per-call scratch directory.
	tempDirPattern = "mcmeta_mojang_zip-*"

	// fallbackFilename is used when the response URL has no usable last segment.
	fallbackFilename = "tmp.zip"

	// documentSuffix selects the version document among archive entries.
	// The match is case-sensitive.
	documentSuffix = ".json"

	// maxDocumentSize bounds the decompressed size of the selected entry.
	maxDocumentSize = 64 << 20

	maxFilenameLength = 255
)

// ErrDocumentNotFound is the cause of the ARCHIVE_FORMAT error returned when
// an archive contains no entry with a .json suffix.
var ErrDocumentNotFound = errors.New("version document not found in archive")

// sourceReadError marks a failure reading the response body, as opposed to
// writing the local copy.
type sourceReadError struct{ err error }

func (e *sourceReadError) Error() string { return e.err.Error() }
func (e *sourceReadError) Unwrap() error { return e.err }

// sourceReader reads the response body and stops as soon as ctx ends.
type sourceReader struct {
	ctx context.Context
	r   io.Reader
}

func (s sourceReader) Read(p []byte) (int, error) {
	if err := s.ctx.Err(); err != nil {
		return 0, &sourceReadError{err: err}
	}
	n, err := s.r.Read(p)
	if err != nil && err != io.EOF {
		err = &sourceReadError{err: err}
	}
	return n, err
}

// FetchZippedVersion downloads a zip archive from archiveURL and returns the
// version document stored in its first entry ending in ".json".
//
// The archive is written to a file inside a freshly created temporary
// directory, which is removed before the call returns on every path,
// including failures and context cancellation. Later ".json" entries are
// ignored and logged at warn level.
//
// Returns, in addition to the errors of [Client.FetchVersion]:
//   - an ARCHIVE_IO error if the archive could not be written or read locally
//   - an ARCHIVE_FORMAT error if the download is not a readable zip archive,
//     or wrapping [ErrDocumentNotFound] if no entry qualifies
func (c *Client) FetchZippedVersion(ctx context.Context, archiveURL string) (*VersionDocument, error) {
	c.logger.Debug("fetching zipped version", "url", archiveURL)

	resp, err := c.Open(ctx, archiveURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	dir, err := os.MkdirTemp(c.tempDir, tempDirPattern)
	if err != nil {
		return nil, errs.ArchiveIO(archiveURL, err, "create temporary directory")
	}
	defer func() {
		if err := os.RemoveAll(dir); err != nil {
			c.logger.Warn("failed to remove temporary directory", "dir", dir, "err", err)
		}
	}()

	dest := filepath.Join(dir, archiveFilename(resp.URL))
	if err := writeArchive(dest, sourceReader{ctx: ctx, r: resp.Body}); err != nil {
		var readErr *sourceReadError
		if errors.As(err, &readErr) {
			return nil, errs.Transport(archiveURL, readErr.err)
		}
		return nil, errs.ArchiveIO(archiveURL, err, "write archive %s", filepath.Base(dest))
	}

	return c.extractVersion(archiveURL, dest)
}

// archiveFilename derives the local file name from the last path segment of
// the final response URL. The name is only used for local storage.
func archiveFilename(u *url.URL) string {
	if u == nil {
		return fallbackFilename
	}
	p := u.Path
	name := p[strings.LastIndex(p, "/")+1:]
	switch {
	case name == "", name == ".", name == "..":
		return fallbackFilename
	case strings.ContainsAny(name, "/\\\x00"), len(name) > maxFilenameLength:
		return fallbackFilename
	}
	return name
}

// writeArchive streams src into a new file at dest and flushes it to disk
// before returning, so the file can be reopened for reading.
func writeArchive(dest string, src io.Reader) error {
	f, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, src); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func (c *Client) extractVersion(source, path string) (*VersionDocument, error) {
	zr, err := zip.OpenReader(path)
	if err != nil && !(zr != nil && errors.Is(err, zip.ErrInsecurePath)) {
		if isArchiveFormatErr(err) {
			return nil, errs.ArchiveFormat(source, err, "open archive")
		}
		return nil, errs.ArchiveIO(source, err, "open archive")
	}
	defer zr.Close()

	entry := c.selectDocument(source, zr.File)
	if entry == nil {
		return nil, errs.ArchiveFormat(source, ErrDocumentNotFound, "no %s entry among %d entries", documentSuffix, len(zr.File))
	}
	c.logger.Debug("found version document in archive", "entry", entry.Name)

	data, err := readEntry(entry)
	if err != nil {
		if isArchiveFormatErr(err) {
			return nil, errs.ArchiveFormat(source, err, "read entry %s", entry.Name)
		}
		return nil, errs.ArchiveIO(source, err, "read entry %s", entry.Name)
	}

	return ParseVersion(source, data)
}

// selectDocument returns the first entry, in archive order, whose name ends
// in documentSuffix. Further matches are skipped and logged.
func (c *Client) selectDocument(source string, files []*zip.File) *zip.File {
	var selected *zip.File
	for _, f := range files {
		if !strings.HasSuffix(f.Name, documentSuffix) {
			continue
		}
		if selected == nil {
			selected = f
			continue
		}
		c.logger.Warn("ignoring additional version document in archive",
			"url", source,
			"selected", selected.Name,
			"ignored", f.Name)
	}
	return selected
}

var errDocumentTooLarge = errors.New("version document exceeds size limit")

func readEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, maxDocumentSize+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxDocumentSize {
		return nil, errDocumentTooLarge
	}
	return data, nil
}

func isArchiveFormatErr(err error) bool {
	var corrupt flate.CorruptInputError
	return errors.Is(err, zip.ErrFormat) ||
		errors.Is(err, zip.ErrAlgorithm) ||
		errors.Is(err, zip.ErrChecksum) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, errDocumentTooLarge) ||
		errors.As(err, &corrupt)
}

package mojang

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/santhosh-tekuri/jsonschema/v6"

	errs "github.com/matzehuels/mcmeta/pkg/errors"
)

var (
	errNullDocument = errors.New("document is null")
	errInvalidUTF8  = errors.New("document is not valid UTF-8")
)

// ParseManifest decodes and validates a manifest body fetched from source.
// Syntax errors yield MALFORMED_BODY errors retaining body; schema or
// cross-reference violations yield VALIDATION_FAILED errors.
func ParseManifest(source string, body []byte) (*VersionManifest, error) {
	var m VersionManifest
	if err := decode(source, body, &m); err != nil {
		return nil, err
	}
	if err := checkSchema(source, body, func(s *compiledSchemas) *jsonschema.Schema { return s.manifest }); err != nil {
		return nil, err
	}
	if err := m.Validate(); err != nil {
		return nil, errs.Validation(source, err)
	}
	return &m, nil
}

// ParseVersion decodes and validates a version document fetched from source.
// Error classification follows [ParseManifest].
func ParseVersion(source string, body []byte) (*VersionDocument, error) {
	var d VersionDocument
	if err := decode(source, body, &d); err != nil {
		return nil, err
	}
	if err := checkSchema(source, body, func(s *compiledSchemas) *jsonschema.Schema { return s.version }); err != nil {
		return nil, err
	}
	if err := d.Validate(); err != nil {
		return nil, errs.Validation(source, err)
	}
	return &d, nil
}

// decode unmarshals body into v. Any failure, including a literal null
// document or bytes that are not UTF-8 text, is reported as MALFORMED_BODY
// with the full body attached.
func decode(source string, body []byte, v any) error {
	if !utf8.Valid(body) {
		return errs.MalformedBody(source, body, errInvalidUTF8)
	}
	if bytes.Equal(bytes.TrimSpace(body), []byte("null")) {
		return errs.MalformedBody(source, body, errNullDocument)
	}
	if err := json.Unmarshal(body, v); err != nil {
		return errs.MalformedBody(source, body, locate(body, err))
	}
	return nil
}

// locate annotates a JSON error with the line and column it occurred at.
func locate(body []byte, err error) error {
	var offset int64 = -1

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.As(err, &syntaxErr):
		offset = syntaxErr.Offset
	case errors.As(err, &typeErr):
		offset = typeErr.Offset
	}
	if offset < 0 {
		return err
	}

	line, col := position(body, offset)
	return fmt.Errorf("line %d, column %d: %w", line, col, err)
}

// position converts a byte offset into a 1-based line and column.
func position(body []byte, offset int64) (line, col int) {
	if offset > int64(len(body)) {
		offset = int64(len(body))
	}
	prefix := body[:offset]
	line = bytes.Count(prefix, []byte("\n")) + 1
	col = int(offset) - (bytes.LastIndexByte(prefix, '\n') + 1) + 1
	return line, col
}

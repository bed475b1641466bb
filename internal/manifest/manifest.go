// Package manifest checks the sample manifest before any job starts.
package manifest

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"slices"
	"strings"

	"github.com/paragraph-tools/multigrm/internal/model"
)

const (
	HeaderID         = "id"
	HeaderPath       = "path"
	HeaderIdxDepth   = "idxdepth"
	HeaderDepth      = "depth"
	HeaderReadLength = "read length"
)

// Allowed lists the recognized header tokens in their canonical order.
var Allowed = []string{HeaderID, HeaderPath, HeaderIdxDepth, HeaderDepth, HeaderReadLength}

var separator = regexp.MustCompile("\t|,")

// Header is the set of tokens found on the first manifest line.
type Header map[string]bool

// ValidateFile opens path and calls Validate.
func ValidateFile(path string) (Header, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening manifest: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()
	return Validate(f)
}

// Validate parses the header line of a tab or comma separated manifest.
// A leading '#' is ignored. Every token must be allowed, id and path are
// mandatory and either idxdepth or depth together with read length must
// be present. Only the first line is inspected.
func Validate(r io.Reader) (Header, error) {
	scanner := bufio.NewScanner(r)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("reading manifest: %w", err)
		}
		return nil, fmt.Errorf("%w: manifest is empty", model.ErrManifestHeader)
	}

	line := strings.TrimPrefix(scanner.Text(), "#")
	line = strings.TrimSpace(line)

	header := make(Header, len(Allowed))
	for _, field := range separator.Split(line, -1) {
		if !slices.Contains(Allowed, field) {
			return nil, fmt.Errorf("%w: illegal header name %q, allowed headers: %s",
				model.ErrManifestHeader, field, strings.Join(Allowed, ","))
		}
		header[field] = true
	}

	if !header[HeaderID] || !header[HeaderPath] {
		return nil, fmt.Errorf("%w: missing header %q or %q", model.ErrManifestHeader, HeaderID, HeaderPath)
	}
	if !header[HeaderIdxDepth] && (!header[HeaderDepth] || !header[HeaderReadLength]) {
		return nil, fmt.Errorf("%w: missing header %q, or %q and %q",
			model.ErrManifestHeader, HeaderIdxDepth, HeaderDepth, HeaderReadLength)
	}
	return header, nil
}

// Package romloader reads test ROM images from disk for the harness.
// ROMs are commonly distributed inside archives, so ZIP, 7z, gzip,
// tar.gz, and RAR containers are opened transparently and the first
// entry with a recognized ROM extension is extracted.
package romloader

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// maxROMBytes caps extracted ROM size. 32 MiB is the largest licensed
// GBA cartridge; anything bigger is a decompression bomb, not a ROM.
const maxROMBytes = 32 * 1024 * 1024

// ErrNoROMFile is returned when an archive contains no entry with a
// recognized ROM extension.
var ErrNoROMFile = errors.New("no ROM file found in archive")

// ErrUnsupportedFormat is returned for files that are neither a known
// archive nor a file with a recognized ROM extension.
var ErrUnsupportedFormat = errors.New("unsupported file format")

// ErrFileTooLarge is returned when content exceeds the ROM size cap.
var ErrFileTooLarge = errors.New("file exceeds maximum ROM size")

type format int

const (
	formatUnknown format = iota
	formatRaw
	formatZip
	format7z
	formatGzip
	formatRAR
)

// Archive container magic prefixes.
var magics = []struct {
	prefix []byte
	format format
}{
	{[]byte{0x50, 0x4B, 0x03, 0x04}, formatZip},
	{[]byte{0x50, 0x4B, 0x05, 0x06}, formatZip}, // empty zip
	{[]byte{0x37, 0x7A, 0xBC, 0xAF, 0x27, 0x1C}, format7z},
	{[]byte{0x52, 0x61, 0x72, 0x21}, formatRAR}, // "Rar!"
	{[]byte{0x1F, 0x8B}, formatGzip},
}

// Load reads a ROM from path. Archives are detected by magic bytes (with
// an extension fallback) and the first contained file matching one of
// the given ROM extensions is extracted. A plain file must carry one of
// the extensions itself.
//
// Returns the ROM data and the basename the data came from (for a raw
// file the file itself, for an archive the extracted entry).
func Load(path string, extensions []string) ([]byte, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open ROM: %w", err)
	}
	defer f.Close()

	header := make([]byte, 16)
	n, err := f.Read(header)
	if err != nil && err != io.EOF {
		return nil, "", fmt.Errorf("failed to read ROM header: %w", err)
	}
	header = header[:n]

	switch detect(header, path, extensions) {
	case formatRaw:
		if _, err := f.Seek(0, io.SeekStart); err != nil {
			return nil, "", fmt.Errorf("failed to seek ROM: %w", err)
		}
		data, err := capRead(f)
		if err != nil {
			return nil, "", fmt.Errorf("failed to read ROM: %w", err)
		}
		return data, filepath.Base(path), nil

	case formatZip:
		return fromZip(path, extensions)

	case format7z:
		return from7z(path, extensions)

	case formatGzip:
		return fromGzip(path, extensions)

	case formatRAR:
		return fromRAR(path, extensions)

	default:
		return nil, "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
}

// detect classifies a file by magic bytes first, then by extension.
func detect(header []byte, path string, extensions []string) format {
	for _, m := range magics {
		if bytes.HasPrefix(header, m.prefix) {
			return m.format
		}
	}

	lower := strings.ToLower(path)
	switch filepath.Ext(lower) {
	case ".zip":
		return formatZip
	case ".7z":
		return format7z
	case ".gz", ".tgz":
		return formatGzip
	case ".rar":
		return formatRAR
	}

	if isROMFile(lower, extensions) {
		return formatRaw
	}
	return formatUnknown
}

// isROMFile reports whether name carries one of the ROM extensions.
// Case-insensitive.
func isROMFile(name string, extensions []string) bool {
	lower := strings.ToLower(name)
	for _, ext := range extensions {
		if strings.HasSuffix(lower, strings.ToLower(ext)) {
			return true
		}
	}
	return false
}

// capRead reads r to completion, failing once the ROM size cap is hit.
func capRead(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxROMBytes+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxROMBytes {
		return nil, ErrFileTooLarge
	}
	return data, nil
}

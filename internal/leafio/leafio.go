// Package leafio reads and writes the hierarchy leaf CSV, the only
// persisted artifact the core hands to collaborators: one `x,y,z,depth,prob`
// line per leaf, no header. The writer is hand-rolled rather than built on
// encoding/csv or a reflection-based encoder, mirroring the teacher's
// preference for purpose-built writers over general encoders.
package leafio

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zstd"

	"github.com/octoweave/octoweave/internal/octoerr"
)

// Leaf is one hierarchy leaf as persisted to CSV.
type Leaf struct {
	X, Y, Z uint32
	Depth   uint8
	Prob    float64
}

// Writer writes leaves as plain-text CSV, one line per leaf.
type Writer struct{}

// NewWriter returns a plain-text leaf CSV writer.
func NewWriter() *Writer {
	return &Writer{}
}

// Write encodes leaves to w.
func (wr *Writer) Write(leaves []Leaf, w io.Writer) error {
	bw := bufio.NewWriter(w)
	for _, l := range leaves {
		if _, err := fmt.Fprintf(bw, "%d,%d,%d,%d,%s\n", l.X, l.Y, l.Z, l.Depth, strconv.FormatFloat(l.Prob, 'g', -1, 64)); err != nil {
			return octoerr.IO("failed to write leaf row", err)
		}
	}
	if err := bw.Flush(); err != nil {
		return octoerr.IO("failed to flush leaf writer", err)
	}
	return nil
}

// WriteToFile writes leaves to a new file at path.
func (wr *Writer) WriteToFile(leaves []Leaf, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return octoerr.IO("failed to create leaf CSV file", err)
	}
	defer f.Close()
	return wr.Write(leaves, f)
}

// GzipWriter writes gzip-compressed leaf CSV. Leaf sets from a single chunk
// are small enough that the stdlib codec's slower ratio doesn't matter; it's
// the zero-dependency default for a one-off export.
type GzipWriter struct {
	Level int
}

// NewGzipWriter returns a gzip leaf writer at gzip's default compression level.
func NewGzipWriter() *GzipWriter {
	return &GzipWriter{Level: gzip.DefaultCompression}
}

// WriteToFile gzip-compresses the encoded leaves and writes them to path.
func (gw *GzipWriter) WriteToFile(leaves []Leaf, path string) error {
	var raw bytes.Buffer
	if err := (&Writer{}).Write(leaves, &raw); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return octoerr.IO("failed to create compressed leaf CSV file", err)
	}
	defer f.Close()

	gzw, err := gzip.NewWriterLevel(f, gw.Level)
	if err != nil {
		return octoerr.IO("failed to construct gzip writer", err)
	}
	if _, err := gzw.Write(raw.Bytes()); err != nil {
		gzw.Close()
		return octoerr.IO("failed to gzip-compress leaf CSV", err)
	}
	if err := gzw.Close(); err != nil {
		return octoerr.IO("failed to finalize gzip leaf CSV", err)
	}
	return nil
}

// ZstdWriter writes zstd-compressed leaf CSV, for leaf sets large enough
// that gzip's decode cost starts to matter downstream (a full-resolution
// brick's worth of leaves, not one chunk's).
type ZstdWriter struct {
	Level zstd.EncoderLevel
}

// NewZstdWriter returns a zstd leaf writer at the default encoder level.
func NewZstdWriter() *ZstdWriter {
	return &ZstdWriter{Level: zstd.SpeedDefault}
}

// WriteToFile zstd-compresses the encoded leaves and writes them to path.
func (zw *ZstdWriter) WriteToFile(leaves []Leaf, path string) error {
	var raw bytes.Buffer
	if err := (&Writer{}).Write(leaves, &raw); err != nil {
		return err
	}

	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zw.Level))
	if err != nil {
		return octoerr.IO("failed to construct zstd encoder", err)
	}
	defer enc.Close()
	out := enc.EncodeAll(raw.Bytes(), nil)

	if err := os.WriteFile(path, out, 0o644); err != nil {
		return octoerr.IO("failed to write compressed leaf CSV", err)
	}
	return nil
}

// Read parses plain-text leaf CSV from r.
func Read(r io.Reader) ([]Leaf, error) {
	var leaves []Leaf
	scanner := bufio.NewScanner(r)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		l, err := parseLeafLine(line)
		if err != nil {
			return nil, octoerr.IO(fmt.Sprintf("line %d: %v", lineNum, err), err)
		}
		leaves = append(leaves, l)
	}
	if err := scanner.Err(); err != nil {
		return nil, octoerr.IO("failed to read leaf CSV", err)
	}
	return leaves, nil
}

// ReadFile reads plain-text leaf CSV from path.
func ReadFile(path string) ([]Leaf, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, octoerr.IO("failed to open leaf CSV file", err)
	}
	defer f.Close()
	return Read(f)
}

// ReadGzipFile reads leaf CSV that was gzip-compressed by GzipWriter.
func ReadGzipFile(path string) ([]Leaf, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, octoerr.IO("failed to open gzip leaf CSV file", err)
	}
	defer f.Close()

	gzr, err := gzip.NewReader(f)
	if err != nil {
		return nil, octoerr.IO("failed to open gzip stream", err)
	}
	defer gzr.Close()
	return Read(gzr)
}

// ReadZstdFile reads leaf CSV that was zstd-compressed by ZstdWriter.
func ReadZstdFile(path string) ([]Leaf, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, octoerr.IO("failed to read zstd leaf CSV file", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, octoerr.IO("failed to construct zstd decoder", err)
	}
	defer dec.Close()
	decoded, err := dec.DecodeAll(raw, nil)
	if err != nil {
		return nil, octoerr.IO("failed to zstd-decompress leaf CSV", err)
	}
	return Read(bytes.NewReader(decoded))
}

func parseLeafLine(line string) (Leaf, error) {
	parts := strings.Split(line, ",")
	if len(parts) != 5 {
		return Leaf{}, fmt.Errorf("expected 5 fields, got %d", len(parts))
	}
	x, err := strconv.ParseUint(parts[0], 10, 32)
	if err != nil {
		return Leaf{}, fmt.Errorf("invalid x: %w", err)
	}
	y, err := strconv.ParseUint(parts[1], 10, 32)
	if err != nil {
		return Leaf{}, fmt.Errorf("invalid y: %w", err)
	}
	z, err := strconv.ParseUint(parts[2], 10, 32)
	if err != nil {
		return Leaf{}, fmt.Errorf("invalid z: %w", err)
	}
	depth, err := strconv.ParseUint(parts[3], 10, 8)
	if err != nil {
		return Leaf{}, fmt.Errorf("invalid depth: %w", err)
	}
	prob, err := strconv.ParseFloat(parts[4], 64)
	if err != nil {
		return Leaf{}, fmt.Errorf("invalid prob: %w", err)
	}
	return Leaf{X: uint32(x), Y: uint32(y), Z: uint32(z), Depth: uint8(depth), Prob: prob}, nil
}

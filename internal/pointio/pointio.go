// Package pointio reads the point-cloud CSV input: one `x,y,z[,chunk_idx]`
// line per point. When the chunk index column is absent, points are grouped
// into chunks via a caller-supplied chunkgrid.Grid.
package pointio

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/octoweave/octoweave/internal/chunkgrid"
	"github.com/octoweave/octoweave/internal/occupancy"
	"github.com/octoweave/octoweave/internal/octoerr"
)

// ParserOptions mirrors the teacher's line-oriented parser options.
type ParserOptions struct {
	StrictMode bool // fail on the first malformed line instead of skipping it
	SkipHeader bool // skip the first non-empty line
}

// DefaultParserOptions returns the permissive default: skip bad lines, no header.
func DefaultParserOptions() ParserOptions {
	return ParserOptions{}
}

// Read parses CSV point data from r and groups points by chunk index. When a
// line omits the chunk index column, grid.Which assigns it; grid may be nil
// only if every line carries an explicit chunk index.
func Read(r io.Reader, opts ParserOptions, grid *chunkgrid.Grid) (map[int][]occupancy.Point3, error) {
	chunks := make(map[int][]occupancy.Point3)

	scanner := bufio.NewScanner(r)
	lineNum := 0
	headerSkipped := false

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if opts.SkipHeader && !headerSkipped {
			headerSkipped = true
			continue
		}

		idx, p, err := parseLine(line, grid)
		if err != nil {
			if opts.StrictMode {
				return nil, octoerr.IO(fmt.Sprintf("line %d: %v", lineNum, err), err)
			}
			continue
		}

		chunks[idx] = append(chunks[idx], p)
	}
	if err := scanner.Err(); err != nil {
		return nil, octoerr.IO("failed to read point input", err)
	}

	return chunks, nil
}

func parseLine(line string, grid *chunkgrid.Grid) (int, occupancy.Point3, error) {
	parts := strings.Split(line, ",")
	if len(parts) < 3 {
		return 0, occupancy.Point3{}, fmt.Errorf("expected at least 3 fields, got %d", len(parts))
	}

	x, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return 0, occupancy.Point3{}, fmt.Errorf("invalid x: %w", err)
	}
	y, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return 0, occupancy.Point3{}, fmt.Errorf("invalid y: %w", err)
	}
	z, err := strconv.ParseFloat(strings.TrimSpace(parts[2]), 64)
	if err != nil {
		return 0, occupancy.Point3{}, fmt.Errorf("invalid z: %w", err)
	}
	p := occupancy.Point3{X: x, Y: y, Z: z}

	if len(parts) >= 4 {
		idx, err := strconv.Atoi(strings.TrimSpace(parts[3]))
		if err != nil {
			return 0, occupancy.Point3{}, fmt.Errorf("invalid chunk_idx: %w", err)
		}
		return idx, p, nil
	}

	if grid == nil {
		return 0, occupancy.Point3{}, fmt.Errorf("chunk_idx omitted and no grid supplied")
	}
	_, _, _, idx := grid.Which(x, y, z)
	return idx, p, nil
}

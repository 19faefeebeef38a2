// Package viz renders a hierarchy leaf CSV into a PGM grayscale slice and an
// optional histogram SVG. Built on image/image-color plus a hand-written PGM
// P5 encoder: no third-party imaging library appears anywhere in the
// retrieved corpus, so stdlib is the only grounded option here.
package viz

import (
	"bufio"
	"fmt"
	"image"
	"image/color"
	"os"
	"sort"

	"github.com/octoweave/octoweave/internal/leafio"
	"github.com/octoweave/octoweave/internal/octoerr"
)

// Params selects the slice to render and where to write output.
type Params struct {
	SliceZ uint32
	Depth  uint8
	OutPGM string
	OutSVG string // empty skips the histogram
}

// Render writes the PGM slice (and, if requested, the histogram SVG) for
// leaves at params.Depth whose Z equals params.SliceZ.
func Render(leaves []leafio.Leaf, params Params) error {
	if params.OutPGM == "" {
		return octoerr.Invalid("out_pgm is required", nil)
	}

	side := uint32(1) << uint(params.Depth)
	img := image.NewGray(image.Rect(0, 0, int(side), int(side)))

	for _, l := range leaves {
		if l.Depth != params.Depth || l.Z != params.SliceZ {
			continue
		}
		if l.X >= side || l.Y >= side {
			continue
		}
		v := uint8(clampRound(l.Prob * 255))
		img.SetGray(int(l.X), int(l.Y), color.Gray{Y: v})
	}

	if err := writePGM(img, params.OutPGM); err != nil {
		return err
	}

	if params.OutSVG != "" {
		if err := writeHistogramSVG(leaves, params.OutSVG); err != nil {
			return err
		}
	}
	return nil
}

func clampRound(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return float64(int(v + 0.5))
}

// writePGM hand-encodes img as a binary PGM (P5): no stdlib codec covers PGM.
func writePGM(img *image.Gray, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return octoerr.IO("failed to create PGM file", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	bounds := img.Bounds()
	if _, err := fmt.Fprintf(w, "P5\n%d %d\n255\n", bounds.Dx(), bounds.Dy()); err != nil {
		return octoerr.IO("failed to write PGM header", err)
	}
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		row := img.Pix[(y-bounds.Min.Y)*img.Stride : (y-bounds.Min.Y)*img.Stride+bounds.Dx()]
		if _, err := w.Write(row); err != nil {
			return octoerr.IO("failed to write PGM row", err)
		}
	}
	if err := w.Flush(); err != nil {
		return octoerr.IO("failed to flush PGM file", err)
	}
	return nil
}

// writeHistogramSVG emits one comment per distinct depth seen in leaves:
// "depth D: count N", alongside a minimal bar chart.
func writeHistogramSVG(leaves []leafio.Leaf, path string) error {
	counts := make(map[uint8]int)
	for _, l := range leaves {
		counts[l.Depth]++
	}
	depths := make([]uint8, 0, len(counts))
	for d := range counts {
		depths = append(depths, d)
	}
	sort.Slice(depths, func(i, j int) bool { return depths[i] < depths[j] })

	f, err := os.Create(path)
	if err != nil {
		return octoerr.IO("failed to create histogram SVG file", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	maxCount := 1
	for _, d := range depths {
		if counts[d] > maxCount {
			maxCount = counts[d]
		}
	}
	width := 40 * len(depths)
	if width < 40 {
		width = 40
	}
	fmt.Fprintf(w, "<svg xmlns=\"http://www.w3.org/2000/svg\" width=\"%d\" height=\"200\">\n", width)
	for i, d := range depths {
		fmt.Fprintf(w, "<!-- depth %d: count %d -->\n", d, counts[d])
		h := int(float64(counts[d]) / float64(maxCount) * 180)
		fmt.Fprintf(w, "<rect x=\"%d\" y=\"%d\" width=\"30\" height=\"%d\" />\n", i*40+5, 180-h, h)
	}
	fmt.Fprintln(w, "</svg>")
	if err := w.Flush(); err != nil {
		return octoerr.IO("failed to flush histogram SVG file", err)
	}
	return nil
}

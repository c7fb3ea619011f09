package scene

import (
	"bufio"
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"

	"github.com/litescript/ls-freight/internal/geo"
)

// ErrAssetLoad is wrapped by every asset acquisition failure.
var ErrAssetLoad = errors.New("asset load failed")

//go:embed assets/landmask.txt
var embeddedLandMask []byte

// Raster size used when a GeoJSON land file is rasterized.
const (
	geoJSONRasterWidth  = 360
	geoJSONRasterHeight = 180
)

// Texture is an equirectangular land/water mask. Row 0 is the north edge,
// column 0 is longitude -180.
type Texture struct {
	Width  int
	Height int
	land   []bool
}

// Land reports whether p falls on land.
func (t *Texture) Land(p geo.Point) bool {
	if t == nil || t.Width == 0 || t.Height == 0 {
		return false
	}
	col := int((p.Lon + 180) / 360 * float64(t.Width))
	row := int((90 - p.Lat) / 180 * float64(t.Height))
	col = clampInt(col, 0, t.Width-1)
	row = clampInt(row, 0, t.Height-1)
	return t.land[row*t.Width+col]
}

// LandFraction returns the share of cells marked as land.
func (t *Texture) LandFraction() float64 {
	if t == nil || len(t.land) == 0 {
		return 0
	}
	n := 0
	for _, l := range t.land {
		if l {
			n++
		}
	}
	return float64(n) / float64(len(t.land))
}

// ParseTexture reads an ASCII mask: one line per row, '#' for land and any
// other character for water. All rows must have the same width.
func ParseTexture(r io.Reader) (*Texture, error) {
	var rows []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if line == "" {
			continue
		}
		if len(rows) > 0 && len(line) != len(rows[0]) {
			return nil, fmt.Errorf("texture row %d: width %d, want %d", len(rows)+1, len(line), len(rows[0]))
		}
		rows = append(rows, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read texture: %w", err)
	}
	if len(rows) == 0 {
		return nil, errors.New("texture is empty")
	}

	t := &Texture{Width: len(rows[0]), Height: len(rows)}
	t.land = make([]bool, t.Width*t.Height)
	for y, row := range rows {
		for x := 0; x < len(row); x++ {
			t.land[y*t.Width+x] = row[x] == '#'
		}
	}
	return t, nil
}

// RasterizeGeoJSON builds a mask from the Polygon and MultiPolygon features
// of fc.
func RasterizeGeoJSON(fc *geojson.FeatureCollection, width, height int) (*Texture, error) {
	var polys []orb.Polygon
	for _, f := range fc.Features {
		switch g := f.Geometry.(type) {
		case orb.Polygon:
			polys = append(polys, g)
		case orb.MultiPolygon:
			polys = append(polys, g...)
		}
	}
	if len(polys) == 0 {
		return nil, errors.New("no polygon features")
	}

	bounds := make([]orb.Bound, len(polys))
	for i, p := range polys {
		bounds[i] = p.Bound()
	}

	t := &Texture{Width: width, Height: height, land: make([]bool, width*height)}
	for y := 0; y < height; y++ {
		lat := 90 - (float64(y)+0.5)*180/float64(height)
		for x := 0; x < width; x++ {
			pt := orb.Point{-180 + (float64(x)+0.5)*360/float64(width), lat}
			for i, p := range polys {
				if bounds[i].Contains(pt) && planar.PolygonContains(p, pt) {
					t.land[y*width+x] = true
					break
				}
			}
		}
	}
	return t, nil
}

// AssetLoader acquires the globe texture.
type AssetLoader interface {
	LoadTexture(ctx context.Context) (*Texture, error)
}

// LoaderFunc adapts a function to AssetLoader.
type LoaderFunc func(ctx context.Context) (*Texture, error)

// LoadTexture calls f.
func (f LoaderFunc) LoadTexture(ctx context.Context) (*Texture, error) {
	return f(ctx)
}

// EmbeddedLoader serves the land mask compiled into the binary.
type EmbeddedLoader struct{}

// LoadTexture parses the embedded mask.
func (EmbeddedLoader) LoadTexture(ctx context.Context) (*Texture, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return ParseTexture(bytes.NewReader(embeddedLandMask))
}

// FileLoader reads a mask from disk: an ASCII mask, or a GeoJSON file of
// land polygons when the extension is .geojson or .json.
type FileLoader struct {
	Path string
}

// LoadTexture reads and parses the file.
func (l FileLoader) LoadTexture(ctx context.Context) (*Texture, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(l.Path)
	if err != nil {
		return nil, err
	}

	switch strings.ToLower(filepath.Ext(l.Path)) {
	case ".geojson", ".json":
		fc, err := geojson.UnmarshalFeatureCollection(data)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", l.Path, err)
		}
		return RasterizeGeoJSON(fc, geoJSONRasterWidth, geoJSONRasterHeight)
	default:
		return ParseTexture(bytes.NewReader(data))
	}
}

// LoadResult is the outcome of an asset acquisition.
type LoadResult struct {
	Texture  *Texture
	Duration time.Duration
	TimedOut bool
	Error    error
}

// OK reports whether the texture was acquired.
func (r LoadResult) OK() bool {
	return r.Error == nil && !r.TimedOut && r.Texture != nil
}

// LoadAssets runs loader with a deadline. It never blocks past timeout: a
// loader that ignores its context is abandoned and the result is reported
// as timed out. Failures wrap ErrAssetLoad.
func LoadAssets(ctx context.Context, loader AssetLoader, timeout time.Duration) LoadResult {
	start := time.Now()
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	type outcome struct {
		tex *Texture
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		tex, err := loader.LoadTexture(ctx)
		done <- outcome{tex, err}
	}()

	var result LoadResult
	select {
	case o := <-done:
		result.Texture = o.tex
		result.Error = o.err
		if o.err == nil && o.tex == nil {
			result.Error = errors.New("loader returned no texture")
		}
	case <-ctx.Done():
		result.Error = ctx.Err()
	}
	result.Duration = time.Since(start)

	if result.Error != nil {
		result.Texture = nil
		if errors.Is(result.Error, context.DeadlineExceeded) {
			result.TimedOut = true
		}
		result.Error = fmt.Errorf("%w: %w", ErrAssetLoad, result.Error)
	}
	return result
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Package tiling divides captured frames into a fixed grid of tiles.
//
// Partitioning is a pure function of the frame and tile dimensions. Tiles
// are returned row-major, cover the frame exactly and never overlap; tiles
// in the last column and row are clipped to the frame bounds.
package tiling

import (
	"errors"
	"fmt"
)

// ErrInvalidSize indicates a non-positive frame or tile dimension.
var ErrInvalidSize = errors.New("invalid partition size")

// Region is a rectangular sub-window of a frame in frame pixel coordinates.
type Region struct {
	Index  int // row-major position in the grid
	Col    int // tile column (tx)
	Row    int // tile row (ty)
	X      int
	Y      int
	Width  int
	Height int
}

// IsClipped reports whether the region is smaller than the full tile size.
func (r Region) IsClipped(tileWidth, tileHeight int) bool {
	return r.Width < tileWidth || r.Height < tileHeight
}

// String returns a compact representation of the region.
func (r Region) String() string {
	return fmt.Sprintf("tile(%d,%d)@(%d,%d) %dx%d", r.Col, r.Row, r.X, r.Y, r.Width, r.Height)
}

// Partitioner produces the tile grid for a fixed tile size.
type Partitioner struct {
	tileWidth  int
	tileHeight int
}

// NewPartitioner creates a partitioner for tiles of the given size.
func NewPartitioner(tileWidth, tileHeight int) (*Partitioner, error) {
	if tileWidth <= 0 || tileHeight <= 0 {
		return nil, fmt.Errorf("tile size %dx%d: %w", tileWidth, tileHeight, ErrInvalidSize)
	}
	return &Partitioner{tileWidth: tileWidth, tileHeight: tileHeight}, nil
}

// TileSize returns the configured tile dimensions.
func (p *Partitioner) TileSize() (width, height int) {
	return p.tileWidth, p.tileHeight
}

// GridSize returns the number of tile columns and rows for a frame.
func (p *Partitioner) GridSize(frameWidth, frameHeight int) (cols, rows int) {
	return ceilDiv(frameWidth, p.tileWidth), ceilDiv(frameHeight, p.tileHeight)
}

// Partition returns the tile regions covering a frame, row-major.
func (p *Partitioner) Partition(frameWidth, frameHeight int) ([]Region, error) {
	if frameWidth <= 0 || frameHeight <= 0 {
		return nil, fmt.Errorf("frame size %dx%d: %w", frameWidth, frameHeight, ErrInvalidSize)
	}

	cols, rows := p.GridSize(frameWidth, frameHeight)
	regions := make([]Region, 0, cols*rows)
	for ty := 0; ty < rows; ty++ {
		for tx := 0; tx < cols; tx++ {
			x, y := tx*p.tileWidth, ty*p.tileHeight
			regions = append(regions, Region{
				Index:  len(regions),
				Col:    tx,
				Row:    ty,
				X:      x,
				Y:      y,
				Width:  min(p.tileWidth, frameWidth-x),
				Height: min(p.tileHeight, frameHeight-y),
			})
		}
	}
	return regions, nil
}

func ceilDiv(n, d int) int {
	return (n + d - 1) / d
}

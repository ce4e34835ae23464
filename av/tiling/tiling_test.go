package tiling

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPartition_256x256(t *testing.T) {
	p, err := NewPartitioner(128, 128)
	require.NoError(t, err)

	regions, err := p.Partition(256, 256)
	require.NoError(t, err)
	require.Len(t, regions, 4)

	origins := [][2]int{{0, 0}, {128, 0}, {0, 128}, {128, 128}}
	for i, r := range regions {
		assert.Equal(t, i, r.Index)
		assert.Equal(t, origins[i][0], r.X)
		assert.Equal(t, origins[i][1], r.Y)
		assert.Equal(t, 128, r.Width)
		assert.Equal(t, 128, r.Height)
		assert.False(t, r.IsClipped(128, 128))
	}
}

func TestPartition_EdgeClipping(t *testing.T) {
	p, err := NewPartitioner(128, 128)
	require.NoError(t, err)

	regions, err := p.Partition(1920, 1080)
	require.NoError(t, err)

	cols, rows := p.GridSize(1920, 1080)
	assert.Equal(t, 15, cols)
	assert.Equal(t, 9, rows)
	require.Len(t, regions, 15*9)

	last := regions[len(regions)-1]
	assert.Equal(t, 1792, last.X)
	assert.Equal(t, 1024, last.Y)
	assert.Equal(t, 128, last.Width)
	assert.Equal(t, 56, last.Height)
	assert.True(t, last.IsClipped(128, 128))
}

func TestPartition_CoversFrameExactly(t *testing.T) {
	tests := []struct {
		name          string
		width, height int
		tw, th        int
	}{
		{name: "exact_multiple", width: 256, height: 128, tw: 64, th: 64},
		{name: "ragged_both_axes", width: 100, height: 70, tw: 32, th: 16},
		{name: "frame_smaller_than_tile", width: 10, height: 7, tw: 128, th: 128},
		{name: "single_pixel_column", width: 129, height: 1, tw: 128, th: 128},
		{name: "non_square_tiles", width: 333, height: 211, tw: 48, th: 96},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewPartitioner(tt.tw, tt.th)
			require.NoError(t, err)
			regions, err := p.Partition(tt.width, tt.height)
			require.NoError(t, err)

			coverage := make([]int, tt.width*tt.height)
			for _, r := range regions {
				assert.Greater(t, r.Width, 0)
				assert.Greater(t, r.Height, 0)
				assert.LessOrEqual(t, r.Width, tt.tw)
				assert.LessOrEqual(t, r.Height, tt.th)
				assert.LessOrEqual(t, r.X+r.Width, tt.width)
				assert.LessOrEqual(t, r.Y+r.Height, tt.height)
				assert.Equal(t, r.Col*tt.tw, r.X)
				assert.Equal(t, r.Row*tt.th, r.Y)
				for y := r.Y; y < r.Y+r.Height; y++ {
					for x := r.X; x < r.X+r.Width; x++ {
						coverage[y*tt.width+x]++
					}
				}
			}
			for i, c := range coverage {
				if !assert.Equal(t, 1, c, "pixel %d covered %d times", i, c) {
					return
				}
			}
		})
	}
}

func TestPartition_RowMajorOrder(t *testing.T) {
	p, err := NewPartitioner(16, 16)
	require.NoError(t, err)
	regions, err := p.Partition(48, 32)
	require.NoError(t, err)

	prev := regions[0]
	for _, r := range regions[1:] {
		if r.Row == prev.Row {
			assert.Equal(t, prev.Col+1, r.Col)
		} else {
			assert.Equal(t, prev.Row+1, r.Row)
			assert.Equal(t, 0, r.Col)
		}
		prev = r
	}
}

func TestPartition_InvalidSizes(t *testing.T) {
	_, err := NewPartitioner(0, 128)
	assert.ErrorIs(t, err, ErrInvalidSize)

	p, err := NewPartitioner(128, 128)
	require.NoError(t, err)
	_, err = p.Partition(0, 100)
	assert.ErrorIs(t, err, ErrInvalidSize)
	_, err = p.Partition(100, -1)
	assert.ErrorIs(t, err, ErrInvalidSize)
}

func TestPartition_Deterministic(t *testing.T) {
	p, err := NewPartitioner(64, 48)
	require.NoError(t, err)

	a, err := p.Partition(500, 300)
	require.NoError(t, err)
	b, err := p.Partition(500, 300)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

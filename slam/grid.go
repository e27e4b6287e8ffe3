package slam

import (
	"math"

	"github.com/pkg/errors"
)

// GridParameters describes uniform partition of the image plane into cells.
type GridParameters struct {
	Cols          int
	Rows          int
	ImgMinWidth   float64
	ImgMinHeight  float64
	ImgMaxWidth   float64
	ImgMaxHeight  float64
	InvCellWidth  float64
	InvCellHeight float64
}

// NewGridParameters creates grid of cols x rows cells covering [minWidth, maxWidth) x [minHeight, maxHeight)
func NewGridParameters(cols, rows int, minWidth, minHeight, maxWidth, maxHeight float64) (GridParameters, error) {
	if cols <= 0 || rows <= 0 {
		return GridParameters{}, errors.Wrapf(ErrInvalidConfig, "grid must have positive dimensions, got %dx%d", cols, rows)
	}
	if maxWidth <= minWidth || maxHeight <= minHeight {
		return GridParameters{}, errors.Wrapf(ErrInvalidConfig, "empty image bounds [%f, %f) x [%f, %f)", minWidth, maxWidth, minHeight, maxHeight)
	}
	return GridParameters{
		Cols:          cols,
		Rows:          rows,
		ImgMinWidth:   minWidth,
		ImgMinHeight:  minHeight,
		ImgMaxWidth:   maxWidth,
		ImgMaxHeight:  maxHeight,
		InvCellWidth:  float64(cols) / (maxWidth - minWidth),
		InvCellHeight: float64(rows) / (maxHeight - minHeight),
	}, nil
}

// InGrid checks whether the point lies inside image bounds
func (params GridParameters) InGrid(pt Point) bool {
	return params.ImgMinWidth <= pt.X && pt.X < params.ImgMaxWidth &&
		params.ImgMinHeight <= pt.Y && pt.Y < params.ImgMaxHeight
}

// Cell returns cell which contains the point. Second value is false if the cell is outside of the grid
func (params GridParameters) Cell(pt Point) (int, int, bool) {
	cellX := int(math.Round((pt.X - params.ImgMinWidth) * params.InvCellWidth))
	cellY := int(math.Round((pt.Y - params.ImgMinHeight) * params.InvCellHeight))
	if cellX < 0 || cellX >= params.Cols || cellY < 0 || cellY >= params.Rows {
		return 0, 0, false
	}
	return cellX, cellY, true
}

// GridIndex holds keypoint indices distributed into cells: index[cellX][cellY] -> keypoint indices.
// It is built once per shot and is read-only after that.
type GridIndex [][][]int

// BuildGridIndex distributes keypoints into cells. Keypoints outside of the grid are dropped
func BuildGridIndex(keypoints []Keypoint, params GridParameters) GridIndex {
	numToReserve := 0
	if params.Cols > 0 && params.Rows > 0 {
		numToReserve = len(keypoints) / (2 * params.Cols * params.Rows)
	}
	index := make(GridIndex, params.Cols)
	for x := range index {
		index[x] = make([][]int, params.Rows)
		for y := range index[x] {
			index[x][y] = make([]int, 0, numToReserve)
		}
	}
	for idx, kpt := range keypoints {
		cellX, cellY, ok := params.Cell(kpt.Pt)
		if !ok {
			continue
		}
		index[cellX][cellY] = append(index[cellX][cellY], idx)
	}
	return index
}

// Empty reports whether index has no cells at all
func (index GridIndex) Empty() bool {
	return len(index) == 0
}

// HasShape checks that index has params.Cols columns of params.Rows cells each
func (index GridIndex) HasShape(params GridParameters) bool {
	if len(index) != params.Cols {
		return false
	}
	for _, column := range index {
		if len(column) != params.Rows {
			return false
		}
	}
	return true
}

// Query returns indices of keypoints which lie in the square window of half-width margin around (refX, refY).
// Level filtering is applied when minLevel > 0 or maxLevel >= 0; negative maxLevel disables upper bound.
// Indices are returned in cell scan order.
func (index GridIndex) Query(keypoints []Keypoint, params GridParameters, refX, refY, margin float64, minLevel, maxLevel int) []int {
	indices := make([]int, 0)
	if index.Empty() {
		return indices
	}

	minCellX := maxInt(0, int(math.Floor((refX-params.ImgMinWidth-margin)*params.InvCellWidth)))
	if minCellX >= params.Cols {
		return indices
	}
	maxCellX := minInt(params.Cols-1, int(math.Ceil((refX-params.ImgMinWidth+margin)*params.InvCellWidth)))
	if maxCellX < 0 {
		return indices
	}
	minCellY := maxInt(0, int(math.Floor((refY-params.ImgMinHeight-margin)*params.InvCellHeight)))
	if minCellY >= params.Rows {
		return indices
	}
	maxCellY := minInt(params.Rows-1, int(math.Ceil((refY-params.ImgMinHeight+margin)*params.InvCellHeight)))
	if maxCellY < 0 {
		return indices
	}

	checkLevel := minLevel > 0 || maxLevel >= 0
	for cellX := minCellX; cellX <= maxCellX; cellX++ {
		for cellY := minCellY; cellY <= maxCellY; cellY++ {
			for _, idx := range index[cellX][cellY] {
				kpt := keypoints[idx]
				if checkLevel {
					if kpt.Octave < minLevel || (maxLevel >= 0 && kpt.Octave > maxLevel) {
						continue
					}
				}
				distX := kpt.Pt.X - refX
				distY := kpt.Pt.Y - refY
				if math.Abs(distX) < margin && math.Abs(distY) < margin {
					indices = append(indices, idx)
				}
			}
		}
	}
	return indices
}

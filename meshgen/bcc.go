// Package meshgen generates structured simplex meshes as flat point and
// connectivity arrays.
package meshgen

import (
	"errors"
	"fmt"
	"math"

	"github.com/soypat/hpcgeom/internal/d3"
	"github.com/soypat/hpcgeom/internal/log"
	"gonum.org/v1/gonum/spatial/r3"
)

var (
	ErrResolution = errors.New("meshgen: bad resolution")
	ErrTooCoarse  = errors.New("meshgen: resolution too coarse for box")
)

var logger = log.New("meshgen")

// Corners of a lattice cell.
type corner int

const (
	c000 corner = iota
	cx00
	cxy0
	c0y0
	c00z
	cx0z
	cxyz
	c0yz
	nCorners
)

var cornerOffset = [nCorners][3]int{
	c000: {0, 0, 0},
	cx00: {1, 0, 0},
	cxy0: {1, 1, 0},
	c0y0: {0, 1, 0},
	c00z: {0, 0, 1},
	cx0z: {1, 0, 1},
	cxyz: {1, 1, 1},
	c0yz: {0, 1, 1},
}

// Edges of the face a cell shares with its lower neighbor along each axis,
// walked around the face. Each edge spans a tetrahedron with the two cell
// centers.
var faceEdges = [3][4][2]corner{
	// x
	{{c000, c0y0}, {c00z, c000}, {c0yz, c00z}, {c0y0, c0yz}},
	// y
	{{cx00, c000}, {cx0z, cx00}, {c00z, cx0z}, {c000, c00z}},
	// z
	{{c000, cx00}, {cx00, cxy0}, {cxy0, c0y0}, {c0y0, c000}},
}

// BCCLattice tetrahedralizes box with a body centered cubic lattice of
// cubic cells of side resolution. Each pair of face adjacent cells
// contributes four tetrahedra joining the two cell centers to the edges of
// the shared face. The lattice starts at box.Min and may overhang box.Max
// by less than one cell.
func BCCLattice(box r3.Box, resolution float64) (points []r3.Vec, conn []int, err error) {
	if !(resolution > 0) || math.IsInf(resolution, 0) {
		return nil, nil, fmt.Errorf("%w: %g", ErrResolution, resolution)
	}
	sz := d3.Box(box).Size()
	div := [3]int{
		int(math.Ceil(sz.X / resolution)),
		int(math.Ceil(sz.Y / resolution)),
		int(math.Ceil(sz.Z / resolution)),
	}
	if div[0] < 2 || div[1] < 2 || div[2] < 2 {
		return nil, nil, fmt.Errorf("%w: %v cells", ErrTooCoarse, div)
	}
	l := lattice{
		div:     div,
		res:     resolution,
		origin:  box.Min,
		centers: make([]int, div[0]*div[1]*div[2]),
		corners: make([]int, (div[0]+1)*(div[1]+1)*(div[2]+1)),
	}
	for i := range l.corners {
		l.corners[i] = -1
	}
	faces := (div[0]-1)*div[1]*div[2] + div[0]*(div[1]-1)*div[2] + div[0]*div[1]*(div[2]-1)
	l.conn = make([]int, 0, 4*4*faces)
	l.mesh()
	logger.Debugf("BCC lattice %v: %d points, %d tetrahedra", div, len(l.points), len(l.conn)/4)
	return l.points, l.conn, nil
}

type lattice struct {
	div    [3]int
	res    float64
	origin r3.Vec
	// Point index of each cell center and of each lattice corner, -1 until
	// first used.
	centers []int
	corners []int
	points  []r3.Vec
	conn    []int
}

func (l *lattice) cellIndex(i, j, k int) int {
	return (i*l.div[1]+j)*l.div[2] + k
}

func (l *lattice) cell(i, j, k int) d3.Box {
	res := l.res
	center := r3.Vec{
		X: (float64(i)+0.5)*res + l.origin.X,
		Y: (float64(j)+0.5)*res + l.origin.Y,
		Z: (float64(k)+0.5)*res + l.origin.Z,
	}
	return d3.CenteredBox(center, d3.Elem(res))
}

// cornerPoint returns the point index of corner c of cell (i,j,k),
// allocating it on first use.
func (l *lattice) cornerPoint(i, j, k int, c corner) int {
	off := cornerOffset[c]
	a, b, d := i+off[0], j+off[1], k+off[2]
	idx := (a*(l.div[1]+1)+b)*(l.div[2]+1) + d
	if l.corners[idx] < 0 {
		l.corners[idx] = len(l.points)
		l.points = append(l.points, r3.Vec{
			X: float64(a)*l.res + l.origin.X,
			Y: float64(b)*l.res + l.origin.Y,
			Z: float64(d)*l.res + l.origin.Z,
		})
	}
	return l.corners[idx]
}

func (l *lattice) mesh() {
	for i := 0; i < l.div[0]; i++ {
		for j := 0; j < l.div[1]; j++ {
			for k := 0; k < l.div[2]; k++ {
				ctr := len(l.points)
				l.centers[l.cellIndex(i, j, k)] = ctr
				l.points = append(l.points, l.cell(i, j, k).Center())
				// Lower neighbors along z, y and x were meshed already.
				below := [3][3]int{{i - 1, j, k}, {i, j - 1, k}, {i, j, k - 1}}
				for axis := 2; axis >= 0; axis-- {
					n := below[axis]
					if n[axis] < 0 {
						continue
					}
					nctr := l.centers[l.cellIndex(n[0], n[1], n[2])]
					for _, e := range faceEdges[axis] {
						l.conn = append(l.conn, ctr, l.cornerPoint(i, j, k, e[0]), l.cornerPoint(i, j, k, e[1]), nctr)
					}
				}
			}
		}
	}
}

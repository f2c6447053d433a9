package meshgen

import (
	"github.com/soypat/hpcgeom/internal/d2"
	"gonum.org/v1/gonum/spatial/r2"
)

// TriangleGrid splits box into nx by ny rectangular cells and each cell
// into two counter clockwise triangles along the diagonal joining its
// lower right and upper left corners. Points are numbered row by row from
// box.Min. It returns nil slices when the grid or box is empty.
func TriangleGrid(box r2.Box, nx, ny int) (points []r2.Vec, conn []int) {
	size := d2.Box(box).Size()
	if nx < 1 || ny < 1 || d2.LTEZero(size) {
		return nil, nil
	}
	dx, dy := size.X/float64(nx), size.Y/float64(ny)
	points = make([]r2.Vec, 0, (nx+1)*(ny+1))
	for j := 0; j <= ny; j++ {
		for i := 0; i <= nx; i++ {
			points = append(points, r2.Vec{X: box.Min.X + float64(i)*dx, Y: box.Min.Y + float64(j)*dy})
		}
	}
	id := func(i, j int) int { return j*(nx+1) + i }
	conn = make([]int, 0, 6*nx*ny)
	for j := 0; j < ny; j++ {
		for i := 0; i < nx; i++ {
			a, b, c, d := id(i, j), id(i+1, j), id(i, j+1), id(i+1, j+1)
			conn = append(conn, a, b, c, b, d, c)
		}
	}
	return points, conn
}

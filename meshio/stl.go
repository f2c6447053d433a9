// Package meshio reads and writes triangle surfaces and converts them into
// the flat point and connectivity arrays used to build meshes and
// bounding volume hierarchies.
package meshio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/chewxy/math32"
	"github.com/soypat/glgl/math/ms3"
	"github.com/soypat/hpcgeom/internal/log"
)

var (
	ErrEmpty      = errors.New("meshio: no triangles")
	ErrTooMany    = errors.New("meshio: triangle count exceeds STL limits")
	ErrBadNumber  = errors.New("meshio: inf/NaN coordinate")
	ErrDegenerate = errors.New("meshio: degenerate triangle")
	ErrTolerance  = errors.New("meshio: bad weld tolerance")
)

var logger = log.New("meshio")

const (
	stlHeaderSize   = 84
	stlTriangleSize = 50
)

// WriteBinarySTL writes triangles in binary STL format and returns the
// number of bytes written. Facet normals are computed from the vertices
// and left zero for triangles without area.
func WriteBinarySTL(w io.Writer, tris []ms3.Triangle) (int, error) {
	if len(tris) == 0 {
		return 0, ErrEmpty
	}
	nt := int64(len(tris)) // int64 so the check works on 32 bit platforms.
	if nt > math.MaxUint32 {
		return 0, ErrTooMany
	}
	var buf [stlHeaderSize]byte
	binary.LittleEndian.PutUint32(buf[80:], uint32(nt))
	n, err := w.Write(buf[:])
	if err != nil {
		return n, err
	} else if n != len(buf) {
		return n, io.ErrShortWrite
	}
	var rec stlTriangle
	for _, t := range tris {
		rec.Normal = t.Normal()
		if norm := ms3.Norm(rec.Normal); norm > 0 {
			rec.Normal = ms3.Scale(1/norm, rec.Normal)
		}
		rec.Vertices = t
		rec.put(buf[:stlTriangleSize])
		ngot, err := w.Write(buf[:stlTriangleSize])
		n += ngot
		if err != nil {
			return n, err
		} else if ngot != stlTriangleSize {
			return n, io.ErrShortWrite
		}
	}
	return n, nil
}

// ReadBinarySTL reads a binary STL stream. Triangles with inf/NaN
// coordinates or no area are an error. Stored normals that disagree with
// the vertex winding are counted and logged but otherwise ignored.
func ReadBinarySTL(r io.Reader) ([]ms3.Triangle, error) {
	var head [stlHeaderSize]byte
	if _, err := io.ReadFull(r, head[:]); err != nil {
		return nil, fmt.Errorf("reading STL header: %w", err)
	}
	count := binary.LittleEndian.Uint32(head[80:])
	if count == 0 {
		return nil, ErrEmpty
	}
	var (
		buf        [stlTriangleSize]byte
		rec        stlTriangle
		mismatches int
	)
	tris := make([]ms3.Triangle, 0, min(int(count), 1<<20))
	for i := 0; i < int(count); i++ {
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return nil, fmt.Errorf("%d/%d STL triangles read: %w", i, count, err)
		}
		rec.get(buf[:])
		switch err := rec.validate(); {
		case errors.Is(err, errNormalMismatch):
			mismatches++
		case err != nil:
			return nil, fmt.Errorf("STL triangle %d: %w", i, err)
		}
		tris = append(tris, rec.Vertices)
	}
	if mismatches > 0 {
		logger.Infof("%d of %d STL normals disagree with vertex winding", mismatches, count)
	}
	return tris, nil
}

// stlTriangle is the triangle record of a binary STL file, without the
// attribute byte count.
type stlTriangle struct {
	Normal   ms3.Vec
	Vertices ms3.Triangle
}

var errNormalMismatch = errors.New("mismatch normal")

func (t *stlTriangle) put(b []byte) {
	_ = b[49] // early bounds check
	putVec(b, t.Normal)
	for i, v := range t.Vertices {
		putVec(b[12+12*i:], v)
	}
	binary.LittleEndian.PutUint16(b[48:], 0)
}

func (t *stlTriangle) get(b []byte) {
	_ = b[49] // early bounds check
	t.Normal = getVec(b)
	for i := range t.Vertices {
		t.Vertices[i] = getVec(b[12+12*i:])
	}
}

func (t *stlTriangle) validate() error {
	const normTol = 5e-2
	if badVec(t.Vertices[0]) || badVec(t.Vertices[1]) || badVec(t.Vertices[2]) {
		return ErrBadNumber
	}
	if t.Vertices.IsDegenerate(1e-12) {
		return ErrDegenerate
	}
	if badVec(t.Normal) {
		return ErrBadNumber
	}
	calc := ms3.Unit(t.Vertices.Normal())
	if !eqElem(calc, t.Normal, normTol) && !eqElem(ms3.Scale(-1, calc), t.Normal, normTol) {
		return errNormalMismatch
	}
	return nil
}

func putVec(b []byte, v ms3.Vec) {
	_ = b[11] // early bounds check
	binary.LittleEndian.PutUint32(b, math.Float32bits(v.X))
	binary.LittleEndian.PutUint32(b[4:], math.Float32bits(v.Y))
	binary.LittleEndian.PutUint32(b[8:], math.Float32bits(v.Z))
}

func getVec(b []byte) ms3.Vec {
	_ = b[11] // early bounds check
	return ms3.Vec{
		X: math.Float32frombits(binary.LittleEndian.Uint32(b)),
		Y: math.Float32frombits(binary.LittleEndian.Uint32(b[4:])),
		Z: math.Float32frombits(binary.LittleEndian.Uint32(b[8:])),
	}
}

// eqElem reports whether a and b differ by at most tol in every component.
func eqElem(a, b ms3.Vec, tol float32) bool {
	return math32.Abs(a.X-b.X) <= tol &&
		math32.Abs(a.Y-b.Y) <= tol &&
		math32.Abs(a.Z-b.Z) <= tol
}

func badVec(v ms3.Vec) bool {
	return math32.IsNaN(v.X) || math32.IsInf(v.X, 0) ||
		math32.IsNaN(v.Y) || math32.IsInf(v.Y, 0) ||
		math32.IsNaN(v.Z) || math32.IsInf(v.Z, 0)
}

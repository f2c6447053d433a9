package meshio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"testing"

	"github.com/soypat/glgl/math/ms3"
	"gonum.org/v1/gonum/spatial/r3"
)

// tetSurface returns the four outward facing triangles of a tetrahedron.
func tetSurface() []ms3.Triangle {
	a := ms3.Vec{X: 0, Y: 0, Z: 0}
	b := ms3.Vec{X: 1, Y: 0, Z: 0}
	c := ms3.Vec{X: 0, Y: 1, Z: 0}
	d := ms3.Vec{X: 0, Y: 0, Z: 1}
	return []ms3.Triangle{{a, c, b}, {a, b, d}, {a, d, c}, {b, c, d}}
}

func TestSTLRoundTrip(t *testing.T) {
	tris := tetSurface()
	var buf bytes.Buffer
	n, err := WriteBinarySTL(&buf, tris)
	if err != nil {
		t.Fatal(err)
	}
	if want := stlHeaderSize + len(tris)*stlTriangleSize; n != want || buf.Len() != want {
		t.Fatalf("wrote %d bytes (buffer %d), want %d", n, buf.Len(), want)
	}
	got, err := ReadBinarySTL(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != len(tris) {
		t.Fatalf("read %d triangles, want %d", len(got), len(tris))
	}
	for i := range tris {
		if got[i] != tris[i] {
			t.Errorf("triangle %d: got %v, want %v", i, got[i], tris[i])
		}
	}
}

func TestSTLErrors(t *testing.T) {
	if _, err := WriteBinarySTL(io.Discard, nil); !errors.Is(err, ErrEmpty) {
		t.Errorf("empty write: %v", err)
	}
	var buf bytes.Buffer
	WriteBinarySTL(&buf, tetSurface())
	data := buf.Bytes()
	if _, err := ReadBinarySTL(bytes.NewReader(data[:len(data)-10])); !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("truncated read: %v", err)
	}
	if _, err := ReadBinarySTL(bytes.NewReader(data[:40])); err == nil {
		t.Error("short header accepted")
	}

	var empty [stlHeaderSize]byte
	if _, err := ReadBinarySTL(bytes.NewReader(empty[:])); !errors.Is(err, ErrEmpty) {
		t.Errorf("zero count: %v", err)
	}

	degen := []ms3.Triangle{{{X: 1}, {X: 1}, {Y: 1}}}
	buf.Reset()
	WriteBinarySTL(&buf, degen)
	if _, err := ReadBinarySTL(&buf); !errors.Is(err, ErrDegenerate) {
		t.Errorf("degenerate triangle: %v", err)
	}
}

func TestSTLNormals(t *testing.T) {
	tri := ms3.Triangle{{}, {X: 1}, {Y: 1}}
	for _, test := range []struct {
		normal ms3.Vec
		want   error
	}{
		{normal: ms3.Vec{Z: 1}},
		{normal: ms3.Vec{Z: -1}},
		{normal: ms3.Vec{X: 0.01, Z: 0.99}},
		{normal: ms3.Vec{X: 1}, want: errNormalMismatch},
		{normal: ms3.Vec{Z: 0.5}, want: errNormalMismatch},
	} {
		rec := stlTriangle{Normal: test.normal, Vertices: tri}
		if err := rec.validate(); !errors.Is(err, test.want) {
			t.Errorf("normal %v: got %v, want %v", test.normal, err, test.want)
		}
	}

	// Mismatched normals are read without error.
	var buf [stlHeaderSize + 2*stlTriangleSize]byte
	binary.LittleEndian.PutUint32(buf[80:], 2)
	rec := stlTriangle{Normal: ms3.Vec{X: 1}, Vertices: tri}
	rec.put(buf[stlHeaderSize:])
	rec.Normal = ms3.Vec{Z: -1}
	rec.put(buf[stlHeaderSize+stlTriangleSize:])
	got, err := ReadBinarySTL(bytes.NewReader(buf[:]))
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0] != tri || got[1] != tri {
		t.Errorf("read %v", got)
	}
}

func TestWeld(t *testing.T) {
	tris := tetSurface()
	// Jitter one corner below the weld tolerance.
	tris[3][0].X += 1e-6
	points, conn, err := Weld(tris, 1e-3)
	if err != nil {
		t.Fatal(err)
	}
	if len(points) != 4 {
		t.Fatalf("want 4 welded vertices, got %d: %v", len(points), points)
	}
	if len(conn) != 12 {
		t.Fatalf("connectivity length %d", len(conn))
	}
	// First corner of the first triangle is the origin.
	if points[conn[0]] != (r3.Vec{}) {
		t.Errorf("first vertex %v", points[conn[0]])
	}
	seen := make(map[int]int)
	for _, c := range conn {
		seen[c]++
	}
	for v, n := range seen {
		if n != 3 {
			t.Errorf("vertex %d used by %d triangles, want 3", v, n)
		}
	}

	if _, _, err := Weld(tris, 10); !errors.Is(err, ErrTolerance) {
		t.Errorf("oversized tolerance: %v", err)
	}
	if _, _, err := Weld(tris, -1); !errors.Is(err, ErrTolerance) {
		t.Errorf("negative tolerance: %v", err)
	}
	if _, _, err := Weld(nil, 0); !errors.Is(err, ErrEmpty) {
		t.Errorf("no triangles: %v", err)
	}
	if _, conn, err := Weld(tris, 0); err != nil || len(conn) != 12 {
		t.Errorf("inferred tolerance: %d indices, %v", len(conn), err)
	}
}

func TestWeldDropsCollapsed(t *testing.T) {
	tris := []ms3.Triangle{
		{{X: 0}, {X: 1}, {Y: 1}},
		{{X: 0}, {X: 1e-4}, {Y: 1}},
	}
	points, conn, err := Weld(tris, 1e-2)
	if err != nil {
		t.Fatal(err)
	}
	if len(conn) != 3 || len(points) != 3 {
		t.Errorf("got %d points and %d indices", len(points), len(conn))
	}
}

func TestBoxes(t *testing.T) {
	boxes := TriangleBoxes(tetSurface())
	want := ms3.Box{Min: ms3.Vec{}, Max: ms3.Vec{X: 1, Y: 1, Z: 1}}
	if boxes[3] != want {
		t.Errorf("slanted face box %v", boxes[3])
	}
	if boxes[0].Max.Z != 0 {
		t.Errorf("bottom face box %v", boxes[0])
	}

	points := []r3.Vec{{}, {X: 1}, {Y: 2}, {Z: 3}, {X: -1, Y: -1, Z: -1}}
	flat, err := ElementBoxes3D(points, []int{0, 1, 2, 3, 4, 1, 2, 3}, 4)
	if err != nil {
		t.Fatal(err)
	}
	wantFlat := []float64{0, 0, 0, 1, 2, 3, -1, -1, -1, 1, 2, 3}
	if len(flat) != len(wantFlat) {
		t.Fatalf("got %v", flat)
	}
	for i := range flat {
		if flat[i] != wantFlat[i] {
			t.Fatalf("got %v, want %v", flat, wantFlat)
		}
	}
	if _, err := ElementBoxes3D(points, []int{0, 1, 9}, 3); err == nil {
		t.Error("out of range index accepted")
	}
	if _, err := ElementBoxes3D(points, []int{0, 1}, 3); err == nil {
		t.Error("ragged connectivity accepted")
	}
}

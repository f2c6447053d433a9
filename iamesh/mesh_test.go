package iamesh

import (
	"bytes"
	"errors"
	"math/rand"
	"os"
	"slices"
	"strings"
	"testing"

	"github.com/soypat/hpcgeom/internal/log"
	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"
)

// grid returns the points and triangles of an nx by ny grid of unit squares,
// each split along its diagonal.
func grid(nx, ny int) ([]r2.Vec, []int) {
	var pts []r2.Vec
	for j := 0; j <= ny; j++ {
		for i := 0; i <= nx; i++ {
			pts = append(pts, r2.Vec{X: float64(i), Y: float64(j)})
		}
	}
	id := func(i, j int) int { return j*(nx+1) + i }
	var conn []int
	for j := 0; j < ny; j++ {
		for i := 0; i < nx; i++ {
			a, b, c, d := id(i, j), id(i+1, j), id(i, j+1), id(i+1, j+1)
			conn = append(conn, a, b, c, b, d, c)
		}
	}
	return pts, conn
}

func mustValid[P Point](t *testing.T, m *Mesh[P]) {
	t.Helper()
	if p := m.check(false); len(p) > 0 {
		t.Fatalf("invalid mesh:\n%s", strings.Join(p, "\n"))
	}
	for _, e := range m.Elements() {
		for f, n := range m.eeRow(e) {
			if !n.Valid() {
				continue
			}
			if !slices.Contains(m.eeRow(n), e) {
				t.Fatalf("element %d facet %d: neighbor %d does not link back", e, f, n)
			}
		}
	}
}

func scenarioB(t *testing.T) *Mesh[r2.Vec] {
	t.Helper()
	m := NewTriangleMesh[r2.Vec]()
	a := m.AddVertex(r2.Vec{X: 0, Y: 0})
	b := m.AddVertex(r2.Vec{X: 1, Y: 0})
	c := m.AddVertex(r2.Vec{X: 0, Y: 1})
	d := m.AddVertex(r2.Vec{X: 1, Y: 1})
	if e, err := m.AddElement(a, b, c); err != nil || e != 0 {
		t.Fatalf("first element: %v %v", e, err)
	}
	if e, err := m.AddElement(b, d, c); err != nil || e != 1 {
		t.Fatalf("second element: %v %v", e, err)
	}
	return m
}

func TestTwoTrianglesSharingEdge(t *testing.T) {
	m := scenarioB(t)
	mustValid(t, m)
	if got := m.ElementNeighbors(0); !slices.Equal(got, []ElemID{InvalidElem, 1, InvalidElem}) {
		t.Errorf("element 0 neighbors: %v", got)
	}
	if got := m.ElementNeighbors(1); !slices.Equal(got, []ElemID{InvalidElem, InvalidElem, 0}) {
		t.Errorf("element 1 neighbors: %v", got)
	}
	got := m.ElementsWithVertex(1)
	slices.Sort(got)
	if !slices.Equal(got, []ElemID{0, 1}) {
		t.Errorf("elements with B: %v", got)
	}
	if face := m.ElementFace(0, 1); !slices.Equal(face, []VertexID{1, 2}) {
		t.Errorf("facet opposite A: %v", face)
	}
	if !m.IsManifold(true) {
		t.Error("two triangles not manifold")
	}
}

func TestRemoveSharedNeighbor(t *testing.T) {
	m := scenarioB(t)
	if !m.RemoveElement(1) {
		t.Fatal("remove failed")
	}
	if got := m.ElementNeighbors(0); !slices.Equal(got, []ElemID{InvalidElem, InvalidElem, InvalidElem}) {
		t.Errorf("element 0 neighbors after removal: %v", got)
	}
	if got := m.ElementsWithVertex(3); len(got) != 0 {
		t.Errorf("D still incident to %v", got)
	}
	if m.VertexElement(3) != InvalidElem {
		t.Errorf("D representative %v", m.VertexElement(3))
	}
	if m.VertexElement(1) != 0 || m.VertexElement(2) != 0 {
		t.Errorf("representatives of B and C: %v %v", m.VertexElement(1), m.VertexElement(2))
	}
	if !m.IsValid(true) {
		t.Fatal("mesh invalid after removal")
	}
	if m.IsManifold(false) {
		t.Error("isolated vertex reported manifold")
	}
	if m.NumElements() != 1 || m.ElementSlots() != 2 {
		t.Errorf("elements %d slots %d", m.NumElements(), m.ElementSlots())
	}
}

func TestIncrementalMatchesBatch(t *testing.T) {
	pts, conn := grid(5, 4)
	batch, err := FromArrays(3, pts, conn)
	if err != nil {
		t.Fatal(err)
	}
	mustValid(t, batch)
	inc := NewTriangleMesh[r2.Vec]()
	for _, p := range pts {
		inc.AddVertex(p)
	}
	// Insert in a scrambled order and compare adjacency per tuple.
	rng := rand.New(rand.NewSource(1))
	order := rng.Perm(len(conn) / 3)
	ids := make([]ElemID, len(order))
	for _, k := range order {
		tri := conn[3*k : 3*k+3]
		e, err := inc.AddElement(VertexID(tri[0]), VertexID(tri[1]), VertexID(tri[2]))
		if err != nil {
			t.Fatalf("adding %v: %v", tri, err)
		}
		ids[k] = e
	}
	mustValid(t, inc)
	for k := range order {
		want := batch.ElementNeighbors(ElemID(k))
		got := inc.ElementNeighbors(ids[k])
		for f := range want {
			w := InvalidElem
			if want[f].Valid() {
				w = ids[want[f]]
			}
			if got[f] != w {
				t.Fatalf("element %d facet %d: got neighbor %v, want %v", k, f, got[f], w)
			}
		}
	}
	if !inc.IsManifold(true) || !batch.IsManifold(true) {
		t.Error("grid not manifold")
	}
}

func TestRandomEditsKeepValid(t *testing.T) {
	pts, conn := grid(6, 6)
	m, err := FromArrays(3, pts, conn)
	if err != nil {
		t.Fatal(err)
	}
	rng := rand.New(rand.NewSource(42))
	var removed [][3]VertexID
	for step := 0; step < 400; step++ {
		switch op := rng.Intn(10); {
		case op < 4:
			elems := m.Elements()
			if len(elems) == 0 {
				continue
			}
			e := elems[rng.Intn(len(elems))]
			var tri [3]VertexID
			copy(tri[:], m.VerticesInElement(e))
			if !m.RemoveElement(e) {
				t.Fatalf("step %d: remove element %d failed", step, e)
			}
			removed = append(removed, tri)
		case op < 8:
			if len(removed) == 0 {
				continue
			}
			k := rng.Intn(len(removed))
			tri := removed[k]
			if !m.IsValidVertex(tri[0]) || !m.IsValidVertex(tri[1]) || !m.IsValidVertex(tri[2]) {
				continue
			}
			removed = slices.Delete(removed, k, k+1)
			if _, err := m.AddElement(tri[:]...); err != nil {
				t.Fatalf("step %d: re-adding %v: %v", step, tri, err)
			}
		case op == 8:
			verts := m.Vertices()
			if len(verts) == 0 {
				continue
			}
			v := verts[rng.Intn(len(verts))]
			if !m.RemoveVertex(v) {
				t.Fatalf("step %d: remove vertex %d failed", step, v)
			}
			if m.IsValidVertex(v) {
				t.Fatalf("step %d: vertex %d still valid", step, v)
			}
		default:
			m.AddVertex(r2.Vec{X: rng.Float64(), Y: rng.Float64()})
		}
		mustValid(t, m)
		for _, v := range m.Vertices() {
			got := m.ElementsWithVertex(v)
			if len(got) != int(m.deg[v]) {
				t.Fatalf("step %d: vertex %d in %d elements, valence %d", step, v, len(got), m.deg[v])
			}
		}
	}

	nv, ne := m.NumVertices(), m.NumElements()
	vmap, emap := m.Compact()
	mustValid(t, m)
	if m.VertexSlots() != nv || m.ElementSlots() != ne {
		t.Fatalf("compacted slots %d/%d, want %d/%d", m.VertexSlots(), m.ElementSlots(), nv, ne)
	}
	for old, nw := range vmap {
		if nw.Valid() && int(nw) > old {
			t.Fatalf("vertex %d moved up to %d", old, nw)
		}
	}
	for old, nw := range emap {
		if nw.Valid() && int(nw) > old {
			t.Fatalf("element %d moved up to %d", old, nw)
		}
	}

	before := m.Clone()
	m.Compact()
	if !sameMesh(before, m) {
		t.Fatal("second compact changed the mesh")
	}
}

func sameMesh[P Point](a, b *Mesh[P]) bool {
	return a.vpe == b.vpe &&
		slices.Equal(a.verts.valid, b.verts.valid) &&
		slices.Equal(a.elems.valid, b.elems.valid) &&
		slices.Equal(a.ev, b.ev) &&
		slices.Equal(a.ee, b.ee) &&
		slices.Equal(a.ve, b.ve) &&
		slices.Equal(a.coords, b.coords) &&
		slices.Equal(a.deg, b.deg)
}

func TestCompactRemapsPoints(t *testing.T) {
	pts, conn := grid(3, 3)
	m, err := FromArrays(3, pts, conn)
	if err != nil {
		t.Fatal(err)
	}
	m.RemoveVertex(0)
	m.RemoveVertex(5)
	m.RemoveElement(m.Elements()[2])
	vmap, _ := m.Compact()
	mustValid(t, m)
	for old, nw := range vmap {
		if !nw.Valid() {
			if old != 0 && old != 5 {
				t.Errorf("vertex %d dropped", old)
			}
			continue
		}
		if p, _ := m.VertexPoint(nw); p != pts[old] {
			t.Errorf("vertex %d -> %d: point %v, want %v", old, nw, p, pts[old])
		}
	}
}

func TestNonManifoldRejected(t *testing.T) {
	pts := []r2.Vec{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 0, Y: 1}, {X: 0, Y: -1}, {X: 1, Y: 1}}
	m := NewTriangleMesh[r2.Vec]()
	for _, p := range pts {
		m.AddVertex(p)
	}
	if _, err := m.AddElement(0, 1, 2); err != nil {
		t.Fatal(err)
	}
	if _, err := m.AddElement(1, 0, 3); err != nil {
		t.Fatal(err)
	}
	before := m.Clone()
	_, err := m.AddElement(0, 1, 4)
	if !errors.Is(err, ErrNonManifold) {
		t.Fatalf("want ErrNonManifold, got %v", err)
	}
	if !sameMesh(before, m) {
		t.Error("failed insertion mutated the mesh")
	}

	_, err = FromArrays(3, pts, []int{0, 1, 2, 1, 0, 3, 0, 1, 4})
	if !errors.Is(err, ErrNonManifold) {
		t.Errorf("FromArrays: want ErrNonManifold, got %v", err)
	}
}

func TestBadInputs(t *testing.T) {
	m := scenarioB(t)
	if _, err := m.AddElement(0, 0, 1); !errors.Is(err, ErrDegenerate) {
		t.Errorf("repeated vertex: %v", err)
	}
	if _, err := m.AddElement(0, 1, 9); !errors.Is(err, ErrInvalidVertex) {
		t.Errorf("missing vertex: %v", err)
	}
	if _, err := m.AddElement(0, 1); !errors.Is(err, ErrBadConnectivity) {
		t.Errorf("short element: %v", err)
	}
	pts := []r2.Vec{{}, {X: 1}, {Y: 1}}
	if _, err := FromArrays(3, pts, []int{0, 1, 1}); !errors.Is(err, ErrDegenerate) {
		t.Errorf("FromArrays degenerate: %v", err)
	}
	if _, err := FromArrays(3, pts, []int{0, 1, 3}); !errors.Is(err, ErrInvalidVertex) {
		t.Errorf("FromArrays out of range: %v", err)
	}
	if _, err := FromArrays(3, pts, []int{0, 1}); !errors.Is(err, ErrBadConnectivity) {
		t.Errorf("FromArrays short: %v", err)
	}
	if _, err := FromArrays(4, pts, nil); !errors.Is(err, ErrBadConnectivity) {
		t.Errorf("2D tetrahedra: %v", err)
	}
}

func TestInvalidIndexWarns(t *testing.T) {
	var buf bytes.Buffer
	log.SetSink(&buf)
	defer log.SetSink(os.Stderr)
	m := scenarioB(t)

	if m.VerticesInElement(7) != nil || m.ElementNeighbors(-1) != nil || m.ElementFace(0, 3) != nil {
		t.Error("invalid element query returned data")
	}
	if m.ElementsWithVertex(11) != nil {
		t.Error("invalid vertex query returned data")
	}
	if _, ok := m.VertexPoint(-1); ok {
		t.Error("VertexPoint of invalid vertex")
	}
	if m.RemoveElement(5) || m.RemoveVertex(4) || m.SetVertexPoint(9, r2.Vec{}) {
		t.Error("mutation of invalid index reported success")
	}
	m.FixVertexNeighborhood(-3, nil)
	if n := strings.Count(buf.String(), "module=iamesh"); n < 9 {
		t.Errorf("want a warning per call, got %d:\n%s", n, buf.String())
	}
	mustValid(t, m)
}

func TestSlotReuse(t *testing.T) {
	m := NewTriangleMesh[r2.Vec]()
	for i := 0; i < 4; i++ {
		m.AddVertex(r2.Vec{X: float64(i)})
	}
	m.RemoveVertex(1)
	m.RemoveVertex(3)
	if v := m.AddVertex(r2.Vec{X: 30}); v != 3 {
		t.Errorf("want most recent hole 3, got %d", v)
	}
	if v := m.AddVertex(r2.Vec{X: 10}); v != 1 {
		t.Errorf("want hole 1, got %d", v)
	}
	if v := m.AddVertex(r2.Vec{X: 40}); v != 4 {
		t.Errorf("want new slot 4, got %d", v)
	}
	if p, ok := m.VertexPoint(1); !ok || p.X != 10 {
		t.Errorf("reused vertex point %v", p)
	}
	mustValid(t, m)
}

func TestCavityRetriangulation(t *testing.T) {
	pts, conn := grid(4, 4)
	m, err := FromArrays(3, pts, conn)
	if err != nil {
		t.Fatal(err)
	}
	center := VertexID(2*5 + 2)
	cavity := m.ElementsWithVertex(center)
	if len(cavity) != 6 {
		t.Fatalf("interior vertex star has %d elements", len(cavity))
	}
	type boundary struct {
		u, w VertexID
		n    ElemID
	}
	var outer []boundary
	for _, e := range cavity {
		row, nbrs := m.VerticesInElement(e), m.ElementNeighbors(e)
		k := slices.Index(row, center)
		f := (k + 1) % 3
		outer = append(outer, boundary{u: row[f], w: row[(f+1)%3], n: nbrs[f]})
	}
	for _, e := range cavity {
		m.RemoveElement(e)
	}
	p := m.AddVertex(r2.Vec{X: 2.1, Y: 1.9})
	var fan []ElemID
	for _, b := range outer {
		e, err := m.AddElementWithNeighbors([]VertexID{b.u, b.w, p}, []ElemID{b.n, InvalidElem, InvalidElem})
		if err != nil {
			t.Fatal(err)
		}
		fan = append(fan, e)
	}
	m.FixVertexNeighborhood(p, fan)
	if !m.RemoveVertex(center) {
		t.Fatal("old center not valid")
	}
	if !m.IsManifold(true) {
		t.Fatalf("retriangulated mesh not manifold:\n%s", strings.Join(m.Diagnose(), "\n"))
	}
	if got := m.star(p); len(got) != len(fan) {
		t.Errorf("new vertex star %v, want %d elements", got, len(fan))
	}
	if m.NumElements() != len(conn)/3 {
		t.Errorf("element count %d", m.NumElements())
	}
}

func TestAddElementWithNeighborsChecks(t *testing.T) {
	m := scenarioB(t)
	m.AddVertex(r2.Vec{X: 2, Y: 0})
	if _, err := m.AddElementWithNeighbors([]VertexID{1, 4, 3}, []ElemID{0, InvalidElem, InvalidElem}); !errors.Is(err, ErrBadConnectivity) {
		t.Errorf("unshared facet: %v", err)
	}
	if _, err := m.AddElementWithNeighbors([]VertexID{2, 1, 4}, []ElemID{0, InvalidElem, InvalidElem}); !errors.Is(err, ErrNonManifold) {
		t.Errorf("facet already linked: %v", err)
	}
	if _, err := m.AddElementWithNeighbors([]VertexID{1, 4, 3}, []ElemID{7, InvalidElem, InvalidElem}); !errors.Is(err, ErrInvalidElement) {
		t.Errorf("missing neighbor: %v", err)
	}
	e, err := m.AddElementWithNeighbors([]VertexID{3, 1, 4}, []ElemID{InvalidElem, InvalidElem, InvalidElem})
	if err != nil {
		t.Fatal(err)
	}
	// The facet (3,1) is shared with element 1 but was declared a boundary.
	if !m.IsValid(false) {
		t.Fatal("unlinked shared facet is still a valid mesh")
	}
	m.FixVertexNeighborhood(1, []ElemID{1, e})
	if got := m.ElementNeighbors(e); got[0] != 1 {
		t.Errorf("facet (3,1) neighbor %v after fix", got[0])
	}
	if !m.IsManifold(true) {
		t.Error("not manifold after fix")
	}
}

func TestDisconnectedStar(t *testing.T) {
	pts := []r2.Vec{{}, {X: 1}, {X: 1, Y: 1}, {X: -1}, {X: -1, Y: -1}}
	m, err := FromArrays(3, pts, []int{0, 1, 2, 0, 3, 4})
	if err != nil {
		t.Fatal(err)
	}
	got := m.ElementsWithVertex(0)
	slices.Sort(got)
	if !slices.Equal(got, []ElemID{0, 1}) {
		t.Errorf("bowtie vertex elements %v", got)
	}
	if !m.IsValid(true) {
		t.Error("bowtie invalid")
	}
	if m.IsManifold(false) {
		t.Error("bowtie reported manifold")
	}
	if len(m.Diagnose()) != 1 {
		t.Errorf("diagnostics: %v", m.Diagnose())
	}
	m.RemoveElement(m.VertexElement(0))
	mustValid(t, m)
	if !m.VertexElement(0).Valid() {
		t.Error("representative not replaced by scan")
	}
}

func TestThreeElementsOnFacet(t *testing.T) {
	m := NewTriangleMesh[r2.Vec]()
	for _, p := range []r2.Vec{{}, {X: 1}, {X: 0.5, Y: 1}, {X: 0.5, Y: -1}, {X: 0.5, Y: 2}} {
		m.AddVertex(p)
	}
	boundary := []ElemID{InvalidElem, InvalidElem, InvalidElem}
	for _, vs := range [][]VertexID{{0, 1, 2}, {1, 0, 3}, {0, 1, 4}} {
		if _, err := m.AddElementWithNeighbors(vs, boundary); err != nil {
			t.Fatal(err)
		}
	}
	if !m.IsValid(true) {
		t.Fatalf("unlinked elements reported invalid: %v", m.Diagnose())
	}
	if m.IsManifold(false) {
		t.Error("edge in three triangles reported manifold")
	}
	found := false
	for _, d := range m.Diagnose() {
		if strings.Contains(d, "shared by 3 elements") {
			found = true
		}
	}
	if !found {
		t.Errorf("shared facet not diagnosed: %v", m.Diagnose())
	}
}

func TestTetrahedra(t *testing.T) {
	pts := []r3.Vec{{}, {X: 1}, {Y: 1}, {Z: 1}, {X: 1, Y: 1, Z: 1}}
	batch, err := FromArrays(4, pts, []int{0, 1, 2, 3, 1, 2, 3, 4})
	if err != nil {
		t.Fatal(err)
	}
	m := NewTetMesh()
	for _, p := range pts {
		m.AddVertex(p)
	}
	if _, err := m.AddElement(0, 1, 2, 3); err != nil {
		t.Fatal(err)
	}
	if _, err := m.AddElement(1, 2, 3, 4); err != nil {
		t.Fatal(err)
	}
	for _, mesh := range []*Mesh[r3.Vec]{batch, m} {
		mustValid(t, mesh)
		if got := mesh.ElementNeighbors(0); !slices.Equal(got, []ElemID{InvalidElem, 1, InvalidElem, InvalidElem}) {
			t.Errorf("tet 0 neighbors %v", got)
		}
		if got := mesh.ElementNeighbors(1); !slices.Equal(got, []ElemID{0, InvalidElem, InvalidElem, InvalidElem}) {
			t.Errorf("tet 1 neighbors %v", got)
		}
		if face := mesh.ElementFace(0, 1); !slices.Equal(face, []VertexID{1, 2, 3}) {
			t.Errorf("tet face %v", face)
		}
		if !mesh.IsManifold(true) {
			t.Error("two tets not manifold")
		}
	}
	m.RemoveVertex(4)
	mustValid(t, m)
	if m.NumElements() != 1 {
		t.Errorf("remaining tets %d", m.NumElements())
	}
}

func TestCloneIsIndependent(t *testing.T) {
	m := scenarioB(t)
	c := m.Clone()
	m.RemoveElement(0)
	m.SetVertexPoint(1, r2.Vec{X: 5})
	if c.NumElements() != 2 {
		t.Errorf("clone lost elements: %d", c.NumElements())
	}
	if p, _ := c.VertexPoint(1); p.X != 1 {
		t.Errorf("clone point changed: %v", p)
	}
	mustValid(t, c)
}

func TestDump(t *testing.T) {
	m := scenarioB(t)
	m.RemoveElement(0)
	var buf bytes.Buffer
	if err := m.Dump(&buf); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"4 vertices", "1 elements (2 slots)", "Element", "1 3 2"} {
		if !strings.Contains(out, want) {
			t.Errorf("dump missing %q:\n%s", want, out)
		}
	}
}

package iamesh

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"
)

// Mesh is an incidence array mesh of simplices with vertex coordinates of
// type P. Element rows of removed elements hold invalid indices.
type Mesh[P Point] struct {
	vpe   int
	verts slotSet
	elems slotSet
	// Per element slot, vpe entries each.
	ev []VertexID
	ee []ElemID
	// Per vertex slot.
	ve     []ElemID
	coords []P
	// deg counts the valid elements containing each vertex.
	deg []int32
}

// NewTriangleMesh returns an empty mesh of triangles.
func NewTriangleMesh[P Point]() *Mesh[P] {
	return &Mesh[P]{vpe: 3}
}

// NewTetMesh returns an empty mesh of tetrahedra.
func NewTetMesh() *Mesh[r3.Vec] {
	return &Mesh[r3.Vec]{vpe: 4}
}

func newMesh[P Point](vertsPerElem int) (*Mesh[P], error) {
	switch vertsPerElem {
	case 3:
		return NewTriangleMesh[P](), nil
	case 4:
		var p P
		if _, ok := any(p).(r3.Vec); !ok {
			return nil, fmt.Errorf("%w: tetrahedra need 3D points", ErrBadConnectivity)
		}
		return &Mesh[P]{vpe: 4}, nil
	}
	return nil, fmt.Errorf("%w: %d vertices per element", ErrBadConnectivity, vertsPerElem)
}

// FromArrays builds a mesh from a point array and a flat connectivity array
// holding vertsPerElem point indices per element. Vertex i of the mesh is
// points[i] and element j is the j'th connectivity tuple. Adjacency is
// derived from shared facets; a facet shared by more than two elements is
// reported as ErrNonManifold.
func FromArrays[P Point](vertsPerElem int, points []P, conn []int) (*Mesh[P], error) {
	m, err := newMesh[P](vertsPerElem)
	if err != nil {
		return nil, err
	}
	vpe := vertsPerElem
	if len(conn)%vpe != 0 {
		return nil, fmt.Errorf("%w: connectivity length %d not a multiple of %d", ErrBadConnectivity, len(conn), vpe)
	}
	ne := len(conn) / vpe
	m.verts.reset(len(points))
	m.coords = append(m.coords, points...)
	m.ve = make([]ElemID, len(points))
	m.deg = make([]int32, len(points))
	for i := range m.ve {
		m.ve[i] = InvalidElem
	}
	m.elems.reset(ne)
	m.ev = make([]VertexID, len(conn))
	m.ee = make([]ElemID, len(conn))
	for i, c := range conn {
		if c < 0 || c >= len(points) {
			return nil, fmt.Errorf("%w: element %d references point %d of %d", ErrInvalidVertex, i/vpe, c, len(points))
		}
		m.ev[i] = VertexID(c)
		m.ee[i] = InvalidElem
	}

	facets := make(map[facetKey]facetRef, ne*vpe/2+1)
	for e := ElemID(0); int(e) < ne; e++ {
		if m.hasRepeatedVertex(m.evRow(e)) {
			return nil, fmt.Errorf("%w: element %d has vertices %v", ErrDegenerate, e, m.evRow(e))
		}
		for f := 0; f < vpe; f++ {
			key := m.facetKey(e, f)
			other, ok := facets[key]
			if !ok {
				facets[key] = facetRef{elem: e, facet: int8(f)}
				continue
			}
			if other.elem == e {
				return nil, fmt.Errorf("%w: element %d repeats facet %v", ErrDegenerate, e, key)
			}
			if m.ee[m.slot(other.elem, int(other.facet))].Valid() {
				return nil, fmt.Errorf("%w: facet %v shared by elements %d, %d and %d", ErrNonManifold,
					key, other.elem, m.ee[m.slot(other.elem, int(other.facet))], e)
			}
			m.ee[m.slot(e, f)] = other.elem
			m.ee[m.slot(other.elem, int(other.facet))] = e
		}
		for _, v := range m.evRow(e) {
			if !m.ve[v].Valid() {
				m.ve[v] = e
			}
			m.deg[v]++
		}
	}
	logger.Debugf("built mesh of %d vertices and %d elements", len(points), ne)
	return m, nil
}

// VertsPerElem returns 3 for triangle meshes and 4 for tetrahedral meshes.
func (m *Mesh[P]) VertsPerElem() int { return m.vpe }

// NumVertices returns the number of valid vertices.
func (m *Mesh[P]) NumVertices() int { return m.verts.count() }

// NumElements returns the number of valid elements.
func (m *Mesh[P]) NumElements() int { return m.elems.count() }

// VertexSlots returns the number of vertex slots, valid or not.
func (m *Mesh[P]) VertexSlots() int { return m.verts.size() }

// ElementSlots returns the number of element slots, valid or not.
func (m *Mesh[P]) ElementSlots() int { return m.elems.size() }

func (m *Mesh[P]) IsValidVertex(v VertexID) bool  { return m.verts.isValid(int(v)) }
func (m *Mesh[P]) IsValidElement(e ElemID) bool   { return m.elems.isValid(int(e)) }
func (m *Mesh[P]) slot(e ElemID, f int) int       { return int(e)*m.vpe + f }
func (m *Mesh[P]) evRow(e ElemID) []VertexID      { return m.ev[int(e)*m.vpe : int(e)*m.vpe+m.vpe] }
func (m *Mesh[P]) eeRow(e ElemID) []ElemID        { return m.ee[int(e)*m.vpe : int(e)*m.vpe+m.vpe] }
func (m *Mesh[P]) elemHasVertex(e ElemID, v VertexID) bool {
	for _, u := range m.evRow(e) {
		if u == v {
			return true
		}
	}
	return false
}

// Vertices returns the valid vertex indices in increasing order.
func (m *Mesh[P]) Vertices() []VertexID {
	ids := make([]VertexID, 0, m.verts.count())
	for i, ok := range m.verts.valid {
		if ok {
			ids = append(ids, VertexID(i))
		}
	}
	return ids
}

// Elements returns the valid element indices in increasing order.
func (m *Mesh[P]) Elements() []ElemID {
	ids := make([]ElemID, 0, m.elems.count())
	for i, ok := range m.elems.valid {
		if ok {
			ids = append(ids, ElemID(i))
		}
	}
	return ids
}

// VerticesInElement returns the ordered vertices of e, or nil if e is not
// a valid element.
func (m *Mesh[P]) VerticesInElement(e ElemID) []VertexID {
	if !m.IsValidElement(e) {
		logger.Warningf("VerticesInElement: invalid element %d", e)
		return nil
	}
	return append([]VertexID(nil), m.evRow(e)...)
}

// ElementNeighbors returns the neighbors of e across each facet, with
// InvalidElem on boundary facets, or nil if e is not a valid element.
func (m *Mesh[P]) ElementNeighbors(e ElemID) []ElemID {
	if !m.IsValidElement(e) {
		logger.Warningf("ElementNeighbors: invalid element %d", e)
		return nil
	}
	return append([]ElemID(nil), m.eeRow(e)...)
}

// ElementFace returns the vertices of facet f of element e in element
// order, or nil if e is invalid or f out of range.
func (m *Mesh[P]) ElementFace(e ElemID, f int) []VertexID {
	if !m.IsValidElement(e) || f < 0 || f >= m.vpe {
		logger.Warningf("ElementFace: invalid element %d or facet %d", e, f)
		return nil
	}
	row := m.evRow(e)
	face := make([]VertexID, m.vpe-1)
	for k := range face {
		face[k] = row[(f+k)%m.vpe]
	}
	return face
}

// VertexPoint returns the coordinates of v. ok is false if v is not a
// valid vertex.
func (m *Mesh[P]) VertexPoint(v VertexID) (p P, ok bool) {
	if !m.IsValidVertex(v) {
		logger.Warningf("VertexPoint: invalid vertex %d", v)
		return p, false
	}
	return m.coords[v], true
}

// SetVertexPoint moves vertex v to p. It reports whether v is valid.
func (m *Mesh[P]) SetVertexPoint(v VertexID, p P) bool {
	if !m.IsValidVertex(v) {
		logger.Warningf("SetVertexPoint: invalid vertex %d", v)
		return false
	}
	m.coords[v] = p
	return true
}

// VertexElement returns the representative element of v, which is
// InvalidElem for invalid vertices and vertices with no incident element.
func (m *Mesh[P]) VertexElement(v VertexID) ElemID {
	if !m.IsValidVertex(v) {
		logger.Warningf("VertexElement: invalid vertex %d", v)
		return InvalidElem
	}
	return m.ve[v]
}

// ElementsWithVertex returns every valid element containing v, starting at
// its representative element and spreading across facets that contain v.
// Elements not reachable that way, which only exist around non-manifold
// vertices, are found by scanning all elements. It returns nil for invalid
// vertices.
func (m *Mesh[P]) ElementsWithVertex(v VertexID) []ElemID {
	if !m.IsValidVertex(v) {
		logger.Warningf("ElementsWithVertex: invalid vertex %d", v)
		return nil
	}
	return m.incident(v)
}

func (m *Mesh[P]) incident(v VertexID) []ElemID {
	star := m.star(v)
	if len(star) == int(m.deg[v]) {
		return star
	}
	// Star is not facet connected.
	all := make([]ElemID, 0, m.deg[v])
	for i, ok := range m.elems.valid {
		if ok && m.elemHasVertex(ElemID(i), v) {
			all = append(all, ElemID(i))
		}
	}
	return all
}

// star is the breadth first traversal of the ee graph from the
// representative element of v through elements that contain v.
func (m *Mesh[P]) star(v VertexID) []ElemID {
	start := m.ve[v]
	if !m.IsValidElement(start) {
		return nil
	}
	star := []ElemID{start}
	for head := 0; head < len(star); head++ {
		for _, n := range m.eeRow(star[head]) {
			if !m.IsValidElement(n) || !m.elemHasVertex(n, v) || containsElem(star, n) {
				continue
			}
			star = append(star, n)
		}
	}
	return star
}

func containsElem(list []ElemID, e ElemID) bool {
	for _, x := range list {
		if x == e {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the mesh.
func (m *Mesh[P]) Clone() *Mesh[P] {
	return &Mesh[P]{
		vpe:    m.vpe,
		verts:  m.verts.clone(),
		elems:  m.elems.clone(),
		ev:     append([]VertexID(nil), m.ev...),
		ee:     append([]ElemID(nil), m.ee...),
		ve:     append([]ElemID(nil), m.ve...),
		coords: append([]P(nil), m.coords...),
		deg:    append([]int32(nil), m.deg...),
	}
}

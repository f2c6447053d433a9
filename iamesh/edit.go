package iamesh

import (
	"fmt"
	"slices"
)

// AddVertex adds a vertex at p with no incident element and returns its
// index. Slots of removed vertices are reused.
func (m *Mesh[P]) AddVertex(p P) VertexID {
	slot, grew := m.verts.insert()
	if grew {
		m.coords = append(m.coords, p)
		m.ve = append(m.ve, InvalidElem)
		m.deg = append(m.deg, 0)
	} else {
		m.coords[slot] = p
		m.ve[slot] = InvalidElem
		m.deg[slot] = 0
	}
	return VertexID(slot)
}

// checkVertices validates the vertex list of a new element.
func (m *Mesh[P]) checkVertices(vs []VertexID) error {
	if len(vs) != m.vpe {
		return fmt.Errorf("%w: got %d vertices, want %d", ErrBadConnectivity, len(vs), m.vpe)
	}
	for _, v := range vs {
		if !m.IsValidVertex(v) {
			return fmt.Errorf("%w: %d", ErrInvalidVertex, v)
		}
	}
	if m.hasRepeatedVertex(vs) {
		return fmt.Errorf("%w: vertices %v", ErrDegenerate, vs)
	}
	return nil
}

// newFacetKeys returns the facet keys of an element with vertices vs.
func (m *Mesh[P]) newFacetKeys(vs []VertexID) (keys [4]facetKey) {
	var face [3]VertexID
	for f := 0; f < m.vpe; f++ {
		for k := 0; k < m.vpe-1; k++ {
			face[k] = vs[(f+k)%m.vpe]
		}
		keys[f] = makeFacetKey(face[:m.vpe-1])
	}
	return keys
}

// AddElement adds an element with the given vertices and links it to every
// existing element it shares a facet with. Insertions that would leave a
// facet shared by three or more elements fail with ErrNonManifold and leave
// the mesh untouched.
func (m *Mesh[P]) AddElement(vs ...VertexID) (ElemID, error) {
	if err := m.checkVertices(vs); err != nil {
		return InvalidElem, err
	}
	keys := m.newFacetKeys(vs)
	own := make(map[facetKey]int, m.vpe)
	for f, key := range keys[:m.vpe] {
		if _, dup := own[key]; dup {
			return InvalidElem, fmt.Errorf("%w: repeated facet %v", ErrDegenerate, key)
		}
		own[key] = f
	}

	var candidates []ElemID
	for _, v := range vs {
		candidates = append(candidates, m.incident(v)...)
	}
	slices.Sort(candidates)
	candidates = slices.Compact(candidates)

	links := [4]facetRef{{InvalidElem, -1}, {InvalidElem, -1}, {InvalidElem, -1}, {InvalidElem, -1}}
	for _, c := range candidates {
		for g := 0; g < m.vpe; g++ {
			f, ok := own[m.facetKey(c, g)]
			if !ok {
				continue
			}
			if links[f].elem.Valid() || m.ee[m.slot(c, g)].Valid() {
				return InvalidElem, fmt.Errorf("%w: facet %v already shared by two elements", ErrNonManifold, keys[f])
			}
			links[f] = facetRef{elem: c, facet: int8(g)}
		}
	}

	e := m.allocElement(vs)
	for f, l := range links[:m.vpe] {
		if l.elem.Valid() {
			m.ee[m.slot(e, f)] = l.elem
			m.ee[m.slot(l.elem, int(l.facet))] = e
		}
	}
	return e, nil
}

// AddElementWithNeighbors adds an element whose neighbor across facet f is
// neighbors[f], which is InvalidElem for boundary facets. Each valid
// neighbor must have a matching facet not yet linked to another element;
// it is linked back to the new element.
func (m *Mesh[P]) AddElementWithNeighbors(vs []VertexID, neighbors []ElemID) (ElemID, error) {
	if err := m.checkVertices(vs); err != nil {
		return InvalidElem, err
	}
	if len(neighbors) != m.vpe {
		return InvalidElem, fmt.Errorf("%w: got %d neighbors, want %d", ErrBadConnectivity, len(neighbors), m.vpe)
	}
	keys := m.newFacetKeys(vs)
	var back [4]int
	for f, n := range neighbors {
		back[f] = -1
		if n == InvalidElem {
			continue
		}
		if !m.IsValidElement(n) {
			return InvalidElem, fmt.Errorf("%w: neighbor %d", ErrInvalidElement, n)
		}
		g := m.findFacet(n, keys[f])
		if g < 0 {
			return InvalidElem, fmt.Errorf("%w: element %d has no facet %v", ErrBadConnectivity, n, keys[f])
		}
		if m.ee[m.slot(n, g)].Valid() {
			return InvalidElem, fmt.Errorf("%w: facet %v of element %d already linked", ErrNonManifold, keys[f], n)
		}
		back[f] = g
	}
	e := m.allocElement(vs)
	for f, n := range neighbors {
		if back[f] >= 0 {
			m.ee[m.slot(e, f)] = n
			m.ee[m.slot(n, back[f])] = e
		}
	}
	return e, nil
}

// allocElement stores a new element with no neighbors and updates the
// vertex relations.
func (m *Mesh[P]) allocElement(vs []VertexID) ElemID {
	slot, grew := m.elems.insert()
	e := ElemID(slot)
	if grew {
		for range vs {
			m.ev = append(m.ev, InvalidVertex)
			m.ee = append(m.ee, InvalidElem)
		}
	}
	copy(m.evRow(e), vs)
	for f := range m.eeRow(e) {
		m.ee[m.slot(e, f)] = InvalidElem
	}
	for _, v := range vs {
		if !m.IsValidElement(m.ve[v]) {
			m.ve[v] = e
		}
		m.deg[v]++
	}
	return e
}

// RemoveElement removes e, unlinking it from its neighbors and choosing new
// representative elements for its vertices. It reports whether e was a
// valid element.
func (m *Mesh[P]) RemoveElement(e ElemID) bool {
	if !m.IsValidElement(e) {
		logger.Warningf("RemoveElement: invalid element %d", e)
		return false
	}
	m.removeElement(e)
	return true
}

func (m *Mesh[P]) removeElement(e ElemID) {
	var verts [4]VertexID
	copy(verts[:], m.evRow(e))
	nbrs := m.eeRow(e)
	for _, v := range verts[:m.vpe] {
		m.deg[v]--
		if m.ve[v] != e {
			continue
		}
		repl := InvalidElem
		for _, n := range nbrs {
			if n != e && m.IsValidElement(n) && m.elemHasVertex(n, v) {
				repl = n
				break
			}
		}
		m.ve[v] = repl
	}
	for _, n := range nbrs {
		if !m.IsValidElement(n) {
			continue
		}
		for g, back := range m.eeRow(n) {
			if back == e {
				m.ee[m.slot(n, g)] = InvalidElem
			}
		}
	}
	for f := 0; f < m.vpe; f++ {
		m.ev[m.slot(e, f)] = InvalidVertex
		m.ee[m.slot(e, f)] = InvalidElem
	}
	m.elems.remove(int(e))

	// Vertices still incident to elements not adjacent to e.
	for _, v := range verts[:m.vpe] {
		if m.ve[v].Valid() || m.deg[v] == 0 {
			continue
		}
		for i, ok := range m.elems.valid {
			if ok && m.elemHasVertex(ElemID(i), v) {
				m.ve[v] = ElemID(i)
				break
			}
		}
	}
}

// RemoveVertex removes v and every element containing it. It reports
// whether v was a valid vertex.
func (m *Mesh[P]) RemoveVertex(v VertexID) bool {
	if !m.IsValidVertex(v) {
		logger.Warningf("RemoveVertex: invalid vertex %d", v)
		return false
	}
	for _, e := range m.incident(v) {
		m.removeElement(e)
	}
	m.verts.remove(int(v))
	var zero P
	m.coords[v] = zero
	m.ve[v] = InvalidElem
	m.deg[v] = 0
	return true
}

// FixVertexNeighborhood rebuilds the adjacency of a star of elements around
// v after local remeshing. Facets containing v are matched pairwise within
// elems. Facets opposite v keep their neighbor, and that neighbor's
// matching unlinked facet is linked back.
func (m *Mesh[P]) FixVertexNeighborhood(v VertexID, elems []ElemID) {
	if !m.IsValidVertex(v) {
		logger.Warningf("FixVertexNeighborhood: invalid vertex %d", v)
		return
	}
	internal := make(map[facetKey]facetRef, len(elems)*(m.vpe-1))
	for _, e := range elems {
		if !m.IsValidElement(e) {
			logger.Warningf("FixVertexNeighborhood: skipping invalid element %d", e)
			continue
		}
		for f := 0; f < m.vpe; f++ {
			key := m.facetKey(e, f)
			if !key.has(v) {
				n := m.ee[m.slot(e, f)]
				if !m.IsValidElement(n) {
					continue
				}
				if g := m.findFacet(n, key); g >= 0 && !m.IsValidElement(m.ee[m.slot(n, g)]) {
					m.ee[m.slot(n, g)] = e
				}
				continue
			}
			other, ok := internal[key]
			if !ok {
				internal[key] = facetRef{elem: e, facet: int8(f)}
				continue
			}
			m.ee[m.slot(e, f)] = other.elem
			m.ee[m.slot(other.elem, int(other.facet))] = e
		}
	}
}

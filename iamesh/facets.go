package iamesh

// facetKey is the sorted vertex tuple of a facet. Triangle facets leave
// the last entry as InvalidVertex.
type facetKey [3]VertexID

type facetRef struct {
	elem  ElemID
	facet int8
}

func makeFacetKey(vs []VertexID) facetKey {
	k := facetKey{InvalidVertex, InvalidVertex, InvalidVertex}
	copy(k[:], vs)
	n := len(vs)
	// Insertion sort, n is 2 or 3.
	for i := 1; i < n; i++ {
		for j := i; j > 0 && k[j] < k[j-1]; j-- {
			k[j], k[j-1] = k[j-1], k[j]
		}
	}
	return k
}

// facetKey returns the key of facet f of element e.
func (m *Mesh[P]) facetKey(e ElemID, f int) facetKey {
	row := m.evRow(e)
	var vs [3]VertexID
	for k := 0; k < m.vpe-1; k++ {
		vs[k] = row[(f+k)%m.vpe]
	}
	return makeFacetKey(vs[:m.vpe-1])
}

// findFacet returns the facet of e with the given key, or -1.
func (m *Mesh[P]) findFacet(e ElemID, key facetKey) int {
	for f := 0; f < m.vpe; f++ {
		if m.facetKey(e, f) == key {
			return f
		}
	}
	return -1
}

func (k facetKey) has(v VertexID) bool {
	return k[0] == v || k[1] == v || k[2] == v
}

func (m *Mesh[P]) hasRepeatedVertex(vs []VertexID) bool {
	for i := range vs {
		for j := i + 1; j < len(vs); j++ {
			if vs[i] == vs[j] {
				return true
			}
		}
	}
	return false
}

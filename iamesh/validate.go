package iamesh

import "fmt"

// IsValid checks that the relations are consistent with each other and
// with the vertex and element sets. When verbose is set each problem found
// is logged at Warning level.
func (m *Mesh[P]) IsValid(verbose bool) bool {
	return m.report("IsValid", m.check(false), verbose)
}

// IsManifold checks everything IsValid does and additionally that every
// vertex belongs to some element, that no facet is shared by more than two
// elements and that the elements around each vertex are connected across
// facets. It does not check that vertex links are disks or spheres.
func (m *Mesh[P]) IsManifold(verbose bool) bool {
	return m.report("IsManifold", m.check(true), verbose)
}

// Diagnose returns a description of every manifold or consistency problem
// in the mesh. It is empty for a valid manifold mesh.
func (m *Mesh[P]) Diagnose() []string {
	return m.check(true)
}

func (m *Mesh[P]) report(name string, problems []string, verbose bool) bool {
	if verbose {
		for _, p := range problems {
			logger.Warningf("%s: %s", name, p)
		}
	}
	return len(problems) == 0
}

func (m *Mesh[P]) check(manifold bool) (p []string) {
	nv, ne := m.verts.size(), m.elems.size()
	if len(m.coords) != nv || len(m.ve) != nv || len(m.deg) != nv {
		p = append(p, fmt.Sprintf("vertex storage sizes %d, %d, %d do not match %d vertex slots", len(m.coords), len(m.ve), len(m.deg), nv))
		return p
	}
	if len(m.ev) != ne*m.vpe || len(m.ee) != ne*m.vpe {
		p = append(p, fmt.Sprintf("element relation sizes %d, %d do not match %d element slots", len(m.ev), len(m.ee), ne))
		return p
	}
	p = append(p, m.verts.problems("vertex")...)
	p = append(p, m.elems.problems("element")...)

	count := make([]int32, nv)
	for _, e := range m.Elements() {
		row := m.evRow(e)
		bad := false
		for f, v := range row {
			if !m.IsValidVertex(v) {
				p = append(p, fmt.Sprintf("element %d: vertex %d is %v, not a valid vertex", e, f, v))
				bad = true
			}
		}
		if bad {
			continue
		}
		if m.hasRepeatedVertex(row) {
			p = append(p, fmt.Sprintf("element %d: repeated vertex in %v", e, row))
		}
		for _, v := range row {
			count[v]++
		}
		for f, n := range m.eeRow(e) {
			if n == InvalidElem {
				continue
			}
			if !m.IsValidElement(n) {
				p = append(p, fmt.Sprintf("element %d: neighbor %d is %v, not a valid element", e, f, n))
				continue
			}
			g := m.findFacet(n, m.facetKey(e, f))
			switch {
			case g < 0:
				p = append(p, fmt.Sprintf("element %d: neighbor %d across facet %d does not share it", e, n, f))
			case m.ee[m.slot(n, g)] != e:
				p = append(p, fmt.Sprintf("element %d: neighbor %d does not link back across facet %d", e, n, g))
			}
		}
	}
	if len(p) > 0 {
		return p
	}

	for _, v := range m.Vertices() {
		e := m.ve[v]
		switch {
		case e == InvalidElem:
			if count[v] != 0 {
				p = append(p, fmt.Sprintf("vertex %d: no representative element but in %d elements", v, count[v]))
			}
		case !m.IsValidElement(e):
			p = append(p, fmt.Sprintf("vertex %d: representative %v is not a valid element", v, e))
		case !m.elemHasVertex(e, v):
			p = append(p, fmt.Sprintf("vertex %d: representative element %d does not contain it", v, e))
		}
		if m.deg[v] != count[v] {
			p = append(p, fmt.Sprintf("vertex %d: cached valence %d, actual %d", v, m.deg[v], count[v]))
		}
	}
	if !manifold || len(p) > 0 {
		return p
	}

	for _, v := range m.Vertices() {
		if m.ve[v] == InvalidElem {
			p = append(p, fmt.Sprintf("vertex %d: not in any element", v))
			continue
		}
		if star := m.star(v); len(star) != int(count[v]) {
			p = append(p, fmt.Sprintf("vertex %d: %d of %d incident elements reachable across facets", v, len(star), count[v]))
		}
	}
	shared := make(map[facetKey]int, ne*m.vpe/2+1)
	for _, e := range m.Elements() {
		for f := 0; f < m.vpe; f++ {
			shared[m.facetKey(e, f)]++
		}
	}
	for key, n := range shared {
		if n > 2 {
			p = append(p, fmt.Sprintf("facet %v shared by %d elements", key, n))
		}
	}
	return p
}

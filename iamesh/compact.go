package iamesh

// Compact renumbers vertices and elements so both sets are dense, dropping
// the storage of removed slots. Relative order of surviving entries is
// kept. It returns the old to new index maps, which hold invalid indices
// for removed slots.
func (m *Mesh[P]) Compact() (vmap []VertexID, emap []ElemID) {
	vmap = make([]VertexID, m.verts.size())
	nv := 0
	for i, ok := range m.verts.valid {
		vmap[i] = InvalidVertex
		if ok {
			vmap[i] = VertexID(nv)
			nv++
		}
	}
	emap = make([]ElemID, m.elems.size())
	ne := 0
	for i, ok := range m.elems.valid {
		emap[i] = InvalidElem
		if ok {
			emap[i] = ElemID(ne)
			ne++
		}
	}
	if nv == m.verts.size() && ne == m.elems.size() {
		return vmap, emap
	}

	for old, nw := range emap {
		if !nw.Valid() {
			continue
		}
		for f := 0; f < m.vpe; f++ {
			src := old*m.vpe + f
			dst := int(nw)*m.vpe + f
			m.ev[dst] = vmap[m.ev[src]]
			if n := m.ee[src]; n.Valid() {
				m.ee[dst] = emap[n]
			} else {
				m.ee[dst] = InvalidElem
			}
		}
	}
	m.ev = m.ev[:ne*m.vpe]
	m.ee = m.ee[:ne*m.vpe]

	for old, nw := range vmap {
		if !nw.Valid() {
			continue
		}
		m.coords[nw] = m.coords[old]
		m.deg[nw] = m.deg[old]
		if e := m.ve[old]; e.Valid() {
			m.ve[nw] = emap[e]
		} else {
			m.ve[nw] = InvalidElem
		}
	}
	m.coords = m.coords[:nv]
	m.deg = m.deg[:nv]
	m.ve = m.ve[:nv]

	m.verts.reset(nv)
	m.elems.reset(ne)
	logger.Debugf("compacted mesh to %d vertices and %d elements", nv, ne)
	return vmap, emap
}

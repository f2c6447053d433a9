package iamesh

import (
	"fmt"
	"io"
	"strings"

	"github.com/olekukonko/tablewriter"
)

// Dump writes the vertex and element slots and their relations as two
// tables. Removed slots are listed with a dash in the valid column.
func (m *Mesh[P]) Dump(w io.Writer) error {
	var sb strings.Builder
	fmt.Fprintf(&sb, "mesh: %d vertices (%d slots), %d elements (%d slots), %d vertices per element\n",
		m.NumVertices(), m.VertexSlots(), m.NumElements(), m.ElementSlots(), m.vpe)

	vt := tablewriter.NewWriter(&sb)
	vt.SetAutoFormatHeaders(false)
	vt.SetAutoWrapText(false)
	vt.SetAlignment(tablewriter.ALIGN_LEFT)
	vt.SetHeader([]string{"Vertex", "Valid", "Point", "VE", "Elements"})
	for i := range m.verts.valid {
		v := VertexID(i)
		if !m.IsValidVertex(v) {
			vt.Append([]string{v.String(), "-", "", "", ""})
			continue
		}
		vt.Append([]string{
			v.String(),
			"yes",
			fmt.Sprintf("%v", m.coords[v]),
			m.ve[v].String(),
			fmt.Sprintf("%d", m.deg[v]),
		})
	}
	vt.Render()

	et := tablewriter.NewWriter(&sb)
	et.SetAutoFormatHeaders(false)
	et.SetAutoWrapText(false)
	et.SetAlignment(tablewriter.ALIGN_LEFT)
	et.SetHeader([]string{"Element", "Valid", "EV", "EE"})
	for i := range m.elems.valid {
		e := ElemID(i)
		if !m.IsValidElement(e) {
			et.Append([]string{e.String(), "-", "", ""})
			continue
		}
		et.Append([]string{e.String(), "yes", joinIDs(m.evRow(e)), joinIDs(m.eeRow(e))})
	}
	et.Render()

	_, err := io.WriteString(w, sb.String())
	return err
}

func joinIDs[T fmt.Stringer](ids []T) string {
	s := make([]string, len(ids))
	for i, id := range ids {
		s[i] = id.String()
	}
	return strings.Join(s, " ")
}

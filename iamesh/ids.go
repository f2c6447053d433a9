// Package iamesh implements an incidence array mesh of triangles or
// tetrahedra. The mesh stores the element-vertex (ev), element-element (ee)
// and vertex-element (ve) relations as flat index arrays over sparse sets
// of vertex and element slots, and keeps them mutually consistent under
// incremental insertion and removal.
//
// Facet f of an element is formed by its vertices f, f+1, ..., f+n-2
// (modulo n, the number of vertices per element) and lies opposite vertex
// f-1. ee entry f of an element is the neighbor across facet f.
//
// A Mesh is not safe for concurrent use.
package iamesh

import (
	"errors"
	"strconv"

	"github.com/soypat/hpcgeom/internal/log"
	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"
)

// VertexID indexes a vertex slot.
type VertexID int32

// ElemID indexes an element slot.
type ElemID int32

const (
	InvalidVertex VertexID = -1
	InvalidElem   ElemID   = -1
)

// Valid reports whether v holds an index value. It does not check
// membership in any mesh; see Mesh.IsValidVertex.
func (v VertexID) Valid() bool { return v >= 0 }

// Valid reports whether e holds an index value. It does not check
// membership in any mesh; see Mesh.IsValidElement.
func (e ElemID) Valid() bool { return e >= 0 }

func (v VertexID) String() string {
	if v < 0 {
		return "-"
	}
	return strconv.Itoa(int(v))
}

func (e ElemID) String() string {
	if e < 0 {
		return "-"
	}
	return strconv.Itoa(int(e))
}

// Point is the type of vertex coordinates.
type Point interface {
	r2.Vec | r3.Vec
}

var (
	ErrInvalidVertex   = errors.New("iamesh: invalid vertex")
	ErrInvalidElement  = errors.New("iamesh: invalid element")
	ErrDegenerate      = errors.New("iamesh: degenerate element")
	ErrNonManifold     = errors.New("iamesh: non-manifold facet")
	ErrBadConnectivity = errors.New("iamesh: bad connectivity")
)

var logger = log.New("iamesh")

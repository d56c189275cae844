package geometry

import "github.com/df07/go-progressive-photonmapper/pkg/core"

// Compile-time checks that the shapes satisfy the intersection contract
var (
	_ core.Object = (*Sphere)(nil)
	_ core.Object = (*Plane)(nil)
	_ core.Object = (*BezierPatch)(nil)
)

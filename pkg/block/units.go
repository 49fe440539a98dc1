package block

import "fmt"

// WorkspacePoint is a point in the workspace coordinate system.
// Workspace coordinates are resolution-independent; the layout engine scales
// them into view units.
type WorkspacePoint struct {
	X float64
	Y float64
}

// WorkspacePointZero is the origin of the workspace coordinate system.
var WorkspacePointZero = WorkspacePoint{}

// Add returns the point translated by dx and dy.
func (p WorkspacePoint) Add(dx, dy float64) WorkspacePoint {
	return WorkspacePoint{X: p.X + dx, Y: p.Y + dy}
}

// Offset returns the point translated by another point.
func (p WorkspacePoint) Offset(by WorkspacePoint) WorkspacePoint {
	return WorkspacePoint{X: p.X + by.X, Y: p.Y + by.Y}
}

// DistanceTo returns the squared euclidean distance to other.
// Callers comparing distances against each other can skip the square root.
func (p WorkspacePoint) DistanceTo(other WorkspacePoint) float64 {
	dx := p.X - other.X
	dy := p.Y - other.Y
	return dx*dx + dy*dy
}

func (p WorkspacePoint) String() string {
	return fmt.Sprintf("(%g, %g)", p.X, p.Y)
}

// WorkspaceSize is a size in the workspace coordinate system.
type WorkspaceSize struct {
	Width  float64
	Height float64
}

// WorkspaceSizeZero is a size with zero width and height.
var WorkspaceSizeZero = WorkspaceSize{}

// Union returns the smallest size containing both sizes.
func (s WorkspaceSize) Union(other WorkspaceSize) WorkspaceSize {
	out := s
	if other.Width > out.Width {
		out.Width = other.Width
	}
	if other.Height > out.Height {
		out.Height = other.Height
	}
	return out
}

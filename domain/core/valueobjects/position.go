package valueobjects

// Position is the canvas placement of a node, supplied by the blueprint.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// NewPosition creates a Position
func NewPosition(x, y float64) Position {
	return Position{X: x, Y: y}
}

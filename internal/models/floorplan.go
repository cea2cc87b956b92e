package models

// FloorItem is a placed object on a location's floor plan. Field names match
// the serialized layout format stored per location.
type FloorItem struct {
	ID        string  `json:"id"`
	Type      string  `json:"type"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Width     float64 `json:"width"`
	Height    float64 `json:"height"`
	Rotation  float64 `json:"rotation"`
	TableType string  `json:"tableType,omitempty"`
	Capacity  int     `json:"capacity,omitempty"`
	Number    int     `json:"number,omitempty"`
	Shape     string  `json:"shape,omitempty"`
}

const (
	ItemTable = "table"
	ItemWall  = "wall"
	ItemDoor  = "door"
)

const (
	ShapeRectangle = "rectangle"
	ShapeCircle    = "circle"
)

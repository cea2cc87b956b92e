package floorplan

import (
	"context"
	"log"

	"waitify/internal/models"

	"github.com/google/uuid"
)

// Storage persists one layout per location, keyed by location name.
type Storage interface {
	Load(ctx context.Context, location string) ([]models.FloorItem, error)
	Save(ctx context.Context, location string, items []models.FloorItem) error
	Delete(ctx context.Context, location string) error
}

const (
	minZoom  = 0.5
	maxZoom  = 2.0
	zoomStep = 0.1

	duplicateOffset = 20
	rotationStep    = 45
)

type preset struct {
	itemType  string
	width     float64
	height    float64
	tableType string
	capacity  int
	shape     string
}

// Tool identifiers double as placement presets. Unknown tools place nothing.
var presets = map[string]preset{
	"table-small":  {itemType: models.ItemTable, width: 60, height: 60, tableType: "small", capacity: 2, shape: models.ShapeRectangle},
	"table-medium": {itemType: models.ItemTable, width: 80, height: 80, tableType: "medium", capacity: 4, shape: models.ShapeRectangle},
	"table-large":  {itemType: models.ItemTable, width: 120, height: 80, tableType: "large", capacity: 6, shape: models.ShapeRectangle},
	"table-round":  {itemType: models.ItemTable, width: 80, height: 80, tableType: "round", capacity: 4, shape: models.ShapeCircle},
	"wall":         {itemType: models.ItemWall, width: 100, height: 10},
	"door":         {itemType: models.ItemDoor, width: 40, height: 10},
}

// Editor holds the working state of one location's floor plan: the item
// collection, the active placement tool, the current selection, drag capture,
// and the zoom level. Mutations act on memory; Save writes the whole
// collection back in one overwrite.
type Editor struct {
	location string
	storage  Storage

	items      []models.FloorItem
	activeTool string
	selectedID string
	zoom       float64

	dragging      bool
	dragJustEnded bool
	dragStartX    float64
	dragStartY    float64
	itemStartX    float64
	itemStartY    float64

	newID func() string
}

// NewEditor loads the stored layout for the location. A load failure is
// logged and the editor starts from an empty plan.
func NewEditor(ctx context.Context, location string, storage Storage) *Editor {
	items, err := storage.Load(ctx, location)
	if err != nil {
		log.Printf("floorplan load failed location=%s: %v", location, err)
		items = nil
	}
	return &Editor{
		location: location,
		storage:  storage,
		items:    items,
		zoom:     1.0,
		newID:    uuid.NewString,
	}
}

func (e *Editor) Items() []models.FloorItem { return e.items }
func (e *Editor) ActiveTool() string        { return e.activeTool }
func (e *Editor) Zoom() float64             { return e.zoom }

// Selected returns the selected item, if any.
func (e *Editor) Selected() (models.FloorItem, bool) {
	if i := e.indexOf(e.selectedID); i >= 0 {
		return e.items[i], true
	}
	return models.FloorItem{}, false
}

// SelectTool toggles the active placement tool. Picking a tool drops the
// current selection.
func (e *Editor) SelectTool(tool string) {
	if e.activeTool == tool {
		e.activeTool = ""
		return
	}
	e.activeTool = tool
	e.selectedID = ""
}

// HandleCanvasClick places an item when a tool is active, otherwise it
// deselects. The click immediately following a drag release is swallowed so
// letting go of an item does not clear its selection.
func (e *Editor) HandleCanvasClick(x, y float64) {
	if e.dragJustEnded {
		e.dragJustEnded = false
		return
	}
	if e.activeTool == "" {
		e.selectedID = ""
		return
	}
	e.placeItem(e.activeTool, x/e.zoom, y/e.zoom)
	e.activeTool = ""
}

func (e *Editor) placeItem(tool string, x, y float64) {
	p, ok := presets[tool]
	if !ok {
		return
	}
	item := models.FloorItem{
		ID:        e.newID(),
		Type:      p.itemType,
		X:         x,
		Y:         y,
		Width:     p.width,
		Height:    p.height,
		TableType: p.tableType,
		Capacity:  p.capacity,
		Shape:     p.shape,
	}
	if item.Type == models.ItemTable {
		item.Number = e.tableCount() + 1
	}
	e.items = append(e.items, item)
	e.selectedID = item.ID
}

func (e *Editor) SelectItem(id string) {
	if e.indexOf(id) >= 0 {
		e.selectedID = id
	}
}

// BeginDrag captures the pointer and item positions so moves are computed as
// deltas from the drag start rather than against the item's live position.
func (e *Editor) BeginDrag(id string, pointerX, pointerY float64) {
	i := e.indexOf(id)
	if i < 0 {
		return
	}
	e.selectedID = id
	e.dragging = true
	e.dragStartX = pointerX
	e.dragStartY = pointerY
	e.itemStartX = e.items[i].X
	e.itemStartY = e.items[i].Y
}

func (e *Editor) DragTo(pointerX, pointerY float64) {
	if !e.dragging {
		return
	}
	i := e.indexOf(e.selectedID)
	if i < 0 {
		return
	}
	e.items[i].X = e.itemStartX + (pointerX-e.dragStartX)/e.zoom
	e.items[i].Y = e.itemStartY + (pointerY-e.dragStartY)/e.zoom
}

func (e *Editor) EndDrag() {
	if !e.dragging {
		return
	}
	e.dragging = false
	e.dragJustEnded = true
}

// RotateCW turns the selection 45 degrees clockwise. The angle accumulates
// without normalization.
func (e *Editor) RotateCW()  { e.rotate(rotationStep) }
func (e *Editor) RotateCCW() { e.rotate(-rotationStep) }

func (e *Editor) rotate(degrees float64) {
	if i := e.indexOf(e.selectedID); i >= 0 {
		e.items[i].Rotation += degrees
	}
}

// Duplicate copies the selection 20 points down-right with a fresh id and
// selects the copy. A duplicated table gets the next number derived from the
// current table count, so numbers freed by deletions are reissued.
func (e *Editor) Duplicate() {
	i := e.indexOf(e.selectedID)
	if i < 0 {
		return
	}
	copied := e.items[i]
	copied.ID = e.newID()
	copied.X += duplicateOffset
	copied.Y += duplicateOffset
	if copied.Type == models.ItemTable {
		copied.Number = e.tableCount() + 1
	}
	e.items = append(e.items, copied)
	e.selectedID = copied.ID
}

func (e *Editor) Delete() {
	i := e.indexOf(e.selectedID)
	if i < 0 {
		return
	}
	e.items = append(e.items[:i], e.items[i+1:]...)
	e.selectedID = ""
}

func (e *Editor) Save(ctx context.Context) error {
	return e.storage.Save(ctx, e.location, e.items)
}

// Clear wipes the plan and removes the stored layout. It does nothing until
// the caller confirms.
func (e *Editor) Clear(ctx context.Context, confirmed bool) error {
	if !confirmed {
		return nil
	}
	e.items = nil
	e.selectedID = ""
	return e.storage.Delete(ctx, e.location)
}

func (e *Editor) ZoomIn()  { e.setZoom(e.zoom + zoomStep) }
func (e *Editor) ZoomOut() { e.setZoom(e.zoom - zoomStep) }

func (e *Editor) setZoom(zoom float64) {
	if zoom < minZoom {
		zoom = minZoom
	}
	if zoom > maxZoom {
		zoom = maxZoom
	}
	e.zoom = zoom
}

func (e *Editor) tableCount() int {
	count := 0
	for _, item := range e.items {
		if item.Type == models.ItemTable {
			count++
		}
	}
	return count
}

func (e *Editor) indexOf(id string) int {
	if id == "" {
		return -1
	}
	for i, item := range e.items {
		if item.ID == id {
			return i
		}
	}
	return -1
}

package mapwidget

import (
	"sync"

	"transittrack/pkg/geo"
)

// MapStyle is one styling rule of the base map.
type MapStyle struct {
	FeatureType string              `json:"featureType"`
	ElementType string              `json:"elementType"`
	Stylers     []map[string]string `json:"stylers"`
}

// TransitStyle tints transit geometry blue.
var TransitStyle = []MapStyle{
	{FeatureType: "transit", ElementType: "geometry", Stylers: []map[string]string{{"color": "#2563eb"}}},
}

type MapOptions struct {
	APIKey string     `json:"apiKey"`
	Center geo.Point  `json:"center"`
	Zoom   int        `json:"zoom"`
	Styles []MapStyle `json:"styles,omitempty"`
}

// Marker is a point on the map. Label is drawn over the icon; Info is popup
// HTML the browser opens on click.
type Marker struct {
	ID       string    `json:"id"`
	Title    string    `json:"title"`
	Position geo.Point `json:"position"`
	Icon     string    `json:"icon,omitempty"`
	Label    string    `json:"label,omitempty"`
	Info     string    `json:"info,omitempty"`
}

type Polyline struct {
	ID       string      `json:"id"`
	Path     []geo.Point `json:"path"`
	Color    string      `json:"color"`
	Opacity  float64     `json:"opacity"`
	Weight   int         `json:"weight"`
	Geodesic bool        `json:"geodesic"`
}

// Surface is where a session draws its map.
type Surface interface {
	CreateMap(opts MapOptions)
	AddMarker(m Marker)
	MoveMarker(id string, p geo.Point)
	RemoveMarker(id string)
	DrawPolyline(pl Polyline)
	RemovePolyline(id string)
	FitBounds(b geo.Bounds)
	PanTo(p geo.Point)
	ShowPlaceholder(message string)
	ShowCredentialForm()
	Clear()
}

// Op names a surface primitive on the wire.
type Op string

const (
	OpCreateMap          Op = "createMap"
	OpAddMarker          Op = "addMarker"
	OpMoveMarker         Op = "moveMarker"
	OpRemoveMarker       Op = "removeMarker"
	OpDrawPolyline       Op = "drawPolyline"
	OpRemovePolyline     Op = "removePolyline"
	OpFitBounds          Op = "fitBounds"
	OpPanTo              Op = "panTo"
	OpShowPlaceholder    Op = "showPlaceholder"
	OpShowCredentialForm Op = "showCredentialForm"
	OpClear              Op = "clear"
)

// Command is one surface call, serialised for the browser.
type Command struct {
	Op       Op          `json:"op"`
	ID       string      `json:"id,omitempty"`
	Map      *MapOptions `json:"map,omitempty"`
	Marker   *Marker     `json:"marker,omitempty"`
	Polyline *Polyline   `json:"polyline,omitempty"`
	Position *geo.Point  `json:"position,omitempty"`
	Bounds   *geo.Bounds `json:"bounds,omitempty"`
	Message  string      `json:"message,omitempty"`
}

// CommandSurface forwards every call as a Command to emit.
type CommandSurface func(Command)

func (s CommandSurface) CreateMap(opts MapOptions) { s(Command{Op: OpCreateMap, Map: &opts}) }
func (s CommandSurface) AddMarker(m Marker)        { s(Command{Op: OpAddMarker, ID: m.ID, Marker: &m}) }
func (s CommandSurface) MoveMarker(id string, p geo.Point) {
	s(Command{Op: OpMoveMarker, ID: id, Position: &p})
}
func (s CommandSurface) RemoveMarker(id string) { s(Command{Op: OpRemoveMarker, ID: id}) }
func (s CommandSurface) DrawPolyline(pl Polyline) {
	s(Command{Op: OpDrawPolyline, ID: pl.ID, Polyline: &pl})
}
func (s CommandSurface) RemovePolyline(id string)       { s(Command{Op: OpRemovePolyline, ID: id}) }
func (s CommandSurface) FitBounds(b geo.Bounds)         { s(Command{Op: OpFitBounds, Bounds: &b}) }
func (s CommandSurface) PanTo(p geo.Point)              { s(Command{Op: OpPanTo, Position: &p}) }
func (s CommandSurface) ShowPlaceholder(message string) { s(Command{Op: OpShowPlaceholder, Message: message}) }
func (s CommandSurface) ShowCredentialForm()            { s(Command{Op: OpShowCredentialForm}) }
func (s CommandSurface) Clear()                         { s(Command{Op: OpClear}) }

// Recorder keeps every command it receives. Safe for concurrent use.
type Recorder struct {
	mu       sync.Mutex
	commands []Command
}

func (r *Recorder) Emit(c Command) {
	r.mu.Lock()
	r.commands = append(r.commands, c)
	r.mu.Unlock()
}

// Surface returns a Surface that records into r.
func (r *Recorder) Surface() Surface {
	return CommandSurface(r.Emit)
}

func (r *Recorder) Commands() []Command {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Command(nil), r.commands...)
}

// Count returns how many commands with op were recorded.
func (r *Recorder) Count(op Op) int {
	n := 0
	for _, c := range r.Commands() {
		if c.Op == op {
			n++
		}
	}
	return n
}

// Last returns the most recent command with op.
func (r *Recorder) Last(op Op) (Command, bool) {
	cmds := r.Commands()
	for i := len(cmds) - 1; i >= 0; i-- {
		if cmds[i].Op == op {
			return cmds[i], true
		}
	}
	return Command{}, false
}

func (r *Recorder) Reset() {
	r.mu.Lock()
	r.commands = nil
	r.mu.Unlock()
}

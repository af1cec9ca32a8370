// Package render draws an overhead view of the rink for the debug API:
// zones, lines, faceoff dots, skaters by team, the puck and any players
// currently tracked as delayed offside.
package render

import (
	"bytes"
	"image/color"

	"github.com/fogleman/gg"

	"ice-ref/internal/rink"
	"ice-ref/internal/sim"
)

// Drawable rink extents, slightly wider than the goal lines
const (
	minZ = -14.0
	maxZ = 15.0
	minX = -8.0
	maxX = 8.0
)

var (
	iceColor      = color.RGBA{235, 242, 248, 255}
	redZoneTint   = color.RGBA{255, 230, 230, 255}
	blueZoneTint  = color.RGBA{228, 236, 255, 255}
	blueLineColor = color.RGBA{30, 64, 175, 255}
	goalLineColor = color.RGBA{190, 30, 45, 255}
	dotColor      = color.RGBA{190, 30, 45, 200}
	redTeamColor  = color.RGBA{220, 38, 38, 255}
	blueTeamColor = color.RGBA{37, 99, 235, 255}
	puckColor     = color.RGBA{20, 20, 20, 255}
	trackedColor  = color.RGBA{255, 170, 0, 255}
	labelColor    = color.RGBA{20, 25, 35, 255}
)

// Renderer draws world snapshots to PNG. The long axis of the rink (Z) maps
// to the horizontal axis of the image.
type Renderer struct {
	width  int
	height int
}

// NewRenderer creates a renderer with the given output dimensions
func NewRenderer(width, height int) *Renderer {
	return &Renderer{width: width, height: height}
}

// toPixel maps a rink position to image coordinates
func (r *Renderer) toPixel(pos rink.Position) (float64, float64) {
	px := (pos.Z - minZ) / (maxZ - minZ) * float64(r.width)
	py := (pos.X - minX) / (maxX - minX) * float64(r.height)
	return px, py
}

// zColumn maps a Z coordinate to a horizontal pixel column
func (r *Renderer) zColumn(z float64) float64 {
	return (z - minZ) / (maxZ - minZ) * float64(r.width)
}

// RenderPNG draws the snapshot and returns encoded PNG bytes
func (r *Renderer) RenderPNG(snap sim.Snapshot) ([]byte, error) {
	dc := gg.NewContext(r.width, r.height)

	r.drawSurface(dc)
	r.drawLines(dc)
	r.drawFaceoffDots(dc)
	r.drawPlayers(dc, snap)
	r.drawPuck(dc, snap)

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (r *Renderer) drawSurface(dc *gg.Context) {
	dc.SetColor(iceColor)
	dc.DrawRectangle(0, 0, float64(r.width), float64(r.height))
	dc.Fill()

	// Tint the defensive zones
	redEdge := r.zColumn(rink.RedDefensiveMax)
	dc.SetColor(redZoneTint)
	dc.DrawRectangle(0, 0, redEdge, float64(r.height))
	dc.Fill()

	blueEdge := r.zColumn(rink.BlueDefensiveMin)
	dc.SetColor(blueZoneTint)
	dc.DrawRectangle(blueEdge, 0, float64(r.width)-blueEdge, float64(r.height))
	dc.Fill()
}

func (r *Renderer) drawLines(dc *gg.Context) {
	h := float64(r.height)

	dc.SetColor(blueLineColor)
	dc.SetLineWidth(4)
	for _, z := range []float64{rink.RedDefensiveMax, rink.BlueDefensiveMin} {
		col := r.zColumn(z)
		dc.DrawLine(col, 0, col, h)
		dc.Stroke()
	}

	dc.SetColor(goalLineColor)
	dc.SetLineWidth(2)
	for _, z := range []float64{rink.RedGoalLineZ, rink.BlueGoalLineZ, 0} {
		col := r.zColumn(z)
		dc.DrawLine(col, 0, col, h)
		dc.Stroke()
	}
}

func (r *Renderer) drawFaceoffDots(dc *gg.Context) {
	dc.SetColor(dotColor)
	for _, dot := range rink.AllFaceoffPositions() {
		px, py := r.toPixel(dot)
		dc.DrawCircle(px, py, 5)
		dc.Fill()
	}
}

func (r *Renderer) drawPlayers(dc *gg.Context, snap sim.Snapshot) {
	tracked := make(map[string]bool, len(snap.Tracked))
	for _, e := range snap.Tracked {
		tracked[e.PlayerID] = true
	}

	for _, p := range snap.Players {
		px, py := r.toPixel(p.Position)

		// Halo for delayed-offside tracked players
		if tracked[p.ID] {
			dc.SetColor(trackedColor)
			dc.DrawCircle(px, py, 14)
			dc.Fill()
		}

		if p.Team == rink.TeamRed {
			dc.SetColor(redTeamColor)
		} else {
			dc.SetColor(blueTeamColor)
		}
		dc.DrawCircle(px, py, 9)
		dc.Fill()

		dc.SetColor(color.White)
		dc.SetLineWidth(2)
		dc.DrawCircle(px, py, 9)
		dc.Stroke()

		dc.SetColor(labelColor)
		dc.DrawStringAnchored(p.ID, px, py-16, 0.5, 0.5)
	}
}

func (r *Renderer) drawPuck(dc *gg.Context, snap sim.Snapshot) {
	if !snap.Puck.Spawned {
		return
	}
	px, py := r.toPixel(snap.Puck.Position)
	dc.SetColor(puckColor)
	dc.DrawCircle(px, py, 5)
	dc.Fill()
}

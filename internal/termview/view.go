// Package termview draws grids on terminals, as ANSI text or on a tcell
// screen.
package termview

import (
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/muesli/termenv"

	"github.com/wricardo/shapegrid/game/engine"
)

// Palette maps cell colours to hex values. Unknown colours fall back to the
// kind colour.
var Palette = map[string]string{
	"red":    "#ef4444",
	"green":  "#22c55e",
	"blue":   "#3b82f6",
	"purple": "#a855f7",
	"yellow": "#eab308",
	"grey":   "#9ca3af",
	"gray":   "#9ca3af",
}

var kindColors = map[engine.CellKind]string{
	engine.Wall:     "#9ca3af",
	engine.Floor:    "#e5e7eb",
	engine.Lava:     "#dc2626",
	engine.FakeLava: "#fb923c",
	engine.Gate:     "#14b8a6",
	engine.Goal:     "#facc15",
}

const agentColor = "#f8fafc"

// CellHex returns the colour a cell is drawn with, or "" for empty cells.
func CellHex(c engine.Cell) string {
	if c.Kind == engine.Empty {
		return ""
	}
	// lava kinds keep their own colour so they stay recognisable
	if c.Kind != engine.Lava && c.Kind != engine.FakeLava {
		if hex, ok := Palette[strings.ToLower(c.Color)]; ok {
			return hex
		}
	}
	return kindColors[c.Kind]
}

// RenderANSI renders the grid with the agent arrow, one line per row.
// Colours follow the profile of out, so a non-terminal writer gets plain
// ASCII.
func RenderANSI(out *termenv.Output, g *engine.Grid, pose engine.Pose) string {
	rows := engine.RenderLayout(g, pose)

	var b strings.Builder
	for y, row := range rows {
		for x := 0; x < len(row); x++ {
			glyph := string(row[x])
			hex := agentColor
			if x != pose.Pos.X || y != pose.Pos.Y {
				cell, _ := g.Get(x, y)
				hex = CellHex(cell)
			}
			if hex == "" {
				b.WriteString(glyph)
				continue
			}
			b.WriteString(out.String(glyph).Foreground(out.Color(hex)).String())
		}
		b.WriteString("\n")
	}
	return b.String()
}

// Draw paints the grid on screen with its top left corner at (x0, y0).
func Draw(screen tcell.Screen, g *engine.Grid, pose engine.Pose, x0, y0 int) {
	rows := engine.RenderLayout(g, pose)
	for y, row := range rows {
		for x := 0; x < len(row); x++ {
			style := tcell.StyleDefault
			if x == pose.Pos.X && y == pose.Pos.Y {
				style = style.Foreground(tcell.GetColor(agentColor)).Bold(true)
			} else {
				cell, _ := g.Get(x, y)
				if hex := CellHex(cell); hex != "" {
					style = style.Foreground(tcell.GetColor(hex))
				}
			}
			screen.SetContent(x0+x, y0+y, rune(row[x]), nil, style)
		}
	}
}

// DrawText writes a single line of text starting at (x, y).
func DrawText(screen tcell.Screen, x, y int, style tcell.Style, text string) {
	for i, r := range []rune(text) {
		screen.SetContent(x+i, y, r, nil, style)
	}
}

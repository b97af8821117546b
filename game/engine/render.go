package engine

import "strings"

// Legend maps layout glyphs to what they stand for.
var Legend = map[string]string{
	"#":   "wall",
	".":   "empty",
	"L":   "lava",
	"F":   "fake_lava",
	"=":   "gate",
	"*":   "goal",
	">":   "agent facing right",
	"v":   "agent facing down",
	"<":   "agent facing left",
	"^":   "agent facing up",
	"a-z": "floor marker, first letter of its colour",
	"o":   "floor marker whose colour has no usable letter",
}

var agentGlyphs = [4]byte{'>', 'v', '<', '^'}

// Glyph returns the single character used for c in ASCII layouts.
func Glyph(c Cell) byte {
	switch c.Kind {
	case Wall:
		return '#'
	case Lava:
		return 'L'
	case FakeLava:
		return 'F'
	case Gate:
		return '='
	case Goal:
		return '*'
	case Floor:
		return floorGlyph(c.Color)
	default:
		return '.'
	}
}

// floorGlyph is the first letter of the colour id. Ids that do not start
// with a letter, and 'v' which reads as an agent arrow, fall back to 'o'.
func floorGlyph(color string) byte {
	if color == "" {
		return 'o'
	}
	b := strings.ToLower(color)[0]
	if b < 'a' || b > 'z' || b == 'v' {
		return 'o'
	}
	return b
}

// AgentGlyph returns the arrow drawn for an orientation.
func AgentGlyph(d Direction) byte {
	return agentGlyphs[d.normalize()]
}

// RenderLayout draws the grid with the agent arrow overlaid.
func RenderLayout(g *Grid, pose Pose) []string {
	rows := g.Layout()
	if !g.InBounds(pose.Pos.X, pose.Pos.Y) {
		return rows
	}
	row := []byte(rows[pose.Pos.Y])
	row[pose.Pos.X] = AgentGlyph(pose.Dir)
	rows[pose.Pos.Y] = string(row)
	return rows
}

// Render joins RenderLayout with newlines.
func Render(g *Grid, pose Pose) string {
	return strings.Join(RenderLayout(g, pose), "\n")
}

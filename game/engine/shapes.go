package engine

import (
	"fmt"
	"sort"
)

// TemplateSize is the side length of every shape template.
const TemplateSize = 6

// ShapeTemplate is a fixed 6x6 bitmask. Bit (r, c) lands on grid cell
// (anchor.x + r, anchor.y + c) when stamped.
type ShapeTemplate struct {
	Name string
	Bits [TemplateSize][TemplateSize]bool
}

// TemplateStyle selects one of the template families.
type TemplateStyle string

const (
	// StyleOutline holds the thin markers used by the plain and donut rooms.
	StyleOutline TemplateStyle = "outline"
	// StyleSolid holds the filled shapes used by the T-partition room.
	StyleSolid TemplateStyle = "solid"
	// StylePattern holds the room marks used by the lattice.
	StylePattern TemplateStyle = "pattern"
)

// Template names.
const (
	ShapeTriangle = "triangle"
	ShapePlus     = "plus"
	ShapeX        = "x"
	ShapeDash     = "dash"

	PatternLines    = "lines"
	PatternCross    = "cross"
	PatternCheckers = "checkers"
	PatternSquare   = "square"
	PatternTriangle = "triangle"
)

func mustTemplate(name string, rows ...string) ShapeTemplate {
	if len(rows) != TemplateSize {
		panic(fmt.Sprintf("template %s: want %d rows, got %d", name, TemplateSize, len(rows)))
	}
	t := ShapeTemplate{Name: name}
	for r, row := range rows {
		if len(row) != TemplateSize {
			panic(fmt.Sprintf("template %s: row %d has %d columns", name, r, len(row)))
		}
		for c := 0; c < TemplateSize; c++ {
			t.Bits[r][c] = row[c] == '#'
		}
	}
	return t
}

var templates = map[TemplateStyle]map[string]ShapeTemplate{
	StyleOutline: {
		ShapePlus: mustTemplate(ShapePlus,
			"......",
			"......",
			"......",
			"......",
			"......",
			"..##..",
		),
		ShapeTriangle: mustTemplate(ShapeTriangle,
			"#####.",
			"######",
			"......",
			"......",
			"......",
			"......",
		),
		ShapeX: mustTemplate(ShapeX,
			"....##",
			"###...",
			"......",
			"......",
			"......",
			"......",
		),
		ShapeDash: mustTemplate(ShapeDash,
			"......",
			"......",
			"......",
			"......",
			"....##",
			"....##",
		),
	},
	StyleSolid: {
		ShapePlus: mustTemplate(ShapePlus,
			"..##..",
			"..##..",
			"######",
			"######",
			"..##..",
			"..##..",
		),
		ShapeTriangle: mustTemplate(ShapeTriangle,
			"#.....",
			"##....",
			"###...",
			"####..",
			"#####.",
			"######",
		),
		ShapeX: mustTemplate(ShapeX,
			"##..##",
			"######",
			".####.",
			".####.",
			"######",
			"##..##",
		),
		ShapeDash: mustTemplate(ShapeDash,
			"##....",
			"###...",
			".###..",
			"..###.",
			"...###",
			"....##",
		),
	},
	StylePattern: {
		PatternLines: mustTemplate(PatternLines,
			"######",
			"......",
			"######",
			"......",
			"######",
			"......",
		),
		PatternCross: mustTemplate(PatternCross,
			"#....#",
			".#..#.",
			"..##..",
			"..##..",
			".#..#.",
			"#....#",
		),
		PatternCheckers: mustTemplate(PatternCheckers,
			"#.#.#.",
			".#.#.#",
			"#.#.#.",
			".#.#.#",
			"#.#.#.",
			".#.#.#",
		),
		PatternSquare: mustTemplate(PatternSquare,
			"######",
			"#....#",
			"#....#",
			"#....#",
			"#....#",
			"######",
		),
		PatternTriangle: mustTemplate(PatternTriangle,
			"#.....",
			"##....",
			"###...",
			"####..",
			"#####.",
			"######",
		),
	},
}

// latticePatterns fixes the index order used when decoding lattice marks.
var latticePatterns = []string{PatternLines, PatternCross, PatternCheckers, PatternSquare, PatternTriangle}

// LookupTemplate returns the named template of a style.
func LookupTemplate(style TemplateStyle, name string) (ShapeTemplate, error) {
	set, ok := templates[style]
	if !ok {
		return ShapeTemplate{}, fmt.Errorf("%w: unknown template style %q", ErrInvalidParams, style)
	}
	t, ok := set[name]
	if !ok {
		return ShapeTemplate{}, fmt.Errorf("%w: unknown %s template %q", ErrInvalidParams, style, name)
	}
	return t, nil
}

// TemplateNames lists the template names of a style in sorted order.
func TemplateNames(style TemplateStyle) []string {
	names := make([]string, 0, len(templates[style]))
	for name := range templates[style] {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SetBits returns the template's set bits as (r, c) offsets, row-major.
func (t ShapeTemplate) SetBits() []Position {
	var out []Position
	for r := 0; r < TemplateSize; r++ {
		for c := 0; c < TemplateSize; c++ {
			if t.Bits[r][c] {
				out = append(out, Position{X: r, Y: c})
			}
		}
	}
	return out
}

// Crop returns a copy with every bit at or beyond size cleared.
func (t ShapeTemplate) Crop(size int) ShapeTemplate {
	out := ShapeTemplate{Name: t.Name}
	for r := 0; r < TemplateSize && r < size; r++ {
		for c := 0; c < TemplateSize && c < size; c++ {
			out.Bits[r][c] = t.Bits[r][c]
		}
	}
	return out
}

// Stamp writes Floor(color) for every set bit of t, offset by anchor.
// Cells that fall outside the grid are skipped.
func Stamp(g *Grid, t ShapeTemplate, anchor Position, color string) {
	for r := 0; r < TemplateSize; r++ {
		for c := 0; c < TemplateSize; c++ {
			if t.Bits[r][c] {
				g.Set(anchor.X+r, anchor.Y+c, Cell{Kind: Floor, Color: color})
			}
		}
	}
}

// StampNamed resolves a template by style and name and stamps it.
func StampNamed(g *Grid, style TemplateStyle, name string, anchor Position, color string) error {
	t, err := LookupTemplate(style, name)
	if err != nil {
		return err
	}
	Stamp(g, t, anchor, color)
	return nil
}

package engine

import "strings"

// Grid is a fixed-size array of cells indexed by (x, y).
// Writes outside the grid are dropped; reads outside return a wall.
type Grid struct {
	width  int
	height int
	cells  []Cell
}

// NewGrid creates a grid filled with empty cells.
func NewGrid(width, height int) *Grid {
	cells := make([]Cell, width*height)
	for i := range cells {
		cells[i] = Cell{Kind: Empty}
	}
	return &Grid{width: width, height: height, cells: cells}
}

// Width returns the number of columns.
func (g *Grid) Width() int { return g.width }

// Height returns the number of rows.
func (g *Grid) Height() int { return g.height }

// InBounds reports whether (x, y) lies on the grid.
func (g *Grid) InBounds(x, y int) bool {
	return x >= 0 && x < g.width && y >= 0 && y < g.height
}

// Get returns the cell at (x, y). The second result is false when the
// coordinate is off-grid, in which case a wall is returned.
func (g *Grid) Get(x, y int) (Cell, bool) {
	if !g.InBounds(x, y) {
		return Cell{Kind: Wall, Color: DefaultWallColor}, false
	}
	return g.cells[y*g.width+x], true
}

// At is Get for a Position.
func (g *Grid) At(p Position) Cell {
	c, _ := g.Get(p.X, p.Y)
	return c
}

// Set writes a cell, silently ignoring off-grid coordinates.
func (g *Grid) Set(x, y int, c Cell) {
	if !g.InBounds(x, y) {
		return
	}
	g.cells[y*g.width+x] = c
}

// HorzWall fills length cells of row y starting at column x.
func (g *Grid) HorzWall(x, y, length int, color string) {
	for i := 0; i < length; i++ {
		g.Set(x+i, y, Cell{Kind: Wall, Color: color})
	}
}

// VertWall fills length cells of column x starting at row y.
func (g *Grid) VertWall(x, y, length int, color string) {
	for j := 0; j < length; j++ {
		g.Set(x, y+j, Cell{Kind: Wall, Color: color})
	}
}

// WallRect draws the outline of a w by h rectangle with its corner at (x, y).
func (g *Grid) WallRect(x, y, w, h int, color string) {
	g.HorzWall(x, y, w, color)
	g.HorzWall(x, y+h-1, w, color)
	g.VertWall(x, y, h, color)
	g.VertWall(x+w-1, y, h, color)
}

// Border walls the outer ring of the grid.
func (g *Grid) Border(color string) {
	g.HorzWall(0, 0, g.width, color)
	g.VertWall(0, 0, g.height, color)
	g.HorzWall(0, g.height-1, g.width, color)
	g.VertWall(g.width-1, 0, g.height, color)
}

// Count returns how many cells have the given kind.
func (g *Grid) Count(kind CellKind) int {
	n := 0
	for _, c := range g.cells {
		if c.Kind == kind {
			n++
		}
	}
	return n
}

// Find returns the positions of every cell of the given kind in row-major order.
func (g *Grid) Find(kind CellKind) []Position {
	var out []Position
	for y := 0; y < g.height; y++ {
		for x := 0; x < g.width; x++ {
			if g.cells[y*g.width+x].Kind == kind {
				out = append(out, Position{X: x, Y: y})
			}
		}
	}
	return out
}

// Rows returns a copy of the grid as [row][column].
func (g *Grid) Rows() [][]Cell {
	rows := make([][]Cell, g.height)
	for y := range rows {
		rows[y] = make([]Cell, g.width)
		copy(rows[y], g.cells[y*g.width:(y+1)*g.width])
	}
	return rows
}

// Clone returns a deep copy of the grid.
func (g *Grid) Clone() *Grid {
	cells := make([]Cell, len(g.cells))
	copy(cells, g.cells)
	return &Grid{width: g.width, height: g.height, cells: cells}
}

// Equal reports whether two grids hold identical cells.
func (g *Grid) Equal(o *Grid) bool {
	if g.width != o.width || g.height != o.height {
		return false
	}
	for i := range g.cells {
		if g.cells[i] != o.cells[i] {
			return false
		}
	}
	return true
}

// Layout renders the grid as one string per row using the glyph legend.
func (g *Grid) Layout() []string {
	rows := make([]string, g.height)
	var b strings.Builder
	for y := 0; y < g.height; y++ {
		b.Reset()
		for x := 0; x < g.width; x++ {
			b.WriteByte(Glyph(g.cells[y*g.width+x]))
		}
		rows[y] = b.String()
	}
	return rows
}

package engine

import (
	"fmt"
	"math/rand"
	"strings"
)

// TopologyKind selects the wall layout of a room
type TopologyKind string

const (
	TopologyPlain       TopologyKind = "plain"
	TopologyDonut       TopologyKind = "donut"
	TopologySquareDonut TopologyKind = "square_donut"
	TopologyLavaDonut   TopologyKind = "lava_donut"
	TopologyTRoom       TopologyKind = "t_room"
	TopologyLattice     TopologyKind = "lattice"
)

// Topologies lists every supported topology.
var Topologies = []TopologyKind{
	TopologyPlain, TopologyDonut, TopologySquareDonut, TopologyLavaDonut, TopologyTRoom, TopologyLattice,
}

// DefaultOrder is the shape order used when none is given.
const DefaultOrder = "TPXD"

// LatticeParams describes a grid of equally sized rooms joined by gates.
type LatticeParams struct {
	RoomSize int   `json:"room_size" yaml:"room_size"`
	Cols     int   `json:"cols" yaml:"cols"`
	Rows     int   `json:"rows" yaml:"rows"`
	MarkSeed int64 `json:"mark_seed,omitempty" yaml:"mark_seed,omitempty"`
}

// Dimensions returns the grid width and height the lattice occupies.
func (l LatticeParams) Dimensions() (int, int) {
	return l.Cols*(l.RoomSize+1) + 1, l.Rows*(l.RoomSize+1) + 1
}

// GenerationParams drives Build. It is consumed once per reset.
type GenerationParams struct {
	Width      int            `json:"width" yaml:"width"`
	Height     int            `json:"height" yaml:"height"`
	Topology   TopologyKind   `json:"topology" yaml:"topology"`
	Order      string         `json:"order,omitempty" yaml:"order,omitempty"`
	TriColor   string         `json:"tri_color,omitempty" yaml:"tri_color,omitempty"`
	PlusColor  string         `json:"plus_color,omitempty" yaml:"plus_color,omitempty"`
	XColor     string         `json:"x_color,omitempty" yaml:"x_color,omitempty"`
	WallColor  string         `json:"wall_color,omitempty" yaml:"wall_color,omitempty"`
	// Background, when set, turns every cell left empty into Floor of that
	// colour once the agent has been placed.
	Background string         `json:"background,omitempty" yaml:"background,omitempty"`
	BarOffset  int            `json:"bar_offset,omitempty" yaml:"bar_offset,omitempty"`
	Hazards    bool           `json:"hazards,omitempty" yaml:"hazards,omitempty"`
	Goal       *Position      `json:"goal,omitempty" yaml:"goal,omitempty"`
	StartPose  *Pose          `json:"start_pose,omitempty" yaml:"start_pose,omitempty"`
	Lattice    *LatticeParams `json:"lattice,omitempty" yaml:"lattice,omitempty"`
}

// WithDefaults fills unset colours, order, bar offset and lattice dimensions.
func (p GenerationParams) WithDefaults() GenerationParams {
	if p.Order == "" {
		p.Order = DefaultOrder
	}
	if p.TriColor == "" {
		p.TriColor = "blue"
	}
	if p.PlusColor == "" {
		p.PlusColor = "red"
	}
	if p.XColor == "" {
		p.XColor = "yellow"
	}
	if p.WallColor == "" {
		p.WallColor = DefaultWallColor
	}
	if p.BarOffset == 0 {
		p.BarOffset = DefaultBarOffset
	}
	if p.Topology == TopologyLattice && p.Lattice != nil {
		l := *p.Lattice
		if l.MarkSeed == 0 {
			l.MarkSeed = 42
		}
		p.Lattice = &l
		if p.Width == 0 && p.Height == 0 {
			p.Width, p.Height = l.Dimensions()
		}
	}
	return p
}

// shapeKey binds an order character to a template and colour.
type shapeKey struct {
	template string
	color    func(p GenerationParams) string
}

// bar is an internal horizontal wall band.
type bar struct {
	rows   func(h int) []int
	length int
}

func (b bar) cells(p GenerationParams) (rows []int, col, length int) {
	return b.rows(p.Height), p.BarOffset / 2, b.length
}

// layout holds the literal geometry of one room topology.
type layout struct {
	style   TemplateStyle
	anchors func(w, h int) [4]Position
	keys    map[byte]shapeKey
	// lowerDeco is the row offset from h/3 of the lower decoration run;
	// zero disables decorations.
	lowerDeco  float64
	barBefore  *bar
	barAfter   *bar
	tPartition bool
	// earlyAgent samples the start before any shape is stamped, so the
	// agent may begin on a cell a shape later covers.
	earlyAgent bool
}

func third(k, n int, off float64) int {
	return int(float64(k*n)/3 + off)
}

func span(from, to int) []int {
	out := make([]int, 0, to-from)
	for i := from; i < to; i++ {
		out = append(out, i)
	}
	return out
}

func triKey() shapeKey {
	return shapeKey{ShapeTriangle, func(p GenerationParams) string { return p.TriColor }}
}

func xKey() shapeKey {
	return shapeKey{ShapeX, func(p GenerationParams) string { return p.XColor }}
}

func dashKey() shapeKey {
	return shapeKey{ShapeDash, func(p GenerationParams) string { return p.TriColor }}
}

func plusKey(template string) shapeKey {
	return shapeKey{template, func(p GenerationParams) string { return p.PlusColor }}
}

func donutAnchors(w, h int) [4]Position {
	return [4]Position{
		{X: third(1, w, -4), Y: third(1, h, -4)},
		{X: third(2, w, -1), Y: third(1, h, -1)},
		{X: third(1, w, -3), Y: third(2, h, -2)},
		{X: third(2, w, -2), Y: third(2, h, -2)},
	}
}

func donutKeys() map[byte]shapeKey {
	return map[byte]shapeKey{'T': triKey(), 'P': plusKey(ShapeDash), 'X': xKey(), 'D': dashKey()}
}

var layouts = map[TopologyKind]layout{
	TopologyPlain: {
		style: StyleOutline,
		anchors: func(w, h int) [4]Position {
			return [4]Position{
				{X: third(1, w, -4), Y: third(1, h, -4)},
				{X: third(2, w, -1), Y: third(1, h, -1)},
				{X: third(1, w, 0), Y: third(1, h, 0)},
				{X: third(2, w, -2), Y: third(2, h, -2)},
			}
		},
		keys:      map[byte]shapeKey{'T': triKey(), 'P': plusKey(ShapePlus), 'X': xKey(), 'D': dashKey()},
		lowerDeco: 4,
	},
	TopologyDonut: {
		style:     StyleOutline,
		anchors:   donutAnchors,
		keys:      donutKeys(),
		lowerDeco:  6,
		barBefore:  &bar{rows: func(h int) []int { return span(h/2-4, h/2+4) }, length: 8},
		earlyAgent: true,
	},
	TopologySquareDonut: {
		style:     StyleOutline,
		anchors:   donutAnchors,
		keys:      donutKeys(),
		lowerDeco:  6,
		barBefore:  &bar{rows: func(h int) []int { return span(h/2-3, h/2+4) }, length: 7},
		earlyAgent: true,
	},
	TopologyLavaDonut: {
		style:     StyleOutline,
		anchors:   donutAnchors,
		keys:      donutKeys(),
		lowerDeco: 6,
		barAfter:  &bar{rows: func(h int) []int { return []int{h/2 - 4, h/2 + 4} }, length: 8},
	},
	TopologyTRoom: {
		style: StyleSolid,
		anchors: func(w, h int) [4]Position {
			return [4]Position{
				{X: third(1, w, -4), Y: third(1, h, -4)},
				{X: third(2, w, -2), Y: third(1, h, -4)},
				{X: third(1, w, -3), Y: third(2, h, -2)},
				{X: third(2, w, -2), Y: third(2, h, -2)},
			}
		},
		keys:       map[byte]shapeKey{'T': triKey(), 'P': plusKey(ShapePlus), 'X': xKey(), 'D': dashKey()},
		tPartition: true,
	},
}

// tRoomDelimiters maps a T-room size to the thickness of its partition.
var tRoomDelimiters = map[int]int{16: 5, 18: 6, 20: 7}

// TRoomDelimiter returns the partition thickness for a room size.
func TRoomDelimiter(size int) int {
	if d, ok := tRoomDelimiters[size]; ok {
		return d
	}
	return 5
}

// Anchors returns the four canonical shape anchors for a room topology.
func Anchors(kind TopologyKind, width, height int) ([4]Position, error) {
	l, ok := layouts[kind]
	if !ok {
		return [4]Position{}, fmt.Errorf("%w: topology %q has no shape anchors", ErrInvalidParams, kind)
	}
	return l.anchors(width, height), nil
}

// BarCells returns the interior wall band cells of a donut topology.
func BarCells(p GenerationParams) []Position {
	p = p.WithDefaults()
	l := layouts[p.Topology]
	var out []Position
	for _, b := range []*bar{l.barBefore, l.barAfter} {
		if b == nil {
			continue
		}
		rows, col, length := b.cells(p)
		for _, y := range rows {
			for i := 0; i < length; i++ {
				out = append(out, Position{X: col + i, Y: y})
			}
		}
	}
	return out
}

// Validate checks that the params can host the requested topology.
func (p GenerationParams) Validate() error {
	if p.Width < MinGridSize || p.Width > MaxGridSize || p.Height < MinGridSize || p.Height > MaxGridSize {
		return fmt.Errorf("%w: grid must be between %d and %d cells per side, got %dx%d",
			ErrInvalidParams, MinGridSize, MaxGridSize, p.Width, p.Height)
	}
	if p.Goal != nil && !(p.Goal.X > 0 && p.Goal.X < p.Width-1 && p.Goal.Y > 0 && p.Goal.Y < p.Height-1) {
		return fmt.Errorf("%w: goal (%d,%d) is not inside the border", ErrInvalidParams, p.Goal.X, p.Goal.Y)
	}
	if p.Hazards && p.Topology != TopologyPlain {
		return fmt.Errorf("%w: corner hazards are only placed in plain rooms, not %q", ErrInvalidParams, p.Topology)
	}
	if p.Topology == TopologyLattice {
		return p.validateLattice()
	}
	l, ok := layouts[p.Topology]
	if !ok {
		return fmt.Errorf("%w: unknown topology %q", ErrInvalidParams, p.Topology)
	}
	if len(p.Order) > MaxOrderLen {
		return fmt.Errorf("%w: order %q longer than %d", ErrInvalidParams, p.Order, MaxOrderLen)
	}
	for i := 0; i < len(p.Order); i++ {
		if _, ok := l.keys[p.Order[i]]; !ok {
			return fmt.Errorf("%w: order %q has undefined shape key %q", ErrInvalidParams, p.Order, p.Order[i])
		}
	}
	for _, b := range []*bar{l.barBefore, l.barAfter} {
		if b == nil {
			continue
		}
		rows, col, length := b.cells(p)
		if rows[0] < 1 || rows[len(rows)-1] > p.Height-2 {
			return fmt.Errorf("%w: height %d too small for the %s wall band", ErrInvalidParams, p.Height, p.Topology)
		}
		if col < 1 || col+length > p.Width-1 {
			return fmt.Errorf("%w: width %d with bar offset %d cannot fit the %s wall band",
				ErrInvalidParams, p.Width, p.BarOffset, p.Topology)
		}
	}
	if l.tPartition {
		if p.Width != p.Height {
			return fmt.Errorf("%w: t_room must be square, got %dx%d", ErrInvalidParams, p.Width, p.Height)
		}
		if d := TRoomDelimiter(p.Width); p.Height < 2*d+2 {
			return fmt.Errorf("%w: t_room size %d too small for delimiter %d", ErrInvalidParams, p.Width, d)
		}
	}
	return nil
}

func (p GenerationParams) validateLattice() error {
	l := p.Lattice
	if l == nil {
		return fmt.Errorf("%w: lattice topology requires lattice params", ErrInvalidParams)
	}
	if l.RoomSize < 1 || l.Cols < 1 || l.Rows < 1 {
		return fmt.Errorf("%w: lattice needs positive room_size, cols and rows", ErrInvalidParams)
	}
	if w, h := l.Dimensions(); w != p.Width || h != p.Height {
		return fmt.Errorf("%w: lattice occupies %dx%d but grid is %dx%d", ErrInvalidParams, w, h, p.Width, p.Height)
	}
	if n := perimeterRooms(l.Cols, l.Rows); n > len(latticePatterns)*len(latticePalette) {
		return fmt.Errorf("%w: lattice has %d perimeter rooms, at most %d can be marked",
			ErrInvalidParams, n, len(latticePatterns)*len(latticePalette))
	}
	return nil
}

// Build generates the grid and initial pose described by params. Walls are
// drawn before shapes except where a topology lays partitions over them.
// Donut, square donut and lattice rooms seed the agent right after their
// walls; the others seed it once the room is complete.
func Build(params GenerationParams, rng RandomSource) (*Grid, Pose, error) {
	p := params.WithDefaults()
	if err := p.Validate(); err != nil {
		return nil, Pose{}, err
	}

	g := NewGrid(p.Width, p.Height)
	var pose Pose
	placeAgent := func(reject RejectFunc) error {
		putGoal(g, p)
		if p.StartPose != nil {
			pose = *p.StartPose
			return nil
		}
		var err error
		pose, err = SampleUnoccupied(g, rng, reject)
		return err
	}

	var err error
	if p.Topology == TopologyLattice {
		err = buildLattice(g, p, placeAgent)
	} else {
		err = buildRoom(g, p, layouts[p.Topology], placeAgent)
	}
	if err != nil {
		return nil, Pose{}, err
	}
	putGoal(g, p)

	if p.Background != "" {
		for y := 0; y < g.Height(); y++ {
			for x := 0; x < g.Width(); x++ {
				if c, _ := g.Get(x, y); c.Kind == Empty {
					g.Set(x, y, Cell{Kind: Floor, Color: p.Background})
				}
			}
		}
	}
	return g, pose, nil
}

func putGoal(g *Grid, p GenerationParams) {
	if p.Goal != nil {
		g.Set(p.Goal.X, p.Goal.Y, Cell{Kind: Goal})
	}
}

func buildRoom(g *Grid, p GenerationParams, l layout, placeAgent func(RejectFunc) error) error {
	w, h := p.Width, p.Height
	g.Border(p.WallColor)
	drawBar(g, p, l.barBefore)

	if l.earlyAgent {
		if err := placeAgent(nil); err != nil {
			return err
		}
	}

	placeShapes(g, p, l)

	if l.lowerDeco != 0 {
		deco, _ := LookupTemplate(StyleOutline, ShapePlus)
		for i := 0; i < 4; i++ {
			Stamp(g, deco, Position{X: third(1, w, float64(i-1)), Y: third(1, h, -5)}, p.XColor)
			Stamp(g, deco, Position{X: third(1, w, float64(i-3)), Y: third(1, h, l.lowerDeco)}, p.PlusColor)
		}
	}

	drawBar(g, p, l.barAfter)
	if l.tPartition {
		drawTPartition(g, w, h, p.WallColor)
	}

	if p.Hazards {
		g.Set(1, h-2, Cell{Kind: FakeLava})
		g.Set(w-2, 1, Cell{Kind: Lava})
	}

	if !l.earlyAgent {
		return placeAgent(nil)
	}
	return nil
}

// Placement records where one order key was stamped.
type Placement struct {
	Key      byte          `json:"key"`
	Template string        `json:"template"`
	Style    TemplateStyle `json:"style"`
	Anchor   Position      `json:"anchor"`
	Color    string        `json:"color"`
}

// PlaceShapes stamps only the ordered shapes of a room topology onto g and
// reports where each one went.
func PlaceShapes(g *Grid, params GenerationParams) ([]Placement, error) {
	p := params.WithDefaults()
	if err := p.Validate(); err != nil {
		return nil, err
	}
	l, ok := layouts[p.Topology]
	if !ok {
		return nil, fmt.Errorf("%w: topology %q has no shape order", ErrInvalidParams, p.Topology)
	}
	return placeShapes(g, p, l), nil
}

func placeShapes(g *Grid, p GenerationParams, l layout) []Placement {
	anchors := l.anchors(p.Width, p.Height)
	out := make([]Placement, 0, len(p.Order))
	for i := 0; i < len(p.Order); i++ {
		k := l.keys[p.Order[i]]
		t, _ := LookupTemplate(l.style, k.template)
		Stamp(g, t, anchors[i], k.color(p))
		out = append(out, Placement{Key: p.Order[i], Template: k.template, Style: l.style, Anchor: anchors[i], Color: k.color(p)})
	}
	return out
}

func drawBar(g *Grid, p GenerationParams, b *bar) {
	if b == nil {
		return
	}
	rows, col, length := b.cells(p)
	for _, y := range rows {
		g.HorzWall(col, y, length, p.WallColor)
	}
}

func drawTPartition(g *Grid, w, h int, color string) {
	d := TRoomDelimiter(w)
	for i := 0; i < d; i++ {
		g.VertWall(i, w/2, w/2, color)
		g.VertWall(h-2-i, w/2, w/2, color)
	}
	for j := 0; j < d/2+2; j++ {
		g.HorzWall(0, j, w-1, color)
	}
}

var latticePalette = []string{"red", "green", "blue", "purple", "yellow"}

func perimeterRooms(cols, rows int) int {
	if cols <= 2 || rows <= 2 {
		return cols * rows
	}
	return cols*rows - (cols-2)*(rows-2)
}

// buildLattice draws rooms and gates, seeds the agent inside the outer
// rooms, then adds marks and interior hazards.
func buildLattice(g *Grid, p GenerationParams, placeAgent func(RejectFunc) error) error {
	l := *p.Lattice
	w, h := p.Width, p.Height
	r := l.RoomSize
	half := (r + 1) / 2

	g.WallRect(0, 0, w, h, p.WallColor)
	for i := 0; i < l.Cols; i++ {
		for j := 0; j < l.Rows; j++ {
			g.WallRect(i*(r+1), j*(r+1), r+2, r+2, p.WallColor)
		}
	}

	gate := Cell{Kind: Gate, Color: p.WallColor}
	for i := 0; i < l.Cols-1; i++ {
		g.Set((i+1)*(r+1), h-half-1, gate)
		for j := 0; j < l.Rows-1; j++ {
			g.Set((i+1)*(r+1), (j+1)*(r+1)-half, gate)
			g.Set((i+1)*(r+1)-half, (j+1)*(r+1), gate)
		}
	}
	for j := 0; j < l.Rows-1; j++ {
		g.Set(w-half-1, (j+1)*(r+1), gate)
	}

	outer := func(_ *Grid, pos Position) bool {
		marked := pos.X <= r || pos.Y <= r || pos.X >= w-r-1 || pos.Y >= h-r-1
		return !marked
	}
	if err := placeAgent(outer); err != nil {
		return err
	}

	// Marks are fixed by MarkSeed so every episode of a preset shows the
	// same room identities.
	marks := rand.New(rand.NewSource(l.MarkSeed)).Perm(len(latticePatterns) * len(latticePalette))
	n := 0
	for i := 0; i < l.Cols; i++ {
		for j := 0; j < l.Rows; j++ {
			if !isPerimeterRoom(i, j, l) {
				continue
			}
			m := marks[n]
			n++
			t, _ := LookupTemplate(StylePattern, latticePatterns[m/len(latticePalette)])
			Stamp(g, t.Crop(r), Position{X: i*(r+1) + 1, Y: j*(r+1) + 1}, latticePalette[m%len(latticePalette)])
		}
	}

	if l.Rows < 5 {
		goalPut := false
		for i := 0; i < l.Cols; i++ {
			for j := 0; j < l.Rows; j++ {
				if isPerimeterRoom(i, j, l) {
					continue
				}
				c := Cell{Kind: Lava}
				if !goalPut {
					c = Cell{Kind: FakeLava}
					goalPut = true
				}
				g.Set(i*(r+1)+half, j*(r+1)+half, c)
			}
		}
	}

	return nil
}

func isPerimeterRoom(i, j int, l LatticeParams) bool {
	return i == 0 || i == l.Cols-1 || j == 0 || j == l.Rows-1
}

// DescribeOrder explains which template and colour each order key places.
func DescribeOrder(p GenerationParams) (string, error) {
	p = p.WithDefaults()
	l, ok := layouts[p.Topology]
	if !ok {
		return "", fmt.Errorf("%w: topology %q has no shape order", ErrInvalidParams, p.Topology)
	}
	parts := make([]string, 0, len(p.Order))
	for i := 0; i < len(p.Order); i++ {
		k, ok := l.keys[p.Order[i]]
		if !ok {
			return "", fmt.Errorf("%w: undefined shape key %q", ErrInvalidParams, p.Order[i])
		}
		parts = append(parts, fmt.Sprintf("%c=%s/%s", p.Order[i], k.template, k.color(p)))
	}
	return strings.Join(parts, " "), nil
}

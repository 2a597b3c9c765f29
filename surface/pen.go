package surface

// Pen is the stroke buffer: the points of the path being drawn. It only
// holds points while the pointer is down.
type Pen struct {
	active bool
	path   []Point
}

// Down begins a new path at p, discarding any unfinished one.
func (p *Pen) Down(pt Point) {
	p.active = true
	p.path = []Point{pt}
}

// Move extends the active path and returns the point the new segment starts
// from. Moves while the pen is up are ignored.
func (p *Pen) Move(pt Point) (Point, bool) {
	if !p.active {
		return Point{}, false
	}
	from := p.path[len(p.path)-1]
	p.path = append(p.path, pt)
	return from, true
}

// Up closes the path and hands its points over.
func (p *Pen) Up() ([]Point, bool) {
	if !p.active {
		return nil, false
	}
	path := p.path
	p.active = false
	p.path = nil
	return path, true
}

func (p *Pen) Active() bool {
	return p.active
}

// Reset drops the current path without reporting it.
func (p *Pen) Reset() {
	p.active = false
	p.path = nil
}

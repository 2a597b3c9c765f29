package strokes

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
)

// limits guard against allocating for garbage counts
const (
	maxSide    = 1 << 14
	pointBytes = 8
	strokeHead = 12
)

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (r *Recording) UnmarshalBinary(data []byte) error {
	rd := reader{bytes.NewReader(data)}
	if err := rd.checkHeader(); err != nil {
		return err
	}

	side, err := rd.readNumber()
	if err != nil {
		return err
	}
	if side == 0 || side > maxSide {
		return fmt.Errorf("invalid canvas side %d", side)
	}

	nbStrokes, err := rd.readNumber()
	if err != nil {
		return err
	}
	if int64(nbStrokes)*strokeHead > int64(rd.Len()) {
		return fmt.Errorf("truncated recording: %d strokes announced", nbStrokes)
	}

	r.Side = int(side)
	r.Strokes = make([]Stroke, nbStrokes)
	for i := range r.Strokes {
		s, err := rd.readStroke()
		if err != nil {
			return fmt.Errorf("stroke %d: %w", i, err)
		}
		r.Strokes[i] = s
	}

	if rd.Len() != 0 {
		return fmt.Errorf("%d trailing bytes", rd.Len())
	}
	return nil
}

type reader struct {
	*bytes.Reader
}

func (r reader) checkHeader() error {
	buf := make([]byte, HeaderLen)
	n, err := r.Read(buf)
	if err != nil || n != HeaderLen {
		return fmt.Errorf("Wrong header size")
	}
	if string(buf) != HeaderV1 {
		return fmt.Errorf("Unknown header")
	}
	return nil
}

func (r reader) readNumber() (uint32, error) {
	var nb uint32
	if err := binary.Read(r, binary.LittleEndian, &nb); err != nil {
		return 0, fmt.Errorf("Wrong number read")
	}
	return nb, nil
}

func (r reader) readStroke() (Stroke, error) {
	var s Stroke

	if err := binary.Read(r, binary.LittleEndian, &s.Width); err != nil {
		return s, fmt.Errorf("Failed to read stroke")
	}
	if err := binary.Read(r, binary.LittleEndian, &s.Color); err != nil {
		return s, fmt.Errorf("Failed to read stroke")
	}
	nbPoints, err := r.readNumber()
	if err != nil {
		return s, err
	}
	if int64(nbPoints)*pointBytes > int64(r.Len()) {
		return s, fmt.Errorf("truncated stroke: %d points announced", nbPoints)
	}

	s.Points = make([]Point, nbPoints)
	if err := binary.Read(r, binary.LittleEndian, s.Points); err != nil {
		return s, fmt.Errorf("Failed to read points")
	}

	if !(s.Width > 0) || isInf(s.Width) {
		return s, fmt.Errorf("invalid stroke width %v", s.Width)
	}
	for i, p := range s.Points {
		if !finite(p.X) || !finite(p.Y) {
			return s, fmt.Errorf("invalid point %d (%v, %v)", i, p.X, p.Y)
		}
	}
	return s, nil
}

func isInf(f float32) bool {
	return math.IsInf(float64(f), 0)
}

func finite(f float32) bool {
	return f == f && !isInf(f)
}

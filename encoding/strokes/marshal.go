package strokes

import (
	"bytes"
	"encoding/binary"
)

// MarshalBinary implements encoding.BinaryMarshaler.
func (r *Recording) MarshalBinary() ([]byte, error) {
	w := new(writer)

	w.writeHeader()
	w.writeNumber(r.Side)
	w.writeNumber(len(r.Strokes))
	for _, s := range r.Strokes {
		w.writeStroke(s)
	}

	return w.Bytes(), nil
}

type writer struct {
	b bytes.Buffer
}

func (w *writer) Bytes() []byte {
	return w.b.Bytes()
}

func (w *writer) writeHeader() {
	w.b.WriteString(HeaderV1)
}

func (w *writer) writeNumber(n int) {
	binary.Write(&w.b, binary.LittleEndian, uint32(n))
}

func (w *writer) writeFloat32(f float32) {
	binary.Write(&w.b, binary.LittleEndian, f)
}

func (w *writer) writeStroke(s Stroke) {
	w.writeFloat32(s.Width)
	binary.Write(&w.b, binary.LittleEndian, s.Color)
	w.writeNumber(len(s.Points))
	for _, p := range s.Points {
		w.writeFloat32(p.X)
		w.writeFloat32(p.Y)
	}
}

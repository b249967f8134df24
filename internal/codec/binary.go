package codec

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/junsooki/laserview/internal/dac"
)

const (
	// HeaderLen is the size of the point count prefix.
	HeaderLen = 4
	// PointLen is the encoded size of one sample: x, y, r, g, b.
	PointLen = 10
	// DefaultMaxPoints bounds decode memory use.
	DefaultMaxPoints = 65536
)

var (
	ErrShortFrame    = errors.New("codec: short frame")
	ErrPointCount    = errors.New("codec: point count does not match payload")
	ErrTooManyPoints = errors.New("codec: too many points")
)

// Binary is the big-endian frame codec:
//
//	u32 count | count × (i16 x, i16 y, u16 r, u16 g, u16 b)
type Binary struct {
	MaxPoints int
}

// NewBinary returns a codec limited to DefaultMaxPoints per frame.
func NewBinary() *Binary {
	return &Binary{MaxPoints: DefaultMaxPoints}
}

func (c *Binary) limit() int {
	if c.MaxPoints <= 0 {
		return DefaultMaxPoints
	}
	return c.MaxPoints
}

func (c *Binary) Encode(frame dac.Frame) ([]byte, error) {
	if len(frame) > c.limit() {
		return nil, fmt.Errorf("%w: %d > %d", ErrTooManyPoints, len(frame), c.limit())
	}
	buf := make([]byte, HeaderLen+len(frame)*PointLen)
	binary.BigEndian.PutUint32(buf[0:4], uint32(len(frame)))
	off := HeaderLen
	for _, s := range frame {
		binary.BigEndian.PutUint16(buf[off:off+2], uint16(s.X))
		binary.BigEndian.PutUint16(buf[off+2:off+4], uint16(s.Y))
		binary.BigEndian.PutUint16(buf[off+4:off+6], s.R)
		binary.BigEndian.PutUint16(buf[off+6:off+8], s.G)
		binary.BigEndian.PutUint16(buf[off+8:off+10], s.B)
		off += PointLen
	}
	return buf, nil
}

func (c *Binary) Decode(data []byte) (dac.Frame, error) {
	if len(data) < HeaderLen {
		return nil, ErrShortFrame
	}
	count := binary.BigEndian.Uint32(data[0:4])
	if uint64(count) > uint64(c.limit()) {
		return nil, fmt.Errorf("%w: %d > %d", ErrTooManyPoints, count, c.limit())
	}
	body := data[HeaderLen:]
	if len(body) != int(count)*PointLen {
		return nil, fmt.Errorf("%w: count=%d payload=%d", ErrPointCount, count, len(body))
	}
	frame := make(dac.Frame, count)
	for i := range frame {
		p := body[i*PointLen : (i+1)*PointLen]
		frame[i] = dac.Sample{
			X: int16(binary.BigEndian.Uint16(p[0:2])),
			Y: int16(binary.BigEndian.Uint16(p[2:4])),
			R: binary.BigEndian.Uint16(p[4:6]),
			G: binary.BigEndian.Uint16(p[6:8]),
			B: binary.BigEndian.Uint16(p[8:10]),
		}
	}
	return frame, nil
}

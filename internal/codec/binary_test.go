package codec

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/junsooki/laserview/internal/dac"
)

func TestBinaryRoundTripKeepsOrderAndExtremes(t *testing.T) {
	in := dac.Frame{
		{X: 32767, Y: -32768, R: 65535, G: 0, B: 32768},
		{X: -1, Y: 1, R: 1, G: 2, B: 3},
	}
	c := NewBinary()
	data, err := c.Encode(in)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if len(data) != HeaderLen+2*PointLen {
		t.Fatalf("encoded length: got=%d", len(data))
	}
	out, err := c.Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out) != len(in) {
		t.Fatalf("point count: got=%d want=%d", len(out), len(in))
	}
	for i := range in {
		if out[i] != in[i] {
			t.Fatalf("point %d: got=%+v want=%+v", i, out[i], in[i])
		}
	}
}

func TestBinaryEmptyFrameIsValid(t *testing.T) {
	c := NewBinary()
	data, err := c.Encode(dac.Frame{})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	out, err := c.Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out) != 0 {
		t.Fatalf("expected empty frame, got %d points", len(out))
	}
}

func TestBinaryDecodeRejectsMalformed(t *testing.T) {
	c := &Binary{MaxPoints: 4}

	header := func(count uint32, extra int) []byte {
		b := make([]byte, HeaderLen+extra)
		binary.BigEndian.PutUint32(b, count)
		return b
	}

	cases := []struct {
		name string
		data []byte
		want error
	}{
		{"short header", []byte{0, 1}, ErrShortFrame},
		{"missing points", header(2, PointLen), ErrPointCount},
		{"trailing bytes", header(1, PointLen+1), ErrPointCount},
		{"over limit", header(5, 5*PointLen), ErrTooManyPoints},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := c.Decode(tc.data); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestBinaryEncodeRejectsOverLimit(t *testing.T) {
	c := &Binary{MaxPoints: 1}
	if _, err := c.Encode(make(dac.Frame, 2)); !errors.Is(err, ErrTooManyPoints) {
		t.Fatalf("expected ErrTooManyPoints, got %v", err)
	}
}

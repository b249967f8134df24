package codec

import "github.com/junsooki/laserview/internal/dac"

// Encoder serialises a frame into one wire message.
type Encoder interface {
	Encode(frame dac.Frame) ([]byte, error)
}

// Decoder parses one wire message into a frame.
type Decoder interface {
	Decode(data []byte) (dac.Frame, error)
}

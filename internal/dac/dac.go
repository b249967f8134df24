// Package dac holds the point data produced by a laser DAC stream.
package dac

// Sample is one positioned, coloured point of a frame.
// Position uses the full int16 range, colour the full uint16 range.
type Sample struct {
	X int16
	Y int16
	R uint16
	G uint16
	B uint16
}

// Frame is one complete sweep. Sample order defines the drawn path.
//
// A Frame MUST NOT be modified once it has been handed to another
// component; it is shared by reference between goroutines.
type Frame []Sample

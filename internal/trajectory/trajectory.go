// Package trajectory provides a minimal in-memory model of a particle
// trajectory plus readers for the file formats the simulation engine
// produces: GSD and the legacy DCD/HOOMD-XML combination.
package trajectory

import (
	"fmt"
	"math"
)

// Frame is one snapshot of particle positions inside an orthorhombic box.
type Frame struct {
	Positions [][3]float64
	Box       [3]float64
}

// Trajectory is an ordered sequence of frames over a fixed set of
// particles. TypeIDs indexes into TypeNames for each particle.
type Trajectory struct {
	Frames    []Frame
	TypeNames []string
	TypeIDs   []int
}

// NFrames returns the number of frames.
func (t *Trajectory) NFrames() int { return len(t.Frames) }

// NParticles returns the number of particles per frame.
func (t *Trajectory) NParticles() int { return len(t.TypeIDs) }

// Select returns the indices of all particles with the given type name.
func (t *Trajectory) Select(typeName string) []int {
	typeID := -1
	for i, name := range t.TypeNames {
		if name == typeName {
			typeID = i
			break
		}
	}
	var idx []int
	for i, id := range t.TypeIDs {
		if id == typeID {
			idx = append(idx, i)
		}
	}
	return idx
}

// Validate checks frame/particle consistency.
func (t *Trajectory) Validate() error {
	n := t.NParticles()
	for i, f := range t.Frames {
		if len(f.Positions) != n {
			return fmt.Errorf("frame %d: %d positions for %d particles", i, len(f.Positions), n)
		}
	}
	return nil
}

// Distance returns the minimum-image distance between two positions in an
// orthorhombic box.
func Distance(box [3]float64, a, b [3]float64) float64 {
	var sum float64
	for k := 0; k < 3; k++ {
		d := a[k] - b[k]
		if box[k] > 0 {
			d -= box[k] * math.Round(d/box[k])
		}
		sum += d * d
	}
	return math.Sqrt(sum)
}

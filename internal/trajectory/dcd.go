package trajectory

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
)

// ReadDCD reads a legacy DCD trajectory. DCD carries no type information,
// so the caller supplies a topology (type names and per-particle ids),
// typically parsed from a HOOMD XML file.
func ReadDCD(path string, typeNames []string, typeIDs []int) (*Trajectory, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	r := bufio.NewReader(f)

	// Header record: "CORD" followed by 20 control ints.
	hdr, err := readRecord(r)
	if err != nil {
		return nil, fmt.Errorf("dcd %s: header: %w", path, err)
	}
	if len(hdr) != 84 || string(hdr[:4]) != "CORD" {
		return nil, fmt.Errorf("dcd %s: not a DCD file", path)
	}
	icntrl := make([]int32, 20)
	for i := range icntrl {
		icntrl[i] = int32(binary.LittleEndian.Uint32(hdr[4+4*i:]))
	}
	hasUnitCell := icntrl[10] != 0

	// Title record, ignored.
	if _, err := readRecord(r); err != nil {
		return nil, fmt.Errorf("dcd %s: titles: %w", path, err)
	}

	// Atom-count record.
	rec, err := readRecord(r)
	if err != nil || len(rec) != 4 {
		return nil, fmt.Errorf("dcd %s: atom count: %w", path, err)
	}
	nAtoms := int(binary.LittleEndian.Uint32(rec))
	if len(typeIDs) != 0 && len(typeIDs) != nAtoms {
		return nil, fmt.Errorf("dcd %s: topology has %d particles, trajectory has %d", path, len(typeIDs), nAtoms)
	}

	traj := &Trajectory{TypeNames: typeNames, TypeIDs: typeIDs}
	for {
		var box [3]float64
		if hasUnitCell {
			cell, err := readRecord(r)
			if err == io.EOF {
				break
			}
			if err != nil || len(cell) != 48 {
				return nil, fmt.Errorf("dcd %s: unit cell: %w", path, err)
			}
			// XTLABC layout: A, gamma, B, beta, alpha, C.
			box[0] = math.Float64frombits(binary.LittleEndian.Uint64(cell[0:]))
			box[1] = math.Float64frombits(binary.LittleEndian.Uint64(cell[16:]))
			box[2] = math.Float64frombits(binary.LittleEndian.Uint64(cell[40:]))
		}

		var coords [3][]float64
		done := false
		for k := 0; k < 3; k++ {
			rec, err := readRecord(r)
			if err == io.EOF && k == 0 && !hasUnitCell {
				done = true
				break
			}
			if err != nil || len(rec) != 4*nAtoms {
				return nil, fmt.Errorf("dcd %s: coordinate block: %w", path, err)
			}
			coords[k] = make([]float64, nAtoms)
			for i := 0; i < nAtoms; i++ {
				bits := binary.LittleEndian.Uint32(rec[4*i:])
				coords[k][i] = float64(math.Float32frombits(bits))
			}
		}
		if done {
			break
		}

		frame := Frame{Positions: make([][3]float64, nAtoms), Box: box}
		for i := 0; i < nAtoms; i++ {
			frame.Positions[i] = [3]float64{coords[0][i], coords[1][i], coords[2][i]}
		}
		traj.Frames = append(traj.Frames, frame)
	}

	if traj.NFrames() == 0 {
		return nil, fmt.Errorf("dcd %s: no frames", path)
	}
	if traj.TypeIDs == nil {
		traj.TypeIDs = make([]int, nAtoms)
	}
	if traj.TypeNames == nil {
		traj.TypeNames = []string{"A"}
	}
	return traj, traj.Validate()
}

// readRecord reads one Fortran unformatted record: a 4-byte length, the
// payload, and the trailing length marker which must match.
func readRecord(r io.Reader) ([]byte, error) {
	var head [4]byte
	if _, err := io.ReadFull(r, head[:]); err != nil {
		return nil, err
	}
	n := binary.LittleEndian.Uint32(head[:])
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	var tail [4]byte
	if _, err := io.ReadFull(r, tail[:]); err != nil {
		return nil, err
	}
	if binary.LittleEndian.Uint32(tail[:]) != n {
		return nil, fmt.Errorf("record length markers disagree (%d)", n)
	}
	return buf, nil
}

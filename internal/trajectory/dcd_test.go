package trajectory

import (
	"bytes"
	"encoding/binary"
	"math"
	"testing"
)

func writeRecord(buf *bytes.Buffer, payload []byte) {
	var mark [4]byte
	binary.LittleEndian.PutUint32(mark[:], uint32(len(payload)))
	buf.Write(mark[:])
	buf.Write(payload)
	buf.Write(mark[:])
}

func dcdUnitCell(lx, ly, lz float64) []byte {
	cell := make([]byte, 48)
	binary.LittleEndian.PutUint64(cell[0:], math.Float64bits(lx))
	binary.LittleEndian.PutUint64(cell[16:], math.Float64bits(ly))
	binary.LittleEndian.PutUint64(cell[40:], math.Float64bits(lz))
	return cell
}

func buildTestDCD(frames [][][3]float32) []byte {
	var buf bytes.Buffer

	hdr := make([]byte, 84)
	copy(hdr, "CORD")
	binary.LittleEndian.PutUint32(hdr[4:], uint32(len(frames)))
	binary.LittleEndian.PutUint32(hdr[4+4*10:], 1) // unit cell present
	writeRecord(&buf, hdr)

	title := make([]byte, 4+80)
	binary.LittleEndian.PutUint32(title, 1)
	writeRecord(&buf, title)

	nAtoms := len(frames[0])
	atoms := make([]byte, 4)
	binary.LittleEndian.PutUint32(atoms, uint32(nAtoms))
	writeRecord(&buf, atoms)

	for _, frame := range frames {
		writeRecord(&buf, dcdUnitCell(10, 10, 10))
		for k := 0; k < 3; k++ {
			block := make([]byte, 4*nAtoms)
			for i, p := range frame {
				binary.LittleEndian.PutUint32(block[4*i:], math.Float32bits(p[k]))
			}
			writeRecord(&buf, block)
		}
	}
	return buf.Bytes()
}

func TestReadDCD(t *testing.T) {
	frames := [][][3]float32{
		{{0, 0, 0}, {1, 0, 0}},
		{{0, 0, 0}, {0, 2, 0}},
	}
	path := writeFile(t, "query.dcd", buildTestDCD(frames))

	traj, err := ReadDCD(path, []string{"A", "B"}, []int{0, 1})
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if traj.NFrames() != 2 {
		t.Fatalf("expected 2 frames, got %d", traj.NFrames())
	}
	if traj.NParticles() != 2 {
		t.Fatalf("expected 2 particles, got %d", traj.NParticles())
	}
	if traj.Frames[0].Box != [3]float64{10, 10, 10} {
		t.Errorf("unexpected box %v", traj.Frames[0].Box)
	}
	if traj.Frames[1].Positions[1][1] != 2 {
		t.Errorf("unexpected frame 1 position %v", traj.Frames[1].Positions[1])
	}
	if traj.TypeNames[1] != "B" || traj.TypeIDs[1] != 1 {
		t.Errorf("topology not carried through: %v %v", traj.TypeNames, traj.TypeIDs)
	}
}

func TestReadDCDTopologyMismatch(t *testing.T) {
	frames := [][][3]float32{{{0, 0, 0}, {1, 0, 0}}}
	path := writeFile(t, "query.dcd", buildTestDCD(frames))

	if _, err := ReadDCD(path, []string{"A"}, []int{0, 0, 0}); err == nil {
		t.Error("expected error for particle count mismatch")
	}
}

func TestReadDCDNotADCD(t *testing.T) {
	var buf bytes.Buffer
	writeRecord(&buf, []byte("WORD"))
	path := writeFile(t, "bad.dcd", buf.Bytes())

	if _, err := ReadDCD(path, nil, nil); err == nil {
		t.Error("expected error for non-DCD record")
	}
}

func TestReadDCDBadRecordMarkers(t *testing.T) {
	data := buildTestDCD([][][3]float32{{{0, 0, 0}}})
	// Corrupt the trailing length marker of the header record.
	binary.LittleEndian.PutUint32(data[88:], 99)
	path := writeFile(t, "bad.dcd", data)

	if _, err := ReadDCD(path, nil, nil); err == nil {
		t.Error("expected error for mismatched record markers")
	}
}

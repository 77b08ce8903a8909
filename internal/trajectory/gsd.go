package trajectory

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
)

// GSD v2 on-disk layout constants.
const (
	gsdHeaderSize     = 256
	gsdIndexEntrySize = 32
	gsdNameEntrySize  = 64
)

// GSD data chunk type codes.
const (
	gsdTypeUint8  = 1
	gsdTypeUint32 = 3
	gsdTypeInt8   = 5
	gsdTypeFloat  = 9
	gsdTypeDouble = 10
)

type gsdHeader struct {
	Magic                    uint64
	IndexLocation            uint64
	IndexAllocatedEntries    uint64
	NamelistLocation         uint64
	NamelistAllocatedEntries uint64
	SchemaVersion            uint32
	GSDVersion               uint32
}

type gsdIndexEntry struct {
	Frame    uint64
	N        uint64
	Location int64
	M        uint32
	ID       uint16
	Type     uint8
	Flags    uint8
}

// ReadGSD reads a HOOMD-schema GSD trajectory. Frames that omit a chunk
// inherit it from frame 0, following the GSD convention.
func ReadGSD(path string) (*Trajectory, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var head [gsdHeaderSize]byte
	if _, err := io.ReadFull(f, head[:]); err != nil {
		return nil, fmt.Errorf("gsd %s: short header: %w", path, err)
	}
	h := gsdHeader{
		Magic:                    binary.LittleEndian.Uint64(head[0:]),
		IndexLocation:            binary.LittleEndian.Uint64(head[8:]),
		IndexAllocatedEntries:    binary.LittleEndian.Uint64(head[16:]),
		NamelistLocation:         binary.LittleEndian.Uint64(head[24:]),
		NamelistAllocatedEntries: binary.LittleEndian.Uint64(head[32:]),
		SchemaVersion:            binary.LittleEndian.Uint32(head[40:]),
		GSDVersion:               binary.LittleEndian.Uint32(head[44:]),
	}
	if h.Magic != gsdMagic {
		return nil, fmt.Errorf("gsd %s: bad magic", path)
	}

	names, err := readGSDNames(f, h)
	if err != nil {
		return nil, err
	}
	entries, err := readGSDIndex(f, h)
	if err != nil {
		return nil, err
	}

	nFrames := uint64(0)
	for _, e := range entries {
		if e.Frame+1 > nFrames {
			nFrames = e.Frame + 1
		}
	}
	if nFrames == 0 {
		return nil, fmt.Errorf("gsd %s: no frames", path)
	}

	var find func(frame uint64, name string) *gsdIndexEntry
	find = func(frame uint64, name string) *gsdIndexEntry {
		for i := range entries {
			if entries[i].Frame == frame && names[entries[i].ID] == name {
				return &entries[i]
			}
		}
		// Chunks absent from a frame fall back to frame 0.
		if frame != 0 {
			return find(0, name)
		}
		return nil
	}

	traj := &Trajectory{}

	if e := find(0, "particles/types"); e != nil {
		raw, err := readGSDChunk(f, e)
		if err != nil {
			return nil, err
		}
		traj.TypeNames = decodeTypeNames(raw, int(e.N), int(e.M))
	}
	if e := find(0, "particles/typeid"); e != nil {
		raw, err := readGSDChunk(f, e)
		if err != nil {
			return nil, err
		}
		traj.TypeIDs = make([]int, e.N)
		for i := range traj.TypeIDs {
			traj.TypeIDs[i] = int(binary.LittleEndian.Uint32(raw[4*i:]))
		}
	}

	for frame := uint64(0); frame < nFrames; frame++ {
		pos := find(frame, "particles/position")
		if pos == nil {
			return nil, fmt.Errorf("gsd %s: frame %d: missing particles/position", path, frame)
		}
		rawPos, err := readGSDChunk(f, pos)
		if err != nil {
			return nil, err
		}
		fr := Frame{Positions: make([][3]float64, pos.N)}
		for i := uint64(0); i < pos.N; i++ {
			for k := 0; k < 3; k++ {
				bits := binary.LittleEndian.Uint32(rawPos[4*(3*i+uint64(k)):])
				fr.Positions[i][k] = float64(math.Float32frombits(bits))
			}
		}
		if box := find(frame, "configuration/box"); box != nil {
			rawBox, err := readGSDChunk(f, box)
			if err != nil {
				return nil, err
			}
			for k := 0; k < 3; k++ {
				bits := binary.LittleEndian.Uint32(rawBox[4*k:])
				fr.Box[k] = float64(math.Float32frombits(bits))
			}
		}
		traj.Frames = append(traj.Frames, fr)
	}

	if traj.TypeIDs == nil && traj.NFrames() > 0 {
		traj.TypeIDs = make([]int, len(traj.Frames[0].Positions))
	}
	if traj.TypeNames == nil {
		traj.TypeNames = []string{"A"}
	}
	return traj, traj.Validate()
}

func readGSDNames(f *os.File, h gsdHeader) ([]string, error) {
	buf := make([]byte, h.NamelistAllocatedEntries*gsdNameEntrySize)
	if _, err := f.ReadAt(buf, int64(h.NamelistLocation)); err != nil {
		return nil, fmt.Errorf("gsd namelist: %w", err)
	}
	names := make([]string, 0, h.NamelistAllocatedEntries)
	for i := uint64(0); i < h.NamelistAllocatedEntries; i++ {
		entry := buf[i*gsdNameEntrySize : (i+1)*gsdNameEntrySize]
		end := 0
		for end < len(entry) && entry[end] != 0 {
			end++
		}
		names = append(names, string(entry[:end]))
	}
	return names, nil
}

func readGSDIndex(f *os.File, h gsdHeader) ([]gsdIndexEntry, error) {
	buf := make([]byte, h.IndexAllocatedEntries*gsdIndexEntrySize)
	if _, err := f.ReadAt(buf, int64(h.IndexLocation)); err != nil {
		return nil, fmt.Errorf("gsd index: %w", err)
	}
	var entries []gsdIndexEntry
	for i := uint64(0); i < h.IndexAllocatedEntries; i++ {
		b := buf[i*gsdIndexEntrySize:]
		e := gsdIndexEntry{
			Frame:    binary.LittleEndian.Uint64(b[0:]),
			N:        binary.LittleEndian.Uint64(b[8:]),
			Location: int64(binary.LittleEndian.Uint64(b[16:])),
			M:        binary.LittleEndian.Uint32(b[24:]),
			ID:       binary.LittleEndian.Uint16(b[28:]),
			Type:     b[30],
			Flags:    b[31],
		}
		// Unused index slots have a zero location.
		if e.Location == 0 {
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func readGSDChunk(f *os.File, e *gsdIndexEntry) ([]byte, error) {
	size := e.N * uint64(e.M) * uint64(gsdTypeSize(e.Type))
	buf := make([]byte, size)
	if _, err := f.ReadAt(buf, e.Location); err != nil {
		return nil, fmt.Errorf("gsd chunk at %d: %w", e.Location, err)
	}
	return buf, nil
}

func gsdTypeSize(t uint8) int {
	switch t {
	case gsdTypeUint8, gsdTypeInt8:
		return 1
	case gsdTypeUint32, gsdTypeFloat:
		return 4
	case gsdTypeDouble:
		return 8
	case 2, 6: // 16-bit ints
		return 2
	case 4, 8: // 64-bit ints
		return 8
	}
	return 1
}

// decodeTypeNames unpacks the N x M int8 matrix of NUL-padded type names.
func decodeTypeNames(raw []byte, n, m int) []string {
	names := make([]string, 0, n)
	for i := 0; i < n; i++ {
		row := raw[i*m : (i+1)*m]
		end := 0
		for end < len(row) && row[end] != 0 {
			end++
		}
		names = append(names, string(row[:end]))
	}
	return names
}

package trajectory

import (
	"encoding/binary"
	"io"
	"os"
)

// Format classifies a trajectory file.
type Format int

const (
	FormatUnrecognized Format = iota
	FormatGSD
	FormatDCD
)

func (f Format) String() string {
	switch f {
	case FormatGSD:
		return "gsd"
	case FormatDCD:
		return "dcd"
	}
	return "unrecognized"
}

// gsdMagic is the first 8 bytes of every GSD file.
const gsdMagic uint64 = 0x65DF65DF65DF65DF

// Probe classifies a trajectory file by its magic bytes. It reads at most
// the first 8 bytes and never falls back on guessing from the extension.
func Probe(path string) (Format, error) {
	f, err := os.Open(path)
	if err != nil {
		return FormatUnrecognized, err
	}
	defer f.Close()

	var head [8]byte
	if _, err := io.ReadFull(f, head[:]); err != nil {
		return FormatUnrecognized, err
	}
	if binary.LittleEndian.Uint64(head[:]) == gsdMagic {
		return FormatGSD, nil
	}
	// DCD: a Fortran record marker of 84 followed by "CORD".
	if binary.LittleEndian.Uint32(head[:4]) == 84 && string(head[4:8]) == "CORD" {
		return FormatDCD, nil
	}
	return FormatUnrecognized, nil
}

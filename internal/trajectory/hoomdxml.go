package trajectory

import (
	"encoding/xml"
	"fmt"
	"os"
	"strconv"
	"strings"
)

type hoomdXML struct {
	XMLName       xml.Name `xml:"hoomd_xml"`
	Configuration struct {
		Box struct {
			Lx float64 `xml:"lx,attr"`
			Ly float64 `xml:"ly,attr"`
			Lz float64 `xml:"lz,attr"`
		} `xml:"box"`
		Position string `xml:"position"`
		Type     string `xml:"type"`
	} `xml:"configuration"`
}

// Topology is the particle-type information parsed from a HOOMD XML file,
// needed to interpret a DCD trajectory.
type Topology struct {
	TypeNames []string
	TypeIDs   []int
	Box       [3]float64
}

// ReadHOOMDXML parses a legacy HOOMD XML topology file.
func ReadHOOMDXML(path string) (*Topology, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc hoomdXML
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("hoomdxml %s: %w", path, err)
	}

	top := &Topology{
		Box: [3]float64{doc.Configuration.Box.Lx, doc.Configuration.Box.Ly, doc.Configuration.Box.Lz},
	}
	seen := make(map[string]int)
	for _, name := range strings.Fields(doc.Configuration.Type) {
		id, ok := seen[name]
		if !ok {
			id = len(top.TypeNames)
			seen[name] = id
			top.TypeNames = append(top.TypeNames, name)
		}
		top.TypeIDs = append(top.TypeIDs, id)
	}
	if len(top.TypeIDs) == 0 {
		return nil, fmt.Errorf("hoomdxml %s: no particle types", path)
	}

	// Sanity check: positions, when present, must agree with the type count.
	if fields := strings.Fields(doc.Configuration.Position); len(fields) > 0 {
		if len(fields)%3 != 0 {
			return nil, fmt.Errorf("hoomdxml %s: position count %d not divisible by 3", path, len(fields))
		}
		if n := len(fields) / 3; n != len(top.TypeIDs) {
			return nil, fmt.Errorf("hoomdxml %s: %d positions for %d types", path, n, len(top.TypeIDs))
		}
		for _, field := range fields {
			if _, err := strconv.ParseFloat(field, 64); err != nil {
				return nil, fmt.Errorf("hoomdxml %s: %w", path, err)
			}
		}
	}
	return top, nil
}

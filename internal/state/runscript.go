package state

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/jennyfothergill/msibi/internal/trajectory"
)

// TablePotential names one tabulated pair potential registered with the
// engine: the two particle types and the table file the engine reads.
type TablePotential struct {
	Type1 string
	Type2 string
	File  string
}

// DefaultRunscriptTemplate is the file read verbatim from the state
// directory and appended after the generated header.
const DefaultRunscriptTemplate = "hoomd_run_template.py"

// RunscriptName is the generated engine input script per state directory.
const RunscriptName = "run.py"

// hoomdHeader initializes the engine, restarts from the query trajectory
// with the format-appropriate call, and registers one tabulated potential
// per pair. The header always precedes the user-supplied body.
var hoomdHeader = template.Must(template.New("hoomd").Parse(`
import hoomd
import hoomd.md
from hoomd.init import read_gsd

hoomd.context.initialize("")
{{if .GSD -}}
system = read_gsd("{{.Restart}}", frame=-1, time_step=0)
{{- else -}}
from hoomd.deprecated.init import read_xml
system = read_xml(filename="{{.Restart}}", wrap_coordinates=True)
{{- end}}
T_final = {{printf "%.1f" .KT}}

pot_width = {{.TableWidth}}
nl = hoomd.md.nlist.cell()
table = hoomd.md.pair.table(width=pot_width, nlist=nl)
{{range .Tables}}
table.set_from_file('{{.Type1}}', '{{.Type2}}', filename='{{.File}}')
{{- end}}

`))

type headerData struct {
	GSD        bool
	Restart    string
	KT         float64
	TableWidth int
	Tables     []TablePotential
}

// SaveRunscript writes the engine input script for this state: the
// generated header followed by the verbatim body template from the state
// directory.
func (s *State) SaveRunscript(tables []TablePotential, tableWidth int) error {
	return s.SaveRunscriptFrom(tables, tableWidth, DefaultRunscriptTemplate)
}

// SaveRunscriptFrom is SaveRunscript with an explicit body template name.
func (s *State) SaveRunscriptFrom(tables []TablePotential, tableWidth int, templateName string) error {
	data := headerData{
		GSD:        s.Format == trajectory.FormatGSD,
		Restart:    s.TrajFile,
		KT:         s.KT,
		TableWidth: tableWidth,
		Tables:     tables,
	}
	if !data.GSD {
		// Legacy restarts read the topology file, not the DCD.
		data.Restart = s.TopPath()
	}

	var header strings.Builder
	if err := hoomdHeader.Execute(&header, data); err != nil {
		return fmt.Errorf("state %s: rendering runscript header: %w", s.Name, err)
	}

	body, err := os.ReadFile(filepath.Join(s.Dir, templateName))
	if err != nil {
		return fmt.Errorf("state %s: reading runscript template: %w", s.Name, err)
	}

	out := header.String() + string(body)
	return os.WriteFile(filepath.Join(s.Dir, RunscriptName), []byte(out), 0644)
}

package manifest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ntBre/psqs/internal/program"
	"github.com/ntBre/psqs/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validManifestYAML() string {
	return `program: molpro
template_text: |
  memory,1,g
  geometry={
  {{.geom}}
  hf
  pbqff=energy
geom: |
  O 0.000000000 0.000000000 -0.065775570
  H 0.000000000 0.759061990 0.521953018
  H 0.000000000 -0.759061990 0.521953018
jobs:
  - name: job.0000000
    index: 0
  - name: job.0000001
    index: 1
    coeff: -0.5
  - name: job.0000002
    index: 1
    geom: |
      He 0.0 0.0 0.0
`
}

func TestLoadFromBytes(t *testing.T) {
	m, err := LoadFromBytes([]byte(validManifestYAML()), "test.yaml")
	require.NoError(t, err)

	assert.Equal(t, program.KindMolpro, m.Kind())
	assert.Equal(t, program.SinglePt, m.Proc())
	assert.Equal(t, 2, m.Size)
	require.Len(t, m.Jobs, 3)
	assert.Equal(t, 1.0, *m.Jobs[0].Coeff)
	assert.Equal(t, -0.5, *m.Jobs[1].Coeff)
}

func TestMolproJobs(t *testing.T) {
	m, err := LoadFromBytes([]byte(validManifestYAML()), "test.yaml")
	require.NoError(t, err)

	dir := t.TempDir()
	jobs, err := m.MolproJobs(dir)
	require.NoError(t, err)
	require.Len(t, jobs, 3)

	assert.Equal(t, filepath.Join(dir, "job.0000000"), jobs[0].Program.Filename())
	assert.Equal(t, -0.5, jobs[1].Coeff)
	assert.Equal(t, 1, jobs[2].Index)

	// shared geometry is one pointer
	assert.Same(t, jobs[0].Program.Geom, jobs[1].Program.Geom)
	assert.NotSame(t, jobs[0].Program.Geom, jobs[2].Program.Geom)
	assert.Equal(t, "He", jobs[2].Program.Geom.Atoms[0].Label)
	assert.Contains(t, jobs[0].Program.Template.Header, "pbqff=energy")

	_, err = m.MopacJobs(dir)
	assert.ErrorIs(t, err, ErrWrongProgram)
}

func TestMopacJobs(t *testing.T) {
	data := `program: mopac
procedure: opt
charge: 1
params:
  - {name: USS, atom: H, value: -11.246958}
  - {name: ZS, atom: H, value: 1.268641}
geom: |
  H 0.0 0.0 0.0
  H 0.0 0.0 0.74
size: 4
jobs:
  - {name: a, index: 3}
`
	m, err := LoadFromBytes([]byte(data), "mopac.yml")
	require.NoError(t, err)
	assert.Equal(t, program.Opt, m.Proc())
	assert.Equal(t, 4, m.Size)

	dir := t.TempDir()
	jobs, err := m.MopacJobs(dir)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	p := jobs[0].Program
	assert.Equal(t, 1, p.Charge)
	require.NotNil(t, p.Params)
	assert.Equal(t, []string{"USS", "ZS"}, p.Params.Names)
	assert.Equal(t, filepath.Join(dir, "tmparam"), p.ParamDir)
}

func TestTemplateFromFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "molpro.in"), []byte("geometry={\n{{.geom}}\n"), utils.PermFile))
	data := `program: molpro
template: molpro.in
geom: "He 0 0 0"
jobs:
  - {name: a, index: 0}
`
	path := filepath.Join(dir, "jobs.yaml")
	require.NoError(t, os.WriteFile(path, []byte(data), utils.PermFile))

	m, err := Load(path)
	require.NoError(t, err)
	tmpl, err := m.LoadTemplate()
	require.NoError(t, err)
	assert.Equal(t, "geometry={\n{{.geom}}\n", tmpl.Header)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"empty", ""},
		{"unknown program", "program: cfour\ngeom: He 0 0 0\njobs: [{name: a, index: 0}]\n"},
		{"freq", "program: molpro\nprocedure: freq\ngeom: He 0 0 0\njobs: [{name: a, index: 0}]\n"},
		{"no jobs", "program: molpro\ngeom: He 0 0 0\n"},
		{"duplicate", "program: molpro\ngeom: He 0 0 0\njobs: [{name: a, index: 0}, {name: a, index: 1}]\n"},
		{"no geometry", "program: molpro\njobs: [{name: a, index: 0}]\n"},
		{"index past size", "program: molpro\nsize: 1\ngeom: He 0 0 0\njobs: [{name: a, index: 1}]\n"},
		{"unknown field", "program: molpro\ngeometry: He 0 0 0\njobs: [{name: a, index: 0}]\n"},
		{"both templates", "program: molpro\ntemplate: x\ntemplate_text: y\ngeom: He 0 0 0\njobs: [{name: a, index: 0}]\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFromBytes([]byte(tt.data), "test.yaml")
			assert.ErrorIs(t, err, ErrInvalidManifest)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

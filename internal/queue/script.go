package queue

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"text/template"

	"github.com/ntBre/psqs/internal/utils"
)

// scriptWriter renders submit scripts: the header once, the command once
// per input, then the footer.
type scriptWriter struct {
	header  *template.Template
	command *template.Template
	footer  string
}

func newScriptWriter(header, command, footer string) (*scriptWriter, error) {
	h, err := template.New("header").Parse(header)
	if err != nil {
		return nil, fmt.Errorf("%w: header template: %v", ErrInvalidOptions, err)
	}
	c, err := template.New("command").Parse(command)
	if err != nil {
		return nil, fmt.Errorf("%w: command template: %v", ErrInvalidOptions, err)
	}
	return &scriptWriter{header: h, command: c, footer: footer}, nil
}

func (w *scriptWriter) render(infiles []string, scriptPath string) ([]byte, error) {
	var buf bytes.Buffer
	if err := w.header.Execute(&buf, map[string]string{
		"Filename": scriptPath,
		"filename": scriptPath,
	}); err != nil {
		return nil, err
	}
	if buf.Len() > 0 && buf.Bytes()[buf.Len()-1] != '\n' {
		buf.WriteByte('\n')
	}
	for _, in := range infiles {
		base, _ := utils.SplitExt(in)
		if err := w.command.Execute(&buf, map[string]string{
			"Input": in,
			"input": in,
			"Base":  base,
		}); err != nil {
			return nil, err
		}
		buf.WriteByte('\n')
	}
	buf.WriteString(w.footer)
	return buf.Bytes(), nil
}

func (w *scriptWriter) write(infiles []string, scriptPath string) error {
	body, err := w.render(infiles, scriptPath)
	if err != nil {
		return NewScriptCreationError(scriptPath, err)
	}
	if err := utils.EnsureDir(filepath.Dir(scriptPath)); err != nil {
		return NewScriptCreationError(scriptPath, err)
	}
	if err := os.WriteFile(scriptPath, body, utils.PermFile); err != nil {
		return NewScriptCreationError(scriptPath, err)
	}
	return nil
}

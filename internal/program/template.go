package program

import (
	"fmt"
	"os"
)

// Template is the body of a program input file. "{{.geom}}" and
// "{{.charge}}" are substituted by WriteInput.
type Template struct {
	Header string `json:"header"`
}

// NewTemplate wraps header text.
func NewTemplate(header string) Template {
	return Template{Header: header}
}

// LoadTemplate reads a template file from disk.
func LoadTemplate(path string) (Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Template{}, fmt.Errorf("failed to read template %s: %w", path, err)
	}
	return Template{Header: string(data)}, nil
}

package formula

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// templateFile is the YAML shape of a report template: named stages, each an
// ordered list of rule strings.
type templateFile struct {
	Stages []struct {
		Name  string   `yaml:"name"`
		Rules []string `yaml:"rules"`
	} `yaml:"stages"`
}

// ReadTemplate parses a report template from a reader. Rule lines that do
// not parse (no "=" or an empty target) are skipped; rule text leniency is
// handled later at evaluation.
func ReadTemplate(r io.Reader) ([]Stage, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("error reading report template, %s", err)
	}

	var file templateFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("error parsing report template, %s", err)
	}

	var stages []Stage
	for _, s := range file.Stages {
		stage := Stage{Name: s.Name}
		for _, line := range s.Rules {
			rule, ok := ParseRule(line)
			if !ok {
				continue
			}
			stage.Rules = append(stage.Rules, rule)
		}
		stages = append(stages, stage)
	}
	return stages, nil
}

// LoadTemplate reads a report template from a file path.
func LoadTemplate(path string) ([]Stage, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error opening report template %s, %s", path, err)
	}
	defer f.Close()
	return ReadTemplate(f)
}

// Package harness checks sample measurement strings against the grammar
// cascade. Case files list texts with optional expected outcomes and can be
// re-checked while they are edited.
package harness

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/teranos/measure/errors"
	"github.com/teranos/measure/types"
)

// OutcomeSkipped is expected of records on the skip list
const OutcomeSkipped types.OutcomeKind = "skipped"

// Expectation is what a case must resolve to. Unset fields are not checked.
type Expectation struct {
	Outcome    types.OutcomeKind     `yaml:"outcome" toml:"outcome"`
	Variant    types.VariantName     `yaml:"variant,omitempty" toml:"variant,omitempty"`
	Facets     *int                  `yaml:"facets,omitempty" toml:"facets,omitempty"`
	Dimensions *int                  `yaml:"dimensions,omitempty" toml:"dimensions,omitempty"`
	Labels     []string              `yaml:"labels,omitempty" toml:"labels,omitempty"`
	Anomalies  []types.AnomalyReason `yaml:"anomalies,omitempty" toml:"anomalies,omitempty"`
	Failure    string                `yaml:"failure,omitempty" toml:"failure,omitempty"` // substring of the failure reason
}

// Case is one sample string
type Case struct {
	Name   string       `yaml:"name" toml:"name"`
	ID     int64        `yaml:"id,omitempty" toml:"id,omitempty"`
	Text   string       `yaml:"text" toml:"text"`
	Expect *Expectation `yaml:"expect,omitempty" toml:"expect,omitempty"`
}

// Suite is a loaded case file
type Suite struct {
	Path  string `yaml:"-" toml:"-"`
	Cases []Case `yaml:"cases" toml:"cases"`
}

// Format names a case file encoding
type Format string

const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
	FormatText Format = "text" // one sample per line, no expectations
)

// FormatOf picks the encoding from the file extension
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	case ".txt", "":
		return FormatText, nil
	}
	return "", errors.WithHint(
		errors.NewInvalidRequestError("unsupported case file %s", path),
		"use .yaml, .yml, .toml or .txt")
}

// LoadFile reads a case file
func LoadFile(path string) (Suite, error) {
	format, err := FormatOf(path)
	if err != nil {
		return Suite{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Suite{}, errors.Wrapf(err, "read %s", path)
	}
	suite, err := Decode(data, format)
	if err != nil {
		return Suite{}, errors.Wrapf(err, "decode %s", path)
	}
	suite.Path = path
	return suite, nil
}

// Decode parses case file contents and names unnamed cases by position
func Decode(data []byte, format Format) (Suite, error) {
	var suite Suite
	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &suite); err != nil {
			return suite, errors.Wrap(err, "yaml")
		}
	case FormatTOML:
		if _, err := toml.Decode(string(data), &suite); err != nil {
			return suite, errors.Wrap(err, "toml")
		}
	case FormatText:
		scanner := bufio.NewScanner(bytes.NewReader(data))
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			suite.Cases = append(suite.Cases, Case{Text: line})
		}
		if err := scanner.Err(); err != nil {
			return suite, errors.Wrap(err, "scan lines")
		}
	default:
		return suite, errors.NewInvalidRequestError("unknown case format %q", format)
	}

	for i := range suite.Cases {
		if suite.Cases[i].Name == "" {
			suite.Cases[i].Name = fmt.Sprintf("case %d", i+1)
		}
		if suite.Cases[i].ID == 0 {
			suite.Cases[i].ID = int64(i + 1)
		}
	}
	return suite, nil
}

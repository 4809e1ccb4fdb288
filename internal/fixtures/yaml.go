package fixtures

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/go-viper/mapstructure/v2"
	"gopkg.in/yaml.v3"
)

// ParseYAML decodes a YAML fixture document. Unknown keys are errors.
func ParseYAML(content []byte) (*Set, error) {
	var raw map[string]any
	dec := yaml.NewDecoder(bytes.NewReader(content))
	if err := dec.Decode(&raw); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("invalid YAML: %w", err)
	}

	var set Set
	md, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &set,
		ErrorUnused:      true,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, err
	}
	if err := md.Decode(raw); err != nil {
		return nil, fmt.Errorf("invalid fixture document: %w", err)
	}
	return &set, nil
}

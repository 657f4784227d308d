package operator

import (
	"bytes"
	"fmt"
	"slices"

	"gopkg.in/yaml.v3"
)

// Params is the string-keyed configuration of an operator as read from a
// pipeline file.
type Params map[string]any

// Require returns a *ConfigError listing every key of keys absent from p.
func (p Params) Require(operator string, keys ...string) error {
	var missing []string
	for _, k := range keys {
		if v, ok := p[k]; !ok || v == nil {
			missing = append(missing, k)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return &ConfigError{Operator: operator, Missing: missing}
}

// Keys returns the parameter names in sorted order.
func (p Params) Keys() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Decode fills out, a pointer to a config struct with yaml tags, from p.
// Unknown keys are rejected.
func (p Params) Decode(out any) error {
	data, err := yaml.Marshal(map[string]any(p))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrConfig, err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("%w: %w", ErrConfig, err)
	}
	return nil
}

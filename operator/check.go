package operator

import "fmt"

// Checker accumulates configuration problems so CheckConfig can report all
// of them together.
type Checker struct {
	operator    string
	missing     []string
	conflicting []string
}

// NewChecker starts a check for the named operator.
func NewChecker(operator string) *Checker {
	return &Checker{operator: operator}
}

// Require records key as missing when value is empty.
func (c *Checker) Require(key, value string) *Checker {
	if value == "" {
		c.missing = append(c.missing, key)
	}
	return c
}

// RequireAll records key as missing when values is empty or holds an empty entry.
func (c *Checker) RequireAll(key string, values []string) *Checker {
	if len(values) == 0 {
		c.missing = append(c.missing, key)
		return c
	}
	for _, v := range values {
		if v == "" {
			c.missing = append(c.missing, key)
			break
		}
	}
	return c
}

// Range records key as conflicting when v is outside [min, max].
func (c *Checker) Range(key string, v, min, max float64) *Checker {
	if v < min || v > max {
		c.conflicting = append(c.conflicting, fmt.Sprintf("%s must be within [%g, %g], got %g", key, min, max, v))
	}
	return c
}

// Conflict records a conflict described by msg when bad is true.
func (c *Checker) Conflict(bad bool, msg string) *Checker {
	if bad {
		c.conflicting = append(c.conflicting, msg)
	}
	return c
}

// Err returns a *ConfigError, or nil when nothing was recorded.
func (c *Checker) Err() error {
	if len(c.missing) == 0 && len(c.conflicting) == 0 {
		return nil
	}
	return &ConfigError{Operator: c.operator, Missing: c.missing, Conflicting: c.conflicting}
}

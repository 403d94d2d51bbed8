package course

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed levels.yaml
var defaultLevels []byte

var ErrNoLevels = errors.New("catalog has no levels")

// Catalog is the ordered list of level definitions. Level indices are
// 1-based, matching what players see.
type Catalog struct {
	Levels []Definition `yaml:"levels" json:"levels"`

	ballRadius float64
}

// ParseCatalog decodes a YAML catalog and builds every level once so a bad
// definition is reported at load time, not when a player reaches it.
func ParseCatalog(data []byte, ballRadius float64) (*Catalog, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	c := &Catalog{ballRadius: ballRadius}
	if err := dec.Decode(c); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	if len(c.Levels) == 0 {
		return nil, ErrNoLevels
	}

	for i := range c.Levels {
		c.Levels[i].applyDefaults()
		if _, err := Build(c.Levels[i], i+1, ballRadius, 0); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func LoadCatalog(path string, ballRadius float64) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return ParseCatalog(data, ballRadius)
}

// DefaultCatalog is the built-in course.
func DefaultCatalog(ballRadius float64) (*Catalog, error) {
	return ParseCatalog(defaultLevels, ballRadius)
}

func (c *Catalog) Len() int { return len(c.Levels) }

func (c *Catalog) BallRadius() float64 { return c.ballRadius }

// Definition returns level index (1-based).
func (c *Catalog) Definition(index int) (Definition, error) {
	if index < 1 || index > len(c.Levels) {
		return Definition{}, fmt.Errorf("level %d of %d: %w", index, len(c.Levels), ErrInvalidLevel)
	}
	return c.Levels[index-1], nil
}

// Build constructs a fresh copy of level index.
func (c *Catalog) Build(index int, seed uint64) (*Level, error) {
	def, err := c.Definition(index)
	if err != nil {
		return nil, err
	}
	return Build(def, index, c.ballRadius, seed)
}

// Next is the level after index, wrapping to 1 after the last.
func (c *Catalog) Next(index int) int {
	return index%len(c.Levels) + 1
}

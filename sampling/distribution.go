// Package sampling wraps the distribution-sampling library the spec
// treats as an external collaborator (spec.md section 1): the rest of
// the simulator only ever calls Sampler.Sample(Distribution), never a
// concrete distribution type. It also carries the small numeric
// helpers (kB<->MB, per-hop transmission delay) that sit on top of a
// sample.
package sampling

import (
	"strconv"
	"strings"

	"github.com/blocksim/blocksim/simerr"
)

// Distribution is the wire shape from spec.md section 6: a name
// recognised by the sampling backend and a tuple of parameters, read
// from JSON as `{"name": "...", "parameters": "(p1,p2,...)"}`.
type Distribution struct {
	Name       string    `json:"name"`
	Parameters []float64 `json:"-"`
	RawParams  string    `json:"parameters"`
}

// ParseParameters fills Parameters by parsing the "(p1,p2,...)" string
// form the configuration files use (mirrors Python's
// `ast.literal_eval` of a tuple literal).
func (d *Distribution) ParseParameters() error {
	raw := strings.TrimSpace(d.RawParams)
	raw = strings.TrimPrefix(raw, "(")
	raw = strings.TrimSuffix(raw, ")")
	if raw == "" {
		d.Parameters = nil
		return nil
	}
	parts := strings.Split(raw, ",")
	params := make([]float64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		v, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return simerr.NewConfigError("invalid distribution parameter "+p, err)
		}
		params = append(params, v)
	}
	d.Parameters = params
	return nil
}

// Validate mirrors the Python source's `schema` contract for a
// distribution descriptor: it must have a non-empty name and a
// parameters tuple, as required by spec.md section 1's "Out of scope"
// note on the sampling library and section 6 ("distribution is
// {'name': str, 'parameters': '(p1,p2,...)'}").
func (d Distribution) Validate() error {
	if d.Name == "" {
		return simerr.NewConfigError("distribution is missing a name", nil)
	}
	if strings.TrimSpace(d.RawParams) == "" {
		return simerr.NewConfigError("distribution "+d.Name+" is missing its parameters", nil)
	}
	return nil
}

package pipeline

import "sort"

// Params is the parameter mapping handed to every callback of a run. It holds
// the caller's run parameters plus everything exported by earlier stages.
type Params map[string]interface{}

// Names the engine supplies to callbacks itself. A run rejects caller
// parameters using any of them.
const (
	ParamOut    = "out"
	ParamPrimer = "primer"
	ParamStatus = "status"
	ParamCount  = "count"
)

var reservedParams = []string{ParamOut, ParamPrimer, ParamStatus, ParamCount}

// Clone returns a shallow copy of p. A nil Params clones to an empty map.
func (p Params) Clone() Params {
	out := make(Params, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Merge returns a new mapping holding p overlaid with other. Keys in other
// win. Neither input is modified.
func (p Params) Merge(other Params) Params {
	out := p.Clone()
	for k, v := range other {
		out[k] = v
	}
	return out
}

// Keys returns the parameter names in sorted order.
func (p Params) Keys() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// reserved returns the first reserved name present in p, in a fixed order.
func (p Params) reserved() (string, bool) {
	for _, name := range reservedParams {
		if _, ok := p[name]; ok {
			return name, true
		}
	}
	return "", false
}

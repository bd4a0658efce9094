package experiment

import (
	"fmt"
	"slices"
	"strings"

	"github.com/specialistvlad/bootsweep/internal/run"
)

// Sweep is the set of values for each dimension.
type Sweep struct {
	Kernels   []string
	BootTypes []string
	CPUTypes  []string
	NumCPUs   []string
	MemTypes  []string
}

// Len returns the number of points in the cross-product.
func (s Sweep) Len() int {
	return len(s.Kernels) * len(s.BootTypes) * len(s.CPUTypes) * len(s.NumCPUs) * len(s.MemTypes)
}

// Points expands the cross-product. Kernel varies slowest and memory type
// fastest.
func (s Sweep) Points() []run.Parameters {
	out := make([]run.Parameters, 0, s.Len())
	for _, k := range s.Kernels {
		for _, b := range s.BootTypes {
			for _, c := range s.CPUTypes {
				for _, n := range s.NumCPUs {
					for _, m := range s.MemTypes {
						out = append(out, run.Parameters{
							KernelVersion: k,
							BootType:      b,
							CPUType:       c,
							NumCPUs:       n,
							MemType:       m,
						})
					}
				}
			}
		}
	}
	return out
}

// Filter restricts points by dimension. A point matches when, for every
// dimension present, its value is one of the listed values.
type Filter map[string][]string

// filterKeys maps accepted spellings to a canonical dimension name.
var filterKeys = map[string]string{
	"kernel":         "kernel",
	"kernel_version": "kernel",
	"boot":           "boot",
	"boot_type":      "boot",
	"cpu":            "cpu",
	"cpu_type":       "cpu",
	"cpus":           "cpus",
	"num_cpus":       "cpus",
	"mem":            "mem",
	"mem_type":       "mem",
}

// ParseFilter parses expressions of the form key=value[,value...]. Repeated
// keys accumulate.
func ParseFilter(exprs []string) (Filter, error) {
	f := Filter{}
	for _, e := range exprs {
		key, vals, ok := strings.Cut(e, "=")
		if !ok {
			return nil, fmt.Errorf("%w: %q is not key=value", ErrInvalidFilter, e)
		}
		dim, ok := filterKeys[strings.ToLower(strings.TrimSpace(key))]
		if !ok {
			return nil, fmt.Errorf("%w: unknown dimension %q", ErrInvalidFilter, key)
		}
		for _, v := range strings.Split(vals, ",") {
			if v = strings.TrimSpace(v); v != "" {
				f[dim] = append(f[dim], v)
			}
		}
		if len(f[dim]) == 0 {
			return nil, fmt.Errorf("%w: no values for %q", ErrInvalidFilter, key)
		}
	}
	return f, nil
}

// Match reports whether p passes the filter.
func (f Filter) Match(p run.Parameters) bool {
	for dim, allowed := range f {
		var v string
		switch dim {
		case "kernel":
			v = p.KernelVersion
		case "boot":
			v = p.BootType
		case "cpu":
			v = p.CPUType
		case "cpus":
			v = p.NumCPUs
		case "mem":
			v = p.MemType
		}
		if !slices.Contains(allowed, v) {
			return false
		}
	}
	return true
}

// Apply returns the matching points, order preserved.
func (f Filter) Apply(points []run.Parameters) []run.Parameters {
	if len(f) == 0 {
		return points
	}
	out := make([]run.Parameters, 0, len(points))
	for _, p := range points {
		if f.Match(p) {
			out = append(out, p)
		}
	}
	return out
}

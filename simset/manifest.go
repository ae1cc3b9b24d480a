// Package simset implements the reference set container used for testing
// and interchange: a directory holding a JSON manifest (set.json) plus one
// payload blob per component plane.
//
// simset is not the vendor's binary format. It exists so the module is
// usable end to end without the proprietary reader: the simset Reader
// satisfies set.Reader exactly like a native reader binding would, and the
// Writer builds fixtures for tests and round-trip checks. Payload blobs
// store little- or big-endian samples, optionally compressed, each guarded
// by an xxHash64 checksum verified on read.
package simset

import (
	"fmt"

	"github.com/arloliu/davisgo/set"
)

// ManifestName is the manifest file inside a simset directory.
const ManifestName = "set.json"

type manifest struct {
	Title       string         `json:"title,omitempty"`
	ByteOrder   string         `json:"byte_order,omitempty"` // "little" (default) or "big"
	Compression string         `json:"compression,omitempty"`
	Attributes  map[string]any `json:"attributes,omitempty"`
	Buffers     []bufferEntry  `json:"buffers"`
}

type bufferEntry struct {
	Attributes map[string]any `json:"attributes,omitempty"`
	Frames     []frameEntry   `json:"frames"`
}

type frameEntry struct {
	Attributes map[string]any   `json:"attributes,omitempty"`
	GridX      int              `json:"grid_x,omitempty"`
	GridY      int              `json:"grid_y,omitempty"`
	ScaleX     *scaleEntry      `json:"scale_x,omitempty"`
	ScaleY     *scaleEntry      `json:"scale_y,omitempty"`
	Components []componentEntry `json:"components"`
}

type scaleEntry struct {
	Slope       float64 `json:"slope"`
	Offset      float64 `json:"offset"`
	Unit        string  `json:"unit,omitempty"`
	Description string  `json:"description,omitempty"`
}

type componentEntry struct {
	Name     string         `json:"name"`
	NY       int            `json:"ny"`
	NX       int            `json:"nx"`
	Format   string         `json:"format"`
	Scale    *scaleEntry    `json:"scale,omitempty"`
	Payloads []payloadEntry `json:"payloads"` // one per z plane
}

type payloadEntry struct {
	File     string `json:"file"`
	Checksum string `json:"checksum"` // xxHash64 of the stored bytes, hex
	RawSize  int    `json:"raw_size"` // uncompressed byte length
}

func (s *scaleEntry) scale() set.Scale {
	if s == nil {
		return set.IdentityScale
	}

	return set.Scale{Slope: s.Slope, Offset: s.Offset, Unit: s.Unit, Description: s.Description}
}

func scaleFrom(s set.Scale) *scaleEntry {
	if s.IsIdentity() && s.Unit == "" && s.Description == "" {
		return nil
	}

	return &scaleEntry{Slope: s.Slope, Offset: s.Offset, Unit: s.Unit, Description: s.Description}
}

func (m *manifest) validate() error {
	for bi, b := range m.Buffers {
		if len(b.Frames) == 0 {
			return fmt.Errorf("buffer %d has no frames", bi)
		}
		for fi, f := range b.Frames {
			if len(f.Components) == 0 {
				return fmt.Errorf("buffer %d frame %d has no components", bi, fi)
			}
			for _, c := range f.Components {
				if c.NY <= 0 || c.NX <= 0 {
					return fmt.Errorf("component %q has invalid shape %dx%d", c.Name, c.NY, c.NX)
				}
				if len(c.Payloads) == 0 {
					return fmt.Errorf("component %q has no payloads", c.Name)
				}
			}
		}
	}

	return nil
}

// attrsFromJSON converts decoded manifest attributes into set.Attributes.
// Absent maps stay nil; the attr package treats nil as "no attributes".
func attrsFromJSON(m map[string]any) set.Attributes {
	if m == nil {
		return nil
	}

	out := make(set.Attributes, len(m))
	for k, v := range m {
		switch t := v.(type) {
		case []any:
			fs := make([]float64, 0, len(t))
			ok := true
			for _, e := range t {
				f, isNum := e.(float64)
				if !isNum {
					ok = false
					break
				}
				fs = append(fs, f)
			}
			if ok {
				out[k] = fs
				continue
			}
			out[k] = fmt.Sprint(t)
		default:
			out[k] = v
		}
	}

	return out
}

// attrsToJSON converts set.Attributes for manifest serialization.
func attrsToJSON(a set.Attributes) map[string]any {
	if a == nil {
		return nil
	}

	out := make(map[string]any, len(a))
	for k, v := range a {
		if b, ok := v.([]byte); ok {
			out[k] = string(b)
			continue
		}
		out[k] = v
	}

	return out
}

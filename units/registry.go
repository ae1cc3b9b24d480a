// Package units resolves the unit strings found in DaVis set metadata.
//
// Vendor metadata encodes physical units as bare strings ("m/s", "counts",
// "µs") with no guarantee they belong to any coherent unit system. The
// Registry maps known symbols to Unit values and, crucially, never fails:
// an unrecognized string resolves to Unitless and emits a warning-level log
// record, so a single exotic unit cannot abort a whole set load.
//
// The registry is an explicitly constructed value rather than process-wide
// state, so tests can build isolated registries with custom symbols.
package units

import (
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"github.com/arloliu/davisgo/internal/options"
)

// Unit is a resolved physical unit. The zero value is Unitless.
type Unit struct {
	Symbol string
}

// Unitless is the fallback unit for unresolvable or empty unit strings.
var Unitless = Unit{}

// IsUnitless reports whether the unit is the dimensionless fallback.
func (u Unit) IsUnitless() bool {
	return u.Symbol == ""
}

func (u Unit) String() string {
	if u.IsUnitless() {
		return "dimensionless"
	}

	return u.Symbol
}

// defaultSymbols covers the units emitted by DaVis acquisition systems:
// camera counts, lengths, times, velocities and the device-trace quantities
// (laser energy, intensifier gate/gain, trigger voltages).
var defaultSymbols = []string{
	"counts", "pixel", "px",
	"m", "cm", "mm", "µm", "um", "nm",
	"s", "ms", "µs", "us", "ns",
	"Hz", "kHz", "MHz",
	"V", "mV", "A", "mA",
	"J", "mJ", "µJ", "uJ", "W", "mW",
	"K", "°C", "Pa", "kPa", "bar", "mbar",
	"deg", "rad", "%",
}

// Registry resolves unit strings to Unit values with a unitless fallback.
//
// All methods are safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	table  map[string]Unit
	warned map[string]struct{}
	logger *slog.Logger
}

// Option configures a Registry.
type Option = options.Option[*Registry]

// WithLogger sets the logger used for unit-fallback warnings.
// A nil logger silences them.
func WithLogger(logger *slog.Logger) Option {
	return options.NoError(func(r *Registry) {
		if logger == nil {
			logger = slog.New(slog.DiscardHandler)
		}
		r.logger = logger
	})
}

// WithSymbols registers additional unit symbols on top of the defaults.
func WithSymbols(symbols ...string) Option {
	return options.NoError(func(r *Registry) {
		for _, s := range symbols {
			r.table[s] = Unit{Symbol: s}
		}
	})
}

// NewRegistry creates a registry preloaded with the symbols DaVis sets use.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		table:  make(map[string]Unit, len(defaultSymbols)),
		warned: make(map[string]struct{}),
		logger: slog.New(slog.DiscardHandler),
	}
	for _, s := range defaultSymbols {
		r.table[s] = Unit{Symbol: s}
	}

	// Options are infallible today; Apply is kept for parity with the rest
	// of the module's option plumbing.
	_ = options.Apply(r, opts...)

	return r
}

// Register adds a unit symbol to the registry.
func (r *Registry) Register(symbol string) {
	symbol = strings.TrimSpace(symbol)
	if symbol == "" {
		return
	}

	r.mu.Lock()
	r.table[symbol] = Unit{Symbol: symbol}
	r.mu.Unlock()
}

// Parse resolves a unit string. It reports false when the string is not a
// known symbol or a quotient/product of known symbols.
func (r *Registry) Parse(s string) (Unit, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Unitless, true
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if u, ok := r.table[s]; ok {
		return u, true
	}

	// Compound units: every factor of a/b or a*b must be known.
	if parts := splitCompound(s); len(parts) > 1 {
		for _, p := range parts {
			if _, ok := r.table[p]; !ok {
				return Unitless, false
			}
		}

		return Unit{Symbol: s}, true
	}

	return Unitless, false
}

// Resolve parses a unit string, falling back to Unitless with a warning-level
// diagnostic when the string is not recognized. It never returns an error.
func (r *Registry) Resolve(s string) Unit {
	u, ok := r.Parse(s)
	if !ok {
		r.warnOnce(s)
		return Unitless
	}

	return u
}

// Quantity parses strings like "5.2 mm" or "0.0004 s" into a magnitude and a
// unit. It reports false when the string does not start with a number.
// An unrecognized unit part falls back to Unitless (with a warning) but the
// magnitude is still returned.
func (r *Registry) Quantity(s string) (float64, Unit, bool) {
	fields := strings.Fields(strings.TrimSpace(s))
	if len(fields) == 0 {
		return 0, Unitless, false
	}

	mag, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return 0, Unitless, false
	}

	if len(fields) == 1 {
		return mag, Unitless, true
	}

	return mag, r.Resolve(strings.Join(fields[1:], " ")), true
}

func (r *Registry) warnOnce(symbol string) {
	r.mu.Lock()
	_, seen := r.warned[symbol]
	if !seen {
		r.warned[symbol] = struct{}{}
	}
	r.mu.Unlock()

	if !seen {
		r.logger.Warn("unit not recognized, treating quantity as unitless", "unit", symbol)
	}
}

func splitCompound(s string) []string {
	return strings.FieldsFunc(s, func(c rune) bool {
		return c == '/' || c == '*'
	})
}

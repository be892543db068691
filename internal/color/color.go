// Package color resolves association colours and derives lighter or darker
// tones from them for the modal chrome.
package color

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"assocal/internal/model"
)

// DefaultFallback is used for any association missing from the mapping.
const DefaultFallback = "#3788d8"

// ErrInvalidColor is returned by Parse for strings in neither supported form.
var ErrInvalidColor = errors.New("invalid color")

// Resolver maps association names to display colours.
type Resolver struct {
	mapping  model.ColorMapping
	fallback string
}

// NewResolver returns a Resolver over mapping. An empty fallback selects
// DefaultFallback.
func NewResolver(mapping model.ColorMapping, fallback string) *Resolver {
	if fallback == "" {
		fallback = DefaultFallback
	}
	if mapping == nil {
		mapping = model.ColorMapping{}
	}
	return &Resolver{mapping: mapping, fallback: fallback}
}

// Resolve never fails: unmapped or blank entries yield the fallback.
func (r *Resolver) Resolve(association string) string {
	if c, ok := r.mapping[association]; ok && strings.TrimSpace(c) != "" {
		return c
	}
	return r.fallback
}

// Fallback returns the colour used for unmapped associations.
func (r *Resolver) Fallback() string {
	return r.fallback
}

// RGB holds channel values in [0,255]. Values are kept as floats because the
// functional form is scaled from fractions.
type RGB struct {
	R, G, B float64
}

// Parse reads "#RRGGBB", "#RGB" or a functional "kind(a, b, c)" colour.
// Functional components are fractions of 1 and are scaled by 255.
func Parse(s string) (RGB, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "#") {
		return parseHex(s[1:])
	}

	open := strings.IndexByte(s, '(')
	if open <= 0 || !strings.HasSuffix(s, ")") {
		return RGB{}, fmt.Errorf("%w: %q", ErrInvalidColor, s)
	}
	parts := strings.Split(s[open+1:len(s)-1], ",")
	if len(parts) < 3 {
		return RGB{}, fmt.Errorf("%w: %q needs three components", ErrInvalidColor, s)
	}

	var ch [3]float64
	for i := 0; i < 3; i++ {
		f, err := strconv.ParseFloat(strings.TrimSpace(parts[i]), 64)
		if err != nil {
			return RGB{}, fmt.Errorf("%w: %q: %v", ErrInvalidColor, s, err)
		}
		ch[i] = clamp(f * 255)
	}
	return RGB{R: ch[0], G: ch[1], B: ch[2]}, nil
}

func parseHex(h string) (RGB, error) {
	if len(h) == 3 {
		h = string([]byte{h[0], h[0], h[1], h[1], h[2], h[2]})
	}
	if len(h) != 6 {
		return RGB{}, fmt.Errorf("%w: #%s", ErrInvalidColor, h)
	}
	n, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return RGB{}, fmt.Errorf("%w: #%s", ErrInvalidColor, h)
	}
	return RGB{
		R: float64(n>>16&0xff),
		G: float64(n>>8&0xff),
		B: float64(n & 0xff),
	}, nil
}

// Adjust scales every channel by (100+percent)/100 and returns the result as
// a lower-case "#rrggbb" string. Channels are clamped to [0,255].
func Adjust(s string, percent float64) (string, error) {
	c, err := Parse(s)
	if err != nil {
		return "", err
	}
	f := (100 + percent) / 100
	return RGB{R: c.R * f, G: c.G * f, B: c.B * f}.Hex(), nil
}

// Hex formats c as "#rrggbb" after clamping and rounding each channel.
func (c RGB) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", channel(c.R), channel(c.G), channel(c.B))
}

func channel(v float64) uint8 {
	return uint8(math.Round(clamp(v)))
}

func clamp(v float64) float64 {
	switch {
	case math.IsNaN(v) || v < 0:
		return 0
	case v > 255:
		return 255
	default:
		return v
	}
}

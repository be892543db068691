package color

import (
	"errors"
	"testing"

	"assocal/internal/model"
)

func TestResolve(t *testing.T) {
	r := NewResolver(model.ColorMapping{"Club A": "#ff0000", "Blank": "  "}, "")

	tests := []struct {
		assoc string
		want  string
	}{
		{"Club A", "#ff0000"},
		{"Club B", DefaultFallback},
		{"Blank", DefaultFallback},
		{"", DefaultFallback},
	}
	for _, tt := range tests {
		if got := r.Resolve(tt.assoc); got != tt.want {
			t.Errorf("Resolve(%q) = %q, want %q", tt.assoc, got, tt.want)
		}
	}
}

func TestResolveNilMappingCustomFallback(t *testing.T) {
	r := NewResolver(nil, "#000000")
	if got := r.Resolve("anything"); got != "#000000" {
		t.Errorf("Resolve = %q, want #000000", got)
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		in      string
		want    RGB
		wantErr bool
	}{
		{"#808080", RGB{128, 128, 128}, false},
		{"#FFA500", RGB{255, 165, 0}, false},
		{"#fff", RGB{255, 255, 255}, false},
		{" #000000 ", RGB{0, 0, 0}, false},
		{"rgb(1, 0, 0.5)", RGB{255, 0, 127.5}, false},
		{"rgba(0.25,0.5,0.75,1)", RGB{63.75, 127.5, 191.25}, false},
		{"rgb(2, 0, 0)", RGB{255, 0, 0}, false},
		{"#12345", RGB{}, true},
		{"#gggggg", RGB{}, true},
		{"red", RGB{}, true},
		{"rgb(1, 2)", RGB{}, true},
		{"rgb(a, b, c)", RGB{}, true},
	}
	for _, tt := range tests {
		got, err := Parse(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("Parse(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if tt.wantErr {
			if !errors.Is(err, ErrInvalidColor) {
				t.Errorf("Parse(%q) err = %v, want ErrInvalidColor", tt.in, err)
			}
			continue
		}
		if got != tt.want {
			t.Errorf("Parse(%q) = %+v, want %+v", tt.in, got, tt.want)
		}
	}
}

func TestAdjust(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		percent float64
		want    string
	}{
		{"brighten grey by half", "#808080", 50, "#c0c0c0"},
		{"clamp at ff", "#ff8000", 50, "#ffc000"},
		{"large percent saturates", "#102030", 2000, "#ffffff"},
		{"darken", "#808080", -50, "#404040"},
		{"never negative", "#808080", -250, "#000000"},
		{"zero keeps colour", "#3788d8", 0, "#3788d8"},
		{"functional form", "rgb(0.5, 0.5, 0.5)", 0, "#808080"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Adjust(tt.in, tt.percent)
			if err != nil {
				t.Fatalf("Adjust: %v", err)
			}
			if got != tt.want {
				t.Errorf("Adjust(%q, %v) = %q, want %q", tt.in, tt.percent, got, tt.want)
			}
		})
	}
}

func TestAdjustDeterministic(t *testing.T) {
	a, _ := Adjust("#3788d8", 40)
	b, _ := Adjust("#3788d8", 40)
	if a != b {
		t.Errorf("Adjust is not deterministic: %q vs %q", a, b)
	}
}

func TestAdjustInvalid(t *testing.T) {
	if _, err := Adjust("not-a-colour", 10); !errors.Is(err, ErrInvalidColor) {
		t.Errorf("err = %v, want ErrInvalidColor", err)
	}
}

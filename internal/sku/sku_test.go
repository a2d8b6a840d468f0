package sku

import (
	"strings"
	"testing"
)

func TestGenerate_Basic(t *testing.T) {
	tests := []struct {
		product  string
		color    string
		size     string
		expected string
	}{
		{"Hoodie", "Black", "Medium", "HOOD-BLA-MED"},
		{"Tee Shirt", "Forest Green", "XL", "TEES-FOR-XLX"},
		{"Cap", "Red", "One Size", "CAPX-RED-ONE"},
		{"Sneaker 9000", "Off-White", "10.5", "SNEA-OFF-105"},
	}

	for _, tt := range tests {
		result := Generate(tt.product, tt.color, tt.size)
		if result != tt.expected {
			t.Errorf("Generate(%q, %q, %q) = %q, want %q",
				tt.product, tt.color, tt.size, result, tt.expected)
		}
	}
}

func TestGenerate_Idempotent(t *testing.T) {
	// Same inputs must always produce the same SKU
	first := Generate("Hoodie", "Black", "Medium")
	for i := 0; i < 100; i++ {
		result := Generate("Hoodie", "Black", "Medium")
		if result != first {
			t.Errorf("expected deterministic result %q, got %q on iteration %d", first, result, i)
		}
	}
}

func TestGenerate_AlphanumericOnly(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"punctuation", "T-Shirt!"},
		{"spaces", "  Long  Sleeve  "},
		{"unicode", "Café Blend"},
		{"symbols", "100% Cotton"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Generate(tt.input, tt.input, tt.input)
			for _, r := range result {
				if r != '-' && !(r >= 'A' && r <= 'Z') && !(r >= '0' && r <= '9') {
					t.Errorf("Generate produced non-alphanumeric rune %q in %q", r, result)
				}
			}
		})
	}
}

func TestGenerate_FixedWidth(t *testing.T) {
	tests := []struct {
		name    string
		product string
		color   string
		size    string
	}{
		{"all empty", "", "", ""},
		{"short names", "A", "B", "C"},
		{"long names", strings.Repeat("z", 50), strings.Repeat("y", 50), strings.Repeat("x", 50)},
		{"all symbols", "!!!", "???", "###"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Generate(tt.product, tt.color, tt.size)
			parts := strings.Split(result, "-")
			if len(parts) != 3 {
				t.Fatalf("expected 3 segments, got %d in %q", len(parts), result)
			}
			if len(parts[0]) != productWidth {
				t.Errorf("expected product segment width %d, got %q", productWidth, parts[0])
			}
			if len(parts[1]) != colorWidth {
				t.Errorf("expected color segment width %d, got %q", colorWidth, parts[1])
			}
			if len(parts[2]) != sizeWidth {
				t.Errorf("expected size segment width %d, got %q", sizeWidth, parts[2])
			}
		})
	}
}

func TestGenerate_EmptyInputsPad(t *testing.T) {
	result := Generate("", "", "")
	if result != "XXXX-XXX-XXX" {
		t.Errorf("expected 'XXXX-XXX-XXX', got %q", result)
	}
}

// Package sku provides deterministic SKU generation for inventory variants.
package sku

import "strings"

const (
	productWidth = 4
	colorWidth   = 3
	sizeWidth    = 3
)

// Generate builds a SKU from product, color, and size names. The same
// inputs always produce the same SKU: each name is reduced to its
// uppercase alphanumerics, truncated to a fixed width, and padded with
// 'X' when shorter.
func Generate(product, color, size string) string {
	return prefix(product, productWidth) + "-" +
		prefix(color, colorWidth) + "-" +
		prefix(size, sizeWidth)
}

// prefix reduces name to a fixed-width uppercase alphanumeric token.
func prefix(name string, width int) string {
	var b strings.Builder
	b.Grow(width)
	for _, r := range name {
		if b.Len() == width {
			break
		}
		switch {
		case r >= 'a' && r <= 'z':
			b.WriteRune(r - ('a' - 'A'))
		case (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'):
			b.WriteRune(r)
		}
	}
	for b.Len() < width {
		b.WriteByte('X')
	}
	return b.String()
}

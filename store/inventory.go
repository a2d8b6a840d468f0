package store

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/jacentio/strata/internal/sku"
)

// Color is one color option of an inventory record.
type Color struct {
	ID        string `bson:"id" json:"id"`
	Name      string `bson:"name" json:"name"`
	Hex       string `bson:"hex" json:"hex"`
	Available bool   `bson:"available" json:"available"`
	SortOrder int    `bson:"sortOrder" json:"sortOrder"`
}

// Size is one size option of an inventory record.
type Size struct {
	ID          string `bson:"id" json:"id"`
	Name        string `bson:"name" json:"name"`
	Description string `bson:"description" json:"description"`
	Available   bool   `bson:"available" json:"available"`
	SortOrder   int    `bson:"sortOrder" json:"sortOrder"`
}

// Variant is one purchasable color and size combination.
type Variant struct {
	ID        string  `bson:"id" json:"id"`
	ColorID   string  `bson:"colorId" json:"colorId"`
	SizeID    string  `bson:"sizeId" json:"sizeId"`
	SKU       string  `bson:"sku" json:"sku"`
	Quantity  int     `bson:"quantity" json:"quantity"`
	Price     float64 `bson:"price" json:"price"`
	Available bool    `bson:"available" json:"available"`
}

// Inventory is the per-variant stock sub-shape of a product record.
type Inventory struct {
	Colors          []Color   `bson:"colors" json:"colors"`
	Sizes           []Size    `bson:"sizes" json:"sizes"`
	Variants        []Variant `bson:"variants" json:"variants"`
	TotalQuantity   int       `bson:"totalQuantity" json:"totalQuantity"`
	TrackPerVariant bool      `bson:"trackPerVariant" json:"trackPerVariant"`
	LastUpdated     time.Time `bson:"lastUpdated" json:"lastUpdated"`
}

// InventoryFilter narrows the variants returned by a read without touching
// stored data.
type InventoryFilter struct {
	Available   *bool
	MinQuantity *int
	ColorID     string
	SizeID      string
	SKU         string
}

// normalizeInventoryDoc validates and normalizes the inventory sub-object
// of doc: missing per-entry identifiers and sort orders are assigned from
// list position, variants are resolved against the color and size lists,
// missing SKUs are generated from the product name, totalQuantity is
// recomputed, and a normalization timestamp is stamped. Any variant that
// fails to resolve rejects the whole write.
func normalizeInventoryDoc(doc bson.M) (Inventory, error) {
	inv, err := decodeInventory(doc["inventory"])
	if err != nil {
		return Inventory{}, err
	}
	productName, _ := doc["name"].(string)
	if productName == "" {
		productName, _ = doc["productName"].(string)
	}
	return normalizeInventory(inv, productName)
}

// normalizeInventory is the pure core of inventory normalization.
func normalizeInventory(inv Inventory, productName string) (Inventory, error) {
	colorNames := make(map[string]string, len(inv.Colors))
	for i := range inv.Colors {
		if inv.Colors[i].ID == "" {
			inv.Colors[i].ID = fmt.Sprintf("color-%d", i)
		}
		if inv.Colors[i].SortOrder == 0 {
			inv.Colors[i].SortOrder = i
		}
		colorNames[inv.Colors[i].ID] = inv.Colors[i].Name
	}

	sizeNames := make(map[string]string, len(inv.Sizes))
	for i := range inv.Sizes {
		if inv.Sizes[i].ID == "" {
			inv.Sizes[i].ID = fmt.Sprintf("size-%d", i)
		}
		if inv.Sizes[i].SortOrder == 0 {
			inv.Sizes[i].SortOrder = i
		}
		sizeNames[inv.Sizes[i].ID] = inv.Sizes[i].Name
	}

	total := 0
	for i := range inv.Variants {
		v := &inv.Variants[i]
		if v.ID == "" {
			v.ID = fmt.Sprintf("variant-%d", i)
		}
		colorName, okColor := colorNames[v.ColorID]
		if !okColor {
			return Inventory{}, fmt.Errorf("%w: variant %s colorId %q", ErrUnresolvedVariant, v.ID, v.ColorID)
		}
		sizeName, okSize := sizeNames[v.SizeID]
		if !okSize {
			return Inventory{}, fmt.Errorf("%w: variant %s sizeId %q", ErrUnresolvedVariant, v.ID, v.SizeID)
		}
		if v.SKU == "" {
			v.SKU = sku.Generate(productName, colorName, sizeName)
		}
		total += v.Quantity
	}

	inv.TotalQuantity = total
	inv.LastUpdated = time.Now().UTC()
	return inv, nil
}

// decodeInventory bridges an untyped inventory value into the typed shape,
// validating that the three lists are present first.
func decodeInventory(raw any) (Inventory, error) {
	if inv, isTyped := raw.(Inventory); isTyped {
		return inv, nil
	}
	m, err := toDoc(raw)
	if err != nil {
		return Inventory{}, err
	}
	for _, key := range []string{"colors", "sizes", "variants"} {
		v, present := m[key]
		if !present || !isList(v) {
			return Inventory{}, fmt.Errorf("%w: inventory.%s must be a list", ErrInvalidPayload, key)
		}
	}

	data, err := bson.Marshal(m)
	if err != nil {
		return Inventory{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	var inv Inventory
	if err := bson.Unmarshal(data, &inv); err != nil {
		return Inventory{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return inv, nil
}

// isList reports whether v is any of the list shapes a payload can arrive in.
func isList(v any) bool {
	switch v.(type) {
	case bson.A, []any, []bson.M, []map[string]any:
		return true
	default:
		return false
	}
}

// extractInventoryFilter pulls the inventoryFilter augmentation out of a
// read filter. The sub-object is not a stored field; canonicalFilter drops
// it before the query runs.
func extractInventoryFilter(filter bson.M) (InventoryFilter, bool, error) {
	raw, present := filter["inventoryFilter"]
	if !present {
		return InventoryFilter{}, false, nil
	}
	m, err := toDoc(raw)
	if err != nil {
		return InventoryFilter{}, false, err
	}

	var f InventoryFilter
	if v, ok := m["available"].(bool); ok {
		f.Available = &v
	}
	if v, ok := asInt(m["minQuantity"]); ok {
		f.MinQuantity = &v
	}
	f.ColorID, _ = m["colorId"].(string)
	f.SizeID, _ = m["sizeId"].(string)
	f.SKU, _ = m["sku"].(string)
	return f, true, nil
}

// asInt folds the numeric types BSON decoding can produce into an int.
func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}

// applyInventoryFilter narrows the variants of a returned record and
// recomputes the returned totalQuantity to match the filtered subset. The
// stored record is untouched; out is already a per-request copy.
func applyInventoryFilter(out bson.M, f InventoryFilter) bson.M {
	raw, present := out["inventory"]
	if !present {
		return out
	}
	inv, err := decodeInventory(raw)
	if err != nil {
		// A record without a well-formed inventory passes through as-is.
		return out
	}

	kept := make([]Variant, 0, len(inv.Variants))
	total := 0
	for _, v := range inv.Variants {
		if f.Available != nil && v.Available != *f.Available {
			continue
		}
		if f.MinQuantity != nil && v.Quantity < *f.MinQuantity {
			continue
		}
		if f.ColorID != "" && v.ColorID != f.ColorID {
			continue
		}
		if f.SizeID != "" && v.SizeID != f.SizeID {
			continue
		}
		if f.SKU != "" && v.SKU != f.SKU {
			continue
		}
		kept = append(kept, v)
		total += v.Quantity
	}
	inv.Variants = kept
	inv.TotalQuantity = total

	// Re-encode so filtered and unfiltered reads return the same
	// sub-document shape.
	encoded, err := toDoc(inv)
	if err != nil {
		out["inventory"] = inv
		return out
	}
	out["inventory"] = encoded
	return out
}

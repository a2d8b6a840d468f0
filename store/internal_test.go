package store

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// --- canonicalFilter Tests ---

func TestCanonicalFilter_IDAlias(t *testing.T) {
	oid := primitive.NewObjectID()

	tests := []struct {
		name   string
		filter bson.M
	}{
		{"raw key", bson.M{"_id": oid.Hex()}},
		{"stringified alias", bson.M{"id": oid.Hex()}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := canonicalFilter(tt.filter)
			got, ok := result["_id"]
			if !ok {
				t.Fatal("expected _id key in canonical filter")
			}
			if got != oid {
				t.Errorf("expected ObjectID %v, got %v", oid, got)
			}
			if _, ok := result["id"]; ok {
				t.Error("expected id alias to be folded away")
			}
		})
	}
}

func TestCanonicalFilter_NonHexIDPassesThrough(t *testing.T) {
	result := canonicalFilter(bson.M{"_id": "not-an-object-id"})
	if result["_id"] != "not-an-object-id" {
		t.Errorf("expected non-hex id untouched, got %v", result["_id"])
	}
}

func TestCanonicalFilter_DropsInventoryFilter(t *testing.T) {
	result := canonicalFilter(bson.M{
		"category":        "apparel",
		"inventoryFilter": bson.M{"available": true},
	})
	if _, ok := result["inventoryFilter"]; ok {
		t.Error("expected inventoryFilter to be dropped from the stored-field filter")
	}
	if result["category"] != "apparel" {
		t.Errorf("expected category preserved, got %v", result["category"])
	}
}

func TestCanonicalFilter_CopiesInput(t *testing.T) {
	filter := bson.M{"id": "abc"}
	_ = canonicalFilter(filter)
	if _, ok := filter["_id"]; ok {
		t.Error("expected caller's filter to be untouched")
	}
}

// --- hasIDKey Tests ---

func TestHasIDKey(t *testing.T) {
	tests := []struct {
		name     string
		filter   bson.M
		expected bool
	}{
		{"raw key", bson.M{"_id": "x"}, true},
		{"alias", bson.M{"id": "x"}, true},
		{"both", bson.M{"_id": "x", "id": "y"}, true},
		{"empty", bson.M{}, false},
		{"unique non-identifying field", bson.M{"email": "a@b.c"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := hasIDKey(tt.filter); got != tt.expected {
				t.Errorf("hasIDKey(%v) = %v, want %v", tt.filter, got, tt.expected)
			}
		})
	}
}

// --- normalizeOut Tests ---

func TestNormalizeOut_StringifiesID(t *testing.T) {
	oid := primitive.NewObjectID()
	out := normalizeOut(bson.M{"_id": oid, "name": "x"})
	if out["_id"] != oid.Hex() {
		t.Errorf("expected stringified id %q, got %v", oid.Hex(), out["_id"])
	}
}

func TestNormalizeOut_StripsCompressedBytes(t *testing.T) {
	out := normalizeOut(bson.M{
		"_id": primitive.NewObjectID(),
		"compressed": bson.M{
			"data":     primitive.Binary{Data: []byte{1, 2, 3}},
			"encoding": "gzip",
		},
	})
	sub, ok := out["compressed"].(bson.M)
	if !ok {
		t.Fatalf("expected compressed marker to remain a document, got %T", out["compressed"])
	}
	if _, ok := sub["data"]; ok {
		t.Error("expected raw compressed bytes to be stripped")
	}
	if sub["encoding"] != "gzip" {
		t.Errorf("expected encoding flag preserved, got %v", sub["encoding"])
	}
}

func TestNormalizeOut_DoesNotMutateInput(t *testing.T) {
	oid := primitive.NewObjectID()
	doc := bson.M{"_id": oid}
	_ = normalizeOut(doc)
	if doc["_id"] != oid {
		t.Error("expected stored document to be untouched")
	}
}

// --- visibility defaulting Tests ---

func TestWithDefaultVisibility_Defaults(t *testing.T) {
	out := withDefaultVisibility(bson.M{"name": "x"})
	if out["visibility"] != "private" {
		t.Errorf("expected visibility 'private', got %v", out["visibility"])
	}
}

func TestWithDefaultVisibility_KeepsExplicit(t *testing.T) {
	out := withDefaultVisibility(bson.M{"visibility": "public"})
	if out["visibility"] != "public" {
		t.Errorf("expected visibility 'public', got %v", out["visibility"])
	}
}

func TestWithDefaultVisibility_DoesNotMutateCaller(t *testing.T) {
	doc := bson.M{"name": "x"}
	_ = withDefaultVisibility(doc)
	if _, ok := doc["visibility"]; ok {
		t.Error("expected caller's document to be untouched")
	}
}

// --- data URI Tests ---

func TestParseDataURI(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		contentType string
		payload     string
	}{
		{"full prefix", "data:video/mp4;base64,aGVsbG8=", "video/mp4", "hello"},
		{"webm", "data:video/webm;base64,d29ybGQ=", "video/webm", "world"},
		{"empty type defaults", "data:;base64,aGVsbG8=", "video/mp4", "hello"},
		{"bare base64", "aGVsbG8=", "video/mp4", "hello"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			contentType, data, err := parseDataURI(tt.input)
			if err != nil {
				t.Fatalf("parseDataURI failed: %v", err)
			}
			if contentType != tt.contentType {
				t.Errorf("expected content type %q, got %q", tt.contentType, contentType)
			}
			if string(data) != tt.payload {
				t.Errorf("expected payload %q, got %q", tt.payload, data)
			}
		})
	}
}

func TestParseDataURI_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"missing base64 marker", "data:video/mp4,rawbytes"},
		{"bad base64", "data:video/mp4;base64,!!!"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := parseDataURI(tt.input)
			if !errors.Is(err, ErrInvalidPayload) {
				t.Errorf("expected ErrInvalidPayload, got %v", err)
			}
		})
	}
}

func TestDataURI_RoundTrip(t *testing.T) {
	payload := []byte{0, 1, 2, 255, 254, 0, 42}
	uri := formatDataURI("video/mp4", payload)
	contentType, data, err := parseDataURI(uri)
	if err != nil {
		t.Fatalf("parseDataURI failed: %v", err)
	}
	if contentType != "video/mp4" {
		t.Errorf("expected content type 'video/mp4', got %q", contentType)
	}
	if len(data) != len(payload) {
		t.Fatalf("expected %d bytes, got %d", len(payload), len(data))
	}
	for i := range payload {
		if data[i] != payload[i] {
			t.Fatalf("byte %d differs: expected %d, got %d", i, payload[i], data[i])
		}
	}
}

// --- Classify Tests ---

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected Kind
	}{
		{"not found", ErrNotFound, KindNotFound},
		{"driver no documents", mongo.ErrNoDocuments, KindNotFound},
		{"wrapped not found", fmt.Errorf("read: %w", ErrNotFound), KindNotFound},
		{"unknown command", ErrUnknownCommand, KindValidation},
		{"invalid payload", ErrInvalidPayload, KindValidation},
		{"unresolved variant", ErrUnresolvedVariant, KindValidation},
		{"unavailable", ErrUnavailable, KindTransient},
		{"connection closed message", errors.New("connection(localhost:27017) connection closed"), KindTransient},
		{"pool closed message", errors.New("the pool is closed"), KindTransient},
		{"not connected message", errors.New("client is not connected"), KindTransient},
		{"timed out message", errors.New("operation timed out after 45s"), KindTransient},
		{"server selection", errors.New("server selection error: context deadline exceeded"), KindTransient},
		{"plain failure", errors.New("duplicate key error"), KindInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.err); got != tt.expected {
				t.Errorf("Classify(%v) = %v, want %v", tt.err, got, tt.expected)
			}
		})
	}
}

// --- handleCache Tests ---

func TestHandleCache_ResolveMemoizes(t *testing.T) {
	cache := newHandleCache()
	client := &mongo.Client{}

	first := cache.resolve(client, "shop", "products")
	second := cache.resolve(client, "shop", "products")
	if first != second {
		t.Error("expected the same memoized handle for repeated resolves")
	}
	if cache.size() != 1 {
		t.Errorf("expected 1 cached handle, got %d", cache.size())
	}

	cache.resolve(client, "shop", "orders")
	if cache.size() != 2 {
		t.Errorf("expected 2 cached handles, got %d", cache.size())
	}
}

func TestHandleCache_InvalidateAll(t *testing.T) {
	cache := newHandleCache()
	client := &mongo.Client{}

	cache.resolve(client, "shop", "products")
	cache.resolve(client, "shop", "orders")
	cache.markIndexed("shop.products#parentId_1_index_1")

	cache.invalidateAll()

	if cache.size() != 0 {
		t.Errorf("expected 0 cached handles after invalidateAll, got %d", cache.size())
	}
	// The index set is cleared too, so the ensure runs again
	if !cache.markIndexed("shop.products#parentId_1_index_1") {
		t.Error("expected index set to be cleared by invalidateAll")
	}
}

func TestHandleCache_MarkIndexed(t *testing.T) {
	cache := newHandleCache()
	if !cache.markIndexed("a") {
		t.Error("expected first markIndexed to report unseen")
	}
	if cache.markIndexed("a") {
		t.Error("expected second markIndexed to report already seen")
	}
}

// --- Config Tests ---

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.MaxPoolSize != 10 {
		t.Errorf("expected MaxPoolSize 10, got %d", cfg.MaxPoolSize)
	}
	if cfg.MinPoolSize != 1 {
		t.Errorf("expected MinPoolSize 1, got %d", cfg.MinPoolSize)
	}
	if cfg.MaxAttempts != 3 {
		t.Errorf("expected MaxAttempts 3, got %d", cfg.MaxAttempts)
	}
	if cfg.ChunkSize != 255*1024 {
		t.Errorf("expected ChunkSize %d, got %d", 255*1024, cfg.ChunkSize)
	}
}

func TestConfigValidate_FillsZeroValues(t *testing.T) {
	var cfg Config
	cfg.validate()

	if cfg.URI == "" {
		t.Error("expected URI default")
	}
	if cfg.MaxAttempts != 3 {
		t.Errorf("expected MaxAttempts 3, got %d", cfg.MaxAttempts)
	}
	if cfg.RetryBaseDelay != 100*time.Millisecond {
		t.Errorf("expected RetryBaseDelay 100ms, got %v", cfg.RetryBaseDelay)
	}
	if cfg.ChunkBatchSize != 20 {
		t.Errorf("expected ChunkBatchSize 20, got %d", cfg.ChunkBatchSize)
	}
}

func TestConfigValidate_Clamps(t *testing.T) {
	cfg := Config{MinPoolSize: 50, MaxPoolSize: 10, ChunkSize: 64 * 1024 * 1024}
	cfg.validate()

	if cfg.MinPoolSize != 10 {
		t.Errorf("expected MinPoolSize clamped to 10, got %d", cfg.MinPoolSize)
	}
	if cfg.ChunkSize != 12*1024*1024 {
		t.Errorf("expected ChunkSize clamped to 12MiB, got %d", cfg.ChunkSize)
	}
}

package store

import (
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
)

// Command is one of the fixed operation tags every business route
// funnels through.
type Command string

const (
	CmdCreate      Command = "--create"
	CmdRead        Command = "--read"
	CmdUpdate      Command = "--update"
	CmdDelete      Command = "--delete"
	CmdVerify      Command = "--verify"
	CmdAppend      Command = "--append"
	CmdUpdateField Command = "--update-field"
	CmdDeleteField Command = "--delete-field"
	CmdCreateVideo Command = "--create_video"
	CmdGetVideo    Command = "--get_video"
	CmdDeleteVideo Command = "--delete_video"
)

// Request is the single entry contract consumed by every business route.
// Data is command-specific and decoded into a typed payload on entry.
type Request struct {
	Database   string  `json:"database_name"`
	Collection string  `json:"collection_name"`
	Command    Command `json:"command"`
	Data       any     `json:"data"`
}

// Result is the uniform outcome of every operation. Exactly one of Data
// and Error is meaningfully populated. Status mirrors Success for legacy
// callers that still read it.
type Result struct {
	Success bool   `json:"success"`
	Status  bool   `json:"status"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

// ok builds a success result.
func ok(data any) Result {
	return Result{Success: true, Status: true, Data: data}
}

// fail builds a failure result with a human-readable message and optional
// technical detail.
func fail(message string, err error) Result {
	r := Result{Error: message}
	if err != nil {
		r.Message = err.Error()
	}
	return r
}

// --- Typed command payloads ---

// CreatePayload carries one or more full records to insert.
type CreatePayload struct {
	Records []bson.M
	// Many reports whether the caller supplied an array.
	Many bool
}

// ReadPayload carries a filter document. An empty filter means all records.
type ReadPayload struct {
	Filter bson.M
}

// UpdatePayload carries a filter and the fields to merge.
type UpdatePayload struct {
	Filter bson.M
	Update bson.M
}

// FieldPayload carries a filter plus a single field to set or unset.
type FieldPayload struct {
	Filter bson.M
	Field  string
	Value  any
}

// BlobCreatePayload carries a base64 data-URI video and caller-supplied
// metadata fields.
type BlobCreatePayload struct {
	Video    string
	Metadata bson.M
}

// BlobRefPayload names an existing blob by its parent identifier.
type BlobRefPayload struct {
	ParentID string
}

// toDoc converts an untyped payload value into a bson.M, bridging through
// BSON marshaling for struct payloads.
func toDoc(v any) (bson.M, error) {
	switch d := v.(type) {
	case nil:
		return bson.M{}, nil
	case bson.M:
		return d, nil
	case map[string]any:
		return bson.M(d), nil
	case bson.D:
		return d.Map(), nil
	default:
		raw, err := bson.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
		}
		var doc bson.M
		if err := bson.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
		}
		return doc, nil
	}
}

// toDocList converts a payload that may be a single record or an array of
// records.
func toDocList(v any) ([]bson.M, bool, error) {
	switch d := v.(type) {
	case []bson.M:
		return d, true, nil
	case []map[string]any:
		docs := make([]bson.M, len(d))
		for i, m := range d {
			docs[i] = bson.M(m)
		}
		return docs, true, nil
	case []any:
		docs := make([]bson.M, len(d))
		for i, e := range d {
			doc, err := toDoc(e)
			if err != nil {
				return nil, false, err
			}
			docs[i] = doc
		}
		return docs, true, nil
	case bson.A:
		return toDocList([]any(d))
	default:
		doc, err := toDoc(v)
		if err != nil {
			return nil, false, err
		}
		return []bson.M{doc}, false, nil
	}
}

// decodeCreate decodes a --create payload and defaults the visibility flag
// on every record without mutating the caller's documents.
func decodeCreate(data any) (CreatePayload, error) {
	docs, many, err := toDocList(data)
	if err != nil {
		return CreatePayload{}, err
	}
	if len(docs) == 0 {
		return CreatePayload{}, fmt.Errorf("%w: create requires a record", ErrInvalidPayload)
	}
	out := make([]bson.M, len(docs))
	for i, doc := range docs {
		out[i] = withDefaultVisibility(doc)
	}
	return CreatePayload{Records: out, Many: many}, nil
}

// withDefaultVisibility copies doc, adding visibility "private" when absent.
func withDefaultVisibility(doc bson.M) bson.M {
	out := make(bson.M, len(doc)+1)
	for k, v := range doc {
		out[k] = v
	}
	if _, ok := out["visibility"]; !ok {
		out["visibility"] = "private"
	}
	return out
}

// withNormalizedInventory copies update, replacing an embedded inventory
// with its normalized form. The caller's map is never written to.
func withNormalizedInventory(update bson.M) (bson.M, error) {
	out := make(bson.M, len(update))
	for k, v := range update {
		out[k] = v
	}
	if _, hasInv := out["inventory"]; !hasInv {
		return out, nil
	}
	doc := bson.M{"inventory": out["inventory"]}
	// Carry the product name along for SKU generation.
	if name, ok := out["name"]; ok {
		doc["name"] = name
	}
	normalized, err := normalizeInventoryDoc(doc)
	if err != nil {
		return nil, err
	}
	out["inventory"] = normalized
	return out, nil
}

// decodeFilter decodes a bare filter payload (--read, --delete, --verify).
func decodeFilter(data any) (ReadPayload, error) {
	filter, err := toDoc(data)
	if err != nil {
		return ReadPayload{}, err
	}
	return ReadPayload{Filter: filter}, nil
}

// decodeUpdate decodes a {filter, update} payload (--update, --append).
func decodeUpdate(data any) (UpdatePayload, error) {
	doc, err := toDoc(data)
	if err != nil {
		return UpdatePayload{}, err
	}
	rawFilter, ok := doc["filter"]
	if !ok {
		return UpdatePayload{}, fmt.Errorf("%w: missing filter", ErrInvalidPayload)
	}
	rawUpdate, ok := doc["update"]
	if !ok {
		return UpdatePayload{}, fmt.Errorf("%w: missing update", ErrInvalidPayload)
	}
	filter, err := toDoc(rawFilter)
	if err != nil {
		return UpdatePayload{}, err
	}
	update, err := toDoc(rawUpdate)
	if err != nil {
		return UpdatePayload{}, err
	}
	if len(update) == 0 {
		return UpdatePayload{}, fmt.Errorf("%w: empty update", ErrInvalidPayload)
	}
	return UpdatePayload{Filter: filter, Update: update}, nil
}

// decodeField decodes a {filter, field, value?} payload
// (--update-field, --delete-field).
func decodeField(data any, needsValue bool) (FieldPayload, error) {
	doc, err := toDoc(data)
	if err != nil {
		return FieldPayload{}, err
	}
	rawFilter, ok := doc["filter"]
	if !ok {
		return FieldPayload{}, fmt.Errorf("%w: missing filter", ErrInvalidPayload)
	}
	filter, err := toDoc(rawFilter)
	if err != nil {
		return FieldPayload{}, err
	}
	field, _ := doc["field"].(string)
	if field == "" {
		return FieldPayload{}, fmt.Errorf("%w: missing field name", ErrInvalidPayload)
	}
	value, hasValue := doc["value"]
	if needsValue && !hasValue {
		return FieldPayload{}, fmt.Errorf("%w: missing field value", ErrInvalidPayload)
	}
	return FieldPayload{Filter: filter, Field: field, Value: value}, nil
}

// decodeBlobCreate decodes a --create_video payload.
func decodeBlobCreate(data any) (BlobCreatePayload, error) {
	doc, err := toDoc(data)
	if err != nil {
		return BlobCreatePayload{}, err
	}
	video, _ := doc["video"].(string)
	if video == "" {
		return BlobCreatePayload{}, fmt.Errorf("%w: missing video payload", ErrInvalidPayload)
	}
	metadata := bson.M{}
	if raw, ok := doc["metadata"]; ok {
		metadata, err = toDoc(raw)
		if err != nil {
			return BlobCreatePayload{}, err
		}
	}
	return BlobCreatePayload{Video: video, Metadata: metadata}, nil
}

// decodeBlobRef decodes a --get_video / --delete_video payload.
func decodeBlobRef(data any) (BlobRefPayload, error) {
	doc, err := toDoc(data)
	if err != nil {
		return BlobRefPayload{}, err
	}
	id, _ := doc["parentId"].(string)
	if id == "" {
		// Callers that treat the blob like a record address it by _id.
		id, _ = doc["_id"].(string)
	}
	if id == "" {
		return BlobRefPayload{}, fmt.Errorf("%w: missing parentId", ErrInvalidPayload)
	}
	return BlobRefPayload{ParentID: id}, nil
}

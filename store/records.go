package store

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// handleCreate inserts one record or an array of records, normalizing any
// embedded inventory first. The success payload is the insertion
// acknowledgment including the new identifier(s).
func (s *Store) handleCreate(ctx context.Context, req Request) (any, error) {
	payload, err := decodeCreate(req.Data)
	if err != nil {
		return nil, err
	}
	for _, doc := range payload.Records {
		if _, hasInv := doc["inventory"]; hasInv {
			normalized, err := normalizeInventoryDoc(doc)
			if err != nil {
				return nil, err
			}
			doc["inventory"] = normalized
		}
	}

	coll, err := s.handle(ctx, req.Database, req.Collection)
	if err != nil {
		return nil, err
	}

	if payload.Many {
		docs := make([]any, len(payload.Records))
		for i, d := range payload.Records {
			docs[i] = d
		}
		res, err := coll.InsertMany(ctx, docs)
		if err != nil {
			return nil, err
		}
		ids := make([]string, len(res.InsertedIDs))
		for i, id := range res.InsertedIDs {
			ids[i] = stringifyID(id)
		}
		return bson.M{"acknowledged": true, "insertedIds": ids}, nil
	}

	res, err := coll.InsertOne(ctx, payload.Records[0])
	if err != nil {
		return nil, err
	}
	return bson.M{"acknowledged": true, "insertedId": stringifyID(res.InsertedID)}, nil
}

// handleRead disambiguates single-record and collection reads on the
// presence of an identifying key in the filter. An identifying key means
// one normalized record or a not-found failure; anything else, including
// an empty filter, means an array. A filter carrying an inventoryFilter
// sub-object switches to inventory-aware read handling.
func (s *Store) handleRead(ctx context.Context, req Request) (any, error) {
	payload, err := decodeFilter(req.Data)
	if err != nil {
		return nil, err
	}

	invFilter, hasInvFilter, err := extractInventoryFilter(payload.Filter)
	if err != nil {
		return nil, err
	}

	coll, err := s.handle(ctx, req.Database, req.Collection)
	if err != nil {
		return nil, err
	}

	if hasIDKey(payload.Filter) {
		var doc bson.M
		err := coll.FindOne(ctx, canonicalFilter(payload.Filter)).Decode(&doc)
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		if err != nil {
			return nil, err
		}
		out := normalizeOut(doc)
		if hasInvFilter {
			out = applyInventoryFilter(out, invFilter)
		}
		return out, nil
	}

	cursor, err := coll.Find(ctx, canonicalFilter(payload.Filter))
	if err != nil {
		return nil, err
	}
	var docs []bson.M
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]bson.M, len(docs))
	for i, doc := range docs {
		out[i] = normalizeOut(doc)
		if hasInvFilter {
			out[i] = applyInventoryFilter(out[i], invFilter)
		}
	}
	return out, nil
}

// handleUpdate applies a partial field merge, never a full-document
// replace. An embedded inventory update is normalized first; normalization
// failure rejects the whole write.
func (s *Store) handleUpdate(ctx context.Context, req Request) (any, error) {
	payload, err := decodeUpdate(req.Data)
	if err != nil {
		return nil, err
	}
	update, err := withNormalizedInventory(payload.Update)
	if err != nil {
		return nil, err
	}

	coll, err := s.handle(ctx, req.Database, req.Collection)
	if err != nil {
		return nil, err
	}
	res, err := coll.UpdateOne(ctx, canonicalFilter(payload.Filter), bson.M{"$set": update})
	if err != nil {
		return nil, err
	}
	return bson.M{
		"acknowledged":  true,
		"matchedCount":  res.MatchedCount,
		"modifiedCount": res.ModifiedCount,
	}, nil
}

// handleDelete removes at most one matching record.
func (s *Store) handleDelete(ctx context.Context, req Request) (any, error) {
	payload, err := decodeFilter(req.Data)
	if err != nil {
		return nil, err
	}
	coll, err := s.handle(ctx, req.Database, req.Collection)
	if err != nil {
		return nil, err
	}
	res, err := coll.DeleteOne(ctx, canonicalFilter(payload.Filter))
	if err != nil {
		return nil, err
	}
	return bson.M{"acknowledged": true, "deletedCount": res.DeletedCount}, nil
}

// handleVerify checks existence only, bounded to one match, without
// leaking record contents.
func (s *Store) handleVerify(ctx context.Context, req Request) (any, error) {
	payload, err := decodeFilter(req.Data)
	if err != nil {
		return nil, err
	}
	coll, err := s.handle(ctx, req.Database, req.Collection)
	if err != nil {
		return nil, err
	}
	exists, err := existsIn(ctx, coll, canonicalFilter(payload.Filter))
	if err != nil {
		return nil, err
	}
	return bson.M{"exists": exists}, nil
}

// handleAppend merges new fields into an existing record. The target must
// already exist; fields not named in the payload are left untouched.
func (s *Store) handleAppend(ctx context.Context, req Request) (any, error) {
	payload, err := decodeUpdate(req.Data)
	if err != nil {
		return nil, err
	}
	coll, err := s.handle(ctx, req.Database, req.Collection)
	if err != nil {
		return nil, err
	}

	filter := canonicalFilter(payload.Filter)
	exists, err := existsIn(ctx, coll, filter)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrNotFound
	}

	res, err := coll.UpdateOne(ctx, filter, bson.M{"$set": payload.Update})
	if err != nil {
		return nil, err
	}
	return bson.M{
		"acknowledged":  true,
		"matchedCount":  res.MatchedCount,
		"modifiedCount": res.ModifiedCount,
	}, nil
}

// handleUpdateField sets a single field on an existing record.
func (s *Store) handleUpdateField(ctx context.Context, req Request) (any, error) {
	payload, err := decodeField(req.Data, true)
	if err != nil {
		return nil, err
	}
	return s.singleFieldOp(ctx, req, payload.Filter, bson.M{"$set": bson.M{payload.Field: payload.Value}})
}

// handleDeleteField unsets a single field on an existing record.
func (s *Store) handleDeleteField(ctx context.Context, req Request) (any, error) {
	payload, err := decodeField(req.Data, false)
	if err != nil {
		return nil, err
	}
	return s.singleFieldOp(ctx, req, payload.Filter, bson.M{"$unset": bson.M{payload.Field: ""}})
}

// singleFieldOp runs the shared existence-check-then-update sequence for
// the field commands.
func (s *Store) singleFieldOp(ctx context.Context, req Request, filter bson.M, update bson.M) (any, error) {
	coll, err := s.handle(ctx, req.Database, req.Collection)
	if err != nil {
		return nil, err
	}

	canonical := canonicalFilter(filter)
	exists, err := existsIn(ctx, coll, canonical)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrNotFound
	}

	res, err := coll.UpdateOne(ctx, canonical, update)
	if err != nil {
		return nil, err
	}
	return bson.M{
		"acknowledged":  true,
		"matchedCount":  res.MatchedCount,
		"modifiedCount": res.ModifiedCount,
	}, nil
}

// existsIn reports whether any record matches filter, bounded to one.
func existsIn(ctx context.Context, coll *mongo.Collection, filter bson.M) (bool, error) {
	count, err := coll.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// hasIDKey reports whether the filter carries the internal identifier
// under either its raw or stringified alias. Any other field, unique or
// not, keeps collection semantics.
func hasIDKey(filter bson.M) bool {
	if _, ok := filter["_id"]; ok {
		return true
	}
	_, ok := filter["id"]
	return ok
}

// canonicalFilter copies the filter, folding the "id" alias into "_id",
// converting hex identifier strings into ObjectIDs, and dropping the
// inventoryFilter augmentation, which is not a stored field.
func canonicalFilter(filter bson.M) bson.M {
	out := make(bson.M, len(filter))
	for k, v := range filter {
		switch k {
		case "id", "_id":
			out["_id"] = canonicalID(v)
		case "inventoryFilter":
		default:
			out[k] = v
		}
	}
	return out
}

// canonicalID converts a stringified identifier back to an ObjectID when
// it parses as one; anything else passes through untouched.
func canonicalID(v any) any {
	if s, ok := v.(string); ok {
		if oid, err := primitive.ObjectIDFromHex(s); err == nil {
			return oid
		}
	}
	return v
}

// stringifyID renders any identifier value as a string.
func stringifyID(v any) string {
	if oid, ok := v.(primitive.ObjectID); ok {
		return oid.Hex()
	}
	return fmt.Sprintf("%v", v)
}

// normalizeOut prepares a stored document for return: the identifier is
// stringified and a compressed payload marker is stripped of its raw bytes.
func normalizeOut(doc bson.M) bson.M {
	out := make(bson.M, len(doc))
	for k, v := range doc {
		out[k] = v
	}
	if id, ok := out["_id"]; ok {
		out["_id"] = stringifyID(id)
	}
	if compressed, ok := out["compressed"]; ok {
		switch c := compressed.(type) {
		case bson.M:
			stripped := make(bson.M, len(c))
			for k, v := range c {
				if k == "data" {
					continue
				}
				stripped[k] = v
			}
			out["compressed"] = stripped
		case map[string]any:
			return normalizeOutWith(out, bson.M(c))
		case primitive.Binary, []byte:
			// Bare compressed bytes carry no flags worth keeping.
			out["compressed"] = true
		}
	}
	return out
}

// normalizeOutWith handles the map[string]any spelling of the compressed
// marker without duplicating the strip loop.
func normalizeOutWith(out bson.M, c bson.M) bson.M {
	stripped := make(bson.M, len(c))
	for k, v := range c {
		if k == "data" {
			continue
		}
		stripped[k] = v
	}
	out["compressed"] = stripped
	return out
}

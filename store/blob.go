package store

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/jacentio/strata/internal/chunk"
)

// Document kinds distinguishing blob bookkeeping documents from ordinary
// records in the same collection.
const (
	KindMetadata = "metadata"
	KindChunk    = "chunk"
)

const defaultContentType = "video/mp4"

// chunkIndexName is the compound index ensured on collections that hold
// chunk documents, so retrieval by parent id and sequence is never a scan.
const chunkIndexName = "parentId_1_index_1"

// handleCreateVideo stores a base64 data-URI video payload as chunks plus
// one metadata document.
func (s *Store) handleCreateVideo(ctx context.Context, req Request) (any, error) {
	payload, err := decodeBlobCreate(req.Data)
	if err != nil {
		return nil, err
	}
	contentType, data, err := parseDataURI(payload.Video)
	if err != nil {
		return nil, err
	}
	meta := make(bson.M, len(payload.Metadata)+1)
	for k, v := range payload.Metadata {
		meta[k] = v
	}
	if _, ok := meta["contentType"]; !ok {
		meta["contentType"] = contentType
	}
	return s.storeBlob(ctx, req.Database, req.Collection, data, meta)
}

// handleGetVideo reassembles a stored video and returns it as a base64
// data-URI string alongside its metadata.
func (s *Store) handleGetVideo(ctx context.Context, req Request) (any, error) {
	payload, err := decodeBlobRef(req.Data)
	if err != nil {
		return nil, err
	}
	data, meta, err := s.retrieveBlob(ctx, req.Database, req.Collection, payload.ParentID)
	if err != nil {
		return nil, err
	}
	contentType, _ := meta["contentType"].(string)
	if contentType == "" {
		contentType = defaultContentType
	}
	return bson.M{
		"parentId": payload.ParentID,
		"video":    formatDataURI(contentType, data),
		"metadata": normalizeOut(meta),
	}, nil
}

// handleDeleteVideo removes a blob's metadata and chunks as two bulk
// operations, reporting both acknowledgments.
func (s *Store) handleDeleteVideo(ctx context.Context, req Request) (any, error) {
	payload, err := decodeBlobRef(req.Data)
	if err != nil {
		return nil, err
	}
	return s.deleteBlob(ctx, req.Database, req.Collection, payload.ParentID)
}

// storeBlob splits payload into fixed-size chunks persisted as ordinary
// documents tagged with a fresh parent identifier, writing the metadata
// document first so a reader can detect an in-progress write by
// chunk-count mismatch. Chunks go out in batches to bound request size.
func (s *Store) storeBlob(ctx context.Context, database, collection string, payload []byte, metadata bson.M) (bson.M, error) {
	coll, err := s.handle(ctx, database, collection)
	if err != nil {
		return nil, err
	}
	if err := s.ensureChunkIndex(ctx, coll, database, collection); err != nil {
		return nil, err
	}

	parentID := uuid.NewString()
	pieces := chunk.Split(payload, s.config.ChunkSize)

	meta := bson.M{}
	for k, v := range metadata {
		meta[k] = v
	}
	meta["parentId"] = parentID
	meta["kind"] = KindMetadata
	meta["length"] = len(payload)
	meta["chunkCount"] = len(pieces)
	meta["chunkSize"] = s.config.ChunkSize
	meta["createdAt"] = time.Now().UTC()

	if _, err := coll.InsertOne(ctx, meta); err != nil {
		return nil, err
	}

	batch := make([]any, 0, s.config.ChunkBatchSize)
	for i, piece := range pieces {
		batch = append(batch, bson.M{
			"parentId": parentID,
			"kind":     KindChunk,
			"index":    i,
			"data":     primitive.Binary{Subtype: 0x00, Data: piece},
		})
		if len(batch) == s.config.ChunkBatchSize || i == len(pieces)-1 {
			if _, err := coll.InsertMany(ctx, batch); err != nil {
				return nil, fmt.Errorf("chunk batch ending at %d: %w", i, err)
			}
			batch = batch[:0]
		}
	}

	s.logger.Info("blob stored",
		"parentId", parentID,
		"bytes", len(payload),
		"chunks", len(pieces),
	)
	return bson.M{
		"acknowledged": true,
		"parentId":     parentID,
		"length":       len(payload),
		"chunkCount":   len(pieces),
	}, nil
}

// retrieveBlob reads the metadata document and all chunk documents for
// parentID, reassembling the original payload. Retrieval fails on a
// chunk-count or byte-length mismatch rather than silently returning
// truncated data.
func (s *Store) retrieveBlob(ctx context.Context, database, collection, parentID string) ([]byte, bson.M, error) {
	coll, err := s.handle(ctx, database, collection)
	if err != nil {
		return nil, nil, err
	}

	var meta bson.M
	err = coll.FindOne(ctx, bson.M{"parentId": parentID, "kind": KindMetadata}).Decode(&meta)
	if err == mongo.ErrNoDocuments {
		return nil, nil, ErrNotFound
	}
	if err != nil {
		return nil, nil, err
	}
	wantChunks, _ := asInt(meta["chunkCount"])
	wantLength, _ := asInt(meta["length"])

	cursor, err := coll.Find(ctx,
		bson.M{"parentId": parentID, "kind": KindChunk},
		options.Find().SetSort(bson.D{{Key: "index", Value: 1}}),
	)
	if err != nil {
		return nil, nil, err
	}
	var chunkDocs []bson.M
	if err := cursor.All(ctx, &chunkDocs); err != nil {
		return nil, nil, err
	}

	pieces := make([][]byte, 0, len(chunkDocs))
	for _, doc := range chunkDocs {
		data, ok := doc["data"].(primitive.Binary)
		if !ok {
			return nil, nil, fmt.Errorf("%w: chunk %v has no binary payload", ErrBlobCorrupt, doc["index"])
		}
		pieces = append(pieces, data.Data)
	}

	payload, err := chunk.Join(pieces, wantChunks, wantLength)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrBlobCorrupt, err)
	}
	return payload, meta, nil
}

// deleteBlob removes the metadata document and every chunk document for
// parentID as two bulk operations. The two acknowledgments are reported
// separately so a caller can detect the partial-failure case where
// metadata is gone but chunks remain.
func (s *Store) deleteBlob(ctx context.Context, database, collection, parentID string) (bson.M, error) {
	coll, err := s.handle(ctx, database, collection)
	if err != nil {
		return nil, err
	}

	metaRes, err := coll.DeleteMany(ctx, bson.M{"parentId": parentID, "kind": KindMetadata})
	if err != nil {
		return nil, err
	}
	ack := bson.M{
		"acknowledged": true,
		"metadata":     bson.M{"deletedCount": metaRes.DeletedCount},
	}

	chunkRes, err := coll.DeleteMany(ctx, bson.M{"parentId": parentID, "kind": KindChunk})
	if err != nil {
		// Metadata is already gone; the orphaned chunks are now sweep
		// territory. Report what happened instead of hiding it.
		ack["acknowledged"] = false
		ack["chunks"] = bson.M{"deletedCount": 0, "error": err.Error()}
		s.logger.Warn("blob delete left orphaned chunks",
			"parentId", parentID,
			"error", err,
		)
		return ack, nil
	}
	ack["chunks"] = bson.M{"deletedCount": chunkRes.DeletedCount}
	return ack, nil
}

// ensureChunkIndex creates the {parentId, index} compound index once per
// (database, collection) per client generation, tracked in the handle cache.
func (s *Store) ensureChunkIndex(ctx context.Context, coll *mongo.Collection, database, collection string) error {
	key := database + "." + collection + "#" + chunkIndexName
	if !s.cache.markIndexed(key) {
		return nil
	}
	_, err := coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "parentId", Value: 1}, {Key: "index", Value: 1}},
		Options: options.Index().SetName(chunkIndexName),
	})
	if err != nil {
		return fmt.Errorf("ensure chunk index: %w", err)
	}
	return nil
}

// --- data-URI handling ---

// parseDataURI decodes a "data:<type>;base64,<payload>" string. A bare
// base64 string without the prefix is accepted with the default content
// type.
func parseDataURI(s string) (contentType string, data []byte, err error) {
	contentType = defaultContentType
	payload := s
	if strings.HasPrefix(s, "data:") {
		rest := s[len("data:"):]
		marker := strings.Index(rest, ";base64,")
		if marker < 0 {
			return "", nil, fmt.Errorf("%w: malformed data URI", ErrInvalidPayload)
		}
		if rest[:marker] != "" {
			contentType = rest[:marker]
		}
		payload = rest[marker+len(";base64,"):]
	}
	data, err = base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("%w: invalid base64 video payload", ErrInvalidPayload)
	}
	return contentType, data, nil
}

// formatDataURI wraps raw bytes in the data-URI form callers expect back.
func formatDataURI(contentType string, data []byte) string {
	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

package store

import (
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/mongo"
)

var (
	// ErrNotFound is returned when a requested record or blob doesn't exist.
	ErrNotFound = errors.New("strata: record not found")

	// ErrUnknownCommand is returned for a command tag the dispatcher
	// doesn't recognize.
	ErrUnknownCommand = errors.New("strata: unknown command")

	// ErrMissingCollection is returned when a request names no collection.
	ErrMissingCollection = errors.New("strata: collection name is required")

	// ErrInvalidPayload is returned when a command payload has the wrong shape.
	ErrInvalidPayload = errors.New("strata: invalid payload for command")

	// ErrUnavailable is returned when the backing store can't be reached
	// and a rebuild of the client failed.
	ErrUnavailable = errors.New("strata: backing store unavailable")

	// ErrBlobCorrupt is returned when a retrieved blob fails its
	// chunk-count or byte-length integrity check.
	ErrBlobCorrupt = errors.New("strata: blob failed integrity check")

	// ErrUnresolvedVariant is returned when an inventory variant references
	// a color or size that isn't in the record's lists.
	ErrUnresolvedVariant = errors.New("strata: variant references unknown color or size")
)

// Kind classifies a failure for the dispatcher's retry policy.
type Kind int

const (
	// KindInternal covers unexpected failures with no better classification.
	KindInternal Kind = iota

	// KindValidation covers malformed requests; never retried.
	KindValidation

	// KindNotFound covers absent records and blobs; an expected outcome,
	// never retried.
	KindNotFound

	// KindTransient covers closed/broken connections and timeouts; retried
	// with a client rebuild.
	KindTransient
)

// transientVocabulary matches driver failures that wrap network errors in
// plain messages. Typed checks run first; this is the fallback for errors
// the driver surfaces as strings.
var transientVocabulary = []string{
	"connection closed",
	"connection reset",
	"connection refused",
	"not connected",
	"timed out",
	"pool closed",
	"pool is closed",
	"server selection error",
	"socket was unexpectedly closed",
	"client is disconnected",
}

// Classify maps an error to its Kind at the point of origin.
func Classify(err error) Kind {
	if err == nil {
		return KindInternal
	}

	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, mongo.ErrNoDocuments):
		return KindNotFound
	case errors.Is(err, ErrUnknownCommand),
		errors.Is(err, ErrMissingCollection),
		errors.Is(err, ErrInvalidPayload),
		errors.Is(err, ErrUnresolvedVariant):
		return KindValidation
	case errors.Is(err, ErrUnavailable):
		return KindTransient
	}

	if mongo.IsNetworkError(err) || mongo.IsTimeout(err) {
		return KindTransient
	}

	msg := strings.ToLower(err.Error())
	for _, probe := range transientVocabulary {
		if strings.Contains(msg, probe) {
			return KindTransient
		}
	}

	return KindInternal
}

// IsTransient reports whether err should trigger a client rebuild.
func IsTransient(err error) bool {
	return Classify(err) == KindTransient
}

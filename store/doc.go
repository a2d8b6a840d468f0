// Package store provides a MongoDB data access layer with connection
// repair, a fixed command vocabulary, and chunked blob storage.
//
// Strata is the single component every business route funnels through: it
// owns the pooled client, health-probes and rebuilds it on transient
// failure, memoizes collection handles, and implements manual
// splitting/reassembly of binary payloads too large for one document.
//
// # Key Features
//
//   - Lazy pooled connection with acknowledged, journaled writes
//   - Ping-probe health checks with teardown-and-rebuild on failure
//   - Wholesale handle cache invalidation per reconnect
//   - Bounded retry with exponential backoff around every dispatch
//   - create/read/update/delete/verify/append/field-patch record handlers
//   - Chunked blob storage with count and byte-length integrity checks
//   - Structural normalization of per-variant inventory records
//
// # Usage
//
// Construct a Store and funnel every operation through [Store.Execute]:
//
//	s := store.New(store.DefaultConfig())
//	defer s.Close(ctx)
//
//	res := s.Execute(ctx, store.Request{
//	    Database:   "shop",
//	    Collection: "products",
//	    Command:    store.CmdRead,
//	    Data:       bson.M{"_id": id},
//	})
//
// Results are structured, never panics: exactly one of Result.Data and
// Result.Error is populated, and Result.Status mirrors Result.Success for
// legacy callers.
//
// # Errors
//
// The package defines domain-specific errors, classified by [Classify]
// into validation, not-found, transient, and internal kinds:
//
//   - [ErrNotFound] - requested record or blob doesn't exist
//   - [ErrUnknownCommand] - unrecognized command tag
//   - [ErrInvalidPayload] - malformed command payload
//   - [ErrUnavailable] - backing store unreachable after rebuild
//   - [ErrBlobCorrupt] - blob failed its integrity check
//   - [ErrUnresolvedVariant] - inventory variant references unknown color/size
package store

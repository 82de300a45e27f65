// Package ballotengine runs the assembly ballot engine.
//
// It owns resolutions, their options and eligibility rules, and the ballots
// cast against them. A ballot, its cast and the public rollcall row are
// written in one transaction guarded by the (resolution_id, dedup_key) unique
// index, so a person or a delegation votes at most once per resolution.
// Lifecycle events leave through a transactional outbox and are turned into
// member notifications by the worker process.
package ballotengine

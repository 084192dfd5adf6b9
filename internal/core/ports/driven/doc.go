// Package driven provides interfaces for infrastructure adapters
// (secondary/outbound ports): the chunk store, embedding and generation
// services, text extractors and document sources.
//
// Implementations live under internal/adapters/driven, internal/extractors
// and internal/connectors.
package driven

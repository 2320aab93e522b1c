// Package gateway implements the request forwarder: the catch-all HTTP
// handler that classifies an inbound CLI request, selects an upstream
// provider, rewrites the request, and proxies it in buffered or streaming
// mode under a layered timeout regime.
//
// Every terminated request feeds back into provider health (consecutive
// failures, blacklisting) and produces exactly one telemetry record. The
// streaming path pumps upstream chunks to the caller at chunk granularity
// while scanning SSE frames for token usage; it never waits for EOF before
// flushing.
package gateway

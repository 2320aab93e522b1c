// Package proxy implements request shaping for the gateway: CLI client
// classification, the streaming decision, model mapping, header filtering,
// authentication install, upstream URL assembly, and token-usage extraction
// from upstream responses.
//
// The three supported CLI clients (Claude Code, Codex, Gemini) differ in
// where they carry the model identifier, how they signal streaming, which
// authentication header their upstreams expect, and how usage metadata is
// shaped. Everything in this package branches on CliType, a closed enum;
// no open extension point is provided.
//
// The package is pure: it performs no I/O and holds no state, which keeps
// every shaping rule independently testable.
package proxy

// CCG Gateway is a local HTTP gateway that multiplexes CLI AI assistants
// (Claude Code, Codex, Gemini) across configurable pools of upstream API
// providers.
//
// It terminates each assistant's connection, selects an eligible provider,
// rewrites authentication and model identifiers, and forwards the request,
// streaming Server-Sent-Event responses through at chunk granularity.
// Misbehaving providers are blacklisted after consecutive failures, and
// every request is recorded with token usage for the operator UI.
//
// Usage:
//
//	# Start the gateway with defaults (127.0.0.1:7788)
//	ccg run
//
//	# Start with a configuration file
//	ccg run --config /path/to/config.yaml
//
//	# Show version information
//	ccg version
package main

func main() {
	Execute()
}

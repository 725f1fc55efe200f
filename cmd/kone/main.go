// Kone is a multi-provider LLM gateway core.
//
// It routes chat requests across OpenAI-compatible and Anthropic upstreams,
// rotating API keys and cooling down rate-limited providers, and probes
// every available model on a schedule to track which ones work.
//
// Usage:
//
//	# Start the gateway with its health checker and ops server
//	kone run --config config.yaml
//
//	# List the models every enabled provider serves
//	kone models
//
//	# Send one chat request through the router
//	kone chat groq/llama-3.3-70b-versatile "Say hello"
//
//	# Probe models once and print their status
//	kone check --fail-on-error
//
//	# Validate the configuration
//	kone validate
package main

import "os"

func main() {
	os.Exit(Execute())
}

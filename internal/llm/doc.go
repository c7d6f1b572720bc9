// Package llm provides an OpenRouter chat client used to summarise video transcripts.
//
// # Entry Points
//
// NewClient: construct a client from Config.
// Client.Complete: send system/user prompts, receive the assistant text.
// Client.Summarize: summary of one transcript, truncated to MaxTranscriptChars.
//
// # Retry Behaviour
//
// The client retries on HTTP 408/429/5xx errors and network timeouts with
// exponential backoff (base 1s, max 10s, up to 3 attempts by default).
// Retry-After is honoured up to the max delay. Context cancellation aborts
// retries immediately.
package llm

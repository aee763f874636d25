// Package llm adapts text-generation providers to ports.TextGenerator.
//
// Client wraps any langchaingo model (OpenAI and compatible endpoints through
// NewOpenAI). Scripted is a deterministic generator for tests and offline runs.
package llm

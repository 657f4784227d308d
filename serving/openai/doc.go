// Package openai implements serving.Serving over OpenAI-compatible chat
// completion APIs using langchaingo.
//
// Every input becomes one chat request with a system message and a user
// message. Requests run concurrently through an orchestrator bounded by
// Config.MaxWorkers. Reasoning content returned by the backend is folded
// into the result with serving.FormatReasoning.
package openai

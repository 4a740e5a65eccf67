// Package file provides filesystem-backed implementations of driven ports.
//
// Adapters:
//   - ConfigStore: TOML configuration at ~/.sercha-chat/config.toml
//   - PromptStore: editable prompt templates under ~/.sercha-chat/prompts/
package file

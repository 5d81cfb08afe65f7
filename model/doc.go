// Package model defines the provider agnostic interface for language models.
// Concrete adapters for OpenAI and Anthropic live in subpackages; MockModel
// supports tests and examples without network access.
package model

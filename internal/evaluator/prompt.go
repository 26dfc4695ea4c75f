package evaluator

import (
	_ "embed"
)

// SystemPrompt is the system-level instruction for the LLM label fallback.
// Loaded from prompts/system.md at compile time.
//
//go:embed prompts/system.md
var SystemPrompt string

// UserPromptTemplate is the user-level prompt template.
// The screen header and rendered rows are appended after this template
// at runtime.
// Loaded from prompts/user.md at compile time.
//
//go:embed prompts/user.md
var UserPromptTemplate string

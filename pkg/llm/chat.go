package llm

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/schema"
)

// SystemPrompt is the fixed instruction block for the answer model. It binds
// the model to the provided excerpts and to the citation format
// "Bihar ul Anwar, Volume X, Chapter Y, Hadith Z".
const SystemPrompt = `You are a specialist in Bihar ul Anwar, the 110-volume hadith collection by Allama Muhammad Baqir Majlisi. You MUST follow these strict rules:

CONTENT RULES:
1. Use ONLY the provided excerpts from Bihar ul Anwar - NO external knowledge
2. If the excerpts don't contain enough information, say "The provided excerpts are insufficient"
3. NEVER add general Islamic knowledge not found in the excerpts
4. Focus ONLY on actual hadith/traditions, NOT table of contents or indexes

REFERENCE RULES:
1. ALWAYS cite sources as: "Bihar ul Anwar, Volume X, Chapter Y, Hadith Z"
2. If hadith number is missing, use: "Bihar ul Anwar, Volume X, Chapter Y"
3. If chapter is missing, use: "Bihar ul Anwar, Volume X"
4. NEVER include long quotes - only give clean references

RESPONSE FORMAT:
1. Start with a direct answer based ONLY on provided content
2. List specific references at the end
3. If asking about a chapter summary, extract ONLY key points from that chapter
4. Do NOT elaborate beyond what's in the excerpts

FORBIDDEN:
- General Islamic explanations not in the text
- Interpretations beyond the provided content
- Long quotations in responses
- References to sources other than Bihar ul Anwar
- Table of contents or index information as hadith content`

// ChatConfig represents the configuration for the answer engine.
type ChatConfig struct {
	Model          string
	Temperature    float64
	MaxTokens      int
	SystemTemplate string
	BaseURL        string
}

// ChatEngine generates grounded answers from an assembled context block.
type ChatEngine struct {
	config ChatConfig
	llm    llms.Model
}

// NewChatWithConfig creates a new ChatEngine with the given configuration.
func NewChatWithConfig(config ChatConfig) (*ChatEngine, error) {
	if config.Model == "" {
		config.Model = "mistral"
	}
	if config.Temperature <= 0 || config.Temperature > 1 {
		return nil, fmt.Errorf("temperature must be between 0 and 1")
	}
	if config.MaxTokens < 0 {
		return nil, fmt.Errorf("max tokens cannot be negative")
	} else if config.MaxTokens == 0 {
		config.MaxTokens = 1500
	}
	if config.SystemTemplate == "" {
		config.SystemTemplate = SystemPrompt
	}
	if config.BaseURL == "" {
		config.BaseURL = "http://localhost:11434"
	}

	llm, err := ollama.New(ollama.WithModel(config.Model),
		ollama.WithServerURL(config.BaseURL))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize LLM: %w", err)
	}

	return &ChatEngine{
		config: config,
		llm:    llm,
	}, nil
}

// Answer generates a response for the query grounded in the context block.
// The caller is responsible for not calling this with an empty context; an
// empty ranked result should short-circuit before generation.
func (ce *ChatEngine) Answer(ctx context.Context, query, contextBlock string) (string, error) {
	prompt := fmt.Sprintf(`EXCERPTS FROM BIHAR UL ANWAR:
%s

USER QUESTION: %s

INSTRUCTIONS: Answer using ONLY the content above. Provide specific Bihar ul Anwar references. Do NOT add external knowledge or long quotes.

ANSWER:`, contextBlock, query)

	content := []llms.MessageContent{
		llms.TextParts(schema.ChatMessageTypeSystem, ce.config.SystemTemplate),
		llms.TextParts(schema.ChatMessageTypeHuman, prompt),
	}

	response, err := ce.llm.GenerateContent(ctx, content,
		llms.WithTemperature(ce.config.Temperature),
		llms.WithMaxTokens(ce.config.MaxTokens),
	)
	if err != nil {
		return "", fmt.Errorf("chat error: %w", err)
	}
	if len(response.Choices) == 0 {
		return "", fmt.Errorf("no response from LLM")
	}

	return response.Choices[0].Content, nil
}

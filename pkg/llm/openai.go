package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

type OpenAIClient struct {
	client    *openai.Client
	model     openai.ChatModel
	modelName string
}

func NewOpenAIClient(apiKey string) *OpenAIClient {
	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &OpenAIClient{
		client:    &client,
		model:     openai.ChatModelGPT4oMini,
		modelName: "gpt-4o-mini",
	}
}

func (c *OpenAIClient) GenerateDigest(input DigestInput) (*DigestResult, error) {
	resp, err := c.client.Chat.Completions.New(context.Background(), openai.ChatCompletionNewParams{
		Model: c.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(digestSystemPrompt),
			openai.UserMessage(buildDigestPrompt(input)),
		},
	})

	if err != nil {
		return nil, fmt.Errorf("openai API error: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response from openai")
	}

	content := cleanJSONResponse(resp.Choices[0].Message.Content)

	var parsed struct {
		Title   string `json:"title"`
		Summary string `json:"summary"`
	}

	err = json.Unmarshal([]byte(content), &parsed)
	if err != nil {
		return nil, fmt.Errorf("failed to parse response: %w, content: %s", err, content)
	}

	if parsed.Title == "" || parsed.Summary == "" {
		return nil, fmt.Errorf("incomplete digest in response: %s", content)
	}

	return &DigestResult{
		Title:     parsed.Title,
		Summary:   parsed.Summary,
		ModelUsed: c.modelName,
	}, nil
}

func (c *OpenAIClient) RankDigests(profile Profile, digests []RankInput) ([]RankedArticle, error) {
	if len(digests) == 0 {
		return nil, nil
	}

	resp, err := c.client.Chat.Completions.New(context.Background(), openai.ChatCompletionNewParams{
		Model: c.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(buildCuratorSystemPrompt(profile)),
			openai.UserMessage(buildCuratorPrompt(digests)),
		},
	})

	if err != nil {
		return nil, fmt.Errorf("openai API error: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response from openai")
	}

	return parseRanking(resp.Choices[0].Message.Content, digests)
}

// parseRanking validates the model output against the digests that were
// actually offered; ids the model invented or repeated are dropped, and
// an empty result is an error so an unranked email is never sent.
func parseRanking(content string, digests []RankInput) ([]RankedArticle, error) {
	content = cleanJSONResponse(content)

	var parsed struct {
		Articles []RankedArticle `json:"articles"`
	}
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse ranking response: %w, content: %s", err, content)
	}

	known := make(map[string]bool, len(digests))
	for _, d := range digests {
		known[d.ID] = true
	}

	var ranked []RankedArticle
	seen := make(map[string]bool, len(parsed.Articles))
	for _, a := range parsed.Articles {
		if !known[a.DigestID] || seen[a.DigestID] {
			continue
		}
		seen[a.DigestID] = true
		ranked = append(ranked, a)
	}

	if len(ranked) == 0 {
		return nil, fmt.Errorf("ranking response contained no usable articles: %s", content)
	}

	return ranked, nil
}

func cleanJSONResponse(content string) string {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	// Some model responses include extra prose around JSON.
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start >= 0 && end > start {
		content = content[start : end+1]
	}
	return content
}

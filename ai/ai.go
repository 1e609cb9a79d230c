// Package ai calls a hosted chat-completion endpoint to draft form questions
// from a title or prompt. Its output is never trusted: the authoring engine
// pushes every suggested question through the type registry before applying.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/formloom/formloom/model"
)

type Client struct {
	httpClient *http.Client
	apiURL     string
	apiKey     string
	model      string
}

func New(apiURL, apiKey, modelName string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 60 * time.Second},
		apiURL:     apiURL,
		apiKey:     apiKey,
		model:      modelName,
	}
}

// Available reports whether an API key is configured.
func (c *Client) Available() bool {
	return c.apiKey != ""
}

const systemPrompt = `You are a form design assistant. The user describes the form they want. Respond with ONLY valid JSON (no markdown, no code fences) in this format:

{
  "questions": [
    {
      "type": "one of: short_text, long_text, email, phone_number, website, multiple_choice, dropdown, checkbox, picture_choice, ranking, yes_no, rating, opinion_scale, statement, date, number, file_upload, legal",
      "title": "the question text",
      "required": true,
      "options": [{"label": "..."}]
    }
  ]
}

Only choice types (multiple_choice, dropdown, checkbox, picture_choice, ranking) take options, with at least 2. Use the language of the user's prompt.`

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

type suggestion struct {
	Questions []model.Question `json:"questions"`
}

// SuggestQuestions asks the completion endpoint for a candidate question
// list. The result conforms to the model shapes but has not been normalized.
func (c *Client) SuggestQuestions(ctx context.Context, prompt string) ([]model.Question, error) {
	if !c.Available() {
		return nil, errors.New("ai: no api key configured")
	}

	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("content-type", "application/json")
	req.Header.Set("authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ai: completion endpoint returned %d", resp.StatusCode)
	}

	var chat chatResponse
	err = json.Unmarshal(raw, &chat)
	if err != nil {
		return nil, err
	}
	if chat.Error != nil {
		return nil, fmt.Errorf("ai: %s", chat.Error.Message)
	}
	if len(chat.Choices) == 0 {
		return nil, errors.New("ai: empty completion")
	}

	content := stripFences(chat.Choices[0].Message.Content)

	var out suggestion
	err = json.Unmarshal([]byte(content), &out)
	if err != nil {
		return nil, fmt.Errorf("ai: malformed suggestion: %w", err)
	}
	return out.Questions, nil
}

// stripFences tolerates models that wrap the JSON in a markdown code block
// despite the prompt.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if i := strings.LastIndex(s, "```"); i >= 0 {
			s = s[:i]
		}
	}
	return strings.TrimSpace(s)
}

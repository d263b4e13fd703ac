package discovery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/jobsift/jobsift/internal/model"
)

// OpenAIResearcher calls the OpenAI /v1/chat/completions endpoint in JSON
// mode to identify target companies.
type OpenAIResearcher struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

// NewOpenAIResearcher creates a researcher targeting the OpenAI API.
func NewOpenAIResearcher(baseURL, apiKey, model string, httpClient *http.Client) *OpenAIResearcher {
	return &OpenAIResearcher{
		baseURL:    baseURL,
		apiKey:     apiKey,
		model:      model,
		httpClient: httpClient,
	}
}

// chatRequest mirrors the OpenAI /v1/chat/completions request body.
type chatRequest struct {
	Model          string         `json:"model"`
	Messages       []chatMessage  `json:"messages"`
	MaxTokens      int            `json:"max_tokens"`
	ResponseFormat responseFormat `json:"response_format"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

// chatResponse mirrors the relevant fields of the OpenAI response.
type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// companiesPayload is the JSON shape the prompt asks the model for.
type companiesPayload struct {
	Companies []struct {
		Name     string `json:"name"`
		Reason   string `json:"reason"`
		Industry string `json:"industry"`
	} `json:"companies"`
}

// IdentifyTargets asks the model for target companies for role (and
// optionally location). Every failure mode is a *model.ServiceError.
func (r *OpenAIResearcher) IdentifyTargets(ctx context.Context, role, location string) ([]model.Target, error) {
	user := "Role: " + role
	if location != "" {
		user += "\nPreferred location: " + location
	}

	reqBody := chatRequest{
		Model: r.model,
		Messages: []chatMessage{
			{Role: "system", Content: targetResearchPrompt},
			{Role: "user", Content: user},
		},
		MaxTokens:      1500,
		ResponseFormat: responseFormat{Type: "json_object"},
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, &model.ServiceError{Op: "marshal research request", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, &model.ServiceError{Op: "create research request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+r.apiKey)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, &model.ServiceError{Op: "research request", Err: err}
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &model.ServiceError{Op: "read research response", Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &model.ServiceError{
			Op:  "research request",
			Err: fmt.Errorf("HTTP %d: %s", resp.StatusCode, truncate(string(respBytes), 200)),
		}
	}

	var chatResp chatResponse
	if err := json.Unmarshal(respBytes, &chatResp); err != nil {
		return nil, &model.ServiceError{Op: "parse research response", Err: err}
	}
	if chatResp.Error != nil {
		return nil, &model.ServiceError{
			Op:  "research request",
			Err: fmt.Errorf("%s: %s", chatResp.Error.Type, chatResp.Error.Message),
		}
	}
	if len(chatResp.Choices) == 0 {
		return nil, &model.ServiceError{Op: "research request", Err: fmt.Errorf("no choices returned")}
	}

	var payload companiesPayload
	if err := json.Unmarshal([]byte(chatResp.Choices[0].Message.Content), &payload); err != nil {
		return nil, &model.ServiceError{Op: "parse companies payload", Err: err}
	}

	targets := make([]model.Target, 0, len(payload.Companies))
	for _, c := range payload.Companies {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			continue
		}
		targets = append(targets, model.Target{
			Name:     name,
			Reason:   strings.TrimSpace(c.Reason),
			Industry: strings.TrimSpace(c.Industry),
		})
		if len(targets) >= maxTargets {
			break
		}
	}
	return targets, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// Package openai is the chat-completions transport for any OpenAI-compatible
// endpoint. Transport-level retries and circuit breaking live here, behind
// the ChatModel port; the pipeline itself never retries transport failures.
package openai

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/auditstack/docuquery/internal/core/domain"
	"github.com/auditstack/docuquery/internal/infrastructure/resilience"
)

type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	executor   *resilience.Executor
}

func New(baseURL, apiKey string, executor *resilience.Executor) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 120 * time.Second},
		executor:   executor,
	}
}

type chatRequest struct {
	Model    string           `json:"model"`
	Messages []domain.Message `json:"messages"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage domain.Usage `json:"usage"`
}

func (c *Client) Chat(ctx context.Context, messages []domain.Message, model string) (domain.ChatResult, error) {
	request := chatRequest{Model: model, Messages: messages}

	// Each attempt decodes into its own value so a half-decoded failed
	// attempt cannot leak fields into the result of a later retry.
	var response chatResponse
	call := func(callCtx context.Context) error {
		var attempt chatResponse
		if err := c.postJSON(callCtx, "/v1/chat/completions", request, &attempt, "chat"); err != nil {
			return err
		}
		response = attempt
		return nil
	}

	var err error
	if c.executor != nil {
		err = c.executor.Execute(ctx, "llm.chat", call, classifyChatError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return domain.ChatResult{}, wrapTemporaryIfNeeded("llm chat", err)
	}

	if len(response.Choices) == 0 {
		return domain.ChatResult{}, &EmptyResponseError{Model: model}
	}
	return domain.ChatResult{
		Message: strings.TrimSpace(response.Choices[0].Message.Content),
		Model:   response.Model,
		Usage:   response.Usage,
	}, nil
}

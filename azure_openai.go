package skilltax

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/invopop/jsonschema"
	"go.uber.org/zap"
)

// Retry configuration for Azure OpenAI rate limits.
var (
	maxRetries = 5
	baseDelay  = 5 * time.Second
	maxDelay   = 120 * time.Second
)

// parseRetryAfter parses the Retry-After header value and returns duration
func parseRetryAfter(retryAfter string) time.Duration {
	if retryAfter == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(retryAfter); err == nil {
		return time.Duration(seconds) * time.Second
	}
	if retryTime, err := time.Parse(time.RFC1123, retryAfter); err == nil {
		return time.Until(retryTime)
	}
	return 0
}

// makeOpenAIRequest posts requestBody to an Azure OpenAI deployment and
// retries on 429 responses, honouring Retry-After.
func makeOpenAIRequest(ctx context.Context, requestBody []byte, endpoint, apiKey, deployment, apiPath string) ([]byte, error) {
	url := fmt.Sprintf("%s/openai/deployments/%s/%s?api-version=2024-08-01-preview", endpoint, deployment, apiPath)
	client := &http.Client{Timeout: 120 * time.Second}

	for attempt := 0; attempt <= maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(requestBody))
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("api-key", apiKey)

		resp, err := client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("failed to call Azure OpenAI: %w", err)
		}
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read response body: %w", err)
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			if attempt == maxRetries {
				return nil, fmt.Errorf("azure OpenAI rate limit exceeded after %d retries: %s", maxRetries, string(body))
			}
			retryAfter := resp.Header.Get("Retry-After")
			retryDelay := parseRetryAfter(retryAfter)
			if retryDelay <= 0 {
				retryDelay = baseDelay * time.Duration(1<<attempt)
			}
			retryDelay = min(retryDelay, maxDelay)

			zap.L().Warn("rate limit hit, retrying",
				zap.Int("attempt", attempt+1),
				zap.Duration("delay", retryDelay),
				zap.String("retry_after", retryAfter))
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(retryDelay):
			}
			continue
		}

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("azure OpenAI error (status %d): %s", resp.StatusCode, string(body))
		}
		return body, nil
	}
	return nil, fmt.Errorf("unexpected error in retry loop")
}

// schemaFor reflects v into a strict JSON schema for structured output.
func schemaFor(v any) (map[string]any, error) {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	schemaObj := reflector.Reflect(v)
	if schemaObj.Type == "" {
		schemaObj.Type = "object"
	}
	schemaBytes, err := json.Marshal(schemaObj)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}
	var schema map[string]any
	if err := json.Unmarshal(schemaBytes, &schema); err != nil {
		return nil, fmt.Errorf("failed to unmarshal schema: %w", err)
	}
	return schema, nil
}

// structuredChat sends a system and user message and decodes the reply,
// constrained by the schema of out, into out.
func structuredChat(ctx context.Context, name, system, user string, out any) error {
	if Config.AzureOpenAIEndpoint == "" || Config.AzureOpenAIAPIKey == "" || Config.AzureOpenAIDeployment == "" {
		return fmt.Errorf("AZURE_OPENAI_ENDPOINT, AZURE_OPENAI_API_KEY and AZURE_OPENAI_DEPLOYMENT must be set: %w", ErrConfiguration)
	}
	schema, err := schemaFor(out)
	if err != nil {
		return err
	}
	requestBody := map[string]any{
		"messages": []map[string]any{
			{"role": "system", "content": system},
			{"role": "user", "content": user},
		},
		"max_tokens":  500,
		"temperature": 0.2,
		"response_format": map[string]any{
			"type": "json_schema",
			"json_schema": map[string]any{
				"name":   name,
				"schema": schema,
			},
		},
	}
	jsonBody, err := json.Marshal(requestBody)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	responseBody, err := makeOpenAIRequest(ctx, jsonBody, Config.AzureOpenAIEndpoint, Config.AzureOpenAIAPIKey, Config.AzureOpenAIDeployment, "chat/completions")
	if err != nil {
		return err
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(responseBody, &result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	if len(result.Choices) == 0 || result.Choices[0].Message.Content == "" {
		return fmt.Errorf("no content in response")
	}
	if err := json.Unmarshal([]byte(result.Choices[0].Message.Content), out); err != nil {
		return fmt.Errorf("failed to parse structured response: %w", err)
	}
	return nil
}

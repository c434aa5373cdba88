// Package chatclient talks to a local Ollama-compatible chat endpoint,
// exposing both a streaming and a buffered interface for the agent
// loop's model calls.
package chatclient

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/agentoven/quant-go/internal/agenterr"
	"github.com/agentoven/quant-go/internal/models"
)

// DefaultBaseURL matches the teacher's Ollama provider default.
const DefaultBaseURL = "http://localhost:11434"

// Role mirrors the chat message roles the wire protocol uses.
type Role = models.Role

// Message is one chat turn sent to or received from the model.
type Message struct {
	Role      Role              `json:"role"`
	Content   string            `json:"content"`
	ToolCalls []models.ToolCall `json:"tool_calls,omitempty"`
}

// Options tunes generation behavior; zero values are omitted so the
// server's own defaults apply.
type Options struct {
	Temperature float64 `json:"temperature,omitempty"`
	NumPredict  int     `json:"num_predict,omitempty"`
	TopP        float64 `json:"top_p,omitempty"`
}

// Request is one chat completion request, with optional tool
// definitions advertised to the model and streaming toggled on or off
// by the caller (Stream always sends true, Complete always sends false).
type Request struct {
	Model    string                  `json:"model"`
	Messages []Message               `json:"messages"`
	Tools    []models.ToolDefinition `json:"tools,omitempty"`
	Options  *Options                `json:"options,omitempty"`
}

// Usage reports token accounting for a completed (or completing)
// generation.
type Usage struct {
	PromptEvalCount *int64
	EvalCount       *int64
	TotalDuration   *int64
	EvalDuration    *int64
}

// Chunk is one piece of a streamed response. Message is non-nil on
// every chunk that carries content or tool calls; Done marks the final
// chunk, which also carries Usage.
type Chunk struct {
	Message *Message
	Done    bool
	Usage
}

// wireChunk is the raw NDJSON shape Ollama's /api/chat streams.
type wireChunk struct {
	Model           string  `json:"model"`
	Message         Message `json:"message"`
	Done            bool    `json:"done"`
	PromptEvalCount *int64  `json:"prompt_eval_count,omitempty"`
	EvalCount       *int64  `json:"eval_count,omitempty"`
	TotalDuration   *int64  `json:"total_duration,omitempty"`
	EvalDuration    *int64  `json:"eval_duration,omitempty"`
	Error           string  `json:"error,omitempty"`
}

// Client is a thin HTTP client for an Ollama-compatible chat endpoint.
type Client struct {
	baseURL string
	http    *http.Client
}

// New builds a client against baseURL (e.g. "http://localhost:11434").
// An empty baseURL falls back to DefaultBaseURL.
func New(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

// Stream issues req with streaming enabled and returns a range-over-func
// sequence of chunks, mirroring the teacher's SSE-to-Seq2 adapter but
// reading newline-delimited JSON objects instead of SSE frames.
func (c *Client) Stream(ctx context.Context, req Request) iter.Seq2[Chunk, error] {
	return func(yield func(Chunk, error) bool) {
		body, err := c.doStreamRequest(ctx, req)
		if err != nil {
			yield(Chunk{}, err)
			return
		}
		defer body.Close()

		scanner := bufio.NewScanner(body)
		scanner.Buffer(make([]byte, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := bytes.TrimSpace(scanner.Bytes())
			if len(line) == 0 {
				continue
			}
			var wc wireChunk
			if err := json.Unmarshal(line, &wc); err != nil {
				if !yield(Chunk{}, &agenterr.ProtocolError{Method: "chat stream", Err: err}) {
					return
				}
				continue
			}
			if wc.Error != "" {
				yield(Chunk{}, &agenterr.ExecutionError{What: "chat model", Err: fmt.Errorf("%s", wc.Error)})
				return
			}
			chunk := Chunk{
				Message: &wc.Message,
				Done:    wc.Done,
				Usage: Usage{
					PromptEvalCount: wc.PromptEvalCount,
					EvalCount:       wc.EvalCount,
					TotalDuration:   wc.TotalDuration,
					EvalDuration:    wc.EvalDuration,
				},
			}
			if !yield(chunk, nil) {
				return
			}
			if wc.Done {
				return
			}
		}
		if err := scanner.Err(); err != nil {
			yield(Chunk{}, &agenterr.TransportError{Transport: "chat stream", Err: err})
		}
	}
}

func (c *Client) doStreamRequest(ctx context.Context, req Request) (httpBodyCloser, error) {
	body, err := json.Marshal(struct {
		Request
		Stream bool `json:"stream"`
	}{Request: req, Stream: true})
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, &agenterr.TransportError{Transport: "chat", Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, &agenterr.TransportError{Transport: "chat", Err: fmt.Errorf("status %d", resp.StatusCode)}
	}
	return resp.Body, nil
}

type httpBodyCloser = interface {
	Read(p []byte) (int, error)
	Close() error
}

// Complete issues req with streaming disabled, retrying transient
// transport failures with exponential backoff, and returns the single
// final chunk.
func (c *Client) Complete(ctx context.Context, req Request) (*Chunk, error) {
	body, err := json.Marshal(struct {
		Request
		Stream bool `json:"stream"`
	}{Request: req, Stream: false})
	if err != nil {
		return nil, err
	}

	var result *Chunk
	operation := func() error {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(err)
		}
		httpReq.Header.Set("Content-Type", "application/json")

		resp, err := c.http.Do(httpReq)
		if err != nil {
			return &agenterr.TransportError{Transport: "chat", Err: err}
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 500 {
			return &agenterr.TransportError{Transport: "chat", Err: fmt.Errorf("status %d", resp.StatusCode)}
		}
		if resp.StatusCode != http.StatusOK {
			return backoff.Permanent(&agenterr.TransportError{Transport: "chat", Err: fmt.Errorf("status %d", resp.StatusCode)})
		}

		var wc wireChunk
		if err := json.NewDecoder(resp.Body).Decode(&wc); err != nil {
			return backoff.Permanent(&agenterr.ProtocolError{Method: "chat complete", Err: err})
		}
		if wc.Error != "" {
			return backoff.Permanent(&agenterr.ExecutionError{What: "chat model", Err: fmt.Errorf("%s", wc.Error)})
		}

		result = &Chunk{
			Message: &wc.Message,
			Done:    wc.Done,
			Usage: Usage{
				PromptEvalCount: wc.PromptEvalCount,
				EvalCount:       wc.EvalCount,
				TotalDuration:   wc.TotalDuration,
				EvalDuration:    wc.EvalDuration,
			},
		}
		return nil
	}

	policy := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3)
	if err := backoff.Retry(operation, backoff.WithContext(policy, ctx)); err != nil {
		return nil, err
	}
	return result, nil
}

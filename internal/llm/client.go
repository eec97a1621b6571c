// Package llm provides the language-model service boundary for Vishva.
// The orchestration core consumes the Completer interface; the Anthropic
// implementation lives here so the rest of the system never touches the SDK
// response shapes directly.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/bedrock"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/kaptinlin/jsonrepair"

	"github.com/vishva-ai/vishva/pkg/models"
)

// DefaultMaxTokens bounds a single completion response.
const DefaultMaxTokens = 8192

// ToolCall is one tool invocation requested by the model.
type ToolCall struct {
	// ID correlates the request with its tool-result turn.
	ID string
	// Name is the registry key of the requested tool.
	Name string
	// Input is the JSON-encoded argument blob supplied by the model.
	Input json.RawMessage
}

// Request is a single completion call. Messages carry the running
// conversation; System is kept separate per the Anthropic API shape.
type Request struct {
	Model             string
	System            string
	Messages          []anthropic.MessageParam
	Tools             []anthropic.ToolUnionParam
	ToolChoice        string // "" lets the model pick; otherwise forces the named tool
	ParallelToolCalls bool
	MaxTokens         int64
}

// Response is the model's reply: free text, tool-call requests, or both.
type Response struct {
	Text      string
	ToolCalls []ToolCall
	// StopReason is the raw API stop reason ("end_turn", "tool_use", ...).
	StopReason string
}

// Completer is the language-model service consumed by the planner and the
// subtask executor. Implementations must support three response modes: free
// text, tool-call requests, and (via Structured) a schema-conforming object.
type Completer interface {
	Complete(ctx context.Context, req Request) (*Response, error)
	// Structured issues one completion whose output must conform to the
	// given schema, returning the decoded object.
	Structured(ctx context.Context, req Request, schema *models.OutputSchema) (map[string]any, error)
}

// Client wraps the Anthropic SDK client with token tracking.
type Client struct {
	inner   anthropic.Client
	model   anthropic.Model
	tracker *TokenTracker
}

// ClientConfig contains configuration for creating a new Client.
type ClientConfig struct {
	// Model is the default model for requests that don't name one.
	Model string
	// APIKey is the Anthropic API key. If empty, uses ANTHROPIC_API_KEY.
	APIKey string
	// UseAWSBedrock routes requests through AWS Bedrock instead of the API.
	UseAWSBedrock bool
	// AWSRegion is the AWS region for Bedrock (e.g., "us-west-2").
	AWSRegion string
	// AWSProfile is the optional AWS profile name to use.
	AWSProfile string
}

// NewClient creates a new Anthropic-backed Completer.
func NewClient(cfg ClientConfig) (*Client, error) {
	var opts []option.RequestOption

	if cfg.UseAWSBedrock {
		ctx := context.Background()

		var loadOpts []func(*config.LoadOptions) error
		if cfg.AWSRegion != "" {
			loadOpts = append(loadOpts, config.WithRegion(cfg.AWSRegion))
		}
		if cfg.AWSProfile != "" {
			loadOpts = append(loadOpts, config.WithSharedConfigProfile(cfg.AWSProfile))
		}

		opts = append(opts, bedrock.WithLoadDefaultConfig(ctx, loadOpts...))
	} else {
		apiKey := cfg.APIKey
		if apiKey == "" {
			apiKey = os.Getenv("ANTHROPIC_API_KEY")
		}
		if apiKey == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY environment variable is not set")
		}
		opts = append(opts, option.WithAPIKey(apiKey))
	}

	model := anthropic.Model(cfg.Model)
	if model == "" {
		model = anthropic.ModelClaudeSonnet4_20250514
	}

	return &Client{
		inner:   anthropic.NewClient(opts...),
		model:   model,
		tracker: NewTokenTracker(),
	}, nil
}

// Model returns the client's default model.
func (c *Client) Model() string {
	return string(c.model)
}

// Tracker returns the cumulative token usage tracker.
func (c *Client) Tracker() *TokenTracker {
	return c.tracker
}

// Complete issues one Messages API call and maps the response blocks into
// text plus tool-call requests.
func (c *Client) Complete(ctx context.Context, req Request) (*Response, error) {
	params := c.buildParams(req)

	if len(req.Tools) > 0 {
		params.Tools = req.Tools
		if req.ToolChoice != "" {
			params.ToolChoice = anthropic.ToolChoiceUnionParam{
				OfTool: &anthropic.ToolChoiceToolParam{
					Name:                   req.ToolChoice,
					DisableParallelToolUse: anthropic.Bool(!req.ParallelToolCalls),
				},
			}
		} else {
			params.ToolChoice = anthropic.ToolChoiceUnionParam{
				OfAuto: &anthropic.ToolChoiceAutoParam{
					DisableParallelToolUse: anthropic.Bool(!req.ParallelToolCalls),
				},
			}
		}
	}

	resp, err := c.inner.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("completion call: %w", err)
	}
	c.tracker.Add(resp.Usage.InputTokens, resp.Usage.OutputTokens)

	out := &Response{StopReason: string(resp.StopReason)}
	for _, block := range resp.Content {
		switch variant := block.AsAny().(type) {
		case anthropic.TextBlock:
			out.Text += variant.Text
		case anthropic.ToolUseBlock:
			out.ToolCalls = append(out.ToolCalls, ToolCall{
				ID:    variant.ID,
				Name:  variant.Name,
				Input: json.RawMessage(variant.Input),
			})
		}
	}
	return out, nil
}

// Structured issues one completion forced through a single schema-carrying
// tool, so the model's only legal move is to emit an object conforming to
// the schema. The tool input is the structured result.
func (c *Client) Structured(ctx context.Context, req Request, schema *models.OutputSchema) (map[string]any, error) {
	if schema == nil {
		return nil, fmt.Errorf("structured call without a schema")
	}

	params := c.buildParams(req)
	params.Tools = []anthropic.ToolUnionParam{{
		OfTool: &anthropic.ToolParam{
			Name:        schema.Name,
			Description: anthropic.String("Record the final result in the required structure."),
			InputSchema: schemaToInput(schema.Schema),
		},
	}}
	params.ToolChoice = anthropic.ToolChoiceUnionParam{
		OfTool: &anthropic.ToolChoiceToolParam{Name: schema.Name},
	}

	resp, err := c.inner.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("structured completion call: %w", err)
	}
	c.tracker.Add(resp.Usage.InputTokens, resp.Usage.OutputTokens)

	for _, block := range resp.Content {
		if variant, ok := block.AsAny().(anthropic.ToolUseBlock); ok {
			return decodeObject([]byte(variant.Input))
		}
	}

	// Some models answer in prose with embedded JSON instead of using the
	// forced tool; salvage that before giving up.
	for _, block := range resp.Content {
		if variant, ok := block.AsAny().(anthropic.TextBlock); ok {
			if obj, err := decodeObject([]byte(variant.Text)); err == nil {
				return obj, nil
			}
		}
	}
	return nil, fmt.Errorf("structured completion returned no %s object", schema.Name)
}

func (c *Client) buildParams(req Request) anthropic.MessageNewParams {
	model := anthropic.Model(req.Model)
	if model == "" {
		model = c.model
	}
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = DefaultMaxTokens
	}

	params := anthropic.MessageNewParams{
		Model:     model,
		MaxTokens: maxTokens,
		Messages:  req.Messages,
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}
	return params
}

// decodeObject unmarshals a JSON object, running the payload through
// jsonrepair when strict parsing fails.
func decodeObject(raw []byte) (map[string]any, error) {
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err == nil {
		return obj, nil
	}

	repaired, err := jsonrepair.JSONRepair(string(raw))
	if err != nil {
		return nil, fmt.Errorf("repair structured payload: %w", err)
	}
	if err := json.Unmarshal([]byte(repaired), &obj); err != nil {
		return nil, fmt.Errorf("decode structured payload: %w", err)
	}
	return obj, nil
}

// schemaToInput converts a JSON-schema object into the SDK's tool input
// schema shape.
func schemaToInput(schema map[string]any) anthropic.ToolInputSchemaParam {
	input := anthropic.ToolInputSchemaParam{}
	if props, ok := schema["properties"].(map[string]any); ok {
		input.Properties = props
	}
	switch required := schema["required"].(type) {
	case []string:
		input.Required = required
	case []any:
		for _, r := range required {
			if name, ok := r.(string); ok {
				input.Required = append(input.Required, name)
			}
		}
	}
	return input
}

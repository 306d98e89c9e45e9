// Package bedrock implements the provider contract on top of the AWS Bedrock
// runtime. It speaks the Anthropic messages dialect, forwards content
// guardrail configuration on every invocation, and surfaces guardrail
// interventions as assistant refusals instead of plain text.
package bedrock

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/fogfish/opts"
	"github.com/go-openapi/strfmt"
	"github.com/goccy/go-json"
	"github.com/tidwall/gjson"

	"github.com/skeinworks/skein/api"
	"github.com/skeinworks/skein/messages"
	"github.com/skeinworks/skein/pkg/jsonx"
	"github.com/skeinworks/skein/provider"
)

// Model identifiers that work with on-demand throughput. Sonnet 4 ids require
// an inference profile and are mapped onto Claude3Sonnet instead.
const (
	Claude3Sonnet = "anthropic.claude-3-sonnet-20240229-v1:0"
	Claude3Haiku  = "anthropic.claude-3-haiku-20240307-v1:0"

	anthropicVersion = "bedrock-2023-05-31"

	defaultRegion      = "us-east-1"
	defaultMaxTokens   = 1024
	defaultTemperature = 0.7
)

// InvokeModelAPI is the slice of the Bedrock runtime client the provider
// uses. Tests substitute a fake; production passes *bedrockruntime.Client.
type InvokeModelAPI interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

var _ provider.Provider = (*Provider)(nil)

// Provider invokes Claude models on Bedrock. Construct with New; the zero
// value is not usable.
type Provider struct {
	client           InvokeModelAPI
	region           string
	modelID          string
	guardrailID      string
	guardrailVersion string
	maxTokens        int
	temperature      float64
}

var (
	// WithModelID pins the Bedrock model id; unset falls back to
	// BEDROCK_MODEL_ID and then Claude3Haiku.
	WithModelID = opts.ForName[Provider, string]("modelID")

	// WithRegion overrides the AWS region; unset falls back to AWS_REGION
	// and then us-east-1.
	WithRegion = opts.ForName[Provider, string]("region")

	// WithMaxTokens bounds the model's reply length.
	WithMaxTokens = opts.ForName[Provider, int]("maxTokens")

	// WithTemperature sets the default sampling temperature.
	WithTemperature = opts.ForName[Provider, float64]("temperature")
)

// WithGuardrail attaches a content guardrail to every invocation. An empty
// version means the guardrail's working draft.
func WithGuardrail(id, version string) opts.Option[Provider] {
	return opts.Type[Provider](func(p *Provider) error {
		p.guardrailID = id
		if version == "" {
			version = "DRAFT"
		}
		p.guardrailVersion = version
		return nil
	})
}

// WithClient injects a pre-built runtime client, bypassing AWS config
// loading. Intended for tests and for callers that manage credentials
// themselves.
func WithClient(client InvokeModelAPI) opts.Option[Provider] {
	return opts.Type[Provider](func(p *Provider) error {
		p.client = client
		return nil
	})
}

// New builds a Bedrock provider. Without WithClient it loads the default AWS
// credential chain for the resolved region with three retry attempts, the
// same posture the SDK demos run with.
func New(ctx context.Context, options ...opts.Option[Provider]) (*Provider, error) {
	p := &Provider{
		maxTokens:   defaultMaxTokens,
		temperature: defaultTemperature,
	}
	if err := opts.Apply(p, options); err != nil {
		return nil, err
	}

	if p.region == "" {
		p.region = os.Getenv("AWS_REGION")
	}
	if p.region == "" {
		p.region = defaultRegion
	}
	if p.modelID == "" {
		p.modelID = os.Getenv("BEDROCK_MODEL_ID")
	}
	p.modelID = resolveModelID(p.modelID)

	if p.guardrailID == "" {
		if id := os.Getenv("BEDROCK_GUARDRAIL_ID"); id != "" {
			p.guardrailID = id
			p.guardrailVersion = os.Getenv("BEDROCK_GUARDRAIL_VERSION")
			if p.guardrailVersion == "" {
				p.guardrailVersion = "DRAFT"
			}
		}
	}

	if p.client == nil {
		cfg, err := awsconfig.LoadDefaultConfig(ctx,
			awsconfig.WithRegion(p.region),
			awsconfig.WithRetryMaxAttempts(3),
		)
		if err != nil {
			return nil, fmt.Errorf("load aws config: %w", err)
		}
		p.client = bedrockruntime.NewFromConfig(cfg)
	}

	slog.Info("initialized bedrock provider",
		slog.String("model", p.modelID),
		slog.String("region", p.region),
		slog.Bool("guardrail", p.guardrailID != ""),
	)
	return p, nil
}

// resolveModelID maps ids that need an inference profile onto their
// on-demand siblings and fills in the default.
func resolveModelID(id string) string {
	switch {
	case id == "":
		return Claude3Haiku
	case strings.Contains(id, "sonnet-4"):
		slog.Warn("model requires an inference profile, falling back",
			slog.String("requested", id),
			slog.String("using", Claude3Sonnet),
		)
		return Claude3Sonnet
	default:
		return id
	}
}

// Model exposes the provider as an api.Model bound to its resolved model id.
func (p *Provider) Model() api.Model {
	return model{id: p.modelID, provider: p}
}

type model struct {
	id       string
	provider *Provider
}

func (m model) Name() string                { return m.id }
func (m model) Provider() provider.Provider { return m.provider }

// Complete runs one InvokeModel round trip for the accumulated thread.
func (p *Provider) Complete(ctx context.Context, params provider.CompletionParams) (provider.Completion, error) {
	body, err := p.buildRequestBody(params)
	if err != nil {
		return provider.Completion{}, fmt.Errorf("build bedrock request: %w", err)
	}

	input := &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(p.modelID),
		Body:        body,
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
	}
	if p.guardrailID != "" {
		input.GuardrailIdentifier = aws.String(p.guardrailID)
		input.GuardrailVersion = aws.String(p.guardrailVersion)
	}

	output, err := p.client.InvokeModel(ctx, input)
	if err != nil {
		return provider.Completion{}, fmt.Errorf("bedrock invoke model: %w", err)
	}

	return parseResponse(output.Body)
}

func (p *Provider) buildRequestBody(params provider.CompletionParams) ([]byte, error) {
	maxTokens := params.MaxTokens
	if maxTokens <= 0 {
		maxTokens = p.maxTokens
	}
	temperature := params.Temperature
	if temperature <= 0 {
		temperature = p.temperature
	}

	body := map[string]any{
		"anthropic_version": anthropicVersion,
		"messages":          threadToAnthropic(params.Thread),
		"max_tokens":        maxTokens,
		"temperature":       temperature,
	}
	if params.Instructions != "" {
		body["system"] = params.Instructions
	}

	if len(params.Tools) > 0 {
		tools := make([]map[string]any, 0, len(params.Tools))
		for _, td := range params.Tools {
			name, schema := td.ToNameAndSchema()
			inputSchema, err := jsonx.ToDynamicJSON(schema)
			if err != nil {
				return nil, fmt.Errorf("tool %s schema: %w", name, err)
			}
			entry := map[string]any{
				"name":         name,
				"input_schema": inputSchema,
			}
			if td.Description != "" {
				entry["description"] = td.Description
			}
			tools = append(tools, entry)
		}
		body["tools"] = tools
		if !params.ParallelToolCalls {
			body["tool_choice"] = map[string]any{
				"type":                      "auto",
				"disable_parallel_tool_use": true,
			}
		}
	}

	return json.Marshal(body)
}

// threadToAnthropic converts the transcript into the Anthropic messages
// dialect: tool calls become assistant tool_use blocks and tool results
// come back as user tool_result blocks.
func threadToAnthropic(thread *messages.Thread) []map[string]any {
	if thread == nil {
		return nil
	}
	converted := make([]map[string]any, 0, thread.Len())
	for _, msg := range thread.Messages() {
		switch payload := msg.Payload.(type) {
		case messages.UserMessage:
			converted = append(converted, map[string]any{
				"role":    "user",
				"content": payload.Content,
			})
		case messages.AssistantMessage:
			if payload.Content == "" {
				continue
			}
			converted = append(converted, map[string]any{
				"role":    "assistant",
				"content": payload.Content,
			})
		case messages.ToolCallMessage:
			blocks := make([]map[string]any, 0, len(payload.ToolCalls))
			for _, tc := range payload.ToolCalls {
				input := map[string]any{}
				if tc.Arguments != "" {
					// a malformed argument payload still round-trips as empty input
					_ = json.Unmarshal([]byte(tc.Arguments), &input)
				}
				blocks = append(blocks, map[string]any{
					"type":  "tool_use",
					"id":    tc.ID,
					"name":  tc.Name,
					"input": input,
				})
			}
			converted = append(converted, map[string]any{
				"role":    "assistant",
				"content": blocks,
			})
		case messages.ToolResponse:
			converted = append(converted, map[string]any{
				"role": "user",
				"content": []map[string]any{{
					"type":        "tool_result",
					"tool_use_id": payload.ToolCallID,
					"content":     payload.Content,
				}},
			})
		}
	}
	return converted
}

func parseResponse(body []byte) (provider.Completion, error) {
	if !gjson.ValidBytes(body) {
		return provider.Completion{}, fmt.Errorf("bedrock returned invalid json")
	}
	now := strfmt.DateTime(time.Now())
	doc := gjson.ParseBytes(body)

	// A guardrail intervention replaces the model output with the masked text.
	if doc.Get("amazon-bedrock-guardrailAction").String() == "INTERVENED" {
		return provider.Completion{
			Assistant: &messages.AssistantMessage{
				Refusal: firstText(doc.Get("content")),
			},
			Timestamp: now,
		}, nil
	}

	var toolCalls []messages.ToolCallData
	doc.Get("content").ForEach(func(_, item gjson.Result) bool {
		if item.Get("type").String() == "tool_use" {
			toolCalls = append(toolCalls, messages.ToolCallData{
				ID:        item.Get("id").String(),
				Name:      item.Get("name").String(),
				Arguments: item.Get("input").Raw,
			})
		}
		return true
	})
	if len(toolCalls) > 0 {
		return provider.Completion{
			ToolCalls: &messages.ToolCallMessage{ToolCalls: toolCalls},
			Timestamp: now,
		}, nil
	}

	return provider.Completion{
		Assistant: &messages.AssistantMessage{
			Content: firstText(doc.Get("content")),
		},
		Timestamp: now,
	}, nil
}

func firstText(content gjson.Result) string {
	var text string
	content.ForEach(func(_, item gjson.Result) bool {
		if item.Get("type").String() == "text" {
			text = item.Get("text").String()
			return false
		}
		return true
	})
	return text
}

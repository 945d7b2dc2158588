package triage

import (
	"context"
	"errors"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
)

type bedrockConverseAPI interface {
	Converse(ctx context.Context, params *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
}

// BedrockClient implements InferenceClient on top of the Bedrock Converse
// API, for deployments that route triage prompts through AWS instead of a
// self-hosted model.
type BedrockClient struct {
	api bedrockConverseAPI
}

func NewBedrockClient(api bedrockConverseAPI) *BedrockClient {
	if api == nil {
		panic("triage: bedrock converse client cannot be nil")
	}
	return &BedrockClient{api: api}
}

func (c *BedrockClient) Infer(ctx context.Context, req InferenceRequest) (InferenceResponse, error) {
	if strings.TrimSpace(req.Model) == "" {
		return InferenceResponse{}, errors.New("triage: bedrock model id is required")
	}
	if strings.TrimSpace(req.Prompt) == "" {
		return InferenceResponse{}, errors.New("triage: inference prompt is required")
	}

	out, err := c.api.Converse(ctx, &bedrockruntime.ConverseInput{
		ModelId: aws.String(req.Model),
		Messages: []brtypes.Message{
			{
				Role: brtypes.ConversationRoleUser,
				Content: []brtypes.ContentBlock{
					&brtypes.ContentBlockMemberText{Value: req.Prompt},
				},
			},
		},
		InferenceConfig: &brtypes.InferenceConfiguration{
			MaxTokens:   aws.Int32(600),
			Temperature: aws.Float32(0.1),
		},
	})
	if err != nil {
		return InferenceResponse{}, &InferenceError{Message: err.Error(), Timeout: isTimeout(err)}
	}

	text, err := bedrockOutputText(out)
	if err != nil {
		return InferenceResponse{}, err
	}
	return InferenceResponse{Content: text, Model: req.Model}, nil
}

func bedrockOutputText(out *bedrockruntime.ConverseOutput) (string, error) {
	if out == nil {
		return "", &InferenceError{Message: "bedrock response is nil"}
	}
	msgOut, ok := out.Output.(*brtypes.ConverseOutputMemberMessage)
	if !ok {
		return "", &InferenceError{Message: "bedrock response did not include a message output"}
	}

	var builder strings.Builder
	for _, block := range msgOut.Value.Content {
		if textBlock, ok := block.(*brtypes.ContentBlockMemberText); ok {
			builder.WriteString(textBlock.Value)
		}
	}
	text := strings.TrimSpace(builder.String())
	if text == "" {
		return "", &InferenceError{Message: "bedrock response contained no text content blocks"}
	}
	return text, nil
}

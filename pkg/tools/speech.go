package tools

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/NERVsystems/parkmcp/pkg/speech"
)

// SpeechToTextTool returns a tool definition for transcribing audio
func SpeechToTextTool() mcp.Tool {
	return mcp.NewTool(ToolSpeechToText,
		mcp.WithDescription("Transcribe base64-encoded audio to text"),
		mcp.WithString("audio",
			mcp.Required(),
			mcp.Description("The audio bytes, base64 encoded"),
		),
		mcp.WithString("file_type",
			mcp.Description("Audio container format, e.g. wav, mp3, webm"),
			mcp.DefaultString(speech.DefaultFileType),
		),
	)
}

// TextToSpeechTool returns a tool definition for synthesizing speech
func TextToSpeechTool() mcp.Tool {
	return mcp.NewTool(ToolTextToSpeech,
		mcp.WithDescription("Synthesize speech audio from text"),
		mcp.WithString("text",
			mcp.Required(),
			mcp.Description("The text to speak"),
		),
		mcp.WithString("voice",
			mcp.Description("Voice name"),
			mcp.DefaultString(speech.DefaultVoice),
		),
	)
}

// HandleSpeechToText transcribes audio through the speech service.
func (r *Registry) HandleSpeechToText(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	logger := r.logger.With("tool", ToolSpeechToText)

	encoded := stringArg(req, "audio", "")
	if encoded == "" {
		return r.invalid(ctx, logger, "audio is required"), nil
	}
	audio, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return r.invalid(ctx, logger, fmt.Sprintf("audio is not valid base64: %v", err)), nil
	}
	fileType := strings.TrimPrefix(stringArg(req, "file_type", speech.DefaultFileType), ".")

	text, err := r.deps.Speech.Transcribe(ctx, audio, fileType)
	if err != nil {
		return r.fail(ctx, logger, serviceSpeech, err), nil
	}

	logger.Info("transcribed audio", "bytes", len(audio), "file_type", fileType)
	return mcp.NewToolResultText(text), nil
}

// HandleTextToSpeech synthesizes audio and returns it as an embedded blob.
func (r *Registry) HandleTextToSpeech(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	logger := r.logger.With("tool", ToolTextToSpeech)

	text := stringArg(req, "text", "")
	if text == "" {
		return r.invalid(ctx, logger, "text is required"), nil
	}
	voice := stringArg(req, "voice", speech.DefaultVoice)

	audio, mimeType, err := r.deps.Speech.Synthesize(ctx, text, voice)
	if err != nil {
		return r.fail(ctx, logger, serviceSpeech, err), nil
	}

	encoded := base64.StdEncoding.EncodeToString(audio)
	logger.Info("synthesized speech", "chars", len(text), "voice", voice, "bytes", len(audio))
	return mcp.NewToolResultResource(
		fmt.Sprintf("Synthesized %d bytes of %s audio", len(audio), mimeType),
		mcp.BlobResourceContents{
			URI:      "data:" + mimeType + ";base64," + encoded,
			MIMEType: mimeType,
			Blob:     encoded,
		},
	), nil
}

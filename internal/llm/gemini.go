// Package llm implements the agent.Classifier and whatsapp.Transcriber
// interfaces on top of Genkit with the Google AI plugin. It is the only
// package that talks to the model.
package llm

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/googlegenai"
	"github.com/rs/zerolog"

	"tasky/internal/agent"
)

const defaultModel = "gemini-2.0-flash"

type Config struct {
	APIKey string
	Model  string
}

// Gemini classifies incoming messages into tool calls. With no API key it
// degrades to a disabled classifier that always answers ToolNone.
type Gemini struct {
	g       *genkit.Genkit
	model   string
	enabled bool
	log     zerolog.Logger
}

func NewGemini(ctx context.Context, cfg Config, log zerolog.Logger) *Gemini {
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultModel
	}

	var g *genkit.Genkit
	enabled := false
	if key := strings.TrimSpace(cfg.APIKey); key != "" {
		_ = os.Setenv("GEMINI_API_KEY", key)
		g = genkit.Init(ctx,
			genkit.WithPlugins(&googlegenai.GoogleAI{}),
			genkit.WithDefaultModel("googleai/"+model),
		)
		enabled = true
		log.Info().Str("model", model).Msg("gemini classifier initialized")
	} else {
		g = genkit.Init(ctx)
		log.Warn().Msg("GEMINI_API_KEY missing; classifier disabled")
	}

	return &Gemini{g: g, model: model, enabled: enabled, log: log}
}

const systemPromptTemplate = `You are Tasky, a WhatsApp task manager assistant.

CURRENT DATETIME: %s (%s)
USER NAME: %s

Decide which single tool handles the user's message and answer with ONE JSON
object, nothing else:
{"tool": "<name>", "args": {...}, "reply": "<short conversational reply>"}

Tools:
- create_tasks: args {"tasks": [{"title", "description", "status", "due_dt", "working_dt", "duration_mins", "priority", "tags"}]}
- update_tasks: args {"tasks": [{"task_id", ...fields to change}]}
- delete_tasks: args {"task_ids": ["..."]}
- get_tasks: args {"status", "priority", "tag", "due_dt", "working_dt"} (all optional)
- daily_summary: args {}
- none: no tool applies; put your full answer in "reply"

Rules:
- Dates are strings: "YYYY-MM-DD" or "YYYY-MM-DD HH:MM:SS". Resolve weekday
  names against the current datetime above.
- priority is 1 (high), 2 (medium) or 3 (low); status is one of pending,
  in_progress, completed, archived.
- When the user gives one datetime, treat it as the working datetime and also
  use it as the due datetime unless they say otherwise.
- Keep replies short and friendly; never mention tools or JSON to the user.`

// Classify maps a message onto the closed tool set. Malformed model output
// degrades to ToolNone rather than failing the webhook.
func (c *Gemini) Classify(ctx context.Context, req agent.ClassifyRequest) (agent.ToolCall, error) {
	if !c.enabled {
		return agent.ToolCall{
			Name:  agent.ToolNone,
			Reply: "I'm not fully set up yet — my language model is unavailable. Please try again later.",
		}, nil
	}

	system := fmt.Sprintf(systemPromptTemplate,
		req.Now.Format("2006-01-02 15:04:05"),
		req.Now.Weekday(),
		req.Username,
	)

	resp, err := genkit.Generate(ctx, c.g,
		ai.WithSystem(system),
		ai.WithPrompt(req.Message),
	)
	if err != nil {
		return agent.ToolCall{}, fmt.Errorf("gemini generate: %w", err)
	}

	call, err := parseToolCall(resp.Text())
	if err != nil {
		c.log.Warn().Err(err).Msg("unparseable classifier output, replying directly")
		return agent.ToolCall{Name: agent.ToolNone, Reply: strings.TrimSpace(resp.Text())}, nil
	}
	return call, nil
}

// Transcribe converts a voice note into text via a multimodal prompt.
func (c *Gemini) Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error) {
	if !c.enabled {
		return "", fmt.Errorf("transcription unavailable: classifier disabled")
	}

	dataURL := fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(audio))
	resp, err := genkit.Generate(ctx, c.g,
		ai.WithMessages(ai.NewUserMessage(
			ai.NewMediaPart(mimeType, dataURL),
			ai.NewTextPart("Transcribe this voice message verbatim. Output only the transcription."),
		)),
	)
	if err != nil {
		return "", fmt.Errorf("gemini transcribe: %w", err)
	}
	return strings.TrimSpace(resp.Text()), nil
}

func parseToolCall(raw string) (agent.ToolCall, error) {
	text := strings.TrimSpace(raw)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	var call agent.ToolCall
	if err := json.Unmarshal([]byte(text), &call); err != nil {
		return agent.ToolCall{}, fmt.Errorf("decode tool call: %w", err)
	}
	if !call.Name.Valid() {
		return agent.ToolCall{}, fmt.Errorf("unknown tool %q", call.Name)
	}
	return call, nil
}

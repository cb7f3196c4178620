package agent

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"google.golang.org/genai"
)

// Expert is a chat with a model configured for one role, optionally armed
// with a function library.
type Expert struct {
	Name        string
	Description string
	ModelName   string
	Config      *genai.GenerateContentConfig
	Library     Library
	chat        *genai.Chat
}

// Start opens the expert's chat session.
func (e *Expert) Start(ctx context.Context, client *genai.Client) error {
	chat, err := client.Chats.Create(ctx, e.ModelName, e.Config, nil)
	if err != nil {
		return err
	}
	e.chat = chat
	return nil
}

// Ask sends parts to the expert and resolves function calls through the
// library until a text answer comes back.
func (e *Expert) Ask(ctx context.Context, parts ...*genai.Part) (*genai.Content, error) {
	resp, err := e.chat.Send(ctx, parts...)
	if err != nil {
		return nil, err
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("no response from expert %s", e.Name)
	}
	part0 := resp.Candidates[0].Content.Parts[0]
	if part0.FunctionCall != nil {
		if e.Library == nil {
			return nil, fmt.Errorf("expert %s cannot make function calls", e.Name)
		}
		// Errors travel back through the function response, not as Go errors:
		// the model gets to read and react to them.
		fresp := e.Library(ctx, part0.FunctionCall)
		return e.Ask(ctx, &genai.Part{FunctionResponse: fresp})
	}
	return resp.Candidates[0].Content, nil
}

// Declaration exposes this expert as a callable function, so a facilitator
// can route questions to it.
func (e *Expert) Declaration() *genai.FunctionDeclaration {
	return &genai.FunctionDeclaration{
		Name:        e.Name,
		Description: e.Description,
		Parameters: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"question": {
					Type:        genai.TypeString,
					Description: "The question to ask the expert.",
				},
			},
			Required: []string{"question"},
		},
		Response: &genai.Schema{
			Type:        genai.TypeString,
			Description: "The expert's answer.",
		},
	}
}

// Call asks this expert a question on behalf of another model.
func (e *Expert) Call(ctx context.Context, id string, args map[string]any) *genai.FunctionResponse {
	fresp := &genai.FunctionResponse{
		ID:       id,
		Name:     e.Name,
		Response: map[string]any{},
	}

	question, ok := args["question"].(string)
	if !ok {
		fresp.Response["error"] = fmt.Sprintf("invalid question type %T, expected string", args["question"])
		return fresp
	}

	answer, err := e.Ask(ctx, &genai.Part{Text: question})
	if err != nil {
		fresp.Response["error"] = fmt.Sprintf("asking the expert failed: %v", err)
		return fresp
	}

	text := answer.Parts[0].Text
	log.Debug("expert consulted", "expert", e.Name, "question", question)
	fresp.Response["output"] = text
	return fresp
}

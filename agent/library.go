package agent

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// Library dispatches a model's function call to an implementation.
type Library func(context.Context, *genai.FunctionCall) *genai.FunctionResponse

// Function is anything a model can declare and call.
type Function interface {
	Declaration() *genai.FunctionDeclaration
	Call(ctx context.Context, id string, args map[string]any) *genai.FunctionResponse
}

// NewLibrary builds a dispatching library over the given functions.
func NewLibrary[T Function](functions []T) Library {
	return func(ctx context.Context, call *genai.FunctionCall) *genai.FunctionResponse {
		for _, f := range functions {
			if f.Declaration().Name == call.Name {
				return f.Call(ctx, call.ID, call.Args)
			}
		}
		return &genai.FunctionResponse{
			ID:   call.ID,
			Name: call.Name,
			Response: map[string]any{
				"error": fmt.Sprintf("unknown function %s", call.Name),
			},
		}
	}
}

// NewDeclaration collects the declarations of the given functions.
func NewDeclaration[T Function](functions []T) []*genai.FunctionDeclaration {
	result := make([]*genai.FunctionDeclaration, 0, len(functions))
	for _, f := range functions {
		result = append(result, f.Declaration())
	}
	return result
}

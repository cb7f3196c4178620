package agent

import (
	"context"
	"fmt"

	"github.com/depotlens/depotlens"
	"google.golang.org/genai"
)

const model = "gemini-2.5-pro"

// Workspace supplies the engine's views as markdown documents. The CLI wires
// these to the ledger, price sources, and reconciliation so the experts can
// read the same reports the user sees.
type Workspace struct {
	Holdings       func(on depotlens.Date) (string, error)
	Valuation      func(on depotlens.Date) (string, error)
	Reconciliation func(on depotlens.Date) (string, error)
	Labels         func() (string, error)
}

func newFacilitator(experts ...*Expert) *Expert {
	return &Expert{
		Name:      "Facilitator",
		ModelName: model,
		Config: &genai.GenerateContentConfig{
			Tools: []*genai.Tool{
				{FunctionDeclarations: NewDeclaration(experts)},
			},
			SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: `
			You facilitate a conversation about the user's brokerage portfolio.

			The user replays their transaction history and reconciles it
			against the broker's own numbers; they come to you when the two
			disagree and want to know why.

			Learn the experts' skills from the Tools and ask them questions.
			They are dedicated to you and keep the context of your previous
			questions. Devise a plan of questions and compose the best answer
			to the user's request.
		`}}},
		},
		Library: NewLibrary(experts),
	}
}

// NewAnalyst returns the expert that can read the user's ledger, valuation,
// and reconciliation report through the workspace.
func NewAnalyst(ws Workspace) *Expert {
	lib := analystFunctions(ws)
	return &Expert{
		Name: "Analyst",
		Description: `This is the reconciliation analyst. They can replay the
		user's transaction history into holdings, value the portfolio, list
		the raw transaction labels, and produce the reconciliation report
		that compares the replayed state against the broker's snapshot.`,
		ModelName: model,
		Config: &genai.GenerateContentConfig{
			Tools: []*genai.Tool{
				{FunctionDeclarations: NewDeclaration(lib)},
			},
			SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: `
				You analyse the user's portfolio reconciliation.

				Use the tools to read holdings, valuations, labels, and the
				reconciliation report. When the report flags a discrepancy,
				explain its cause tags in plain language: unclassified
				transaction labels mean the replay skipped records, missing
				share fields mean buys or sells contributed nothing, a
				currency-conversion suspect means a quote could not be
				converted into the reporting currency, and excluded-by-policy
				means the engine deliberately keeps an instrument out of the
				total while the broker counts it.

				Never invent numbers: every figure you state must come from a
				tool response.
			`}}},
		},
		Library: NewLibrary(lib),
	}
}

// Func implements Function with plain values.
type Func struct {
	Decl *genai.FunctionDeclaration
	Func func(ctx context.Context, id string, args map[string]any) *genai.FunctionResponse
}

func (f *Func) Declaration() *genai.FunctionDeclaration { return f.Decl }
func (f *Func) Call(ctx context.Context, id string, args map[string]any) *genai.FunctionResponse {
	return f.Func(ctx, id, args)
}

var dateParam = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"date": {
			Type:        genai.TypeString,
			Description: "The reference date, formatted YYYY-MM-DD. Today is the default.",
		},
	},
}

func analystFunctions(ws Workspace) []Function {
	reports := []struct {
		name, description string
		render            func(on depotlens.Date) (string, error)
	}{
		{
			name: "Holdings",
			description: `Holdings replays the transaction history and lists the
			instruments held on the given date with their share counts, plus
			replay diagnostics (unknown labels, quarantined records).`,
			render: ws.Holdings,
		},
		{
			name: "Valuation",
			description: `Valuation prices the holdings of the given date in the
			reporting currency and lists the holdings that could not be priced
			and why.`,
			render: ws.Valuation,
		},
		{
			name: "Reconciliation",
			description: `Reconciliation compares the replayed portfolio of the
			given date against the broker's snapshot and lists every
			discrepancy, largest first, with its probable cause tags.`,
			render: ws.Reconciliation,
		},
	}

	var out []Function
	for _, r := range reports {
		render := r.render
		name := r.name
		out = append(out, &Func{
			Decl: &genai.FunctionDeclaration{
				Name:        name,
				Description: r.description,
				Parameters:  dateParam,
				Response: &genai.Schema{
					Type:        genai.TypeString,
					Description: "A markdown report.",
				},
			},
			Func: func(ctx context.Context, id string, args map[string]any) *genai.FunctionResponse {
				on, err := parseDate(args)
				if err != nil {
					return errorResponse(id, name, err)
				}
				doc, err := render(on)
				if err != nil {
					return errorResponse(id, name, err)
				}
				return &genai.FunctionResponse{
					ID: id, Name: name,
					Response: map[string]any{"output": doc},
				}
			},
		})
	}

	if ws.Labels != nil {
		out = append(out, &Func{
			Decl: &genai.FunctionDeclaration{
				Name: "Labels",
				Description: `Labels lists every raw transaction label in the
				ledger with its classification and count. Labels classified as
				unknown were skipped by the replay.`,
				Response: &genai.Schema{
					Type:        genai.TypeString,
					Description: "A markdown table of labels.",
				},
			},
			Func: func(ctx context.Context, id string, args map[string]any) *genai.FunctionResponse {
				doc, err := ws.Labels()
				if err != nil {
					return errorResponse(id, "Labels", err)
				}
				return &genai.FunctionResponse{
					ID: id, Name: "Labels",
					Response: map[string]any{"output": doc},
				}
			},
		})
	}
	return out
}

func errorResponse(id, name string, err error) *genai.FunctionResponse {
	return &genai.FunctionResponse{
		ID: id, Name: name,
		Response: map[string]any{"error": err.Error()},
	}
}

func parseDate(args map[string]any) (depotlens.Date, error) {
	idate, hasDate := args["date"]
	if !hasDate {
		return depotlens.Today(), nil
	}
	sdate, ok := idate.(string)
	if !ok {
		return depotlens.Date{}, fmt.Errorf("argument 'date' is not a string but %T", idate)
	}
	on, err := depotlens.ParseDate(sdate)
	if err != nil {
		return depotlens.Date{}, fmt.Errorf("argument 'date' must be formatted YYYY-MM-DD, got %q", sdate)
	}
	return on, nil
}

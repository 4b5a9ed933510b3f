package llm

import (
	"encoding/json"
	"fmt"
)

// MockModel tags usage events produced without a real provider call. Mock
// generations still consume quota so demo usage cannot bypass the cap.
const MockModel = "mock"

// MockGenerate produces deterministic content for an action. Structured
// actions get valid JSON matching the shape the real provider is prompted
// for, so handlers parse mock and real output identically.
func MockGenerate(action, subject string) *Result {
	if subject == "" {
		subject = "the product"
	}

	var content string
	switch action {
	case "okrs":
		content = mustJSON(map[string]any{
			"okrs": []map[string]any{
				{
					"objective": fmt.Sprintf("Launch %s to first paying customers", subject),
					"keyResults": []string{
						"Ship a public beta within one quarter",
						"Reach 50 weekly active teams",
						"Convert 10% of beta teams to paid plans",
					},
				},
				{
					"objective": "Build a repeatable feedback loop",
					"keyResults": []string{
						"Interview 20 beta users",
						"Close the top 5 reported gaps",
					},
				},
			},
		})
	case "kpis":
		content = mustJSON(map[string]any{
			"kpis": []map[string]string{
				{"name": "Weekly active teams", "target": "50", "cadence": "weekly"},
				{"name": "Activation rate", "target": "40%", "cadence": "weekly"},
				{"name": "Net revenue retention", "target": "105%", "cadence": "monthly"},
			},
		})
	case "personas":
		content = mustJSON(map[string]any{
			"personas": []map[string]string{
				{"name": "Product-minded founder", "goal": "Turn a rough idea into a shareable plan fast", "pain": "No time for long strategy docs"},
				{"name": "PM at a growing startup", "goal": "Align engineering on scope before kickoff", "pain": "Specs drift from the original intent"},
			},
		})
	case "competitors":
		content = mustJSON(map[string]any{
			"competitors": []map[string]string{
				{"name": "Docs-first suites", "strength": "Familiar editing", "weakness": "No structure from idea to spec"},
				{"name": "Diagramming tools", "strength": "Flexible canvases", "weakness": "Disconnected from strategy"},
			},
		})
	case "flow":
		content = mustJSON(map[string]any{
			"nodes": []map[string]any{
				{"id": "start", "label": "User lands on onboarding", "type": "entry"},
				{"id": "idea", "label": "Describes product idea", "type": "step"},
				{"id": "review", "label": "Reviews generated plan", "type": "step"},
				{"id": "share", "label": "Shares with team", "type": "exit"},
			},
			"edges": []map[string]string{
				{"from": "start", "to": "idea"},
				{"from": "idea", "to": "review"},
				{"from": "review", "to": "share"},
			},
		})
	case "strategy":
		content = fmt.Sprintf("# Strategy for %s\n\n## Positioning\nA focused tool that turns a raw idea into a plan a team can execute.\n\n## Wedge\nStart with teams that already write product briefs and shorten that loop.\n\n## Moat\nAccumulated context: every generated artifact feeds the next one.", subject)
	case "spec":
		content = fmt.Sprintf("# Engineering Specification: %s\n\n## Scope\nMVP covering idea capture, plan generation, and team review.\n\n## API\nJSON over HTTP, session-authenticated.\n\n## Milestones\n1. Idea capture and storage\n2. Generation pipeline\n3. Review and sharing", subject)
	default: // story
		content = fmt.Sprintf("%s helps teams move from a one-line idea to an execution-ready plan. It captures the idea, drafts the strategy, sketches the user flow, and hands engineering a spec that still reflects the original intent.", subject)
	}

	return &Result{
		Content:      content,
		Model:        MockModel,
		InputTokens:  0,
		OutputTokens: 0,
	}
}

func mustJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		// Only reachable with an unmarshalable value, which the literals
		// above never are.
		panic(err)
	}
	return string(b)
}

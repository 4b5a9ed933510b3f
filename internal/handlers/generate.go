package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/blueprintai/backend/internal/audit"
	"github.com/blueprintai/backend/internal/config"
	"github.com/blueprintai/backend/internal/crypto"
	"github.com/blueprintai/backend/internal/database"
	"github.com/blueprintai/backend/internal/gate"
	"github.com/blueprintai/backend/internal/llm"
	"github.com/blueprintai/backend/internal/logutil"
	"github.com/blueprintai/backend/internal/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// GenGate and Auditor are set from main.go during init.
var (
	GenGate *gate.Gate
	Auditor *audit.Auditor
)

// LLMClientFactory builds the provider client per request so admin key
// updates take effect without a restart. Overridable in tests.
var LLMClientFactory = defaultLLMClient

func defaultLLMClient() *llm.Client {
	var key string
	if enc, err := database.GetSetting("llm_api_key"); err == nil && enc != "" {
		if dec, err := crypto.Decrypt(enc); err == nil {
			key = dec
		}
	}
	model := config.Cfg.LLMModel
	if m, err := database.GetSetting("llm_model"); err == nil && m != "" {
		model = m
	}
	timeout := time.Duration(config.Cfg.LLMTimeoutSeconds) * time.Second
	return llm.NewClient(config.Cfg.LLMBaseURL, key, model, timeout)
}

// generationKind describes one content type the pipeline can produce.
// Structured kinds require the provider to answer with a JSON object carrying
// the named key; prose kinds return raw text.
type generationKind struct {
	system     string
	structured bool
	// keys that must be present in a structured response
	keys []string
}

var generationKinds = map[string]generationKind{
	"story": {
		system: "You are a product strategist. Write a concise product story: what the product is, who it serves, and why it wins. Answer in plain prose.",
	},
	"okrs": {
		system:     "You are a product strategist. Produce OKRs for the product as JSON: {\"okrs\": [{\"objective\": string, \"keyResults\": [string]}]}. Answer with JSON only.",
		structured: true,
		keys:       []string{"okrs"},
	},
	"kpis": {
		system:     "You are a product analyst. Produce KPIs for the product as JSON: {\"kpis\": [{\"name\": string, \"target\": string, \"cadence\": string}]}. Answer with JSON only.",
		structured: true,
		keys:       []string{"kpis"},
	},
	"personas": {
		system:     "You are a user researcher. Produce user personas as JSON: {\"personas\": [{\"name\": string, \"goal\": string, \"pain\": string}]}. Answer with JSON only.",
		structured: true,
		keys:       []string{"personas"},
	},
	"competitors": {
		system:     "You are a market analyst. Produce a competitor overview as JSON: {\"competitors\": [{\"name\": string, \"strength\": string, \"weakness\": string}]}. Answer with JSON only.",
		structured: true,
		keys:       []string{"competitors"},
	},
	"flow": {
		system:     "You are a UX designer. Produce a user flow as JSON: {\"nodes\": [{\"id\": string, \"label\": string, \"type\": string}], \"edges\": [{\"from\": string, \"to\": string}]}. Answer with JSON only.",
		structured: true,
		keys:       []string{"nodes", "edges"},
	},
	"strategy": {
		system: "You are a product strategist. Write a strategy document in Markdown: positioning, wedge, moat, and sequencing.",
	},
	"spec": {
		system: "You are a staff engineer. Write an engineering specification in Markdown: scope, API surface, data model, and milestones.",
	},
}

// Generate handles POST /api/v1/projects/{id}/generate/{kind}. Every kind
// runs the same pipeline: resolve project and team, evaluate the gate,
// generate (real provider or mock fallback), record exactly one usage event,
// respond with the payload plus used/limit.
func Generate(w http.ResponseWriter, r *http.Request) {
	kindName := chi.URLParam(r, "kind")
	kind, ok := generationKinds[kindName]
	if !ok {
		writeError(w, http.StatusNotFound, "Unknown generation type")
		return
	}

	user := middleware.GetUser(r)
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	project, ok := loadAccessibleProject(w, r)
	if !ok {
		return
	}

	var body struct {
		Description string `json:"description"`
		Prompt      string `json:"prompt"`
		Label       string `json:"label"`
	}
	// Body is optional; all kinds can fall back to the project description.
	_ = json.NewDecoder(r.Body).Decode(&body)

	decision, err := GenGate.Evaluate(project.TeamID, user.Role)
	if err != nil {
		writeGateDenial(w, err, project.TeamID, kindName, user.Email)
		return
	}

	subject := project.Name
	prompt := buildPrompt(project, body.Description, body.Prompt, body.Label)

	client := LLMClientFactory()
	var result *llm.Result
	var genErr error
	if client.Configured() {
		result, genErr = client.Generate(r.Context(), kind.system, prompt, kind.structured)
	} else {
		result = llm.MockGenerate(kindName, subject)
	}

	var payload map[string]interface{}
	if genErr == nil {
		payload, genErr = shapePayload(kind, result.Content)
	}

	// Exactly one usage event per attempt that passed the gate, whether the
	// generation came from the provider, the mock, or failed downstream.
	event := database.UsageEvent{
		RequestID: uuid.NewString(),
		TeamID:    project.TeamID,
		Action:    "generate_" + kindName,
	}
	if result != nil {
		event.Model = result.Model
		event.InputTokens = result.InputTokens
		event.OutputTokens = result.OutputTokens
	} else {
		event.Model = llm.MockModel
	}
	// If the event cannot be written the attempt would escape quota counting,
	// so the result is not returned either.
	if err := database.RecordUsage(database.DB, &event); err != nil {
		log.Printf("[generate] failed to record usage for team %d: %v", project.TeamID, err)
		writeError(w, http.StatusInternalServerError, "Failed to record usage")
		return
	}

	if genErr != nil {
		log.Printf("[generate] %s failed for project %d: %v", kindName, project.ID, genErr)
		if Auditor != nil {
			Auditor.Log(audit.Entry{
				TeamID:   project.TeamID,
				Plan:     string(decision.Plan),
				Action:   "generate_" + kindName,
				Decision: audit.DecisionProviderError,
				Detail:   genErr.Error(),
				Email:    user.Email,
			})
		}
		msg := "AI generation failed"
		if config.Cfg.Debug {
			msg = fmt.Sprintf("AI generation failed: %v", genErr)
		}
		writeError(w, http.StatusInternalServerError, msg)
		return
	}

	payload["usage"] = map[string]int64{
		"used":  decision.UsedThisMonth + 1,
		"limit": decision.Limits.MaxAIGenerationsPerMonth,
	}
	writeJSON(w, http.StatusOK, payload)
}

func buildPrompt(project *database.Project, description, prompt, label string) string {
	base := description
	if base == "" {
		base = project.Description
	}
	out := fmt.Sprintf("Product: %s\n\nIdea: %s", project.Name, base)
	if label != "" {
		out += "\n\nFocus: " + label
	}
	if prompt != "" {
		out += "\n\nAdditional instructions: " + prompt
	}
	return out
}

// shapePayload turns raw provider content into the response payload for the
// kind. Structured kinds must parse as a JSON object with the expected keys;
// anything else is a provider failure.
func shapePayload(kind generationKind, content string) (map[string]interface{}, error) {
	if !kind.structured {
		return map[string]interface{}{"content": content}, nil
	}

	var parsed map[string]interface{}
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return nil, fmt.Errorf("unparseable provider content: %w", err)
	}
	payload := make(map[string]interface{}, len(kind.keys)+1)
	for _, key := range kind.keys {
		val, ok := parsed[key]
		if !ok {
			return nil, fmt.Errorf("provider content missing %q", key)
		}
		payload[key] = val
	}
	return payload, nil
}

// writeGateDenial maps gate errors to HTTP responses and audits them.
// Audit logging is best-effort and never blocks the response.
func writeGateDenial(w http.ResponseWriter, err error, teamID uint, action, email string) {
	logDenial := func(decision, plan, detail string) {
		if Auditor != nil {
			Auditor.Log(audit.Entry{
				TeamID:   teamID,
				Plan:     plan,
				Action:   "generate_" + action,
				Decision: decision,
				Detail:   detail,
				Email:    email,
			})
		}
	}

	var blocked *gate.BlockedError
	var notEntitled *gate.NotEntitledError
	var rateLimited *gate.RateLimitedError
	var quota *gate.QuotaExceededError

	switch {
	case errors.Is(err, gate.ErrTeamNotFound):
		logDenial(audit.DecisionNotFound, "", "team not found")
		writeError(w, http.StatusNotFound, "Team not found")
	case errors.As(err, &blocked):
		logDenial(audit.DecisionBlocked, "", "team is ai_blocked")
		writeError(w, http.StatusForbidden, "AI generation is disabled for this team. Contact support.")
	case errors.As(err, &notEntitled):
		logDenial(audit.DecisionNotEntitled, string(notEntitled.Plan), "plan not entitled")
		writeError(w, http.StatusForbidden, "Your plan does not include AI generation. Upgrade to unlock it.")
	case errors.As(err, &rateLimited):
		logDenial(audit.DecisionRateLimited, "", fmt.Sprintf("more than %d requests in %s", gate.RateLimitMax, gate.RateLimitWindow))
		w.Header().Set("Retry-After", "60")
		writeError(w, http.StatusTooManyRequests, "Too many AI requests. Please wait a moment and try again.")
	case errors.As(err, &quota):
		logDenial(audit.DecisionQuotaExceeded, "", fmt.Sprintf("%d/%d", quota.Used, quota.Limit))
		writeError(w, http.StatusForbidden,
			fmt.Sprintf("Monthly AI generation limit reached (%d/%d). Upgrade your plan to continue.", quota.Used, quota.Limit))
	default:
		log.Printf("[generate] gate evaluation failed for team %d action %s: %v",
			teamID, logutil.SanitizeForLog(action), err)
		writeError(w, http.StatusInternalServerError, "Failed to evaluate request")
	}
}

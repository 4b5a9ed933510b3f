package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/blueprintai/backend/internal/crypto"
	"github.com/blueprintai/backend/internal/database"
)

// GetSettings returns admin-editable settings with the provider key masked.
func GetSettings(w http.ResponseWriter, r *http.Request) {
	keyMasked := ""
	if enc, err := database.GetSetting("llm_api_key"); err == nil && enc != "" {
		if dec, err := crypto.Decrypt(enc); err == nil {
			keyMasked = crypto.Mask(dec)
		}
	}
	model, _ := database.GetSetting("llm_model")

	writeJSON(w, http.StatusOK, map[string]string{
		"llm_api_key": keyMasked,
		"llm_model":   model,
	})
}

// UpdateSettings stores the provider key (encrypted at rest) and model
// override. Empty strings clear a setting; absent fields are untouched.
func UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var body struct {
		LLMAPIKey *string `json:"llm_api_key"`
		LLMModel  *string `json:"llm_model"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if body.LLMAPIKey != nil {
		value := ""
		if *body.LLMAPIKey != "" {
			enc, err := crypto.Encrypt(*body.LLMAPIKey)
			if err != nil {
				writeError(w, http.StatusInternalServerError, "Failed to encrypt API key")
				return
			}
			value = enc
		}
		if err := database.SetSetting("llm_api_key", value); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to save API key")
			return
		}
	}

	if body.LLMModel != nil {
		if err := database.SetSetting("llm_model", *body.LLMModel); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to save model")
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

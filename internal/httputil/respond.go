package httputil

import (
	"encoding/json"
	"net/http"
)

// JSON writes v as a JSON response with the given status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Error writes a JSON error envelope with the given status.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// UpgradeRequired writes the entitlement-failure envelope: a 402 with an
// explicit upgrade hint, distinct from a plain 403.
func UpgradeRequired(w http.ResponseWriter, message, currentPlan string) {
	JSON(w, http.StatusPaymentRequired, map[string]any{
		"error":            message,
		"upgrade_required": true,
		"current_plan":     currentPlan,
	})
}

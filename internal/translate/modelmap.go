package translate

import (
	"fmt"
	"sort"
	"strings"
)

// modelMap is grounded on original_source/src/models/mapping.rs. Unlike the
// Rust OnceLock-lazy map, Go package-level var init runs once at program
// start with no extra ceremony needed.
var modelMap = map[string]string{
	"claude-opus-4":     "gemini-3-pro-preview",
	"claude-opus-4-5":   "gemini-3-pro-preview",
	"claude-sonnet-4-5": "gemini-3-flash-preview",
	"claude-sonnet-4":   "gemini-3-flash-preview",
	"claude-haiku-4":    "gemini-2.5-flash",
	"claude-haiku-4-5":  "gemini-2.5-pro",

	"claude-3-5-sonnet-20241022": "gemini-2.5-flash",
	"claude-3-5-sonnet":          "gemini-2.5-flash",
	"claude-3-opus-20240229":     "gemini-2.5-pro",
	"claude-3-opus":              "gemini-2.5-pro",
	"claude-3-sonnet-20240229":   "gemini-2.5-flash",
	"claude-3-sonnet":            "gemini-2.5-flash",
	"claude-3-haiku-20240307":    "gemini-2.5-flash-lite",
	"claude-3-haiku":             "gemini-2.5-flash-lite",
}

// MapModel resolves a client-facing model name to the upstream model name,
// after stripping a trailing -YYYYMMDD date suffix.
func MapModel(clientModel string) (string, error) {
	normalized := stripDateSuffix(clientModel)
	if upstream, ok := modelMap[normalized]; ok {
		return upstream, nil
	}
	names := make([]string, 0, len(modelMap))
	for k := range modelMap {
		names = append(names, k)
	}
	sort.Strings(names)
	return "", fmt.Errorf("unsupported model: %s. supported models: %s", clientModel, strings.Join(names, ", "))
}

// stripDateSuffix removes a trailing "-YYYYMMDD" (8 ASCII digits) suffix.
func stripDateSuffix(model string) string {
	if len(model) <= 9 {
		return model
	}
	if model[len(model)-9] != '-' {
		return model
	}
	suffix := model[len(model)-8:]
	for _, c := range suffix {
		if c < '0' || c > '9' {
			return model
		}
	}
	return model[:len(model)-9]
}

package registry

import (
	"strings"

	"openaigateway/internal/core"
)

// ExtractModels returns the model list of a fetched document: the "data"
// member of an object, the document itself when it is an array, nil otherwise.
func ExtractModels(doc any) []any {
	switch v := doc.(type) {
	case map[string]any:
		data, ok := v["data"]
		if !ok {
			return nil
		}
		list, _ := data.([]any)
		return list
	case []any:
		return v
	default:
		return nil
	}
}

// Merge concatenates per-backend model lists in backend order. lists[i] belongs
// to backends[i]; nil slots are skipped. Models of the canonical OpenAI backend
// whose id contains a denylisted fragment are dropped.
func Merge(backends []core.Backend, lists [][]any) []core.ModelRecord {
	merged := make([]core.ModelRecord, 0)
	for idx, models := range lists {
		if models == nil || idx >= len(backends) {
			continue
		}
		filter := backends[idx].IsOpenAI()
		for _, item := range models {
			raw, ok := item.(map[string]any)
			if !ok {
				continue
			}
			id, ok := raw["id"].(string)
			if !ok {
				continue
			}
			if filter && IsExcludedOpenAIModel(id) {
				continue
			}
			name, ok := raw["name"].(string)
			if !ok {
				name = id
			}
			merged = append(merged, core.ModelRecord{
				ID:      id,
				Name:    name,
				OwnedBy: core.ModelOwner,
				Raw:     raw,
				URLIdx:  idx,
			})
		}
	}
	return merged
}

// IsExcludedOpenAIModel reports whether an id contains a denylisted fragment.
func IsExcludedOpenAIModel(id string) bool {
	for _, fragment := range core.ExcludedOpenAIModelFragments {
		if strings.Contains(id, fragment) {
			return true
		}
	}
	return false
}

// FilterOpenAIModels drops denylisted models from a single-backend listing.
func FilterOpenAIModels(doc map[string]any) map[string]any {
	data, ok := doc["data"].([]any)
	if !ok {
		return doc
	}
	kept := make([]any, 0, len(data))
	for _, item := range data {
		if raw, ok := item.(map[string]any); ok {
			if id, ok := raw["id"].(string); ok && IsExcludedOpenAIModel(id) {
				continue
			}
		}
		kept = append(kept, item)
	}
	doc["data"] = kept
	return doc
}

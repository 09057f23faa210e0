// Package payload applies per-model configuration to chat completion bodies.
package payload

import (
	"strconv"
	"strings"
	"time"

	"openaigateway/internal/core"
)

// Template variables rendered into configured system prompts.
const (
	VarUserName        = "{{USER_NAME}}"
	VarUserEmail       = "{{USER_EMAIL}}"
	VarCurrentDate     = "{{CURRENT_DATE}}"
	VarCurrentTime     = "{{CURRENT_TIME}}"
	VarCurrentDateTime = "{{CURRENT_DATETIME}}"
	VarCurrentWeekday  = "{{CURRENT_WEEKDAY}}"
)

// ApplyParams copies every configured sampling parameter into body.
func ApplyParams(params core.ModelParams, body map[string]any) map[string]any {
	if params.Temperature != nil {
		body["temperature"] = *params.Temperature
	}
	if params.TopP != nil {
		body["top_p"] = *params.TopP
	}
	if params.MaxTokens != nil {
		body["max_tokens"] = *params.MaxTokens
	}
	if params.FrequencyPenalty != nil {
		body["frequency_penalty"] = *params.FrequencyPenalty
	}
	if params.Seed != nil {
		body["seed"] = *params.Seed
	}
	if params.Stop != nil {
		stop := make([]any, len(params.Stop))
		for i, s := range params.Stop {
			stop[i] = unescape(s)
		}
		body["stop"] = stop
	}
	return body
}

// unescape resolves backslash escapes such as \n in configured stop sequences.
func unescape(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	quoted := `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
	if out, err := strconv.Unquote(quoted); err == nil {
		return out
	}
	return s
}

// ApplySystemPrompt renders the configured system prompt for the caller and
// merges it into the leading system message, or prepends a new one.
func ApplySystemPrompt(params core.ModelParams, body map[string]any, identity *core.Identity, now time.Time) map[string]any {
	if params.System == "" {
		return body
	}

	system := RenderTemplate(params.System, identity, now)
	messages, _ := body[core.FieldMessages].([]any)
	body[core.FieldMessages] = addOrUpdateSystemMessage(system, messages)
	return body
}

// RenderTemplate substitutes the caller and clock variables of a prompt.
func RenderTemplate(template string, identity *core.Identity, now time.Time) string {
	name, email := "Unknown", "Unknown"
	if identity != nil {
		if identity.Name != "" {
			name = identity.Name
		}
		if identity.Email != "" {
			email = identity.Email
		}
	}

	replacer := strings.NewReplacer(
		VarCurrentDateTime, now.Format(core.TimeFormatDateTime),
		VarCurrentDate, now.Format("2006-01-02"),
		VarCurrentTime, now.Format("03:04:05 PM"),
		VarCurrentWeekday, now.Format("Monday"),
		VarUserName, name,
		VarUserEmail, email,
	)
	return replacer.Replace(template)
}

func addOrUpdateSystemMessage(content string, messages []any) []any {
	if len(messages) > 0 {
		if first, ok := messages[0].(map[string]any); ok && first[core.FieldRole] == core.RoleSystem {
			if existing, ok := first[core.FieldContent].(string); ok {
				first[core.FieldContent] = content + "\n" + existing
			} else {
				first[core.FieldContent] = content
			}
			return messages
		}
	}

	out := make([]any, 0, len(messages)+1)
	out = append(out, map[string]any{core.FieldRole: core.RoleSystem, core.FieldContent: content})
	return append(out, messages...)
}

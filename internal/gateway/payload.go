package gateway

import (
	"strings"

	"openaigateway/internal/core"
	"openaigateway/internal/util"
)

// Payload is a chat completion request body. Fields the gateway does not
// rewrite pass through untouched.
type Payload map[string]any

// ParsePayload decodes a JSON object request body.
func ParsePayload(data []byte) (Payload, error) {
	var p Payload
	if err := util.UnmarshalJSON(data, &p); err != nil {
		return nil, err
	}
	if p == nil {
		p = Payload{}
	}
	return p, nil
}

// Model returns the requested model id, "" when absent.
func (p Payload) Model() string {
	model, _ := p[core.FieldModel].(string)
	return model
}

// Messages returns the message list, nil when absent or malformed.
func (p Payload) Messages() []any {
	messages, _ := p[core.FieldMessages].([]any)
	return messages
}

// IsO1 reports whether a model id belongs to the o1 family.
func IsO1(model string) bool {
	return strings.HasPrefix(strings.ToLower(model), core.O1ModelPrefix)
}

// Normalize rewrites p in place for the parameter constraints of the model
// and the backend it is sent to.
func Normalize(p Payload, backend core.Backend) {
	o1 := IsO1(p.Model())

	// o1 only accepts the default temperature and no leading system message.
	if o1 {
		if t, ok := p[core.FieldTemperature]; ok && !isOne(t) {
			p[core.FieldTemperature] = float64(1)
		}
		if messages := p.Messages(); len(messages) > 0 && roleOf(messages[0]) == core.RoleSystem {
			p[core.FieldMessages] = messages[1:]
		}
	}

	if !backend.IsOpenAI() && !o1 {
		if v, ok := p[core.FieldMaxCompletionTokens]; ok {
			p[core.FieldMaxTokens] = v
			delete(p, core.FieldMaxCompletionTokens)
		}
	} else {
		if v, ok := p[core.FieldMaxTokens]; o1 && ok {
			p[core.FieldMaxCompletionTokens] = v
			delete(p, core.FieldMaxTokens)
		}
		_, hasMax := p[core.FieldMaxTokens]
		_, hasCompletion := p[core.FieldMaxCompletionTokens]
		if hasMax && hasCompletion {
			delete(p, core.FieldMaxTokens)
		}
	}

	if o1 {
		if messages := p.Messages(); len(messages) > 0 && roleOf(messages[0]) == core.RoleSystem {
			messages[0].(map[string]any)[core.FieldRole] = core.RoleUser
		}
	}
}

func roleOf(message any) string {
	m, ok := message.(map[string]any)
	if !ok {
		return ""
	}
	role, _ := m[core.FieldRole].(string)
	return role
}

func isOne(v any) bool {
	switch n := v.(type) {
	case float64:
		return n == 1
	case float32:
		return n == 1
	case int:
		return n == 1
	case int64:
		return n == 1
	}
	return false
}

func pipelineUser(identity *core.Identity) map[string]any {
	if identity == nil {
		identity = &core.Identity{}
	}
	return map[string]any{
		"name":  identity.Name,
		"id":    identity.ID,
		"email": identity.Email,
		"role":  identity.Role,
	}
}

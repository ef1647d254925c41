package a2a

import (
	"strings"

	"trpc.group/trpc-go/trpc-a2a-go/protocol"
)

// skillInvocation is one requested skill call extracted from a message,
// either explicit (a DataPart naming "skill") or inferred from a
// natural-language TextPart (spec.md §4.11).
type skillInvocation struct {
	Skill      string
	Parameters map[string]any
}

// parseSkillInvocations implements the two routing modes of spec.md §4.11:
// explicit DataPart{skill, input|parameters} invocations take priority;
// when none are present, the combined text of the message's TextParts is
// matched against a fixed keyword table.
func parseSkillInvocations(msg *protocol.Message) (invocations []skillInvocation, naturalLanguage bool) {
	if msg == nil {
		return nil, false
	}

	var textParts []string
	for _, part := range msg.Parts {
		switch p := part.(type) {
		case *protocol.DataPart:
			if inv, ok := explicitSkillFromData(p.Data); ok {
				invocations = append(invocations, inv)
			}
		case protocol.DataPart:
			if inv, ok := explicitSkillFromData(p.Data); ok {
				invocations = append(invocations, inv)
			}
		case *protocol.TextPart:
			textParts = append(textParts, p.Text)
		case protocol.TextPart:
			textParts = append(textParts, p.Text)
		}
	}

	if len(invocations) > 0 {
		return invocations, false
	}

	combined := strings.ToLower(strings.Join(textParts, " "))
	return naturalLanguageInvocation(combined), true
}

// explicitSkillFromData recognizes {"skill": "...", "input": {...}} or the
// legacy {"skill": "...", "parameters": {...}} shape, and the nested
// {"data": {"skill": ..., ...}} variant some older clients send.
func explicitSkillFromData(data any) (skillInvocation, bool) {
	m, ok := data.(map[string]any)
	if !ok {
		return skillInvocation{}, false
	}
	if nested, ok := m["data"].(map[string]any); ok {
		if _, hasSkill := nested["skill"]; hasSkill {
			m = nested
		}
	}
	skillName, ok := m["skill"].(string)
	if !ok || skillName == "" {
		return skillInvocation{}, false
	}
	params, _ := m["input"].(map[string]any)
	if params == nil {
		params, _ = m["parameters"].(map[string]any)
	}
	if params == nil {
		params = map[string]any{}
	}
	return skillInvocation{Skill: skillName, Parameters: params}, true
}

// naturalLanguageKeywords maps a keyword set to the skill it routes to,
// checked in order; the first matching set wins (spec.md §4.11). Only
// skills this repo actually implements are routed to — legacy
// pricing/targeting keyword buckets from the original conversational
// fallback are intentionally not carried forward.
var naturalLanguageKeywords = []struct {
	skill    string
	keywords []string
}{
	{"get_products", []string{"product", "inventory", "available", "catalog"}},
	{"create_media_buy", []string{"create", "buy", "campaign", "media"}},
}

func naturalLanguageInvocation(combinedText string) []skillInvocation {
	for _, route := range naturalLanguageKeywords {
		for _, kw := range route.keywords {
			if strings.Contains(combinedText, kw) {
				return []skillInvocation{{Skill: route.skill, Parameters: map[string]any{"brief": combinedText}}}
			}
		}
	}
	return nil
}

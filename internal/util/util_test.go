package util

import (
	"testing"
)

func TestCleanList(t *testing.T) {
	tests := []struct {
		name     string
		input    []string
		expected []string
	}{
		{"空列表", nil, []string{}},
		{"单个值", []string{"value1"}, []string{"value1"}},
		{"值带空格", []string{"value1", " value2 ", "value3"}, []string{"value1", "value2", "value3"}},
		{"包含空值", []string{"value1", "", "value2"}, []string{"value1", "value2"}},
		{"全空格值", []string{"  ", "  "}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := CleanList(tt.input)
			if len(result) != len(tt.expected) {
				t.Fatalf("期望长度 %d，实际 %d", len(tt.expected), len(result))
			}
			for i, expected := range tt.expected {
				if result[i] != expected {
					t.Errorf("索引 %d: 期望 '%s'，实际 '%s'", i, expected, result[i])
				}
			}
		})
	}
}

func TestNormalizeBaseURLs(t *testing.T) {
	result := NormalizeBaseURLs([]string{"https://api.openai.com/v1/", " http://localhost:11434/v1 ", ""})
	expected := []string{"https://api.openai.com/v1", "http://localhost:11434/v1"}
	if len(result) != len(expected) {
		t.Fatalf("expected %d urls, got %d (%v)", len(expected), len(result), result)
	}
	for i := range expected {
		if result[i] != expected[i] {
			t.Errorf("index %d: expected %q, got %q", i, expected[i], result[i])
		}
	}
}

func TestTrimKeys_KeepsEmptyPositions(t *testing.T) {
	result := TrimKeys([]string{" sk-a ", "", "sk-c"})
	if len(result) != 3 {
		t.Fatalf("expected 3 keys, got %d", len(result))
	}
	if result[0] != "sk-a" || result[1] != "" || result[2] != "sk-c" {
		t.Errorf("unexpected keys: %q", result)
	}
}

func TestTruncateString(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		prefixLen   int
		suffixLen   int
		replacement string
		expected    string
	}{
		{"短字符串不截断", "abc", 2, 2, "...", "abc"},
		{"长字符串截断", "abcdefghij", 2, 3, "...", "ab...hij"},
		{"仅保留后缀", "abcdefghij", 0, 4, "***", "***ghij"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := TruncateString(tt.input, tt.prefixLen, tt.suffixLen, tt.replacement)
			if result != tt.expected {
				t.Errorf("期望 '%s'，实际 '%s'", tt.expected, result)
			}
		})
	}
}

func TestMaskKey(t *testing.T) {
	if got := MaskKey(""); got != "<empty>" {
		t.Errorf("expected <empty>, got %q", got)
	}
	if got := MaskKey("sk-1234567890"); got != "sk-...7890" {
		t.Errorf("expected sk-...7890, got %q", got)
	}
}

func TestBearerToken(t *testing.T) {
	token, ok := BearerToken("Bearer abc123")
	if !ok || token != "abc123" {
		t.Errorf("expected abc123, got %q (ok=%v)", token, ok)
	}
	if _, ok := BearerToken("Basic abc123"); ok {
		t.Error("non-bearer scheme should not parse")
	}
}

func TestGenerateRequestID_Unique(t *testing.T) {
	first := GenerateRequestID()
	second := GenerateRequestID()
	if first == second {
		t.Error("request ids should be unique")
	}
	if len(first) != 36 {
		t.Errorf("expected uuid length 36, got %d", len(first))
	}
}

func TestMarshalUnmarshalJSON_Map(t *testing.T) {
	data, err := MarshalJSON(map[string]any{"model": "gpt-4o"})
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	var decoded map[string]any
	if err := UnmarshalJSON(data, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if decoded["model"] != "gpt-4o" {
		t.Errorf("expected gpt-4o, got %v", decoded["model"])
	}
}

func TestErrorDetailFromBody(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		expected string
	}{
		{"error.message", `{"error":{"message":"Invalid API key","type":"auth"}}`, "Invalid API key"},
		{"error 字符串", `{"error":"rate limited"}`, "rate limited"},
		{"error 无 message", `{"error":{"code":42}}`, `{"code":42}`},
		{"无 error 字段", `{"detail":"nope"}`, ""},
		{"JSON 字符串", `"plain"`, "plain"},
		{"非 JSON 文本", "upstream exploded", "upstream exploded"},
		{"空响应", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ErrorDetailFromBody([]byte(tt.body)); got != tt.expected {
				t.Errorf("期望 %q，实际 %q", tt.expected, got)
			}
		})
	}
}

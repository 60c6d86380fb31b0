package node

import (
	"encoding/json"
	"strings"
)

// ExtractJSON 将模型输出解析为 JSON 对象。
// 依次处理：去掉 Markdown 代码围栏（可带语言标记）-> 截取花括号区域 -> 解析。
// 任何失败都返回空 map，调用方据此按字段兜底；不会返回 nil。
func ExtractJSON(raw string) map[string]any {
	body := ExtractJSONObject(raw)
	if body == "" {
		return map[string]any{}
	}

	var out map[string]any
	if err := json.Unmarshal([]byte(body), &out); err != nil || out == nil {
		return map[string]any{}
	}
	return out
}

// ExtractJSONObject 从模型输出中截取 JSON 对象文本。
// 整体是花括号包围的文本时原样返回；只有开头或结尾是围栏时才去掉围栏；
// 否则取第一个 '{' 到最后一个 '}'。找不到时返回空串。
func ExtractJSONObject(s string) string {
	raw := strings.TrimSpace(s)
	if isBraced(raw) {
		return raw
	}
	if strings.HasPrefix(raw, fence) || strings.HasSuffix(raw, fence) {
		raw = stripCodeFence(raw)
	}
	if raw == "" {
		return ""
	}
	if isBraced(raw) {
		return raw
	}

	// 模型输出夹杂了其它文本时，只截取花括号包围的区域。
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return ""
	}
	return raw[start : end+1]
}

const fence = "```"

func isBraced(s string) bool {
	return strings.HasPrefix(s, "{") && strings.HasSuffix(s, "}")
}

// stripCodeFence 去掉 ``` 围栏，支持 ```json ... ```、``` ... ``` 与单行写法。
// 结束围栏取最后一个，正文中的反引号不会截断内容。
func stripCodeFence(s string) string {
	open := strings.Index(s, fence)
	if open < 0 {
		return s
	}

	rest := s[open+len(fence):]
	// 跳过语言标记（围栏同一行的内容）
	if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
		tag := strings.TrimSpace(rest[:nl])
		if isFenceTag(tag) {
			rest = rest[nl+1:]
		}
	} else {
		// 单行：```json {...}```
		trimmed := strings.TrimLeft(rest, " \t")
		if i := strings.IndexAny(trimmed, "{["); i > 0 && isFenceTag(strings.TrimSpace(trimmed[:i])) {
			rest = trimmed[i:]
		}
	}

	if closeIdx := strings.LastIndex(rest, fence); closeIdx >= 0 {
		rest = rest[:closeIdx]
	}
	return strings.TrimSpace(rest)
}

func isFenceTag(tag string) bool {
	if tag == "" {
		return true
	}
	for _, r := range tag {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '-' || r == '_') {
			return false
		}
	}
	return true
}

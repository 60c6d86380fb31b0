package node

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// 以下函数从 ExtractJSON 的结果中按键读取字段，缺失或类型不符时返回 ok=false / 零值，
// 由各阶段自行决定兜底值。

// String 读取字符串字段（去除首尾空白）；数组形式的文本段落按空行拼接
func String(m map[string]any, key string) (string, bool) {
	v, ok := m[key]
	if !ok || v == nil {
		return "", false
	}
	switch t := v.(type) {
	case string:
		s := strings.TrimSpace(t)
		return s, s != ""
	case []any:
		parts := make([]string, 0, len(t))
		for _, item := range t {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				parts = append(parts, strings.TrimSpace(s))
			}
		}
		s := strings.Join(parts, "\n\n")
		return s, s != ""
	case float64, bool:
		return fmt.Sprint(t), true
	default:
		return "", false
	}
}

// StringOr 读取字符串字段，缺失时返回 def
func StringOr(m map[string]any, key, def string) string {
	if s, ok := String(m, key); ok {
		return s
	}
	return def
}

// StringSlice 读取字符串数组字段。
// 元素为对象时取 name/title/description 字段；单个字符串视为一个元素。
func StringSlice(m map[string]any, key string) []string {
	out := []string{}
	v, ok := m[key]
	if !ok || v == nil {
		return out
	}
	switch t := v.(type) {
	case string:
		if s := strings.TrimSpace(t); s != "" {
			out = append(out, s)
		}
	case []any:
		for _, item := range t {
			if s := stringItem(item); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

func stringItem(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case map[string]any:
		for _, k := range []string{"name", "title", "description"} {
			if s, ok := String(t, k); ok {
				return s
			}
		}
	}
	return ""
}

// Bool 严格读取布尔字段：只接受 JSON 布尔值，或精确的 "true"/"false" 字符串。
// "TRUE"、"yes"、"1" 等一律视为 false。
func Bool(m map[string]any, key string) bool {
	switch t := m[key].(type) {
	case bool:
		return t
	case string:
		return strings.TrimSpace(t) == "true"
	default:
		return false
	}
}

// Int 读取整数字段；接受整数值的数字或数字字符串
func Int(m map[string]any, key string) (int, bool) {
	switch t := m[key].(type) {
	case float64:
		if t != math.Trunc(t) {
			return 0, false
		}
		return int(t), true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(t))
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

// Objects 读取对象数组字段，非对象元素被丢弃
func Objects(m map[string]any, key string) []map[string]any {
	arr, ok := m[key].([]any)
	if !ok {
		return nil
	}
	out := make([]map[string]any, 0, len(arr))
	for _, item := range arr {
		if obj, ok := item.(map[string]any); ok {
			out = append(out, obj)
		}
	}
	return out
}

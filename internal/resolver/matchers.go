package resolver

import (
	"encoding/json"
	"net/url"
	"regexp"
	"strings"
)

// KeyKind 提取出的查找键分类
type KeyKind string

const (
	KindUUID KeyKind = "uuid" // 直接按记录 ID 查
	KindCode KeyKind = "code" // 按唯一 code 字段查
)

// Endpoint 结构化载荷中的端点标签
type Endpoint struct {
	Equipment string `json:"eq"`
	Port      string `json:"p"`
}

// ScanPayload 结构化二维码载荷（固定形状）
// 自带两端标签，走快速路径，无需回查存储。
type ScanPayload struct {
	Code string   `json:"code"`
	ID   string   `json:"id"`
	A    Endpoint `json:"a"`
	B    Endpoint `json:"b"`
}

// Outcome 提取结果
// Recognized=false 表示"码未识别"，是正常返回值而非错误，调用方应继续扫码。
type Outcome struct {
	Recognized bool
	Kind       KeyKind
	Key        string
	Matcher    string // 命中的匹配器名（日志用）
	Payload    *ScanPayload
}

// 匹配器按优先级顺序求值，首个命中即返回（保留原始优先级语义）。
type matcher struct {
	name string
	fn   func(string) (Outcome, bool)
}

var matchers []matcher

// matchURL 引用 matchers，需在 init 中赋值以避免初始化循环。
func init() {
	matchers = []matcher{
		{"structured_payload", matchStructuredPayload},
		{"url", matchURL},
		{"uuid", matchUUID},
		{"system_prefix", matchSystemPrefix},
		{"generic_code", matchGenericCode},
	}
}

var (
	uuidRe = regexp.MustCompile(`[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}`)

	// 系统前缀码：固定短前缀集 + 分隔符 + 1个以上字母数字段
	systemPrefixRe = regexp.MustCompile(`\b(CON|NET|CAB|FIB|LINK|C)[-_]([A-Z0-9]+(?:[-_][A-Z0-9]+)*)\b`)

	// 兜底通用码：1-8 位字母前缀 + 分隔符 + 1个以上 2-32 位字母数字段
	genericCodeRe = regexp.MustCompile(`\b([A-Z]{1,8})[-_]([A-Z0-9]{2,32}(?:[-_][A-Z0-9]{2,32})*)\b`)

	// URL 查询参数的检查顺序是固定的
	urlQueryKeys = []string{"id", "connectionId", "connection_id", "code", "connectionCode", "connection_code"}
)

// Extract 将任意扫描/键入文本转为规范查找键
// 匹配器按序求值，全部未命中返回 Recognized=false（非错误）。
func Extract(raw string) Outcome {
	text := strings.TrimSpace(raw)
	if text == "" {
		return Outcome{}
	}
	for _, m := range matchers {
		if out, ok := m.fn(text); ok {
			out.Matcher = m.name
			return out
		}
	}
	return Outcome{}
}

// Canonicalize 码的规范化：大写、下划线归一为中划线
func Canonicalize(code string) string {
	return strings.ReplaceAll(strings.ToUpper(code), "_", "-")
}

// matchStructuredPayload JSON 快速路径：固定形状，自带端点标签
func matchStructuredPayload(text string) (Outcome, bool) {
	if !strings.HasPrefix(text, "{") {
		return Outcome{}, false
	}
	var p ScanPayload
	if err := json.Unmarshal([]byte(text), &p); err != nil {
		return Outcome{}, false
	}
	if p.Code == "" && p.ID == "" {
		return Outcome{}, false
	}
	if p.A.Equipment == "" || p.A.Port == "" || p.B.Equipment == "" || p.B.Port == "" {
		return Outcome{}, false
	}
	out := Outcome{Recognized: true, Payload: &p}
	if p.ID != "" {
		out.Kind = KindUUID
		out.Key = strings.ToLower(p.ID)
	} else {
		out.Kind = KindCode
		out.Key = Canonicalize(p.Code)
	}
	return out, true
}

// matchURL 从 URL 的查询参数（固定顺序）、路径段、fragment 中提取候选子串，
// 对每个候选递归应用 uuid / system_prefix / generic_code 匹配器。
func matchURL(text string) (Outcome, bool) {
	u, err := url.Parse(text)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return Outcome{}, false
	}

	var candidates []string
	q := u.Query()
	for _, key := range urlQueryKeys {
		if v := q.Get(key); v != "" {
			candidates = append(candidates, v)
		}
	}
	// 路径段从深到浅（扫描 URL 中深层段才是携码段）
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i := len(segments) - 1; i >= 0; i-- {
		if segments[i] != "" {
			candidates = append(candidates, segments[i])
		}
	}
	if u.Fragment != "" {
		candidates = append(candidates, u.Fragment)
	}

	for _, c := range candidates {
		for _, m := range matchers[2:] { // 仅 uuid / system_prefix / generic_code
			if out, ok := m.fn(c); ok {
				return out, true
			}
		}
	}
	return Outcome{}, false
}

// matchUUID 整串恰为 UUID（8-4-4-4-12 hex，大小写不敏感）时按记录 ID 处理
func matchUUID(text string) (Outcome, bool) {
	m := uuidRe.FindString(text)
	if m == "" || m != strings.TrimSpace(text) {
		return Outcome{}, false
	}
	return Outcome{Recognized: true, Kind: KindUUID, Key: strings.ToLower(m)}, true
}

// matchSystemPrefix 系统前缀码（大小写不敏感，规范化为大写中划线）
func matchSystemPrefix(text string) (Outcome, bool) {
	upper := strings.ToUpper(text)
	m := systemPrefixRe.FindStringSubmatch(upper)
	if m == nil {
		return Outcome{}, false
	}
	return Outcome{Recognized: true, Kind: KindCode, Key: Canonicalize(m[1] + "-" + m[2])}, true
}

// matchGenericCode 兜底通用码模式
// 与系统前缀模式对 "C-00034" 这类输入存在重叠；系统前缀先试的优先级是
// 继承下来的既有语义，保持不变。
func matchGenericCode(text string) (Outcome, bool) {
	upper := strings.ToUpper(text)
	m := genericCodeRe.FindStringSubmatch(upper)
	if m == nil {
		return Outcome{}, false
	}
	return Outcome{Recognized: true, Kind: KindCode, Key: Canonicalize(m[1] + "-" + m[2])}, true
}

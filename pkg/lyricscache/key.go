package lyricscache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
)

// Version 缓存格式版本，响应格式变化时递增
const Version = "v2"

// KeyParams 参与缓存键计算的请求参数
type KeyParams struct {
	Artist     string
	Song       string
	Timestamps bool
	Sequence   string
	Fast       bool
	Mood       bool
	Metadata   bool
}

// Key 计算请求指纹：规范化参数的 JSON（键有序）做 SHA-256，结果可直接用作文件名
func Key(p KeyParams) string {
	payload := map[string]any{
		"v":          Version,
		"artist":     strings.ToLower(strings.TrimSpace(p.Artist)),
		"song":       strings.ToLower(strings.TrimSpace(p.Song)),
		"timestamps": p.Timestamps,
		"sequence":   p.Sequence,
		"fast":       p.Fast,
		"mood":       p.Mood,
		"metadata":   p.Metadata,
	}
	// map[string]any 的编码不会失败，键按字典序输出
	raw, _ := json.Marshal(payload)
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

package music

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/samber/lo"
)

// ProviderID 歌词提供商编号，对外公开（用户自定义序列使用），顺序不可调整
type ProviderID int

const (
	// ProviderGenius Genius
	ProviderGenius ProviderID = iota + 1
	// ProviderLRCLib LRCLib歌词库
	ProviderLRCLib
	// ProviderSimpMusic SimpMusic歌词API
	ProviderSimpMusic
	// ProviderYouTubeMusic YouTube Music
	ProviderYouTubeMusic
	// ProviderLyricsOvh Lyrics.ovh
	ProviderLyricsOvh
	// ProviderChartLyrics ChartLyrics
	ProviderChartLyrics
)

// MaxProviderID 最大的提供商编号（N）
const MaxProviderID = ProviderChartLyrics

var providerNames = map[ProviderID]string{
	ProviderGenius:       "Genius",
	ProviderLRCLib:       "LRCLIB",
	ProviderSimpMusic:    "SimpMusic",
	ProviderYouTubeMusic: "YouTube Music",
	ProviderLyricsOvh:    "Lyrics.ovh",
	ProviderChartLyrics:  "ChartLyrics",
}

var providerKeys = map[ProviderID]string{
	ProviderGenius:       "genius",
	ProviderLRCLib:       "lrclib",
	ProviderSimpMusic:    "simpmusic",
	ProviderYouTubeMusic: "youtube",
	ProviderLyricsOvh:    "lyricsovh",
	ProviderChartLyrics:  "chartlyrics",
}

// String 返回提供商显示名称
func (id ProviderID) String() string {
	if name, ok := providerNames[id]; ok {
		return name
	}
	return fmt.Sprintf("Provider(%d)", int(id))
}

// Key 返回提供商短名（配置与日志使用）
func (id ProviderID) Key() string {
	return providerKeys[id]
}

// Valid 编号是否在 [1, N] 范围内
func (id ProviderID) Valid() bool {
	return id >= ProviderGenius && id <= MaxProviderID
}

// AllProviders 按编号顺序返回所有提供商
func AllProviders() []ProviderID {
	ids := make([]ProviderID, 0, int(MaxProviderID))
	for id := ProviderGenius; id <= MaxProviderID; id++ {
		ids = append(ids, id)
	}
	return ids
}

// GetProviderByName 根据名称、短名或编号获取提供商
func GetProviderByName(name string) (ProviderID, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if n, err := strconv.Atoi(name); err == nil && ProviderID(n).Valid() {
		return ProviderID(n), nil
	}
	for _, id := range AllProviders() {
		if name == id.Key() || name == strings.ToLower(id.String()) {
			return id, nil
		}
	}
	return 0, fmt.Errorf("unknown provider name: %s", name)
}

// Sequence 有序、去重的提供商序列
type Sequence []ProviderID

var (
	// DefaultSyncedSequence 请求时间轴歌词时的默认序列
	DefaultSyncedSequence = Sequence{ProviderLRCLib, ProviderSimpMusic, ProviderYouTubeMusic}
	// DefaultPlainSequence 普通歌词的默认序列
	DefaultPlainSequence = Sequence{ProviderGenius, ProviderLRCLib, ProviderSimpMusic, ProviderYouTubeMusic, ProviderLyricsOvh, ProviderChartLyrics}
	// FastSequence 快速模式（并行竞速）使用的序列
	FastSequence = Sequence{ProviderLRCLib, ProviderSimpMusic}
)

// ParseSequence 解析逗号分隔的编号序列，例如 "2,3,4"
func ParseSequence(s string) (Sequence, error) {
	var seq Sequence
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidSequenceFormat, part)
		}
		seq = append(seq, ProviderID(n))
	}
	if err := seq.Validate(); err != nil {
		return nil, err
	}
	return seq, nil
}

// Validate 校验序列：非空、编号在范围内、长度不超过 N、无重复
func (s Sequence) Validate() error {
	if len(s) == 0 {
		return fmt.Errorf("%w: empty", ErrInvalidSequence)
	}
	if len(s) > int(MaxProviderID) {
		return fmt.Errorf("%w: %d entries", ErrInvalidSequence, len(s))
	}
	for _, id := range s {
		if !id.Valid() {
			return fmt.Errorf("%w: %d out of range", ErrInvalidSequence, int(id))
		}
	}
	if len(lo.Uniq(s)) != len(s) {
		return fmt.Errorf("%w: duplicates in %s", ErrInvalidSequence, s)
	}
	return nil
}

// String 返回 "2,3,4" 形式
func (s Sequence) String() string {
	return strings.Join(lo.Map(s, func(id ProviderID, _ int) string {
		return strconv.Itoa(int(id))
	}), ",")
}

// position 返回提供商在序列中的位置，不存在时返回 -1
func (s Sequence) position(id ProviderID) int {
	return lo.IndexOf(s, id)
}

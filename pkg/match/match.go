// Package match 校验提供商返回的歌手/歌名是否与请求一致
package match

import (
	"math"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
)

// DefaultThreshold 默认相似度阈值
const DefaultThreshold = 0.75

// Method 匹配方式
type Method string

const (
	MethodArtistList    Method = "Artist List"
	MethodPartialArtist Method = "Partial Artist String"
	MethodSongTitle     Method = "Song Title"
)

// RE2 的 \s 只匹配 ASCII 空白，NBSP、全角空格等需要单独列出
const space = `\s\p{Z}\x{85}\x{1c}-\x{1f}`

var (
	punctRe     = regexp.MustCompile(`[^\p{L}\p{N}_` + space + `]`)
	spaceRe     = regexp.MustCompile(`[` + space + `]+`)
	featuringRe = regexp.MustCompile(`(?i)[` + space + `]*(\bfeat\.|\bft\.|\bfeaturing\b|\bwith\b|&|\band\b)[` + space + `]*`)
	delimiterRe = regexp.MustCompile(`[` + space + `]*[,;/][` + space + `]*`)
)

var logger = log.With().Str("component", "matcher").Logger()

// Verdict 单个候选的校验结果
type Verdict struct {
	Valid           bool     `json:"valid"`
	MatchedBy       Method   `json:"matched_by,omitempty"`
	Reason          string   `json:"reason"`
	ReturnedArtists []string `json:"returned_artists,omitempty"`
	ReturnedSong    string   `json:"returned_song,omitempty"`
	SongMatch       float64  `json:"song_match"`
}

// Candidate 提供商返回的元数据
type Candidate struct {
	Artist string
	Title  string
}

// Normalize 去除标点、合并空白、转小写
func Normalize(s string) string {
	if s == "" {
		return ""
	}
	s = punctRe.ReplaceAllString(s, "")
	s = spaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(strings.ToLower(s))
}

// SplitArtists 把 "A feat. B & C" 之类的歌手串拆成标准化后的歌手列表
func SplitArtists(artist string) []string {
	if strings.TrimSpace(artist) == "" {
		return nil
	}
	artist = featuringRe.ReplaceAllString(artist, ", ")
	var names []string
	for _, part := range delimiterRe.Split(artist, -1) {
		if strings.TrimSpace(part) == "" {
			continue
		}
		if name := Normalize(part); name != "" {
			names = append(names, name)
		}
	}
	return names
}

// Similarity 标准化后两个字符串的相似度 [0,1]
func Similarity(a, b string) float64 {
	a, b = Normalize(a), Normalize(b)
	if a == "" || b == "" {
		return 0
	}
	return ratio([]rune(a), []rune(b))
}

// Validate 校验候选是否与请求的歌手/歌名匹配
//
// 歌名相似度必须达到阈值，同时至少一个请求歌手满足以下任一条件（按顺序）：
// 与某个返回歌手相似度达到阈值；是返回歌手串的子串；是返回歌名的子串（"Song (feat. X)"）。
func Validate(requestedArtist, requestedSong string, c Candidate, threshold float64) Verdict {
	requested := SplitArtists(requestedArtist)
	wantSong := Normalize(requestedSong)
	returned := SplitArtists(c.Artist)
	gotSong := Normalize(c.Title)

	if len(returned) == 0 || gotSong == "" {
		return Verdict{Valid: false, Reason: "Missing metadata"}
	}

	joined := strings.Join(returned, " ")
	songMatch := Similarity(wantSong, gotSong)

	var method Method
	for _, req := range requested {
		if m, ok := matchArtist(req, returned, joined, gotSong, threshold); ok {
			method = m
			break
		}
	}

	v := Verdict{
		ReturnedArtists: returned,
		ReturnedSong:    gotSong,
		SongMatch:       round3(songMatch),
	}
	if method != "" && songMatch >= threshold {
		v.Valid = true
		v.MatchedBy = method
		v.Reason = "Matched via " + string(method)
		logger.Debug().
			Str("artist", requestedArtist).
			Str("song", requestedSong).
			Str("method", string(method)).
			Msg("Valid match")
		return v
	}

	v.Reason = "Artist not found in metadata"
	if method != "" {
		v.Reason = "Song title mismatch"
	}
	logger.Debug().
		Str("artist", requestedArtist).
		Str("returned_artists", joined).
		Str("returned_song", gotSong).
		Float64("song_match", v.SongMatch).
		Msg("Invalid match")
	return v
}

func matchArtist(req string, returned []string, joined, song string, threshold float64) (Method, bool) {
	for _, ret := range returned {
		if Similarity(req, ret) >= threshold {
			return MethodArtistList, true
		}
	}
	long := utf8.RuneCountInString(req) > 3
	if long && strings.Contains(joined, req) {
		return MethodPartialArtist, true
	}
	if long && strings.Contains(song, req) {
		return MethodSongTitle, true
	}
	return "", false
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}

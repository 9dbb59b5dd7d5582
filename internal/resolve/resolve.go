// Package resolve 把播放器给出的媒体标题解析为歌手和歌名
package resolve

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"lyrica/pkg/ai"
)

const (
	maxRetries   = 3
	retryBackoff = time.Second
)

// ErrNotSong 标题不是歌曲（例如视频、播客）
var ErrNotSong = errors.New("media title is not a song")

var logger = log.With().Str("component", "resolver").Logger()

// SongInfo 解析结果
type SongInfo struct {
	Title  string `json:"title"`
	Artist string `json:"artist"`
	IsSong bool   `json:"is_song"`
}

func formatQuerySong(title string) string {
	return fmt.Sprintf(`请精确地按照以下JSON格式提取歌曲信息: {"is_song": true, "title": "歌曲标题", "artist": "演唱者"}。  输入是一个媒体标题，如果标题中包含歌曲信息，请返回符合格式的JSON；否则，返回{"is_song": false}。 请注意，"title" 和 "artist" 必须准确，否则将被视为错误，切记不要任何markdown格式，并将繁体中文转换为简体。 媒体标题是：%s`, title)
}

// Resolver 媒体标题解析器；没有AI客户端时按 "歌手 - 歌名" 拆分
type Resolver struct {
	client  ai.Client
	memo    *Memo
	backoff time.Duration
}

// New 创建解析器，client 可以为 nil
func New(client ai.Client) *Resolver {
	return &Resolver{client: client, backoff: retryBackoff}
}

// WithMemo 使用持久化记录缓存AI解析结果
func (r *Resolver) WithMemo(m *Memo) *Resolver {
	r.memo = m
	return r
}

// Resolve 解析媒体标题；AI 调用全部失败时退回到按分隔符拆分
func (r *Resolver) Resolve(ctx context.Context, identifier string) (SongInfo, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return SongInfo{}, ErrNotSong
	}
	if r.client == nil {
		return SplitIdentifier(identifier)
	}
	if r.memo != nil {
		if info, ok := r.memo.Get(identifier); ok {
			return info, nil
		}
	}

	info, err := r.ask(ctx, identifier)
	if err != nil {
		logger.Warn().Err(err).Str("identifier", identifier).Msg("AI resolution failed, falling back to split")
		return SplitIdentifier(identifier)
	}
	if !info.IsSong {
		return SongInfo{}, fmt.Errorf("%w: %s", ErrNotSong, identifier)
	}
	logger.Info().
		Str("identifier", identifier).
		Str("artist", info.Artist).
		Str("title", info.Title).
		Str("model", r.client.Name()).
		Msg("Resolved song")
	if r.memo != nil {
		if err := r.memo.Put(identifier, info); err != nil {
			logger.Warn().Err(err).Msg("Failed to save resolver memo")
		}
	}
	return info, nil
}

func (r *Resolver) ask(ctx context.Context, identifier string) (SongInfo, error) {
	var (
		raw string
		err error
	)
	for i := range maxRetries {
		raw, err = r.client.HandleText(ctx, formatQuerySong(identifier))
		if err == nil {
			break
		}
		logger.Warn().Err(err).Int("attempt", i+1).Int("max_retries", maxRetries).Msg("Failed to query AI")
		if i == maxRetries-1 {
			break
		}
		select {
		case <-ctx.Done():
			return SongInfo{}, ctx.Err()
		case <-time.After(r.backoff):
		}
	}
	if err != nil {
		return SongInfo{}, fmt.Errorf("failed to query AI after %d attempts: %w", maxRetries, err)
	}

	var info SongInfo
	if err := json.Unmarshal([]byte(stripFences(raw)), &info); err != nil {
		return SongInfo{}, fmt.Errorf("failed to parse AI response: %w", err)
	}
	if info.IsSong && (strings.TrimSpace(info.Title) == "" || strings.TrimSpace(info.Artist) == "") {
		return SongInfo{}, fmt.Errorf("AI response is missing title or artist: %s", raw)
	}
	return info, nil
}

// stripFences 去掉模型偶尔附带的 markdown 代码块
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// SplitIdentifier 按 "歌手 - 歌名" 拆分标识
func SplitIdentifier(identifier string) (SongInfo, error) {
	artist, title, ok := strings.Cut(identifier, " - ")
	artist, title = strings.TrimSpace(artist), strings.TrimSpace(title)
	if !ok || artist == "" || title == "" {
		return SongInfo{}, fmt.Errorf("%w: cannot split %q into artist and title", ErrNotSong, identifier)
	}
	return SongInfo{Title: title, Artist: artist, IsSong: true}, nil
}

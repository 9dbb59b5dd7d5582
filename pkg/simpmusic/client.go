// Package simpmusic SimpMusic 歌词 API 客户端
package simpmusic

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"lyrica/pkg/lrc"
	"lyrica/pkg/music"
	"lyrica/pkg/webclient"
)

// DefaultBaseURL SimpMusic API 地址
const DefaultBaseURL = "https://api-lyrics.simpmusic.org/v1"

// Track 搜索结果条目
type Track struct {
	VideoID    string `json:"videoId"`
	ID         string `json:"id"`
	Title      string `json:"title"`
	ArtistName string `json:"artistName"`
}

// Lyrics 歌词条目，不同版本的接口字段名不同
type Lyrics struct {
	PlainLyrics  string `json:"plainLyrics"`
	Lyrics       string `json:"lyrics"`
	SyncedLyrics string `json:"syncedLyrics"`
	LRC          string `json:"lrc"`
}

type envelope struct {
	Data json.RawMessage `json:"data"`
}

// Client SimpMusic客户端
type Client struct {
	web     *webclient.Client
	baseURL string
	logger  zerolog.Logger
}

// NewClient 创建客户端，baseURL 为空时使用默认地址
func NewClient(baseURL string, opts ...webclient.Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		web:     webclient.New("simpmusic", opts...),
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  log.With().Str("component", "simpmusic").Logger(),
	}
}

// Name 返回提供商名称
func (c *Client) Name() string {
	return music.ProviderSimpMusic.String()
}

// Fetch 按歌名搜索，取第一条结果的歌词
func (c *Client) Fetch(ctx context.Context, artist, song string, timestamps bool) (*music.LyricsResult, error) {
	c.logger.Info().Str("artist", artist).Str("song", song).Msg("Attempting SimpMusic")

	body, err := c.web.Get(ctx, c.baseURL+"/search", url.Values{"q": {song}})
	if err != nil {
		if webclient.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("simpmusic search: %w", err)
	}
	var tracks []Track
	if err := decodeList(body, &tracks); err != nil {
		return nil, fmt.Errorf("simpmusic search: %w", err)
	}
	if len(tracks) == 0 {
		return nil, nil
	}

	first := tracks[0]
	videoID := first.VideoID
	if videoID == "" {
		videoID = first.ID
	}
	if videoID == "" {
		return nil, nil
	}

	body, err = c.web.Get(ctx, c.baseURL+"/"+url.PathEscape(videoID), nil)
	if err != nil {
		if webclient.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("simpmusic lyrics: %w", err)
	}
	var entries []Lyrics
	if err := decodeList(body, &entries); err != nil {
		return nil, fmt.Errorf("simpmusic lyrics: %w", err)
	}
	if len(entries) == 0 {
		return nil, nil
	}

	d := entries[0]
	plain := firstNonEmpty(d.PlainLyrics, d.Lyrics)
	synced := firstNonEmpty(d.SyncedLyrics, d.LRC)
	if plain == "" && synced == "" {
		return nil, nil
	}

	res := &music.LyricsResult{
		Source:    "simpmusic",
		Artist:    firstNonEmpty(first.ArtistName, artist),
		Title:     firstNonEmpty(first.Title, song),
		Lyrics:    plain,
		Synced:    synced,
		Timestamp: music.CaptureTimestamp(),
	}
	if timestamps && synced != "" {
		if timed := lrc.Timed(synced, 0, "sim"); len(timed) > 0 {
			res.TimedLyrics = timed
			res.HasTimestamps = true
		}
	}
	return res, nil
}

// Close 释放HTTP连接
func (c *Client) Close() error {
	return c.web.Close()
}

// decodeList 兼容三种返回形式：数组、{"data": 数组}、{"data": 对象}
func decodeList[T any](body []byte, out *[]T) error {
	trimmed := strings.TrimSpace(string(body))
	if strings.HasPrefix(trimmed, "[") {
		return json.Unmarshal(body, out)
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	data := strings.TrimSpace(string(env.Data))
	switch {
	case data == "" || data == "null":
		return nil
	case strings.HasPrefix(data, "["):
		return json.Unmarshal(env.Data, out)
	case strings.HasPrefix(data, "{"):
		var one T
		if err := json.Unmarshal(env.Data, &one); err != nil {
			return err
		}
		*out = []T{one}
		return nil
	}
	return fmt.Errorf("unexpected data shape")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

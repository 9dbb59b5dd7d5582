// Package genius Genius 客户端：API 搜索 + 歌词页面抓取
package genius

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"lyrica/pkg/music"
	"lyrica/pkg/webclient"
)

const (
	// DefaultAPIURL Genius API 地址
	DefaultAPIURL = "https://api.genius.com"
	// DefaultWebURL Genius 网站地址，歌词页面路径基于此拼接
	DefaultWebURL = "https://genius.com"
)

var (
	sectionHeaderRe = regexp.MustCompile(`(?m)^[ \t]*\[[^\]\n]*\][ \t]*\n?`)
	blankLinesRe    = regexp.MustCompile(`\n{3,}`)
)

type searchResponse struct {
	Response struct {
		Hits []hit `json:"hits"`
	} `json:"response"`
}

type hit struct {
	Type   string `json:"type"`
	Result song   `json:"result"`
}

type song struct {
	ID            int    `json:"id"`
	Title         string `json:"title"`
	ArtistNames   string `json:"artist_names"`
	Path          string `json:"path"`
	PrimaryArtist struct {
		Name string `json:"name"`
	} `json:"primary_artist"`
}

func (s song) artist() string {
	if s.ArtistNames != "" {
		return s.ArtistNames
	}
	return s.PrimaryArtist.Name
}

// Client Genius客户端
type Client struct {
	web    *webclient.Client
	token  string
	apiURL string
	webURL string
	logger zerolog.Logger
}

// Option 客户端选项
type Option func(*Client)

// WithAPIURL 覆盖 API 地址
func WithAPIURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.apiURL = strings.TrimRight(u, "/")
		}
	}
}

// WithWebURL 覆盖网站地址
func WithWebURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.webURL = strings.TrimRight(u, "/")
		}
	}
}

// WithTimeout 设置HTTP请求超时
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.web = webclient.New("genius", webclient.WithTimeout(d))
	}
}

// NewClient 创建客户端，token 为 Genius API 的 access token
func NewClient(token string, opts ...Option) *Client {
	c := &Client{
		web:    webclient.New("genius"),
		token:  token,
		apiURL: DefaultAPIURL,
		webURL: DefaultWebURL,
		logger: log.With().Str("component", "genius").Logger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name 返回提供商名称
func (c *Client) Name() string {
	return music.ProviderGenius.String()
}

// Fetch 搜索歌曲并抓取歌词页面，段落标记（如 [Chorus]）会被去掉
func (c *Client) Fetch(ctx context.Context, artist, title string, timestamps bool) (*music.LyricsResult, error) {
	if c.token == "" {
		return nil, music.ErrProviderNotConfigured
	}
	c.logger.Info().Str("artist", artist).Str("song", title).Msg("Attempting Genius")

	s, ok, err := c.search(ctx, artist, title)
	if err != nil || !ok {
		return nil, err
	}

	lyrics, err := c.scrape(ctx, s.Path)
	if err != nil {
		if webclient.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	if lyrics == "" {
		return nil, nil
	}

	return &music.LyricsResult{
		Source:    "genius",
		Artist:    s.artist(),
		Title:     s.Title,
		Lyrics:    lyrics,
		Timestamp: music.CaptureTimestamp(),
	}, nil
}

func (c *Client) search(ctx context.Context, artist, title string) (song, bool, error) {
	req, err := webclient.NewRequest(ctx, http.MethodGet, c.apiURL+"/search", url.Values{"q": {title + " " + artist}}, nil)
	if err != nil {
		return song{}, false, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	var resp searchResponse
	if err := c.web.DoJSON(req, &resp); err != nil {
		return song{}, false, fmt.Errorf("genius search: %w", err)
	}

	// 只考虑歌曲类型的结果，优先选择歌手名匹配的
	var first *song
	want := strings.ToLower(artist)
	for i := range resp.Response.Hits {
		h := &resp.Response.Hits[i]
		if h.Type != "" && h.Type != "song" {
			continue
		}
		if first == nil {
			first = &h.Result
		}
		if strings.Contains(strings.ToLower(h.Result.artist()), want) {
			return h.Result, true, nil
		}
	}
	if first == nil {
		return song{}, false, nil
	}
	return *first, true, nil
}

func (c *Client) scrape(ctx context.Context, path string) (string, error) {
	if path == "" {
		return "", nil
	}
	body, err := c.web.Get(ctx, c.webURL+path, nil)
	if err != nil {
		return "", fmt.Errorf("genius page: %w", err)
	}
	return extractLyrics(body)
}

// extractLyrics 从歌词页面提取文本
func extractLyrics(page []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return "", fmt.Errorf("failed to parse lyrics page: %w", err)
	}

	var parts []string
	doc.Find(`div[data-lyrics-container="true"]`).Each(func(_ int, sel *goquery.Selection) {
		sel.Find(`[data-exclude-from-selection="true"]`).Remove()
		sel.Find("br").ReplaceWithHtml("\n")
		if text := strings.TrimSpace(sel.Text()); text != "" {
			parts = append(parts, text)
		}
	})

	text := strings.Join(parts, "\n")
	text = sectionHeaderRe.ReplaceAllString(text, "")
	text = blankLinesRe.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text), nil
}

// Close 释放HTTP连接
func (c *Client) Close() error {
	return c.web.Close()
}

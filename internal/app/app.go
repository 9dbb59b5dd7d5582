// Package app 组装配置、提供商、缓存与服务
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"

	"lyrica/internal/config"
	"lyrica/internal/lyrics"
	"lyrica/internal/metrics"
	"lyrica/internal/player"
	"lyrica/internal/resolve"
	"lyrica/pkg/ai"
	"lyrica/pkg/ai/gemini"
	"lyrica/pkg/ai/openai"
	"lyrica/pkg/lyricscache"
	"lyrica/pkg/music"
	"lyrica/pkg/redis"
)

// App 进程内的全部状态
type App struct {
	cfg      *config.Config
	metrics  *metrics.Metrics
	registry *music.Registry
	manager  *music.Manager
	cache    *lyricscache.Cache
	service  *lyrics.Service
	resolver *resolve.Resolver
	player   *player.Player

	closers []io.Closer
}

// SetupLogging 设置 zerolog 的全局配置
func SetupLogging(level string, out io.Writer) {
	if out == nil {
		out = os.Stderr
	}
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: out, TimeFormat: time.TimeOnly})

	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
}

// New 根据配置创建应用
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{
		cfg:     cfg,
		metrics: metrics.New(),
		player:  player.New(nil),
	}

	store, err := a.newStore()
	if err != nil {
		return nil, err
	}
	a.cache = lyricscache.New(store, cfg.Cache.TTL, lyricscache.WithObserver(a.metrics))
	log.Info().Str("backend", store.Backend()).Str("location", store.Location()).Msg("Lyrics cache")

	a.registry = buildRegistry(cfg)
	a.closers = append(a.closers, a.registry)
	a.manager = music.NewManager(a.registry, music.Options{
		CallTimeout: cfg.Fetch.CallTimeout,
		Threshold:   cfg.Fetch.Threshold,
		Observer:    a.metrics,
	})
	a.service = lyrics.NewService(a.manager, a.cache, lyrics.Options{
		RunTimeout: cfg.Fetch.RunTimeout,
		Observer:   a.metrics,
	})

	aiClient, err := newAIClient(ctx, cfg.AI)
	if err != nil {
		log.Warn().Err(err).Msg("AI resolver unavailable, falling back to 'Artist - Title' parsing")
	}
	if aiClient != nil {
		a.closers = append(a.closers, aiClient)
	}
	a.resolver = resolve.New(aiClient)
	if aiClient != nil {
		memoPath := filepath.Join(cfg.Cache.Dir, "resolved.list")
		memo, err := resolve.LoadMemo(afero.NewOsFs(), memoPath)
		if err != nil {
			log.Warn().Err(err).Str("path", memoPath).Msg("Resolver memo unavailable")
		} else {
			a.resolver.WithMemo(memo)
		}
	}
	return a, nil
}

func (a *App) newStore() (lyricscache.Store, error) {
	switch a.cfg.Cache.Backend {
	case "redis":
		rc, err := redis.NewClient(a.cfg.Redis.Addr, a.cfg.Redis.Password, a.cfg.Redis.DB)
		if err != nil {
			return nil, fmt.Errorf("failed to create redis cache: %w", err)
		}
		a.closers = append(a.closers, rc)
		return lyricscache.NewRedisStore(rc), nil
	default:
		store, err := lyricscache.NewFileStore(afero.NewOsFs(), a.cfg.Cache.Dir)
		if err != nil {
			return nil, fmt.Errorf("failed to create cache directory %s: %w", a.cfg.Cache.Dir, err)
		}
		return store, nil
	}
}

// newAIClient 根据模块名选择 gemini 或 OpenAI 兼容接口；未配置密钥时返回 nil
func newAIClient(ctx context.Context, cfg config.AIConfig) (ai.Client, error) {
	if cfg.APIKey == "" {
		return nil, nil
	}
	if cfg.ModuleName == "gemini" {
		g, err := gemini.NewGemini(ctx, cfg.APIKey, "")
		if err != nil {
			return nil, err
		}
		return g, nil
	}
	return openai.NewOpenAI(cfg.APIKey, cfg.ModuleName, cfg.BaseURL), nil
}

// StartMetrics 配置了监听地址时在后台暴露 /metrics
func (a *App) StartMetrics(ctx context.Context) {
	if a.cfg.Metrics.Addr == "" {
		return
	}
	go func() {
		if err := a.metrics.Serve(ctx, a.cfg.Metrics.Addr); err != nil {
			log.Error().Err(err).Str("addr", a.cfg.Metrics.Addr).Msg("Metrics listener stopped")
		}
	}()
}

// Lyrics 执行一次歌词查询
func (a *App) Lyrics(ctx context.Context, q lyrics.Query) *lyrics.Response {
	return a.service.Run(ctx, q)
}

// NowPlaying 读取当前曲目并查询歌词
func (a *App) NowPlaying(ctx context.Context, timestamps bool) (resolve.SongInfo, *lyrics.Response, error) {
	track, err := a.player.CurrentTrack(ctx)
	if err != nil {
		return resolve.SongInfo{}, nil, err
	}
	info, err := a.resolver.Resolve(ctx, track.Identifier())
	if err != nil {
		return resolve.SongInfo{}, nil, err
	}
	resp := a.service.Run(ctx, lyrics.Query{Artist: info.Artist, Song: info.Title, Timestamps: timestamps})
	return info, resp, nil
}

// Cache 返回歌词缓存
func (a *App) Cache() *lyricscache.Cache {
	return a.cache
}

// Registry 返回提供商注册表
func (a *App) Registry() *music.Registry {
	return a.registry
}

// Close 释放网络连接与客户端
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

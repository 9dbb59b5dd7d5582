package app

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"lyrica/internal/ipc"
	"lyrica/internal/lyrics"
	"lyrica/internal/player"
	"lyrica/pkg/music"
)

const (
	leadTime      = 0.1 // s，提前显示歌词
	schedulerTick = 50 * time.Millisecond
	endGrace      = 5.0 // s，最后一行之后多久视为歌曲结束
)

const (
	introMarker = "♪ 即将开始... ♪"
	endMarker   = "♪ 歌曲结束 ♪"
)

// syncWriter 多个 goroutine 共享的输出
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) println(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintln(s.w, text)
}

// Watch 按检查间隔轮询播放器，切歌时获取歌词并随播放进度逐行输出，直到 ctx 结束
//
// socketPath 非空时同时通过 unix socket 广播给状态栏客户端。
func (a *App) Watch(ctx context.Context, w io.Writer, socketPath string) error {
	if socketPath == "" {
		socketPath = a.cfg.App.SocketPath
	}
	if socketPath != "" {
		server := ipc.NewServer(socketPath)
		if err := server.Start(); err != nil {
			return fmt.Errorf("failed to start IPC server: %w", err)
		}
		defer server.Close()
		w = io.MultiWriter(w, server)
	}
	out := &syncWriter{w: w}
	ticker := time.NewTicker(a.cfg.App.CheckInterval)
	defer ticker.Stop()

	var (
		current string
		stop    = func() {}
	)
	defer func() { stop() }()

	log.Info().Dur("interval", a.cfg.App.CheckInterval).Msg("Starting player check loop...")
	for {
		track, err := a.player.CurrentTrack(ctx)
		switch {
		case err != nil:
			if current != "" {
				stop()
				current = ""
				out.println("No music playing...")
			}
		case track.Identifier() != current:
			stop()
			current = track.Identifier()
			log.Info().Str("song", current).Msg("New song detected")
			out.println(fmt.Sprintf("... Searching for lyrics for %s ...", current))

			songCtx, cancel := context.WithCancel(ctx)
			stop = cancel
			go a.follow(songCtx, track, out)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// follow 获取一首歌的歌词；有时间轴时跟随播放进度输出，否则一次输出全文
func (a *App) follow(ctx context.Context, track player.Track, out *syncWriter) {
	info, err := a.resolver.Resolve(ctx, track.Identifier())
	if err != nil {
		log.Warn().Err(err).Str("song", track.Identifier()).Msg("Failed to resolve song")
		out.println(fmt.Sprintf("Error getting lyrics: %v", err))
		return
	}

	q := lyrics.Query{Artist: info.Artist, Song: info.Title, Timestamps: true}
	resp := a.service.Run(ctx, q)
	if ctx.Err() != nil {
		return
	}
	if resp.OK() && len(resp.Data.TimedLyrics) > 0 {
		runScheduler(ctx, resp.Data.TimedLyrics, func() float64 {
			return a.player.Position(ctx)
		}, out.println, schedulerTick)
		return
	}

	q.Timestamps = false
	resp = a.service.Run(ctx, q)
	if ctx.Err() != nil {
		return
	}
	if !resp.OK() {
		out.println(fmt.Sprintf("Error getting lyrics: %s", resp.Error.Message))
		return
	}
	log.Warn().Msg("No synced lyrics found, printing plain text")
	out.println(resp.Data.Lyrics)
}

// lineIndexAt 返回 t 秒时应显示的行，第一行之前返回 -1
func lineIndexAt(lines []music.LyricLine, t float64) int {
	if len(lines) == 0 || t < startSeconds(lines[0]) {
		return -1
	}

	left, right := 0, len(lines)-1
	result := -1
	for left <= right {
		mid := (left + right) / 2
		if startSeconds(lines[mid]) <= t {
			result = mid
			left = mid + 1
		} else {
			right = mid - 1
		}
	}
	return result
}

func startSeconds(l music.LyricLine) float64 {
	return float64(l.StartTimeMs) / 1000
}

// runScheduler 每个 tick 重新读取播放进度，行变化时输出；歌曲结束或 ctx 取消时返回
func runScheduler(ctx context.Context, lines []music.LyricLine, position func() float64, emit func(string), tick time.Duration) {
	if len(lines) == 0 {
		return
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	log.Info().Int("lines_count", len(lines)).Msg("Lyric scheduler started")
	defer log.Info().Msg("Lyric scheduler stopped")

	first := startSeconds(lines[0])
	last := startSeconds(lines[len(lines)-1])
	lastIndex := -2 // 确保第一次输出
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		current := position()
		if current < 0 {
			log.Debug().Float64("player_time", current).Msg("Invalid player time")
			continue
		}

		idx := lineIndexAt(lines, current+leadTime)
		if idx != lastIndex {
			switch {
			case idx >= 0:
				log.Debug().
					Int("index", idx).
					Float64("player_time", current).
					Int64("lyric_time_ms", lines[idx].StartTimeMs).
					Str("lyric", lines[idx].Text).
					Msg("Emitting lyric")
				emit(lines[idx].Text)
			case current+leadTime < first && lastIndex != -1:
				emit(introMarker)
			}
			lastIndex = idx
		}

		if current > last+endGrace {
			log.Info().Float64("current_time", current).Float64("last_lyric_time", last).Msg("Song finished")
			emit(endMarker)
			return
		}
	}
}

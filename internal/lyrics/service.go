// Package lyrics 歌词查询服务：缓存、编排、响应封装
package lyrics

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"lyrica/pkg/lyricscache"
	"lyrica/pkg/match"
	"lyrica/pkg/music"
)

// DefaultRunTimeout 一次查询的整体时限
const DefaultRunTimeout = 60 * time.Second

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

var (
	// ErrMissingInput 缺少歌手或歌名
	ErrMissingInput = errors.New("artist and song name are required")
	// ErrMissingSequence pass=true 但没有给出序列
	ErrMissingSequence = errors.New("sequence parameter is required when pass=true")
)

var logger = log.With().Str("component", "lyrics-service").Logger()

// Query 一次歌词查询
type Query struct {
	Artist     string
	Song       string
	Timestamps bool
	Fast       bool
	Pass       bool
	Sequence   string
	Mood       bool
	Metadata   bool
}

// ErrorBody 错误响应体
type ErrorBody struct {
	Message   string `json:"message"`
	Details   string `json:"details,omitempty"`
	Timestamp string `json:"timestamp"`
}

// Response 查询响应
type Response struct {
	Status     string               `json:"status"`
	Data       *music.LyricsResult  `json:"data,omitempty"`
	Validation *match.Verdict       `json:"validation,omitempty"`
	Attempts   []music.FetchAttempt `json:"attempts,omitempty"`
	Error      *ErrorBody           `json:"error,omitempty"`

	RunID  string `json:"-"`
	Cached bool   `json:"-"`
	Err    error  `json:"-"`
}

// OK 是否成功
func (r *Response) OK() bool {
	return r.Status == StatusSuccess
}

// Runner 执行一次编排
type Runner interface {
	Run(ctx context.Context, req music.Request) (*music.Outcome, error)
}

// RunObserver 接收每次查询的结果（用于指标统计）
type RunObserver interface {
	ObserveRun(mode, result string)
}

// Options 服务选项
type Options struct {
	RunTimeout time.Duration
	Observer   RunObserver
}

// Service 歌词查询服务
type Service struct {
	runner Runner
	cache  *lyricscache.Cache
	opts   Options
}

// NewService 创建服务，cache 为 nil 时不使用缓存
func NewService(runner Runner, cache *lyricscache.Cache, opts Options) *Service {
	if opts.RunTimeout <= 0 {
		opts.RunTimeout = DefaultRunTimeout
	}
	return &Service{runner: runner, cache: cache, opts: opts}
}

// Plan 根据查询选择调度模式和序列
//
// fast 使用快速序列并行竞速；pass 使用自定义序列，多于一个提供商时并行竞速；
// 否则按是否需要时间轴选择默认序列顺序执行。
func Plan(q Query) (music.Mode, music.Sequence, error) {
	switch {
	case q.Fast:
		return music.ModeRace, slices.Clone(music.FastSequence), nil
	case q.Pass:
		if strings.TrimSpace(q.Sequence) == "" {
			return 0, nil, ErrMissingSequence
		}
		seq, err := music.ParseSequence(q.Sequence)
		if err != nil {
			return 0, nil, err
		}
		if len(seq) > 1 {
			return music.ModeRace, seq, nil
		}
		return music.ModeSequential, seq, nil
	case q.Timestamps:
		return music.ModeSequential, slices.Clone(music.DefaultSyncedSequence), nil
	default:
		return music.ModeSequential, slices.Clone(music.DefaultPlainSequence), nil
	}
}

// Run 执行查询：命中缓存直接返回，否则在整体时限内编排并缓存成功结果
func (s *Service) Run(ctx context.Context, q Query) *Response {
	q.Artist = strings.TrimSpace(q.Artist)
	q.Song = strings.TrimSpace(q.Song)
	if q.Artist == "" || q.Song == "" {
		return errorResponse(q, ErrMissingInput, nil)
	}
	if q.Pass && strings.TrimSpace(q.Sequence) == "" {
		return errorResponse(q, ErrMissingSequence, nil)
	}

	l := logger.With().Str("artist", q.Artist).Str("song", q.Song).Logger()
	l.Info().Bool("fast", q.Fast).Bool("mood", q.Mood).Bool("metadata", q.Metadata).Msg("Lyrics request")

	key := lyricscache.Key(lyricscache.KeyParams{
		Artist:     q.Artist,
		Song:       q.Song,
		Timestamps: q.Timestamps,
		Sequence:   q.Sequence,
		Fast:       q.Fast,
		Mood:       q.Mood,
		Metadata:   q.Metadata,
	})
	if s.cache != nil {
		var cached Response
		if s.cache.LoadInto(ctx, key, &cached) {
			l.Info().Msg("Cache hit")
			cached.Cached = true
			s.observe("cached", StatusSuccess)
			return &cached
		}
	}

	mode, seq, err := Plan(q)
	if err != nil {
		s.observe("invalid", StatusError)
		return errorResponse(q, err, nil)
	}

	out, err := s.orchestrate(ctx, music.Request{
		Artist:     q.Artist,
		Song:       q.Song,
		Timestamps: q.Timestamps,
		Mode:       mode,
		Sequence:   seq,
	})
	if err != nil {
		l.Warn().Err(err).Str("mode", mode.String()).Msg("Lyrics request failed")
		s.observe(mode.String(), StatusError)
		return errorResponse(q, err, music.AttemptsOf(err))
	}

	resp := &Response{Status: StatusSuccess, Data: out.Result, RunID: out.RunID}
	if imperfect(out.Verdict) {
		v := out.Verdict
		resp.Validation = &v
	}
	s.observe(mode.String(), StatusSuccess)

	if s.cache != nil && out.Result.HasContent() {
		s.cache.Store(ctx, key, resp)
		l.Info().Msg("Result cached")
	}
	return resp
}

// orchestrate 在整体时限内运行编排器；时限由外部强制执行
func (s *Service) orchestrate(ctx context.Context, req music.Request) (*music.Outcome, error) {
	runCtx, cancel := context.WithTimeout(ctx, s.opts.RunTimeout)
	defer cancel()

	type reply struct {
		out *music.Outcome
		err error
	}
	done := make(chan reply, 1)
	go func() {
		out, err := s.runner.Run(runCtx, req)
		done <- reply{out: out, err: err}
	}()

	var (
		out *music.Outcome
		err error
	)
	select {
	case r := <-done:
		out, err = r.out, r.err
	case <-runCtx.Done():
		err = runCtx.Err()
	}

	if err != nil && ctx.Err() == nil && errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return nil, &music.RunError{Err: music.ErrOrchestrationTimeout, Attempts: music.AttemptsOf(err)}
	}
	if err == nil && (out == nil || out.Result == nil) {
		return nil, &music.RunError{Err: music.ErrNoLyricsFound}
	}
	return out, err
}

// imperfect 匹配不完全精确时，响应中附带校验信息
func imperfect(v match.Verdict) bool {
	return v.SongMatch < 1 || v.MatchedBy != match.MethodArtistList
}

func errorResponse(q Query, err error, attempts []music.FetchAttempt) *Response {
	body := &ErrorBody{Timestamp: music.CaptureTimestamp()}
	switch {
	case errors.Is(err, ErrMissingInput):
		body.Message = "Artist and song name are required"
	case errors.Is(err, ErrMissingSequence):
		body.Message = "Sequence parameter is required when pass=true"
	case errors.Is(err, music.ErrInvalidSequenceFormat):
		body.Message = "Invalid sequence format: must be comma-separated integers"
	case errors.Is(err, music.ErrInvalidSequence):
		body.Message = fmt.Sprintf("Invalid sequence: must be unique numbers between 1 and %d", int(music.MaxProviderID))
	case errors.Is(err, music.ErrOrchestrationTimeout):
		body.Message = "Request timed out"
		body.Details = "Lyrics fetch took too long"
	case errors.Is(err, music.ErrNoneMatched):
		body.Message = fmt.Sprintf("Found results but none matched '%s' by '%s' (possible wrong song returned by API)", q.Song, q.Artist)
	case errors.Is(err, music.ErrNoLyricsFound):
		body.Message = fmt.Sprintf("No lyrics found for '%s' by '%s'", q.Song, q.Artist)
	default:
		body.Message = "Failed to fetch lyrics"
		body.Details = err.Error()
	}
	return &Response{Status: StatusError, Error: body, Attempts: attempts, Err: err}
}

func (s *Service) observe(mode, result string) {
	if s.opts.Observer != nil {
		s.opts.Observer.ObserveRun(mode, result)
	}
}

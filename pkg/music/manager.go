package music

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"lyrica/pkg/match"
)

// DefaultCallTimeout 单个提供商调用的默认时限
const DefaultCallTimeout = 10 * time.Second

// Mode 调度模式
type Mode int

const (
	// ModeSequential 按序列顺序逐个尝试
	ModeSequential Mode = iota
	// ModeRace 并行竞速，第一个成功的结果触发取消
	ModeRace
)

func (m Mode) String() string {
	if m == ModeRace {
		return "race"
	}
	return "sequential"
}

// Observer 接收每次尝试的结果（用于指标统计）
type Observer interface {
	ObserveAttempt(a FetchAttempt)
}

// Options 编排器选项
type Options struct {
	CallTimeout time.Duration
	Threshold   float64
	Observer    Observer
}

// Request 一次编排请求
type Request struct {
	Artist     string
	Song       string
	Timestamps bool
	Mode       Mode
	Sequence   Sequence
}

// Outcome 编排成功的结果
type Outcome struct {
	RunID    string
	Provider string
	Result   *LyricsResult
	Verdict  match.Verdict
	Attempts []FetchAttempt
}

var logger = log.With().Str("component", "music-manager").Logger()

// Manager 歌词获取编排器
type Manager struct {
	registry *Registry
	opts     Options
}

// NewManager 创建新的编排器
func NewManager(registry *Registry, opts Options) *Manager {
	if opts.CallTimeout <= 0 {
		opts.CallTimeout = DefaultCallTimeout
	}
	if opts.Threshold <= 0 {
		opts.Threshold = match.DefaultThreshold
	}
	if registry == nil {
		registry = NewRegistry()
	}

	logger.Info().
		Int("provider_count", len(registry.Configured())).
		Dur("call_timeout", opts.CallTimeout).
		Float64("threshold", opts.Threshold).
		Msg("Music API Manager initialized")

	return &Manager{registry: registry, opts: opts}
}

// Run 按请求的模式和序列获取歌词；序列非法时不会调用任何提供商
func (m *Manager) Run(ctx context.Context, req Request) (*Outcome, error) {
	if err := req.Sequence.Validate(); err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	l := logger.With().
		Str("run_id", runID).
		Str("artist", req.Artist).
		Str("song", req.Song).
		Str("mode", req.Mode.String()).
		Str("sequence", req.Sequence.String()).
		Logger()
	l.Info().Bool("timestamps", req.Timestamps).Msg("Starting lyrics fetch")

	var (
		out *Outcome
		err error
	)
	if req.Mode == ModeRace {
		out, err = m.race(ctx, req, l)
	} else {
		out, err = m.sequential(ctx, req, l)
	}
	if err != nil {
		l.Warn().Err(err).Msg("Lyrics fetch failed")
		return nil, err
	}
	out.RunID = runID
	l.Info().
		Str("provider", out.Provider).
		Str("matched_by", string(out.Verdict.MatchedBy)).
		Float64("song_match", out.Verdict.SongMatch).
		Msg("Successfully got lyrics")
	return out, nil
}

func (m *Manager) sequential(ctx context.Context, req Request, l zerolog.Logger) (*Outcome, error) {
	var attempts []FetchAttempt
	for i, id := range req.Sequence {
		if err := ctx.Err(); err != nil {
			return nil, &RunError{Err: err, Attempts: attempts}
		}

		f, ok := m.registry.Get(id)
		if !ok {
			a := failed(id, ReasonNotConfigured, "")
			m.observe(a)
			attempts = append(attempts, a)
			continue
		}

		l.Info().
			Str("provider", id.String()).
			Int("attempt", i+1).
			Int("total_providers", len(req.Sequence)).
			Msg("Trying provider")

		a := m.call(ctx, id, f, req)
		if err := ctx.Err(); err != nil {
			return nil, &RunError{Err: err, Attempts: append(attempts, a)}
		}

		if a.Succeeded() {
			artist, title := a.MatchCandidate()
			v := match.Validate(req.Artist, req.Song, match.Candidate{Artist: artist, Title: title}, m.opts.Threshold)
			if v.Valid {
				m.observe(a)
				attempts = append(attempts, a)
				return &Outcome{Provider: a.Provider, Result: a.Result, Verdict: v, Attempts: attempts}, nil
			}
			l.Warn().
				Str("provider", id.String()).
				Str("reason", v.Reason).
				Float64("song_match", v.SongMatch).
				Msg("Provider result failed validation")
			a.Success = false
			a.Reason = ReasonValidationFailed
			a.Detail = v.Reason
		}

		m.observe(a)
		attempts = append(attempts, a)
	}
	return nil, &RunError{Err: ErrNoLyricsFound, Attempts: attempts}
}

// race 并行调用序列中的所有提供商
//
// 第一个成功的结果会取消其余调用。取消是尽力而为的：忽略 ctx 的适配器会在后台跑完，
// 结果写入带缓冲的通道后被丢弃。
func (m *Manager) race(ctx context.Context, req Request, l zerolog.Logger) (*Outcome, error) {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make(chan FetchAttempt, len(req.Sequence))
	var attempts []FetchAttempt
	// 校验之后再统计，未通过校验的结果按 validation_failed 计入
	defer func() {
		for _, a := range attempts {
			m.observe(a)
		}
	}()
	pending := 0
	for _, id := range req.Sequence {
		f, ok := m.registry.Get(id)
		if !ok {
			attempts = append(attempts, failed(id, ReasonNotConfigured, ""))
			continue
		}
		pending++
		go func(id ProviderID, f Fetcher) {
			results <- m.call(runCtx, id, f, req)
		}(id, f)
	}

	won := false
	for pending > 0 && !won {
		select {
		case a := <-results:
			pending--
			attempts = append(attempts, a)
			if a.Succeeded() {
				won = true
			}
		case <-ctx.Done():
			return nil, &RunError{Err: ctx.Err(), Attempts: attempts}
		}
	}
	if !won {
		return nil, &RunError{Err: ErrNoLyricsFound, Attempts: attempts}
	}
	testHookRaceWon(results)

	// 同一批次内已经完成的结果也参与校验
	for drained := false; pending > 0 && !drained; {
		select {
		case a := <-results:
			pending--
			attempts = append(attempts, a)
		default:
			drained = true
		}
	}
	cancel()
	if pending > 0 {
		l.Debug().Int("cancelled", pending).Msg("Cancelled pending providers")
	}

	markInvalid(req, attempts, m.opts.Threshold, l)
	best, ok := pickValid(req, attempts, m.opts.Threshold)
	if !ok {
		return nil, &RunError{Err: ErrNoneMatched, Attempts: attempts}
	}
	best.Attempts = attempts
	return best, nil
}

var testHookRaceWon = func(chan FetchAttempt) {}

// markInvalid 把未通过校验的成功结果改记为 validation_failed
func markInvalid(req Request, attempts []FetchAttempt, threshold float64, l zerolog.Logger) {
	for i := range attempts {
		if !attempts[i].Succeeded() {
			continue
		}
		artist, title := attempts[i].MatchCandidate()
		v := match.Validate(req.Artist, req.Song, match.Candidate{Artist: artist, Title: title}, threshold)
		if v.Valid {
			continue
		}
		l.Warn().
			Str("provider", attempts[i].Provider).
			Str("reason", v.Reason).
			Float64("song_match", v.SongMatch).
			Msg("Provider result failed validation")
		attempts[i].Success = false
		attempts[i].Reason = ReasonValidationFailed
		attempts[i].Detail = v.Reason
	}
}

// pickValid 按提供商优先级（序列顺序）而不是完成顺序选出第一个通过校验的结果
func pickValid(req Request, attempts []FetchAttempt, threshold float64) (*Outcome, bool) {
	batch := make([]FetchAttempt, len(attempts))
	copy(batch, attempts)
	sort.SliceStable(batch, func(i, j int) bool {
		return req.Sequence.position(batch[i].ID) < req.Sequence.position(batch[j].ID)
	})

	filtered := match.Filter(req.Artist, req.Song, batch, threshold)
	if !filtered.HasValidMatch {
		return nil, false
	}
	best := filtered.Valid[0]
	return &Outcome{
		Provider: best.Attempt.Provider,
		Result:   best.Attempt.Result,
		Verdict:  best.Verdict,
	}, true
}

// call 在单次时限内调用提供商，时限由外部强制执行，不依赖适配器自身是否响应 ctx
func (m *Manager) call(ctx context.Context, id ProviderID, f Fetcher, req Request) FetchAttempt {
	callCtx, cancel := context.WithTimeout(ctx, m.opts.CallTimeout)
	defer cancel()

	type reply struct {
		result *LyricsResult
		err    error
	}
	done := make(chan reply, 1)
	start := time.Now()
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- reply{err: fmt.Errorf("panic: %v", r)}
			}
		}()
		res, err := f.Fetch(callCtx, req.Artist, req.Song, req.Timestamps)
		done <- reply{result: res, err: err}
	}()

	var a FetchAttempt
	select {
	case r := <-done:
		a = classify(ctx, id, req, r.result, r.err)
	case <-callCtx.Done():
		if ctx.Err() == nil {
			a = failed(id, ReasonTimeout, "")
		} else {
			a = failed(id, ReasonError, ctx.Err().Error())
		}
	}
	a.Elapsed = time.Since(start)

	logger.Debug().
		Str("provider", id.String()).
		Bool("success", a.Success).
		Str("reason", string(a.Reason)).
		Dur("elapsed", a.Elapsed).
		Msg("Provider call finished")
	return a
}

func classify(ctx context.Context, id ProviderID, req Request, res *LyricsResult, err error) FetchAttempt {
	switch {
	case err != nil && errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil:
		return failed(id, ReasonTimeout, "")
	case err != nil:
		logger.Warn().Str("provider", id.String()).Err(err).Msg("Provider failed")
		return failed(id, ReasonError, err.Error())
	case res == nil:
		return failed(id, ReasonNoResults, "")
	case req.Timestamps && !res.HasSyncedData():
		return failed(id, ReasonNoResults, "no synced lyrics")
	}
	return FetchAttempt{Provider: id.String(), ID: id, Success: true, Result: res}
}

func (m *Manager) observe(a FetchAttempt) {
	if m.opts.Observer != nil {
		m.opts.Observer.ObserveAttempt(a)
	}
}

// Registry 返回编排器使用的注册表
func (m *Manager) Registry() *Registry {
	return m.registry
}

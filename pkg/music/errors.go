package music

import (
	"errors"
	"fmt"
)

var (
	// ErrProviderTimeout 单个提供商调用超时
	ErrProviderTimeout = errors.New("provider timeout")
	// ErrProviderNoResult 提供商没有可用结果
	ErrProviderNoResult = errors.New("provider returned no result")
	// ErrProviderNotConfigured 提供商未配置（例如缺少令牌）
	ErrProviderNotConfigured = errors.New("provider not configured")
	// ErrValidationFailed 结果与请求的歌手/歌名不匹配
	ErrValidationFailed = errors.New("result failed validation")
	// ErrInvalidSequence 自定义序列非法（为空、越界、超长或重复）
	ErrInvalidSequence = errors.New("invalid sequence")
	// ErrInvalidSequenceFormat 自定义序列不是逗号分隔的整数
	ErrInvalidSequenceFormat = errors.New("invalid sequence format")
	// ErrNoLyricsFound 所有提供商都没有返回可用结果
	ErrNoLyricsFound = errors.New("no lyrics found")
	// ErrNoneMatched 有提供商返回了结果，但都没有通过校验
	ErrNoneMatched = errors.New("found results but none matched")
	// ErrOrchestrationTimeout 整体调用超过外层时限
	ErrOrchestrationTimeout = errors.New("orchestration timed out")
)

// RunError 编排失败，携带所有尝试记录用于诊断
type RunError struct {
	Err      error
	Attempts []FetchAttempt
}

func (e *RunError) Error() string {
	return fmt.Sprintf("%v (%d attempts)", e.Err, len(e.Attempts))
}

func (e *RunError) Unwrap() error {
	return e.Err
}

// AttemptsOf 从错误中取出尝试记录
func AttemptsOf(err error) []FetchAttempt {
	var runErr *RunError
	if errors.As(err, &runErr) {
		return runErr.Attempts
	}
	return nil
}

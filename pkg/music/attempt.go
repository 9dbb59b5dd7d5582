package music

import "time"

// FailureReason 尝试失败的原因
type FailureReason string

const (
	ReasonTimeout          FailureReason = "timeout"
	ReasonNoResults        FailureReason = "no_results"
	ReasonValidationFailed FailureReason = "validation_failed"
	ReasonNotConfigured    FailureReason = "not_configured"
	ReasonError            FailureReason = "error"
)

// FetchAttempt 单个提供商的调用记录
type FetchAttempt struct {
	Provider string        `json:"api"`
	ID       ProviderID    `json:"id"`
	Success  bool          `json:"success"`
	Result   *LyricsResult `json:"-"`
	Reason   FailureReason `json:"status,omitempty"`
	Detail   string        `json:"message,omitempty"`
	Elapsed  time.Duration `json:"-"`
}

// Succeeded 提供商是否返回了可用结果（不代表通过校验）
func (a FetchAttempt) Succeeded() bool {
	return a.Success && a.Result != nil
}

// MatchCandidate 返回用于校验的歌手和歌名
func (a FetchAttempt) MatchCandidate() (artist, title string) {
	if a.Result == nil {
		return "", ""
	}
	return a.Result.Artist, a.Result.Title
}

// Err 返回失败原因对应的错误
func (a FetchAttempt) Err() error {
	switch a.Reason {
	case "":
		return nil
	case ReasonTimeout:
		return ErrProviderTimeout
	case ReasonNoResults:
		return ErrProviderNoResult
	case ReasonValidationFailed:
		return ErrValidationFailed
	case ReasonNotConfigured:
		return ErrProviderNotConfigured
	default:
		return &ProviderError{Provider: a.Provider, Detail: a.Detail}
	}
}

// ProviderError 提供商调用出错
type ProviderError struct {
	Provider string
	Detail   string
}

func (e *ProviderError) Error() string {
	return e.Provider + ": " + e.Detail
}

func failed(id ProviderID, reason FailureReason, detail string) FetchAttempt {
	return FetchAttempt{
		Provider: id.String(),
		ID:       id,
		Reason:   reason,
		Detail:   detail,
	}
}

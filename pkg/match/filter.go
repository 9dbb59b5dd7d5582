package match

// Attempt 可以参与批量校验的提供商尝试记录
type Attempt interface {
	Succeeded() bool
	MatchCandidate() (artist, title string)
}

// Valid 通过校验的候选
type Valid[A Attempt] struct {
	Attempt A
	Verdict Verdict
}

// FilterResult 批量校验结果
type FilterResult[A Attempt] struct {
	HasValidMatch bool
	Valid         []Valid[A]
	Invalid       []Valid[A]
	AllFailed     bool
}

// Filter 对所有成功的尝试逐一校验，保持原有顺序
func Filter[A Attempt](requestedArtist, requestedSong string, attempts []A, threshold float64) FilterResult[A] {
	var res FilterResult[A]
	for _, a := range attempts {
		if !a.Succeeded() {
			continue
		}
		artist, title := a.MatchCandidate()
		v := Validate(requestedArtist, requestedSong, Candidate{Artist: artist, Title: title}, threshold)
		if v.Valid {
			res.Valid = append(res.Valid, Valid[A]{Attempt: a, Verdict: v})
		} else {
			res.Invalid = append(res.Invalid, Valid[A]{Attempt: a, Verdict: v})
		}
	}
	res.HasValidMatch = len(res.Valid) > 0
	res.AllFailed = !res.HasValidMatch
	return res
}

package match

// ratio 计算 Ratcliff/Obershelp 相似度：2*M/T，M 为递归匹配块的字符总数
func ratio(a, b []rune) float64 {
	total := len(a) + len(b)
	if total == 0 {
		return 1
	}
	return 2 * float64(matchingChars(a, 0, len(a), b, 0, len(b))) / float64(total)
}

func matchingChars(a []rune, alo, ahi int, b []rune, blo, bhi int) int {
	i, j, k := longestMatch(a, alo, ahi, b, blo, bhi)
	if k == 0 {
		return 0
	}
	return k + matchingChars(a, alo, i, b, blo, j) + matchingChars(a, i+k, ahi, b, j+k, bhi)
}

// longestMatch 返回 a[alo:ahi] 与 b[blo:bhi] 的最长公共子串，平局时取最靠前的
func longestMatch(a []rune, alo, ahi int, b []rune, blo, bhi int) (besti, bestj, bestk int) {
	besti, bestj = alo, blo
	prev := make([]int, bhi-blo+1)
	cur := make([]int, bhi-blo+1)
	for i := alo; i < ahi; i++ {
		for j := blo; j < bhi; j++ {
			if a[i] != b[j] {
				cur[j-blo+1] = 0
				continue
			}
			k := prev[j-blo] + 1
			cur[j-blo+1] = k
			if k > bestk {
				besti, bestj, bestk = i-k+1, j-k+1, k
			}
		}
		prev, cur = cur, prev
	}
	return besti, bestj, bestk
}

package archive

import "unicode"

// naturalLess compares two entry names case-insensitively with digit runs
// compared numerically, so "Page2.jpg" sorts before "Page10.jpg".
func naturalLess(a, b string) bool {
	ra, rb := []rune(a), []rune(b)
	i, j := 0, 0
	for i < len(ra) && j < len(rb) {
		ca, cb := ra[i], rb[j]

		if unicode.IsDigit(ca) && unicode.IsDigit(cb) {
			// Skip leading zeros, then compare the digit runs by
			// length first, then lexically.
			si, sj := i, j
			for si < len(ra) && ra[si] == '0' {
				si++
			}
			for sj < len(rb) && rb[sj] == '0' {
				sj++
			}
			ei, ej := si, sj
			for ei < len(ra) && unicode.IsDigit(ra[ei]) {
				ei++
			}
			for ej < len(rb) && unicode.IsDigit(rb[ej]) {
				ej++
			}
			if ei-si != ej-sj {
				return ei-si < ej-sj
			}
			for k := 0; k < ei-si; k++ {
				if ra[si+k] != rb[sj+k] {
					return ra[si+k] < rb[sj+k]
				}
			}
			// Equal numeric value; fewer leading zeros wins to keep
			// the order total.
			if si-i != sj-j {
				return si-i < sj-j
			}
			i, j = ei, ej
			continue
		}

		la, lb := unicode.ToLower(ca), unicode.ToLower(cb)
		if la != lb {
			return la < lb
		}
		i++
		j++
	}
	return len(ra)-i < len(rb)-j
}

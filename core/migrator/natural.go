package migrator

// naturalCompare compares two names treating digit runs as numbers, so
// "v2-x" sorts before "v10-x".
func naturalCompare(a, b string) int {
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		if isDigit(a[i]) && isDigit(b[j]) {
			na, ni := readNumber(a, i)
			nb, nj := readNumber(b, j)
			if na != nb {
				if na < nb {
					return -1
				}
				return 1
			}
			i, j = ni, nj
			continue
		}

		if a[i] != b[j] {
			if a[i] < b[j] {
				return -1
			}
			return 1
		}
		i++
		j++
	}

	switch {
	case len(a)-i < len(b)-j:
		return -1
	case len(a)-i > len(b)-j:
		return 1
	}
	return 0
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func readNumber(s string, i int) (uint64, int) {
	var n uint64
	for i < len(s) && isDigit(s[i]) {
		n = n*10 + uint64(s[i]-'0')
		i++
	}
	return n, i
}

package report

import "strconv"

func itoa(i int) string { return strconv.Itoa(i) }

func ftoa(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }

func ftoa2(f float64) string { return strconv.FormatFloat(f, 'f', 2, 64) }

// distinct returns the only value of values, or all when there are several or none.
func distinct(values []string, all string) string {
	var only string
	seen := make(map[string]bool)
	for _, v := range values {
		if !seen[v] {
			seen[v] = true
			only = v
		}
	}
	if len(seen) != 1 || only == "" {
		return all
	}
	return only
}

package build

import "sort"

// Matrix expands variables with several values into every combination.
// Keys vary in sorted order with the last key changing fastest, so
// {"PRESET": [linux, windows], "TYPE": [Debug, Release]} yields linux/Debug,
// linux/Release, windows/Debug, windows/Release. A key with no values is
// dropped. An empty input yields one empty combination.
func Matrix(values map[string][]string) []map[string]string {
	keys := make([]string, 0, len(values))
	for k, v := range values {
		if len(v) > 0 {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	combos := []map[string]string{{}}
	for _, k := range keys {
		next := make([]map[string]string, 0, len(combos)*len(values[k]))
		for _, combo := range combos {
			for _, v := range values[k] {
				c := make(map[string]string, len(combo)+1)
				for ck, cv := range combo {
					c[ck] = cv
				}
				c[k] = v
				next = append(next, c)
			}
		}
		combos = next
	}
	return combos
}

package inventory

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var rangeToken = regexp.MustCompile(`\[([0-9]+|[a-zA-Z]):([0-9]+|[a-zA-Z])(?::([0-9]+))?\]`)

// ExpandHostRange expands a token of the form <prefix>[LOW:HIGH(:STRIDE)]<suffix>
// into its member strings, preserving the zero-padding width of LOW for
// numeric ranges. Multiple bracket groups on the same token compose (the
// cross-product, in left-to-right odometer order).
func ExpandHostRange(pattern string) ([]string, error) {
	loc := rangeToken.FindStringSubmatchIndex(pattern)
	if loc == nil {
		return []string{pattern}, nil
	}

	prefix := pattern[:loc[0]]
	lowStr := pattern[loc[2]:loc[3]]
	highStr := pattern[loc[4]:loc[5]]
	strideStr := ""
	if loc[6] != -1 {
		strideStr = pattern[loc[6]:loc[7]]
	}
	rest := pattern[loc[1]:]

	var items []string
	if isDigits(lowStr) && isDigits(highStr) {
		width := len(lowStr)
		low, err := strconv.Atoi(lowStr)
		if err != nil {
			return nil, fmt.Errorf("invalid range low %q: %w", lowStr, err)
		}
		high, err := strconv.Atoi(highStr)
		if err != nil {
			return nil, fmt.Errorf("invalid range high %q: %w", highStr, err)
		}
		stride := 1
		if strideStr != "" {
			stride, err = strconv.Atoi(strideStr)
			if err != nil {
				return nil, fmt.Errorf("invalid range stride %q: %w", strideStr, err)
			}
		}
		if stride <= 0 {
			stride = 1
		}
		if low <= high {
			for i := low; i <= high; i += stride {
				items = append(items, fmt.Sprintf("%0*d", width, i))
			}
		} else {
			for i := low; i >= high; i -= stride {
				items = append(items, fmt.Sprintf("%0*d", width, i))
			}
		}
	} else if len(lowStr) == 1 && len(highStr) == 1 {
		low, high := rune(lowStr[0]), rune(highStr[0])
		if low <= high {
			for c := low; c <= high; c++ {
				items = append(items, string(c))
			}
		} else {
			for c := low; c >= high; c-- {
				items = append(items, string(c))
			}
		}
	} else {
		return nil, fmt.Errorf("invalid host range %q", pattern[loc[0]:loc[1]])
	}

	// Recurse to compose multiple bracket groups on the same token.
	restExpanded, err := ExpandHostRange(rest)
	if err != nil {
		return nil, err
	}

	result := make([]string, 0, len(items)*len(restExpanded))
	for _, it := range items {
		for _, r := range restExpanded {
			result = append(result, prefix+it+r)
		}
	}
	return result, nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	return strings.IndexFunc(s, func(r rune) bool { return r < '0' || r > '9' }) == -1
}

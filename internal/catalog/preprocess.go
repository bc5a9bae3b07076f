package catalog

import (
	"fmt"
	"strconv"
	"strings"
)

// Preprocessors trim document content before prompting, e.g. keeping only the
// header rows of a CSV export. Referenced by name from the catalog file.

func resolvePreprocessor(spec string) (func(string) string, error) {
	name, arg, _ := strings.Cut(spec, ":")
	switch strings.TrimSpace(name) {
	case "head_lines":
		n, err := positiveArg(spec, arg)
		if err != nil {
			return nil, err
		}
		return func(content string) string { return headLines(content, n) }, nil
	case "head_chars":
		n, err := positiveArg(spec, arg)
		if err != nil {
			return nil, err
		}
		return func(content string) string { return HeadChars(content, n) }, nil
	default:
		return nil, fmt.Errorf("unknown preprocessor %q", spec)
	}
}

func positiveArg(spec, arg string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(arg))
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("preprocessor %q requires a positive count", spec)
	}
	return n, nil
}

func headLines(content string, n int) string {
	lines := strings.SplitAfterN(content, "\n", n+1)
	if len(lines) <= n {
		return content
	}
	return strings.Join(lines[:n], "")
}

// HeadChars bounds content to a rune prefix. The classifier uses it to cap
// cost and latency on arbitrarily large documents.
func HeadChars(content string, n int) string {
	runes := []rune(content)
	if len(runes) <= n {
		return content
	}
	return string(runes[:n])
}

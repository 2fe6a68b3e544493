package vcf

import (
	"strings"

	"variationutil/api/models/indexes"
)

var metaCategories = []string{"INFO", "FORMAT", "FILTER"}

// metaCategory reports the category of an INFO, FORMAT or FILTER meta line.
func metaCategory(line string) (string, bool) {
	for _, c := range metaCategories {
		if strings.HasPrefix(line, "##"+c+"=<") {
			return c, true
		}
	}
	return "", false
}

// ParseMetaLine turns `##INFO=<ID=DP,Number=1,Description="a, b">` into
// an ordered entry. Commas inside quotes do not split, quotes are
// stripped, and each attribute splits on its first '=' only.
func ParseMetaLine(category string, line string) indexes.HeaderEntry {
	body := line
	if i := strings.Index(body, "<"); i >= 0 {
		body = body[i+1:]
	}
	if j := strings.LastIndex(body, ">"); j >= 0 {
		body = body[:j]
	}

	entry := indexes.HeaderEntry{Category: category}
	for _, attr := range splitOutsideQuotes(body, ',') {
		kv := strings.SplitN(attr, "=", 2)
		key := strings.TrimSpace(strings.ReplaceAll(kv[0], "\"", ""))
		if key == "" {
			continue
		}
		value := ""
		if len(kv) == 2 {
			value = strings.TrimSpace(strings.ReplaceAll(kv[1], "\"", ""))
		}
		entry.Fields = append(entry.Fields, indexes.HeaderField{Key: key, Value: value})
	}
	return entry
}

func splitOutsideQuotes(s string, sep byte) []string {
	var (
		parts   []string
		start   int
		inQuote bool
	)
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '"':
			inQuote = !inQuote
		case '\\':
			// skip the escaped character
			if inQuote && i+1 < len(s) {
				i++
			}
		case sep:
			if !inQuote {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, s[start:])
}

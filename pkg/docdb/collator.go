package docdb

import (
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// CollatorComparator builds a locale-aware string comparator for
// Config.CompareStrings, built on golang.org/x/text/collate instead of the
// default byte-order strings.Compare — for callers who want natural-language
// ordering (e.g. accented characters sorting next to their unaccented form)
// rather than raw UTF-8 byte order.
func CollatorComparator(tag language.Tag) func(a, b string) int {
	col := collate.New(tag)
	return func(a, b string) int {
		return col.CompareString(a, b)
	}
}

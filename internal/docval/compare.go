package docval

import "sort"

// typeRank implements the total order's type hierarchy from spec.md §4.1:
// Undefined < Null < Number < String < Bool < Date < Array < Object.
func typeRank(k Kind) int {
	switch k {
	case KindUndefined:
		return 0
	case KindNull:
		return 1
	case KindNumber:
		return 2
	case KindString:
		return 3
	case KindBool:
		return 4
	case KindDate:
		return 5
	case KindArray:
		return 6
	case KindObject:
		return 7
	default:
		return -1
	}
}

// StrCompare is the signature for a pluggable string comparator
// (spec.md §6 compare_strings). The zero value of Config uses strings.Compare.
type StrCompare func(a, b string) int

// Compare implements spec.md §4.1's total order across all Values plus
// Undefined. strCmp may be nil, in which case byte-order string comparison is
// used.
func Compare(a, b Value, strCmp StrCompare) int {
	ra, rb := typeRank(a.kind), typeRank(b.kind)
	if ra != rb {
		return signOf(ra - rb)
	}
	switch a.kind {
	case KindUndefined, KindNull:
		return 0
	case KindNumber:
		return compareFloat(a.n, b.n)
	case KindDate:
		return compareInt64(a.d, b.d)
	case KindString:
		if strCmp == nil {
			strCmp = defaultStrCompare
		}
		return signOf(strCmp(a.s, b.s))
	case KindBool:
		if a.b == b.b {
			return 0
		}
		if !a.b && b.b {
			return -1
		}
		return 1
	case KindArray:
		return compareArrays(a.arr, b.arr, strCmp)
	case KindObject:
		return compareObjects(a.obj, b.obj, strCmp)
	default:
		return 0
	}
}

func defaultStrCompare(a, b string) int {
	if a < b {
		return -1
	}
	if a > b {
		return 1
	}
	return 0
}

func compareArrays(a, b []Value, strCmp StrCompare) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if c := Compare(a[i], b[i], strCmp); c != 0 {
			return c
		}
	}
	return compareInt(len(a), len(b))
}

// compareObjects implements "objects by sorted-key lexicographic pairwise
// compare of (value_i) using the same ordering, then by key count" — keys
// themselves are not compared, only the values at matching sorted positions,
// exactly as spec.md §4.1 states.
func compareObjects(a, b map[string]Value, strCmp StrCompare) int {
	ak := sortedKeys(a)
	bk := sortedKeys(b)
	n := len(ak)
	if len(bk) < n {
		n = len(bk)
	}
	for i := 0; i < n; i++ {
		if c := Compare(a[ak[i]], b[bk[i]], strCmp); c != 0 {
			return c
		}
	}
	return compareInt(len(ak), len(bk))
}

func sortedKeys(m map[string]Value) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func compareInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func compareInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func signOf(n int) int {
	switch {
	case n < 0:
		return -1
	case n > 0:
		return 1
	default:
		return 0
	}
}

// Comparable reports whether a and b are both numbers, both strings or both
// dates — the precondition $lt/$lte/$gt/$gte require per spec.md §4.2.
func Comparable(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindNumber, KindString, KindDate:
		return true
	default:
		return false
	}
}

package sheetml

// stringTable deduplicates shared strings. Index order is first-seen order,
// matching how the sharedStrings part lists its items.
type stringTable struct {
	index map[string]int
	items []string
	count int
}

func newStringTable() *stringTable {
	return &stringTable{index: make(map[string]int)}
}

// add returns the table index of s, inserting it on first sight. The total
// reference count is tracked separately for the part's count attribute.
func (t *stringTable) add(s string) int {
	t.count++
	if i, ok := t.index[s]; ok {
		return i
	}
	i := len(t.items)
	t.index[s] = i
	t.items = append(t.items, s)
	return i
}

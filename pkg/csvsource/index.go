package csvsource

// lineIndex records the byte offset of every logical row found so far.
// Offsets only ever grow forward and are strictly increasing.
type lineIndex struct {
	offsets []int64
	next    int64 // where the next scan resumes
	eof     bool  // the whole file has been indexed
}

func (idx *lineIndex) len() int {
	return len(idx.offsets)
}

// ensureOffset extends the index until row i has an offset or the file is
// exhausted. It is idempotent and reports whether row i is indexed. Callers
// must hold the Reader mutex.
func (r *Reader) ensureOffset(i int) (bool, error) {
	idx := &r.idx
	if i < 0 {
		return false, nil
	}
	if i < idx.len() {
		return true, nil
	}
	if idx.eof {
		return false, nil
	}

	err := r.m.scan(idx.next, func(start, end int64, blank bool) bool {
		idx.next = min(end+1, r.m.size)
		if !blank {
			idx.offsets = append(idx.offsets, start)
		}
		return idx.len() <= i
	})
	if idx.next >= r.m.size {
		idx.eof = true
		if r.rowCount < 0 {
			r.rowCount = idx.len()
		}
	}
	r.opts.Metrics.SetIndexedRows(idx.len())
	if err != nil {
		return false, err
	}
	return i < idx.len(), nil
}

package docstore

// table is the fixed-size hash-bucket-plus-global-list structure
// spec.md §3.5 describes: a power-of-two array of bucket chains for O(1)
// expected lookup by path, threaded through the same Documents as a single
// doubly-linked global list for bulk teardown.
//
// This is a direct structural port of original_source/src/file_system.c's
// files_hash_table / files fields, with one deliberate fix: find walks the
// entire bucket chain via hashNext on every iteration, including on a
// miss. The original file_system_lookup and file_system_open loop forever
// on a miss because their while loop never advances past the first bucket
// entry (spec.md §9's first Open Question).
type table struct {
	buckets []*Document
	head    *Document
}

func newTable(size int) *table {
	return &table{buckets: make([]*Document, size)}
}

// insert links d into both its hash bucket and the head of the global list.
func (t *table) insert(d *Document) {
	d.next = t.head
	if t.head != nil {
		t.head.prev = d
	}
	d.prev = nil
	t.head = d

	bucket := d.Hash
	d.hashNext = t.buckets[bucket]
	if t.buckets[bucket] != nil {
		t.buckets[bucket].hashPrev = d
	}
	d.hashPrev = nil
	t.buckets[bucket] = d
}

// remove unlinks d from both its hash bucket and the global list.
func (t *table) remove(d *Document) {
	if d.prev != nil {
		d.prev.next = d.next
	} else {
		t.head = d.next
	}
	if d.next != nil {
		d.next.prev = d.prev
	}

	if d.hashPrev != nil {
		d.hashPrev.hashNext = d.hashNext
	} else {
		t.buckets[d.Hash] = d.hashNext
	}
	if d.hashNext != nil {
		d.hashNext.hashPrev = d.hashPrev
	}

	d.next, d.prev, d.hashNext, d.hashPrev = nil, nil, nil, nil
}

// find walks the bucket chain for hash looking for an exact path match,
// advancing along hashNext every iteration regardless of whether the
// current entry matches.
func (t *table) find(hash uint64, path string) *Document {
	for d := t.buckets[hash]; d != nil; d = d.hashNext {
		if d.Path == path {
			return d
		}
	}
	return nil
}

// each visits every document in the global list, in an order safe against
// the visitor removing the current node.
func (t *table) each(fn func(*Document)) {
	for d := t.head; d != nil; {
		next := d.next
		fn(d)
		d = next
	}
}

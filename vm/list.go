package vm

import "github.com/pkg/errors"

// listSpan locates a LIST's header given the stack index of its
// terminating LINK cell, and validates the header/LINK pair agree
// (spec.md §3.3: "LINK payload = N+1, the back-distance to the header").
func (i *Instance) listSpan(linkIdx int) (headerIdx, n int, err error) {
	tag, dist := DecodeTag(i.Mem.Data[linkIdx])
	if tag != TagLink {
		return 0, 0, errors.Wrap(ErrTypeError, "expected a LIST (LINK at top of stack)")
	}
	headerIdx = linkIdx - int(dist)
	if headerIdx < 0 {
		return 0, 0, errors.Wrap(ErrCorruptFrame, "malformed list: header before segment start")
	}
	htag, hn := DecodeTag(i.Mem.Data[headerIdx])
	if htag != TagList || hn != dist-1 {
		return 0, 0, errors.Wrap(ErrCorruptFrame, "malformed list: header/LINK mismatch")
	}
	return headerIdx, int(hn), nil
}

// elementSpan reports how many forward-layout cells, starting at idx,
// belong to the one logical element there: 1 for a simple cell, or
// 1+n for a nested LIST (its header plus its own payload cell count).
// Per spec.md §3.3, "nested lists do not carry their own LINK; they are
// embedded inline as values and contribute to the outer payload count" —
// so a nested list is told apart from a simple cell by its own header
// tag alone, never by a LINK (there is none to find).
func elementSpan(seg []Cell, idx int) (int, error) {
	if idx < 0 || idx >= len(seg) {
		return 0, errors.Wrap(ErrSegmentOverflow, "element: index out of range")
	}
	tag, n := DecodeTag(seg[idx])
	if tag == TagList {
		return 1 + int(n), nil
	}
	return 1, nil
}

// countElements walks a LIST's forward payload (totalCells cells
// starting at start) and counts its logical top-level elements: the
// figure spec.md §8 scenario S4 calls "length" (3, for
// `( 1 ( 2 3 ) 4 )`), as distinct from the header's own payload count
// (5 cells: 1, the nested list's header+2 payload cells, 4).
func countElements(seg []Cell, start, totalCells int) (int, error) {
	count, idx, end := 0, start, start+totalCells
	for idx < end {
		span, err := elementSpan(seg, idx)
		if err != nil {
			return 0, err
		}
		idx += span
		count++
	}
	if idx != end {
		return 0, errors.Wrap(ErrCorruptFrame, "malformed list: element span overruns boundary")
	}
	return count, nil
}

// elementOffset returns the forward-layout index of the target-th
// (0-based) logical element within a LIST's payload.
func elementOffset(seg []Cell, start, totalCells, target int) (int, error) {
	idx, end := start, start+totalCells
	for k := 0; k < target; k++ {
		if idx >= end {
			return 0, errors.Wrap(ErrOutOfRange, "element index out of range")
		}
		span, err := elementSpan(seg, idx)
		if err != nil {
			return 0, err
		}
		idx += span
	}
	if idx >= end {
		return 0, errors.Wrap(ErrOutOfRange, "element index out of range")
	}
	return idx, nil
}

// pushElementValue pushes a copy of the logical element at forward
// index offset in seg onto the DATA_STACK: a simple cell goes straight
// across, a nested LIST is re-materialized as an independent stack-form
// value (its header and payload copied across, then a freshly
// synthesized LINK) so the copy is itself directly usable by length,
// head, concat and so on.
func (i *Instance) pushElementValue(seg []Cell, offset int) error {
	span, err := elementSpan(seg, offset)
	if err != nil {
		return err
	}
	if span == 1 {
		i.Push(seg[offset])
		return nil
	}
	buf := make([]Cell, span)
	copy(buf, seg[offset:offset+span])
	for _, v := range buf {
		i.Push(v)
	}
	link, err := EncodeTag(TagLink, int32(span))
	if err != nil {
		return err
	}
	i.Push(link)
	return nil
}

// stackElementAt identifies the one logical element whose topmost cell
// sits at idx on the DATA_STACK: a single simple cell, or — if idx
// holds a LINK — a whole LIST value in stack form (LINK on top, its own
// header somewhere below). It returns that element's forward-layout
// cells (LINK stripped, so a compound operand can be re-embedded
// without carrying one of its own) and the stack index immediately
// below the element.
func (i *Instance) stackElementAt(idx int) (forward []Cell, below int, err error) {
	if IsTag(i.Mem.Data[idx], TagLink) {
		headerIdx, n, e := i.listSpan(idx)
		if e != nil {
			return nil, 0, e
		}
		buf := make([]Cell, n+1)
		copy(buf, i.Mem.Data[headerIdx:headerIdx+n+1])
		return buf, headerIdx - 1, nil
	}
	return []Cell{i.Mem.Data[idx]}, idx - 1, nil
}

// writeList overwrites the DATA_STACK starting at start with a fresh
// LIST header, the concatenation of segments (each already in forward,
// final order), and a closing LINK, then leaves SP just past the LINK.
// Callers are responsible for having already retired whatever cells
// they are replacing (typically via an assignment to i.SP).
func (i *Instance) writeList(start int, segments ...[]Cell) error {
	total := 0
	for _, s := range segments {
		total += len(s)
	}
	if start < 0 {
		return errors.Wrap(ErrStackUnderflow, "pack")
	}
	if start+1+total+1 > len(i.Mem.Data) {
		return errors.Wrap(ErrStackOverflow, "pack")
	}
	hdr, err := EncodeTag(TagList, int32(total))
	if err != nil {
		return err
	}
	i.Mem.Data[start] = hdr
	w := start + 1
	for _, s := range segments {
		copy(i.Mem.Data[w:w+len(s)], s)
		w += len(s)
	}
	i.SP = w
	link, err := EncodeTag(TagLink, int32(total+1))
	if err != nil {
		return err
	}
	i.Push(link)
	return nil
}

// pack consumes the top n *logical elements* of the DATA_STACK — each
// either a single cell, or, if it is itself a LIST value in stack form
// (LINK on top), the whole span that value occupies — and bundles them
// into a single new LIST. A compound operand loses its own LINK cell on
// the way in (spec.md §3.3: nested lists carry none), so the resulting
// header's payload cell count can exceed n whenever any operand was
// itself a list: this is the "parent payload count includes the full
// cell span of any nested list" invariant.
func (i *Instance) pack(n int) error {
	if n < 0 {
		return errors.Wrap(ErrStackUnderflow, "pack")
	}
	pos := i.SP - 1
	topDown := make([][]Cell, 0, n)
	for k := 0; k < n; k++ {
		if pos < 0 {
			return errors.Wrap(ErrStackUnderflow, "pack")
		}
		forward, below, err := i.stackElementAt(pos)
		if err != nil {
			return err
		}
		topDown = append(topDown, forward)
		pos = below
	}
	start := pos + 1
	segments := make([][]Cell, len(topDown))
	for k, v := range topDown {
		segments[len(topDown)-1-k] = v
	}
	return i.writeList(start, segments...)
}

// packToBoundary packs every logical element sitting between stack
// index boundary (inclusive) and the current SP (exclusive) into one
// LIST, however many elements that turns out to be. Used by the
// backtick list-literal combinator (Op.PackToMark), where the compiler
// knows where the span starts (wherever Op.Mark recorded SP) but not
// how many logical elements populate it until the stack is walked.
func (i *Instance) packToBoundary(boundary int) error {
	if boundary < 0 || boundary > i.SP {
		return errors.Wrap(ErrCorruptFrame, "pack: invalid mark")
	}
	pos := i.SP - 1
	var topDown [][]Cell
	for pos >= boundary {
		forward, below, err := i.stackElementAt(pos)
		if err != nil {
			return err
		}
		topDown = append(topDown, forward)
		pos = below
	}
	if pos != boundary-1 {
		return errors.Wrap(ErrCorruptFrame, "pack: mark does not align to an element boundary")
	}
	segments := make([][]Cell, len(topDown))
	for k, v := range topDown {
		segments[len(topDown)-1-k] = v
	}
	return i.writeList(boundary, segments...)
}

// unpack strips a LIST's header and LINK, leaving its payload cells
// (forward layout, any nested list embedded exactly as stored) as the
// new top of stack.
func (i *Instance) unpack() error {
	headerIdx, n, err := i.listSpan(i.SP - 1)
	if err != nil {
		return err
	}
	for k := headerIdx; k < headerIdx+n; k++ {
		i.Mem.Data[k] = i.Mem.Data[k+1]
	}
	i.SP -= 2
	return nil
}

// length consumes a LIST and pushes its logical top-level element count
// (spec.md §8 scenario S4: a nested list counts as one element,
// regardless of how many cells its own payload spans).
func (i *Instance) length() error {
	headerIdx, n, err := i.listSpan(i.SP - 1)
	if err != nil {
		return err
	}
	count, err := countElements(i.Mem.Data, headerIdx+1, n)
	if err != nil {
		return err
	}
	i.SP = headerIdx
	i.Push(EncodeNumber(float32(count)))
	return nil
}

// head consumes a LIST and pushes its first logical element: a simple
// cell, or, if the first element is itself a nested list, an
// independent materialized copy of it (header, payload, a fresh LINK).
// Resolves spec.md §9's "does Head/Tail consume or copy?" Open Question
// in favor of consuming the source list.
func (i *Instance) head() error {
	headerIdx, n, err := i.listSpan(i.SP - 1)
	if err != nil {
		return err
	}
	if n == 0 {
		return errors.Wrap(ErrOutOfRange, "head: empty list")
	}
	offset := headerIdx + 1
	span, err := elementSpan(i.Mem.Data, offset)
	if err != nil {
		return err
	}
	first := make([]Cell, span)
	copy(first, i.Mem.Data[offset:offset+span])
	i.SP = headerIdx
	return i.pushElementValue(first, 0)
}

// tail consumes a LIST and pushes a new LIST holding every element but
// the first, preserving whatever nested structure those remaining
// elements carry. See head's doc comment for the consume-vs-copy
// resolution.
func (i *Instance) tail() error {
	headerIdx, n, err := i.listSpan(i.SP - 1)
	if err != nil {
		return err
	}
	if n == 0 {
		return errors.Wrap(ErrOutOfRange, "tail: empty list")
	}
	firstSpan, err := elementSpan(i.Mem.Data, headerIdx+1)
	if err != nil {
		return err
	}
	rest := make([]Cell, n-firstSpan)
	copy(rest, i.Mem.Data[headerIdx+1+firstSpan:headerIdx+1+n])
	i.SP = headerIdx
	return i.writeList(headerIdx, rest)
}

// concat implements spec.md §4.6.2's dispatch table: simple+simple makes
// a 2-element list (this implementation's resolution of the Open
// Question over that edge case, matching the table's primary row rather
// than its conflicting footnote); list+simple appends in place, O(1);
// simple+list prepends, O(n); list+list flattens, O(n+m).
func (i *Instance) concat() error {
	if i.SP < 2 {
		return errors.Wrap(ErrStackUnderflow, "concat")
	}
	rhsIsList := IsTag(i.Mem.Data[i.SP-1], TagLink)
	if rhsIsList {
		rhsHeaderIdx, rhsN, err := i.listSpan(i.SP - 1)
		if err != nil {
			return err
		}
		lhsIdx := rhsHeaderIdx - 1
		if lhsIdx < 0 {
			return errors.Wrap(ErrStackUnderflow, "concat")
		}
		if IsTag(i.Mem.Data[lhsIdx], TagLink) {
			lhsHeaderIdx, lhsN, err := i.listSpan(lhsIdx)
			if err != nil {
				return err
			}
			return i.concatListList(lhsHeaderIdx, lhsN, rhsHeaderIdx, rhsN)
		}
		return i.concatSimpleList(lhsIdx, rhsHeaderIdx, rhsN)
	}
	rhsVal := i.Mem.Data[i.SP-1]
	lhsIdx := i.SP - 2
	if IsTag(i.Mem.Data[lhsIdx], TagLink) {
		return i.concatListSimple(lhsIdx, rhsVal)
	}
	lhsVal := i.Mem.Data[lhsIdx]
	i.SP -= 2
	i.Push(lhsVal)
	i.Push(rhsVal)
	return i.pack(2)
}

// concatListSimple appends rhsVal to a LIST whose LINK sits at
// lhsLinkIdx. True O(1): the header's count is rewritten in place, the
// old LINK cell's slot takes the rhs value as the new last payload
// element, and a new LINK is written where the rhs value was, with no
// cells shifted.
func (i *Instance) concatListSimple(lhsLinkIdx int, rhsVal Cell) error {
	headerIdx, n, err := i.listSpan(lhsLinkIdx)
	if err != nil {
		return err
	}
	newHdr, err := EncodeTag(TagList, int32(n+1))
	if err != nil {
		return err
	}
	newLink, err := EncodeTag(TagLink, int32(n+2))
	if err != nil {
		return err
	}
	i.Mem.Data[lhsLinkIdx] = rhsVal
	i.Mem.Data[headerIdx] = newHdr
	i.Mem.Data[lhsLinkIdx+1] = newLink
	return nil
}

// concatSimpleList prepends lhsVal to the LIST at rhsHeaderIdx. O(n):
// the rhs payload is copied up to make room for the new first element.
func (i *Instance) concatSimpleList(lhsIdx, rhsHeaderIdx, rhsN int) error {
	lhsVal := i.Mem.Data[lhsIdx]
	payload := make([]Cell, rhsN)
	copy(payload, i.Mem.Data[rhsHeaderIdx+1:rhsHeaderIdx+1+rhsN])
	i.SP = lhsIdx
	return i.writeList(lhsIdx, []Cell{lhsVal}, payload)
}

// concatListList flattens two LISTs into one, each operand's payload
// (nested structure untouched) copied in turn into a fresh list.
func (i *Instance) concatListList(lhsHeaderIdx, lhsN, rhsHeaderIdx, rhsN int) error {
	lhsPayload := make([]Cell, lhsN)
	copy(lhsPayload, i.Mem.Data[lhsHeaderIdx+1:lhsHeaderIdx+1+lhsN])
	rhsPayload := make([]Cell, rhsN)
	copy(rhsPayload, i.Mem.Data[rhsHeaderIdx+1:rhsHeaderIdx+1+rhsN])
	i.SP = lhsHeaderIdx
	return i.writeList(lhsHeaderIdx, lhsPayload, rhsPayload)
}

// elem pushes a copy of logical element idx of the LIST at TOS, leaving
// the list itself in place below it.
func (i *Instance) elem(idx int) error {
	headerIdx, n, err := i.listSpan(i.SP - 1)
	if err != nil {
		return err
	}
	count, err := countElements(i.Mem.Data, headerIdx+1, n)
	if err != nil {
		return err
	}
	if idx < 0 || idx >= count {
		return errors.Wrapf(ErrOutOfRange, "elem: index %d out of range [0,%d)", idx, count)
	}
	offset, err := elementOffset(i.Mem.Data, headerIdx+1, n, idx)
	if err != nil {
		return err
	}
	return i.pushElementValue(i.Mem.Data, offset)
}

// slot pushes a REF-STACK cell addressing logical element idx of the
// LIST at TOS (its header cell, if that element is itself a nested
// list), leaving the list in place so the reference stays valid.
func (i *Instance) slot(idx int) error {
	headerIdx, n, err := i.listSpan(i.SP - 1)
	if err != nil {
		return err
	}
	count, err := countElements(i.Mem.Data, headerIdx+1, n)
	if err != nil {
		return err
	}
	if idx < 0 || idx >= count {
		return errors.Wrapf(ErrOutOfRange, "slot: index %d out of range [0,%d)", idx, count)
	}
	offset, err := elementOffset(i.Mem.Data, headerIdx+1, n, idx)
	if err != nil {
		return err
	}
	ref, err := EncodeTag(TagRefStack, int32(offset))
	if err != nil {
		return err
	}
	i.Push(ref)
	return nil
}

// segmentFor resolves a REF-tagged cell to the backing cell slice it
// addresses into.
func (i *Instance) segmentFor(tag Tag) ([]Cell, error) {
	switch tag {
	case TagRefStack:
		return i.Mem.Data, nil
	case TagRefRStack:
		return i.Mem.Return, nil
	case TagRefGlobal:
		return i.Mem.Global, nil
	default:
		return nil, errors.Wrap(ErrTypeError, "not a reference")
	}
}

// fetch reads through a REF cell, pushing the value found there. If that
// value is a LIST header, the whole list is materialized (header,
// payload and a freshly synthesized LINK) onto the DATA_STACK: this
// implementation's resolution of spec.md §9's Open Question on Fetch's
// behavior for compound targets.
func (i *Instance) fetch() error {
	refCell := i.Pop()
	tag, payload := DecodeTag(refCell)
	seg, err := i.segmentFor(tag)
	if err != nil {
		return errors.Wrap(err, "fetch")
	}
	idx := int(payload)
	if idx < 0 || idx >= len(seg) {
		return errors.Wrap(ErrSegmentOverflow, "fetch: index out of range")
	}
	v := seg[idx]
	if IsTag(v, TagList) {
		_, n := DecodeTag(v)
		for k := 0; k <= int(n); k++ {
			i.Push(seg[idx+k])
		}
		link, err := EncodeTag(TagLink, n+1)
		if err != nil {
			return err
		}
		i.Push(link)
		return nil
	}
	i.Push(v)
	return nil
}

// store writes a value through a REF cell, rejecting any change in
// shape (simple vs compound, or a differing LIST length) per spec.md
// §4.6.5. A compound store expects the value to be presented as a LIST
// on the DATA_STACK (LINK at TOS); a simple store expects a single cell.
func (i *Instance) store() error {
	refCell := i.Pop()
	tag, payload := DecodeTag(refCell)
	seg, err := i.segmentFor(tag)
	if err != nil {
		return errors.Wrap(err, "store")
	}
	idx := int(payload)
	if idx < 0 || idx >= len(seg) {
		return errors.Wrap(ErrSegmentOverflow, "store: index out of range")
	}
	curTag, curN := DecodeTag(seg[idx])
	curIsList := curTag == TagList

	valueIsList := i.SP > 0 && IsTag(i.Mem.Data[i.SP-1], TagLink)
	if valueIsList {
		headerIdx, n, err := i.listSpan(i.SP - 1)
		if err != nil {
			return err
		}
		if !curIsList || int32(n) != curN {
			return errors.Wrap(ErrShapeMismatch, "store: list length mismatch")
		}
		copy(seg[idx:idx+n+1], i.Mem.Data[headerIdx:headerIdx+n+1])
		i.SP = headerIdx
		return nil
	}
	if curIsList {
		return errors.Wrap(ErrShapeMismatch, "store: expected a list value")
	}
	seg[idx] = i.Pop()
	return nil
}

// gpush spills a LIST from the DATA_STACK to the GLOBAL heap and pushes
// a REF-GLOBAL addressing its new home, per spec.md §4.6.4.
func (i *Instance) gpush() error {
	headerIdx, n, err := i.listSpan(i.SP - 1)
	if err != nil {
		return err
	}
	addr, err := i.Mem.GlobalBumpAlloc(n + 1)
	if err != nil {
		return err
	}
	copy(i.Mem.Global[addr:addr+n+1], i.Mem.Data[headerIdx:headerIdx+n+1])
	i.SP = headerIdx
	ref, err := EncodeTag(TagRefGlobal, int32(addr))
	if err != nil {
		return err
	}
	i.Push(ref)
	return nil
}

// rpush copies a LIST from the DATA_STACK onto the RETURN_STACK (for
// binding into a local slot) and pushes a REF-RSTACK addressing it.
func (i *Instance) rpushList() error {
	headerIdx, n, err := i.listSpan(i.SP - 1)
	if err != nil {
		return err
	}
	if i.RP+n+1 > len(i.Mem.Return) {
		return errors.Wrap(ErrStackOverflow, "rpush: return stack exhausted")
	}
	dest := i.RP
	copy(i.Mem.Return[dest:dest+n+1], i.Mem.Data[headerIdx:headerIdx+n+1])
	i.RP += n + 1
	i.SP = headerIdx
	ref, err := EncodeTag(TagRefRStack, int32(dest))
	if err != nil {
		return err
	}
	i.Push(ref)
	return nil
}

package vm

import "github.com/pkg/errors"

// StringDigest is the backing store for the STRING segment: an interning
// table that de-duplicates string content and hands back small 16-bit
// indices, the payload carried by TagString cells. Modeled on the
// teacher's own string codec (lang/retro.StringCodec) but as an interning
// table rather than a zero-terminated in-place encoding, since Tacit
// addresses strings by digest index rather than by raw memory offset.
type StringDigest struct {
	buf     []byte
	offsets []int // offsets[i] = byte offset in buf where string i starts
	lengths []int
	index   map[string]int
	cap     int // STRING segment capacity in bytes
}

// NewStringDigest allocates a digest with the given STRING segment
// capacity, in bytes.
func NewStringDigest(capacity int) *StringDigest {
	return &StringDigest{
		index: make(map[string]int),
		cap:   capacity,
	}
}

// Intern returns the digest index for s, assigning a fresh one and
// appending to the STRING segment if s has not been seen before.
func (d *StringDigest) Intern(s string) (int, error) {
	if idx, ok := d.index[s]; ok {
		return idx, nil
	}
	if len(d.buf)+len(s) > d.cap {
		return 0, errors.Wrap(ErrSegmentOverflow, "string segment full")
	}
	idx := len(d.offsets)
	if idx > 65535 {
		return 0, errors.Wrap(ErrOutOfRange, "string digest exhausted (too many distinct strings)")
	}
	d.offsets = append(d.offsets, len(d.buf))
	d.lengths = append(d.lengths, len(s))
	d.buf = append(d.buf, s...)
	d.index[s] = idx
	return idx, nil
}

// Lookup returns the string stored at the given digest index.
func (d *StringDigest) Lookup(idx int) (string, error) {
	if idx < 0 || idx >= len(d.offsets) {
		return "", errors.Wrapf(ErrOutOfRange, "string index %d out of range", idx)
	}
	off, n := d.offsets[idx], d.lengths[idx]
	return string(d.buf[off : off+n]), nil
}

// Len reports how many distinct strings are interned.
func (d *StringDigest) Len() int { return len(d.offsets) }

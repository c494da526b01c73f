package vm

import "github.com/pkg/errors"

// Default segment sizes, chosen generously for a teaching-scale VM; all
// are overridable via Option at New.
const (
	defaultCodeSize   = 64 * 1024 // bytes
	defaultDataSize   = 4096      // cells
	defaultReturnSize = 4096      // cells
	defaultGlobalSize = 16384     // cells
)

// Memory holds the VM's segmented address space: a byte-addressed CODE
// segment, the DATA and RETURN cell stacks, and a cell-addressed GLOBAL
// heap. The STRING segment lives in StringDigest (digest.go), which owns
// its own byte buffer and indexing scheme.
//
// All segments are fixed-size, pre-allocated slices, mirroring the
// teacher's own fixed memory image (vm/mem.go in db47h/ngaro): growth
// beyond configured capacity is a hard error (SegmentOverflow), not a
// silent reallocation.
type Memory struct {
	Code   []byte
	Data   []Cell
	Return []Cell
	Global []Cell
	gp     int // GLOBAL bump-allocation pointer, in cells
}

// NewMemory allocates a Memory with the given segment capacities.
func NewMemory(codeSize, dataSize, returnSize, globalSize int) *Memory {
	return &Memory{
		Code:   make([]byte, 0, codeSize),
		Data:   make([]Cell, dataSize),
		Return: make([]Cell, returnSize),
		Global: make([]Cell, globalSize),
	}
}

// EmitByte appends a single byte to the CODE segment, returning its
// offset. It is the compiler's primitive; EmitUint16 and EmitUint32 are
// built on it.
func (m *Memory) EmitByte(b byte) (int, error) {
	if len(m.Code) >= cap(m.Code) {
		return 0, errors.Wrap(ErrSegmentOverflow, "code segment full")
	}
	off := len(m.Code)
	m.Code = append(m.Code, b)
	return off, nil
}

// EmitUint16 appends a little-endian uint16 to the CODE segment.
func (m *Memory) EmitUint16(v uint16) (int, error) {
	off, err := m.EmitByte(byte(v))
	if err != nil {
		return 0, err
	}
	if _, err := m.EmitByte(byte(v >> 8)); err != nil {
		return 0, err
	}
	return off, nil
}

// EmitUint32 appends a little-endian uint32 to the CODE segment.
func (m *Memory) EmitUint32(v uint32) (int, error) {
	off, err := m.EmitByte(byte(v))
	if err != nil {
		return 0, err
	}
	for shift := 8; shift < 32; shift += 8 {
		if _, err := m.EmitByte(byte(v >> uint(shift))); err != nil {
			return 0, err
		}
	}
	return off, nil
}

// PatchUint16 overwrites a previously emitted uint16 at off, used by the
// compiler to back-patch forward branch targets once they are known.
func (m *Memory) PatchUint16(off int, v uint16) error {
	if off < 0 || off+2 > len(m.Code) {
		return errors.Wrap(ErrSegmentOverflow, "patch16: offset out of range")
	}
	m.Code[off] = byte(v)
	m.Code[off+1] = byte(v >> 8)
	return nil
}

func (m *Memory) readUint16(off int) uint16 {
	return uint16(m.Code[off]) | uint16(m.Code[off+1])<<8
}

func (m *Memory) readUint32(off int) uint32 {
	return uint32(m.Code[off]) | uint32(m.Code[off+1])<<8 |
		uint32(m.Code[off+2])<<16 | uint32(m.Code[off+3])<<24
}

// GlobalBumpAlloc reserves n contiguous cells at the top of the GLOBAL
// heap and returns the index of the first one, per spec.md §4.6.4's
// "ensure GLOBAL segment has capacity" step.
func (m *Memory) GlobalBumpAlloc(n int) (int, error) {
	if m.gp+n > len(m.Global) {
		return 0, errors.Wrap(ErrSegmentOverflow, "global heap exhausted")
	}
	addr := m.gp
	m.gp += n
	return addr, nil
}

// GlobalUsed reports how many cells of the GLOBAL heap are in use.
func (m *Memory) GlobalUsed() int { return m.gp }

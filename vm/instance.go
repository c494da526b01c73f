package vm

import "github.com/pkg/errors"

// Instance is one running Tacit VM: its memory segments plus the four
// registers the engine steps (IP, SP, RP, BP) and an instruction counter
// used for diagnostics. Constructed with New and a set of Options,
// mirroring the teacher's own functional-options constructor
// (vm.NewInstance in db47h/ngaro).
type Instance struct {
	Mem    *Memory
	Digest *StringDigest

	IP int // byte offset into Mem.Code
	SP int // next free DATA_STACK cell
	RP int // next free RETURN_STACK cell
	BP int // base pointer of the active call frame (0 = no frame)

	instructions int64
}

// Option configures an Instance at construction time.
type Option func(*Instance) error

// DataStackSize overrides the DATA_STACK capacity, in cells.
func DataStackSize(n int) Option {
	return func(i *Instance) error {
		if n <= 0 {
			return errors.Errorf("vm: data stack size must be positive, got %d", n)
		}
		i.Mem.Data = make([]Cell, n)
		return nil
	}
}

// ReturnStackSize overrides the RETURN_STACK capacity, in cells.
func ReturnStackSize(n int) Option {
	return func(i *Instance) error {
		if n <= 0 {
			return errors.Errorf("vm: return stack size must be positive, got %d", n)
		}
		i.Mem.Return = make([]Cell, n)
		return nil
	}
}

// GlobalSize overrides the GLOBAL heap capacity, in cells.
func GlobalSize(n int) Option {
	return func(i *Instance) error {
		if n <= 0 {
			return errors.Errorf("vm: global size must be positive, got %d", n)
		}
		i.Mem.Global = make([]Cell, n)
		i.Mem.gp = 0
		return nil
	}
}

// CodeSize overrides the CODE segment capacity, in bytes.
func CodeSize(n int) Option {
	return func(i *Instance) error {
		if n <= 0 {
			return errors.Errorf("vm: code size must be positive, got %d", n)
		}
		i.Mem.Code = make([]byte, 0, n)
		return nil
	}
}

// StringSegmentSize overrides the STRING segment capacity, in bytes.
func StringSegmentSize(n int) Option {
	return func(i *Instance) error {
		if n <= 0 {
			return errors.Errorf("vm: string segment size must be positive, got %d", n)
		}
		i.Digest = NewStringDigest(n)
		return nil
	}
}

// New constructs an Instance with default segment sizes, applying opts in
// order.
func New(opts ...Option) (*Instance, error) {
	i := &Instance{
		Mem:    NewMemory(defaultCodeSize, defaultDataSize, defaultReturnSize, defaultGlobalSize),
		Digest: NewStringDigest(defaultCodeSize),
	}
	for _, opt := range opts {
		if err := opt(i); err != nil {
			return nil, err
		}
	}
	return i, nil
}

// Push pushes v onto the DATA_STACK.
func (i *Instance) Push(v Cell) {
	if i.SP >= len(i.Mem.Data) {
		panic(ErrStackOverflow)
	}
	i.Mem.Data[i.SP] = v
	i.SP++
}

// Pop pops and returns the top of the DATA_STACK.
func (i *Instance) Pop() Cell {
	if i.SP <= 0 {
		panic(ErrStackUnderflow)
	}
	i.SP--
	return i.Mem.Data[i.SP]
}

// Top returns the top of the DATA_STACK without popping it.
func (i *Instance) Top() Cell {
	if i.SP <= 0 {
		panic(ErrStackUnderflow)
	}
	return i.Mem.Data[i.SP-1]
}

// Depth reports the current DATA_STACK depth.
func (i *Instance) Depth() int { return i.SP }

// Rpush pushes v onto the RETURN_STACK.
func (i *Instance) Rpush(v Cell) {
	if i.RP >= len(i.Mem.Return) {
		panic(ErrStackOverflow)
	}
	i.Mem.Return[i.RP] = v
	i.RP++
}

// Rpop pops and returns the top of the RETURN_STACK.
func (i *Instance) Rpop() Cell {
	if i.RP <= 0 {
		panic(ErrStackUnderflow)
	}
	i.RP--
	return i.Mem.Return[i.RP]
}

// RDepth reports the current RETURN_STACK depth.
func (i *Instance) RDepth() int { return i.RP }

// Instructions reports how many opcodes this instance has executed.
func (i *Instance) Instructions() int64 { return i.instructions }

// StackSlice returns a read-only view of the live DATA_STACK, bottom to
// top, for diagnostics and the cmd/tacit CLI's final-stack printout.
func (i *Instance) StackSlice() []Cell {
	return i.Mem.Data[:i.SP]
}

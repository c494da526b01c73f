package vm

import (
	"math"

	"github.com/pkg/errors"
)

// Run executes bytecode starting at the Instance's current IP until an
// Op.Abort is reached (clean termination) or a fault occurs. Like the
// teacher's own core.go Run loop, per-opcode cell accesses trust slice
// bounds and rely on a single recover() here to turn an out-of-bounds
// index (StackOverflow/StackUnderflow) into a regular error rather than
// checking bounds at every single push/pop.
func (i *Instance) Run() (err error) {
	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(error); ok {
				err = errors.Wrapf(e, "tacit: fault @ip=%d sp=%d rp=%d bp=%d", i.IP, i.SP, i.RP, i.BP)
				return
			}
			panic(r)
		}
	}()
	for {
		if i.IP < 0 || i.IP >= len(i.Mem.Code) {
			return errors.Errorf("tacit: instruction pointer %d out of code segment", i.IP)
		}
		op := Op(i.Mem.Code[i.IP])
		if op >= opCount {
			return errors.Errorf("tacit: byte %d @ip=%d is not a valid opcode", op, i.IP)
		}
		i.IP++
		if op == OpAbort {
			return nil
		}
		if err := i.step(op); err != nil {
			return err
		}
		i.instructions++
	}
}

// step executes a single opcode against the Instance, advancing IP past
// any operand bytes it consumes from the CODE segment. It is shared
// between the main fetch loop and Eval's BUILTIN dispatch path, since a
// BUILTIN cell names exactly the same opcode the fetch loop would run.
func (i *Instance) step(op Op) error {
	switch op {
	case OpDup:
		i.Push(i.Mem.Data[i.SP-1])
	case OpDrop:
		i.Pop()
	case OpSwap:
		i.Mem.Data[i.SP-1], i.Mem.Data[i.SP-2] = i.Mem.Data[i.SP-2], i.Mem.Data[i.SP-1]
	case OpOver:
		i.Push(i.Mem.Data[i.SP-2])
	case OpRot:
		a, b, c := i.Mem.Data[i.SP-3], i.Mem.Data[i.SP-2], i.Mem.Data[i.SP-1]
		i.Mem.Data[i.SP-3], i.Mem.Data[i.SP-2], i.Mem.Data[i.SP-1] = b, c, a

	case OpLiteralNumber:
		bits := i.Mem.readUint32(i.IP)
		i.IP += 4
		i.Push(Cell(bits))
	case OpLiteralString:
		idx := i.Mem.readUint16(i.IP)
		i.IP += 2
		c, err := EncodeTag(TagString, int32(idx))
		if err != nil {
			return err
		}
		i.Push(c)
	case OpLiteralCode:
		addr := i.Mem.readUint16(i.IP)
		i.IP += 2
		c, err := EncodeTag(TagCode, int32(addr))
		if err != nil {
			return err
		}
		i.Push(c)

	case OpAdd, OpSub, OpMul, OpDiv, OpMod, OpEq, OpLt, OpGt, OpLe, OpGe, OpAnd, OpOr:
		rhs := i.Pop()
		lhs := i.Pop()
		res, err := binaryOp(op, lhs, rhs)
		if err != nil {
			return err
		}
		i.Push(res)
	case OpNeg:
		i.Push(EncodeNumber(-AsFloat(i.Pop())))
	case OpAbs:
		f := AsFloat(i.Pop())
		if f < 0 {
			f = -f
		}
		i.Push(EncodeNumber(f))
	case OpNot:
		i.Push(boolCell(!truthy(i.Pop())))

	case OpBranch:
		addr := i.Mem.readUint16(i.IP)
		i.IP = int(addr)
	case OpBranchZero:
		addr := i.Mem.readUint16(i.IP)
		i.IP += 2
		if !truthy(i.Pop()) {
			i.IP = int(addr)
		}
	case OpBranchCall:
		addr := i.Mem.readUint16(i.IP)
		ret := i.IP + 2
		c, err := EncodeTag(TagCode, int32(ret))
		if err != nil {
			return err
		}
		i.Push(c)
		i.IP = int(addr)
	case OpCall:
		addr := i.Mem.readUint16(i.IP)
		i.call(int(addr), i.IP+2)
	case OpExit:
		return i.doExit()
	case OpEval:
		return i.eval()
	case OpMain:
		return i.doMain()

	case OpReserve:
		n := int(i.Mem.Code[i.IP])
		i.IP++
		if i.RP+n > len(i.Mem.Return) {
			return errors.Wrap(ErrStackOverflow, "reserve")
		}
		i.RP += n
	case OpLocalGet:
		slot := int(i.Mem.Code[i.IP])
		i.IP++
		i.Push(i.Mem.Return[i.BP+1+slot])
	case OpLocalSet:
		slot := int(i.Mem.Code[i.IP])
		i.IP++
		i.Mem.Return[i.BP+1+slot] = i.Pop()
	case OpLocalAddr:
		slot := int(i.Mem.Code[i.IP])
		i.IP++
		ref, err := EncodeTag(TagRefRStack, int32(i.BP+1+slot))
		if err != nil {
			return err
		}
		i.Push(ref)

	case OpMark:
		i.Rpush(Cell(uint32(int32(i.SP))))
	case OpPack:
		n := int(i.Mem.readUint16(i.IP))
		i.IP += 2
		return i.pack(n)
	case OpPackToMark:
		mark := int(int32(i.Rpop()))
		return i.packToBoundary(mark)
	case OpUnpack:
		return i.unpack()
	case OpLength:
		return i.length()
	case OpHead:
		return i.head()
	case OpTail:
		return i.tail()
	case OpConcat:
		return i.concat()
	case OpElem:
		idx := int(i.Mem.readUint16(i.IP))
		i.IP += 2
		return i.elem(idx)
	case OpSlot:
		idx := int(i.Mem.readUint16(i.IP))
		i.IP += 2
		return i.slot(idx)
	case OpFetch:
		return i.fetch()
	case OpStore:
		return i.store()
	case OpGpush:
		return i.gpush()
	case OpRpush:
		return i.rpushList()

	default:
		return errors.Errorf("tacit: unimplemented opcode %s", op)
	}
	return nil
}

func binaryOp(op Op, lhs, rhs Cell) (Cell, error) {
	a, b := AsFloat(lhs), AsFloat(rhs)
	switch op {
	case OpAdd:
		return EncodeNumber(a + b), nil
	case OpSub:
		return EncodeNumber(a - b), nil
	case OpMul:
		return EncodeNumber(a * b), nil
	case OpDiv:
		if b == 0 {
			return 0, errors.Wrap(ErrOutOfRange, "division by zero")
		}
		return EncodeNumber(a / b), nil
	case OpMod:
		if b == 0 {
			return 0, errors.Wrap(ErrOutOfRange, "modulo by zero")
		}
		return EncodeNumber(float32(math.Mod(float64(a), float64(b)))), nil
	case OpEq:
		return boolCell(a == b), nil
	case OpLt:
		return boolCell(a < b), nil
	case OpGt:
		return boolCell(a > b), nil
	case OpLe:
		return boolCell(a <= b), nil
	case OpGe:
		return boolCell(a >= b), nil
	case OpAnd:
		return boolCell(a != 0 && b != 0), nil
	case OpOr:
		return boolCell(a != 0 || b != 0), nil
	default:
		return 0, errors.Errorf("binaryOp: unsupported opcode %s", op)
	}
}

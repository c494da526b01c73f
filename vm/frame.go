package vm

import "github.com/pkg/errors"

// call pushes a new 3-cell frame (return address, a reserved slot for a
// future Main suspension point, and the caller's BP) and transfers
// control to addr. Op.Call and Eval on a CODE cell both route through
// it; a code block pushed by Op.BranchCall is entered the same way, by a
// later Eval of the CODE cell BranchCall pushed. Per spec.md §3.5,
// the reserved slot starts out NIL so an Eval against this frame's BP
// before it ever executes Op.Main can be reported as
// ErrUninitializedResume rather than silently jumping to address 0.
func (i *Instance) call(addr, ret int) {
	retCell, _ := EncodeTag(TagCode, int32(ret))
	i.Rpush(retCell)
	i.Rpush(Nil)
	bpCell, _ := EncodeTag(TagRefRStack, int32(i.BP))
	i.Rpush(bpCell)
	i.BP = i.RP - 1
	i.IP = addr
}

// doExit implements the ordinary return protocol (spec.md §4.5.2): every
// cell a descendant call (ordinary or suspended) left on the
// RETURN_STACK above this frame's own locals is reclaimed in one linear
// pass, then the frame's own three metadata cells are read and
// discarded explicitly. The cleanup loop's bound is RP > BP+1, not
// RP > BP: indices BP-2, BP-1 and BP are this frame's own metadata and
// must survive the generic pop so they can still be read afterward.
//
// A frame whose reserved slot is no longer NIL has executed Op.Main and
// is running its main phase after an Eval: its Exit restores BP and IP
// from the frame's metadata but leaves RP untouched, so the frame stays
// suspended on the RETURN_STACK until an ancestor's ordinary Exit
// reclaims it.
func (i *Instance) doExit() error {
	if i.BP < 2 {
		return errors.Wrap(ErrCorruptFrame, "exit: no active call frame")
	}
	resumed := !IsNil(i.Mem.Return[i.BP-1])
	if !resumed {
		for i.RP > i.BP+1 {
			i.RP--
		}
	}
	oldBPCell := i.Mem.Return[i.BP]
	retCell := i.Mem.Return[i.BP-2]
	tag, oldBP := DecodeTag(oldBPCell)
	if tag != TagRefRStack {
		return errors.Wrap(ErrCorruptFrame, "exit: corrupt caller-BP cell")
	}
	rtag, raddr := DecodeTag(retCell)
	if rtag != TagCode {
		return errors.Wrap(ErrCorruptFrame, "exit: corrupt return address")
	}
	if !resumed {
		i.RP = i.BP - 2
	}
	i.BP = int(oldBP)
	i.IP = int(raddr)
	return nil
}

// doMain implements the suspend half of the resumable-function protocol
// (spec.md §4.5.3): the active frame's reserved slot is filled in with
// the current IP (the point execution resumes from), control returns to
// the caller exactly as Exit would, but — critically — RP is left
// untouched. The frame's storage (its locals, its metadata) stays live
// on the RETURN_STACK; only an ancestor's ordinary Exit will eventually
// reclaim it. The caller receives a resume token: a REF-RSTACK cell
// whose payload is this frame's own BP, reusing the REF-RSTACK tag
// rather than inventing a dedicated one, since a resume token literally
// is "an index into the return stack".
func (i *Instance) doMain() error {
	if i.BP < 2 {
		return errors.Wrap(ErrCorruptFrame, "main: no active call frame")
	}
	contCell, err := EncodeTag(TagCode, int32(i.IP))
	if err != nil {
		return err
	}
	oldBPCell := i.Mem.Return[i.BP]
	retCell := i.Mem.Return[i.BP-2]
	tag, oldBP := DecodeTag(oldBPCell)
	if tag != TagRefRStack {
		return errors.Wrap(ErrCorruptFrame, "main: corrupt caller-BP cell")
	}
	rtag, raddr := DecodeTag(retCell)
	if rtag != TagCode {
		return errors.Wrap(ErrCorruptFrame, "main: corrupt return address")
	}
	handle, err := EncodeTag(TagRefRStack, int32(i.BP))
	if err != nil {
		return err
	}
	i.Mem.Return[i.BP-1] = contCell
	i.BP = int(oldBP)
	i.IP = int(raddr)
	i.Push(handle)
	return nil
}

// evalResume re-enters a suspended frame identified by a resume token
// (savedBP, the frame's own BP). The frame's metadata cells are
// rewritten in place so that its caller chain now points at whoever
// called Eval, and execution resumes at the address the frame's own
// Op.Main recorded.
func (i *Instance) evalResume(savedBP int) error {
	if savedBP == i.BP {
		return ErrSelfReentry
	}
	if savedBP < 2 || savedBP-1 >= len(i.Mem.Return) {
		return errors.Wrap(ErrCorruptFrame, "eval: invalid resume token")
	}
	slot := i.Mem.Return[savedBP-1]
	if IsNil(slot) {
		return ErrUninitializedResume
	}
	stag, mainAddr := DecodeTag(slot)
	if stag != TagCode {
		return errors.Wrap(ErrCorruptFrame, "eval: corrupt resume token")
	}
	bpCell, err := EncodeTag(TagRefRStack, int32(i.BP))
	if err != nil {
		return err
	}
	retCell, err := EncodeTag(TagCode, int32(i.IP))
	if err != nil {
		return err
	}
	i.Mem.Return[savedBP] = bpCell
	i.Mem.Return[savedBP-2] = retCell
	i.BP = savedBP
	i.IP = int(mainAddr)
	return nil
}

// evalCapsule evaluates a LIST whose last payload element is callable
// (a BUILTIN or CODE cell): its other elements are pushed as arguments,
// in order, and the callable is dispatched.
func (i *Instance) evalCapsule() error {
	headerIdx, n, err := i.listSpan(i.SP - 1)
	if err != nil {
		return err
	}
	if n == 0 {
		return errors.Wrap(ErrTypeError, "eval: empty list is not callable")
	}
	callable := i.Mem.Data[headerIdx+n]
	args := make([]Cell, n-1)
	copy(args, i.Mem.Data[headerIdx+1:headerIdx+n])
	i.SP = headerIdx
	for _, v := range args {
		i.Push(v)
	}
	i.Push(callable)
	return i.eval()
}

// eval dispatches the callable cell at TOS: a BUILTIN runs inline via
// step, a CODE cell makes an ordinary call, a REF-RSTACK is treated as a
// resume token, and a LIST (LINK at TOS) is a capsule evaluated per
// evalCapsule.
func (i *Instance) eval() error {
	if i.SP == 0 {
		return errors.Wrap(ErrStackUnderflow, "eval")
	}
	top := i.Mem.Data[i.SP-1]
	tag, payload := DecodeTag(top)
	switch tag {
	case TagBuiltin:
		i.SP--
		return i.step(Op(payload))
	case TagCode:
		i.SP--
		i.call(int(payload), i.IP)
		return nil
	case TagRefRStack:
		i.SP--
		return i.evalResume(int(payload))
	case TagLink:
		return i.evalCapsule()
	default:
		return errors.Wrap(ErrTypeError, "eval: value is not callable")
	}
}

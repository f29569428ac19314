package codec

import "fmt"

// opKind selects the post-copy fixup of one plan op.
type opKind uint8

const (
	opCopy opKind = iota // raw bit copy
	opBool               // one-byte bool normalization
	opInt                // per-element sign extension on decode
)

// planOp is one straight-line step: copy bits bits between wire
// position (implicit, running) and the value storage at off.
type planOp struct {
	kind    opKind
	bits    int // wire bits moved by this op
	off     int // storage byte offset
	storage int // storage bytes touched by this op

	// opInt bookkeeping: ops are coalesced across array elements, so a
	// single op may cover count elements of elemBits wire bits each.
	elemBits    int
	elemStorage int
	count       int
}

// Plan is the precomputed straight-line lowering of one message: a flat
// op list executed without per-field dispatch or recursion. Plans and
// the interpreter produce identical wire bytes.
//
// Planning refuses extensible entities: a plan fixes every wire offset
// at build time, which is exactly what the extensibility protocol's
// runtime length negotiation contradicts.
type Plan struct {
	desc  *Descriptor
	ops   []planOp
	nbits int
}

// NewPlan flattens the message descriptor into a plan. It fails if the
// message, or anything reachable from it, is extensible.
func NewPlan(d *Descriptor) (*Plan, error) {
	if r := d.resolve(); r.Kind != KindMessage {
		return nil, fmt.Errorf("codec: plan root must be a message, got %s", r.Kind)
	}
	p := &Plan{desc: d.resolve()}
	if err := p.flatten(p.desc, 0, ""); err != nil {
		return nil, err
	}
	p.nbits = p.desc.nbits
	return p, nil
}

// Descriptor returns the plan's message descriptor.
func (p *Plan) Descriptor() *Descriptor { return p.desc }

// Nbits returns the message's wire width.
func (p *Plan) Nbits() int { return p.nbits }

func (p *Plan) flatten(d *Descriptor, off int, path string) error {
	switch d.Kind {
	case KindBool:
		p.ops = append(p.ops, planOp{kind: opBool, bits: 1, off: off, storage: 1})
	case KindUint, KindEnum, KindByte:
		p.ops = append(p.ops, planOp{kind: opCopy, bits: d.Bits, off: off, storage: d.storage})
	case KindInt:
		p.ops = append(p.ops, planOp{
			kind: opInt, bits: d.Bits, off: off, storage: d.storage,
			elemBits: d.Bits, elemStorage: d.storage, count: 1,
		})
	case KindAlias:
		return p.flatten(d.Target, off, path)
	case KindArray:
		if d.Extensible {
			return fmt.Errorf("codec: extensible array reachable at %s; plans do not support extensibility", pathOr(path))
		}
		return p.flattenArray(d, off, path)
	case KindMessage:
		if d.Extensible {
			return fmt.Errorf("codec: extensible message %s reachable at %s; plans do not support extensibility",
				d.Name, pathOr(path))
		}
		for i := range d.Fields {
			f := &d.Fields[i]
			if err := p.flatten(f.Type, off+f.storageOff, path+"/"+f.Name); err != nil {
				return err
			}
		}
	}
	return nil
}

func (p *Plan) flattenArray(d *Descriptor, off int, path string) error {
	e := d.Elem.resolve()

	// Standard-width integer elements coalesce into one op over the
	// contiguous element storage.
	switch e.Kind {
	case KindByte, KindUint, KindEnum:
		switch e.Bits {
		case 8, 16, 32, 64:
			p.ops = append(p.ops, planOp{
				kind: opCopy, bits: d.Cap * e.Bits, off: off, storage: d.storage,
			})
			return nil
		}
	case KindInt:
		switch e.Bits {
		case 8, 16, 32, 64:
			p.ops = append(p.ops, planOp{
				kind: opCopy, bits: d.Cap * e.Bits, off: off, storage: d.storage,
			})
			return nil
		}
		p.ops = append(p.ops, planOp{
			kind: opInt, bits: d.Cap * e.Bits, off: off, storage: d.storage,
			elemBits: e.Bits, elemStorage: e.storage, count: d.Cap,
		})
		return nil
	}

	for k := 0; k < d.Cap; k++ {
		if err := p.flatten(d.Elem, off+k*d.Elem.storage, fmt.Sprintf("%s[%d]", path, k)); err != nil {
			return err
		}
	}
	return nil
}

func pathOr(path string) string {
	if path == "" {
		return "the root"
	}
	return path
}

// Encode runs the plan over the value into out. The same caller
// contract as Encode applies: out pre-zeroed, at least ByteSize bytes.
func (p *Plan) Encode(v *Value, out []byte) {
	data := v.data
	i := 0
	for idx := range p.ops {
		op := &p.ops[idx]
		switch op.kind {
		case opBool:
			if data[op.off] != 0 {
				one := [1]byte{1}
				copyBits(1, out, one[:], i, 0)
			}
		case opCopy:
			copyBits(op.bits, out, data[op.off:op.off+op.storage], i, 0)
		case opInt:
			// Narrow Int elements are padded to their storage width in
			// memory, so each element is copied from its own slot.
			for k := 0; k < op.count; k++ {
				elem := data[op.off+k*op.elemStorage : op.off+(k+1)*op.elemStorage]
				copyBits(op.elemBits, out, elem, i+k*op.elemBits, 0)
			}
		}
		i += op.bits
	}
}

// Decode runs the plan over in into the pre-zeroed value.
func (p *Plan) Decode(v *Value, in []byte) {
	data := v.data
	i := 0
	for idx := range p.ops {
		op := &p.ops[idx]
		block := data[op.off : op.off+op.storage]
		switch op.kind {
		case opBool:
			copyBits(1, block, in, 0, i)
		case opCopy:
			copyBits(op.bits, block, in, 0, i)
		case opInt:
			// Int elements decode one at a time so each lands at its
			// own storage slot before sign extension.
			for k := 0; k < op.count; k++ {
				elem := block[k*op.elemStorage : (k+1)*op.elemStorage]
				copyBits(op.elemBits, elem, in, 0, i+k*op.elemBits)
				signExtend(op.elemBits, elem)
			}
		}
		i += op.bits
	}
}

package codec

import (
	"encoding/binary"
	"fmt"
)

// context carries the state of one encode or decode call: the
// direction, the wire buffer and the running bit cursor into it. It is
// threaded explicitly through the traversal; the codec keeps no global
// state.
type context struct {
	isEncode bool
	i        int // bit cursor into s
	s        []byte
}

// Encode serializes the message value into out. The descriptor must be
// a message; len(out) must be at least v.Descriptor().ByteSize() and
// out must be pre-zeroed: a false bool deposits no bit at all, so its
// wire position keeps whatever the buffer already held there.
func Encode(v *Value, out []byte) {
	d := v.desc.resolve()
	if d.Kind != KindMessage {
		panic(fmt.Sprintf("codec: Encode on %s value", d.Kind))
	}
	ctx := &context{isEncode: true, s: out}
	processMessage(ctx, d, v.data)
}

// Decode deserializes in into the message value. len(in) must be at
// least the declared byte size and the value must be pre-zeroed (use
// NewValue or Reset): sub-byte fields are deposited with bitwise OR.
func Decode(v *Value, in []byte) {
	d := v.desc.resolve()
	if d.Kind != KindMessage {
		panic(fmt.Sprintf("codec: Decode on %s value", d.Kind))
	}
	ctx := &context{isEncode: false, s: in}
	processMessage(ctx, d, v.data)
}

// Encode is a convenience method form of the package function.
func (v *Value) Encode(out []byte) { Encode(v, out) }

// Decode is a convenience method form of the package function.
func (v *Value) Decode(in []byte) { Decode(v, in) }

// process copies one value of type d between its storage block and the
// wire buffer, advancing the bit cursor by exactly d.Nbits() on encode.
// On decode the cursor advances d.Nbits() for non-extensible types; an
// extensible message or array instead leaves it just past the payload
// its prefix announces, which may differ from this side's schema.
func process(ctx *context, d *Descriptor, data []byte) {
	switch d.Kind {
	case KindBool:
		processBool(ctx, data)
	case KindUint, KindEnum, KindByte:
		processUint(ctx, d.Bits, d.storage, data)
	case KindInt:
		processInt(ctx, d.Bits, d.storage, data)
	case KindAlias:
		process(ctx, d.Target, data)
	case KindArray:
		processArray(ctx, d, data)
	case KindMessage:
		processMessage(ctx, d, data)
	}
}

// processBool converts between the one-byte storage and the single wire
// bit: any nonzero storage byte encodes as 1; the decoded bit lands as
// 0 or 1.
func processBool(ctx *context, data []byte) {
	if ctx.isEncode {
		if data[0] != 0 {
			one := [1]byte{1}
			copyBits(1, ctx.s, one[:], ctx.i, 0)
		}
	} else {
		copyBits(1, data, ctx.s, 0, ctx.i)
	}
	ctx.i++
}

func processUint(ctx *context, nbits, storage int, data []byte) {
	if ctx.isEncode {
		copyBits(nbits, ctx.s, data[:storage], ctx.i, 0)
	} else {
		copyBits(nbits, data[:storage], ctx.s, 0, ctx.i)
	}
	ctx.i += nbits
}

func processInt(ctx *context, nbits, storage int, data []byte) {
	processUint(ctx, nbits, storage, data)
	if !ctx.isEncode {
		signExtend(nbits, data[:storage])
	}
}

// signExtend widens an n-bit two's-complement value in place to the
// full storage width. A no-op when n already is the storage width.
func signExtend(nbits int, data []byte) {
	storage := len(data) * 8
	if nbits == storage {
		return
	}
	x := loadLE(data)
	if x&(1<<uint(nbits-1)) != 0 {
		x |= ^uint64(0) << uint(nbits)
	}
	storeLE(data, x)
}

func processArray(ctx *context, d *Descriptor, data []byte) {
	if !d.Extensible {
		if fastArrayCopy(ctx, d, data) {
			return
		}
		es := d.Elem.storage
		for k := 0; k < d.Cap; k++ {
			process(ctx, d.Elem, data[k*es:(k+1)*es])
		}
		return
	}

	elemBits := d.Elem.Nbits()
	if ctx.isEncode {
		writePrefix(ctx, uint16(d.Cap))
		es := d.Elem.storage
		for k := 0; k < d.Cap; k++ {
			process(ctx, d.Elem, data[k*es:(k+1)*es])
		}
		return
	}

	// Decode: the prefix carries the producer's element count. Process
	// up to the local capacity, then land the cursor exactly past the
	// producer's payload so following siblings stay aligned.
	ahead := int(readPrefix(ctx))
	i0 := ctx.i
	n := d.Cap
	if ahead < n {
		n = ahead
	}
	es := d.Elem.storage
	for k := 0; k < n; k++ {
		process(ctx, d.Elem, data[k*es:(k+1)*es])
	}
	ctx.i = i0 + ahead*elemBits
}

// fastArrayCopy treats an array of standard-width integer elements as
// one contiguous copy, relying on the packed element storage. Only
// observable through performance; the wire bytes are identical to the
// element loop.
func fastArrayCopy(ctx *context, d *Descriptor, data []byte) bool {
	e := d.Elem.resolve()
	switch e.Kind {
	case KindByte, KindUint, KindInt, KindEnum:
	default:
		return false
	}
	switch e.Bits {
	case 8, 16, 32, 64:
	default:
		return false
	}
	// A standard wire width equals its storage width, so decoded Int
	// elements are already fully sign-extended.
	total := d.Cap * e.Bits
	if ctx.isEncode {
		copyBits(total, ctx.s, data, ctx.i, 0)
	} else {
		copyBits(total, data, ctx.s, 0, ctx.i)
	}
	ctx.i += total
	return true
}

func processMessage(ctx *context, d *Descriptor, data []byte) {
	if !d.Extensible {
		for i := range d.Fields {
			f := &d.Fields[i]
			process(ctx, f.Type, data[f.storageOff:f.storageOff+f.Type.storage])
		}
		return
	}

	if ctx.isEncode {
		writePrefix(ctx, uint16(d.nbits-16))
		for i := range d.Fields {
			f := &d.Fields[i]
			process(ctx, f.Type, data[f.storageOff:f.storageOff+f.Type.storage])
		}
		return
	}

	// Decode: the prefix carries the producer's payload bit count.
	// Stop at whichever runs out first, the local field list or the
	// producer's payload, then skip to the payload end.
	ahead := int(readPrefix(ctx))
	i0 := ctx.i
	end := i0 + ahead
	for i := range d.Fields {
		if ctx.i >= end {
			break
		}
		f := &d.Fields[i]
		process(ctx, f.Type, data[f.storageOff:f.storageOff+f.Type.storage])
	}
	if ctx.i < end {
		ctx.i = end
	}
}

// writePrefix deposits a 16-bit little-endian extensibility prefix at
// the cursor.
func writePrefix(ctx *context, v uint16) {
	var tmp [2]byte
	binary.LittleEndian.PutUint16(tmp[:], v)
	copyBits(16, ctx.s, tmp[:], ctx.i, 0)
	ctx.i += 16
}

// readPrefix reads a 16-bit little-endian extensibility prefix at the
// cursor.
func readPrefix(ctx *context) uint16 {
	var tmp [2]byte
	copyBits(16, tmp[:], ctx.s, 0, ctx.i)
	ctx.i += 16
	return binary.LittleEndian.Uint16(tmp[:])
}

// copyBits copies n bits from bit position si of src to bit position di
// of dst. Positions are global bit indices into the byte slices, bit 0
// of a byte being its least significant bit.
//
// When the destination cursor is byte-aligned, whole 8/16/32-bit chunks
// are moved per iteration; the wide paths are gated on buffer headroom
// so they never read or write past either slice. Partial-byte landings
// clear their landing slot and OR the bits in, which is why encode
// buffers and decode targets must start zeroed.
func copyBits(n int, dst, src []byte, di, si int) {
	for n > 0 {
		db, dm := di>>3, di&7
		sb, sm := si>>3, si&7
		var c int
		switch {
		case dm == 0 && n+sm >= 32 && sb+4 <= len(src) && db+4 <= len(dst):
			v := binary.LittleEndian.Uint32(src[sb:]) >> uint(sm)
			binary.LittleEndian.PutUint32(dst[db:], v)
			c = 32 - sm
		case dm == 0 && n+sm >= 16 && sb+2 <= len(src) && db+2 <= len(dst):
			v := binary.LittleEndian.Uint16(src[sb:]) >> uint(sm)
			binary.LittleEndian.PutUint16(dst[db:], v)
			c = 16 - sm
		case dm == 0 && n+sm >= 8:
			dst[db] = src[sb] >> uint(sm)
			c = 8 - sm
		case dm == 0:
			// Tail shorter than the rest of the source byte.
			c = min(8-sm, n)
			mask := byte(0xFF) << uint(c)
			dst[db] &= mask
			dst[db] |= (src[sb] >> uint(sm)) &^ mask
		default:
			// Partial-byte landing: clear the slot, OR the bits in.
			c = min(8-dm, 8-sm, n)
			mask := byte(0xFF) << uint(dm) << uint(c)
			dst[db] &= mask | ^(byte(0xFF) << uint(dm))
			if src[sb] != 0 {
				dst[db] |= (src[sb] >> uint(sm) << uint(dm)) &^ mask
			}
		}
		n -= c
		di += c
		si += c
	}
}

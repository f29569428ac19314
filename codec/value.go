package codec

import (
	"encoding/binary"
	"fmt"
)

// Value is a message (or a view into part of one) paired with its
// descriptor. Storage is a flat little-endian byte block laid out per
// Descriptor.StorageSize; sub-values returned by Field and Index are
// views into the parent's storage, not copies.
//
// Accessor methods panic when used against the wrong kind; descriptors
// fix every shape at construction time, so a mismatch is a programming
// error, not input-dependent.
type Value struct {
	desc *Descriptor
	data []byte
}

// NewValue allocates zeroed storage for d.
func NewValue(d *Descriptor) *Value {
	return &Value{desc: d, data: make([]byte, d.StorageSize())}
}

// View wraps existing storage without copying. len(data) must be at
// least d.StorageSize().
func View(d *Descriptor, data []byte) *Value {
	return &Value{desc: d, data: data[:d.StorageSize()]}
}

// Descriptor returns the value's descriptor.
func (v *Value) Descriptor() *Descriptor { return v.desc }

// Bytes exposes the raw storage of the value.
func (v *Value) Bytes() []byte { return v.data }

// Reset zeroes the storage. Decode requires a pre-zeroed destination.
func (v *Value) Reset() {
	clear(v.data)
}

// Field returns a view of the named message field.
func (v *Value) Field(name string) *Value {
	d := v.desc.resolve()
	if d.Kind != KindMessage {
		panic(fmt.Sprintf("codec: Field on %s value", d.Kind))
	}
	f := d.FieldByName(name)
	if f == nil {
		panic(fmt.Sprintf("codec: message %s has no field %q", d.Name, name))
	}
	return &Value{desc: f.Type, data: v.data[f.storageOff : f.storageOff+f.Type.storage]}
}

// Index returns a view of the k-th array element.
func (v *Value) Index(k int) *Value {
	d := v.desc.resolve()
	if d.Kind != KindArray {
		panic(fmt.Sprintf("codec: Index on %s value", d.Kind))
	}
	if k < 0 || k >= d.Cap {
		panic(fmt.Sprintf("codec: index %d out of range [0,%d)", k, d.Cap))
	}
	es := d.Elem.storage
	return &Value{desc: d.Elem, data: v.data[k*es : (k+1)*es]}
}

// Len returns the array capacity.
func (v *Value) Len() int {
	d := v.desc.resolve()
	if d.Kind != KindArray {
		panic(fmt.Sprintf("codec: Len on %s value", d.Kind))
	}
	return d.Cap
}

// Bool reads a bool value.
func (v *Value) Bool() bool {
	v.scalar(KindBool)
	return v.data[0] != 0
}

// SetBool stores a bool value.
func (v *Value) SetBool(b bool) {
	v.scalar(KindBool)
	if b {
		v.data[0] = 1
	} else {
		v.data[0] = 0
	}
}

// Byte reads a byte value.
func (v *Value) Byte() byte {
	v.scalar(KindByte)
	return v.data[0]
}

// SetByte stores a byte value.
func (v *Value) SetByte(b byte) {
	v.scalar(KindByte)
	v.data[0] = b
}

// Uint reads a uint, byte or enum value.
func (v *Value) Uint() uint64 {
	d := v.kindOf(KindUint, KindEnum, KindByte)
	return loadLE(v.data[:d.storage])
}

// SetUint stores a uint, byte or enum value, masked to the declared
// wire width.
func (v *Value) SetUint(x uint64) {
	d := v.kindOf(KindUint, KindEnum, KindByte)
	if d.Bits < 64 {
		x &= 1<<uint(d.Bits) - 1
	}
	storeLE(v.data[:d.storage], x)
}

// Int reads a signed value. The storage is kept sign-extended, so this
// is a plain two's-complement read at the storage width.
func (v *Value) Int() int64 {
	d := v.kindOf(KindInt)
	x := loadLE(v.data[:d.storage])
	switch d.storage {
	case 1:
		return int64(int8(x))
	case 2:
		return int64(int16(x))
	case 4:
		return int64(int32(x))
	default:
		return int64(x)
	}
}

// SetInt stores a signed value as two's complement at the storage
// width. Only the low wire bits travel on encode.
func (v *Value) SetInt(x int64) {
	d := v.kindOf(KindInt)
	storeLE(v.data[:d.storage], uint64(x))
}

func (v *Value) scalar(k Kind) {
	if d := v.desc.resolve(); d.Kind != k {
		panic(fmt.Sprintf("codec: %s accessor on %s value", k, d.Kind))
	}
}

func (v *Value) kindOf(kinds ...Kind) *Descriptor {
	d := v.desc.resolve()
	for _, k := range kinds {
		if d.Kind == k {
			return d
		}
	}
	panic(fmt.Sprintf("codec: %s accessor on %s value", kinds[0], d.Kind))
}

// loadLE reads a little-endian unsigned value of len(b) bytes,
// len(b) in {1, 2, 4, 8}.
func loadLE(b []byte) uint64 {
	switch len(b) {
	case 1:
		return uint64(b[0])
	case 2:
		return uint64(binary.LittleEndian.Uint16(b))
	case 4:
		return uint64(binary.LittleEndian.Uint32(b))
	default:
		return binary.LittleEndian.Uint64(b)
	}
}

// storeLE writes the low len(b) bytes of x little-endian.
func storeLE(b []byte, x uint64) {
	switch len(b) {
	case 1:
		b[0] = byte(x)
	case 2:
		binary.LittleEndian.PutUint16(b, uint16(x))
	case 4:
		binary.LittleEndian.PutUint32(b, uint32(x))
	default:
		binary.LittleEndian.PutUint64(b, x)
	}
}

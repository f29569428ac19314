// Package codec is the runtime for bitproto messages: a descriptor
// graph describing a message's exact wire layout, a bit-exact
// encoder/decoder driven by those descriptors, precomputed straight-line
// encode plans, and a canonical JSON formatter.
//
// Descriptors are built once (by hand, by generated code, or from a
// compiled schema) and shared; they are immutable after construction
// and safe for concurrent use. Encode and decode calls own their value
// and buffer exclusively.
package codec

import (
	"fmt"
	"sort"
)

// Kind discriminates the type variants of the wire model.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindBool
	KindUint
	KindInt
	KindByte
	KindEnum
	KindAlias
	KindArray
	KindMessage
)

var kindNames = [...]string{
	KindInvalid: "invalid",
	KindBool:    "bool",
	KindUint:    "uint",
	KindInt:     "int",
	KindByte:    "byte",
	KindEnum:    "enum",
	KindAlias:   "alias",
	KindArray:   "array",
	KindMessage: "message",
}

// String returns the kind name.
func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Wire format limits.
const (
	MaxArrayCap     = 65535
	MaxMessageNbits = 65535
	MaxFieldNumber  = 255
)

// Descriptor is the runtime representation of one type. It is a tagged
// union: Kind selects which attribute fields are meaningful.
type Descriptor struct {
	Kind       Kind
	Bits       int  // wire width of scalars; enum backing width
	Extensible bool // arrays and messages only

	// Array attributes.
	Cap  int
	Elem *Descriptor

	// Alias attribute.
	Target *Descriptor

	// Message attributes.
	Name   string
	Fields []Field // ascending field-number order

	nbits   int // total wire bits, prefixes included
	storage int // in-memory storage bytes
}

// Field is one numbered message field.
type Field struct {
	Name   string
	Number int
	Type   *Descriptor

	storageOff int // byte offset of the field inside the message storage
}

// Nbits is the exact wire width in bits, including the 16-bit prefix of
// the descriptor itself and of any transitively extensible child.
func (d *Descriptor) Nbits() int { return d.nbits }

// ByteSize is the encoded byte length, ceil(Nbits/8).
func (d *Descriptor) ByteSize() int { return (d.nbits + 7) / 8 }

// StorageSize is the in-memory storage footprint in bytes: scalars take
// their smallest covering standard width, bool takes one byte, arrays
// and messages are packed concatenations of their parts.
func (d *Descriptor) StorageSize() int { return d.storage }

// FieldByName returns the message field with the given name, or nil.
func (d *Descriptor) FieldByName(name string) *Field {
	for i := range d.Fields {
		if d.Fields[i].Name == name {
			return &d.Fields[i]
		}
	}
	return nil
}

// resolve follows alias chains to the underlying descriptor.
func (d *Descriptor) resolve() *Descriptor {
	for d.Kind == KindAlias {
		d = d.Target
	}
	return d
}

// storageBits returns the smallest of 8, 16, 32, 64 covering n bits.
func storageBits(n int) int {
	switch {
	case n <= 8:
		return 8
	case n <= 16:
		return 16
	case n <= 32:
		return 32
	default:
		return 64
	}
}

var (
	boolDesc = &Descriptor{Kind: KindBool, Bits: 1, nbits: 1, storage: 1}
	byteDesc = &Descriptor{Kind: KindByte, Bits: 8, nbits: 8, storage: 1}
	uintDesc [65]*Descriptor
	intDesc  [65]*Descriptor
	enumDesc [65]*Descriptor
)

func init() {
	for n := 1; n <= 64; n++ {
		uintDesc[n] = &Descriptor{Kind: KindUint, Bits: n, nbits: n, storage: storageBits(n) / 8}
		intDesc[n] = &Descriptor{Kind: KindInt, Bits: n, nbits: n, storage: storageBits(n) / 8}
		enumDesc[n] = &Descriptor{Kind: KindEnum, Bits: n, nbits: n, storage: storageBits(n) / 8}
	}
}

// Bool returns the bool descriptor: 1 wire bit, 1 storage byte.
func Bool() *Descriptor { return boolDesc }

// Byte returns the byte descriptor: 8 wire bits, 1 storage byte.
func Byte() *Descriptor { return byteDesc }

// Uint returns the uint<n> descriptor. n must be in 1..64.
func Uint(n int) *Descriptor {
	mustWidth(n)
	return uintDesc[n]
}

// Int returns the int<n> descriptor. Values are stored sign-extended in
// the smallest covering standard width. n must be in 1..64.
func Int(n int) *Descriptor {
	mustWidth(n)
	return intDesc[n]
}

// Enum returns the descriptor of an enum backed by uint<n>. On the wire
// an enum is exactly its backing uint; unknown numeric values
// round-trip. n must be in 1..64.
func Enum(n int) *Descriptor {
	mustWidth(n)
	return enumDesc[n]
}

func mustWidth(n int) {
	if n < 1 || n > 64 {
		panic(fmt.Sprintf("codec: bit width %d out of range 1..64", n))
	}
}

// Alias wraps target under a distinct named identity. Targets follow
// the schema restriction: bool, byte, uint, int or array.
func Alias(target *Descriptor) (*Descriptor, error) {
	switch target.Kind {
	case KindBool, KindByte, KindUint, KindInt, KindArray:
	default:
		return nil, fmt.Errorf("codec: alias target must be an unnamed kind, got %s", target.Kind)
	}
	return &Descriptor{
		Kind: KindAlias, Target: target,
		nbits: target.nbits, storage: target.storage,
	}, nil
}

// Array builds an array descriptor of cap elements. Element
// descriptors cannot themselves be arrays (nor aliases of arrays).
func Array(capacity int, elem *Descriptor, extensible bool) (*Descriptor, error) {
	if capacity < 1 || capacity > MaxArrayCap {
		return nil, fmt.Errorf("codec: array capacity %d out of range 1..%d", capacity, MaxArrayCap)
	}
	if elem.resolve().Kind == KindArray {
		return nil, fmt.Errorf("codec: array elements cannot themselves be arrays")
	}
	d := &Descriptor{Kind: KindArray, Cap: capacity, Elem: elem, Extensible: extensible}
	d.nbits = capacity * elem.nbits
	if extensible {
		d.nbits += 16
	}
	d.storage = capacity * elem.storage
	return d, nil
}

// Message builds a message descriptor. Field numbers must be unique and
// in 1..255; fields are reordered ascending by number (wire order) and
// storage offsets are assigned in that order.
func Message(name string, extensible bool, fields ...Field) (*Descriptor, error) {
	d := &Descriptor{Kind: KindMessage, Name: name, Extensible: extensible}
	sort.SliceStable(fields, func(i, j int) bool { return fields[i].Number < fields[j].Number })

	seen := make(map[int]string, len(fields))
	nbits, storage := 0, 0
	for i := range fields {
		f := &fields[i]
		if f.Number < 1 || f.Number > MaxFieldNumber {
			return nil, fmt.Errorf("codec: message %s field %s: number %d out of range 1..%d",
				name, f.Name, f.Number, MaxFieldNumber)
		}
		if prev, dup := seen[f.Number]; dup {
			return nil, fmt.Errorf("codec: message %s: field number %d used by both %s and %s",
				name, f.Number, prev, f.Name)
		}
		seen[f.Number] = f.Name
		f.storageOff = storage
		storage += f.Type.storage
		nbits += f.Type.nbits
	}
	if extensible {
		nbits += 16
	}
	if nbits > MaxMessageNbits {
		return nil, fmt.Errorf("codec: message %s is %d bits wide, exceeding the %d-bit limit",
			name, nbits, MaxMessageNbits)
	}
	d.Fields = fields
	d.nbits = nbits
	d.storage = storage
	return d, nil
}

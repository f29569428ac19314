// Package descriptor bridges the compiled schema model to the runtime
// codec: it lowers ir types into codec descriptors so a schema can be
// encoded, decoded and formatted in-process without generated code.
package descriptor

import (
	"fmt"

	"github.com/bitproto/bitproto/codec"
	"github.com/bitproto/bitproto/internal/ir"
)

// Builder lowers ir types to codec descriptors, one descriptor per
// distinct named type.
type Builder struct {
	cache map[ir.Type]*codec.Descriptor
}

// NewBuilder creates an empty builder.
func NewBuilder() *Builder {
	return &Builder{cache: make(map[ir.Type]*codec.Descriptor)}
}

// Message lowers a message type.
func (b *Builder) Message(m *ir.Message) (*codec.Descriptor, error) {
	d, err := b.Type(m)
	if err != nil {
		return nil, err
	}
	return d, nil
}

// Type lowers any resolved type.
func (b *Builder) Type(t ir.Type) (*codec.Descriptor, error) {
	if d, ok := b.cache[t]; ok {
		return d, nil
	}
	d, err := b.build(t)
	if err != nil {
		return nil, err
	}
	b.cache[t] = d
	return d, nil
}

func (b *Builder) build(t ir.Type) (*codec.Descriptor, error) {
	switch t := t.(type) {
	case *ir.BoolType:
		return codec.Bool(), nil
	case *ir.ByteType:
		return codec.Byte(), nil
	case *ir.UintType:
		return codec.Uint(t.Bits), nil
	case *ir.IntType:
		return codec.Int(t.Bits), nil
	case *ir.Enum:
		return codec.Enum(t.Backing.Bits), nil
	case *ir.Alias:
		target, err := b.Type(t.Target)
		if err != nil {
			return nil, err
		}
		d, err := codec.Alias(target)
		if err != nil {
			return nil, fmt.Errorf("alias %s: %w", t, err)
		}
		return d, nil
	case *ir.Array:
		elem, err := b.Type(t.Elem)
		if err != nil {
			return nil, err
		}
		d, err := codec.Array(t.Cap, elem, t.Extensible)
		if err != nil {
			return nil, fmt.Errorf("array %s: %w", t, err)
		}
		return d, nil
	case *ir.Message:
		fields := make([]codec.Field, 0, len(t.Fields))
		for _, f := range t.Fields {
			ft, err := b.Type(f.Type)
			if err != nil {
				return nil, err
			}
			fields = append(fields, codec.Field{Name: f.Name, Number: f.Number, Type: ft})
		}
		d, err := codec.Message(t.String(), t.Extensible, fields...)
		if err != nil {
			return nil, fmt.Errorf("message %s: %w", t, err)
		}
		return d, nil
	default:
		return nil, fmt.Errorf("cannot lower %T", t)
	}
}

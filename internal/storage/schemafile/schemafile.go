// Package schemafile reads and writes a table's binary schema side-car.
//
// Layout (little endian):
//
//	magic:      4 bytes "LDBS"
//	version:    uint8 (1)
//	numFields:  uint32
//	per field:
//	  nameLen:  uint32
//	  name:     nameLen bytes (UTF-8)
//	  type:     uint8 (core.FieldKind)
//	  maxLen:   uint32, only when type is varchar
//	  nullable: uint8 (0 or 1)
//	  flags:    uint8 (bit 0 primary key, bit 1 foreign key)
package schemafile

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/leapstack-labs/leapdb/internal/storage"
	"github.com/leapstack-labs/leapdb/pkg/core"
)

const (
	fileMagic   = "LDBS"
	fileVersion = 1

	// maxNameLen bounds decoded name lengths so a corrupt length prefix
	// cannot trigger a huge allocation.
	maxNameLen = 1 << 16
)

const (
	flagPrimaryKey uint8 = 1 << iota
	flagForeignKey
)

// Write atomically stores schema at path.
func Write(path string, schema core.Schema) error {
	var buf bytes.Buffer
	if err := Encode(&buf, schema); err != nil {
		return &core.Error{Kind: core.KindSchema, Op: "write schema", Err: err}
	}
	err := storage.WriteAtomic(path, func(w io.Writer) error {
		_, err := w.Write(buf.Bytes())
		return err
	})
	if err != nil {
		return &core.Error{Kind: core.KindIO, Op: "write schema", Err: err}
	}
	return nil
}

// Read loads the schema stored at path. A missing file yields a
// core.KindSchema error wrapping fs.ErrNotExist.
func Read(path string) (core.Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &core.Error{Kind: core.KindSchema, Op: "read schema", Err: err}
		}
		return nil, &core.Error{Kind: core.KindIO, Op: "read schema", Err: err}
	}
	schema, err := Decode(bytes.NewReader(data))
	if err != nil {
		return nil, &core.Error{Kind: core.KindSchema, Op: "decode schema", Err: err}
	}
	return schema, nil
}

// IsNotFound reports whether err means the side-car does not exist.
func IsNotFound(err error) bool {
	return core.IsKind(err, core.KindSchema) && errors.Is(err, fs.ErrNotExist)
}

// Encode writes the binary form of schema to w.
func Encode(w io.Writer, schema core.Schema) error {
	if _, err := io.WriteString(w, fileMagic); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint8(fileVersion)); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(len(schema))); err != nil {
		return err
	}

	for _, f := range schema {
		name := []byte(f.Name)
		if len(name) > maxNameLen {
			return fmt.Errorf("field name too long: %d bytes", len(name))
		}
		if err := binary.Write(w, binary.LittleEndian, uint32(len(name))); err != nil {
			return err
		}
		if _, err := w.Write(name); err != nil {
			return err
		}

		t := f.Field.Type
		if !t.Valid() {
			return fmt.Errorf("field %q: invalid type %s", f.Name, t)
		}
		if err := binary.Write(w, binary.LittleEndian, uint8(t.Kind)); err != nil {
			return err
		}
		if t.Kind == core.KindVarchar {
			if err := binary.Write(w, binary.LittleEndian, t.MaxLength); err != nil {
				return err
			}
		}

		var flags uint8
		if f.Field.PrimaryKey {
			flags |= flagPrimaryKey
		}
		if f.Field.ForeignKey {
			flags |= flagForeignKey
		}
		if _, err := w.Write([]byte{boolByte(f.Field.Nullable), flags}); err != nil {
			return err
		}
	}
	return nil
}

// Decode reads a schema written by Encode. Truncated or malformed input is
// an error; trailing bytes are rejected.
func Decode(r io.Reader) (core.Schema, error) {
	magic := make([]byte, len(fileMagic))
	if _, err := io.ReadFull(r, magic); err != nil {
		return nil, fmt.Errorf("read magic: %w", unexpected(err))
	}
	if string(magic) != fileMagic {
		return nil, fmt.Errorf("invalid magic %q, not a schema file", magic)
	}

	var version uint8
	if err := binary.Read(r, binary.LittleEndian, &version); err != nil {
		return nil, fmt.Errorf("read version: %w", unexpected(err))
	}
	if version != fileVersion {
		return nil, fmt.Errorf("unsupported schema version %d", version)
	}

	var numFields uint32
	if err := binary.Read(r, binary.LittleEndian, &numFields); err != nil {
		return nil, fmt.Errorf("read field count: %w", unexpected(err))
	}

	var schema core.Schema
	for i := uint32(0); i < numFields; i++ {
		var nameLen uint32
		if err := binary.Read(r, binary.LittleEndian, &nameLen); err != nil {
			return nil, fmt.Errorf("field %d: read name length: %w", i, unexpected(err))
		}
		if nameLen > maxNameLen {
			return nil, fmt.Errorf("field %d: name length %d out of range", i, nameLen)
		}
		name := make([]byte, nameLen)
		if _, err := io.ReadFull(r, name); err != nil {
			return nil, fmt.Errorf("field %d: read name: %w", i, unexpected(err))
		}

		var kind uint8
		if err := binary.Read(r, binary.LittleEndian, &kind); err != nil {
			return nil, fmt.Errorf("field %q: read type: %w", name, unexpected(err))
		}
		t := core.FieldType{Kind: core.FieldKind(kind)}
		if !t.Valid() {
			return nil, fmt.Errorf("field %q: unknown type tag %d", name, kind)
		}
		if t.Kind == core.KindVarchar {
			if err := binary.Read(r, binary.LittleEndian, &t.MaxLength); err != nil {
				return nil, fmt.Errorf("field %q: read varchar length: %w", name, unexpected(err))
			}
		}

		var tail [2]byte
		if _, err := io.ReadFull(r, tail[:]); err != nil {
			return nil, fmt.Errorf("field %q: read flags: %w", name, unexpected(err))
		}
		if tail[0] > 1 {
			return nil, fmt.Errorf("field %q: invalid null flag %d", name, tail[0])
		}

		schema = append(schema, core.FieldInfo{
			Name: string(name),
			Field: core.Field{
				Type:       t,
				Nullable:   tail[0] == 1,
				PrimaryKey: tail[1]&flagPrimaryKey != 0,
				ForeignKey: tail[1]&flagForeignKey != 0,
			},
		})
	}

	var extra [1]byte
	if n, _ := r.Read(extra[:]); n > 0 {
		return nil, fmt.Errorf("trailing bytes after %d fields", numFields)
	}
	return schema, nil
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}

// unexpected turns a clean EOF inside a record into io.ErrUnexpectedEOF.
func unexpected(err error) error {
	if errors.Is(err, io.EOF) {
		return io.ErrUnexpectedEOF
	}
	return err
}

package pe

import (
	"bytes"
	"encoding/binary"
	"unicode/utf16"
)

// Every dereference into the image goes through the bounds-checked
// readers below. Conversions and reads report failure through an ok
// bool; callers skip the offending item and keep going.

// canRead reports whether [off, off+size) lies inside the image. A span
// ending exactly at EOF is valid, which resource data that runs to the
// last byte of the file depends on. The subtraction form rejects
// wrap-around without a separate overflow check.
func (f *File) canRead(off, size uint64) bool {
	if off > f.size {
		return false
	}
	return size <= f.size-off
}

func (f *File) readU8(off uint64) (uint8, bool) {
	if !f.canRead(off, 1) {
		return 0, false
	}
	return f.data[off], true
}

func (f *File) readU16(off uint64) (uint16, bool) {
	if !f.canRead(off, 2) {
		return 0, false
	}
	return binary.LittleEndian.Uint16(f.data[off:]), true
}

func (f *File) readU32(off uint64) (uint32, bool) {
	if !f.canRead(off, 4) {
		return 0, false
	}
	return binary.LittleEndian.Uint32(f.data[off:]), true
}

func (f *File) readU64(off uint64) (uint64, bool) {
	if !f.canRead(off, 8) {
		return 0, false
	}
	return binary.LittleEndian.Uint64(f.data[off:]), true
}

// readBytes returns a copy, never an alias into the image.
func (f *File) readBytes(off, size uint64) ([]byte, bool) {
	if !f.canRead(off, size) {
		return nil, false
	}
	out := make([]byte, size)
	copy(out, f.data[off:off+size])
	return out, true
}

// readStruct decodes a fixed-size little-endian record at off.
func (f *File) readStruct(off uint64, v interface{}) bool {
	size := binary.Size(v)
	if size < 0 || !f.canRead(off, uint64(size)) {
		return false
	}
	return binary.Read(bytes.NewReader(f.data[off:off+uint64(size)]), binary.LittleEndian, v) == nil
}

// readCString reads a NUL-terminated ASCII string, capped at max bytes.
func (f *File) readCString(off uint64, max int) (string, bool) {
	if !f.canRead(off, 0) {
		return "", false
	}
	var buf []byte
	for i := 0; i < max; i++ {
		b, ok := f.readU8(off + uint64(i))
		if !ok || b == 0 {
			break
		}
		buf = append(buf, b)
	}
	return string(buf), true
}

// readResourceString reads an IMAGE_RESOURCE_DIR_STRING_U: a 16-bit
// code-unit count followed by UTF-16LE characters, capped at MAX_PATH
// code units.
func (f *File) readResourceString(off uint64) (string, bool) {
	length, ok := f.readU16(off)
	if !ok {
		return "", false
	}
	if length > MAX_PATH {
		length = MAX_PATH
	}
	units := make([]uint16, 0, length)
	for i := uint64(0); i < uint64(length); i++ {
		u, ok := f.readU16(off + 2 + i*2)
		if !ok {
			break
		}
		units = append(units, u)
	}
	return string(utf16.Decode(units)), true
}

// rvaToOffset resolves an RVA through the section table. The owning
// section is the one whose virtual range contains the RVA; the result
// must land inside the file.
func (f *File) rvaToOffset(rva uint64) (uint64, bool) {
	for i := range f.sections {
		hdr := &f.sections[i].Header
		va := uint64(hdr.VirtualAddress)
		if rva >= va && rva < va+uint64(hdr.VirtualSize) {
			off := rva - va + uint64(hdr.PointerToRawData)
			if off >= f.size {
				return 0, false
			}
			return off, true
		}
	}
	return 0, false
}

// OffsetFromRVA converts a relative virtual address to a file offset.
func (f *File) OffsetFromRVA(rva uint64) (uint32, bool) {
	if !f.loaded {
		return 0, false
	}
	off, ok := f.rvaToOffset(rva)
	if !ok {
		return 0, false
	}
	return uint32(off), true
}

// OffsetFromVA converts a virtual address to a file offset by
// subtracting the image base first.
func (f *File) OffsetFromVA(va uint64) (uint32, bool) {
	if !f.loaded || va < f.imageBase {
		return 0, false
	}
	return f.OffsetFromRVA(va - f.imageBase)
}

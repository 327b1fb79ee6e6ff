package pe

import "encoding/binary"

// imageBuilder assembles synthetic PE images in memory for tests. The
// default layout keeps the NT headers at 0x80 and leaves the rest of
// the buffer to the individual test.
type imageBuilder struct {
	data       []byte
	is64       bool
	lfanew     uint32
	machine    uint16
	symTable   uint32
	numSymbols uint32
	imageBase  uint64
	numDirs    uint32
	dirs       [16]ImageDataDirectory
	sections   []sectionSpec
}

type sectionSpec struct {
	name    string
	va      uint32
	vsize   uint32
	rawOff  uint32
	rawSize uint32
}

func newImage(size int, is64 bool) *imageBuilder {
	machine := uint16(0x14C) // I386
	if is64 {
		machine = 0x8664 // AMD64
	}
	return &imageBuilder{
		data:      make([]byte, size),
		is64:      is64,
		lfanew:    0x80,
		machine:   machine,
		imageBase: 0x400000,
		numDirs:   16,
	}
}

func (b *imageBuilder) putU16(off uint32, v uint16) {
	binary.LittleEndian.PutUint16(b.data[off:], v)
}

func (b *imageBuilder) putU32(off uint32, v uint32) {
	binary.LittleEndian.PutUint32(b.data[off:], v)
}

func (b *imageBuilder) putU64(off uint32, v uint64) {
	binary.LittleEndian.PutUint64(b.data[off:], v)
}

func (b *imageBuilder) putString(off uint32, s string) {
	copy(b.data[off:], s)
	b.data[off+uint32(len(s))] = 0
}

func (b *imageBuilder) addSection(name string, va, vsize, rawOff, rawSize uint32) {
	b.sections = append(b.sections, sectionSpec{name, va, vsize, rawOff, rawSize})
}

// addTextSection adds the default .text section: virtual 0x1000..0x2000
// mapped to file 0x400.
func (b *imageBuilder) addTextSection() {
	b.addSection(".text", 0x1000, 0x1000, 0x400, 0x1000)
}

func (b *imageBuilder) setDir(idx int, rva, size uint32) {
	b.dirs[idx] = ImageDataDirectory{VirtualAddress: rva, Size: size}
}

// rvaToOff mirrors the default .text mapping for tests that write
// directory content into the section.
func (b *imageBuilder) rvaToOff(rva uint32) uint32 {
	for _, s := range b.sections {
		if rva >= s.va && rva < s.va+s.vsize {
			return rva - s.va + s.rawOff
		}
	}
	return rva
}

func (b *imageBuilder) build() []byte {
	b.putU16(0, IMAGE_DOS_SIGNATURE)
	b.putU32(60, b.lfanew)

	b.putU32(b.lfanew, IMAGE_NT_SIGNATURE)

	fh := b.lfanew + 4
	b.putU16(fh, b.machine)
	b.putU16(fh+2, uint16(len(b.sections)))
	b.putU32(fh+8, b.symTable)
	b.putU32(fh+12, b.numSymbols)

	optBase := uint32(96)
	if b.is64 {
		optBase = 112
	}
	optSize := optBase + b.numDirs*8
	b.putU16(fh+16, uint16(optSize))
	b.putU16(fh+18, 0x0102) // EXECUTABLE_IMAGE | 32BIT_MACHINE

	opt := b.lfanew + 24
	var ddOff uint32
	if b.is64 {
		b.putU16(opt, IMAGE_NT_OPTIONAL_HDR64_MAGIC)
		b.putU64(opt+24, b.imageBase)
		b.putU32(opt+108, b.numDirs)
		ddOff = opt + 112
	} else {
		b.putU16(opt, IMAGE_NT_OPTIONAL_HDR32_MAGIC)
		b.putU32(opt+28, uint32(b.imageBase))
		b.putU32(opt+92, b.numDirs)
		ddOff = opt + 96
	}

	for i := uint32(0); i < b.numDirs && i < 16; i++ {
		b.putU32(ddOff+i*8, b.dirs[i].VirtualAddress)
		b.putU32(ddOff+i*8+4, b.dirs[i].Size)
	}

	secOff := opt + optSize
	for _, s := range b.sections {
		copy(b.data[secOff:secOff+8], s.name)
		b.putU32(secOff+8, s.vsize)
		b.putU32(secOff+12, s.va)
		b.putU32(secOff+16, s.rawSize)
		b.putU32(secOff+20, s.rawOff)
		b.putU32(secOff+36, 0x60000020) // CODE | EXECUTE | READ
		secOff += 40
	}

	return b.data
}

func mustLoad(t interface {
	Helper()
	Fatalf(format string, args ...interface{})
}, data []byte) *File {
	t.Helper()
	f := &File{}
	if err := f.Load(data); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	return f
}

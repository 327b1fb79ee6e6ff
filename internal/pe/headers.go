package pe

import (
	"bytes"
	"strconv"
)

// RichEntry is one decoded record of the undocumented "Rich" stub.
type RichEntry struct {
	Offset    uint32 // File offset of the entry's first DWORD.
	ProductID uint16
	BuildID   uint16
	Count     uint32 // Use count.
}

// NtHeader holds the NT signature, the file header and the optional
// header in whichever width the image carries. Exactly one of
// OptionalHeader32/OptionalHeader64 is non-nil once NT parsing
// succeeds.
type NtHeader struct {
	Offset           uint32 // File offset of the PE signature.
	Signature        uint32
	FileHeader       ImageFileHeader
	OptionalHeader32 *ImageOptionalHeader32
	OptionalHeader64 *ImageOptionalHeader64
}

// DataDirEntry is one optional-header data directory entry plus the
// resolved name of the section owning its RVA (empty when none, and
// always empty for the Security directory whose "RVA" is a raw file
// offset).
type DataDirEntry struct {
	Directory   ImageDataDirectory
	SectionName string
}

// Section is one section-table entry. Name is the resolved name: the
// raw 8-byte field trimmed at NUL, or the COFF string table entry for
// '/'-prefixed long names. The raw field stays in Header untouched.
type Section struct {
	Offset uint32 // File offset of the section header.
	Header ImageSectionHeader
	Name   string
}

func (f *File) parseDosHeader() bool {
	var dos ImageDosHeader
	if !f.readStruct(0, &dos) || dos.EMagic != IMAGE_DOS_SIGNATURE {
		return false
	}
	f.dos = &dos
	f.info.HasDosHdr = true
	return true
}

// parseRichHeader hunts for the undocumented toolchain stub between the
// DOS header and e_lfanew. The "Rich" DWORD is followed by the xor key;
// the key applied to the DWORD at 0x80 must give "DanS". Requiring the
// signature at 0x90 or later rejects stubs too small to hold the whole
// 16-byte DanS preamble; a signature exactly at 0x90 is accepted and
// yields no entries.
func (f *File) parseRichHeader() {
	if f.dos == nil {
		return
	}
	lfanew := uint64(f.dos.ELfanew)
	if lfanew <= 0x80 || !f.canRead(0, lfanew) {
		return
	}
	first, ok := f.readU32(0x80)
	if !ok {
		return
	}
	for off := uint64(0x80); off+8 <= lfanew; off += 4 {
		sig, ok := f.readU32(off)
		if !ok {
			return
		}
		if sig != IMAGE_RICH_SIGNATURE {
			continue
		}
		key, ok := f.readU32(off + 4)
		if !ok {
			return
		}
		if first^key != IMAGE_DANS_SIGNATURE || off < 0x90 {
			continue
		}

		// Entries are DWORD pairs from 0x90 up to the "Rich" DWORD.
		count := (off - 0x90) / 8
		entries := make([]RichEntry, 0, count)
		for j := uint64(0); j < count; j++ {
			entryOff := 0x90 + j*8
			d1, ok1 := f.readU32(entryOff)
			d2, ok2 := f.readU32(entryOff + 4)
			if !ok1 || !ok2 {
				break
			}
			d1 ^= key
			entries = append(entries, RichEntry{
				Offset:    uint32(entryOff),
				ProductID: uint16(d1),
				BuildID:   uint16(d1 >> 16),
				Count:     d2 ^ key,
			})
		}
		f.rich = entries
		f.info.HasRichHdr = true
		return
	}
}

func (f *File) parseNtHeader() bool {
	if f.dos == nil {
		return false
	}
	lfanew := uint64(f.dos.ELfanew)
	sig, ok := f.readU32(lfanew)
	if !ok || sig != IMAGE_NT_SIGNATURE {
		return false
	}

	var fileHdr ImageFileHeader
	if !f.readStruct(lfanew+4, &fileHdr) {
		return false
	}

	nt := &NtHeader{
		Offset:     uint32(lfanew),
		Signature:  sig,
		FileHeader: fileHdr,
	}

	optOff := lfanew + 24
	magic, ok := f.readU16(optOff)
	if !ok {
		return false
	}
	switch magic {
	case IMAGE_NT_OPTIONAL_HDR32_MAGIC:
		var opt ImageOptionalHeader32
		if !f.readStruct(optOff, &opt) {
			return false
		}
		nt.OptionalHeader32 = &opt
		f.imageBase = uint64(opt.ImageBase)
		f.info.IsPE32 = true
	case IMAGE_NT_OPTIONAL_HDR64_MAGIC:
		var opt ImageOptionalHeader64
		if !f.readStruct(optOff, &opt) {
			return false
		}
		nt.OptionalHeader64 = &opt
		f.imageBase = opt.ImageBase
		f.info.IsPE64 = true
	default:
		// Unknown optional header magic: no directory can be located.
		return false
	}

	f.nt = nt
	f.info.HasNTHdr = true
	return true
}

// optionalHeaderGeometry returns the file offset of the data directory
// array and the declared NumberOfRvaAndSizes.
func (f *File) optionalHeaderGeometry() (ddOff uint64, count uint32) {
	optOff := uint64(f.nt.Offset) + 24
	if f.info.IsPE64 {
		return optOff + 112, f.nt.OptionalHeader64.NumberOfRvaAndSizes
	}
	return optOff + 96, f.nt.OptionalHeader32.NumberOfRvaAndSizes
}

func (f *File) parseDataDirectories() {
	if f.nt == nil {
		return
	}
	ddOff, declared := f.optionalHeaderGeometry()
	count := declared
	if count > maxDirectoryEntries {
		count = maxDirectoryEntries
	}
	if count == 0 {
		return
	}

	entries := make([]DataDirEntry, 0, count)
	for i := uint32(0); i < count; i++ {
		var dir ImageDataDirectory
		if !f.readStruct(ddOff+uint64(i)*8, &dir) {
			break
		}
		f.dirs[i] = dir

		entry := DataDirEntry{Directory: dir}
		// The Security directory's VirtualAddress is a file offset, so
		// a section lookup would be meaningless.
		if dir.VirtualAddress != 0 && i != IMAGE_DIRECTORY_ENTRY_SECURITY {
			entry.SectionName = f.sectionNameForRVA(dir.VirtualAddress)
		}
		entries = append(entries, entry)
	}
	if len(entries) > 0 {
		f.dataDirs = entries
		f.info.HasDataDirs = true
	}
}

// sectionNameForRVA resolves the owning section of an RVA straight from
// the raw section table; it runs before parseSections has populated the
// model.
func (f *File) sectionNameForRVA(rva uint32) string {
	base, n := f.sectionTableGeometry()
	for i := uint64(0); i < n; i++ {
		var hdr ImageSectionHeader
		if !f.readStruct(base+i*40, &hdr) {
			return ""
		}
		if rva >= hdr.VirtualAddress && rva < hdr.VirtualAddress+hdr.VirtualSize {
			return f.resolveSectionName(&hdr)
		}
	}
	return ""
}

// sectionTableGeometry returns the file offset of the first section
// header and the section count.
func (f *File) sectionTableGeometry() (base uint64, n uint64) {
	base = uint64(f.nt.Offset) + 24 + uint64(f.nt.FileHeader.SizeOfOptionalHeader)
	return base, uint64(f.nt.FileHeader.NumberOfSections)
}

func (f *File) parseSections() {
	if f.nt == nil {
		return
	}
	base, n := f.sectionTableGeometry()
	sections := make([]Section, 0, n)
	for i := uint64(0); i < n; i++ {
		off := base + i*40
		var hdr ImageSectionHeader
		if !f.readStruct(off, &hdr) {
			// Unsafe header aborts the walk but keeps what we have.
			break
		}
		sections = append(sections, Section{
			Offset: uint32(off),
			Header: hdr,
			Name:   f.resolveSectionName(&hdr),
		})
	}
	if len(sections) > 0 {
		f.sections = sections
		f.info.HasSections = true
	}
}

// resolveSectionName decodes a section name. Names beginning with '/'
// index the COFF string table (SymbolTable + NumberOfSymbols*18 +
// decimal offset); anything else is the raw field trimmed at the first
// NUL. The arithmetic runs in uint64 so a huge symbol count cannot wrap
// into a bogus in-file address; a table offset beyond the file leaves
// the raw name in place.
func (f *File) resolveSectionName(hdr *ImageSectionHeader) string {
	raw := hdr.Name[:]
	if raw[0] == '/' {
		digits := string(bytes.TrimRight(raw[1:], "\x00"))
		if n, err := strconv.ParseUint(digits, 10, 32); err == nil {
			tableOff := uint64(f.nt.FileHeader.PointerToSymbolTable) +
				uint64(f.nt.FileHeader.NumberOfSymbols)*IMAGE_SIZEOF_SYMBOL + n
			if name, ok := f.readCString(tableOff, MAX_PATH); ok && name != "" {
				return name
			}
		}
	}
	if i := bytes.IndexByte(raw, 0); i >= 0 {
		return string(raw[:i])
	}
	return string(raw)
}

// Package pe implements a read-only parser for PE32 and PE32+ images.
//
// Load ingests a byte buffer and produces a navigable model of every
// standard header and directory. The input is treated as hostile:
// malformed structures never crash the parse or read outside the
// buffer, they only make the offending directory (or entry) absent.
package pe

import "errors"

// Load failure values. Anything past a valid DOS header fails soft:
// the directory in question is simply not present in the model.
var (
	// ErrFileTooSmall means the buffer cannot hold an IMAGE_DOS_HEADER.
	ErrFileTooSmall = errors.New("文件太小，容不下DOS头")
	// ErrNoDosHeader means the MZ magic is missing.
	ErrNoDosHeader = errors.New("缺少DOS头，不是PE文件")
)

const dosHeaderSize = 64

// FileInfo carries the per-directory presence flags and the bitness
// discriminator. At most one of IsPE32/IsPE64 is set.
type FileInfo struct {
	IsPE32          bool
	IsPE64          bool
	HasDosHdr       bool
	HasRichHdr      bool
	HasNTHdr        bool
	HasDataDirs     bool
	HasSections     bool
	HasExport       bool
	HasImport       bool
	HasResource     bool
	HasException    bool
	HasSecurity     bool
	HasReloc        bool
	HasDebug        bool
	HasArchitecture bool
	HasGlobalPtr    bool
	HasTLS          bool
	HasLoadCFG      bool
	HasBoundImp     bool
	HasIAT          bool
	HasDelayImp     bool
	HasCOMDescr     bool
}

// File is the parsed model of a single PE image. Every record it hands
// out owns its bytes; the input buffer is not retained past Load.
type File struct {
	data      []byte
	size      uint64
	imageBase uint64
	loaded    bool

	info          FileInfo
	dos           *ImageDosHeader
	rich          []RichEntry
	nt            *NtHeader
	dirs          [maxDirectoryEntries]ImageDataDirectory
	dataDirs      []DataDirEntry
	sections      []Section
	export        *Export
	imports       []ImportModule
	resources     *ResourceDir
	exceptions    []ExceptionEntry
	security      []SecurityEntry
	relocations   []RelocBlock
	debug         []DebugEntry
	tls           *TLS
	loadConfig    *LoadConfig
	boundImports  []BoundModule
	delayImports  []DelayImportModule
	comDescriptor *ComDescriptor
}

// Parse loads data into a fresh File.
func Parse(data []byte) (*File, error) {
	f := &File{}
	if err := f.Load(data); err != nil {
		return nil, err
	}
	return f, nil
}

// Load parses data into the model. A loaded File is cleared first, so
// reloading is equivalent to parsing into a fresh File. The buffer must
// stay valid for the duration of the call only.
func (f *File) Load(data []byte) error {
	f.Clear()

	f.data = data
	f.size = uint64(len(data))
	// Records own copies of everything they need; the source buffer is
	// dropped on return so the caller may release (or unmap) it.
	defer func() { f.data = nil }()

	if f.size < dosHeaderSize {
		return ErrFileTooSmall
	}
	if !f.parseDosHeader() {
		return ErrNoDosHeader
	}
	f.loaded = true

	f.parseRichHeader()
	if !f.parseNtHeader() {
		// No usable NT header: the file stays loaded with whatever the
		// DOS stub gave us, all directory flags stay false.
		return nil
	}

	f.parseDataDirectories()
	f.parseSections()
	f.parseExport()
	f.parseImport()
	f.parseResources()
	f.parseExceptions()
	f.parseSecurity()
	f.parseRelocations()
	f.parseDebug()
	f.parseArchitecture()
	f.parseGlobalPtr()
	f.parseTLS()
	f.parseLoadConfig()
	f.parseBoundImport()
	f.parseIAT()
	f.parseDelayImport()
	f.parseComDescriptor()

	return nil
}

// Clear resets the model to the not-loaded state.
func (f *File) Clear() {
	*f = File{}
}

// IsLoaded reports whether a Load has succeeded since the last Clear.
func (f *File) IsLoaded() bool {
	return f.loaded
}

// Info returns the presence flags. The zero value is returned before a
// successful Load.
func (f *File) Info() FileInfo {
	return f.info
}

// ImageBase returns the optional header's image base, or 0 before NT
// parsing succeeds.
func (f *File) ImageBase() uint64 {
	return f.imageBase
}

// DosHeader returns the IMAGE_DOS_HEADER, or nil when absent.
func (f *File) DosHeader() *ImageDosHeader {
	if !f.info.HasDosHdr {
		return nil
	}
	return f.dos
}

// RichEntries returns the decoded Rich stub entries in stub order.
func (f *File) RichEntries() []RichEntry {
	if !f.info.HasRichHdr {
		return nil
	}
	return f.rich
}

// NtHeader returns the NT headers, or nil when absent.
func (f *File) NtHeader() *NtHeader {
	if !f.info.HasNTHdr {
		return nil
	}
	return f.nt
}

// DataDirs returns the parsed data directory entries.
func (f *File) DataDirs() []DataDirEntry {
	if !f.info.HasDataDirs {
		return nil
	}
	return f.dataDirs
}

// Sections returns the section table.
func (f *File) Sections() []Section {
	if !f.info.HasSections {
		return nil
	}
	return f.sections
}

// SectionFromRVA returns the section whose virtual range contains rva,
// or nil.
func (f *File) SectionFromRVA(rva uint64) *Section {
	for i := range f.sections {
		hdr := &f.sections[i].Header
		va := uint64(hdr.VirtualAddress)
		if rva >= va && rva < va+uint64(hdr.VirtualSize) {
			return &f.sections[i]
		}
	}
	return nil
}

// SectionFromName returns the first section with the given resolved
// name, or nil.
func (f *File) SectionFromName(name string) *Section {
	for i := range f.sections {
		if f.sections[i].Name == name {
			return &f.sections[i]
		}
	}
	return nil
}

// Export returns the export table, or nil when absent.
func (f *File) Export() *Export {
	if !f.info.HasExport {
		return nil
	}
	return f.export
}

// Imports returns the import modules in descriptor order.
func (f *File) Imports() []ImportModule {
	if !f.info.HasImport {
		return nil
	}
	return f.imports
}

// Resources returns the root of the resource tree, or nil when absent.
func (f *File) Resources() *ResourceDir {
	if !f.info.HasResource {
		return nil
	}
	return f.resources
}

// Exceptions returns the runtime-function table.
func (f *File) Exceptions() []ExceptionEntry {
	if !f.info.HasException {
		return nil
	}
	return f.exceptions
}

// Security returns the WIN_CERTIFICATE headers.
func (f *File) Security() []SecurityEntry {
	if !f.info.HasSecurity {
		return nil
	}
	return f.security
}

// Relocations returns the base relocation blocks.
func (f *File) Relocations() []RelocBlock {
	if !f.info.HasReloc {
		return nil
	}
	return f.relocations
}

// Debug returns the debug directory entries.
func (f *File) Debug() []DebugEntry {
	if !f.info.HasDebug {
		return nil
	}
	return f.debug
}

// TLS returns the TLS directory, or nil when absent.
func (f *File) TLS() *TLS {
	if !f.info.HasTLS {
		return nil
	}
	return f.tls
}

// LoadConfig returns the load-config directory, or nil when absent.
func (f *File) LoadConfig() *LoadConfig {
	if !f.info.HasLoadCFG {
		return nil
	}
	return f.loadConfig
}

// BoundImports returns the bound-import modules.
func (f *File) BoundImports() []BoundModule {
	if !f.info.HasBoundImp {
		return nil
	}
	return f.boundImports
}

// DelayImports returns the delay-import modules.
func (f *File) DelayImports() []DelayImportModule {
	if !f.info.HasDelayImp {
		return nil
	}
	return f.delayImports
}

// ComDescriptor returns the CLR header, or nil when absent.
func (f *File) ComDescriptor() *ComDescriptor {
	if !f.info.HasCOMDescr {
		return nil
	}
	return f.comDescriptor
}

// dirEntry returns the raw data directory entry at idx, a zero entry
// when the directory table does not reach that far.
func (f *File) dirEntry(idx int) ImageDataDirectory {
	return f.dirs[idx]
}

package pe

// Raw on-disk PE structures. Layouts follow the PE/COFF specification;
// everything is little-endian. Field names keep the Windows SDK spelling
// so they can be cross-checked against winnt.h.

// PE signature constants (Windows SDK naming convention).
//
//nolint:revive // ALL_CAPS matches Windows SDK naming
const (
	IMAGE_DOS_SIGNATURE  = 0x5A4D     // "MZ"
	IMAGE_NT_SIGNATURE   = 0x00004550 // "PE\0\0"
	IMAGE_RICH_SIGNATURE = 0x68636952 // "Rich"
	IMAGE_DANS_SIGNATURE = 0x536E6144 // "DanS"

	IMAGE_NT_OPTIONAL_HDR32_MAGIC = 0x10B
	IMAGE_NT_OPTIONAL_HDR64_MAGIC = 0x20B

	IMAGE_SIZEOF_SHORT_NAME = 8
	IMAGE_SIZEOF_SYMBOL     = 18

	IMAGE_ORDINAL_FLAG32 = 0x80000000
	IMAGE_ORDINAL_FLAG64 = 0x8000000000000000
)

// Data directory indices. COM_DESCRIPTOR (14) is the highest standard
// entry; index 15 is reserved and never parsed.
//
//nolint:revive // ALL_CAPS matches Windows SDK naming
const (
	IMAGE_DIRECTORY_ENTRY_EXPORT         = 0
	IMAGE_DIRECTORY_ENTRY_IMPORT         = 1
	IMAGE_DIRECTORY_ENTRY_RESOURCE       = 2
	IMAGE_DIRECTORY_ENTRY_EXCEPTION      = 3
	IMAGE_DIRECTORY_ENTRY_SECURITY       = 4
	IMAGE_DIRECTORY_ENTRY_BASERELOC      = 5
	IMAGE_DIRECTORY_ENTRY_DEBUG          = 6
	IMAGE_DIRECTORY_ENTRY_ARCHITECTURE   = 7
	IMAGE_DIRECTORY_ENTRY_GLOBALPTR      = 8
	IMAGE_DIRECTORY_ENTRY_TLS            = 9
	IMAGE_DIRECTORY_ENTRY_LOAD_CONFIG    = 10
	IMAGE_DIRECTORY_ENTRY_BOUND_IMPORT   = 11
	IMAGE_DIRECTORY_ENTRY_IAT            = 12
	IMAGE_DIRECTORY_ENTRY_DELAY_IMPORT   = 13
	IMAGE_DIRECTORY_ENTRY_COM_DESCRIPTOR = 14

	// Entries above COM_DESCRIPTOR are ignored even when
	// NumberOfRvaAndSizes claims more.
	maxDirectoryEntries = 15
)

// Relocation types.
//
//nolint:revive // ALL_CAPS matches Windows SDK naming
const (
	IMAGE_REL_BASED_ABSOLUTE       = 0
	IMAGE_REL_BASED_HIGH           = 1
	IMAGE_REL_BASED_LOW            = 2
	IMAGE_REL_BASED_HIGHLOW        = 3
	IMAGE_REL_BASED_HIGHADJ        = 4
	IMAGE_REL_BASED_MIPS_JMPADDR   = 5
	IMAGE_REL_BASED_THUMB_MOV32    = 7
	IMAGE_REL_BASED_MIPS_JMPADDR16 = 9
	IMAGE_REL_BASED_DIR64          = 10
)

// Debug directory types and CodeView signatures.
//
//nolint:revive // ALL_CAPS matches Windows SDK naming
const (
	IMAGE_DEBUG_TYPE_COFF     = 1
	IMAGE_DEBUG_TYPE_CODEVIEW = 2
	IMAGE_DEBUG_TYPE_MISC     = 4
	IMAGE_DEBUG_TYPE_POGO     = 13

	CV_SIGNATURE_RSDS = 0x53445352 // "RSDS"
	CV_SIGNATURE_NB10 = 0x3031424E // "NB10"
)

// MAX_PATH caps every NUL-terminated string pulled out of the image.
const MAX_PATH = 260 //nolint:revive // Windows SDK naming

// Bogus-data caps for the import walkers. Very unlikely a legitimate PE
// has more than 1000 import modules or 5000 functions per module.
const (
	maxImportModules   = 1000
	maxImportFunctions = 5000
)

// ImageDosHeader is IMAGE_DOS_HEADER.
type ImageDosHeader struct {
	EMagic    uint16
	ECblp     uint16
	ECp       uint16
	ECrlc     uint16
	ECparhdr  uint16
	EMinalloc uint16
	EMaxalloc uint16
	ESS       uint16
	ESP       uint16
	ECsum     uint16
	EIP       uint16
	ECS       uint16
	ELfarlc   uint16
	EOvno     uint16
	ERes      [4]uint16
	EOemid    uint16
	EOeminfo  uint16
	ERes2     [10]uint16
	ELfanew   uint32
}

// ImageFileHeader is IMAGE_FILE_HEADER.
type ImageFileHeader struct {
	Machine              uint16
	NumberOfSections     uint16
	TimeDateStamp        uint32
	PointerToSymbolTable uint32
	NumberOfSymbols      uint32
	SizeOfOptionalHeader uint16
	Characteristics      uint16
}

// ImageOptionalHeader32 is IMAGE_OPTIONAL_HEADER32 without the trailing
// data directory array, which is parsed separately.
type ImageOptionalHeader32 struct {
	Magic                       uint16
	MajorLinkerVersion          uint8
	MinorLinkerVersion          uint8
	SizeOfCode                  uint32
	SizeOfInitializedData       uint32
	SizeOfUninitializedData     uint32
	AddressOfEntryPoint         uint32
	BaseOfCode                  uint32
	BaseOfData                  uint32
	ImageBase                   uint32
	SectionAlignment            uint32
	FileAlignment               uint32
	MajorOperatingSystemVersion uint16
	MinorOperatingSystemVersion uint16
	MajorImageVersion           uint16
	MinorImageVersion           uint16
	MajorSubsystemVersion       uint16
	MinorSubsystemVersion       uint16
	Win32VersionValue           uint32
	SizeOfImage                 uint32
	SizeOfHeaders               uint32
	CheckSum                    uint32
	Subsystem                   uint16
	DllCharacteristics          uint16
	SizeOfStackReserve          uint32
	SizeOfStackCommit           uint32
	SizeOfHeapReserve           uint32
	SizeOfHeapCommit            uint32
	LoaderFlags                 uint32
	NumberOfRvaAndSizes         uint32
}

// ImageOptionalHeader64 is IMAGE_OPTIONAL_HEADER64 without the trailing
// data directory array.
type ImageOptionalHeader64 struct {
	Magic                       uint16
	MajorLinkerVersion          uint8
	MinorLinkerVersion          uint8
	SizeOfCode                  uint32
	SizeOfInitializedData       uint32
	SizeOfUninitializedData     uint32
	AddressOfEntryPoint         uint32
	BaseOfCode                  uint32
	ImageBase                   uint64
	SectionAlignment            uint32
	FileAlignment               uint32
	MajorOperatingSystemVersion uint16
	MinorOperatingSystemVersion uint16
	MajorImageVersion           uint16
	MinorImageVersion           uint16
	MajorSubsystemVersion       uint16
	MinorSubsystemVersion       uint16
	Win32VersionValue           uint32
	SizeOfImage                 uint32
	SizeOfHeaders               uint32
	CheckSum                    uint32
	Subsystem                   uint16
	DllCharacteristics          uint16
	SizeOfStackReserve          uint64
	SizeOfStackCommit           uint64
	SizeOfHeapReserve           uint64
	SizeOfHeapCommit            uint64
	LoaderFlags                 uint32
	NumberOfRvaAndSizes         uint32
}

// ImageDataDirectory is IMAGE_DATA_DIRECTORY.
type ImageDataDirectory struct {
	VirtualAddress uint32
	Size           uint32
}

// ImageSectionHeader is IMAGE_SECTION_HEADER. VirtualSize is the
// Misc union interpreted for images.
type ImageSectionHeader struct {
	Name                 [IMAGE_SIZEOF_SHORT_NAME]byte
	VirtualSize          uint32
	VirtualAddress       uint32
	SizeOfRawData        uint32
	PointerToRawData     uint32
	PointerToRelocations uint32
	PointerToLinenumbers uint32
	NumberOfRelocations  uint16
	NumberOfLinenumbers  uint16
	Characteristics      uint32
}

// ImageExportDirectory is IMAGE_EXPORT_DIRECTORY.
type ImageExportDirectory struct {
	Characteristics       uint32
	TimeDateStamp         uint32
	MajorVersion          uint16
	MinorVersion          uint16
	Name                  uint32
	Base                  uint32
	NumberOfFunctions     uint32
	NumberOfNames         uint32
	AddressOfFunctions    uint32
	AddressOfNames        uint32
	AddressOfNameOrdinals uint32
}

// ImageImportDescriptor is IMAGE_IMPORT_DESCRIPTOR.
type ImageImportDescriptor struct {
	OriginalFirstThunk uint32 // RVA to Import Name Table (INT).
	TimeDateStamp      uint32
	ForwarderChain     uint32
	Name               uint32 // RVA to DLL name.
	FirstThunk         uint32 // RVA to Import Address Table (IAT).
}

// ImageResourceDirectory is IMAGE_RESOURCE_DIRECTORY.
type ImageResourceDirectory struct {
	Characteristics      uint32
	TimeDateStamp        uint32
	MajorVersion         uint16
	MinorVersion         uint16
	NumberOfNamedEntries uint16
	NumberOfIdEntries    uint16
}

// ImageResourceDirectoryEntry is IMAGE_RESOURCE_DIRECTORY_ENTRY.
// The high bit of Name selects a string name; the high bit of
// OffsetToData selects a child directory.
type ImageResourceDirectoryEntry struct {
	Name         uint32
	OffsetToData uint32
}

// ImageResourceDataEntry is IMAGE_RESOURCE_DATA_ENTRY. OffsetToData is
// an RVA, not a resource-relative offset.
type ImageResourceDataEntry struct {
	OffsetToData uint32
	Size         uint32
	CodePage     uint32
	Reserved     uint32
}

// RuntimeFunction is the x64 RUNTIME_FUNCTION exception record.
type RuntimeFunction struct {
	BeginAddress      uint32
	EndAddress        uint32
	UnwindInfoAddress uint32
}

// WinCertificate is the WIN_CERTIFICATE header; the certificate body
// follows and is not copied into the model.
type WinCertificate struct {
	Length          uint32 // Includes this header.
	Revision        uint16
	CertificateType uint16
}

// ImageBaseRelocation is IMAGE_BASE_RELOCATION.
type ImageBaseRelocation struct {
	VirtualAddress uint32
	SizeOfBlock    uint32
}

// ImageDebugDirectory is IMAGE_DEBUG_DIRECTORY.
type ImageDebugDirectory struct {
	Characteristics  uint32
	TimeDateStamp    uint32
	MajorVersion     uint16
	MinorVersion     uint16
	Type             uint32
	SizeOfData       uint32
	AddressOfRawData uint32
	PointerToRawData uint32
}

// ImageTLSDirectory32 is IMAGE_TLS_DIRECTORY32.
type ImageTLSDirectory32 struct {
	StartAddressOfRawData uint32
	EndAddressOfRawData   uint32
	AddressOfIndex        uint32
	AddressOfCallBacks    uint32 // VA, not RVA.
	SizeOfZeroFill        uint32
	Characteristics       uint32
}

// ImageTLSDirectory64 is IMAGE_TLS_DIRECTORY64.
type ImageTLSDirectory64 struct {
	StartAddressOfRawData uint64
	EndAddressOfRawData   uint64
	AddressOfIndex        uint64
	AddressOfCallBacks    uint64 // VA, not RVA.
	SizeOfZeroFill        uint32
	Characteristics       uint32
}

// ImageLoadConfigDirectory32 is IMAGE_LOAD_CONFIG_DIRECTORY32 through
// the control-flow-guard fields.
type ImageLoadConfigDirectory32 struct {
	Size                           uint32
	TimeDateStamp                  uint32
	MajorVersion                   uint16
	MinorVersion                   uint16
	GlobalFlagsClear               uint32
	GlobalFlagsSet                 uint32
	CriticalSectionDefaultTimeout  uint32
	DeCommitFreeBlockThreshold     uint32
	DeCommitTotalFreeThreshold     uint32
	LockPrefixTable                uint32
	MaximumAllocationSize          uint32
	VirtualMemoryThreshold         uint32
	ProcessHeapFlags               uint32
	ProcessAffinityMask            uint32
	CSDVersion                     uint16
	DependentLoadFlags             uint16
	EditList                       uint32
	SecurityCookie                 uint32
	SEHandlerTable                 uint32
	SEHandlerCount                 uint32
	GuardCFCheckFunctionPointer    uint32
	GuardCFDispatchFunctionPointer uint32
	GuardCFFunctionTable           uint32
	GuardCFFunctionCount           uint32
	GuardFlags                     uint32
}

// ImageLoadConfigDirectory64 is IMAGE_LOAD_CONFIG_DIRECTORY64 through
// the control-flow-guard fields.
type ImageLoadConfigDirectory64 struct {
	Size                           uint32
	TimeDateStamp                  uint32
	MajorVersion                   uint16
	MinorVersion                   uint16
	GlobalFlagsClear               uint32
	GlobalFlagsSet                 uint32
	CriticalSectionDefaultTimeout  uint32
	DeCommitFreeBlockThreshold     uint64
	DeCommitTotalFreeThreshold     uint64
	LockPrefixTable                uint64
	MaximumAllocationSize          uint64
	VirtualMemoryThreshold         uint64
	ProcessAffinityMask            uint64
	ProcessHeapFlags               uint32
	CSDVersion                     uint16
	DependentLoadFlags             uint16
	EditList                       uint64
	SecurityCookie                 uint64
	SEHandlerTable                 uint64
	SEHandlerCount                 uint64
	GuardCFCheckFunctionPointer    uint64
	GuardCFDispatchFunctionPointer uint64
	GuardCFFunctionTable           uint64
	GuardCFFunctionCount           uint64
	GuardFlags                     uint32
}

// ImageBoundImportDescriptor is IMAGE_BOUND_IMPORT_DESCRIPTOR.
type ImageBoundImportDescriptor struct {
	TimeDateStamp               uint32
	OffsetModuleName            uint16 // Relative to the bound-import table base.
	NumberOfModuleForwarderRefs uint16
}

// ImageBoundForwarderRef is IMAGE_BOUND_FORWARDER_REF.
type ImageBoundForwarderRef struct {
	TimeDateStamp    uint32
	OffsetModuleName uint16 // Relative to the bound-import table base.
	Reserved         uint16
}

// ImageDelayloadDescriptor is IMAGE_DELAYLOAD_DESCRIPTOR.
type ImageDelayloadDescriptor struct {
	Attributes                 uint32
	DllNameRVA                 uint32
	ModuleHandleRVA            uint32
	ImportAddressTableRVA      uint32
	ImportNameTableRVA         uint32
	BoundImportAddressTableRVA uint32
	UnloadInformationTableRVA  uint32
	TimeDateStamp              uint32
}

// ImageCor20Header is IMAGE_COR20_HEADER (the CLR descriptor).
type ImageCor20Header struct {
	Cb                      uint32
	MajorRuntimeVersion     uint16
	MinorRuntimeVersion     uint16
	MetaData                ImageDataDirectory
	Flags                   uint32
	EntryPointTokenOrRVA    uint32
	Resources               ImageDataDirectory
	StrongNameSignature     ImageDataDirectory
	CodeManagerTable        ImageDataDirectory
	VTableFixups            ImageDataDirectory
	ExportAddressTableJumps ImageDataDirectory
	ManagedNativeHeader     ImageDataDirectory
}

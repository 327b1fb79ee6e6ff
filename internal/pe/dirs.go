package pe

// Parsers for the remaining directories: exception, load config, bound
// import, delay import, COM descriptor, and the presence-only trio
// (architecture, global pointer, IAT).

// ExceptionEntry is one x64 RUNTIME_FUNCTION record.
type ExceptionEntry struct {
	Offset   uint32 // File offset of the record.
	Function RuntimeFunction
}

// LoadConfig is the parsed load-config directory in whichever width
// the image carries.
type LoadConfig struct {
	Offset      uint32
	Directory32 *ImageLoadConfigDirectory32
	Directory64 *ImageLoadConfigDirectory64
}

// BoundModule is one bound-import descriptor with its in-line
// forwarder refs.
type BoundModule struct {
	Offset     uint32
	Descriptor ImageBoundImportDescriptor
	Name       string
	Forwarders []BoundForwarder
}

// BoundForwarder is one IMAGE_BOUND_FORWARDER_REF.
type BoundForwarder struct {
	Offset     uint32
	Descriptor ImageBoundForwarderRef
	Name       string
}

// DelayImportModule is one delay-load descriptor with its functions.
type DelayImportModule struct {
	Offset     uint32
	Descriptor ImageDelayloadDescriptor
	Name       string
	Functions  []DelayImportFunction
}

// DelayImportFunction mirrors ImportFunction across the four parallel
// delay-load thunk arrays. Thunks from absent arrays stay zero.
type DelayImportFunction struct {
	NameThunk       uint64 // From the import name table.
	IATThunk        uint64 // From the import address table.
	BoundIATThunk   uint64 // From the bound import address table.
	UnloadInfoThunk uint64 // From the unload information table.
	IsByOrdinal     bool
	Ordinal         uint16
	Hint            uint16
	Name            string
}

// ComDescriptor is the CLR (COM) header.
type ComDescriptor struct {
	Offset uint32
	Header ImageCor20Header
}

// runtimeFunctionSize is sizeof(RUNTIME_FUNCTION) on x64.
const runtimeFunctionSize = 12

func (f *File) parseExceptions() {
	dir := f.dirEntry(IMAGE_DIRECTORY_ENTRY_EXCEPTION)
	if dir.VirtualAddress == 0 || dir.Size == 0 {
		return
	}
	base, ok := f.rvaToOffset(uint64(dir.VirtualAddress))
	if !ok {
		return
	}

	numEntries := uint64(dir.Size) / runtimeFunctionSize
	var entries []ExceptionEntry
	for i := uint64(0); i < numEntries; i++ {
		off := base + i*runtimeFunctionSize
		var fn RuntimeFunction
		if !f.readStruct(off, &fn) {
			break
		}
		entries = append(entries, ExceptionEntry{Offset: uint32(off), Function: fn})
	}

	if len(entries) > 0 {
		f.exceptions = entries
		f.info.HasException = true
	}
}

func (f *File) parseLoadConfig() {
	dir := f.dirEntry(IMAGE_DIRECTORY_ENTRY_LOAD_CONFIG)
	if dir.VirtualAddress == 0 {
		return
	}
	off, ok := f.rvaToOffset(uint64(dir.VirtualAddress))
	if !ok {
		return
	}

	lc := &LoadConfig{Offset: uint32(off)}
	if f.info.IsPE64 {
		var d ImageLoadConfigDirectory64
		if !f.readStruct(off, &d) {
			return
		}
		lc.Directory64 = &d
	} else {
		var d ImageLoadConfigDirectory32
		if !f.readStruct(off, &d) {
			return
		}
		lc.Directory32 = &d
	}

	f.loadConfig = lc
	f.info.HasLoadCFG = true
}

func (f *File) parseBoundImport() {
	dir := f.dirEntry(IMAGE_DIRECTORY_ENTRY_BOUND_IMPORT)
	if dir.VirtualAddress == 0 {
		return
	}
	base, ok := f.rvaToOffset(uint64(dir.VirtualAddress))
	if !ok {
		return
	}

	var modules []BoundModule
	cur := base
	for {
		var desc ImageBoundImportDescriptor
		if !f.readStruct(cur, &desc) {
			break
		}
		if desc.TimeDateStamp == 0 {
			break
		}

		module := BoundModule{Offset: uint32(cur), Descriptor: desc}
		// Name offsets are relative to the bound-import table base.
		module.Name, _ = f.readCString(base+uint64(desc.OffsetModuleName), MAX_PATH)

		fwdOff := cur + 8
		for i := uint16(0); i < desc.NumberOfModuleForwarderRefs; i++ {
			var ref ImageBoundForwarderRef
			if !f.readStruct(fwdOff, &ref) {
				break
			}
			fwd := BoundForwarder{Offset: uint32(fwdOff), Descriptor: ref}
			fwd.Name, _ = f.readCString(base+uint64(ref.OffsetModuleName), MAX_PATH)
			module.Forwarders = append(module.Forwarders, fwd)
			fwdOff += 8
		}

		modules = append(modules, module)
		cur = fwdOff
	}

	if len(modules) > 0 {
		f.boundImports = modules
		f.info.HasBoundImp = true
	}
}

func (f *File) parseDelayImport() {
	dir := f.dirEntry(IMAGE_DIRECTORY_ENTRY_DELAY_IMPORT)
	if dir.VirtualAddress == 0 {
		return
	}

	var modules []DelayImportModule
	descRVA := uint64(dir.VirtualAddress)
	for len(modules) < maxImportModules {
		descOff, ok := f.rvaToOffset(descRVA)
		if !ok {
			break
		}
		var desc ImageDelayloadDescriptor
		if !f.readStruct(descOff, &desc) {
			break
		}
		if desc.DllNameRVA == 0 {
			break
		}
		descRVA += 32

		name := ""
		if nameOff, ok := f.rvaToOffset(uint64(desc.DllNameRVA)); ok {
			name, _ = f.readCString(nameOff, MAX_PATH)
		}

		modules = append(modules, DelayImportModule{
			Offset:     uint32(descOff),
			Descriptor: desc,
			Name:       name,
			Functions:  f.parseDelayThunks(&desc),
		})
	}

	if len(modules) > 0 {
		f.delayImports = modules
		f.info.HasDelayImp = true
	}
}

// parseDelayThunks walks the import name table and records, per
// position, the matching thunks from all four parallel arrays.
func (f *File) parseDelayThunks(desc *ImageDelayloadDescriptor) []DelayImportFunction {
	step := f.thunkSize()
	flag := f.ordinalFlag()

	// A parallel thunk reads as zero when its array is absent or the
	// read fails.
	parallel := func(tableRVA uint32, index uint64) uint64 {
		if tableRVA == 0 {
			return 0
		}
		off, ok := f.rvaToOffset(uint64(tableRVA) + index*step)
		if !ok {
			return 0
		}
		v, _ := f.readThunk(off)
		return v
	}

	var funcs []DelayImportFunction
	for i := uint64(0); len(funcs) < maxImportFunctions; i++ {
		nameThunk := parallel(desc.ImportNameTableRVA, i)
		if nameThunk == 0 {
			break
		}

		fn := DelayImportFunction{
			NameThunk:       nameThunk,
			IATThunk:        parallel(desc.ImportAddressTableRVA, i),
			BoundIATThunk:   parallel(desc.BoundImportAddressTableRVA, i),
			UnloadInfoThunk: parallel(desc.UnloadInformationTableRVA, i),
		}
		if nameThunk&flag != 0 {
			fn.IsByOrdinal = true
			fn.Ordinal = uint16(nameThunk)
		} else if nameOff, ok := f.rvaToOffset(nameThunk &^ flag); ok {
			if hint, ok := f.readU16(nameOff); ok {
				fn.Hint = hint
			}
			fn.Name, _ = f.readCString(nameOff+2, MAX_PATH)
		}
		funcs = append(funcs, fn)
	}
	return funcs
}

func (f *File) parseComDescriptor() {
	dir := f.dirEntry(IMAGE_DIRECTORY_ENTRY_COM_DESCRIPTOR)
	if dir.VirtualAddress == 0 {
		return
	}
	off, ok := f.rvaToOffset(uint64(dir.VirtualAddress))
	if !ok {
		return
	}
	var hdr ImageCor20Header
	if !f.readStruct(off, &hdr) {
		return
	}
	f.comDescriptor = &ComDescriptor{Offset: uint32(off), Header: hdr}
	f.info.HasCOMDescr = true
}

// The architecture, global-pointer and IAT directories carry no
// structure worth modelling; only presence is recorded.

func (f *File) parseArchitecture() {
	dir := f.dirEntry(IMAGE_DIRECTORY_ENTRY_ARCHITECTURE)
	if dir.VirtualAddress == 0 {
		return
	}
	if _, ok := f.rvaToOffset(uint64(dir.VirtualAddress)); ok {
		f.info.HasArchitecture = true
	}
}

func (f *File) parseGlobalPtr() {
	dir := f.dirEntry(IMAGE_DIRECTORY_ENTRY_GLOBALPTR)
	if dir.VirtualAddress == 0 {
		return
	}
	if _, ok := f.rvaToOffset(uint64(dir.VirtualAddress)); ok {
		f.info.HasGlobalPtr = true
	}
}

func (f *File) parseIAT() {
	dir := f.dirEntry(IMAGE_DIRECTORY_ENTRY_IAT)
	if dir.VirtualAddress == 0 {
		return
	}
	if _, ok := f.rvaToOffset(uint64(dir.VirtualAddress)); ok {
		f.info.HasIAT = true
	}
}

package pe

// ImportModule is one IMAGE_IMPORT_DESCRIPTOR with its resolved DLL
// name and function list.
type ImportModule struct {
	Offset     uint32 // File offset of the descriptor.
	Descriptor ImageImportDescriptor
	Name       string
	Functions  []ImportFunction
}

// ImportFunction is one import thunk. Thunk holds the raw 32- or
// 64-bit value; by-name imports carry the hint/name pair.
type ImportFunction struct {
	Thunk       uint64
	IsByOrdinal bool
	Ordinal     uint16
	Hint        uint16
	Name        string
}

// ordinalFlag returns the thunk ordinal bit for the image's bitness.
func (f *File) ordinalFlag() uint64 {
	if f.info.IsPE64 {
		return IMAGE_ORDINAL_FLAG64
	}
	return IMAGE_ORDINAL_FLAG32
}

// thunkSize returns the import thunk width for the image's bitness.
func (f *File) thunkSize() uint64 {
	if f.info.IsPE64 {
		return 8
	}
	return 4
}

// readThunk reads one thunk value at a file offset, widened to uint64.
func (f *File) readThunk(off uint64) (uint64, bool) {
	if f.info.IsPE64 {
		return f.readU64(off)
	}
	v, ok := f.readU32(off)
	return uint64(v), ok
}

func (f *File) parseImport() {
	dir := f.dirEntry(IMAGE_DIRECTORY_ENTRY_IMPORT)
	if dir.VirtualAddress == 0 {
		return
	}

	var modules []ImportModule
	descRVA := uint64(dir.VirtualAddress)
	for count := 0; count < maxImportModules; count++ {
		descOff, ok := f.rvaToOffset(descRVA)
		if !ok {
			break
		}
		var desc ImageImportDescriptor
		if !f.readStruct(descOff, &desc) {
			break
		}
		// The all-zero descriptor terminates the table.
		if desc.OriginalFirstThunk == 0 && desc.Name == 0 && desc.FirstThunk == 0 {
			break
		}
		descRVA += 20

		if desc.Name == 0 {
			continue
		}
		name := ""
		if nameOff, ok := f.rvaToOffset(uint64(desc.Name)); ok {
			name, _ = f.readCString(nameOff, MAX_PATH)
		}

		// Prefer the INT; fall back to the IAT when the linker left
		// OriginalFirstThunk zero.
		thunkRVA := uint64(desc.OriginalFirstThunk)
		if thunkRVA == 0 {
			thunkRVA = uint64(desc.FirstThunk)
		}

		modules = append(modules, ImportModule{
			Offset:     uint32(descOff),
			Descriptor: desc,
			Name:       name,
			Functions:  f.parseImportThunks(thunkRVA),
		})
	}

	if len(modules) > 0 {
		f.imports = modules
		f.info.HasImport = true
	}
}

// parseImportThunks walks a zero-terminated thunk array, decoding each
// entry by ordinal flag or hint/name record.
func (f *File) parseImportThunks(thunkRVA uint64) []ImportFunction {
	var funcs []ImportFunction
	step := f.thunkSize()
	flag := f.ordinalFlag()

	for len(funcs) < maxImportFunctions {
		thunkOff, ok := f.rvaToOffset(thunkRVA)
		if !ok {
			break
		}
		thunk, ok := f.readThunk(thunkOff)
		if !ok || thunk == 0 {
			break
		}
		thunkRVA += step

		fn := ImportFunction{Thunk: thunk}
		if thunk&flag != 0 {
			fn.IsByOrdinal = true
			fn.Ordinal = uint16(thunk)
		} else {
			// AddressOfData points at IMAGE_IMPORT_BY_NAME.
			if nameOff, ok := f.rvaToOffset(thunk &^ flag); ok {
				if hint, ok := f.readU16(nameOff); ok {
					fn.Hint = hint
				}
				fn.Name, _ = f.readCString(nameOff+2, MAX_PATH)
			}
		}
		funcs = append(funcs, fn)
	}
	return funcs
}

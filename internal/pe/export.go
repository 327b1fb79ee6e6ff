package pe

// Export is the parsed export directory.
type Export struct {
	Offset     uint32 // File offset of IMAGE_EXPORT_DIRECTORY.
	Directory  ImageExportDirectory
	ModuleName string
	Functions  []ExportFunction
}

// ExportFunction is one exported entry. ForwarderName is set when the
// function RVA points back inside the export directory itself.
type ExportFunction struct {
	RVA           uint32
	Ordinal       uint32 // Index into AddressOfFunctions.
	NameRVA       uint32
	Name          string
	ForwarderName string
}

func (f *File) parseExport() {
	dir := f.dirEntry(IMAGE_DIRECTORY_ENTRY_EXPORT)
	if dir.VirtualAddress == 0 {
		return
	}
	dirOff, ok := f.rvaToOffset(uint64(dir.VirtualAddress))
	if !ok {
		return
	}

	var exp ImageExportDirectory
	if !f.readStruct(dirOff, &exp) {
		return
	}

	exportStart := uint64(dir.VirtualAddress)
	exportEnd := exportStart + uint64(dir.Size)

	funcsOff, funcsOK := f.rvaToOffset(uint64(exp.AddressOfFunctions))
	ordsOff, ordsOK := f.rvaToOffset(uint64(exp.AddressOfNameOrdinals))
	namesOff, namesOK := f.rvaToOffset(uint64(exp.AddressOfNames))

	var funcs []ExportFunction
	if funcsOK {
		for i := uint64(0); i < uint64(exp.NumberOfFunctions); i++ {
			funcRVA, ok := f.readU32(funcsOff + i*4)
			if !ok {
				break
			}
			if funcRVA == 0 {
				continue
			}

			fn := ExportFunction{RVA: funcRVA, Ordinal: uint32(i)}

			// The ordinal table maps name indices to function indices;
			// scan it for our index to find the parallel name.
			if ordsOK && namesOK {
				for j := uint64(0); j < uint64(exp.NumberOfNames); j++ {
					ord, ok := f.readU16(ordsOff + j*2)
					if !ok {
						break
					}
					if uint64(ord) != i {
						continue
					}
					if nameRVA, ok := f.readU32(namesOff + j*4); ok {
						fn.NameRVA = nameRVA
						if nameOff, ok := f.rvaToOffset(uint64(nameRVA)); ok {
							fn.Name, _ = f.readCString(nameOff, MAX_PATH)
						}
					}
					break
				}
			}

			// An RVA inside the export directory is a forwarder string.
			if uint64(funcRVA) >= exportStart && uint64(funcRVA) < exportEnd {
				if fwdOff, ok := f.rvaToOffset(uint64(funcRVA)); ok {
					fn.ForwarderName, _ = f.readCString(fwdOff, MAX_PATH)
				}
			}

			funcs = append(funcs, fn)
		}
	}

	moduleName := ""
	if nameOff, ok := f.rvaToOffset(uint64(exp.Name)); ok {
		moduleName, _ = f.readCString(nameOff, MAX_PATH)
	}

	f.export = &Export{
		Offset:     uint32(dirOff),
		Directory:  exp,
		ModuleName: moduleName,
		Functions:  funcs,
	}
	f.info.HasExport = true
}

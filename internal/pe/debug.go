package pe

// DebugEntry is one IMAGE_DEBUG_DIRECTORY entry plus the first DWORDs
// of its payload. For CodeView entries the PDB path is pulled out of
// the RSDS or NB10 record.
type DebugEntry struct {
	Offset    uint32 // File offset of the directory entry.
	Directory ImageDebugDirectory
	Header    [6]uint32 // First six DWORDs of the raw payload.
	PDBPath   string
}

// debugDirEntrySize is sizeof(IMAGE_DEBUG_DIRECTORY).
const debugDirEntrySize = 28

// CodeView payload layouts place the NUL-terminated PDB path at a
// fixed offset past the signature.
const (
	cvRSDSPathOffset = 24
	cvNB10PathOffset = 16
)

func (f *File) parseDebug() {
	dir := f.dirEntry(IMAGE_DIRECTORY_ENTRY_DEBUG)
	if dir.VirtualAddress == 0 || dir.Size == 0 {
		return
	}
	entryOff, ok := f.rvaToOffset(uint64(dir.VirtualAddress))
	if !ok {
		return
	}

	numEntries := uint64(dir.Size) / debugDirEntrySize
	var entries []DebugEntry
	for i := uint64(0); i < numEntries; i++ {
		off := entryOff + i*debugDirEntrySize
		var dbg ImageDebugDirectory
		if !f.readStruct(off, &dbg) {
			break
		}

		entry := DebugEntry{Offset: uint32(off), Directory: dbg}

		// PointerToRawData is a plain file offset.
		payload := uint64(dbg.PointerToRawData)
		for j := uint64(0); j < 6; j++ {
			dw, ok := f.readU32(payload + j*4)
			if !ok {
				break
			}
			entry.Header[j] = dw
		}

		if dbg.Type == IMAGE_DEBUG_TYPE_CODEVIEW {
			switch entry.Header[0] {
			case CV_SIGNATURE_RSDS:
				entry.PDBPath, _ = f.readCString(payload+cvRSDSPathOffset, MAX_PATH)
			case CV_SIGNATURE_NB10:
				entry.PDBPath, _ = f.readCString(payload+cvNB10PathOffset, MAX_PATH)
			}
		}

		entries = append(entries, entry)
	}

	if len(entries) > 0 {
		f.debug = entries
		f.info.HasDebug = true
	}
}

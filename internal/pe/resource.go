package pe

// Resource directory entry flag bits: the high bit of Name selects a
// string name, the high bit of OffsetToData selects a subdirectory.
const resourceFlagBit = 0x80000000

// ResourceDir is one IMAGE_RESOURCE_DIRECTORY with its entries. The
// tree is at most three levels deep: type, name, language.
type ResourceDir struct {
	Offset    uint32 // File offset of the directory header.
	Directory ImageResourceDirectory
	Entries   []ResourceEntry
}

// ResourceEntry is one directory entry. Exactly one of Dir/Data is set
// for a well-formed entry; both stay nil for a terminal node cut off by
// the cycle or depth guard.
type ResourceEntry struct {
	Offset uint32 // File offset of the entry.
	Entry  ImageResourceDirectoryEntry
	Name   string // Unicode name, when the entry is named.
	Dir    *ResourceDir
	Data   *ResourceData
}

// ID returns the entry's numeric ID; it is meaningful only when the
// entry is not named.
func (e *ResourceEntry) ID() uint16 {
	return uint16(e.Entry.Name)
}

// IsNamed reports whether the entry carries a string name.
func (e *ResourceEntry) IsNamed() bool {
	return e.Entry.Name&resourceFlagBit != 0
}

// ResourceData is a leaf: the raw data entry plus a copy of the bytes
// it points at.
type ResourceData struct {
	Offset uint32 // File offset of IMAGE_RESOURCE_DATA_ENTRY.
	Entry  ImageResourceDataEntry
	Raw    []byte
}

// FlatResource is one linearised resource leaf.
type FlatResource struct {
	TypeID   uint16
	TypeName string
	NameID   uint16
	Name     string
	LangID   uint16
	LangName string
	Data     []byte
}

func (f *File) parseResources() {
	dir := f.dirEntry(IMAGE_DIRECTORY_ENTRY_RESOURCE)
	if dir.VirtualAddress == 0 {
		return
	}
	rootOff, ok := f.rvaToOffset(uint64(dir.VirtualAddress))
	if !ok {
		return
	}
	root := f.parseResourceDir(rootOff, rootOff, 1, nil)
	if root == nil {
		return
	}
	f.resources = root
	f.info.HasResource = true
}

// parseResourceDir reads one directory level. rootOff anchors the
// directory-relative offsets inside entries; ancestors carries the
// offsets of every directory on the current descent path for the cycle
// guard.
func (f *File) parseResourceDir(rootOff, dirOff uint64, level int, ancestors []uint64) *ResourceDir {
	var hdr ImageResourceDirectory
	if !f.readStruct(dirOff, &hdr) {
		return nil
	}

	rd := &ResourceDir{Offset: uint32(dirOff), Directory: hdr}
	total := uint64(hdr.NumberOfNamedEntries) + uint64(hdr.NumberOfIdEntries)
	for i := uint64(0); i < total; i++ {
		entryOff := dirOff + 16 + i*8
		var raw ImageResourceDirectoryEntry
		if !f.readStruct(entryOff, &raw) {
			break
		}
		entry := ResourceEntry{Offset: uint32(entryOff), Entry: raw}

		if raw.Name&resourceFlagBit != 0 {
			entry.Name, _ = f.readResourceString(rootOff + uint64(raw.Name&^resourceFlagBit))
		}

		if raw.OffsetToData&resourceFlagBit != 0 {
			childOff := rootOff + uint64(raw.OffsetToData&^resourceFlagBit)
			// A child pointing back at the root, at any directory on
			// the descent path, or below the three-level bound becomes
			// a terminal empty node instead of a loop.
			if level < 3 && childOff != rootOff && childOff != dirOff && !containsOffset(ancestors, childOff) {
				next := make([]uint64, len(ancestors), len(ancestors)+1)
				copy(next, ancestors)
				entry.Dir = f.parseResourceDir(rootOff, childOff, level+1, append(next, dirOff))
			}
		} else {
			dataOff := rootOff + uint64(raw.OffsetToData)
			var de ImageResourceDataEntry
			if f.readStruct(dataOff, &de) {
				data := &ResourceData{Offset: uint32(dataOff), Entry: de}
				// OffsetToData here is an RVA; the data may run to
				// exactly EOF.
				if p, ok := f.rvaToOffset(uint64(de.OffsetToData)); ok {
					data.Raw, _ = f.readBytes(p, uint64(de.Size))
				}
				entry.Data = data
			}
		}

		rd.Entries = append(rd.Entries, entry)
	}
	return rd
}

func containsOffset(offsets []uint64, off uint64) bool {
	for _, o := range offsets {
		if o == off {
			return true
		}
	}
	return false
}

// FlattenResources produces one row per resource leaf, preserving tree
// order. Leaves can sit at any level; rows for shallow leaves keep the
// deeper columns zeroed.
func (f *File) FlattenResources() []FlatResource {
	if !f.info.HasResource {
		return nil
	}

	var rows []FlatResource
	for i := range f.resources.Entries {
		typeEntry := &f.resources.Entries[i]
		row := FlatResource{}
		if typeEntry.IsNamed() {
			row.TypeName = typeEntry.Name
		} else {
			row.TypeID = typeEntry.ID()
		}

		if typeEntry.Data != nil {
			row.Data = typeEntry.Data.Raw
			rows = append(rows, row)
			continue
		}
		if typeEntry.Dir == nil {
			continue
		}

		for j := range typeEntry.Dir.Entries {
			nameEntry := &typeEntry.Dir.Entries[j]
			nameRow := row
			if nameEntry.IsNamed() {
				nameRow.Name = nameEntry.Name
			} else {
				nameRow.NameID = nameEntry.ID()
			}

			if nameEntry.Data != nil {
				nameRow.Data = nameEntry.Data.Raw
				rows = append(rows, nameRow)
				continue
			}
			if nameEntry.Dir == nil {
				continue
			}

			for k := range nameEntry.Dir.Entries {
				langEntry := &nameEntry.Dir.Entries[k]
				langRow := nameRow
				if langEntry.IsNamed() {
					langRow.LangName = langEntry.Name
				} else {
					langRow.LangID = langEntry.ID()
				}
				if langEntry.Data != nil {
					langRow.Data = langEntry.Data.Raw
					rows = append(rows, langRow)
				}
			}
		}
	}
	return rows
}

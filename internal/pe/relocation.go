package pe

import "fmt"

// RelocBlock is one IMAGE_BASE_RELOCATION block with its decoded
// 16-bit entries.
type RelocBlock struct {
	Offset  uint32 // File offset of the block header.
	Header  ImageBaseRelocation
	Entries []RelocEntry
}

// RelocEntry is one relocation slot: the high 4 bits of the raw word
// are the type, the low 12 bits the offset within the block's page. A
// HIGHADJ relocation occupies two slots; the second is recorded with
// the same type and carries the full 16-bit low half in PageOffset.
type RelocEntry struct {
	Offset     uint32 // File offset of the 16-bit slot.
	Type       uint16
	PageOffset uint16
}

func (f *File) parseRelocations() {
	dir := f.dirEntry(IMAGE_DIRECTORY_ENTRY_BASERELOC)
	if dir.VirtualAddress == 0 || dir.Size == 0 {
		return
	}
	blockOff, ok := f.rvaToOffset(uint64(dir.VirtualAddress))
	if !ok {
		return
	}
	end := blockOff + uint64(dir.Size)

	var blocks []RelocBlock
	for blockOff+8 <= end {
		var hdr ImageBaseRelocation
		if !f.readStruct(blockOff, &hdr) {
			break
		}
		if hdr.VirtualAddress == 0 && hdr.SizeOfBlock == 0 {
			break
		}

		block := RelocBlock{Offset: uint32(blockOff), Header: hdr}
		if hdr.SizeOfBlock < 8 {
			// A block too small for its own header ends the walk but
			// is still recorded, empty.
			blocks = append(blocks, block)
			break
		}

		numEntries := uint64(hdr.SizeOfBlock-8) / 2
		entryOff := blockOff + 8
		for i := uint64(0); i < numEntries; i++ {
			word, ok := f.readU16(entryOff)
			if !ok {
				break
			}
			relType := word >> 12
			block.Entries = append(block.Entries, RelocEntry{
				Offset:     uint32(entryOff),
				Type:       relType,
				PageOffset: word & 0x0FFF,
			})
			entryOff += 2

			// HIGHADJ consumes a second slot holding the low 16 bits
			// of the 32-bit value.
			if relType == IMAGE_REL_BASED_HIGHADJ {
				i++
				if i >= numEntries {
					break
				}
				low, ok := f.readU16(entryOff)
				if !ok {
					break
				}
				block.Entries = append(block.Entries, RelocEntry{
					Offset:     uint32(entryOff),
					Type:       relType,
					PageOffset: low,
				})
				entryOff += 2
			}
		}
		blocks = append(blocks, block)

		next := blockOff + uint64(hdr.SizeOfBlock)
		if next <= blockOff {
			break
		}
		blockOff = next
	}

	if len(blocks) > 0 {
		f.relocations = blocks
		f.info.HasReloc = true
	}
}

// RelocTypeName returns the name of a relocation type.
func RelocTypeName(relType uint16) string {
	switch relType {
	case IMAGE_REL_BASED_ABSOLUTE:
		return "ABSOLUTE"
	case IMAGE_REL_BASED_HIGH:
		return "HIGH"
	case IMAGE_REL_BASED_LOW:
		return "LOW"
	case IMAGE_REL_BASED_HIGHLOW:
		return "HIGHLOW"
	case IMAGE_REL_BASED_HIGHADJ:
		return "HIGHADJ"
	case IMAGE_REL_BASED_MIPS_JMPADDR:
		return "MIPS_JMPADDR/ARM_MOV32"
	case IMAGE_REL_BASED_THUMB_MOV32:
		return "THUMB_MOV32"
	case IMAGE_REL_BASED_MIPS_JMPADDR16:
		return "MIPS_JMPADDR16"
	case IMAGE_REL_BASED_DIR64:
		return "DIR64"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", relType)
	}
}

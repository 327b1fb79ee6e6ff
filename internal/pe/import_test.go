package pe

import "testing"

// writeSingleImport lays out a 32-bit import table at rva with one
// descriptor, one by-name function and the terminating descriptor.
// intZero leaves OriginalFirstThunk zero to exercise the FirstThunk
// fallback.
func writeSingleImport(b *imageBuilder, rva uint32, dll, fn string, intZero bool) {
	thunkRVA := rva + 40
	hintNameRVA := rva + 48
	dllNameRVA := hintNameRVA + 2 + uint32(len(fn)) + 1

	off := b.rvaToOff(rva)
	if !intZero {
		b.putU32(off, thunkRVA) // OriginalFirstThunk
	}
	b.putU32(off+12, dllNameRVA) // Name
	b.putU32(off+16, thunkRVA)   // FirstThunk
	// Descriptor at off+20 stays zero: the terminator.

	b.putU32(b.rvaToOff(thunkRVA), hintNameRVA)
	// Thunk at +4 stays zero: array terminator.

	hintNameOff := b.rvaToOff(hintNameRVA)
	b.putU16(hintNameOff, 7) // Hint
	b.putString(hintNameOff+2, fn)
	b.putString(b.rvaToOff(dllNameRVA), dll)
}

func TestParseImportFirstThunkFallback(t *testing.T) {
	// OriginalFirstThunk = 0: the walker must fall back to FirstThunk.
	b := newImage(0x2000, false)
	b.addTextSection()
	b.setDir(IMAGE_DIRECTORY_ENTRY_IMPORT, 0x1000, 40)
	writeSingleImport(b, 0x1000, "kernel32.dll", "ExitProcess", true)
	f := mustLoad(t, b.build())

	imports := f.Imports()
	if len(imports) != 1 {
		t.Fatalf("Imports() = %d modules, want 1", len(imports))
	}
	mod := imports[0]
	if mod.Name != "kernel32.dll" {
		t.Errorf("module name = %q, want kernel32.dll", mod.Name)
	}
	if mod.Descriptor.OriginalFirstThunk != 0 {
		t.Errorf("OriginalFirstThunk = 0x%X, want 0", mod.Descriptor.OriginalFirstThunk)
	}
	if len(mod.Functions) != 1 {
		t.Fatalf("functions = %d, want 1", len(mod.Functions))
	}
	fn := mod.Functions[0]
	if fn.Name != "ExitProcess" || fn.IsByOrdinal {
		t.Errorf("function = %+v, want by-name ExitProcess", fn)
	}
	if fn.Hint != 7 {
		t.Errorf("hint = %d, want 7", fn.Hint)
	}
}

func TestParseImportPrefersINT(t *testing.T) {
	b := newImage(0x2000, false)
	b.addTextSection()
	b.setDir(IMAGE_DIRECTORY_ENTRY_IMPORT, 0x1000, 40)
	writeSingleImport(b, 0x1000, "user32.dll", "MessageBoxA", false)
	// Point FirstThunk at an empty array: only the INT yields the name.
	b.putU32(b.rvaToOff(0x1000)+16, 0x1200)
	f := mustLoad(t, b.build())

	imports := f.Imports()
	if len(imports) != 1 || len(imports[0].Functions) != 1 {
		t.Fatalf("Imports() = %+v, want one module with one function", imports)
	}
	if imports[0].Functions[0].Name != "MessageBoxA" {
		t.Errorf("function name = %q, want MessageBoxA", imports[0].Functions[0].Name)
	}
}

func TestParseImportByOrdinal32(t *testing.T) {
	b := newImage(0x2000, false)
	b.addTextSection()
	b.setDir(IMAGE_DIRECTORY_ENTRY_IMPORT, 0x1000, 40)

	// Descriptor with an ordinal import: bit 31 set, ordinal 42.
	thunkRVA := uint32(0x1040)
	dllNameRVA := uint32(0x1050)
	off := b.rvaToOff(0x1000)
	b.putU32(off, thunkRVA)
	b.putU32(off+12, dllNameRVA)
	b.putU32(off+16, thunkRVA)
	b.putU32(b.rvaToOff(thunkRVA), IMAGE_ORDINAL_FLAG32|42)
	b.putString(b.rvaToOff(dllNameRVA), "ws2_32.dll")
	f := mustLoad(t, b.build())

	imports := f.Imports()
	if len(imports) != 1 || len(imports[0].Functions) != 1 {
		t.Fatalf("Imports() = %+v, want one module with one function", imports)
	}
	fn := imports[0].Functions[0]
	if !fn.IsByOrdinal || fn.Ordinal != 42 {
		t.Errorf("function = %+v, want ordinal 42", fn)
	}
}

func TestParseImportByOrdinal64(t *testing.T) {
	// The 64-bit ordinal flag sits in bit 63.
	b := newImage(0x2000, true)
	b.addTextSection()
	b.setDir(IMAGE_DIRECTORY_ENTRY_IMPORT, 0x1000, 40)

	thunkRVA := uint32(0x1040)
	dllNameRVA := uint32(0x1060)
	off := b.rvaToOff(0x1000)
	b.putU32(off, thunkRVA)
	b.putU32(off+12, dllNameRVA)
	b.putU32(off+16, thunkRVA)
	b.putU64(b.rvaToOff(thunkRVA), IMAGE_ORDINAL_FLAG64|977)
	b.putString(b.rvaToOff(dllNameRVA), "ntdll.dll")
	f := mustLoad(t, b.build())

	imports := f.Imports()
	if len(imports) != 1 || len(imports[0].Functions) != 1 {
		t.Fatalf("Imports() = %+v, want one module with one function", imports)
	}
	fn := imports[0].Functions[0]
	if !fn.IsByOrdinal || fn.Ordinal != 977 {
		t.Errorf("function = %+v, want ordinal 977", fn)
	}
}

func TestParseImportUnresolvableThunks(t *testing.T) {
	// A descriptor whose thunk array RVA maps nowhere yields the module
	// with an empty function list rather than an error.
	b := newImage(0x2000, false)
	b.addTextSection()
	b.setDir(IMAGE_DIRECTORY_ENTRY_IMPORT, 0x1000, 40)

	off := b.rvaToOff(0x1000)
	b.putU32(off, 0x9000_0000) // far outside every section
	b.putU32(off+12, 0x1050)
	b.putU32(off+16, 0x9000_0000)
	b.putString(b.rvaToOff(0x1050), "broken.dll")
	f := mustLoad(t, b.build())

	imports := f.Imports()
	if len(imports) != 1 {
		t.Fatalf("Imports() = %d modules, want 1", len(imports))
	}
	if len(imports[0].Functions) != 0 {
		t.Errorf("functions = %d, want 0", len(imports[0].Functions))
	}
}

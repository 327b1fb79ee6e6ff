package pe

import "testing"

// writeRichStub writes a Rich stub between 0x80 and the NT headers:
// the xored "DanS" preamble, the given entries, the "Rich" signature
// and the key.
func writeRichStub(b *imageBuilder, key uint32, entries []RichEntry) {
	b.putU32(0x80, IMAGE_DANS_SIGNATURE^key)
	b.putU32(0x84, 0^key)
	b.putU32(0x88, 0^key)
	b.putU32(0x8C, 0^key)

	off := uint32(0x90)
	for _, e := range entries {
		d1 := uint32(e.BuildID)<<16 | uint32(e.ProductID)
		b.putU32(off, d1^key)
		b.putU32(off+4, e.Count^key)
		off += 8
	}
	b.putU32(off, IMAGE_RICH_SIGNATURE)
	b.putU32(off+4, key)
}

func TestParseRichHeader(t *testing.T) {
	b := newImage(0x400, false)
	b.lfanew = 0xA0
	b.addTextSection()
	writeRichStub(b, 0xDEADBEEF, []RichEntry{
		{ProductID: 0x0001, BuildID: 0x1234, Count: 5},
	})
	f := mustLoad(t, b.build())

	if !f.Info().HasRichHdr {
		t.Fatalf("HasRichHdr = false, want true")
	}
	entries := f.RichEntries()
	if len(entries) != 1 {
		t.Fatalf("RichEntries() = %d entries, want 1", len(entries))
	}
	got := entries[0]
	want := RichEntry{Offset: 0x90, ProductID: 0x0001, BuildID: 0x1234, Count: 5}
	if got != want {
		t.Errorf("RichEntries()[0] = %+v, want %+v", got, want)
	}
}

func TestParseRichHeaderMultipleEntries(t *testing.T) {
	b := newImage(0x400, false)
	b.lfanew = 0xB0
	b.addTextSection()
	want := []RichEntry{
		{Offset: 0x90, ProductID: 0x00AA, BuildID: 0x5011, Count: 3},
		{Offset: 0x98, ProductID: 0x0103, BuildID: 0x520D, Count: 17},
	}
	writeRichStub(b, 0x11223344, want)
	f := mustLoad(t, b.build())

	entries := f.RichEntries()
	if len(entries) != 2 {
		t.Fatalf("RichEntries() = %d entries, want 2", len(entries))
	}
	for i := range want {
		if entries[i] != want[i] {
			t.Errorf("entry %d = %+v, want %+v", i, entries[i], want[i])
		}
	}
}

func TestRichHeaderRejected(t *testing.T) {
	tests := []struct {
		name  string
		setup func(b *imageBuilder)
	}{
		{
			name: "Rich signature before 0x90",
			setup: func(b *imageBuilder) {
				// A stub with no room for entries: Rich at 0x88.
				key := uint32(0xCAFEBABE)
				b.putU32(0x80, IMAGE_DANS_SIGNATURE^key)
				b.putU32(0x84, 0^key)
				b.putU32(0x88, IMAGE_RICH_SIGNATURE)
				b.putU32(0x8C, key)
			},
		},
		{
			name: "Wrong xor key",
			setup: func(b *imageBuilder) {
				b.putU32(0x80, IMAGE_DANS_SIGNATURE^0x11111111)
				b.putU32(0x90, 0x12345678)
				b.putU32(0x94, 0x55^0x22222222)
				b.putU32(0x98, IMAGE_RICH_SIGNATURE)
				b.putU32(0x9C, 0x22222222)
			},
		},
		{
			name:  "No stub at all",
			setup: func(b *imageBuilder) {},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newImage(0x400, false)
			b.lfanew = 0xA0
			b.addTextSection()
			tt.setup(b)
			f := mustLoad(t, b.build())
			if f.Info().HasRichHdr {
				t.Errorf("HasRichHdr = true, want false")
			}
			if f.RichEntries() != nil {
				t.Errorf("RichEntries() = %v, want nil", f.RichEntries())
			}
		})
	}
}

func TestSectionNames(t *testing.T) {
	b := newImage(0x2000, false)
	b.addTextSection()
	// A long-name section: "/12" points into the COFF string table at
	// symTable + numSymbols*18 + 12.
	b.addSection("/12", 0x2000, 0x1000, 0x1400, 0x200)
	b.symTable = 0x1800
	b.numSymbols = 4
	tableOff := b.symTable + b.numSymbols*IMAGE_SIZEOF_SYMBOL
	b.putString(tableOff+12, ".debug_abbrev")
	f := mustLoad(t, b.build())

	sections := f.Sections()
	if len(sections) != 2 {
		t.Fatalf("Sections() = %d entries, want 2", len(sections))
	}
	if sections[0].Name != ".text" {
		t.Errorf("section 0 name = %q, want .text", sections[0].Name)
	}
	if sections[1].Name != ".debug_abbrev" {
		t.Errorf("section 1 name = %q, want .debug_abbrev", sections[1].Name)
	}
	// The raw 8-byte field stays untouched.
	if got := string(sections[1].Header.Name[:3]); got != "/12" {
		t.Errorf("raw name = %q, want /12 prefix", got)
	}
}

func TestSectionLongNameOutOfBounds(t *testing.T) {
	// A string-table offset beyond the file keeps the raw slash name.
	b := newImage(0x2000, false)
	b.addSection("/999999", 0x1000, 0x1000, 0x400, 0x1000)
	b.symTable = 0x1800
	b.numSymbols = 0xFFFFFF
	f := mustLoad(t, b.build())

	sections := f.Sections()
	if len(sections) != 1 {
		t.Fatalf("Sections() = %d entries, want 1", len(sections))
	}
	if sections[0].Name != "/999999" {
		t.Errorf("section name = %q, want raw /999999", sections[0].Name)
	}
}

func TestDataDirectories(t *testing.T) {
	b := newImage(0x2000, false)
	b.addTextSection()
	b.setDir(IMAGE_DIRECTORY_ENTRY_IMPORT, 0x1100, 40)
	// Security's VirtualAddress is a file offset; no section name may
	// be attached to it.
	b.setDir(IMAGE_DIRECTORY_ENTRY_SECURITY, 0x1400, 16)
	f := mustLoad(t, b.build())

	dirs := f.DataDirs()
	if len(dirs) != 15 {
		t.Fatalf("DataDirs() = %d entries, want 15 (capped)", len(dirs))
	}
	imp := dirs[IMAGE_DIRECTORY_ENTRY_IMPORT]
	if imp.SectionName != ".text" {
		t.Errorf("import dir section = %q, want .text", imp.SectionName)
	}
	sec := dirs[IMAGE_DIRECTORY_ENTRY_SECURITY]
	if sec.SectionName != "" {
		t.Errorf("security dir section = %q, want empty", sec.SectionName)
	}
}

func TestDataDirectoriesCapped(t *testing.T) {
	// NumberOfRvaAndSizes beyond the COM descriptor index is clamped.
	b := newImage(0x2000, false)
	b.addTextSection()
	b.numDirs = 64
	f := mustLoad(t, b.build())

	if len(f.DataDirs()) != 15 {
		t.Errorf("DataDirs() = %d entries, want 15", len(f.DataDirs()))
	}
}

package pe

// TLS is the parsed thread-local-storage directory. Exactly one of
// Directory32/Directory64 is non-nil, matching the image bitness.
// Callbacks holds the DWORDs read from the callback array.
type TLS struct {
	Offset      uint32 // File offset of the TLS directory.
	Directory32 *ImageTLSDirectory32
	Directory64 *ImageTLSDirectory64
	Callbacks   []uint32
}

func (f *File) parseTLS() {
	dir := f.dirEntry(IMAGE_DIRECTORY_ENTRY_TLS)
	if dir.VirtualAddress == 0 {
		return
	}
	tlsOff, ok := f.rvaToOffset(uint64(dir.VirtualAddress))
	if !ok {
		return
	}

	tls := &TLS{Offset: uint32(tlsOff)}
	var callbacksVA uint64

	if f.info.IsPE64 {
		var d ImageTLSDirectory64
		if !f.readStruct(tlsOff, &d) {
			return
		}
		tls.Directory64 = &d
		callbacksVA = d.AddressOfCallBacks
	} else {
		var d ImageTLSDirectory32
		if !f.readStruct(tlsOff, &d) {
			return
		}
		tls.Directory32 = &d
		callbacksVA = uint64(d.AddressOfCallBacks)
	}

	// AddressOfCallBacks is a VA; the callback array is zero-terminated
	// and any read escaping the image also terminates it.
	if callbacksVA >= f.imageBase {
		if cbOff, ok := f.rvaToOffset(callbacksVA - f.imageBase); ok {
			for {
				cb, ok := f.readU32(cbOff)
				if !ok || cb == 0 {
					break
				}
				tls.Callbacks = append(tls.Callbacks, cb)
				cbOff += 4
			}
		}
	}

	f.tls = tls
	f.info.HasTLS = true
}

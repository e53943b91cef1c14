// Package serialization stores lowered programs as context binaries (.bctx).
//
// A context binary holds everything an accelerator runtime needs to rebuild
// the program without the original graph: tensor declarations, op list,
// graph inputs and outputs, and the bytes of every static tensor.
//
//	Layout:
//	  0x00  [4 bytes:  Magic "BCTX"]
//	  0x04  [4 bytes:  Version (uint32 LE)]
//	  0x08  [4 bytes:  Flags (uint32 LE)]
//	  0x0C  [4 bytes:  Reserved]
//	  0x10  [8 bytes:  Header size (uint64 LE)]
//	  0x18  [8 bytes:  Data size (uint64 LE)]
//	  0x20  [32 bytes: SHA-256 of the data section]
//	  0x40  [Header: JSON]
//	        [Padding to 64 bytes]
//	        [Data: static tensors, each 64-byte aligned]
//
// Example:
//
//	prog, err := lower.Lower(ctx, g, lower.Options{})
//	if err != nil {
//	    return err
//	}
//	if _, err := serialization.WriteFile("model.bctx", prog, serialization.WriterOptions{}); err != nil {
//	    return err
//	}
//
//	r, err := serialization.Open("model.bctx")
//	if err != nil {
//	    return err
//	}
//	defer r.Close()
//	positions, err := r.ReadStatic("arange")
package serialization

// Package view overlays declarative record layouts on an artifact.
//
// # Overview
//
// A View is a cursor over one artifact in a fixed address unit: bytes for
// an OctetView, bits for a BitView. Fields are decoded at the cursor by a
// Kind (unsigned integer, text, opaque span, constant, array, nested
// layout, pointer) and the cursor advances past them:
//
//	v := view.NewOctetView(a)
//	hdr, err := v.Struct("header",
//	    view.F("magic", view.Const{Value: 0x72656766}, 4),
//	    view.F("seq1", view.Uint{Order: view.LittleEndian}, 4),
//	    view.F("name", view.Text{}, 64),
//	)
//	if err != nil {
//	    return false // not this format
//	}
//	v.Insert(hdr)
//
// Decoding never claims anything. A parse that is abandoned leaves the
// artifact's index untouched; Insert claims a field or struct explicitly.
//
// # Pointers
//
// A PointerTo field decodes an address. When it names a target kind (or an
// Expand function), the address is requested from the view's discovery
// queue, which decodes and claims the target exactly once no matter how
// many pointers name it and without recursing on long or cyclic chains.
// Pointers whose target holds no claimed leaf are listed by Unresolved and
// annotated by Render.
//
// # Rendering
//
// Render yields one line per claimed leaf in index order (structs add one
// indented line per field), with gap lines for unclaimed ranges. It is a
// pure function of the index, so rendering twice gives the same text.
package view

// Package regf excavates Windows registry hives. It claims the base block
// and hive bin headers, walks the key tree from the root cell through the
// subkey lists, records key names as a name space on the hive artifact,
// and derives one artifact per hive bin.
package regf

import (
	"fmt"

	"golang.org/x/text/encoding/unicode"

	"github.com/joshuapare/digkit/dig/artifact"
	"github.com/joshuapare/digkit/dig/charset"
	"github.com/joshuapare/digkit/dig/view"
	"github.com/joshuapare/digkit/pkg/types"
)

const (
	// Tag marks artifacts recognized as hives.
	Tag = "regf"
	// HBINTag marks the hive bins derived from a hive.
	HBINTag = "hbin"
)

const (
	checksumAllOnes            = 0xFFFFFFFF
	checksumAllOnesReplacement = 0xFFFFFFFE
	checksumAllZeros           = 0x00000000
	checksumAllZerosReplace    = 0x00000001
)

var (
	le  = view.LittleEndian
	u16 = view.Uint{Order: view.LittleEndian}
	u32 = view.Uint{Order: view.LittleEndian}

	utf16le = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)
)

// Examiner recognizes registry hives.
type Examiner struct{}

func New() Examiner { return Examiner{} }

func (Examiner) Name() string { return "regf" }

func (Examiner) Examine(a *artifact.Artifact) bool {
	if a.Len() <= HeaderSize {
		return false
	}
	sig, err := a.Slice(0, len(Signature))
	if err != nil || string(sig) != Signature {
		return false
	}

	h := &hive{a: a, v: view.NewOctetView(a), ns: artifact.NewNameSpace()}
	base, err := h.baseBlock()
	if err != nil {
		a.Tag(Tag)
		h.problem(0, "base block", err.Error())
		return true
	}
	a.Tag(Tag)
	h.v.Insert(base)
	h.verifyChecksum(base)

	if bb, err := a.Derive(0, HeaderSize); err == nil {
		bb.AddName("base block")
	}
	bins := h.hbins()

	if un := h.v.Unresolved(); len(un) > 0 {
		a.Notef("%d unresolved cell references", len(un))
	}
	a.SetNameSpace(h.ns)
	a.Logger().Info("hive excavated", "keys", h.keys, "bins", bins)
	return true
}

// hive is the state of one examination.
type hive struct {
	a    *artifact.Artifact
	v    *view.View
	ns   *artifact.NameSpace
	keys int
}

func (h *hive) problem(addr int, structure, issue string) {
	h.a.Notef("%s at %s: %s", structure, h.v.FormatAddr(addr), issue)
	h.a.Diagnose(types.Diagnostic{
		Severity:  types.SevError,
		Category:  types.DiagStructure,
		Offset:    addr,
		Structure: structure,
		Issue:     issue,
	})
}

func (h *hive) baseBlock() (*view.Struct, error) {
	if err := h.v.Seek(0); err != nil {
		return nil, err
	}
	return h.v.Build("base block").
		Add("signature", view.Magic{Bytes: []byte(Signature)}, 4).
		Add("primary_seq", u32, 4).
		Add("secondary_seq", u32, 4).
		Add("timestamp", u32, 8).
		Add("major", u32, 4).
		Add("minor", u32, 4).
		Add("type", u32, 4).
		Add("format", u32, 4).
		Add("root_cell", h.keyPointer(h.ns), 4).
		Add("data_size", u32, 4).
		Add("cluster", u32, 4).
		Add("file_name", view.Text{CharWidth: 2, Order: le, TrimNUL: true}, REGFFileNameSize).
		Pad(REGFReservedSize).
		Add("checksum", u32, 4).
		Done(HeaderSize)
}

// verifyChecksum compares the stored checksum with the XOR of the first
// 127 dwords.
func (h *hive) verifyChecksum(base *view.Struct) {
	var sum uint32
	for i := range REGFChecksumDwords {
		d, err := h.a.Uint(i*4, 4, le)
		if err != nil {
			return
		}
		sum ^= uint32(d)
	}
	switch sum {
	case checksumAllOnes:
		sum = checksumAllOnesReplacement
	case checksumAllZeros:
		sum = checksumAllZerosReplace
	}
	if got := uint32(base.Uint("checksum")); got != sum {
		h.a.Notef("base block checksum 0x%08x, computed 0x%08x", got, sum)
		h.a.Diagnose(types.Diagnostic{
			Severity:  types.SevWarning,
			Category:  types.DiagIntegrity,
			Offset:    REGFCheckSumOffset,
			Structure: "base block",
			Issue:     "checksum mismatch",
			Expected:  sum,
			Actual:    got,
		})
	}
}

// hbins claims every hive bin header and derives the bins.
func (h *hive) hbins() int {
	n := 0
	for off := HiveDataBase; off+HBINHeaderSize <= h.a.Len(); {
		if sig, _ := h.a.Slice(off, off+len(HBINSignature)); n > 0 && string(sig) != HBINSignature {
			// Slack after the last bin is left to gap synthesis.
			h.a.Logger().Debug("hive data ends", "offset", off)
			break
		}
		s, err := h.v.StructAt(off, "hbin",
			view.F("signature", view.Magic{Bytes: []byte(HBINSignature)}, 4),
			view.F("offset", u32, 4),
			view.F("size", u32, 4),
			view.F("reserved", view.Span{}, 8),
			view.F("timestamp", u32, 8),
			view.F("spare", u32, 4),
		)
		if err != nil {
			h.problem(off, "hbin", err.Error())
			break
		}
		h.v.Insert(s)

		if rel := int(s.Uint("offset")); rel != off-HiveDataBase {
			h.a.Notef("hbin at %s records offset 0x%x", h.v.FormatAddr(off), rel)
		}
		size := int(s.Uint("size"))
		if size < HBINAlignment || size%HBINAlignment != 0 {
			h.problem(off, "hbin", fmt.Sprintf("invalid size 0x%x", size))
			break
		}
		end := off + size
		if end > h.a.Len() {
			h.problem(off, "hbin", fmt.Sprintf("size 0x%x runs past end of hive", size))
			end = h.a.Len()
		}
		bin, err := h.a.Derive(off, end)
		if err != nil {
			h.problem(off, "hbin", err.Error())
			break
		}
		bin.Tag(HBINTag)
		bin.AddName(fmt.Sprintf("hbin %s", h.v.FormatAddr(off)))
		n++
		off = end
	}
	return n
}

// cellSize reads the size field of the allocated cell at addr.
func (h *hive) cellSize(addr int) (int, bool) {
	raw, err := h.a.Uint(addr, CellHeaderSize, le)
	if err != nil {
		h.problem(addr, "cell", err.Error())
		return 0, false
	}
	size := int(int32(uint32(raw)))
	if size >= 0 {
		h.problem(addr, "cell", "reference to a free cell")
		return 0, false
	}
	size = -size
	if size < CellHeaderSize || size%CellAlignment != 0 {
		h.problem(addr, "cell", fmt.Sprintf("invalid size %d", size))
		return 0, false
	}
	return size, true
}

func (h *hive) keyPointer(parent *artifact.NameSpace) view.PointerTo {
	return view.PointerTo{Order: le, Base: HiveDataBase, Expand: func(_ *view.View, addr int) {
		h.key(parent, addr)
	}}
}

func (h *hive) listPointer(parent *artifact.NameSpace) view.PointerTo {
	return view.PointerTo{Order: le, Base: HiveDataBase, Expand: func(_ *view.View, addr int) {
		h.list(parent, addr)
	}}
}

// key decodes the nk cell at addr and adds it to parent. Its subkey list
// is requested through the view's queue and expanded after this returns.
func (h *hive) key(parent *artifact.NameSpace, addr int) {
	size, ok := h.cellSize(addr)
	if !ok {
		return
	}
	if err := h.v.Seek(addr); err != nil {
		h.problem(addr, "nk", err.Error())
		return
	}

	var node *artifact.NameSpace
	b := h.v.Build("nk").
		Add("size", u32, CellHeaderSize).
		Add("signature", view.Magic{Bytes: []byte(SigNK)}, 2).
		Add("flags", u16, 2).
		Add("last_write", u32, 8).
		Add("access_bits", u32, 4).
		Add("parent", u32, 4).
		Add("subkey_count", u32, 4).
		Add("volatile_subkey_count", u32, 4)
	if b.Uint("subkey_count") > 0 {
		b.Add("subkey_list", view.PointerTo{Order: le, Base: HiveDataBase, Expand: func(_ *view.View, list int) {
			if node != nil {
				h.list(node, list)
			}
		}}, 4)
	} else {
		b.Add("subkey_list", u32, 4)
	}
	b.Add("volatile_subkey_list", u32, 4).
		Add("value_count", u32, 4).
		Add("value_list", u32, 4).
		Add("security", u32, 4).
		Add("class_name", u32, 4).
		Add("max_name_len", u32, 4).
		Add("max_class_len", u32, 4).
		Add("max_value_name_len", u32, 4).
		Add("max_value_data_len", u32, 4).
		Add("work_var", u32, 4).
		Add("name_len", u16, 2).
		Add("class_len", u16, 2)
	if n := int(b.Uint("name_len")); n > 0 {
		b.Add("name", view.Span{}, n)
	}
	s, err := b.Done(size)
	if err != nil {
		h.problem(addr, "nk", err.Error())
		return
	}
	h.v.Insert(s)

	var raw []byte
	if f, ok := s.Get("name"); ok {
		raw = f.Bytes()
	}
	name := keyName(s.Uint("flags"), raw)
	if name == "" {
		name = h.v.FormatAddr(addr)
	}
	node = parent.Child(name)
	node.SetAttr("cell", h.v.FormatAddr(addr))
	h.keys++
}

// keyName decodes an nk name: Latin-1 when the compressed flag is set,
// UTF-16LE otherwise.
func keyName(flags uint64, raw []byte) string {
	if flags&NKFlagCompressedName != 0 {
		return charset.DecodeBytes(charset.Latin1, raw)
	}
	s, err := utf16le.NewDecoder().Bytes(raw)
	if err != nil {
		return charset.DecodeBytes(charset.ASCII, raw)
	}
	return string(s)
}

// list decodes the subkey list cell at addr. lf, lh and li entries point at
// keys; ri entries point at further lists.
func (h *hive) list(parent *artifact.NameSpace, addr int) {
	size, ok := h.cellSize(addr)
	if !ok {
		return
	}
	sig, err := h.a.Slice(addr+CellHeaderSize, addr+CellHeaderSize+2)
	if err != nil {
		h.problem(addr, "subkey list", err.Error())
		return
	}

	var (
		entry view.Kind
		width int
	)
	switch string(sig) {
	case SigLF, SigLH:
		entry = view.Layout{Name: "entry", Specs: []view.Spec{
			view.F("key", h.keyPointer(parent), 4),
			view.F("hash", u32, 4),
		}}
		width = LFEntrySize
	case SigLI:
		entry, width = h.keyPointer(parent), LIEntrySize
	case SigRI:
		entry, width = h.listPointer(parent), LIEntrySize
	default:
		h.problem(addr, "subkey list", fmt.Sprintf("unknown signature %q", sig))
		return
	}

	if err := h.v.Seek(addr); err != nil {
		h.problem(addr, "subkey list", err.Error())
		return
	}
	b := h.v.Build(string(sig)).
		Add("size", u32, CellHeaderSize).
		Add("signature", view.Text{}, 2).
		Add("count", u16, 2)
	if n := int(b.Uint("count")); n > 0 {
		b.Add("entries", view.ArrayOf{Elem: entry, ElemWidth: width}, n*width)
	}
	s, err := b.Done(size)
	if err != nil {
		h.problem(addr, string(sig), err.Error())
		return
	}
	h.v.Insert(s)
}

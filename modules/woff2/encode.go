package woff2

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"sort"

	"github.com/andybalholm/brotli"
)

const (
	signature  = 0x774F4632 // "wOF2"
	headerSize = 48

	flavorTrueType = 0x00010000
	flavorOpenType = 0x4F54544F // "OTTO"
	flavorApple    = 0x74727565 // "true"
	flavorTTC      = 0x74746366 // "ttcf"

	// Transform version 3 on glyf and loca is the null transform.
	nullTransformGlyf = 3 << 6
	arbitraryTagIndex = 63
)

// knownTags are the tags with a one-byte index in the table directory.
var knownTags = [...]string{
	"cmap", "head", "hhea", "hmtx", "maxp", "name", "OS/2", "post",
	"cvt ", "fpgm", "glyf", "loca", "prep", "CFF ", "VORG", "EBDT",
	"EBLC", "gasp", "hdmx", "kern", "LTSH", "PCLT", "VDMX", "vhea",
	"vmtx", "BASE", "GDEF", "GPOS", "GSUB", "EBSC", "JSTF", "MATH",
	"CBDT", "CBLC", "COLR", "CPAL", "SVG ", "sbix", "acnt", "avar",
	"bdat", "bloc", "bsln", "cvar", "fdsc", "feat", "fmtx", "fvar",
	"gvar", "hsty", "just", "lcar", "mort", "morx", "opbd", "prop",
	"trak", "Zapf", "Silf", "Glat", "Gloc", "Feat", "Sill",
}

var knownTagIndex = func() map[string]byte {
	m := make(map[string]byte, len(knownTags))
	for i, t := range knownTags {
		m[t] = byte(i)
	}
	return m
}()

type table struct {
	tag  string
	data []byte
}

// parseSFNT reads the table records of a TrueType or CFF-flavoured font.
func parseSFNT(font []byte) (uint32, []table, error) {
	if len(font) < 12 {
		return 0, nil, errors.New("font is too short")
	}
	flavor := binary.BigEndian.Uint32(font)
	switch flavor {
	case flavorTrueType, flavorOpenType, flavorApple:
	case flavorTTC:
		return 0, nil, errors.New("font collections are not supported")
	default:
		return 0, nil, fmt.Errorf("not an sfnt font (version 0x%08x)", flavor)
	}

	n := int(binary.BigEndian.Uint16(font[4:]))
	if n == 0 {
		return 0, nil, errors.New("font has no tables")
	}
	if len(font) < 12+16*n {
		return 0, nil, errors.New("table directory is truncated")
	}

	tables := make([]table, 0, n)
	seen := make(map[string]bool, n)
	for i := 0; i < n; i++ {
		rec := font[12+16*i:]
		tag := string(rec[:4])
		offset := binary.BigEndian.Uint32(rec[8:])
		length := binary.BigEndian.Uint32(rec[12:])
		if uint64(offset)+uint64(length) > uint64(len(font)) {
			return 0, nil, fmt.Errorf("table '%s' extends past the end of the font", tag)
		}
		if seen[tag] {
			return 0, nil, fmt.Errorf("duplicate table '%s'", tag)
		}
		seen[tag] = true
		tables = append(tables, table{tag: tag, data: font[offset : offset+length]})
	}
	if seen["glyf"] != seen["loca"] {
		return 0, nil, errors.New("glyf and loca tables must appear together")
	}
	sort.Slice(tables, func(i, j int) bool { return tables[i].tag < tables[j].tag })
	return flavor, tables, nil
}

// Encode converts a TrueType or OpenType font to WOFF2. Tables are stored
// with the null transform and compressed as one brotli stream.
func Encode(font []byte) ([]byte, error) {
	flavor, tables, err := parseSFNT(font)
	if err != nil {
		return nil, err
	}

	var dir bytes.Buffer
	var raw bytes.Buffer
	sfntSize := uint32(12 + 16*len(tables))
	for _, t := range tables {
		idx, known := knownTagIndex[t.tag]
		if !known {
			idx = arbitraryTagIndex
		}
		flags := idx
		if t.tag == "glyf" || t.tag == "loca" {
			flags |= nullTransformGlyf
		}
		dir.WriteByte(flags)
		if !known {
			dir.WriteString(t.tag)
		}
		writeUIntBase128(&dir, uint32(len(t.data)))

		raw.Write(t.data)
		sfntSize += pad4(uint32(len(t.data)))
	}

	var compressed bytes.Buffer
	bw := brotli.NewWriterOptions(&compressed, brotli.WriterOptions{Quality: brotli.BestCompression, LGWin: 22})
	if _, err := bw.Write(raw.Bytes()); err != nil {
		return nil, err
	}
	if err := bw.Close(); err != nil {
		return nil, err
	}

	compressedLen := uint32(compressed.Len())
	total := pad4(uint32(headerSize+dir.Len()) + compressedLen)

	out := bytes.NewBuffer(make([]byte, 0, total))
	header := struct {
		Signature           uint32
		Flavor              uint32
		Length              uint32
		NumTables           uint16
		Reserved            uint16
		TotalSfntSize       uint32
		TotalCompressedSize uint32
		MajorVersion        uint16
		MinorVersion        uint16
		MetaOffset          uint32
		MetaLength          uint32
		MetaOrigLength      uint32
		PrivOffset          uint32
		PrivLength          uint32
	}{
		Signature:           signature,
		Flavor:              flavor,
		Length:              total,
		NumTables:           uint16(len(tables)),
		TotalSfntSize:       sfntSize,
		TotalCompressedSize: compressedLen,
		MajorVersion:        1,
	}
	if err := binary.Write(out, binary.BigEndian, header); err != nil {
		return nil, err
	}
	out.Write(dir.Bytes())
	out.Write(compressed.Bytes())
	for uint32(out.Len()) < total {
		out.WriteByte(0)
	}
	return out.Bytes(), nil
}

func pad4(n uint32) uint32 {
	return (n + 3) &^ 3
}

// writeUIntBase128 writes v as a big-endian base-128 varint without leading
// zero bytes.
func writeUIntBase128(w *bytes.Buffer, v uint32) {
	var buf [5]byte
	i := len(buf) - 1
	buf[i] = byte(v & 0x7f)
	for v >>= 7; v > 0; v >>= 7 {
		i--
		buf[i] = byte(v&0x7f) | 0x80
	}
	w.Write(buf[i:])
}

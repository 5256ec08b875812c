package extractor

import (
	"bytes"
	"compress/zlib"
	"encoding/hex"
	"io"
	"regexp"
	"strings"
	"unicode"
)

// extractTextRaw is the fallback flat-text extractor. It scans the raw PDF
// byte stream directly: ToUnicode CMap tables are collected first, then text
// operators (Tj, TJ, ') in every content stream are decoded through them.
// Used when the structured library produces unreadable output, which happens
// with CIDFont/Type0 subset fonts in some issuers' statements.
func extractTextRaw(data []byte) []string {
	streams := contentStreams(data)
	if len(streams) == 0 {
		return nil
	}

	cmap := collectCMaps(data)

	var pages []string
	var current strings.Builder
	for _, stream := range streams {
		text := streamText(inflate(stream), cmap)
		if text == "" {
			continue
		}
		if current.Len() > 0 {
			current.WriteString("\n")
		}
		current.WriteString(text)
	}
	if current.Len() > 0 {
		pages = append(pages, current.String())
	}
	return pages
}

// contentStreams returns every stream...endstream block in the file.
func contentStreams(data []byte) [][]byte {
	var streams [][]byte
	start := []byte("stream")
	end := []byte("endstream")

	offset := 0
	for offset < len(data) {
		idx := bytes.Index(data[offset:], start)
		if idx < 0 {
			break
		}
		from := offset + idx + len(start)
		if from < len(data) && data[from] == '\r' {
			from++
		}
		if from < len(data) && data[from] == '\n' {
			from++
		}
		endIdx := bytes.Index(data[from:], end)
		if endIdx < 0 {
			break
		}
		if endIdx > 0 {
			streams = append(streams, data[from:from+endIdx])
		}
		offset = from + endIdx + len(end)
	}
	return streams
}

// inflate applies zlib decompression, returning the input untouched when it
// is not a zlib stream.
func inflate(data []byte) []byte {
	r, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return data
	}
	defer r.Close()
	out, err := io.ReadAll(r)
	if err != nil {
		return data
	}
	return out
}

var (
	hexTjRe   = regexp.MustCompile(`<([0-9A-Fa-f]+)>\s*Tj`)
	litTjRe   = regexp.MustCompile(`\(([^)]*)\)\s*(?:Tj|')`)
	tjArrayRe = regexp.MustCompile(`\[([^\]]*)\]\s*TJ`)
	hexTokRe  = regexp.MustCompile(`<([0-9A-Fa-f]+)>`)
	litTokRe  = regexp.MustCompile(`\(([^)]*)\)`)
	tdOpRe    = regexp.MustCompile(`[\d.\-]+\s+[\d.\-]+\s+T[dD]`)
)

// streamText decodes the text operators of one content stream. Td/TD and T*
// positioning operators delimit lines.
func streamText(data []byte, cmap *cmapTable) string {
	content := string(data)
	if !strings.Contains(content, "Tj") && !strings.Contains(content, "TJ") {
		return ""
	}

	var lines []string
	var line strings.Builder
	flush := func() {
		if t := strings.TrimSpace(line.String()); t != "" {
			lines = append(lines, t)
		}
		line.Reset()
	}

	for _, op := range strings.Split(content, "\n") {
		op = strings.TrimSpace(op)
		if op == "T*" || tdOpRe.MatchString(op) {
			flush()
		}
		for _, m := range hexTjRe.FindAllStringSubmatch(op, -1) {
			line.WriteString(decodeHex(m[1], cmap))
		}
		for _, m := range litTjRe.FindAllStringSubmatch(op, -1) {
			line.WriteString(decodeLiteral(m[1], cmap))
		}
		for _, m := range tjArrayRe.FindAllStringSubmatch(op, -1) {
			line.WriteString(decodeArray(m[1], cmap))
		}
	}
	flush()
	return strings.Join(lines, "\n")
}

// decodeArray decodes a TJ array: a position-ordered mix of hex and literal
// string fragments.
func decodeArray(arr string, cmap *cmapTable) string {
	type frag struct {
		pos  int
		text string
	}
	var frags []frag
	for _, idx := range hexTokRe.FindAllStringSubmatchIndex(arr, -1) {
		frags = append(frags, frag{idx[0], decodeHex(arr[idx[2]:idx[3]], cmap)})
	}
	for _, idx := range litTokRe.FindAllStringSubmatchIndex(arr, -1) {
		frags = append(frags, frag{idx[0], decodeLiteral(arr[idx[2]:idx[3]], cmap)})
	}
	sort := func() {
		for i := 1; i < len(frags); i++ {
			for j := i; j > 0 && frags[j].pos < frags[j-1].pos; j-- {
				frags[j], frags[j-1] = frags[j-1], frags[j]
			}
		}
	}
	sort()
	var b strings.Builder
	for _, f := range frags {
		b.WriteString(f.text)
	}
	return b.String()
}

// decodeHex decodes a hex-encoded PDF string, preferring the CMap mapping and
// falling back to UTF-16BE, then plain bytes.
func decodeHex(h string, cmap *cmapTable) string {
	raw, err := hex.DecodeString(h)
	if err != nil {
		return ""
	}
	if cmap != nil {
		if out := cmap.decode(raw); out != "" {
			return out
		}
	}
	if len(raw) >= 2 && len(raw)%2 == 0 {
		var b strings.Builder
		for i := 0; i+1 < len(raw); i += 2 {
			cp := rune(raw[i])<<8 | rune(raw[i+1])
			if unicode.IsPrint(cp) || cp == ' ' {
				b.WriteRune(cp)
			}
		}
		if b.Len() > 0 {
			return b.String()
		}
	}
	return printableOnly(string(raw))
}

// decodeLiteral decodes a literal PDF string after resolving escapes.
func decodeLiteral(s string, cmap *cmapTable) string {
	decoded := decodeEscapes(s)
	if cmap != nil {
		if out := cmap.decode([]byte(decoded)); out != "" && mostlyPrintable(out) {
			return out
		}
	}
	return printableOnly(decoded)
}

// decodeEscapes resolves PDF string escapes: \n \r \t \b \f \( \) \\ and
// octal \nnn.
func decodeEscapes(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] != '\\' || i+1 >= len(s) {
			b.WriteByte(s[i])
			continue
		}
		i++
		switch s[i] {
		case 'n':
			b.WriteByte('\n')
		case 'r':
			b.WriteByte('\r')
		case 't':
			b.WriteByte('\t')
		case 'b':
			b.WriteByte('\b')
		case 'f':
			b.WriteByte('\f')
		case '(', ')', '\\':
			b.WriteByte(s[i])
		default:
			if s[i] >= '0' && s[i] <= '7' {
				val := int(s[i] - '0')
				for j := 0; j < 2 && i+1 < len(s) && s[i+1] >= '0' && s[i+1] <= '7'; j++ {
					i++
					val = val*8 + int(s[i]-'0')
				}
				if val < 256 {
					b.WriteByte(byte(val))
				}
			} else {
				b.WriteByte(s[i])
			}
		}
	}
	return b.String()
}

func printableOnly(s string) string {
	return strings.TrimSpace(strings.Map(func(r rune) rune {
		if unicode.IsPrint(r) || r == '\n' || r == '\r' || r == '\t' {
			return r
		}
		return -1
	}, s))
}

func mostlyPrintable(s string) bool {
	if s == "" {
		return false
	}
	printable := 0
	runes := []rune(s)
	for _, r := range runes {
		if unicode.IsPrint(r) || unicode.IsSpace(r) {
			printable++
		}
	}
	return float64(printable)/float64(len(runes)) > 0.5
}

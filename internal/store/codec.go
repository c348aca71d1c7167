package store

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"sort"

	"github.com/kestrelcode/webdex/internal/document"
)

// EncodeTexts serializes a set of NodeTexts into a deterministic byte
// sequence: identical sets always produce identical bytes regardless
// of insertion order, since the sequences are sorted before encoding.
func EncodeTexts(texts []document.NodeText) []byte {
	sorted := make([]document.NodeText, len(texts))
	copy(sorted, texts)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Key() < sorted[j].Key() })

	var buf bytes.Buffer
	writeUvarint(&buf, uint64(len(sorted)))
	for _, seq := range sorted {
		writeUvarint(&buf, uint64(len(seq)))
		for _, tok := range seq {
			writeUvarint(&buf, uint64(len(tok)))
			buf.WriteString(tok)
		}
	}
	return buf.Bytes()
}

// DecodeTexts reverses EncodeTexts.
func DecodeTexts(data []byte) ([]document.NodeText, error) {
	r := bytes.NewReader(data)

	count, err := binary.ReadUvarint(r)
	if err != nil {
		return nil, fmt.Errorf("decode texts: read count: %w", err)
	}

	out := make([]document.NodeText, 0, count)
	for i := uint64(0); i < count; i++ {
		tokCount, err := binary.ReadUvarint(r)
		if err != nil {
			return nil, fmt.Errorf("decode texts: read token count: %w", err)
		}
		seq := make(document.NodeText, tokCount)
		for j := uint64(0); j < tokCount; j++ {
			tokLen, err := binary.ReadUvarint(r)
			if err != nil {
				return nil, fmt.Errorf("decode texts: read token length: %w", err)
			}
			buf := make([]byte, tokLen)
			if _, err := io.ReadFull(r, buf); err != nil {
				return nil, fmt.Errorf("decode texts: read token: %w", err)
			}
			seq[j] = string(buf)
		}
		out = append(out, seq)
	}
	return out, nil
}

func writeUvarint(buf *bytes.Buffer, v uint64) {
	var tmp [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(tmp[:], v)
	buf.Write(tmp[:n])
}

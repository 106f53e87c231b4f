package memdriver

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/pierrec/lz4/v4"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/Victoria-Vladimirova/webdev-tasks-2/pkg/multivarka"
)

const snapshotMagic = "MVK1"

const (
	blockRaw byte = iota
	blockLZ4
)

// maxLZ4Ratio bounds how much an lz4 block can expand
const maxLZ4Ratio = 255

// snapshotHeader precedes the payload
//
//	magic[4] | encoding[1] | rawLen uint32 LE | sha256(raw)[32]
type snapshotHeader struct {
	Magic    [4]byte
	Encoding byte
	RawLen   uint32
	Checksum [sha256.Size]byte
}

type snapshotData struct {
	Collections map[string][]map[string]interface{} `msgpack:"collections"`
	SavedAt     time.Time                           `msgpack:"saved_at"`
}

// ErrChecksum is returned when a snapshot payload does not match its header
var ErrChecksum = errors.New("snapshot checksum mismatch")

func writeSnapshot(path string, collections map[string][]multivarka.Document) error {
	data := snapshotData{
		Collections: make(map[string][]map[string]interface{}, len(collections)),
		SavedAt:     time.Now().UTC(),
	}
	for name, docs := range collections {
		plain := make([]map[string]interface{}, len(docs))
		for i, doc := range docs {
			plain[i] = map[string]interface{}(doc)
		}
		data.Collections[name] = plain
	}

	raw, err := msgpack.Marshal(&data)
	if err != nil {
		return fmt.Errorf("failed to encode MessagePack: %w", err)
	}

	header := snapshotHeader{
		Encoding: blockLZ4,
		RawLen:   uint32(len(raw)),
		Checksum: sha256.Sum256(raw),
	}
	copy(header.Magic[:], snapshotMagic)

	payload := make([]byte, lz4.CompressBlockBound(len(raw)))
	var hashTable [1 << 16]int
	n, err := lz4.CompressBlock(raw, payload, hashTable[:])
	if err != nil {
		return fmt.Errorf("failed to compress snapshot: %w", err)
	}
	if n == 0 {
		// incompressible
		header.Encoding = blockRaw
		payload = raw
	} else {
		payload = payload[:n]
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create snapshot dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create snapshot: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := binary.Write(tmp, binary.LittleEndian, &header); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write header: %w", err)
	}
	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	return os.Rename(tmp.Name(), path)
}

// readSnapshot loads collections from path. A missing file is an empty store.
func readSnapshot(path string) (map[string][]multivarka.Document, error) {
	collections := make(map[string][]multivarka.Document)

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return collections, nil
		}
		return nil, fmt.Errorf("failed to open snapshot: %w", err)
	}
	defer f.Close()

	var header snapshotHeader
	if err := binary.Read(f, binary.LittleEndian, &header); err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	if string(header.Magic[:]) != snapshotMagic {
		return nil, fmt.Errorf("invalid snapshot format: expected %s, got %q", snapshotMagic, header.Magic[:])
	}

	payload, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}

	var raw []byte
	switch header.Encoding {
	case blockRaw:
		raw = payload
	case blockLZ4:
		if limit := uint64(len(payload)) * maxLZ4Ratio; uint64(header.RawLen) > limit {
			return nil, fmt.Errorf("invalid snapshot: raw length %d exceeds bound %d", header.RawLen, limit)
		}
		raw = make([]byte, header.RawLen)
		n, err := lz4.UncompressBlock(payload, raw)
		if err != nil {
			return nil, fmt.Errorf("failed to decompress snapshot: %w", err)
		}
		raw = raw[:n]
	default:
		return nil, fmt.Errorf("unknown snapshot encoding %d", header.Encoding)
	}

	if uint32(len(raw)) != header.RawLen || sha256.Sum256(raw) != header.Checksum {
		return nil, ErrChecksum
	}

	var data snapshotData
	dec := msgpack.NewDecoder(bytes.NewReader(raw))
	dec.UseLooseInterfaceDecoding(true)
	if err := dec.Decode(&data); err != nil {
		return nil, fmt.Errorf("failed to decode MessagePack: %w", err)
	}

	for name, docs := range data.Collections {
		out := make([]multivarka.Document, len(docs))
		for i, doc := range docs {
			out[i] = multivarka.Document(doc)
		}
		collections[name] = out
	}
	return collections, nil
}

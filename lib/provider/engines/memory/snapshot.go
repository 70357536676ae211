package memory

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"sort"

	"github.com/GalRogozinski/tangledb/lib/model"
	"github.com/GalRogozinski/tangledb/lib/provider"
)

const (
	magicNum        = "TANGLEDB"
	snapshotVersion = 1

	metaAbsent  uint8 = 0
	metaPresent uint8 = 1
)

// --------------------------------------------------------------------------
// Persistence Operations
// --------------------------------------------------------------------------

// Save writes all open columns to w.
//
// Thread-safety: Save blocks all other operations until the state is written.
func (m *memoryImpl) Save(w io.Writer) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != stateOpen {
		return m.stateError("save")
	}
	if err := m.save(w); err != nil {
		return provider.WrapError(provider.ErrCStorageWrite, err).In(m.name, "save")
	}
	return nil
}

// Load replaces the content of all open columns with the snapshot read from r.
// Columns present in the snapshot but not opened are skipped.
//
// Thread-safety: Load blocks all other operations until the state is restored.
func (m *memoryImpl) Load(r io.Reader) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != stateOpen {
		return m.stateError("load")
	}
	if err := m.load(r); err != nil {
		return provider.WrapError(provider.ErrCStorageRead, err).In(m.name, "load")
	}
	return nil
}

// save encodes the state. Caller holds mu exclusively.
//
// Layout (little endian):
//
//	magic[8] version:u8 columns:u16
//	per column: id:u8 count:u64
//	  per record: keyLen:u32 key payloadLen:u32 payload hasMeta:u8 [metaLen:u32 meta]
func (m *memoryImpl) save(w io.Writer) error {
	bw := bufio.NewWriterSize(w, 1024*1024) // 1 MB buffer

	if _, err := bw.WriteString(magicNum); err != nil {
		return err
	}
	if err := binary.Write(bw, binary.LittleEndian, uint8(snapshotVersion)); err != nil {
		return err
	}

	ids := make([]model.ColumnID, 0, len(m.columns))
	for id := range m.columns {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	if err := binary.Write(bw, binary.LittleEndian, uint16(len(ids))); err != nil {
		return err
	}

	for _, id := range ids {
		col := m.columns[id]

		keys := make([]model.Indexable, 0, col.data.Size())
		col.data.Range(func(key model.Indexable, _ entry) bool {
			keys = append(keys, key)
			return true
		})
		sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

		if err := binary.Write(bw, binary.LittleEndian, uint8(id)); err != nil {
			return err
		}
		if err := binary.Write(bw, binary.LittleEndian, uint64(len(keys))); err != nil {
			return err
		}

		for _, key := range keys {
			e, ok := col.data.Load(key)
			if !ok {
				// unreachable while mu is held exclusively
				return fmt.Errorf("entry %q vanished during save", key)
			}
			if err := writeBytes(bw, key.Bytes()); err != nil {
				return err
			}
			if err := writeBytes(bw, e.payload); err != nil {
				return err
			}
			if e.meta != nil && e.metaEpoch == col.metaEpoch {
				if err := binary.Write(bw, binary.LittleEndian, metaPresent); err != nil {
					return err
				}
				if err := writeBytes(bw, e.meta); err != nil {
					return err
				}
			} else if err := binary.Write(bw, binary.LittleEndian, metaAbsent); err != nil {
				return err
			}
		}
	}

	return bw.Flush()
}

// load decodes a snapshot into fresh maps and swaps them in only after the
// whole stream was read. Caller holds mu exclusively.
func (m *memoryImpl) load(r io.Reader) error {
	br := bufio.NewReaderSize(r, 1024*1024) // 1 MB buffer

	magicBytes := make([]byte, len(magicNum))
	if _, err := io.ReadFull(br, magicBytes); err != nil {
		return err
	}
	if string(magicBytes) != magicNum {
		return fmt.Errorf("invalid file format: magic number mismatch")
	}

	var version uint8
	if err := binary.Read(br, binary.LittleEndian, &version); err != nil {
		return err
	}
	if int(version) != snapshotVersion {
		return fmt.Errorf("unsupported version: %d (expected %d)", version, snapshotVersion)
	}

	var numColumns uint16
	if err := binary.Read(br, binary.LittleEndian, &numColumns); err != nil {
		return err
	}

	fresh := make(map[model.ColumnID]*column, len(m.columns))
	for id := range m.columns {
		fresh[id] = m.newColumn()
	}

	for i := uint16(0); i < numColumns; i++ {
		var id uint8
		if err := binary.Read(br, binary.LittleEndian, &id); err != nil {
			return err
		}
		var count uint64
		if err := binary.Read(br, binary.LittleEndian, &count); err != nil {
			return err
		}

		col := fresh[model.ColumnID(id)] // nil: column not opened, records are skipped

		for j := uint64(0); j < count; j++ {
			key, err := readBytes(br)
			if err != nil {
				return err
			}
			payload, err := readBytes(br)
			if err != nil {
				return err
			}
			var flag uint8
			if err := binary.Read(br, binary.LittleEndian, &flag); err != nil {
				return err
			}
			var meta []byte
			switch flag {
			case metaAbsent:
			case metaPresent:
				if meta, err = readBytes(br); err != nil {
					return err
				}
			default:
				return fmt.Errorf("invalid metadata flag %d", flag)
			}

			if col != nil {
				col.data.Store(model.KeyFromBytes(key), entry{payload: payload, meta: meta})
			}
		}
	}

	m.columns = fresh
	return nil
}

func writeBytes(w *bufio.Writer, b []byte) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(len(b))); err != nil {
		return err
	}
	_, err := w.Write(b)
	return err
}

// readBytes reads a length-prefixed slice. The buffer grows with the bytes
// actually read, so a corrupt length fails with io.ErrUnexpectedEOF instead
// of allocating up to 4 GB.
func readBytes(r *bufio.Reader) ([]byte, error) {
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return nil, err
	}
	if n == 0 {
		return []byte{}, nil
	}
	var buf bytes.Buffer
	if _, err := io.CopyN(&buf, r, int64(n)); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, err
	}
	return buf.Bytes(), nil
}

// Package lsm implements a durable provider.Provider on top of the pebble
// LSM engine (github.com/cockroachdb/pebble). All columns share one pebble
// database; the column id is the first byte of every engine key.
//
// Key layout:
//
//	[column:1][kind:1][key...]
//
// kind 0x01 holds the payload and kind 0x02 the metadata of a record. This makes
// ClearColumn a single range tombstone over [column] .. [column+1] and
// ClearMetadata a single range tombstone over [column,0x02] .. [column,0x03].
//
// Values are stored in an envelope of the form
//
//	[codec:1][xxhash64(raw):8][encoded value]
//
// where codec is none, snappy or zstd (github.com/klauspost/compress). Values
// that do not shrink are stored raw. A checksum mismatch on read is reported as
// a StorageReadError. Every codec can be read regardless of Options.Compression.
//
// Writes of one record (payload + metadata) and whole batches are committed as one
// pebble batch, reads go through a pebble snapshot, so readers never see a torn
// record or a partially applied batch. With Options.Durable the write-ahead log is
// synced before a write returns. The block cache (Options.CacheSizeBytes) is a
// performance hint only.
//
// pebble's own log output is routed to the "lsm" logger.
package lsm

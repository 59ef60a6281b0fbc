// Package flatdb persists a single tagged, versioned and checksummed blob per file.
//
// File layout:
//
//	uvarint len(magic) | magic | version (1 byte) | uvarint len(payload) | payload | blake3(payload)
//
// The payload on disk is zstd-compressed; the checksum covers the compressed bytes.
package flatdb

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
	"github.com/mezonai/mnlight/logx"
	"github.com/zeebo/blake3"
)

const (
	checksumSize   = 32
	maxMagicLength = 1 << 10
)

// Reason explains why a file was not loaded.
type Reason string

const (
	ReasonLoaded           Reason = ""
	ReasonFileMissing      Reason = "file_missing"
	ReasonMagicMismatch    Reason = "magic_mismatch"
	ReasonVersionMismatch  Reason = "version_mismatch"
	ReasonChecksumMismatch Reason = "checksum_mismatch"
	ReasonCorrupt          Reason = "corrupt"
)

// Record is what gets written to disk.
type Record struct {
	Magic   string
	Version byte
	Payload []byte
}

// LoadResult is the outcome of Load. Loaded is false for every expected mismatch.
type LoadResult struct {
	Loaded  bool
	Reason  Reason
	Payload []byte
}

func notLoaded(reason Reason) LoadResult {
	return LoadResult{Reason: reason}
}

// Store reads and writes one file.
type Store struct {
	path string
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

func (s *Store) Path() string {
	return s.path
}

// Save replaces the file atomically: the record is written to a temp file in the same
// directory, synced, then renamed over the destination.
func (s *Store) Save(r Record) (err error) {
	if len(r.Magic) > maxMagicLength {
		return fmt.Errorf("magic message too long: %d bytes", len(r.Magic))
	}
	compressed, err := compress(r.Payload)
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	w := bufio.NewWriter(tmp)
	if err = writeRecord(w, r.Magic, r.Version, compressed); err != nil {
		return fmt.Errorf("failed to write %s: %w", tmpName, err)
	}
	if err = w.Flush(); err != nil {
		return fmt.Errorf("failed to flush %s: %w", tmpName, err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("failed to sync %s: %w", tmpName, err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", tmpName, err)
	}
	if err = os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("failed to rename %s to %s: %w", tmpName, s.path, err)
	}
	logx.Debug("FLATDB", fmt.Sprintf("saved %s | magic=%s | version=%d | payload=%d bytes | stored=%d bytes",
		s.path, r.Magic, r.Version, len(r.Payload), len(compressed)))
	return nil
}

func writeRecord(w io.Writer, magic string, version byte, payload []byte) error {
	var lenBuf [binary.MaxVarintLen64]byte

	n := binary.PutUvarint(lenBuf[:], uint64(len(magic)))
	if _, err := w.Write(lenBuf[:n]); err != nil {
		return err
	}
	if _, err := io.WriteString(w, magic); err != nil {
		return err
	}
	if _, err := w.Write([]byte{version}); err != nil {
		return err
	}
	n = binary.PutUvarint(lenBuf[:], uint64(len(payload)))
	if _, err := w.Write(lenBuf[:n]); err != nil {
		return err
	}
	if _, err := w.Write(payload); err != nil {
		return err
	}
	sum := blake3.Sum256(payload)
	_, err := w.Write(sum[:])
	return err
}

// Load reads the file and returns its payload when magic, version and checksum all
// match. Mismatches and damaged files are reported through LoadResult; the error is
// reserved for I/O failures other than a missing file.
func (s *Store) Load(expectedMagic string, expectedVersion byte) (LoadResult, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return notLoaded(ReasonFileMissing), nil
		}
		return LoadResult{}, fmt.Errorf("failed to read %s: %w", s.path, err)
	}

	res := parseRecord(data, expectedMagic, expectedVersion)
	if !res.Loaded {
		logx.Warn("FLATDB", fmt.Sprintf("not loading %s | reason=%s | magic=%s | version=%d",
			s.path, res.Reason, expectedMagic, expectedVersion))
		return res, nil
	}
	payload, err := decompress(res.Payload)
	if err != nil {
		logx.Warn("FLATDB", fmt.Sprintf("not loading %s | reason=%s | %v", s.path, ReasonCorrupt, err))
		return notLoaded(ReasonCorrupt), nil
	}
	res.Payload = payload
	return res, nil
}

func parseRecord(data []byte, expectedMagic string, expectedVersion byte) LoadResult {
	r := bytes.NewReader(data)

	magicLen, err := binary.ReadUvarint(r)
	if err != nil || magicLen > maxMagicLength || magicLen > uint64(r.Len()) {
		return notLoaded(ReasonCorrupt)
	}
	magic := make([]byte, magicLen)
	if _, err := io.ReadFull(r, magic); err != nil {
		return notLoaded(ReasonCorrupt)
	}
	if string(magic) != expectedMagic {
		return notLoaded(ReasonMagicMismatch)
	}

	version, err := r.ReadByte()
	if err != nil {
		return notLoaded(ReasonCorrupt)
	}
	if version != expectedVersion {
		return notLoaded(ReasonVersionMismatch)
	}

	payloadLen, err := binary.ReadUvarint(r)
	if err != nil || r.Len() < checksumSize || payloadLen != uint64(r.Len()-checksumSize) {
		return notLoaded(ReasonCorrupt)
	}
	payload := make([]byte, payloadLen)
	if _, err := io.ReadFull(r, payload); err != nil {
		return notLoaded(ReasonCorrupt)
	}
	var stored [checksumSize]byte
	if _, err := io.ReadFull(r, stored[:]); err != nil {
		return notLoaded(ReasonCorrupt)
	}
	if blake3.Sum256(payload) != stored {
		return notLoaded(ReasonChecksumMismatch)
	}
	return LoadResult{Loaded: true, Reason: ReasonLoaded, Payload: payload}
}

func compress(data []byte) ([]byte, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create encoder: %w", err)
	}
	defer encoder.Close()

	return encoder.EncodeAll(data, nil), nil
}

func decompress(data []byte) ([]byte, error) {
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create decoder: %w", err)
	}
	defer decoder.Close()

	return decoder.DecodeAll(data, nil)
}

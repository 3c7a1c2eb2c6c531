package store

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/golang/snappy"

	"github.com/dd0wney/cluso-sentinel/pkg/model"
)

// Journal is an append-only edge log with snappy-compressed, CRC-framed
// records. It gives the in-memory edge store crash recovery: on startup
// the journal is replayed to rebuild the full edge history.
//
// Record framing: uint32 compressed length, uint32 CRC32 of the
// compressed payload, payload (snappy-compressed JSON edge).
type Journal struct {
	file   *os.File
	writer *bufio.Writer
	path   string
	mu     sync.Mutex
	closed bool
}

// OpenJournal opens or creates the journal at path.
func OpenJournal(path string) (*Journal, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create journal directory: %w", err)
		}
	}

	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}

	return &Journal{
		file:   file,
		writer: bufio.NewWriter(file),
		path:   path,
	}, nil
}

// Append writes one edge record and flushes it to the OS.
func (j *Journal) Append(edge model.AuthEdge) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return ErrStoreClosed
	}

	data, err := json.Marshal(edge)
	if err != nil {
		return fmt.Errorf("failed to marshal edge %s: %w", edge.ID, err)
	}
	compressed := snappy.Encode(nil, data)

	var header [8]byte
	binary.LittleEndian.PutUint32(header[0:4], uint32(len(compressed)))
	binary.LittleEndian.PutUint32(header[4:8], crc32.ChecksumIEEE(compressed))

	if _, err := j.writer.Write(header[:]); err != nil {
		return fmt.Errorf("failed to write journal header: %w", err)
	}
	if _, err := j.writer.Write(compressed); err != nil {
		return fmt.Errorf("failed to write journal record: %w", err)
	}
	return j.writer.Flush()
}

// Replay reads every record from the start of the journal. A truncated or
// corrupt tail record ends the replay without error; everything before it
// is returned.
func (j *Journal) Replay() ([]model.AuthEdge, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return nil, ErrStoreClosed
	}

	if _, err := j.file.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("failed to rewind journal: %w", err)
	}
	defer j.file.Seek(0, io.SeekEnd)

	reader := bufio.NewReader(j.file)
	var edges []model.AuthEdge

	for {
		var header [8]byte
		if _, err := io.ReadFull(reader, header[:]); err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				break
			}
			return nil, fmt.Errorf("failed to read journal header: %w", err)
		}

		length := binary.LittleEndian.Uint32(header[0:4])
		checksum := binary.LittleEndian.Uint32(header[4:8])

		compressed := make([]byte, length)
		if _, err := io.ReadFull(reader, compressed); err != nil {
			// Truncated tail, keep what we have.
			break
		}
		if crc32.ChecksumIEEE(compressed) != checksum {
			break
		}

		data, err := snappy.Decode(nil, compressed)
		if err != nil {
			break
		}
		var edge model.AuthEdge
		if err := json.Unmarshal(data, &edge); err != nil {
			break
		}
		edges = append(edges, edge)
	}

	return edges, nil
}

// Close flushes and closes the journal file.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return nil
	}
	j.closed = true
	if err := j.writer.Flush(); err != nil {
		j.file.Close()
		return err
	}
	return j.file.Close()
}

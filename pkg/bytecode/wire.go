package bytecode

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"
)

// Magic bytes for dumped chunks: "SINKBC".
var BytecodeMagic = []byte{'S', 'I', 'N', 'K', 'B', 'C'}

// ErrBadMagic is returned by Load when the input is not a dumped chunk.
var ErrBadMagic = errors.New("bytecode: bad magic")

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("bytecode: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// MarshalChunk serializes a Chunk to CBOR bytes.
func MarshalChunk(c *Chunk) ([]byte, error) {
	return cborEncMode.Marshal(c)
}

// UnmarshalChunk deserializes a Chunk from CBOR bytes and validates it.
func UnmarshalChunk(data []byte) (*Chunk, error) {
	var c Chunk
	if err := cbor.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("bytecode: unmarshal chunk: %w", err)
	}
	if c.Version > BytecodeVersion {
		return nil, fmt.Errorf("bytecode: version %d is newer than supported version %d", c.Version, BytecodeVersion)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Dump writes the magic header followed by the CBOR encoding of c.
func Dump(w io.Writer, c *Chunk) error {
	data, err := MarshalChunk(c)
	if err != nil {
		return fmt.Errorf("bytecode: marshal chunk: %w", err)
	}
	buf := make([]byte, 0, len(BytecodeMagic)+len(data))
	buf = append(buf, BytecodeMagic...)
	buf = append(buf, data...)
	return WriteFull(w, buf)
}

// Load reads a chunk previously written by Dump.
func Load(r io.Reader) (*Chunk, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("bytecode: read: %w", err)
	}
	if !IsDump(data) {
		return nil, ErrBadMagic
	}
	return UnmarshalChunk(data[len(BytecodeMagic):])
}

// IsDump reports whether data starts with the dump magic.
func IsDump(data []byte) bool {
	return bytes.HasPrefix(data, BytecodeMagic)
}

// maxShortWrites bounds how many consecutive zero-progress writes WriteFull
// tolerates before giving up.
const maxShortWrites = 16

// WriteFull writes all of p to w. Sinks that accept fewer bytes than offered
// without reporting an error are retried with the remainder.
func WriteFull(w io.Writer, p []byte) error {
	stalls := 0
	for len(p) > 0 {
		n, err := w.Write(p)
		if n < 0 || n > len(p) {
			return fmt.Errorf("bytecode: writer reported %d bytes for a %d byte write", n, len(p))
		}
		p = p[n:]
		if err != nil {
			return err
		}
		if n == 0 {
			stalls++
			if stalls >= maxShortWrites {
				return io.ErrShortWrite
			}
			continue
		}
		stalls = 0
	}
	return nil
}

package obfs

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"net"

	"golang.org/x/crypto/hkdf"

	"github.com/streamgate-io/streamgate-go/pkg/pipeline"
)

// StageName is the pipeline name of the masking stage. The secure stage
// is inserted immediately before it.
const StageName = "obfs"

// MinKeySize is the minimum accepted shared key length in bytes.
const MinKeySize = 16

// keystreamKeySize is the AES-128 key length drawn from HKDF per direction.
const keystreamKeySize = 16

// infoPrefix binds derived keystreams to this protocol and direction.
const infoPrefix = "streamgate-obfs "

// Errors returned by stage construction.
var (
	// ErrKeyTooShort indicates a shared key below MinKeySize.
	ErrKeyTooShort = errors.New("obfuscation key too short")

	// ErrInvalidMode indicates an unknown masking mode.
	ErrInvalidMode = errors.New("invalid obfuscation mode")
)

// Mode selects which direction of the keystream pair a peer reads.
type Mode uint8

const (
	// ModeServer reads the client-to-server stream and writes the
	// server-to-client stream.
	ModeServer Mode = iota

	// ModeClient mirrors ModeServer.
	ModeClient
)

// String returns the mode name.
func (m Mode) String() string {
	switch m {
	case ModeServer:
		return "SERVER"
	case ModeClient:
		return "CLIENT"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", uint8(m))
	}
}

// directions returns the read and write keystream labels for the mode.
func (m Mode) directions() (read, write string) {
	if m == ModeServer {
		return "c2s", "s2c"
	}
	return "s2c", "c2s"
}

// Stage masks payload bytes with per-direction AES-CTR keystreams.
// A Stage is immutable and may wrap any number of connections.
type Stage struct {
	key  []byte
	mode Mode
}

var _ pipeline.Stage = (*Stage)(nil)

// NewStage returns a masking stage over the shared key.
func NewStage(key []byte, mode Mode) (*Stage, error) {
	if len(key) < MinKeySize {
		return nil, fmt.Errorf("%w: %d bytes, need %d", ErrKeyTooShort, len(key), MinKeySize)
	}
	if mode != ModeServer && mode != ModeClient {
		return nil, fmt.Errorf("%w: %d", ErrInvalidMode, mode)
	}
	s := &Stage{key: make([]byte, len(key)), mode: mode}
	copy(s.key, key)
	return s, nil
}

// Name implements pipeline.Stage.
func (s *Stage) Name() string {
	return StageName
}

// Wrap implements pipeline.Stage.
func (s *Stage) Wrap(c net.Conn) (net.Conn, error) {
	readLabel, writeLabel := s.mode.directions()

	readStream, err := s.keystream(readLabel)
	if err != nil {
		return nil, err
	}
	writeStream, err := s.keystream(writeLabel)
	if err != nil {
		return nil, err
	}

	return &conn{
		Conn:   c,
		reader: &cipher.StreamReader{S: readStream, R: c},
		writer: &cipher.StreamWriter{S: writeStream, W: c},
	}, nil
}

// keystream derives the AES-CTR stream for one direction label.
func (s *Stage) keystream(direction string) (cipher.Stream, error) {
	r := hkdf.New(sha256.New, s.key, nil, []byte(infoPrefix+direction))

	material := make([]byte, keystreamKeySize+aes.BlockSize)
	if _, err := io.ReadFull(r, material); err != nil {
		return nil, fmt.Errorf("failed to derive keystream: %w", err)
	}

	block, err := aes.NewCipher(material[:keystreamKeySize])
	if err != nil {
		return nil, fmt.Errorf("failed to init keystream cipher: %w", err)
	}
	return cipher.NewCTR(block, material[keystreamKeySize:]), nil
}

// conn applies the masking keystreams to reads and writes. All other
// connection behavior passes through to the wrapped conn.
type conn struct {
	net.Conn
	reader *cipher.StreamReader
	writer *cipher.StreamWriter
}

func (c *conn) Read(p []byte) (int, error) {
	return c.reader.Read(p)
}

func (c *conn) Write(p []byte) (int, error) {
	return c.writer.Write(p)
}

package binfmt

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"kilometers.ai/libbundle/internal/core/domain"
)

// Binary formats
const (
	FormatAuto  = "auto"
	FormatMachO = "macho"
	FormatELF   = "elf"
)

var elfMagic = []byte{0x7f, 'E', 'L', 'F'}

// Mach-O thin and fat magics as they appear in the first four bytes
var machoMagics = map[uint32]bool{
	0xfeedface: true,
	0xfeedfacf: true,
	0xcefaedfe: true,
	0xcffaedfe: true,
	0xcafebabe: true,
	0xbebafeca: true,
}

// ValidFormat reports whether name is a recognised format selector
func ValidFormat(name string) bool {
	switch name {
	case FormatAuto, FormatMachO, FormatELF:
		return true
	}
	return false
}

// Detect reads the magic bytes of path and returns its format
func Detect(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", &domain.NotFoundError{Path: path, Err: err}
		}
		return "", fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	return DetectReader(f)
}

// DetectReader returns the format of the binary read from r
func DetectReader(r io.Reader) (string, error) {
	magic := make([]byte, 4)
	if _, err := io.ReadFull(r, magic); err != nil {
		return "", fmt.Errorf("%w: file too short", domain.ErrUnsupportedFormat)
	}

	if bytes.Equal(magic, elfMagic) {
		return FormatELF, nil
	}
	if machoMagics[binary.BigEndian.Uint32(magic)] {
		return FormatMachO, nil
	}
	return "", fmt.Errorf("%w: unrecognised magic %x", domain.ErrUnsupportedFormat, magic)
}

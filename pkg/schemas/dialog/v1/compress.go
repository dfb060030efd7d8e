package dialog

import (
	"bytes"
	"compress/zlib"
	"io"
	"os"
)

// SerializeCompressed wraps Serialize with zlib compression. This is the
// body format used on the broker wire.
func (d *Dialog) SerializeCompressed() ([]byte, error) {
	raw, err := d.Serialize()
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	if _, err := zw.Write(raw); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DeserializeCompressed parses a zlib-compressed wire document.
func DeserializeCompressed(data []byte) (*Dialog, error) {
	raw, err := inflate(data)
	if err != nil {
		return nil, err
	}
	return Deserialize(raw)
}

// LoadFromBytes accepts either a compressed or a raw wire document:
// decompression is attempted first, with fallback to a raw parse. Files
// written by SaveFile in either mode round-trip through here.
func LoadFromBytes(data []byte) (*Dialog, error) {
	if raw, err := inflate(data); err == nil {
		return Deserialize(raw)
	}
	return Deserialize(data)
}

func inflate(data []byte) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	return io.ReadAll(zr)
}

// SaveFile writes the dialog to a single file, compressed or raw.
func (d *Dialog) SaveFile(path string, compressed bool) error {
	var (
		data []byte
		err  error
	)
	if compressed {
		data, err = d.SerializeCompressed()
	} else {
		data, err = d.Serialize()
	}
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// LoadFile reads a dialog file written by SaveFile, auto-detecting
// compression.
func LoadFile(path string) (*Dialog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return LoadFromBytes(data)
}

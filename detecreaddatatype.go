package dataslicer

import (
	"compress/bzip2"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/krolaw/zipstream"
	"github.com/xi2/xz"
)

type DataType byte

const (
	DataTypeInvalid DataType = iota
	DataTypeNoCompression
	DataTypeGzip
	DataTypeZip
	DataTypeXZ
	DataTypeZ
	DataTypeBZip2
)

func (d DataType) String() string {
	switch d {
	case DataTypeNoCompression:
		return "uncompressed"
	case DataTypeGzip:
		return "gzip"
	case DataTypeZip:
		return "zip"
	case DataTypeXZ:
		return "xz"
	case DataTypeZ:
		return "Z"
	case DataTypeBZip2:
		return "bzip2"
	}
	return "invalid"
}

// ErrUnsupportedCompression is returned for formats that are recognized but
// cannot be decoded, such as Unix compress (.Z).
var ErrUnsupportedCompression = errors.New("unsupported compression")

var byteCodeSigs = map[DataType][]byte{
	DataTypeGzip:  {0x1f, 0x8b, 0x08},
	DataTypeZip:   {0x50, 0x4b, 0x03, 0x04},
	DataTypeXZ:    {0xfd, 0x37, 0x7a, 0x58, 0x5a, 0x00},
	DataTypeZ:     {0x1f, 0x9d},
	DataTypeBZip2: {0x42, 0x5a, 0x68},
}

// DetectDataType attempts to detect the data type of a stream by checking
// against a set of known data types. Byte code signatures from
// https://stackoverflow.com/a/19127748/199475
//
// An empty stream is DataTypeInvalid with io.EOF: a coverage artifact that
// came back empty from the file host is not a usable download.
func DetectDataType(r io.Reader) (DataType, error) {
	buff := make([]byte, 6)
	n, err := io.ReadFull(r, buff)
	if n == 0 {
		if err == nil || err == io.ErrUnexpectedEOF {
			err = io.EOF
		}
		return DataTypeInvalid, err
	}
	buff = buff[:n]

	// Match known signatures
Outer:
	for dt, sig := range byteCodeSigs {
		if len(buff) < len(sig) {
			continue
		}
		for position := range sig {
			if buff[position] != sig[position] {
				continue Outer
			}
		}
		return dt, nil
	}

	return DataTypeNoCompression, nil
}

// MaybeDecompressReadCloserFromFile sniffs the compression of f and returns a
// reader over the decompressed contents. Uncompressed files are returned as-is.
func MaybeDecompressReadCloserFromFile(f *os.File) (io.ReadCloser, error) {
	dt, err := DetectDataType(f)
	if err != nil {
		return nil, err
	}
	// Reset your original reader
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}

	switch dt {
	case DataTypeGzip:
		return gzip.NewReader(f)
	case DataTypeZip:
		return &readCloserFaker{zipstream.NewReader(f)}, nil
	case DataTypeBZip2:
		return &readCloserFaker{bzip2.NewReader(f)}, nil
	case DataTypeXZ:
		reader, err := xz.NewReader(f, 0)
		if err != nil {
			return nil, err
		}
		return &readCloserFaker{reader}, nil
	case DataTypeZ:
		return nil, fmt.Errorf("%w: %s (LZW, as written by compress(1))", ErrUnsupportedCompression, dt)
	}

	// No data type detected. For now, we assume this is uncompressed.
	return f, nil
}

// DecompressFile writes the decompressed contents of src to dst and removes
// src, like `xz -d`. dst is written through a temporary file so that a partial
// write never looks like a finished coverage file.
func DecompressFile(src, dst string) (DataType, error) {
	f, err := os.Open(src)
	if err != nil {
		return DataTypeInvalid, err
	}
	defer f.Close()

	dt, err := DetectDataType(f)
	if err != nil {
		return dt, fmt.Errorf("%s: %w", src, err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return dt, err
	}

	r, err := MaybeDecompressReadCloserFromFile(f)
	if err != nil {
		return dt, err
	}
	defer r.Close()

	tmp := dst + ".partial"
	out, err := os.Create(tmp)
	if err != nil {
		return dt, err
	}
	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		os.Remove(tmp)
		return dt, err
	}
	if err := out.Close(); err != nil {
		os.Remove(tmp)
		return dt, err
	}
	if err := os.Rename(tmp, dst); err != nil {
		return dt, err
	}

	if src != dst {
		f.Close()
		if err := os.Remove(src); err != nil {
			return dt, err
		}
	}

	return dt, nil
}

// readCloserFaker "upgrades" readers that don't need to be closed
type readCloserFaker struct {
	io.Reader
}

func (c *readCloserFaker) Close() error {
	return nil
}

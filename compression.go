package scqc

import (
	"bufio"
	"compress/bzip2"
	"compress/gzip"
	"compress/zlib"
	"io"

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

var byteCodeSigs = map[DataType][]byte{
	DataTypeGzip:  {0x1f, 0x8b, 0x08},
	DataTypeZip:   {0x50, 0x4b, 0x03, 0x04},
	DataTypeXZ:    {0xfd, 0x37, 0x7a, 0x58, 0x5a, 0x00},
	DataTypeZ:     {0x1f, 0x9d},
	DataTypeBZip2: {0x42, 0x5a, 0x68},
}

// DetectDataType matches the leading bytes of a stream against a set of known
// compression signatures. Byte code signatures from
// https://stackoverflow.com/a/19127748/199475
func DetectDataType(leading []byte) DataType {
Outer:
	for dt, sig := range byteCodeSigs {
		if len(leading) < len(sig) {
			continue
		}
		for position := range sig {
			if leading[position] != sig[position] {
				continue Outer
			}
		}
		return dt
	}

	return DataTypeNoCompression
}

// MaybeDecompressReadCloser sniffs the leading bytes of rc and, when a known
// compression signature is found, interposes the matching decompressor.
// Works on non-seekable streams (including Google Storage readers) by
// buffering rather than rewinding. Closing the returned reader closes rc.
func MaybeDecompressReadCloser(rc io.ReadCloser) (io.ReadCloser, error) {
	br := bufio.NewReader(rc)

	leading, err := br.Peek(6)
	if err != nil && err != io.EOF {
		return nil, err
	}

	switch DetectDataType(leading) {
	case DataTypeGzip:
		gzr, err := gzip.NewReader(br)
		if err != nil {
			return nil, err
		}
		return &wrappedReadCloser{gzr, rc}, nil
	case DataTypeZip:
		return &wrappedReadCloser{zipstream.NewReader(br), rc}, nil
	case DataTypeBZip2:
		return &wrappedReadCloser{bzip2.NewReader(br), rc}, nil
	case DataTypeXZ:
		xzr, err := xz.NewReader(br, 0)
		if err != nil {
			return nil, err
		}
		return &wrappedReadCloser{xzr, rc}, nil
	case DataTypeZ:
		zr, err := zlib.NewReader(br)
		if err != nil {
			return nil, err
		}
		return &wrappedReadCloser{zr, rc}, nil
	}

	// No data type detected. For now, we assume this is uncompressed.
	return &wrappedReadCloser{br, rc}, nil
}

// wrappedReadCloser reads from the (possibly decompressing) reader but closes
// the original underlying stream.
type wrappedReadCloser struct {
	io.Reader
	underlying io.Closer
}

func (c *wrappedReadCloser) Close() error {
	return c.underlying.Close()
}

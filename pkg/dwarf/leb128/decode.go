package leb128

import (
	"bytes"
	"io"
)

// Reader is a io.ByteReader with a Len method. This interface is
// satisfied by both bytes.Buffer and bytes.Reader.
type Reader interface {
	io.ByteReader
	io.Reader
	Len() int
}

// DecodeUnsigned decodes an unsigned Little Endian Base 128
// represented number.
// A truncated encoding yields the bits read so far; the returned length
// counts the bytes consumed.
func DecodeUnsigned(buf Reader) (uint64, uint32) {
	var (
		result uint64
		shift  uint64
		length uint32
	)

	for buf.Len() > 0 {
		b, err := buf.ReadByte()
		if err != nil {
			break
		}
		length++

		if shift < 64 {
			result |= uint64(b&0x7f) << shift
		}

		// If high order bit is 1.
		if b&0x80 == 0 {
			break
		}

		shift += 7
	}

	return result, length
}

// DecodeSigned decodes a signed Little Endian Base 128
// represented number.
// A truncated encoding yields the bits read so far; the returned length
// counts the bytes consumed.
func DecodeSigned(buf Reader) (int64, uint32) {
	var (
		b      byte
		result int64
		shift  uint64
		length uint32
	)

	for buf.Len() > 0 {
		var err error
		b, err = buf.ReadByte()
		if err != nil {
			break
		}
		length++

		if shift < 64 {
			result |= int64(b&0x7f) << shift
		}
		shift += 7
		if b&0x80 == 0 {
			break
		}
	}

	if length > 0 && shift < 64 && b&0x40 != 0 {
		result |= -(1 << shift)
	}

	return result, length
}

// Unsigned decodes the unsigned LEB128 number at the start of data.
func Unsigned(data []byte) uint64 {
	n, _ := DecodeUnsigned(bytes.NewReader(data))
	return n
}

// Signed decodes the signed LEB128 number at the start of data.
func Signed(data []byte) int64 {
	n, _ := DecodeSigned(bytes.NewReader(data))
	return n
}

package protocol

import (
	"encoding/binary"
	"errors"
	"io"
)

const (
	MagicNumber = 0x4E

	OpPut   = 0x01
	OpGet   = 0x02
	OpDel   = 0x03
	OpSize  = 0x04
	OpKeys  = 0x05
	OpClear = 0x06

	RespOK       = 0x00
	RespVal      = 0x01
	RespNotFound = 0x02
	RespErr      = 0xFF
)

var ErrInvalidMagic = errors.New("invalid magic number")

type Packet struct {
	Op    byte
	Key   []byte
	Value []byte
}

// Frame layout: magic(1) op(1) keyLen(2) valueLen(4) key value, big endian.
func Encode(w io.Writer, op byte, key []byte, value []byte) error {
	if len(key) > 0xFFFF {
		return errors.New("key too long")
	}
	header := make([]byte, 8)
	header[0] = MagicNumber
	header[1] = op
	binary.BigEndian.PutUint16(header[2:4], uint16(len(key)))
	binary.BigEndian.PutUint32(header[4:8], uint32(len(value)))

	if _, err := w.Write(header); err != nil {
		return err
	}
	if len(key) > 0 {
		if _, err := w.Write(key); err != nil {
			return err
		}
	}
	if len(value) > 0 {
		if _, err := w.Write(value); err != nil {
			return err
		}
	}
	return nil
}

func Decode(r io.Reader) (*Packet, error) {
	header := make([]byte, 8)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, err
	}

	if header[0] != MagicNumber {
		return nil, ErrInvalidMagic
	}

	op := header[1]
	kLen := binary.BigEndian.Uint16(header[2:4])
	vLen := binary.BigEndian.Uint32(header[4:8])

	key := make([]byte, kLen)
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, err
	}

	val := make([]byte, vLen)
	if _, err := io.ReadFull(r, val); err != nil {
		return nil, err
	}

	return &Packet{Op: op, Key: key, Value: val}, nil
}

// EncodeStrings packs a list as [count 4B] ([len 4B] [bytes])*.
func EncodeStrings(items []string) []byte {
	size := 4
	for _, s := range items {
		size += 4 + len(s)
	}
	buf := make([]byte, 0, size)
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(items)))
	for _, s := range items {
		buf = binary.BigEndian.AppendUint32(buf, uint32(len(s)))
		buf = append(buf, s...)
	}
	return buf
}

var errShortPayload = errors.New("truncated string list")

func DecodeStrings(data []byte) ([]string, error) {
	if len(data) < 4 {
		return nil, errShortPayload
	}
	count := binary.BigEndian.Uint32(data)
	data = data[4:]

	items := make([]string, 0, count)
	for i := uint32(0); i < count; i++ {
		if len(data) < 4 {
			return nil, errShortPayload
		}
		n := binary.BigEndian.Uint32(data)
		data = data[4:]
		if uint32(len(data)) < n {
			return nil, errShortPayload
		}
		items = append(items, string(data[:n]))
		data = data[n:]
	}
	return items, nil
}

func EncodeCount(n int) []byte {
	return binary.BigEndian.AppendUint64(nil, uint64(n))
}

func DecodeCount(data []byte) (int, error) {
	if len(data) != 8 {
		return 0, errors.New("count must be 8 bytes")
	}
	return int(binary.BigEndian.Uint64(data)), nil
}

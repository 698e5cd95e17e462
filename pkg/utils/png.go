package utils

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"image"
	"io"
)

var pngSignature = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

const colorTypeRGBA = 6

// EncodeRGBAPNG writes img as an 8-bit truecolor-with-alpha PNG, even when
// every pixel is opaque (image/png would write RGB then).
func EncodeRGBAPNG(img image.Image) ([]byte, error) {
	src := toNRGBA(img)
	width, height := src.Rect.Dx(), src.Rect.Dy()
	if width <= 0 || height <= 0 {
		return nil, errors.New("png: cannot encode an empty image")
	}

	var buf bytes.Buffer
	buf.Write(pngSignature)

	header := make([]byte, 13)
	binary.BigEndian.PutUint32(header[0:4], uint32(width))
	binary.BigEndian.PutUint32(header[4:8], uint32(height))
	header[8] = 8
	header[9] = colorTypeRGBA
	if err := writeChunk(&buf, "IHDR", header); err != nil {
		return nil, err
	}

	var data bytes.Buffer
	zw, err := zlib.NewWriterLevel(&data, zlib.DefaultCompression)
	if err != nil {
		return nil, err
	}

	rowLen := width * 4
	for y := 0; y < height; y++ {
		// filter type 0 (none)
		if _, err := zw.Write([]byte{0}); err != nil {
			return nil, err
		}
		start := y * src.Stride
		if _, err := zw.Write(src.Pix[start : start+rowLen]); err != nil {
			return nil, err
		}
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}

	if err := writeChunk(&buf, "IDAT", data.Bytes()); err != nil {
		return nil, err
	}
	if err := writeChunk(&buf, "IEND", nil); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

func writeChunk(w io.Writer, name string, payload []byte) error {
	var length [4]byte
	binary.BigEndian.PutUint32(length[:], uint32(len(payload)))
	if _, err := w.Write(length[:]); err != nil {
		return err
	}

	crc := crc32.NewIEEE()
	crc.Write([]byte(name))
	crc.Write(payload)

	if _, err := io.WriteString(w, name); err != nil {
		return err
	}
	if _, err := w.Write(payload); err != nil {
		return err
	}

	var sum [4]byte
	binary.BigEndian.PutUint32(sum[:], crc.Sum32())
	_, err := w.Write(sum[:])
	return err
}

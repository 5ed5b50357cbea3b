package sink

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
)

const (
	encodingGzip     = "gzip"
	encodingDeflate  = "deflate"
	encodingZstd     = "zstd"
	encodingIdentity = "identity"
)

var (
	errUnsupportedEncoding = errors.New("unsupported content encoding")
	errDecodedTooLarge     = errors.New("decoded body exceeds limit")
)

// decodeBody undoes the Content-Encoding of data. Encodings are listed in
// the order they were applied, so they are undone in reverse.
// The decoded size is capped at limit bytes.
func decodeBody(data []byte, contentEncoding string, limit int64) ([]byte, error) {
	codings := strings.Split(contentEncoding, ",")
	for i := len(codings) - 1; i >= 0; i-- {
		coding := normalizeEncoding(codings[i])
		if coding == "" || coding == encodingIdentity {
			continue
		}
		var err error
		data, err = decodeOne(data, coding, limit)
		if err != nil {
			return nil, err
		}
	}
	return data, nil
}

func normalizeEncoding(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "x-gzip" {
		return encodingGzip
	}
	return s
}

func decodeOne(data []byte, coding string, limit int64) ([]byte, error) {
	switch coding {
	case encodingGzip:
		zr, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("gzip: %w", err)
		}
		defer zr.Close()
		return readLimited(zr, limit)

	case encodingDeflate:
		// deflate is zlib-wrapped per RFC 9110 but raw DEFLATE is common.
		if zr, err := zlib.NewReader(bytes.NewReader(data)); err == nil {
			defer zr.Close()
			if out, err := readLimited(zr, limit); err == nil || errors.Is(err, errDecodedTooLarge) {
				return out, err
			}
		}
		fr := flate.NewReader(bytes.NewReader(data))
		defer fr.Close()
		return readLimited(fr, limit)

	case encodingZstd:
		dec, err := zstd.NewReader(bytes.NewReader(data), zstd.WithDecoderConcurrency(1))
		if err != nil {
			return nil, fmt.Errorf("zstd: %w", err)
		}
		defer dec.Close()
		return readLimited(dec, limit)

	default:
		return nil, fmt.Errorf("%w: %q", errUnsupportedEncoding, coding)
	}
}

func readLimited(r io.Reader, limit int64) ([]byte, error) {
	if limit <= 0 {
		return io.ReadAll(r)
	}
	out, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(out)) > limit {
		return nil, errDecodedTooLarge
	}
	return out, nil
}

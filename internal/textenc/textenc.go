// Package textenc normalizes the text encoding of incoming price files.
// Daily CSV drops arrive in a mix of GBK/GB18030 and UTF-8; everything
// downstream assumes UTF-8. Detection is heuristic, with GB18030 as the
// fallback when confidence is low.
package textenc

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/saintfish/chardet"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/traditionalchinese"
	"golang.org/x/text/transform"
)

// sampleSize is how much of a file is read for charset detection.
const sampleSize = 64 * 1024

// minConfidence below which the detector result is distrusted and the
// GB18030 fallback is used, matching how the source files actually skew.
const minConfidence = 70

// Detect sniffs the charset of sample bytes. It never fails: an unreadable
// or ambiguous sample resolves to the GB18030 fallback.
func Detect(sample []byte) string {
	result, err := chardet.NewTextDetector().DetectBest(sample)
	if err != nil || result == nil || result.Confidence < minConfidence {
		return "GB18030"
	}
	return result.Charset
}

// decoderFor maps a detected charset name to a decoder. UTF-8 and plain
// ASCII need no transformation and return nil.
func decoderFor(charset string) *encoding.Decoder {
	switch strings.ToUpper(strings.ReplaceAll(charset, "-", "")) {
	case "UTF8", "ASCII", "USASCII":
		return nil
	case "GB2312", "GBK", "GB18030", "HZGB2312":
		return simplifiedchinese.GB18030.NewDecoder()
	case "BIG5":
		return traditionalchinese.Big5.NewDecoder()
	}
	if enc, err := ianaindex.IANA.Encoding(charset); err == nil && enc != nil {
		return enc.NewDecoder()
	}
	return simplifiedchinese.GB18030.NewDecoder()
}

// NewUTF8Reader wraps r so reads yield UTF-8, detecting the source charset
// from the head of the stream.
func NewUTF8Reader(r io.Reader) (io.Reader, string, error) {
	br := bufio.NewReaderSize(r, sampleSize)
	sample, err := br.Peek(sampleSize)
	if err != nil && err != io.EOF {
		return nil, "", fmt.Errorf("failed to sample stream: %w", err)
	}
	charset := Detect(sample)
	dec := decoderFor(charset)
	if dec == nil {
		return br, charset, nil
	}
	return transform.NewReader(br, dec), charset, nil
}

// ConvertFile transcodes one file to UTF-8, streaming so large drops do not
// load into memory.
func ConvertFile(inPath, outPath string) (string, error) {
	in, err := os.Open(inPath)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", inPath, err)
	}
	defer in.Close()

	reader, charset, err := NewUTF8Reader(in)
	if err != nil {
		return "", err
	}

	out, err := os.Create(outPath)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", outPath, err)
	}
	defer out.Close()

	w := bufio.NewWriter(out)
	if _, err := io.Copy(w, reader); err != nil {
		return charset, fmt.Errorf("failed to transcode %s: %w", inPath, err)
	}
	if err := w.Flush(); err != nil {
		return charset, fmt.Errorf("failed to flush %s: %w", outPath, err)
	}
	return charset, nil
}

// ConvertDir transcodes every CSV in inDir into outDir, keeping file names.
// Returns the number of files converted.
func ConvertDir(inDir, outDir string, log *slog.Logger) (int, error) {
	if log == nil {
		log = slog.Default()
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return 0, fmt.Errorf("failed to create %s: %w", outDir, err)
	}

	entries, err := os.ReadDir(inDir)
	if err != nil {
		return 0, fmt.Errorf("failed to read %s: %w", inDir, err)
	}

	converted := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".csv") {
			continue
		}
		inPath := filepath.Join(inDir, entry.Name())
		outPath := filepath.Join(outDir, entry.Name())
		charset, err := ConvertFile(inPath, outPath)
		if err != nil {
			return converted, err
		}
		log.Info("converted file",
			slog.String("file", entry.Name()),
			slog.String("from", charset))
		converted++
	}
	return converted, nil
}

// Package sniffer identifies photo formats from their leading bytes.
package sniffer

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"mime"
	"strings"
)

type MediaType string

const (
	TypeJPEG MediaType = "jpeg"
	TypePNG  MediaType = "png"
	TypeGIF  MediaType = "gif"
	TypeWEBP MediaType = "webp"
	TypeAVIF MediaType = "avif"
	TypeHEIC MediaType = "heic"
)

// HeadSize is how many bytes DetectHead needs to decide.
const HeadSize = 512

var ErrUnknownType = errors.New("unknown media type")

type Result struct {
	Type MediaType
	MIME string
}

// Ext is the canonical file extension, with the leading dot.
func (r Result) Ext() string {
	if r.Type == TypeJPEG {
		return ".jpg"
	}
	return "." + string(r.Type)
}

// Peek inspects the head of br without consuming it, so the caller can
// keep streaming from br.
func Peek(br *bufio.Reader) (Result, error) {
	head, err := br.Peek(HeadSize)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return Result{}, err
	}
	return DetectHead(head)
}

func DetectHead(head []byte) (Result, error) {
	if len(head) == 0 {
		return Result{}, ErrUnknownType
	}

	switch {
	case isJPEG(head):
		return Result{Type: TypeJPEG, MIME: "image/jpeg"}, nil
	case isPNG(head):
		return Result{Type: TypePNG, MIME: "image/png"}, nil
	case isGIF(head):
		return Result{Type: TypeGIF, MIME: "image/gif"}, nil
	case isWEBP(head):
		return Result{Type: TypeWEBP, MIME: "image/webp"}, nil
	case hasBrand(head, "avif", "avis"):
		return Result{Type: TypeAVIF, MIME: "image/avif"}, nil
	case hasBrand(head, "heic", "heix", "mif1"):
		return Result{Type: TypeHEIC, MIME: "image/heic"}, nil
	}

	return Result{}, ErrUnknownType
}

func isJPEG(head []byte) bool {
	return len(head) > 3 &&
		head[0] == 0xff &&
		head[1] == 0xd8 &&
		head[2] == 0xff
}

func isPNG(head []byte) bool {
	pngMagic := []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}
	return len(head) >= len(pngMagic) && bytes.Equal(head[:len(pngMagic)], pngMagic)
}

func isGIF(head []byte) bool {
	return len(head) >= 6 && (bytes.Equal(head[:6], []byte("GIF87a")) || bytes.Equal(head[:6], []byte("GIF89a")))
}

func isWEBP(head []byte) bool {
	return len(head) >= 12 &&
		bytes.Equal(head[:4], []byte("RIFF")) &&
		bytes.Equal(head[8:12], []byte("WEBP"))
}

// hasBrand matches ISO-BMFF files whose ftyp box lists one of brands.
func hasBrand(head []byte, brands ...string) bool {
	if len(head) < 16 || string(head[4:8]) != "ftyp" {
		return false
	}
	box := head[8:]
	if size := int(head[0])<<24 | int(head[1])<<16 | int(head[2])<<8 | int(head[3]); size >= 16 && size <= len(head) {
		box = head[8:size]
	}
	for _, brand := range brands {
		if bytes.Contains(box, []byte(brand)) {
			return true
		}
	}
	return false
}

// NormalizeContentType strips parameters from a declared Content-Type.
// Empty and application/octet-stream come back as "".
func NormalizeContentType(contentType string) string {
	if contentType == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0])
	}
	mediaType = strings.ToLower(mediaType)
	if mediaType == "application/octet-stream" {
		return ""
	}
	return mediaType
}

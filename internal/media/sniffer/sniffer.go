package sniffer

import (
	"bytes"
	"errors"
	"strings"
)

// MediaType names an accepted photo format.
type MediaType string

const (
	TypeJPEG MediaType = "jpeg"
	TypePNG  MediaType = "png"
	TypeGIF  MediaType = "gif"
	TypeWEBP MediaType = "webp"
	TypeAVIF MediaType = "avif"
	TypeHEIC MediaType = "heic"
	TypeTIFF MediaType = "tiff"
	TypeSVG  MediaType = "svg"
)

var ErrUnknownType = errors.New("unknown media type")

type Result struct {
	Type MediaType
	MIME string
}

// Extension is the file suffix used for stored objects.
func (t MediaType) Extension() string {
	switch t {
	case TypeJPEG:
		return "jpg"
	case TypeTIFF:
		return "tif"
	case "":
		return "bin"
	default:
		return string(t)
	}
}

// DetectHead identifies a photo by its leading bytes. The declared content
// type of an upload is never trusted.
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
	case isTIFF(head):
		return Result{Type: TypeTIFF, MIME: "image/tiff"}, nil
	}

	if brand, ok := ftypBrands(head); ok {
		switch {
		case bytes.Contains(brand, []byte("avif")):
			return Result{Type: TypeAVIF, MIME: "image/avif"}, nil
		case bytes.Contains(brand, []byte("heic")), bytes.Contains(brand, []byte("heix")), bytes.Contains(brand, []byte("mif1")):
			return Result{Type: TypeHEIC, MIME: "image/heic"}, nil
		}
	}

	if isSVG(head) {
		return Result{Type: TypeSVG, MIME: "image/svg+xml"}, nil
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

func isTIFF(head []byte) bool {
	return len(head) >= 4 &&
		(bytes.Equal(head[:4], []byte{'I', 'I', 0x2a, 0x00}) || bytes.Equal(head[:4], []byte{'M', 'M', 0x00, 0x2a}))
}

// ftypBrands returns the brand area of an ISO-BMFF ftyp box.
func ftypBrands(head []byte) ([]byte, bool) {
	if len(head) < 16 || string(head[4:8]) != "ftyp" {
		return nil, false
	}
	end := len(head)
	if end > 64 {
		end = 64
	}
	return head[8:end], true
}

func isSVG(head []byte) bool {
	limit := len(head)
	if limit > 1024 {
		limit = 1024
	}
	lower := strings.ToLower(strings.TrimSpace(string(head[:limit])))
	if strings.HasPrefix(lower, "<svg") {
		return true
	}
	return strings.HasPrefix(lower, "<?xml") && strings.Contains(lower, "<svg")
}

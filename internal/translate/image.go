package translate

import (
	"encoding/base64"

	"github.com/howard-nolan/geminiproxy/internal/anthropicapi"
	"github.com/howard-nolan/geminiproxy/internal/geminiapi"
)

// maxImageSizeBytes is the inline-data cap, grounded on
// original_source/src/vision/models.rs's MAX_IMAGE_SIZE_BYTES (20 MiB, the
// Gemini inline_data limit).
const maxImageSizeBytes = 20 * 1024 * 1024

// supportedImageMIMETypes mirrors vision/models.rs's ImageFormat enum.
var supportedImageMIMETypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
	"image/gif":  true,
	"image/heic": true,
}

// translateImageBlock converts an Anthropic image content block into a
// Gemini inline_data Part, grounded on
// original_source/src/vision/translation.rs's translate_image_block.
//
// The client's base64 payload is decoded only to validate size and to sniff
// a missing media type; the bytes handed to Gemini are the client's
// original base64 string, unchanged and not re-encoded.
func translateImageBlock(block anthropicapi.ContentBlock) (geminiapi.Part, error) {
	if block.Source == nil {
		return geminiapi.Part{}, NewError(KindTranslation, "image block missing source")
	}
	src := block.Source
	if src.Type != "base64" {
		return geminiapi.Part{}, NewError(KindTranslation, "unsupported image source type: %s", src.Type)
	}

	raw, err := base64.StdEncoding.DecodeString(src.Data)
	if err != nil {
		return geminiapi.Part{}, NewError(KindTranslation, "invalid base64 image data: %v", err)
	}
	if len(raw) > maxImageSizeBytes {
		return geminiapi.Part{}, NewError(KindTranslation, "image exceeds maximum size of %d bytes", maxImageSizeBytes)
	}

	mediaType := src.MediaType
	if mediaType == "" {
		detected, ok := detectMIMEType(raw)
		if !ok {
			return geminiapi.Part{}, NewError(KindTranslation, "unable to determine image media type")
		}
		mediaType = detected
	}
	if !supportedImageMIMETypes[mediaType] {
		return geminiapi.Part{}, NewError(KindTranslation, "unsupported image media type: %s", mediaType)
	}

	return geminiapi.InlineDataPart(mediaType, src.Data), nil
}

// detectMIMEType sniffs the image format from its leading magic bytes,
// grounded on original_source/src/vision/translation.rs's detect_mime_type.
func detectMIMEType(data []byte) (string, bool) {
	if len(data) < 12 {
		return "", false
	}
	switch {
	case data[0] == 0xFF && data[1] == 0xD8 && data[2] == 0xFF:
		return "image/jpeg", true
	case data[0] == 0x89 && string(data[1:8]) == "PNG\r\n\x1a\n":
		return "image/png", true
	case string(data[0:6]) == "GIF87a" || string(data[0:6]) == "GIF89a":
		return "image/gif", true
	case string(data[0:4]) == "RIFF" && string(data[8:12]) == "WEBP":
		return "image/webp", true
	case string(data[4:12]) == "ftypheic" || string(data[4:12]) == "ftypheix":
		return "image/heic", true
	default:
		return "", false
	}
}

package filetype

import (
	"encoding/base64"
	"fmt"
	"os"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog/log"
)

// ImageInfo contains detected page image information
type ImageInfo struct {
	MIMEType    string
	Extension   string
	Supported   bool
	Description string
}

// Page image types accepted by the vision model.
var supportedImages = map[string]string{
	"image/png":  "PNG image",
	"image/jpeg": "JPEG image",
	"image/webp": "WebP image",
	"image/heic": "HEIC image",
	"image/heif": "HEIF image",
}

// Detector handles page image detection using magic bytes
type Detector struct{}

// New creates a new detector
func New() *Detector {
	return &Detector{}
}

// Detect classifies data by content, never by filename.
func (d *Detector) Detect(data []byte) *ImageInfo {
	mtype := mimetype.Detect(data)
	info := &ImageInfo{MIMEType: mtype.String(), Extension: mtype.Extension()}
	// mimetype may append parameters (e.g. "; charset=utf-8"); match on the bare type
	for m := mtype; m != nil; m = m.Parent() {
		if desc, ok := supportedImages[m.String()]; ok {
			info.MIMEType = m.String()
			info.Extension = m.Extension()
			info.Supported = true
			info.Description = desc
			break
		}
	}
	if !info.Supported {
		info.Description = fmt.Sprintf("Unsupported file type: %s", mtype.String())
	}
	log.Debug().Str("mime", info.MIMEType).Str("ext", info.Extension).Bool("supported", info.Supported).Msg("detected page image type")
	return info
}

// Encode validates data as a supported page image and returns it as raw
// base64 together with its media type.
func (d *Detector) Encode(data []byte) (string, string, error) {
	if len(data) == 0 {
		return "", "", fmt.Errorf("empty image")
	}
	info := d.Detect(data)
	if !info.Supported {
		return "", "", fmt.Errorf("%s", info.Description)
	}
	return base64.StdEncoding.EncodeToString(data), info.MIMEType, nil
}

// EncodeFile reads path and encodes it like Encode.
func (d *Detector) EncodeFile(path string) (string, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", "", fmt.Errorf("read image: %w", err)
	}
	return d.Encode(data)
}

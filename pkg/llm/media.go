package llm

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
)

// MaxImageBytes caps attachments read from a data URI or fetched over HTTP.
const MaxImageBytes = 10 * 1024 * 1024

var ErrNotImage = errors.New("reference is not an image")

type Image struct {
	MIMEType string
	Data     []byte
}

var imageClient = &http.Client{Timeout: 30 * time.Second}

// LoadImage resolves an image reference: a data URI is decoded in place, an
// http(s) URL is downloaded. The MIME type is sniffed from the bytes.
func LoadImage(ctx context.Context, ref string) (Image, error) {
	ref = strings.TrimSpace(ref)

	var data []byte
	switch {
	case strings.HasPrefix(strings.ToLower(ref), "data:"):
		comma := strings.IndexByte(ref, ',')
		if comma < 0 {
			return Image{}, fmt.Errorf("malformed data uri")
		}
		meta := ref[5:comma]
		payload := ref[comma+1:]
		if strings.HasSuffix(strings.ToLower(meta), ";base64") {
			decoded, err := base64.StdEncoding.DecodeString(payload)
			if err != nil {
				return Image{}, fmt.Errorf("decode data uri: %w", err)
			}
			data = decoded
		} else {
			data = []byte(payload)
		}
	case strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://"):
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
		if err != nil {
			return Image{}, fmt.Errorf("create request: %w", err)
		}
		resp, err := imageClient.Do(req)
		if err != nil {
			return Image{}, fmt.Errorf("fetch image: %w", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return Image{}, fmt.Errorf("fetch image: status %d", resp.StatusCode)
		}
		data, err = io.ReadAll(io.LimitReader(resp.Body, MaxImageBytes+1))
		if err != nil {
			return Image{}, fmt.Errorf("read image: %w", err)
		}
	default:
		return Image{}, fmt.Errorf("unsupported image reference")
	}

	if len(data) > MaxImageBytes {
		return Image{}, fmt.Errorf("image larger than %d bytes", MaxImageBytes)
	}

	mt := mimetype.Detect(data)
	if !strings.HasPrefix(mt.String(), "image/") {
		return Image{}, fmt.Errorf("%w: detected %s", ErrNotImage, mt.String())
	}
	return Image{MIMEType: mt.String(), Data: data}, nil
}

func (i Image) Base64() string {
	return base64.StdEncoding.EncodeToString(i.Data)
}

// DataURI renders the image inline.
func (i Image) DataURI() string {
	return "data:" + i.MIMEType + ";base64," + i.Base64()
}

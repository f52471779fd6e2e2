// Package qrsvc renders QR codes as PNG images.
package qrsvc

import (
	"github.com/pkg/errors"
	"github.com/skip2/go-qrcode"
)

const (
	EntrySize = 300 // check-in entry poster
	PassSize  = 200 // attendee pass

	MinSize = 64
	MaxSize = 1024
)

// Encoder renders PNG QR codes at the highest error recovery level, so printed codes survive smudges.
type Encoder struct {
	level qrcode.RecoveryLevel
}

func NewEncoder() *Encoder {
	return &Encoder{level: qrcode.Highest}
}

// PNG encodes content into a size x size PNG. size is clamped to [MinSize, MaxSize].
func (e *Encoder) PNG(content string, size int) ([]byte, error) {
	if content == "" {
		return nil, errors.New("empty QR content")
	}
	if size < MinSize {
		size = MinSize
	} else if size > MaxSize {
		size = MaxSize
	}
	png, err := qrcode.Encode(content, e.level, size)
	if err != nil {
		return nil, errors.Wrap(err, "encoding QR code")
	}
	return png, nil
}

package media

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		contentType string
		want        Kind
	}{
		{contentType: "image/png", want: KindPhoto},
		{contentType: "image/jpeg; charset=binary", want: KindPhoto},
		{contentType: "video/mp4", want: KindVideo},
		{contentType: "application/pdf", want: KindDocument},
		{contentType: "application/octet-stream", want: KindDocument},
		{contentType: "", want: KindDocument},
		// "image" is checked before "video".
		{contentType: "video/x-image-sequence", want: KindPhoto},
		// Matching is case-sensitive.
		{contentType: "IMAGE/PNG", want: KindDocument},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Classify(tt.contentType), tt.contentType)
	}
}

func TestKindFilename(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "photo.jpg", KindPhoto.Filename())
	assert.Equal(t, "video.mp4", KindVideo.Filename())
	assert.Equal(t, "file.bin", KindDocument.Filename())
	assert.Equal(t, "file.bin", Kind("other").Filename())
}

func TestResourceEffectiveContentType(t *testing.T) {
	t.Parallel()

	assert.Equal(t, DefaultContentType, Resource{}.EffectiveContentType())
	assert.Equal(t, "application/pdf", Resource{ContentType: " application/pdf "}.EffectiveContentType())
	assert.Equal(t, KindVideo, Resource{ContentType: "video/webm"}.Kind())
}

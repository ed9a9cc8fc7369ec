package media

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateImageSize(t *testing.T) {
	assert.Nil(t, ValidateImageSize(1))
	assert.Nil(t, ValidateImageSize(MaxImageSize))

	assert.NotNil(t, ValidateImageSize(0))
	assert.NotNil(t, ValidateImageSize(-5))
	assert.NotNil(t, ValidateImageSize(MaxImageSize+1))
}

func TestValidateImageType(t *testing.T) {
	assert.Nil(t, ValidateImageType("icon.png", "image/png"))
	assert.Nil(t, ValidateImageType("photo.JPEG", "image/jpeg"))
	assert.Nil(t, ValidateImageType("pic.gif", "IMAGE/GIF"))

	// disallowed MIME type
	assert.NotNil(t, ValidateImageType("script.svg", "image/svg+xml"))

	// extension and MIME type disagree
	assert.NotNil(t, ValidateImageType("icon.png", "image/jpeg"))

	// no usable extension
	assert.NotNil(t, ValidateImageType("noext", "image/png"))
	assert.NotNil(t, ValidateImageType(".", "image/png"))
}

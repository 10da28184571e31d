package content

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHashString(t *testing.T) {
	// sha256("merged")
	assert.Equal(t,
		"3f8f09c8e09f712b362183db69f4f061bd948d7a61e7663b585d723602c559b1",
		HashString("merged"))
	assert.Equal(t,
		"e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855",
		HashString(""))
}

func TestSize(t *testing.T) {
	assert.Equal(t, int64(0), Size(nil))
	assert.Equal(t, int64(5), Size([]byte("hello")))
}

func TestDetectMIMEType(t *testing.T) {
	assert.Equal(t, "text/x-go", DetectMIMEType("main.go"))
	assert.Equal(t, "text/markdown", DetectMIMEType("README.md"))
	assert.Equal(t, "image/png", DetectMIMEType("logo.PNG"))
	assert.Equal(t, "application/octet-stream", DetectMIMEType("Makefile"))
}

func TestIsText(t *testing.T) {
	assert.True(t, IsText("text/plain"))
	assert.True(t, IsText("application/json"))
	assert.False(t, IsText("image/png"))
	assert.False(t, IsText("application/octet-stream"))
}

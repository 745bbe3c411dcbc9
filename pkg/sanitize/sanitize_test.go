package sanitize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestText(t *testing.T) {
	assert.Equal(t, "hola", Text("  <b>hola</b> "))
	assert.Equal(t, "", Text("<script>alert(1)</script>"))
	assert.Equal(t, "a & b", Text("a & b"))
}

func TestSnippet(t *testing.T) {
	assert.Equal(t, "hola", Snippet("hola", 10))
	assert.Equal(t, "héll…", Snippet("héllo world", 4))
	assert.Equal(t, "unbounded", Snippet("unbounded", 0))
}

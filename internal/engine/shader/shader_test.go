package shader

import (
	"strings"
	"testing"
)

func TestWithDefinesAfterVersion(t *testing.T) {
	src := "#version 410 core\nvoid main() {}\n"
	got := WithDefines(src, "UNLIT", "ALPHA_MASK")

	want := "#version 410 core\n#define UNLIT\n#define ALPHA_MASK\nvoid main() {}\n"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestWithDefinesNoVersion(t *testing.T) {
	got := WithDefines("void main() {}", "UBERSHADER")
	if !strings.HasPrefix(got, "#define UBERSHADER\n") {
		t.Errorf("defines not prepended: %q", got)
	}
}

func TestWithDefinesNone(t *testing.T) {
	src := "#version 410 core\n"
	if got := WithDefines(src); got != src {
		t.Errorf("expected source unchanged, got %q", got)
	}
}

func TestWithDefinesVersionWithoutNewline(t *testing.T) {
	got := WithDefines("#version 410 core", "X")
	if got != "#version 410 core\n#define X\n" {
		t.Errorf("got %q", got)
	}
}

func TestPreviewSourcesDeclareVersion(t *testing.T) {
	for name, src := range map[string]string{"vertex": PreviewVertex, "fragment": PreviewFragment} {
		if !strings.HasPrefix(src, "#version 410 core") {
			t.Errorf("%s source does not start with #version", name)
		}
	}
}

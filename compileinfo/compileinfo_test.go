package compileinfo

import (
	"strings"
	"testing"
)

func TestString(t *testing.T) {
	c := CompileInfo{Package: "github.com/carbocation/dataslicer/cmd/exrnaslicer", Version: "(devel)", GoVersion: "go1.18", Modified: true}

	s := c.String()
	if !strings.Contains(s, "exrnaslicer") || !strings.Contains(s, "commit unknown") || !strings.Contains(s, "modified") {
		t.Errorf("unexpected description %q", s)
	}

	if (CompileInfo{}).String() != "Build information is unavailable for this binary." {
		t.Error("expected the empty description")
	}
}

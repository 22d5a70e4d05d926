package pipeline

import (
	"os"

	"github.com/biogo/biogo/io/featio"
	"github.com/biogo/biogo/io/featio/bed"
	"github.com/carbocation/pfx"
)

// ValidateROI reads path as BED3 and returns how many intervals it holds.
func ValidateROI(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, pfx.Err(err)
	}
	defer f.Close()

	br, err := bed.NewReader(f, 3)
	if err != nil {
		return 0, pfx.Err(err)
	}

	n := 0
	sc := featio.NewScanner(br)
	for sc.Next() {
		n++
	}

	return n, pfx.Err(sc.Error())
}

// Package ibl reads the spherical harmonics written by cmgen into an IBL
// directory and reduces them to the ambient term used by the preview shader.
package ibl

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// SHFile is the irradiance file name inside a cmgen output directory.
const SHFile = "sh.txt"

// ErrNoCoefficients is returned when the SH file holds no parsable band.
var ErrNoCoefficients = errors.New("no spherical harmonics coefficients")

// Light is the image-based lighting environment.
type Light struct {
	Dir string
	// SH holds up to nine RGB coefficients in cmgen order (L00, L1-1, L10, ...).
	SH [][3]float32
}

// Ambient returns the constant band, which cmgen pre-scales to irradiance.
func (l *Light) Ambient() [3]float32 {
	if l == nil || len(l.SH) == 0 {
		return Default().SH[0]
	}
	return l.SH[0]
}

// Default returns a neutral light used when no IBL could be read.
func Default() *Light {
	return &Light{SH: [][3]float32{{0.6, 0.6, 0.6}}}
}

// Load reads dir/sh.txt.
func Load(dir string) (*Light, error) {
	f, err := os.Open(filepath.Join(dir, SHFile))
	if err != nil {
		return nil, fmt.Errorf("opening IBL %s: %w", dir, err)
	}
	defer f.Close()

	l := &Light{Dir: dir}
	sc := bufio.NewScanner(f)
	for sc.Scan() && len(l.SH) < 9 {
		c, ok := parseLine(sc.Text())
		if ok {
			l.SH = append(l.SH, c)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading IBL %s: %w", dir, err)
	}
	if len(l.SH) == 0 {
		return nil, fmt.Errorf("%s: %w", filepath.Join(dir, SHFile), ErrNoCoefficients)
	}
	return l, nil
}

// parseLine parses "( r, g, b); // comment".
func parseLine(line string) ([3]float32, bool) {
	var c [3]float32
	if i := strings.Index(line, "//"); i >= 0 {
		line = line[:i]
	}
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "(") {
		return c, false
	}
	line = strings.NewReplacer("(", " ", ")", " ", ";", " ", ",", " ").Replace(line)
	if n, err := fmt.Sscan(line, &c[0], &c[1], &c[2]); err != nil || n != 3 {
		return c, false
	}
	return c, true
}

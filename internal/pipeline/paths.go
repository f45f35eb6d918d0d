// SPDX-License-Identifier: MIT

package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/swapline/swapline/internal/config"
)

var templateField = regexp.MustCompile(`\{(\w+)\}`)

// ExpandOutput fills an output path template. Supported fields: {src_bn}
// and {face_bn} (source/face basename), {src_bnc} and {face_bnc}
// (basename with the extension cut), {format} and {plain_format}. An
// unknown field is an error, not silently left in place.
func ExpandOutput(template, source, face string, cfg config.Config) (string, error) {
	var badField string
	out := templateField.ReplaceAllStringFunc(template, func(m string) string {
		field := m[1 : len(m)-1]
		switch field {
		case "src_bn":
			return filepath.Base(source)
		case "face_bn":
			return filepath.Base(face)
		case "src_bnc":
			return cutExt(filepath.Base(source))
		case "face_bnc":
			return cutExt(filepath.Base(face))
		case "format":
			return cfg.Format
		case "plain_format":
			return cfg.PlainContainer()
		default:
			if badField == "" {
				badField = field
			}
			return m
		}
	})
	if badField != "" {
		return "", fmt.Errorf("unsupported output template field %q", badField)
	}
	return out, nil
}

// ResolveOutput turns the requested output into a concrete file path. An
// empty output defaults to a ".swapped.<container>" sibling of the
// source; an output that is an existing directory gets that default
// filename inside it.
func ResolveOutput(output, source string, sourceIsImage bool, cfg config.Config) string {
	container := cfg.Format
	if sourceIsImage {
		container = cfg.ImageFormat
	}
	defaultName := cutExt(filepath.Base(source)) + ".swapped." + container

	if output == "" {
		return filepath.Join(filepath.Dir(source), defaultName)
	}
	if info, err := os.Stat(output); err == nil && info.IsDir() {
		return filepath.Join(output, defaultName)
	}
	return output
}

func cutExt(name string) string {
	return strings.TrimSuffix(name, filepath.Ext(name))
}

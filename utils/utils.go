// Package utils provides helpers shared by the CLI.
package utils

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/mitchellh/go-homedir"
)

var markdownExtensions = []string{
	".md", ".mdown", ".mkdn", ".mkd", ".markdown",
}

// IsMarkdownFile returns whether the filename has a markdown extension.
func IsMarkdownFile(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, v := range markdownExtensions {
		if ext == v {
			return true
		}
	}
	return false
}

// ExpandPath expands tilde and all environment variables from the given
// path.
func ExpandPath(path string) string {
	s, err := homedir.Expand(path)
	if err == nil {
		return os.ExpandEnv(s)
	}
	return os.ExpandEnv(path)
}

var frontmatterBoundaries = regexp.MustCompile(`(?m)^---\r?\n`)

// RemoveFrontmatter strips a leading YAML front matter block.
func RemoveFrontmatter(content []byte) []byte {
	loc := frontmatterBoundaries.FindAllIndex(content, 2)
	if len(loc) < 2 || loc[0][0] != 0 {
		return content
	}
	return content[loc[1][1]:]
}

package tree

import "strings"

// Separator splits path elements.
const Separator = "/"

// MakePath appends name to parentPath, escaping separators inside the name.
// An empty parentPath yields the root path "/name".
func MakePath(parentPath, name string) string {
	escaped := strings.ReplaceAll(name, Separator, `\`+Separator)
	if parentPath == "" {
		return Separator + escaped
	}

	return parentPath + Separator + escaped
}

// SplitPath splits a path into its unescaped element names.
func SplitPath(path string) []string {
	var (
		elements []string
		current  strings.Builder
	)

	for i := 0; i < len(path); i++ {
		c := path[i]
		switch {
		case c == '\\' && i+1 < len(path) && path[i+1] == '/':
			current.WriteByte('/')
			i++
		case c == '/':
			if current.Len() > 0 {
				elements = append(elements, current.String())
				current.Reset()
			}
		default:
			current.WriteByte(c)
		}
	}

	if current.Len() > 0 {
		elements = append(elements, current.String())
	}

	return elements
}

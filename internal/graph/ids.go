package graph

// Node ids are derived from content so that repeated extraction converges on the same ids.

// FileID returns the id of a file node
func FileID(path string) string {
	return "file:" + path
}

// SymbolID returns the id of a symbol scoped to the file that defines it
func SymbolID(filePath, name string) string {
	return "symbol:" + filePath + ":" + name
}

// AnySymbolID returns the coarse id shared by every same-named symbol across files
func AnySymbolID(name string) string {
	return "symbol:any:" + name
}

// ImportID returns the id of an imported module
func ImportID(target string) string {
	return "import:" + target
}

// TypeID returns the id of a type known only by name
func TypeID(name string) string {
	return "type:" + name
}

// ResourceID returns the id of a path or URL literal
func ResourceID(literal string) string {
	return "resource:" + literal
}

// PackageID returns the id of a named package or namespace
func PackageID(name string) string {
	return "package:" + name
}

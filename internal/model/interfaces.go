package model

// Extractor is responsible for pulling facts out of a scanned file
type Extractor interface {
	// Extract scans the file content and returns the facts it declares
	Extract(file *SourceFile) (*Facts, error)
}

// Reporter defines how to output results
type Reporter interface {
	Report(report *Report) error
}

// Report is everything a reporter renders for one run.
type Report struct {
	Title        string
	Root         string
	FilesScanned int
	Issues       []Issue
	Sections     []Section
	// Verdict is an optional closing line.
	Verdict string
}

// Section is a titled list of key/value rows printed after the issues.
type Section struct {
	Title string
	Rows  []SectionRow
}

type SectionRow struct {
	Key   string
	Value string
}

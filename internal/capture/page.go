package capture

import "github.com/joseph-ayodele/syllabus-tracker/constants"

// RawPage is one captured or imported page in a scan batch. Pages are
// transient: they exist between capture and text extraction only.
type RawPage struct {
	Index     int    `json:"index"`
	Path      string `json:"path"`
	Ext       string `json:"ext"`
	Format    string `json:"format"` // constants.PDF | constants.IMAGE
	Width     int    `json:"width,omitempty"`
	Height    int    `json:"height,omitempty"`
	PageCount int    `json:"page_count"`

	// Err is set when the page could not be decoded. Text extraction turns
	// it into an invalid-image failure according to its policy.
	Err error `json:"-"`
}

func (p RawPage) IsPDF() bool { return p.Format == constants.PDF }

func (p RawPage) Valid() bool { return p.Err == nil }

// FromPaths builds pages in order without inspecting them.
func FromPaths(paths []string) []RawPage {
	pages := make([]RawPage, len(paths))
	for i, p := range paths {
		ext := extOf(p)
		pages[i] = RawPage{Index: i, Path: p, Ext: ext, Format: constants.MapExtToFormat(ext), PageCount: 1}
	}
	return pages
}

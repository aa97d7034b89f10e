package models

// Sheet is a decoded upload: leading metadata lines kept verbatim, a header
// row, and the ordered data rows. Rows may be ragged; cell positions are
// fixed-format (identifier at a known index, date at a user-selected index).
type Sheet struct {
	MetadataLines []string   `json:"metadata_lines"`
	Header        []string   `json:"header"`
	Rows          [][]string `json:"rows"`
}

package dataset

import "path/filepath"

// Sample is one labelled whiteboard photo.
type Sample struct {
	ID           string `json:"id" parquet:"id"`
	ImagePath    string `json:"image_path" parquet:"image_path"`
	ExpectedText string `json:"expected_text" parquet:"expected_text"`
	// Labels or kinds of the diagrams a reviewer marked on the board.
	ExpectedDiagrams []string `json:"expected_diagrams" parquet:"expected_diagrams,list"`
}

// ResolveImage returns the image path, relative paths being taken from the dataset's directory.
func (s Sample) ResolveImage(datasetPath string) string {
	if s.ImagePath == "" || filepath.IsAbs(s.ImagePath) {
		return s.ImagePath
	}
	return filepath.Join(filepath.Dir(datasetPath), s.ImagePath)
}

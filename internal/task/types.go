package task

// Header represents a single header key-value pair.
type Header struct {
	Name  string `yaml:"name"`
	Value string `yaml:"value"`
}

// Query represents a single query parameter key-value pair.
type Query struct {
	Name  string `yaml:"name"`
	Value string `yaml:"value"`
}

// Result contains the outcome of a single generation dispatch.
type Result struct {
	StatusCode int
	// Saved is true when the image was written to OutputPath.
	Saved      bool
	OutputPath string
	// ImageBytes is the size of the decoded image that was written; 0 when not saved.
	ImageBytes int
	// ImageSHA256 is the hex digest of the written image; empty when not saved.
	ImageSHA256 string
	// ResponseBody holds the raw response body as text on the error branch.
	// It is empty on the success branch (the body there is the image itself).
	ResponseBody string
	// Failed marks the handled-failure branch (non-allowed HTTP status).
	Failed bool
}

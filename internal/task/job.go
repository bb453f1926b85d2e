package task

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Job is one YAML-described generation: a request, the expected response
// shape, and where to put the image.
type Job struct {
	Generate Generate `yaml:"generate"`
}

// decodeYAMLTo is an internal helper to unmarshal YAML into the provided Job.
func (j *Job) decodeYAMLTo(r io.Reader) error {
	dec := yaml.NewDecoder(r)
	var tmp Job
	if err := dec.Decode(&tmp); err != nil {
		return fmt.Errorf("failed to decode YAML job configuration: %w", err)
	}
	*j = tmp
	return nil
}

// LoadFromFile loads a Job from a YAML file path into the receiver.
func (j *Job) LoadFromFile(path string) error {
	clean := filepath.Clean(path)
	// #nosec G304 -- path comes from the controlled jobs directory listing
	f, err := os.Open(clean)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	return j.decodeYAMLTo(f)
}

// DecodeYAML decodes a Job from the provided reader into the receiver.
func (j *Job) DecodeYAML(r io.Reader) error {
	return j.decodeYAMLTo(r)
}

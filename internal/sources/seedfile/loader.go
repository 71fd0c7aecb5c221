package seedfile

import (
	"context"
	"fmt"
	"net"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// File is the YAML layout of a seed file:
//
//	proxies:
//	  - 10.0.0.1:3128
//	  - host: 10.0.0.2
//	    port: 8080
type File struct {
	Proxies []Entry `yaml:"proxies"`
}

// Entry is either a "host:port" scalar or a host/port mapping.
type Entry struct {
	Host string `yaml:"host"`
	Port string `yaml:"port"`
}

// UnmarshalYAML accepts both the scalar and the mapping form.
func (e *Entry) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		host, port, err := net.SplitHostPort(strings.TrimSpace(node.Value))
		if err != nil {
			return fmt.Errorf("line %d: %w", node.Line, err)
		}
		e.Host, e.Port = host, port
		return nil
	}

	type plain Entry
	var p plain
	if err := node.Decode(&p); err != nil {
		return err
	}
	*e = Entry(p)
	return nil
}

// Addr returns the entry as host:port.
func (e Entry) Addr() string {
	return net.JoinHostPort(e.Host, e.Port)
}

// Loader reads candidate proxies from a local YAML file.
// The file is re-read on every call so edits apply on the next refill.
type Loader struct {
	filePath string
}

// NewLoader creates a loader for filePath.
func NewLoader(filePath string) *Loader {
	return &Loader{filePath: filePath}
}

func (l *Loader) Name() string { return "seedfile" }

// Load reads and parses the seed file.
func (l *Loader) Load() (File, error) {
	data, err := os.ReadFile(l.filePath)
	if err != nil {
		return File{}, fmt.Errorf("failed to read seed file: %w", err)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return File{}, fmt.Errorf("failed to parse seed yaml: %w", err)
	}
	return f, nil
}

// ListCandidates returns the seeded endpoints in file order, without blanks.
func (l *Loader) ListCandidates(ctx context.Context) ([]string, error) {
	f, err := l.Load()
	if err != nil {
		return nil, err
	}

	out := make([]string, 0, len(f.Proxies))
	for _, e := range f.Proxies {
		if e.Host == "" || e.Port == "" {
			continue
		}
		out = append(out, e.Addr())
	}
	return out, nil
}

package vulnscan

import (
	"context"
	"fmt"
	"strings"

	"github.com/eatingfood142434/Hackthe6ix/graph"
)

// FileEntry is one repository file as presented to the scanner. The
// parent folder is derived from the path, with "Root" standing in for
// top-level files.
type FileEntry struct {
	Name         string `json:"name"`
	Path         string `json:"path"`
	ParentFolder string `json:"parent_folder"`
	Content      string `json:"content"`
}

// NewFileListNode flattens the uploaded file tree into the JSON array
// the scanner prompt expects. Trees without a data.files list produce
// an empty array rather than an error.
func NewFileListNode() *graph.TransformNode {
	return graph.NewTransformNode(func(_ context.Context, in graph.Inputs) (graph.Outputs, error) {
		entries, err := flattenFileTree(in["fileTree"])
		if err != nil {
			return nil, err
		}
		return graph.Outputs{"result": entries}, nil
	})
}

func flattenFileTree(tree any) ([]FileEntry, error) {
	root, ok := tree.(map[string]any)
	if !ok {
		return []FileEntry{}, nil
	}
	data, ok := root["data"].(map[string]any)
	if !ok {
		return []FileEntry{}, nil
	}
	files, ok := data["files"].([]any)
	if !ok {
		return []FileEntry{}, nil
	}

	entries := make([]FileEntry, 0, len(files))
	for i, raw := range files {
		file, ok := raw.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("file entry %d is not an object", i)
		}
		entry := FileEntry{
			Name:    stringField(file, "name"),
			Path:    stringField(file, "path"),
			Content: stringField(file, "content"),
		}
		entry.ParentFolder = parentFolder(entry.Path)
		entries = append(entries, entry)
	}
	return entries, nil
}

func parentFolder(path string) string {
	parts := strings.Split(path, "/")
	if len(parts) > 1 {
		return strings.Join(parts[:len(parts)-1], "/")
	}
	return "Root"
}

func stringField(obj map[string]any, key string) string {
	if v, ok := obj[key].(string); ok {
		return v
	}
	return ""
}

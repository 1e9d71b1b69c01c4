package handler

import (
	"path/filepath"
	"strings"

	"github.com/kbindex/indexer/internal/config"
)

// PDF is the stub-level pdf-knowledge variant required by spec.md §4.2:
// "the spec requires only that a pdf handler is registerable." It treats
// a single PDF document as a one-file source with no subdirectories.
type PDF struct {
	Base
	DocumentPath string
}

// NewPDF builds a PDF handler for one document path.
func NewPDF(documentPath string, cfg config.ContentFiltering) *PDF {
	return &PDF{Base: NewBase(cfg), DocumentPath: documentPath}
}

func (h *PDF) HandlerType() string { return "pdf" }

func (h *PDF) CanHandle(sourcePath string) bool {
	return sourcePath == h.DocumentPath
}

func (h *PDF) KnowledgePath(knowledgeDir, sourceRoot, targetPath string) string {
	name := strings.TrimSuffix(filepath.Base(h.DocumentPath), filepath.Ext(h.DocumentPath))
	return filepath.Join(knowledgeDir, h.HandlerType(), name+"_kb.md")
}

func (h *PDF) CachePath(knowledgeDir, sourceRoot, targetPath, stage string) string {
	name := strings.TrimSuffix(filepath.Base(h.DocumentPath), filepath.Ext(h.DocumentPath))
	return filepath.Join(knowledgeDir, h.HandlerType(), "cache", cacheFileName(name, stage))
}

func (h *PDF) ApplyExclusions(candidatePath string) bool {
	return candidatePath != h.DocumentPath
}

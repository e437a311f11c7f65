package file

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/custodia-labs/vidrag/internal/core/ports/driven"
)

// Ensure PromptStore implements the interface.
var _ driven.PromptStore = (*PromptStore)(nil)

//go:embed defaults/*.txt
var defaultPrompts embed.FS

const promptsReadme = `# vidrag prompts

These files are the prompts vidrag sends to the language model. Edits apply
to the next question or video, including in a running server.

- chat_system.txt: system prompt for answers. One %s receives the retrieved context.
- support_page.txt: turns a transcript into a support page. The first %s receives
  the video id, the second the transcript.

Delete a file to go back to the built-in default.
`

// PromptStore reads prompt templates from a directory the user can edit.
// Missing files fall back to the built-in defaults. The directory is seeded
// with the defaults on first use.
type PromptStore struct {
	dir      string
	seedOnce sync.Once
}

// NewPromptStore creates a store rooted at dir, or ~/.vidrag/prompts when
// dir is empty. No files are touched until the first Load.
func NewPromptStore(dir string) (*PromptStore, error) {
	if dir == "" {
		base, err := DefaultDir()
		if err != nil {
			return nil, fmt.Errorf("get home directory: %w", err)
		}
		dir = filepath.Join(base, "prompts")
	}
	return &PromptStore{dir: dir}, nil
}

// Dir returns the prompt directory.
func (s *PromptStore) Dir() string {
	return s.dir
}

// Load returns the template for name, read fresh from disk.
func (s *PromptStore) Load(name string) (string, error) {
	builtin, err := defaultPrompts.ReadFile("defaults/" + name + ".txt")
	if err != nil {
		return "", fmt.Errorf("unknown prompt %q", name)
	}

	s.seedOnce.Do(s.seed)

	data, err := os.ReadFile(s.path(name))
	if err != nil {
		return strings.TrimSpace(string(builtin)), nil
	}
	prompt := strings.TrimSpace(string(data))
	if prompt == "" {
		return strings.TrimSpace(string(builtin)), nil
	}
	return prompt, nil
}

func (s *PromptStore) path(name string) string {
	return filepath.Join(s.dir, name+".txt")
}

// seed writes the defaults and a README into the prompt directory without
// overwriting anything. Failures only mean the defaults are served from
// memory.
func (s *PromptStore) seed() {
	if err := os.MkdirAll(s.dir, 0700); err != nil {
		return
	}
	entries, err := fs.ReadDir(defaultPrompts, "defaults")
	if err != nil {
		return
	}
	for _, e := range entries {
		data, err := defaultPrompts.ReadFile("defaults/" + e.Name())
		if err != nil {
			continue
		}
		_ = writeIfMissing(filepath.Join(s.dir, e.Name()), data)
	}
	_ = writeIfMissing(filepath.Join(s.dir, "README.md"), []byte(promptsReadme))
}

func writeIfMissing(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if errors.Is(err, fs.ErrExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

package upload

import (
	"bytes"
	"fmt"
	"os"
	"path"
	"strings"

	"gopkg.in/yaml.v3"
)

// FolderPolicy constrains uploads into one target folder.
type FolderPolicy struct {
	Extensions   []string `yaml:"extensions"`
	MaxSizeBytes uint64   `yaml:"max_size_bytes"`
}

// AllowsExtension reports whether the (lowercased, dot-free) extension is on
// the folder's allow-list.
func (p FolderPolicy) AllowsExtension(ext string) bool {
	for _, allowed := range p.Extensions {
		if allowed == ext {
			return true
		}
	}
	return false
}

// Policies maps top-level target folders to their upload constraints.
type Policies struct {
	folders map[string]FolderPolicy
}

// DefaultPolicies returns the built-in folder policies: images and documents.
func DefaultPolicies() *Policies {
	return &Policies{folders: map[string]FolderPolicy{
		"images": {
			Extensions:   []string{"jpg", "jpeg", "png", "gif", "webp"},
			MaxSizeBytes: 5 << 20,
		},
		"documents": {
			Extensions:   []string{"pdf", "doc", "docx", "xls", "xlsx", "ppt", "pptx", "txt"},
			MaxSizeBytes: 20 << 20,
		},
	}}
}

// LoadPolicies reads folder policies from a YAML file mapping folder names
// to policies. An empty path returns the built-in defaults.
func LoadPolicies(policyPath string) (*Policies, error) {
	if policyPath == "" {
		return DefaultPolicies(), nil
	}
	data, err := os.ReadFile(policyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload policy file: %w", err)
	}
	var folders map[string]FolderPolicy
	if err := yaml.Unmarshal(data, &folders); err != nil {
		return nil, fmt.Errorf("failed to parse upload policy file: %w", err)
	}
	if len(folders) == 0 {
		return nil, fmt.Errorf("upload policy file %s defines no folders", policyPath)
	}
	for folder, policy := range folders {
		if len(policy.Extensions) == 0 {
			return nil, fmt.Errorf("upload policy folder %q has no extensions", folder)
		}
		if policy.MaxSizeBytes == 0 {
			return nil, fmt.Errorf("upload policy folder %q has no max_size_bytes", folder)
		}
		normalized := make([]string, 0, len(policy.Extensions))
		for _, ext := range policy.Extensions {
			normalized = append(normalized, strings.ToLower(strings.TrimPrefix(ext, ".")))
		}
		policy.Extensions = normalized
		folders[folder] = policy
	}
	return &Policies{folders: folders}, nil
}

// ForFolder returns the policy for a top-level folder.
func (p *Policies) ForFolder(folder string) (FolderPolicy, bool) {
	policy, ok := p.folders[folder]
	return policy, ok
}

// ForPath returns the policy governing a target path. The first path segment
// selects the folder.
func (p *Policies) ForPath(targetPath string) (FolderPolicy, bool) {
	folder := strings.SplitN(strings.TrimLeft(targetPath, "/"), "/", 2)[0]
	return p.ForFolder(folder)
}

// Folders returns the configured folder names.
func (p *Policies) Folders() []string {
	names := make([]string, 0, len(p.folders))
	for name := range p.folders {
		names = append(names, name)
	}
	return names
}

// ExtensionOf returns the lowercased final extension of a filename without
// the leading dot, or "" when there is none.
func ExtensionOf(filename string) string {
	ext := path.Ext(filename)
	if ext == "" {
		return ""
	}
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// HasDoubleExtension reports whether the filename, minus its final
// extension, still contains a dot. A safe-looking final extension over an
// embedded one (report.sql.jpg) is treated as an attack.
func HasDoubleExtension(filename string) bool {
	ext := path.Ext(filename)
	if ext == "" {
		return false
	}
	stem := strings.TrimSuffix(filename, ext)
	return strings.Contains(stem, ".")
}

// magicPrefixes lists known leading-byte signatures per extension.
// Extensions absent from the table are accepted on the extension check
// alone. The modern Office formats are zip containers.
var magicPrefixes = map[string][][]byte{
	"jpg":  {{0xFF, 0xD8, 0xFF}},
	"jpeg": {{0xFF, 0xD8, 0xFF}},
	"png":  {{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}},
	"gif":  {[]byte("GIF87a"), []byte("GIF89a")},
	"pdf":  {[]byte("%PDF")},
	"docx": {{0x50, 0x4B, 0x03, 0x04}},
	"xlsx": {{0x50, 0x4B, 0x03, 0x04}},
	"pptx": {{0x50, 0x4B, 0x03, 0x04}},
}

// MagicPeekSize is how many leading bytes the verifier reads for the
// signature check.
const MagicPeekSize = 16

// MatchesMagic reports whether the leading bytes are consistent with the
// extension. Extensions with no registered signature always match.
func MatchesMagic(ext string, head []byte) bool {
	if ext == "webp" {
		// RIFF container: "RIFF" at 0, "WEBP" at 8.
		return len(head) >= 12 && bytes.Equal(head[0:4], []byte("RIFF")) && bytes.Equal(head[8:12], []byte("WEBP"))
	}
	prefixes, ok := magicPrefixes[ext]
	if !ok {
		return true
	}
	for _, prefix := range prefixes {
		if bytes.HasPrefix(head, prefix) {
			return true
		}
	}
	return false
}

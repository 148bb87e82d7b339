package scenario

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/docker/go-units"
	"github.com/gabriel-vasile/mimetype"

	"github.com/studiowebux/dlts/internal/types"
)

// MaxFileSize is the upload limit for scripts and archives
const MaxFileSize int64 = 50 * units.MiB

// AllowedExtensions lists the accepted script file extensions
var AllowedExtensions = []string{"jmx", "zip"}

// ScriptFile is a script or archive chosen for upload
type ScriptFile struct {
	Name        string
	Size        int64
	ContentType string
	Content     []byte
}

// OpenScriptFile reads a script from disk, refusing oversized files before reading them
func OpenScriptFile(path string, limit int64) (*ScriptFile, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat script file: %w", err)
	}
	if info.IsDir() {
		return nil, &types.ValidationError{Field: "file", Message: fmt.Sprintf("%s is a directory", path)}
	}
	if info.Size() > limit {
		return nil, &types.FileTooLargeError{Name: filepath.Base(path), Size: info.Size(), Limit: limit}
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read script file: %w", err)
	}
	return &ScriptFile{
		Name:    filepath.Base(path),
		Size:    info.Size(),
		Content: content,
	}, nil
}

// size returns the declared size, falling back to the content length
func (f ScriptFile) size() int64 {
	if f.Size > 0 {
		return f.Size
	}
	return int64(len(f.Content))
}

// Extension returns the text after the final dot of the file name
func (f ScriptFile) Extension() string {
	idx := strings.LastIndex(f.Name, ".")
	if idx < 0 {
		return f.Name
	}
	return f.Name[idx+1:]
}

// CheckFile enforces the size limit and the case-sensitive extension allow-list
func CheckFile(f ScriptFile, limit int64) error {
	if f.size() > limit {
		return &types.FileTooLargeError{Name: f.Name, Size: f.size(), Limit: limit}
	}

	ext := f.Extension()
	for _, allowed := range AllowedExtensions {
		if ext == allowed {
			return nil
		}
	}
	return &types.UnsupportedExtensionError{Name: f.Name, Extension: ext, Allowed: AllowedExtensions}
}

// DetectContentType returns the declared content type, or one sniffed from the content
func (f ScriptFile) DetectContentType() string {
	if f.ContentType != "" {
		return f.ContentType
	}
	if len(f.Content) == 0 {
		return ""
	}
	return mimetype.Detect(f.Content).String()
}

// FileTypeOf classifies a script: anything whose content type mentions zip is an archive
func FileTypeOf(f ScriptFile) types.FileType {
	if f.ContentType != "" {
		if strings.Contains(f.ContentType, "zip") {
			return types.FileTypeZip
		}
		return types.FileTypeScript
	}
	if len(f.Content) == 0 {
		return types.FileTypeScript
	}
	for m := mimetype.Detect(f.Content); m != nil; m = m.Parent() {
		if strings.Contains(m.String(), "zip") {
			return types.FileTypeZip
		}
	}
	return types.FileTypeScript
}

// ScriptName returns the stored file name for a test's script
func ScriptName(testID string, fileType types.FileType) string {
	if fileType == types.FileTypeZip {
		return testID + ".zip"
	}
	return testID + ".jmx"
}

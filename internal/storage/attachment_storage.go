package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// AttachmentStorage отвечает за файловое хранилище результатов работы.
type AttachmentStorage struct {
	rootPath       string
	maxUploadBytes int64
}

// NewAttachmentStorage создаёт файловое хранилище.
func NewAttachmentStorage(rootPath string, maxUploadMB int64) (*AttachmentStorage, error) {
	if err := os.MkdirAll(rootPath, 0o755); err != nil {
		return nil, fmt.Errorf("storage: не удалось создать каталог %s: %w", rootPath, err)
	}

	return &AttachmentStorage{
		rootPath:       rootPath,
		maxUploadBytes: maxUploadMB * 1024 * 1024,
	}, nil
}

// Save сохраняет файл этапа и возвращает относительный путь.
// Файлы группируются по каталогам этапов, запись идёт через временный
// файл с последующим переименованием.
func (s *AttachmentStorage) Save(ctx context.Context, milestoneID uuid.UUID, originalName string, r io.Reader) (string, int64, error) {
	if err := ctx.Err(); err != nil {
		return "", 0, err
	}

	safeName := sanitizeFilename(originalName)
	fileName := fmt.Sprintf("%d_%s", time.Now().UnixNano(), safeName)

	milestoneDir := filepath.Join(s.rootPath, milestoneID.String())
	if err := os.MkdirAll(milestoneDir, 0o755); err != nil {
		return "", 0, fmt.Errorf("storage: не удалось создать каталог этапа: %w", err)
	}

	targetPath := filepath.Join(milestoneDir, fileName)
	tempPath := targetPath + ".tmp"

	f, err := os.Create(tempPath)
	if err != nil {
		return "", 0, fmt.Errorf("storage: не удалось создать файл: %w", err)
	}
	defer f.Close()

	limitedReader := io.LimitedReader{R: r, N: s.maxUploadBytes + 1}
	written, err := io.Copy(f, &limitedReader)
	if err != nil {
		_ = os.Remove(tempPath)
		return "", 0, fmt.Errorf("storage: ошибка записи файла: %w", err)
	}

	if written > s.maxUploadBytes {
		_ = os.Remove(tempPath)
		return "", 0, fmt.Errorf("storage: размер файла превышает лимит %d байт", s.maxUploadBytes)
	}

	if err := f.Close(); err != nil {
		return "", 0, fmt.Errorf("storage: ошибка закрытия файла: %w", err)
	}

	if err := os.Rename(tempPath, targetPath); err != nil {
		return "", 0, fmt.Errorf("storage: не удалось переименовать файл: %w", err)
	}

	relative := filepath.Join(milestoneID.String(), fileName)
	return relative, written, nil
}

// Delete удаляет файл из хранилища.
func (s *AttachmentStorage) Delete(ctx context.Context, relativePath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	target := filepath.Join(s.rootPath, relativePath)
	if err := os.Remove(target); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("storage: не удалось удалить файл: %w", err)
	}
	return nil
}

// sanitizeFilename удаляет потенциально опасные символы.
func sanitizeFilename(name string) string {
	name = filepath.Base(name)
	name = strings.ReplaceAll(name, "..", "")
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	if name == "" {
		name = "attachment"
	}
	return name
}

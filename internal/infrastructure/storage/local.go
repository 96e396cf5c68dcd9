package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/logistica-sv/freight-backoffice/internal/domain"
)

// Local almacén sobre el sistema de archivos. Las rutas lógicas se resuelven
// bajo baseDir; nunca se permite escapar de él.
type Local struct {
	baseDir    string
	backendURL string
}

// NewLocal construye el almacén local.
func NewLocal(baseDir, backendURL string) *Local {
	return &Local{baseDir: baseDir, backendURL: strings.TrimRight(backendURL, "/")}
}

func (l *Local) resolve(path string) (string, error) {
	clean := filepath.Clean("/" + path)
	full := filepath.Join(l.baseDir, clean)
	if !strings.HasPrefix(full, filepath.Clean(l.baseDir)+string(os.PathSeparator)) {
		return "", fmt.Errorf("ruta %q fuera del directorio base: %w", path, domain.ErrValidation)
	}
	return full, nil
}

func (l *Local) Save(ctx context.Context, path string, data []byte) (string, error) {
	full, err := l.resolve(path)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("creando directorio: %w", err)
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return "", fmt.Errorf("escribiendo %s: %w", path, err)
	}
	return path, nil
}

func (l *Local) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	full, err := l.resolve(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(full)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("blob %s: %w", path, domain.ErrNotFound)
		}
		return nil, err
	}
	return f, nil
}

func (l *Local) Exists(ctx context.Context, path string) (bool, error) {
	full, err := l.resolve(path)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(full)
	if os.IsNotExist(err) {
		return false, nil
	}
	return err == nil, err
}

// URL los archivos locales se sirven por el proxy de archivos del backend.
func (l *Local) URL(ctx context.Context, path string) (string, error) {
	return l.backendURL + "/api/files/" + strings.TrimLeft(path, "/"), nil
}

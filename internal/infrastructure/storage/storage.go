// Package storage abstrae el almacén de blobs: guardar, abrir, verificar y
// generar URLs de entrega. Hay una implementación sobre el sistema de
// archivos local y otra sobre un CDN autenticado.
package storage

import (
	"context"
	"io"
)

// Storage almacén de objetos direccionado por ruta. Los contenidos se
// deduplican aguas arriba por sha256, por lo que un blob huérfano es inocuo.
type Storage interface {
	// Save persiste el blob y devuelve la ruta final.
	Save(ctx context.Context, path string, data []byte) (string, error)
	Open(ctx context.Context, path string) (io.ReadCloser, error)
	Exists(ctx context.Context, path string) (bool, error)
	// URL devuelve una URL de entrega (firmada cuando aplica).
	URL(ctx context.Context, path string) (string, error)
}

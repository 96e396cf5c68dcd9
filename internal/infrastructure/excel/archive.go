package excel

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/rs/zerolog"

	"github.com/logistica-sv/freight-backoffice/internal/infrastructure/storage"
)

// maxArchiveName límite de longitud para el nombre de archivo dentro del ZIP.
const maxArchiveName = 150

// ArchiveEntry una factura a incluir en el ZIP estructurado.
type ArchiveEntry struct {
	ClientShort   string
	OTNumber      string
	ProviderName  string
	InvoiceNumber string
	Alias         string
	StoragePath   string
}

// Archiver arma ZIPs de documentos agrupados por cliente y OT.
type Archiver struct {
	store storage.Storage
	log   zerolog.Logger
}

func NewArchiver(store storage.Storage, log zerolog.Logger) *Archiver {
	return &Archiver{store: store, log: log.With().Str("component", "archiver").Logger()}
}

// Build genera el ZIP con estructura <cliente>/<ot>/FACTURA <proveedor>
// <número> <alias> <ot>.pdf. Los blobs inaccesibles se omiten con un aviso;
// el ZIP sale con lo que se pudo leer.
func (a *Archiver) Build(ctx context.Context, entries []ArchiveEntry) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	seen := make(map[string]int)
	written := 0

	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		name := a.entryName(e, seen)

		rc, err := a.store.Open(ctx, e.StoragePath)
		if err != nil {
			a.log.Warn().Err(err).
				Str("path", e.StoragePath).
				Str("invoice", e.InvoiceNumber).
				Msg("blob inaccesible, se omite del ZIP")
			continue
		}

		w, err := zw.Create(name)
		if err != nil {
			rc.Close()
			return nil, fmt.Errorf("crear entrada %s: %w", name, err)
		}
		if _, err := io.Copy(w, rc); err != nil {
			rc.Close()
			return nil, fmt.Errorf("copiar %s: %w", e.StoragePath, err)
		}
		rc.Close()
		written++
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("cerrar ZIP: %w", err)
	}
	a.log.Info().Int("entries", written).Int("requested", len(entries)).Msg("ZIP generado")
	return buf.Bytes(), nil
}

// entryName compone la ruta interna del ZIP. Los componentes vacíos se
// sustituyen para no generar directorios anónimos y el nombre de archivo se
// recorta a 150 caracteres conservando la extensión.
func (a *Archiver) entryName(e ArchiveEntry, seen map[string]int) string {
	client := sanitizeComponent(e.ClientShort)
	if client == "" {
		client = "SIN_CLIENTE"
	}
	ot := sanitizeComponent(e.OTNumber)
	if ot == "" {
		ot = "SIN_OT"
	}

	parts := []string{"FACTURA"}
	for _, p := range []string{e.ProviderName, e.InvoiceNumber, e.Alias, e.OTNumber} {
		if s := sanitizeComponent(p); s != "" {
			parts = append(parts, s)
		}
	}
	ext := strings.ToLower(path.Ext(e.StoragePath))
	if ext == "" {
		ext = ".pdf"
	}
	file := strings.Join(parts, " ")
	if len(file)+len(ext) > maxArchiveName {
		file = strings.TrimSpace(file[:maxArchiveName-len(ext)])
	}

	name := client + "/" + ot + "/" + file + ext
	if n := seen[name]; n > 0 {
		seen[name] = n + 1
		name = fmt.Sprintf("%s/%s/%s (%d)%s", client, ot, file, n, ext)
	} else {
		seen[name] = 1
	}
	return name
}

// sanitizeComponent limpia separadores y caracteres inválidos en nombres de
// archivo.
func sanitizeComponent(s string) string {
	s = strings.TrimSpace(s)
	replacer := strings.NewReplacer(
		"/", "-", "\\", "-", ":", "-", "*", "", "?", "",
		"\"", "", "<", "", ">", "", "|", "-", "\x00", "",
	)
	return strings.TrimSpace(replacer.Replace(s))
}

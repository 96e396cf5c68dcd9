package storage

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/logistica-sv/freight-backoffice/internal/domain"
	"github.com/logistica-sv/freight-backoffice/pkg/logger"
)

// Tipos de recurso probados al generar URLs de entrega. Los archivos subidos
// como autenticados y los históricos subidos públicos conviven en la misma
// cuenta, así que se prueban ambos, con y sin extensión.
var deliveryTypes = []string{"authenticated", "upload"}

// Cloudinary almacén sobre el CDN. Los documentos se guardan como recurso
// raw autenticado; la entrega usa URLs firmadas.
type Cloudinary struct {
	cloudName string
	apiKey    string
	apiSecret string
	client    *http.Client
	log       *logger.Logger
}

// NewCloudinary construye el cliente del CDN.
func NewCloudinary(cloudName, apiKey, apiSecret string, log *logger.Logger) *Cloudinary {
	return &Cloudinary{
		cloudName: cloudName,
		apiKey:    apiKey,
		apiSecret: apiSecret,
		client:    &http.Client{Timeout: 30 * time.Second},
		log:       log,
	}
}

// retryDelays backoff exponencial para errores transitorios del CDN (red,
// 429 o 5xx).
var retryDelays = []time.Duration{500 * time.Millisecond, time.Second, 2 * time.Second}

func transientStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}

// doWithRetry reconstruye y ejecuta la petición con backoff acotado,
// respetando la cancelación del contexto. Solo los errores de transporte y
// las respuestas 429/5xx se reintentan.
func (c *Cloudinary) doWithRetry(ctx context.Context, build func() (*http.Request, error)) (*http.Response, error) {
	var lastErr error
	for attempt := 0; ; attempt++ {
		req, err := build()
		if err != nil {
			return nil, err
		}
		resp, err := c.client.Do(req)
		if err == nil && !transientStatus(resp.StatusCode) {
			return resp, nil
		}
		if err != nil {
			lastErr = fmt.Errorf("CDN: %v: %w", err, domain.ErrExternal)
		} else {
			resp.Body.Close()
			lastErr = fmt.Errorf("CDN respondió %d: %w", resp.StatusCode, domain.ErrExternal)
		}
		if attempt >= len(retryDelays) {
			return nil, lastErr
		}
		c.log.Warn().Err(lastErr).Int("intento", attempt+1).Msg("reintentando llamada al CDN")
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(retryDelays[attempt]):
		}
	}
}

// publicID la ruta lógica sin extensión es el identificador público.
func publicID(p string) string {
	return strings.TrimSuffix(p, path.Ext(p))
}

// Save sube el blob como recurso raw autenticado firmando la petición.
func (c *Cloudinary) Save(ctx context.Context, storagePath string, data []byte) (string, error) {
	ts := fmt.Sprintf("%d", time.Now().Unix())
	params := map[string]string{
		"public_id": storagePath,
		"timestamp": ts,
		"type":      "authenticated",
	}

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for k, v := range params {
		if err := w.WriteField(k, v); err != nil {
			return "", err
		}
	}
	if err := w.WriteField("api_key", c.apiKey); err != nil {
		return "", err
	}
	if err := w.WriteField("signature", c.signParams(params)); err != nil {
		return "", err
	}
	part, err := w.CreateFormFile("file", path.Base(storagePath))
	if err != nil {
		return "", err
	}
	if _, err := part.Write(data); err != nil {
		return "", err
	}
	if err := w.Close(); err != nil {
		return "", err
	}

	endpoint := fmt.Sprintf("https://api.cloudinary.com/v1_1/%s/raw/upload", c.cloudName)
	payload := body.Bytes()
	resp, err := c.doWithRetry(ctx, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", w.FormDataContentType())
		return req, nil
	})
	if err != nil {
		return "", fmt.Errorf("subiendo a cloudinary: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.log.Error().Int("status", resp.StatusCode).Str("ruta", storagePath).
			Str("respuesta", string(snippet)).Msg("fallo de subida al CDN")
		return "", fmt.Errorf("cloudinary respondió %d: %w", resp.StatusCode, domain.ErrExternal)
	}
	return storagePath, nil
}

// signParams firma de API: sha1 de los parámetros ordenados más el secreto.
func (c *Cloudinary) signParams(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var pairs []string
	for _, k := range keys {
		pairs = append(pairs, k+"="+params[k])
	}
	sum := sha1.Sum([]byte(strings.Join(pairs, "&") + c.apiSecret))
	return hex.EncodeToString(sum[:])
}

// signDelivery firma de URL de entrega: base64 url-safe del sha1 de la ruta
// más el secreto, truncado a 8 caracteres.
func (c *Cloudinary) signDelivery(toSign string) string {
	sum := sha1.Sum([]byte(toSign + c.apiSecret))
	sig := base64.RawURLEncoding.EncodeToString(sum[:])
	return "s--" + sig[:8] + "--"
}

// candidates URLs de entrega posibles para una ruta, en orden de preferencia.
func (c *Cloudinary) candidates(storagePath string) []string {
	ids := []string{storagePath}
	if noExt := publicID(storagePath); noExt != storagePath {
		ids = append(ids, noExt)
	}
	var urls []string
	for _, deliveryType := range deliveryTypes {
		for _, id := range ids {
			toSign := fmt.Sprintf("%s/v1/%s", deliveryType, id)
			urls = append(urls, fmt.Sprintf("https://res.cloudinary.com/%s/raw/%s/%s/v1/%s",
				c.cloudName, deliveryType, c.signDelivery(toSign), id))
		}
	}
	return urls
}

// URL devuelve la primera URL candidata que el CDN acepta; si ninguna
// responde, la preferida (el caller decide qué hacer con el 404).
func (c *Cloudinary) URL(ctx context.Context, storagePath string) (string, error) {
	candidates := c.candidates(storagePath)
	for _, u := range candidates {
		req, err := http.NewRequestWithContext(ctx, http.MethodHead, u, nil)
		if err != nil {
			return "", err
		}
		resp, err := c.client.Do(req)
		if err != nil {
			continue
		}
		resp.Body.Close()
		if resp.StatusCode == http.StatusOK {
			return u, nil
		}
	}
	return candidates[0], nil
}

func (c *Cloudinary) Open(ctx context.Context, storagePath string) (io.ReadCloser, error) {
	u, err := c.URL(ctx, storagePath)
	if err != nil {
		return nil, err
	}
	resp, err := c.doWithRetry(ctx, func() (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	})
	if err != nil {
		return nil, fmt.Errorf("descargando del CDN: %w", err)
	}
	if resp.StatusCode == http.StatusNotFound {
		resp.Body.Close()
		return nil, fmt.Errorf("blob %s: %w", storagePath, domain.ErrNotFound)
	}
	if resp.StatusCode >= 300 {
		resp.Body.Close()
		return nil, fmt.Errorf("CDN respondió %d: %w", resp.StatusCode, domain.ErrExternal)
	}
	return resp.Body, nil
}

func (c *Cloudinary) Exists(ctx context.Context, storagePath string) (bool, error) {
	for _, u := range c.candidates(storagePath) {
		u := u
		resp, err := c.doWithRetry(ctx, func() (*http.Request, error) {
			return http.NewRequestWithContext(ctx, http.MethodHead, u, nil)
		})
		if err != nil {
			return false, fmt.Errorf("consultando CDN: %w", err)
		}
		resp.Body.Close()
		if resp.StatusCode == http.StatusOK {
			return true, nil
		}
	}
	return false, nil
}

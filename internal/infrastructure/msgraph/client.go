// Package msgraph implementa el buzón de correo del poller sobre la API de
// Microsoft Graph con credenciales de aplicación (client credentials).
package msgraph

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/logistica-sv/freight-backoffice/internal/application/mail"
	"github.com/logistica-sv/freight-backoffice/internal/domain"
	"github.com/logistica-sv/freight-backoffice/pkg/config"
	"github.com/logistica-sv/freight-backoffice/pkg/logger"
)

const (
	graphBaseURL = "https://graph.microsoft.com/v1.0"
	tokenURLFmt  = "https://login.microsoftonline.com/%s/oauth2/v2.0/token"
	graphScope   = "https://graph.microsoft.com/.default"
)

var _ mail.Source = (*Client)(nil)

// retryDelays backoff exponencial para errores transitorios de Graph (red,
// 429 o 5xx). Agotados los reintentos, el último error sale al caller.
var retryDelays = []time.Duration{500 * time.Millisecond, time.Second, 2 * time.Second}

// Client cliente de Graph para el buzón configurado. El token se cachea y se
// renueva un minuto antes de expirar.
type Client struct {
	cfg      config.GraphConfig
	client   *http.Client
	log      *logger.Logger
	baseURL  string
	tokenURL string

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

// NewClient construye el cliente.
func NewClient(cfg config.GraphConfig, log *logger.Logger) *Client {
	return &Client{
		cfg:      cfg,
		client:   &http.Client{Timeout: 30 * time.Second},
		log:      log,
		baseURL:  graphBaseURL,
		tokenURL: fmt.Sprintf(tokenURLFmt, cfg.TenantID),
	}
}

func transientStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}

// doWithRetry reconstruye y ejecuta la petición con backoff acotado,
// respetando la cancelación del contexto. Solo los errores de transporte y
// las respuestas 429/5xx se reintentan; el resto vuelve al caller tal cual.
func (c *Client) doWithRetry(ctx context.Context, build func() (*http.Request, error)) (*http.Response, error) {
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
			lastErr = fmt.Errorf("graph: %v: %w", err, domain.ErrExternal)
		} else {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
			resp.Body.Close()
			lastErr = fmt.Errorf("graph respondió %d: %s: %w", resp.StatusCode, body, domain.ErrExternal)
		}
		if attempt >= len(retryDelays) {
			return nil, lastErr
		}
		c.log.Warn().Err(lastErr).Int("intento", attempt+1).Msg("reintentando llamada a Graph")
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(retryDelays[attempt]):
		}
	}
}

func (c *Client) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token != "" && time.Now().Before(c.tokenExpiry) {
		return c.token, nil
	}

	form := url.Values{
		"client_id":     {c.cfg.ClientID},
		"client_secret": {c.cfg.ClientSecret},
		"scope":         {graphScope},
		"grant_type":    {"client_credentials"},
	}
	resp, err := c.doWithRetry(ctx, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost,
			c.tokenURL, strings.NewReader(form.Encode()))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		return req, nil
	})
	if err != nil {
		return "", fmt.Errorf("token de Graph: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", fmt.Errorf("token de Graph %d: %s: %w", resp.StatusCode, body, domain.ErrExternal)
	}

	var payload struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("token de Graph: %w", err)
	}
	c.token = payload.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(payload.ExpiresIn-60) * time.Second)
	return c.token, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	token, err := c.accessToken(ctx)
	if err != nil {
		return err
	}
	resp, err := c.doWithRetry(ctx, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+token)
		return req, nil
	})
	if err != nil {
		return fmt.Errorf("graph GET %s: %w", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("graph GET %s %d: %s: %w", path, resp.StatusCode, body, domain.ErrExternal)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

type graphMessage struct {
	ID               string    `json:"id"`
	Subject          string    `json:"subject"`
	ReceivedDateTime time.Time `json:"receivedDateTime"`
	HasAttachments   bool      `json:"hasAttachments"`
	From             struct {
		EmailAddress struct {
			Address string `json:"address"`
		} `json:"emailAddress"`
	} `json:"from"`
}

// ListMessages lee los mensajes más recientes de una carpeta del buzón.
func (c *Client) ListMessages(ctx context.Context, folder string, limit int) ([]mail.Message, error) {
	path := fmt.Sprintf(
		"/users/%s/mailFolders/%s/messages?$top=%d&$orderby=receivedDateTime%%20desc&$select=id,subject,from,receivedDateTime,hasAttachments",
		url.PathEscape(c.cfg.UserEmail), url.PathEscape(folder), limit)

	var payload struct {
		Value []graphMessage `json:"value"`
	}
	if err := c.get(ctx, path, &payload); err != nil {
		return nil, err
	}

	messages := make([]mail.Message, 0, len(payload.Value))
	for _, m := range payload.Value {
		messages = append(messages, mail.Message{
			ID:             m.ID,
			Subject:        m.Subject,
			Sender:         m.From.EmailAddress.Address,
			ReceivedAt:     m.ReceivedDateTime,
			Folder:         folder,
			HasAttachments: m.HasAttachments,
		})
	}
	return messages, nil
}

type graphAttachment struct {
	ODataType    string `json:"@odata.type"`
	Name         string `json:"name"`
	ContentType  string `json:"contentType"`
	ContentBytes string `json:"contentBytes"`
}

// Attachments descarga los adjuntos de archivo de un mensaje. Los adjuntos
// de otro tipo (items, referencias) se ignoran.
func (c *Client) Attachments(ctx context.Context, messageID string) ([]mail.Attachment, error) {
	path := fmt.Sprintf("/users/%s/messages/%s/attachments",
		url.PathEscape(c.cfg.UserEmail), url.PathEscape(messageID))

	var payload struct {
		Value []graphAttachment `json:"value"`
	}
	if err := c.get(ctx, path, &payload); err != nil {
		return nil, err
	}

	var attachments []mail.Attachment
	for _, a := range payload.Value {
		if a.ODataType != "#microsoft.graph.fileAttachment" || a.ContentBytes == "" {
			continue
		}
		data, err := base64.StdEncoding.DecodeString(a.ContentBytes)
		if err != nil {
			c.log.Warn().Err(err).Str("adjunto", a.Name).Msg("adjunto ilegible")
			continue
		}
		attachments = append(attachments, mail.Attachment{
			Name:        a.Name,
			ContentType: a.ContentType,
			Data:        data,
		})
	}
	return attachments, nil
}

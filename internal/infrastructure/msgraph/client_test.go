package msgraph

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/logistica-sv/freight-backoffice/internal/domain"
	"github.com/logistica-sv/freight-backoffice/pkg/config"
	"github.com/logistica-sv/freight-backoffice/pkg/logger"
)

const tokenJSON = `{"access_token":"tok-123","expires_in":3600}`

const messagesJSON = `{"value":[{
	"id":"msg-1","subject":"Factura marzo",
	"receivedDateTime":"2025-03-15T10:00:00Z","hasAttachments":true,
	"from":{"emailAddress":{"address":"facturacion@naviera.com"}}}]}`

// newTestClient apunta el cliente al servidor de prueba y elimina las esperas
// del backoff para que los tests no duerman.
func newTestClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	saved := retryDelays
	retryDelays = []time.Duration{0, 0, 0}
	t.Cleanup(func() { retryDelays = saved })

	c := NewClient(config.GraphConfig{
		ClientID: "id", ClientSecret: "secret", TenantID: "tenant",
		UserEmail: "buzon@empresa.com",
	}, logger.New(logger.Config{Env: "development", Level: "error"}))
	c.baseURL = srv.URL
	c.tokenURL = srv.URL + "/token"
	return c
}

// Un 503 transitorio se reintenta y la pasada termina bien.
func TestListMessages_ReintentaErroresTransitorios(t *testing.T) {
	var listCalls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/token" {
			fmt.Fprint(w, tokenJSON)
			return
		}
		if atomic.AddInt32(&listCalls, 1) <= 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, messagesJSON)
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	messages, err := c.ListMessages(context.Background(), "inbox", 10)
	require.NoError(t, err, "dos 503 seguidos se absorben con reintentos")
	require.Len(t, messages, 1)
	assert.Equal(t, "msg-1", messages[0].ID)
	assert.Equal(t, "facturacion@naviera.com", messages[0].Sender)
	assert.EqualValues(t, 3, atomic.LoadInt32(&listCalls))
}

// Agotados los reintentos el error sale envuelto en external_unavailable.
func TestListMessages_AgotaReintentos(t *testing.T) {
	var listCalls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/token" {
			fmt.Fprint(w, tokenJSON)
			return
		}
		atomic.AddInt32(&listCalls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	_, err := c.ListMessages(context.Background(), "inbox", 10)
	require.ErrorIs(t, err, domain.ErrExternal)
	assert.EqualValues(t, 1+len(retryDelays), atomic.LoadInt32(&listCalls),
		"un intento inicial más un reintento por cada espera configurada")
}

// Un 404 no es transitorio: una sola llamada y el error al caller.
func TestListMessages_NoReintentaErroresPermanentes(t *testing.T) {
	var listCalls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/token" {
			fmt.Fprint(w, tokenJSON)
			return
		}
		atomic.AddInt32(&listCalls, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	_, err := c.ListMessages(context.Background(), "inbox", 10)
	require.Error(t, err)
	assert.EqualValues(t, 1, atomic.LoadInt32(&listCalls))
}

// La cancelación del contexto corta la espera entre reintentos.
func TestListMessages_RespetaCancelacion(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/token" {
			fmt.Fprint(w, tokenJSON)
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	saved := retryDelays
	retryDelays = []time.Duration{time.Minute}
	t.Cleanup(func() { retryDelays = saved })

	c := NewClient(config.GraphConfig{TenantID: "tenant", UserEmail: "buzon@empresa.com"},
		logger.New(logger.Config{Env: "development", Level: "error"}))
	c.baseURL = srv.URL
	c.tokenURL = srv.URL + "/token"

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := c.ListMessages(ctx, "inbox", 10)
		done <- err
	}()
	cancel()

	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("la llamada no respetó la cancelación")
	}
}

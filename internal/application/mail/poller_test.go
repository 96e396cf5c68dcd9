package mail

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/logistica-sv/freight-backoffice/internal/application/ingestion"
	"github.com/logistica-sv/freight-backoffice/internal/domain/entity"
	"github.com/logistica-sv/freight-backoffice/pkg/logger"
)

type fakeConfigRepo struct {
	cfg *entity.EmailAutoProcessingConfig
}

func (f *fakeConfigRepo) Get(_ context.Context) (*entity.EmailAutoProcessingConfig, error) {
	return f.cfg, nil
}

func (f *fakeConfigRepo) Save(_ context.Context, cfg *entity.EmailAutoProcessingConfig) error {
	f.cfg = cfg
	return nil
}

type fakeLogRepo struct {
	entries []*entity.EmailProcessingLog
}

func (f *fakeLogRepo) ExistsMessageID(_ context.Context, messageID string) (bool, error) {
	for _, e := range f.entries {
		if e.MessageID == messageID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeLogRepo) Create(_ context.Context, l *entity.EmailProcessingLog) error {
	f.entries = append(f.entries, l)
	return nil
}

func (f *fakeLogRepo) List(_ context.Context, _, _ int) ([]*entity.EmailProcessingLog, error) {
	return f.entries, nil
}

type fakeSource struct {
	messages    map[string][]Message
	attachments map[string][]Attachment
}

func (f *fakeSource) ListMessages(_ context.Context, folder string, limit int) ([]Message, error) {
	msgs := f.messages[folder]
	if len(msgs) > limit {
		msgs = msgs[:limit]
	}
	return msgs, nil
}

func (f *fakeSource) Attachments(_ context.Context, messageID string) ([]Attachment, error) {
	return f.attachments[messageID], nil
}

type fakeIngester struct {
	inputs []ingestion.Input
	err    error
	dup    bool
}

func (f *fakeIngester) Ingest(_ context.Context, in ingestion.Input) (*ingestion.Result, error) {
	f.inputs = append(f.inputs, in)
	if f.err != nil {
		return nil, f.err
	}
	return &ingestion.Result{Invoice: &entity.CostInvoice{}, Duplicate: f.dup}, nil
}

func activeConfig() *entity.EmailAutoProcessingConfig {
	return &entity.EmailAutoProcessingConfig{
		IsActive:             true,
		CheckIntervalMinutes: 5,
		TargetFolders:        []string{"Inbox"},
		MaxEmailsPerRun:      50,
	}
}

func newPollerEnv(cfg *entity.EmailAutoProcessingConfig) (*Poller, *fakeSource, *fakeIngester, *fakeLogRepo) {
	log := logger.New(logger.Config{Env: "development", Level: "error"})
	source := &fakeSource{messages: map[string][]Message{}, attachments: map[string][]Attachment{}}
	ingester := &fakeIngester{}
	logs := &fakeLogRepo{}
	p := NewPoller(&fakeConfigRepo{cfg: cfg}, logs, source, ingester, log)
	return p, source, ingester, logs
}

func TestRunOnce_ProcesaAdjuntosValidos(t *testing.T) {
	p, source, ingester, logs := newPollerEnv(activeConfig())
	source.messages["Inbox"] = []Message{
		{ID: "m1", Subject: "Factura marzo", Sender: "facturacion@naviera.com", ReceivedAt: time.Now(), Folder: "Inbox"},
	}
	source.attachments["m1"] = []Attachment{
		{Name: "factura.pdf", ContentType: "application/pdf", Data: []byte("pdf")},
		{Name: "dte.json", ContentType: "application/json", Data: []byte("{}")},
		{Name: "logo.png", ContentType: "image/png", Data: []byte("png")},
	}

	report, err := p.RunOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, report.Processed)
	assert.Equal(t, 2, report.InvoicesCreated, "el png no entra al parser")
	require.Len(t, ingester.inputs, 2)
	assert.Equal(t, entity.SourceEmailAuto, ingester.inputs[0].Source)

	require.Len(t, logs.entries, 1)
	assert.Equal(t, entity.EmailStatusProcessed, logs.entries[0].Status)
	assert.Equal(t, 2, logs.entries[0].Attachments)
}

func TestRunOnce_DeduplicaPorMessageID(t *testing.T) {
	p, source, ingester, logs := newPollerEnv(activeConfig())
	source.messages["Inbox"] = []Message{{ID: "m1", Subject: "Factura", Folder: "Inbox"}}
	source.attachments["m1"] = []Attachment{{Name: "factura.pdf", Data: []byte("pdf")}}

	_, err := p.RunOnce(context.Background())
	require.NoError(t, err)
	report, err := p.RunOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, report.Processed, "el correo ya registrado no se reprocesa")
	assert.Len(t, ingester.inputs, 1)
	assert.Len(t, logs.entries, 1)
}

func TestRunOnce_FiltrosDeRemitenteYAsunto(t *testing.T) {
	cfg := activeConfig()
	cfg.SenderWhitelist = []string{"@naviera.com"}
	cfg.SubjectFilters = []string{"factura"}
	p, source, ingester, logs := newPollerEnv(cfg)
	source.messages["Inbox"] = []Message{
		{ID: "m1", Subject: "Factura 123", Sender: "cobros@naviera.com", Folder: "Inbox"},
		{ID: "m2", Subject: "Factura 456", Sender: "spam@otro.com", Folder: "Inbox"},
		{ID: "m3", Subject: "Boletín semanal", Sender: "noticias@naviera.com", Folder: "Inbox"},
	}
	source.attachments["m1"] = []Attachment{{Name: "f.pdf", Data: []byte("pdf")}}

	report, err := p.RunOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, report.Processed)
	assert.Equal(t, 2, report.Skipped)
	assert.Len(t, ingester.inputs, 1)

	reasons := make(map[string]string)
	for _, e := range logs.entries {
		reasons[e.MessageID] = e.Detail
	}
	assert.Contains(t, reasons["m2"], "remitente")
	assert.Contains(t, reasons["m3"], "asunto")
}

func TestRunOnce_RespetaTopePorCorrida(t *testing.T) {
	cfg := activeConfig()
	cfg.MaxEmailsPerRun = 2
	p, source, _, _ := newPollerEnv(cfg)
	source.messages["Inbox"] = []Message{
		{ID: "m1", Folder: "Inbox"}, {ID: "m2", Folder: "Inbox"}, {ID: "m3", Folder: "Inbox"},
	}

	report, err := p.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, report.MessagesSeen)
}

func TestRunOnce_InactivoNoHaceNada(t *testing.T) {
	cfg := activeConfig()
	cfg.IsActive = false
	p, source, ingester, _ := newPollerEnv(cfg)
	source.messages["Inbox"] = []Message{{ID: "m1", Folder: "Inbox"}}

	report, err := p.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, report.MessagesSeen)
	assert.Empty(t, ingester.inputs)
}

func TestRunOnce_SinAdjuntosProcesables(t *testing.T) {
	p, source, _, logs := newPollerEnv(activeConfig())
	source.messages["Inbox"] = []Message{{ID: "m1", Subject: "Foto", Folder: "Inbox"}}
	source.attachments["m1"] = []Attachment{{Name: "foto.jpg", Data: []byte("jpg")}}

	report, err := p.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Skipped)
	require.Len(t, logs.entries, 1)
	assert.Equal(t, entity.EmailStatusSkipped, logs.entries[0].Status)
	assert.Contains(t, logs.entries[0].Detail, "sin adjuntos")
}

func TestRunOnce_ErrorDeIngestionSeRegistra(t *testing.T) {
	p, source, ingester, logs := newPollerEnv(activeConfig())
	ingester.err = errors.New("parser caído")
	source.messages["Inbox"] = []Message{{ID: "m1", Subject: "Factura", Folder: "Inbox"}}
	source.attachments["m1"] = []Attachment{{Name: "f.pdf", Data: []byte("pdf")}}

	report, err := p.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Failed)
	require.Len(t, logs.entries, 1)
	assert.Equal(t, entity.EmailStatusFailed, logs.entries[0].Status)
	assert.Contains(t, logs.entries[0].Detail, "parser caído")
}

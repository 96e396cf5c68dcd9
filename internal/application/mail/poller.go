// Package mail implementa el procesamiento automático de facturas que llegan
// por correo: lee buzones configurados, deduplica por message_id y entrega
// los adjuntos válidos al flujo de ingestión.
package mail

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/logistica-sv/freight-backoffice/internal/application/ingestion"
	"github.com/logistica-sv/freight-backoffice/internal/domain/entity"
	"github.com/logistica-sv/freight-backoffice/internal/domain/repository"
	"github.com/logistica-sv/freight-backoffice/pkg/logger"
)

// allowedExtensions extensiones de adjunto que entran al parser.
var allowedExtensions = map[string]bool{
	".json": true,
	".pdf":  true,
	".xml":  true,
}

// Message un correo del buzón.
type Message struct {
	ID             string
	Subject        string
	Sender         string
	ReceivedAt     time.Time
	Folder         string
	HasAttachments bool
}

// Attachment un adjunto descargado.
type Attachment struct {
	Name        string
	ContentType string
	Data        []byte
}

// Source buzón de correo consultable (Microsoft Graph en producción).
type Source interface {
	ListMessages(ctx context.Context, folder string, limit int) ([]Message, error)
	Attachments(ctx context.Context, messageID string) ([]Attachment, error)
}

// Ingester destino de los adjuntos válidos. Lo satisface ingestion.Service.
type Ingester interface {
	Ingest(ctx context.Context, in ingestion.Input) (*ingestion.Result, error)
}

// Poller una pasada de procesamiento sobre los buzones configurados.
type Poller struct {
	config   repository.EmailConfigRepository
	logs     repository.EmailLogRepository
	source   Source
	ingester Ingester
	log      *logger.Logger
}

// NewPoller construye el poller.
func NewPoller(
	config repository.EmailConfigRepository,
	logs repository.EmailLogRepository,
	source Source,
	ingester Ingester,
	log *logger.Logger,
) *Poller {
	return &Poller{config: config, logs: logs, source: source, ingester: ingester, log: log}
}

// RunReport resultado de una pasada.
type RunReport struct {
	MessagesSeen    int
	Processed       int
	Skipped         int
	Failed          int
	InvoicesCreated int
	Duplicates      int
}

// RunOnce ejecuta una pasada completa. Respeta el tope de correos por corrida
// y la cancelación del contexto entre mensajes.
func (p *Poller) RunOnce(ctx context.Context) (*RunReport, error) {
	cfg, err := p.config.Get(ctx)
	if err != nil {
		return nil, err
	}
	report := &RunReport{}
	if cfg == nil || !cfg.IsActive {
		p.log.Debug().Msg("procesamiento automático de correo inactivo")
		return report, nil
	}
	cfg.Clamp()

	remaining := cfg.MaxEmailsPerRun
	for _, folder := range cfg.TargetFolders {
		if remaining <= 0 {
			break
		}
		messages, err := p.source.ListMessages(ctx, folder, remaining)
		if err != nil {
			p.log.Error().Err(err).Str("carpeta", folder).Msg("no se pudo listar el buzón")
			continue
		}
		for _, msg := range messages {
			if err := ctx.Err(); err != nil {
				return report, err
			}
			if remaining <= 0 {
				break
			}
			remaining--
			report.MessagesSeen++
			p.handleMessage(ctx, cfg, msg, report)
		}
	}

	p.log.Info().
		Int("vistos", report.MessagesSeen).
		Int("procesados", report.Processed).
		Int("saltados", report.Skipped).
		Int("fallidos", report.Failed).
		Int("facturas", report.InvoicesCreated).
		Msg("pasada de correo completada")
	return report, nil
}

func (p *Poller) handleMessage(ctx context.Context, cfg *entity.EmailAutoProcessingConfig, msg Message, report *RunReport) {
	seen, err := p.logs.ExistsMessageID(ctx, msg.ID)
	if err != nil {
		p.log.Error().Err(err).Str("mensaje", msg.ID).Msg("dedup de correo falló")
		report.Failed++
		return
	}
	if seen {
		return
	}

	if reason := p.filterReason(cfg, msg); reason != "" {
		report.Skipped++
		p.record(ctx, msg, entity.EmailStatusSkipped, reason, 0)
		return
	}

	attachments, err := p.source.Attachments(ctx, msg.ID)
	if err != nil {
		report.Failed++
		p.record(ctx, msg, entity.EmailStatusFailed, "descarga de adjuntos: "+err.Error(), 0)
		return
	}

	valid := 0
	var firstErr error
	for _, att := range attachments {
		if !allowedExtensions[strings.ToLower(filepath.Ext(att.Name))] {
			continue
		}
		valid++
		res, err := p.ingester.Ingest(ctx, ingestion.Input{
			Filename:    att.Name,
			Data:        att.Data,
			ContentType: att.ContentType,
			CostType:    entity.CostTypeOther,
			Source:      entity.SourceEmailAuto,
		})
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if res.Duplicate {
			report.Duplicates++
		} else {
			report.InvoicesCreated++
		}
	}

	switch {
	case valid == 0:
		report.Skipped++
		p.record(ctx, msg, entity.EmailStatusSkipped, "sin adjuntos procesables", len(attachments))
	case firstErr != nil:
		report.Failed++
		p.record(ctx, msg, entity.EmailStatusFailed, firstErr.Error(), valid)
	default:
		report.Processed++
		p.record(ctx, msg, entity.EmailStatusProcessed, "", valid)
	}
}

// filterReason aplica lista blanca de remitentes y filtros de asunto. Listas
// vacías no filtran.
func (p *Poller) filterReason(cfg *entity.EmailAutoProcessingConfig, msg Message) string {
	if len(cfg.SenderWhitelist) > 0 {
		sender := strings.ToLower(msg.Sender)
		ok := false
		for _, w := range cfg.SenderWhitelist {
			if strings.Contains(sender, strings.ToLower(strings.TrimSpace(w))) {
				ok = true
				break
			}
		}
		if !ok {
			return "remitente fuera de la lista blanca"
		}
	}
	if len(cfg.SubjectFilters) > 0 {
		subject := strings.ToLower(msg.Subject)
		ok := false
		for _, f := range cfg.SubjectFilters {
			if strings.Contains(subject, strings.ToLower(strings.TrimSpace(f))) {
				ok = true
				break
			}
		}
		if !ok {
			return "asunto no coincide con los filtros"
		}
	}
	return ""
}

func (p *Poller) record(ctx context.Context, msg Message, status, detail string, attachments int) {
	entry := &entity.EmailProcessingLog{
		ID:          uuid.New().String(),
		MessageID:   msg.ID,
		Subject:     msg.Subject,
		Sender:      msg.Sender,
		ReceivedAt:  msg.ReceivedAt,
		Folder:      msg.Folder,
		Status:      status,
		Detail:      detail,
		Attachments: attachments,
		CreatedAt:   time.Now(),
	}
	if err := p.logs.Create(ctx, entry); err != nil {
		p.log.Error().Err(err).Str("mensaje", msg.ID).Msg("no se pudo registrar el log de correo")
	}
}

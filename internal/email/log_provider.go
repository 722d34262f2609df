package email

import (
	"context"
	"fmt"
	"strings"

	"relief_backend/internal/logger"
)

// LogProvider используется, когда SMTP не настроен: письмо пишется в лог.
// Для локальной разработки этого достаточно, чтобы увидеть OTP.
type LogProvider struct {
	renderer TemplateRenderer
}

func NewLogProvider(renderer TemplateRenderer) *LogProvider {
	return &LogProvider{renderer: renderer}
}

func (p *LogProvider) Send(ctx context.Context, email *Email) error {
	logger.CtxWarn(ctx, "SMTP not configured - logging email instead",
		"to", strings.Join(email.To, ","),
		"subject", email.Subject,
		"body", firstNonEmpty(email.Body, email.HTMLBody),
	)
	return nil
}

func (p *LogProvider) SendTemplate(ctx context.Context, to []string, subject string, templateName string, data TemplateData) error {
	body := fmt.Sprintf("%v", map[string]interface{}(data))
	if p.renderer != nil {
		rendered, err := p.renderer.Render(templateName, data)
		if err != nil {
			return fmt.Errorf("failed to render template: %w", err)
		}
		body = rendered
	}
	return p.Send(ctx, &Email{To: to, Subject: subject, HTMLBody: body})
}

func (p *LogProvider) Validate() error { return nil }
func (p *LogProvider) Close() error    { return nil }

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

package testutil

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"relief_backend/internal/email"
)

// SentEmail - письмо, перехваченное RecordingEmailProvider
type SentEmail struct {
	To       []string
	Subject  string
	Template string
	Data     email.TemplateData
}

// RecordingEmailProvider запоминает письма вместо отправки.
// Fail включает ошибку отправки для проверки компенсаций.
type RecordingEmailProvider struct {
	mu   sync.Mutex
	sent []SentEmail
	Fail bool
}

var ErrSendFailed = errors.New("smtp: connection refused")

func NewRecordingEmailProvider() *RecordingEmailProvider {
	return &RecordingEmailProvider{}
}

func (p *RecordingEmailProvider) Send(_ context.Context, msg *email.Email) error {
	return p.record(SentEmail{To: msg.To, Subject: msg.Subject})
}

func (p *RecordingEmailProvider) SendTemplate(_ context.Context, to []string, subject string, templateName string, data email.TemplateData) error {
	return p.record(SentEmail{To: to, Subject: subject, Template: templateName, Data: data})
}

func (p *RecordingEmailProvider) Validate() error { return nil }
func (p *RecordingEmailProvider) Close() error    { return nil }

func (p *RecordingEmailProvider) SetFail(fail bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Fail = fail
}

func (p *RecordingEmailProvider) record(msg SentEmail) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Fail {
		return ErrSendFailed
	}
	p.sent = append(p.sent, msg)
	return nil
}

// Sent - копия всех отправленных писем
func (p *RecordingEmailProvider) Sent() []SentEmail {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]SentEmail, len(p.sent))
	copy(out, p.sent)
	return out
}

// SentTo - письма конкретного шаблона на адрес
func (p *RecordingEmailProvider) SentTo(addr, templateName string) []SentEmail {
	var out []SentEmail
	for _, msg := range p.Sent() {
		if msg.Template != templateName {
			continue
		}
		for _, to := range msg.To {
			if to == addr {
				out = append(out, msg)
				break
			}
		}
	}
	return out
}

// LastOTP - код из последнего OTP-письма на адрес
func (p *RecordingEmailProvider) LastOTP(addr string) (string, error) {
	msgs := p.SentTo(addr, email.TemplateOTP)
	if len(msgs) == 0 {
		return "", fmt.Errorf("no otp email sent to %s", addr)
	}
	code, ok := msgs[len(msgs)-1].Data["OTP"].(string)
	if !ok {
		return "", fmt.Errorf("otp email to %s has no code", addr)
	}
	return code, nil
}

package service

import (
	"bytes"
	"crypto/tls"
	"fmt"
	"mime"
	"net/mail"
	"net/smtp"
	"strings"

	"github.com/crm-next/internal/config"
	"github.com/crm-next/internal/models"
)

// mailSender 发送一封已编码的邮件
type mailSender func(cfg *config.EmailConfig, to string, msg []byte) error

// EmailService 邮件发送服务
type EmailService struct {
	cfg  *config.EmailConfig
	send mailSender
}

// NewEmailService 创建邮件服务
func NewEmailService(cfg *config.EmailConfig) *EmailService {
	return &EmailService{cfg: cfg, send: deliverSMTP}
}

// WithSender 替换底层发送实现
func (s *EmailService) WithSender(send func(cfg *config.EmailConfig, to string, msg []byte) error) *EmailService {
	if s != nil && send != nil {
		s.send = send
	}
	return s
}

// Enabled 是否已启用且配置完整
func (s *EmailService) Enabled() bool {
	return s != nil && s.cfg != nil && s.cfg.Enabled && s.cfg.Host != "" && s.cfg.Port != 0 && s.cfg.From != ""
}

// SendPurchaseReceipt 发送购买回执
func (s *EmailService) SendPurchaseReceipt(purchase *models.Purchase) error {
	if purchase == nil || purchase.Customer == nil {
		return ErrInvalidInput
	}
	subject, body := buildPurchaseReceiptContent(purchase)
	return s.sendTextEmail(purchase.Customer.Email, subject, body)
}

// SendTicketReply 发送工单回复通知
func (s *EmailService) SendTicketReply(ticket *models.Ticket, message *models.TicketMessage) error {
	if ticket == nil || ticket.Customer == nil || message == nil {
		return ErrInvalidInput
	}
	subject, body := buildTicketReplyContent(ticket, message)
	return s.sendTextEmail(ticket.Customer.Email, subject, body)
}

func (s *EmailService) sendTextEmail(toEmail, subject, body string) error {
	if s.cfg == nil || !s.cfg.Enabled {
		return ErrEmailServiceDisabled
	}
	if s.cfg.Host == "" || s.cfg.Port == 0 || s.cfg.From == "" {
		return ErrEmailServiceNotConfigured
	}
	if _, err := mail.ParseAddress(toEmail); err != nil {
		return ErrInvalidEmail
	}

	from := buildFromAddress(s.cfg.From, s.cfg.FromName)
	msg := buildEmailMessage(from, toEmail, subject, body)
	send := s.send
	if send == nil {
		send = deliverSMTP
	}
	return normalizeEmailSendError(send(s.cfg, toEmail, []byte(msg)))
}

func buildPurchaseReceiptContent(purchase *models.Purchase) (string, string) {
	productName := fmt.Sprintf("product #%d", purchase.ProductID)
	if purchase.Product != nil && strings.TrimSpace(purchase.Product.Name) != "" {
		productName = purchase.Product.Name
	}
	subject := fmt.Sprintf("Your purchase receipt #%d", purchase.ID)

	var buf strings.Builder
	fmt.Fprintf(&buf, "Hi %s,\n\n", purchase.Customer.FullName())
	fmt.Fprintf(&buf, "Thank you for your purchase on %s.\n\n", purchase.PurchaseDate.Format("2006-01-02"))
	fmt.Fprintf(&buf, "Product:  %s\n", productName)
	fmt.Fprintf(&buf, "Quantity: %d\n", purchase.Quantity)
	fmt.Fprintf(&buf, "Price:    %s\n", purchase.Price.String())
	if purchase.DiscountAmount.Decimal.IsPositive() {
		promo := "promo"
		if purchase.Promo != nil {
			promo = purchase.Promo.Name
		}
		fmt.Fprintf(&buf, "Discount: -%s (%s)\n", purchase.DiscountAmount.String(), promo)
	}
	fmt.Fprintf(&buf, "Total:    %s\n", purchase.TotalAmount.String())
	return subject, buf.String()
}

func buildTicketReplyContent(ticket *models.Ticket, message *models.TicketMessage) (string, string) {
	subject := fmt.Sprintf("[%s] New reply: %s", ticket.TicketNo, ticket.Subject)
	body := fmt.Sprintf("Hi %s,\n\nOur support team replied to your ticket %s:\n\n%s\n\nCurrent status: %s",
		ticket.Customer.FullName(),
		ticket.TicketNo,
		message.Message,
		ticket.Status,
	)
	return subject, body
}

func buildFromAddress(from, name string) string {
	if strings.TrimSpace(name) == "" {
		return from
	}
	encoded := mime.QEncoding.Encode("UTF-8", name)
	return (&mail.Address{Name: encoded, Address: from}).String()
}

func buildEmailMessage(from, to, subject, body string) string {
	var buf bytes.Buffer
	buf.WriteString(fmt.Sprintf("From: %s\r\n", from))
	buf.WriteString(fmt.Sprintf("To: %s\r\n", to))
	buf.WriteString(fmt.Sprintf("Subject: %s\r\n", mime.QEncoding.Encode("UTF-8", subject)))
	buf.WriteString("MIME-Version: 1.0\r\n")
	buf.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	buf.WriteString("\r\n")
	buf.WriteString(body)
	return buf.String()
}

// deliverSMTP 按配置选择 SSL、STARTTLS 或明文连接
func deliverSMTP(cfg *config.EmailConfig, to string, msg []byte) error {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	var auth smtp.Auth
	if cfg.Username != "" || cfg.Password != "" {
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}

	var client *smtp.Client
	if cfg.UseSSL {
		conn, err := tls.Dial("tcp", addr, &tls.Config{ServerName: cfg.Host})
		if err != nil {
			return err
		}
		client, err = smtp.NewClient(conn, cfg.Host)
		if err != nil {
			_ = conn.Close()
			return err
		}
	} else {
		var err error
		client, err = smtp.Dial(addr)
		if err != nil {
			return err
		}
		if cfg.UseTLS {
			if err := client.StartTLS(&tls.Config{ServerName: cfg.Host}); err != nil {
				_ = client.Close()
				return err
			}
		}
	}
	defer client.Close()

	if auth != nil {
		if ok, _ := client.Extension("AUTH"); ok {
			if err := client.Auth(auth); err != nil {
				return err
			}
		}
	}
	return sendSMTPData(client, cfg.From, []string{to}, msg)
}

func sendSMTPData(client *smtp.Client, from string, to []string, msg []byte) error {
	if err := client.Mail(from); err != nil {
		return err
	}
	for _, rcpt := range to {
		if err := client.Rcpt(rcpt); err != nil {
			return err
		}
	}
	w, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(msg); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return client.Quit()
}

func normalizeEmailSendError(err error) error {
	if err == nil {
		return nil
	}
	if isEmailRecipientRejected(err) {
		return ErrEmailRecipientRejected
	}
	return err
}

func isEmailRecipientRejected(err error) bool {
	message := strings.ToLower(strings.TrimSpace(err.Error()))
	if message == "" {
		return false
	}
	for _, keyword := range []string{
		"no such recipient",
		"no such user",
		"recipient address rejected",
		"user unknown",
		"unknown mailbox",
		"mailbox unavailable",
	} {
		if strings.Contains(message, keyword) {
			return true
		}
	}
	if strings.Contains(message, "550") {
		for _, hint := range []string{"recipient", "user", "mailbox", "rcpt"} {
			if strings.Contains(message, hint) {
				return true
			}
		}
	}
	return false
}

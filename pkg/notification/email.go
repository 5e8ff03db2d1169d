package notification

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/example/comforty/pkg/config"
	"github.com/example/comforty/pkg/models"
)

// Mailer delivers a single message. The SMTP implementation below is used
// in production; tests swap in a recorder.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

type SMTPMailer struct {
	addr string
	auth smtp.Auth
	from string
}

func NewSMTPMailer(cfg *config.SMTPConfig) *SMTPMailer {
	return &SMTPMailer{
		addr: fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		auth: smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host),
		from: cfg.From,
	}
}

func (m *SMTPMailer) Send(_ context.Context, to, subject, body string) error {
	msg := strings.Join([]string{
		"From: Comforty Store <" + m.from + ">",
		"To: " + to,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/html; charset=UTF-8",
		"",
		body,
	}, "\r\n")

	return smtp.SendMail(m.addr, m.auth, m.from, []string{to}, []byte(msg))
}

type userDirectory interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// EmailNotifier resolves the order's owner and mails them about order
// confirmations and payment failures.
type EmailNotifier struct {
	mailer Mailer
	users  userDirectory
}

func NewEmailNotifier(mailer Mailer, users userDirectory) *EmailNotifier {
	return &EmailNotifier{mailer: mailer, users: users}
}

func (n *EmailNotifier) OrderConfirmed(ctx context.Context, order *models.Order) error {
	user, err := n.users.FindByID(ctx, order.UserID)
	if err != nil {
		return fmt.Errorf("resolve recipient: %w", err)
	}
	return n.mailer.Send(ctx, user.Email, "Your Order is Confirmed!", orderConfirmedBody(user, order))
}

func (n *EmailNotifier) PaymentFailed(ctx context.Context, order *models.Order) error {
	user, err := n.users.FindByID(ctx, order.UserID)
	if err != nil {
		return fmt.Errorf("resolve recipient: %w", err)
	}
	body := fmt.Sprintf("<p>Your payment for order <b>%s</b> failed. Please try again.</p>", order.ID)
	return n.mailer.Send(ctx, user.Email, "Payment Failed", body)
}

func orderConfirmedBody(user *models.User, order *models.Order) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<h2>Hello %s,</h2>", user.Name)
	fmt.Fprintf(&b, "<p>Your order <b>%s</b> has been confirmed!</p>", order.ID)
	b.WriteString("<h3>Order Summary:</h3><ul>")
	for _, item := range order.Items {
		fmt.Fprintf(&b, "<li>%d × %s — $%.2f</li>", item.Quantity, item.ProductName, item.UnitPrice)
	}
	b.WriteString("</ul>")
	fmt.Fprintf(&b, "<p>Total Price: <b>$%.2f</b></p>", order.TotalPrice)
	b.WriteString("<p>Thank you for shopping with Comforty!</p>")
	return b.String()
}

// Package mailgundispatch delivers account notifications through Mailgun.
package mailgundispatch

import (
	"context"
	"time"

	accounts "github.com/goliatone/go-accounts"
	"github.com/mailgun/mailgun-go/v4"
)

const sendTimeout = 5 * time.Second

// Dispatcher implements accounts.NotificationDispatcher on top of the
// Mailgun API. Delivery is synchronous within a short timeout; callers treat
// enqueue failures as log-worthy, so a slow provider never blocks a login.
type Dispatcher struct {
	domain  string
	apiKey  string
	apiBase string
	from    string
}

var _ accounts.NotificationDispatcher = (*Dispatcher)(nil)

// New returns a dispatcher sending from the given address.
func New(domain, apiKey, apiBase, from string) *Dispatcher {
	return &Dispatcher{
		domain:  domain,
		apiKey:  apiKey,
		apiBase: apiBase,
		from:    from,
	}
}

// Enqueue implements accounts.NotificationDispatcher.
func (d *Dispatcher) Enqueue(ctx context.Context, notification *accounts.Notification) error {
	mg := mailgun.NewMailgun(d.domain, d.apiKey)
	if d.apiBase != "" {
		mg.SetAPIBase(d.apiBase)
	}

	message := mailgun.NewMessage(d.from, notification.Subject, notification.Body, notification.ToEmail)

	ctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	_, _, err := mg.Send(ctx, message)
	return err
}

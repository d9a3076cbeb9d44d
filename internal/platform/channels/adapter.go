package channels

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	cfgpkg "github.com/santrihub/sppbilling/pkg/config"
	"github.com/santrihub/sppbilling/pkg/types"
)

// Recipient is the addressing info a channel needs to reach a wali.
type Recipient struct {
	ID    string
	Name  string
	Phone string
	Email string
}

// Message is a rendered notification ready for delivery.
type Message struct {
	Title    string
	Body     string
	Priority types.NotificationPriority
}

// Adapter delivers one message on one channel. SendMessage returns the
// provider's message id, which later keys asynchronous delivery callbacks.
type Adapter interface {
	Channel() types.Channel
	SendMessage(ctx context.Context, to Recipient, msg Message) (handle string, err error)
}

// Registry holds the configured adapters by channel.
type Registry struct {
	adapters map[types.Channel]Adapter
}

func NewRegistry(cfg *cfgpkg.Config, log *zap.SugaredLogger) *Registry {
	r := &Registry{adapters: make(map[types.Channel]Adapter)}
	r.register(newEmailAdapter(cfg.Channels.Email, log))
	r.register(newWhatsAppAdapter(cfg.Channels.WhatsApp, log))
	r.register(newSMSAdapter(cfg.Channels.SMS, log))
	return r
}

func (r *Registry) register(a Adapter) {
	r.adapters[a.Channel()] = a
}

// Get returns the adapter for ch, or false when the channel has no external
// provider (in_app is delivered by the notification row itself).
func (r *Registry) Get(ch types.Channel) (Adapter, bool) {
	a, ok := r.adapters[ch]
	return a, ok
}

// Replace swaps an adapter in, used by tests to stub providers.
func (r *Registry) Replace(a Adapter) {
	r.adapters[a.Channel()] = a
}

var Module = fx.Options(
	fx.Provide(NewRegistry),
)

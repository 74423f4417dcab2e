package app

import (
	"fmt"

	"github.com/ariefcatur/go-digital-shop/internal/catalog"
	"github.com/ariefcatur/go-digital-shop/internal/checkout"
	"github.com/ariefcatur/go-digital-shop/internal/config"
	kafkax "github.com/ariefcatur/go-digital-shop/internal/kafka"
	"go.uber.org/zap"
)

// LoadCatalog: CATALOG kosong = harga default.
func LoadCatalog(cfg config.Config) (*catalog.Catalog, error) {
	if cfg.Catalog == "" {
		return catalog.Default(), nil
	}
	c, err := catalog.Parse(cfg.Catalog)
	if err != nil {
		return nil, fmt.Errorf("invalid CATALOG: %w", err)
	}
	return c, nil
}

// NewService builds the checkout service. With EVENTS_TOPIC set, lifecycle
// events go to Kafka; stop flushes them and must be called on shutdown.
func NewService(cfg config.Config, st *Stores, gw checkout.Gateway, n checkout.Notifier, log *zap.Logger) (svc *checkout.Service, stop func(), err error) {
	cat, err := LoadCatalog(cfg)
	if err != nil {
		return nil, nil, err
	}
	svc = &checkout.Service{
		Pool:           st.Pool,
		Ledger:         st.Ledger,
		Gateway:        gw,
		Notifier:       n,
		Catalog:        cat,
		Events:         checkout.NopEvents,
		AdminID:        cfg.AdminChatID,
		VerifyPayments: cfg.VerifyPayments,
		Log:            log,
	}
	stop = func() {}
	if cfg.EventsTopic != "" {
		prod := kafkax.NewProducer(cfg.KafkaBrokers, cfg.EventsTopic, 1024, log)
		prod.Start()
		svc.Events = &kafkax.EventPublisher{P: prod, Service: cfg.ServiceName}
		stop = prod.Close
	}
	return svc, stop, nil
}

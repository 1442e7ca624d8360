// Package notify implements the notification pipeline: the trigger
// engine routing platform events to templated emails, the outbox queue
// those emails land in, and the worker that delivers them.
//
// A message is marked sent at most once: the pending-to-sent transition
// is conditional, so a crash between the provider accepting the message
// and the mark can lose the mark but a marked message is never
// redelivered. The queue is not claim-based; run one worker per outbox.
// Notification failures never propagate to the business action that
// triggered them.
package notify

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/reporthere/reporthere/internal/mail"
	"github.com/reporthere/reporthere/internal/models"
	"github.com/reporthere/reporthere/internal/store"
	"github.com/reporthere/reporthere/internal/telemetry"
)

// Outbox queues rendered emails for background delivery.
type Outbox struct {
	store store.OutboxStore
}

// NewOutbox creates an outbox over the given store.
func NewOutbox(st store.OutboxStore) *Outbox {
	return &Outbox{store: st}
}

// Queue renders a template and enqueues the result. A missing template
// is a hard error and nothing is enqueued.
func (o *Outbox) Queue(ctx context.Context, to string, template mail.Template, data mail.Data) error {
	rendered, err := mail.Render(template, data)
	if err != nil {
		return err
	}

	msg := &models.EmailMessage{
		MessageID: models.NewID(),
		To:        to,
		Subject:   rendered.Subject,
		HTML:      rendered.HTML,
		Template:  string(template),
		Status:    models.EmailStatusPending,
		CreatedAt: time.Now(),
	}

	if err := o.store.Enqueue(ctx, msg); err != nil {
		return err
	}

	telemetry.GetMetrics().EmailsQueuedTotal.Add(ctx, 1)

	log.Debug().
		Str("message_id", msg.MessageID.String()).
		Str("template", string(template)).
		Msg("Queued email")

	return nil
}

// WorkerConfig configures the outbox delivery worker.
type WorkerConfig struct {
	// PollInterval is how often the worker scans for pending messages.
	// Default: 5s
	PollInterval time.Duration

	// BatchSize is the maximum number of messages per scan. Default: 10
	BatchSize int

	// MaxAttempts bounds delivery attempts per message before it moves
	// to the failed terminal state. Default: 3
	MaxAttempts int

	// RatePerMinute caps outbound sends. Default: 60
	RatePerMinute int
}

func (c *WorkerConfig) applyDefaults() {
	if c.PollInterval == 0 {
		c.PollInterval = 5 * time.Second
	}
	if c.BatchSize == 0 {
		c.BatchSize = 10
	}
	if c.MaxAttempts == 0 {
		c.MaxAttempts = 3
	}
	if c.RatePerMinute == 0 {
		c.RatePerMinute = 60
	}
}

// Worker drains the outbox in the background. The email sender is
// wrapped with a circuit breaker so a failing provider backs the worker
// off instead of burning attempts, and sends are rate limited.
type Worker struct {
	outbox  store.OutboxStore
	sender  Sender
	cfg     WorkerConfig
	breaker *gobreaker.CircuitBreaker[string]
	limiter *rate.Limiter

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewWorker creates an outbox delivery worker.
func NewWorker(outbox store.OutboxStore, sender Sender, cfg WorkerConfig) *Worker {
	cfg.applyDefaults()

	breaker := gobreaker.NewCircuitBreaker[string](gobreaker.Settings{
		Name:    sender.Name(),
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().
				Str("sender", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Email sender circuit breaker state change")
		},
	})

	return &Worker{
		outbox:  outbox,
		sender:  sender,
		cfg:     cfg,
		breaker: breaker,
		limiter: rate.NewLimiter(rate.Limit(float64(cfg.RatePerMinute)/60.0), cfg.RatePerMinute),
		stopCh:  make(chan struct{}),
	}
}

// Start launches the background delivery loop.
func (w *Worker) Start() {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.run()
	}()
	log.Info().
		Str("sender", w.sender.Name()).
		Dur("poll_interval", w.cfg.PollInterval).
		Msg("Outbox worker started")
}

// Stop shuts down the delivery loop and waits for it to finish.
func (w *Worker) Stop() {
	close(w.stopCh)
	w.wg.Wait()
	log.Info().Msg("Outbox worker stopped")
}

func (w *Worker) run() {
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.drain()
		}
	}
}

// drain delivers one batch of pending messages.
func (w *Worker) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), w.cfg.PollInterval*4)
	defer cancel()

	pending, err := w.outbox.NextPending(ctx, w.cfg.BatchSize)
	if err != nil {
		log.Error().Err(err).Msg("Failed to scan outbox")
		return
	}

	for _, msg := range pending {
		select {
		case <-w.stopCh:
			return
		default:
		}
		w.deliver(ctx, msg)
	}
}

// deliver attempts a single message with exponential backoff between
// attempts. Every failed attempt is recorded on the row; exhausting the
// attempts moves the message to the failed terminal state and it is
// never requeued.
func (w *Worker) deliver(ctx context.Context, msg *models.EmailMessage) {
	if err := w.limiter.Wait(ctx); err != nil {
		return
	}

	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = 500 * time.Millisecond
	expBackoff.MaxInterval = 10 * time.Second

	attempt := 0
	providerID, err := backoff.Retry(ctx, func() (string, error) {
		attempt++
		id, sendErr := w.breaker.Execute(func() (string, error) {
			return w.sender.Send(ctx, msg.To, msg.Subject, msg.HTML)
		})
		if errors.Is(sendErr, gobreaker.ErrOpenState) {
			// The provider is down; retrying the same message
			// immediately won't help.
			return "", backoff.Permanent(sendErr)
		}
		if sendErr != nil {
			// The final attempt is recorded by the terminal mark below.
			if attempt < w.cfg.MaxAttempts {
				if markErr := w.outbox.MarkFailed(ctx, msg.MessageID, sendErr.Error(), false); markErr != nil {
					log.Error().Err(markErr).Str("message_id", msg.MessageID.String()).Msg("Failed to record delivery attempt")
				}
			}
			return "", sendErr
		}
		return id, nil
	},
		backoff.WithBackOff(expBackoff),
		backoff.WithMaxTries(uint(w.cfg.MaxAttempts)),
	)

	if errors.Is(err, gobreaker.ErrOpenState) {
		// Leave the message pending; the next poll will pick it up
		// once the breaker half-opens.
		log.Debug().Str("message_id", msg.MessageID.String()).Msg("Sender unavailable, deferring message")
		return
	}

	if err != nil {
		telemetry.GetMetrics().EmailsFailedTotal.Add(ctx, 1)
		log.Warn().
			Err(err).
			Str("message_id", msg.MessageID.String()).
			Str("to", msg.To).
			Msg("Email delivery failed")
		if markErr := w.outbox.MarkFailed(ctx, msg.MessageID, err.Error(), true); markErr != nil {
			log.Error().Err(markErr).Str("message_id", msg.MessageID.String()).Msg("Failed to mark message failed")
		}
		return
	}

	if err := w.outbox.MarkSent(ctx, msg.MessageID, time.Now()); err != nil {
		log.Error().Err(err).Str("message_id", msg.MessageID.String()).Msg("Failed to mark message sent")
		return
	}

	telemetry.GetMetrics().EmailsSentTotal.Add(ctx, 1)

	log.Info().
		Str("message_id", msg.MessageID.String()).
		Str("provider_id", providerID).
		Str("template", msg.Template).
		Msg("Email sent")
}

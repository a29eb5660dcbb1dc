package queue

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "sync"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
    "go.uber.org/zap"

    "github.com/iliyamo/user-management-api/internal/model"
    "github.com/iliyamo/user-management-api/internal/service"
)

var _ service.Notifier = (*Publisher)(nil)

// DefaultPublishBuffer is the number of events that may wait for the broker.
const DefaultPublishBuffer = 256

// ErrPublishBufferFull is returned when an event is dropped because the
// broker is not keeping up.
var ErrPublishBufferFull = errors.New("publish buffer full")

// ErrPublisherClosed is returned for events sent after Close.
var ErrPublisherClosed = errors.New("publisher closed")

type outbound struct {
    queue string
    body  []byte
}

// Publisher sends account events to RabbitMQ. Callers only enqueue; a
// single goroutine owns the connection, dials on demand and redials after
// a failure, so a slow or absent broker never holds up a request.
type Publisher struct {
    url string
    log *zap.Logger
    now func() time.Time

    events chan outbound
    ctx    context.Context
    cancel context.CancelFunc
    wg     sync.WaitGroup
    once   sync.Once

    // owned by run
    conn *amqp.Connection
    ch   *amqp.Channel
}

func NewPublisher(url string, log *zap.Logger) *Publisher {
    return newPublisher(url, log, DefaultPublishBuffer)
}

func newPublisher(url string, log *zap.Logger, buffer int) *Publisher {
    if log == nil {
        log = zap.NewNop()
    }
    ctx, cancel := context.WithCancel(context.Background())
    p := &Publisher{
        url:    url,
        log:    log,
        now:    time.Now,
        events: make(chan outbound, buffer),
        ctx:    ctx,
        cancel: cancel,
    }
    p.wg.Add(1)
    go p.run()
    return p
}

// UserRegistered enqueues a UserRegisteredEvent.
func (p *Publisher) UserRegistered(_ context.Context, u model.UserView) error {
    return p.enqueue(UserRegisteredQueue, newUserRegisteredEvent(u, p.now()))
}

// PasswordResetRequested enqueues a PasswordResetRequestedEvent.
func (p *Publisher) PasswordResetRequested(_ context.Context, u model.UserView, token string, expiresAt time.Time) error {
    return p.enqueue(PasswordResetRequestedQueue, newPasswordResetRequestedEvent(u, token, expiresAt, p.now()))
}

func (p *Publisher) enqueue(queue string, event any) error {
    if p.ctx.Err() != nil {
        return ErrPublisherClosed
    }
    body, err := json.Marshal(event)
    if err != nil {
        return fmt.Errorf("marshal %s event: %w", queue, err)
    }
    select {
    case p.events <- outbound{queue: queue, body: body}:
        return nil
    default:
        p.log.Warn("event dropped, publish buffer full", zap.String("queue", queue))
        return ErrPublishBufferFull
    }
}

func (p *Publisher) run() {
    defer p.wg.Done()
    defer p.resetConn()
    for {
        select {
        case <-p.ctx.Done():
            if n := len(p.events); n > 0 {
                p.log.Warn("publisher closed with pending events", zap.Int("dropped", n))
            }
            return
        case ev := <-p.events:
            if p.ctx.Err() != nil {
                continue
            }
            if err := p.publish(ev); err != nil {
                p.log.Warn("event not published", zap.String("queue", ev.queue), zap.Error(err))
            }
        }
    }
}

func (p *Publisher) publish(ev outbound) error {
    ch, err := p.channel()
    if err != nil {
        return err
    }
    // Idempotent; durable so messages survive broker restarts.
    if _, err := ch.QueueDeclare(ev.queue, true, false, false, false, nil); err != nil {
        p.resetConn()
        return fmt.Errorf("declare %s: %w", ev.queue, err)
    }

    ctx, cancel := context.WithTimeout(p.ctx, 3*time.Second)
    defer cancel()
    err = ch.PublishWithContext(ctx, "", ev.queue, false, false, amqp.Publishing{
        ContentType:  "application/json",
        DeliveryMode: amqp.Persistent,
        Timestamp:    p.now().UTC(),
        Body:         ev.body,
    })
    if err != nil {
        p.resetConn()
        return fmt.Errorf("publish %s: %w", ev.queue, err)
    }
    p.log.Debug("event published", zap.String("queue", ev.queue))
    return nil
}

func (p *Publisher) channel() (*amqp.Channel, error) {
    if p.ch != nil && !p.ch.IsClosed() {
        return p.ch, nil
    }
    p.resetConn()
    conn, err := amqp.DialConfig(p.url, amqp.Config{
        Heartbeat: 10 * time.Second,
        Locale:    "en_US",
        Dial:      amqp.DefaultDial(3 * time.Second),
    })
    if err != nil {
        return nil, fmt.Errorf("rabbitmq dial: %w", err)
    }
    ch, err := conn.Channel()
    if err != nil {
        _ = conn.Close()
        return nil, fmt.Errorf("rabbitmq channel: %w", err)
    }
    p.conn, p.ch = conn, ch
    return ch, nil
}

func (p *Publisher) resetConn() {
    if p.ch != nil {
        _ = p.ch.Close()
        p.ch = nil
    }
    if p.conn != nil {
        _ = p.conn.Close()
        p.conn = nil
    }
}

// Close stops the publisher and releases the broker connection. Events
// still buffered are dropped. It waits for an in-flight dial to finish.
func (p *Publisher) Close() error {
    p.once.Do(func() {
        p.cancel()
        p.wg.Wait()
    })
    return nil
}

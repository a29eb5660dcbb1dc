package queue

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "os"
    "path/filepath"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
    "go.uber.org/zap"

    "github.com/iliyamo/user-management-api/internal/utils"
)

// MailLogFile is the file, under the mailer's log directory, that records
// every delivered message.
const MailLogFile = "mail.log"

// StartMailConsumer consumes both account queues and appends one line per
// message to dir/mail.log. It reconnects with backoff until ctx is done.
func StartMailConsumer(ctx context.Context, url, dir string, log *zap.Logger) error {
    if log == nil {
        log = zap.NewNop()
    }
    backoff := time.Second
    for {
        conn, err := amqp.Dial(url)
        if err != nil {
            log.Warn("mailer: dial broker failed", zap.Error(err), zap.Duration("retry_in", backoff))
            if !sleepCtx(ctx, backoff) {
                return ctx.Err()
            }
            if backoff < 30*time.Second {
                backoff *= 2
            }
            continue
        }
        backoff = time.Second

        err = consumeLoop(ctx, conn, dir, log)
        _ = conn.Close()
        if ctx.Err() != nil {
            return ctx.Err()
        }
        log.Warn("mailer: consume loop ended, reconnecting", zap.Error(err))
        if !sleepCtx(ctx, 2*time.Second) {
            return ctx.Err()
        }
    }
}

func consumeLoop(ctx context.Context, conn *amqp.Connection, dir string, log *zap.Logger) error {
    ch, err := conn.Channel()
    if err != nil {
        return fmt.Errorf("channel open: %w", err)
    }
    defer func() { _ = ch.Close() }()

    if err := ch.Qos(50, 0, false); err != nil {
        log.Warn("mailer: set QoS failed", zap.Error(err))
    }

    type source struct {
        queue string
        msgs  <-chan amqp.Delivery
    }
    var sources []source
    for _, q := range []string{UserRegisteredQueue, PasswordResetRequestedQueue} {
        if _, err := ch.QueueDeclare(q, true, false, false, false, nil); err != nil {
            return fmt.Errorf("queue declare %s: %w", q, err)
        }
        msgs, err := ch.Consume(q, "", false, false, false, false, nil)
        if err != nil {
            return fmt.Errorf("queue consume %s: %w", q, err)
        }
        sources = append(sources, source{queue: q, msgs: msgs})
    }
    log.Info("mailer: consuming", zap.Strings("queues", []string{UserRegisteredQueue, PasswordResetRequestedQueue}))

    for {
        var (
            d     amqp.Delivery
            ok    bool
            queue string
        )
        select {
        case <-ctx.Done():
            return ctx.Err()
        case d, ok = <-sources[0].msgs:
            queue = sources[0].queue
        case d, ok = <-sources[1].msgs:
            queue = sources[1].queue
        }
        if !ok {
            return errors.New("deliveries channel closed")
        }

        line, err := FormatMailLine(queue, d.Body)
        if err == nil {
            err = appendLine(dir, line)
        }
        if err != nil {
            log.Error("mailer: handle message failed", zap.String("queue", queue), zap.Error(err))
            _ = d.Nack(false, false) // reject without requeue to avoid tight loops
            continue
        }
        _ = d.Ack(false)
    }
}

// FormatMailLine renders the mail log entry for a message from queue. The
// raw reset token never reaches the log; only a short digest prefix does.
func FormatMailLine(queue string, body []byte) (string, error) {
    switch queue {
    case UserRegisteredQueue:
        var ev UserRegisteredEvent
        if err := json.Unmarshal(body, &ev); err != nil {
            return "", fmt.Errorf("unmarshal: %w", err)
        }
        return fmt.Sprintf("[%s] Welcome mail sent | to=%s | user_id=%d | name=\"%s %s\" | event=%s\n",
            ev.RegisteredAt, ev.Email, ev.UserID, ev.FirstName, ev.LastName, ev.EventID), nil
    case PasswordResetRequestedQueue:
        var ev PasswordResetRequestedEvent
        if err := json.Unmarshal(body, &ev); err != nil {
            return "", fmt.Errorf("unmarshal: %w", err)
        }
        if ev.ResetToken == "" {
            return "", errors.New("reset event without token")
        }
        return fmt.Sprintf("[%s] Password reset mail sent | to=%s | user_id=%d | token_ref=%s | expires_at=%s | event=%s\n",
            ev.RequestedAt, ev.Email, ev.UserID, utils.HashOpaque(ev.ResetToken)[:12], ev.ExpiresAt, ev.EventID), nil
    }
    return "", fmt.Errorf("unknown queue %q", queue)
}

func appendLine(dir, line string) error {
    if err := os.MkdirAll(dir, 0o755); err != nil {
        return fmt.Errorf("mkdir logs: %w", err)
    }
    f, err := os.OpenFile(filepath.Join(dir, MailLogFile), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
    if err != nil {
        return fmt.Errorf("open log file: %w", err)
    }
    defer f.Close()
    if _, err := f.WriteString(line); err != nil {
        return fmt.Errorf("write log: %w", err)
    }
    return nil
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
    t := time.NewTimer(d)
    defer t.Stop()
    select {
    case <-ctx.Done():
        return false
    case <-t.C:
        return true
    }
}

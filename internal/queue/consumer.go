package queue

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// StartConsumers runs the background consumers for both queues.  Each
// consumer keeps a reconnect loop with capped exponential backoff, so a
// broker restart never takes the API server down with it.  Messages
// that fail processing are rejected without requeue to avoid tight
// redelivery loops.
func StartConsumers() {
	go runConsumer(BookingConfirmedQueue, handleBookingConfirmed)
	go runConsumer(UserCreatedQueue, handleUserCreated)
}

func runConsumer(queueName string, handle func([]byte) error) {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(brokerURL())
		if err != nil {
			log.Printf("%s-consumer: failed to dial broker: %v; retrying in %s", queueName, err, backoff)
			time.Sleep(backoff)
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second // reset after successful connect

		if err := consumeLoop(conn, queueName, handle); err != nil {
			log.Printf("%s-consumer: consume loop ended: %v; reconnecting", queueName, err)
			time.Sleep(2 * time.Second)
		}
	}
}

func consumeLoop(conn *amqp.Connection, queueName string, handle func([]byte) error) error {
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		log.Printf("%s-consumer: set QoS failed: %v", queueName, err)
	}

	if _, err := ch.QueueDeclare(queueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}

	msgs, err := ch.Consume(queueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for d := range msgs {
		if err := handle(d.Body); err != nil {
			log.Printf("%s-consumer: handle message failed: %v", queueName, err)
			_ = d.Nack(false, false)
			continue
		}
		_ = d.Ack(false)
	}
	return errors.New("deliveries channel closed")
}

// handleBookingConfirmed appends one line per confirmed booking to
// logs/booking.log as a lightweight audit trail.
func handleBookingConfirmed(body []byte) error {
	var ev BookingConfirmedEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	line := fmt.Sprintf("[%s] Booking confirmed | event_id=%s | booking_id=%d | user_id=%d | room=%q | title=%q | start=%s | end=%s | attendees=%d\n",
		ev.ConfirmedAt, ev.EventID, ev.BookingID, ev.UserID, ev.RoomName, ev.Title, ev.StartTime, ev.EndTime, ev.AttendeeCount)
	return appendLog("booking.log", line)
}

// handleUserCreated spools a welcome message for a freshly provisioned
// account to logs/mail.log.  A real SMTP sender can replace this by
// swapping the handler; the queue contract stays the same.
func handleUserCreated(body []byte) error {
	var ev UserCreatedEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	line := fmt.Sprintf("[%s] To: %s | Subject: Welcome to RoomDesk | Hello %s, your %s account is ready. Temporary password: %s (change it after your first login)\n",
		ev.CreatedAt, ev.Email, ev.Name, ev.Role, ev.TempPassword)
	return appendLog("mail.log", line)
}

func appendLog(name, line string) error {
	if err := os.MkdirAll("logs", 0o755); err != nil {
		return fmt.Errorf("mkdir logs: %w", err)
	}
	f, err := os.OpenFile(filepath.Join("logs", name), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}

package publisher

import (
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
)

type NATSPublisher struct {
	nc            *nats.Conn
	subjectPrefix string
	logSubjects   bool
	metrics       PublisherMetrics
}

type PublisherMetrics interface {
	EventPublishedInc()
	EventPublishErrInc()
	PublishObserve(d time.Duration)
	SetConnected(connected bool)
}

func NewNATSPublisher(url, subjectPrefix string, logSubjects bool, m PublisherMetrics) (*NATSPublisher, error) {
	nc, err := nats.Connect(url,
		nats.Name("movemate"),
		nats.DisconnectHandler(func(_ *nats.Conn) {
			if m != nil {
				m.SetConnected(false)
			}
			log.Printf("nats disconnected")
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			if m != nil {
				m.SetConnected(true)
			}
			log.Printf("nats reconnected")
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			if m != nil {
				m.SetConnected(false)
			}
			log.Printf("nats closed")
		}),
	)
	if err != nil {
		return nil, err
	}
	if m != nil {
		m.SetConnected(true)
	}
	return &NATSPublisher{nc: nc, subjectPrefix: subjectPrefix, logSubjects: logSubjects, metrics: m}, nil
}

func (p *NATSPublisher) Close() {
	if p.nc != nil {
		p.nc.Drain()
		p.nc.Close()
	}
}

// BookingMessage is the event emitted for every committed booking.
type BookingMessage struct {
	RouteID          int                `json:"routeId"`
	Route            string             `json:"route"`
	DepartureTime    string             `json:"departureTime"`
	Passengers       []PassengerMessage `json:"passengers"`
	TotalFare        float64            `json:"totalFare"`
	PaymentMethod    string             `json:"paymentMethod"`
	PaymentReference string             `json:"paymentReference"`
	SeatsLeft        int                `json:"seatsLeft"`
	Timestamp        time.Time          `json:"timestamp"`
}

type PassengerMessage struct {
	Name   string `json:"name"`
	Age    int    `json:"age"`
	Gender string `json:"gender"`
}

func (p *NATSPublisher) PublishBooking(msg BookingMessage) error {
	subject := Subject(p.subjectPrefix, msg.RouteID)
	b, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	if p.logSubjects {
		log.Printf("nats publish subject=%s", subject)
	}
	start := time.Now()
	err = p.nc.Publish(subject, b)
	observe(p.metrics, start, err)
	return err
}

// Subject is "<prefix>.<routeId>" with the prefix made token-safe.
func Subject(prefix string, routeID int) string {
	parts := strings.Split(strings.TrimSpace(prefix), ".")
	for i, part := range parts {
		parts[i] = subjectToken(part)
	}
	return fmt.Sprintf("%s.%s", strings.Join(parts, "."), strconv.Itoa(routeID))
}

func subjectToken(s string) string {
	s = strings.TrimSpace(s)
	// NATS token cannot contain spaces, '>', '*', or trailing '.'
	repl := strings.NewReplacer(" ", "_", ".", "_", ">", "_", "*", "_", "/", "_", "\t", "_")
	s = repl.Replace(s)
	if s == "" {
		s = "_"
	}
	return s
}

func observe(m PublisherMetrics, start time.Time, err error) {
	if m == nil {
		return
	}
	m.PublishObserve(time.Since(start))
	if err != nil {
		m.EventPublishErrInc()
	} else {
		m.EventPublishedInc()
	}
}

package queue

import (
	"log/slog"

	"github.com/samber/do"
)

const bufferSize = 64

var _ do.Shutdownable = (*Service)(nil)

// Service decouples webhook ingestion from message processing: the HTTP
// handler enqueues and returns immediately, workers drain the channel.
type Service struct {
	queue chan Message
}

type Message struct {
	Sender string
	Text   string
}

func New(_ *do.Injector) (*Service, error) {
	return &Service{
		queue: make(chan Message, bufferSize),
	}, nil
}

func (s *Service) Add(sender, text string) {
	// a webhook may race shutdown and hit the closed channel
	defer func() {
		if r := recover(); r != nil {
			slog.Warn("message dropped, queue already closed", "sender", sender)
		}
	}()

	select {
	case s.queue <- Message{sender, text}:
	default:
		slog.Warn("message queue is full", "sender", sender)
	}
}

func (s *Service) Channel() <-chan Message {
	return s.queue
}

func (s *Service) Shutdown() error {
	close(s.queue)

	return nil
}

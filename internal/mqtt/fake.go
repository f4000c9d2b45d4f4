package mqtt

import (
	"github.com/sweeney/ev-dashboard/internal/logic"
)

// Sent is one message the fake would have put on the wire.
type Sent struct {
	Topic    string
	Retained bool
	Payload  []byte
}

// FakePublisher records what a RealPublisher would send.
type FakePublisher struct {
	Events         []logic.Event
	Payloads       [][]byte
	SystemEvents   []SystemEvent
	SystemPayloads [][]byte

	// Sent holds dashboard and system messages in publish order.
	Sent []Sent

	// Injected failures; a failed publish records nothing.
	PublishError       error
	PublishSystemError error

	Closed    bool
	Connected bool // returned by IsConnected
}

// NewFakePublisher returns an empty recorder.
func NewFakePublisher() *FakePublisher {
	return &FakePublisher{}
}

// Publish formats and records a dashboard event on its routed topic.
func (f *FakePublisher) Publish(event logic.Event) error {
	if f.PublishError != nil {
		return f.PublishError
	}
	payload, err := FormatPayload(event)
	if err != nil {
		return err
	}
	topic, retained := Route(event)
	f.Events = append(f.Events, event)
	f.Payloads = append(f.Payloads, payload)
	f.Sent = append(f.Sent, Sent{Topic: topic, Retained: retained, Payload: payload})
	return nil
}

// PublishSystem formats and records a lifecycle event.
func (f *FakePublisher) PublishSystem(event SystemEvent) error {
	if f.PublishSystemError != nil {
		return f.PublishSystemError
	}
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return err
	}
	f.SystemEvents = append(f.SystemEvents, event)
	f.SystemPayloads = append(f.SystemPayloads, payload)
	f.Sent = append(f.Sent, Sent{Topic: TopicSystem, Retained: event.Retained, Payload: payload})
	return nil
}

func (f *FakePublisher) Close() error {
	f.Closed = true
	return nil
}

func (f *FakePublisher) IsConnected() bool {
	return f.Connected
}

// SystemEventNames lists recorded lifecycle events by name.
func (f *FakePublisher) SystemEventNames() []string {
	names := make([]string, len(f.SystemEvents))
	for i, e := range f.SystemEvents {
		names[i] = e.Event
	}
	return names
}

// Topics lists the topic of every recorded message.
func (f *FakePublisher) Topics() []string {
	topics := make([]string, len(f.Sent))
	for i, s := range f.Sent {
		topics[i] = s.Topic
	}
	return topics
}

// Reset drops everything recorded and every injected failure.
func (f *FakePublisher) Reset() {
	*f = FakePublisher{}
}

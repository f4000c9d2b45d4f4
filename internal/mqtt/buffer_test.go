package mqtt

import "testing"

func msg(i int) message {
	return message{topic: "t", payload: []byte{byte(i)}}
}

func TestRingBufferEmptyDrain(t *testing.T) {
	rb := newRingBuffer(10)
	got, dropped := rb.drain()
	if got != nil || dropped != 0 {
		t.Errorf("expected nothing from empty drain, got %d items, %d dropped", len(got), dropped)
	}
}

func TestRingBufferPushAndDrain(t *testing.T) {
	rb := newRingBuffer(10)
	for i := 0; i < 5; i++ {
		if rb.push(msg(i)) {
			t.Fatalf("push %d reported a drop", i)
		}
	}
	if rb.len() != 5 {
		t.Fatalf("len: got %d, want 5", rb.len())
	}

	got, _ := rb.drain()
	if len(got) != 5 {
		t.Fatalf("expected 5 items, got %d", len(got))
	}
	for i := range got {
		if got[i].payload[0] != byte(i) {
			t.Errorf("item %d: got payload %d", i, got[i].payload[0])
		}
	}
	if again, _ := rb.drain(); again != nil {
		t.Errorf("expected empty second drain, got %d items", len(again))
	}
}

func TestRingBufferOverflowKeepsNewest(t *testing.T) {
	rb := newRingBuffer(5)
	drops := 0
	for i := 0; i < 8; i++ {
		if rb.push(msg(i)) {
			drops++
		}
	}
	if drops != 3 {
		t.Errorf("expected 3 drops, got %d", drops)
	}

	got, dropped := rb.drain()
	if dropped != 3 {
		t.Errorf("drain dropped count: got %d, want 3", dropped)
	}
	if len(got) != 5 {
		t.Fatalf("expected 5 items, got %d", len(got))
	}
	for i := range got {
		if want := byte(i + 3); got[i].payload[0] != want {
			t.Errorf("item %d: got %d, want %d", i, got[i].payload[0], want)
		}
	}

	if _, dropped := rb.drain(); dropped != 0 {
		t.Errorf("drop count not reset: %d", dropped)
	}
}

func TestRingBufferWrapsAcrossDrains(t *testing.T) {
	rb := newRingBuffer(4)
	for round := 0; round < 3; round++ {
		for i := 0; i < 3; i++ {
			rb.push(msg(round*10 + i))
		}
		got, _ := rb.drain()
		if len(got) != 3 {
			t.Fatalf("round %d: expected 3 items, got %d", round, len(got))
		}
		if got[0].payload[0] != byte(round*10) {
			t.Errorf("round %d: first item %d", round, got[0].payload[0])
		}
	}
}

func TestRingBufferPreservesFields(t *testing.T) {
	rb := newRingBuffer(2)
	rb.push(message{topic: TopicSystem, payload: []byte("x"), qos: 1, retained: true})

	got, _ := rb.drain()
	m := got[0]
	if m.topic != TopicSystem || string(m.payload) != "x" || m.qos != 1 || !m.retained {
		t.Errorf("fields not preserved: %+v", m)
	}
}

func TestRingBufferMinimumCapacity(t *testing.T) {
	rb := newRingBuffer(0)
	rb.push(msg(1))
	rb.push(msg(2))
	got, dropped := rb.drain()
	if len(got) != 1 || got[0].payload[0] != 2 || dropped != 1 {
		t.Errorf("got %d items, dropped %d", len(got), dropped)
	}
}

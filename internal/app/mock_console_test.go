package app

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"
)

type syncBuffer struct {
	mu sync.Mutex
	b  bytes.Buffer
}

func (s *syncBuffer) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.Write(p)
}

func (s *syncBuffer) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.String()
}

func TestRunMockConsolePrintsAllAxes(t *testing.T) {
	var out syncBuffer
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	if err := RunMockConsole(ctx, &out, 10*time.Millisecond); err != nil {
		t.Fatalf("RunMockConsole failed: %v", err)
	}

	text := out.String()
	for _, name := range DeviceNames {
		if !strings.Contains(text, name+" ") {
			t.Errorf("expected output for %s, got:\n%s", name, text)
		}
	}
}

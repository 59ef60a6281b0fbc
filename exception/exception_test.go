package exception

import (
	"sync"
	"testing"
	"time"
)

func TestSafeGoRecovers(t *testing.T) {
	var wg sync.WaitGroup
	wg.Add(1)
	SafeGo("test", func() {
		defer wg.Done()
		panic("boom")
	})

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("goroutine did not finish")
	}
}

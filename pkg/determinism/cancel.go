package determinism

import "sync"

// CancelToken is a shared, one-shot, observable cancellation flag. A token
// created with a parent cancels whenever the parent does, but not the
// reverse. Clones (obtained by holding the same pointer) all observe the
// same cancellation.
type CancelToken struct {
	once sync.Once
	done chan struct{}
}

// NewCancelToken creates a token optionally watching a parent. Passing a
// nil parent creates a root token (used for the global scope; the
// simulation-wide token is a child of the global one, and per-run tokens
// are children of the simulation-wide token).
func NewCancelToken(parent *CancelToken) *CancelToken {
	t := &CancelToken{done: make(chan struct{})}
	if parent != nil {
		go func() {
			select {
			case <-parent.Done():
				t.Cancel()
			case <-t.done:
			}
		}()
	}
	return t
}

func (t *CancelToken) Cancel() {
	t.once.Do(func() { close(t.done) })
}

func (t *CancelToken) Done() <-chan struct{} {
	return t.done
}

func (t *CancelToken) Cancelled() bool {
	select {
	case <-t.done:
		return true
	default:
		return false
	}
}

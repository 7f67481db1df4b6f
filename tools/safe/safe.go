package safe

import "CollabProject/logger"

// Go starts a goroutine that recovers from panics so a broken callback
// (presence hook, delivery notification) cannot take the process down.
func Go(f func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Errorf("[safe.Go] panic recovered: %v", r)
			}
		}()
		f()
	}()
}

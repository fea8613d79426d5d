package goroutine

import (
	"runtime/debug"

	"github.com/ignatzorin/marketplace-backend/internal/logger"
)

// SafeGo запускает горутину, перехватывая panic, чтобы падение фоновой
// задачи не валило процесс.
func SafeGo(fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Log.Errorf("goroutine: перехвачен panic: %v\n%s", r, debug.Stack())
			}
		}()
		fn()
	}()
}

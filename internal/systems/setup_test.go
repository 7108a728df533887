package systems

import (
	"os"
	"testing"

	"github.com/hopper1357/VTT/pkg/logger"
)

func TestMain(m *testing.M) {
	// Логгер нужен FOV (Debug-записи), но вывод в тестах не нужен
	logger.Silence()

	os.Exit(m.Run())
}

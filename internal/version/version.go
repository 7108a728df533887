// Package version описывает сборку сервера. Значения подставляются через
// -ldflags "-X github.com/hopper1357/VTT/internal/version.BuildDate=..."
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"time"
)

const Product = "vtt-session"

var (
	BuildDate   string // YYYY-MM-DD (UTC)
	BuildCommit string
	BuildBranch string
)

// Номер сборки - число дней от этой даты.
var buildEpoch = time.Date(2025, time.December, 4, 0, 0, 0, 0, time.UTC)

// VersionInfo - метаданные сборки (/version, лог при старте).
type VersionInfo struct {
	Product    string `json:"product"`
	BuildID    int    `json:"build_id"`
	BuildDate  string `json:"build_date,omitempty"`
	Commit     string `json:"commit,omitempty"`
	Branch     string `json:"branch,omitempty"`
	GoVersion  string `json:"go_version"`
	Calculated bool   `json:"calculated"`
	Error      string `json:"error,omitempty"`
}

// ParseBuildID переводит дату сборки в номер.
func ParseBuildID(date string) (int, error) {
	if date == "" {
		return 0, fmt.Errorf("build date is empty")
	}

	t, err := time.ParseInLocation("2006-01-02", date, time.UTC)
	if err != nil {
		return 0, fmt.Errorf("invalid build date %q: %w", date, err)
	}
	if t.Before(buildEpoch) {
		return 0, fmt.Errorf("build date %s is before epoch", date)
	}

	// Обе даты в UTC, переходов на летнее время нет
	return int(t.Sub(buildEpoch).Hours() / 24), nil
}

// Info собирает сведения о сборке. Если коммит не подставлен при сборке,
// берется из VCS-информации, которую go build кладет в бинарник.
func Info() VersionInfo {
	info := VersionInfo{
		Product:   Product,
		BuildDate: BuildDate,
		Commit:    BuildCommit,
		Branch:    BuildBranch,
		GoVersion: runtime.Version(),
	}
	if info.Commit == "" {
		info.Commit = vcsRevision()
	}

	id, err := ParseBuildID(BuildDate)
	if err != nil {
		info.Error = err.Error()
		return info
	}
	info.BuildID = id
	info.Calculated = true
	return info
}

// String - строка для логов.
func String() string {
	info := Info()
	if !info.Calculated {
		return fmt.Sprintf("%s build unknown (%s) commit[%s]", info.Product, info.Error, coalesce(info.Commit, "unknown"))
	}
	return fmt.Sprintf("%s build %d (%s) commit[%s] branch[%s]",
		info.Product,
		info.BuildID,
		info.BuildDate,
		coalesce(info.Commit, "unknown"),
		coalesce(info.Branch, "unknown"),
	)
}

func vcsRevision() string {
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	for _, s := range bi.Settings {
		if s.Key == "vcs.revision" {
			return s.Value
		}
	}
	return ""
}

func coalesce(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
